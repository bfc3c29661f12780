package vm

import (
	"slices"

	"github.com/zurustar/scumm-et/pkg/logger"
)

// startScene leaves the current room and enters room. Room 0 is the
// "no room" state scripts use between scenes.
func (vm *VM) startScene(room int) {
	v := &vm.cfg.Vars
	vm.log.Info("Entering room", "room", room, "from", vm.roomID)

	if vm.engineVar(v.HaveMsg) != 0 {
		vm.stopTalk()
	}
	vm.runExitScript()
	vm.killRoomScripts()
	vm.stopCycle(0)

	for _, a := range vm.actors[1:] {
		a.Visible = false
	}

	vm.setEngineVar(v.Room, int32(room))
	vm.setEngineVar(v.RoomResource, int32(room))
	vm.roomID = room
	vm.room = nil
	vm.matrix = nil

	if room == 0 {
		return
	}
	vm.attachRoom(room)
	r := vm.room

	vm.palette = append(vm.palette[:0], r.Palette...)
	if len(vm.palette) > 0 {
		vm.display.SetPalette(vm.palette)
	}
	vm.initCycles(r.Cycles)

	half := vm.cfg.ScreenWidth / 2
	vm.setEngineVar(v.RoomWidth, int32(r.Width))
	vm.setEngineVar(v.RoomHeight, int32(r.Height))
	vm.setEngineVar(v.CameraMinX, int32(half))
	vm.setEngineVar(v.CameraMaxX, int32(max(r.Width-half, half)))

	c := &vm.camera
	c.Mode = CameraNormal
	c.CurX, c.DestX = half, half
	c.CurY, c.DestY = vm.cfg.ScreenHeight/2, vm.cfg.ScreenHeight/2
	vm.cameraMoved()

	for _, a := range vm.actors[1:] {
		if vm.inCurrentRoom(a) {
			a.Visible = true
			a.Box = vm.boxAt(a.X, a.Y)
			vm.startAnimActor(a, int(a.StandFrame))
		}
	}

	vm.runEntryScript()
}

// attachRoom loads room's data and box matrix without running any of
// its scripts. Boxes and scale slots are copied: scripts edit them, and
// the edits last only until the room is left.
func (vm *VM) attachRoom(room int) {
	r, err := vm.res.GetRoom(room)
	if err != nil {
		vm.resourceFault("room", room, err)
	}
	own := *r
	own.Boxes = slices.Clone(r.Boxes)
	own.Scales = slices.Clone(r.Scales)
	vm.room = &own
	vm.matrix = nil

	m, err := r.Matrix()
	if err != nil {
		logger.Channel("boxes").Warn("Room box matrix unusable", "room", room, "error", err)
		return
	}
	vm.matrix = m
}

// killRoomScripts ends every slot whose code belonged to the old room.
func (vm *VM) killRoomScripts() {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Status == StatusDead {
			continue
		}
		switch s.Where {
		case WhereRoom, WhereFLObject, WhereLocal:
			if s.CutsceneOverride != 0 {
				vm.log.Warn("Room script killed inside cutscene", "script", s.Number, "slot", i)
			}
			vm.killSlot(i)
		}
	}
}

func (vm *VM) runExitScript() {
	v := &vm.cfg.Vars
	if n := vm.engineVar(v.ExitScript); n != 0 && v.ExitScript != NoVar {
		vm.runScript(int(n), false, false, nil)
	}
	if vm.room != nil && len(vm.room.ExitScript) > 0 {
		vm.runRoomCode(exitScriptNumber)
	}
	if n := vm.engineVar(v.ExitScript2); n != 0 && v.ExitScript2 != NoVar {
		vm.runScript(int(n), false, false, nil)
	}
}

func (vm *VM) runEntryScript() {
	v := &vm.cfg.Vars
	if n := vm.engineVar(v.EntryScript); n != 0 && v.EntryScript != NoVar {
		vm.runScript(int(n), false, false, nil)
	}
	if vm.room != nil && len(vm.room.EntryScript) > 0 {
		vm.runRoomCode(entryScriptNumber)
	}
	if n := vm.engineVar(v.EntryScript2); n != 0 && v.EntryScript2 != NoVar {
		vm.runScript(int(n), false, false, nil)
	}
}

// runRoomCode runs the room's entry or exit code in a fresh slot.
func (vm *VM) runRoomCode(number int) {
	slot := vm.getScriptSlot()
	s := &vm.slots[slot]
	s.Number = number
	s.Offset = 0
	s.Status = StatusRunning
	s.Where = WhereRoom
	s.FreezeResistant = false
	s.Recursive = false
	s.FreezeCount = 0
	s.Delay = 0
	s.Cycle = 1
	s.code = nil
	vm.initializeLocals(slot, nil)
	vm.runScriptNested(slot)
}

// StartRoom enters a room from outside the interpreter, as the boot
// sequence and tools do.
func (vm *VM) StartRoom(room int) error {
	return vm.Access(func() { vm.startScene(room) })
}
