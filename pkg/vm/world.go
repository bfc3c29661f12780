package vm

import (
	"image"

	"github.com/zurustar/scumm-et/pkg/costume"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// objectOrActorXY returns the position of an actor, a room object, or the
// actor holding an inventory object.
func (vm *VM) objectOrActorXY(obj int) (x, y int, ok bool) {
	if obj > 0 && obj < len(vm.actors) {
		a := vm.actors[obj]
		return a.X, a.Y, true
	}
	switch vm.whereIsObject(obj) {
	case WhereNotFound:
		return 0, 0, false
	case WhereInventory:
		owner := vm.GetOwner(obj)
		if owner > 0 && owner < len(vm.actors) {
			a := vm.actors[owner]
			return a.X, a.Y, true
		}
		return 0, 0, false
	}
	return vm.objectPosition(obj)
}

// objActDist is the distance scripts see between two actors or objects;
// 0xFF when either cannot be placed.
func (vm *VM) objActDist(a, b int) int {
	var acta, actb *Actor
	if a > 0 && a < len(vm.actors) {
		acta = vm.actors[a]
	}
	if b > 0 && b < len(vm.actors) {
		actb = vm.actors[b]
	}
	if acta != nil && actb != nil && acta.Room == actb.Room && acta.Room != 0 && !vm.inCurrentRoom(acta) {
		return 0
	}
	x, y, ok := vm.objectOrActorXY(a)
	if !ok {
		return 0xFF
	}
	x2, y2, ok := vm.objectOrActorXY(b)
	if !ok {
		return 0xFF
	}
	if acta != nil && actb == nil && !acta.IgnoreBoxes {
		p, _ := vm.adjustXY(x2, y2)
		x2, y2 = p.X, p.Y
	}
	return actorDistance(x, y, x2, y2)
}

// walkActorToObject sends a towards obj. Actors are approached side on,
// dist pixels away or at a distance from their width when dist is 0.
func (vm *VM) walkActorToObject(a *Actor, obj, dist int) {
	if obj > 0 && obj < len(vm.actors) {
		target := vm.actors[obj]
		if !vm.inCurrentRoom(target) || !vm.inCurrentRoom(a) || a == target {
			return
		}
		if dist == 0 {
			dist = target.ScaleX * target.Width / 0xFF
			dist += dist / 2
		}
		x, y := target.X, target.Y
		if x < a.X {
			x += dist
		} else {
			x -= dist
		}
		vm.startWalk(a, x, y, -1)
		return
	}
	if vm.whereIsObject(obj) == WhereNotFound {
		return
	}
	x, y, ok := vm.objectOrActorXY(obj)
	if !ok {
		return
	}
	vm.startWalk(a, x, y, -1)
}

// faceToObject turns a towards an actor or object.
func (vm *VM) faceToObject(a *Actor, obj int) {
	if !vm.inCurrentRoom(a) {
		return
	}
	x, y, ok := vm.objectOrActorXY(obj)
	if !ok {
		return
	}
	vm.faceTowards(a, x, y)
}

// verbEntrypoint returns the code offset of obj's handler for verb, 0
// when it has none.
func (vm *VM) verbEntrypoint(obj, verb int) int {
	if obj < 1 || obj >= len(vm.owners) {
		return 0
	}
	_, off, ok := vm.objectEntry(obj, vm.whereIsObject(obj), verb)
	if !ok {
		return 0
	}
	return off
}

// drawObject sets obj to state and clears the state of every other object
// that covers exactly the same rectangle. A child hidden by its parent's
// state is not redrawn.
func (vm *VM) drawObject(obj, state int) {
	if vm.room == nil {
		return
	}
	o := vm.room.Object(obj)
	if o == nil {
		return
	}
	for _, other := range vm.room.Objects {
		if other.ID != obj && other.X == o.X && other.Y == o.Y && other.Width == o.Width && other.Height == o.Height {
			vm.putState(other.ID, 0)
		}
	}
	vm.putState(obj, state)
	if vm.parentsAllow(o) {
		vm.markObjectDirty(obj)
	}
}

// markObjectDirty asks the display to redraw obj's rectangle.
func (vm *VM) markObjectDirty(obj int) {
	if vm.room == nil {
		return
	}
	if o := vm.room.Object(obj); o != nil {
		vm.display.MarkDirty(image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height))
	}
}

// enterRoomWithEgo moves the ego into room, entering next to obj.
func (vm *VM) enterRoomWithEgo(obj, room int) *Actor {
	ego := vm.derefActor(int(vm.engineVar(vm.cfg.Vars.Ego)), "enterRoomWithEgo")
	vm.putActor(ego, ego.X, ego.Y, room)
	vm.setEngineVar(vm.cfg.Vars.WalktoObj, int32(obj))
	vm.startScene(room)
	if x, y, ok := vm.objectPosition(obj); ok && obj >= len(vm.actors) {
		vm.putActor(ego, x, y, vm.roomID)
		vm.stopActorMoving(ego)
	}
	vm.setEngineVar(vm.cfg.Vars.WalktoObj, 0)
	c := &vm.camera
	c.CurX, c.DestX = ego.X, ego.X
	vm.setCameraFollows(ego)
	return ego
}

// putActorInRoom moves an actor to another room without placing it.
func (vm *VM) putActorInRoom(a *Actor, room int) {
	if a.Visible && vm.roomID != room && vm.engineVar(vm.cfg.Vars.TalkActor) == int32(a.Number) {
		vm.stopTalk()
	}
	a.Room = room
	if room == 0 {
		vm.putActor(a, 0, 0, 0)
	}
}

// putActorAtXY places an actor, keeping its room for 0xFF.
func (vm *VM) putActorAtXY(a *Actor, x, y, room int) {
	if room == 0xFF || room == 0x7FFFFFFF {
		room = a.Room
	} else if a.Visible && vm.roomID != room && vm.engineVar(vm.cfg.Vars.TalkActor) == int32(a.Number) {
		vm.stopTalk()
	}
	vm.putActor(a, x, y, room)
}

// putActorAtObject places an actor at an object's walk point, or at a
// fixed spot when the object is nowhere.
func (vm *VM) putActorAtObject(a *Actor, obj, room int) {
	x, y, ok := vm.objectOrActorXY(obj)
	if !ok || vm.whereIsObject(obj) == WhereNotFound && obj >= len(vm.actors) {
		x, y = 160, 120
	}
	if room == 0xFF || room == 0x7FFFFFFF {
		room = a.Room
	}
	vm.putActor(a, x, y, room)
}

// randomNumber returns a value in lo..hi inclusive.
func (vm *VM) randomNumber(lo, hi int32) int32 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + vm.rnd.Int32N(hi-lo+1)
}

// shuffleArray swaps random pairs of elements lo..hi of a one-row array.
func (vm *VM) shuffleArray(v, lo, hi int) {
	span := int32(hi - lo)
	for count := span * 2; count > 0; count-- {
		r1 := int(vm.randomNumber(0, span)) + lo
		r2 := int(vm.randomNumber(0, span)) + lo
		v1 := vm.readArray(v, 0, r1)
		v2 := vm.readArray(v, 0, r2)
		vm.writeArray(v, 0, r1, v2)
		vm.writeArray(v, 0, r2, v1)
	}
}

// pickVarRandom deals values from a shuffled deck kept in array v. Element
// 0 is the next position; the deck is reshuffled when it runs out, never
// dealing the same value twice in a row.
func (vm *VM) pickVarRandom(v int, values []int32) int32 {
	if vm.readVar(v) == 0 {
		n := len(values)
		vm.defineArray(v, ArrayInt, 0, n)
		for i, x := range values {
			vm.writeArray(v, 0, i+1, x)
		}
		vm.shuffleArray(v, 1, n)
		vm.writeArray(v, 0, 0, 2)
		return vm.readArray(v, 0, 1)
	}
	num := int(vm.readArray(v, 0, 0))
	last := vm.mustArray(v).Dim1 - 1
	if last < num {
		prev := vm.readArray(v, 0, num-1)
		vm.shuffleArray(v, 1, last)
		if vm.readArray(v, 0, 1) == prev {
			num = 2
		} else {
			num = 1
		}
	}
	vm.writeArray(v, 0, 0, int32(num+1))
	return vm.readArray(v, 0, num)
}

// isAnyOf reports whether value appears in list.
func isAnyOf(value int32, list []int32) bool {
	for _, x := range list {
		if x == value {
			return true
		}
	}
	return false
}

// actorInBox reports whether a stands inside box.
func (vm *VM) actorInBox(a *Actor, box int) bool {
	if vm.room == nil || box < 0 || box >= len(vm.room.Boxes) {
		return false
	}
	return vm.room.Boxes[box].Contains(walkbox.Point{X: a.X, Y: a.Y})
}

// setBoxFlags changes a walkbox's flags. The matrix is rebuilt by an
// explicit createBoxMatrix.
func (vm *VM) setBoxFlags(box, flags int) {
	if vm.room == nil || box < 0 || box >= len(vm.room.Boxes) {
		return
	}
	vm.room.Boxes[box].Flags = uint8(flags)
}

// setBoxScale changes the scale of a walkbox.
func (vm *VM) setBoxScale(box, scale int) {
	if vm.room == nil || box < 0 || box >= len(vm.room.Boxes) {
		return
	}
	vm.room.Boxes[box].Scale = uint16(scale)
}

// createBoxMatrix rebuilds the routing table after box flag changes.
func (vm *VM) createBoxMatrix() {
	if vm.room == nil {
		return
	}
	m, err := walkbox.Decode(walkbox.BuildMatrix(vm.room.Boxes))
	if err != nil {
		vm.faultf(ErrorNotImplemented, "rebuilt box matrix unreadable: %v", err)
	}
	vm.matrix = m
	for _, a := range vm.actors[1:] {
		if vm.inCurrentRoom(a) {
			a.Box = vm.boxAt(a.X, a.Y)
		}
	}
}

// saveRestoreVerbs dispatches the verb save/restore/delete family.
func (vm *VM) saveRestoreVerbs(kind, start, end, saveID int) bool {
	switch kind {
	case 1:
		vm.saveVerbs(start, end, saveID)
	case 2:
		vm.restoreVerbs(start, end, saveID)
	case 3:
		vm.deleteVerbs(start, end, saveID)
	default:
		return false
	}
	return true
}

// waitingForSentence reports whether a sentence is still queued or its
// script still runs.
func (vm *VM) waitingForSentence() bool {
	script := int(vm.engineVar(vm.cfg.Vars.SentenceScript))
	if n := len(vm.sentences); n > 0 {
		return vm.sentences[n-1].FreezeCount == 0 || vm.isScriptInUse(script)
	}
	return vm.isScriptInUse(script)
}

// cameraSettled reports whether the camera reached its destination.
func (vm *VM) cameraSettled() bool {
	c := &vm.camera
	if vm.cfg.Version >= 7 {
		return c.CurX == c.DestX && c.CurY == c.DestY
	}
	return c.CurX/8 == c.DestX/8
}

// setUserPut changes input and cursor state and publishes it.
func (vm *VM) setUserPut(delta int, cursor bool) {
	if cursor {
		vm.cursorState += delta
	} else {
		vm.userPut += delta
	}
	vm.publishCursor()
}

func (vm *VM) publishCursor() {
	vm.setEngineVar(vm.cfg.Vars.CursorState, int32(vm.cursorState))
	vm.setEngineVar(vm.cfg.Vars.UserPut, int32(vm.userPut))
}

// actorOldDir returns a's facing in the old four-way numbering.
func actorOldDir(a *Actor) int {
	return costume.OldDirFromFacing(a.Facing)
}

// restart drops every running script and returns to the boot state.
func (vm *VM) restart() {
	vm.log.Info("Game restart requested")
	for i := range vm.slots {
		if vm.slots[i].Status != StatusDead {
			vm.killSlot(i)
		}
	}
	vm.nest = vm.nest[:0]
	vm.sentences = vm.sentences[:0]
	vm.cutscenes = newCutsceneStack(vm.cfg.MaxCutscenes)
	vm.stack = vm.stack[:0]
	vm.current = noSlot
	vm.restartPending = true
}

// setScaleSlot replaces a room scale slot (1-based).
func (vm *VM) setScaleSlot(slot, scale1, y1, scale2, y2 int) {
	if vm.room == nil || slot < 1 {
		return
	}
	for len(vm.room.Scales) < slot {
		vm.room.Scales = append(vm.room.Scales, walkbox.ScaleSlot{})
	}
	vm.room.Scales[slot-1] = walkbox.ScaleSlot{Scale1: scale1, Y1: y1, Scale2: scale2, Y2: y2}
}
