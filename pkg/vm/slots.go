package vm

// SlotStatus is a script slot's run state. StatusFrozen is or-ed on top.
type SlotStatus uint8

const (
	StatusDead    SlotStatus = 0
	StatusPaused  SlotStatus = 1
	StatusRunning SlotStatus = 2
	StatusFrozen  SlotStatus = 0x80
)

// Where tells where a slot's code lives.
type Where uint8

const (
	WhereNotFound  Where = 0
	WhereInventory Where = 1
	WhereRoom      Where = 2
	WhereGlobal    Where = 3
	WhereLocal     Where = 4
	WhereFLObject  Where = 5
)

func (w Where) String() string {
	switch w {
	case WhereInventory:
		return "inventory"
	case WhereRoom:
		return "room"
	case WhereGlobal:
		return "global"
	case WhereLocal:
		return "local"
	case WhereFLObject:
		return "flobject"
	}
	return "notfound"
}

// Room entry and exit code run in slots under these numbers.
const (
	exitScriptNumber  = 10001
	entryScriptNumber = 10002
)

// Slot is one script execution context.
type Slot struct {
	Number           int
	Offset           int
	Status           SlotStatus
	Where            Where
	Delay            int32
	FreezeResistant  bool
	Recursive        bool
	FreezeCount      uint8
	DidExec          bool
	CutsceneOverride uint8
	Cycle            uint8
	Locals           []int32

	code        []byte
	delayFrames int32
}

// Running reports whether the scheduler may run the slot this tick.
func (s *Slot) Running() bool {
	return s.Status == StatusRunning
}

type nestEntry struct {
	number int
	where  Where
	slot   int
}

// SlotInfo is a read-only view of a slot for tools and tests.
type SlotInfo struct {
	Index  int
	Number int
	Status SlotStatus
	Where  Where
	Offset int
}

// Slots lists every live slot.
func (vm *VM) Slots() []SlotInfo {
	var out []SlotInfo
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Status == StatusDead {
			continue
		}
		out = append(out, SlotInfo{Index: i, Number: s.Number, Status: s.Status, Where: s.Where, Offset: s.Offset})
	}
	return out
}

// getScriptSlot returns the first free slot. Slot 0 is never used.
func (vm *VM) getScriptSlot() int {
	for i := 1; i < len(vm.slots); i++ {
		if vm.slots[i].Status == StatusDead {
			return i
		}
	}
	vm.faultf(ErrorSlotExhausted, "no free script slot (%d in use)", len(vm.slots)-1)
	return 0
}

// loadSlotCode resolves the code buffer a slot executes.
func (vm *VM) loadSlotCode(s *Slot) []byte {
	switch s.Where {
	case WhereGlobal:
		code, err := vm.res.GetScript(s.Number)
		if err != nil {
			vm.resourceFault("global script", s.Number, err)
		}
		return code
	case WhereLocal:
		if vm.room != nil {
			if code, ok := vm.room.LocalScripts[s.Number]; ok {
				return code
			}
		}
		vm.faultf(ErrorResourceNotFound, "local script %d is not in room %d", s.Number, vm.roomID)
	case WhereRoom, WhereFLObject:
		if vm.room != nil {
			switch s.Number {
			case exitScriptNumber:
				return vm.room.ExitScript
			case entryScriptNumber:
				return vm.room.EntryScript
			}
			if o := vm.room.Object(s.Number); o != nil {
				return o.Code
			}
		}
		vm.faultf(ErrorResourceNotFound, "object %d code is not in room %d", s.Number, vm.roomID)
	case WhereInventory:
		if o, ok := vm.invCode[s.Number]; ok {
			return o.Code
		}
		vm.faultf(ErrorResourceNotFound, "inventory object %d has no code", s.Number)
	}
	vm.faultf(ErrorResourceNotFound, "slot has no code location (%s)", s.Where)
	return nil
}

// enterSlot makes slot i current and loads its pointer.
func (vm *VM) enterSlot(i int) {
	vm.current = i
	s := &vm.slots[i]
	if s.code == nil {
		s.code = vm.loadSlotCode(s)
	}
	vm.script = s.code
	vm.pc = s.Offset
}

// updateScriptPtr saves the executing slot's pointer.
func (vm *VM) updateScriptPtr() {
	if vm.current == noSlot {
		return
	}
	vm.slots[vm.current].Offset = vm.pc
}

func (vm *VM) initializeLocals(slot int, args []int32) {
	locals := vm.slots[slot].Locals
	clear(locals)
	copy(locals, args)
}

// RunScript starts global or local script n and runs it until it yields.
func (vm *VM) RunScript(n int, freezeResistant, recursive bool, args []int32) error {
	var err error
	func() {
		defer vm.recoverFault(&err)
		vm.runScript(n, freezeResistant, recursive, args)
	}()
	return err
}

func (vm *VM) runScript(n int, freezeResistant, recursive bool, args []int32) {
	if n == 0 {
		return
	}
	if !recursive {
		vm.stopScript(n)
	}

	where := WhereGlobal
	if n >= vm.cfg.NumGlobalScripts {
		where = WhereLocal
		if vm.room == nil || vm.room.LocalScripts[n] == nil {
			vm.faultf(ErrorResourceNotFound, "local script %d is not in room %d", n, vm.roomID)
		}
	}

	slot := vm.getScriptSlot()
	s := &vm.slots[slot]
	s.Number = n
	s.Offset = 0
	s.Status = StatusRunning
	s.Where = where
	s.FreezeResistant = freezeResistant
	s.Recursive = recursive
	s.FreezeCount = 0
	s.Delay = 0
	s.Cycle = 1
	s.code = nil
	vm.initializeLocals(slot, args)

	vm.log.Debug("Script started", "script", n, "slot", slot, "where", where.String())
	vm.runScriptNested(slot)
}

// runObjectScript starts an object's verb entry.
func (vm *VM) runObjectScript(object, entry int, freezeResistant, recursive bool, args []int32) {
	if object == 0 {
		return
	}
	if !recursive {
		vm.stopObjectScript(object)
	}

	where := vm.whereIsObject(object)
	if where == WhereNotFound {
		vm.log.Warn("Object script for missing object", "object", object, "verb", entry)
		return
	}
	code, offs, ok := vm.objectEntry(object, where, entry)
	if !ok {
		return
	}

	slot := vm.getScriptSlot()
	s := &vm.slots[slot]
	s.Number = object
	s.Offset = offs
	s.Status = StatusRunning
	s.Where = where
	s.FreezeResistant = freezeResistant
	s.Recursive = recursive
	s.FreezeCount = 0
	s.Delay = 0
	s.Cycle = 1
	s.code = code
	vm.initializeLocals(slot, args)
	vm.runScriptNested(slot)
}

// RunObjectScript starts object's verb entry and runs it until it yields.
func (vm *VM) RunObjectScript(object, verb int, args []int32) error {
	var err error
	func() {
		defer vm.recoverFault(&err)
		vm.runObjectScript(object, verb, false, false, args)
	}()
	return err
}

// runScriptNested runs slot now, then resumes the caller if it is still
// the same script and was not stopped or frozen meanwhile.
func (vm *VM) runScriptNested(slot int) {
	vm.updateScriptPtr()

	if len(vm.nest) >= vm.cfg.MaxNesting {
		vm.faultf(ErrorNestingOverflow, "too many nested scripts (%d)", len(vm.nest))
	}
	var n nestEntry
	if vm.current == noSlot {
		n = nestEntry{number: 0, where: WhereNotFound, slot: noSlot}
	} else {
		caller := &vm.slots[vm.current]
		n = nestEntry{number: caller.Number, where: caller.Where, slot: vm.current}
	}
	vm.nest = append(vm.nest, n)
	idx := len(vm.nest) - 1

	vm.enterSlot(slot)
	vm.executeScript()

	n = vm.nest[idx]
	vm.nest = vm.nest[:idx]

	if n.number != 0 && n.slot != noSlot {
		caller := &vm.slots[n.slot]
		if caller.Number == n.number && caller.Where == n.where &&
			caller.Status != StatusDead && caller.FreezeCount == 0 {
			vm.enterSlot(n.slot)
			return
		}
	}
	vm.current = noSlot
}

// breakHere yields the current slot until the next tick.
func (vm *VM) breakHere() {
	vm.updateScriptPtr()
	vm.current = noSlot
}

// stopScript kills every global/local slot running script n.
func (vm *VM) stopScript(n int) {
	if n == 0 {
		return
	}
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Number == n && s.Status != StatusDead && (s.Where == WhereGlobal || s.Where == WhereLocal) {
			if s.CutsceneOverride != 0 {
				vm.log.Warn("Script stopped with active cutscene override", "script", n, "slot", i)
			}
			vm.killSlot(i)
		}
	}
	for i := range vm.nest {
		e := &vm.nest[i]
		if e.number == n && (e.where == WhereGlobal || e.where == WhereLocal) {
			if e.slot != noSlot {
				vm.nukeArrays(e.slot)
			}
			e.number = 0
			e.slot = noSlot
			e.where = WhereNotFound
		}
	}
}

// stopObjectScript kills every slot running code of object.
func (vm *VM) stopObjectScript(object int) {
	if object == 0 {
		return
	}
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Number == object && s.Status != StatusDead &&
			(s.Where == WhereRoom || s.Where == WhereInventory || s.Where == WhereFLObject) {
			vm.killSlot(i)
		}
	}
	for i := range vm.nest {
		e := &vm.nest[i]
		if e.number == object && (e.where == WhereRoom || e.where == WhereInventory || e.where == WhereFLObject) {
			if e.slot != noSlot {
				vm.nukeArrays(e.slot)
			}
			e.number = 0
			e.slot = noSlot
			e.where = WhereNotFound
		}
	}
}

// stopObjectCode ends the executing slot.
func (vm *VM) stopObjectCode() {
	if vm.current == noSlot {
		return
	}
	s := &vm.slots[vm.current]
	if s.CutsceneOverride != 0 {
		vm.log.Warn("Script ended with active cutscene override", "script", s.Number)
	}
	vm.killSlot(vm.current)
}

func (vm *VM) killSlot(i int) {
	s := &vm.slots[i]
	s.Number = 0
	s.Status = StatusDead
	s.code = nil
	s.CutsceneOverride = 0
	vm.nukeArrays(i)
	if vm.current == i {
		vm.current = noSlot
	}
}

// StopScript stops script n; safe to call from outside a step.
func (vm *VM) StopScript(n int) {
	vm.stopScript(n)
}

// IsScriptRunning reports whether a global/local script has a live slot.
func (vm *VM) IsScriptRunning(n int) bool {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Number == n && s.Status != StatusDead && (s.Where == WhereGlobal || s.Where == WhereLocal) {
			return true
		}
	}
	return false
}

// isScriptInUse counts any slot kind.
func (vm *VM) isScriptInUse(n int) bool {
	for i := range vm.slots {
		if vm.slots[i].Number == n && vm.slots[i].Status != StatusDead {
			return true
		}
	}
	return false
}

// isRoomScriptRunning reports a live slot for room or object code.
func (vm *VM) isRoomScriptRunning(object int) bool {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Number == object && s.Status != StatusDead && (s.Where == WhereRoom || s.Where == WhereFLObject) {
			return true
		}
	}
	return false
}

// FreezeScripts freezes every live slot except the current one.
// Freeze-resistant slots are skipped unless flag >= 0x80.
func (vm *VM) FreezeScripts(flag int) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if vm.current != i && s.Status != StatusDead && (!s.FreezeResistant || flag >= 0x80) {
			s.Status |= StatusFrozen
			s.FreezeCount++
		}
	}
	for i := range vm.sentences {
		vm.sentences[i].FreezeCount++
	}
	if c := vm.cutscenes.scriptIndex; c != noSlot {
		vm.slots[c].Status &^= StatusFrozen
		vm.slots[c].FreezeCount = 0
	}
}

// UnfreezeScripts undoes one level of freezing.
func (vm *VM) UnfreezeScripts() {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Status&StatusFrozen != 0 {
			if s.FreezeCount > 0 {
				s.FreezeCount--
			}
			if s.FreezeCount == 0 {
				s.Status &^= StatusFrozen
			}
		}
	}
	for i := range vm.sentences {
		if vm.sentences[i].FreezeCount > 0 {
			vm.sentences[i].FreezeCount--
		}
	}
	if c := vm.cutscenes.scriptIndex; c != noSlot {
		vm.slots[c].Status &^= StatusFrozen
		vm.slots[c].FreezeCount = 0
	}
}

// DecreaseScriptDelay counts paused slots down and wakes them.
func (vm *VM) DecreaseScriptDelay(amount int) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Status == StatusPaused {
			s.Delay -= int32(amount)
			if s.Delay < 0 {
				s.Status = StatusRunning
				s.Delay = 0
			}
		}
	}
}

// delayScript pauses the current slot for n ticks.
func (vm *VM) delayScript(n int32) {
	s := &vm.slots[vm.current]
	s.Delay = n
	s.Status = StatusPaused
	vm.breakHere()
}

// RunAllScripts gives every running slot one turn, in slot order.
// A slot started and run nested during this pass is not visited again.
func (vm *VM) RunAllScripts() (err error) {
	for i := range vm.slots {
		vm.slots[i].DidExec = false
	}
	vm.current = noSlot

	defer vm.recoverFault(&err)
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Cycle <= 1 && s.Running() && !s.DidExec {
			vm.enterSlot(i)
			vm.executeScript()
		}
	}
	return nil
}
