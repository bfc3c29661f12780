package vm

// cutsceneStack holds nested cutscene frames. Level 0 is the base;
// beginCutscene pushes from 1.
type cutsceneStack struct {
	sp          int
	data        []int32
	script      []int
	ptr         []int
	scriptIndex int
}

func newCutsceneStack(n int) cutsceneStack {
	return cutsceneStack{
		data:        make([]int32, n),
		script:      make([]int, n),
		ptr:         make([]int, n),
		scriptIndex: noSlot,
	}
}

// CutsceneDepth returns the number of open cutscenes.
func (vm *VM) CutsceneDepth() int {
	return vm.cutscenes.sp
}

// beginCutscene opens a cutscene frame and runs the start script with args.
func (vm *VM) beginCutscene(args []int32) {
	c := &vm.cutscenes
	if c.sp+1 >= len(c.data) {
		vm.faultf(ErrorCutsceneOverflow, "cutscene stack overflow (%d levels)", len(c.data)-1)
	}
	scr := vm.current
	vm.slots[scr].CutsceneOverride++

	c.sp++
	c.data[c.sp] = 0
	if len(args) > 0 {
		c.data[c.sp] = args[0]
	}
	c.script[c.sp] = 0
	c.ptr[c.sp] = 0

	c.scriptIndex = scr
	if n := vm.engineVar(vm.cfg.Vars.CutsceneStartScript); n != 0 {
		vm.runScript(int(n), false, false, args)
	}
	c.scriptIndex = noSlot
}

// endCutscene closes the innermost cutscene and runs the end script with
// the value the cutscene was opened with.
func (vm *VM) endCutscene() {
	c := &vm.cutscenes
	if c.sp == 0 {
		vm.faultf(ErrorCutsceneOverflow, "cutscene stack underflow")
	}
	s := &vm.slots[vm.current]
	if s.CutsceneOverride > 0 {
		s.CutsceneOverride--
	}

	args := []int32{c.data[c.sp]}
	vm.setEngineVar(vm.cfg.Vars.Override, 0)

	if c.ptr[c.sp] != 0 && s.CutsceneOverride > 0 {
		s.CutsceneOverride--
	}
	c.script[c.sp] = 0
	c.ptr[c.sp] = 0
	c.sp--

	if n := vm.engineVar(vm.cfg.Vars.CutsceneEndScript); n != 0 {
		vm.runScript(int(n), false, false, args)
	}
}

// AbortCutscene resumes the innermost cutscene's script at its override
// point, as when the player presses the skip key.
func (vm *VM) AbortCutscene() {
	c := &vm.cutscenes
	offs := c.ptr[c.sp]
	if offs == 0 {
		return
	}
	s := &vm.slots[c.script[c.sp]]
	s.Offset = offs
	s.Status = StatusRunning
	s.Delay = 0
	if s.CutsceneOverride > 0 {
		s.CutsceneOverride--
	}
	vm.setEngineVar(vm.cfg.Vars.Override, 1)
	c.ptr[c.sp] = 0
}

// beginOverride records the abort point at the jump that follows.
func (vm *VM) beginOverride() {
	c := &vm.cutscenes
	c.ptr[c.sp] = vm.pc
	c.script[c.sp] = vm.current

	// the jump itself is skipped; an abort lands on it
	vm.fetchByte()
	vm.fetchWord()
	if vm.cfg.WideVars() {
		vm.fetchWord()
	}
	vm.setEngineVar(vm.cfg.Vars.Override, 0)
}

func (vm *VM) endOverride() {
	c := &vm.cutscenes
	c.ptr[c.sp] = 0
	c.script[c.sp] = 0
	vm.setEngineVar(vm.cfg.Vars.Override, 0)
}
