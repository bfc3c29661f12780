package vm

import "fmt"

// Address tag bits for 16-bit variable numbers (v3 to v7).
const (
	varBit      = 0x8000
	varLocal    = 0x4000
	varIndirect = 0x2000
	varTagMask  = 0xF000
)

// Address tag bits for 32-bit variable numbers (v8).
const (
	varBit32     = 0x80000000
	varLocal32   = 0x40000000
	varTagMask32 = 0xF0000000
)

// compatRemap returns a variable number rewritten for one title's scripts.
// monkey2 reads and writes 490 where its engine kept the value at 518.
func (vm *VM) compatRemap(n int) int {
	if n == 490 && vm.cfg.GameID == "monkey2" {
		return 518
	}
	return n
}

// resolveIndirect applies one level of v3-v5 indirect addressing. The
// offset word is the next word of the script being executed.
func (vm *VM) resolveIndirect(addr int) int {
	if vm.cfg.Version > 5 || addr&varIndirect == 0 {
		return addr
	}
	a := int(vm.fetchWord())
	if a&varIndirect != 0 {
		addr += int(vm.readVar(a &^ varIndirect))
	} else {
		addr += a & 0xFFF
	}
	return addr &^ varIndirect
}

// readVar reads a variable by its tagged address.
func (vm *VM) readVar(addr int) int32 {
	if vm.cfg.WideVars() {
		return vm.readVar32(uint32(addr))
	}
	addr = vm.resolveIndirect(addr & 0xFFFF)

	if addr&varTagMask == 0 {
		n := vm.compatRemap(addr)
		vm.checkRange("global", n, len(vm.vars))
		return vm.vars[n]
	}
	if addr&varBit != 0 {
		n := addr & 0x7FFF
		return vm.readBit(n)
	}
	if addr&varLocal != 0 {
		n := vm.localIndex(addr)
		return vm.currentLocals()[n]
	}
	vm.faultf(ErrorIllegalVarBits, "illegal variable address 0x%04X (read)", addr)
	return 0
}

// writeVar writes a variable by its tagged address.
func (vm *VM) writeVar(addr int, value int32) {
	if vm.cfg.WideVars() {
		vm.writeVar32(uint32(addr), value)
		return
	}
	addr = vm.resolveIndirect(addr & 0xFFFF)

	if addr&varTagMask == 0 {
		n := vm.compatRemap(addr)
		vm.checkRange("global", n, len(vm.vars))
		vm.vars[n] = value
		return
	}
	if addr&varBit != 0 {
		vm.writeBit(addr&0x7FFF, value)
		return
	}
	if addr&varLocal != 0 {
		n := vm.localIndex(addr)
		vm.currentLocals()[n] = value
		return
	}
	vm.faultf(ErrorIllegalVarBits, "illegal variable address 0x%04X (write)", addr)
}

func (vm *VM) readVar32(addr uint32) int32 {
	switch {
	case addr&varTagMask32 == 0:
		n := vm.compatRemap(int(addr))
		vm.checkRange("global", n, len(vm.vars))
		return vm.vars[n]
	case addr&varBit32 != 0:
		return vm.readBit(int(addr &^ varBit32))
	case addr&varLocal32 != 0:
		n := int(addr & 0x0FFFFFFF)
		vm.checkRange("local", n, vm.cfg.NumLocals)
		return vm.currentLocals()[n]
	}
	vm.faultf(ErrorIllegalVarBits, "illegal variable address 0x%08X (read)", addr)
	return 0
}

func (vm *VM) writeVar32(addr uint32, value int32) {
	switch {
	case addr&varTagMask32 == 0:
		n := vm.compatRemap(int(addr))
		vm.checkRange("global", n, len(vm.vars))
		vm.vars[n] = value
	case addr&varBit32 != 0:
		vm.writeBit(int(addr&^varBit32), value)
	case addr&varLocal32 != 0:
		n := int(addr & 0x0FFFFFFF)
		vm.checkRange("local", n, vm.cfg.NumLocals)
		vm.currentLocals()[n] = value
	default:
		vm.faultf(ErrorIllegalVarBits, "illegal variable address 0x%08X (write)", addr)
	}
}

func (vm *VM) localIndex(addr int) int {
	n := addr & 0xFFF
	if vm.cfg.FewLocals {
		n = addr & 0xF
	}
	vm.checkRange("local", n, vm.cfg.NumLocals)
	return n
}

func (vm *VM) readBit(n int) int32 {
	vm.checkRange("bit", n, vm.cfg.NumBitVariables)
	if vm.bitVars[n>>3]&(1<<(n&7)) != 0 {
		return 1
	}
	return 0
}

func (vm *VM) writeBit(n int, value int32) {
	vm.checkRange("bit", n, vm.cfg.NumBitVariables)
	if value != 0 {
		vm.bitVars[n>>3] |= 1 << (n & 7)
	} else {
		vm.bitVars[n>>3] &^= 1 << (n & 7)
	}
}

// currentLocals returns the executing slot's locals. Outside any script
// there is nothing to address.
func (vm *VM) currentLocals() []int32 {
	if vm.current == noSlot {
		vm.faultf(ErrorVariableRange, "local variable accessed with no script running")
	}
	return vm.slots[vm.current].Locals
}

func (vm *VM) checkRange(space string, n, limit int) {
	if n < 0 || n >= limit {
		panic(NewVariableRangeError(space, n, limit))
	}
}

// Var reads a plain global variable; for callers outside the interpreter.
func (vm *VM) Var(n int) int32 {
	if n < 0 || n >= len(vm.vars) {
		return 0
	}
	return vm.vars[n]
}

// SetVar writes a plain global variable; for callers outside the interpreter.
func (vm *VM) SetVar(n int, v int32) error {
	if n < 0 || n >= len(vm.vars) {
		return NewVariableRangeError("global", n, len(vm.vars))
	}
	vm.vars[n] = v
	return nil
}

// ReadVariable reads a variable by its tagged address. Indirect addresses
// need a running script to supply the offset word.
func (vm *VM) ReadVariable(addr int) (v int32, err error) {
	err = vm.Access(func() { v = vm.readVar(addr) })
	return v, err
}

// WriteVariable writes a variable by its tagged address.
func (vm *VM) WriteVariable(addr int, value int32) error {
	return vm.Access(func() { vm.writeVar(addr, value) })
}

// Access runs fn with faults converted to errors. It lets tests and
// tools use the store outside a script step.
func (vm *VM) Access(fn func()) (err error) {
	defer vm.recoverFault(&err)
	fn()
	return nil
}

func varName(addr int) string {
	switch {
	case addr&varBit != 0:
		return fmt.Sprintf("bit[%d]", addr&0x7FFF)
	case addr&varLocal != 0:
		return fmt.Sprintf("local[%d]", addr&0xFFF)
	default:
		return fmt.Sprintf("var[%d]", addr)
	}
}
