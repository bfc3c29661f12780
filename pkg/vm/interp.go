package vm

import (
	"encoding/binary"
	"fmt"
)

// Arg tells the generic operand puller how to fetch one operand.
type Arg uint8

const (
	// ArgPop pops one value from the stack (v6+).
	ArgPop Arg = iota
	// ArgPopList pops a count and that many values (v6+).
	ArgPopList
	// ArgByte reads an inline byte.
	ArgByte
	// ArgWord reads an inline signed word (dword in v8).
	ArgWord
	// ArgVarRef reads an inline variable address (word, dword in v8).
	ArgVarRef
	// ArgP8 reads a byte or, if the next parameter bit of the opcode is set, a variable.
	ArgP8
	// ArgP16 reads a word or, if the next parameter bit of the opcode is set, a variable.
	ArgP16
	// ArgResult reads the result variable address (v3-v5).
	ArgResult
	// ArgString reads an inline zero- or 0xFF-escaped message.
	ArgString
	// ArgVarargs reads a v5 0xFF-terminated list of P16 values.
	ArgVarargs
	// ArgVar reads an inline variable address and yields its value (v3-v5).
	ArgVar
)

// opcode is one dispatch table entry.
type opcode struct {
	name string
	args []Arg
	exec func(vm *VM, op *Operands)
}

// Operands are the fetched operands of one instruction, in declaration order.
type Operands struct {
	vals   [8]int32
	n      int
	list   []int32
	str    []byte
	opcode byte
}

// I returns operand i as an int.
func (o *Operands) I(i int) int {
	return int(o.vals[i])
}

// V returns operand i.
func (o *Operands) V(i int) int32 {
	return o.vals[i]
}

// List returns the list operand.
func (o *Operands) List() []int32 {
	return o.list
}

// Op returns the opcode byte the instruction started with.
func (o *Operands) Op() byte {
	return o.opcode
}

// Str returns the message operand.
func (o *Operands) Str() []byte {
	return o.str
}

// op builds a table entry.
func op(name string, exec func(vm *VM, op *Operands), args ...Arg) *opcode {
	return &opcode{name: name, args: args, exec: exec}
}

// paramBits are the v3-v5 operand-is-variable flags, in operand order.
var paramBits = [3]byte{0x80, 0x40, 0x20}

// pullOperands fetches operands for the current instruction.
func (vm *VM) pullOperands(o *opcode, ops *Operands) {
	*ops = Operands{n: len(o.args), opcode: vm.opcode}
	if vm.cfg.StackBased() {
		// inline operands come from the stream in order; the last
		// declared stack operand is on top of the stack
		for i, a := range o.args {
			if a != ArgPop && a != ArgPopList {
				vm.pullInlineArg(a, i, ops)
			}
		}
		for i := len(o.args) - 1; i >= 0; i-- {
			vm.pullStackArg(o.args[i], i, ops)
		}
		return
	}
	param := 0
	for i, a := range o.args {
		switch a {
		case ArgP8:
			ops.vals[i] = vm.getVarOrDirectByte(paramBits[param])
			param++
		case ArgP16:
			ops.vals[i] = vm.getVarOrDirectWord(paramBits[param])
			param++
		case ArgResult:
			vm.getResultPos()
		case ArgVarargs:
			ops.list = vm.getWordVararg()
		case ArgVar:
			ops.vals[i] = vm.getVar()
		default:
			vm.pullInlineArg(a, i, ops)
		}
	}
}

func (vm *VM) pullStackArg(a Arg, i int, ops *Operands) {
	switch a {
	case ArgPop:
		ops.vals[i] = vm.pop()
	case ArgPopList:
		ops.list = vm.popList()
	}
}

func (vm *VM) pullInlineArg(a Arg, i int, ops *Operands) {
	switch a {
	case ArgByte:
		ops.vals[i] = int32(vm.fetchByte())
	case ArgWord:
		ops.vals[i] = vm.fetchWordSigned()
	case ArgVarRef:
		ops.vals[i] = int32(vm.fetchVarRef())
	case ArgString:
		ops.str = vm.fetchMessage()
	default:
		vm.faultf(ErrorNotImplemented, "operand kind %d in this dialect", a)
	}
}

// --- script stream ---

func (vm *VM) fetchByte() byte {
	if vm.pc >= len(vm.script) {
		vm.faultf(ErrorEndOfScript, "read past end of script (%d bytes)", len(vm.script))
	}
	b := vm.script[vm.pc]
	vm.pc++
	return b
}

func (vm *VM) fetchWord() uint16 {
	if vm.pc+2 > len(vm.script) {
		vm.faultf(ErrorEndOfScript, "read past end of script (%d bytes)", len(vm.script))
	}
	w := binary.LittleEndian.Uint16(vm.script[vm.pc:])
	vm.pc += 2
	return w
}

func (vm *VM) fetchDWord() uint32 {
	if vm.pc+4 > len(vm.script) {
		vm.faultf(ErrorEndOfScript, "read past end of script (%d bytes)", len(vm.script))
	}
	d := binary.LittleEndian.Uint32(vm.script[vm.pc:])
	vm.pc += 4
	return d
}

// fetchWordSigned reads the dialect's inline word: int16, or int32 in v8.
func (vm *VM) fetchWordSigned() int32 {
	if vm.cfg.WideVars() {
		return int32(vm.fetchDWord())
	}
	return int32(int16(vm.fetchWord()))
}

// fetchVarRef reads an inline variable address.
func (vm *VM) fetchVarRef() int {
	if vm.cfg.WideVars() {
		return int(vm.fetchDWord())
	}
	return int(vm.fetchWord())
}

// fetchMessage returns the inline message and advances past it. Escape
// payloads are skipped whole so their bytes never end the message.
func (vm *VM) fetchMessage() []byte {
	start := vm.pc
	for {
		b := vm.fetchByte()
		if b == 0 {
			break
		}
		if b != 0xFF {
			continue
		}
		if code := vm.fetchByte(); !passThroughEscape(code) {
			vm.pc += vm.escapeParamSize()
		}
	}
	return vm.script[start : vm.pc-1]
}

// escapeParamSize is the payload width of a message escape.
func (vm *VM) escapeParamSize() int {
	if vm.cfg.WideVars() {
		return 4
	}
	return 2
}

// jumpRelative applies a signed word offset.
func (vm *VM) jumpRelative(off int32) {
	vm.pc += int(off)
	if vm.pc < 0 || vm.pc > len(vm.script) {
		vm.faultf(ErrorEndOfScript, "jump to 0x%X outside script", vm.pc)
	}
}

// --- faults ---

// fault aborts the current step.
func (vm *VM) fault(e *RuntimeError) {
	panic(e)
}

func (vm *VM) faultf(t ErrorType, format string, args ...any) {
	vm.fault(NewRuntimeError(t, fmt.Sprintf(format, args...)))
}

// resourceFault aborts on a resource that cannot be loaded.
func (vm *VM) resourceFault(kind string, id int, err error) {
	e := NewRuntimeError(ErrorResourceNotFound, fmt.Sprintf("%s %d", kind, id))
	e.Err = err
	vm.fault(e)
}

// unsupported aborts on an unported sub-opcode.
func (vm *VM) unsupported(name string, sub int) {
	vm.fault(NewUnsupportedSubOpcodeError(name, vm.opcode, sub))
}

// recoverFault turns an interpreter fault into an error, filling in
// where it happened. Other panics propagate.
func (vm *VM) recoverFault(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	re, ok := r.(*RuntimeError)
	if !ok {
		panic(r)
	}
	if re.Opcode < 0 && vm.current != noSlot {
		re.Opcode = int(vm.opcode)
	}
	if vm.current != noSlot {
		re.Script = vm.slots[vm.current].Number
		re.Offset = vm.pc
	}
	vm.log.Error("Script fault", "error", re)
	vm.current = noSlot
	*errp = re
}

// --- execution ---

// executeScript runs the current slot until it yields or stops.
func (vm *VM) executeScript() {
	for vm.current != noSlot {
		vm.opcode = vm.fetchByte()
		vm.slots[vm.current].DidExec = true
		vm.executeOpcode(vm.opcode)
	}
}

func (vm *VM) executeOpcode(b byte) {
	o := vm.cfg.table[b]
	if o == nil {
		vm.fault(NewUnsupportedOpcodeError(vm.cfg.Version, b))
	}
	var ops Operands
	vm.pullOperands(o, &ops)
	o.exec(vm, &ops)
}

// OpcodeName returns the mnemonic for an opcode byte, "" if unassigned.
func (vm *VM) OpcodeName(b byte) string {
	if o := vm.cfg.table[b]; o != nil {
		return o.name
	}
	return ""
}

// --- v3-v5 operand helpers ---

func (vm *VM) getVar() int32 {
	return vm.readVar(int(vm.fetchWord()))
}

func (vm *VM) getVarOrDirectByte(mask byte) int32 {
	if vm.opcode&mask != 0 {
		return vm.getVar()
	}
	return int32(vm.fetchByte())
}

func (vm *VM) getVarOrDirectWord(mask byte) int32 {
	if vm.opcode&mask != 0 {
		return vm.getVar()
	}
	return int32(int16(vm.fetchWord()))
}

func (vm *VM) getResultPos() {
	vm.resultVar = int(vm.fetchWord())
	if vm.resultVar&varIndirect != 0 {
		a := int(vm.fetchWord())
		if a&varIndirect != 0 {
			vm.resultVar += int(vm.readVar(a &^ varIndirect))
		} else {
			vm.resultVar += a & 0xFFF
		}
		vm.resultVar &^= varIndirect
	}
}

func (vm *VM) setResult(v int32) {
	vm.writeVar(vm.resultVar, v)
}

// getWordVararg reads P16 values, each behind its own parameter byte,
// up to a 0xFF terminator.
func (vm *VM) getWordVararg() []int32 {
	saved := vm.opcode
	defer func() { vm.opcode = saved }()
	var args []int32
	for {
		vm.opcode = vm.fetchByte()
		if vm.opcode == 0xFF {
			return args
		}
		args = append(args, vm.getVarOrDirectWord(0x80))
	}
}

// --- v6+ value stack ---

func (vm *VM) push(v int32) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() int32 {
	if len(vm.stack) == 0 {
		vm.faultf(ErrorVariableRange, "value stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// popList pops a count then that many values, returned in push order.
func (vm *VM) popList() []int32 {
	n := int(vm.pop())
	if n < 0 || n > len(vm.stack) || n > 64 {
		vm.faultf(ErrorVariableRange, "bad argument list length %d", n)
	}
	list := make([]int32, n)
	for i := n - 1; i >= 0; i-- {
		list[i] = vm.pop()
	}
	return list
}
