package vm

import "fmt"

// ArrayType is the element type of a script array.
type ArrayType uint8

const (
	ArrayBit    ArrayType = 1
	ArrayNibble ArrayType = 2
	ArrayByte   ArrayType = 3
	ArrayString ArrayType = 4
	ArrayInt    ArrayType = 5
	ArrayDword  ArrayType = 6
)

func (t ArrayType) String() string {
	switch t {
	case ArrayBit:
		return "bit"
	case ArrayNibble:
		return "nibble"
	case ArrayByte:
		return "byte"
	case ArrayString:
		return "string"
	case ArrayInt:
		return "int"
	case ArrayDword:
		return "dword"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Array is a two-dimensional script array. Element (idx, base) lives at
// idx*Dim1+base.
type Array struct {
	ID   int
	Type ArrayType
	Dim1 int
	Dim2 int
	data []int32
	slot int
	wide bool
}

// Len returns the element count.
func (a *Array) Len() int {
	return len(a.data)
}

// Bytes returns the array as bytes, stopping at the first zero for strings.
func (a *Array) Bytes() []byte {
	out := make([]byte, 0, len(a.data))
	for _, v := range a.data {
		if a.Type == ArrayString && v == 0 {
			break
		}
		out = append(out, byte(v))
	}
	return out
}

func (a *Array) store(i int, v int32) {
	switch a.Type {
	case ArrayByte, ArrayString:
		v = int32(uint8(v))
	case ArrayInt:
		if !a.wide {
			v = int32(int16(v))
		}
	}
	a.data[i] = v
}

// checkArrayVar rejects addresses that cannot hold an array id.
func (vm *VM) checkArrayVar(v int) {
	bit := varBit
	if vm.cfg.WideVars() {
		bit = varBit32
	}
	if v&bit != 0 {
		vm.faultf(ErrorInvalidArray, "bit variable 0x%X used as array pointer", v)
	}
}

// defineArray allocates a (dim2+1) x (dim1+1) array and stores its id in
// variable v, replacing any array the variable held.
func (vm *VM) defineArray(v int, t ArrayType, dim2, dim1 int) *Array {
	vm.checkArrayVar(v)
	vm.nukeArray(v)

	if t == ArrayBit || t == ArrayNibble {
		t = ArrayByte
	}
	if dim1 < 0 || dim2 < 0 {
		vm.faultf(ErrorArrayBounds, "negative array dimension %dx%d", dim2, dim1)
	}

	id := vm.findFreeArrayID()
	a := &Array{
		ID:   id,
		Type: t,
		Dim1: dim1 + 1,
		Dim2: dim2 + 1,
		data: make([]int32, (dim1+1)*(dim2+1)),
		slot: noSlot,
		wide: vm.cfg.WideVars(),
	}
	if vm.isLocalAddr(v) && vm.current != noSlot {
		a.slot = vm.current
	}
	vm.arrays[id] = a
	vm.writeVar(v, int32(id))
	vm.log.Debug("Array defined", "var", varName(v), "id", id, "type", t.String(), "dim1", a.Dim1, "dim2", a.Dim2)
	return a
}

func (vm *VM) isLocalAddr(v int) bool {
	if vm.cfg.WideVars() {
		return v&varLocal32 != 0
	}
	return v&varLocal != 0
}

func (vm *VM) findFreeArrayID() int {
	for id := 1; id < vm.cfg.NumArrays; id++ {
		if _, ok := vm.arrays[id]; !ok {
			return id
		}
	}
	vm.faultf(ErrorInvalidArray, "out of array ids (%d)", vm.cfg.NumArrays)
	return 0
}

// getArray returns the array held by variable v, nil if it holds none.
func (vm *VM) getArray(v int) *Array {
	vm.checkArrayVar(v)
	id := int(vm.readVar(v))
	if id == 0 {
		return nil
	}
	return vm.arrays[id]
}

func (vm *VM) mustArray(v int) *Array {
	a := vm.getArray(v)
	if a == nil {
		vm.faultf(ErrorInvalidArray, "variable %s holds no array", varName(v))
	}
	return a
}

// arrayIndex returns the flat offset of (idx, base). Only the offset is
// bounds checked, so base may run past a row into the next one.
func (vm *VM) arrayIndex(a *Array, v, idx, base int) int {
	off := idx*a.Dim1 + base
	if off < 0 || off >= a.Len() {
		e := NewRuntimeError(ErrorArrayBounds,
			fmt.Sprintf("array %d (%s) index (%d,%d) outside %dx%d", a.ID, varName(v), idx, base, a.Dim2, a.Dim1))
		e.Variable = v
		vm.fault(e)
	}
	return off
}

// readArray reads element (idx, base) of the array held by variable v.
func (vm *VM) readArray(v, idx, base int) int32 {
	a := vm.mustArray(v)
	return a.data[vm.arrayIndex(a, v, idx, base)]
}

// writeArray writes element (idx, base) of the array held by variable v.
func (vm *VM) writeArray(v, idx, base int, value int32) {
	a := vm.mustArray(v)
	a.store(vm.arrayIndex(a, v, idx, base), value)
}

// nukeArray frees the array held by variable v and clears v.
func (vm *VM) nukeArray(v int) {
	id := int(vm.readVar(v))
	if id != 0 {
		delete(vm.arrays, id)
	}
	vm.writeVar(v, 0)
}

// nukeArrays frees arrays that were bound to a slot's locals.
func (vm *VM) nukeArrays(slot int) {
	for id, a := range vm.arrays {
		if a.slot == slot {
			delete(vm.arrays, id)
		}
	}
}

// copyToArray stores a zero-terminated string into a fresh string array.
func (vm *VM) copyToArray(v int, s []byte) {
	a := vm.defineArray(v, ArrayString, 0, len(s))
	for i, b := range s {
		a.data[i] = int32(b)
	}
}
