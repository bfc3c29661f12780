package vm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestArrays_DefineReadWrite(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	err := vm.Access(func() {
		a := vm.defineArray(100, ArrayInt, 2, 3)
		if a.Dim1 != 4 || a.Dim2 != 3 || a.Len() != 12 {
			t.Errorf("dims = %dx%d len %d", a.Dim2, a.Dim1, a.Len())
		}
		if vm.readVar(100) != int32(a.ID) {
			t.Error("variable does not hold the array id")
		}
		vm.writeArray(100, 2, 3, 1234)
		if got := vm.readArray(100, 2, 3); got != 1234 {
			t.Errorf("element = %d", got)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestArrays_ElementWidth(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	err := vm.Access(func() {
		vm.defineArray(100, ArrayInt, 0, 1)
		vm.writeArray(100, 0, 0, 70000)
		if got := vm.readArray(100, 0, 0); got != 4464 {
			t.Errorf("int element kept %d, want 16-bit 4464", got)
		}
		vm.defineArray(101, ArrayByte, 0, 1)
		vm.writeArray(101, 0, 0, 300)
		if got := vm.readArray(101, 0, 0); got != 44 {
			t.Errorf("byte element kept %d", got)
		}
		// bit and nibble arrays are stored as bytes
		if a := vm.defineArray(102, ArrayNibble, 0, 1); a.Type != ArrayByte {
			t.Errorf("nibble array type = %s", a.Type)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	wide := newTestVM(t, 8, nil)
	err = wide.Access(func() {
		wide.defineArray(100, ArrayInt, 0, 1)
		wide.writeArray(100, 0, 0, 70000)
		if got := wide.readArray(100, 0, 0); got != 70000 {
			t.Errorf("v8 int element = %d", got)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestArrays_Faults(t *testing.T) {
	vm := newTestVM(t, 6, nil)

	err := vm.Access(func() {
		vm.defineArray(100, ArrayInt, 0, 3)
		vm.readArray(100, 0, 4)
	})
	re := mustErrorType(t, err, ErrorArrayBounds)
	if re.Variable != 100 {
		t.Errorf("Variable = %d", re.Variable)
	}

	err = vm.Access(func() { vm.readArray(100, 1, 0) })
	mustErrorType(t, err, ErrorArrayBounds)

	err = vm.Access(func() { vm.readArray(150, 0, 0) })
	mustErrorType(t, err, ErrorInvalidArray)

	err = vm.Access(func() { vm.defineArray(varBit|3, ArrayInt, 0, 1) })
	mustErrorType(t, err, ErrorInvalidArray)
}

func TestArrays_RedefineAndNuke(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	err := vm.Access(func() {
		first := vm.defineArray(100, ArrayInt, 0, 3)
		second := vm.defineArray(100, ArrayString, 0, 5)
		if len(vm.arrays) != 1 || vm.arrays[second.ID] != second {
			t.Errorf("redefine kept the old array (first id %d)", first.ID)
		}
		vm.nukeArray(100)
		if len(vm.arrays) != 0 || vm.readVar(100) != 0 {
			t.Error("nuke left the array behind")
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

// TestProperty04_ArrayElementRoundTrip は範囲内の要素が書いた値を保持することを確認する
func TestProperty04_ArrayElementRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	vm := newTestVM(t, 8, nil)
	if err := vm.Access(func() { vm.defineArray(100, ArrayDword, 7, 15) }); err != nil {
		t.Fatal(err)
	}

	properties.Property("element (idx, base) keeps its value", prop.ForAll(
		func(idx, base int, v int32) bool {
			var got int32
			err := vm.Access(func() {
				vm.writeArray(100, idx, base, v)
				got = vm.readArray(100, idx, base)
			})
			return err == nil && got == v
		},
		gen.IntRange(0, 7),
		gen.IntRange(0, 15),
		gen.Int32(),
	))

	properties.Property("writes outside the bounds fault", prop.ForAll(
		func(idx, base int) bool {
			err := vm.Access(func() { vm.writeArray(100, idx, base, 1) })
			return IsErrorType(err, ErrorArrayBounds)
		},
		gen.IntRange(8, 40),
		gen.IntRange(0, 40),
	))

	properties.Property("negative offsets fault", prop.ForAll(
		func(base int) bool {
			err := vm.Access(func() { vm.readArray(100, 0, base) })
			return IsErrorType(err, ErrorArrayBounds)
		},
		gen.IntRange(-40, -1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestArrays_FlatOffsetBounds(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	err := vm.Access(func() {
		// 2 rows of 3
		a := vm.defineArray(100, ArrayInt, 1, 2)
		if a.Dim1 != 3 || a.Dim2 != 2 {
			t.Fatalf("dims = %dx%d", a.Dim2, a.Dim1)
		}
		// (0,4) runs past row 0 and lands on (1,1)
		vm.writeArray(100, 0, 4, 77)
		if got := vm.readArray(100, 1, 1); got != 77 {
			t.Errorf("element (1,1) = %d", got)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, ix := range [][2]int{{0, 6}, {2, 0}, {1, 3}, {0, -1}} {
		err := vm.Access(func() { vm.writeArray(100, ix[0], ix[1], 1) })
		if !IsErrorType(err, ErrorArrayBounds) {
			t.Errorf("writeArray(%d, %d) = %v", ix[0], ix[1], err)
		}
	}
}
