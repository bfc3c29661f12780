package vm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestV6_StackArithmetic(t *testing.T) {
	scripts := map[int][]byte{
		1: code(
			pushW(7), pushW(5), b(0x14), writeW(100), // add
			pushW(7), pushW(5), b(0x15), writeW(101), // sub: deeper minus top
			pushW(-9), pushW(2), b(0x17), writeW(102), // div
			pushW(3), pushW(3), b(0x0E), writeW(103), // eq
			pushW(2), pushW(3), b(0x10), writeW(104), // gt
			stopV6,
		),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	want := map[int]int32{100: 12, 101: 2, 102: -4, 103: 1, 104: 0}
	for n, w := range want {
		if got := vm.Var(n); got != w {
			t.Errorf("var %d = %d, want %d", n, got, w)
		}
	}
	if len(vm.stack) != 0 {
		t.Errorf("stack not balanced: %v", vm.stack)
	}
}

func TestV6_IfAndIfNot(t *testing.T) {
	// ifNot 0 jumps over "var101 = 1"; if 0 does not jump
	scripts := map[int][]byte{
		1: code(
			pushW(0), b(0x5D), w16(6), setW(101, 1),
			pushW(0), b(0x5C), w16(6), setW(102, 1),
			pushW(1), b(0x5C), w16(6), setW(103, 1),
			stopV6,
		),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if vm.Var(101) != 0 {
		t.Error("ifNot 0 did not jump")
	}
	if vm.Var(102) != 1 {
		t.Error("if 0 jumped")
	}
	if vm.Var(103) != 0 {
		t.Error("if 1 did not jump")
	}
}

func TestV6_DivideByZero(t *testing.T) {
	vm := newTestVM(t, 6, map[int][]byte{1: code(pushW(1), pushW(0), b(0x17), writeW(100), stopV6)})
	mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorDivisionByZero)
}

func TestV6_PrintEgo(t *testing.T) {
	// var 100 is spliced into the line; its address holds a zero byte
	msg := code([]byte("n="), b(0xFF, escInt), w16(100), b(0))
	scripts := map[int][]byte{
		1: code(b(0xB9, 0xFE), b(0xB9, 75), msg, b(0xB9, 0xFF), setW(101, 1), stopV6),
	}
	sink := &recordingSink{}
	vm := newTestVM(t, 6, scripts, WithTextSink(sink))
	v := vm.Config().Vars
	if err := vm.SetVar(v.Ego, 3); err != nil {
		t.Fatal(err)
	}
	if err := vm.SetVar(100, 7); err != nil {
		t.Fatal(err)
	}
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if len(sink.lines) != 1 {
		t.Fatalf("lines = %+v", sink.lines)
	}
	if sink.lines[0] != (shownText{actor: 3, text: "n=7"}) {
		t.Errorf("line = %+v", sink.lines[0])
	}
	if got := vm.Var(v.TalkActor); got != 3 {
		t.Errorf("talk actor = %d", got)
	}
	if got := vm.Var(v.HaveMsg); got != 0xFF {
		t.Errorf("have-message = %d", got)
	}
	if vm.Var(101) != 1 {
		t.Error("script did not continue past the message")
	}
}

func TestV6_DelayFrames(t *testing.T) {
	scripts := map[int][]byte{
		1: code(pushW(3), b(0xCA), setW(100, 1), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	for pass := 1; pass <= 2; pass++ {
		if err := vm.RunAllScripts(); err != nil {
			t.Fatal(err)
		}
		if vm.Var(100) != 0 {
			t.Fatalf("script resumed after %d passes", pass)
		}
	}
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if vm.Var(100) != 1 {
		t.Error("script did not resume after three passes")
	}
}

// pickLoop deals one value from {10, 20, 30} into var 101 per pass.
func pickLoop() []byte {
	body := code(pushW(10), pushW(20), pushW(30), pushW(3), b(0xE3), w16(100), writeW(101), breakV6)
	return code(body, b(0x73), w16(-(len(body) + 3)))
}

// TestProperty03_PickVarRandomNeverRepeats は連続して同じ値が出ないことを確認する
func TestProperty03_PickVarRandomNeverRepeats(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("consecutive picks differ and come from the list", prop.ForAll(
		func(seed uint64) bool {
			vm := newTestVM(t, 6, map[int][]byte{1: pickLoop()}, WithSeed(seed))
			if err := vm.RunScript(1, false, false, nil); err != nil {
				return false
			}
			prev := vm.Var(101)
			seen := map[int32]int{prev: 1}
			for range 30 {
				if err := vm.RunAllScripts(); err != nil {
					return false
				}
				cur := vm.Var(101)
				if cur == prev {
					return false
				}
				seen[cur]++
				prev = cur
			}
			for v := range seen {
				if v != 10 && v != 20 && v != 30 {
					return false
				}
			}
			// the first deal hands out every value
			return len(seen) == 3
		},
		gen.UInt64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestV6_LocalArrayFreedWithSlot(t *testing.T) {
	// dim local0 as int[4], store 9 at 3, yield, stop
	scripts := map[int][]byte{
		1: code(
			pushW(4), b(0xBC, 199), w16(varLocal|0),
			pushW(3), pushW(9), b(0x47), w16(varLocal|0),
			pushW(2), b(0xBC, 199), w16(200),
			breakV6, stopV6,
		),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if len(vm.arrays) != 2 {
		t.Fatalf("arrays = %d, want 2", len(vm.arrays))
	}
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if len(vm.arrays) != 1 {
		t.Errorf("local array survived its slot: %d arrays", len(vm.arrays))
	}
	if vm.arrays[int(vm.Var(200))] == nil {
		t.Error("global array freed with the slot")
	}
}

func TestV6_OpcodeNames(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	for b, want := range map[byte]string{0x01: "pushWord", 0x5E: "startScript", 0x6C: "breakHere", 0x04: ""} {
		if got := vm.OpcodeName(b); got != want {
			t.Errorf("OpcodeName(0x%02X) = %q, want %q", b, got, want)
		}
	}
}
