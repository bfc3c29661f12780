package vm

import (
	"errors"
	"io/fs"
	"testing"
)

func TestScheduler_NestedScriptRunsImmediately(t *testing.T) {
	scripts := map[int][]byte{
		1: code(startScriptV6(0, 2, 42), setW(101, 9), stopV6),
		2: code(pushVar(varLocal|0), writeW(100), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if got := vm.Var(100); got != 42 {
		t.Errorf("callee did not see its argument: var 100 = %d", got)
	}
	if got := vm.Var(101); got != 9 {
		t.Errorf("caller did not resume: var 101 = %d", got)
	}
	if len(vm.Slots()) != 0 {
		t.Errorf("slots still live: %+v", vm.Slots())
	}
}

func TestScheduler_BreakHereResumesNextPass(t *testing.T) {
	scripts := map[int][]byte{
		1: code(setW(100, 1), breakV6, setW(100, 2), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if got := vm.Var(100); got != 1 {
		t.Fatalf("var 100 = %d before yield", got)
	}
	if !vm.IsScriptRunning(1) {
		t.Fatal("script 1 should still be live after breakHere")
	}
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if got := vm.Var(100); got != 2 {
		t.Errorf("var 100 = %d after resume", got)
	}
	if vm.IsScriptRunning(1) {
		t.Error("script 1 still live after stopObjectCode")
	}
}

func TestScheduler_CallerResumesWhenCalleeYields(t *testing.T) {
	scripts := map[int][]byte{
		1: code(startScriptV6(0, 2), setW(101, 9), stopV6),
		2: code(breakV6, setW(100, 5), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if vm.Var(101) != 9 || vm.Var(100) != 0 {
		t.Fatalf("after start: var100=%d var101=%d", vm.Var(100), vm.Var(101))
	}
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if got := vm.Var(100); got != 5 {
		t.Errorf("callee did not finish: var 100 = %d", got)
	}
}

func TestScheduler_RestartingStopsPreviousInstance(t *testing.T) {
	scripts := map[int][]byte{
		2: code(breakV6, stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	for range 3 {
		if err := vm.RunScript(2, false, false, nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(vm.Slots()); n != 1 {
		t.Errorf("non-recursive start left %d slots", n)
	}
	for range 2 {
		if err := vm.RunScript(2, false, true, nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(vm.Slots()); n != 3 {
		t.Errorf("recursive starts left %d slots, want 3", n)
	}
}

func TestScheduler_DelayAndWake(t *testing.T) {
	// delay 10 jiffies, then var100 = 1
	scripts := map[int][]byte{
		1: code(b(0x2E, 10, 0, 0), moveV5(100, 1), stopV5),
	}
	vm := newTestVM(t, 5, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	slots := vm.Slots()
	if len(slots) != 1 || slots[0].Status != StatusPaused {
		t.Fatalf("slots = %+v, want one paused", slots)
	}

	vm.DecreaseScriptDelay(10)
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if vm.Var(100) != 0 {
		t.Fatal("script woke before its delay ran out")
	}

	vm.DecreaseScriptDelay(1)
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if vm.Var(100) != 1 {
		t.Error("script did not wake")
	}
}

func TestScheduler_FreezeUnfreeze(t *testing.T) {
	scripts := map[int][]byte{
		1: code(breakV6, setW(100, 1), stopV6),
		2: code(breakV6, setW(101, 1), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	if err := vm.RunScript(2, true, false, nil); err != nil {
		t.Fatal(err)
	}

	t.Run("resistant slot keeps running", func(t *testing.T) {
		vm.FreezeScripts(1)
		if err := vm.RunAllScripts(); err != nil {
			t.Fatal(err)
		}
		if vm.Var(100) != 0 {
			t.Error("frozen script ran")
		}
		if vm.Var(101) != 1 {
			t.Error("freeze-resistant script did not run")
		}
	})

	t.Run("unfreeze releases", func(t *testing.T) {
		vm.UnfreezeScripts()
		if err := vm.RunAllScripts(); err != nil {
			t.Fatal(err)
		}
		if vm.Var(100) != 1 {
			t.Error("script did not run after unfreeze")
		}
	})
}

func TestScheduler_FreezeNests(t *testing.T) {
	scripts := map[int][]byte{
		1: code(breakV6, setW(100, 1), stopV6),
	}
	vm := newTestVM(t, 6, scripts)
	if err := vm.RunScript(1, false, false, nil); err != nil {
		t.Fatal(err)
	}
	vm.FreezeScripts(1)
	vm.FreezeScripts(0x80)
	vm.UnfreezeScripts()
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if vm.Var(100) != 0 {
		t.Fatal("one unfreeze released two freezes")
	}
	vm.UnfreezeScripts()
	if err := vm.RunAllScripts(); err != nil {
		t.Fatal(err)
	}
	if vm.Var(100) != 1 {
		t.Error("script still frozen")
	}
}

func TestScheduler_Faults(t *testing.T) {
	t.Run("unknown opcode", func(t *testing.T) {
		vm := newTestVM(t, 6, map[int][]byte{1: b(0x04)})
		re := mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorUnsupportedOpcode)
		if re.Opcode != 0x04 || re.Script != 1 {
			t.Errorf("fault location: %+v", re)
		}
		if len(vm.Slots()) != 1 {
			t.Error("faulting slot should be left in place")
		}
	})

	t.Run("unknown sub-opcode", func(t *testing.T) {
		vm := newTestVM(t, 6, map[int][]byte{1: b(0xB9, 0x01)})
		re := mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorUnsupportedSubOpcode)
		if re.Opcode != 0xB9 || re.SubOpcode != 0x01 {
			t.Errorf("fault location: %+v", re)
		}
	})

	t.Run("missing script", func(t *testing.T) {
		vm := newTestVM(t, 6, nil)
		err := vm.RunScript(7, false, false, nil)
		mustErrorType(t, err, ErrorResourceNotFound)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("cause lost: %v", err)
		}
	})

	t.Run("running off the end", func(t *testing.T) {
		vm := newTestVM(t, 6, map[int][]byte{1: pushW(1)})
		mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorEndOfScript)
	})

	t.Run("nesting overflow", func(t *testing.T) {
		// script 1 starts itself recursively forever
		vm := newTestVM(t, 6, map[int][]byte{1: code(startScriptV6(2, 1), stopV6)})
		mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorNestingOverflow)
	})

	t.Run("stack underflow", func(t *testing.T) {
		vm := newTestVM(t, 6, map[int][]byte{1: b(0x14)})
		mustErrorType(t, vm.RunScript(1, false, false, nil), ErrorVariableRange)
	})
}

// counterLoop adds one to var 100 and yields, forever.
func counterLoop() []byte {
	body := code(b(0x4F), w16(100), breakV6)
	return code(body, b(0x73), w16(-(len(body) + 3)))
}

// スクリプト実行中に起動されたスクリプトは同じパスで一度だけ実行される
func TestScheduler_StartedDuringPassRunsOncePerTick(t *testing.T) {
	tests := []struct {
		name    string
		scripts map[int][]byte
		start   []int
		slot    int
	}{
		{
			// B sits in slot 1, A lands in the higher slot 2
			name: "higher slot",
			scripts: map[int][]byte{
				1: code(breakV6, startScriptV6(0, 3), stopV6),
				3: counterLoop(),
			},
			start: []int{1},
			slot:  2,
		},
		{
			// C frees slot 1 earlier in the same pass, A reuses it behind B
			name: "lower freed slot",
			scripts: map[int][]byte{
				1: code(breakV6, stopV6),
				2: code(breakV6, startScriptV6(0, 3), stopV6),
				3: counterLoop(),
			},
			start: []int{1, 2},
			slot:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newTestVM(t, 6, tt.scripts)
			for _, n := range tt.start {
				if err := vm.RunScript(n, false, false, nil); err != nil {
					t.Fatal(err)
				}
			}
			for tick := 1; tick <= 4; tick++ {
				if err := vm.RunAllScripts(); err != nil {
					t.Fatal(err)
				}
				if got := vm.Var(100); got != int32(tick) {
					t.Fatalf("tick %d: var 100 = %d", tick, got)
				}
			}
			if s := vm.slots[tt.slot]; s.Number != 3 || s.Status == StatusDead {
				t.Errorf("script 3 not in slot %d: %+v", tt.slot, s)
			}
		})
	}
}
