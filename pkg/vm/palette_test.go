package vm

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/scumm-et/pkg/resource"
)

// palette of n entries where entry i is (i, i, i)
func greyRamp(n int) []byte {
	p := make([]byte, 0, n*3)
	for i := range n {
		p = append(p, byte(i), byte(i), byte(i))
	}
	return p
}

func entries(p []byte) []byte {
	out := make([]byte, len(p)/3)
	for i := range out {
		out[i] = p[i*3]
	}
	return out
}

func TestCycleRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		forward    bool
		want       []byte
	}{
		{"forward", 1, 3, true, []byte{0, 3, 1, 2, 4}},
		{"backward", 1, 3, false, []byte{0, 2, 3, 1, 4}},
		{"whole palette", 0, 4, true, []byte{4, 0, 1, 2, 3}},
		{"empty range", 2, 2, true, []byte{0, 1, 2, 3, 4}},
		{"past the end", 3, 9, true, []byte{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := greyRamp(5)
			cycleRange(p, tt.start, tt.end, tt.forward)
			if got := entries(p); !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestProperty05_CycleRangeInverse は順方向と逆方向の回転が互いに打ち消すことを確認する
func TestProperty05_CycleRangeInverse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("forward then backward restores the palette", prop.ForAll(
		func(start, span int) bool {
			p := greyRamp(256)
			orig := bytes.Clone(p)
			end := start + span
			cycleRange(p, start, end, true)
			cycleRange(p, start, end, false)
			return bytes.Equal(p, orig)
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 55),
	))

	properties.Property("a full turn is the identity", prop.ForAll(
		func(start, span int) bool {
			p := greyRamp(256)
			orig := bytes.Clone(p)
			for range span + 1 {
				cycleRange(p, start, start+span, true)
			}
			return bytes.Equal(p, orig)
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 55),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

type paletteRecorder struct {
	NullDisplay
	sets int
}

func (p *paletteRecorder) SetPalette([]byte) { p.sets++ }

func TestCyclePalette_Timing(t *testing.T) {
	disp := &paletteRecorder{}
	vm := newTestVM(t, 6, nil, WithDisplay(disp))
	vm.palette = greyRamp(16)
	// rate 4096 gives a delay of 4 timer units
	vm.initCycles([]resource.Cycle{{Index: 1, Delay: 4096, Start: 2, End: 5}})
	v := vm.Config().Vars
	_ = vm.SetVar(v.Timer, 1)
	_ = vm.SetVar(v.TimerNext, 1)

	for range 3 {
		vm.cyclePalette()
	}
	if disp.sets != 0 {
		t.Fatalf("cycled before the delay: %d", disp.sets)
	}
	vm.cyclePalette()
	if disp.sets != 1 {
		t.Fatalf("sets = %d after the delay", disp.sets)
	}
	if got := entries(vm.palette)[2:6]; !bytes.Equal(got, []byte{5, 2, 3, 4}) {
		t.Errorf("range = %v", got)
	}

	vm.stopCycle(0)
	for range 8 {
		vm.cyclePalette()
	}
	if disp.sets != 1 {
		t.Error("stopped cycle kept running")
	}
}
