package vm

import (
	"github.com/zurustar/scumm-et/pkg/resource"
)

// ColorCycle rotates a palette range every Delay timer units.
type ColorCycle struct {
	Counter int
	Delay   int
	Flags   int
	Start   int
	End     int
}

const numCycles = 16

// initCycles builds the cycle table from a room's cycle list. The
// resource stores a rate; the table keeps 16384/rate.
func (vm *VM) initCycles(list []resource.Cycle) {
	vm.cycles = make([]ColorCycle, numCycles)
	for _, c := range list {
		if c.Index < 1 || c.Index > numCycles || c.Delay == 0 {
			continue
		}
		vm.cycles[c.Index-1] = ColorCycle{
			Delay: 16384 / c.Delay,
			Flags: c.Flags,
			Start: c.Start,
			End:   c.End,
		}
	}
}

// stopCycle stops one cycle (1-based) or all of them for 0.
func (vm *VM) stopCycle(i int) {
	if i != 0 {
		if i > 0 && i <= len(vm.cycles) {
			vm.cycles[i-1].Delay = 0
		}
		return
	}
	for j := range vm.cycles {
		vm.cycles[j].Delay = 0
	}
}

// cyclePalette advances every cycle by max(timer, timer_next) and rotates
// the ranges that came due.
func (vm *VM) cyclePalette() {
	add := int(vm.engineVar(vm.cfg.Vars.Timer))
	if n := int(vm.engineVar(vm.cfg.Vars.TimerNext)); add < n {
		add = n
	}
	changed := false
	for i := range vm.cycles {
		c := &vm.cycles[i]
		if c.Delay == 0 || c.Start > c.End {
			continue
		}
		c.Counter += add
		if c.Counter >= c.Delay {
			c.Counter %= c.Delay
			cycleRange(vm.palette, c.Start, c.End, c.Flags&2 == 0)
			changed = true
		}
	}
	if changed {
		vm.display.SetPalette(vm.palette)
	}
}

// cycleRange rotates RGB entries start..end by one. Forward moves each
// colour up one index and wraps the last to start.
func cycleRange(pal []byte, start, end int, forward bool) {
	if end*3+3 > len(pal) || start < 0 || start >= end {
		return
	}
	s, e := start*3, end*3
	var tmp [3]byte
	if forward {
		copy(tmp[:], pal[e:e+3])
		copy(pal[s+3:e+3], pal[s:e])
		copy(pal[s:s+3], tmp[:])
	} else {
		copy(tmp[:], pal[s:s+3])
		copy(pal[s:e], pal[s+3:e+3])
		copy(pal[e:e+3], tmp[:])
	}
}

// Palette returns the current RGB palette.
func (vm *VM) Palette() []byte {
	return vm.palette
}

// setPalColor changes one palette entry.
func (vm *VM) setPalColor(idx, r, g, b int) {
	if idx < 0 || idx*3+3 > len(vm.palette) {
		return
	}
	vm.palette[idx*3] = byte(r)
	vm.palette[idx*3+1] = byte(g)
	vm.palette[idx*3+2] = byte(b)
	vm.display.SetPalette(vm.palette)
}

// darkenPalette scales a palette range by per-channel percentages.
func (vm *VM) darkenPalette(rs, gs, bs, start, end int) {
	if vm.room == nil || len(vm.room.Palette) == 0 {
		return
	}
	for i := max(start, 0); i <= end && i*3+3 <= len(vm.palette) && i*3+3 <= len(vm.room.Palette); i++ {
		src := vm.room.Palette[i*3:]
		vm.palette[i*3] = byte(min(int(src[0])*rs/0xFF, 0xFF))
		vm.palette[i*3+1] = byte(min(int(src[1])*gs/0xFF, 0xFF))
		vm.palette[i*3+2] = byte(min(int(src[2])*bs/0xFF, 0xFF))
	}
	vm.display.SetPalette(vm.palette)
}

// swapPalColors exchanges two palette entries.
func (vm *VM) swapPalColors(a, b int) {
	if a < 0 || b < 0 || a*3+3 > len(vm.palette) || b*3+3 > len(vm.palette) {
		return
	}
	for i := range 3 {
		vm.palette[a*3+i], vm.palette[b*3+i] = vm.palette[b*3+i], vm.palette[a*3+i]
	}
	vm.display.SetPalette(vm.palette)
}

// copyPalColor copies palette entry from into dst.
func (vm *VM) copyPalColor(dst, from int) {
	if dst < 0 || from < 0 || dst*3+3 > len(vm.palette) || from*3+3 > len(vm.palette) {
		return
	}
	copy(vm.palette[dst*3:dst*3+3], vm.palette[from*3:from*3+3])
	vm.display.SetPalette(vm.palette)
}
