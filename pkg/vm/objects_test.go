package vm

import (
	"image"
	"testing"

	"github.com/zurustar/scumm-et/pkg/resource"
)

// doorRoom holds a door (10), a knob shown while the door is open (11)
// and a keyhole on the knob shown while the knob is in state 0 (12).
func doorRoom() *resource.Room {
	r := corridorRoom(1)
	r.Objects = []*resource.Object{
		{ID: 10, X: 0, Y: 0, Width: 40, Height: 80},
		{ID: 11, Parent: 1, ParentState: 1, X: 10, Y: 10, Width: 10, Height: 10},
		{ID: 12, Parent: 2, ParentState: 0, X: 12, Y: 12, Width: 4, Height: 4},
	}
	return r
}

func TestFindObject_ParentState(t *testing.T) {
	tests := []struct {
		name       string
		doorState  int
		knobState  int
		x, y       int
		want       int
	}{
		{"closed door hides the knob", 0, 0, 15, 15, 10},
		{"open door shows the knob", 1, 1, 15, 15, 11},
		{"high state bits ignored", 0x11, 1, 15, 15, 11},
		{"keyhole needs the whole chain", 1, 0, 13, 13, 12},
		{"keyhole hidden by the knob", 1, 1, 13, 13, 11},
		{"keyhole hidden by the door", 0, 0, 13, 13, 10},
		{"outside every object", 1, 0, 100, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newRoomVM(t, 6, doorRoom())
			if err := vm.StartRoom(1); err != nil {
				t.Fatal(err)
			}
			access(t, vm, func() {
				vm.putState(10, tt.doorState)
				vm.putState(11, tt.knobState)
			})
			if got := vm.findObject(tt.x, tt.y); got != tt.want {
				t.Errorf("findObject(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestFindObject_ParentCycle(t *testing.T) {
	r := corridorRoom(1)
	r.Objects = []*resource.Object{
		{ID: 20, Parent: 2, X: 0, Y: 0, Width: 10, Height: 10},
		{ID: 21, Parent: 1, X: 0, Y: 0, Width: 10, Height: 10},
	}
	vm := newRoomVM(t, 6, r)
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	if got := vm.findObject(5, 5); got != 0 {
		t.Errorf("object with cyclic parents found: %d", got)
	}
}

type dirtyRecorder struct {
	NullDisplay
	rects []image.Rectangle
}

func (d *dirtyRecorder) MarkDirty(r image.Rectangle) { d.rects = append(d.rects, r) }

func TestDrawObject_HiddenChildNotRedrawn(t *testing.T) {
	disp := &dirtyRecorder{}
	vm := newTestVM(t, 6, nil, WithDisplay(disp))
	addRoom(t, vm, doorRoom())
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}

	access(t, vm, func() { vm.drawObject(11, 1) })
	if vm.GetState(11) != 1 {
		t.Errorf("state = %d", vm.GetState(11))
	}
	if len(disp.rects) != 0 {
		t.Errorf("hidden knob redrawn: %v", disp.rects)
	}

	access(t, vm, func() {
		vm.drawObject(10, 1)
		vm.drawObject(11, 1)
	})
	want := []image.Rectangle{image.Rect(0, 0, 40, 80), image.Rect(10, 10, 20, 20)}
	if len(disp.rects) != 2 || disp.rects[0] != want[0] || disp.rects[1] != want[1] {
		t.Errorf("dirty rects = %v, want %v", disp.rects, want)
	}
}
