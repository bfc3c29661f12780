package vm

import (
	"bytes"
	"testing"

	"github.com/zurustar/scumm-et/pkg/costume"
	"github.com/zurustar/scumm-et/pkg/resource"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

func rectBox(x1, y1, x2, y2 int) walkbox.Box {
	b := walkbox.Box{Scale: 255}
	b.UL, b.UR = walkbox.Point{X: x1, Y: y1}, walkbox.Point{X: x2, Y: y1}
	b.LR, b.LL = walkbox.Point{X: x2, Y: y2}, walkbox.Point{X: x1, Y: y2}
	return b
}

// corridorRoom is 640 wide with three boxes in a row joined at x=160 and
// x=320. The entry script sets var 100, the exit script var 101.
func corridorRoom(id int) *resource.Room {
	return &resource.Room{
		ID:     id,
		Width:  640,
		Height: 200,
		Boxes: []walkbox.Box{
			rectBox(0, 100, 160, 140),
			rectBox(160, 100, 320, 140),
			rectBox(320, 100, 480, 140),
		},
		Scales:       []walkbox.ScaleSlot{{Scale1: 100, Y1: 100, Scale2: 200, Y2: 140}},
		EntryScript:  code(setW(100, id), stopV6),
		ExitScript:   code(setW(101, id), stopV6),
		LocalScripts: map[int][]byte{200: code(breakV6, stopV6)},
	}
}

func newRoomVM(t *testing.T, version int, rooms ...*resource.Room) *VM {
	t.Helper()
	vm := newTestVM(t, version, nil)
	for _, r := range rooms {
		addRoom(t, vm, r)
	}
	return vm
}

func access(t *testing.T, vm *VM, fn func()) {
	t.Helper()
	if err := vm.Access(fn); err != nil {
		t.Fatal(err)
	}
}

func TestStartScene_EntersAndLeaves(t *testing.T) {
	vm := newRoomVM(t, 6, corridorRoom(1), corridorRoom(2))
	ego := vm.actors[1]
	access(t, vm, func() { vm.putActor(ego, 200, 120, 1) })

	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	v := vm.cfg.Vars
	if vm.roomID != 1 || vm.Var(v.Room) != 1 {
		t.Errorf("room = %d, var = %d", vm.roomID, vm.Var(v.Room))
	}
	if vm.Var(100) != 1 {
		t.Error("entry script did not run")
	}
	if vm.Var(v.CameraMinX) != 160 || vm.Var(v.CameraMaxX) != 480 {
		t.Errorf("camera range %d..%d", vm.Var(v.CameraMinX), vm.Var(v.CameraMaxX))
	}
	if vm.CameraX() != 160 {
		t.Errorf("camera = %d", vm.CameraX())
	}
	if !ego.Visible || ego.Box != 1 {
		t.Errorf("ego visible=%v box=%d", ego.Visible, ego.Box)
	}

	// a local script of room 1 dies with the room
	access(t, vm, func() { vm.runScript(200, false, false, nil) })
	if !vm.IsScriptRunning(200) {
		t.Fatal("local script not running")
	}
	if err := vm.StartRoom(2); err != nil {
		t.Fatal(err)
	}
	if vm.Var(101) != 1 || vm.Var(100) != 2 {
		t.Errorf("exit/entry vars = %d/%d", vm.Var(101), vm.Var(100))
	}
	if vm.IsScriptRunning(200) {
		t.Error("room 1 local script survived the room change")
	}
	if ego.Visible {
		t.Error("actor left in room 1 still visible")
	}

	if err := vm.StartRoom(0); err != nil {
		t.Fatal(err)
	}
	if vm.Room() != nil || vm.matrix != nil {
		t.Error("room 0 kept room data")
	}
	if err := vm.StartRoom(9); err == nil {
		t.Error("missing room entered")
	}
}

// 部屋を出ると箱の変更は捨てられ、リソースのキャッシュは変わらない
func TestBoxEdits_LastUntilRoomChange(t *testing.T) {
	r1 := corridorRoom(1)
	vm := newRoomVM(t, 6, r1, corridorRoom(2))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	access(t, vm, func() {
		vm.setBoxFlags(1, walkbox.FlagLocked)
		vm.setBoxScale(1, 77)
		vm.setScaleSlot(2, 10, 0, 20, 100)
	})
	if b := vm.Room().Boxes[1]; b.Flags != walkbox.FlagLocked || b.Scale != 77 {
		t.Fatalf("edit not applied: %+v", b)
	}
	if b := r1.Boxes[1]; b.Flags != 0 || b.Scale != 255 || len(r1.Scales) != 1 {
		t.Fatalf("resource room changed: %+v scales=%d", b, len(r1.Scales))
	}

	for _, room := range []int{2, 1} {
		if err := vm.StartRoom(room); err != nil {
			t.Fatal(err)
		}
	}
	if b := vm.Room().Boxes[1]; b.Flags != 0 || b.Scale != 255 {
		t.Errorf("box 1 after re-entry: flags=0x%X scale=%d", b.Flags, b.Scale)
	}
	if n := len(vm.Room().Scales); n != 1 {
		t.Errorf("scale slots after re-entry = %d", n)
	}
}

func TestBoxEdits_SurviveSaveLoad(t *testing.T) {
	src := newRoomVM(t, 6, corridorRoom(1))
	if err := src.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	access(t, src, func() {
		src.setBoxFlags(1, walkbox.FlagInvisible)
		src.createBoxMatrix()
		src.setBoxScale(2, 0x8002)
		src.setScaleSlot(2, 10, 100, 20, 140)
	})
	var buf bytes.Buffer
	if err := src.SaveState(&buf, "corridor"); err != nil {
		t.Fatal(err)
	}

	dst := newRoomVM(t, 6, corridorRoom(1))
	if err := dst.LoadState(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	boxes := dst.Room().Boxes
	if boxes[1].Flags != walkbox.FlagInvisible || boxes[2].Scale != 0x8002 {
		t.Errorf("boxes after load: %+v", boxes)
	}
	if got := walkbox.BoxScale(boxes[2], dst.Room().Scales, 140); got != 20 {
		t.Errorf("scale slot 2 at y=140 = %d", got)
	}
	// the matrix follows the restored flags, not the room's original one
	if next := dst.matrix.NextBox(0, 2); next != walkbox.InvalidBox {
		t.Errorf("route 0->2 through an invisible box: %d", next)
	}
	if dst.loadedBoxes != nil {
		t.Error("pending box edits kept after load")
	}
}

func TestCreateBoxMatrix(t *testing.T) {
	vm := newRoomVM(t, 6, corridorRoom(1))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	ego := vm.actors[1]
	access(t, vm, func() { vm.putActor(ego, 400, 120, 1) })

	tests := []struct {
		name  string
		flags int
		want  int
	}{
		{"open", 0, 1},
		{"invisible middle box", walkbox.FlagInvisible, walkbox.InvalidBox},
		{"reopened", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access(t, vm, func() {
				vm.setBoxFlags(1, tt.flags)
				vm.createBoxMatrix()
			})
			if got := vm.matrix.NextBox(0, 2); got != tt.want {
				t.Errorf("NextBox(0, 2) = %d, want %d", got, tt.want)
			}
			if ego.Box != 2 {
				t.Errorf("actor box = %d after rebuild", ego.Box)
			}
		})
	}
}

// walkUntilStopped ticks actors until a stops or limit passes.
func walkUntilStopped(t *testing.T, vm *VM, a *Actor, limit int) []walkbox.Point {
	t.Helper()
	var path []walkbox.Point
	for range limit {
		if a.Moving == 0 {
			return path
		}
		access(t, vm, vm.updateActors)
		path = append(path, walkbox.Point{X: a.X, Y: a.Y})
	}
	t.Fatalf("actor still moving after %d ticks at (%d,%d)", limit, a.X, a.Y)
	return nil
}

func TestStartWalk(t *testing.T) {
	tests := []struct {
		name     string
		from     walkbox.Point
		to       walkbox.Point
		invis    bool
		want     walkbox.Point
		wantBox  int
		wantPass []int // x positions the route must cross
	}{
		{
			name: "same box", from: walkbox.Point{X: 20, Y: 110}, to: walkbox.Point{X: 100, Y: 130},
			want: walkbox.Point{X: 100, Y: 130}, wantBox: 0,
		},
		{
			name: "two box hops", from: walkbox.Point{X: 40, Y: 120}, to: walkbox.Point{X: 440, Y: 120},
			want: walkbox.Point{X: 440, Y: 120}, wantBox: 2, wantPass: []int{160, 320},
		},
		{
			name: "target outside boxes is adjusted", from: walkbox.Point{X: 200, Y: 120}, to: walkbox.Point{X: 250, Y: 190},
			want: walkbox.Point{X: 250, Y: 140}, wantBox: 1,
		},
		{
			name: "no route stops in place", from: walkbox.Point{X: 40, Y: 120}, to: walkbox.Point{X: 440, Y: 120},
			want: walkbox.Point{X: 40, Y: 120}, wantBox: 0, invis: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newRoomVM(t, 6, corridorRoom(1))
			if err := vm.StartRoom(1); err != nil {
				t.Fatal(err)
			}
			a := vm.actors[2]
			access(t, vm, func() {
				vm.putActor(a, tt.from.X, tt.from.Y, 1)
				if tt.invis {
					vm.setBoxFlags(1, walkbox.FlagInvisible)
					vm.createBoxMatrix()
				}
				vm.startWalk(a, tt.to.X, tt.to.Y, -1)
			})
			if a.Moving == 0 {
				t.Fatal("walk did not start")
			}
			path := walkUntilStopped(t, vm, a, 200)
			if got := (walkbox.Point{X: a.X, Y: a.Y}); got != tt.want {
				t.Errorf("stopped at %v, want %v", got, tt.want)
			}
			if a.Box != tt.wantBox {
				t.Errorf("box = %d, want %d", a.Box, tt.wantBox)
			}
			for _, x := range tt.wantPass {
				crossed := false
				for _, p := range path {
					crossed = crossed || p.X == x
				}
				if !crossed {
					t.Errorf("route never reached x=%d: %v", x, path)
				}
			}
		})
	}
}

func TestStartWalk_OtherRoomTeleports(t *testing.T) {
	vm := newRoomVM(t, 6, corridorRoom(1))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	a := vm.actors[3]
	access(t, vm, func() {
		vm.putActor(a, 10, 10, 2)
		vm.startWalk(a, 300, 130, -1)
	})
	if a.X != 300 || a.Y != 130 || a.Moving != 0 {
		t.Errorf("actor in another room: (%d,%d) moving=%d", a.X, a.Y, a.Moving)
	}
}

func TestUpdateActors_ScaleFromBox(t *testing.T) {
	r := corridorRoom(1)
	r.Boxes[1].Scale = 0x8001
	vm := newRoomVM(t, 6, r)
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	a := vm.actors[1]
	access(t, vm, func() { vm.putActor(a, 200, 120, 1) })
	access(t, vm, vm.updateActors)
	if a.ScaleX != 150 || a.ScaleY != 150 {
		t.Errorf("scale = %d/%d, want 150", a.ScaleX, a.ScaleY)
	}
	access(t, vm, func() { vm.putActor(a, 40, 120, 1) })
	access(t, vm, vm.updateActors)
	if a.ScaleX != 255 {
		t.Errorf("fixed box scale = %d", a.ScaleX)
	}
}

func TestMoveCamera(t *testing.T) {
	tests := []struct {
		name  string
		dest  int
		fast  bool
		steps int
		want  int
	}{
		{"pan right", 400, false, 30, 400},
		{"clamped to room", 1000, false, 40, 480},
		{"fast scroll snaps", 400, true, 1, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newRoomVM(t, 6, corridorRoom(1))
			if err := vm.StartRoom(1); err != nil {
				t.Fatal(err)
			}
			if tt.fast {
				vm.setEngineVar(vm.cfg.Vars.CameraFastX, 1)
			}
			access(t, vm, func() {
				vm.panCameraTo(tt.dest, 0)
				for range tt.steps {
					vm.moveCamera()
				}
			})
			if got := vm.CameraX(); got != tt.want {
				t.Errorf("camera = %d, want %d", got, tt.want)
			}
			if got := vm.Var(vm.cfg.Vars.CameraPosX); got != int32(tt.want) {
				t.Errorf("camera var = %d", got)
			}
			if tt.want == tt.dest && vm.camera.Mode != CameraNormal {
				t.Errorf("mode = %d after reaching destination", vm.camera.Mode)
			}
		})
	}
}

func TestMoveCamera_RunsScrollScript(t *testing.T) {
	vm := newTestVM(t, 6, map[int][]byte{5: code(b(0x4F), w16(102), stopV6)})
	addRoom(t, vm, corridorRoom(1))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	vm.setEngineVar(vm.cfg.Vars.ScrollScript, 5)
	access(t, vm, func() {
		vm.panCameraTo(200, 0)
		for range 5 {
			vm.moveCamera()
		}
	})
	// 160 -> 200 takes five steps, one scroll script run each
	if got := vm.Var(102); got != 5 {
		t.Errorf("scroll script ran %d times", got)
	}
}

func TestSetCameraFollows(t *testing.T) {
	vm := newRoomVM(t, 6, corridorRoom(1), corridorRoom(2))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	a := vm.actors[1]
	access(t, vm, func() {
		vm.putActor(a, 400, 120, 1)
		vm.setCameraFollows(a)
	})
	if vm.camera.Mode != CameraFollowActor || vm.camera.Follows != 1 {
		t.Errorf("camera = %+v", vm.camera)
	}
	if vm.CameraX() != 400 {
		t.Errorf("camera did not jump to the actor: %d", vm.CameraX())
	}

	// inside the triggers the camera stays put
	access(t, vm, func() {
		a.X = 470
		vm.moveCamera()
	})
	if vm.CameraX() != 400 || vm.camera.MovingToActor {
		t.Errorf("camera = %d moving=%v with the actor inside the triggers", vm.CameraX(), vm.camera.MovingToActor)
	}
	// past the right trigger it scrolls after the actor up to the room edge
	access(t, vm, func() {
		a.X = 560
		for range 20 {
			vm.moveCamera()
		}
	})
	if vm.CameraX() != 480 {
		t.Errorf("camera = %d while following to x=560", vm.CameraX())
	}

	// following an actor in another room changes room
	b := vm.actors[2]
	access(t, vm, func() {
		vm.putActor(b, 100, 120, 2)
		vm.setCameraFollows(b)
	})
	if vm.roomID != 2 || vm.Var(100) != 2 {
		t.Errorf("room = %d, entry var = %d", vm.roomID, vm.Var(100))
	}
	if vm.camera.Mode != CameraFollowActor || vm.camera.Follows != 2 {
		t.Errorf("camera after room change = %+v", vm.camera)
	}
	if vm.CameraX() != 160 {
		t.Errorf("camera = %d, want clamp to 160", vm.CameraX())
	}
}

// decodeCall is one DecodeData call.
type decodeCall struct {
	facing, frame int
	mask          uint16
}

// recordingDecoder remembers DecodeData calls.
type recordingDecoder struct {
	calls []decodeCall
}

func (d *recordingDecoder) Load(int, []byte) error { return nil }

func (d *recordingDecoder) ID() int { return 1 }

func (d *recordingDecoder) DecodeData(st *costume.State, facing, frame int, mask uint16) error {
	d.calls = append(d.calls, decodeCall{facing, frame, mask})
	return nil
}

func (d *recordingDecoder) IncreaseAnims(*costume.State) (int, error) { return 0, nil }

func TestStartAnimActor(t *testing.T) {
	tests := []struct {
		name      string
		version   int
		inRoom    bool
		anim      int
		wantFrame int
		decoded   bool
	}{
		{"v6 stand alias", 6, true, 0x3A, 3, true},
		{"v6 walk alias", 6, true, 0x39, 2, true},
		{"v6 plain frame", 6, true, 7, 7, true},
		{"v6 outside the room", 6, false, 0x3A, 3, false},
		{"v7 walk alias", 7, true, 1002, 2, true},
		{"v7 outside the room still decodes", 7, false, 1003, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newRoomVM(t, tt.version, corridorRoom(1))
			if err := vm.StartRoom(1); err != nil {
				t.Fatal(err)
			}
			a := vm.actors[1]
			room := 2
			if tt.inRoom {
				room = 1
			}
			dec := &recordingDecoder{}
			access(t, vm, func() {
				vm.putActor(a, 40, 120, room)
				a.decoder = dec
				vm.startAnimActor(a, tt.anim)
			})
			if a.Frame != tt.wantFrame {
				t.Errorf("frame = %d, want %d", a.Frame, tt.wantFrame)
			}
			if !tt.decoded {
				if len(dec.calls) != 0 {
					t.Errorf("decoded outside the room: %+v", dec.calls)
				}
				return
			}
			want := decodeCall{a.Facing, tt.wantFrame, 0xFFFF}
			if len(dec.calls) != 1 || dec.calls[0] != want {
				t.Errorf("calls = %+v, want %+v", dec.calls, want)
			}
		})
	}
}

func TestStartActorAnim_DirectionCommands(t *testing.T) {
	vm := newRoomVM(t, 6, corridorRoom(1))
	if err := vm.StartRoom(1); err != nil {
		t.Fatal(err)
	}
	a := vm.actors[1]
	access(t, vm, func() {
		vm.putActor(a, 40, 120, 1)
		// 0xF8 + 1: set direction, old direction 1 is right
		vm.startActorAnim(a, 0xF9)
	})
	if a.Facing != costume.OldDirToFacing(1) {
		t.Errorf("facing = %d", a.Facing)
	}
	access(t, vm, func() {
		a.Moving = moveInLeg
		// 0xFC: stop
		vm.startActorAnim(a, 0xFC)
	})
	if a.Moving != 0 || a.Frame != int(a.StandFrame) {
		t.Errorf("after stop: moving=%d frame=%d", a.Moving, a.Frame)
	}
}
