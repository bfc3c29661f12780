package costume

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// classicCostume builds a v5 costume whose animation 1 (east, frame 0)
// leaves limb 0 empty and runs limb 1 over cmds[2..2+length].
func classicCostume(format byte, cmds []byte, length byte) []byte {
	base := make([]byte, 62)
	base[6] = 1
	base[7] = format
	anim := []byte{0x00, 0xC0, 0xFF, 0xFF, 0x02, 0x00, length}
	cmdOff := 62 + len(anim)
	binary.LittleEndian.PutUint16(base[24:], uint16(cmdOff))
	binary.LittleEndian.PutUint16(base[60:], 62)
	base = append(base, anim...)
	base = append(base, cmds...)
	return append([]byte{0, 0}, base...)
}

func newState() *State {
	st := &State{}
	st.Reset()
	return st
}

func TestClassic_DecodeData(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(7, classicCostume(0x58, []byte{0, 1, 2, 3, 4, 5, 6}, 3)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c.Palette()) != 16 {
		t.Errorf("palette length = %d, want 16", len(c.Palette()))
	}

	st := newState()
	if err := c.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if st.Curpos[0] != NoCommand {
		t.Errorf("limb 0 Curpos = %#x, want 0xFFFF", st.Curpos[0])
	}
	if st.Curpos[1] != 2 || st.Start[1] != 2 || st.End[1] != 5 {
		t.Errorf("limb 1 = (%d,%d,%d), want (2,2,5)", st.Curpos[1], st.Start[1], st.End[1])
	}
	if st.Curpos[2] != NoCommand {
		t.Errorf("limb 2 touched: %#x", st.Curpos[2])
	}
}

func TestClassic_StopCommand(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(1, classicCostume(0x58, []byte{0, 0, 0x79, 0}, 1)); err != nil {
		t.Fatal(err)
	}
	st := newState()
	if err := c.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatal(err)
	}
	if st.Stopped&(1<<1) == 0 {
		t.Errorf("limb 1 should be stopped, Stopped = %#x", st.Stopped)
	}
	if st.Curpos[1] != NoCommand {
		t.Errorf("stop command must not set Curpos, got %d", st.Curpos[1])
	}
}

func TestClassic_OutOfRangeAnim(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(1, classicCostume(0x58, []byte{0, 1, 2, 3}, 1)); err != nil {
		t.Fatal(err)
	}
	st := newState()
	// frame 1 west = anim 4, beyond numAnim
	if err := c.DecodeData(st, 270, 1, 0xFFFF); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < NumLimbs; i++ {
		if st.Curpos[i] != NoCommand {
			t.Fatalf("limb %d changed", i)
		}
	}
}

func TestClassic_InvalidFormat(t *testing.T) {
	c := NewClassic(5, false)
	err := c.Load(3, classicCostume(0x42, []byte{0}, 0))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestClassic_IncreaseAnims(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(1, classicCostume(0x58, []byte{0, 1, 2, 0x7C, 4, 5, 6}, 3)); err != nil {
		t.Fatal(err)
	}
	st := newState()
	if err := c.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatal(err)
	}

	// 2 -> 3 is a cue byte and is skipped
	n, err := c.IncreaseAnims(st)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || st.Curpos[1] != 4 {
		t.Errorf("step 1: changed=%d curpos=%d, want 1 and 4", n, st.Curpos[1])
	}
	if st.AnimCounter != 1 {
		t.Errorf("AnimCounter = %d, want 1", st.AnimCounter)
	}

	want := []uint16{5, 2}
	for i, w := range want {
		if _, err := c.IncreaseAnims(st); err != nil {
			t.Fatal(err)
		}
		if st.Curpos[1] != w {
			t.Errorf("step %d: curpos = %d, want %d", i+2, st.Curpos[1], w)
		}
	}
}

func TestClassic_ReadAnimCommandBounds(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(1, classicCostume(0x58, []byte{9, 8}, 0)); err != nil {
		t.Fatal(err)
	}
	if b, err := c.ReadAnimCommand(1); err != nil || b != 8 {
		t.Errorf("ReadAnimCommand(1) = %d, %v", b, err)
	}
	if _, err := c.ReadAnimCommand(2); err == nil {
		t.Error("expected end of stream")
	}
}

func chunk(tag string, payload []byte) []byte {
	b := []byte(tag)
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)+8))
	return append(b, payload...)
}

func akosCostume(length uint16, aksq []byte, extra ...[]byte) []byte {
	akhd := make([]byte, 8)
	binary.LittleEndian.PutUint16(akhd[4:], 4)

	akch := make([]byte, 8)
	binary.LittleEndian.PutUint16(akch[2:], 8)
	akch = append(akch, 0x00, 0x80, 0x02)
	akch = binary.LittleEndian.AppendUint16(akch, 0)
	akch = binary.LittleEndian.AppendUint16(akch, length)

	body := chunk("AKHD", akhd)
	body = append(body, chunk("AKCH", akch)...)
	body = append(body, chunk("AKSQ", aksq)...)
	for _, e := range extra {
		body = append(body, e...)
	}
	return chunk("AKOS", body)
}

func TestAKOS_DecodeAndStep(t *testing.T) {
	a := NewAKOS(6)
	if err := a.Load(2, akosCostume(2, []byte{1, 2, 3})); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	st := newState()
	if err := a.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatal(err)
	}
	if st.Active[0] != 2 || st.Curpos[0] != 0 || st.End[0] != 2 {
		t.Fatalf("limb 0 = active %d curpos %d end %d", st.Active[0], st.Curpos[0], st.End[0])
	}

	want := []uint16{1, 2, 0}
	for i, w := range want {
		if _, err := a.IncreaseAnims(st); err != nil {
			t.Fatal(err)
		}
		if st.Curpos[0] != w {
			t.Errorf("step %d: curpos = %d, want %d", i, st.Curpos[0], w)
		}
	}
}

func TestAKOS_SequenceNotFound(t *testing.T) {
	akst := make([]byte, 8)
	binary.LittleEndian.PutUint32(akst, 99)
	binary.LittleEndian.PutUint32(akst[4:], 0xABCD)

	a := NewAKOS(6)
	if err := a.Load(2, akosCostume(2, []byte{1, 2, 3}, chunk("AKST", akst))); err != nil {
		t.Fatal(err)
	}
	st := newState()
	st.CondMask[0] = 0x1234
	if err := a.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatalf("a missing sequence must not fail: %v", err)
	}
	if st.CondMask[0] != 0 {
		t.Errorf("CondMask = %#x, want 0", st.CondMask[0])
	}
}

func TestAKOS_ControlCodes(t *testing.T) {
	a := NewAKOS(6)
	if err := a.Load(2, akosCostume(3, []byte{0x01, 0xC0, 0x60, 0x02})); err != nil {
		t.Fatal(err)
	}
	st := newState()
	if err := a.DecodeData(st, 90, 0, 0xFFFF); err != nil {
		t.Fatal(err)
	}
	n, err := a.IncreaseAnims(st)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || st.Curpos[0] != 3 {
		t.Errorf("changed=%d curpos=%d, want 1 and 3", n, st.Curpos[0])
	}
	if st.AnimVars[0] != 1 {
		t.Errorf("AnimVars[0] = %d, want 1", st.AnimVars[0])
	}
}

func TestDirections(t *testing.T) {
	tests := []struct {
		facing  int
		oldDir  int
		simple8 int
	}{
		{0, 3, 0},
		{90, 1, 2},
		{180, 2, 4},
		{270, 0, 6},
		{45, 3, 1},
	}
	for _, tt := range tests {
		if got := OldDirFromFacing(tt.facing); got != tt.oldDir {
			t.Errorf("OldDirFromFacing(%d) = %d, want %d", tt.facing, got, tt.oldDir)
		}
		if got := ToSimpleDir(1, tt.facing); got != tt.simple8 {
			t.Errorf("ToSimpleDir(1, %d) = %d, want %d", tt.facing, got, tt.simple8)
		}
	}
}

// Property: limbs outside useMask are never modified
func TestProperty_UseMaskRespected(t *testing.T) {
	c := NewClassic(5, false)
	if err := c.Load(1, classicCostume(0x58, []byte{0, 1, 2, 3, 4, 5, 6}, 3)); err != nil {
		t.Fatal(err)
	}

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("masked limbs untouched", prop.ForAll(
		func(facing, frame int) bool {
			st := newState()
			if err := c.DecodeData(st, facing, frame, 0); err != nil {
				return false
			}
			ref := newState()
			return st.Curpos == ref.Curpos && st.Stopped == ref.Stopped
		},
		gen.IntRange(0, 359),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
