package costume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/resource"
)

// AKOS sequence control codes (big-endian words in AKSQ).
const (
	akcReturn      = 0xC001
	akcSetVar      = 0xC010
	akcCmdQue3     = 0xC015
	akcComplexChan = 0xC020
	akcJump        = 0xC030
	akcJumpIfSet   = 0xC031
	akcAddVar      = 0xC040
	akcIgnore      = 0xC050
	akcIncVar      = 0xC060
	akcCmdQue3Q    = 0xC061
	akcJumpE       = 0xC070
	akcJumpNE      = 0xC071
	akcJumpL       = 0xC072
	akcJumpLE      = 0xC073
	akcJumpG       = 0xC074
	akcJumpGE      = 0xC075
	akcStartAnim   = 0xC080
	akcStartVarAn  = 0xC081
	akcRandom      = 0xC082
	akcSetClip     = 0xC083
	akcAnimInActor = 0xC084
	akcVarInActor  = 0xC085
	akcHideActor   = 0xC086
	akcSetDrawOffs = 0xC087
	akcJumpTable   = 0xC088
	akcFlip        = 0xC08A
	akcCmd3        = 0xC08B
	akcIgnore3     = 0xC08C
	akcIgnore2     = 0xC08D
	akcClearFlag   = 0xC09F
	akcEndSeq      = 0xC0FF
)

var errSequenceOverrun = errors.New("akos sequence overrun")

// AKOS decodes chunked costumes (v6 and later).
type AKOS struct {
	version int
	log     *slog.Logger

	// Random returns a value in [lo, hi]; replaceable for deterministic runs.
	Random func(lo, hi int) int

	id       int
	flags    byte
	numAnims int
	akch     []byte
	aksq     []byte
	akst     []byte
	aksf     []byte
	akfo     []byte
}

// NewAKOS creates an AKOS decoder.
func NewAKOS(version int) *AKOS {
	return &AKOS{
		version: version,
		log:     logger.Channel("costume"),
		Random: func(lo, hi int) int {
			if hi <= lo {
				return lo
			}
			return lo + rand.IntN(hi-lo+1)
		},
	}
}

// ID returns the loaded costume id.
func (a *AKOS) ID() int { return a.id }

// NumAnims returns the animation count from AKHD.
func (a *AKOS) NumAnims() int { return a.numAnims }

// HasManyDirections reports whether animations are stored per 8 directions.
func (a *AKOS) HasManyDirections() bool { return a.flags&2 != 0 }

// Load binds the decoder to an AKOS resource.
func (a *AKOS) Load(id int, data []byte) error {
	payload := data
	if len(data) >= 8 && string(data[:4]) == "AKOS" {
		payload = data[8:]
	}
	hd, err := resource.Find(payload, "AKHD", false)
	if err != nil {
		return fmt.Errorf("akos %d: %w", id, err)
	}
	if len(hd.Payload) < 6 {
		return fmt.Errorf("%w: akos %d header too short", ErrInvalidFormat, id)
	}
	ch, err := resource.Find(payload, "AKCH", false)
	if err != nil {
		return fmt.Errorf("akos %d: %w", id, err)
	}

	a.id = id
	a.flags = hd.Payload[2]
	a.numAnims = int(binary.LittleEndian.Uint16(hd.Payload[4:]))
	a.akch = ch.Payload
	a.aksq = optional(payload, "AKSQ")
	a.akst = optional(payload, "AKST")
	a.aksf = optional(payload, "AKSF")
	a.akfo = optional(payload, "AKFO")
	return nil
}

func optional(payload []byte, tag string) []byte {
	c, err := resource.Find(payload, tag, false)
	if err != nil {
		return nil
	}
	return c.Payload
}

// DecodeData sets up the limbs selected by useMask for animation frame.
func (a *AKOS) DecodeData(st *State, facing, frame int, useMask uint16) error {
	if a.akch == nil {
		return nil
	}
	var anim int
	if a.HasManyDirections() {
		anim = ToSimpleDir(1, facing) + frame*8
	} else {
		anim = OldDirFromFacing(facing) + frame*4
	}
	if anim >= a.numAnims || (anim+1)*2 > len(a.akch) {
		return nil
	}
	offs := int(binary.LittleEndian.Uint16(a.akch[anim*2:]))
	if offs == 0 {
		return nil
	}
	r := a.akch
	if offs+2 > len(r) {
		return fmt.Errorf("%w: akos %d anim %d at %d", ErrInvalidFormat, a.id, anim, offs)
	}
	mask := binary.LittleEndian.Uint16(r[offs:])
	p := offs + 2

	for i := 0; mask != 0; i++ {
		if mask&0x8000 != 0 {
			if p >= len(r) {
				return fmt.Errorf("%w: akos %d anim %d truncated", ErrInvalidFormat, a.id, anim)
			}
			code := r[p]
			p++
			if useMask&0x8000 != 0 {
				switch code {
				case 1:
					st.Active[i] = 0
					st.Frame[i] = uint16(frame)
					st.End[i] = 0
					st.Start[i] = 0
					st.Curpos[i] = 0
					st.CondMask[i] = 0
					if m, ok := a.lookupCond(0); ok {
						st.CondMask[i] = m
					}
				case 4:
					st.Stopped |= 1 << i
				case 5:
					st.Stopped &^= 1 << i
				default:
					if p+4 > len(r) {
						return fmt.Errorf("%w: akos %d anim %d truncated", ErrInvalidFormat, a.id, anim)
					}
					start := binary.LittleEndian.Uint16(r[p:])
					length := binary.LittleEndian.Uint16(r[p+2:])
					p += 4

					st.JumpOffset[i] = 0
					st.JumpCount[i] = 0
					if off, cnt, ok := a.lookupJump(start); ok {
						st.JumpOffset[i] = off
						st.JumpCount[i] = cnt
					}
					st.Active[i] = code
					st.Frame[i] = uint16(frame)
					st.End[i] = start + length
					st.Start[i] = start
					st.Curpos[i] = start
					st.CondMask[i] = 0
					if m, ok := a.lookupCond(uint32(start)); ok {
						st.CondMask[i] = m
					}
				}
			} else if code != 1 && code != 4 && code != 5 {
				p += 4
			}
		}
		mask <<= 1
		useMask <<= 1
	}
	return nil
}

// lookupCond searches AKST (start u32, mask u32). An absent table is not a miss.
func (a *AKOS) lookupCond(start uint32) (uint32, bool) {
	n := len(a.akst) / 8
	if n == 0 {
		return 0, false
	}
	for k := 0; k < n; k++ {
		if binary.LittleEndian.Uint32(a.akst[k*8:]) == start {
			return binary.LittleEndian.Uint32(a.akst[k*8+4:]), true
		}
	}
	a.log.Warn("sequence not found", "costume", a.id, "table", "AKST", "start", start)
	return 0, false
}

// lookupJump searches AKSF (start, offset, count as u16).
func (a *AKOS) lookupJump(start uint16) (uint16, uint16, bool) {
	n := len(a.aksf) / 6
	if n == 0 {
		return 0, 0, false
	}
	for k := 0; k < n; k++ {
		e := a.aksf[k*6:]
		if binary.LittleEndian.Uint16(e) == start {
			return binary.LittleEndian.Uint16(e[2:]), binary.LittleEndian.Uint16(e[4:]), true
		}
	}
	a.log.Warn("sequence not found", "costume", a.id, "table", "AKSF", "start", start)
	return 0, 0, false
}

// IncreaseAnims advances every active limb.
func (a *AKOS) IncreaseAnims(st *State) (int, error) {
	if a.aksq == nil {
		return 0, nil
	}
	n := 0
	for i := 0; i < NumLimbs; i++ {
		if st.Active[i] == 0 {
			continue
		}
		changed, err := a.increaseAnim(st, i)
		if err != nil {
			return n, fmt.Errorf("akos %d limb %d: %w", a.id, i, err)
		}
		if changed {
			n++
		}
	}
	return n, nil
}

func (a *AKOS) byteAt(p int) (int, error) {
	if p < 0 || p >= len(a.aksq) {
		return 0, errSequenceOverrun
	}
	return int(a.aksq[p]), nil
}

func (a *AKOS) wordAt(p int) (int, error) {
	if p < 0 || p+2 > len(a.aksq) {
		return 0, errSequenceOverrun
	}
	return int(binary.BigEndian.Uint16(a.aksq[p:])), nil
}

// codeAt reads a one-byte command or, with the high bit set, a big-endian word.
func (a *AKOS) codeAt(p int) (int, error) {
	b, err := a.byteAt(p)
	if err != nil {
		return 0, err
	}
	if b&0x80 != 0 {
		return a.wordAt(p)
	}
	return b, nil
}

func animVar(st *State, n int) int {
	if n < 0 || n >= NumAnimVars {
		return 0
	}
	return int(st.AnimVars[n])
}

func setAnimVar(st *State, n, v int) {
	if n >= 0 && n < NumAnimVars {
		st.AnimVars[n] = int32(v)
	}
}

// skipLen returns how far a control code advances when stepped over.
func (a *AKOS) skipLen(code, p int) (int, error) {
	switch code {
	case akcJumpIfSet, akcAddVar, akcSetVar:
		return 5, nil
	case akcJumpTable, akcSetClip, akcIgnore3, akcIgnore2, akcIgnore, akcStartAnim, akcStartVarAn, akcCmdQue3:
		return 3, nil
	case akcCmd3, akcVarInActor, akcSetDrawOffs:
		return 6, nil
	case akcClearFlag, akcHideActor, akcIncVar, akcCmdQue3Q, akcReturn, akcEndSeq:
		return 2, nil
	case akcJumpGE, akcJumpG, akcJumpLE, akcJumpL, akcJumpNE, akcJumpE, akcRandom:
		return 7, nil
	case akcFlip, akcJump, akcAnimInActor:
		return 4, nil
	case akcComplexChan:
		cnt, err := a.byteAt(p + 2)
		if err != nil {
			return 0, err
		}
		n := 3
		for ; cnt > 0; cnt-- {
			n += 4
			b, err := a.byteAt(p + n)
			if err != nil {
				return 0, err
			}
			if b&0x80 != 0 {
				n += 2
			} else {
				n++
			}
		}
		return n, nil
	}
	if code&0x8000 != 0 {
		return 2, nil
	}
	return 1, nil
}

func compare(a, b, op int) bool {
	switch op {
	case 0:
		return a == b
	case 1:
		return a != b
	case 2:
		return a < b
	case 3:
		return a <= b
	case 4:
		return a > b
	default:
		return a >= b
	}
}

func (a *AKOS) increaseAnim(st *State, ch int) (bool, error) {
	active := st.Active[ch]
	end := int(st.End[ch])
	old := int(st.Curpos[ch])
	cur := old

	for iter := 0; ; iter++ {
		if iter > len(a.aksq) {
			return false, errSequenceOverrun
		}
		code, err := a.codeAt(cur)
		if err != nil {
			return false, err
		}

		switch active {
		case 6, 8:
			n, err := a.skipLen(code, cur)
			if err != nil {
				return false, err
			}
			cur += n
		case 2:
			if code&0x8000 != 0 {
				cur += 2
			} else {
				cur++
			}
			if cur > end {
				cur = int(st.Start[ch])
			}
		case 3:
			if cur != end {
				if code&0x8000 != 0 {
					cur += 2
				} else {
					cur++
				}
			}
		}

		if code, err = a.codeAt(cur); err != nil {
			return false, err
		}

		gb := func(n int) int { v, _ := a.byteAt(cur + n); return v }
		gw := func(n int) int { v, _ := a.wordAt(cur + n); return v }
		sw := func(n int) int { return int(int16(gw(n))) }

		switch code {
		case akcAnimInActor:
			st.push(Command{Kind: CmdStartAnim, Actor: animVar(st, gb(2)), A: animVar(st, gb(3))})
			continue
		case akcRandom:
			setAnimVar(st, gb(6), a.Random(sw(2), sw(4)))
			continue
		case akcJumpGE, akcJumpG, akcJumpLE, akcJumpL, akcJumpNE, akcJumpE:
			if compare(animVar(st, gb(4)), sw(5), code-akcJumpE) {
				cur = gw(2)
				break
			}
			continue
		case akcIncVar:
			setAnimVar(st, 0, animVar(st, 0)+1)
			continue
		case akcSetVar:
			setAnimVar(st, gb(4), sw(2))
			continue
		case akcAddVar:
			setAnimVar(st, gb(4), animVar(st, gb(4))+sw(2))
			continue
		case akcFlip:
			st.Flip = gw(2) != 0
			continue
		case akcCmdQue3:
			if idx := gb(2) - 1; idx >= 0 && idx < 24 {
				st.push(Command{Kind: CmdPlaySound, A: idx})
			}
			continue
		case akcCmdQue3Q:
			st.push(Command{Kind: CmdPlaySound, A: 0})
			continue
		case akcStartAnim:
			st.push(Command{Kind: CmdStartAnim, A: gb(2)})
			continue
		case akcStartVarAn:
			st.push(Command{Kind: CmdStartAnim, A: animVar(st, gb(2))})
			continue
		case akcVarInActor:
			st.push(Command{Kind: CmdSetVar, Actor: animVar(st, gb(2)), A: gb(3), B: sw(4)})
			continue
		case akcHideActor:
			st.push(Command{Kind: CmdHideActor})
			continue
		case akcSetClip:
			st.push(Command{Kind: CmdSetClipping, A: gb(2)})
			continue
		case akcCmd3:
			st.push(Command{Kind: CmdDrawOffset, A: animVar(st, gb(2)), B: animVar(st, gb(3))})
			continue
		case akcSetDrawOffs:
			st.push(Command{Kind: CmdDrawOffset, A: sw(2), B: sw(4)})
			continue
		case akcJumpTable:
			t := animVar(st, gb(2)) - 1
			if t < 0 || (t+1)*2 > len(a.akfo) {
				return false, fmt.Errorf("%w: jump table index %d", ErrInvalidFormat, t)
			}
			cur = int(binary.LittleEndian.Uint16(a.akfo[t*2:]))
		case akcJumpIfSet:
			if animVar(st, gb(4)) == 0 {
				continue
			}
			setAnimVar(st, gb(4), 0)
			cur = gw(2)
		case akcJump:
			cur = gw(2)
		case akcIgnore, akcIgnore2, akcIgnore3, akcClearFlag:
			continue
		}
		break
	}

	st.Curpos[ch] = uint16(cur)
	return cur != old, nil
}
