package costume

import (
	"encoding/binary"
	"fmt"

	"github.com/zurustar/scumm-et/pkg/binio"
)

// Classic decodes the linear-command costume format used up to v6.
type Classic struct {
	version int
	small   bool

	id        int
	base      []byte
	numAnim   int
	format    byte
	mirror    bool
	numColors int
	palette   []byte
	frameOffs int
	dataOffs  int
	cmds      []byte
}

// NewClassic creates a decoder for the given engine version.
func NewClassic(version int, small bool) *Classic {
	return &Classic{version: version, small: small}
}

// ID returns the loaded costume id.
func (c *Classic) ID() int { return c.id }

// NumAnim returns the highest animation index the costume defines.
func (c *Classic) NumAnim() int { return c.numAnim }

// Format returns the format byte without the mirror bit.
func (c *Classic) Format() byte { return c.format }

// Mirror reports whether west-facing frames are mirrored east-facing ones.
func (c *Classic) Mirror() bool { return c.mirror }

// Palette returns the costume's colour map.
func (c *Classic) Palette() []byte { return c.palette }

func (c *Classic) headerSkip() int {
	switch {
	case c.version >= 6:
		return 8
	case c.small:
		return 0
	default:
		return 2
	}
}

// Load binds the decoder to a costume resource.
func (c *Classic) Load(id int, data []byte) error {
	skip := c.headerSkip()
	if len(data) < skip+8 {
		return fmt.Errorf("%w: costume %d too short", ErrInvalidFormat, id)
	}
	base := data[skip:]

	format := base[7] & 0x7F
	var colors int
	switch format {
	case 0x58, 0x60:
		colors = 16
	case 0x59:
		colors = 32
	case 0x61:
		colors = 64
	default:
		return fmt.Errorf("%w: costume %d has format 0x%X", ErrInvalidFormat, id, format)
	}

	p := 8 + colors
	if len(base) < p+34 {
		return fmt.Errorf("%w: costume %d truncated header", ErrInvalidFormat, id)
	}
	cmdOff := int(binary.LittleEndian.Uint16(base[p:]))
	if cmdOff > len(base) {
		return fmt.Errorf("%w: costume %d command table at %d beyond %d", ErrInvalidFormat, id, cmdOff, len(base))
	}

	c.id = id
	c.base = base
	c.numAnim = int(base[6])
	c.format = format
	c.mirror = base[7]&0x80 != 0
	c.numColors = colors
	c.palette = base[8:p]
	c.frameOffs = p + 2
	c.dataOffs = p + 34
	c.cmds = base[cmdOff:]
	return nil
}

// LimbOffset returns the limb table offset for limb i.
func (c *Classic) LimbOffset(i int) int {
	return int(binary.LittleEndian.Uint16(c.base[c.frameOffs+i*2:]))
}

// ReadAnimCommand returns byte i of the animation command table.
func (c *Classic) ReadAnimCommand(i int) (byte, error) {
	if i < 0 || i >= len(c.cmds) {
		return 0, fmt.Errorf("%w: anim command %d (table %d)", binio.ErrEndOfStream, i, len(c.cmds))
	}
	return c.cmds[i], nil
}

// DecodeData sets up the limbs selected by useMask for animation frame.
func (c *Classic) DecodeData(st *State, facing, frame int, useMask uint16) error {
	if c.base == nil {
		return nil
	}
	anim := OldDirFromFacing(facing) + frame*4
	if anim > c.numAnim {
		return nil
	}
	at := c.dataOffs + anim*2
	if at+2 > len(c.base) {
		return nil
	}
	off := int(binary.LittleEndian.Uint16(c.base[at:]))
	if off == 0 {
		return nil
	}

	r := binio.NewReader(c.base)
	if err := r.Seek(off); err != nil {
		return fmt.Errorf("costume %d anim %d: %w", c.id, anim, err)
	}
	mask, err := r.ReadU16()
	if err != nil {
		return fmt.Errorf("costume %d anim %d: %w", c.id, anim, err)
	}

	for i := 0; mask != 0; i++ {
		if mask&0x8000 != 0 {
			var j uint16
			if c.version <= 3 {
				b, err := r.ReadU8()
				if err != nil {
					return err
				}
				j = uint16(b)
				if b == 0xFF {
					j = NoCommand
				}
			} else {
				if j, err = r.ReadU16(); err != nil {
					return err
				}
			}

			if useMask&0x8000 != 0 {
				if j == NoCommand {
					st.Curpos[i] = NoCommand
					st.Start[i] = 0
					st.Frame[i] = uint16(frame)
				} else {
					extra, err := r.ReadU8()
					if err != nil {
						return err
					}
					cmd, err := c.ReadAnimCommand(int(j))
					if err != nil {
						return fmt.Errorf("costume %d limb %d: %w", c.id, i, err)
					}
					switch cmd {
					case 0x7A:
						st.Stopped &^= 1 << i
					case 0x79:
						st.Stopped |= 1 << i
					default:
						st.Curpos[i] = j
						st.Start[i] = j
						st.End[i] = j + uint16(extra&0x7F)
						if extra&0x80 != 0 {
							st.Curpos[i] |= 0x8000
						}
						st.Frame[i] = uint16(frame)
					}
				}
			} else if j != NoCommand {
				if err := r.Skip(1); err != nil {
					return err
				}
			}
		}
		useMask <<= 1
		mask <<= 1
	}
	return nil
}

// IncreaseAnims advances every live limb.
func (c *Classic) IncreaseAnims(st *State) (int, error) {
	if c.base == nil {
		return 0, nil
	}
	n := 0
	for i := 0; i < NumLimbs; i++ {
		if st.Curpos[i] == NoCommand {
			continue
		}
		changed, err := c.increaseAnim(st, i)
		if err != nil {
			return n, err
		}
		if changed {
			n++
		}
	}
	return n, nil
}

func (c *Classic) increaseAnim(st *State, slot int) (bool, error) {
	high := st.Curpos[slot] & 0x8000
	i := int(st.Curpos[slot] & 0x7FFF)
	end := int(st.End[slot])
	start := int(st.Start[slot])

	first, err := c.ReadAnimCommand(i)
	if err != nil {
		return false, fmt.Errorf("costume %d limb %d: %w", c.id, slot, err)
	}
	code := first & 0x7F
	if c.version <= 3 && first&0x80 != 0 {
		st.SoundCounter++
	}

	// a table of nothing but cue bytes would never settle
	limit := len(c.cmds) + 2
	for iter := 0; ; iter++ {
		if high == 0 {
			if i >= end {
				i = start
			} else {
				i++
			}
		} else if i != end {
			i++
		}
		nc, err := c.ReadAnimCommand(i)
		if err != nil {
			return false, fmt.Errorf("costume %d limb %d: %w", c.id, slot, err)
		}

		cue := false
		switch {
		case nc == 0x7C:
			st.AnimCounter++
			cue = true
		case c.version >= 6 && nc >= 0x71 && nc <= 0x78:
			st.push(Command{Kind: CmdPlaySound, A: int(nc - 0x71)})
			cue = true
		case c.version < 6 && nc == 0x78:
			st.SoundCounter++
			cue = true
		}
		if cue && start != end && iter < limit {
			continue
		}

		st.Curpos[slot] = uint16(i) | high
		return nc&0x7F != code, nil
	}
}
