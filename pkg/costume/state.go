// Package costume decodes actor costumes. Two formats share one contract:
// the classic linear-command format and the chunked AKOS format. Both turn an
// animation request into per-limb command positions held in a State and
// advance those positions one step per frame.
package costume

import "errors"

// NumLimbs is the number of independently animated limbs per actor.
const NumLimbs = 16

// NoCommand marks a limb with nothing to show.
const NoCommand = 0xFFFF

// NumAnimVars is the size of the per-actor AKOS variable bank.
const NumAnimVars = 27

// ErrInvalidFormat is returned for costumes the decoder cannot interpret.
var ErrInvalidFormat = errors.New("invalid costume format")

// CommandKind identifies a side effect queued by a decoder for the owning actor.
type CommandKind int

const (
	CmdHideActor   CommandKind = 1
	CmdPlaySound   CommandKind = 3
	CmdStartAnim   CommandKind = 4
	CmdSetClipping CommandKind = 5
	CmdDrawOffset  CommandKind = 6
	CmdSetVar      CommandKind = 7
)

// Command is a queued side effect. Actor is 0 for the owning actor.
type Command struct {
	Kind  CommandKind
	Actor int
	A, B  int
}

// State is the per-actor costume decode state.
type State struct {
	Active       [NumLimbs]uint8
	Curpos       [NumLimbs]uint16
	Start        [NumLimbs]uint16
	End          [NumLimbs]uint16
	Frame        [NumLimbs]uint16
	Stopped      uint16
	AnimCounter  uint16
	SoundCounter uint16

	// AKOS only
	CondMask   [NumLimbs]uint32
	JumpOffset [NumLimbs]uint16
	JumpCount  [NumLimbs]uint16
	AnimVars   [NumAnimVars]int32
	Flip       bool

	// Queue collects side effects produced while stepping; the actor drains it.
	Queue []Command
}

// Reset clears every limb to "no command".
func (s *State) Reset() {
	s.Stopped = 0
	for i := 0; i < NumLimbs; i++ {
		s.Active[i] = 0
		s.Curpos[i] = NoCommand
		s.Start[i] = NoCommand
		s.End[i] = NoCommand
		s.Frame[i] = NoCommand
		s.CondMask[i] = 0
		s.JumpOffset[i] = 0
		s.JumpCount[i] = 0
	}
	s.Queue = s.Queue[:0]
}

// Drain returns and clears queued commands.
func (s *State) Drain() []Command {
	q := s.Queue
	s.Queue = nil
	return q
}

func (s *State) push(c Command) {
	s.Queue = append(s.Queue, c)
}

// Decoder is the contract shared by the classic and AKOS decoders.
type Decoder interface {
	// Load binds the decoder to a costume resource (full chunk bytes).
	Load(id int, data []byte) error
	// ID returns the bound costume id, 0 if none.
	ID() int
	// DecodeData sets up every limb selected by useMask for the given frame.
	DecodeData(st *State, facing, frame int, useMask uint16) error
	// IncreaseAnims advances all limbs one step and returns how many
	// changed their visible command.
	IncreaseAnims(st *State) (int, error)
}
