package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/scumm-et/pkg/fileutil"
)

var (
	// ErrNoSoundFont is returned when music is played without a SoundFont.
	ErrNoSoundFont = errors.New("sound: SoundFont required for MIDI playback")
	// ErrSoundFontNotFound is returned when the SoundFont file is missing.
	ErrSoundFontNotFound = errors.New("sound: SoundFont file not found")
)

// midiStream renders a sequencer into 16-bit little-endian stereo for
// the mixer. After Stop it yields silence.
type midiStream struct {
	sequencer *meltysynth.MidiFileSequencer
	samples   int64
	stopped   bool
	mu        sync.Mutex

	left, right []float32
}

func newMIDIStream(sf *meltysynth.SoundFont, smf []byte) (*midiStream, error) {
	if sf == nil {
		return nil, ErrNoSoundFont
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(smf))
	if err != nil {
		return nil, fmt.Errorf("sound: MIDI track: %w", err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("sound: synthesizer: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(mf, false)
	return &midiStream{sequencer: seq}, nil
}

func (s *midiStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		clear(p)
		return len(p), nil
	}
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(s.left) < n {
		s.left = make([]float32, n)
		s.right = make([]float32, n)
	}
	left, right := s.left[:n], s.right[:n]
	s.sequencer.Render(left, right)
	s.samples += int64(n)

	for i := range n {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(toInt16(left[i])))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(toInt16(right[i])))
	}
	return n * 4, nil
}

func (s *midiStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func toInt16(v float32) int16 {
	return int16(min(max(v, -1), 1) * 32767)
}

// ReadSoundFont reads an SF2 file through fsys, or the host file system
// when fsys is nil.
func ReadSoundFont(fsys fileutil.FileSystem, path string) ([]byte, error) {
	var data []byte
	var err error
	if fsys == nil {
		data, err = os.ReadFile(path)
	} else {
		data, err = fsys.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
		}
		return nil, fmt.Errorf("sound: read SoundFont: %w", err)
	}
	return data, nil
}

// LoadSoundFont reads and parses an SF2 file.
func LoadSoundFont(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	data, err := ReadSoundFont(fsys, path)
	if err != nil {
		return nil, err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sound: parse SoundFont %s: %w", path, err)
	}
	return sf, nil
}
