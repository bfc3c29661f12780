// Package sound plays the game's sound resources: digitised effects
// through Ebitengine's audio mixer and General MIDI music through a
// SoundFont synthesizer.
package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/scumm-et/pkg/resource"
)

// SampleRate is the output rate of the mixer.
const SampleRate = 44100

var (
	// ErrUnsupportedFormat means the resource holds no playable track.
	ErrUnsupportedFormat = errors.New("sound: no playable track")
	// ErrInvalidVOC means a digitised track is malformed.
	ErrInvalidVOC = errors.New("sound: malformed VOC data")
)

// Kind is the track type a clip plays.
type Kind int

const (
	KindPCM Kind = iota + 1
	KindMIDI
)

func (k Kind) String() string {
	switch k {
	case KindPCM:
		return "pcm"
	case KindMIDI:
		return "midi"
	}
	return "unknown"
}

// Clip is one decoded sound resource.
type Clip struct {
	Kind Kind
	// PCM: unsigned 8-bit mono samples. MIDI: a Standard MIDI File.
	Data     []byte
	Rate     int
	Duration time.Duration
}

// containerTags hold other sound chunks.
var containerTags = map[string]bool{"SOUN": true, "SOU ": true}

// Decode picks the best track out of a sound resource. General MIDI
// music wins over digitised data; AdLib, Roland and speaker tracks are
// skipped.
func Decode(c resource.Chunk) (*Clip, error) {
	var midi, sbl []byte
	var walk func(data []byte)
	walk = func(data []byte) {
		children, _ := resource.Children(data, false)
		for _, ch := range children {
			switch {
			case containerTags[ch.Tag]:
				walk(ch.Payload)
			case ch.Tag == "MIDI" || ch.Tag == "GMD ":
				if midi == nil {
					midi = ch.Payload
				}
			case ch.Tag == "SBL ":
				if sbl == nil {
					sbl = ch.Payload
				}
			}
		}
	}
	if containerTags[c.Tag] {
		walk(c.Payload)
	} else {
		walk(c.Data)
	}

	if midi != nil {
		if i := bytes.Index(midi, []byte("MThd")); i >= 0 {
			return decodeMIDI(midi[i:])
		}
	}
	if sbl != nil {
		return decodeSBL(sbl)
	}
	return nil, fmt.Errorf("%w (%s)", ErrUnsupportedFormat, c.Tag)
}

func decodeMIDI(smf []byte) (*Clip, error) {
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(smf))
	if err != nil {
		return nil, fmt.Errorf("sound: MIDI track: %w", err)
	}
	return &Clip{Kind: KindMIDI, Data: smf, Duration: mf.GetLength()}, nil
}

// decodeSBL reads the first sound block of an SBL track: AUhd, then AUdt
// holding a VOC type-1 block.
func decodeSBL(p []byte) (*Clip, error) {
	dt, err := resource.Find(p, "AUdt", false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVOC, err)
	}
	return decodeVOCBlock(dt.Payload)
}

// decodeVOCBlock reads a type-1 VOC block: type, 24-bit length, rate
// divisor, codec, samples.
func decodeVOCBlock(v []byte) (*Clip, error) {
	if len(v) < 6 || v[0] != 1 {
		return nil, fmt.Errorf("%w: block header", ErrInvalidVOC)
	}
	n := int(v[1]) | int(v[2])<<8 | int(v[3])<<16
	if n < 2 {
		return nil, fmt.Errorf("%w: block length %d", ErrInvalidVOC, n)
	}
	if v[5] != 0 {
		return nil, fmt.Errorf("%w: codec %d", ErrInvalidVOC, v[5])
	}
	rate := 1000000 / (256 - int(v[4]))
	samples := v[6:]
	if len(samples) > n-2 {
		samples = samples[:n-2]
	}
	return &Clip{
		Kind:     KindPCM,
		Data:     samples,
		Rate:     rate,
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(rate),
	}, nil
}

// WAV wraps unsigned 8-bit mono samples in a RIFF header so the
// mixer's WAV decoder can resample them.
func WAV(samples []byte, rate int) []byte {
	out := make([]byte, 0, 44+len(samples))
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(samples)))
	out = append(out, "WAVEfmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, 1) // mono
	out = binary.LittleEndian.AppendUint32(out, uint32(rate))
	out = binary.LittleEndian.AppendUint32(out, uint32(rate))
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, 8)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(samples)))
	return append(out, samples...)
}
