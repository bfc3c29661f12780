package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/scumm-et/pkg/resource"
)

// chunk builds a big-header chunk.
func chunk(tag string, parts ...[]byte) []byte {
	payload := bytes.Join(parts, nil)
	out := append([]byte(tag), 0, 0, 0, 0)
	binary.BigEndian.PutUint32(out[4:], uint32(8+len(payload)))
	return append(out, payload...)
}

// vocBlock builds a type-1 VOC block with rate divisor r.
func vocBlock(r byte, samples []byte) []byte {
	n := len(samples) + 2
	return append([]byte{1, byte(n), byte(n >> 8), byte(n >> 16), r, 0}, samples...)
}

func sblTrack(r byte, samples []byte) []byte {
	return chunk("SBL ", chunk("AUhd", []byte{0, 0, 0x80}), chunk("AUdt", vocBlock(r, samples)))
}

// smf is a one-track file playing middle C for one beat at 120 bpm.
func smf() []byte {
	track := []byte{
		0x00, 0x90, 0x3C, 0x64,
		0x60, 0x80, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	hdr := []byte("MThd\x00\x00\x00\x06\x00\x00\x00\x01\x00\x60")
	trk := append([]byte("MTrk"), 0, 0, 0, byte(len(track)))
	return append(append(hdr, trk...), track...)
}

func soun(t *testing.T, parts ...[]byte) resource.Chunk {
	t.Helper()
	c, err := resource.ReadChunk(chunk("SOUN", chunk("SOU ", parts...)), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDecode_SBL(t *testing.T) {
	samples := bytes.Repeat([]byte{0x80, 0xFF}, 5500)
	// 256-1000000/11000 rounds to divisor 165
	clip, err := Decode(soun(t, chunk("ADL ", []byte{1, 2, 3}), sblTrack(165, samples)))
	if err != nil {
		t.Fatal(err)
	}
	if clip.Kind != KindPCM {
		t.Fatalf("kind = %s", clip.Kind)
	}
	if clip.Rate != 10989 {
		t.Errorf("rate = %d", clip.Rate)
	}
	if !bytes.Equal(clip.Data, samples) {
		t.Error("samples differ")
	}
	if clip.Duration < time.Second || clip.Duration > 1010*time.Millisecond {
		t.Errorf("duration = %s", clip.Duration)
	}
}

func TestDecode_PrefersMIDI(t *testing.T) {
	// GMD tracks carry a short prefix before the MIDI header
	gmd := append([]byte{0, 0, 0, 0}, smf()...)
	clip, err := Decode(soun(t, sblTrack(165, []byte{1, 2}), chunk("GMD ", gmd)))
	if err != nil {
		t.Fatal(err)
	}
	if clip.Kind != KindMIDI {
		t.Fatalf("kind = %s", clip.Kind)
	}
	if !bytes.HasPrefix(clip.Data, []byte("MThd")) {
		t.Error("MIDI data does not start at the header")
	}
	if d := clip.Duration; d < 490*time.Millisecond || d > 510*time.Millisecond {
		t.Errorf("duration = %s", clip.Duration)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		track []byte
		want  error
	}{
		{"adlib only", chunk("ADL ", []byte{1}), ErrUnsupportedFormat},
		{"no data block", chunk("SBL ", chunk("AUhd", []byte{0})), ErrInvalidVOC},
		{"wrong block type", chunk("SBL ", chunk("AUdt", []byte{2, 4, 0, 0, 165, 0, 1, 2})), ErrInvalidVOC},
		{"packed samples", chunk("SBL ", chunk("AUdt", []byte{1, 4, 0, 0, 165, 1, 1, 2})), ErrInvalidVOC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(soun(t, tt.track)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWAV_Decodes(t *testing.T) {
	samples := bytes.Repeat([]byte{0x80}, 11025)
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(WAV(samples, 11025)))
	if err != nil {
		t.Fatal(err)
	}
	// one second of 16-bit stereo at the mixer rate
	if got := stream.Length(); got != SampleRate*4 {
		t.Errorf("length = %d", got)
	}
}

// TestProperty06_VOCLength は VOC ブロックの長さとレートから再生時間が決まることを確認する
func TestProperty06_VOCLength(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("samples and duration follow the block", prop.ForAll(
		func(r uint8, n int) bool {
			samples := bytes.Repeat([]byte{0x40}, n)
			clip, err := decodeVOCBlock(vocBlock(r, samples))
			if err != nil {
				return false
			}
			rate := 1000000 / (256 - int(r))
			want := time.Duration(n) * time.Second / time.Duration(rate)
			return len(clip.Data) == n && clip.Rate == rate && clip.Duration == want
		},
		gen.UInt8Range(0, 255),
		gen.IntRange(0, 4096),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
