package savegame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/zurustar/scumm-et/pkg/binio"
)

// Magic opens every save file.
const Magic = "SCET"

var (
	// ErrBadMagic means the data is not a save file.
	ErrBadMagic = errors.New("savegame: bad magic")
	// ErrNewerVersion means the save was written by a newer format.
	ErrNewerVersion = errors.New("savegame: format version too new")
)

// Header is the uncompressed part of a save file.
type Header struct {
	Version     uint32
	Description string
}

// Encode writes the header and the zstd-compressed body to w.
func Encode(w io.Writer, desc string, body []byte) error {
	if len(desc) > 0xFFFF {
		desc = desc[:0xFFFF]
	}
	head := make([]byte, 0, 10+len(desc))
	head = append(head, Magic...)
	head = binary.LittleEndian.AppendUint32(head, Version)
	head = binary.LittleEndian.AppendUint16(head, uint16(len(desc)))
	head = append(head, desc...)
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("write save header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return fmt.Errorf("write save body: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush save body: %w", err)
	}
	return nil
}

// Decode reads a save file written by Encode.
func Decode(data []byte) (Header, []byte, error) {
	var h Header
	r := binio.NewReader(data)
	tag, err := r.ReadTag()
	if err != nil || tag != Magic {
		return h, nil, ErrBadMagic
	}
	if h.Version, err = r.ReadU32(); err != nil {
		return h, nil, fmt.Errorf("read save version: %w", err)
	}
	if h.Version == 0 || h.Version > Version {
		return h, nil, fmt.Errorf("%w: %d", ErrNewerVersion, h.Version)
	}
	n, err := r.ReadU16()
	if err != nil {
		return h, nil, fmt.Errorf("read save description: %w", err)
	}
	desc, err := r.ReadBytes(int(n))
	if err != nil {
		return h, nil, fmt.Errorf("read save description: %w", err)
	}
	h.Description = string(desc)

	dec, err := zstd.NewReader(bytes.NewReader(data[r.Pos():]))
	if err != nil {
		return h, nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	body, err := io.ReadAll(dec)
	if err != nil {
		return h, nil, fmt.Errorf("read save body: %w", err)
	}
	return h, body, nil
}
