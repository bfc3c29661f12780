// Package savegame walks interpreter state into and out of save files.
//
// A save body is a flat sequence of little-endian fields. Saving and
// loading run the same code path over a Serializer, so the field order is
// written down exactly once. Fields added in later format versions are
// wrapped in Field so older saves skip them.
package savegame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zurustar/scumm-et/pkg/binio"
)

// Version is the format version new saves are written with.
const Version uint32 = 2

// maxCount bounds list lengths read from a body.
const maxCount = 1 << 20

// Serializer is either saving into a buffer or loading from a body.
// Errors are sticky: after the first failure every call is a no-op.
type Serializer struct {
	version uint32
	saving  bool
	buf     bytes.Buffer
	r       *binio.Reader
	err     error
}

// NewSaver returns a Serializer that writes the current format.
func NewSaver() *Serializer {
	return &Serializer{version: Version, saving: true}
}

// NewLoader returns a Serializer reading body written by format version.
func NewLoader(body []byte, version uint32) *Serializer {
	return &Serializer{version: version, r: binio.NewReader(body)}
}

// Saving reports the direction.
func (s *Serializer) Saving() bool { return s.saving }

// Version is the format version being written or read.
func (s *Serializer) Version() uint32 { return s.version }

// Err returns the first error met.
func (s *Serializer) Err() error { return s.err }

// Bytes returns the body written so far.
func (s *Serializer) Bytes() []byte { return s.buf.Bytes() }

// Field runs f only when the format version lies in [min, max]. A max of
// 0 means the field is still current.
func (s *Serializer) Field(min, max uint32, f func()) {
	if s.version < min || (max != 0 && s.version > max) {
		return
	}
	f()
}

func (s *Serializer) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Serializer) U8(p *uint8) {
	if s.err != nil {
		return
	}
	if s.saving {
		s.buf.WriteByte(*p)
		return
	}
	v, err := s.r.ReadU8()
	if err != nil {
		s.fail(err)
		return
	}
	*p = v
}

func (s *Serializer) U16(p *uint16) {
	if s.err != nil {
		return
	}
	if s.saving {
		s.buf.Write(binary.LittleEndian.AppendUint16(nil, *p))
		return
	}
	v, err := s.r.ReadU16()
	if err != nil {
		s.fail(err)
		return
	}
	*p = v
}

func (s *Serializer) U32(p *uint32) {
	if s.err != nil {
		return
	}
	if s.saving {
		s.buf.Write(binary.LittleEndian.AppendUint32(nil, *p))
		return
	}
	v, err := s.r.ReadU32()
	if err != nil {
		s.fail(err)
		return
	}
	*p = v
}

func (s *Serializer) I32(p *int32) {
	u := uint32(*p)
	s.U32(&u)
	*p = int32(u)
}

// Int stores an int as a signed 32-bit field.
func (s *Serializer) Int(p *int) {
	v := int32(*p)
	s.I32(&v)
	*p = int(v)
}

func (s *Serializer) Bool(p *bool) {
	var b uint8
	if *p {
		b = 1
	}
	s.U8(&b)
	*p = b != 0
}

// Count writes n, or reads back a list length and checks it is sane.
func (s *Serializer) Count(n int) int {
	c := uint32(n)
	s.U32(&c)
	if s.err != nil {
		return 0
	}
	if c > maxCount {
		s.fail(fmt.Errorf("list length %d exceeds %d", c, maxCount))
		return 0
	}
	return int(c)
}

// Blob stores a length-prefixed byte string. A nil slice stays nil.
func (s *Serializer) Blob(p *[]byte) {
	n := s.Count(len(*p))
	if s.err != nil {
		return
	}
	if s.saving {
		s.buf.Write(*p)
		return
	}
	if n == 0 {
		*p = nil
		return
	}
	b, err := s.r.ReadBytes(n)
	if err != nil {
		s.fail(err)
		return
	}
	*p = append([]byte(nil), b...)
}

// I32s stores a length-prefixed list.
func (s *Serializer) I32s(p *[]int32) {
	n := s.Count(len(*p))
	if !s.saving {
		*p = make([]int32, n)
	}
	for i := range *p {
		s.I32(&(*p)[i])
	}
}

// FixedI32s stores a list whose length both sides already agree on. A
// saved list of another length is truncated or zero-padded.
func (s *Serializer) FixedI32s(p []int32) {
	n := s.Count(len(p))
	if s.saving {
		for i := range p {
			s.I32(&p[i])
		}
		return
	}
	for i := 0; i < n; i++ {
		var v int32
		s.I32(&v)
		if i < len(p) {
			p[i] = v
		}
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
}

// FixedU8s is FixedI32s for byte tables.
func (s *Serializer) FixedU8s(p []uint8) {
	n := s.Count(len(p))
	if s.saving {
		s.buf.Write(p)
		return
	}
	if s.err != nil {
		return
	}
	b, err := s.r.ReadBytes(n)
	if err != nil {
		s.fail(err)
		return
	}
	m := copy(p, b)
	clear(p[m:])
}

// FixedU32s is FixedI32s for unsigned tables.
func (s *Serializer) FixedU32s(p []uint32) {
	n := s.Count(len(p))
	if s.saving {
		for i := range p {
			s.U32(&p[i])
		}
		return
	}
	for i := 0; i < n; i++ {
		var v uint32
		s.U32(&v)
		if i < len(p) {
			p[i] = v
		}
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
}
