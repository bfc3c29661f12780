package binio

import (
	"errors"
	"io"
)

// ErrNoReaderAt は下位リーダーがio.ReaderAtを実装していないときに返される
var ErrNoReaderAt = errors.New("underlying reader does not support ReadAt")

// XORReader は読み出した全バイトに定数キーをXORするデコレーター
// キー0は素通し
type XORReader struct {
	r   io.Reader
	ra  io.ReaderAt
	key byte
}

// NewXORReader XORReaderを作成
// rがio.ReaderAtも実装していればReadAtも使える
func NewXORReader(r io.Reader, key byte) *XORReader {
	x := &XORReader{r: r, key: key}
	if ra, ok := r.(io.ReaderAt); ok {
		x.ra = ra
	}
	return x
}

// Key XORキーを返す
func (x *XORReader) Key() byte {
	return x.key
}

func (x *XORReader) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	XORBytes(p[:n], x.key)
	return n, err
}

func (x *XORReader) ReadAt(p []byte, off int64) (int, error) {
	if x.ra == nil {
		return 0, ErrNoReaderAt
	}
	n, err := x.ra.ReadAt(p, off)
	XORBytes(p[:n], x.key)
	return n, err
}

// XORBytes バッファをその場でデコードする
func XORBytes(p []byte, key byte) {
	if key == 0 {
		return
	}
	for i := range p {
		p[i] ^= key
	}
}
