// Package binio はリソースファイルとスクリプトバイトコードを読むための
// バイト単位・ビット単位のリーダーを提供する。
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrEndOfStream はバッファ末尾を越えて読もうとしたときに返される
var ErrEndOfStream = errors.New("read past end of stream")

// Reader はバイトスライス上の位置付きリーダー
// 既定のバイトオーダーはリトルエンディアン
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// NewReader Readerを作成
func NewReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.LittleEndian}
}

// NewBigEndianReader ビッグエンディアンのReaderを作成
func NewBigEndianReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.BigEndian}
}

// SetOrder バイトオーダーを切り替える
func (r *Reader) SetOrder(order binary.ByteOrder) {
	r.order = order
}

// Order 現在のバイトオーダーを返す
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// Bytes 元のバッファを返す
func (r *Reader) Bytes() []byte {
	return r.data
}

// Pos 現在位置を返す
func (r *Reader) Pos() int {
	return r.pos
}

// Len バッファ全体の長さを返す
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining 残りバイト数を返す
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek 絶対位置へ移動する
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("%w: seek to %d (length %d)", ErrEndOfStream, pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Skip 相対的に移動する
func (r *Reader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at %d (length %d)", ErrEndOfStream, n, r.pos, len(r.data))
	}
	return nil
}

// ReadU8 1バイト読む
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 2バイト読む
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 4バイト読む
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadI16 符号付き2バイトを読む
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadI32 符号付き4バイトを読む
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytes nバイトをコピーせずに返す
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadTag 4文字のチャンクタグを読む
func (r *Reader) ReadTag() (string, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadCString NUL終端文字列を読む（終端は消費する）
func (r *Reader) ReadCString() ([]byte, error) {
	start := r.pos
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.pos = i + 1
			return r.data[start:i], nil
		}
	}
	return nil, fmt.Errorf("%w: unterminated string at %d", ErrEndOfStream, start)
}

// U16At 位置を変えずに任意位置の2バイト値を読む
func (r *Reader) U16At(off int) (uint16, error) {
	if off < 0 || off+2 > len(r.data) {
		return 0, fmt.Errorf("%w: u16 at %d (length %d)", ErrEndOfStream, off, len(r.data))
	}
	return r.order.Uint16(r.data[off:]), nil
}

// U32At 位置を変えずに任意位置の4バイト値を読む
func (r *Reader) U32At(off int) (uint32, error) {
	if off < 0 || off+4 > len(r.data) {
		return 0, fmt.Errorf("%w: u32 at %d (length %d)", ErrEndOfStream, off, len(r.data))
	}
	return r.order.Uint32(r.data[off:]), nil
}
