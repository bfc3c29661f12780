package binio

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// BitOrder はバイト内のビット取り出し順
type BitOrder int

const (
	// MSBFirst 最上位ビットから取り出す
	MSBFirst BitOrder = iota
	// LSBFirst 最下位ビットから取り出す
	LSBFirst
)

// BitReader はバイトスライス上のビットリーダー
type BitReader struct {
	data  []byte
	order BitOrder
	pos   int // ビット位置
	msb   *bitio.Reader
}

// NewBitReader BitReaderを作成
func NewBitReader(data []byte, order BitOrder) *BitReader {
	br := &BitReader{data: data, order: order}
	br.reset(0)
	return br
}

// Pos 現在のビット位置を返す
func (br *BitReader) Pos() int {
	return br.pos
}

// Size 総ビット数を返す
func (br *BitReader) Size() int {
	return len(br.data) * 8
}

// Seek 絶対ビット位置へ移動する
func (br *BitReader) Seek(bit int) error {
	if bit < 0 || bit > br.Size() {
		return fmt.Errorf("%w: seek to bit %d (size %d)", ErrEndOfStream, bit, br.Size())
	}
	br.reset(bit)
	return nil
}

// Skip nビット進める
func (br *BitReader) Skip(n int) error {
	return br.Seek(br.pos + n)
}

func (br *BitReader) reset(bit int) {
	br.pos = bit
	if br.order != MSBFirst {
		return
	}
	br.msb = bitio.NewReader(bytes.NewReader(br.data[bit/8:]))
	if rem := bit % 8; rem != 0 {
		// 範囲は呼び出し側で確認済み
		_, _ = br.msb.ReadBits(uint8(rem))
	}
}

// GetBit 1ビット読む
func (br *BitReader) GetBit() (uint32, error) {
	return br.GetBits(1)
}

// GetBits nビット（n<=32）読む
func (br *BitReader) GetBits(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, fmt.Errorf("invalid bit count %d", n)
	}
	if n == 0 {
		return 0, nil
	}
	if br.pos+n > br.Size() {
		return 0, fmt.Errorf("%w: %d bits at bit %d (size %d)", ErrEndOfStream, n, br.pos, br.Size())
	}
	if br.order == MSBFirst {
		v, err := br.msb.ReadBits(uint8(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEndOfStream, err)
		}
		br.pos += n
		return uint32(v), nil
	}
	// 各ビットを32ビットアキュムレーターの最上位へ入れ、最後に32-nだけ右シフトする
	var v uint32
	for i := 0; i < n; i++ {
		b := uint32(br.data[br.pos/8]>>(uint(br.pos)%8)) & 1
		v = (v >> 1) | (b << 31)
		br.pos++
	}
	return v >> (32 - uint(n)), nil
}

// PeekBits 位置を変えずにnビット読む
func (br *BitReader) PeekBits(n int) (uint32, error) {
	saved := br.pos
	v, err := br.GetBits(n)
	br.reset(saved)
	return v, err
}
