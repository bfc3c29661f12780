// Package resource reads the game's index file and data disks: chunk
// walking, resource directories, room offset tables and decoded rooms.
package resource

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrChunkNotFound は探しているチャンクが無いときに返される
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrBadChunk はチャンクヘッダが壊れているときに返される
	ErrBadChunk = errors.New("malformed chunk")
)

const (
	bigHeaderSize   = 8
	smallHeaderSize = 6
)

// Chunk はタグ付きデータブロック
// Dataはヘッダを含む全体、Payloadはヘッダを除いた中身
type Chunk struct {
	Tag     string
	Offset  int
	Data    []byte
	Payload []byte
}

// Size はヘッダを含むチャンク長
func (c Chunk) Size() int {
	return len(c.Data)
}

// HeaderSize returns the header length for the given header flavour.
func HeaderSize(small bool) int {
	if small {
		return smallHeaderSize
	}
	return bigHeaderSize
}

// ReadChunk off位置のチャンクを読む
// 大ヘッダ: 4文字タグ + BE u32サイズ（ヘッダ込み）
// 小ヘッダ: LE u32サイズ（ヘッダ込み）+ 2文字タグ
func ReadChunk(data []byte, off int, small bool) (Chunk, error) {
	hs := HeaderSize(small)
	if off < 0 || off+hs > len(data) {
		return Chunk{}, fmt.Errorf("%w: header at %d exceeds %d bytes", ErrBadChunk, off, len(data))
	}

	var tag string
	var size int
	if small {
		size = int(binary.LittleEndian.Uint32(data[off:]))
		tag = string(data[off+4 : off+6])
	} else {
		tag = string(data[off : off+4])
		size = int(binary.BigEndian.Uint32(data[off+4:]))
	}

	if size < hs || off+size > len(data) {
		return Chunk{}, fmt.Errorf("%w: %q at %d has size %d (available %d)", ErrBadChunk, tag, off, size, len(data)-off)
	}

	return Chunk{
		Tag:     tag,
		Offset:  off,
		Data:    data[off : off+size],
		Payload: data[off+hs : off+size],
	}, nil
}

// Children 連続したチャンクを列挙する
func Children(data []byte, small bool) ([]Chunk, error) {
	var out []Chunk
	off := 0
	for off+HeaderSize(small) <= len(data) {
		c, err := ReadChunk(data, off, small)
		if err != nil {
			return out, err
		}
		out = append(out, c)
		off += c.Size()
	}
	return out, nil
}

// Find 直下のチャンクからタグを探す
func Find(data []byte, tag string, small bool) (Chunk, error) {
	off := 0
	for off+HeaderSize(small) <= len(data) {
		c, err := ReadChunk(data, off, small)
		if err != nil {
			return Chunk{}, err
		}
		if c.Tag == tag {
			return c, nil
		}
		off += c.Size()
	}
	return Chunk{}, fmt.Errorf("%w: %s", ErrChunkNotFound, tag)
}

// containers は子チャンクを持つことが分かっているタグ
var containers = map[string]bool{
	"LECF": true, "LFLF": true, "ROOM": true, "RMSC": true,
	"OBCD": true, "OBIM": true, "PALS": true, "WRAP": true,
	"RMIM": true, "IM00": true,
	"LE": true, "LF": true, "RO": true,
}

// FindDeep 既知のコンテナを再帰的にたどってタグを探す
func FindDeep(data []byte, tag string, small bool) (Chunk, error) {
	children, _ := Children(data, small)
	for _, c := range children {
		if c.Tag == tag {
			return c, nil
		}
	}
	for _, c := range children {
		if !containers[c.Tag] {
			continue
		}
		if found, err := FindDeep(c.Payload, tag, small); err == nil {
			return found, nil
		}
	}
	return Chunk{}, fmt.Errorf("%w: %s", ErrChunkNotFound, tag)
}

// FindAll 直下のチャンクから同じタグを全て集める
func FindAll(data []byte, tag string, small bool) []Chunk {
	children, _ := Children(data, small)
	var out []Chunk
	for _, c := range children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}
