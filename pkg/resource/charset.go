package resource

import (
	"encoding/binary"
	"fmt"
)

// Charset はビットマップフォントのメトリクス
type Charset struct {
	ID     int
	Height int
	font   []byte
}

// ParseCharset CHARリソース全体（ヘッダ込み）からフォント情報を取り出す
// v4ではフォント本体が17バイト目、それ以降は29バイト目から始まる
func ParseCharset(id int, data []byte, version int) (*Charset, error) {
	base := 29
	if version <= 4 {
		base = 17
	}
	if len(data) < base+4 {
		return nil, fmt.Errorf("%w: charset %d too short (%d bytes)", ErrBadChunk, id, len(data))
	}
	font := data[base:]
	return &Charset{ID: id, Height: int(font[1]), font: font}, nil
}

// CharWidth 1文字の送り幅を返す
func (cs *Charset) CharWidth(ch byte) int {
	p := int(ch)*4 + 4
	if p+4 > len(cs.font) {
		return 0
	}
	offs := int(binary.LittleEndian.Uint32(cs.font[p:]))
	if offs == 0 || offs+2 >= len(cs.font) {
		return 0
	}
	return int(cs.font[offs]) + int(int8(cs.font[offs+2]))
}

// StringWidth 最も長い行の幅を返す
// 0xFF/0xFEに続く制御コードは幅を持たない
func (cs *Charset) StringWidth(msg []byte) int {
	width, maxWidth := 0, 0
	for i := 0; i < len(msg); i++ {
		ch := msg[i]
		if ch == 0 {
			break
		}
		if ch == 0xFF || ch == 0xFE {
			i++
			if i >= len(msg) {
				break
			}
			switch msg[i] {
			case 1:
				if width > maxWidth {
					maxWidth = width
				}
				width = 0
			case 2, 3:
				i = len(msg)
			case 10:
				i += 14
			case 4, 5, 6, 7, 9, 12, 13, 14:
				i += 2
			}
			continue
		}
		width += cs.CharWidth(ch)
	}
	if width > maxWidth {
		maxWidth = width
	}
	return maxWidth
}
