package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zurustar/scumm-et/pkg/binio"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// Cycle はパレットサイクルの1エントリー
type Cycle struct {
	Index int // 1..16
	Delay int
	Flags int
	Start int
	End   int
}

// Object はルームに置かれたオブジェクトのコードとメタデータ
type Object struct {
	ID   int
	Name string
	// Parent はルーム内オブジェクトの1始まりの番号(0なら親なし)。
	// 子は親の状態がParentStateのときだけ見え、触れる。
	Parent      int
	ParentState int
	X, Y        int
	Width       int
	Height      int
	// Codeはオブジェクトチャンク全体、Verbsは動詞番号からCode内オフセットへの表
	Code  []byte
	Verbs map[int]int
}

// DefaultVerb はどの動詞にも一致するエントリー
const DefaultVerb = 0xFF

// VerbOffset 動詞のエントリーポイントを返す
func (o *Object) VerbOffset(verb int) (int, bool) {
	if off, ok := o.Verbs[verb]; ok {
		return off, true
	}
	off, ok := o.Verbs[DefaultVerb]
	return off, ok
}

// Room はデコード済みのルーム
type Room struct {
	ID           int
	Width        int
	Height       int
	NumObjects   int
	Palette      []byte // RGB x 256
	Cycles       []Cycle
	Boxes        []walkbox.Box
	BoxMatrix    []byte
	Scales       []walkbox.ScaleSlot
	EntryScript  []byte
	ExitScript   []byte
	LocalScripts map[int][]byte
	Objects      []*Object
}

// Object IDでオブジェクトを探す
func (rm *Room) Object(id int) *Object {
	for _, o := range rm.Objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Matrix ルームの箱行列をデコードする
// ルームに行列が無い場合は箱から計算する
func (rm *Room) Matrix() (*walkbox.Matrix, error) {
	if len(rm.BoxMatrix) > 0 {
		return walkbox.DecodeRoom(rm.BoxMatrix), nil
	}
	return walkbox.Decode(walkbox.BuildMatrix(rm.Boxes))
}

// ParseRoom ROOM(小ヘッダではRO)チャンクの中身をデコードする
func ParseRoom(id int, payload []byte, version int, small bool) (*Room, error) {
	rm := &Room{ID: id, LocalScripts: make(map[int][]byte)}

	children, err := Children(payload, small)
	if err != nil && len(children) == 0 {
		return nil, fmt.Errorf("room %d: %w", id, err)
	}

	// v8ではスクリプトとオブジェクトコードがRMSCの下にある
	for _, c := range children {
		if c.Tag == "RMSC" {
			sub, _ := Children(c.Payload, small)
			children = append(children, sub...)
		}
	}

	for _, c := range children {
		if err := rm.parseChunk(c, version, small); err != nil {
			return nil, fmt.Errorf("room %d: %s: %w", id, c.Tag, err)
		}
	}
	return rm, nil
}

func (rm *Room) parseChunk(c Chunk, version int, small bool) error {
	switch c.Tag {
	case "RMHD", "HD":
		return rm.parseHeader(c.Payload, version)
	case "CLUT", "PA":
		rm.Palette = parsePalette(c.Payload, small)
	case "PALS":
		if apal, err := FindDeep(c.Payload, "APAL", false); err == nil {
			rm.Palette = parsePalette(apal.Payload, false)
		}
	case "CYCL":
		rm.Cycles = parseCycles(c.Payload)
	case "BOXD", "BX":
		boxes, rest, err := parseBoxes(c.Payload, version, small)
		if err != nil {
			return err
		}
		rm.Boxes = boxes
		if small && len(rest) > 0 {
			rm.BoxMatrix = rest
		}
	case "BOXM", "BM":
		rm.BoxMatrix = c.Payload
	case "SCAL", "SA":
		rm.Scales = parseScales(c.Payload)
	case "ENCD", "EN":
		rm.EntryScript = c.Payload
	case "EXCD", "EX":
		rm.ExitScript = c.Payload
	case "LSCR", "LS":
		num, code, err := parseLocalScript(c.Payload, version)
		if err != nil {
			return err
		}
		rm.LocalScripts[num] = code
	case "OBCD":
		obj, err := parseObjectCode(c, version)
		if err != nil {
			return err
		}
		rm.Objects = append(rm.Objects, obj)
	case "OC":
		obj, err := parseObjectCodeSmall(c)
		if err != nil {
			return err
		}
		rm.Objects = append(rm.Objects, obj)
	}
	return nil
}

func (rm *Room) parseHeader(p []byte, version int) error {
	r := binio.NewReader(p)
	switch {
	case version >= 8:
		var ver, w, h, n int
		if err := readU32s(r, &ver, &w, &h, &n); err != nil {
			return err
		}
		rm.Width, rm.Height, rm.NumObjects = w, h, n
	case version == 7:
		if err := r.Skip(4); err != nil {
			return err
		}
		fallthrough
	default:
		var w, h, n int
		if err := readU16s(r, &w, &h, &n); err != nil {
			return err
		}
		rm.Width, rm.Height, rm.NumObjects = w, h, n
	}
	return nil
}

func parsePalette(p []byte, small bool) []byte {
	if small && len(p) >= 2 {
		// PAは先頭に色数を持つ
		n := int(binary.LittleEndian.Uint16(p))
		p = p[2:]
		if n*3 < len(p) {
			p = p[:n*3]
		}
	}
	if len(p) > 768 {
		p = p[:768]
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

// parseCycles はインデックス0で終端
// 各エントリー: 未使用2バイト、レートBE16、フラグBE16、開始色、終了色
func parseCycles(p []byte) []Cycle {
	var out []Cycle
	pos := 0
	for pos < len(p) {
		j := int(p[pos])
		pos++
		if j == 0 || pos+8 > len(p) {
			break
		}
		rate := int(binary.BigEndian.Uint16(p[pos+2:]))
		c := Cycle{
			Index: j,
			Flags: int(binary.BigEndian.Uint16(p[pos+4:])),
			Start: int(p[pos+6]),
			End:   int(p[pos+7]),
		}
		if rate != 0 {
			c.Delay = 16384 / rate
		}
		pos += 8
		if j < 1 || j > 16 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// parseBoxes は箱の配列を読み、残りのバイトを返す
func parseBoxes(p []byte, version int, small bool) ([]walkbox.Box, []byte, error) {
	r := binio.NewReader(p)
	var n int
	switch {
	case version >= 8:
		v, err := r.ReadU32()
		if err != nil {
			return nil, nil, err
		}
		n = int(v)
	case version >= 5 && !small:
		v, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		n = int(v)
	default:
		v, err := r.ReadU8()
		if err != nil {
			return nil, nil, err
		}
		n = int(v)
	}

	boxes := make([]walkbox.Box, 0, n)
	for i := 0; i < n; i++ {
		var b walkbox.Box
		if version >= 8 {
			var c [8]int
			var mask, flags, scaleSlot, scale, unk int
			if err := readU32s(r, &c[0], &c[1], &c[2], &c[3], &c[4], &c[5], &c[6], &c[7],
				&mask, &flags, &scaleSlot, &scale, &unk, &unk); err != nil {
				return nil, nil, err
			}
			b = boxFromCoords(c)
			b.Mask = uint8(mask)
			b.Flags = uint8(flags)
			if scaleSlot != 0 {
				b.Scale = 0x8000 | uint16(scaleSlot)
			} else {
				b.Scale = uint16(scale)
			}
		} else {
			var c [8]int
			for k := range c {
				v, err := r.ReadI16()
				if err != nil {
					return nil, nil, err
				}
				c[k] = int(v)
			}
			b = boxFromCoords(c)
			var err error
			if b.Mask, err = r.ReadU8(); err != nil {
				return nil, nil, err
			}
			if b.Flags, err = r.ReadU8(); err != nil {
				return nil, nil, err
			}
			if b.Scale, err = r.ReadU16(); err != nil {
				return nil, nil, err
			}
		}
		boxes = append(boxes, b)
	}
	return boxes, p[r.Pos():], nil
}

func boxFromCoords(c [8]int) walkbox.Box {
	return walkbox.Box{
		UL: walkbox.Point{X: c[0], Y: c[1]},
		UR: walkbox.Point{X: c[2], Y: c[3]},
		LR: walkbox.Point{X: c[4], Y: c[5]},
		LL: walkbox.Point{X: c[6], Y: c[7]},
	}
}

func parseScales(p []byte) []walkbox.ScaleSlot {
	r := binio.NewReader(p)
	var out []walkbox.ScaleSlot
	for r.Remaining() >= 8 {
		var s1, y1, s2, y2 int
		if err := readU16s(r, &s1, &y1, &s2, &y2); err != nil {
			break
		}
		out = append(out, walkbox.ScaleSlot{Scale1: s1, Y1: y1, Scale2: s2, Y2: y2})
	}
	return out
}

// parseLocalScript はv8でu32、v7でu16、それ以前は1バイトのスクリプト番号を持つ
func parseLocalScript(p []byte, version int) (int, []byte, error) {
	r := binio.NewReader(p)
	var num int
	switch {
	case version >= 8:
		v, err := r.ReadU32()
		if err != nil {
			return 0, nil, err
		}
		num = int(v)
	case version == 7:
		v, err := r.ReadU16()
		if err != nil {
			return 0, nil, err
		}
		num = int(v)
	default:
		v, err := r.ReadU8()
		if err != nil {
			return 0, nil, err
		}
		num = int(v)
	}
	return num, p[r.Pos():], nil
}

func parseObjectCode(c Chunk, version int) (*Object, error) {
	obj := &Object{Code: c.Data, Verbs: make(map[int]int)}
	children, _ := Children(c.Payload, false)

	for _, ch := range children {
		switch ch.Tag {
		case "CDHD":
			r := binio.NewReader(ch.Payload)
			if version >= 7 {
				if err := r.Skip(4); err != nil {
					return nil, err
				}
			}
			id, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			obj.ID = int(id)
			if version <= 5 && r.Remaining() >= 6 {
				b, _ := r.ReadBytes(6)
				obj.X, obj.Y = int(b[0])*8, int(b[1])*8
				obj.Width, obj.Height = int(b[2])*8, int(b[3])*8
				obj.ParentState = int(b[4])
				obj.Parent = int(b[5])
			} else if version == 6 && r.Remaining() >= 8 {
				var x, y, w, h int
				_ = readU16s(r, &x, &y, &w, &h)
				obj.X, obj.Y, obj.Width, obj.Height = x, y, w, h
				if b, err := r.ReadBytes(2); err == nil {
					obj.ParentState, obj.Parent = int(b[0]), int(b[1])
				}
			}
		case "VERB":
			// オフセットはVERBチャンク先頭基準、CodeはOBCD先頭から
			base := bigHeaderSize + ch.Offset
			if version >= 8 {
				parseVerbTable32(obj, ch.Payload, base)
			} else {
				parseVerbTable(obj, ch.Payload, base)
			}
		case "OBNA":
			name := ch.Payload
			if i := bytes.IndexByte(name, 0); i >= 0 {
				name = name[:i]
			}
			obj.Name = string(name)
		}
	}
	return obj, nil
}

// parseVerbTable は (動詞1バイト, u16オフセット) の並びで0終端
func parseVerbTable(obj *Object, p []byte, base int) {
	for pos := 0; pos+3 <= len(p); pos += 3 {
		verb := int(p[pos])
		if verb == 0 {
			return
		}
		off := int(binary.LittleEndian.Uint16(p[pos+1:]))
		if _, seen := obj.Verbs[verb]; !seen {
			obj.Verbs[verb] = base + off
		}
	}
}

// parseVerbTable32 は (動詞u32, オフセットu32) の並びで0終端
func parseVerbTable32(obj *Object, p []byte, base int) {
	for pos := 0; pos+8 <= len(p); pos += 8 {
		verb := int(binary.LittleEndian.Uint32(p[pos:]))
		if verb == 0 {
			return
		}
		off := int(binary.LittleEndian.Uint32(p[pos+4:]))
		if _, seen := obj.Verbs[verb]; !seen {
			obj.Verbs[verb] = base + off
		}
	}
}

// parseObjectCodeSmall はOCチャンク: 先頭6バイトヘッダの後にID、動詞表はチャンク先頭から19バイト目
func parseObjectCodeSmall(c Chunk) (*Object, error) {
	if len(c.Data) < 20 {
		return nil, fmt.Errorf("%w: object code too short (%d bytes)", ErrBadChunk, len(c.Data))
	}
	obj := &Object{Code: c.Data, Verbs: make(map[int]int)}
	obj.ID = int(binary.LittleEndian.Uint16(c.Data[6:]))
	obj.X = int(c.Data[9]) * 8
	obj.Y = int(c.Data[10]&0x7F) * 8
	obj.Width = int(c.Data[11]) * 8
	obj.Parent = int(c.Data[12])
	obj.Height = int(c.Data[17] & 0xF8)
	if c.Data[10]&0x80 != 0 {
		obj.ParentState = 1
	}
	parseVerbTable(obj, c.Data[19:], 0)

	nameOff := int(c.Data[18])
	if nameOff > 0 && nameOff < len(c.Data) {
		name := c.Data[nameOff:]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		obj.Name = string(name)
	}
	return obj, nil
}
