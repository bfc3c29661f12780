package resource

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zurustar/scumm-et/pkg/binio"
)

// ErrOutOfRange は存在しないリソース番号を指定したときに返される
var ErrOutOfRange = errors.New("resource id out of range")

// ErrBadIndex はインデックスファイルが解析できないときに返される
var ErrBadIndex = errors.New("malformed index file")

// Type はリソースの種類
type Type int

const (
	TypeRoom Type = iota
	TypeScript
	TypeSound
	TypeCostume
	TypeCharset
	numTypes
)

func (t Type) String() string {
	switch t {
	case TypeRoom:
		return "room"
	case TypeScript:
		return "script"
	case TypeSound:
		return "sound"
	case TypeCostume:
		return "costume"
	case TypeCharset:
		return "charset"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// OwnerRoom はルームに属するオブジェクトの所有者値
const OwnerRoom = 0x0F

// Directory はリソース種別ごとの (ルーム番号, ルーム内オフセット) 表
// ルームディレクトリではルーム番号の代わりにディスク番号が入る
type Directory struct {
	Rooms   []uint8
	Offsets []uint32
}

// Len エントリー数を返す
func (d Directory) Len() int {
	return len(d.Rooms)
}

// Maxs はMAXSチャンクのリソース上限値
type Maxs struct {
	NumVariables     int
	NumBitVariables  int
	NumLocalObjects  int
	NumArrays        int
	NumVerbs         int
	NumFlObjects     int
	NumInventory     int
	NumRooms         int
	NumScripts       int
	NumSounds        int
	NumCharsets      int
	NumCostumes      int
	NumGlobalObjects int
	NumNewNames      int
}

// ObjectTable はグローバルオブジェクトの所有者・状態・クラス
type ObjectTable struct {
	Owner []uint8
	State []uint8
	Class []uint32
	Room  []uint8
	Names map[string]int
}

// Index は解析済みインデックスファイル
type Index struct {
	Version   int
	Small     bool
	RoomNames map[int]string
	Maxs      Maxs
	Dirs      [numTypes]Directory
	Objects   ObjectTable
}

// Dir 種別ごとのディレクトリを返す
func (idx *Index) Dir(t Type) Directory {
	if t < 0 || t >= numTypes {
		return Directory{}
	}
	return idx.Dirs[t]
}

var bigDirTags = map[string]Type{
	"DROO": TypeRoom,
	"DSCR": TypeScript,
	"DSOU": TypeSound,
	"DCOS": TypeCostume,
	"DCHR": TypeCharset,
}

var smallDirTags = map[string]Type{
	"0R": TypeRoom,
	"0S": TypeScript,
	"0N": TypeSound,
	"0C": TypeCostume,
}

// ParseIndex XORデコード済みのインデックスファイルを解析する
func ParseIndex(data []byte, version int, small bool) (*Index, error) {
	idx := &Index{
		Version:   version,
		Small:     small,
		RoomNames: make(map[int]string),
	}

	chunks, err := Children(data, small)
	if err != nil && len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}

	for _, c := range chunks {
		if err := idx.parseChunk(c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadIndex, c.Tag, err)
		}
	}
	return idx, nil
}

func (idx *Index) parseChunk(c Chunk) error {
	r := binio.NewReader(c.Payload)

	if idx.Small {
		if t, ok := smallDirTags[c.Tag]; ok {
			d, err := readDirectory(r, idx.Version, true)
			idx.Dirs[t] = d
			return err
		}
		switch c.Tag {
		case "RN":
			return idx.readRoomNames(r)
		case "0O":
			return idx.readObjectsSmall(r)
		}
		return nil
	}

	if t, ok := bigDirTags[c.Tag]; ok {
		d, err := readDirectory(r, idx.Version, false)
		idx.Dirs[t] = d
		return err
	}
	switch c.Tag {
	case "RNAM":
		return idx.readRoomNames(r)
	case "MAXS":
		return idx.readMaxs(r)
	case "DOBJ":
		return idx.readObjects(r)
	}
	return nil
}

// readDirectory はv8以外は件数u16、v8はu32
// 小ヘッダでは (ルーム, オフセット) が交互、それ以外はルーム列の後にオフセット列
func readDirectory(r *binio.Reader, version int, small bool) (Directory, error) {
	var n int
	if version >= 8 {
		v, err := r.ReadU32()
		if err != nil {
			return Directory{}, err
		}
		n = int(v)
	} else {
		v, err := r.ReadU16()
		if err != nil {
			return Directory{}, err
		}
		n = int(v)
	}
	if n > r.Remaining() {
		return Directory{}, fmt.Errorf("directory count %d exceeds data", n)
	}

	d := Directory{
		Rooms:   make([]uint8, n),
		Offsets: make([]uint32, n),
	}
	if small {
		for i := 0; i < n; i++ {
			room, err := r.ReadU8()
			if err != nil {
				return d, err
			}
			off, err := r.ReadU32()
			if err != nil {
				return d, err
			}
			d.Rooms[i] = room
			d.Offsets[i] = off
		}
		return d, nil
	}

	for i := 0; i < n; i++ {
		room, err := r.ReadU8()
		if err != nil {
			return d, err
		}
		d.Rooms[i] = room
	}
	for i := 0; i < n; i++ {
		off, err := r.ReadU32()
		if err != nil {
			return d, err
		}
		d.Offsets[i] = off
	}
	return d, nil
}

// readRoomNames はルーム番号0で終端、名前は9バイトで0xFFとXORされている
func (idx *Index) readRoomNames(r *binio.Reader) error {
	for r.Remaining() > 0 {
		room, err := r.ReadU8()
		if err != nil {
			return err
		}
		if room == 0 {
			return nil
		}
		raw, err := r.ReadBytes(9)
		if err != nil {
			return err
		}
		name := make([]byte, len(raw))
		copy(name, raw)
		binio.XORBytes(name, 0xFF)
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		idx.RoomNames[int(room)] = string(name)
	}
	return nil
}

func (idx *Index) readMaxs(r *binio.Reader) error {
	m := &idx.Maxs
	switch {
	case idx.Version >= 8:
		if err := r.Skip(100); err != nil {
			return err
		}
		var unk int
		return readU32s(r,
			&m.NumVariables, &m.NumBitVariables, &unk,
			&m.NumScripts, &m.NumSounds, &m.NumCharsets, &m.NumCostumes,
			&m.NumRooms, &unk, &m.NumGlobalObjects, &unk,
			&m.NumLocalObjects, &m.NumNewNames, &m.NumFlObjects,
			&m.NumInventory, &m.NumArrays, &m.NumVerbs)
	case idx.Version == 7:
		if err := r.Skip(100); err != nil {
			return err
		}
		var unk int
		return readU16s(r,
			&m.NumVariables, &m.NumBitVariables, &unk,
			&m.NumGlobalObjects, &m.NumLocalObjects, &m.NumNewNames,
			&m.NumVerbs, &m.NumFlObjects, &m.NumInventory, &m.NumArrays,
			&m.NumRooms, &m.NumScripts, &m.NumSounds, &m.NumCharsets,
			&m.NumCostumes)
	case idx.Version == 6:
		var unk int
		return readU16s(r,
			&m.NumVariables, &unk, &m.NumBitVariables, &m.NumLocalObjects,
			&m.NumArrays, &unk, &m.NumVerbs, &m.NumFlObjects,
			&m.NumInventory, &m.NumRooms, &m.NumScripts, &m.NumSounds,
			&m.NumCharsets, &m.NumCostumes, &m.NumGlobalObjects,
			&m.NumNewNames)
	default:
		var unk int
		return readU16s(r,
			&m.NumVariables, &unk, &m.NumBitVariables, &m.NumLocalObjects,
			&unk, &m.NumCharsets, &unk, &unk, &m.NumInventory)
	}
}

func readU16s(r *binio.Reader, dst ...*int) error {
	for _, p := range dst {
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		*p = int(v)
	}
	return nil
}

func readU32s(r *binio.Reader, dst ...*int) error {
	for _, p := range dst {
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		*p = int(v)
	}
	return nil
}

func (idx *Index) allocObjects(n int) {
	idx.Objects.Owner = make([]uint8, n)
	idx.Objects.State = make([]uint8, n)
	idx.Objects.Class = make([]uint32, n)
}

// readObjects はDOBJチャンクを読む
func (idx *Index) readObjects(r *binio.Reader) error {
	switch {
	case idx.Version >= 8:
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		idx.allocObjects(int(n))
		idx.Objects.Room = make([]uint8, n)
		idx.Objects.Names = make(map[string]int, n)
		for i := 0; i < int(n); i++ {
			raw, err := r.ReadBytes(40)
			if err != nil {
				return err
			}
			if j := bytes.IndexByte(raw, 0); j >= 0 {
				raw = raw[:j]
			}
			idx.Objects.Names[string(raw)] = i
			if idx.Objects.State[i], err = r.ReadU8(); err != nil {
				return err
			}
			if idx.Objects.Room[i], err = r.ReadU8(); err != nil {
				return err
			}
			if idx.Objects.Class[i], err = r.ReadU32(); err != nil {
				return err
			}
			idx.Objects.Owner[i] = OwnerRoom
		}
		return nil

	case idx.Version == 7:
		n, err := r.ReadU16()
		if err != nil {
			return err
		}
		idx.allocObjects(int(n))
		idx.Objects.Room = make([]uint8, n)
		for i := 0; i < int(n); i++ {
			if idx.Objects.State[i], err = r.ReadU8(); err != nil {
				return err
			}
		}
		for i := 0; i < int(n); i++ {
			if idx.Objects.Room[i], err = r.ReadU8(); err != nil {
				return err
			}
		}
		for i := 0; i < int(n); i++ {
			if idx.Objects.Class[i], err = r.ReadU32(); err != nil {
				return err
			}
			idx.Objects.Owner[i] = OwnerRoom
		}
		return nil

	default:
		n, err := r.ReadU16()
		if err != nil {
			return err
		}
		idx.allocObjects(int(n))
		for i := 0; i < int(n); i++ {
			b, err := r.ReadU8()
			if err != nil {
				return err
			}
			idx.Objects.Owner[i] = b & 0x0F
			idx.Objects.State[i] = b >> 4
		}
		for i := 0; i < int(n); i++ {
			if idx.Objects.Class[i], err = r.ReadU32(); err != nil {
				return err
			}
		}
		return nil
	}
}

// readObjectsSmall は小ヘッダの0Oチャンク: クラス24ビット + 所有者/状態1バイト
func (idx *Index) readObjectsSmall(r *binio.Reader) error {
	n, err := r.ReadU16()
	if err != nil {
		return err
	}
	idx.allocObjects(int(n))
	for i := 0; i < int(n); i++ {
		b, err := r.ReadBytes(4)
		if err != nil {
			return err
		}
		idx.Objects.Class[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		idx.Objects.Owner[i] = b[3] & 0x0F
		idx.Objects.State[i] = b[3] >> 4
	}
	return nil
}
