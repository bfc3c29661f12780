package resource

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/zurustar/scumm-et/pkg/binio"
	"github.com/zurustar/scumm-et/pkg/fileutil"
	"github.com/zurustar/scumm-et/pkg/logger"
)

// Layout はゲームのファイル構成
type Layout struct {
	Version     int
	SmallHeader bool
	IndexFile   string
	// DiskPatternはディスク番号（RoomPerFileならルーム番号）を受け取るfmt書式
	DiskPattern string
	RoomPerFile bool
	IndexXOR    byte
	DiskXOR     byte
}

type resKey struct {
	t  Type
	id int
}

type disk struct {
	data        []byte
	roomOffsets map[int]uint32
}

// Manager はセッション中のリソース取得とキャッシュを担う
// キャッシュは追加のみで破棄しない
type Manager struct {
	fs     fileutil.FileSystem
	layout Layout
	index  *Index
	log    *slog.Logger

	mu       sync.Mutex
	disks    map[string]*disk
	cache    map[resKey]Chunk
	rooms    map[int]*Room
	charsets map[int]*Charset
}

// NewManager インデックスファイルを読み込んでManagerを作成
func NewManager(fsys fileutil.FileSystem, layout Layout) (*Manager, error) {
	m := &Manager{
		fs:       fsys,
		layout:   layout,
		log:      logger.Channel("resource"),
		disks:    make(map[string]*disk),
		cache:    make(map[resKey]Chunk),
		rooms:    make(map[int]*Room),
		charsets: make(map[int]*Charset),
	}

	data, err := m.readFile(layout.IndexFile, layout.IndexXOR)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", layout.IndexFile, err)
	}
	idx, err := ParseIndex(data, layout.Version, layout.SmallHeader)
	if err != nil {
		return nil, err
	}
	m.index = idx

	m.log.Info("Index loaded",
		"file", layout.IndexFile,
		"rooms", idx.Dirs[TypeRoom].Len(),
		"scripts", idx.Dirs[TypeScript].Len(),
		"costumes", idx.Dirs[TypeCostume].Len(),
		"sounds", idx.Dirs[TypeSound].Len(),
		"objects", len(idx.Objects.Owner))

	// ディスクは必要になるまで開かないので、ここでは見つかった数だけ記録する
	if disks, err := fsys.Glob(diskGlob(layout.DiskPattern)); err == nil {
		m.log.Debug("Disk files", "pattern", layout.DiskPattern, "found", len(disks))
		if len(disks) == 0 {
			m.log.Warn("No disk files match the layout", "pattern", layout.DiskPattern)
		}
	}
	return m, nil
}

// diskGlob はディスク名の書式の数値部分をワイルドカードに置き換える
func diskGlob(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			b.WriteByte(pattern[i])
			continue
		}
		j := i + 1
		for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
			j++
		}
		if j < len(pattern) && pattern[j] == 'd' {
			b.WriteByte('*')
			i = j
			continue
		}
		b.WriteByte('%')
	}
	return b.String()
}

// Index 解析済みインデックスを返す
func (m *Manager) Index() *Index {
	return m.index
}

// Layout ファイル構成を返す
func (m *Manager) Layout() Layout {
	return m.layout
}

func (m *Manager) readFile(name string, key byte) ([]byte, error) {
	f, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(binio.NewXORReader(f, key))
}

// diskFor ルームを含むディスクを開く（読み込み済みならキャッシュから）
func (m *Manager) diskFor(room int) (*disk, string, error) {
	var name string
	if m.layout.RoomPerFile {
		name = fmt.Sprintf(m.layout.DiskPattern, room)
	} else {
		rooms := m.index.Dirs[TypeRoom]
		if room < 0 || room >= rooms.Len() {
			return nil, "", fmt.Errorf("%w: room %d (have %d)", ErrOutOfRange, room, rooms.Len())
		}
		name = fmt.Sprintf(m.layout.DiskPattern, rooms.Rooms[room])
	}

	if d, ok := m.disks[name]; ok {
		return d, name, nil
	}

	data, err := m.readFile(name, m.layout.DiskXOR)
	if err != nil {
		return nil, name, fmt.Errorf("failed to open disk %s: %w", name, err)
	}
	d := &disk{data: data, roomOffsets: make(map[int]uint32)}
	if !m.layout.RoomPerFile {
		if err := d.readRoomOffsets(m.layout.SmallHeader); err != nil {
			return nil, name, fmt.Errorf("disk %s: %w", name, err)
		}
	}
	m.disks[name] = d
	m.log.Debug("Disk opened", "file", name, "size", len(data), "rooms", len(d.roomOffsets))
	return d, name, nil
}

// readRoomOffsets はLECF>LOFF（小ヘッダではLE>FO）の (ルーム, オフセット) 表を読む
func (d *disk) readRoomOffsets(small bool) error {
	outerTag, tableTag := "LECF", "LOFF"
	if small {
		outerTag, tableTag = "LE", "FO"
	}
	outer, err := ReadChunk(d.data, 0, small)
	if err != nil {
		return err
	}
	if outer.Tag != outerTag {
		return fmt.Errorf("%w: expected %s, found %q", ErrBadChunk, outerTag, outer.Tag)
	}
	table, err := Find(outer.Payload, tableTag, small)
	if err != nil {
		return err
	}
	r := binio.NewReader(table.Payload)
	n, err := r.ReadU8()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		room, err := r.ReadU8()
		if err != nil {
			return err
		}
		off, err := r.ReadU32()
		if err != nil {
			return err
		}
		d.roomOffsets[int(room)] = off
	}
	return nil
}

// locate リソースの (ルーム, ルーム内オフセット) を返す
func (m *Manager) locate(t Type, id int) (int, uint32, error) {
	dir := m.index.Dir(t)
	if id < 0 || id >= dir.Len() {
		return 0, 0, fmt.Errorf("%w: %s %d (have %d)", ErrOutOfRange, t, id, dir.Len())
	}
	if t == TypeRoom {
		return id, 0, nil
	}
	return int(dir.Rooms[id]), dir.Offsets[id], nil
}

// Load リソースのチャンクを読む
// ファイル上の位置はルームのオフセット + リソースのオフセット
func (m *Manager) Load(t Type, id int) (Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(t, id)
}

func (m *Manager) load(t Type, id int) (Chunk, error) {
	key := resKey{t, id}
	if c, ok := m.cache[key]; ok {
		return c, nil
	}

	room, offset, err := m.locate(t, id)
	if err != nil {
		return Chunk{}, err
	}
	if t != TypeRoom && room == 0 {
		return Chunk{}, fmt.Errorf("%w: %s %d is not assigned to a room", ErrOutOfRange, t, id)
	}

	d, name, err := m.diskFor(room)
	if err != nil {
		return Chunk{}, err
	}

	var roomOff uint32
	if !m.layout.RoomPerFile {
		off, ok := d.roomOffsets[room]
		if !ok {
			return Chunk{}, fmt.Errorf("%w: room %d not listed in %s", ErrOutOfRange, room, name)
		}
		roomOff = off
	}

	c, err := ReadChunk(d.data, int(roomOff+offset), m.layout.SmallHeader)
	if err != nil {
		return Chunk{}, fmt.Errorf("%s %d in %s: %w", t, id, name, err)
	}
	if t == TypeRoom {
		c, err = unwrapRoom(c, m.layout.SmallHeader)
		if err != nil {
			return Chunk{}, fmt.Errorf("room %d in %s: %w", id, name, err)
		}
	}

	m.cache[key] = c
	m.log.Debug("Resource loaded", "type", t.String(), "id", id, "tag", c.Tag, "size", c.Size())
	return c, nil
}

// unwrapRoom はオフセットがLFLF/LFを指していればROOM/ROを取り出す
func unwrapRoom(c Chunk, small bool) (Chunk, error) {
	switch c.Tag {
	case "ROOM", "RO":
		return c, nil
	case "LFLF":
		return Find(c.Payload, "ROOM", false)
	case "LF":
		// 先頭2バイトはルーム番号
		if len(c.Payload) < 2 {
			return Chunk{}, ErrBadChunk
		}
		return Find(c.Payload[2:], "RO", true)
	}
	return Chunk{}, fmt.Errorf("%w: unexpected room tag %q", ErrBadChunk, c.Tag)
}

// GetScript グローバルスクリプトのバイトコードを返す
func (m *Manager) GetScript(id int) ([]byte, error) {
	c, err := m.Load(TypeScript, id)
	if err != nil {
		return nil, err
	}
	return c.Payload, nil
}

// GetCostume コスチュームリソース全体（ヘッダ込み）を返す
func (m *Manager) GetCostume(id int) ([]byte, error) {
	c, err := m.Load(TypeCostume, id)
	if err != nil {
		return nil, err
	}
	return c.Data, nil
}

// GetSound サウンドリソースを返す
func (m *Manager) GetSound(id int) (Chunk, error) {
	return m.Load(TypeSound, id)
}

// GetRoom デコード済みルームを返す
func (m *Manager) GetRoom(id int) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.rooms[id]; ok {
		return rm, nil
	}
	c, err := m.load(TypeRoom, id)
	if err != nil {
		return nil, err
	}
	rm, err := ParseRoom(id, c.Payload, m.layout.Version, m.layout.SmallHeader)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = rm
	m.log.Debug("Room decoded", "room", id, "name", m.index.RoomNames[id],
		"boxes", len(rm.Boxes), "objects", len(rm.Objects), "local_scripts", len(rm.LocalScripts))
	return rm, nil
}

// GetCharset 文字セットを返す
func (m *Manager) GetCharset(id int) (*Charset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cs, ok := m.charsets[id]; ok {
		return cs, nil
	}
	c, err := m.load(TypeCharset, id)
	if err != nil {
		return nil, err
	}
	cs, err := ParseCharset(id, c.Data, m.layout.Version)
	if err != nil {
		return nil, err
	}
	m.charsets[id] = cs
	return cs, nil
}

// IsOutOfRange はエラーが存在しないリソース番号によるものかを返す
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}
