package vm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zurustar/scumm-et/pkg/costume"
	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/savegame"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// Save request kinds, as scripts pass them.
const (
	saveRequest = 1
	loadRequest = 2
)

// saveLoadRequest is a save or load a script asked for. It runs at the
// end of the tick, when no script is mid-instruction.
type saveLoadRequest struct {
	kind int
	slot int
}

func (vm *VM) requestSaveLoad(kind, slot int) {
	if kind != saveRequest && kind != loadRequest {
		vm.faultf(ErrorVariableRange, "save/load request kind %d", kind)
	}
	vm.saveLoad = saveLoadRequest{kind: kind, slot: slot}
}

// saveLoadGame is the v5 save/load query. The top three bits of a pick
// the operation, the low five the slot.
func (vm *VM) saveLoadGame(a int) int32 {
	slot := a & 0x1F
	switch a & 0xE0 {
	case 0x00:
		return 100
	case 0x40:
		if vm.saves == nil || !vm.saves.Exists(slot) {
			return 5
		}
		vm.requestSaveLoad(loadRequest, slot)
		return 3
	case 0x80:
		if vm.saves == nil {
			return 2
		}
		vm.requestSaveLoad(saveRequest, slot)
		return 0
	case 0xC0:
		if vm.saves != nil && vm.saves.Exists(slot) {
			return 6
		}
		return 7
	}
	vm.unsupported("saveLoadGame", a&0xE0)
	return 0
}

// processSaveLoad carries out a pending request. Failures are logged;
// the scripts already got their result code.
func (vm *VM) processSaveLoad() {
	req := vm.saveLoad
	if req.kind == 0 {
		return
	}
	vm.saveLoad = saveLoadRequest{}
	log := logger.Channel("save")
	if vm.saves == nil {
		log.Warn("Save request without a save store", "kind", req.kind, "slot", req.slot)
		return
	}

	switch req.kind {
	case saveRequest:
		var buf bytes.Buffer
		desc := fmt.Sprintf("%s room %d", vm.cfg.GameID, vm.roomID)
		if err := vm.SaveState(&buf, desc); err != nil {
			log.Error("Save failed", "slot", req.slot, "error", err)
			return
		}
		if err := vm.saves.Save(req.slot, buf.Bytes()); err != nil {
			log.Error("Save failed", "slot", req.slot, "error", err)
			return
		}
		log.Info("Game saved", "slot", req.slot)
	case loadRequest:
		data, err := vm.saves.Load(req.slot)
		if err != nil {
			log.Error("Load failed", "slot", req.slot, "error", err)
			return
		}
		if err := vm.LoadState(data); err != nil {
			log.Error("Load failed", "slot", req.slot, "error", err)
			return
		}
		log.Info("Game loaded", "slot", req.slot)
	}
}

// SaveState writes the session to w as a framed save file.
func (vm *VM) SaveState(w io.Writer, desc string) error {
	if vm.current != noSlot {
		return fmt.Errorf("save while script %d is running", vm.slots[vm.current].Number)
	}
	s := savegame.NewSaver()
	vm.serialize(s)
	if err := s.Err(); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return savegame.Encode(w, desc, s.Bytes())
}

// LoadState replaces the session with a save file's contents.
func (vm *VM) LoadState(data []byte) (err error) {
	h, body, err := savegame.Decode(data)
	if err != nil {
		return err
	}
	defer vm.recoverFault(&err)

	s := savegame.NewLoader(body, h.Version)
	vm.serialize(s)
	if err := s.Err(); err != nil {
		return fmt.Errorf("load %q: %w", h.Description, err)
	}
	vm.afterLoad()
	return nil
}

// afterLoad rebuilds what the save does not carry: the room data, the
// slots' code and the actors' costume decoders.
func (vm *VM) afterLoad() {
	vm.current = noSlot
	vm.stack = vm.stack[:0]
	vm.room, vm.matrix = nil, nil
	if vm.roomID != 0 {
		vm.attachRoom(vm.roomID)
		vm.applyBoxEdits()
	}
	vm.loadedBoxes = nil
	for i := range vm.slots {
		s := &vm.slots[i]
		s.code = nil
		if s.Status != StatusDead {
			s.code = vm.loadSlotCode(s)
		}
	}
	for _, a := range vm.actors[1:] {
		a.decoder = nil
		a.Cost.Queue = a.Cost.Queue[:0]
		if a.Costume != 0 {
			a.decoder = vm.costumeDecoder(a.Costume)
		}
	}
	if len(vm.palette) > 0 {
		vm.display.SetPalette(vm.palette)
	}
	vm.publishCursor()
}

// serialize walks the whole session in save order. New fields go at the
// end of their group inside s.Field(version, 0, ...).
func (vm *VM) serialize(s *savegame.Serializer) {
	s.Int(&vm.roomID)
	s.FixedI32s(vm.vars)
	s.FixedU8s(vm.bitVars)
	s.FixedU8s(vm.owners)
	s.FixedU8s(vm.states)
	s.FixedU32s(vm.classes)
	s.FixedU8s(vm.objRooms)
	fixedInts(s, vm.inv)
	vm.serializeNames(s)
	vm.serializeArrays(s)

	vm.serializeSlots(s)
	vm.serializeCutscenes(s)

	vm.serializeCamera(s)
	n := s.Count(len(vm.cycles))
	if !s.Saving() {
		vm.cycles = make([]ColorCycle, n)
	}
	for i := range vm.cycles {
		c := &vm.cycles[i]
		s.Int(&c.Counter)
		s.Int(&c.Delay)
		s.Int(&c.Flags)
		s.Int(&c.Start)
		s.Int(&c.End)
	}
	s.Blob(&vm.palette)

	vm.serializeVerbs(s)
	vm.serializeText(s)
	for _, a := range vm.actors[1:] {
		serializeActor(s, a)
	}

	s.Int(&vm.printActor)
	s.Int(&vm.curActor)
	s.Int(&vm.curVerb)
	s.Int(&vm.curVerbSlot)
	s.Int(&vm.userPut)
	s.Int(&vm.cursorState)
	ticks := int(vm.ticks)
	s.Int(&ticks)
	vm.ticks = int64(ticks)

	s.Field(2, 0, func() { vm.serializeBoxes(s) })
}

// boxEdits are the script-changed parts of the current room's walkboxes.
type boxEdits struct {
	flags  []uint8
	scales []uint16
	slots  []walkbox.ScaleSlot
}

func (vm *VM) serializeBoxes(s *savegame.Serializer) {
	e := &boxEdits{}
	if s.Saving() && vm.room != nil {
		for _, b := range vm.room.Boxes {
			e.flags = append(e.flags, b.Flags)
			e.scales = append(e.scales, b.Scale)
		}
		e.slots = vm.room.Scales
	}

	n := s.Count(len(e.flags))
	if !s.Saving() {
		e.flags = make([]uint8, n)
		e.scales = make([]uint16, n)
	}
	for i := range e.flags {
		s.U8(&e.flags[i])
		s.U16(&e.scales[i])
	}
	n = s.Count(len(e.slots))
	if !s.Saving() {
		e.slots = make([]walkbox.ScaleSlot, n)
	}
	for i := range e.slots {
		sl := &e.slots[i]
		s.Int(&sl.Scale1)
		s.Int(&sl.Y1)
		s.Int(&sl.Scale2)
		s.Int(&sl.Y2)
	}
	if !s.Saving() && s.Err() == nil {
		vm.loadedBoxes = e
	}
}

// applyBoxEdits puts saved box flags and scales back on the freshly
// attached room. Changed flags mean the stored matrix is stale.
func (vm *VM) applyBoxEdits() {
	e := vm.loadedBoxes
	if e == nil || vm.room == nil {
		return
	}
	if len(e.flags) != len(vm.room.Boxes) {
		logger.Channel("save").Warn("Saved boxes do not match room", "room", vm.roomID,
			"saved", len(e.flags), "room_boxes", len(vm.room.Boxes))
		return
	}
	rebuild := false
	for i := range vm.room.Boxes {
		b := &vm.room.Boxes[i]
		rebuild = rebuild || b.Flags != e.flags[i]
		b.Flags, b.Scale = e.flags[i], e.scales[i]
	}
	vm.room.Scales = e.slots
	if rebuild {
		vm.createBoxMatrix()
	}
}

func fixedInts(s *savegame.Serializer, p []int) {
	n := s.Count(len(p))
	if s.Saving() {
		for i := range p {
			s.Int(&p[i])
		}
		return
	}
	for i := 0; i < n; i++ {
		var v int
		s.Int(&v)
		if i < len(p) {
			p[i] = v
		}
	}
}

func (vm *VM) serializeNames(s *savegame.Serializer) {
	for _, m := range []map[int][]byte{vm.newNames, vm.strings} {
		if s.Saving() {
			s.Count(len(m))
			for id, name := range m {
				s.Int(&id)
				s.Blob(&name)
			}
			continue
		}
		clear(m)
		n := s.Count(0)
		for range n {
			var id int
			var name []byte
			s.Int(&id)
			s.Blob(&name)
			if s.Err() == nil {
				m[id] = name
			}
		}
	}
}

func (vm *VM) serializeArrays(s *savegame.Serializer) {
	if s.Saving() {
		s.Count(len(vm.arrays))
		for _, a := range vm.arrays {
			serializeArray(s, a)
		}
		return
	}
	clear(vm.arrays)
	n := s.Count(0)
	for range n {
		a := &Array{}
		serializeArray(s, a)
		if s.Err() == nil {
			vm.arrays[a.ID] = a
		}
	}
}

func serializeArray(s *savegame.Serializer, a *Array) {
	t := uint8(a.Type)
	s.Int(&a.ID)
	s.U8(&t)
	a.Type = ArrayType(t)
	s.Int(&a.Dim1)
	s.Int(&a.Dim2)
	s.Int(&a.slot)
	s.Bool(&a.wide)
	s.I32s(&a.data)
}

func (vm *VM) serializeSlots(s *savegame.Serializer) {
	n := s.Count(len(vm.slots))
	if !s.Saving() && n != len(vm.slots) {
		vm.faultf(ErrorVariableRange, "save has %d script slots, engine has %d", n, len(vm.slots))
	}
	for i := range vm.slots {
		sl := &vm.slots[i]
		status, where := uint8(sl.Status), uint8(sl.Where)
		s.Int(&sl.Number)
		s.Int(&sl.Offset)
		s.U8(&status)
		s.U8(&where)
		sl.Status, sl.Where = SlotStatus(status), Where(where)
		s.I32(&sl.Delay)
		s.Bool(&sl.FreezeResistant)
		s.Bool(&sl.Recursive)
		s.U8(&sl.FreezeCount)
		s.Bool(&sl.DidExec)
		s.U8(&sl.CutsceneOverride)
		s.U8(&sl.Cycle)
		s.FixedI32s(sl.Locals)
		s.I32(&sl.delayFrames)
	}

	n = s.Count(len(vm.nest))
	if !s.Saving() {
		vm.nest = vm.nest[:0]
		for range n {
			vm.nest = append(vm.nest, nestEntry{})
		}
	}
	for i := range vm.nest {
		e := &vm.nest[i]
		where := uint8(e.where)
		s.Int(&e.number)
		s.U8(&where)
		e.where = Where(where)
		s.Int(&e.slot)
	}
}

func (vm *VM) serializeCutscenes(s *savegame.Serializer) {
	c := &vm.cutscenes
	s.Int(&c.sp)
	s.Int(&c.scriptIndex)
	s.FixedI32s(c.data)
	fixedInts(s, c.script)
	fixedInts(s, c.ptr)
}

func (vm *VM) serializeCamera(s *savegame.Serializer) {
	c := &vm.camera
	mode := int(c.Mode)
	s.Int(&c.CurX)
	s.Int(&c.CurY)
	s.Int(&c.DestX)
	s.Int(&c.DestY)
	s.Int(&c.LastX)
	s.Int(&c.LastY)
	s.Int(&mode)
	c.Mode = CameraMode(mode)
	s.Int(&c.Follows)
	s.Bool(&c.MovingToActor)
	s.Int(&c.LeftTrigger)
	s.Int(&c.RightTrigger)
}

func (vm *VM) serializeVerbs(s *savegame.Serializer) {
	n := s.Count(len(vm.verbs))
	if !s.Saving() && n != len(vm.verbs) {
		vm.faultf(ErrorVariableRange, "save has %d verb slots, engine has %d", n, len(vm.verbs))
	}
	for i := range vm.verbs {
		v := &vm.verbs[i]
		s.Int(&v.ID)
		s.Int(&v.X)
		s.Int(&v.Y)
		s.Int(&v.Color)
		s.Int(&v.HiColor)
		s.Int(&v.DimColor)
		s.Int(&v.BkColor)
		s.Int(&v.Charset)
		s.Int(&v.Mode)
		s.Int(&v.SaveID)
		s.Int(&v.Key)
		s.Bool(&v.Center)
		s.Int(&v.Image)
		s.Blob(&v.Name)
	}

	n = s.Count(len(vm.sentences))
	if !s.Saving() {
		vm.sentences = vm.sentences[:0]
		for range n {
			vm.sentences = append(vm.sentences, Sentence{})
		}
	}
	for i := range vm.sentences {
		st := &vm.sentences[i]
		s.Int(&st.Verb)
		s.Bool(&st.Preposition)
		s.Int(&st.ObjectA)
		s.Int(&st.ObjectB)
		s.U8(&st.FreezeCount)
	}
}

func (vm *VM) serializeText(s *savegame.Serializer) {
	td := &vm.textDef
	for i := range td.Slots {
		t := &td.Slots[i]
		s.Int(&t.X)
		s.Int(&t.Y)
		s.Int(&t.Right)
		s.Int(&t.Color)
		s.Int(&t.Charset)
		s.Bool(&t.Center)
		s.Bool(&t.Overhead)
		s.Bool(&t.NoTalkAnim)
		s.Bool(&t.Wrapping)
		d := &t.defaults
		s.Int(&d.x)
		s.Int(&d.y)
		s.Int(&d.right)
		s.Int(&d.color)
		s.Int(&d.charset)
		s.Bool(&d.center)
		s.Bool(&d.overhead)
		s.Bool(&d.noTalk)
		s.Bool(&d.wrapping)
	}
	s.Int(&td.TalkDelay)
	s.Int(&td.Charset)
	s.Blob(&vm.message)
}

func serializeActor(s *savegame.Serializer, a *Actor) {
	name := []byte(a.Name)
	s.Blob(&name)
	a.Name = string(name)
	for _, p := range []*int{
		&a.Costume, &a.Room, &a.X, &a.Y, &a.Facing, &a.Elevation, &a.Width,
		&a.ScaleX, &a.ScaleY, &a.TalkColor, &a.TalkPosX, &a.TalkPosY, &a.Frame,
		&a.SpeedX, &a.SpeedY, &a.AnimSpeed, &a.Layer, &a.ShadowMode,
		&a.WalkScript, &a.TalkScript, &a.ForceClip, &a.DrawOffX, &a.DrawOffY,
		&a.Box, &a.Moving, &a.animProgress,
	} {
		s.Int(p)
	}
	s.Bool(&a.Visible)
	s.Bool(&a.IgnoreBoxes)
	s.Bool(&a.IgnoreTurns)
	s.Bool(&a.needRedraw)
	for _, p := range []*uint8{&a.InitFrame, &a.WalkFrame, &a.StandFrame, &a.TalkStartFrame, &a.TalkStopFrame} {
		s.U8(p)
	}
	s.FixedU8s(a.Palette[:])
	fixedInts(s, a.Sounds[:])

	for _, p := range []*int{
		&a.walkDest.X, &a.walkDest.Y, &a.walkDestBox, &a.walkDestDir,
		&a.walkNext.X, &a.walkNext.Y, &a.walkCurBox,
	} {
		s.Int(p)
	}
	serializeCostumeState(s, &a.Cost)
}

func serializeCostumeState(s *savegame.Serializer, st *costume.State) {
	s.FixedU8s(st.Active[:])
	for _, arr := range []*[costume.NumLimbs]uint16{&st.Curpos, &st.Start, &st.End, &st.Frame, &st.JumpOffset, &st.JumpCount} {
		for i := range arr {
			s.U16(&arr[i])
		}
	}
	s.U16(&st.Stopped)
	s.U16(&st.AnimCounter)
	s.U16(&st.SoundCounter)
	s.FixedU32s(st.CondMask[:])
	s.FixedI32s(st.AnimVars[:])
	s.Bool(&st.Flip)
}
