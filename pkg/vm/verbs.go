package vm

import "image"

// Verb modes.
const (
	verbOff = 0
	verbOn  = 1
	verbDim = 2
)

// Verb is one on-screen verb slot.
type Verb struct {
	ID       int
	X, Y     int
	Color    int
	HiColor  int
	DimColor int
	BkColor  int
	Charset  int
	Mode     int
	SaveID   int
	Key      int
	Center   bool
	Image    int
	Name     []byte
}

// Sentence is one queued player command.
type Sentence struct {
	Verb        int
	Preposition bool
	ObjectA     int
	ObjectB     int
	FreezeCount uint8
}

// rect is the verb's screen area, eight pixels per name byte.
func (v *Verb) rect() image.Rectangle {
	w := 8 * len(v.Name)
	if v.Center {
		return image.Rect(v.X-w/2, v.Y, v.X+w-w/2, v.Y+8)
	}
	return image.Rect(v.X, v.Y, v.X+w, v.Y+8)
}

// findVerbAtPos returns the id of the lit verb under (x, y), or 0.
func (vm *VM) findVerbAtPos(x, y int) int {
	p := image.Pt(x, y)
	for i := len(vm.verbs) - 1; i > 0; i-- {
		v := &vm.verbs[i]
		if v.ID == 0 || v.SaveID != 0 || v.Mode != verbOn {
			continue
		}
		if p.In(v.rect()) {
			return v.ID
		}
	}
	return 0
}

// verbSlot returns the slot holding verb id with the given save id, or 0.
func (vm *VM) verbSlot(id, saveID int) int {
	for i := 1; i < len(vm.verbs); i++ {
		if vm.verbs[i].ID == id && vm.verbs[i].SaveID == saveID {
			return i
		}
	}
	return 0
}

// newVerb claims a slot for verb id with default colours.
func (vm *VM) newVerb(id int) int {
	slot := vm.verbSlot(id, 0)
	if slot == 0 {
		for i := 1; i < len(vm.verbs); i++ {
			if vm.verbs[i].ID == 0 {
				slot = i
				break
			}
		}
		if slot == 0 {
			vm.faultf(ErrorSlotExhausted, "too many verbs (%d)", len(vm.verbs)-1)
		}
	}
	vm.verbs[slot] = Verb{
		ID:       id,
		Color:    2,
		DimColor: 8,
		Charset:  vm.textDef.Slots[slotTalk].defaults.charset,
	}
	return slot
}

func (vm *VM) killVerb(slot int) {
	if slot <= 0 || slot >= len(vm.verbs) {
		return
	}
	vm.verbs[slot] = Verb{}
}

// verbName returns the name of verb id.
func (vm *VM) verbName(id int) []byte {
	if slot := vm.verbSlot(id, 0); slot != 0 {
		return vm.verbs[slot].Name
	}
	return nil
}

// saveVerbs stashes verbs start..end under saveID and turns them off.
func (vm *VM) saveVerbs(start, end, saveID int) {
	for i := 1; i < len(vm.verbs); i++ {
		v := &vm.verbs[i]
		if v.ID >= start && v.ID <= end && v.SaveID == 0 {
			v.SaveID = saveID
			v.Mode = verbOff
		}
	}
}

// restoreVerbs brings back verbs stashed under saveID.
func (vm *VM) restoreVerbs(start, end, saveID int) {
	for i := 1; i < len(vm.verbs); i++ {
		v := &vm.verbs[i]
		if v.ID >= start && v.ID <= end && v.SaveID == saveID {
			if other := vm.verbSlot(v.ID, 0); other != 0 {
				vm.killVerb(other)
			}
			v.SaveID = 0
			v.Mode = verbOn
		}
	}
}

// deleteVerbs drops verbs start..end stashed under saveID.
func (vm *VM) deleteVerbs(start, end, saveID int) {
	for i := 1; i < len(vm.verbs); i++ {
		v := &vm.verbs[i]
		if v.ID >= start && v.ID <= end && v.SaveID == saveID {
			vm.killVerb(i)
		}
	}
}

// Verbs returns the active verb slots.
func (vm *VM) Verbs() []Verb {
	var out []Verb
	for _, v := range vm.verbs[1:] {
		if v.ID != 0 && v.SaveID == 0 {
			out = append(out, v)
		}
	}
	return out
}

// doSentence queues a sentence; the queue is consumed newest first.
func (vm *VM) doSentence(verb, objA, objB int) {
	if vm.cfg.Version >= 7 {
		if objA == objB {
			return
		}
		if n := len(vm.sentences); n > 0 {
			if last := vm.sentences[n-1]; last.Verb == verb && last.ObjectA == objA && last.ObjectB == objB {
				return
			}
		}
	}
	if len(vm.sentences) >= vm.cfg.MaxSentences {
		vm.faultf(ErrorSlotExhausted, "sentence queue full (%d)", vm.cfg.MaxSentences)
	}
	vm.sentences = append(vm.sentences, Sentence{
		Verb:        verb,
		Preposition: objB != 0,
		ObjectA:     objA,
		ObjectB:     objB,
	})
}

// clearSentences drops the queue and stops the running sentence script.
func (vm *VM) clearSentences() {
	vm.sentences = vm.sentences[:0]
	if n := vm.engineVar(vm.cfg.Vars.SentenceScript); n != 0 {
		vm.stopScript(int(n))
	}
}

// checkAndRunSentenceScript runs the sentence script for the newest
// queued sentence unless one is already running unfrozen.
func (vm *VM) checkAndRunSentenceScript() {
	sv := vm.cfg.Vars.SentenceScript
	if sv == NoVar {
		return
	}
	script := int(vm.engineVar(sv))
	if script != 0 && vm.isScriptInUse(script) {
		for i := range vm.slots {
			s := &vm.slots[i]
			if s.Number == script && s.Status != StatusDead && s.FreezeCount == 0 {
				return
			}
		}
	}
	n := len(vm.sentences)
	if n == 0 || vm.sentences[n-1].FreezeCount != 0 {
		return
	}
	st := vm.sentences[n-1]
	vm.sentences = vm.sentences[:n-1]
	if vm.cfg.Version < 7 && st.Preposition && st.ObjectB == st.ObjectA {
		return
	}
	vm.current = noSlot
	if script != 0 {
		vm.runScript(script, false, false, []int32{int32(st.Verb), int32(st.ObjectA), int32(st.ObjectB)})
	}
}
