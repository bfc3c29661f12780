package vm

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Message escape codes, introduced by 0xFF.
const (
	escNewline  = 1
	escKeepText = 2
	escWait     = 3
	escInt      = 4
	escVerb     = 5
	escName     = 6
	escString   = 7
	escNoop     = 8
	escAnim     = 9
	escSound    = 10
	escColor    = 12
	escUnknown  = 13
	escCharset  = 14
)

// passThroughEscape reports escapes that carry no parameter.
func passThroughEscape(code byte) bool {
	switch code {
	case escNewline, escKeepText, escWait, escNoop:
		return true
	}
	return false
}

// Text slots.
const (
	slotTalk   = 0
	slotPrint  = 1
	slotDebug  = 2
	slotSystem = 3
)

// TextSlot is the placement and colour of one kind of text.
type TextSlot struct {
	X, Y       int
	Right      int
	Color      int
	Charset    int
	Center     bool
	Overhead   bool
	NoTalkAnim bool
	Wrapping   bool
	defaults   textState
}

type textState struct {
	x, y, right, color, charset int
	center, overhead, noTalk    bool
	wrapping                    bool
}

func (t *TextSlot) loadDefault() {
	d := t.defaults
	t.X, t.Y, t.Right, t.Color, t.Charset = d.x, d.y, d.right, d.color, d.charset
	t.Center, t.Overhead, t.NoTalkAnim, t.Wrapping = d.center, d.overhead, d.noTalk, d.wrapping
}

func (t *TextSlot) saveDefault() {
	t.defaults = textState{
		x: t.X, y: t.Y, right: t.Right, color: t.Color, charset: t.Charset,
		center: t.Center, overhead: t.Overhead, noTalk: t.NoTalkAnim, wrapping: t.Wrapping,
	}
}

// TextDefaults holds the four text slots and the talk state.
type TextDefaults struct {
	Slots     [4]TextSlot
	TalkDelay int
	Charset   int
}

func defaultText() TextDefaults {
	var td TextDefaults
	for i := range td.Slots {
		s := &td.Slots[i]
		s.Right = 319
		s.Color = 15
		s.saveDefault()
	}
	return td
}

// convertMessage expands variable, verb, name and string escapes. Escapes
// the presentation layer interprets are copied through.
func (vm *VM) convertMessage(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+16)
	w := vm.escapeParamSize()
	for i := 0; i < len(msg); i++ {
		b := msg[i]
		if b != 0xFF {
			out = append(out, b)
			continue
		}
		if i+1 >= len(msg) {
			break
		}
		code := msg[i+1]
		i++
		if passThroughEscape(code) {
			out = append(out, 0xFF, code)
			continue
		}
		if i+w >= len(msg) {
			vm.faultf(ErrorEndOfScript, "message escape %d truncated", code)
		}
		param := msg[i+1 : i+1+w]
		i += w
		num := int(param[0]) | int(param[1])<<8
		if w == 4 {
			num |= int(param[2])<<16 | int(param[3])<<24
		}

		switch code {
		case escInt:
			out = strconv.AppendInt(out, int64(vm.readVar(num)), 10)
		case escVerb:
			out = append(out, vm.verbName(int(vm.readVar(num)))...)
		case escName:
			out = append(out, vm.objectName(int(vm.readVar(num)))...)
		case escString:
			out = append(out, vm.stringValue(int(vm.readVar(num)))...)
		case escAnim, escSound, escColor, escUnknown, escCharset:
			out = append(out, 0xFF, code)
			out = append(out, param...)
		default:
			vm.faultf(ErrorNotImplemented, "message escape code %d", code)
		}
	}
	return out
}

// stringValue returns the text held by a string resource (v3-v5) or a
// string array (v6+).
func (vm *VM) stringValue(id int) []byte {
	if vm.cfg.StackBased() {
		if a := vm.arrays[id]; a != nil {
			return a.Bytes()
		}
		return nil
	}
	return vm.strings[id]
}

// renderMessage decodes a converted message to UTF-8. When live, talk
// animation and colour escapes take effect as they are reached.
func (vm *VM) renderMessage(msg []byte, live bool) string {
	var sb strings.Builder
	w := vm.escapeParamSize()
	plain := make([]byte, 0, len(msg))
	flush := func() {
		if len(plain) == 0 {
			return
		}
		sb.WriteString(vm.decodeText(plain))
		plain = plain[:0]
	}
	for i := 0; i < len(msg); i++ {
		b := msg[i]
		if b != 0xFF || i+1 >= len(msg) {
			plain = append(plain, b)
			continue
		}
		code := msg[i+1]
		i++
		switch code {
		case escNewline, escWait:
			flush()
			sb.WriteByte('\n')
			continue
		case escKeepText, escNoop:
			continue
		}
		if i+w >= len(msg) {
			break
		}
		num := int(msg[i+1]) | int(msg[i+2])<<8
		i += w
		if !live {
			continue
		}
		switch code {
		case escAnim:
			if a := vm.talkingActor(); a != nil {
				vm.startActorAnim(a, num)
			}
		case escSound:
			// the cue spans four escapes: two offsets split in halves
			vm.log.Debug("Talk sound cue", "offset", num)
			for k := 0; k < 3 && i+2+w < len(msg) && msg[i+1] == 0xFF && msg[i+2] == escSound; k++ {
				i += 2 + w
			}
		case escColor:
			vm.textDef.Slots[slotTalk].Color = num
		case escCharset:
			vm.textDef.Charset = num
		}
	}
	flush()
	return strings.TrimRight(sb.String(), "\n")
}

// decodeText converts game text to UTF-8.
func (vm *VM) decodeText(b []byte) string {
	enc := vm.textEnc
	if enc == nil {
		enc = charmap.CodePage437
	}
	s, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// printString sends a message to the text slot's destination.
func (vm *VM) printString(slot int, msg []byte) {
	text := vm.convertMessage(msg)
	vm.message = text
	switch slot {
	case slotTalk:
		vm.actorTalk(text)
	case slotDebug:
		vm.log.Debug("Script debug message", "text", vm.renderMessage(text, false))
	default:
		vm.text.ShowText(-1, vm.renderMessage(text, true))
	}
}

// actorTalk starts a line of dialogue for the actor chosen by the print
// opcode. The line stays up for a delay proportional to its length.
func (vm *VM) actorTalk(msg []byte) {
	actor := vm.printActor
	v := &vm.cfg.Vars
	if actor == 0xFF {
		vm.setEngineVar(v.TalkActor, 0xFF)
	} else {
		vm.setEngineVar(v.TalkActor, int32(actor))
	}
	vm.setEngineVar(v.HaveMsg, 0xFF)

	text := vm.renderMessage(msg, true)
	if a := vm.talkingActor(); a != nil && !vm.textDef.Slots[slotTalk].NoTalkAnim {
		vm.startActorAnim(a, int(a.TalkStartFrame))
	}
	vm.textDef.TalkDelay = 60 + len(text)*4
	vm.text.ShowText(actor, text)
}

// stopTalk ends the current line of dialogue.
func (vm *VM) stopTalk() {
	v := &vm.cfg.Vars
	if a := vm.talkingActor(); a != nil && !vm.textDef.Slots[slotTalk].NoTalkAnim {
		vm.startActorAnim(a, int(a.TalkStopFrame))
	}
	vm.setEngineVar(v.HaveMsg, 0)
	vm.setEngineVar(v.TalkActor, 0)
	vm.textDef.TalkDelay = 0
}

func (vm *VM) talkingActor() *Actor {
	n := int(vm.engineVar(vm.cfg.Vars.TalkActor))
	if n <= 0 || n >= len(vm.actors) {
		return nil
	}
	return vm.actors[n]
}

// MessageText returns the last message as UTF-8.
func (vm *VM) MessageText() string {
	return vm.renderMessage(vm.message, false)
}

// messageWidth measures the last message with a charset.
func (vm *VM) messageWidth(charset int) int {
	cs, err := vm.res.GetCharset(charset)
	if err != nil || cs == nil {
		return 0
	}
	return cs.StringWidth(vm.message)
}
