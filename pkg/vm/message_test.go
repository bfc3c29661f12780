package vm

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestConvertMessage(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	if err := vm.Access(func() {
		vm.writeVar(100, 42)
		vm.copyToArray(101, []byte("Guybrush"))
		vm.writeVar(102, -3)
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		msg  []byte
		want string
	}{
		{"plain", []byte("Look behind you"), "Look behind you"},
		{"int", code([]byte("Score: "), b(0xFF, escInt), w16(100)), "Score: 42"},
		{"negative int", code(b(0xFF, escInt), w16(102)), "-3"},
		{"string", code([]byte("I am "), b(0xFF, escString), w16(101), []byte("!")), "I am Guybrush!"},
		{"newline kept", code([]byte("a"), b(0xFF, escNewline), []byte("b")), "a\xFF\x01b"},
		{"colour kept with parameter", code(b(0xFF, escColor), w16(4), []byte("c")), "\xFF\x0C\x04\x00c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			if err := vm.Access(func() { got = vm.convertMessage(tt.msg) }); err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertMessage_Faults(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	err := vm.Access(func() { vm.convertMessage(b('a', 0xFF, escInt, 1)) })
	mustErrorType(t, err, ErrorEndOfScript)

	err = vm.Access(func() { vm.convertMessage(code(b(0xFF, 0x30), w16(0))) })
	mustErrorType(t, err, ErrorNotImplemented)
}

func TestRenderMessage(t *testing.T) {
	vm := newTestVM(t, 6, nil)
	msg := code([]byte("one"), b(0xFF, escNewline), []byte("two"), b(0xFF, escColor), w16(9), b(0xFF, escKeepText))
	if got := vm.renderMessage(msg, false); got != "one\ntwo" {
		t.Errorf("rendered %q", got)
	}
	if vm.textDef.Slots[slotTalk].Color == 9 {
		t.Error("colour escape applied outside a live render")
	}
	vm.renderMessage(msg, true)
	if vm.textDef.Slots[slotTalk].Color != 9 {
		t.Error("colour escape not applied")
	}
}

func TestRenderMessage_TextEncoding(t *testing.T) {
	vm := newTestVM(t, 6, nil, WithTextEncoding(japanese.ShiftJIS))
	// "はい" in Shift-JIS
	if got := vm.renderMessage(b(0x82, 0xCD, 0x82, 0xA2), false); got != "はい" {
		t.Errorf("decoded %q", got)
	}
	cp := newTestVM(t, 6, nil)
	if got := cp.renderMessage(b(0x82), false); got != "é" {
		t.Errorf("code page 437 decoded %q", got)
	}
}
