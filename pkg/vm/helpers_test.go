package vm

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"testing"

	"github.com/zurustar/scumm-et/pkg/resource"
)

// fakeResources serves scripts and rooms from maps.
type fakeResources struct {
	scripts map[int][]byte
	rooms   map[int]*resource.Room
}

func (f *fakeResources) GetScript(id int) ([]byte, error) {
	if code, ok := f.scripts[id]; ok {
		return code, nil
	}
	return nil, fmt.Errorf("script %d: %w", id, fs.ErrNotExist)
}

func (f *fakeResources) GetRoom(id int) (*resource.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("room %d: %w", id, fs.ErrNotExist)
}

func (f *fakeResources) GetCostume(id int) ([]byte, error) {
	return nil, fmt.Errorf("costume %d: %w", id, fs.ErrNotExist)
}

func (f *fakeResources) GetCharset(id int) (*resource.Charset, error) {
	return nil, fmt.Errorf("charset %d: %w", id, fs.ErrNotExist)
}

type shownText struct {
	actor int
	text  string
}

// recordingSink keeps every line shown.
type recordingSink struct {
	lines []shownText
}

func (r *recordingSink) ShowText(actor int, text string) {
	r.lines = append(r.lines, shownText{actor, text})
}

// newTestVM builds a VM for version with the given global scripts.
func newTestVM(t *testing.T, version int, scripts map[int][]byte, opts ...Option) *VM {
	t.Helper()
	return newTestVMFor(t, version, "test", scripts, opts...)
}

func newTestVMFor(t *testing.T, version int, gameID string, scripts map[int][]byte, opts ...Option) *VM {
	t.Helper()
	cfg, err := NewConfig(version, gameID)
	if err != nil {
		t.Fatalf("NewConfig(%d): %v", version, err)
	}
	if scripts == nil {
		scripts = map[int][]byte{}
	}
	res := &fakeResources{scripts: scripts, rooms: map[int]*resource.Room{}}
	return New(cfg, res, append([]Option{WithSeed(1)}, opts...)...)
}

// code concatenates instruction pieces.
func code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func b(xs ...byte) []byte { return xs }

func w16(v int) []byte {
	return binary.LittleEndian.AppendUint16(nil, uint16(v))
}

func w32(v int) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// v6 encodings used across tests.

func pushW(v int) []byte { return code(b(0x01), w16(v)) }

func pushVar(addr int) []byte { return code(b(0x03), w16(addr)) }

func writeW(addr int) []byte { return code(b(0x43), w16(addr)) }

func setW(addr, v int) []byte { return code(pushW(v), writeW(addr)) }

// startScriptV6 starts script n with flags and args.
func startScriptV6(flags, n int, args ...int) []byte {
	out := code(pushW(flags), pushW(n))
	for _, a := range args {
		out = append(out, pushW(a)...)
	}
	return code(out, pushW(len(args)), b(0x5E))
}

var (
	breakV6 = b(0x6C)
	stopV6  = b(0x65)
)

// v5 encodings.

func moveV5(addr, v int) []byte { return code(b(0x1A), w16(addr), w16(v)) }

var stopV5 = b(0x00)

func mustErrorType(t *testing.T, err error, want ErrorType) *RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	re, ok := AsRuntimeError(err)
	if !ok {
		t.Fatalf("expected RuntimeError, got %T: %v", err, err)
	}
	if re.Type != want {
		t.Fatalf("error type = %s, want %s (%v)", re.Type, want, err)
	}
	return re
}

// addRoom makes r available to the VM's resource fake.
func addRoom(t *testing.T, vm *VM, r *resource.Room) {
	t.Helper()
	f, ok := vm.res.(*fakeResources)
	if !ok {
		t.Fatalf("resources are %T", vm.res)
	}
	f.rooms[r.ID] = r
}
