// Package vm implements the adventure-game script interpreter: the variable
// and object store, the cooperative script-slot scheduler, the per-version
// opcode dispatch tables and the room, actor, camera and palette state the
// scripts drive.
//
// The interpreter is single-threaded. One VM value is one game session;
// every collaborator (resources, sound, display, text) is passed in at
// construction time.
package vm

import (
	"log/slog"
	"math/rand/v2"

	"golang.org/x/text/encoding"

	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/resource"
	"github.com/zurustar/scumm-et/pkg/savegame"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// noSlot is the current-slot sentinel: nothing is executing.
const noSlot = 0xFF

// VM represents one interpreter session.
type VM struct {
	cfg *Config
	res Resources
	log *slog.Logger

	sound   Sound
	display Display
	text    TextSink
	textEnc encoding.Encoding
	rnd     *rand.Rand

	// variable & object-state store
	vars     []int32
	bitVars  []byte
	owners   []uint8
	states   []uint8
	classes  []uint32
	objRooms []uint8
	inv      []int
	invCode  map[int]*resource.Object
	newNames map[int][]byte
	arrays   map[int]*Array
	strings  map[int][]byte

	// scheduler
	slots     []Slot
	current   int
	nest      []nestEntry
	cutscenes cutsceneStack

	// dispatcher state of the current slot
	script    []byte
	pc        int
	opcode    byte
	resultVar int
	stack     []int32

	// world
	room      *resource.Room
	roomID    int
	matrix    *walkbox.Matrix
	actors    []*Actor
	camera    Camera
	cycles    []ColorCycle
	palette   []byte
	verbs     []Verb
	sentences []Sentence
	textDef   TextDefaults
	message   []byte

	printActor  int
	curActor    int
	curVerb     int
	curVerbSlot int

	userPut        int
	cursorState    int
	quit           bool
	restartPending bool
	ticks          int64

	saves    savegame.Store
	saveLoad saveLoadRequest
	// loadedBoxes holds box edits read from a save until the room is
	// attached again.
	loadedBoxes *boxEdits
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithSound sets the audio collaborator.
func WithSound(s Sound) Option {
	return func(vm *VM) {
		vm.sound = s
	}
}

// WithDisplay sets the presentation collaborator.
func WithDisplay(d Display) Option {
	return func(vm *VM) {
		vm.display = d
	}
}

// WithTextSink sets where decoded message text goes.
func WithTextSink(t TextSink) Option {
	return func(vm *VM) {
		vm.text = t
	}
}

// WithTextEncoding sets the code page game text is decoded from.
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(vm *VM) {
		vm.textEnc = enc
	}
}

// WithSeed makes random numbers reproducible.
func WithSeed(seed uint64) Option {
	return func(vm *VM) {
		vm.rnd = rand.New(rand.NewPCG(seed, seed^0x5DEECE66D))
	}
}

// WithSaveStore sets where script-requested saves go.
func WithSaveStore(st savegame.Store) Option {
	return func(vm *VM) {
		vm.saves = st
	}
}

// New creates a VM for cfg reading resources from res.
func New(cfg *Config, res Resources, opts ...Option) *VM {
	vm := &VM{
		cfg:       cfg,
		res:       res,
		log:       logger.Channel("script"),
		sound:     NewNullSound(),
		display:   NullDisplay{},
		text:      LogTextSink{},
		rnd:       rand.New(rand.NewPCG(uint64(rand.Int64()), 0)),
		vars:      make([]int32, cfg.NumVariables),
		bitVars:   make([]byte, (cfg.NumBitVariables+7)/8),
		owners:    make([]uint8, cfg.NumGlobalObjects),
		states:    make([]uint8, cfg.NumGlobalObjects),
		classes:   make([]uint32, cfg.NumGlobalObjects),
		objRooms:  make([]uint8, cfg.NumGlobalObjects),
		inv:       make([]int, cfg.NumInventory),
		invCode:   make(map[int]*resource.Object),
		newNames:  make(map[int][]byte),
		arrays:    make(map[int]*Array),
		strings:   make(map[int][]byte),
		slots:     make([]Slot, cfg.NumSlots),
		current:   noSlot,
		nest:      make([]nestEntry, 0, cfg.MaxNesting),
		cutscenes: newCutsceneStack(cfg.MaxCutscenes),
		stack:     make([]int32, 0, 150),
		verbs:     make([]Verb, cfg.NumVerbs),
		sentences: make([]Sentence, 0, cfg.MaxSentences),
	}
	for i := range vm.slots {
		vm.slots[i].Locals = make([]int32, cfg.NumLocals)
	}

	for _, opt := range opts {
		opt(vm)
	}

	vm.initActors()
	vm.initDefaults()
	return vm
}

// initDefaults sets the engine-maintained variables a fresh boot expects.
func (vm *VM) initDefaults() {
	v := &vm.cfg.Vars
	vm.setEngineVar(v.NumActor, int32(len(vm.actors)-1))
	vm.setEngineVar(v.TimerNext, 2)
	vm.setEngineVar(v.MachineSpeed, 0x7FFF)
	vm.setEngineVar(v.CurrentLights, 0x0B)
	vm.camera.Mode = CameraNormal
	vm.camera.LeftTrigger = 10
	vm.camera.RightTrigger = 30
	vm.textDef = defaultText()
}

// Config returns the interpreter configuration.
func (vm *VM) Config() *Config {
	return vm.cfg
}

// InitObjects copies the index's global object tables into the store.
func (vm *VM) InitObjects(t resource.ObjectTable) {
	n := min(len(t.Owner), len(vm.owners))
	copy(vm.owners[:n], t.Owner)
	copy(vm.states[:n], t.State)
	copy(vm.classes[:n], t.Class)
	copy(vm.objRooms[:n], t.Room)
	vm.log.Debug("Object tables initialized", "objects", n)
}

// Quit reports whether a script asked the game to end.
func (vm *VM) Quit() bool {
	return vm.quit
}

// RoomID returns the current room number.
func (vm *VM) RoomID() int {
	return vm.roomID
}

// Room returns the decoded current room, nil before the first room load.
func (vm *VM) Room() *resource.Room {
	return vm.room
}

// engineVar reads an engine variable by its mapped number; unmapped reads 0.
func (vm *VM) engineVar(num int) int32 {
	if num < 0 || num >= len(vm.vars) {
		return 0
	}
	return vm.vars[num]
}

// setEngineVar writes an engine variable by its mapped number; unmapped is a no-op.
func (vm *VM) setEngineVar(num int, v int32) {
	if num < 0 || num >= len(vm.vars) {
		return
	}
	vm.vars[num] = v
}
