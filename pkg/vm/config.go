package vm

import (
	"fmt"
	"strings"
)

// NoVar marks a well-known variable the game does not have.
const NoVar = -1

// VarMap holds the numbers of the engine-maintained variables.
// The numbering moved between bytecode generations, so it is data.
type VarMap struct {
	Keypress            int
	Ego                 int
	CameraPosX          int
	CameraPosY          int
	HaveMsg             int
	Room                int
	Override            int
	MachineSpeed        int
	Me                  int
	NumActor            int
	CurrentLights       int
	Tmr1                int
	Tmr2                int
	Tmr3                int
	MusicTimer          int
	ActorRangeMin       int
	ActorRangeMax       int
	CameraMinX          int
	CameraMaxX          int
	TimerNext           int
	VirtMouseX          int
	VirtMouseY          int
	RoomResource        int
	LastSound           int
	CutsceneExitKey     int
	TalkActor           int
	CameraFastX         int
	ScrollScript        int
	EntryScript         int
	EntryScript2        int
	ExitScript          int
	ExitScript2         int
	VerbScript          int
	SentenceScript      int
	InventoryScript     int
	CutsceneStartScript int
	CutsceneEndScript   int
	CharInc             int
	WalktoObj           int
	DebugMode           int
	MouseX              int
	MouseY              int
	Timer               int
	TimerTotal          int
	SoundResult         int
	TalkStopKey         int
	NoSubtitles         int
	RoomWidth           int
	RoomHeight          int
	CursorState         int
	UserPut             int
}

// classicVars is the numbering shared by v3 to v6.
func classicVars() VarMap {
	return VarMap{
		Keypress: 0, Ego: 1, CameraPosX: 2, HaveMsg: 3, Room: 4, Override: 5,
		MachineSpeed: 6, Me: 7, NumActor: 8, CurrentLights: 9,
		Tmr1: 11, Tmr2: 12, Tmr3: 13, MusicTimer: 14,
		ActorRangeMin: 15, ActorRangeMax: 16, CameraMinX: 17, CameraMaxX: 18,
		TimerNext: 19, VirtMouseX: 20, VirtMouseY: 21, RoomResource: 22,
		LastSound: 23, CutsceneExitKey: 24, TalkActor: 25, CameraFastX: 26,
		ScrollScript: 27, EntryScript: 28, EntryScript2: 29, ExitScript: 30,
		ExitScript2: 31, VerbScript: 32, SentenceScript: 33, InventoryScript: 34,
		CutsceneStartScript: 35, CutsceneEndScript: 36, CharInc: 37,
		WalktoObj: 38, DebugMode: 39, MouseX: 44, MouseY: 45, Timer: 46,
		TimerTotal: 47, CursorState: 52, UserPut: 53,
		SoundResult: 56, TalkStopKey: 57, NoSubtitles: 60,
		CameraPosY: NoVar, RoomWidth: NoVar, RoomHeight: NoVar,
	}
}

// newStyleVars is the v7/v8 numbering. Entries the variant table does not
// override stay unmapped.
func newStyleVars() VarMap {
	m := VarMap{}
	for _, p := range m.fields() {
		*p = NoVar
	}
	m.MouseX, m.MouseY = 1, 2
	m.VirtMouseX, m.VirtMouseY = 3, 4
	m.RoomWidth, m.RoomHeight = 5, 6
	m.CameraPosX, m.CameraPosY = 7, 8
	m.Override = 9
	m.Room = 10
	m.RoomResource = 11
	m.TalkActor = 12
	m.HaveMsg = 13
	m.Timer = 14
	return m
}

func (m *VarMap) fields() map[string]*int {
	return map[string]*int{
		"keypress": &m.Keypress, "ego": &m.Ego, "camera_pos_x": &m.CameraPosX,
		"camera_pos_y": &m.CameraPosY, "have_msg": &m.HaveMsg, "room": &m.Room,
		"override": &m.Override, "machine_speed": &m.MachineSpeed, "me": &m.Me,
		"num_actor": &m.NumActor, "current_lights": &m.CurrentLights,
		"tmr_1": &m.Tmr1, "tmr_2": &m.Tmr2, "tmr_3": &m.Tmr3,
		"music_timer": &m.MusicTimer, "actor_range_min": &m.ActorRangeMin,
		"actor_range_max": &m.ActorRangeMax, "camera_min_x": &m.CameraMinX,
		"camera_max_x": &m.CameraMaxX, "timer_next": &m.TimerNext,
		"virt_mouse_x": &m.VirtMouseX, "virt_mouse_y": &m.VirtMouseY,
		"room_resource": &m.RoomResource, "last_sound": &m.LastSound,
		"cutsceneexit_key": &m.CutsceneExitKey, "talk_actor": &m.TalkActor,
		"camera_fast_x": &m.CameraFastX, "scroll_script": &m.ScrollScript,
		"entry_script": &m.EntryScript, "entry_script2": &m.EntryScript2,
		"exit_script": &m.ExitScript, "exit_script2": &m.ExitScript2,
		"verb_script": &m.VerbScript, "sentence_script": &m.SentenceScript,
		"inventory_script":      &m.InventoryScript,
		"cutscene_start_script": &m.CutsceneStartScript,
		"cutscene_end_script":   &m.CutsceneEndScript, "charinc": &m.CharInc,
		"walkto_obj": &m.WalktoObj, "debugmode": &m.DebugMode,
		"mouse_x": &m.MouseX, "mouse_y": &m.MouseY, "timer": &m.Timer,
		"timer_total": &m.TimerTotal, "soundresult": &m.SoundResult,
		"talkstop_key": &m.TalkStopKey, "nosubtitles": &m.NoSubtitles,
		"room_width": &m.RoomWidth, "room_height": &m.RoomHeight,
		"cursorstate": &m.CursorState, "userput": &m.UserPut,
	}
}

// Apply overrides variable numbers by lower-case name.
func (m *VarMap) Apply(overrides map[string]int) error {
	f := m.fields()
	for name, num := range overrides {
		p, ok := f[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown engine variable %q", name)
		}
		*p = num
	}
	return nil
}

// Config parameterizes one interpreter instance for a bytecode generation.
type Config struct {
	Version          int
	GameID           string
	NumVariables     int
	NumBitVariables  int
	NumLocals        int
	FewLocals        bool
	NumSlots         int
	NumActors        int
	NumGlobalScripts int
	NumGlobalObjects int
	NumInventory     int
	NumVerbs         int
	NumArrays        int
	MaxNesting       int
	MaxCutscenes     int
	MaxSentences     int
	ScreenWidth      int
	ScreenHeight     int
	Vars             VarMap

	table *[256]*opcode
}

// NewConfig returns the defaults for a bytecode version.
func NewConfig(version int, gameID string) (*Config, error) {
	c := &Config{
		Version:          version,
		GameID:           gameID,
		NumVariables:     800,
		NumBitVariables:  4096,
		NumLocals:        26,
		NumSlots:         80,
		NumActors:        13,
		NumGlobalScripts: 200,
		NumGlobalObjects: 1000,
		NumInventory:     80,
		NumVerbs:         100,
		NumArrays:        100,
		MaxNesting:       15,
		MaxCutscenes:     5,
		MaxSentences:     6,
		ScreenWidth:      320,
		ScreenHeight:     200,
	}
	switch {
	case version >= 3 && version <= 5:
		c.Vars = classicVars()
		c.table = &opcodesV5
		c.FewLocals = version == 3
		if version <= 4 {
			c.table = &opcodesV4
			c.NumBitVariables = 2048
		}
	case version == 6:
		c.Vars = classicVars()
		c.table = &opcodesV6
		c.NumActors = 30
	case version == 7:
		c.Vars = newStyleVars()
		c.table = &opcodesV7
		c.NumActors = 30
		c.NumGlobalScripts = 2000
	case version == 8:
		c.Vars = newStyleVars()
		c.table = &opcodesV8
		c.NumActors = 80
		c.NumGlobalScripts = 2000
		c.NumVariables = 1500
		c.ScreenWidth = 640
		c.ScreenHeight = 480
		c.NumBitVariables = 2048
	default:
		return nil, fmt.Errorf("unsupported bytecode version %d", version)
	}
	return c, nil
}

// StackBased reports whether operands travel on the value stack.
func (c *Config) StackBased() bool {
	return c.Version >= 6
}

// WideVars reports 32-bit variable addresses.
func (c *Config) WideVars() bool {
	return c.Version >= 8
}
