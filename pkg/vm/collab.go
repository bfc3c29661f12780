package vm

import (
	"image"
	"log/slog"
	"sync"

	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/resource"
)

// Resources is the resource access the interpreter needs.
// *resource.Manager implements it.
type Resources interface {
	GetScript(id int) ([]byte, error)
	GetRoom(id int) (*resource.Room, error)
	GetCostume(id int) ([]byte, error)
	GetCharset(id int) (*resource.Charset, error)
}

// Sound is the audio collaborator. Calls never block on playback.
type Sound interface {
	AddSoundToQueue(id int)
	IsSoundRunning(id int) bool
	StopSound(id int)
	StopAllSounds()
}

// Display receives presentation intents.
type Display interface {
	SetPalette(rgb []byte)
	SetCursor(pixels []byte, w, h, hotX, hotY int)
	MarkDirty(r image.Rectangle)
	Blit(buf []byte, r image.Rectangle)
}

// TextSink receives decoded message text.
type TextSink interface {
	ShowText(actor int, text string)
}

// NullSound はサウンド出力なしで再生状態だけを管理する
type NullSound struct {
	mu      sync.Mutex
	running map[int]bool
	log     *slog.Logger
}

// NewNullSound creates a NullSound.
func NewNullSound() *NullSound {
	return &NullSound{running: make(map[int]bool), log: logger.Channel("sound")}
}

func (s *NullSound) AddSoundToQueue(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = true
	s.log.Debug("Sound queued", "id", id)
}

func (s *NullSound) IsSoundRunning(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[id]
}

func (s *NullSound) StopSound(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

func (s *NullSound) StopAllSounds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.running)
}

// NullDisplay discards everything.
type NullDisplay struct{}

func (NullDisplay) SetPalette([]byte) {}

func (NullDisplay) SetCursor([]byte, int, int, int, int) {}

func (NullDisplay) MarkDirty(image.Rectangle) {}

func (NullDisplay) Blit([]byte, image.Rectangle) {}

// LogTextSink writes message text to the log.
type LogTextSink struct {
	Log *slog.Logger
}

func (t LogTextSink) ShowText(actor int, text string) {
	l := t.Log
	if l == nil {
		l = logger.Channel("text")
	}
	l.Info("Text", "actor", actor, "text", text)
}
