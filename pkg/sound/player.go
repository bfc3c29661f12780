package sound

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/resource"
)

// Source supplies sound resources by number.
type Source interface {
	GetSound(id int) (resource.Chunk, error)
}

// voice is one playing sound.
type voice struct {
	clip    *Clip
	started time.Time
	player  *audio.Player
	midi    *midiStream
}

// Player は SOUN リソースを再生し、スクリプトからの問い合わせに再生状態を返す。
// 音声コンテキストがない場合は再生時間だけで状態を追跡する。
type Player struct {
	src      Source
	audioCtx *audio.Context
	sf       *meltysynth.SoundFont
	now      func() time.Time
	muted    bool
	log      *slog.Logger

	mu      sync.Mutex
	clips   map[int]*Clip
	playing map[int]*voice
}

// Option configures a Player.
type Option func(*Player)

// WithContext plays through the given mixer. Without one the player is
// silent and tracks sounds by their length.
func WithContext(ctx *audio.Context) Option {
	return func(p *Player) { p.audioCtx = ctx }
}

// WithSoundFont enables MIDI music.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(p *Player) { p.sf = sf }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithMuted starts the player muted.
func WithMuted(muted bool) Option {
	return func(p *Player) { p.muted = muted }
}

// NewPlayer creates a Player reading resources from src.
func NewPlayer(src Source, opts ...Option) *Player {
	p := &Player{
		src:     src,
		now:     time.Now,
		log:     logger.Channel("sound"),
		clips:   make(map[int]*Clip),
		playing: make(map[int]*voice),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AddSoundToQueue starts sound id, restarting it if it already plays.
// Failures are logged; the sound then reports as not running.
func (p *Player) AddSoundToQueue(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked(id)
	clip, err := p.clip(id)
	if err != nil {
		p.log.Warn("Sound not playable", "id", id, "error", err)
		return
	}
	v := &voice{clip: clip, started: p.now()}
	if p.audioCtx != nil {
		if err := p.start(v); err != nil {
			p.log.Warn("Sound playback failed", "id", id, "kind", clip.Kind, "error", err)
		}
	}
	p.playing[id] = v
	p.log.Debug("Sound started", "id", id, "kind", clip.Kind, "duration", clip.Duration)
}

func (p *Player) clip(id int) (*Clip, error) {
	if c, ok := p.clips[id]; ok {
		return c, nil
	}
	if p.src == nil {
		return nil, errors.New("sound: no resource source")
	}
	chunk, err := p.src.GetSound(id)
	if err != nil {
		return nil, err
	}
	c, err := Decode(chunk)
	if err != nil {
		return nil, err
	}
	p.clips[id] = c
	return c, nil
}

func (p *Player) start(v *voice) error {
	var err error
	switch v.clip.Kind {
	case KindPCM:
		var stream *wav.Stream
		stream, err = wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(WAV(v.clip.Data, v.clip.Rate)))
		if err != nil {
			return fmt.Errorf("decode PCM: %w", err)
		}
		v.player, err = p.audioCtx.NewPlayer(stream)
	case KindMIDI:
		v.midi, err = newMIDIStream(p.sf, v.clip.Data)
		if err != nil {
			return err
		}
		v.player, err = p.audioCtx.NewPlayer(v.midi)
	}
	if err != nil {
		return err
	}
	if p.muted {
		v.player.SetVolume(0)
	}
	v.player.Play()
	return nil
}

// IsSoundRunning reports whether id is still playing. MIDI streams
// never end on their own, so music is timed by the track length.
func (p *Player) IsSoundRunning(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.playing[id]
	if !ok {
		return false
	}
	running := p.now().Sub(v.started) < v.clip.Duration
	if v.clip.Kind == KindPCM && v.player != nil {
		running = v.player.IsPlaying()
	}
	if !running {
		p.stopLocked(id)
	}
	return running
}

// StopSound stops id if it plays.
func (p *Player) StopSound(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(id)
}

// StopAllSounds stops everything.
func (p *Player) StopAllSounds() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.playing {
		p.stopLocked(id)
	}
}

func (p *Player) stopLocked(id int) {
	v, ok := p.playing[id]
	if !ok {
		return
	}
	if v.midi != nil {
		v.midi.Stop()
	}
	if v.player != nil {
		v.player.Pause()
		if err := v.player.Close(); err != nil {
			p.log.Debug("Closing player", "id", id, "error", err)
		}
	}
	delete(p.playing, id)
}

// SetMuted silences or restores every playing sound.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	vol := 1.0
	if muted {
		vol = 0
	}
	for _, v := range p.playing {
		if v.player != nil {
			v.player.SetVolume(vol)
		}
	}
}

// Playing returns the ids tracked as playing, in order.
func (p *Player) Playing() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, 0, len(p.playing))
	for id := range p.playing {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
