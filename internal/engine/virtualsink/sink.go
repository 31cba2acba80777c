// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package virtualsink is a clock-driven media element. It advances a playhead
// while playing and reports the notifications a browser video element would.
package virtualsink

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	"github.com/ManuGH/hlswatch/internal/platform/dispatch"
)

const (
	defaultTick        = 250 * time.Millisecond
	defaultBufferAhead = 30.0
)

// Options configures a Sink.
type Options struct {
	ID    string
	Clock ports.Clock
	// Tick is the playhead step and time-update interval.
	Tick time.Duration
	// BufferAhead is how many seconds past the playhead count as buffered.
	BufferAhead float64
	// RequireMutedAutoplay rejects unmuted Play until one play has succeeded,
	// like a browser without user activation.
	RequireMutedAutoplay bool
}

// Sink implements ports.Sink and manifest.SourceSink.
type Sink struct {
	id     string
	opts   Options
	clock  ports.Clock
	events *dispatch.Queue[ports.SinkEvent]
	wg     sync.WaitGroup

	mu        sync.Mutex
	hasSource bool
	duration  float64
	live      bool
	pos       float64
	playing   bool
	activated bool
	muted     bool
	volume    float64
	timer     ports.Timer
	tickGen   uint64
}

// New starts a sink. Close releases its delivery goroutine.
func New(opts Options) *Sink {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.BufferAhead <= 0 {
		opts.BufferAhead = defaultBufferAhead
	}
	s := &Sink{
		id:       opts.ID,
		opts:     opts,
		clock:    opts.Clock,
		events:   dispatch.New[ports.SinkEvent](),
		duration: math.NaN(),
		volume:   model.DefaultVolume,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.events.Run()
	}()
	return s
}

func (s *Sink) ID() string { return s.id }

func (s *Sink) Subscribe(fn func(ports.SinkEvent)) func() {
	return s.events.Subscribe(fn)
}

// Play starts the playhead.
func (s *Sink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events.Closed() {
		return errors.New("virtualsink: closed")
	}
	if s.opts.RequireMutedAutoplay && !s.activated && !s.muted {
		return ports.ErrAutoplayBlocked
	}
	s.activated = true
	if s.playing {
		return nil
	}
	s.playing = true
	s.events.Push(ports.SinkEvent{Kind: ports.SinkPlay})
	s.startTickingLocked()
	return nil
}

func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.playing = false
	s.stopTickingLocked()
	s.events.Push(ports.SinkEvent{Kind: ports.SinkPause})
}

func (s *Sink) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

// Seek moves the playhead, clamped to the known duration.
func (s *Sink) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if s.durationKnownLocked() && seconds > s.duration {
		seconds = s.duration
	}
	s.pos = seconds
	s.pushTimeLocked()
}

// Reset detaches the source and rewinds.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickingLocked()
	s.hasSource = false
	s.duration = math.NaN()
	s.live = false
	s.pos = 0
	s.playing = false
	// Events from the previous source must not reach the next subscriber.
	s.events.Drain()
}

// SetSource announces the media timeline. Live sources have no duration.
func (s *Sink) SetSource(durationSeconds float64, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSource = true
	s.live = live
	if live {
		s.duration = math.Inf(1)
	} else {
		s.duration = durationSeconds
	}
	s.events.Push(ports.SinkEvent{Kind: ports.SinkDurationChange, Duration: s.duration})
	if s.playing {
		s.startTickingLocked()
	}
}

// InjectStall reports buffer starvation for d, then resumes.
func (s *Sink) InjectStall(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.stopTickingLocked()
	s.events.Push(ports.SinkEvent{Kind: ports.SinkWaiting})
	gen := s.tickGen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.tickGen || !s.playing {
			return
		}
		s.timer = nil
		s.events.Push(ports.SinkEvent{Kind: ports.SinkPlaying})
		s.startTickingLocked()
	})
}

// Position returns the playhead in seconds.
func (s *Sink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Muted reports the mute flag.
func (s *Sink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Close stops the playhead and waits for event delivery to end.
func (s *Sink) Close() {
	s.mu.Lock()
	s.stopTickingLocked()
	s.playing = false
	s.mu.Unlock()

	s.events.Close()
	s.wg.Wait()
}

func (s *Sink) durationKnownLocked() bool {
	return !math.IsNaN(s.duration) && !math.IsInf(s.duration, 0)
}

func (s *Sink) startTickingLocked() {
	if !s.hasSource || s.timer != nil {
		return
	}
	s.tickGen++
	s.scheduleLocked(s.tickGen)
}

func (s *Sink) stopTickingLocked() {
	s.tickGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sink) scheduleLocked(gen uint64) {
	s.timer = s.clock.AfterFunc(s.opts.Tick, func() { s.tick(gen) })
}

func (s *Sink) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.tickGen || !s.playing {
		return
	}
	s.pos += s.opts.Tick.Seconds()
	if s.durationKnownLocked() && s.pos >= s.duration {
		s.pos = s.duration
		s.pushTimeLocked()
		s.playing = false
		s.timer = nil
		s.events.Push(ports.SinkEvent{Kind: ports.SinkPause})
		return
	}
	s.pushTimeLocked()
	s.scheduleLocked(gen)
}

func (s *Sink) pushTimeLocked() {
	end := s.pos + s.opts.BufferAhead
	if s.durationKnownLocked() {
		end = math.Min(end, s.duration)
	}
	s.events.Push(ports.SinkEvent{
		Kind:        ports.SinkTimeUpdate,
		CurrentTime: s.pos,
		Buffered:    []ports.TimeRange{{Start: 0, End: end}},
	})
}
