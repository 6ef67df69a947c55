// Package engine implements the playback engine: one audio output, the
// current track, the queue, transport and mode state, and the ambient color
// derived from the current cover.
//
// All state lives on the goroutine started by Run. Commands, audio events and
// color results are messages processed strictly in arrival order.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

// command runs fn on the engine goroutine and closes done afterwards.
type command struct {
	fn   func()
	done chan struct{}
}

// colorResult is the completion of an ambient color derivation.
type colorResult struct {
	gen   uint64
	cover string
	color core.Color
	err   error
}

// Engine is the playback engine. Create it with New and start it with Run.
type Engine struct {
	audio    core.AudioOutput
	colors   core.ColorDeriver
	recorder core.PlayRecorder
	listener string
	logger   *log.Logger

	advanceOnError bool
	intn           func(n int) int
	colorTimeout   time.Duration
	recordTimeout  time.Duration

	inbox   *mailbox
	stopped chan struct{}
	running atomic.Bool
	runCtx  context.Context

	subsMu sync.Mutex
	subs   map[chan core.PlaybackState]struct{}
	last   atomic.Pointer[core.PlaybackState]

	// Owned by the Run goroutine. gen counts plays and tags color results;
	// loadGen counts audio loads and tags audio events.
	gen       uint64
	loadGen   uint64
	current   *core.Track
	playing   bool
	volume    float64
	position  time.Duration
	duration  time.Duration
	queue     core.Queue
	shuffle   bool
	repeat    core.RepeatMode
	ambient   core.Color
	lastError string
	failures  int
}

// New creates an engine that exclusively owns audio.
func New(audio core.AudioOutput, opts ...Option) *Engine {
	e := &Engine{
		audio:   audio,
		inbox:   newMailbox(),
		stopped: make(chan struct{}),
		subs:    make(map[chan core.PlaybackState]struct{}),
		runCtx:  context.Background(),
	}
	defaults(e)
	for _, opt := range opts {
		opt(e)
	}

	audio.SetVolume(e.volume)
	audio.Events(func(ev core.AudioEvent) {
		e.inbox.push(ev)
	})

	snap := e.snapshot()
	e.last.Store(&snap)
	return e
}

// Run processes messages until ctx is cancelled. The audio output is
// closed when Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return vibeerrors.ErrEngineRunning
	}
	e.runCtx = ctx

	defer func() {
		close(e.stopped)
		e.closeSubscribers()
		if err := e.audio.Close(); err != nil {
			e.logger.Warn("closing audio output", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.inbox.ready():
			for _, msg := range e.inbox.drain() {
				e.handle(msg)
			}
		}
	}
}

func (e *Engine) handle(msg any) {
	switch m := msg.(type) {
	case command:
		m.fn()
		e.publish()
		close(m.done)
	case core.AudioEvent:
		if e.onAudioEvent(m) {
			e.publish()
		}
	case colorResult:
		if e.onColor(m) {
			e.publish()
		}
	default:
		e.logger.Error("unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

// do runs fn on the engine goroutine and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case <-e.stopped:
		return vibeerrors.ErrEngineClosed
	default:
	}

	e.inbox.push(cmd)

	select {
	case <-cmd.done:
		return nil
	case <-e.stopped:
		return vibeerrors.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlayTrack makes t the current track and starts it from the beginning,
// even if t is already current.
func (e *Engine) PlayTrack(ctx context.Context, t core.Track) error {
	return e.do(ctx, func() {
		e.failures = 0
		e.playTrack(t)
	})
}

// TogglePlay pauses a playing track or resumes a paused one. It does
// nothing while idle.
func (e *Engine) TogglePlay(ctx context.Context) error {
	return e.do(ctx, e.togglePlay)
}

// Next advances through the queue. See nextTrack for the rules.
func (e *Engine) Next(ctx context.Context) error {
	return e.do(ctx, func() {
		e.failures = 0
		e.nextTrack()
	})
}

// Previous moves one step back in queue order. Shuffle is ignored.
func (e *Engine) Previous(ctx context.Context) error {
	return e.do(ctx, func() {
		e.failures = 0
		e.previousTrack()
	})
}

// Seek repositions the current track. The target is clamped to
// [0, duration].
func (e *Engine) Seek(ctx context.Context, position time.Duration) error {
	return e.do(ctx, func() { e.seek(position) })
}

// SetVolume sets the output level, clamped to [0,1]. The level carries
// over to later tracks.
func (e *Engine) SetVolume(ctx context.Context, level float64) error {
	return e.do(ctx, func() {
		e.volume = clampVolume(level)
		e.audio.SetVolume(e.volume)
	})
}

// AddToQueue appends t to the queue.
func (e *Engine) AddToQueue(ctx context.Context, t core.Track) error {
	return e.do(ctx, func() { e.queue.Append(t) })
}

// ToggleShuffle flips shuffle. The queue order is left alone.
func (e *Engine) ToggleShuffle(ctx context.Context) error {
	return e.do(ctx, func() { e.shuffle = !e.shuffle })
}

// ToggleRepeat cycles off -> all -> one -> off.
func (e *Engine) ToggleRepeat(ctx context.Context) error {
	return e.do(ctx, func() { e.repeat = e.repeat.Next() })
}

// State returns a snapshot taken after every previously submitted message
// has been processed.
func (e *Engine) State(ctx context.Context) (*core.PlaybackState, error) {
	var snap core.PlaybackState
	if err := e.do(ctx, func() { snap = e.snapshot() }); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Subscribe returns a channel that receives a snapshot after every state
// change. Slow readers only ever see the latest snapshot. The channel is
// primed with the most recent state. cancel must be called to release it.
func (e *Engine) Subscribe() (<-chan core.PlaybackState, func()) {
	ch := make(chan core.PlaybackState, 1)

	e.subsMu.Lock()
	select {
	case <-e.stopped:
		close(ch)
		e.subsMu.Unlock()
		return ch, func() {}
	default:
	}
	// Priming under the lock means a concurrent publish either lands in
	// last before this load or fans out to ch after registration.
	if last := e.last.Load(); last != nil {
		ch <- *last
	}
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	cancel := func() {
		e.subsMu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.subsMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish() {
	snap := e.snapshot()

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.last.Store(&snap)

	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
}

func (e *Engine) snapshot() core.PlaybackState {
	s := core.PlaybackState{
		IsPlaying: e.playing,
		Volume:    e.volume,
		Position:  e.position,
		Duration:  e.duration,
		Queue:     e.queue.Snapshot(),
		Shuffle:   e.shuffle,
		Repeat:    e.repeat,
		Ambient:   e.ambient,
		Error:     e.lastError,
	}
	if e.current != nil {
		t := *e.current
		s.Track = &t
	}
	return s
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var _ core.Player = (*Engine)(nil)
