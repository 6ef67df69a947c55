package engine

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tessro/vibe/internal/core"
)

// DefaultVolume is the level a fresh session starts at.
const DefaultVolume = 0.7

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.With("component", "engine")
		}
	}
}

// WithVolume sets the starting volume, clamped to [0,1].
func WithVolume(v float64) Option {
	return func(e *Engine) {
		e.volume = clampVolume(v)
	}
}

// WithShuffle sets the starting shuffle mode.
func WithShuffle(on bool) Option {
	return func(e *Engine) {
		e.shuffle = on
	}
}

// WithRepeat sets the starting repeat mode.
func WithRepeat(m core.RepeatMode) Option {
	return func(e *Engine) {
		e.repeat = m
	}
}

// WithColors enables ambient color derivation from cover art.
func WithColors(d core.ColorDeriver, timeout time.Duration) Option {
	return func(e *Engine) {
		e.colors = d
		if timeout > 0 {
			e.colorTimeout = timeout
		}
	}
}

// WithRecorder sends a play notification for every started track.
func WithRecorder(r core.PlayRecorder, listener string) Option {
	return func(e *Engine) {
		e.recorder = r
		e.listener = listener
	}
}

// WithAdvanceOnError skips to the next track when the audio output
// reports that the current source cannot be played.
func WithAdvanceOnError(on bool) Option {
	return func(e *Engine) {
		e.advanceOnError = on
	}
}

// WithRandom replaces the shuffle index picker. intn must return a value
// in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(e *Engine) {
		if intn != nil {
			e.intn = intn
		}
	}
}

func defaults(e *Engine) {
	e.logger = log.New(io.Discard)
	e.volume = DefaultVolume
	e.repeat = core.RepeatOff
	e.ambient = core.DefaultAmbient
	e.intn = rand.IntN
	e.colorTimeout = 10 * time.Second
	e.recordTimeout = 10 * time.Second
}
