package core

import (
	"context"
	"time"
)

// Player defines the command surface of the playback engine.
type Player interface {
	// Transport
	PlayTrack(ctx context.Context, t Track) error
	TogglePlay(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error

	// Volume control, 0..1
	SetVolume(ctx context.Context, level float64) error

	// Modes
	ToggleShuffle(ctx context.Context) error
	ToggleRepeat(ctx context.Context) error

	// Queue manipulation
	AddToQueue(ctx context.Context, t Track) error

	// State queries
	State(ctx context.Context) (*PlaybackState, error)
	Subscribe() (<-chan PlaybackState, func())
}

// Catalog supplies tracks from a search backend.
type Catalog interface {
	Name() Source
	Search(ctx context.Context, query string, limit int) ([]Track, error)
}

// PlayRecorder receives "track was played" notifications.
type PlayRecorder interface {
	RecordPlay(ctx context.Context, t Track, listener string) error
}

// ColorDeriver computes the ambient tint for a cover image.
type ColorDeriver interface {
	Derive(ctx context.Context, coverURL string) (Color, error)
}

// AudioEventKind identifies a notification from the audio output.
type AudioEventKind int

const (
	AudioTimeUpdate AudioEventKind = iota
	AudioMetadata
	AudioEnded
	AudioError
)

// AudioEvent is reported by an AudioOutput. Gen is the generation passed to
// Load, so the receiver can ignore events from a superseded source.
type AudioEvent struct {
	Kind     AudioEventKind
	Gen      uint64
	Position time.Duration
	Duration time.Duration
	Err      error
}

// AudioOutput is the single audio resource owned by the engine.
type AudioOutput interface {
	// Load replaces the current source and starts playback.
	Load(gen uint64, src string) error
	Pause()
	Resume()
	Seek(position time.Duration) error
	SetVolume(level float64)
	// Events registers the sink for asynchronous notifications.
	Events(sink func(AudioEvent))
	Close() error
}

// HistoryEntry represents a recently played track.
type HistoryEntry struct {
	ID       string
	Listener string
	Track    Track
	PlayedAt time.Time
}
