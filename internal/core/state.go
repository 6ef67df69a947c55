package core

import (
	"fmt"
	"time"
)

// RepeatMode controls what happens when a track or the queue runs out.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Next returns the mode that follows m in the off -> all -> one cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode converts a config or flag value to a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch RepeatMode(s) {
	case "", RepeatOff:
		return RepeatOff, nil
	case RepeatAll, RepeatOne:
		return RepeatMode(s), nil
	default:
		return RepeatOff, fmt.Errorf("invalid repeat mode: %s (must be off, all, or one)", s)
	}
}

// Status is the transport state of the player.
type Status int

const (
	StatusIdle Status = iota
	StatusPaused
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PlaybackState is an immutable snapshot of the player.
type PlaybackState struct {
	Track     *Track        `json:"track"`
	IsPlaying bool          `json:"is_playing"`
	Volume    float64       `json:"volume"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	Queue     []Track       `json:"queue"`
	Shuffle   bool          `json:"shuffle"`
	Repeat    RepeatMode    `json:"repeat"`
	Ambient   Color         `json:"ambient"`
	Error     string        `json:"error,omitempty"`
}

// HasTrack returns true if there is an active track.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.Track != nil
}

// Status derives the transport state.
func (s *PlaybackState) Status() Status {
	switch {
	case !s.HasTrack():
		return StatusIdle
	case s.IsPlaying:
		return StatusPlaying
	default:
		return StatusPaused
	}
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	return float64(s.Position) / float64(s.Duration) * 100
}

// VolumePercent returns the volume rounded to a whole percentage.
func (s *PlaybackState) VolumePercent() int {
	if s == nil {
		return 0
	}
	return int(s.Volume*100 + 0.5)
}
