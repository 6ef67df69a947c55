// Package tail turns a stream of player snapshots into discrete events
// such as track changes, pauses and mode switches.
package tail

import (
	"context"
	"time"

	"github.com/tessro/vibe/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventVolumeChange
	EventShuffleChange
	EventRepeatChange
	EventAmbientChange
	EventQueueAdd
	EventError
)

// completionSlack is how close to the end a track must be for a change to
// count as a completion rather than a skip.
const completionSlack = 2 * time.Second

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlaybackState
	Current   *core.PlaybackState
}

// Source is anything that publishes player snapshots.
type Source interface {
	Subscribe() (<-chan core.PlaybackState, func())
}

// Watcher follows a Source and emits events.
type Watcher struct {
	source Source
	events chan Event
	now    func() time.Time
}

// NewWatcher creates a watcher for source.
func NewWatcher(source Source) *Watcher {
	return &Watcher{
		source: source,
		events: make(chan Event, 64),
		now:    time.Now,
	}
}

// Events returns the channel of playback events. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run consumes snapshots until ctx is done or the source closes its
// stream.
func (w *Watcher) Run(ctx context.Context) error {
	states, cancel := w.source.Subscribe()
	defer cancel()
	defer close(w.events)

	var prev *core.PlaybackState
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-states:
			if !ok {
				return nil
			}
			curr := s
			for _, e := range diffStates(prev, &curr, w.now()) {
				select {
				case w.events <- e:
				default:
					// Drop event if channel is full
				}
			}
			prev = &curr
		}
	}
}

// diffStates compares two states and returns detected events.
func diffStates(prev, curr *core.PlaybackState, now time.Time) []Event {
	if curr == nil {
		return nil
	}

	var events []Event
	add := func(t EventType) {
		events = append(events, Event{Type: t, Timestamp: now, Previous: prev, Current: curr})
	}

	// First snapshot
	if prev == nil {
		if curr.HasTrack() {
			add(EventTrackChange)
		}
		return events
	}

	if trackChanged(prev, curr) {
		switch {
		case prev.HasTrack() && wasCompleted(prev):
			add(EventTrackComplete)
		case prev.HasTrack():
			add(EventTrackSkip)
		default:
			add(EventTrackChange)
		}
	}

	switch {
	case prev.IsPlaying && !curr.IsPlaying:
		add(EventPause)
	case !prev.IsPlaying && curr.IsPlaying && !trackChanged(prev, curr):
		add(EventResume)
	}

	if prev.VolumePercent() != curr.VolumePercent() {
		add(EventVolumeChange)
	}
	if prev.Shuffle != curr.Shuffle {
		add(EventShuffleChange)
	}
	if prev.Repeat != curr.Repeat {
		add(EventRepeatChange)
	}
	if prev.Ambient != curr.Ambient {
		add(EventAmbientChange)
	}
	if len(curr.Queue) > len(prev.Queue) {
		add(EventQueueAdd)
	}
	if curr.Error != "" && curr.Error != prev.Error {
		add(EventError)
	}

	return events
}

func trackChanged(prev, curr *core.PlaybackState) bool {
	if !prev.HasTrack() || !curr.HasTrack() {
		return prev.HasTrack() != curr.HasTrack()
	}
	return !prev.Track.SameAs(curr.Track)
}

// wasCompleted reports whether prev was at (or very near) its end.
func wasCompleted(prev *core.PlaybackState) bool {
	return prev.Duration > 0 && prev.Duration-prev.Position <= completionSlack
}
