package engine

import (
	"context"
	"time"

	"github.com/tessro/vibe/internal/core"
)

func (e *Engine) playTrack(t core.Track) {
	e.gen++
	e.current = &t
	e.position = 0
	e.duration = t.Duration
	e.playing = true
	e.lastError = ""

	e.logger.Debug("playing track", "track", t.Key(), "title", t.Title, "gen", e.gen)

	// Both tasks capture the current generation, so they must start before
	// a failed load can advance to another track.
	e.notifyPlayed(t)
	e.deriveColor(t)

	e.load(false)
}

// restart replays the current source from zero without counting as a new
// play: the generation is kept, so no notification or color work happens.
func (e *Engine) restart() {
	if e.current == nil {
		return
	}
	e.position = 0
	e.playing = true
	e.load(false)
}

// load hands the current source to the audio output under a fresh load
// token. Events still in flight from an earlier stream, including one of
// the same track, no longer match and are dropped.
func (e *Engine) load(paused bool) {
	e.loadGen++
	if err := e.audio.Load(e.loadGen, e.current.Preview); err != nil {
		e.onPlaybackError(err)
		return
	}
	if paused {
		e.audio.Pause()
	}
}

func (e *Engine) togglePlay() {
	if e.current == nil {
		return
	}

	if e.playing {
		e.audio.Pause()
	} else {
		e.audio.Resume()
	}
	e.playing = !e.playing
}

func (e *Engine) seek(position time.Duration) {
	if e.current == nil {
		return
	}
	position = e.clampPosition(position)
	e.position = position
	if err := e.audio.Seek(position); err != nil {
		e.logger.Warn("seek failed", "position", position, "err", err)
	}
}

func (e *Engine) clampPosition(p time.Duration) time.Duration {
	if p < 0 {
		return 0
	}
	if e.duration > 0 && p > e.duration {
		return e.duration
	}
	return p
}

// nextTrack applies the next-track rules and reports whether a track was
// started:
//   - empty queue: nothing happens
//   - shuffle: a uniformly random index, repeats allowed
//   - repeat all on the last entry: wrap to the first
//   - otherwise the following entry, if there is one
//
// A current track missing from the queue counts as index -1.
func (e *Engine) nextTrack() bool {
	n := e.queue.Len()
	if n == 0 {
		return false
	}

	i := e.queue.IndexOf(e.current)

	var next int
	switch {
	case e.shuffle:
		next = e.intn(n)
	case e.repeat == core.RepeatAll && i == n-1:
		next = 0
	default:
		next = i + 1
	}

	t := e.queue.At(next)
	if t == nil {
		return false
	}
	e.playTrack(*t)
	return true
}

// previousTrack always walks back in stored queue order, wrapping to the
// end only under repeat all.
func (e *Engine) previousTrack() {
	n := e.queue.Len()
	if n == 0 {
		return
	}

	prev := e.queue.IndexOf(e.current) - 1
	switch {
	case prev >= 0:
		e.playTrack(*e.queue.At(prev))
	case e.repeat == core.RepeatAll:
		e.playTrack(*e.queue.At(n - 1))
	}
}

func (e *Engine) onAudioEvent(ev core.AudioEvent) bool {
	if ev.Gen != e.loadGen || e.current == nil {
		e.logger.Debug("dropping stale audio event", "kind", ev.Kind, "gen", ev.Gen, "current", e.loadGen)
		return false
	}

	switch ev.Kind {
	case core.AudioTimeUpdate:
		e.failures = 0
		e.position = e.clampPosition(ev.Position)
	case core.AudioMetadata:
		e.failures = 0
		if ev.Duration > 0 {
			e.duration = ev.Duration
			e.position = e.clampPosition(e.position)
		}
	case core.AudioEnded:
		e.onEnded()
	case core.AudioError:
		e.onPlaybackError(ev.Err)
	default:
		return false
	}
	return true
}

func (e *Engine) onEnded() {
	if e.repeat == core.RepeatOne {
		e.restart()
		return
	}
	if e.nextTrack() {
		return
	}

	// Nothing follows: rewind and hold the track paused, an ordinary paused
	// state that play resumes and seek repositions.
	e.playing = false
	e.position = 0
	e.load(true)
}

// onPlaybackError leaves the play/pause flag untouched so the failed track
// stays visible; it only advances when configured to, and gives up after
// one pass over the queue.
func (e *Engine) onPlaybackError(err error) {
	if err == nil {
		return
	}
	e.lastError = err.Error()
	title := ""
	if e.current != nil {
		title = e.current.Title
	}
	e.logger.Warn("playback error", "title", title, "err", err)

	if e.advanceOnError && e.failures < e.queue.Len() {
		e.failures++
		e.nextTrack()
	}
}

func (e *Engine) notifyPlayed(t core.Track) {
	if e.recorder == nil {
		return
	}
	rec, listener, timeout, logger := e.recorder, e.listener, e.recordTimeout, e.logger
	base := e.runCtx

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(base), timeout)
		defer cancel()
		if err := rec.RecordPlay(ctx, t, listener); err != nil {
			logger.Warn("recording play failed", "title", t.Title, "err", err)
		}
	}()
}

func (e *Engine) deriveColor(t core.Track) {
	if e.colors == nil || t.Cover == "" {
		return
	}
	gen, colors, timeout, inbox := e.gen, e.colors, e.colorTimeout, e.inbox
	base := e.runCtx

	go func() {
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		c, err := colors.Derive(ctx, t.Cover)
		inbox.push(colorResult{gen: gen, cover: t.Cover, color: c, err: err})
	}()
}

// onColor publishes a derived color only if it belongs to the track that
// is current now. Results for superseded tracks are discarded.
func (e *Engine) onColor(r colorResult) bool {
	if r.gen != e.gen {
		e.logger.Debug("discarding stale ambient color", "cover", r.cover, "gen", r.gen, "current", e.gen)
		return false
	}
	if r.err != nil {
		e.logger.Warn("ambient color derivation failed", "cover", r.cover, "err", r.err)
		return false
	}
	e.ambient = r.color
	return true
}
