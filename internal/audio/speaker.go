//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"io"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerAvailable reports whether this build can drive the sound card.
const SpeakerAvailable = true

func defaultBackend() backend {
	return newSpeakerBackend()
}

// speakerBackend plays through the system speaker with beep.
type speakerBackend struct {
	sampleRate  beep.SampleRate
	initialized bool

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
}

func newSpeakerBackend() *speakerBackend {
	return &speakerBackend{sampleRate: beep.SampleRate(44100)}
}

func (s *speakerBackend) start(data []byte, volume float64, onEnd func()) (time.Duration, error) {
	s.stop()

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return 0, err
	}

	if !s.initialized {
		if err := speaker.Init(s.sampleRate, s.sampleRate.N(time.Second/10)); err != nil {
			_ = streamer.Close()
			return 0, err
		}
		s.initialized = true
	}

	s.streamer = streamer
	s.format = format
	s.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, s.sampleRate, streamer)}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	applyLevel(s.volume, volume)

	// The callback runs under the speaker lock.
	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		go onEnd()
	})))

	return format.SampleRate.D(streamer.Len()), nil
}

// applyLevel maps a linear level onto the exponential volume effect.
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

func (s *speakerBackend) pause() {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (s *speakerBackend) resume() {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

func (s *speakerBackend) seek(d time.Duration) error {
	if s.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()

	n := s.format.SampleRate.N(d)
	if last := s.streamer.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	return s.streamer.Seek(n)
}

func (s *speakerBackend) setVolume(level float64) {
	if s.volume == nil {
		return
	}
	speaker.Lock()
	applyLevel(s.volume, level)
	speaker.Unlock()
}

func (s *speakerBackend) position() time.Duration {
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

func (s *speakerBackend) stop() {
	if s.initialized {
		speaker.Clear()
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
	}
	s.streamer = nil
	s.ctrl = nil
	s.volume = nil
}

func (s *speakerBackend) close() error {
	s.stop()
	if s.initialized {
		speaker.Close()
		s.initialized = false
	}
	return nil
}
