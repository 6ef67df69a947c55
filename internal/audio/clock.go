package audio

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep/v2/mp3"
)

// clockBackend keeps time for a stream without producing sound.
type clockBackend struct {
	mu      sync.Mutex
	now     func() time.Time
	length  time.Duration
	offset  time.Duration
	started time.Time
	running bool
	timer   *time.Timer
	seq     uint64
	onEnd   func()
}

func newClockBackend() *clockBackend {
	return &clockBackend{now: time.Now}
}

// previewLength decodes the MP3 header to find the stream length.
func previewLength(data []byte) (time.Duration, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = streamer.Close() }()
	return format.SampleRate.D(streamer.Len()), nil
}

func (c *clockBackend) start(data []byte, _ float64, onEnd func()) (time.Duration, error) {
	length, err := previewLength(data)
	if err != nil {
		return 0, err
	}
	return c.begin(length, onEnd), nil
}

func (c *clockBackend) begin(length time.Duration, onEnd func()) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.length = length
	c.offset = 0
	c.onEnd = onEnd
	c.started = c.now()
	c.running = true
	c.armLocked()
	return length
}

func (c *clockBackend) armLocked() {
	c.seq++
	seq := c.seq
	remaining := c.length - c.offset
	if remaining < 0 {
		remaining = 0
	}
	c.timer = time.AfterFunc(remaining, func() {
		c.mu.Lock()
		if seq != c.seq || !c.running {
			c.mu.Unlock()
			return
		}
		c.running = false
		c.offset = c.length
		cb := c.onEnd
		c.onEnd = nil
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

func (c *clockBackend) disarmLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *clockBackend) elapsedLocked() time.Duration {
	pos := c.offset
	if c.running {
		pos += c.now().Sub(c.started)
	}
	if pos > c.length {
		pos = c.length
	}
	return pos
}

func (c *clockBackend) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.offset = c.elapsedLocked()
	c.running = false
	c.disarmLocked()
}

func (c *clockBackend) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.onEnd == nil {
		return
	}
	c.started = c.now()
	c.running = true
	c.armLocked()
}

func (c *clockBackend) seek(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	if d > c.length {
		d = c.length
	}
	c.offset = d
	if c.running {
		c.started = c.now()
		c.disarmLocked()
		c.armLocked()
	}
	return nil
}

func (c *clockBackend) setVolume(float64) {}

func (c *clockBackend) position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *clockBackend) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *clockBackend) stopLocked() {
	c.disarmLocked()
	c.running = false
	c.onEnd = nil
	c.offset = 0
	c.length = 0
}

func (c *clockBackend) close() error {
	c.stop()
	return nil
}
