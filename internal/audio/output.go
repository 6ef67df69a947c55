// Package audio provides the single audio output owned by the playback
// engine. Sources are preview URLs fetched over HTTP and decoded as MP3.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

// maxPreviewSize bounds a downloaded preview.
const maxPreviewSize = 20 << 20

// ErrClosed is returned by Load after Close.
var ErrClosed = errors.New("audio output closed")

// backend plays decoded audio. Implementations are not safe for concurrent
// use; Output serializes every call.
type backend interface {
	// start replaces the current stream and begins playing data. onEnd runs
	// once, on another goroutine, when the stream finishes.
	start(data []byte, volume float64, onEnd func()) (time.Duration, error)
	pause()
	resume()
	seek(d time.Duration) error
	setVolume(v float64)
	position() time.Duration
	stop()
	close() error
}

// Output implements core.AudioOutput. Load returns at once; fetching and
// decoding happen in the background and report through events.
type Output struct {
	client  *http.Client
	logger  *log.Logger
	tick    time.Duration
	backend backend

	mu          sync.Mutex
	sink        func(core.AudioEvent)
	gen         uint64
	cancel      context.CancelFunc
	cacheSrc    string
	cacheData   []byte
	loaded      bool
	paused      bool
	volume      float64
	pendingSeek time.Duration
	closed      bool
}

// Option configures an Output.
type Option func(*Output)

// WithHTTPClient sets the client used to download previews.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Output) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Output) {
		if l != nil {
			o.logger = l.With("component", "audio")
		}
	}
}

// WithTick sets how often position updates are reported while playing.
func WithTick(d time.Duration) Option {
	return func(o *Output) {
		if d > 0 {
			o.tick = d
		}
	}
}

// Muted plays through a silent clock instead of the sound card. Position
// and end-of-track events still fire at real-time pace.
func Muted() Option {
	return func(o *Output) {
		o.backend = newClockBackend()
	}
}

// New creates an output that plays through the system speaker when this
// build supports it, and silently otherwise.
func New(opts ...Option) *Output {
	o := &Output{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.New(io.Discard),
		tick:   250 * time.Millisecond,
		volume: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.backend == nil {
		o.backend = defaultBackend()
	}
	return o
}

// Events registers the event sink.
func (o *Output) Events(sink func(core.AudioEvent)) {
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// Load stops the current stream and starts src in the background. Events
// for it carry gen. Loading the same source again reuses the downloaded
// bytes.
func (o *Output) Load(gen uint64, src string) error {
	if src == "" {
		return vibeerrors.ErrNoPreview
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.resetLocked()
	o.gen = gen

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	var cached []byte
	if src == o.cacheSrc {
		cached = o.cacheData
	}
	o.mu.Unlock()

	go o.load(ctx, gen, src, cached)
	return nil
}

func (o *Output) load(ctx context.Context, gen uint64, src string, data []byte) {
	if data == nil {
		var err error
		data, err = o.fetch(ctx, src)
		if err != nil {
			if ctx.Err() == nil {
				o.emit(core.AudioEvent{Kind: core.AudioError, Gen: gen, Err: err})
			}
			return
		}
	}

	o.mu.Lock()
	if ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	o.cacheSrc, o.cacheData = src, data

	length, err := o.backend.start(data, o.volume, func() { o.ended(ctx, gen) })
	if err != nil {
		o.mu.Unlock()
		o.emit(core.AudioEvent{Kind: core.AudioError, Gen: gen, Err: fmt.Errorf("decode preview: %w", err)})
		return
	}
	if o.pendingSeek > 0 {
		if err := o.backend.seek(o.pendingSeek); err != nil {
			o.logger.Warn("applying seek", "err", err)
		}
	}
	if o.paused {
		o.backend.pause()
	}
	o.loaded = true
	o.mu.Unlock()

	o.logger.Debug("preview loaded", "src", src, "length", length, "gen", gen)
	o.emit(core.AudioEvent{Kind: core.AudioMetadata, Gen: gen, Duration: length})
	go o.report(ctx, gen)
}

func (o *Output) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("preview request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vibeerrors.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch preview: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewSize))
	if err != nil {
		return nil, fmt.Errorf("read preview: %w", err)
	}
	return data, nil
}

// report emits position updates until the stream is replaced.
func (o *Output) report(ctx context.Context, gen uint64) {
	t := time.NewTicker(o.tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.mu.Lock()
			if ctx.Err() != nil || o.paused {
				o.mu.Unlock()
				continue
			}
			pos := o.backend.position()
			o.mu.Unlock()
			o.emit(core.AudioEvent{Kind: core.AudioTimeUpdate, Gen: gen, Position: pos})
		}
	}
}

// ended reports the end of the stream started under ctx. The check and the
// delivery share the lock with Load, so a stream replaced by Load never
// reports an end afterwards.
func (o *Output) ended(ctx context.Context, gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ctx.Err() != nil || o.sink == nil {
		return
	}
	o.sink(core.AudioEvent{Kind: core.AudioEnded, Gen: gen})
}

func (o *Output) emit(ev core.AudioEvent) {
	o.mu.Lock()
	sink := o.sink
	o.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// Pause halts playback, keeping the position.
func (o *Output) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	if o.loaded {
		o.backend.pause()
	}
}

// Resume continues a paused stream.
func (o *Output) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	if o.loaded {
		o.backend.resume()
	}
}

// Seek repositions the stream. A seek issued while loading applies once
// the source is ready.
func (o *Output) Seek(d time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.loaded {
		o.pendingSeek = d
		return nil
	}
	return o.backend.seek(d)
}

// SetVolume sets the linear output level in [0,1].
func (o *Output) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = v
	o.backend.setVolume(v)
}

// Close stops playback and releases the device.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.resetLocked()
	return o.backend.close()
}

func (o *Output) resetLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.backend.stop()
	o.loaded = false
	o.paused = false
	o.pendingSeek = 0
}

var _ core.AudioOutput = (*Output)(nil)
