package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/logging"
)

// ErrDisconnected is returned once the connection to the server is gone.
var ErrDisconnected = errors.New("disconnected from player")

// Client is a remote player served by Server. Commands block until the
// server acknowledges them.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan error
	subs    map[chan core.PlaybackState]struct{}
	last    atomic.Pointer[core.PlaybackState]
	ready   chan struct{}
	gotOne  sync.Once
	closed  chan struct{}
	readErr error
}

// URL turns a listen address such as "127.0.0.1:7878" into the websocket
// endpoint. Full ws:// or wss:// URLs are returned unchanged.
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	return u.String()
}

// Dial connects to a vibe server.
func Dial(ctx context.Context, rawURL string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, URL(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", rawURL, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan error),
		subs:    make(map[chan core.PlaybackState]struct{}),
		ready:   make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	var err error
	defer func() { c.shutdown(err) }()

	for {
		var msg Message
		if err = c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case TypeState:
			if msg.State != nil {
				c.publish(*msg.State)
			}
		case TypeAck:
			c.resolve(msg)
		default:
			c.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (c *Client) publish(s core.PlaybackState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last.Store(&s)
	c.gotOne.Do(func() { close(c.ready) })

	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (c *Client) resolve(msg Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if !ok {
		if msg.Error != "" {
			c.logger.Warn("server reported error", "err", msg.Error)
		}
		return
	}
	if msg.Error != "" {
		ch <- errors.New(msg.Error)
		return
	}
	ch <- nil
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return
	default:
	}
	c.readErr = err
	close(c.closed)

	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- ErrDisconnected
	}
}

// Subscribe returns a latest-wins stream of remote snapshots. The channel
// is closed when the connection ends.
func (c *Client) Subscribe() (<-chan core.PlaybackState, func()) {
	ch := make(chan core.PlaybackState, 1)

	c.mu.Lock()
	select {
	case <-c.closed:
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	default:
	}
	// Priming under the lock means a concurrent publish either lands in
	// last before this load or fans out to ch after registration.
	if last := c.last.Load(); last != nil {
		ch <- *last
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
}

// State returns the latest snapshot, waiting for the first one if needed.
func (c *Client) State(ctx context.Context) (*core.PlaybackState, error) {
	select {
	case <-c.ready:
		s := *c.last.Load()
		return &s, nil
	case <-c.closed:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do sends cmd and waits for the server to acknowledge it.
func (c *Client) Do(ctx context.Context, cmd Command) error {
	cmd.ID = uuid.NewString()
	done := make(chan error, 1)

	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return ErrDisconnected
	default:
	}
	c.pending[cmd.ID] = done
	c.mu.Unlock()

	if err := c.write(cmd); err != nil {
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
		return ctx.Err()
	}
}

func (c *Client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Err reports why the connection ended, if it has.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// PlayTrack asks the server to play t.
func (c *Client) PlayTrack(ctx context.Context, t core.Track) error {
	return c.Do(ctx, Command{Type: CmdPlay, Track: &t})
}

func (c *Client) TogglePlay(ctx context.Context) error {
	return c.Do(ctx, Command{Type: CmdToggle})
}

func (c *Client) Next(ctx context.Context) error {
	return c.Do(ctx, Command{Type: CmdNext})
}

func (c *Client) Previous(ctx context.Context) error {
	return c.Do(ctx, Command{Type: CmdPrevious})
}

func (c *Client) Seek(ctx context.Context, position time.Duration) error {
	return c.Do(ctx, Command{Type: CmdSeek, Position: position})
}

func (c *Client) SetVolume(ctx context.Context, level float64) error {
	return c.Do(ctx, Command{Type: CmdVolume, Volume: level})
}

func (c *Client) ToggleShuffle(ctx context.Context) error {
	return c.Do(ctx, Command{Type: CmdShuffle})
}

func (c *Client) ToggleRepeat(ctx context.Context) error {
	return c.Do(ctx, Command{Type: CmdRepeat})
}

func (c *Client) AddToQueue(ctx context.Context, t core.Track) error {
	return c.Do(ctx, Command{Type: CmdEnqueue, Track: &t})
}

var _ core.Player = (*Client)(nil)
