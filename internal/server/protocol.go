// Package server exposes a running player over a websocket so that other
// processes (a browser, `vibe tail`, the control commands) can follow its
// state and drive it.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

// Message types sent by the server.
const (
	TypeState = "state"
	TypeAck   = "ack"
)

// Command names accepted from clients.
const (
	CmdPlay     = "play"
	CmdToggle   = "toggle"
	CmdNext     = "next"
	CmdPrevious = "previous"
	CmdSeek     = "seek"
	CmdVolume   = "volume"
	CmdShuffle  = "shuffle"
	CmdRepeat   = "repeat"
	CmdEnqueue  = "enqueue"
)

// ErrUnknownCommand is returned for a command name the server does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a client request. Track is required for play and enqueue,
// Position for seek and Volume for volume.
type Command struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type"`
	Track    *core.Track   `json:"track,omitempty"`
	Position time.Duration `json:"position,omitempty"`
	Volume   float64       `json:"volume,omitempty"`
}

// Message is anything the server sends: a state snapshot or the
// acknowledgement of a command.
type Message struct {
	Type  string              `json:"type"`
	ID    string              `json:"id,omitempty"`
	State *core.PlaybackState `json:"state,omitempty"`
	Error string              `json:"error,omitempty"`
}

// Apply runs cmd against p.
func Apply(ctx context.Context, p core.Player, cmd Command) error {
	switch cmd.Type {
	case CmdPlay, CmdEnqueue:
		if cmd.Track == nil {
			return fmt.Errorf("%s: missing track", cmd.Type)
		}
		if !cmd.Track.Playable() {
			return fmt.Errorf("%s %q: %w", cmd.Type, cmd.Track.Title, vibeerrors.ErrNoPreview)
		}
		if cmd.Type == CmdPlay {
			return p.PlayTrack(ctx, *cmd.Track)
		}
		return p.AddToQueue(ctx, *cmd.Track)
	case CmdToggle:
		return p.TogglePlay(ctx)
	case CmdNext:
		return p.Next(ctx)
	case CmdPrevious:
		return p.Previous(ctx)
	case CmdSeek:
		return p.Seek(ctx, cmd.Position)
	case CmdVolume:
		return p.SetVolume(ctx, cmd.Volume)
	case CmdShuffle:
		return p.ToggleShuffle(ctx)
	case CmdRepeat:
		return p.ToggleRepeat(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
