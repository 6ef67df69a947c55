package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	commandTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	// Browser front ends are served from anywhere during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server bridges a Player to websocket clients.
type Server struct {
	player core.Player
	logger *log.Logger
}

// New creates a server for p.
func New(p core.Player, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{player: p, logger: logger}
}

// Handler returns the HTTP routes:
//
//	GET  /ws          websocket: state stream in, commands out
//	GET  /api/state   current snapshot as JSON
//	POST /api/command one Command, answered with an ack Message
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.player.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, Message{Type: TypeAck, Error: err.Error()})
		return
	}

	ack := s.apply(r.Context(), cmd)
	status := http.StatusOK
	if ack.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ack)
}

func (s *Server) apply(ctx context.Context, cmd Command) Message {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	ack := Message{Type: TypeAck, ID: cmd.ID}
	if err := Apply(ctx, s.player, cmd); err != nil {
		s.logger.Warn("command failed", "type", cmd.Type, "err", err)
		ack.Error = err.Error()
	}
	return ack
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Debug("client connected")

	states, cancel := s.player.Subscribe()
	defer cancel()

	// Acks are written by this goroutine only; gorilla connections allow a
	// single concurrent writer.
	acks := make(chan Message, 16)
	done := make(chan struct{})
	go s.readCommands(r.Context(), conn, acks, done, logger)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg Message
		select {
		case <-done:
			logger.Debug("client disconnected")
			return
		case state, ok := <-states:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "player stopped"),
					time.Now().Add(writeWait))
				return
			}
			msg = Message{Type: TypeState, State: &state}
		case msg = <-acks:
			// A command's state is published before it is acknowledged;
			// send it first so clients see the result when the ack lands.
			select {
			case state, ok := <-states:
				if ok {
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteJSON(Message{Type: TypeState, State: &state}); err != nil {
						return
					}
				}
			default:
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("write failed", "err", err)
			return
		}
	}
}

func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, acks chan<- Message, done chan<- struct{}, logger *log.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var (
			cmd Command
			ack Message
		)
		// Transport errors end the session; a frame that arrived intact but
		// does not decode is only refused.
		_, r, err := conn.NextReader()
		var data []byte
		if err == nil {
			data, err = io.ReadAll(r)
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := json.Unmarshal(data, &cmd); err != nil {
			ack = Message{Type: TypeAck, Error: "malformed command: " + err.Error()}
		} else {
			ack = s.apply(ctx, cmd)
		}

		select {
		case acks <- ack:
		case <-ctx.Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
