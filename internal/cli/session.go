package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tessro/vibe/internal/ambient"
	"github.com/tessro/vibe/internal/audio"
	"github.com/tessro/vibe/internal/catalog"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/engine"
	vibeerrors "github.com/tessro/vibe/internal/errors"
	"github.com/tessro/vibe/internal/history"
	"github.com/tessro/vibe/internal/server"
)

// session is a running engine together with the resources it owns.
type session struct {
	engine  *engine.Engine
	history *history.Store

	cancel context.CancelFunc
	done   chan error
}

// startSession builds the engine from the loaded configuration and starts
// its loop. Close must be called to stop it.
func startSession(ctx context.Context, l *log.Logger, muted bool) (*session, error) {
	repeat, err := core.ParseRepeatMode(cfg.Player.Repeat)
	if err != nil {
		return nil, err
	}

	audioOpts := []audio.Option{audio.WithLogger(l.With("component", "audio"))}
	if muted {
		audioOpts = append(audioOpts, audio.Muted())
	}

	opts := []engine.Option{
		engine.WithLogger(l.With("component", "engine")),
		engine.WithVolume(float64(cfg.Player.Volume) / 100),
		engine.WithShuffle(cfg.Player.Shuffle),
		engine.WithRepeat(repeat),
		engine.WithAdvanceOnError(cfg.Player.AdvanceOnError),
	}

	if cfg.Ambient.Enabled {
		timeout := time.Duration(cfg.Ambient.FetchTimeout) * time.Second
		src := ambient.NewSource(ambient.Options{
			Threshold:    cfg.Ambient.Threshold,
			MinLightness: cfg.Ambient.MinLightness,
		}, timeout)
		opts = append(opts, engine.WithColors(src, timeout))
	}

	store, err := openHistory(ctx)
	if err != nil {
		// Playback works without history.
		l.Warn("history unavailable", "path", cfg.History.Path, "err", err)
	}
	if store != nil {
		opts = append(opts, engine.WithRecorder(store, cfg.History.Listener))
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{
		engine:  engine.New(audio.New(audioOpts...), opts...),
		history: store,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() {
		s.done <- s.engine.Run(runCtx)
	}()
	return s, nil
}

// Close stops the engine and releases the history database.
func (s *session) Close() error {
	s.cancel()
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if s.history != nil {
		err = errors.Join(err, s.history.Close())
	}
	return err
}

// seed enqueues tracks in order and starts the first one.
func seed(ctx context.Context, p core.Player, tracks []core.Track) error {
	for _, t := range tracks {
		if err := p.AddToQueue(ctx, t); err != nil {
			return err
		}
	}
	if len(tracks) == 0 {
		return nil
	}
	return p.PlayTrack(ctx, tracks[0])
}

func openHistory(ctx context.Context) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(ctx, cfg.History.Path)
}

// requireHistory is openHistory for commands that cannot work without it.
func requireHistory(ctx context.Context) (*history.Store, error) {
	store, err := openHistory(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, vibeerrors.WithSuggestion(errors.New("history is disabled"),
			"Enable it with 'vibe config set history.enabled true'")
	}
	return store, nil
}

func newCatalog(provider string) (core.Catalog, error) {
	if provider == "" {
		provider = cfg.Catalog.Provider
	}
	return catalog.New(catalog.Settings{
		Provider:     provider,
		Country:      cfg.Catalog.Country,
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
	},
		catalog.WithTimeout(time.Duration(cfg.Catalog.Timeout)*time.Second),
		catalog.WithRate(cfg.Catalog.Rate),
		catalog.WithLogger(logger.With("component", "catalog", "provider", provider)),
	)
}

// searchTracks returns the playable results for query, or ErrNoResults.
func searchTracks(ctx context.Context, provider, query string, limit int) ([]core.Track, error) {
	cat, err := newCatalog(provider)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = cfg.Catalog.Limit
	}

	tracks, err := cat.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", cat.Name(), err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%q: %w", query, vibeerrors.ErrNoResults)
	}
	return tracks, nil
}

// dialRemote connects to a running `vibe serve`.
func dialRemote(ctx context.Context) (*server.Client, error) {
	addr := remoteAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := server.Dial(dialCtx, addr, logger.With("component", "remote"))
	if err != nil {
		return nil, vibeerrors.WithSuggestion(err, "Start a player with 'vibe serve' or pass --addr")
	}
	return c, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
