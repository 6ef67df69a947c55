package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/server"
)

var (
	serveAddr     string
	serveProvider string
	serveMute     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [query]",
	Short: "Run a player that other commands can control",
	Long: `Run the playback engine and expose it over a websocket.

Browsers and other vibe commands (tail, status, next, ui --remote, ...)
connect to ws://<addr>/ws. GET /api/state returns the current snapshot and
POST /api/command accepts a single command.

With a query, the results are queued and the first one starts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringVarP(&serveProvider, "provider", "P", "", "catalog for the initial query")
	serveCmd.Flags().BoolVar(&serveMute, "mute", false, "run without audio output")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	s, err := startSession(ctx, logger, serveMute)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if len(args) > 0 {
		tracks, err := searchTracks(ctx, serveProvider, strings.Join(args, " "), 0)
		if err != nil {
			return err
		}
		if err := seed(ctx, s.engine, tracks); err != nil {
			return err
		}
	}

	if !JSONOutput() {
		fmt.Printf("Serving on ws://%s/ws (Ctrl+C to stop)\n", addr)
	}
	return server.New(s.engine, logger.With("component", "server")).ListenAndServe(ctx, addr)
}
