package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/tail"
)

var (
	tailNoEmoji   bool
	tailTimestamp bool
	tailFormat    string
	tailRecent    int
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow playback changes in real-time",
	Long: `Attach to a running 'vibe serve' and print state changes as they happen.

Events tracked:
  - Track changes, completions and skips
  - Pause/Resume
  - Volume, shuffle and repeat changes
  - Ambient color changes
  - Queue additions and playback errors

--format takes a Go template over the event record, for example:
  vibe tail --format '{{.Type}} {{.Artist}} - {{.Title}} {{.Hex}}'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailNoEmoji, "no-emoji", false, "disable emoji output")
	tailCmd.Flags().BoolVarP(&tailTimestamp, "timestamp", "t", false, "show timestamps")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "", "custom format template")
	tailCmd.Flags().IntVarP(&tailRecent, "recent", "n", 5, "recently played tracks to show first")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	c, err := dialRemote(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if tailRecent > 0 && !JSONOutput() {
		showRecent(ctx, tailRecent)
	}

	err = followEvents(ctx, c)
	if err == nil && c.Err() != nil {
		return fmt.Errorf("connection closed: %w", c.Err())
	}
	return err
}

// tailFormatter builds the line formatter from config, with flags taking
// precedence.
func tailFormatter() (*tail.Formatter, error) {
	emoji := cfg.Tail.Emoji && !tailNoEmoji
	timestamp := cfg.Tail.Timestamp || tailTimestamp

	text := cfg.Tail.Template
	if tailFormat != "" {
		text = tailFormat
	}

	opts := []tail.FormatterOption{tail.WithEmoji(emoji), tail.WithTimestamp(timestamp)}
	if text != "" {
		tmpl, err := tail.ParseTemplate(text)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tail.WithTemplate(tmpl))
	}
	return tail.NewFormatter(opts...), nil
}

// followEvents prints events from src until ctx is cancelled or the source
// goes away.
func followEvents(ctx context.Context, src tail.Source) error {
	formatter, err := tailFormatter()
	if err != nil {
		return err
	}

	w := tail.NewWatcher(src)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	for e := range w.Events() {
		if JSONOutput() {
			if err := printJSON(tail.NewRecord(e)); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatter.Format(e))
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// showRecent prints the last n plays, oldest first. History is optional
// here, so failures are only logged.
func showRecent(ctx context.Context, n int) {
	store, err := openHistory(ctx)
	if err != nil || store == nil {
		if err != nil {
			logger.Debug("history unavailable", "err", err)
		}
		return
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, cfg.History.Listener, n)
	if err != nil {
		logger.Debug("recent plays", "err", err)
		return
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		prefix := ""
		if cfg.Tail.Timestamp || tailTimestamp {
			prefix = e.PlayedAt.Local().Format("15:04:05") + " "
		}
		if cfg.Tail.Emoji && !tailNoEmoji {
			prefix += "⏪ "
		}
		fmt.Printf("%s%s - %s\n", prefix, e.Track.Artist, e.Track.Title)
	}
}
