package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/catalog"
	"github.com/tessro/vibe/internal/config"
	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

var (
	searchProvider string
	searchAll      bool
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog for previews",
	Long: `Search for tracks with a playable preview.

With --all every provider is queried at once; providers that fail are
reported without hiding the others' results.

Examples:
  vibe search "bohemian rhapsody"
  vibe search --provider deezer daft punk
  vibe search --all --limit 5 lofi`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchProvider, "provider", "P", "", "catalog to search (itunes, deezer, spotify)")
	searchCmd.Flags().BoolVarP(&searchAll, "all", "a", false, "search every provider")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum results per provider")
	searchCmd.MarkFlagsMutuallyExclusive("provider", "all")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	query := strings.Join(args, " ")

	if !searchAll {
		tracks, err := searchTracks(ctx, searchProvider, query, searchLimit)
		if err != nil {
			return err
		}
		return outputTracks(tracks)
	}

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Catalog.Limit
	}

	var (
		catalogs []core.Catalog
		setupErr = &vibeerrors.PartialResult[[]core.Track]{}
	)
	for _, name := range config.Providers {
		c, err := newCatalog(name)
		if err != nil {
			setupErr.AddError(fmt.Errorf("%s: %w", name, err))
			continue
		}
		catalogs = append(catalogs, c)
	}

	result := catalog.SearchAll(ctx, catalogs, query, limit)
	for _, err := range setupErr.Errors {
		result.AddError(err)
	}
	if result.HasErrors() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", result.ErrorSummary())
	}
	if len(result.Data) == 0 {
		if result.HasErrors() {
			return result.Err()
		}
		return fmt.Errorf("%q: %w", query, vibeerrors.ErrNoResults)
	}
	return outputTracks(result.Data)
}

func outputTracks(tracks []core.Track) error {
	if JSONOutput() {
		return printJSON(tracks)
	}

	table := NewTable("#", "TITLE", "ARTIST", "ALBUM", "LENGTH", "KEY")
	for i, t := range tracks {
		table.Row(
			strconv.Itoa(i+1),
			TruncateString(t.Title, 40),
			TruncateString(t.Artist, 30),
			TruncateString(t.Album, 30),
			FormatDuration(t.Duration),
			t.Key(),
		)
	}
	table.Flush()
	return nil
}
