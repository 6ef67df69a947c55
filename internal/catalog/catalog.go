// Package catalog searches the public music catalogs for preview tracks.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider     string
	Country      string
	ClientID     string
	ClientSecret string
}

// New returns the provider named in s.
func New(s Settings, opts ...Option) (core.Catalog, error) {
	switch core.Source(strings.ToLower(s.Provider)) {
	case core.SourceITunes, "":
		return NewITunes(s.Country, opts...), nil
	case core.SourceDeezer:
		return NewDeezer(opts...), nil
	case core.SourceSpotify:
		sp, err := NewSpotify(s.ClientID, s.ClientSecret, s.Country, opts...)
		if err != nil {
			return nil, err
		}
		return sp, nil
	default:
		return nil, fmt.Errorf("%q: %w", s.Provider, vibeerrors.ErrProviderUnknown)
	}
}

// playable drops tracks the engine cannot play.
func playable(tracks []core.Track) []core.Track {
	return lo.Filter(tracks, func(t core.Track, _ int) bool {
		return t.Playable()
	})
}

// SearchAll queries every catalog concurrently and merges the results in
// catalog order. Failing catalogs are reported without discarding the rest.
func SearchAll(ctx context.Context, catalogs []core.Catalog, query string, limit int) *vibeerrors.PartialResult[[]core.Track] {
	results := make([][]core.Track, len(catalogs))
	errs := make([]error, len(catalogs))

	var wg sync.WaitGroup
	for i, c := range catalogs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracks, err := c.Search(ctx, query, limit)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", c.Name(), err)
				return
			}
			results[i] = tracks
		}()
	}
	wg.Wait()

	out := &vibeerrors.PartialResult[[]core.Track]{}
	for _, err := range errs {
		out.AddError(err)
	}
	out.Data = lo.UniqBy(lo.Flatten(results), func(t core.Track) string {
		return t.Key()
	})
	return out
}
