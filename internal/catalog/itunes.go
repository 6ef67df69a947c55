package catalog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
)

// ITunesURL is the iTunes Search API host.
const ITunesURL = "https://itunes.apple.com"

// ITunes searches the iTunes Store.
type ITunes struct {
	client  *Client
	country string
}

// NewITunes creates an iTunes provider for the given storefront.
func NewITunes(country string, opts ...Option) *ITunes {
	return &ITunes{
		client:  newClient(string(core.SourceITunes), ITunesURL, opts...),
		country: country,
	}
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	TrackID         int64  `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	ArtworkURL100   string `json:"artworkUrl100"`
	PreviewURL      string `json:"previewUrl"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
}

func (p *ITunes) Name() core.Source { return core.SourceITunes }

// Search returns playable songs matching query.
func (p *ITunes) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	params := map[string]string{
		"term":   query,
		"media":  "music",
		"entity": "song",
		"limit":  strconv.Itoa(limit),
	}
	if p.country != "" {
		params["country"] = p.country
	}

	var resp itunesResponse
	if err := p.client.Get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	tracks := lo.Map(resp.Results, func(r itunesResult, _ int) core.Track {
		return core.Track{
			ID:       strconv.FormatInt(r.TrackID, 10),
			Title:    r.TrackName,
			Artist:   r.ArtistName,
			Album:    r.CollectionName,
			Cover:    strings.Replace(r.ArtworkURL100, "100x100", "600x600", 1),
			Preview:  r.PreviewURL,
			Duration: time.Duration(r.TrackTimeMillis) * time.Millisecond,
			Source:   core.SourceITunes,
		}
	})
	return playable(tracks), nil
}
