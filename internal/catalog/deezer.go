package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
)

// DeezerURL is the Deezer public API host.
const DeezerURL = "https://api.deezer.com"

// Deezer searches the Deezer catalog. No credentials are needed.
type Deezer struct {
	client *Client
}

// NewDeezer creates a Deezer provider.
func NewDeezer(opts ...Option) *Deezer {
	return &Deezer{client: newClient(string(core.SourceDeezer), DeezerURL, opts...)}
}

type deezerResponse struct {
	Data  []deezerTrack `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type deezerTrack struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Preview  string `json:"preview"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title   string `json:"title"`
		CoverXL string `json:"cover_xl"`
	} `json:"album"`
}

func (p *Deezer) Name() core.Source { return core.SourceDeezer }

// Search returns playable tracks matching query.
func (p *Deezer) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	params := map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}

	var resp deezerResponse
	if err := p.client.Get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	// Deezer reports failures in a 200 body.
	if resp.Error != nil {
		return nil, &APIError{Provider: "deezer", Status: resp.Error.Code, Message: fmt.Sprintf("%s: %s", resp.Error.Type, resp.Error.Message)}
	}

	tracks := lo.Map(resp.Data, func(d deezerTrack, _ int) core.Track {
		return core.Track{
			ID:       strconv.FormatInt(d.ID, 10),
			Title:    d.Title,
			Artist:   d.Artist.Name,
			Album:    d.Album.Title,
			Cover:    d.Album.CoverXL,
			Preview:  d.Preview,
			Duration: time.Duration(d.Duration) * time.Second,
			Source:   core.SourceDeezer,
		}
	})
	return playable(tracks), nil
}
