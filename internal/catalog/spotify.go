package catalog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// SpotifyURL is the Spotify Web API base URL.
	SpotifyURL = "https://api.spotify.com/v1"
	// SpotifyTokenURL issues client-credentials tokens.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Spotify searches the Spotify catalog with an app token. Many Spotify
// tracks carry no preview and are dropped from results.
type Spotify struct {
	client *Client
	market string
}

// NewSpotify creates a Spotify provider. Tokens are fetched and refreshed
// on demand by the oauth2 transport.
func NewSpotify(clientID, clientSecret, market string, opts ...Option) (*Spotify, error) {
	if clientID == "" || clientSecret == "" {
		return nil, vibeerrors.ErrMissingCreds
	}
	return newSpotify(clientID, clientSecret, SpotifyTokenURL, market, opts...), nil
}

func newSpotify(clientID, clientSecret, tokenURL, market string, opts ...Option) *Spotify {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	c := newClient(string(core.SourceSpotify), SpotifyURL, opts...)

	// Wrap whatever client the options produced so timeouts carry over.
	authed := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient))
	authed.Timeout = c.httpClient.Timeout
	c.httpClient = authed

	return &Spotify{client: c, market: market}
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DurationMS int64           `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
	Artists    []spotifyArtist `json:"artists"`
	Album      struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (p *Spotify) Name() core.Source { return core.SourceSpotify }

// Search returns tracks matching query that have a preview.
func (p *Spotify) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	params := map[string]string{
		"q":     query,
		"type":  "track",
		"limit": strconv.Itoa(limit),
	}
	if p.market != "" {
		params["market"] = p.market
	}

	var resp spotifySearchResponse
	if err := p.client.Get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	tracks := lo.Map(resp.Tracks.Items, func(s spotifyTrack, _ int) core.Track {
		cover := ""
		if len(s.Album.Images) > 0 {
			cover = s.Album.Images[0].URL
		}
		artists := lo.Map(s.Artists, func(a spotifyArtist, _ int) string {
			return a.Name
		})
		return core.Track{
			ID:       s.ID,
			Title:    s.Name,
			Artist:   strings.Join(artists, ", "),
			Album:    s.Album.Name,
			Cover:    cover,
			Preview:  s.PreviewURL,
			Duration: time.Duration(s.DurationMS) * time.Millisecond,
			Source:   core.SourceSpotify,
		}
	})
	return playable(tracks), nil
}
