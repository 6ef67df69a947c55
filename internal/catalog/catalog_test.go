package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessro/vibe/internal/core"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]string
		want   string
	}{
		{"no params", "/search", nil, "/search"},
		{"empty params", "/search", map[string]string{}, "/search"},
		{"single param", "/search", map[string]string{"q": "daft punk"}, "/search?q=daft+punk"},
		{"sorted params", "/search", map[string]string{"q": "x", "limit": "5"}, "/search?limit=5&q=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(tt.path, tt.params); got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Provider: "deezer", Status: 400, Message: "bad query"}
	if got, want := err.Error(), "deezer API error 400: bad query"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if errors.Is(err, vibeerrors.ErrRateLimited) {
		t.Error("400 should not be a rate limit")
	}
	if !errors.Is(&APIError{Status: 429}, vibeerrors.ErrRateLimited) {
		t.Error("429 should unwrap to ErrRateLimited")
	}
}

func TestITunesSearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("term") != "nujabes" || q.Get("entity") != "song" || q.Get("limit") != "5" || q.Get("country") != "JP" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"resultCount":2,"results":[
			{"trackId":42,"trackName":"Aruarian Dance","artistName":"Nujabes","collectionName":"Samurai Champloo",
			 "artworkUrl100":"https://is1.mzstatic.com/a/100x100bb.jpg","previewUrl":"https://audio/p.m4a","trackTimeMillis":186000},
			{"trackId":43,"trackName":"No Preview","artistName":"Nujabes"}
		]}`))
	})

	p := NewITunes("JP", WithBaseURL(srv.URL), WithRate(0))
	tracks, err := p.Search(context.Background(), "nujabes", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("len(tracks) = %d, want 1 (unplayable filtered)", len(tracks))
	}

	want := core.Track{
		ID:       "42",
		Title:    "Aruarian Dance",
		Artist:   "Nujabes",
		Album:    "Samurai Champloo",
		Cover:    "https://is1.mzstatic.com/a/600x600bb.jpg",
		Preview:  "https://audio/p.m4a",
		Duration: 186 * time.Second,
		Source:   core.SourceITunes,
	}
	if tracks[0] != want {
		t.Errorf("track = %+v, want %+v", tracks[0], want)
	}
}

func TestDeezerSearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "air" {
			t.Errorf("q = %q, want air", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":3135556,"title":"La femme d'argent","duration":429,"preview":"https://cdns-preview/x.mp3",
			 "artist":{"name":"Air"},"album":{"title":"Moon Safari","cover_xl":"https://e-cdns/xl.jpg"}},
			{"id":1,"title":"Silent","duration":10,"preview":"","artist":{"name":"Air"},"album":{"title":"?"}}
		]}`))
	})

	tracks, err := NewDeezer(WithBaseURL(srv.URL)).Search(context.Background(), "air", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("len(tracks) = %d, want 1", len(tracks))
	}
	got := tracks[0]
	if got.ID != "3135556" || got.Artist != "Air" || got.Album != "Moon Safari" ||
		got.Cover != "https://e-cdns/xl.jpg" || got.Duration != 429*time.Second || got.Source != core.SourceDeezer {
		t.Errorf("track = %+v", got)
	}
}

func TestDeezerErrorBody(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"type":"Exception","message":"Quota limit exceeded","code":4}}`))
	})

	_, err := NewDeezer(WithBaseURL(srv.URL)).Search(context.Background(), "air", 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 4 {
		t.Errorf("Search() error = %v, want APIError code 4", err)
	}
}

func TestSpotifySearch(t *testing.T) {
	var tokens atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokens.Add(1)
			if id, secret, ok := r.BasicAuth(); !ok || id != "id" || secret != "secret" {
				if r.FormValue("client_id") != "id" {
					t.Errorf("token request without credentials")
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		case "/search":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q", got)
			}
			if r.URL.Query().Get("type") != "track" || r.URL.Query().Get("market") != "SE" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"tracks":{"items":[
				{"id":"s1","name":"Dancing Queen","duration_ms":231000,"preview_url":"https://p.scdn.co/1",
				 "artists":[{"name":"ABBA"},{"name":"Guest"}],
				 "album":{"name":"Arrival","images":[{"url":"https://i.scdn.co/640"},{"url":"https://i.scdn.co/300"}]}},
				{"id":"s2","name":"No Preview","duration_ms":1000,"preview_url":null,"artists":[],"album":{"name":"x","images":[]}}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	p := newSpotify("id", "secret", srv.URL+"/token", "SE", WithBaseURL(srv.URL))
	for i := 0; i < 2; i++ {
		tracks, err := p.Search(context.Background(), "abba", 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("len(tracks) = %d, want 1", len(tracks))
		}
		got := tracks[0]
		if got.Artist != "ABBA, Guest" || got.Cover != "https://i.scdn.co/640" || got.Duration != 231*time.Second {
			t.Errorf("track = %+v", got)
		}
	}
	if tokens.Load() != 1 {
		t.Errorf("token requests = %d, want 1 (token reused)", tokens.Load())
	}
}

func TestNewSpotifyRequiresCredentials(t *testing.T) {
	if _, err := NewSpotify("", "", ""); !errors.Is(err, vibeerrors.ErrMissingCreds) {
		t.Errorf("NewSpotify() = %v, want ErrMissingCreds", err)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	p := NewDeezer(WithBaseURL(srv.URL), WithRetryWait(time.Millisecond))
	if _, err := p.Search(context.Background(), "x", 1); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := NewDeezer(WithBaseURL(srv.URL), WithRetryWait(time.Millisecond)).Search(context.Background(), "x", 1)
	if !errors.Is(err, vibeerrors.ErrRateLimited) {
		t.Errorf("Search() error = %v, want ErrRateLimited", err)
	}
	if calls.Load() != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls.Load(), maxRetries+1)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessage":"Invalid value(s) for key(s): [limit]"}`))
	})

	_, err := NewITunes("", WithBaseURL(srv.URL)).Search(context.Background(), "x", 999)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 || apiErr.Message != "Invalid value(s) for key(s): [limit]" {
		t.Errorf("Search() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		want     core.Source
		wantErr  error
	}{
		{"", core.SourceITunes, nil},
		{"itunes", core.SourceITunes, nil},
		{"Deezer", core.SourceDeezer, nil},
		{"spotify", "", vibeerrors.ErrMissingCreds},
		{"napster", "", vibeerrors.ErrProviderUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := New(Settings{Provider: tt.provider})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.Name() != tt.want {
				t.Errorf("Name() = %v, want %v", c.Name(), tt.want)
			}
		})
	}
}

type stubCatalog struct {
	name   core.Source
	tracks []core.Track
	err    error
}

func (s stubCatalog) Name() core.Source { return s.name }

func (s stubCatalog) Search(context.Context, string, int) ([]core.Track, error) {
	return s.tracks, s.err
}

func TestSearchAll(t *testing.T) {
	a := core.Track{ID: "1", Preview: "p", Source: core.SourceITunes}
	b := core.Track{ID: "1", Preview: "p", Source: core.SourceDeezer}

	res := SearchAll(context.Background(), []core.Catalog{
		stubCatalog{name: core.SourceITunes, tracks: []core.Track{a, a}},
		stubCatalog{name: core.SourceSpotify, err: errors.New("down")},
		stubCatalog{name: core.SourceDeezer, tracks: []core.Track{b}},
	}, "q", 5)

	if len(res.Data) != 2 || res.Data[0] != a || res.Data[1] != b {
		t.Errorf("Data = %+v, want [itunes:1 deezer:1]", res.Data)
	}
	if len(res.Errors) != 1 {
		t.Errorf("Errors = %v, want one", res.Errors)
	}
}
