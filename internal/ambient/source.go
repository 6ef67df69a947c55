package ambient

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/tessro/vibe/internal/core"
	_ "golang.org/x/image/webp"
)

// maxCoverBytes bounds how much artwork we are willing to download.
const maxCoverBytes = 8 << 20

// Source fetches cover art over HTTP and derives its ambient color.
type Source struct {
	httpClient *http.Client
	opts       Options
}

// NewSource creates a Source. A zero timeout means 10 seconds.
func NewSource(opts Options, timeout time.Duration) *Source {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		httpClient: &http.Client{Timeout: timeout},
		opts:       opts,
	}
}

// Fetch downloads and decodes the image at url.
func (s *Source) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover request failed: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	return img, nil
}

// Derive implements core.ColorDeriver.
func (s *Source) Derive(ctx context.Context, coverURL string) (core.Color, error) {
	img, err := s.Fetch(ctx, coverURL)
	if err != nil {
		return core.Color{}, err
	}
	return Extract(img, s.opts)
}

var _ core.ColorDeriver = (*Source)(nil)
