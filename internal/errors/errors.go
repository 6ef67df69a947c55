package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels shared across packages.
var (
	ErrEngineClosed    = errors.New("playback engine is not running")
	ErrEngineRunning   = errors.New("playback engine already running")
	ErrNoPreview       = errors.New("track has no preview")
	ErrNoResults       = errors.New("no playable tracks found")
	ErrProviderUnknown = errors.New("unknown catalog provider")
	ErrMissingCreds    = errors.New("missing spotify client credentials")
	ErrRateLimited     = errors.New("rate limited")
	ErrNetworkError    = errors.New("network error")
	ErrTimeout         = errors.New("request timeout")
	ErrConfigNotFound  = errors.New("config file not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// VibeError attaches a hint for the user to an error.
type VibeError struct {
	Err        error
	Suggestion string
}

func (e *VibeError) Error() string {
	return e.Err.Error()
}

func (e *VibeError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps err with a hint shown by Format.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &VibeError{Err: err, Suggestion: suggestion}
}

// GetSuggestion returns a hint for err, or "" when there is none.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var vibeErr *VibeError
	if errors.As(err, &vibeErr) && vibeErr.Suggestion != "" {
		return vibeErr.Suggestion
	}

	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, ErrMissingCreds):
		return "Set spotify.client_id and spotify.client_secret, or switch with 'vibe config pick-provider'"
	case errors.Is(err, ErrProviderUnknown):
		return "Valid providers are itunes, deezer and spotify"
	case errors.Is(err, ErrNoResults):
		return "Try a different query or another provider with --provider"
	case errors.Is(err, ErrNoPreview):
		return "Only tracks with a preview can be played"
	case errors.Is(err, ErrEngineClosed):
		return "The player has shut down. Start it again"
	case errors.Is(err, ErrRateLimited) || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "Too many requests. Wait a moment and try again"
	case errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused"):
		return "Check your internet connection and try again"
	case errors.Is(err, ErrConfigNotFound):
		return "Run 'vibe config init' to create a configuration file"
	case errors.Is(err, ErrInvalidConfig):
		return "Run 'vibe config show' to inspect the configuration"
	case strings.Contains(msg, "server error"):
		return "The catalog is having issues. Try again in a moment"
	}

	return ""
}

// Format renders err with its suggestion, if any.
func Format(err error) string {
	if err == nil {
		return ""
	}
	if s := GetSuggestion(err); s != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), s)
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult carries data gathered despite some failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors reports whether any error was recorded.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError records err unless it is nil.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// Err joins the recorded errors, or returns nil.
func (p *PartialResult[T]) Err() error {
	return errors.Join(p.Errors...)
}

// ErrorSummary returns a numbered list of the recorded errors.
func (p *PartialResult[T]) ErrorSummary() string {
	switch len(p.Errors) {
	case 0:
		return ""
	case 1:
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(p.Errors))
	for i, err := range p.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}
