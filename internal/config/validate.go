package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Providers lists the catalog backends vibe can search.
var Providers = []string{"itunes", "deezer", "spotify"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("catalog: %w", err))
	}
	if c.Catalog.Provider == "spotify" {
		if err := c.Spotify.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("spotify: %w", err))
		}
	}
	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Ambient.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ambient: %w", err))
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks CatalogConfig for errors.
func (c *CatalogConfig) Validate() error {
	switch c.Provider {
	case "", "itunes", "deezer", "spotify":
	default:
		return fmt.Errorf("invalid provider: %s (must be %s)", c.Provider, strings.Join(Providers, ", "))
	}
	if c.Limit < 0 || c.Limit > 50 {
		return errors.New("limit must be between 0 and 50")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	if c.Rate < 0 {
		return errors.New("rate must be non-negative")
	}
	return nil
}

// Validate checks SpotifyConfig for errors.
func (c *SpotifyConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client_id and client_secret are required for the spotify provider")
	}
	return nil
}

// Validate checks PlayerConfig for errors.
func (c *PlayerConfig) Validate() error {
	if c.Volume < 0 || c.Volume > 100 {
		return errors.New("volume must be between 0 and 100")
	}
	switch c.Repeat {
	case "", "off", "all", "one":
	default:
		return fmt.Errorf("invalid repeat mode: %s (must be off, all, or one)", c.Repeat)
	}
	return nil
}

// Validate checks AmbientConfig for errors.
func (c *AmbientConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 765 {
		return errors.New("threshold must be between 0 and 765")
	}
	if c.MinLightness < 0 || c.MinLightness > 100 {
		return errors.New("min_lightness must be between 0 and 100")
	}
	if c.FetchTimeout < 0 {
		return errors.New("fetch_timeout must be non-negative")
	}
	return nil
}

// Validate checks ServerConfig for errors.
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr: %w", err)
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "latte", "frappe", "macchiato", "mocha":
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, latte, frappe, macchiato, or mocha)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
