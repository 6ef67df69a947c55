package config

import (
	"os"
	"path/filepath"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Provider: "itunes",
			Limit:    20,
			Timeout:  10,
			Rate:     5,
			Country:  "US",
		},
		Player: PlayerConfig{
			Volume: 70,
			Repeat: "off",
		},
		Ambient: AmbientConfig{
			Enabled:      true,
			Threshold:    50,
			MinLightness: 50,
			FetchTimeout: 10,
		},
		History: HistoryConfig{
			Enabled:  true,
			Path:     defaultHistoryPath(),
			Listener: "local",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7878",
		},
		Tail: TailConfig{
			Emoji: true,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Catalog
	if c.Catalog.Provider == "" {
		c.Catalog.Provider = d.Catalog.Provider
	}
	if c.Catalog.Limit == 0 {
		c.Catalog.Limit = d.Catalog.Limit
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = d.Catalog.Timeout
	}
	if c.Catalog.Rate == 0 {
		c.Catalog.Rate = d.Catalog.Rate
	}
	if c.Catalog.Country == "" {
		c.Catalog.Country = d.Catalog.Country
	}

	// Player
	if c.Player.Volume == 0 {
		c.Player.Volume = d.Player.Volume
	}
	if c.Player.Repeat == "" {
		c.Player.Repeat = d.Player.Repeat
	}

	// Ambient
	if c.Ambient.Threshold == 0 {
		c.Ambient.Threshold = d.Ambient.Threshold
	}
	if c.Ambient.MinLightness == 0 {
		c.Ambient.MinLightness = d.Ambient.MinLightness
	}
	if c.Ambient.FetchTimeout == 0 {
		c.Ambient.FetchTimeout = d.Ambient.FetchTimeout
	}

	// History
	if c.History.Path == "" {
		c.History.Path = d.History.Path
	}
	if c.History.Listener == "" {
		c.History.Listener = d.History.Listener
	}

	// Server
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// defaultHistoryPath follows XDG_DATA_HOME, falling back to ~/.local/share.
func defaultHistoryPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "vibe.db"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "vibe", "history.db")
}
