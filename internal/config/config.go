package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.viberc, $XDG_CONFIG_HOME/vibe/config.toml, ~/.config/vibe/config.toml
func Load() (*Config, error) {
	if path := findConfigFile(); path != "" {
		return LoadFrom(path)
	}

	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path. Keys missing from
// the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, vibeerrors.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("%w: %w", vibeerrors.ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultPath is where new configuration files are written.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".viberc"
	}
	return filepath.Join(home, ".viberc")
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".viberc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "vibe", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies VIBE_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	// Catalog
	envString("VIBE_CATALOG_PROVIDER", &cfg.Catalog.Provider)
	envInt("VIBE_CATALOG_LIMIT", &cfg.Catalog.Limit)
	envString("VIBE_CATALOG_COUNTRY", &cfg.Catalog.Country)

	// Spotify
	envString("VIBE_SPOTIFY_CLIENT_ID", &cfg.Spotify.ClientID)
	envString("VIBE_SPOTIFY_CLIENT_SECRET", &cfg.Spotify.ClientSecret)

	// Player
	envInt("VIBE_PLAYER_VOLUME", &cfg.Player.Volume)
	envBool("VIBE_PLAYER_SHUFFLE", &cfg.Player.Shuffle)
	envString("VIBE_PLAYER_REPEAT", &cfg.Player.Repeat)
	envBool("VIBE_PLAYER_ADVANCE_ON_ERROR", &cfg.Player.AdvanceOnError)

	// History
	envString("VIBE_HISTORY_PATH", &cfg.History.Path)
	envString("VIBE_HISTORY_LISTENER", &cfg.History.Listener)

	// Server
	envString("VIBE_SERVER_ADDR", &cfg.Server.Addr)

	// TUI
	envString("VIBE_TUI_THEME", &cfg.TUI.Theme)

	// Log
	envString("VIBE_LOG_LEVEL", &cfg.Log.Level)
	envString("VIBE_LOG_FILE", &cfg.Log.File)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

const fileHeader = "# vibe configuration\n\n"

// WriteDefault creates a new config file at path. It refuses to overwrite
// an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeTOML(path, Default())
}

// Set updates one "section.key" entry in the file at path, preserving
// everything else in it.
func Set(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, vibeerrors.ErrConfigNotFound)
		}
		return fmt.Errorf("read config: %w", err)
	}

	raw := map[string]any{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return fmt.Errorf("%w: %w", vibeerrors.ErrInvalidConfig, err)
	}

	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return fmt.Errorf("invalid key %q: use section.key (e.g. player.volume)", key)
	}

	typed, err := typedValue(key, value)
	if err != nil {
		return err
	}

	sectionMap, ok := raw[section].(map[string]any)
	if !ok {
		sectionMap = make(map[string]any)
		raw[section] = sectionMap
	}
	sectionMap[field] = typed

	// Reject values that would make the file unloadable.
	probe := Default()
	if _, err := toml.Decode(encodeTOML(raw), probe); err != nil {
		return fmt.Errorf("%w: %w", vibeerrors.ErrInvalidConfig, err)
	}
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", vibeerrors.ErrInvalidConfig, err)
	}

	return writeTOML(path, raw)
}

func typedValue(key, value string) (any, error) {
	switch key {
	case "catalog.limit", "catalog.timeout", "player.volume", "ambient.threshold",
		"ambient.min_lightness", "ambient.fetch_timeout", "tui.refresh_interval":
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("value must be an integer for %s", key)
		}
		return i, nil
	case "catalog.rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value must be a number for %s", key)
		}
		return f, nil
	case "player.shuffle", "player.advance_on_error", "ambient.enabled", "history.enabled",
		"tail.emoji", "tail.timestamp":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("value must be true or false for %s", key)
		}
		return b, nil
	default:
		return value, nil
	}
}

func encodeTOML(v any) string {
	var sb strings.Builder
	enc := toml.NewEncoder(&sb)
	enc.Indent = "  "
	_ = enc.Encode(v)
	return sb.String()
}

func writeTOML(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(fileHeader); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	enc := toml.NewEncoder(f)
	enc.Indent = "  "
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
