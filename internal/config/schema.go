package config

// Config is the root configuration structure.
type Config struct {
	Catalog CatalogConfig `toml:"catalog" json:"catalog"`
	Spotify SpotifyConfig `toml:"spotify" json:"spotify"`
	Player  PlayerConfig  `toml:"player" json:"player"`
	Ambient AmbientConfig `toml:"ambient" json:"ambient"`
	History HistoryConfig `toml:"history" json:"history"`
	Server  ServerConfig  `toml:"server" json:"server"`
	Tail    TailConfig    `toml:"tail" json:"tail"`
	TUI     TUIConfig     `toml:"tui" json:"tui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// CatalogConfig selects and tunes the search backend.
type CatalogConfig struct {
	Provider string  `toml:"provider" json:"provider"`
	Limit    int     `toml:"limit" json:"limit"`
	Timeout  int     `toml:"timeout" json:"timeout"` // seconds
	Rate     float64 `toml:"rate" json:"rate"`       // requests per second
	Country  string  `toml:"country" json:"country"`
}

// SpotifyConfig holds client credentials for Spotify search.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"-"`
}

// PlayerConfig holds the starting playback settings.
type PlayerConfig struct {
	Volume         int    `toml:"volume" json:"volume"` // percent
	Shuffle        bool   `toml:"shuffle" json:"shuffle"`
	Repeat         string `toml:"repeat" json:"repeat"`
	AdvanceOnError bool   `toml:"advance_on_error" json:"advance_on_error"`
}

// AmbientConfig tunes cover color extraction.
type AmbientConfig struct {
	Enabled      bool `toml:"enabled" json:"enabled"`
	Threshold    int  `toml:"threshold" json:"threshold"`
	MinLightness int  `toml:"min_lightness" json:"min_lightness"`
	FetchTimeout int  `toml:"fetch_timeout" json:"fetch_timeout"` // seconds
}

// HistoryConfig locates the play history database.
type HistoryConfig struct {
	Enabled  bool   `toml:"enabled" json:"enabled"`
	Path     string `toml:"path" json:"path"`
	Listener string `toml:"listener" json:"listener"`
}

// ServerConfig holds the websocket bridge settings.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// TailConfig holds settings for tail/follow mode.
type TailConfig struct {
	Emoji     bool   `toml:"emoji" json:"emoji"`
	Timestamp bool   `toml:"timestamp" json:"timestamp"`
	Template  string `toml:"template" json:"template"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme" json:"theme"`
	RefreshInterval int    `toml:"refresh_interval" json:"refresh_interval"` // milliseconds
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}
