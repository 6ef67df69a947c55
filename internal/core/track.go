package core

import "time"

// Source indicates the catalog a track was found in.
type Source string

const (
	SourceITunes  Source = "itunes"
	SourceDeezer  Source = "deezer"
	SourceSpotify Source = "spotify"
)

// Track represents a playable preview track. Tracks are values: once a
// catalog hands one out it is never mutated.
type Track struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album"`
	Cover    string        `json:"cover"`
	Preview  string        `json:"preview"`
	Duration time.Duration `json:"duration"`
	Source   Source        `json:"source"`
}

// Playable returns true if the track has a preview source.
func (t Track) Playable() bool {
	return t.Preview != ""
}

// Key returns the identity used to locate a track in the queue. IDs are only
// unique within one catalog, so the source is part of the key.
func (t Track) Key() string {
	return string(t.Source) + ":" + t.ID
}

// SameAs reports whether two tracks share an identity.
func (t *Track) SameAs(other *Track) bool {
	if t == nil || other == nil {
		return false
	}
	return t.Key() == other.Key()
}
