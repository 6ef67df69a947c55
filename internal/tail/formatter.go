package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tessro/vibe/internal/core"
)

var eventNames = map[EventType]string{
	EventTrackChange:   "track_change",
	EventTrackComplete: "track_complete",
	EventTrackSkip:     "track_skip",
	EventPause:         "pause",
	EventResume:        "resume",
	EventVolumeChange:  "volume_change",
	EventShuffleChange: "shuffle_change",
	EventRepeatChange:  "repeat_change",
	EventAmbientChange: "ambient_change",
	EventQueueAdd:      "queue_add",
	EventError:         "error",
}

var eventEmoji = map[EventType]string{
	EventTrackChange:   "🎵",
	EventTrackComplete: "✅",
	EventTrackSkip:     "⏭️",
	EventPause:         "⏸️",
	EventResume:        "▶️",
	EventVolumeChange:  "🔊",
	EventShuffleChange: "🔀",
	EventRepeatChange:  "🔁",
	EventAmbientChange: "🎨",
	EventQueueAdd:      "➕",
	EventError:         "⚠️",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Emoji returns the icon shown before the event in line output.
func (t EventType) Emoji() string {
	if e, ok := eventEmoji[t]; ok {
		return e
	}
	return "❓"
}

// Formatter renders events as single lines.
type Formatter struct {
	emoji     bool
	timestamp bool
	tmpl      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji prefixes each line with the event's icon.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) { f.emoji = enabled }
}

// WithTimestamp prefixes each line with the wall-clock time.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) { f.timestamp = enabled }
}

// WithTemplate renders events through a text/template instead of the
// built-in line format. See Record for the available fields.
func WithTemplate(tmpl *template.Template) FormatterOption {
	return func(f *Formatter) { f.tmpl = tmpl }
}

// ParseTemplate compiles a user-supplied line template.
func ParseTemplate(text string) (*template.Template, error) {
	t, err := template.New("event").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// NewFormatter creates a formatter. Emoji are on by default.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{emoji: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Record is the flat view of an event used by templates and JSON output.
type Record struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Track     string    `json:"track,omitempty"`
	Title     string    `json:"title,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Album     string    `json:"album,omitempty"`
	Volume    int       `json:"volume"`
	Shuffle   bool      `json:"shuffle"`
	Repeat    string    `json:"repeat"`
	Ambient   string    `json:"ambient"`
	Hex       string    `json:"hex"`
	Error     string    `json:"error,omitempty"`
}

// NewRecord flattens e.
func NewRecord(e Event) Record {
	r := Record{
		Type:      e.Type.String(),
		Timestamp: e.Timestamp,
		Message:   describe(e),
	}
	if s := e.Current; s != nil {
		if s.Track != nil {
			r.Track = s.Track.Key()
			r.Title = s.Track.Title
			r.Artist = s.Track.Artist
			r.Album = s.Track.Album
		}
		r.Volume = s.VolumePercent()
		r.Shuffle = s.Shuffle
		r.Repeat = string(s.Repeat)
		r.Ambient = s.Ambient.String()
		r.Hex = s.Ambient.Hex()
		r.Error = s.Error
	}
	return r
}

// Format renders e as one line.
func (f *Formatter) Format(e Event) string {
	if f.tmpl != nil {
		var buf bytes.Buffer
		if err := f.tmpl.Execute(&buf, NewRecord(e)); err == nil {
			return buf.String()
		}
	}

	var parts []string
	if f.timestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.emoji {
		parts = append(parts, e.Type.Emoji())
	}
	parts = append(parts, describe(e))
	return strings.Join(parts, " ")
}

func trackLabel(t *core.Track) string {
	return t.Artist + " - " + t.Title
}

// describe returns a human-readable description of the event.
func describe(e Event) string {
	prev, curr := e.Previous, e.Current

	switch e.Type {
	case EventTrackChange:
		if curr.HasTrack() {
			return "Now playing: " + trackLabel(curr.Track)
		}
		return "Track changed"
	case EventTrackComplete:
		if prev.HasTrack() {
			return "Finished: " + trackLabel(prev.Track)
		}
		return "Track completed"
	case EventTrackSkip:
		if prev.HasTrack() {
			return "Skipped: " + trackLabel(prev.Track)
		}
		return "Track skipped"
	case EventPause:
		return "Paused"
	case EventResume:
		return "Resumed"
	}

	if curr == nil {
		return e.Type.String()
	}

	switch e.Type {
	case EventVolumeChange:
		return fmt.Sprintf("Volume: %d%%", curr.VolumePercent())
	case EventShuffleChange:
		if curr.Shuffle {
			return "Shuffle on"
		}
		return "Shuffle off"
	case EventRepeatChange:
		return fmt.Sprintf("Repeat: %s", curr.Repeat)
	case EventAmbientChange:
		return fmt.Sprintf("Ambient: %s (%s)", curr.Ambient, curr.Ambient.Hex())
	case EventQueueAdd:
		if n := len(curr.Queue); n > 0 {
			return fmt.Sprintf("Queued: %s (%d in queue)", trackLabel(&curr.Queue[n-1]), n)
		}
		return "Queue changed"
	case EventError:
		return "Playback error: " + curr.Error
	default:
		return "Unknown event"
	}
}
