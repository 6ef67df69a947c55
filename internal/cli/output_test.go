package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tessro/vibe/internal/core"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
		{29*time.Second + 600*time.Millisecond, "0:30"},
		{3*time.Minute + 7*time.Second, "3:07"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer title", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		current, total time.Duration
		want           string
	}{
		{0, 0, "──────────"},
		{0, 30 * time.Second, "──────────"},
		{15 * time.Second, 30 * time.Second, "━━━━━─────"},
		{30 * time.Second, 30 * time.Second, "━━━━━━━━━━"},
		{45 * time.Second, 30 * time.Second, "━━━━━━━━━━"},
	}
	for _, tt := range tests {
		if got := FormatProgress(tt.current, tt.total, 10); got != tt.want {
			t.Errorf("FormatProgress(%v, %v) = %q, want %q", tt.current, tt.total, got, tt.want)
		}
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTableWriter(&buf, "#", "TITLE")
	table.Row("1", "Song")
	table.Row("10", "Another")
	table.Flush()

	want := "#   TITLE\n1   Song\n10  Another\n"
	if got := buf.String(); got != want {
		t.Errorf("table = %q, want %q", got, want)
	}
}

func TestNextVolume(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		target   int
		up, down bool
		want     int
	}{
		{"show", 50, -1, false, false, -1},
		{"set", 50, 20, false, false, 20},
		{"up", 50, -1, true, false, 60},
		{"up clamps", 95, -1, true, false, 100},
		{"down", 50, -1, false, true, 40},
		{"down clamps", 5, -1, false, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextVolume(tt.current, tt.target, tt.up, tt.down); got != tt.want {
				t.Errorf("nextVolume() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	track := core.Track{ID: "1", Title: "Alpha", Artist: "Band", Album: "Record", Source: core.SourceITunes}

	idle := formatStatus(&core.PlaybackState{Volume: 0.7, Repeat: core.RepeatOff, Ambient: core.DefaultAmbient})
	for _, want := range []string{"No track playing", "70%", "Queue: 0 tracks"} {
		if !strings.Contains(idle, want) {
			t.Errorf("idle status missing %q:\n%s", want, idle)
		}
	}

	playing := formatStatus(&core.PlaybackState{
		Track:     &track,
		IsPlaying: false,
		Volume:    0.5,
		Position:  10 * time.Second,
		Duration:  30 * time.Second,
		Queue:     []core.Track{track},
		Repeat:    core.RepeatOne,
		Ambient:   core.DefaultAmbient,
		Error:     "decode failed",
	})
	for _, want := range []string{"⏸ Alpha", "Band - Record", "0:10 / 0:30", "🔁 one", "Queue: 1 track\n", "decode failed"} {
		if !strings.Contains(playing, want) {
			t.Errorf("status missing %q:\n%s", want, playing)
		}
	}
}
