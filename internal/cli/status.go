package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback status",
	Long:  `Shows the state of a running 'vibe serve': the current track, modes, ambient color and queue.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, nil)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return outputStatusJSON(state)
	}
	fmt.Print(formatStatus(state))
	return nil
}

type statusOutput struct {
	Status          string      `json:"status"`
	Track           *core.Track `json:"track,omitempty"`
	Position        float64     `json:"position"`
	Duration        float64     `json:"duration"`
	ProgressPercent float64     `json:"progress_percent"`
	Volume          int         `json:"volume"`
	Shuffle         bool        `json:"shuffle"`
	Repeat          string      `json:"repeat"`
	Ambient         string      `json:"ambient"`
	Hex             string      `json:"hex"`
	Queue           int         `json:"queue"`
	Error           string      `json:"error,omitempty"`
}

func outputStatusJSON(s *core.PlaybackState) error {
	return printJSON(statusOutput{
		Status:          s.Status().String(),
		Track:           s.Track,
		Position:        s.Position.Seconds(),
		Duration:        s.Duration.Seconds(),
		ProgressPercent: s.ProgressPercent(),
		Volume:          s.VolumePercent(),
		Shuffle:         s.Shuffle,
		Repeat:          string(s.Repeat),
		Ambient:         s.Ambient.String(),
		Hex:             s.Ambient.Hex(),
		Queue:           len(s.Queue),
		Error:           s.Error,
	})
}

func formatStatus(s *core.PlaybackState) string {
	var b strings.Builder

	if !s.HasTrack() {
		b.WriteString("No track playing\n")
	} else {
		playIcon := "▶"
		if !s.IsPlaying {
			playIcon = "⏸"
		}
		fmt.Fprintf(&b, "%s %s\n", playIcon, s.Track.Title)
		if s.Track.Album != "" {
			fmt.Fprintf(&b, "  %s - %s\n", s.Track.Artist, s.Track.Album)
		} else {
			fmt.Fprintf(&b, "  %s\n", s.Track.Artist)
		}
		fmt.Fprintf(&b, "  %s %s / %s\n",
			FormatProgress(s.Position, s.Duration, 30),
			FormatDuration(s.Position),
			FormatDuration(s.Duration))
	}

	fmt.Fprintf(&b, "  🔊 %d%%  🔀 %s  🔁 %s\n", s.VolumePercent(), onOff(s.Shuffle), s.Repeat)
	fmt.Fprintf(&b, "  🎨 %s %s\n", s.Ambient.Hex(), s.Ambient)
	fmt.Fprintf(&b, "  Queue: %s %s\n", humanize.Comma(int64(len(s.Queue))), plural(len(s.Queue), "track", "tracks"))
	if s.Error != "" {
		fmt.Fprintf(&b, "  ⚠ %s\n", s.Error)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
