package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/server"
)

const volumeStep = 10

var toggleCmd = &cobra.Command{
	Use:     "toggle",
	Aliases: []string{"pause", "resume"},
	Short:   "Toggle play/pause",
	Long:    `Pause the current track, or resume it if it is paused.`,
	Args:    cobra.NoArgs,
	RunE:    runToggle,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Long:  `Skip to the next track in the queue.`,
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Long:  `Go back to the previous track, or restart the current one if it is past the first few seconds.`,
	Args:  cobra.NoArgs,
	RunE:  runPrev,
}

var seekCmd = &cobra.Command{
	Use:     "seek <seconds>",
	Aliases: []string{"restart"},
	Short:   "Jump to a position in the current track",
	Long: `Jump to a position in the current track. The position is clamped to the
track length. Run as 'restart' without arguments to go back to 0:00.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeek,
}

var (
	volumeUp   bool
	volumeDown bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust volume",
	Long: `Set the playback volume (0-100) or adjust it up/down.

Examples:
  vibe volume         # Show the current volume
  vibe volume 50      # Set volume to 50%
  vibe volume --up    # Increase volume by 10%
  vibe volume --down  # Decrease volume by 10%`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

var shuffleCmd = &cobra.Command{
	Use:   "shuffle",
	Short: "Toggle shuffle",
	Args:  cobra.NoArgs,
	RunE:  runShuffle,
}

var repeatCmd = &cobra.Command{
	Use:   "repeat",
	Short: "Cycle repeat mode (off, all, one)",
	Args:  cobra.NoArgs,
	RunE:  runRepeat,
}

func init() {
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "decrease volume by 10%")
	volumeCmd.MarkFlagsMutuallyExclusive("up", "down")

	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(repeatCmd)
}

// withRemote runs fn against the served player and returns the state that
// follows it.
func withRemote(cmd *cobra.Command, fn func(ctx context.Context, c *server.Client) error) (*core.PlaybackState, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	c, err := dialRemote(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if fn != nil {
		if err := fn(ctx, c); err != nil {
			return nil, err
		}
	}

	// The server sends a command's state before its ack.
	return c.State(ctx)
}

func runToggle(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		if err := c.TogglePlay(ctx); err != nil {
			return fmt.Errorf("failed to toggle playback: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": state.Status().String()})
	}
	if state.IsPlaying {
		fmt.Println("▶ Playing")
	} else {
		fmt.Println("⏸ Paused")
	}
	return nil
}

func runNext(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		if err := c.Next(ctx); err != nil {
			return fmt.Errorf("failed to skip: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return printTrackChange("⏭", "skipped", state)
}

func runPrev(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		if err := c.Previous(ctx); err != nil {
			return fmt.Errorf("failed to go back: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return printTrackChange("⏮", "previous", state)
}

func printTrackChange(icon, status string, state *core.PlaybackState) error {
	if JSONOutput() {
		out := map[string]any{"status": status}
		if state.HasTrack() {
			out["track"] = state.Track
		}
		return printJSON(out)
	}
	if !state.HasTrack() {
		fmt.Printf("%s Queue finished\n", icon)
		return nil
	}
	fmt.Printf("%s %s - %s\n", icon, state.Track.Artist, state.Track.Title)
	return nil
}

func runSeek(cmd *cobra.Command, args []string) error {
	var position time.Duration
	if len(args) > 0 {
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid position: %s", args[0])
		}
		position = time.Duration(secs * float64(time.Second))
	}

	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		if err := c.Seek(ctx, position); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]any{
			"position": state.Position.Seconds(),
			"duration": state.Duration.Seconds(),
		})
	}
	fmt.Printf("⏩ %s / %s\n", FormatDuration(state.Position), FormatDuration(state.Duration))
	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	target := -1
	if len(args) > 0 {
		val, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid volume level: %s", args[0])
		}
		if val < 0 || val > 100 {
			return fmt.Errorf("volume must be between 0 and 100")
		}
		target = val
	}

	var previous int
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		current, err := c.State(ctx)
		if err != nil {
			return err
		}
		previous = current.VolumePercent()

		level := nextVolume(previous, target, volumeUp, volumeDown)
		if level < 0 {
			return nil
		}
		if err := c.SetVolume(ctx, float64(level)/100); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	current := state.VolumePercent()
	if JSONOutput() {
		return printJSON(map[string]int{"volume": current, "previous": previous})
	}
	if current == previous {
		fmt.Printf("🔊 Volume: %d%%\n", current)
	} else {
		fmt.Printf("🔊 Volume: %d%% (was %d%%)\n", current, previous)
	}
	return nil
}

// nextVolume returns the percentage to set, or -1 when nothing was asked.
func nextVolume(current, target int, up, down bool) int {
	switch {
	case up:
		return int(math.Min(float64(current+volumeStep), 100))
	case down:
		return int(math.Max(float64(current-volumeStep), 0))
	default:
		return target
	}
}

func runShuffle(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		return c.ToggleShuffle(ctx)
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]bool{"shuffle": state.Shuffle})
	}
	fmt.Printf("🔀 Shuffle: %s\n", onOff(state.Shuffle))
	return nil
}

func runRepeat(cmd *cobra.Command, args []string) error {
	state, err := withRemote(cmd, func(ctx context.Context, c *server.Client) error {
		return c.ToggleRepeat(ctx)
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{"repeat": string(state.Repeat)})
	}
	fmt.Printf("🔁 Repeat: %s\n", state.Repeat)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
