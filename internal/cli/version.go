package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/audio"
)

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if JSONOutput() {
			return printJSON(map[string]any{
				"version":    Version,
				"commit":     Commit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
				"os":         runtime.GOOS,
				"arch":       runtime.GOARCH,
				"speaker":    audio.SpeakerAvailable,
			})
		}

		fmt.Printf("vibe %s\n", Version)
		if Verbose() {
			fmt.Printf("  commit:     %s\n", Commit)
			fmt.Printf("  built:      %s\n", BuildDate)
			fmt.Printf("  go version: %s\n", runtime.Version())
			fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  speaker:    %v\n", audio.SpeakerAvailable)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
