package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/config"
	vibeerrors "github.com/tessro/vibe/internal/errors"
	"github.com/tessro/vibe/internal/logging"
)

var (
	cfgFile    string
	jsonOut    bool
	verbose    bool
	logLevel   string
	remoteAddr string

	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "vibe",
	Short: "Play music previews with an ambient glow",
	Long: `vibe searches public music catalogs for 30-second previews, plays them
from a queue and tints its interface with the colors of the album art.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.viberc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "addr", "", "address of a running 'vibe serve' (default from server.addr)")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Log.Level
	switch {
	case logLevel != "":
		level = logLevel
	case verbose:
		level = "debug"
	}

	logger, logCloser, err = logging.Open(os.Stderr, level, cfg.Log.File)
	if err != nil {
		return err
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, vibeerrors.Format(err))
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

// screenLogger is used while the dashboard owns the terminal: log lines
// would corrupt the screen unless they go to a file.
func screenLogger() *log.Logger {
	if cfg.Log.File != "" {
		return logger
	}
	return logging.Discard()
}
