package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/tessro/vibe/internal/config"
	vibeerrors "github.com/tessro/vibe/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing vibe configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including environment overrides.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	RunE:  runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. The result is validated before it is saved.

Common keys:
  catalog.provider         itunes, deezer or spotify
  catalog.limit            Results per search
  player.volume            Starting volume (0-100)
  player.repeat            off, all or one
  player.advance_on_error  Skip tracks that fail to load (true/false)
  ambient.enabled          Tint the dashboard with cover colors
  history.listener         Name plays are recorded under
  server.addr              Address for 'vibe serve'
  tui.theme                auto, latte, frappe, macchiato or mocha

Examples:
  vibe config set catalog.provider deezer
  vibe config set player.volume 50`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPickProviderCmd = &cobra.Command{
	Use:   "pick-provider",
	Short: "Interactively select the catalog provider",
	Long:  `Shows a picker for the default catalog and asks for Spotify credentials when needed.`,
	RunE:  runConfigPickProvider,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPickProviderCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return printJSON(cfg)
	}

	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func requireConfigFile() (string, error) {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%s: %w", path, vibeerrors.ErrConfigNotFound)
	}
	return path, nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := requireConfigFile()
	if err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi", "notepad"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if err := config.WriteDefault(path); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "created", "path": path})
	}
	fmt.Printf("Created config file: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Try it out with 'vibe play <query>'")
	fmt.Println("  2. Switch catalogs with 'vibe config pick-provider'")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path, err := requireConfigFile()
	if err != nil {
		return err
	}
	if err := config.Set(path, key, value); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "updated", "key": key, "value": value})
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigPickProvider(cmd *cobra.Command, args []string) error {
	path, err := requireConfigFile()
	if err != nil {
		return err
	}

	options := make([]huh.Option[string], 0, len(config.Providers))
	for _, p := range config.Providers {
		label := p
		if p == cfg.Catalog.Provider {
			label += " [current]"
		}
		options = append(options, huh.NewOption(label, p))
	}

	provider := cfg.Catalog.Provider
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select catalog provider").
				Description("Searches use this catalog unless --provider is given").
				Options(options...).
				Value(&provider),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	if provider == "spotify" {
		clientID := cfg.Spotify.ClientID
		clientSecret := cfg.Spotify.ClientSecret
		creds := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Spotify client ID").
					Value(&clientID).
					Validate(notEmpty),
				huh.NewInput().
					Title("Spotify client secret").
					EchoMode(huh.EchoModePassword).
					Value(&clientSecret).
					Validate(notEmpty),
			),
		)
		if err := creds.Run(); err != nil {
			return fmt.Errorf("selection cancelled: %w", err)
		}
		if err := config.Set(path, "spotify.client_id", clientID); err != nil {
			return err
		}
		if err := config.Set(path, "spotify.client_secret", clientSecret); err != nil {
			return err
		}
	}

	return runConfigSet(cmd, []string{"catalog.provider", provider})
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("required")
	}
	return nil
}
