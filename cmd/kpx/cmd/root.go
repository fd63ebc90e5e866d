package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
	configPath string
	cachePath  string
	watchMode  bool

	// Set up by PersistentPreRunE for every command
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kpx",
	Short: "KiCad file parser and analyzer",
	Long: `kpx extracts layer stacks, components, 3D model coverage and symbol
definitions from KiCad 6+ board (.kicad_pcb) and symbol library
(.kicad_sym) files.

Settings are read from .kpx.toml or .kpx.yaml in the input's directory
(or any parent); flags override them.

Examples:
  kpx layers board.kicad_pcb              # Layer stack table
  kpx details --json board.kicad_pcb      # Board summary as JSON
  kpx positions --watch board.kicad_pcb   # Re-print placements on save
  kpx symbols Device.kicad_sym            # Symbols in a library
  kpx schema footprint                    # JSON Schema of a record`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: discovered .kpx.toml/.kpx.yaml)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "bbolt file caching JSON reports")
	rootCmd.PersistentFlags().BoolVarP(&watchMode, "watch", "w", false, "re-run the report whenever the input changes")
}

// setup loads the configuration, applies flag overrides and creates the
// logger. The input's directory anchors config discovery.
func setup(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = filepath.Dir(args[0])
	}

	c, path, err := loadConfig(dir)
	if err != nil {
		return err
	}
	cfg = c
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return nil
}

// loadConfig returns the effective configuration and the file it came
// from, if any.
func loadConfig(dir string) (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.Discover(dir)
	}

	c := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		c = loaded
	}

	if jsonOutput {
		c.Format = config.FormatJSON
	}
	if cachePath != "" {
		c.CachePath = cachePath
	}
	if watchMode {
		c.Watch = true
	}
	if verbose {
		c.LogLevel = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, "", err
	}
	return c, path, nil
}
