package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePDK/internal/config"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/catalog"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

var (
	// Global flags
	techName string
	techDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pdk",
	Short: "OpenTracePDK - silicon photonics parametric layout generator",
	Long: `pdk produces parametric photonic components for an electron-beam
lithography process and writes them as layout dumps.

Settings come from PDK_* environment variables; flags override them.

Examples:
  pdk tech layers                                   # Show the layer table
  pdk cells list                                    # List the components
  pdk cells describe Ring_Single_Bus                # Show a parameter schema
  pdk produce Waveguide_Straight --param length=20  # Dump a component
  pdk dump check ring.lys                           # Validate a dump
  pdk serve                                         # Run the HTTP service`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&techName, "technology", "t", "", "technology name (default from PDK_TECHNOLOGY)")
	rootCmd.PersistentFlags().StringVar(&techDir, "tech-dir", "", "directory holding <name>/<name>.lyt (default embedded)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

// env bundles what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	tech   *tech.Technology
	lib    *pcell.Library
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if techName != "" {
		cfg.Technology = techName
	}
	if techDir != "" {
		cfg.TechDir = techDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	t, err := cfg.LoadTechnology()
	if err != nil {
		return nil, err
	}
	lib, err := catalog.NewLibrary(t)
	if err != nil {
		return nil, err
	}
	logger.Debug("technology loaded", "name", t.Name, "layers", len(t.Layers()), "waveguides", len(t.Waveguides()))
	return &env{cfg: cfg, logger: logger, tech: t, lib: lib}, nil
}

// newContext returns a produce context on a fresh layout.
func (e *env) newContext() (*pcell.Context, error) {
	ctx := pcell.NewContext(layout.New(e.tech), e.lib, e.logger)
	tol, err := e.cfg.Tolerance(e.tech)
	if err != nil {
		return nil, err
	}
	ctx.Tol = tol
	return ctx, nil
}
