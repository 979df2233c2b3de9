// Package config reads process settings from PDK_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/kernel"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/tech"
)

// Prefix is prepended to every variable name.
const Prefix = "PDK"

type Config struct {
	Addr           string  `envconfig:"ADDR" default:":8080"`
	Technology     string  `envconfig:"TECHNOLOGY" default:"EBeam"`
	TechDir        string  `envconfig:"TECH_DIR"` // empty uses the embedded technologies
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string  `envconfig:"LOG_FORMAT" default:"text"`
	MaxError       float64 `envconfig:"MAX_ERROR" default:"1"` // dbu
	BezierAccuracy float64 `envconfig:"BEZIER_ACCURACY" default:"0.001"`
	MaxSessions    int     `envconfig:"MAX_SESSIONS" default:"64"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w: %w", pdkerr.ErrParameterDomain, err)
	}
	if cfg.MaxSessions < 1 {
		return nil, fmt.Errorf("config: %s_MAX_SESSIONS must be positive: %w", Prefix, pdkerr.ErrParameterDomain)
	}
	return &cfg, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("config: log level %q: %w", c.LogLevel, pdkerr.ErrParameterDomain)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("config: log format %q is not text or json: %w", c.LogFormat, pdkerr.ErrParameterDomain)
}

// LoadTechnology loads the configured technology from TechDir or from the
// embedded set.
func (c *Config) LoadTechnology() (*tech.Technology, error) {
	if c.TechDir != "" {
		return tech.LoadDir(c.TechDir, c.Technology)
	}
	return tech.LoadDefault(c.Technology)
}

// Tolerance returns the discretisation policy for technology t.
func (c *Config) Tolerance(t *tech.Technology) (kernel.Tolerance, error) {
	tol := kernel.Tolerance{DBU: t.DBU, MaxError: c.MaxError, BezierAccuracy: c.BezierAccuracy}
	if err := tol.Validate(); err != nil {
		return kernel.Tolerance{}, err
	}
	return tol, nil
}
