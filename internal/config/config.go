// Package config loads the builder's environment-supplied settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shropcal/whatson/internal/event"
)

// Environment variables recognized by the builder.
const (
	EnvWindowOpen = "WHATSON_WINDOW_OPEN"
	EnvWindowFrom = "WHATSON_WINDOW_FROM"
	EnvWindowTo   = "WHATSON_WINDOW_TO"
)

// Config holds the settings that shape a feed build.
type Config struct {
	// WindowOpen disables date filtering entirely when true.
	WindowOpen bool
	// WindowFrom and WindowTo bound the inclusion window, both
	// inclusive. Ignored when WindowOpen is set.
	WindowFrom event.Date
	WindowTo   event.Date
}

// defaultWindow returns the standing inclusion window for the published
// feed, matching the range the scraper crawls.
func defaultWindow() (event.Date, event.Date) {
	return event.NewDate(2025, time.June, 1), event.NewDate(2026, time.December, 31)
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables take precedence over it. Window override values that do not
// parse as YYYY-MM-DD dates are an error.
func Load() (*Config, error) {
	// Missing .env is the normal case outside CI.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.WindowFrom, cfg.WindowTo = defaultWindow()

	if truthy(os.Getenv(EnvWindowOpen)) {
		cfg.WindowOpen = true
	}

	if v := os.Getenv(EnvWindowFrom); v != "" {
		d, err := event.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvWindowFrom, err)
		}
		cfg.WindowFrom = d
	}

	if v := os.Getenv(EnvWindowTo); v != "" {
		d, err := event.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvWindowTo, err)
		}
		cfg.WindowTo = d
	}

	return cfg, nil
}

// truthy interprets the usual affirmative spellings of a flag variable.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
