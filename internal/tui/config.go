package tui

import (
	"github.com/Veraticus/house-money/internal/service"
	"github.com/Veraticus/house-money/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme  themes.Theme
	Query  service.TransactionQuery
	Width  int
	Height int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Width:  100,
		Height: 30,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithQuery sets the listing the browser opens with.
func WithQuery(q service.TransactionQuery) Option {
	return func(c *Config) {
		c.Query = q
	}
}
