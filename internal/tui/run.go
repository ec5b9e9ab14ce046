package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/house-money/internal/service"
)

// Run shows the browser on the terminal until the user quits or ctx ends.
func Run(ctx context.Context, store service.Storage, opts ...Option) error {
	if store == nil {
		return fmt.Errorf("storage is required")
	}

	p := tea.NewProgram(New(store, opts...),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
