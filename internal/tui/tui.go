package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the panel against the server at baseURL and blocks until the
// user quits or ctx ends.
func Run(ctx context.Context, baseURL string, poll time.Duration) error {
	client, err := NewClient(baseURL)
	if err != nil {
		return err
	}

	program := tea.NewProgram(NewModel(client, poll), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel error: %w", err)
	}
	return nil
}
