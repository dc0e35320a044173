package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/desertthunder/rize/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(filepath.Join(r.config.App.DataDir, "rize-tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	manager, err := r.session()
	if err != nil {
		return err
	}

	lists, err := r.store()
	if err != nil {
		return err
	}

	var google ui.FederatedFlow
	if r.config.Google.ClientID != "" {
		flow := r.googleFlow()
		flow.OnAuthURL = func(url string) {
			r.logger.Warn("open this URL to continue sign-in", "url", url)
		}
		google = flow.Run
	}

	model := ui.NewModel(ctx, manager, lists, google)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if err := r.cache.MarkOnboardingSeen(); err != nil {
		r.logger.Warn("failed to record onboarding", "error", err)
	}
	return nil
}
