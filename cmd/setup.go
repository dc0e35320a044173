package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if r.configPath == "" {
		return fmt.Errorf("%w: --config", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	return r.writePlain("✓ Wrote %s\nSet identity.api_key and the [google] client before signing in.\n", r.configPath)
}

// SetupDatabase creates both list stores and runs their migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing list stores", "notes", r.config.Database.NotesPath, "tasks", r.config.Database.TasksPath)

	lists, err := r.store()
	if err != nil {
		return fmt.Errorf("failed to set up list stores: %w", err)
	}

	for _, kind := range models.CollectionKinds {
		version, err := lists.SchemaVersion(kind)
		if err != nil {
			return err
		}
		r.writePlain("✓ %s store at schema version %d\n", kind, version)
	}
	return nil
}
