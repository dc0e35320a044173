package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/rize/internal/formatter"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/navigation"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/desertthunder/rize/internal/tasks"
	"github.com/urfave/cli/v3"
)

func destinationFor(kind models.CollectionKind) navigation.Destination {
	if kind == models.Task {
		return navigation.Tasks
	}
	return navigation.Notes
}

// ListAdd appends the command arguments, joined by spaces, to the kind's list.
func (r *Runner) ListAdd(kind models.CollectionKind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		text := strings.Join(cmd.Args().Slice(), " ")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text", shared.ErrMissingArgument)
		}

		if _, err := r.admit(ctx, destinationFor(kind)); err != nil {
			return err
		}

		lists, err := r.store()
		if err != nil {
			return err
		}

		record, err := lists.Append(ctx, kind, text)
		if err != nil {
			return err
		}

		r.logger.Debug("appended record", "kind", kind, "id", record.ID)
		return r.writePlain("✓ Added #%d\n", record.ID)
	}
}

// ListShow prints the kind's list in its display order.
func (r *Runner) ListShow(kind models.CollectionKind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if _, err := r.admit(ctx, destinationFor(kind)); err != nil {
			return err
		}

		lists, err := r.store()
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			records, err := lists.Records(ctx, kind)
			if err != nil {
				return err
			}
			return r.writeJSON(records, cmd.Bool("pretty"))
		}

		texts, err := lists.List(ctx, kind)
		if err != nil {
			return err
		}

		if len(texts) == 0 {
			return r.writePlain("No %s yet.\n", strings.ToLower(destinationFor(kind).String()))
		}
		for _, text := range texts {
			r.writePlain("• %s\n", text)
		}
		return nil
	}
}

// Export writes the selected collections to files through the export engine.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	kinds := models.CollectionKinds
	if name := cmd.String("kind"); name != "" {
		kind, err := models.ParseCollectionKind(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		kinds = []models.CollectionKind{kind}
	}

	for _, kind := range kinds {
		if _, err := r.admit(ctx, destinationFor(kind)); err != nil {
			return err
		}
	}

	lists, err := r.store()
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 2*len(kinds)+1)
	engine := tasks.NewExportEngine(lists, shared.WithLogger(r.logger, "component", "export"))
	result, err := engine.Export(ctx, prog, tasks.ExportOpts{
		Format:    format,
		OutputDir: cmd.String("dir"),
		Kinds:     kinds,
	})
	close(prog)
	if err != nil {
		return err
	}

	for update := range prog {
		if update.Phase == tasks.WriteCollection {
			r.writePlain("%s\n", update.Message)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Manifest, cmd.Bool("pretty"))
	}
	return r.writePlain("Manifest written to %s\n", result.ManifestPath)
}
