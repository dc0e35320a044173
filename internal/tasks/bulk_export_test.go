package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/rize/internal/formatter"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/repositories"
	"github.com/desertthunder/rize/internal/shared"
	th "github.com/desertthunder/rize/internal/testing"
)

type fakeSource struct {
	records map[models.CollectionKind][]*models.ListRecord
	errs    map[models.CollectionKind]error
}

func (f *fakeSource) Records(ctx context.Context, kind models.CollectionKind) ([]*models.ListRecord, error) {
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.records[kind], nil
}

func newFakeSource() *fakeSource {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &fakeSource{
		records: map[models.CollectionKind][]*models.ListRecord{
			models.Note: {
				{ID: 2, Text: "newer note", Kind: models.Note, CreatedAt: created.Add(time.Minute)},
				{ID: 1, Text: "older note", Kind: models.Note, CreatedAt: created},
			},
			models.Task: {
				{ID: 1, Text: "buy milk", Kind: models.Task, CreatedAt: created},
			},
		},
		errs: map[models.CollectionKind]error{},
	}
}

func readManifest(t *testing.T, path string) formatter.Manifest {
	t.Helper()
	var manifest formatter.Manifest
	if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	return manifest
}

func TestExport_Formats(t *testing.T) {
	tests := []struct {
		name      string
		format    formatter.Format
		files     []string
		wantInput string
	}{
		{name: "json", format: formatter.JSON, files: []string{"notes.json", "tasks.json"}, wantInput: `"text": "newer note"`},
		{name: "csv", format: formatter.CSV, files: []string{"notes.csv", "tasks.csv"}, wantInput: "2,newer note,"},
		{name: "markdown alias", format: "md", files: []string{"notes.md", "tasks.md"}, wantInput: "- newer note"},
		{name: "text", format: formatter.Text, files: []string{"notes.txt", "tasks.txt"}, wantInput: "1. newer note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			engine := NewExportEngine(newFakeSource(), nil)

			result, err := engine.Export(context.Background(), nil, ExportOpts{Format: tt.format, OutputDir: dir})
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			if result.Manifest.Successful != 2 || result.Manifest.Failed != 0 {
				t.Errorf("expected 2 successful exports, got %+v", result.Manifest)
			}
			for _, name := range tt.files {
				th.AssertFileExists(t, filepath.Join(dir, name))
			}

			notes := th.MustReadFile(t, filepath.Join(dir, tt.files[0]))
			if !strings.Contains(notes, tt.wantInput) {
				t.Errorf("expected %q in notes export, got:\n%s", tt.wantInput, notes)
			}

			if result.ManifestPath != filepath.Join(dir, ManifestName) {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
			manifest := readManifest(t, result.ManifestPath)
			if manifest.Collections[0].Kind != models.Note || manifest.Collections[1].Kind != models.Task {
				t.Errorf("manifest should keep collection order, got %+v", manifest.Collections)
			}
			if manifest.Collections[0].File != tt.files[0] || manifest.Collections[0].Count != 2 {
				t.Errorf("unexpected notes entry %+v", manifest.Collections[0])
			}
		})
	}
}

func TestExport_PartialFailure(t *testing.T) {
	source := newFakeSource()
	source.errs[models.Task] = fmt.Errorf("%w: disk unplugged", shared.ErrStorageIO)
	dir := t.TempDir()

	result, err := NewExportEngine(source, nil).Export(context.Background(), nil, ExportOpts{Format: formatter.CSV, OutputDir: dir})
	if err != nil {
		t.Fatalf("partial failure should not fail the export: %v", err)
	}

	if result.Manifest.Successful != 1 || result.Manifest.Failed != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", result.Manifest)
	}

	task := result.Manifest.Collections[1]
	if task.Status != "failed" || !strings.Contains(task.Error, "disk unplugged") {
		t.Errorf("unexpected task entry %+v", task)
	}
	th.AssertFileExists(t, filepath.Join(dir, "notes.csv"))
	th.AssertFileMissing(t, filepath.Join(dir, "tasks.csv"))
}

func TestExport_SelectedKinds(t *testing.T) {
	dir := t.TempDir()
	result, err := NewExportEngine(newFakeSource(), nil).Export(context.Background(), nil, ExportOpts{
		Format:     formatter.Text,
		OutputDir:  dir,
		Kinds:      []models.CollectionKind{models.Task},
		NumWorkers: 8,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if result.Manifest.Total != 1 {
		t.Errorf("expected 1 collection, got %d", result.Manifest.Total)
	}
	th.AssertFileExists(t, filepath.Join(dir, "tasks.txt"))
	th.AssertFileMissing(t, filepath.Join(dir, "notes.txt"))
}

func TestExport_Errors(t *testing.T) {
	t.Run("nil source", func(t *testing.T) {
		_, err := NewExportEngine(nil, nil).Export(context.Background(), nil, ExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewExportEngine(newFakeSource(), nil).Export(context.Background(), nil, ExportOpts{
			OutputDir: t.TempDir(),
			Kinds:     []models.CollectionKind{"BOOKMARK"},
		})
		if !errors.Is(err, shared.ErrUnknownCollection) {
			t.Errorf("expected ErrUnknownCollection, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewExportEngine(newFakeSource(), nil).Export(context.Background(), nil, ExportOpts{
			OutputDir: t.TempDir(),
			Format:    "xml",
		})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dir := t.TempDir()
		_, err := NewExportEngine(newFakeSource(), nil).Export(ctx, nil, ExportOpts{OutputDir: dir})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		th.AssertFileMissing(t, filepath.Join(dir, ManifestName))
	})
}

func TestExport_DefaultOutputDir(t *testing.T) {
	t.Chdir(t.TempDir())

	engine := NewExportEngine(newFakeSource(), nil)
	engine.now = func() time.Time { return time.Unix(1700000000, 0) }

	result, err := engine.Export(context.Background(), nil, ExportOpts{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if result.OutputDirectory != "rize_export_1700000000" {
		t.Errorf("unexpected output directory %s", result.OutputDirectory)
	}
	if result.Manifest.Format != formatter.JSON {
		t.Errorf("expected JSON by default, got %s", result.Manifest.Format)
	}
	if info, err := os.Stat(result.OutputDirectory); err != nil || !info.IsDir() {
		t.Errorf("expected output directory to exist: %v", err)
	}
}

func TestExport_Progress(t *testing.T) {
	prog := make(chan ProgressUpdate, 16)

	_, err := NewExportEngine(newFakeSource(), nil).Export(context.Background(), prog, ExportOpts{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	close(prog)

	counts := map[Phase]int{}
	var last ProgressUpdate
	for update := range prog {
		counts[update.Phase]++
		last = update
	}

	if counts[ReadCollection] != 2 || counts[WriteCollection] != 2 {
		t.Errorf("expected 2 read and 2 write updates, got %v", counts)
	}
	if last.Phase != WriteManifest {
		t.Errorf("expected manifest update last, got %s", last.Phase)
	}
}

func TestExport_FullChannelDoesNotBlock(t *testing.T) {
	prog := make(chan ProgressUpdate)

	done := make(chan error, 1)
	go func() {
		_, err := NewExportEngine(newFakeSource(), nil).Export(context.Background(), prog, ExportOpts{OutputDir: t.TempDir()})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Export blocked on an unread progress channel")
	}
}

func TestExport_ListStore(t *testing.T) {
	dbs := make(map[models.CollectionKind]*sql.DB)
	for _, kind := range models.CollectionKinds {
		db, err := shared.NewDatabase(shared.MemoryDatabase)
		if err != nil {
			t.Fatalf("failed to create %s database: %v", kind, err)
		}
		dbs[kind] = db
	}
	store, err := repositories.NewListStore(dbs, nil)
	if err != nil {
		t.Fatalf("failed to create list store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, text := range []string{"first", "second"} {
		if _, err := store.Append(ctx, models.Note, text); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if _, err := store.Append(ctx, models.Task, text); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	dir := t.TempDir()
	if _, err := NewExportEngine(store, nil).Export(ctx, nil, ExportOpts{Format: formatter.Text, OutputDir: dir}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if got := th.MustReadFile(t, filepath.Join(dir, "notes.txt")); got != "Notes: 2\n\n1. second\n2. first\n" {
		t.Errorf("notes should export newest first, got %q", got)
	}
	if got := th.MustReadFile(t, filepath.Join(dir, "tasks.txt")); got != "Tasks: 2\n\n1. first\n2. second\n" {
		t.Errorf("tasks should export in insertion order, got %q", got)
	}
}
