package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/formatter"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

// ManifestName is the file written next to the exported collections.
const ManifestName = "export_manifest.json"

// RecordSource is the read side of the list store.
type RecordSource interface {
	Records(ctx context.Context, kind models.CollectionKind) ([]*models.ListRecord, error)
}

// ExportOpts contains configuration for a collection export.
type ExportOpts struct {
	Format     formatter.Format        // Export format: json, csv, markdown, txt
	OutputDir  string                  // Output directory (default: rize_export_{epoch})
	Kinds      []models.CollectionKind // Collections to export (default: all)
	NumWorkers int                     // Concurrent workers (default: one per collection)
}

// ExportResult summarizes an export run.
type ExportResult struct {
	OutputDirectory string
	ManifestPath    string
	Manifest        formatter.Manifest
}

// ExportEngine writes collections from a [RecordSource] to disk.
type ExportEngine struct {
	source RecordSource
	logger *log.Logger
	now    func() time.Time
}

// NewExportEngine creates an ExportEngine reading from source.
func NewExportEngine(source RecordSource, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{source: source, logger: logger, now: time.Now}
}

type exportJob struct {
	index int
	kind  models.CollectionKind
}

type exportOutcome struct {
	index int
	entry formatter.ManifestEntry
}

// Export writes every requested collection concurrently and then the manifest.
//
// A collection that fails is recorded in the manifest and does not stop the others.
// Cancelling ctx stops the run and returns the context error.
func (e *ExportEngine) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: record source not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = format
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("rize_export_%d", e.now().Unix())
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = models.CollectionKinds
	}
	for _, kind := range opts.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q", shared.ErrUnknownCollection, kind)
		}
	}
	if opts.NumWorkers <= 0 || opts.NumWorkers > len(opts.Kinds) {
		opts.NumWorkers = len(opts.Kinds)
	}

	if err := os.MkdirAll(opts.OutputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make(chan exportJob, len(opts.Kinds))
	outcomes := make(chan exportOutcome, len(opts.Kinds))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, prog, jobs, outcomes, opts)
	}

	for i, kind := range opts.Kinds {
		jobs <- exportJob{index: i, kind: kind}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	total := len(opts.Kinds)
	entries := make([]formatter.ManifestEntry, total)
	completed := 0
	for out := range outcomes {
		completed++
		entries[out.index] = out.entry

		if out.entry.Status == "success" {
			e.sendProgress(prog, collectionWrittenUpdate(completed, total, out.entry.Kind, out.entry.Count, out.entry.File))
		} else {
			e.sendProgress(prog, collectionFailedUpdate(completed, total, out.entry.Kind, fmt.Errorf("%s", out.entry.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest := formatter.Manifest{
		Format:      opts.Format,
		ExportedAt:  e.now().UTC(),
		Total:       total,
		Collections: entries,
	}
	for _, entry := range entries {
		if entry.Status == "success" {
			manifest.Successful++
		} else {
			manifest.Failed++
		}
	}

	result := &ExportResult{OutputDirectory: opts.OutputDir, Manifest: manifest}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("export finished",
		"dir", opts.OutputDir, "format", opts.Format,
		"successful", manifest.Successful, "failed", manifest.Failed)
	return result, nil
}

// exportWorker exports collections from the jobs channel until it is drained or ctx is done.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	prog chan<- ProgressUpdate,
	jobs <-chan exportJob,
	outcomes chan<- exportOutcome,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		e.sendProgress(prog, readingCollectionUpdate(job.index+1, len(opts.Kinds), job.kind))
		outcomes <- exportOutcome{index: job.index, entry: e.exportCollection(ctx, job, opts)}
	}
}

func (e *ExportEngine) exportCollection(ctx context.Context, job exportJob, opts ExportOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{Kind: job.kind, Status: "failed"}

	records, err := e.source.Records(ctx, job.kind)
	if err != nil {
		e.logger.Warn("failed to read collection", "kind", job.kind, "error", err)
		entry.Error = err.Error()
		return entry
	}
	entry.Count = len(records)

	path, err := formatter.WriteExport(opts.OutputDir, opts.Format, job.kind, records)
	if err != nil {
		e.logger.Warn("failed to write collection", "kind", job.kind, "error", err)
		entry.Error = err.Error()
		return entry
	}

	entry.Status = "success"
	entry.File = filepath.Base(path)
	return entry
}

func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
