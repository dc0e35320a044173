// package formatter renders note and task collections to export formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

const timeLayout = "2006-01-02 15:04"

// ParseFormat accepts a format name or its common alias. Empty input selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	case Text:
		return ".txt"
	default:
		return ".json"
	}
}

// FileName returns the export file name for a collection, e.g. notes.csv.
func FileName(f Format, kind models.CollectionKind) string {
	return kind.Table() + f.Ext()
}

// heading returns "Notes" or "Tasks".
func heading(kind models.CollectionKind) string {
	name := kind.Table()
	if name == "" {
		return "Entries"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ExportToCSV converts records to CSV with columns: ID, Text, Created
func ExportToCSV(records []*models.ListRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Text", "Created"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.Text,
			record.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a collection to a Markdown document with one list item per record.
func ExportToMarkdown(kind models.CollectionKind, records []*models.ListRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", heading(kind))
	fmt.Fprintf(&buf, "**Entries**: %d\n\n", len(records))

	for _, record := range records {
		if kind == models.Task {
			fmt.Fprintf(&buf, "- [ ] %s _(%s)_\n", record.Text, record.CreatedAt.Format(timeLayout))
		} else {
			fmt.Fprintf(&buf, "- %s _(%s)_\n", record.Text, record.CreatedAt.Format(timeLayout))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a collection to plain text
func ExportToText(kind models.CollectionKind, records []*models.ListRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %d\n\n", heading(kind), len(records))
	for i, record := range records {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, record.Text)
	}

	return buf.Bytes(), nil
}

type collectionJSON struct {
	Kind    models.CollectionKind `json:"kind"`
	Count   int                   `json:"count"`
	Records []*models.ListRecord  `json:"records"`
}

// ExportToJSON wraps the records with their kind and count.
func ExportToJSON(kind models.CollectionKind, records []*models.ListRecord) ([]byte, error) {
	if records == nil {
		records = []*models.ListRecord{}
	}
	data, err := json.MarshalIndent(collectionJSON{Kind: kind, Count: len(records), Records: records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render encodes records in the given format.
func Render(f Format, kind models.CollectionKind, records []*models.ListRecord) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(records)
	case Markdown:
		return ExportToMarkdown(kind, records)
	case Text:
		return ExportToText(kind, records)
	case JSON:
		return ExportToJSON(kind, records)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport renders a collection into dir/FileName(f, kind) and returns the written path.
//
// Exports hold user content, so files are written owner-only.
func WriteExport(dir string, f Format, kind models.CollectionKind, records []*models.ListRecord) (string, error) {
	data, err := Render(f, kind, records)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(f, kind))
	if err := shared.WriteFileAtomic(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", kind.Table(), err)
	}
	return path, nil
}

// ManifestEntry records the outcome for one collection.
type ManifestEntry struct {
	Kind   models.CollectionKind `json:"kind"`
	Status string                `json:"status"`
	Count  int                   `json:"count"`
	File   string                `json:"file,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Manifest summarizes an export run.
type Manifest struct {
	Format      Format          `json:"format"`
	ExportedAt  time.Time       `json:"exported_at"`
	Total       int             `json:"total_collections"`
	Successful  int             `json:"successful_exports"`
	Failed      int             `json:"failed_exports"`
	Collections []ManifestEntry `json:"collections"`
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(m Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := shared.WriteFileAtomic(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
