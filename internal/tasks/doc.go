// Package tasks runs long-running jobs over the local collections with progress reporting.
//
// # Export
//
// [ExportEngine.Export] writes each requested collection (notes, tasks) to its own file in the
// chosen [formatter.Format] using a small worker pool, then writes an export_manifest.json that
// records per-collection status, entry count, and file name. A collection that cannot be read or
// written is marked failed in the manifest without aborting the others.
//
// # Progress Reporting
//
// Progress is sent on an optional channel as [ProgressUpdate] values. Sends never block: when the
// channel is full the update is dropped.
package tasks
