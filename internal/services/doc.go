// Package services defines shared utilities consumed by the ingest workflow
// and its backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the workflow phase, backend job IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     operator-correctable blocks or job failures.
//
// Use these helpers when wiring new phase logic so error handling and
// observability stay uniform across the pipeline.
package services
