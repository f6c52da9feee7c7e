// Package services defines shared utilities consumed by the merge pipeline
// and its HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, job IDs, and stage names for
//     logging.
//   - Structured error markers, the typed DownloadError/ToolError values, and
//     the Wrap helper that keep failures classifiable (KindOf, HTTPStatus)
//     after they cross package boundaries.
//
// Use these helpers when wiring new pipeline code so error reporting stays
// uniform from the orchestrator up to the JSON response.
package services
