// Package main hosts the avmerge CLI.
//
// "avmerge serve" runs the HTTP service. The remaining commands drive the
// same internal packages directly: merge and probe local files, sweep the
// output directory, list sample media, report dependency status, and
// scaffold or validate configuration.
package main
