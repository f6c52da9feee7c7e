// Package preflight provides readiness checks for the filesystem paths and
// external tools avmerge depends on.
//
// The serve command runs RunAll at startup and logs any failure; the status
// command and the /api/status endpoint render the same results.
package preflight
