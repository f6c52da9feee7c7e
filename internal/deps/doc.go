// Package deps reports whether the external binaries avmerge shells out to
// are installed, and which version they report.
package deps
