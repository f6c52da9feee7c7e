// Package config loads, normalizes, and validates avmerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// AVMERGE_API_TOKEN. The Config type carries every directory the merge
// pipeline touches so callers (and tests) can redirect uploads, outputs, and
// sample media to isolated locations instead of relying on process globals.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
