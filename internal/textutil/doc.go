// Package textutil normalizes user-supplied names into filesystem-safe file
// names.
package textutil
