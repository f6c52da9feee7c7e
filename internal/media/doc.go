// Package media holds the value types shared by the probe and remux adapters.
//
// Duration models a measurement that may be unavailable; RemuxRequest is the
// input contract for the ffmpeg adapter. Subpackages wrap the external tools:
// ffprobe reads durations and stream metadata, ffmpeg builds and runs the
// remux command line.
package media
