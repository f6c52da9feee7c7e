// Package ffprobe wraps the ffprobe binary.
//
// Duration runs the plain-text format=duration query used by the merge
// pipeline. Inspect decodes the full JSON stream listing for the CLI probe
// command; Result helpers expose stream counts, duration, size, and bitrate.
package ffprobe
