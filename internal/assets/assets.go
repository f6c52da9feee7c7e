// Package assets lists and locates the sample media served for manual testing.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"avmerge/internal/services"
)

var (
	videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}
	audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac"}
)

var mediaTypes = map[string]string{
	".mp4": "video/mp4",
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
}

// Listing partitions sample files by kind. Files with other extensions are
// omitted.
type Listing struct {
	Video []string
	Audio []string
}

// List reads dir and sorts its regular files into video and audio. A missing
// directory yields an empty listing.
func List(dir string) (Listing, error) {
	listing := Listing{Video: []string{}, Audio: []string{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return listing, nil
		}
		return listing, fmt.Errorf("list test files: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case slices.Contains(videoExtensions, ext):
			listing.Video = append(listing.Video, entry.Name())
		case slices.Contains(audioExtensions, ext):
			listing.Audio = append(listing.Audio, entry.Name())
		}
	}
	return listing, nil
}

// MediaType returns the content type served for name.
func MediaType(name string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Locate returns the path of name inside dir. Names that are not plain base
// names, and files that do not exist, fail with ErrNotFound.
func Locate(dir, name string) (string, error) {
	if !IsBaseName(name) {
		return "", services.Wrap(services.ErrNotFound, "", "", "File not found", nil)
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrNotFound, "", "", "File not found", nil)
	}
	return path, nil
}

// IsBaseName reports whether name is a single path element.
func IsBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
