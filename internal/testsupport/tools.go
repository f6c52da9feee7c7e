package testsupport

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avmerge/internal/config"
)

// The stand-ins read and write plain text media files: a "duration=<seconds>"
// line gives the file a probeable length, "corrupt" anywhere makes ffmpeg
// reject it as an input, and "nooutput" makes ffmpeg exit 0 without writing.
// Every invocation other than -version is appended to <binary>.calls.

func ffprobeScript(callLog string) string {
	return `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffprobe version 0.0-stub"
  exit 0
fi
echo "$*" >> '` + callLog + `'
for last; do :; done
if [ ! -f "$last" ]; then
  echo "$last: No such file or directory" >&2
  exit 1
fi
d=$(sed -n 's/^duration=\([0-9.]*\).*/\1/p' "$last" | head -n 1)
if [ -z "$d" ]; then
  echo "$last: Invalid data found when processing input" >&2
  exit 1
fi
echo "$d"
`
}

func ffmpegScript(callLog string) string {
	return `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 0.0-stub"
  exit 0
fi
echo "$*" >> '` + callLog + `'
t=""
min=""
out=""
skip=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i)
      shift
      if [ ! -f "$1" ]; then
        echo "$1: No such file or directory" >&2
        exit 1
      fi
      if grep -q corrupt "$1"; then
        echo "$1: Invalid data found when processing input" >&2
        exit 1
      fi
      if grep -q nooutput "$1"; then
        skip=1
      fi
      d=$(sed -n 's/^duration=\([0-9.]*\).*/\1/p' "$1" | head -n 1)
      if [ -n "$d" ]; then
        if [ -z "$min" ] || [ "$(awk -v a="$d" -v b="$min" 'BEGIN { print (a < b) ? 1 : 0 }')" = 1 ]; then
          min="$d"
        fi
      fi
      ;;
    -t)
      shift
      t="$1"
      ;;
  esac
  out="$1"
  shift
done
if [ -n "$skip" ]; then
  exit 0
fi
printf 'duration=%s\n' "${t:-${min:-1.0}}" > "$out"
`
}

// WriteMedia writes a stand-in media file with a probeable duration.
func WriteMedia(t testing.TB, path string, seconds string) {
	t.Helper()
	writeText(t, path, "duration="+seconds+"\n")
}

// WriteUnprobeable writes a file the ffprobe stand-in cannot read a duration from
// but which ffmpeg still accepts.
func WriteUnprobeable(t testing.TB, path string) {
	t.Helper()
	writeText(t, path, "opaque\n")
}

// WriteCorruptMedia writes a file the ffmpeg stand-in rejects.
func WriteCorruptMedia(t testing.TB, path string) {
	t.Helper()
	writeText(t, path, "corrupt\n")
}

func writeText(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ToolCalls returns the recorded argument lines for a stand-in tool
// ("ffmpeg" or "ffprobe") installed by WithMediaTools.
func ToolCalls(t testing.TB, cfg *config.Config, tool string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(BaseDir(cfg), "bin", tool+".calls"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("read %s call log: %v", tool, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// ListFiles returns the base names of regular files in dir.
func ListFiles(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names
}
