package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Duration is a media length in seconds that may be unknown.
type Duration struct {
	Seconds float64
	Known   bool
}

// KnownDuration returns a known duration of the given seconds.
func KnownDuration(seconds float64) Duration {
	return Duration{Seconds: seconds, Known: true}
}

// UnknownDuration returns the zero value, which reports as unknown.
func UnknownDuration() Duration {
	return Duration{}
}

// ParseSeconds parses a decimal seconds value as printed by ffprobe.
// Negative, NaN and infinite values are rejected.
func ParseSeconds(text string) (Duration, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return Duration{}, fmt.Errorf("parse duration: empty value")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Duration{}, fmt.Errorf("parse duration %q: %w", cleaned, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return Duration{}, fmt.Errorf("parse duration %q: out of range", cleaned)
	}
	return KnownDuration(value), nil
}

// Add returns d extended by seconds. Unknown durations stay unknown.
func (d Duration) Add(seconds float64) Duration {
	if !d.Known {
		return d
	}
	return KnownDuration(d.Seconds + seconds)
}

// String renders "N.NN seconds" or "Unknown".
func (d Duration) String() string {
	if !d.Known {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f seconds", d.Seconds)
}

// RemuxRequest describes one video+audio combination. A known Duration caps
// the output length; an unknown one lets the shorter stream decide.
type RemuxRequest struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
	Duration   Duration
}
