package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths are the output files of one run
type Paths struct {
	JSON  string
	Excel string
	CSV   string
}

// RunPaths names the outputs of a run started at at
func RunPaths(dir, symbol string, at time.Time) Paths {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = "UNKNOWN"
	}
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", s, at.UTC().Format("20060102_150405")))
	return Paths{
		JSON:  base + ".json",
		Excel: base + ".xlsx",
		CSV:   base + "_ticks.csv",
	}
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
