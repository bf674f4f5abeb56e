package reporting

import (
	"encoding/json"
	"fmt"
	"os"
)

// FormatJSON renders the report as indented JSON
func FormatJSON(report *RunReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// WriteJSON writes the report to path, creating parent directories
func WriteJSON(report *RunReport, path string) error {
	data, err := FormatJSON(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
