package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteTicksCSV writes one row per poll attempt. A .xlsx path is delegated
// to the workbook writer.
func WriteTicksCSV(report *RunReport, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewExcelReporter().WriteRunXLSX(report, path)
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Attempt", "Time", "Price", "Result", "Error"}); err != nil {
		return err
	}
	for _, t := range report.Ticks {
		if err := w.Write([]string{
			strconv.Itoa(t.Attempt),
			formatTime(t.At),
			t.Price,
			t.Result,
			t.Error,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
