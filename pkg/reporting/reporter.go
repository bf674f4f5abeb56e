package reporting

import "time"

// Formats selects which files a Reporter produces
type Formats struct {
	JSON  bool
	Excel bool
	CSV   bool
}

// AllFormats enables every output
var AllFormats = Formats{JSON: true, Excel: true, CSV: true}

// Reporter writes run reports into one directory
type Reporter struct {
	dir     string
	formats Formats
	excel   *ExcelReporter
}

// NewReporter creates a reporter for dir
func NewReporter(dir string, formats Formats) *Reporter {
	return &Reporter{
		dir:     dir,
		formats: formats,
		excel:   NewExcelReporter(),
	}
}

// Write produces the enabled outputs for report, named after its symbol and
// start time, and returns the paths written.
func (r *Reporter) Write(report *RunReport) ([]string, error) {
	at := report.StartedAt
	if at.IsZero() {
		at = report.GeneratedAt
	}
	if at.IsZero() {
		at = time.Now()
	}
	paths := RunPaths(r.dir, report.Symbol, at)

	var written []string
	if r.formats.JSON {
		if err := WriteJSON(report, paths.JSON); err != nil {
			return written, err
		}
		written = append(written, paths.JSON)
	}
	if r.formats.Excel {
		if err := r.excel.WriteRunXLSX(report, paths.Excel); err != nil {
			return written, err
		}
		written = append(written, paths.Excel)
	}
	if r.formats.CSV {
		if err := WriteTicksCSV(report, paths.CSV); err != nil {
			return written, err
		}
		written = append(written, paths.CSV)
	}
	return written, nil
}
