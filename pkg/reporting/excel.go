package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet     = "Summary"
	ticksSheet       = "Ticks"
	transitionsSheet = "Transitions"
	ordersSheet      = "Orders"

	timeLayout = "2006-01-02 15:04:05.000"
)

// ExcelStyles holds workbook formatting styles
type ExcelStyles struct {
	HeaderStyle int
	BaseStyle   int
	EntryStyle  int
	ExitStyle   int
	SkipStyle   int
}

// ExcelReporter writes run reports as workbooks
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteRunXLSX writes the report with Summary, Ticks, Transitions and Orders sheets
func (r *ExcelReporter) WriteRunXLSX(report *RunReport, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	for _, name := range []string{ticksSheet, transitionsSheet, ordersSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeTicksSheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeTransitionsSheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeOrdersSheet(fx, report, styles); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (r *ExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	if styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border}); err != nil {
		return styles, err
	}

	// Entry rows light blue, exit rows light green
	styles.EntryStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}
	styles.ExitStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E8F5E8"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SkipStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "FF0000"},
		Border: border,
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	rows := [][]interface{}{
		{"Symbol", report.Symbol},
		{"Environment", report.Environment},
		{"Threshold", report.Threshold},
		{"Quantity", report.Quantity},
		{"Poll Interval", report.PollInterval},
		{"Max Attempts", report.MaxAttempts},
		{"Final State", report.FinalState},
		{"Reason", report.Reason},
		{"Attempts", report.Attempts},
		{"Trigger Tick", report.TriggerTick},
		{"Last Price", report.LastPrice},
		{"Started", formatTime(report.StartedAt)},
		{"Finished", formatTime(report.FinishedAt)},
		{"Duration", report.Duration},
	}
	if p := report.Position; p != nil {
		rows = append(rows,
			[]interface{}{"Position Amt", p.PositionAmt},
			[]interface{}{"Entry Price", p.EntryPrice},
			[]interface{}{"Unrealized PnL", p.UnrealizedProfit},
			[]interface{}{"Close Side", p.CloseSide},
			[]interface{}{"Close Qty", p.CloseQty},
		)
	}
	if report.Error != "" {
		rows = append(rows, []interface{}{"Error", report.Error})
	}

	if err := writeHeader(fx, summarySheet, []string{"Field", "Value"}, styles); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeRow(fx, summarySheet, i+2, row, styles.BaseStyle); err != nil {
			return err
		}
	}
	return fx.SetColWidth(summarySheet, "A", "B", 24)
}

func (r *ExcelReporter) writeTicksSheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	if err := writeHeader(fx, ticksSheet, []string{"Attempt", "Time", "Price", "Result", "Error"}, styles); err != nil {
		return err
	}
	for i, t := range report.Ticks {
		style := styles.BaseStyle
		switch t.Result {
		case "skipped":
			style = styles.SkipStyle
		case "triggered":
			style = styles.EntryStyle
		}
		if err := writeRow(fx, ticksSheet, i+2, []interface{}{t.Attempt, formatTime(t.At), t.Price, t.Result, t.Error}, style); err != nil {
			return err
		}
	}
	return fx.SetColWidth(ticksSheet, "B", "B", 24)
}

func (r *ExcelReporter) writeTransitionsSheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	if err := writeHeader(fx, transitionsSheet, []string{"From", "To", "Time", "Reason"}, styles); err != nil {
		return err
	}
	for i, t := range report.Transitions {
		if err := writeRow(fx, transitionsSheet, i+2, []interface{}{t.From, t.To, formatTime(t.At), t.Reason}, styles.BaseStyle); err != nil {
			return err
		}
	}
	return fx.SetColWidth(transitionsSheet, "C", "D", 32)
}

func (r *ExcelReporter) writeOrdersSheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	headers := []string{"Purpose", "Side", "Quantity", "Time", "Order ID", "Client Order ID", "Status", "Reduce Only"}
	if err := writeHeader(fx, ordersSheet, headers, styles); err != nil {
		return err
	}
	for i, o := range report.Orders {
		style := styles.EntryStyle
		if o.Purpose == "close" {
			style = styles.ExitStyle
		}
		row := []interface{}{o.Purpose, o.Side, o.Quantity, formatTime(o.At), o.OrderID, o.ClientOrderID, o.Status, o.ReduceOnly}
		if err := writeRow(fx, ordersSheet, i+2, row, style); err != nil {
			return err
		}
	}
	return fx.SetColWidth(ordersSheet, "D", "F", 38)
}

func writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(fx, sheet, 1, row, styles.HeaderStyle)
}

func writeRow(fx *excelize.File, sheet string, rowNum int, values []interface{}, style int) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(values), rowNum)
	if err != nil {
		return err
	}
	if err := fx.SetSheetRow(sheet, start, &values); err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, start, end, style)
}
