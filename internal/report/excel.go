package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/models"
)

const (
	sheetName = "Sheet1"

	titleRow  = 1
	headerRow = 2
	firstRow  = 3

	// characters added to the widest cell of every column
	columnPadding  = 2
	maxColumnWidth = excelize.MaxColumnWidth

	fileTimeLayout  = "02.01.2006 15:04:05"
	titleDateLayout = "02.01.2006"
)

// FileName report file name for a report generated at now
func FileName(now time.Time) string {
	return fmt.Sprintf("report-%s.xlsx", now.Format(fileTimeLayout))
}

// Writer writes report rows into xlsx files under dir
type Writer struct {
	dir    string
	title  string
	logger *zap.Logger
}

// NewWriter creates a writer; title goes into the first line of the sheet
func NewWriter(dir, title string, logger *zap.Logger) *Writer {
	return &Writer{
		dir:    dir,
		title:  title,
		logger: logger,
	}
}

// Write saves rows into a new file and returns its path.
// Nothing is written for an empty table and the returned path is "".
func (w *Writer) Write(rows []models.ReportRow, now time.Time) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, FileName(now))

	f := excelize.NewFile()
	defer f.Close()

	if err := w.fill(f, rows, now); err != nil {
		return "", err
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report %s: %w", path, err)
	}

	w.logger.Info("Report written", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

func (w *Writer) fill(f *excelize.File, rows []models.ReportRow, now time.Time) error {
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// title
	titleCell, _ := excelize.CoordinatesToCellName(1, titleRow)
	if err := f.SetCellValue(sheetName, titleCell, fmt.Sprintf("%s, %s", w.title, now.Format(titleDateLayout))); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if err := f.SetCellStyle(sheetName, titleCell, titleCell, boldStyle); err != nil {
		return fmt.Errorf("failed to set title style: %w", err)
	}

	// header
	header := make([]any, len(models.Columns))
	for i, c := range models.Columns {
		header[i] = c
	}
	if err := setRow(f, headerRow, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(models.Columns), headerRow)
	if err := f.SetCellStyle(sheetName, first, last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	// data
	texts := make([][]string, 0, len(rows))
	for i, row := range rows {
		if err := setRow(f, firstRow+i, row.Values()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		texts = append(texts, row.Strings())
	}

	for i, width := range ColumnWidths(models.Columns, texts) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	topLeft, _ := excelize.CoordinatesToCellName(1, firstRow)
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      headerRow,
		TopLeftCell: topLeft,
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

// ColumnWidths width of every column: the longer of its header and its widest
// cell, in characters, plus padding.
func ColumnWidths(header []string, rows [][]string) []float64 {
	widths := make([]float64, len(header))
	for i, h := range header {
		longest := utf8.RuneCountInString(h)
		for _, row := range rows {
			if i < len(row) {
				if n := utf8.RuneCountInString(row[i]); n > longest {
					longest = n
				}
			}
		}
		width := float64(longest + columnPadding)
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		widths[i] = width
	}
	return widths
}

// Read loads a report written by Writer and returns its header and data rows as text.
// Data rows are padded to the header length.
func Read(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(all) < headerRow {
		return nil, nil, fmt.Errorf("report %s has no header row", path)
	}

	header := all[headerRow-1]
	data := make([][]string, 0, len(all)-headerRow)
	for _, row := range all[headerRow:] {
		padded := make([]string, len(header))
		copy(padded, row)
		data = append(data, padded)
	}
	return header, data, nil
}
