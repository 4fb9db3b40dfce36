package models

import (
	"strconv"
)

// Report column headers, in output order
const (
	ColumnName            = "ФИО"
	ColumnBirthday        = "Дата рождения"
	ColumnMonitoringStart = "Дата начала мониторинга"
	ColumnFillTime        = "Время заполнения"
	ColumnAlert           = "Тревога"
	ColumnTemperature     = "Температура"
	ColumnSaturation      = "Сатурация"
	ColumnPulse           = "Пульс"
	ColumnRespirationRate = "ЧДД"
	ColumnOtherComplaints = "Прочие жалобы"
)

// SymptomColumns symptoms that get a yes/empty column of their own
var SymptomColumns = []string{
	"Сухой кашель",
	"Одышка",
	"Боль в грудной клетке",
	"Кровь в мокроте",
	"Слабость, боль в мышцах",
	"Неукротимая рвота",
	"Нарастание периферических отеков",
	"Неконтролируемая температура",
	"Невозможность коррекции уровня глюкозы",
}

// Columns full fixed column list of the report
var Columns = buildColumns()

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(Columns))
	for i, c := range Columns {
		idx[c] = i
	}
	return idx
}()

func buildColumns() []string {
	cols := []string{
		ColumnName,
		ColumnBirthday,
		ColumnMonitoringStart,
		ColumnFillTime,
		ColumnAlert,
		ColumnTemperature,
		ColumnSaturation,
		ColumnPulse,
		ColumnRespirationRate,
	}
	cols = append(cols, SymptomColumns...)
	return append(cols, ColumnOtherComplaints)
}

// IsColumn reports whether name is one of Columns
func IsColumn(name string) bool {
	_, ok := columnIndex[name]
	return ok
}

// IsSymptomColumn reports whether name is one of SymptomColumns
func IsSymptomColumn(name string) bool {
	i, ok := columnIndex[name]
	return ok && i >= columnIndex[SymptomColumns[0]] && i < columnIndex[ColumnOtherComplaints]
}

// ReportRow one report line. Cells are string, int or float64; unset cells are "".
type ReportRow struct {
	cells []any
}

// NewReportRow returns a row with every column empty
func NewReportRow() ReportRow {
	cells := make([]any, len(Columns))
	for i := range cells {
		cells[i] = ""
	}
	return ReportRow{cells: cells}
}

// Set stores value under column. Unknown columns are refused.
func (r ReportRow) Set(column string, value any) bool {
	i, ok := columnIndex[column]
	if !ok {
		return false
	}
	r.cells[i] = value
	return true
}

// Get returns the cell of column, nil for unknown columns
func (r ReportRow) Get(column string) any {
	i, ok := columnIndex[column]
	if !ok {
		return nil
	}
	return r.cells[i]
}

// Values cells in Columns order
func (r ReportRow) Values() []any {
	out := make([]any, len(r.cells))
	copy(out, r.cells)
	return out
}

// Strings cells in Columns order, rendered as text
func (r ReportRow) Strings() []string {
	out := make([]string, len(r.cells))
	for i, v := range r.cells {
		out[i] = CellText(v)
	}
	return out
}

// CellText renders a cell value the way it reads in the spreadsheet
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
