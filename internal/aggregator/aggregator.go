package aggregator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"lanta-sber-sender/internal/models"
)

// ErrBadValue a numeric measurement could not be parsed
var ErrBadValue = errors.New("bad measurement value")

const (
	// AlertMarker fills the alert column when any record of the session is flagged
	AlertMarker = "!!!"
	// SymptomPresent fills a symptom column the patient reported
	SymptomPresent = "да"

	DateLayout     = "02.01.2006"
	DateTimeLayout = "02.01.2006 15:04:05"

	// symptom records look like "COVID-19: одышка";
	// free-text complaints like "COVID-19, жалобы пациента - <text>"
	complaintMarker = "жалобы пациента -"
	symptomPrefix   = "COVID-19: "
	complaintPrefix = "COVID-19, жалобы пациента - "

	complaintSeparator = "; "
)

// Session records of one patient sharing a group id
type Session struct {
	Group   string
	Records []models.MeasurementRecord
}

// Aggregator turns session records into report rows
type Aggregator struct {
	loc    *time.Location
	logger *zap.Logger
}

// New creates an aggregator rendering dates in loc
func New(loc *time.Location, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		loc:    loc,
		logger: logger,
	}
}

// Window start of the monitoring window: cutoffHour:00 of the calendar day
// before now, in loc.
func Window(now time.Time, loc *time.Location, cutoffHour int) time.Time {
	prev := now.In(loc).AddDate(0, 0, -1)
	return time.Date(prev.Year(), prev.Month(), prev.Day(), cutoffHour, 0, 0, 0, loc)
}

// BuildRows reduces each session into one row, keeping session order
func (a *Aggregator) BuildRows(patient models.Patient, sessions []Session) ([]models.ReportRow, error) {
	rows := make([]models.ReportRow, 0, len(sessions))
	for _, s := range sessions {
		row, err := a.BuildRow(patient, s.Records)
		if err != nil {
			return nil, fmt.Errorf("patient %d group %s: %w", patient.ID, s.Group, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BuildRow reduces the records of one session into a report row
func (a *Aggregator) BuildRow(patient models.Patient, records []models.MeasurementRecord) (models.ReportRow, error) {
	row := models.NewReportRow()
	row.Set(models.ColumnName, patient.Name)
	if !patient.Birthday.IsZero() {
		row.Set(models.ColumnBirthday, patient.Birthday.Format(DateLayout))
	}
	if !patient.MonitoringStart.IsZero() {
		row.Set(models.ColumnMonitoringStart, a.localize(patient.MonitoringStart).Format(DateLayout))
	}

	var complaints []string
	for _, rec := range records {
		if rec.Alert {
			row.Set(models.ColumnAlert, AlertMarker)
		}

		switch rec.Category {
		case models.CategoryTemperature:
			v, err := strconv.ParseFloat(strings.TrimSpace(rec.Value), 64)
			if err != nil {
				return models.ReportRow{}, fmt.Errorf("%w: record %d temperature %q", ErrBadValue, rec.ID, rec.Value)
			}
			row.Set(models.ColumnTemperature, v)
		case models.CategoryPulse:
			if err := setInt(row, models.ColumnPulse, rec); err != nil {
				return models.ReportRow{}, err
			}
		case models.CategoryRespirationRate:
			if err := setInt(row, models.ColumnRespirationRate, rec); err != nil {
				return models.ReportRow{}, err
			}
		case models.CategorySaturation:
			if err := setInt(row, models.ColumnSaturation, rec); err != nil {
				return models.ReportRow{}, err
			}
		case models.CategoryFillTime:
			row.Set(models.ColumnFillTime, a.localize(rec.CreatedAt).Format(DateTimeLayout))
		case models.CategorySymptom:
			if column, ok := symptomColumn(rec.Value); ok {
				row.Set(column, SymptomPresent)
			} else {
				complaints = appendComplaint(complaints, complaintText(rec.Value))
			}
		default:
			a.logger.Debug("Skipping unmapped category",
				zap.Int64("record_id", rec.ID),
				zap.Int("category", int(rec.Category)),
			)
		}
	}

	if len(complaints) > 0 {
		row.Set(models.ColumnOtherComplaints, strings.Join(complaints, complaintSeparator))
	}
	return row, nil
}

// localize reads t's wall clock as UTC and converts it to the display timezone
func (a *Aggregator) localize(t time.Time) time.Time {
	utc := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return utc.In(a.loc)
}

func setInt(row models.ReportRow, column string, rec models.MeasurementRecord) error {
	v, err := strconv.Atoi(strings.TrimSpace(rec.Value))
	if err != nil {
		return fmt.Errorf("%w: record %d %s %q", ErrBadValue, rec.ID, rec.Category, rec.Value)
	}
	row.Set(column, v)
	return nil
}

// symptomColumn maps a structured symptom value to its column.
// Free-text complaints and symptoms without a column of their own are not mapped.
func symptomColumn(value string) (string, bool) {
	if strings.Contains(value, complaintMarker) {
		return "", false
	}
	name := capitalize(strings.ReplaceAll(value, symptomPrefix, ""))
	if !models.IsSymptomColumn(name) {
		return "", false
	}
	return name, true
}

func complaintText(value string) string {
	if strings.Contains(value, complaintMarker) {
		return strings.TrimSpace(strings.ReplaceAll(value, complaintPrefix, ""))
	}
	return strings.TrimSpace(strings.ReplaceAll(value, symptomPrefix, ""))
}

func appendComplaint(list []string, text string) []string {
	if text == "" {
		return list
	}
	for _, existing := range list {
		if existing == text {
			return list
		}
	}
	return append(list, text)
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToTitle(first)) + strings.ToLower(s[size:])
}
