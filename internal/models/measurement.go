package models

import "time"

// Category kind of value carried by a measurement record
type Category int

const (
	CategoryPulse           Category = 1
	CategorySaturation      Category = 22
	CategoryTemperature     Category = 25
	CategorySymptom         Category = 30
	CategoryFillTime        Category = 31
	CategoryRespirationRate Category = 44
)

// String human readable category name (logging only)
func (c Category) String() string {
	switch c {
	case CategoryPulse:
		return "pulse"
	case CategorySaturation:
		return "saturation"
	case CategoryTemperature:
		return "temperature"
	case CategorySymptom:
		return "symptom"
	case CategoryFillTime:
		return "fill_time"
	case CategoryRespirationRate:
		return "respiration_rate"
	default:
		return "unknown"
	}
}

// MeasurementRecord one observation submitted by a patient.
// Records sharing Group were submitted together and form one report row.
type MeasurementRecord struct {
	ID        int64
	Group     string
	Category  Category
	Value     string
	CreatedAt time.Time // UTC wall clock as stored
	Alert     bool      // value was outside its safe threshold
}
