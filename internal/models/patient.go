package models

import "time"

// Patient monitored patient with an active contract
type Patient struct {
	ID              int64
	Birthday        time.Time
	Name            string
	MonitoringStart time.Time // UTC wall clock as stored
}
