package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lanta-sber-sender/internal/models"
)

// PatientRepository patient / contract queries
type PatientRepository struct {
	db     Querier
	logger *zap.Logger
}

// NewPatientRepository creates a patient repository
func NewPatientRepository(db Querier, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns patients whose contract for scenarioID ends after today.
// today is compared as a calendar date.
func (r *PatientRepository) ListActive(ctx context.Context, today time.Time, scenarioID int) ([]models.Patient, error) {
	query := `
		SELECT
			u.id,
			u.birthday,
			u.name,
			c."startDate"
		FROM contracts c
		INNER JOIN patient_clinics pc ON c.patient = pc.id
		INNER JOIN users u ON u.id = pc."user"
		WHERE c."endDate" > $1
		  AND c.scenario_id = $2
		ORDER BY c."startDate", u.id
	`

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, query, day, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active patients: %w", err)
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var (
			p        models.Patient
			birthday sql.NullTime
			name     sql.NullString
			start    sql.NullTime
		)
		if err := rows.Scan(&p.ID, &birthday, &name, &start); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		if birthday.Valid {
			p.Birthday = birthday.Time
		}
		if start.Valid {
			p.MonitoringStart = start.Time
		}
		p.Name = name.String
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}

	r.logger.Debug("Active patients loaded",
		zap.Int("scenario_id", scenarioID),
		zap.Int("count", len(patients)),
	)
	return patients, nil
}
