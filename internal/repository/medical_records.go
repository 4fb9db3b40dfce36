package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lanta-sber-sender/internal/models"
)

// RecordRepository medical_records queries
type RecordRepository struct {
	db     Querier
	logger *zap.Logger
}

// NewRecordRepository creates a medical records repository
func NewRecordRepository(db Querier, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// ListGroups returns the distinct session groups the patient submitted after since,
// in the order they were first seen.
func (r *RecordRepository) ListGroups(ctx context.Context, patientID int64, since time.Time) ([]string, error) {
	query := `
		SELECT "group"
		FROM medical_records
		WHERE user_id = $1
		  AND created_at > $2
		ORDER BY created_at, id
	`

	// created_at is a UTC timestamp without time zone; Postgres drops the
	// offset of the bound value, so it has to be sent as UTC already.
	rows, err := r.db.QueryContext(ctx, query, patientID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for patient %d: %w", patientID, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var groups []string
	for rows.Next() {
		var group sql.NullString
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if !group.Valid {
			continue
		}
		if _, dup := seen[group.String]; dup {
			continue
		}
		seen[group.String] = struct{}{}
		groups = append(groups, group.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// ListByGroup returns every record of one session group of the patient.
// Group ids are not guaranteed unique across patients, hence the user_id filter.
func (r *RecordRepository) ListByGroup(ctx context.Context, patientID int64, group string) ([]models.MeasurementRecord, error) {
	query := `
		SELECT
			id,
			"group",
			category_id,
			value,
			created_at,
			is_warning
		FROM medical_records
		WHERE user_id = $1
		  AND "group" = $2
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, group)
	if err != nil {
		return nil, fmt.Errorf("failed to query records of group %s: %w", group, err)
	}
	defer rows.Close()

	var records []models.MeasurementRecord
	for rows.Next() {
		var (
			rec      models.MeasurementRecord
			category int
			value    sql.NullString
			warning  sql.NullBool
		)
		if err := rows.Scan(&rec.ID, &rec.Group, &category, &value, &rec.CreatedAt, &warning); err != nil {
			return nil, fmt.Errorf("failed to scan medical record: %w", err)
		}
		rec.Category = models.Category(category)
		rec.Value = value.String
		rec.Alert = warning.Valid && warning.Bool
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medical records: %w", err)
	}

	r.logger.Debug("Group records loaded",
		zap.Int64("patient_id", patientID),
		zap.String("group", group),
		zap.Int("count", len(records)),
	)
	return records, nil
}
