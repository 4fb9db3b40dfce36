//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/config"
	"lanta-sber-sender/internal/database"
	"lanta-sber-sender/internal/models"
)

const testSchema = `
CREATE TABLE users (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT,
	birthday DATE
);
CREATE TABLE patient_clinics (
	id     BIGSERIAL PRIMARY KEY,
	"user" BIGINT NOT NULL REFERENCES users(id)
);
CREATE TABLE contracts (
	id          BIGSERIAL PRIMARY KEY,
	patient     BIGINT NOT NULL REFERENCES patient_clinics(id),
	scenario_id INT NOT NULL,
	"startDate" TIMESTAMP,
	"endDate"   TIMESTAMP NOT NULL
);
CREATE TABLE medical_records (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id),
	"group"     TEXT,
	category_id INT NOT NULL,
	value       TEXT,
	created_at  TIMESTAMP NOT NULL,
	is_warning  BOOLEAN
);
`

const testData = `
INSERT INTO users (id, name, birthday) VALUES
	(1, 'Иванов Иван Иванович', '1960-05-17'),
	(2, 'Петрова Анна', NULL),
	(3, 'Сидоров Петр', '1971-01-02');
INSERT INTO patient_clinics (id, "user") VALUES (10, 1), (20, 2), (30, 3);
INSERT INTO contracts (patient, scenario_id, "startDate", "endDate") VALUES
	(10, 49, '2020-03-30 23:15:00', '2020-04-10 00:00:00'),
	(20, 49, '2020-03-20 10:00:00', '2020-04-02 00:00:00'),
	(30, 50, '2020-03-25 10:00:00', '2020-04-10 00:00:00');
INSERT INTO medical_records (id, user_id, "group", category_id, value, created_at, is_warning) VALUES
	(100, 1, 'g-0', 25, '36.9', '2020-04-01 11:00:00', false),
	(101, 1, 'g-1', 25, '36.6', '2020-04-01 12:30:00', false),
	(102, 1, 'g-1', 22, '97', '2020-04-01 12:30:00', true),
	(103, 1, 'g-2', 1, '78', '2020-04-01 13:00:00', NULL),
	(104, 1, NULL, 44, '18', '2020-04-01 13:30:00', false),
	(200, 2, 'g-1', 1, '90', '2020-04-01 12:30:00', false);
`

// startPostgres runs a disposable Postgres with the medical schema loaded
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "medsenger",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Skipping integration test: cannot start postgres container: %v", err)
		return nil
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.NewPostgresDB(ctx, &config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "postgres",
		Password: "postgres",
		Database: "medsenger",
		SSLMode:  "disable",
		MaxConns: 1,
	}, nil)
	require.NoError(t, err, fmt.Sprintf("connect to %s:%s", host, port.Port()))
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, testSchema)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, testData)
	require.NoError(t, err)
	return db
}

func TestPostgres_ReportQueries(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer tx.Rollback()

	patients := NewPatientRepository(tx, zap.NewNop())
	records := NewRecordRepository(tx, zap.NewNop())

	t.Run("active patients of the scenario", func(t *testing.T) {
		today := time.Date(2020, 4, 2, 16, 0, 0, 0, time.FixedZone("UTC+9", 9*60*60))

		list, err := patients.ListActive(ctx, today, 49)
		require.NoError(t, err)

		// contract 20 ends on the report day, contract 30 is another scenario
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].ID)
		assert.Equal(t, "Иванов Иван Иванович", list[0].Name)
		assert.Equal(t, "1960-05-17", list[0].Birthday.Format("2006-01-02"))
		assert.Equal(t, "2020-03-30 23:15:00", list[0].MonitoringStart.Format("2006-01-02 15:04:05"))
	})

	t.Run("groups inside the window", func(t *testing.T) {
		// 21:00 in UTC+9; bound in a non-UTC zone to check the value is normalized
		since := time.Date(2020, 4, 1, 21, 0, 0, 0, time.FixedZone("UTC+9", 9*60*60))

		groups, err := records.ListGroups(ctx, 1, since)
		require.NoError(t, err)
		assert.Equal(t, []string{"g-1", "g-2"}, groups)
	})

	t.Run("records of a group stay with their patient", func(t *testing.T) {
		recs, err := records.ListByGroup(ctx, 1, "g-1")
		require.NoError(t, err)
		require.Len(t, recs, 2)

		assert.Equal(t, int64(101), recs[0].ID)
		assert.Equal(t, models.CategoryTemperature, recs[0].Category)
		assert.Equal(t, "36.6", recs[0].Value)
		assert.False(t, recs[0].Alert)

		assert.Equal(t, int64(102), recs[1].ID)
		assert.Equal(t, models.CategorySaturation, recs[1].Category)
		assert.True(t, recs[1].Alert)
		assert.Equal(t, "2020-04-01 12:30:00", recs[1].CreatedAt.Format("2006-01-02 15:04:05"))
	})

	t.Run("null warning flag reads as no alert", func(t *testing.T) {
		recs, err := records.ListByGroup(ctx, 1, "g-2")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.False(t, recs[0].Alert)
	})
}
