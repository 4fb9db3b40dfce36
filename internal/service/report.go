package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/aggregator"
	"lanta-sber-sender/internal/config"
	"lanta-sber-sender/internal/mailer"
	"lanta-sber-sender/internal/models"
	"lanta-sber-sender/internal/repository"
)

// ReportWriter persists report rows and returns the written file ("" when nothing was written)
type ReportWriter interface {
	Write(rows []models.ReportRow, now time.Time) (string, error)
}

// Sender delivers a mail message
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// RunResult summary of one run
type RunResult struct {
	RunID    string
	Patients int
	Rows     int
	File     string
	Sent     bool
}

// ReportService runs the daily report: select patients, reduce their sessions
// into rows, write the spreadsheet and mail it.
type ReportService struct {
	db         *sql.DB
	aggregator *aggregator.Aggregator
	writer     ReportWriter
	sender     Sender
	report     config.ReportConfig
	from       string
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService wires the pipeline
func NewReportService(db *sql.DB, writer ReportWriter, sender Sender, cfg *config.Config, logger *zap.Logger) *ReportService {
	return &ReportService{
		db:         db,
		aggregator: aggregator.New(cfg.Report.Location, logger),
		writer:     writer,
		sender:     sender,
		report:     cfg.Report,
		from:       cfg.SMTP.From,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the pipeline once. An empty report is not an error: nothing is
// written and nothing is sent.
func (s *ReportService) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", result.RunID))
	now := s.now().In(s.report.Location)

	rows, patients, err := s.collect(ctx, now, log)
	if err != nil {
		return result, err
	}
	result.Patients = patients
	result.Rows = len(rows)

	if len(rows) == 0 {
		log.Info("No monitoring sessions in the window, nothing to send", zap.Int("patients", patients))
		return result, nil
	}

	path, err := s.writer.Write(rows, now)
	if err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	result.File = path

	attachment, err := mailer.AttachFile(path)
	if err != nil {
		return result, err
	}
	msg := mailer.Message{
		From:        s.from,
		To:          s.report.Recipients,
		Subject:     s.report.Subject,
		Body:        s.report.Body,
		Attachments: []mailer.Attachment{attachment},
		Date:        now,
		MessageID:   result.RunID + "@lanta-sber-sender",
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return result, fmt.Errorf("failed to send report: %w", err)
	}
	result.Sent = true

	log.Info("Report sent",
		zap.String("file", path),
		zap.Int("patients", patients),
		zap.Int("rows", len(rows)),
		zap.Strings("recipients", s.report.Recipients),
	)
	return result, nil
}

// Preview reads and aggregates the current window without writing or sending anything
func (s *ReportService) Preview(ctx context.Context) ([]models.ReportRow, int, error) {
	log := s.logger.With(zap.String("run_id", uuid.NewString()), zap.Bool("preview", true))
	return s.collect(ctx, s.now().In(s.report.Location), log)
}

// collect reads everything inside one read-only transaction and reduces it to rows
func (s *ReportService) collect(ctx context.Context, now time.Time, log *zap.Logger) ([]models.ReportRow, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	patientRepo := repository.NewPatientRepository(tx, log)
	recordRepo := repository.NewRecordRepository(tx, log)

	patients, err := patientRepo.ListActive(ctx, now, s.report.ScenarioID)
	if err != nil {
		return nil, 0, err
	}

	since := aggregator.Window(now, s.report.Location, s.report.CutoffHour)
	log.Info("Collecting monitoring sessions",
		zap.Int("patients", len(patients)),
		zap.Time("since", since),
	)

	var rows []models.ReportRow
	for _, p := range patients {
		patientRows, err := s.patientRows(ctx, recordRepo, p, since)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, patientRows...)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return rows, len(patients), nil
}

func (s *ReportService) patientRows(ctx context.Context, records *repository.RecordRepository, p models.Patient, since time.Time) ([]models.ReportRow, error) {
	groups, err := records.ListGroups(ctx, p.ID, since)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	sessions := make([]aggregator.Session, 0, len(groups))
	for _, g := range groups {
		recs, err := records.ListByGroup(ctx, p.ID, g)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, aggregator.Session{Group: g, Records: recs})
	}
	return s.aggregator.BuildRows(p, sessions)
}
