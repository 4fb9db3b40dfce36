package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/config"
	"lanta-sber-sender/internal/database"
	"lanta-sber-sender/internal/logger"
	"lanta-sber-sender/internal/mailer"
	"lanta-sber-sender/internal/metrics"
	"lanta-sber-sender/internal/report"
	"lanta-sber-sender/internal/service"
	"lanta-sber-sender/internal/tunnel"
)

const serviceName = "lanta-sber-sender"

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runMetrics := metrics.New(cfg.Metrics, log)
	started := time.Now()

	result, runErr := run(ctx, cfg, log)

	runMetrics.Observe(result.Patients, result.Rows, time.Since(started), time.Now(), runErr)
	if err := runMetrics.Push(ctx); err != nil {
		log.Warn("Failed to push run metrics", zap.Error(err))
	}

	if runErr != nil {
		log.Fatal("Report run failed", zap.String("run_id", result.RunID), zap.Error(runErr))
	}
	log.Info("Report run finished",
		zap.String("run_id", result.RunID),
		zap.Int("patients", result.Patients),
		zap.Int("rows", result.Rows),
		zap.Bool("sent", result.Sent),
		zap.Duration("duration", time.Since(started)),
	)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.RunResult, error) {
	var dialer pq.Dialer
	if cfg.SSH.Enabled {
		t, err := tunnel.Open(&cfg.SSH, log)
		if err != nil {
			return service.RunResult{}, err
		}
		defer t.Close()
		dialer = t
	}

	target := cfg.DatabaseTarget()
	db, err := database.NewPostgresDB(ctx, &target, dialer)
	if err != nil {
		return service.RunResult{}, err
	}
	defer func(db *sql.DB) {
		if err := database.Close(db); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}(db)

	log.Info("Connected to database",
		zap.String("host", target.Host),
		zap.Int("port", target.Port),
		zap.String("database", target.Database),
		zap.Bool("ssh_tunnel", cfg.SSH.Enabled),
	)

	writer := report.NewWriter(cfg.Report.Dir, cfg.Report.Subject, log)
	sender := mailer.NewSMTPSender(cfg.SMTP, log)
	svc := service.NewReportService(db, writer, sender, cfg, log)
	return svc.Run(ctx)
}
