package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/aggregator"
	"lanta-sber-sender/internal/config"
	"lanta-sber-sender/internal/database"
	"lanta-sber-sender/internal/models"
	"lanta-sber-sender/internal/service"
	"lanta-sber-sender/internal/tunnel"
)

// check-window prints what the next report would contain, without writing or mailing it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	logger := zap.NewNop()

	var dialer pq.Dialer
	if cfg.SSH.Enabled {
		t, err := tunnel.Open(&cfg.SSH, logger)
		if err != nil {
			log.Fatalf("Failed to open ssh tunnel: %v", err)
		}
		defer t.Close()
		dialer = t
	}

	target := cfg.DatabaseTarget()
	db, err := database.NewPostgresDB(ctx, &target, dialer)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	svc := service.NewReportService(db, nil, nil, cfg, logger)
	rows, patients, err := svc.Preview(ctx)
	if err != nil {
		log.Fatalf("Failed to collect report rows: %v", err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Scenario %d, timezone %s, window opens %s\n",
		cfg.Report.ScenarioID, cfg.Report.TimezoneName, windowStart(cfg))
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("%-40s %-20s %-8s %-12s %-8s %-8s\n",
		models.ColumnName, models.ColumnFillTime, models.ColumnAlert,
		models.ColumnTemperature, models.ColumnSaturation, models.ColumnPulse)
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range rows {
		fmt.Printf("%-40s %-20s %-8s %-12s %-8s %-8s\n",
			cell(r, models.ColumnName), cell(r, models.ColumnFillTime), cell(r, models.ColumnAlert),
			cell(r, models.ColumnTemperature), cell(r, models.ColumnSaturation), cell(r, models.ColumnPulse))
	}

	if len(rows) == 0 {
		fmt.Printf("\nNo sessions in the window (%d active patients), the report would not be sent\n", patients)
		return
	}
	fmt.Printf("\n%d rows from %d active patients\n", len(rows), patients)
}

func windowStart(cfg *config.Config) string {
	now := time.Now().In(cfg.Report.Location)
	return aggregator.Window(now, cfg.Report.Location, cfg.Report.CutoffHour).Format(aggregator.DateTimeLayout)
}

func cell(r models.ReportRow, column string) string {
	v := models.CellText(r.Get(column))
	if v == "" {
		return "-"
	}
	return v
}
