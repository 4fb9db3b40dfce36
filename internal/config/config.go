package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display timezone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

// DatabaseConfig Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds a lib/pq keyword/value connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// SSHConfig jump host used to reach the database
type SSHConfig struct {
	Enabled    bool
	Host       string
	Port       int
	User       string
	Password   string
	KnownHosts string // known_hosts file; empty disables host key checking
	RemoteHost string // database host as seen from the jump host
	RemotePort int
}

// Addr jump host address
func (c *SSHConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPConfig mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

// Addr relay address
func (c *SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReportConfig report generation and distribution settings
type ReportConfig struct {
	Recipients []string
	Subject    string
	Body       string
	Dir        string

	// Timezone used for every date shown in the report and for the
	// monitoring window boundary.
	TimezoneName string
	Location     *time.Location

	// Records created after CutoffHour:00 of the previous day belong to the report.
	CutoffHour int
	ScenarioID int
}

// MetricsConfig optional Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Config report sender configuration
type Config struct {
	Database DatabaseConfig
	SSH      SSHConfig
	SMTP     SMTPConfig
	Report   ReportConfig
	Metrics  MetricsConfig

	Log struct {
		Level  string
		Format string
	}
}

// Load reads .env (if present) and the environment, applies defaults and validates
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "medsenger")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	// one connection is enough: the run is a single read-only transaction
	cfg.Database.MaxConns = 1
	cfg.Database.MaxIdle = 1

	cfg.SSH.Enabled = getEnv("SSH_ENABLED", "false") == "true"
	cfg.SSH.Host = getEnv("SSH_HOST", "")
	cfg.SSH.Port = parseInt(getEnv("SSH_PORT", "22"), 22)
	cfg.SSH.User = getEnv("SSH_USER", "")
	cfg.SSH.Password = getEnv("SSH_PASSWORD", "")
	cfg.SSH.KnownHosts = getEnv("SSH_KNOWN_HOSTS", "")
	cfg.SSH.RemoteHost = getEnv("SSH_REMOTE_HOST", "localhost")
	cfg.SSH.RemotePort = parseInt(getEnv("SSH_REMOTE_PORT", "5432"), 5432)

	cfg.SMTP.Host = getEnv("SMTP_HOST", "")
	cfg.SMTP.Port = parseInt(getEnv("SMTP_PORT", "587"), 587)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.Username)
	cfg.SMTP.StartTLS = getEnv("SMTP_STARTTLS", "true") == "true"

	cfg.Report.Recipients = splitList(getEnv("REPORT_RECIPIENTS", ""))
	cfg.Report.Subject = getEnv("REPORT_SUBJECT", "Ланта: отчет дистанционного мониторинга COVID-19")
	cfg.Report.Body = getEnv("REPORT_BODY", "Отчет во вложении.")
	cfg.Report.Dir = getEnv("REPORT_DIR", "./reports")
	cfg.Report.TimezoneName = getEnv("REPORT_TIMEZONE", "Asia/Vladivostok")
	cfg.Report.CutoffHour = parseInt(getEnv("REPORT_CUTOFF_HOUR", "21"), 21)
	cfg.Report.ScenarioID = parseInt(getEnv("REPORT_SCENARIO_ID", "49"), 49)

	cfg.Metrics.PushgatewayURL = getEnv("METRICS_PUSHGATEWAY_URL", "")
	cfg.Metrics.Job = getEnv("METRICS_JOB", "lanta-sber-sender")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	loc, err := time.LoadLocation(cfg.Report.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", cfg.Report.TimezoneName, err)
	}
	cfg.Report.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseTarget returns the database settings as the driver should dial them.
// Through an SSH tunnel the database is addressed from the jump host's side.
func (c *Config) DatabaseTarget() DatabaseConfig {
	db := c.Database
	if c.SSH.Enabled {
		db.Host = c.SSH.RemoteHost
		db.Port = c.SSH.RemotePort
	}
	return db
}

func (c *Config) validate() error {
	var missing []string
	if c.SMTP.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.SMTP.From == "" {
		missing = append(missing, "SMTP_FROM")
	}
	if len(c.Report.Recipients) == 0 {
		missing = append(missing, "REPORT_RECIPIENTS")
	}
	if c.SSH.Enabled {
		if c.SSH.Host == "" {
			missing = append(missing, "SSH_HOST")
		}
		if c.SSH.User == "" {
			missing = append(missing, "SSH_USER")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configurations: %v", missing)
	}
	if c.Report.CutoffHour < 0 || c.Report.CutoffHour > 23 {
		return fmt.Errorf("REPORT_CUTOFF_HOUR must be within 0..23, got %d", c.Report.CutoffHour)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
