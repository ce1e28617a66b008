package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	Addr               string
	Environment        string
	StorageDriver      string
	DataFile           string
	BackupDir          string
	DatabaseURL        string
	RunMigrations      bool
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyTTL     time.Duration
	JWTSecret          string
	AdminPasswordHash  string
	TokenTTL           time.Duration
	NationalIDKey      string
	FrontendDir        string
	LogLevel           string
	LogFormat          string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	DefaultDailyRate   decimal.Decimal
	SlashDateOrder     string
	DutyGrouping       string
	VocabularyFile     string
	Holidays           []string
	StrictNameIdentity bool
	BackupSchedule     string
	BackupBeforeImport bool
	PDFFontFile        string
}

// Load reads a .env file when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr:               getEnv("ADDR", ":8080"),
		Environment:        getEnv("APP_ENV", "development"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
		DataFile:           getEnv("DATA_FILE", "data/miluim.json"),
		BackupDir:          getEnv("BACKUP_DIR", "data/backups"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 12*time.Hour),
		NationalIDKey:      getEnv("NATIONAL_ID_KEY", ""),
		FrontendDir:        getEnv("FRONTEND_DIR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 50<<20)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		DefaultDailyRate:   getEnvDecimal("DEFAULT_DAILY_RATE", decimal.NewFromInt(500)),
		SlashDateOrder:     strings.ToLower(getEnv("SLASH_DATE_ORDER", "dmy")),
		DutyGrouping:       strings.ToLower(getEnv("DUTY_GROUPING", "month")),
		VocabularyFile:     getEnv("HEADER_VOCABULARY_FILE", ""),
		Holidays:           getEnvList("HOLIDAYS"),
		StrictNameIdentity: getEnvBool("STRICT_NAME_IDENTITY", false),
		BackupSchedule:     getEnv("BACKUP_SCHEDULE", ""),
		BackupBeforeImport: getEnvBool("BACKUP_BEFORE_IMPORT", true),
		PDFFontFile:        getEnv("PDF_FONT_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageFile:
		if strings.TrimSpace(c.DataFile) == "" {
			return fmt.Errorf("DATA_FILE is required when STORAGE_DRIVER is file")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of file, postgres")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.AdminPasswordHash) == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
		}
	}
	if c.JWTSecret != "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be set when JWT_SECRET is set")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DefaultDailyRate.IsNegative() {
		return fmt.Errorf("DEFAULT_DAILY_RATE must not be negative")
	}
	if c.SlashDateOrder != "dmy" && c.SlashDateOrder != "mdy" {
		return fmt.Errorf("SLASH_DATE_ORDER must be dmy or mdy")
	}
	if c.DutyGrouping != "month" && c.DutyGrouping != "range" {
		return fmt.Errorf("DUTY_GROUPING must be month or range")
	}
	for _, day := range c.Holidays {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return fmt.Errorf("HOLIDAYS entry %q is not a YYYY-MM-DD date", day)
		}
	}
	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			return fmt.Errorf("BACKUP_SCHEDULE is not a valid cron expression: %w", err)
		}
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	return nil
}
