package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StorageDriver:      StorageFile,
		DataFile:           "data/miluim.json",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		DefaultDailyRate:   decimal.NewFromInt(500),
		SlashDateOrder:     "dmy",
		DutyGrouping:       "month",
		IdempotencyTTL:     1,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: "STORAGE_DRIVER"},
		{name: "postgres without url", mutate: func(c *Config) { c.StorageDriver = StoragePostgres }, wantErr: "DATABASE_URL"},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "JWT_SECRET"},
		{name: "secret without hash", mutate: func(c *Config) { c.JWTSecret = "s3cret" }, wantErr: "ADMIN_PASSWORD_HASH"},
		{name: "bad slash order", mutate: func(c *Config) { c.SlashDateOrder = "ymd" }, wantErr: "SLASH_DATE_ORDER"},
		{name: "bad grouping", mutate: func(c *Config) { c.DutyGrouping = "week" }, wantErr: "DUTY_GROUPING"},
		{name: "negative rate", mutate: func(c *Config) { c.DefaultDailyRate = decimal.NewFromInt(-1) }, wantErr: "DEFAULT_DAILY_RATE"},
		{name: "bad holiday", mutate: func(c *Config) { c.Holidays = []string{"13.04.2025"} }, wantErr: "HOLIDAYS"},
		{name: "bad cron", mutate: func(c *Config) { c.BackupSchedule = "every day" }, wantErr: "BACKUP_SCHEDULE"},
		{name: "valid cron", mutate: func(c *Config) { c.BackupSchedule = "0 3 * * *" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DEFAULT_DAILY_RATE", "650.5")
	t.Setenv("HOLIDAYS", "2025-04-13, 2025-04-14,")
	t.Setenv("DUTY_GROUPING", "range")
	t.Setenv("MAX_BODY_BYTES", "not-a-number")

	cfg := Load()
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.True(t, cfg.DefaultDailyRate.Equal(decimal.RequireFromString("650.5")))
	assert.Equal(t, []string{"2025-04-13", "2025-04-14"}, cfg.Holidays)
	assert.Equal(t, "range", cfg.DutyGrouping)
	assert.Equal(t, int64(50<<20), cfg.MaxBodyBytes)
}
