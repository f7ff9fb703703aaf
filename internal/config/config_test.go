package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
		{"returns empty string env over default", "TEST_KEY_EMPTY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "TEST_INT_UNSET", 100, "", 100},
		{"parses valid int", "TEST_INT_VALID", 100, "42", 42},
		{"returns default on invalid int", "TEST_INT_INVALID", 100, "not-a-number", 100},
		{"parses negative int", "TEST_INT_NEG", 100, "-5", -5},
		{"parses zero", "TEST_INT_ZERO", 100, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{"returns default when not set", "TEST_BOOL_UNSET", true, "", true},
		{"parses true", "TEST_BOOL_TRUE", false, "true", true},
		{"parses false", "TEST_BOOL_FALSE", true, "false", false},
		{"parses 1 as true", "TEST_BOOL_ONE", false, "1", true},
		{"parses 0 as false", "TEST_BOOL_ZERO", true, "0", false},
		{"returns default on invalid bool", "TEST_BOOL_INVALID", true, "yes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Set DEBUG to true to avoid production validation
	os.Setenv("DEBUG", "true")
	defer os.Unsetenv("DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("Debug should be true when DEBUG=true")
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Errorf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, DriverSQLite)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York", cfg.Timezone)
	}
	if cfg.CutoffHour != 5 {
		t.Errorf("CutoffHour = %d, want 5", cfg.CutoffHour)
	}
	if cfg.AutoVerifySeconds != 3600 {
		t.Errorf("AutoVerifySeconds = %d, want 3600", cfg.AutoVerifySeconds)
	}
	if cfg.LeaderboardCacheTTL != 30 {
		t.Errorf("LeaderboardCacheTTL = %d, want 30", cfg.LeaderboardCacheTTL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envVars := map[string]string{
		"DEBUG":               "true",
		"PORT":                "9000",
		"DATABASE_DRIVER":     "postgres",
		"DATABASE_URL":        "postgres://u:p@db:5432/stint",
		"APP_TIMEZONE":        "Europe/Berlin",
		"CUTOFF_HOUR":         "4",
		"AUTO_VERIFY_SECONDS": "1800",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Errorf("DatabaseDriver = %q, want postgres", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/stint" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q, want Europe/Berlin", cfg.Timezone)
	}
	if cfg.CutoffHour != 4 {
		t.Errorf("CutoffHour = %d, want 4", cfg.CutoffHour)
	}
	if cfg.AutoVerifySeconds != 1800 {
		t.Errorf("AutoVerifySeconds = %d, want 1800", cfg.AutoVerifySeconds)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	os.Setenv("DEBUG", "true")
	os.Setenv("DATABASE_DRIVER", "mysql")
	defer os.Unsetenv("DEBUG")
	defer os.Unsetenv("DATABASE_DRIVER")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject unknown DATABASE_DRIVER")
	}
}

func TestLoad_InvalidCutoffHour(t *testing.T) {
	os.Setenv("DEBUG", "true")
	os.Setenv("CUTOFF_HOUR", "24")
	defer os.Unsetenv("DEBUG")
	defer os.Unsetenv("CUTOFF_HOUR")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject CUTOFF_HOUR out of range")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	os.Setenv("DEBUG", "true")
	os.Setenv("APP_TIMEZONE", "Not/AZone")
	defer os.Unsetenv("DEBUG")
	defer os.Unsetenv("APP_TIMEZONE")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject an unknown timezone")
	}
}

func TestLoad_ProductionValidation(t *testing.T) {
	// Clear DEBUG to simulate production
	os.Unsetenv("DEBUG")
	os.Unsetenv("CRON_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() should error in production without CRON_SECRET")
	}
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	os.Unsetenv("DEBUG")
	os.Setenv("CRON_SECRET", "a-real-production-secret")
	defer os.Unsetenv("CRON_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CronSecret != "a-real-production-secret" {
		t.Errorf("CronSecret = %q, want production secret", cfg.CronSecret)
	}
}
