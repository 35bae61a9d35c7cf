package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "AUDIT_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "AUDIT_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "AUDIT_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AUDIT_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "AUDIT_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "returns fallback for empty string", key: "AUDIT_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "AUDIT_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "AUDIT_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback float64
		want     float64
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AUDIT_TEST_FLT_UNSET", setVal: nil, fallback: 50, want: 50},
		{name: "parses float", key: "AUDIT_TEST_FLT_VALID", setVal: strPtr("12.5"), fallback: 0, want: 12.5},
		{name: "parses int as float", key: "AUDIT_TEST_FLT_INT", setVal: strPtr("100"), fallback: 0, want: 100},
		{name: "errors on non-numeric", key: "AUDIT_TEST_FLT_NAN", setVal: strPtr("fast"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvFloat(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "AUDIT_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses minutes", key: "AUDIT_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses composite", key: "AUDIT_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "errors on invalid", key: "AUDIT_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "AUDIT_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

func TestLoad_MissingAnchorKey(t *testing.T) {
	// All defaults apply; anchor key is empty => must fail.
	t.Setenv("AUDIT_CHAIN_ANCHOR_KEY", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "AUDIT_CHAIN_ANCHOR_KEY")
}

func TestLoad_ShortAnchorKey(t *testing.T) {
	t.Setenv("AUDIT_CHAIN_ANCHOR_KEY", "too-short")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "AUDIT_CHAIN_ANCHOR_KEY")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{name: "DB_PORT not a number", envKey: "AUDIT_DB_PORT", envVal: "abc"},
		{name: "DB_PORT zero", envKey: "AUDIT_DB_PORT", envVal: "0"},
		{name: "DB_PORT too high", envKey: "AUDIT_DB_PORT", envVal: "65536"},
		{name: "DB_MAX_CONNS zero", envKey: "AUDIT_DB_MAX_CONNS", envVal: "0"},
		{name: "REDIS_DB not a number", envKey: "AUDIT_REDIS_DB", envVal: "abc"},
		{name: "SERVER_READ_TIMEOUT invalid", envKey: "AUDIT_SERVER_READ_TIMEOUT", envVal: "notduration"},
		{name: "SERVER_WRITE_TIMEOUT zero", envKey: "AUDIT_SERVER_WRITE_TIMEOUT", envVal: "0s"},
		{name: "RATE_PER_SECOND zero", envKey: "AUDIT_SERVER_RATE_PER_SECOND", envVal: "0"},
		{name: "RATE_BURST zero", envKey: "AUDIT_SERVER_RATE_BURST", envVal: "0"},
		{name: "ANCHOR_INTERVAL zero", envKey: "AUDIT_CHAIN_ANCHOR_INTERVAL", envVal: "0s"},
		{name: "VERIFY_INTERVAL invalid", envKey: "AUDIT_CHAIN_VERIFY_INTERVAL", envVal: "often"},
		{name: "VERIFY_WINDOW_HOURS zero", envKey: "AUDIT_CHAIN_VERIFY_WINDOW_HOURS", envVal: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Always set the anchor key so failures are from the var under test.
			t.Setenv("AUDIT_CHAIN_ANCHOR_KEY", "test-anchor-key-at-least-32-chars!!")
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.envKey)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() happy path
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUDIT_CHAIN_ANCHOR_KEY", "test-anchor-key-at-least-32-chars!!")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.InDelta(t, 100.0, cfg.Server.RatePerSecond, 1e-9)
	assert.Equal(t, 200, cfg.Server.RateBurst)
	assert.Equal(t, time.Hour, cfg.Chain.AnchorInterval)
	assert.Equal(t, 6*time.Hour, cfg.Chain.VerifyInterval)
	assert.Equal(t, 24, cfg.Chain.VerifyWindowHrs)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUDIT_CHAIN_ANCHOR_KEY", "test-anchor-key-at-least-32-chars!!")
	t.Setenv("AUDIT_DB_HOST", "db.internal")
	t.Setenv("AUDIT_DB_PORT", "5433")
	t.Setenv("AUDIT_SERVER_ADDR", ":9090")
	t.Setenv("AUDIT_CHAIN_VERIFY_WINDOW_HOURS", "48")
	t.Setenv("AUDIT_CORS_ORIGINS", "https://admin.example.gov, https://reports.example.gov")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 48, cfg.Chain.VerifyWindowHrs)
	assert.Equal(t, []string{"https://admin.example.gov", "https://reports.example.gov"}, cfg.Server.CORSOrigins)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "audittrail",
		Password: "secret", DBName: "audittrail_dev", SSLMode: "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=audittrail password=secret dbname=audittrail_dev sslmode=disable",
		db.DSN(),
	)
}

func strPtr(s string) *string { return &s }
