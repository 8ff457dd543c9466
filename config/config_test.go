package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("todocal", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return Parse(fs, args)
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "8080", cfg.Port())
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Sunday, cfg.NewCalendar().WeekStart())
	assert.Equal(t, filepath.Join("data", "tasks.json"), cfg.TasksFile())
	assert.Equal(t, filepath.Join("data", "todocal.db"), cfg.SQLiteFile())
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todocal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
store: file
data_dir: /var/lib/todocal
log_level: debug
auth:
  token_ttl: 2h
calendar:
  timezone: Asia/Tokyo
  week_start: monday
`), 0o644))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE", "sqlite")

	cfg, err := parse(t, "-config", path, "-store", "memory")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr, "file")
	assert.Equal(t, "/var/lib/todocal", cfg.DataDir, "file")
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL, "file")
	assert.Equal(t, "warn", cfg.LogLevel, "env over file")
	assert.Equal(t, StoreMemory, cfg.Store, "flag over env")

	cal := cfg.NewCalendar()
	assert.Equal(t, time.Monday, cal.WeekStart())
	assert.Equal(t, "Asia/Tokyo", cal.Location().String())
}

func TestEnvironment(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DATABASE_URL", "postgres://localhost/todocal")

	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.HTTPAddr)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, StorePostgres, cfg.Store)
}

func TestConfigFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todocal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cors_origin: http://localhost:3000\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.CORSOrigin)

	_, err = parse(t, "-config="+filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown store", []string{"-store", "redis"}},
		{"postgres without url", []string{"-store", "postgres"}},
		{"bad address", []string{"-http.addr", "8080"}},
		{"bad timezone", []string{"-calendar.tz", "Mars/Olympus"}},
		{"bad week start", []string{"-calendar.weekstart", "someday"}},
		{"short block key", []string{"-cookie.blockkey", "short"}},
		{"empty secret", []string{"-jwt.secret", ""}},
		{"default secret in production", []string{"-env", EnvProduction}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			assert.True(t, errors.Is(err, ErrInvalid), "%v", err)
		})
	}

	_, err := parse(t, "-env", EnvProduction, "-jwt.secret", "s3cr3t")
	assert.NoError(t, err)

	_, err = parse(t, "-auth.enabled=false", "-jwt.secret", "")
	assert.NoError(t, err)
}
