package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "DATABASE_URL=postgres://localhost:5432/prestamos?sslmode=disable\n" +
		"SERVER_PORT=9090\n"
	require.NoError(t, os.WriteFile(dir+"/.env", []byte(env), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/prestamos?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())

	// untouched keys keep their defaults
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 3, cfg.Scheduler.ReminderDaysAhead)
	assert.True(t, cfg.Business.EmailOnLoanCreated)
	assert.True(t, cfg.IsDevelopment())
}
