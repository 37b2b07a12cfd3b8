package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 7, cfg.Invitation.ExpiryDays)
	assert.Equal(t, 24*time.Hour, cfg.Invitation.SweepInterval)
	assert.Equal(t, "noop", cfg.Email.Provider)
	assert.Equal(t, 10*time.Second, cfg.Email.Timeout)
	assert.Equal(t, int64(10*1024*1024), cfg.Storage.MaxFileSize)
	assert.Empty(t, cfg.Redis.Address)
	assert.Equal(t, 48*time.Hour, cfg.Auth.VerificationTTL)
	assert.Equal(t, "http://localhost:3000", cfg.Auth.VerifyBaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLUSTERHUB_INVITATION_EXPIRY_DAYS", "3")
	t.Setenv("CLUSTERHUB_JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Invitation.ExpiryDays)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Invitation: InvitationConfig{ExpiryDays: 7, SweepInterval: time.Hour},
			Email:      EmailConfig{Provider: "noop"},
		}
	}

	t.Run("accepts valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects non-positive expiry", func(t *testing.T) {
		cfg := valid()
		cfg.Invitation.ExpiryDays = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown email provider", func(t *testing.T) {
		cfg := valid()
		cfg.Email.Provider = "carrier-pigeon"
		assert.Error(t, cfg.Validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "clusterhub", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=clusterhub sslmode=disable", cfg.DSN())
}
