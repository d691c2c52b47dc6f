package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GENERATION_PROVIDER", "gemini")
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 3, cfg.Generation.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Generation.InitialBackoff)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
database:
  driver: memory
jwt:
  secret: from-file
generation:
  provider: openai
  model: gpt-4o
  max_attempts: 5
  attempt_timeout: 10s
knowledge:
  file: /etc/conditions.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "gpt-4o", cfg.Generation.Model)
	assert.Equal(t, 5, cfg.Generation.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Generation.AttemptTimeout)
	assert.Equal(t, "/etc/conditions.yaml", cfg.Knowledge.File)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database:   DatabaseConfig{Driver: "mongo"},
		Generation: GenerationConfig{Provider: "openai", MaxAttempts: 1},
		JWT:        JWTConfig{Secret: "s"},
	}
	require.NoError(t, valid.Validate())

	broken := valid
	broken.Database.Driver = "postgres"
	assert.Error(t, broken.Validate())

	broken = valid
	broken.Generation.Provider = "local"
	assert.Error(t, broken.Validate())

	broken = valid
	broken.JWT.Secret = ""
	assert.Error(t, broken.Validate())

	broken = valid
	broken.Generation.MaxAttempts = 0
	assert.Error(t, broken.Validate())
}
