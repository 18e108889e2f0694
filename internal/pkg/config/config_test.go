package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SENEC_HOST", "192.168.1.50")
	t.Setenv("WEB_USERNAME", "me@example.com")
	t.Setenv("WEB_PASSWORD", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "192.168.1.50", cfg.SenecCfg.Host)
	assert.True(t, cfg.SenecCfg.Ssl)
	assert.Equal(t, 30*time.Second, cfg.SenecCfg.PollInterval)
	assert.True(t, cfg.SenecCfg.QueryStatistic)
	assert.False(t, cfg.SenecCfg.QueryWallbox)
	assert.Nil(t, cfg.WebCfg.PlantNumber)
	assert.Equal(t, "https://mein-senec.de", cfg.WebCfg.BaseURL)
	assert.True(t, cfg.SenecCfg.Enabled())
	assert.True(t, cfg.WebCfg.Enabled())
	assert.False(t, cfg.InverterCfg.Enabled())
	assert.False(t, cfg.MqttCfg.Enabled())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INVERTER_HOST=10.0.0.7\nWEB_PLANT_NUMBER=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("INVERTER_HOST")
		os.Unsetenv("WEB_PLANT_NUMBER")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", cfg.InverterCfg.Host)
	require.NotNil(t, cfg.WebCfg.PlantNumber)
	assert.Equal(t, 2, *cfg.WebCfg.PlantNumber)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
