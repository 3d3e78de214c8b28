package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/voicealchemy/internal/cost"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/i18n"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VA_TEST_URL", "http://localhost:8080")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"expand ${VAR} pattern", `{"baseUrl": "${VA_TEST_URL}"}`, `{"baseUrl": "http://localhost:8080"}`},
		{"missing env var returns empty", `{"baseUrl": "${VA_NONEXISTENT}"}`, `{"baseUrl": ""}`},
		{"no variables to expand", `{"baseUrl": "literal"}`, `{"baseUrl": "literal"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("VA_TEST_URL", "http://localhost:9999/v1")
	path := writeConfig(t, `{
		"baseUrl": "${VA_TEST_URL}",
		"timeout": "15s",
		"models": {"extended": "eleven_v3_alpha"},
		"pricing": {"creditsPerMinute": 500},
		"compressionLevel": 0,
		"language": "de"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/v1", cfg.BaseURL)
	assert.Equal(t, Duration(15*time.Second), cfg.Timeout)
	assert.Equal(t, "eleven_v3_alpha", cfg.Models.Extended)
	assert.Equal(t, elevenlabs.DefaultModels.TextToSpeech, cfg.Models.TextToSpeech)
	assert.Equal(t, 500.0, cfg.Pricing.CreditsPerMinute)
	assert.Equal(t, cost.DefaultPricing.CreditsPerCharacter, cfg.Pricing.CreditsPerCharacter)
	assert.Equal(t, 0, cfg.CompressionLevel, "explicit 0 disables compression")
	assert.Equal(t, 10, cfg.MaxUploadMB)
	assert.Equal(t, i18n.German, cfg.InitialLanguage())
	assert.Empty(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"outputFormat": "mp3_22050_32", "maxConcurrency": 2}`)
	t.Setenv("VOICEALCHEMY_MAX_CONCURRENCY", "4")
	t.Setenv("VOICEALCHEMY_TIMEOUT", "2m")
	t.Setenv("VOICEALCHEMY_MODEL_SOUND_EFFECTS", "sfx_test")
	t.Setenv("VOICEALCHEMY_PRICE_CREDITS_PER_CHARACTER", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mp3_22050_32", cfg.OutputFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, Duration(2*time.Minute), cfg.Timeout)
	assert.Equal(t, "sfx_test", cfg.Models.SoundEffects)
	assert.Equal(t, 0.5, cfg.Pricing.CreditsPerCharacter)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, `{not json`))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, `{"timeout": "soon"}`))
	assert.Error(t, err)

	t.Setenv("VOICEALCHEMY_MAX_UPLOAD_MB", "lots")
	_, err = Load(writeConfig(t, `{}`))
	assert.ErrorContains(t, err, "environment overrides")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"upload limit", func(c *Config) { c.MaxUploadMB = 0 }, "maxUploadMb"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "requestsPerSecond"},
		{"concurrency", func(c *Config) { c.MaxConcurrency = 9 }, "maxConcurrency"},
		{"compression", func(c *Config) { c.CompressionLevel = 23 }, "compressionLevel"},
		{"language", func(c *Config) { c.Language = "fr" }, "language"},
		{"pricing", func(c *Config) { c.Pricing.CreditsPerMinute = -5 }, "pricing.creditsPerMinute"},
		{"relative data dir", func(c *Config) { c.DataDir = "data" }, "dataDir"},
	}

	assert.Empty(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir

	got, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestExample(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(Example()), &cfg))
	assert.Equal(t, elevenlabs.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, Duration(elevenlabs.DefaultTimeout), cfg.Timeout)
	assert.Empty(t, cfg.Validate())
	assert.NotContains(t, Example(), "apiKey")
}
