// Package config loads voicealchemy settings.
//
// Settings are layered: built-in defaults, then the JSON config file, then
// VOICEALCHEMY_* environment variables. The ElevenLabs API key is never part
// of the configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/cost"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/i18n"
)

const (
	// AppName names the per-user config and data directories
	AppName = "voicealchemy"
	// FileName is the config file inside the config directory
	FileName = "config.json"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "VOICEALCHEMY_"
	// DefaultCompressionLevel is the zstd level used for stored audio
	DefaultCompressionLevel = 3
)

// Duration is a time.Duration written as "60s" in JSON and the environment
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds every tunable setting
type Config struct {
	BaseURL      string   `json:"baseUrl,omitempty" env:"BASE_URL"`
	Timeout      Duration `json:"timeout,omitempty" env:"TIMEOUT"`
	OutputFormat string   `json:"outputFormat,omitempty" env:"OUTPUT_FORMAT"`

	Models  elevenlabs.Models `json:"models" envPrefix:"MODEL_"`
	Pricing cost.Pricing      `json:"pricing" envPrefix:"PRICE_"`

	// MaxUploadMB limits speech-to-speech and isolation uploads
	MaxUploadMB int `json:"maxUploadMb,omitempty" env:"MAX_UPLOAD_MB"`
	// RequestsPerSecond paces API calls; 0 disables pacing
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" env:"REQUESTS_PER_SECOND"`
	// MaxConcurrency bounds parallel sound effect variations; 0 is unbounded
	MaxConcurrency int `json:"maxConcurrency,omitempty" env:"MAX_CONCURRENCY"`

	// DataDir holds persisted form state and history
	DataDir string `json:"dataDir,omitempty" env:"DATA_DIR"`
	// CompressionLevel is the zstd level for stored values; 0 disables compression
	CompressionLevel int `json:"compressionLevel" env:"COMPRESSION_LEVEL"`

	// Language is the initial UI language when none has been saved
	Language string `json:"language,omitempty" env:"LANGUAGE"`
	// Player forces a specific audio player command
	Player string `json:"player,omitempty" env:"PLAYER"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		BaseURL:          elevenlabs.DefaultBaseURL,
		Timeout:          Duration(elevenlabs.DefaultTimeout),
		OutputFormat:     elevenlabs.DefaultOutputFormat,
		Models:           elevenlabs.DefaultModels,
		Pricing:          cost.DefaultPricing,
		MaxUploadMB:      elevenlabs.DefaultMaxUploadBytes >> 20,
		CompressionLevel: DefaultCompressionLevel,
	}
}

// Scope returns the per-user directory scope
func Scope() *gap.Scope {
	return gap.NewScope(gap.User, AppName)
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	path, err := Scope().ConfigPath(FileName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return path, nil
}

// Load reads the config file at path, or the default location when path is
// empty, and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
		log.Debug().Str("path", path).Msg("No config file found, using defaults")
	} else {
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.Models = cfg.Models.WithDefaults()
	cfg.Pricing = cfg.Pricing.WithDefaults()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := expandEnvVars(string(data))
	if err := json.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	checkFilePermissions(path)
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		log.Debug().Str("var", name).Msg("Referenced environment variable not set in config")
		return ""
	})
}

// checkFilePermissions warns when others can rewrite the file. The config
// decides where the API key is sent, so it must not be writable by others.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	mode := info.Mode().Perm()
	if mode&0022 != 0 {
		log.Warn().
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Config file is writable by other users. Consider: chmod 600")
	}
}

// ResolveDataDir returns DataDir or the per-user data directory
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dirs, err := Scope().DataDirs()
	if err != nil || len(dirs) == 0 {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return dirs[0], nil
}

// InitialLanguage is the configured language, or one matched from the locale
func (c *Config) InitialLanguage() i18n.Language {
	if lang, err := i18n.Parse(c.Language); err == nil {
		return lang
	}
	return i18n.FromEnvironment()
}

// ClientOptions translates the settings into client options
func (c *Config) ClientOptions() []elevenlabs.Option {
	return []elevenlabs.Option{
		elevenlabs.WithBaseURL(c.BaseURL),
		elevenlabs.WithTimeout(time.Duration(c.Timeout)),
		elevenlabs.WithModels(c.Models),
		elevenlabs.WithOutputFormat(c.OutputFormat),
		elevenlabs.WithMaxUploadBytes(int64(c.MaxUploadMB) << 20),
		elevenlabs.WithRateLimit(c.RequestsPerSecond, 1),
		elevenlabs.WithMaxConcurrency(c.MaxConcurrency),
	}
}

// Validate reports every problem with the settings
func (c *Config) Validate() []string {
	var errs []string

	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, "maxUploadMb must be at least 1")
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, "requestsPerSecond must not be negative")
	}
	if c.MaxConcurrency < 0 || c.MaxConcurrency > elevenlabs.MaxVariations {
		errs = append(errs, fmt.Sprintf("maxConcurrency must be between 0 and %d", elevenlabs.MaxVariations))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		errs = append(errs, "compressionLevel must be between 0 and 22")
	}
	if c.Language != "" {
		if _, err := i18n.Parse(c.Language); err != nil {
			errs = append(errs, fmt.Sprintf("language: %v", err))
		}
	}

	for _, rate := range []struct {
		name  string
		value float64
	}{
		{"pricing.creditsPerCharacter", c.Pricing.CreditsPerCharacter},
		{"pricing.creditsPerMinute", c.Pricing.CreditsPerMinute},
		{"pricing.soundEffectAutoCredits", c.Pricing.SoundEffectAutoCredits},
		{"pricing.soundEffectCreditsPerSecond", c.Pricing.SoundEffectCreditsPerSecond},
	} {
		if rate.value < 0 {
			errs = append(errs, rate.name+" must not be negative")
		}
	}

	if c.DataDir != "" && !filepath.IsAbs(c.DataDir) {
		errs = append(errs, "dataDir must be an absolute path")
	}

	return errs
}

// Example returns a sample config file
func Example() string {
	cfg := Default()
	cfg.Language = string(i18n.English)
	cfg.RequestsPerSecond = 2
	cfg.MaxConcurrency = 4

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
