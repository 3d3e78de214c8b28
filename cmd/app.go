package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/voicealchemy/internal/config"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/media"
	"github.com/daikw/voicealchemy/internal/storage"
	"github.com/daikw/voicealchemy/internal/studio"
)

const apiKeyEnv = "ELEVENLABS_API_KEY"

// session holds everything a command needs
type session struct {
	cfg     *config.Config
	backend *storage.FileBackend
	store   *storage.Store
	history *history.Store
	studio  *studio.Studio
	console *console
}

// openSession loads the config and opens the data directory. When keyed is
// set the command talks to the service and refuses to start without a key.
// opts are applied after the console defaults.
func openSession(c *cli.Command, keyed bool, opts ...studio.Option) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	for _, problem := range cfg.Validate() {
		log.Warn().Str("problem", problem).Msg("Invalid configuration")
	}

	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	backend, err := storage.NewFileBackend(dir, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dir", backend.Dir()).Msg("Opened data directory")

	store := storage.NewStore(backend)
	hist := history.New(store)
	out := newConsole(os.Stderr)

	apiKey := getAPIKey(c, apiKeyEnv)
	client := elevenlabs.NewClient(apiKey, cfg.ClientOptions()...)

	st := studio.New(client, store, hist, append([]studio.Option{
		studio.WithPricing(cfg.Pricing),
		studio.WithLanguage(cfg.InitialLanguage()),
		studio.WithNotifier(out),
		studio.WithIndicator(out.Indicator),
	}, opts...)...)

	s := &session{cfg: cfg, backend: backend, store: store, history: hist, studio: st, console: out}
	if keyed && apiKey == "" {
		s.console.Notify(studio.LevelError, st.Translator().T("toast.api_key_missing"))
		s.Close()
		return nil, fmt.Errorf("no API key: pass --api-key or set %s", apiKeyEnv)
	}
	return s, nil
}

// Close releases the data directory
func (s *session) Close() {
	if err := s.backend.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close data directory")
	}
}

// player honors the configured playback command
func (s *session) player() media.Player {
	return commandPlayer(s.cfg)
}

func commandPlayer(cfg *config.Config) *media.CommandPlayer {
	if cfg.Player != "" {
		return media.NewCommandPlayerWith(cfg.Player)
	}
	return media.NewCommandPlayer()
}

// getAPIKey gets the API key from the flag or environment variable
func getAPIKey(c *cli.Command, envVar string) string {
	if key := c.String("api-key"); key != "" {
		return key
	}
	return os.Getenv(envVar)
}
