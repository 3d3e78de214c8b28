// Package studio runs the four voicealchemy features. A Studio validates
// input, reports the estimated cost, calls the API, keeps the form state of
// each feature and records successful generations in the history.
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/cost"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/i18n"
	"github.com/daikw/voicealchemy/internal/media"
	"github.com/daikw/voicealchemy/internal/storage"
)

// Validation failures detected before any request is sent
var (
	ErrMissingInput = fmt.Errorf("%w: required fields are missing", elevenlabs.ErrValidation)
	ErrFileTooLarge = fmt.Errorf("%w: audio file is too large", elevenlabs.ErrValidation)
	ErrInvalidFile  = fmt.Errorf("%w: not an audio file", elevenlabs.ErrValidation)
)

// API is the subset of the ElevenLabs client a Studio needs
type API interface {
	ListVoices(ctx context.Context) ([]elevenlabs.Voice, error)
	ValidateKey(ctx context.Context) (bool, error)
	TextToSpeech(ctx context.Context, r elevenlabs.TextToSpeechRequest) (elevenlabs.Audio, error)
	SpeechToSpeech(ctx context.Context, r elevenlabs.SpeechToSpeechRequest) (elevenlabs.Audio, error)
	GenerateSoundEffect(ctx context.Context, r elevenlabs.SoundEffectRequest) (*elevenlabs.SoundEffectBatch, error)
	IsolateVoice(ctx context.Context, r elevenlabs.VoiceIsolationRequest) (elevenlabs.Audio, error)
	Models() elevenlabs.Models
	MaxUploadBytes() int64
}

// Level classifies a notification
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notifier shows a short transient message to the user
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// Indicator shows that work is in progress until the returned func is called
type Indicator func(msg string) (done func())

// DurationProbe measures audio for cost estimates
type DurationProbe func(ctx context.Context, data []byte) (time.Duration, error)

// Studio is safe for concurrent use
type Studio struct {
	api     API
	store   *storage.Store
	history *history.Store
	pricing cost.Pricing
	probe   DurationProbe

	notifier  Notifier
	indicator Indicator

	trMu sync.RWMutex
	tr   *i18n.Translator

	voicesMu sync.Mutex
	voices   []elevenlabs.Voice
}

// Option configures a Studio
type Option func(*Studio)

// WithPricing sets the rates used for cost notices
func WithPricing(p cost.Pricing) Option {
	return func(s *Studio) { s.pricing = p.WithDefaults() }
}

// WithNotifier sets where notifications go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(s *Studio) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithIndicator sets the progress indicator
func WithIndicator(ind Indicator) Option {
	return func(s *Studio) {
		if ind != nil {
			s.indicator = ind
		}
	}
}

// WithDurationProbe replaces media.Duration for cost estimates
func WithDurationProbe(p DurationProbe) Option {
	return func(s *Studio) {
		if p != nil {
			s.probe = p
		}
	}
}

// WithLanguage sets the initial language when none is saved
func WithLanguage(lang i18n.Language) Option {
	return func(s *Studio) { s.tr = i18n.New(i18n.Load(s.store, lang)) }
}

// New creates a Studio backed by store. The history shares the store.
func New(api API, store *storage.Store, hist *history.Store, opts ...Option) *Studio {
	s := &Studio{
		api:       api,
		store:     store,
		history:   hist,
		pricing:   cost.DefaultPricing,
		probe:     media.Duration,
		notifier:  NotifierFunc(logNotification),
		indicator: func(string) func() { return func() {} },
	}
	s.tr = i18n.New(i18n.Load(store, i18n.English))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func logNotification(level Level, msg string) {
	switch level {
	case LevelError:
		log.Error().Msg(msg)
	case LevelWarning:
		log.Warn().Msg(msg)
	default:
		log.Info().Msg(msg)
	}
}

// History returns the generation history
func (s *Studio) History() *history.Store {
	return s.history
}

// Store returns the backing store
func (s *Studio) Store() *storage.Store {
	return s.store
}

// Pricing returns the rates used for estimates
func (s *Studio) Pricing() cost.Pricing {
	return s.pricing
}

// Translator returns the translator for the current language
func (s *Studio) Translator() *i18n.Translator {
	s.trMu.RLock()
	defer s.trMu.RUnlock()
	return s.tr
}

// SetLanguage switches and saves the UI language
func (s *Studio) SetLanguage(lang i18n.Language) {
	i18n.Save(s.store, lang)
	tr := i18n.New(lang)

	s.trMu.Lock()
	s.tr = tr
	s.trMu.Unlock()

	s.notify(LevelSuccess, "toast.language_changed", tr.T("lang."+string(lang)))
}

func (s *Studio) t(key string, args ...any) string {
	return s.Translator().T(key, args...)
}

func (s *Studio) notify(level Level, key string, args ...any) {
	s.notifier.Notify(level, s.t(key, args...))
}

// fail notifies the user of err under the feature's failure message
func (s *Studio) fail(key string, err error) error {
	msg := s.t(key)
	var apiErr *elevenlabs.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case elevenlabs.KindAuth:
			msg += ": " + s.t("toast.api_key_invalid")
		case elevenlabs.KindService:
			if apiErr.Message != "" {
				msg += ": " + apiErr.Message
			}
		}
	}
	s.notifier.Notify(LevelError, msg)
	return err
}

// busy starts the progress indicator
func (s *Studio) busy(key string) func() {
	return s.indicator(s.t(key))
}

// ValidateKey checks the API key. A network failure means the key could
// not be confirmed, which is reported differently from a rejected key.
func (s *Studio) ValidateKey(ctx context.Context) (bool, error) {
	done := s.busy("common.loading")
	defer done()

	ok, err := s.api.ValidateKey(ctx)
	switch {
	case ok:
		s.notify(LevelSuccess, "toast.api_key_valid")
	case errors.Is(err, elevenlabs.ErrTransport):
		s.notify(LevelWarning, "toast.api_key_unconfirmed")
	case errors.Is(err, elevenlabs.ErrValidation):
		s.notify(LevelError, "toast.api_key_missing")
	default:
		s.notify(LevelError, "toast.api_key_invalid")
	}
	return ok, err
}

// Voices lists the available voices without hidden ones. Saved voice
// selections that are no longer available are dropped with a warning.
func (s *Studio) Voices(ctx context.Context) ([]elevenlabs.Voice, error) {
	all, err := s.allVoices(ctx, true)
	if err != nil {
		return nil, s.fail("toast.voices_failed", err)
	}

	for _, key := range []string{form.TTSSelectedVoiceKey, form.STSSelectedVoiceKey} {
		id := s.store.Load(key, "")
		if id == "" {
			continue
		}
		if _, ok := elevenlabs.FindVoice(all, id); !ok {
			log.Debug().Str("key", key).Str("voice", id).Msg("Saved voice no longer available")
			s.store.Remove(key)
			s.notify(LevelWarning, "toast.voice_unavailable")
		}
	}

	return elevenlabs.FilterHidden(all), nil
}

// allVoices returns the full voice list, fetching it once per Studio
// unless refresh is set
func (s *Studio) allVoices(ctx context.Context, refresh bool) ([]elevenlabs.Voice, error) {
	s.voicesMu.Lock()
	defer s.voicesMu.Unlock()

	if s.voices != nil && !refresh {
		return s.voices, nil
	}
	voices, err := s.api.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	s.voices = voices
	return voices, nil
}

// Voice looks up a voice by id among all voices
func (s *Studio) Voice(ctx context.Context, id string) (elevenlabs.Voice, error) {
	voices, err := s.allVoices(ctx, false)
	if err != nil {
		return elevenlabs.Voice{}, s.fail("toast.voices_failed", err)
	}
	v, ok := elevenlabs.FindVoice(voices, id)
	if !ok {
		return elevenlabs.Voice{}, fmt.Errorf("voice %q not found", id)
	}
	return v, nil
}

// voiceName resolves id for history entries, falling back to the id
func (s *Studio) voiceName(ctx context.Context, id string) string {
	voices, err := s.allVoices(ctx, false)
	if err != nil {
		log.Debug().Err(err).Msg("Could not resolve voice name")
		return id
	}
	if v, ok := elevenlabs.FindVoice(voices, id); ok {
		return v.Name
	}
	return id
}

// Clear removes the saved state of a feature
func (s *Studio) Clear(f form.Feature) {
	form.Clear(s.store, f)
	s.notify(LevelSuccess, "toast.cleared", s.t(FeatureTitleKey(f)))
}

// FeatureTitleKey returns the message key naming a feature
func FeatureTitleKey(f form.Feature) string {
	switch f {
	case form.FeatureTextToSpeech:
		return "nav.text_to_speech"
	case form.FeatureSpeechToSpeech:
		return "nav.speech_to_speech"
	case form.FeatureSoundEffect:
		return "nav.sound_fx"
	case form.FeatureVoiceIsolator:
		return "nav.voice_isolator"
	}
	return string(f)
}
