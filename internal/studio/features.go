package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/cost"
	"github.com/daikw/voicealchemy/internal/datauri"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/storage"
)

// Result is one generated clip and its history entry
type Result struct {
	Audio elevenlabs.Audio
	Entry history.Entry
	// Credits is the estimate shown before the request; zero when unknown
	Credits float64
}

// SoundEffectResult holds the variations of one sound effect request in
// issue order
type SoundEffectResult struct {
	Results []Result
	// Partial is set when some variations failed
	Partial *elevenlabs.PartialFailure
	Credits float64
}

// TextToSpeech generates speech. Empty text or voice fall back to the saved
// form state.
func (s *Studio) TextToSpeech(ctx context.Context, r elevenlabs.TextToSpeechRequest) (*Result, error) {
	state := form.LoadTextToSpeech(s.store)
	if strings.TrimSpace(r.Text) == "" {
		r.Text = state.Text
	}
	if r.VoiceID == "" {
		r.VoiceID = state.VoiceID
	}
	if strings.TrimSpace(r.Text) == "" || r.VoiceID == "" {
		s.notify(LevelError, "toast.fill_required")
		return nil, ErrMissingInput
	}
	r.Settings = r.Settings.Normalize()

	state.Text = r.Text
	state.VoiceID = r.VoiceID
	state.UseExtendedModel = r.UseExtendedModel
	state.Settings = r.Settings
	if r.SoundEffectTag != "" {
		state.SoundEffectTag = r.SoundEffectTag
	}
	state.Save(s.store)

	credits := s.pricing.TextToSpeech(r.Text)
	s.notifyCost(credits)

	done := s.busy("common.generating")
	defer done()

	audio, err := s.api.TextToSpeech(ctx, r)
	if err != nil {
		return nil, s.fail("toast.generation_failed", err)
	}

	state.ConvertedAudio = audio.DataURI()
	s.store.Save(form.TTSConvertedAudioKey, state.ConvertedAudio)

	models := s.api.Models()
	draft := history.Draft{
		Kind:      history.KindTextToSpeech,
		Input:     strings.TrimSpace(r.Text),
		VoiceName: s.voiceName(ctx, r.VoiceID),
		AudioURL:  state.ConvertedAudio,
		Model:     models.TextToSpeech,
	}
	if r.UseExtendedModel {
		draft.Model = models.Extended
		if tag := strings.Trim(r.SoundEffectTag, "[] "); tag != "" && tag != elevenlabs.NoSoundEffectTag {
			draft.EffectTag = tag
		}
	}
	entry := s.history.Add(draft)

	s.notify(LevelSuccess, "toast.audio_generated")
	return &Result{Audio: audio, Entry: entry, Credits: credits}, nil
}

// SpeechToSpeech re-voices recorded speech. Missing audio or voice fall
// back to the saved form state.
func (s *Studio) SpeechToSpeech(ctx context.Context, r elevenlabs.SpeechToSpeechRequest, mode form.InputMode) (*Result, error) {
	state := form.LoadSpeechToSpeech(s.store)
	if len(r.Source.Data) == 0 && state.AudioFile != nil {
		r.Source = fromFile(state.AudioFile)
	}
	if r.VoiceID == "" {
		r.VoiceID = state.VoiceID
	}
	if len(r.Source.Data) == 0 || r.VoiceID == "" {
		s.notify(LevelError, "toast.fill_required")
		return nil, ErrMissingInput
	}
	if err := s.checkUpload(r.Source); err != nil {
		return nil, err
	}
	r.Settings = r.Settings.Normalize()

	state.AudioFile = toFile(r.Source)
	state.VoiceID = r.VoiceID
	state.Settings = r.Settings
	if mode != "" {
		state.InputMode = mode
	}
	state.Save(s.store)

	credits := s.estimateDuration(ctx, r.Source.Data, s.pricing.SpeechToSpeech)

	done := s.busy("common.converting")
	defer done()

	audio, err := s.api.SpeechToSpeech(ctx, r)
	if err != nil {
		return nil, s.fail("toast.conversion_failed", err)
	}

	uri := audio.DataURI()
	s.store.Save(form.STSConvertedAudioKey, uri)

	entry := s.history.Add(history.Draft{
		Kind:      history.KindSpeechToSpeech,
		Input:     inputName(r.Source, "Recorded audio"),
		VoiceName: s.voiceName(ctx, r.VoiceID),
		AudioURL:  uri,
		Model:     s.api.Models().SpeechToSpeech,
	})

	s.notify(LevelSuccess, "toast.conversion_success")
	return &Result{Audio: audio, Entry: entry, Credits: credits}, nil
}

// IsolateVoice removes background noise. Missing audio falls back to the
// saved form state.
func (s *Studio) IsolateVoice(ctx context.Context, r elevenlabs.VoiceIsolationRequest) (*Result, error) {
	state := form.LoadVoiceIsolator(s.store)
	if len(r.Source.Data) == 0 && state.AudioFile != nil {
		r.Source = fromFile(state.AudioFile)
	}
	if len(r.Source.Data) == 0 {
		s.notify(LevelError, "toast.fill_required")
		return nil, ErrMissingInput
	}
	if err := s.checkUpload(r.Source); err != nil {
		return nil, err
	}

	state.AudioFile = toFile(r.Source)
	state.Save(s.store)

	credits := s.estimateDuration(ctx, r.Source.Data, s.pricing.VoiceIsolation)

	done := s.busy("common.processing")
	defer done()

	audio, err := s.api.IsolateVoice(ctx, r)
	if err != nil {
		return nil, s.fail("toast.isolation_failed", err)
	}

	uri := audio.DataURI()
	s.store.Save(form.IsolatorProcessedAudioKey, uri)

	entry := s.history.Add(history.Draft{
		Kind:     history.KindVoiceIsolation,
		Input:    inputName(r.Source, "Audio file"),
		AudioURL: uri,
	})

	s.notify(LevelSuccess, "toast.isolation_success")
	return &Result{Audio: audio, Entry: entry, Credits: credits}, nil
}

// SoundEffect generates variations of a sound effect. An empty prompt
// falls back to the saved one. Some variations failing is not an error.
func (s *Studio) SoundEffect(ctx context.Context, r elevenlabs.SoundEffectRequest) (*SoundEffectResult, error) {
	state := form.LoadSoundEffect(s.store)
	if strings.TrimSpace(r.Prompt) == "" {
		r.Prompt = state.Prompt
	}
	if strings.TrimSpace(r.Prompt) == "" {
		s.notify(LevelError, "toast.fill_required")
		return nil, ErrMissingInput
	}
	r = r.Normalize()

	state.Prompt = r.Prompt
	state.Settings = form.SoundEffectSettings{
		DurationSeconds: r.DurationSeconds,
		PromptAdherence: r.PromptAdherence,
		Variations:      r.Variations,
	}
	state.Save(s.store)

	credits := s.pricing.SoundEffect(cost.Seconds(r.DurationSeconds), r.Variations)
	s.notifyCost(credits)

	done := s.busy("common.generating")
	defer done()

	batch, err := s.api.GenerateSoundEffect(ctx, r)
	if err != nil {
		return nil, s.fail("toast.sfx_failed", err)
	}

	model := s.api.Models().SoundEffects
	prompt := strings.TrimSpace(r.Prompt)
	out := &SoundEffectResult{Partial: batch.Partial, Credits: credits}
	state.Generated = make([]string, 0, len(batch.Variations))

	// Entries are added in issue order so variation labels stay stable
	for _, v := range batch.Variations {
		uri := v.Audio.DataURI()
		state.Generated = append(state.Generated, uri)
		entry := s.history.Add(history.Draft{
			Kind:     history.KindSoundEffect,
			Input:    fmt.Sprintf("%s (%d/%d)", prompt, v.Index+1, r.Variations),
			AudioURL: uri,
			Model:    model,
		})
		out.Results = append(out.Results, Result{Audio: v.Audio, Entry: entry})
	}
	state.Save(s.store)

	if batch.Partial != nil {
		s.notify(LevelWarning, "toast.sfx_partial", len(batch.Partial.Failures), batch.Partial.Requested)
	}
	s.notify(LevelSuccess, "toast.sfx_success", len(batch.Variations))
	return out, nil
}

// LastAudio returns the saved results of a feature
func (s *Studio) LastAudio(f form.Feature) []elevenlabs.Audio {
	var uris []string
	switch f {
	case form.FeatureTextToSpeech:
		uris = []string{form.LoadTextToSpeech(s.store).ConvertedAudio}
	case form.FeatureSpeechToSpeech:
		uris = []string{form.LoadSpeechToSpeech(s.store).ConvertedAudio}
	case form.FeatureVoiceIsolator:
		uris = []string{form.LoadVoiceIsolator(s.store).ProcessedAudio}
	case form.FeatureSoundEffect:
		uris = form.LoadSoundEffect(s.store).Generated
	}

	var out []elevenlabs.Audio
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		mimeType, data, err := datauri.Decode(uri)
		if err != nil {
			log.Debug().Err(err).Str("feature", string(f)).Msg("Skipping unreadable saved audio")
			continue
		}
		out = append(out, elevenlabs.Audio{Data: data, MimeType: mimeType})
	}
	return out
}

func (s *Studio) checkUpload(in elevenlabs.AudioInput) error {
	if !elevenlabs.IsAudioMime(in.MimeType) {
		s.notify(LevelError, "toast.invalid_file")
		return ErrInvalidFile
	}
	if limit := s.api.MaxUploadBytes(); int64(len(in.Data)) > limit {
		s.notify(LevelError, "toast.file_too_large", humanize.IBytes(uint64(limit)))
		return ErrFileTooLarge
	}
	return nil
}

func (s *Studio) notifyCost(credits float64) {
	s.notify(LevelInfo, "common.cost", humanize.Commaf(credits))
}

// estimateDuration prices audio by its length. Unmeasurable audio gets no
// estimate; the request still goes ahead.
func (s *Studio) estimateDuration(ctx context.Context, data []byte, price func(d time.Duration) float64) float64 {
	d, err := s.probe(ctx, data)
	if err != nil {
		log.Debug().Err(err).Msg("Skipping cost estimate")
		return 0
	}
	credits := price(d)
	s.notifyCost(credits)
	return credits
}

func inputName(in elevenlabs.AudioInput, fallback string) string {
	if in.Name != "" {
		return in.Name
	}
	return fallback
}

func toFile(in elevenlabs.AudioInput) *storage.File {
	return &storage.File{Name: in.Name, MimeType: in.MimeType, Data: in.Data}
}

func fromFile(f *storage.File) elevenlabs.AudioInput {
	return elevenlabs.AudioInput{Name: f.Name, MimeType: f.MimeType, Data: f.Data}
}
