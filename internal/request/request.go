// Package request decodes generation requests from JSON. Each request
// carries a "kind" field naming the feature it targets.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/daikw/voicealchemy/internal/datauri"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/history"
)

// Request is one of TextToSpeech, SpeechToSpeech, SoundEffect or
// VoiceIsolation
type Request interface {
	Kind() history.Kind
	isRequest()
}

// TextToSpeech requests speech from text
type TextToSpeech struct {
	Text             string   `json:"text"`
	VoiceID          string   `json:"voice_id"`
	Stability        *float64 `json:"stability,omitempty"`
	SimilarityBoost  *float64 `json:"similarity_boost,omitempty"`
	UseExtendedModel bool     `json:"use_extended_model,omitempty"`
	SoundEffectTag   string   `json:"sound_effect,omitempty"`
}

// SpeechToSpeech requests a re-voiced copy of recorded speech
type SpeechToSpeech struct {
	AudioSource
	VoiceID         string   `json:"voice_id"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
}

// SoundEffect requests generated sound effects
type SoundEffect struct {
	Prompt          string   `json:"prompt"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	PromptAdherence *float64 `json:"prompt_adherence,omitempty"`
	Variations      *int     `json:"variations,omitempty"`
}

// VoiceIsolation requests background noise removal
type VoiceIsolation struct {
	AudioSource
}

func (TextToSpeech) Kind() history.Kind   { return history.KindTextToSpeech }
func (SpeechToSpeech) Kind() history.Kind { return history.KindSpeechToSpeech }
func (SoundEffect) Kind() history.Kind    { return history.KindSoundEffect }
func (VoiceIsolation) Kind() history.Kind { return history.KindVoiceIsolation }

func (TextToSpeech) isRequest()   {}
func (SpeechToSpeech) isRequest() {}
func (SoundEffect) isRequest()    {}
func (VoiceIsolation) isRequest() {}

// ErrNoAudio is returned by Load when a source names neither a path nor
// inline audio
var ErrNoAudio = errors.New("audio_path or audio is required")

// Default values for omitted request fields
const (
	DefaultPromptAdherence = 30
	DefaultVariations      = 4
)

// AudioSource names input audio either by path or inline as a storage
// envelope {name, type, data}
type AudioSource struct {
	Path  string    `json:"audio_path,omitempty"`
	Audio *Envelope `json:"audio,omitempty"`
}

// Envelope is an inline audio file whose data is a base64 data URI
type Envelope struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// Load resolves the source to audio bytes
func (a AudioSource) Load() (elevenlabs.AudioInput, error) {
	switch {
	case a.Path != "" && a.Audio != nil:
		return elevenlabs.AudioInput{}, fmt.Errorf("audio_path and audio are mutually exclusive")
	case a.Path != "":
		return LoadAudioFile(a.Path)
	case a.Audio != nil:
		mimeType, data, err := datauri.Decode(a.Audio.Data)
		if err != nil {
			return elevenlabs.AudioInput{}, fmt.Errorf("failed to decode inline audio: %w", err)
		}
		if mimeType == "" {
			mimeType = a.Audio.Type
		}
		return elevenlabs.AudioInput{Name: a.Audio.Name, MimeType: mimeType, Data: data}, nil
	default:
		return elevenlabs.AudioInput{}, ErrNoAudio
	}
}

// LoadAudioFile reads an audio file, taking the mime type from its
// extension or, failing that, its content
func LoadAudioFile(path string) (elevenlabs.AudioInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return elevenlabs.AudioInput{}, fmt.Errorf("failed to read audio file: %w", err)
	}
	return elevenlabs.AudioInput{
		Name:     filepath.Base(path),
		MimeType: MimeTypeFor(path, data),
		Data:     data,
	}, nil
}

// MimeTypeFor guesses the mime type of an audio file
func MimeTypeFor(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	// Not all platforms register these
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return elevenlabs.DetectMime(data)
}

// TextToSpeechRequest converts r to a client request, filling defaults
func (r TextToSpeech) TextToSpeechRequest() elevenlabs.TextToSpeechRequest {
	return elevenlabs.TextToSpeechRequest{
		Text:             r.Text,
		VoiceID:          r.VoiceID,
		Settings:         settings(r.Stability, r.SimilarityBoost),
		UseExtendedModel: r.UseExtendedModel,
		SoundEffectTag:   r.SoundEffectTag,
	}
}

// SpeechToSpeechRequest loads the audio and converts r to a client request.
// Without a source the request carries no audio and the studio falls back
// to the saved file.
func (r SpeechToSpeech) SpeechToSpeechRequest() (elevenlabs.SpeechToSpeechRequest, error) {
	in, err := r.Load()
	if err != nil && !errors.Is(err, ErrNoAudio) {
		return elevenlabs.SpeechToSpeechRequest{}, err
	}
	return elevenlabs.SpeechToSpeechRequest{
		Source:   in,
		VoiceID:  r.VoiceID,
		Settings: settings(r.Stability, r.SimilarityBoost),
	}, nil
}

// SoundEffectRequest converts r to a client request, filling defaults
func (r SoundEffect) SoundEffectRequest() elevenlabs.SoundEffectRequest {
	adherence := float64(DefaultPromptAdherence)
	if r.PromptAdherence != nil {
		adherence = *r.PromptAdherence
	}
	// An explicit 0 is clamped, not defaulted
	variations := DefaultVariations
	if r.Variations != nil {
		variations = *r.Variations
	}
	return elevenlabs.SoundEffectRequest{
		Prompt:          r.Prompt,
		DurationSeconds: r.DurationSeconds,
		PromptAdherence: adherence,
		Variations:      variations,
	}.Normalize()
}

// VoiceIsolationRequest loads the audio and converts r to a client
// request, leaving the source empty when none is given
func (r VoiceIsolation) VoiceIsolationRequest() (elevenlabs.VoiceIsolationRequest, error) {
	in, err := r.Load()
	if err != nil && !errors.Is(err, ErrNoAudio) {
		return elevenlabs.VoiceIsolationRequest{}, err
	}
	return elevenlabs.VoiceIsolationRequest{Source: in}, nil
}

func settings(stability, similarity *float64) elevenlabs.VoiceSettings {
	s := elevenlabs.DefaultVoiceSettings
	if stability != nil {
		s.Stability = *stability
	}
	if similarity != nil {
		s.SimilarityBoost = *similarity
	}
	return s.Normalize()
}

// Decode reads one request object or an array of them
func Decode(r io.Reader) ([]Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no request given")
	}

	if trimmed[0] != '[' {
		req, err := Parse(trimmed)
		if err != nil {
			return nil, err
		}
		return []Request{req}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	reqs := make([]Request, 0, len(items))
	for i, item := range items {
		req, err := Parse(item)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Parse decodes a single request object using its "kind" field
func Parse(data []byte) (Request, error) {
	var head struct {
		Kind history.Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	switch head.Kind {
	case history.KindTextToSpeech:
		var req TextToSpeech
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse %s request: %w", head.Kind, err)
		}
		return req, nil

	case history.KindSpeechToSpeech:
		var req SpeechToSpeech
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse %s request: %w", head.Kind, err)
		}
		return req, nil

	case history.KindSoundEffect:
		var req SoundEffect
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse %s request: %w", head.Kind, err)
		}
		return req, nil

	case history.KindVoiceIsolation:
		var req VoiceIsolation
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse %s request: %w", head.Kind, err)
		}
		return req, nil

	case "":
		return nil, fmt.Errorf("request has no kind")
	default:
		return nil, fmt.Errorf("unknown request kind %q", head.Kind)
	}
}
