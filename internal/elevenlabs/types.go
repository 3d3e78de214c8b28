package elevenlabs

import (
	"math"
	"strings"

	"github.com/daikw/voicealchemy/internal/datauri"
)

// Voice is a voice available to the account
type Voice struct {
	ID          string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// HasPreview reports whether the voice has a preview sample
func (v Voice) HasPreview() bool {
	return v.PreviewURL != ""
}

// FilterHidden drops voices whose name contains "hidden"
func FilterHidden(voices []Voice) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), "hidden") {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FindVoice returns the voice with the given id
func FindVoice(voices []Voice, id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// Audio is a fully buffered audio payload
type Audio struct {
	Data     []byte
	MimeType string
}

// DataURI encodes the audio as a base64 data URI
func (a Audio) DataURI() string {
	return datauri.Encode(a.MimeType, a.Data)
}

// AudioInput is an audio file sent to the service
type AudioInput struct {
	Name     string
	MimeType string
	Data     []byte
}

// VoiceSettings tune the generated voice. Both values are in [0, 1].
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// DefaultVoiceSettings are used when a feature has no saved settings
var DefaultVoiceSettings = VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75}

// Normalize clamps both values to [0, 1]
func (s VoiceSettings) Normalize() VoiceSettings {
	return VoiceSettings{
		Stability:       clamp(s.Stability, 0, 1),
		SimilarityBoost: clamp(s.SimilarityBoost, 0, 1),
	}
}

// NoSoundEffectTag disables the expressive tag prefix
const NoSoundEffectTag = "none"

// SoundEffectTags are the tags offered for the extended model
var SoundEffectTags = []string{
	NoSoundEffectTag,
	"echo", "reverb", "chorus", "flanger", "telephone", "radio", "underwater",
	"megaphone", "robot", "alien", "helium", "slow_motion", "fast_forward",
	"vintage_radio", "dark_whisper",
}

// TextToSpeechRequest converts text to speech with a voice
type TextToSpeechRequest struct {
	Text     string
	VoiceID  string
	Settings VoiceSettings
	// UseExtendedModel selects the expressive model, which understands
	// bracketed tags such as "[laughs]".
	UseExtendedModel bool
	SoundEffectTag   string
}

// SpeechToSpeechRequest re-voices recorded speech
type SpeechToSpeechRequest struct {
	Source   AudioInput
	VoiceID  string
	Settings VoiceSettings
}

const (
	MinVariations = 1
	MaxVariations = 8
)

// SoundEffectRequest generates sound effects from a prompt
type SoundEffectRequest struct {
	Prompt string
	// DurationSeconds of 0 lets the service choose
	DurationSeconds float64
	// PromptAdherence is a percentage in [0, 100]
	PromptAdherence float64
	Variations      int
}

// Normalize clamps the numeric fields to their valid ranges
func (r SoundEffectRequest) Normalize() SoundEffectRequest {
	r.DurationSeconds = clamp(r.DurationSeconds, 0, math.Inf(1))
	r.PromptAdherence = clamp(r.PromptAdherence, 0, 100)
	r.Variations = min(max(r.Variations, MinVariations), MaxVariations)
	return r
}

// VoiceIsolationRequest removes background noise from audio
type VoiceIsolationRequest struct {
	Source AudioInput
}

// clamp maps v into [lo, hi]; NaN becomes lo
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}
