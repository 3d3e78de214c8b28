// Package form persists the last inputs and results of each feature so a
// later invocation can pick up where the previous one stopped.
package form

import (
	"fmt"
	"strconv"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/storage"
)

// Feature names a feature whose state is persisted
type Feature string

const (
	FeatureTextToSpeech   Feature = "tts"
	FeatureSpeechToSpeech Feature = "sts"
	FeatureVoiceIsolator  Feature = "isolate"
	FeatureSoundEffect    Feature = "sfx"
)

// Features lists every feature
var Features = []Feature{FeatureTextToSpeech, FeatureSpeechToSpeech, FeatureVoiceIsolator, FeatureSoundEffect}

// Storage keys
const (
	TTSTextKey           = "texttospeech_text"
	TTSSelectedVoiceKey  = "texttospeech_selected_voice"
	TTSConvertedAudioKey = "texttospeech_converted_audio"
	TTSUseV3Key          = "texttospeech_use_v3"
	TTSSoundEffectKey    = "texttospeech_sound_effect"
	TTSSettingsKey       = "texttospeech_settings"

	STSAudioFileKey      = "speech2speech_audio_file"
	STSSelectedVoiceKey  = "speech2speech_selected_voice"
	STSConvertedAudioKey = "speech2speech_converted_audio"
	STSInputModeKey      = "speech2speech_input_mode"
	STSSettingsKey       = "speech2speech_settings"

	IsolatorAudioFileKey      = "voice_isolator_audio_file"
	IsolatorProcessedAudioKey = "voice_isolator_processed_audio"

	SFXPromptKey    = "soundfx_prompt"
	SFXSettingsKey  = "soundfx_settings"
	SFXGeneratedKey = "soundfx_generated"
)

var featureKeys = map[Feature][]string{
	FeatureTextToSpeech:   {TTSTextKey, TTSSelectedVoiceKey, TTSConvertedAudioKey, TTSUseV3Key, TTSSoundEffectKey, TTSSettingsKey},
	FeatureSpeechToSpeech: {STSAudioFileKey, STSSelectedVoiceKey, STSConvertedAudioKey, STSInputModeKey, STSSettingsKey},
	FeatureVoiceIsolator:  {IsolatorAudioFileKey, IsolatorProcessedAudioKey},
	FeatureSoundEffect:    {SFXPromptKey, SFXSettingsKey, SFXGeneratedKey},
}

// ParseFeature accepts a feature name
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q (want tts, sts, isolate or sfx)", s)
}

// Keys returns the storage keys owned by f
func Keys(f Feature) []string {
	return append([]string(nil), featureKeys[f]...)
}

// Clear removes every stored value of f
func Clear(s *storage.Store, f Feature) {
	for _, key := range featureKeys[f] {
		s.Remove(key)
	}
}

// TextToSpeech is the saved text-to-speech state
type TextToSpeech struct {
	Text             string
	VoiceID          string
	UseExtendedModel bool
	SoundEffectTag   string
	Settings         elevenlabs.VoiceSettings
	// ConvertedAudio is the last result as a data URI
	ConvertedAudio string
}

// LoadTextToSpeech reads the saved state, falling back to defaults
func LoadTextToSpeech(s *storage.Store) TextToSpeech {
	useV3, _ := strconv.ParseBool(s.Load(TTSUseV3Key, "false"))
	return TextToSpeech{
		Text:             s.Load(TTSTextKey, ""),
		VoiceID:          s.Load(TTSSelectedVoiceKey, ""),
		UseExtendedModel: useV3,
		SoundEffectTag:   s.Load(TTSSoundEffectKey, elevenlabs.NoSoundEffectTag),
		Settings:         storage.LoadObject(s, TTSSettingsKey, elevenlabs.DefaultVoiceSettings).Normalize(),
		ConvertedAudio:   s.Load(TTSConvertedAudioKey, ""),
	}
}

// Save writes the state
func (f TextToSpeech) Save(s *storage.Store) {
	s.Save(TTSTextKey, f.Text)
	s.Save(TTSSelectedVoiceKey, f.VoiceID)
	s.Save(TTSUseV3Key, strconv.FormatBool(f.UseExtendedModel))
	if f.SoundEffectTag != "" {
		s.Save(TTSSoundEffectKey, f.SoundEffectTag)
	}
	s.SaveObject(TTSSettingsKey, f.Settings.Normalize())
	saveOptional(s, TTSConvertedAudioKey, f.ConvertedAudio)
}

// InputMode is how speech-to-speech audio was supplied
type InputMode string

const (
	InputUpload InputMode = "upload"
	InputRecord InputMode = "record"
)

// SpeechToSpeech is the saved speech-to-speech state
type SpeechToSpeech struct {
	AudioFile      *storage.File
	VoiceID        string
	InputMode      InputMode
	Settings       elevenlabs.VoiceSettings
	ConvertedAudio string
}

// LoadSpeechToSpeech reads the saved state, falling back to defaults
func LoadSpeechToSpeech(s *storage.Store) SpeechToSpeech {
	mode := InputMode(s.Load(STSInputModeKey, string(InputUpload)))
	if mode != InputRecord {
		mode = InputUpload
	}
	return SpeechToSpeech{
		AudioFile:      s.LoadFile(STSAudioFileKey),
		VoiceID:        s.Load(STSSelectedVoiceKey, ""),
		InputMode:      mode,
		Settings:       storage.LoadObject(s, STSSettingsKey, elevenlabs.DefaultVoiceSettings).Normalize(),
		ConvertedAudio: s.Load(STSConvertedAudioKey, ""),
	}
}

// Save writes the state. A nil AudioFile removes the stored file.
func (f SpeechToSpeech) Save(s *storage.Store) {
	s.SaveFile(STSAudioFileKey, f.AudioFile)
	s.Save(STSSelectedVoiceKey, f.VoiceID)
	mode := f.InputMode
	if mode == "" {
		mode = InputUpload
	}
	s.Save(STSInputModeKey, string(mode))
	s.SaveObject(STSSettingsKey, f.Settings.Normalize())
	saveOptional(s, STSConvertedAudioKey, f.ConvertedAudio)
}

// VoiceIsolator is the saved voice isolation state
type VoiceIsolator struct {
	AudioFile      *storage.File
	ProcessedAudio string
}

// LoadVoiceIsolator reads the saved state
func LoadVoiceIsolator(s *storage.Store) VoiceIsolator {
	return VoiceIsolator{
		AudioFile:      s.LoadFile(IsolatorAudioFileKey),
		ProcessedAudio: s.Load(IsolatorProcessedAudioKey, ""),
	}
}

// Save writes the state
func (f VoiceIsolator) Save(s *storage.Store) {
	s.SaveFile(IsolatorAudioFileKey, f.AudioFile)
	saveOptional(s, IsolatorProcessedAudioKey, f.ProcessedAudio)
}

// SoundEffectSettings are the saved sound effect parameters
type SoundEffectSettings struct {
	DurationSeconds float64 `json:"durationSeconds"`
	PromptAdherence float64 `json:"promptAdherence"`
	Variations      int     `json:"variations"`
}

// DefaultSoundEffectSettings apply when nothing is saved
var DefaultSoundEffectSettings = SoundEffectSettings{
	DurationSeconds: 0,
	PromptAdherence: 30,
	Variations:      4,
}

// SoundEffect is the saved sound effect state
type SoundEffect struct {
	Prompt   string
	Settings SoundEffectSettings
	// Generated holds the variations of the last batch as data URIs
	Generated []string
}

// LoadSoundEffect reads the saved state, falling back to defaults
func LoadSoundEffect(s *storage.Store) SoundEffect {
	settings := storage.LoadObject(s, SFXSettingsKey, DefaultSoundEffectSettings)
	normalized := elevenlabs.SoundEffectRequest{
		DurationSeconds: settings.DurationSeconds,
		PromptAdherence: settings.PromptAdherence,
		Variations:      settings.Variations,
	}.Normalize()
	return SoundEffect{
		Prompt: s.Load(SFXPromptKey, ""),
		Settings: SoundEffectSettings{
			DurationSeconds: normalized.DurationSeconds,
			PromptAdherence: normalized.PromptAdherence,
			Variations:      normalized.Variations,
		},
		Generated: storage.LoadObject[[]string](s, SFXGeneratedKey, nil),
	}
}

// Save writes the state
func (f SoundEffect) Save(s *storage.Store) {
	s.Save(SFXPromptKey, f.Prompt)
	s.SaveObject(SFXSettingsKey, f.Settings)
	if len(f.Generated) == 0 {
		s.Remove(SFXGeneratedKey)
		return
	}
	s.SaveObject(SFXGeneratedKey, f.Generated)
}

func saveOptional(s *storage.Store, key, value string) {
	if value == "" {
		s.Remove(key)
		return
	}
	s.Save(key, value)
}
