package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/storage"
)

func TestTextToSpeechState(t *testing.T) {
	s := storage.NewMemoryStore()

	def := LoadTextToSpeech(s)
	assert.Equal(t, "", def.Text)
	assert.False(t, def.UseExtendedModel)
	assert.Equal(t, elevenlabs.NoSoundEffectTag, def.SoundEffectTag)
	assert.Equal(t, elevenlabs.DefaultVoiceSettings, def.Settings)

	in := TextToSpeech{
		Text:             "Hello there",
		VoiceID:          "v1",
		UseExtendedModel: true,
		SoundEffectTag:   "radio",
		Settings:         elevenlabs.VoiceSettings{Stability: 0.3, SimilarityBoost: 0.9},
		ConvertedAudio:   "data:audio/mpeg;base64,AA==",
	}
	in.Save(s)
	assert.Equal(t, "true", s.Load(TTSUseV3Key, ""))
	assert.Equal(t, in, LoadTextToSpeech(s))

	in.ConvertedAudio = ""
	in.Save(s)
	assert.False(t, s.Has(TTSConvertedAudioKey))
}

func TestSpeechToSpeechState(t *testing.T) {
	s := storage.NewMemoryStore()
	assert.Equal(t, InputUpload, LoadSpeechToSpeech(s).InputMode)

	file := &storage.File{Name: "take.webm", MimeType: "audio/webm", Data: []byte{1, 2, 3}}
	SpeechToSpeech{AudioFile: file, VoiceID: "v2", InputMode: InputRecord, Settings: elevenlabs.DefaultVoiceSettings}.Save(s)

	got := LoadSpeechToSpeech(s)
	require.NotNil(t, got.AudioFile)
	assert.Equal(t, file.Data, got.AudioFile.Data)
	assert.Equal(t, InputRecord, got.InputMode)
	assert.Equal(t, "v2", got.VoiceID)

	s.Save(STSInputModeKey, "telepathy")
	assert.Equal(t, InputUpload, LoadSpeechToSpeech(s).InputMode)
}

func TestSoundEffectState(t *testing.T) {
	s := storage.NewMemoryStore()
	assert.Equal(t, DefaultSoundEffectSettings, LoadSoundEffect(s).Settings)
	assert.Nil(t, LoadSoundEffect(s).Generated)

	SoundEffect{
		Prompt:    "glass breaking",
		Settings:  SoundEffectSettings{DurationSeconds: 2, PromptAdherence: 250, Variations: 12},
		Generated: []string{"data:audio/mpeg;base64,AA==", "data:audio/mpeg;base64,AQ=="},
	}.Save(s)

	got := LoadSoundEffect(s)
	assert.Equal(t, "glass breaking", got.Prompt)
	assert.Equal(t, SoundEffectSettings{DurationSeconds: 2, PromptAdherence: 100, Variations: 8}, got.Settings)
	assert.Len(t, got.Generated, 2)
}

func TestClear(t *testing.T) {
	s := storage.NewMemoryStore()
	TextToSpeech{Text: "a", VoiceID: "b"}.Save(s)
	VoiceIsolator{
		AudioFile:      &storage.File{Name: "x.wav", MimeType: "audio/wav", Data: []byte{1}},
		ProcessedAudio: "data:audio/mpeg;base64,AA==",
	}.Save(s)

	Clear(s, FeatureVoiceIsolator)
	iso := LoadVoiceIsolator(s)
	assert.Nil(t, iso.AudioFile)
	assert.Empty(t, iso.ProcessedAudio)
	assert.Equal(t, "a", LoadTextToSpeech(s).Text, "other features untouched")

	Clear(s, FeatureTextToSpeech)
	for _, key := range Keys(FeatureTextToSpeech) {
		assert.False(t, s.Has(key), key)
	}
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature("sfx")
	require.NoError(t, err)
	assert.Equal(t, FeatureSoundEffect, f)

	_, err = ParseFeature("nope")
	assert.Error(t, err)
}
