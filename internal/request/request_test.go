package request

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/history"
)

func TestDecodeSingle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  history.Kind
	}{
		{"text to speech", `{"kind":"text-to-speech","text":"hi","voice_id":"v"}`, history.KindTextToSpeech},
		{"speech to speech", `{"kind":"speech-to-speech","audio_path":"a.wav","voice_id":"v"}`, history.KindSpeechToSpeech},
		{"sound effect", `{"kind":"sound-fx","prompt":"rain"}`, history.KindSoundEffect},
		{"voice isolation", `{"kind":"voice-isolator","audio_path":"a.wav"}`, history.KindVoiceIsolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := Decode(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.kind, reqs[0].Kind())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "  ", "no request"},
		{"no kind", `{"text":"hi"}`, "no kind"},
		{"unknown kind", `{"kind":"telepathy"}`, "unknown request kind"},
		{"bad json", `{`, "failed to parse"},
		{"bad field type", `{"kind":"sound-fx","prompt":5}`, "sound-fx"},
		{"bad array item", `[{"kind":"sound-fx","prompt":"a"},{}]`, "request 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDecodeArray(t *testing.T) {
	reqs, err := Decode(strings.NewReader(`[
		{"kind":"sound-fx","prompt":"rain","variations":2},
		{"kind":"text-to-speech","text":"hello","voice_id":"v1","stability":0.2}
	]`))
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	sfx, ok := reqs[0].(SoundEffect)
	require.True(t, ok)
	api := sfx.SoundEffectRequest()
	assert.Equal(t, 2, api.Variations)
	assert.Equal(t, float64(DefaultPromptAdherence), api.PromptAdherence)

	tts, ok := reqs[1].(TextToSpeech)
	require.True(t, ok)
	r := tts.TextToSpeechRequest()
	assert.Equal(t, 0.2, r.Settings.Stability)
	assert.Equal(t, elevenlabs.DefaultVoiceSettings.SimilarityBoost, r.Settings.SimilarityBoost)
}

func TestSoundEffectDefaultsAndClamping(t *testing.T) {
	zero, many, none := 0.0, 40, 0
	r := SoundEffect{Prompt: "x", PromptAdherence: &zero, Variations: &many, DurationSeconds: -1}.SoundEffectRequest()
	assert.Equal(t, 0.0, r.PromptAdherence)
	assert.Equal(t, elevenlabs.MaxVariations, r.Variations)
	assert.Equal(t, 0.0, r.DurationSeconds)

	r = SoundEffect{Prompt: "x"}.SoundEffectRequest()
	assert.Equal(t, DefaultVariations, r.Variations)

	r = SoundEffect{Prompt: "x", Variations: &none}.SoundEffectRequest()
	assert.Equal(t, elevenlabs.MinVariations, r.Variations)
}

func TestDecodeExplicitZeroVariations(t *testing.T) {
	reqs, err := Decode(strings.NewReader(`[
		{"kind":"sound-fx","prompt":"rain","variations":0},
		{"kind":"sound-fx","prompt":"rain"}
	]`))
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, 1, reqs[0].(SoundEffect).SoundEffectRequest().Variations)
	assert.Equal(t, DefaultVariations, reqs[1].(SoundEffect).SoundEffectRequest().Variations)
}

func TestAudioSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF0000WAVE"), 0600))

	t.Run("path", func(t *testing.T) {
		in, err := AudioSource{Path: path}.Load()
		require.NoError(t, err)
		assert.Equal(t, "voice.wav", in.Name)
		assert.Equal(t, "audio/wav", in.MimeType)
		assert.Equal(t, []byte("RIFF0000WAVE"), in.Data)
	})

	t.Run("envelope", func(t *testing.T) {
		reqs, err := Decode(strings.NewReader(`{"kind":"voice-isolator","audio":{"name":"x.mp3","type":"audio/mpeg","data":"data:audio/mpeg;base64,AQID"}}`))
		require.NoError(t, err)
		iso := reqs[0].(VoiceIsolation)
		api, err := iso.VoiceIsolationRequest()
		require.NoError(t, err)
		assert.Equal(t, "x.mp3", api.Source.Name)
		assert.Equal(t, "audio/mpeg", api.Source.MimeType)
		assert.Equal(t, []byte{1, 2, 3}, api.Source.Data)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := AudioSource{}.Load()
		assert.ErrorIs(t, err, ErrNoAudio)
		_, err = AudioSource{Path: filepath.Join(dir, "nope.wav")}.Load()
		assert.Error(t, err)
	})

	t.Run("both", func(t *testing.T) {
		_, err := AudioSource{Path: path, Audio: &Envelope{}}.Load()
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("speech to speech", func(t *testing.T) {
		sts := SpeechToSpeech{AudioSource: AudioSource{Path: path}, VoiceID: "v"}
		api, err := sts.SpeechToSpeechRequest()
		require.NoError(t, err)
		assert.Equal(t, "v", api.VoiceID)
		assert.Equal(t, elevenlabs.DefaultVoiceSettings, api.Settings)
	})

	t.Run("no source leaves audio empty", func(t *testing.T) {
		api, err := SpeechToSpeech{VoiceID: "v"}.SpeechToSpeechRequest()
		require.NoError(t, err)
		assert.Empty(t, api.Source.Data)
		assert.Equal(t, "v", api.VoiceID)

		iso, err := VoiceIsolation{}.VoiceIsolationRequest()
		require.NoError(t, err)
		assert.Empty(t, iso.Source.Data)

		_, err = VoiceIsolation{AudioSource: AudioSource{Path: filepath.Join(dir, "nope.wav")}}.VoiceIsolationRequest()
		assert.ErrorContains(t, err, "failed to read audio file")
	})
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeTypeFor("a.MP3", nil))
	assert.Equal(t, "audio/webm", MimeTypeFor("take.webm", nil))
	assert.Equal(t, "audio/wave", MimeTypeFor("noext", []byte("RIFF\x00\x00\x00\x00WAVEfmt ")))
}
