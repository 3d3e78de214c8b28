package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", append([]Option{WithBaseURL(server.URL)}, opts...)...)
}

func TestNewClient(t *testing.T) {
	c := NewClient("key")
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModels, c.Models())
	assert.Equal(t, int64(DefaultMaxUploadBytes), c.MaxUploadBytes())

	c = NewClient("key", WithBaseURL("http://localhost:1234/"), WithModels(Models{Extended: "x"}), WithMaxUploadBytes(5))
	assert.Equal(t, "http://localhost:1234", c.baseURL)
	assert.Equal(t, "x", c.Models().Extended)
	assert.Equal(t, DefaultModels.TextToSpeech, c.Models().TextToSpeech)
	assert.Equal(t, int64(5), c.MaxUploadBytes())
}

func TestListVoices(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/voices", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))
			_, _ = io.WriteString(w, `{"voices":[
				{"voice_id":"v1","name":"Rachel","category":"premade","preview_url":"http://x/p.mp3"},
				{"voice_id":"v2","name":"Hidden Voice","category":"cloned"},
				{"voice_id":"v3","name":"Adam","description":"deep"}
			]}`)
		})

		voices, err := c.ListVoices(context.Background())
		require.NoError(t, err)
		require.Len(t, voices, 3)
		assert.Equal(t, "v1", voices[0].ID)
		assert.True(t, voices[0].HasPreview())
		assert.False(t, voices[2].HasPreview())

		visible := FilterHidden(voices)
		require.Len(t, visible, 2)
		assert.Equal(t, "Adam", visible[1].Name)

		v, ok := FindVoice(voices, "v3")
		assert.True(t, ok)
		assert.Equal(t, "deep", v.Description)
	})

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"unauthorized", 401, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`, ErrAuth, "Invalid API key"},
		{"forbidden", 403, `{}`, ErrAuth, "Failed to fetch voices"},
		{"string detail", 500, `{"detail":"boom"}`, ErrService, "boom"},
		{"list detail", 422, `{"detail":[{"loc":["body"],"msg":"field required"}]}`, ErrService, "field required"},
		{"no body", 502, ``, ErrService, "Failed to fetch voices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.ListVoices(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestValidateKey(t *testing.T) {
	t.Run("rejected key", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		ok, err := c.ValidateKey(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("forbidden key", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		ok, err := c.ValidateKey(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("server error counts as valid", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		ok, err := c.ValidateKey(context.Background())
		assert.True(t, ok)
		assert.NoError(t, err)
	})

	t.Run("accepted key", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"voices":[]}`)
		})
		ok, err := c.ValidateKey(context.Background())
		assert.True(t, ok)
		assert.NoError(t, err)
	})

	t.Run("unreachable service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		c := NewClient("test-key", WithBaseURL(url))
		ok, err := c.ValidateKey(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrTransport)
		assert.NotErrorIs(t, err, ErrAuth)
	})

	t.Run("empty key", func(t *testing.T) {
		ok, err := NewClient("").ValidateKey(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTextToSpeech(t *testing.T) {
	var got textToSpeechBody
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xff, 0xfb, 0x90})
	})

	t.Run("standard model", func(t *testing.T) {
		audio, err := c.TextToSpeech(context.Background(), TextToSpeechRequest{
			Text:           "Hello",
			VoiceID:        "voice-1",
			Settings:       VoiceSettings{Stability: 1.4, SimilarityBoost: -0.1},
			SoundEffectTag: "echo",
		})
		require.NoError(t, err)
		assert.Equal(t, "/text-to-speech/voice-1", path)
		assert.Equal(t, "Hello", got.Text, "tag only applies to the extended model")
		assert.Equal(t, DefaultModels.TextToSpeech, got.ModelID)
		assert.Equal(t, VoiceSettings{Stability: 1, SimilarityBoost: 0}, got.VoiceSettings)
		assert.Equal(t, []byte{0xff, 0xfb, 0x90}, audio.Data)
		assert.Equal(t, "audio/mpeg", audio.MimeType)
		assert.True(t, strings.HasPrefix(audio.DataURI(), "data:audio/mpeg;base64,"))
	})

	t.Run("extended model with tag", func(t *testing.T) {
		_, err := c.TextToSpeech(context.Background(), TextToSpeechRequest{
			Text:             "Hello",
			VoiceID:          "voice-1",
			Settings:         DefaultVoiceSettings,
			UseExtendedModel: true,
			SoundEffectTag:   "echo",
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultModels.Extended, got.ModelID)
		assert.Equal(t, "[echo] Hello", got.Text)
	})

	t.Run("NaN settings are sent clamped", func(t *testing.T) {
		_, err := c.TextToSpeech(context.Background(), TextToSpeechRequest{
			Text:     "Hello",
			VoiceID:  "voice-1",
			Settings: VoiceSettings{Stability: math.NaN(), SimilarityBoost: math.NaN()},
		})
		require.NoError(t, err)
		assert.Equal(t, VoiceSettings{}, got.VoiceSettings)
	})

	t.Run("validation happens before any request", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

		_, err := c.TextToSpeech(context.Background(), TextToSpeechRequest{Text: "  ", VoiceID: "v"})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = c.TextToSpeech(context.Background(), TextToSpeechRequest{Text: "hi"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, calls.Load())
	})
}

func TestVoiceSettingsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   VoiceSettings
		want VoiceSettings
	}{
		{"in range", VoiceSettings{Stability: 0.3, SimilarityBoost: 0.8}, VoiceSettings{Stability: 0.3, SimilarityBoost: 0.8}},
		{"above", VoiceSettings{Stability: 1.5, SimilarityBoost: 2}, VoiceSettings{Stability: 1, SimilarityBoost: 1}},
		{"below", VoiceSettings{Stability: -1, SimilarityBoost: -0.1}, VoiceSettings{Stability: 0, SimilarityBoost: 0}},
		{"NaN", VoiceSettings{Stability: math.NaN(), SimilarityBoost: 2}, VoiceSettings{Stability: 0, SimilarityBoost: 1}},
		{"infinite", VoiceSettings{Stability: math.Inf(1), SimilarityBoost: math.Inf(-1)}, VoiceSettings{Stability: 1, SimilarityBoost: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestApplySoundEffectTag(t *testing.T) {
	tests := []struct {
		text, tag, want string
	}{
		{"Hi", "", "Hi"},
		{"Hi", "none", "Hi"},
		{"Hi", "echo", "[echo] Hi"},
		{"Hi", "[echo]", "[echo] Hi"},
		{"[echo] Hi", "echo", "[echo] Hi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplySoundEffectTag(tt.text, tt.tag), "text %q tag %q", tt.text, tt.tag)
	}
}

func TestSpeechToSpeech(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech-to-speech/voice-2", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "voice-2", r.FormValue("voice_id"))
		assert.Equal(t, DefaultModels.SpeechToSpeech, r.FormValue("model_id"))
		assert.Equal(t, "0.5", r.FormValue("stability"))
		assert.Equal(t, "0.75", r.FormValue("similarity_boost"))

		f, h, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "in.wav", h.Filename)
		assert.Equal(t, "audio/wav", h.Header.Get("Content-Type"))
		assert.Equal(t, []byte("RIFF"), data)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("converted"))
	})

	audio, err := c.SpeechToSpeech(context.Background(), SpeechToSpeechRequest{
		Source:   AudioInput{Name: "in.wav", MimeType: "audio/wav", Data: []byte("RIFF")},
		VoiceID:  "voice-2",
		Settings: DefaultVoiceSettings,
	})
	require.NoError(t, err)
	assert.Equal(t, "converted", string(audio.Data))
}

func TestUploadValidation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }, WithMaxUploadBytes(8))

	tests := []struct {
		name  string
		input AudioInput
	}{
		{"empty", AudioInput{Name: "a.mp3", MimeType: "audio/mpeg"}},
		{"too large", AudioInput{Name: "a.mp3", MimeType: "audio/mpeg", Data: make([]byte, 9)}},
		{"not audio", AudioInput{Name: "a.txt", MimeType: "text/plain", Data: []byte("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.IsolateVoice(context.Background(), VoiceIsolationRequest{Source: tt.input})
			assert.ErrorIs(t, err, ErrValidation)
			_, err = c.SpeechToSpeech(context.Background(), SpeechToSpeechRequest{Source: tt.input, VoiceID: "v"})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestIsolateVoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio-isolation", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("voice_id"))
		_, _, err := r.FormFile("audio")
		assert.NoError(t, err)
		// No content type: the client falls back to mpeg
		_, _ = w.Write([]byte("clean"))
	})

	audio, err := c.IsolateVoice(context.Background(), VoiceIsolationRequest{
		Source: AudioInput{Name: "noisy.webm", MimeType: "video/webm", Data: []byte("noisy")},
	})
	require.NoError(t, err)
	assert.Equal(t, "clean", string(audio.Data))
	assert.Equal(t, "audio/mpeg", audio.MimeType)
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListVoices(ctx)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIsAudioMime(t *testing.T) {
	assert.True(t, IsAudioMime("audio/mpeg"))
	assert.True(t, IsAudioMime("audio/webm;codecs=opus"))
	assert.True(t, IsAudioMime("video/webm"))
	assert.False(t, IsAudioMime("image/png"))
	assert.False(t, IsAudioMime(""))
}
