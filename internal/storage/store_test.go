package storage

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackend(filepath.Join(t.TempDir(), "data"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fb.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
	}
}

func TestStoreLoadDefault(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(b)
			assert.Equal(t, "fallback", s.Load("texttospeech_text", "fallback"))

			s.Save("texttospeech_text", "hello")
			assert.Equal(t, "hello", s.Load("texttospeech_text", "fallback"))

			// Idempotent save
			s.Save("texttospeech_text", "hello")
			assert.Equal(t, "hello", s.Load("texttospeech_text", "fallback"))

			s.Save("language", "de")
			assert.ElementsMatch(t, []string{"texttospeech_text", "language"}, s.Keys())

			s.Remove("texttospeech_text")
			s.Remove("texttospeech_text")
			assert.Equal(t, "fallback", s.Load("texttospeech_text", "fallback"))
			assert.Equal(t, []string{"language"}, s.Keys())
		})
	}
}

func TestStoreObjects(t *testing.T) {
	type settings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}
	def := settings{Stability: 0.5, SimilarityBoost: 0.75}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(b)
			assert.Equal(t, def, LoadObject(s, "texttospeech_settings", def))

			s.SaveObject("texttospeech_settings", settings{Stability: 0.2, SimilarityBoost: 0.9})
			assert.Equal(t, settings{Stability: 0.2, SimilarityBoost: 0.9}, LoadObject(s, "texttospeech_settings", def))

			s.Save("texttospeech_settings", "{not json")
			assert.Equal(t, def, LoadObject(s, "texttospeech_settings", def))
		})
	}
}

func TestStoreFiles(t *testing.T) {
	big := make([]byte, 3<<20)
	rand.New(rand.NewSource(1)).Read(big)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{0x42}},
		{"multi megabyte random", big},
		{"multi megabyte compressible", bytes.Repeat([]byte("voice"), 1<<20)},
	}

	for name, b := range backends(t) {
		s := NewStore(b)
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				in := &File{Name: "clip.mp3", MimeType: "audio/mpeg", Data: tt.data}
				s.SaveFile("speech2speech_audio_file", in)

				out := s.LoadFile("speech2speech_audio_file")
				require.NotNil(t, out)
				assert.Equal(t, "clip.mp3", out.Name)
				assert.Equal(t, "audio/mpeg", out.MimeType)
				assert.True(t, bytes.Equal(tt.data, out.Data), "payload changed in round trip")
			})
		}
	}
}

func TestStoreFileEdgeCases(t *testing.T) {
	s := NewMemoryStore()

	t.Run("missing", func(t *testing.T) {
		assert.Nil(t, s.LoadFile("voice_isolator_audio_file"))
	})

	t.Run("nil removes", func(t *testing.T) {
		s.SaveFile("voice_isolator_audio_file", &File{Name: "a.wav", MimeType: "audio/wav", Data: []byte{1}})
		require.True(t, s.Has("voice_isolator_audio_file"))
		s.SaveFile("voice_isolator_audio_file", nil)
		assert.False(t, s.Has("voice_isolator_audio_file"))
	})

	t.Run("malformed envelope", func(t *testing.T) {
		s.Save("voice_isolator_audio_file", `{"name":"a.wav","type":"audio/wav","data":"garbage"}`)
		assert.Nil(t, s.LoadFile("voice_isolator_audio_file"))
		s.Save("voice_isolator_audio_file", `[`)
		assert.Nil(t, s.LoadFile("voice_isolator_audio_file"))
	})

	t.Run("data URI mime wins", func(t *testing.T) {
		s.Save("voice_isolator_audio_file", `{"name":"a","type":"application/octet-stream","data":"data:audio/ogg;base64,AQ=="}`)
		f := s.LoadFile("voice_isolator_audio_file")
		require.NotNil(t, f)
		assert.Equal(t, "audio/ogg", f.MimeType)
	})

	t.Run("type used when URI has none", func(t *testing.T) {
		s.Save("voice_isolator_audio_file", `{"name":"a","type":"audio/wav","data":"data:;base64,AQ=="}`)
		f := s.LoadFile("voice_isolator_audio_file")
		require.NotNil(t, f)
		assert.Equal(t, "audio/wav", f.MimeType)
	})
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 3)
	require.NoError(t, err)
	defer fb.Close()

	t.Run("compresses large values", func(t *testing.T) {
		value := string(bytes.Repeat([]byte("a"), 64*1024))
		require.NoError(t, fb.Set("big", value))

		info, err := os.Stat(fb.pathFor("big"))
		require.NoError(t, err)
		assert.Less(t, info.Size(), int64(len(value)))

		got, ok, err := fb.Get("big")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, value, got)
	})

	t.Run("keys survive escaping", func(t *testing.T) {
		require.NoError(t, fb.Set("a/b c", "x"))
		keys, err := fb.Keys()
		require.NoError(t, err)
		assert.Contains(t, keys, "a/b c")
		assert.Contains(t, keys, "big")
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, valueExt, filepath.Ext(e.Name()))
		}
	})

	t.Run("corrupt file reports error", func(t *testing.T) {
		require.NoError(t, os.WriteFile(fb.pathFor("bad"), []byte{'z', 1, 2, 3}, 0600))
		_, _, err := fb.Get("bad")
		assert.Error(t, err)

		s := NewStore(fb)
		assert.Equal(t, "def", s.Load("bad", "def"))
	})

	t.Run("uncompressed backend reads compressed files", func(t *testing.T) {
		plain, err := NewFileBackend(dir, 0)
		require.NoError(t, err)
		defer plain.Close()

		got, ok, err := plain.Get("big")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Len(t, got, 64*1024)
	})
}
