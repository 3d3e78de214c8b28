package datauri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "data:audio/mpeg;base64,AQID", Encode("audio/mpeg", []byte{1, 2, 3}))
	assert.Equal(t, "data:audio/mpeg;base64,", Encode("audio/mpeg", nil))
}

func TestDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		data := []byte{0x00, 0xff, 0x10, 0x7f}
		mime, got, err := Decode(Encode("audio/wav", data))
		require.NoError(t, err)
		assert.Equal(t, "audio/wav", mime)
		assert.Equal(t, data, got)
	})

	t.Run("strips mime parameters", func(t *testing.T) {
		mime, got, err := Decode("data:audio/webm;codecs=opus;base64,AQ==")
		require.NoError(t, err)
		assert.Equal(t, "audio/webm", mime)
		assert.Equal(t, []byte{1}, got)
	})

	tests := []struct {
		name  string
		input string
	}{
		{"no comma", "data:audio/mpeg;base64"},
		{"no data prefix", "audio/mpeg;base64,AQID"},
		{"not base64", "data:text/plain,hello"},
		{"bad payload", "data:audio/mpeg;base64,@@@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.input)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeType("data:audio/mpeg;base64,AQID"))
	assert.Equal(t, "", MimeType("not a uri"))
}
