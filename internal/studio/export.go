package studio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daikw/voicealchemy/internal/datauri"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/media"
)

// EntryAudio decodes the audio of a history entry
func EntryAudio(e history.Entry) (elevenlabs.Audio, error) {
	mimeType, data, err := datauri.Decode(e.AudioURL)
	if err != nil {
		return elevenlabs.Audio{}, fmt.Errorf("failed to decode audio of %s: %w", e.ID, err)
	}
	return elevenlabs.Audio{Data: data, MimeType: mimeType}, nil
}

// EntryFileName is the default export name of an entry, without extension
func EntryFileName(e history.Entry) string {
	id := e.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s", e.Kind, id)
}

// SaveAudio writes a into dir as base plus an extension matching its mime
// type and returns the path
func SaveAudio(dir, base string, a elevenlabs.Audio) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, base+media.ExtensionFor(a.MimeType))
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	return path, nil
}
