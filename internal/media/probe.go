package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownDuration is returned when the length of audio cannot be determined
var ErrUnknownDuration = errors.New("could not determine audio duration")

// Duration returns the playing time of audio. WAV files are measured from
// their header; other formats need ffprobe.
func Duration(ctx context.Context, data []byte) (time.Duration, error) {
	if d, err := WAVDuration(data); err == nil {
		return d, nil
	}
	if !isCommandAvailable("ffprobe") {
		return 0, ErrUnknownDuration
	}

	path, err := WriteTemp(data, "")
	if err != nil {
		return 0, err
	}
	defer os.Remove(path)
	return probeFile(ctx, path)
}

func probeFile(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path).Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v", ErrUnknownDuration, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || secs < 0 {
		return 0, ErrUnknownDuration
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// WAVDuration reads the duration from a RIFF/WAVE header by walking the
// chunks up to "data"
func WAVDuration(data []byte) (time.Duration, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return 0, ErrUnknownDuration
	}

	var byteRate uint32
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8

		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, ErrUnknownDuration
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, ErrUnknownDuration
			}
			// Streaming recorders leave the size unset
			if size == 0 || size == 0xFFFFFFFF {
				return 0, ErrUnknownDuration
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), nil
		}

		// A chunk running past the end means a corrupt header
		if uint64(size) > uint64(len(data)-body) {
			return 0, ErrUnknownDuration
		}
		// Chunks are padded to even sizes
		pos = body + int(size) + int(size&1)
	}
	return 0, ErrUnknownDuration
}
