// Package media plays, records and inspects local audio.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNoPlayer is returned when no audio player command is installed
var ErrNoPlayer = errors.New("no audio player found")

// Playback is a running playback
type Playback interface {
	// Stop ends playback early. Calling it after playback ended is a no-op.
	Stop() error
	// Done is closed when playback ends
	Done() <-chan struct{}
	// Err reports why playback ended once Done is closed
	Err() error
}

// Player starts playback of an audio file
type Player interface {
	Play(ctx context.Context, path string) (Playback, error)
}

type playerCommand struct {
	name string
	args []string
	// wavOnly players cannot decode compressed formats
	wavOnly bool
}

// defaultPlayers in order of preference: macOS, ffmpeg, mpv, PulseAudio, ALSA
var defaultPlayers = []playerCommand{
	{name: "afplay"},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "mpv", args: []string{"--no-video", "--really-quiet"}},
	{name: "paplay"},
	{name: "aplay", args: []string{"-q"}, wavOnly: true},
}

// CommandPlayer plays audio with the first installed player command
type CommandPlayer struct {
	commands []playerCommand
	lookPath func(string) (string, error)
}

// NewCommandPlayer creates a player using the platform's audio commands
func NewCommandPlayer() *CommandPlayer {
	return &CommandPlayer{commands: defaultPlayers, lookPath: exec.LookPath}
}

// NewCommandPlayerWith uses a specific command, e.g. "mpv --no-video"
func NewCommandPlayerWith(command string) *CommandPlayer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return NewCommandPlayer()
	}
	return &CommandPlayer{
		commands: []playerCommand{{name: fields[0], args: fields[1:]}},
		lookPath: exec.LookPath,
	}
}

// Available returns the player command that would be used for path
func (p *CommandPlayer) Available(path string) (string, bool) {
	c, ok := p.pick(path)
	return c.name, ok
}

func (p *CommandPlayer) pick(path string) (playerCommand, bool) {
	isWav := strings.HasSuffix(strings.ToLower(path), ".wav")
	for _, c := range p.commands {
		if c.wavOnly && !isWav {
			continue
		}
		if _, err := p.lookPath(c.name); err == nil {
			return c, true
		}
	}
	return playerCommand{}, false
}

// Play starts the player in the background
func (p *CommandPlayer) Play(ctx context.Context, path string) (Playback, error) {
	c, ok := p.pick(path)
	if !ok {
		return nil, ErrNoPlayer
	}

	args := append(append([]string(nil), c.args...), path)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to play audio: %w", err)
	}

	log.Debug().Str("player", c.name).Str("file", path).Msg("Started playback")
	return newCommandPlayback(cmd), nil
}

type commandPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error

	stopOnce sync.Once
}

func newCommandPlayback(cmd *exec.Cmd) *commandPlayback {
	pb := &commandPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		pb.err = cmd.Wait()
		close(pb.done)
	}()
	return pb
}

func (pb *commandPlayback) Stop() error {
	pb.stopOnce.Do(func() {
		select {
		case <-pb.done:
			return
		default:
		}
		if err := pb.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Debug().Err(err).Msg("Failed to stop playback")
		}
	})
	<-pb.done
	return nil
}

func (pb *commandPlayback) Done() <-chan struct{} { return pb.done }

func (pb *commandPlayback) Err() error {
	select {
	case <-pb.done:
		return pb.err
	default:
		return nil
	}
}

// PlayFile plays path and blocks until playback ends or ctx is cancelled
func PlayFile(ctx context.Context, player Player, path string) error {
	pb, err := player.Play(ctx, path)
	if err != nil {
		return err
	}
	select {
	case <-pb.Done():
		return nil
	case <-ctx.Done():
		_ = pb.Stop()
		return ctx.Err()
	}
}

// PlayData writes data to a temp file, plays it to completion and removes
// the file
func PlayData(ctx context.Context, player Player, data []byte, mimeType string) error {
	path, err := WriteTemp(data, mimeType)
	if err != nil {
		return err
	}
	defer os.Remove(path)
	return PlayFile(ctx, player, path)
}

// WriteTemp stores data in a temp file named for its mime type
func WriteTemp(data []byte, mimeType string) (string, error) {
	f, err := os.CreateTemp("", "voicealchemy-*"+ExtensionFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Name(), nil
}

// ExtensionFor returns the file extension used for an audio mime type
func ExtensionFor(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/wave", "audio/x-wav":
		return ".wav"
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/flac":
		return ".flac"
	case "audio/mp4", "audio/aac":
		return ".m4a"
	default:
		return ".bin"
	}
}
