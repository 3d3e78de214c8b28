package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
)

var (
	// ErrNoRecorder is returned when no capture command is installed
	ErrNoRecorder = errors.New("no audio recorder found (install sox, alsa-utils or ffmpeg)")
	// ErrRecording is returned by Start while a recording is running
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when nothing is being recorded
	ErrNotRecording = errors.New("not recording")
)

// CommandBuilder returns the capture command writing WAV audio to path
type CommandBuilder func(ctx context.Context, path string) (*exec.Cmd, error)

// Recorder captures microphone audio through an external command. The
// capture device is held from Start until Stop, an error, or cancellation
// of the context given to Start.
type Recorder struct {
	build       CommandBuilder
	stopTimeout time.Duration

	mu      sync.Mutex
	session *recording
}

type recording struct {
	cmd     *exec.Cmd
	dir     string
	path    string
	done    chan struct{}
	waitErr error
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithCommandBuilder replaces the capture command
func WithCommandBuilder(b CommandBuilder) RecorderOption {
	return func(r *Recorder) { r.build = b }
}

// WithStopTimeout bounds how long Stop waits for the capture command to
// finish writing before killing it
func WithStopTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.stopTimeout = d }
}

// NewRecorder creates a recorder using the platform's capture commands
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{build: DefaultCommandBuilder, stopTimeout: 3 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultCommandBuilder picks sox, arecord or ffmpeg, in that order
func DefaultCommandBuilder(ctx context.Context, path string) (*exec.Cmd, error) {
	switch {
	case isCommandAvailable("rec"):
		return exec.CommandContext(ctx, "rec", "-q", "-c", "1", "-r", "44100", path), nil
	case isCommandAvailable("arecord"):
		return exec.CommandContext(ctx, "arecord", "-q", "-f", "cd", "-t", "wav", path), nil
	case isCommandAvailable("ffmpeg"):
		input := []string{"-f", "alsa", "-i", "default"}
		switch runtime.GOOS {
		case "darwin":
			input = []string{"-f", "avfoundation", "-i", ":0"}
		case "windows":
			input = []string{"-f", "dshow", "-i", "audio=default"}
		}
		args := append([]string{"-loglevel", "quiet", "-y"}, input...)
		args = append(args, "-ac", "1", path)
		return exec.CommandContext(ctx, "ffmpeg", args...), nil
	default:
		return nil, ErrNoRecorder
	}
}

// Recording reports whether capture is running
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Start begins capturing. Cancelling ctx stops capture and discards the
// recording.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrRecording
	}

	dir, err := os.MkdirTemp("", "voicealchemy-rec-*")
	if err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	path := filepath.Join(dir, "recording.wav")

	cmd, err := r.build(ctx, path)
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to start recording: %w", err)
	}

	s := &recording{cmd: cmd, dir: dir, path: path, done: make(chan struct{})}
	r.session = s
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()
	go r.watch(ctx, s)

	log.Debug().Str("command", cmd.Path).Msg("Recording started")
	return nil
}

// watch releases the session if capture ends without Stop
func (r *Recorder) watch(ctx context.Context, s *recording) {
	select {
	case <-s.done:
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-s.done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != s {
		return
	}
	r.session = nil
	os.RemoveAll(s.dir)
	if ctx.Err() != nil {
		log.Debug().Msg("Recording cancelled")
	} else {
		log.Warn().Err(s.waitErr).Msg("Recording ended unexpectedly")
	}
}

// Stop ends capture and returns the recorded audio. Calling Stop when no
// recording runs returns ErrNotRecording.
func (r *Recorder) Stop() (elevenlabs.AudioInput, error) {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()

	if s == nil {
		return elevenlabs.AudioInput{}, ErrNotRecording
	}
	defer os.RemoveAll(s.dir)

	// Capture tools finalize the WAV header on interrupt
	if err := interrupt(s.cmd.Process); err != nil {
		_ = s.cmd.Process.Kill()
	}
	select {
	case <-s.done:
	case <-time.After(r.stopTimeout):
		_ = s.cmd.Process.Kill()
		<-s.done
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return elevenlabs.AudioInput{}, fmt.Errorf("failed to read recording: %w", err)
	}
	if len(data) == 0 {
		return elevenlabs.AudioInput{}, fmt.Errorf("recording is empty")
	}

	log.Debug().Int("bytes", len(data)).Msg("Recording stopped")
	return elevenlabs.AudioInput{
		Name:     fmt.Sprintf("recording-%s.wav", time.Now().Format("20060102-150405")),
		MimeType: "audio/wav",
		Data:     data,
	}, nil
}

func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

func isCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
