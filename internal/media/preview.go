package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
)

// ErrNoPreview is returned for voices without a preview sample
var ErrNoPreview = errors.New("no preview available for this voice")

// Previewer plays voice preview samples. At most one preview plays at a
// time; starting a new one stops the current one first.
type Previewer struct {
	player     Player
	httpClient *http.Client

	// playMu serializes Play calls so stop-then-start is atomic
	playMu sync.Mutex

	mu      sync.Mutex
	current *activePreview
}

type activePreview struct {
	voiceID  string
	playback Playback
	path     string
}

// PreviewOption configures a Previewer
type PreviewOption func(*Previewer)

// WithPreviewHTTPClient sets the client used to download samples
func WithPreviewHTTPClient(hc *http.Client) PreviewOption {
	return func(p *Previewer) {
		if hc != nil {
			p.httpClient = hc
		}
	}
}

// NewPreviewer creates a previewer that plays through player
func NewPreviewer(player Player, opts ...PreviewOption) *Previewer {
	p := &Previewer{
		player:     player,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current returns the id of the voice being previewed, or ""
func (p *Previewer) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.voiceID
}

// Play downloads the voice's sample, stops any running preview and starts
// the new one. It returns once playback has started.
func (p *Previewer) Play(ctx context.Context, voice elevenlabs.Voice) (Playback, error) {
	if !voice.HasPreview() {
		return nil, ErrNoPreview
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	path, err := p.download(ctx, voice.PreviewURL)
	if err != nil {
		return nil, err
	}

	p.Stop()

	pb, err := p.player.Play(ctx, path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to play preview: %w", err)
	}

	active := &activePreview{voiceID: voice.ID, playback: pb, path: path}
	p.mu.Lock()
	p.current = active
	p.mu.Unlock()

	log.Debug().Str("voice", voice.ID).Msg("Playing voice preview")

	go func() {
		<-pb.Done()
		p.finish(active)
	}()
	return pb, nil
}

// Stop ends the running preview, if any, and waits for it to end
func (p *Previewer) Stop() {
	p.mu.Lock()
	active := p.current
	p.mu.Unlock()
	if active == nil {
		return
	}
	_ = active.playback.Stop()
	p.finish(active)
}

// finish clears active if it is still current and removes its sample
func (p *Previewer) finish(active *activePreview) {
	p.mu.Lock()
	if p.current == active {
		p.current = nil
	}
	p.mu.Unlock()
	os.Remove(active.path)
}

func (p *Previewer) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create preview request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download preview: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download preview: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to download preview: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if !elevenlabs.IsAudioMime(mimeType) {
		mimeType = "audio/mpeg"
	}
	return WriteTemp(data, mimeType)
}
