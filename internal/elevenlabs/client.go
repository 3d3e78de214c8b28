// Package elevenlabs is a client for the ElevenLabs voice API.
package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.elevenlabs.io/v1"
	DefaultOutputFormat = "mp3_44100_128"
	// DefaultMaxUploadBytes is the largest audio file accepted for upload
	DefaultMaxUploadBytes = 10 << 20
	DefaultTimeout        = 60 * time.Second

	voicesEndpoint         = "/voices"
	textToSpeechEndpoint   = "/text-to-speech"
	speechToSpeechEndpoint = "/speech-to-speech"
	soundEffectEndpoint    = "/sound-generation"
	isolationEndpoint      = "/audio-isolation"

	defaultAudioMime = "audio/mpeg"
)

// Models names the model used by each operation
type Models struct {
	TextToSpeech   string `json:"textToSpeech,omitempty" env:"TEXT_TO_SPEECH"`
	Extended       string `json:"extended,omitempty" env:"EXTENDED"`
	SpeechToSpeech string `json:"speechToSpeech,omitempty" env:"SPEECH_TO_SPEECH"`
	SoundEffects   string `json:"soundEffects,omitempty" env:"SOUND_EFFECTS"`
}

// DefaultModels are the models used when none are configured
var DefaultModels = Models{
	TextToSpeech:   "eleven_multilingual_v2",
	Extended:       "eleven_v3",
	SpeechToSpeech: "eleven_multilingual_sts_v2",
	SoundEffects:   "eleven_creative_studio_sound_effects",
}

// WithDefaults fills empty model ids from DefaultModels
func (m Models) WithDefaults() Models {
	if m.TextToSpeech == "" {
		m.TextToSpeech = DefaultModels.TextToSpeech
	}
	if m.Extended == "" {
		m.Extended = DefaultModels.Extended
	}
	if m.SpeechToSpeech == "" {
		m.SpeechToSpeech = DefaultModels.SpeechToSpeech
	}
	if m.SoundEffects == "" {
		m.SoundEffects = DefaultModels.SoundEffects
	}
	return m
}

// Client talks to the ElevenLabs API with a user-supplied key
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	models         Models
	outputFormat   string
	limiter        *rate.Limiter
	maxUploadBytes int64
	maxConcurrency int
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithModels overrides model ids; empty fields keep their defaults
func WithModels(m Models) Option {
	return func(c *Client) {
		c.models = m.WithDefaults()
	}
}

// WithOutputFormat sets the sound effect output format
func WithOutputFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.outputFormat = format
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithMaxUploadBytes sets the upload size limit
func WithMaxUploadBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithMaxConcurrency bounds the number of sound effect variations generated
// at once. Zero means all variations run together.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		c.maxConcurrency = max(n, 0)
	}
}

// NewClient creates a client for apiKey
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:         apiKey,
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		models:         DefaultModels,
		outputFormat:   DefaultOutputFormat,
		limiter:        rate.NewLimiter(rate.Inf, 0),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models returns the model ids in use
func (c *Client) Models() Models {
	return c.models
}

// MaxUploadBytes returns the upload size limit
func (c *Client) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends req and turns transport failures and non-2xx responses into
// *Error. On success the caller owns the response body.
func (c *Client) do(req *http.Request, op, fallback string) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, transportError(op, err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("endpoint", req.URL.Path).
		Msg("Making ElevenLabs request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := statusError(op, resp.StatusCode, body, fallback)
		log.Debug().
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("ElevenLabs request failed")
		return nil, apiErr
	}

	return resp, nil
}

// readAudio buffers an audio response
func (c *Client) readAudio(resp *http.Response, op string) (Audio, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, transportError(op, err)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)
	if !strings.HasPrefix(mime, "audio/") {
		mime = defaultAudioMime
	}

	log.Debug().
		Int("bytes", len(data)).
		Str("content_type", mime).
		Msg("ElevenLabs audio received")

	return Audio{Data: data, MimeType: mime}, nil
}

// validateUpload checks an audio file before it is sent
func (c *Client) validateUpload(op string, in AudioInput) error {
	if len(in.Data) == 0 {
		return validationError(op, "audio file is required")
	}
	if int64(len(in.Data)) > c.maxUploadBytes {
		return validationError(op, fmt.Sprintf("audio file exceeds the %d MB limit", c.maxUploadBytes>>20))
	}
	if !IsAudioMime(in.MimeType) {
		return validationError(op, fmt.Sprintf("unsupported file type %q, an audio file is required", in.MimeType))
	}
	return nil
}

// IsAudioMime reports whether mime names an uploadable audio type
func IsAudioMime(mime string) bool {
	mime = strings.ToLower(mime)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return true
	case mime == "video/webm", mime == "application/ogg":
		// recordings are commonly labelled with their container type
		return true
	}
	return false
}

// DetectMime sniffs the content type of data
func DetectMime(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// asError extracts *Error from err
func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
