package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type textToSpeechBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// TextToSpeech converts text to speech with the requested voice
func (c *Client) TextToSpeech(ctx context.Context, r TextToSpeechRequest) (Audio, error) {
	const op = "text to speech"

	text := strings.TrimSpace(r.Text)
	if text == "" {
		return Audio{}, validationError(op, "text is required")
	}
	if r.VoiceID == "" {
		return Audio{}, validationError(op, "voice is required")
	}

	model := c.models.TextToSpeech
	if r.UseExtendedModel {
		model = c.models.Extended
		text = ApplySoundEffectTag(text, r.SoundEffectTag)
	}

	payload, err := json.Marshal(textToSpeechBody{
		Text:          text,
		ModelID:       model,
		VoiceSettings: r.Settings.Normalize(),
	})
	if err != nil {
		return Audio{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, textToSpeechEndpoint+"/"+url.PathEscape(r.VoiceID), bytes.NewReader(payload), "application/json")
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", defaultAudioMime)

	log.Debug().
		Str("voice", r.VoiceID).
		Str("model", model).
		Int("characters", len([]rune(text))).
		Msg("Requesting text to speech")

	resp, err := c.do(req, op, "Failed to convert text to speech")
	if err != nil {
		return Audio{}, err
	}
	return c.readAudio(resp, op)
}

// ApplySoundEffectTag prefixes text with "[tag] " unless the tag is empty,
// "none", or already leads the text.
func ApplySoundEffectTag(text, tag string) string {
	tag = strings.Trim(strings.TrimSpace(tag), "[]")
	if tag == "" || strings.EqualFold(tag, NoSoundEffectTag) {
		return text
	}
	prefix := "[" + tag + "]"
	if strings.HasPrefix(text, prefix) {
		return text
	}
	return prefix + " " + text
}

// SpeechToSpeech re-voices the source audio with the requested voice
func (c *Client) SpeechToSpeech(ctx context.Context, r SpeechToSpeechRequest) (Audio, error) {
	const op = "speech to speech"

	if r.VoiceID == "" {
		return Audio{}, validationError(op, "voice is required")
	}
	if err := c.validateUpload(op, r.Source); err != nil {
		return Audio{}, err
	}

	settings := r.Settings.Normalize()
	body, contentType, err := multipartBody(r.Source, map[string]string{
		"voice_id":         r.VoiceID,
		"model_id":         c.models.SpeechToSpeech,
		"stability":        strconv.FormatFloat(settings.Stability, 'f', -1, 64),
		"similarity_boost": strconv.FormatFloat(settings.SimilarityBoost, 'f', -1, 64),
	})
	if err != nil {
		return Audio{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, speechToSpeechEndpoint+"/"+url.PathEscape(r.VoiceID), body, contentType)
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", defaultAudioMime)

	log.Debug().
		Str("voice", r.VoiceID).
		Str("file", r.Source.Name).
		Int("bytes", len(r.Source.Data)).
		Msg("Requesting speech to speech")

	resp, err := c.do(req, op, "Failed to convert audio")
	if err != nil {
		return Audio{}, err
	}
	return c.readAudio(resp, op)
}

// IsolateVoice strips background noise from the source audio
func (c *Client) IsolateVoice(ctx context.Context, r VoiceIsolationRequest) (Audio, error) {
	const op = "isolate voice"

	if err := c.validateUpload(op, r.Source); err != nil {
		return Audio{}, err
	}

	body, contentType, err := multipartBody(r.Source, nil)
	if err != nil {
		return Audio{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, isolationEndpoint, body, contentType)
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", defaultAudioMime)

	log.Debug().
		Str("file", r.Source.Name).
		Int("bytes", len(r.Source.Data)).
		Msg("Requesting voice isolation")

	resp, err := c.do(req, op, "Failed to isolate voice")
	if err != nil {
		return Audio{}, err
	}
	return c.readAudio(resp, op)
}

// multipartBody encodes the file as the "audio" part followed by fields in
// key order.
func multipartBody(in AudioInput, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := in.Name
	if name == "" {
		name = "audio"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, name))
	h.Set("Content-Type", in.MimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write audio part: %w", err)
	}

	for _, k := range []string{"voice_id", "model_id", "stability", "similarity_boost"} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
