package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type soundEffectBody struct {
	Text            string   `json:"text"`
	ModelID         string   `json:"model_id"`
	OutputFormat    string   `json:"output_format"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	PromptInfluence float64  `json:"prompt_influence"`
}

// SoundEffectVariation is one generated variation
type SoundEffectVariation struct {
	// Index is the zero-based issue order of the request
	Index int
	Audio Audio
}

// VariationFailure records why one variation failed
type VariationFailure struct {
	Index int
	Err   error
}

// PartialFailure describes the variations that failed in an otherwise
// successful batch
type PartialFailure struct {
	Requested int
	Failures  []VariationFailure
}

func (p *PartialFailure) String() string {
	parts := make([]string, 0, len(p.Failures))
	for _, f := range p.Failures {
		parts = append(parts, fmt.Sprintf("#%d: %v", f.Index+1, f.Err))
	}
	return fmt.Sprintf("%d of %d variations failed (%s)", len(p.Failures), p.Requested, strings.Join(parts, "; "))
}

// SoundEffectBatch holds the successful variations in issue order
type SoundEffectBatch struct {
	Variations []SoundEffectVariation
	// Partial is nil when every variation succeeded
	Partial *PartialFailure
}

// GenerateSoundEffect issues one request per variation in parallel. The
// batch succeeds when at least one variation does; only a batch with no
// successes is an error.
func (c *Client) GenerateSoundEffect(ctx context.Context, r SoundEffectRequest) (*SoundEffectBatch, error) {
	const op = "generate sound effect"

	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return nil, validationError(op, "prompt is required")
	}
	r = r.Normalize()

	body := soundEffectBody{
		Text:            prompt,
		ModelID:         c.models.SoundEffects,
		OutputFormat:    c.outputFormat,
		PromptInfluence: r.PromptAdherence / 100,
	}
	if r.DurationSeconds > 0 {
		d := r.DurationSeconds
		body.DurationSeconds = &d
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Debug().
		Int("variations", r.Variations).
		Float64("duration", r.DurationSeconds).
		Float64("prompt_influence", body.PromptInfluence).
		Msg("Requesting sound effects")

	audios := make([]Audio, r.Variations)
	errs := make([]error, r.Variations)

	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}
	for i := 0; i < r.Variations; i++ {
		g.Go(func() error {
			audios[i], errs[i] = c.soundEffect(ctx, payload)
			// Outcomes are collected per slot so one failure does not
			// cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	batch := &SoundEffectBatch{}
	var failures []VariationFailure
	for i := range audios {
		if errs[i] != nil {
			failures = append(failures, VariationFailure{Index: i, Err: errs[i]})
			continue
		}
		batch.Variations = append(batch.Variations, SoundEffectVariation{Index: i, Audio: audios[i]})
	}

	if len(batch.Variations) == 0 {
		all := make([]error, len(failures))
		for i, f := range failures {
			all[i] = f.Err
		}
		kind, status := KindService, 0
		if first, ok := asError(failures[0].Err); ok {
			kind, status = first.Kind, first.Status
		}
		return nil, &Error{
			Kind:    kind,
			Op:      op,
			Status:  status,
			Message: "failed to generate any sound effect variation",
			Err:     errors.Join(all...),
		}
	}

	if len(failures) > 0 {
		batch.Partial = &PartialFailure{Requested: r.Variations, Failures: failures}
		log.Warn().
			Int("failed", len(failures)).
			Int("requested", r.Variations).
			Msg("Some sound effect variations failed")
	}
	return batch, nil
}

func (c *Client) soundEffect(ctx context.Context, payload []byte) (Audio, error) {
	const op = "generate sound effect"

	req, err := c.newRequest(ctx, http.MethodPost, soundEffectEndpoint, bytes.NewReader(payload), "application/json")
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", defaultAudioMime)

	resp, err := c.do(req, op, "Failed to generate sound effect")
	if err != nil {
		return Audio{}, err
	}
	return c.readAudio(resp, op)
}

// FormatDuration renders a sound effect duration, "auto" for zero
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "auto"
	}
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}
