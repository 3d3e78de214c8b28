package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ListVoices returns the voices available to the account
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	const op = "list voices"

	req, err := c.newRequest(ctx, http.MethodGet, voicesEndpoint, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, op, "Failed to fetch voices")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Kind: KindService, Op: op, Status: resp.StatusCode, Message: "unexpected voices response", Err: fmt.Errorf("failed to decode voices response: %w", err)}
	}

	log.Debug().
		Int("voice_count", len(body.Voices)).
		Msg("ElevenLabs voices retrieved successfully")

	if body.Voices == nil {
		return []Voice{}, nil
	}
	return body.Voices, nil
}

// ValidateKey checks the key against the voices endpoint. A rejected key
// yields false with an auth error, an unreachable service yields false with
// a transport error, and any other response counts as valid.
func (c *Client) ValidateKey(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, validationError("validate key", "api key is required")
	}

	req, err := c.newRequest(ctx, http.MethodGet, voicesEndpoint, nil, "")
	if err != nil {
		return false, err
	}
	resp, err := c.do(req, "validate key", "Invalid API key")
	if err != nil {
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrTransport) {
			return false, err
		}
		return true, nil
	}
	resp.Body.Close()
	return true, nil
}
