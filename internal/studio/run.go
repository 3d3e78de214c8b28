package studio

import (
	"context"
	"fmt"

	"github.com/daikw/voicealchemy/internal/cost"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/request"
)

// Run executes a decoded request and returns its clips in order
func (s *Studio) Run(ctx context.Context, req request.Request) ([]Result, error) {
	switch r := req.(type) {
	case request.TextToSpeech:
		res, err := s.TextToSpeech(ctx, r.TextToSpeechRequest())
		if err != nil {
			return nil, err
		}
		return []Result{*res}, nil

	case request.SpeechToSpeech:
		sts, err := r.SpeechToSpeechRequest()
		if err != nil {
			return nil, s.invalidSource(err)
		}
		res, err := s.SpeechToSpeech(ctx, sts, form.InputUpload)
		if err != nil {
			return nil, err
		}
		return []Result{*res}, nil

	case request.VoiceIsolation:
		iso, err := r.VoiceIsolationRequest()
		if err != nil {
			return nil, s.invalidSource(err)
		}
		res, err := s.IsolateVoice(ctx, iso)
		if err != nil {
			return nil, err
		}
		return []Result{*res}, nil

	case request.SoundEffect:
		res, err := s.SoundEffect(ctx, r.SoundEffectRequest())
		if err != nil {
			return nil, err
		}
		return res.Results, nil
	}
	return nil, fmt.Errorf("unsupported request %T", req)
}

// RunAll executes requests one after another, stopping at the first failure
func (s *Studio) RunAll(ctx context.Context, reqs []request.Request) ([]Result, error) {
	var out []Result
	for i, req := range reqs {
		res, err := s.Run(ctx, req)
		if err != nil {
			return out, fmt.Errorf("request %d (%s): %w", i+1, req.Kind(), err)
		}
		out = append(out, res...)
	}
	return out, nil
}

// Estimate prices a request without sending it
func (s *Studio) Estimate(ctx context.Context, req request.Request) (float64, error) {
	switch r := req.(type) {
	case request.TextToSpeech:
		return s.pricing.TextToSpeech(r.Text), nil

	case request.SoundEffect:
		sfx := r.SoundEffectRequest()
		return s.pricing.SoundEffect(cost.Seconds(sfx.DurationSeconds), sfx.Variations), nil

	case request.SpeechToSpeech:
		in, err := r.Load()
		if err != nil {
			return 0, err
		}
		d, err := s.probe(ctx, in.Data)
		if err != nil {
			return 0, err
		}
		return s.pricing.SpeechToSpeech(d), nil

	case request.VoiceIsolation:
		in, err := r.Load()
		if err != nil {
			return 0, err
		}
		d, err := s.probe(ctx, in.Data)
		if err != nil {
			return 0, err
		}
		return s.pricing.VoiceIsolation(d), nil
	}
	return 0, fmt.Errorf("unsupported request %T", req)
}

func (s *Studio) invalidSource(err error) error {
	s.notify(LevelError, "toast.invalid_file")
	return fmt.Errorf("%w: %v", ErrInvalidFile, err)
}
