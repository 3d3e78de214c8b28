package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/media"
	"github.com/daikw/voicealchemy/internal/request"
	"github.com/daikw/voicealchemy/internal/studio"
)

func handleValidate(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.studio.ValidateKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate API key: %w", err)
	}
	if !ok {
		return fmt.Errorf("API key rejected")
	}
	return nil
}

func handleVoices(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if id := c.String("preview"); id != "" {
		return s.preview(ctx, id)
	}

	voices, err := s.studio.Voices(ctx)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Println("No voices available")
		return nil
	}

	title := cases.Title(language.Make(string(s.studio.Translator().Language())))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPREVIEW")
	for _, v := range voices {
		preview := "-"
		if v.HasPreview() {
			preview = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Name, orDash(title.String(v.Category)), preview)
	}
	return w.Flush()
}

// preview plays the sample of a voice to completion
func (s *session) preview(ctx context.Context, id string) error {
	tr := s.studio.Translator()
	voice, err := s.studio.Voice(ctx, id)
	if err != nil {
		return err
	}

	previewer := media.NewPreviewer(s.player())
	pb, err := previewer.Play(ctx, voice)
	if errors.Is(err, media.ErrNoPreview) {
		s.console.Notify(studio.LevelWarning, tr.T("common.no_preview"))
		return nil
	}
	if err != nil {
		return err
	}
	s.console.Notify(studio.LevelInfo, tr.T("common.previewing", voice.Name))

	select {
	case <-pb.Done():
		return pb.Err()
	case <-ctx.Done():
		previewer.Stop()
		return nil
	}
}

func handleTextToSpeech(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	text, err := readText(c, os.Stdin)
	if err != nil {
		return err
	}

	saved := form.LoadTextToSpeech(s.store)
	req := elevenlabs.TextToSpeechRequest{
		Text:             text,
		VoiceID:          c.String("voice"),
		Settings:         voiceSettings(c, saved.Settings),
		UseExtendedModel: saved.UseExtendedModel,
		SoundEffectTag:   saved.SoundEffectTag,
	}
	if c.IsSet("extended") {
		req.UseExtendedModel = c.Bool("extended")
	}
	if c.IsSet("effect") {
		tag := c.String("effect")
		if !slices.Contains(elevenlabs.SoundEffectTags, tag) {
			return fmt.Errorf("unknown sound effect %q (want one of %s)", tag, strings.Join(elevenlabs.SoundEffectTags, ", "))
		}
		req.SoundEffectTag = tag
	}

	res, err := s.studio.TextToSpeech(ctx, req)
	if err != nil {
		return err
	}
	return s.deliver(ctx, c.String("output"), c.Bool("play"), res.Audio, studio.EntryFileName(res.Entry))
}

func handleSpeechToSpeech(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	saved := form.LoadSpeechToSpeech(s.store)
	req := elevenlabs.SpeechToSpeechRequest{
		VoiceID:  c.String("voice"),
		Settings: voiceSettings(c, saved.Settings),
	}
	mode := saved.InputMode

	switch path := c.Args().Get(0); {
	case c.Bool("record"):
		if req.Source, err = s.record(ctx); err != nil {
			return err
		}
		mode = form.InputRecord
	case path != "":
		if req.Source, err = request.LoadAudioFile(path); err != nil {
			return err
		}
		mode = form.InputUpload
	}

	res, err := s.studio.SpeechToSpeech(ctx, req, mode)
	if err != nil {
		return err
	}
	return s.deliver(ctx, c.String("output"), c.Bool("play"), res.Audio, studio.EntryFileName(res.Entry))
}

// record captures the microphone until Enter is pressed
func (s *session) record(ctx context.Context) (elevenlabs.AudioInput, error) {
	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()
	return s.capture(ctx, media.NewRecorder(), enter)
}

// capture records with rec until stop is closed or ctx is done
func (s *session) capture(ctx context.Context, rec *media.Recorder, stop <-chan struct{}) (elevenlabs.AudioInput, error) {
	tr := s.studio.Translator()
	if err := rec.Start(ctx); err != nil {
		key := "toast.recording_failed"
		if errors.Is(err, media.ErrNoRecorder) {
			key = "toast.no_recorder"
		}
		s.console.Notify(studio.LevelError, tr.T(key))
		return elevenlabs.AudioInput{}, err
	}
	s.console.Notify(studio.LevelInfo, tr.T("common.recording"))

	select {
	case <-stop:
	case <-ctx.Done():
		// The capture is discarded either way
		if rec.Recording() {
			_, _ = rec.Stop()
		}
		return elevenlabs.AudioInput{}, ctx.Err()
	}

	in, err := rec.Stop()
	if err != nil {
		s.console.Notify(studio.LevelError, tr.T("toast.recording_failed"))
		return elevenlabs.AudioInput{}, err
	}
	return in, nil
}

func handleIsolateVoice(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var req elevenlabs.VoiceIsolationRequest
	if path := c.Args().Get(0); path != "" {
		if req.Source, err = request.LoadAudioFile(path); err != nil {
			return err
		}
	}

	res, err := s.studio.IsolateVoice(ctx, req)
	if err != nil {
		return err
	}
	return s.deliver(ctx, c.String("output"), c.Bool("play"), res.Audio, studio.EntryFileName(res.Entry))
}

func handleSoundEffect(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	saved := form.LoadSoundEffect(s.store)
	req := elevenlabs.SoundEffectRequest{
		Prompt:          strings.Join(c.Args().Slice(), " "),
		DurationSeconds: saved.Settings.DurationSeconds,
		PromptAdherence: saved.Settings.PromptAdherence,
		Variations:      saved.Settings.Variations,
	}
	if req.Prompt == "" {
		req.Prompt = saved.Prompt
	}
	if c.IsSet("duration") {
		req.DurationSeconds = c.Float64("duration")
	}
	if c.IsSet("adherence") {
		req.PromptAdherence = c.Float64("adherence")
	}
	if c.IsSet("variations") {
		req.Variations = int(c.Int("variations"))
	}

	res, err := s.studio.SoundEffect(ctx, req)
	if err != nil {
		return err
	}
	return s.deliverAll(ctx, c.String("output"), c.Bool("play"), res.Results)
}

func handleRun(ctx context.Context, c *cli.Command) error {
	var in io.Reader = os.Stdin
	if path := c.Args().Get(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open requests: %w", err)
		}
		defer f.Close()
		in = f
	}
	reqs, err := request.Decode(in)
	if err != nil {
		return err
	}

	estimate := c.Bool("estimate")
	s, err := openSession(c, !estimate)
	if err != nil {
		return err
	}
	defer s.Close()

	if estimate {
		total := 0.0
		for i, req := range reqs {
			credits, err := s.studio.Estimate(ctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i+1, req.Kind(), err)
			}
			fmt.Printf("%d\t%s\t%s\n", i+1, req.Kind(), formatCredits(credits))
			total += credits
		}
		fmt.Printf("total\t\t%s\n", formatCredits(total))
		return nil
	}

	results, err := s.studio.RunAll(ctx, reqs)
	// Clips made before a failure are still written
	if saveErr := s.deliverAll(ctx, c.String("output"), false, results); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

// deliver writes a clip to target, plays it, or both. Without a target
// and without play it is written to the working directory.
func (s *session) deliver(ctx context.Context, target string, play bool, a elevenlabs.Audio, base string) error {
	if target != "" || !play {
		path, err := writeAudio(target, base, a)
		if err != nil {
			return err
		}
		s.console.Notify(studio.LevelInfo, s.studio.Translator().T("common.saved_to", path))
	}
	if play {
		return s.play(ctx, a)
	}
	return nil
}

// deliverAll saves every clip into dir
func (s *session) deliverAll(ctx context.Context, dir string, play bool, results []studio.Result) error {
	for _, res := range results {
		path, err := studio.SaveAudio(dir, studio.EntryFileName(res.Entry), res.Audio)
		if err != nil {
			return err
		}
		s.console.Notify(studio.LevelInfo, s.studio.Translator().T("common.saved_to", path))
		if play {
			if err := s.play(ctx, res.Audio); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) play(ctx context.Context, a elevenlabs.Audio) error {
	err := media.PlayData(ctx, s.player(), a.Data, a.MimeType)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

// writeAudio stores a at target. A directory target, or none, gets a
// generated name; a target without extension gets one from the mime type.
func writeAudio(target, base string, a elevenlabs.Audio) (string, error) {
	if target == "" {
		target = "."
	}
	if info, err := os.Stat(target); (err == nil && info.IsDir()) || strings.HasSuffix(target, string(os.PathSeparator)) {
		return studio.SaveAudio(target, base, a)
	}
	if filepath.Ext(target) == "" {
		return studio.SaveAudio(filepath.Dir(target), filepath.Base(target), a)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(target, a.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	log.Debug().Str("path", target).Int("bytes", len(a.Data)).Msg("Wrote audio")
	return target, nil
}

// readText takes the text from --text or the arguments; "-" reads stdin
func readText(c *cli.Command, stdin io.Reader) (string, error) {
	text := c.String("text")
	if text == "" {
		text = strings.Join(c.Args().Slice(), " ")
	}
	if text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// voiceSettings starts from the saved settings and applies the flags given
func voiceSettings(c *cli.Command, saved elevenlabs.VoiceSettings) elevenlabs.VoiceSettings {
	settings := saved
	if c.IsSet("stability") {
		settings.Stability = c.Float64("stability")
	}
	if c.IsSet("similarity") {
		settings.SimilarityBoost = c.Float64("similarity")
	}
	return settings.Normalize()
}
