package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/voicealchemy/internal/config"
	"github.com/daikw/voicealchemy/internal/datauri"
	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/i18n"
	"github.com/daikw/voicealchemy/internal/mcpserver"
	"github.com/daikw/voicealchemy/internal/request"
	"github.com/daikw/voicealchemy/internal/storage"
	"github.com/daikw/voicealchemy/internal/studio"
)

var kindTitleKeys = map[history.Kind]string{
	history.KindTextToSpeech:   "nav.text_to_speech",
	history.KindSpeechToSpeech: "nav.speech_to_speech",
	history.KindSoundEffect:    "nav.sound_fx",
	history.KindVoiceIsolation: "nav.voice_isolator",
}

func formatCredits(credits float64) string {
	return humanize.Commaf(credits)
}

func handleCostTextToSpeech(ctx context.Context, c *cli.Command) error {
	text, err := readText(c, os.Stdin)
	if err != nil {
		return err
	}
	return printEstimate(ctx, c, request.TextToSpeech{Text: text})
}

func handleCostAudio(ctx context.Context, c *cli.Command) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("audio file is required")
	}
	source := request.AudioSource{Path: path}
	if c.Name == "isolate" {
		return printEstimate(ctx, c, request.VoiceIsolation{AudioSource: source})
	}
	return printEstimate(ctx, c, request.SpeechToSpeech{AudioSource: source})
}

func handleCostSoundEffect(ctx context.Context, c *cli.Command) error {
	variations := int(c.Int("variations"))
	return printEstimate(ctx, c, request.SoundEffect{
		DurationSeconds: c.Float64("duration"),
		Variations:      &variations,
	})
}

func printEstimate(ctx context.Context, c *cli.Command, req request.Request) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	credits, err := s.studio.Estimate(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(s.studio.Translator().T("common.cost", formatCredits(credits)))
	return nil
}

func handleHistoryList(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()
	tr := s.studio.Translator()

	var kind history.Kind
	if k := c.String("kind"); k != "" {
		kind = history.Kind(k)
		if !kind.Valid() {
			return fmt.Errorf("unknown kind %q", k)
		}
	}

	var entries []history.Entry
	for _, e := range s.history.Entries() {
		if kind == "" || e.Kind == kind {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		fmt.Println(tr.T("history.empty"))
		return nil
	}

	fmt.Println(tr.T("history.heading", len(entries)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tCREATED\tVOICE\tINPUT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID), tr.T(kindTitleKeys[e.Kind]), humanize.Time(e.CreatedAt),
			orDash(e.VoiceName), truncate(e.Input, 48))
	}
	return w.Flush()
}

func handleHistoryShow(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.history.Find(c.Args().Get(0))
	if err != nil {
		return err
	}
	audio, err := studio.EntryAudio(e)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", e.ID)
	fmt.Fprintf(w, "Kind:\t%s\n", s.studio.Translator().T(kindTitleKeys[e.Kind]))
	fmt.Fprintf(w, "Created:\t%s (%s)\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(e.CreatedAt))
	fmt.Fprintf(w, "Input:\t%s\n", e.Input)
	if e.VoiceName != "" {
		fmt.Fprintf(w, "Voice:\t%s\n", e.VoiceName)
	}
	if e.Model != "" {
		fmt.Fprintf(w, "Model:\t%s\n", e.Model)
	}
	if e.EffectTag != "" {
		fmt.Fprintf(w, "Effect:\t%s\n", e.EffectTag)
	}
	fmt.Fprintf(w, "Audio:\t%s, %s\n", audio.MimeType, humanize.IBytes(uint64(len(audio.Data))))
	return w.Flush()
}

func handleHistoryExport(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.history.Find(c.Args().Get(0))
	if err != nil {
		return err
	}
	audio, err := studio.EntryAudio(e)
	if err != nil {
		return err
	}
	return s.deliver(ctx, c.String("output"), c.Bool("play"), audio, studio.EntryFileName(e))
}

func handleHistoryRemove(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.history.Find(c.Args().Get(0))
	if err != nil {
		return err
	}
	s.history.Remove(e.ID)
	s.console.Notify(studio.LevelSuccess, s.studio.Translator().T("toast.history_removed", studio.EntryFileName(e)))
	return nil
}

func handleHistoryClear(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	s.history.Clear()
	s.console.Notify(studio.LevelSuccess, s.studio.Translator().T("toast.history_cleared"))
	return nil
}

func handleFormShow(ctx context.Context, c *cli.Command) error {
	features := form.Features
	if name := c.Args().Get(0); name != "" {
		f, err := form.ParseFeature(name)
		if err != nil {
			return err
		}
		features = []form.Feature{f}
	}

	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, f := range features {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", s.studio.Translator().T(studio.FeatureTitleKey(f)))
		for _, field := range formFields(s.store, f) {
			fmt.Fprintf(w, "  %s:\t%s\n", field[0], field[1])
		}
	}
	return w.Flush()
}

// formFields summarizes the saved state of f as label/value pairs
func formFields(store *storage.Store, f form.Feature) [][2]string {
	switch f {
	case form.FeatureTextToSpeech:
		st := form.LoadTextToSpeech(store)
		return [][2]string{
			{"Text", orDash(truncate(st.Text, 60))},
			{"Voice", orDash(st.VoiceID)},
			{"Extended model", fmt.Sprint(st.UseExtendedModel)},
			{"Sound effect", st.SoundEffectTag},
			{"Stability", fmt.Sprintf("%.2f", st.Settings.Stability)},
			{"Similarity", fmt.Sprintf("%.2f", st.Settings.SimilarityBoost)},
			{"Last audio", dataSize(st.ConvertedAudio)},
		}
	case form.FeatureSpeechToSpeech:
		st := form.LoadSpeechToSpeech(store)
		return [][2]string{
			{"Audio file", fileSummary(st.AudioFile)},
			{"Input mode", string(st.InputMode)},
			{"Voice", orDash(st.VoiceID)},
			{"Stability", fmt.Sprintf("%.2f", st.Settings.Stability)},
			{"Similarity", fmt.Sprintf("%.2f", st.Settings.SimilarityBoost)},
			{"Last audio", dataSize(st.ConvertedAudio)},
		}
	case form.FeatureVoiceIsolator:
		st := form.LoadVoiceIsolator(store)
		return [][2]string{
			{"Audio file", fileSummary(st.AudioFile)},
			{"Last audio", dataSize(st.ProcessedAudio)},
		}
	case form.FeatureSoundEffect:
		st := form.LoadSoundEffect(store)
		return [][2]string{
			{"Prompt", orDash(truncate(st.Prompt, 60))},
			{"Duration", elevenlabs.FormatDuration(st.Settings.DurationSeconds)},
			{"Prompt adherence", fmt.Sprintf("%g%%", st.Settings.PromptAdherence)},
			{"Variations", fmt.Sprint(st.Settings.Variations)},
			{"Generated", fmt.Sprint(len(st.Generated))},
		}
	}
	return nil
}

// handleFormExport writes or plays the audio a feature produced last. The
// play subcommand only plays.
func handleFormExport(ctx context.Context, c *cli.Command) error {
	f, err := form.ParseFeature(c.Args().Get(0))
	if err != nil {
		return err
	}
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	clips := s.studio.LastAudio(f)
	if len(clips) == 0 {
		return fmt.Errorf("no saved audio for %s", f)
	}

	target, play := c.String("output"), c.Bool("play") || c.Name == "play"
	if len(clips) > 1 && target != "" && !strings.HasSuffix(target, string(os.PathSeparator)) {
		// several clips never share one file name
		target += string(os.PathSeparator)
	}
	for i, a := range clips {
		base := string(f) + "-last"
		if len(clips) > 1 {
			base = fmt.Sprintf("%s-%d", base, i+1)
		}
		if err := s.deliver(ctx, target, play, a, base); err != nil {
			return err
		}
	}
	return nil
}

func handleFormClear(ctx context.Context, c *cli.Command) error {
	f, err := form.ParseFeature(c.Args().Get(0))
	if err != nil {
		return err
	}
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	s.studio.Clear(f)
	return nil
}

func handleLanguage(ctx context.Context, c *cli.Command) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	name := c.Args().Get(0)
	if name == "" {
		tr := s.studio.Translator()
		fmt.Println(tr.T("lang.current", tr.T("lang."+string(tr.Language()))))
		return nil
	}
	lang, err := i18n.Parse(name)
	if err != nil {
		return err
	}
	s.studio.SetLanguage(lang)
	return nil
}

func handleConfigShow(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Println(string(data))

	for _, problem := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", problem)
	}
	return nil
}

func handleConfigExample(ctx context.Context, c *cli.Command) error {
	fmt.Println(config.Example())
	return nil
}

func handleConfigPath(ctx context.Context, c *cli.Command) error {
	path := c.String("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	player, ok := commandPlayer(s.cfg).Available("clip.mp3")
	if !ok {
		player = "none found"
	}
	fmt.Printf("config: %s\ndata:   %s (%d stored values)\nplayer: %s\n",
		path, s.backend.Dir(), len(s.store.Keys()), player)
	return nil
}

func handleMCP(ctx context.Context, c *cli.Command) error {
	// stdout carries the protocol
	if !c.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	s, err := openSession(c, true,
		studio.WithNotifier(studio.NotifierFunc(func(level studio.Level, msg string) {
			log.Debug().Int("level", int(level)).Msg(msg)
		})),
		studio.WithIndicator(func(string) func() { return func() {} }),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	outDir := c.String("output")
	if outDir == "" {
		outDir = filepath.Join(s.backend.Dir(), "output")
	}
	log.Info().Str("output", outDir).Msg("Starting MCP server")
	return mcpserver.New(s.studio, outDir, version).ServeStdio()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fileSummary(f *storage.File) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s, %s)", f.Name, f.MimeType, humanize.IBytes(uint64(len(f.Data))))
}

func dataSize(uri string) string {
	if uri == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s encoded)", orDash(datauri.MimeType(uri)), humanize.IBytes(uint64(len(uri))))
}
