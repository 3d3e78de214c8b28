// Package mcpserver exposes the voicealchemy features as MCP tools over
// stdio. Generated audio is written to an output directory and the tools
// return the file paths.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/elevenlabs"
	"github.com/daikw/voicealchemy/internal/form"
	"github.com/daikw/voicealchemy/internal/history"
	"github.com/daikw/voicealchemy/internal/request"
	"github.com/daikw/voicealchemy/internal/studio"
)

// Name is the server name advertised to clients
const Name = "voicealchemy"

// Server wraps an MCP server around a Studio
type Server struct {
	studio *studio.Studio
	outDir string
	mcp    *server.MCPServer
}

// New creates a server writing audio into outDir
func New(st *studio.Studio, outDir, version string) *Server {
	s := &Server{
		studio: st,
		outDir: outDir,
		mcp:    server.NewMCPServer(Name, version, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTools(s.Tools()...)
	return s
}

// ServeStdio serves until stdin closes
func (s *Server) ServeStdio() error {
	log.Debug().Str("output", s.outDir).Msg("Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// Tools returns every tool with its handler
func (s *Server) Tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("list_voices",
			mcp.WithDescription("List the ElevenLabs voices available to the API key"),
		), Handler: s.listVoices},

		{Tool: mcp.NewTool("text_to_speech",
			mcp.WithDescription("Convert text to speech and save the audio to a file"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Text to speak")),
			mcp.WithString("voice_id", mcp.Required(), mcp.Description("Voice id from list_voices")),
			mcp.WithNumber("stability", mcp.Description("Voice stability, 0 to 1 (default 0.5)")),
			mcp.WithNumber("similarity_boost", mcp.Description("Similarity boost, 0 to 1 (default 0.75)")),
			mcp.WithBoolean("use_extended_model", mcp.Description("Use the expressive model that supports sound effect tags")),
			mcp.WithString("sound_effect",
				mcp.Description("Delivery tag prefixed to the text with the extended model"),
				mcp.Enum(elevenlabs.SoundEffectTags...),
			),
		), Handler: s.textToSpeech},

		{Tool: mcp.NewTool("speech_to_speech",
			mcp.WithDescription("Re-voice a recording with another voice"),
			mcp.WithString("audio_path", mcp.Required(), mcp.Description("Path of the source recording (max 10 MB)")),
			mcp.WithString("voice_id", mcp.Required(), mcp.Description("Target voice id")),
			mcp.WithNumber("stability", mcp.Description("Voice stability, 0 to 1 (default 0.5)")),
			mcp.WithNumber("similarity_boost", mcp.Description("Similarity boost, 0 to 1 (default 0.75)")),
		), Handler: s.speechToSpeech},

		{Tool: mcp.NewTool("sound_effect",
			mcp.WithDescription("Generate sound effect variations from a prompt"),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("Description of the sound")),
			mcp.WithNumber("duration_seconds", mcp.Description("Length in seconds; 0 lets the service choose")),
			mcp.WithNumber("prompt_adherence", mcp.Description("How closely to follow the prompt, 0 to 100 (default 30)")),
			mcp.WithNumber("variations", mcp.Description("Number of variations, 1 to 8 (default 4)")),
		), Handler: s.soundEffect},

		{Tool: mcp.NewTool("isolate_voice",
			mcp.WithDescription("Remove background noise from a recording"),
			mcp.WithString("audio_path", mcp.Required(), mcp.Description("Path of the recording (max 10 MB)")),
		), Handler: s.isolateVoice},

		{Tool: mcp.NewTool("estimate_cost",
			mcp.WithDescription("Estimate the credits a request would use without sending it"),
			mcp.WithString("kind", mcp.Required(), mcp.Enum(kindNames()...)),
			mcp.WithString("text", mcp.Description("Text for text-to-speech")),
			mcp.WithString("audio_path", mcp.Description("Recording for speech-to-speech or voice isolation")),
			mcp.WithNumber("duration_seconds", mcp.Description("Sound effect length; 0 is automatic")),
			mcp.WithNumber("variations", mcp.Description("Sound effect variations (default 4)")),
		), Handler: s.estimateCost},

		{Tool: mcp.NewTool("history",
			mcp.WithDescription("List recent generations, newest first"),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 10)")),
		), Handler: s.listHistory},
	}
}

func kindNames() []string {
	names := make([]string, len(history.Kinds))
	for i, k := range history.Kinds {
		names[i] = string(k)
	}
	return names
}

func (s *Server) listVoices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	voices, err := s.studio.Voices(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	for _, v := range voices {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", v.ID, v.Name, v.Category)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) textToSpeech(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	voiceID, err := req.RequireString("voice_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.studio.TextToSpeech(ctx, elevenlabs.TextToSpeechRequest{
		Text:             text,
		VoiceID:          voiceID,
		Settings:         voiceSettings(req),
		UseExtendedModel: req.GetBool("use_extended_model", false),
		SoundEffectTag:   req.GetString("sound_effect", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.saved([]studio.Result{*res}, res.Credits, "")
}

func (s *Server) speechToSpeech(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("audio_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	voiceID, err := req.RequireString("voice_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := request.LoadAudioFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.studio.SpeechToSpeech(ctx, elevenlabs.SpeechToSpeechRequest{
		Source:   in,
		VoiceID:  voiceID,
		Settings: voiceSettings(req),
	}, form.InputUpload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.saved([]studio.Result{*res}, res.Credits, "")
}

func (s *Server) isolateVoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("audio_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := request.LoadAudioFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.studio.IsolateVoice(ctx, elevenlabs.VoiceIsolationRequest{Source: in})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.saved([]studio.Result{*res}, res.Credits, "")
}

func (s *Server) soundEffect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.studio.SoundEffect(ctx, request.SoundEffect{
		Prompt:          prompt,
		DurationSeconds: req.GetFloat("duration_seconds", 0),
		PromptAdherence: optionalFloat(req, "prompt_adherence"),
		Variations:      optionalInt(req, "variations"),
	}.SoundEffectRequest())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note := ""
	if res.Partial != nil {
		note = res.Partial.String()
	}
	return s.saved(res.Results, res.Credits, note)
}

func (s *Server) estimateCost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var r request.Request
	switch history.Kind(kind) {
	case history.KindTextToSpeech:
		r = request.TextToSpeech{Text: req.GetString("text", "")}
	case history.KindSoundEffect:
		r = request.SoundEffect{
			DurationSeconds: req.GetFloat("duration_seconds", 0),
			Variations:      optionalInt(req, "variations"),
		}
	case history.KindSpeechToSpeech:
		r = request.SpeechToSpeech{AudioSource: request.AudioSource{Path: req.GetString("audio_path", "")}}
	case history.KindVoiceIsolation:
		r = request.VoiceIsolation{AudioSource: request.AudioSource{Path: req.GetString("audio_path", "")}}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}

	credits, err := s.studio.Estimate(ctx, r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.studio.Translator().T("common.cost", credits)), nil
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	entries := s.studio.History().Entries()
	if len(entries) == 0 {
		return mcp.NewToolResultText(s.studio.Translator().T("history.empty")), nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s", e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Input)
		if e.VoiceName != "" {
			fmt.Fprintf(&b, "\t%s", e.VoiceName)
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

// saved writes results to the output directory and describes them
func (s *Server) saved(results []studio.Result, credits float64, note string) (*mcp.CallToolResult, error) {
	tr := s.studio.Translator()
	var b strings.Builder
	for _, r := range results {
		path, err := studio.SaveAudio(s.outDir, studio.EntryFileName(r.Entry), r.Audio)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		b.WriteString(tr.T("common.saved_to", path))
		b.WriteByte('\n')
	}
	if credits > 0 {
		b.WriteString(tr.T("common.cost", credits))
		b.WriteByte('\n')
	}
	if note != "" {
		b.WriteString(note)
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func voiceSettings(req mcp.CallToolRequest) elevenlabs.VoiceSettings {
	return elevenlabs.VoiceSettings{
		Stability:       req.GetFloat("stability", elevenlabs.DefaultVoiceSettings.Stability),
		SimilarityBoost: req.GetFloat("similarity_boost", elevenlabs.DefaultVoiceSettings.SimilarityBoost),
	}.Normalize()
}

func optionalFloat(req mcp.CallToolRequest, key string) *float64 {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	v := req.GetFloat(key, 0)
	return &v
}

// optionalInt is nil when key was not passed, so an explicit 0 survives
func optionalInt(req mcp.CallToolRequest, key string) *int {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	v := req.GetInt(key, 0)
	return &v
}
