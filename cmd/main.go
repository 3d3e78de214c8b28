package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:  "voicealchemy",
		Usage: "ElevenLabs voice studio - text to speech, voice changing, sound effects and voice isolation",
		Description: `voicealchemy drives the ElevenLabs API from the terminal.
Every feature remembers its last input and settings, so repeated runs only
need the values that change. Generated audio is kept in a local history.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "ElevenLabs API key (default: $ELEVENLABS_API_KEY)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check that the API key is accepted",
				Action: handleValidate,
			},
			{
				Name:    "voices",
				Usage:   "List the voices of the account",
				Aliases: []string{"ls"},
				Action:  handleVoices,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preview",
						Usage: "Play the preview sample of a voice",
					},
				},
			},
			{
				Name:      "tts",
				Usage:     "Convert text to speech",
				ArgsUsage: "[text]",
				Action:    handleTextToSpeech,
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Text to speak, '-' reads stdin",
					},
					&cli.BoolFlag{
						Name:  "extended",
						Usage: "Use the expressive model, which understands tags like [laughs]",
					},
					&cli.StringFlag{
						Name:  "effect",
						Usage: "Sound effect tag for the expressive model",
						Value: "none",
					},
				}, voiceFlags()...), outputFlags()...),
			},
			{
				Name:      "sts",
				Usage:     "Re-voice recorded speech",
				ArgsUsage: "[audio file]",
				Action:    handleSpeechToSpeech,
				Flags: append(append([]cli.Flag{
					&cli.BoolFlag{
						Name:    "record",
						Aliases: []string{"r"},
						Usage:   "Record from the microphone instead of reading a file",
					},
				}, voiceFlags()...), outputFlags()...),
			},
			{
				Name:      "sfx",
				Usage:     "Generate sound effects from a prompt",
				ArgsUsage: "[prompt]",
				Action:    handleSoundEffect,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:    "duration",
						Aliases: []string{"d"},
						Usage:   "Duration in seconds, 0 lets the service choose",
					},
					&cli.Float64Flag{
						Name:  "adherence",
						Usage: "Prompt adherence in percent",
						Value: 30,
					},
					&cli.IntFlag{
						Name:    "variations",
						Aliases: []string{"n"},
						Usage:   "Number of variations (1-8)",
						Value:   4,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for the generated files",
						Value:   ".",
					},
					&cli.BoolFlag{
						Name:    "play",
						Aliases: []string{"p"},
						Usage:   "Play every variation once generated",
					},
				},
			},
			{
				Name:      "isolate",
				Usage:     "Remove background noise from a recording",
				ArgsUsage: "[audio file]",
				Action:    handleIsolateVoice,
				Flags:     outputFlags(),
			},
			{
				Name:      "run",
				Usage:     "Execute JSON requests from a file or stdin",
				ArgsUsage: "[file]",
				Action:    handleRun,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for the generated files",
						Value:   ".",
					},
					&cli.BoolFlag{
						Name:  "estimate",
						Usage: "Print the estimated cost without sending anything",
					},
				},
			},
			{
				Name:  "cost",
				Usage: "Estimate the credits a generation would use",
				Commands: []*cli.Command{
					{
						Name:      "tts",
						Usage:     "Cost of converting text",
						ArgsUsage: "<text>",
						Action:    handleCostTextToSpeech,
					},
					{
						Name:      "sts",
						Usage:     "Cost of re-voicing an audio file",
						ArgsUsage: "<audio file>",
						Action:    handleCostAudio,
					},
					{
						Name:      "isolate",
						Usage:     "Cost of isolating the voice in an audio file",
						ArgsUsage: "<audio file>",
						Action:    handleCostAudio,
					},
					{
						Name:   "sfx",
						Usage:  "Cost of generating sound effects",
						Action: handleCostSoundEffect,
						Flags: []cli.Flag{
							&cli.Float64Flag{
								Name:    "duration",
								Aliases: []string{"d"},
								Usage:   "Duration in seconds, 0 lets the service choose",
							},
							&cli.IntFlag{
								Name:    "variations",
								Aliases: []string{"n"},
								Usage:   "Number of variations (1-8)",
								Value:   4,
							},
						},
					},
				},
			},
			{
				Name:    "history",
				Usage:   "Browse generated audio",
				Aliases: []string{"h"},
				Action:  handleHistoryList,
				Commands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List recent generations",
						Aliases: []string{"ls"},
						Action:  handleHistoryList,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "kind",
								Aliases: []string{"k"},
								Usage:   "Only show one kind (text-to-speech, speech-to-speech, sound-fx, voice-isolator)",
							},
						},
					},
					{
						Name:      "show",
						Usage:     "Show one generation",
						ArgsUsage: "<id>",
						Action:    handleHistoryShow,
					},
					{
						Name:      "export",
						Usage:     "Write the audio of a generation to a file",
						ArgsUsage: "<id>",
						Action:    handleHistoryExport,
						Flags:     outputFlags(),
					},
					{
						Name:      "remove",
						Usage:     "Delete one generation",
						Aliases:   []string{"rm"},
						ArgsUsage: "<id>",
						Action:    handleHistoryRemove,
					},
					{
						Name:   "clear",
						Usage:  "Delete every generation",
						Action: handleHistoryClear,
					},
				},
			},
			{
				Name:  "form",
				Usage: "Inspect, replay or reset the remembered input of a feature",
				Commands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the remembered input",
						ArgsUsage: "[tts|sts|isolate|sfx]",
						Action:    handleFormShow,
					},
					{
						Name:      "export",
						Usage:     "Write the audio a feature produced last",
						ArgsUsage: "<tts|sts|isolate|sfx>",
						Action:    handleFormExport,
						Flags:     outputFlags(),
					},
					{
						Name:      "play",
						Usage:     "Play the audio a feature produced last",
						ArgsUsage: "<tts|sts|isolate|sfx>",
						Action:    handleFormExport,
					},
					{
						Name:      "clear",
						Usage:     "Forget the remembered input",
						ArgsUsage: "<tts|sts|isolate|sfx>",
						Action:    handleFormClear,
					},
				},
			},
			{
				Name:      "lang",
				Usage:     "Show or change the interface language",
				ArgsUsage: "[en|de]",
				Action:    handleLanguage,
			},
			{
				Name:  "config",
				Usage: "Inspect the configuration",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration",
						Action: handleConfigShow,
					},
					{
						Name:   "example",
						Usage:  "Print a sample config file",
						Action: handleConfigExample,
					},
					{
						Name:   "path",
						Usage:  "Print the config file location",
						Action: handleConfigPath,
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the studio as MCP tools over stdio",
				Action: handleMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for generated files (default: <data dir>/output)",
					},
				},
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return ctx, nil
		},
	}
}

// voiceFlags select the voice and its settings
func voiceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "voice",
			Aliases: []string{"v"},
			Usage:   "Voice ID (see 'voicealchemy voices')",
		},
		&cli.Float64Flag{
			Name:  "stability",
			Usage: "Voice stability between 0 and 1",
			Value: 0.5,
		},
		&cli.Float64Flag{
			Name:  "similarity",
			Usage: "Similarity boost between 0 and 1",
			Value: 0.75,
		},
	}
}

// outputFlags control where generated audio goes
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the audio to this path",
		},
		&cli.BoolFlag{
			Name:    "play",
			Aliases: []string{"p"},
			Usage:   "Play the audio once generated",
		},
	}
}
