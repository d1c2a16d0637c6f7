package main

import (
	"github.com/spf13/cobra"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/narrate"
)

func newNarrateCmd(a *app) *cobra.Command {
	var (
		pageSize    int
		startPage   int
		keepPages   bool
		noTranscode bool
		backend     string
		language    string
		voice       string
	)

	cmd := &cobra.Command{
		Use:   "narrate <text-file>",
		Short: "Synthesize a text file to WAV and MP3",
		Long: `Synthesize a text file page by page, join the page audio into one WAV
file next to the input and encode it to MP3 with ffmpeg.

Use --start-page to resume an interrupted run; the earlier page files are
reused as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkInput(args[0]); err != nil {
				return err
			}
			ctx := cmd.Context()
			ttsCfg := a.cfg.TextToSpeech

			flags := cmd.Flags()
			if flags.Changed("page-size") {
				ttsCfg.PageSize = pageSize
			}
			if flags.Changed("start-page") {
				ttsCfg.StartPage = startPage
			}
			if flags.Changed("keep-pages") {
				ttsCfg.KeepPages = keepPages
			}
			if noTranscode {
				ttsCfg.Transcode = false
			}
			if backend != "" {
				ttsCfg.Backend = backend
			}
			if language != "" {
				ttsCfg.Language = language
			}
			if voice != "" {
				ttsCfg.Voice = voice
			}

			synth, err := newSynthesizer(ctx, a.cfg, ttsCfg.Backend)
			if err != nil {
				return err
			}
			defer synth.Close()

			var transcoder narrate.Transcoder
			if ttsCfg.Transcode {
				transcoder = &audio.Transcoder{FFmpegPath: ttsCfg.FFmpegPath, Quality: ttsCfg.MP3Quality}
			}

			var publisher narrate.Publisher
			uploader, err := newUploader(ctx, a.cfg)
			if err != nil {
				return err
			}
			if uploader != nil {
				publisher = uploader
			}

			pipeline := narrate.New(synth, transcoder, publisher, a.logger, narrate.Options{
				PageSize:  ttsCfg.PageSize,
				StartPage: ttsCfg.StartPage,
				KeepPages: ttsCfg.KeepPages,
				Transcode: ttsCfg.Transcode,
				Language:  ttsCfg.Language,
				Voice:     ttsCfg.Voice,
			})
			res, err := pipeline.Run(ctx, args[0])
			if err != nil {
				return err
			}

			a.logger.Info("done :)", config.KindKey, config.KindDone,
				"pages", res.Pages,
				"synthesized", res.Synthesized,
				"wav", res.WAVPath,
				"duration", res.Duration.String(),
				"mp3_ok", ttsCfg.Transcode && res.TranscodeErr == nil)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&pageSize, "page-size", 25, "lines per synthesized page")
	f.IntVar(&startPage, "start-page", 0, "first page to synthesize; earlier page files are reused")
	f.BoolVar(&keepPages, "keep-pages", true, "keep the per-page wav files after concatenation")
	f.BoolVar(&noTranscode, "no-transcode", false, "skip the mp3 conversion")
	f.StringVar(&backend, "backend", "", "synthesis backend: azure, google, openai or piper (default from config)")
	f.StringVar(&language, "language", "", "language of the text, e.g. en-US (default: detect)")
	f.StringVar(&voice, "voice", "", "voice name (default from config)")
	return cmd
}
