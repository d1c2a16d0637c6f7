package main

import (
	"github.com/spf13/cobra"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/transcribe"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var backend, language string

	cmd := &cobra.Command{
		Use:   "transcribe <wav-file>",
		Short: "Recognize a WAV file into a text transcript",
		Long: `Recognize a WAV file segment by segment and append each recognized
segment as a line to a .txt file next to the input. Recognition stops at
the first segment without recognizable speech or when the service cancels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkInput(args[0]); err != nil {
				return err
			}
			ctx := cmd.Context()
			sttCfg := a.cfg.SpeechToText
			if backend != "" {
				sttCfg.Backend = backend
			}
			if language != "" {
				sttCfg.Language = language
			}

			rec, err := newRecognizer(ctx, a.cfg, sttCfg.Backend)
			if err != nil {
				return err
			}
			defer rec.Close()

			var publisher transcribe.Publisher
			uploader, err := newUploader(ctx, a.cfg)
			if err != nil {
				return err
			}
			if uploader != nil {
				publisher = uploader
			}

			pipeline := transcribe.New(rec, publisher, a.logger, transcribe.Options{
				Language: sttCfg.Language,
				Segment: audio.SegmentOpts{
					Target:             sttCfg.TargetSegment,
					Max:                sttCfg.MaxSegment,
					MinSilence:         sttCfg.MinSilence,
					SilenceThresholdDB: sttCfg.SilenceThresholdDB,
				},
			})
			res, err := pipeline.Run(ctx, args[0])
			if err != nil {
				return err
			}

			a.logger.Info("done :)", config.KindKey, config.KindDone,
				"transcript", res.TranscriptPath,
				"lines", res.Lines,
				"pauses", res.Pauses,
				"termination", res.Termination.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "recognition backend: azure, google, openai or whisper (default from config)")
	cmd.Flags().StringVar(&language, "language", "", "spoken language, e.g. en-US (default from config)")
	return cmd
}
