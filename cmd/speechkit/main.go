// Speechkit turns text files into narrated audio and WAV recordings into
// text transcripts, using cloud or self-hosted speech services.
//
// Usage:
//
//	speechkit narrate book.txt
//	speechkit transcribe talk.wav
//	speechkit --config configs/speechkit.local.json transcribe talk.wav
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nadzzz/speechkit/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries the state shared by the sub-commands once the root command
// has loaded the configuration.
type app struct {
	configFile string
	configDir  string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		slog.Error("speechkit failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "speechkit",
		Short:         "Text-to-speech and speech-to-text file conversion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "extra config file merged over appsettings (json or yaml)")
	root.PersistentFlags().StringVar(&a.configDir, "dir", ".", "directory holding appsettings.json, appsettings.local.json and .env")

	root.AddCommand(newNarrateCmd(a), newTranscribeCmd(a), newVersionCmd())
	return root
}

// setup loads .env and the configuration, and installs the run logger.
func (a *app) setup(cmd *cobra.Command) error {
	envFile := filepath.Join(a.configDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "path", envFile, "error", err)
	}

	cfg, err := config.Load(a.configDir, a.configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	a.cfg = cfg
	a.logger = slog.Default().With("run_id", uuid.NewString())
	a.logger.Info("speechkit starting", "version", version, "command", cmd.Name())
	return nil
}

// checkInput fails on a missing input before any backend is dialed.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file: %s is a directory", path)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "speechkit %s\n", version)
		},
	}
}
