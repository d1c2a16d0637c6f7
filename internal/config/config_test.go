package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Empty(t, cfg.SubscriptionKey)
	assert.Equal(t, "azure", cfg.TextToSpeech.Backend)
	assert.Equal(t, 25, cfg.TextToSpeech.PageSize)
	assert.True(t, cfg.TextToSpeech.KeepPages)
	assert.True(t, cfg.TextToSpeech.Transcode)
	assert.Equal(t, "ffmpeg", cfg.TextToSpeech.FFmpegPath)
	assert.Equal(t, "en-US", cfg.SpeechToText.Language)
	assert.Equal(t, 15*time.Second, cfg.SpeechToText.TargetSegment)
	assert.Equal(t, 55*time.Second, cfg.SpeechToText.MaxSegment)
	assert.Equal(t, 500*time.Millisecond, cfg.SpeechToText.MinSilence)
	assert.Equal(t, -40.0, cfg.SpeechToText.SilenceThresholdDB)
	assert.Equal(t, "en-US-JennyMultilingualNeural", cfg.Azure.Voice)
	assert.Equal(t, "localhost:10200", cfg.Piper.Endpoint)
	assert.False(t, cfg.Publish.Enabled)
	assert.Equal(t, "auto", cfg.Logging.Format)
}

func TestLoadMergesSettingsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `{
		"SubscriptionKey": "base-key",
		"Region": "westeurope",
		"TextToSpeech": {"PageSize": 10, "Backend": "google"}
	}`)
	writeFile(t, dir, LocalSettingsFile, `{
		"SubscriptionKey": "local-key",
		"TextToSpeech": {"Backend": "piper"}
	}`)

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "local-key", cfg.SubscriptionKey)
	assert.Equal(t, "westeurope", cfg.Region)
	assert.Equal(t, 10, cfg.TextToSpeech.PageSize)
	assert.Equal(t, "piper", cfg.TextToSpeech.Backend)
}

func TestLoadExtraFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `{"Logging": {"Level": "warn"}}`)
	extra := writeFile(t, t.TempDir(), "override.yaml", "Logging:\n  Level: debug\nSpeechToText:\n  MaxSegment: 30s\n")

	cfg, err := Load(dir, extra)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.SpeechToText.MaxSegment)
}

func TestLoadMissingExtraFile(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `{"SubscriptionKey": `)

	_, err := Load(dir, "")
	assert.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `{"Region": "westeurope"}`)
	t.Setenv("SPEECHKIT_REGION", "eastus")
	t.Setenv("SPEECHKIT_TEXTTOSPEECH_PAGESIZE", "40")
	t.Setenv("SPEECHKIT_GOOGLE_REGION", "eu")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "eastus", cfg.Region)
	assert.Equal(t, 40, cfg.TextToSpeech.PageSize)
	assert.Equal(t, "eu", cfg.Google.Region)
}

func TestLoadResolvesEnvRefs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `{
		"SubscriptionKey": "${TEST_SPEECH_KEY}",
		"OpenAI": {"APIKey": "${TEST_UNSET_KEY_FOR_CONFIG}"}
	}`)
	t.Setenv("TEST_SPEECH_KEY", "secret")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.SubscriptionKey)
	assert.Equal(t, "${TEST_UNSET_KEY_FOR_CONFIG}", cfg.OpenAI.APIKey)
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	_, ok := newHandler(&buf, LoggingConfig{Format: "auto"}, true).(*colorHandler)
	assert.True(t, ok, "auto on a terminal is colored text")

	_, ok = newHandler(&buf, LoggingConfig{Format: "auto"}, false).(*slog.JSONHandler)
	assert.True(t, ok, "auto off a terminal is json")

	_, ok = newHandler(&buf, LoggingConfig{Format: "json"}, true).(*slog.JSONHandler)
	assert.True(t, ok)

	_, ok = newHandler(&buf, LoggingConfig{Format: "text"}, false).(*slog.TextHandler)
	assert.True(t, ok)

	_, ok = newHandler(&buf, LoggingConfig{Format: "text"}, true).(*colorHandler)
	assert.True(t, ok)

	logger := slog.New(newHandler(&buf, LoggingConfig{Level: "warn", Format: "json"}, false))
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, LoggingConfig{Level: "debug", Format: "auto"}, true)).With("component", "transcribe")

	logger.Info("recognized", KindKey, KindSpeech, "text", "hello")
	assert.Equal(t, ansiCyan, buf.String()[:len(ansiCyan)])
	assert.Contains(t, buf.String(), "msg=recognized")
	assert.Contains(t, buf.String(), "component=transcribe")
	assert.True(t, strings.HasSuffix(buf.String(), ansiReset+"\n"))

	buf.Reset()
	logger.Info("recognized", KindKey, KindPause, "text", "(pause)")
	assert.True(t, strings.HasPrefix(buf.String(), ansiGray))

	buf.Reset()
	logger.Info("done :)", KindKey, KindDone)
	assert.True(t, strings.HasPrefix(buf.String(), ansiGreen))

	buf.Reset()
	logger.Warn("mp3 conversion failed")
	assert.True(t, strings.HasPrefix(buf.String(), ansiYellow))

	buf.Reset()
	logger.Error("recognition canceled")
	assert.True(t, strings.HasPrefix(buf.String(), ansiRed))

	buf.Reset()
	logger.Info("paged text", "pages", 3)
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestPlainTextHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, LoggingConfig{Format: "text"}, false))
	logger.Error("recognition canceled", KindKey, KindSpeech)
	assert.NotContains(t, buf.String(), "\x1b[")
}
