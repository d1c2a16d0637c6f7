// Package config handles loading the speechkit configuration.
//
// Settings come from, in increasing order of precedence: built-in defaults,
// appsettings.json, appsettings.local.json, an optional extra file named on
// the command line, and SPEECHKIT_* environment variables. Keys match
// case-insensitively, so both "TextToSpeech.PageSize" in JSON and
// SPEECHKIT_TEXTTOSPEECH_PAGESIZE in the environment address the same value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Names of the settings files looked up in the config directory, merged in order.
const (
	SettingsFile      = "appsettings.json"
	LocalSettingsFile = "appsettings.local.json"
)

// Config is the root configuration for both pipelines.
type Config struct {
	// SubscriptionKey authenticates against the speech service.
	SubscriptionKey string `mapstructure:"SubscriptionKey"`
	// Region selects the speech service region (e.g. "westeurope").
	Region string `mapstructure:"Region"`

	TextToSpeech TextToSpeechConfig `mapstructure:"TextToSpeech"`
	SpeechToText SpeechToTextConfig `mapstructure:"SpeechToText"`

	Azure   AzureConfig   `mapstructure:"Azure"`
	Google  GoogleConfig  `mapstructure:"Google"`
	OpenAI  OpenAIConfig  `mapstructure:"OpenAI"`
	Piper   PiperConfig   `mapstructure:"Piper"`
	Whisper WhisperConfig `mapstructure:"Whisper"`

	Publish PublishConfig `mapstructure:"Publish"`
	Logging LoggingConfig `mapstructure:"Logging"`
}

// TextToSpeechConfig configures the narrate pipeline.
type TextToSpeechConfig struct {
	Backend    string `mapstructure:"Backend"` // "azure", "google", "openai" or "piper"
	PageSize   int    `mapstructure:"PageSize"`
	StartPage  int    `mapstructure:"StartPage"`
	KeepPages  bool   `mapstructure:"KeepPages"`
	Transcode  bool   `mapstructure:"Transcode"`
	FFmpegPath string `mapstructure:"FFmpegPath"`
	MP3Quality int    `mapstructure:"MP3Quality"`
	// Language is a BCP-47 tag; empty lets the service detect the language.
	Language string `mapstructure:"Language"`
	Voice    string `mapstructure:"Voice"`
}

// SpeechToTextConfig configures the transcribe pipeline.
type SpeechToTextConfig struct {
	Backend            string        `mapstructure:"Backend"` // "azure", "google", "openai" or "whisper"
	Language           string        `mapstructure:"Language"`
	TargetSegment      time.Duration `mapstructure:"TargetSegment"`
	MaxSegment         time.Duration `mapstructure:"MaxSegment"`
	MinSilence         time.Duration `mapstructure:"MinSilence"`
	SilenceThresholdDB float64       `mapstructure:"SilenceThresholdDB"`
}

// AzureConfig holds Azure Speech REST settings. The endpoints default to the
// regional service URLs derived from Region.
type AzureConfig struct {
	Voice        string `mapstructure:"Voice"`
	OutputFormat string `mapstructure:"OutputFormat"`
	TTSEndpoint  string `mapstructure:"TTSEndpoint"`
	STTEndpoint  string `mapstructure:"STTEndpoint"`
}

// GoogleConfig holds Google Cloud Speech settings. When CredentialsFile is
// empty the subscription key is used as an API key, and failing that the
// application default credentials apply. Region is a Google multi-region
// ("eu", "us") and is separate from the Azure-style top-level Region.
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"CredentialsFile"`
	Region          string `mapstructure:"Region"`
	Voice           string `mapstructure:"Voice"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"APIKey"`
	BaseURL            string `mapstructure:"BaseURL"`
	TTSModel           string `mapstructure:"TTSModel"`
	Voice              string `mapstructure:"Voice"`
	TranscriptionModel string `mapstructure:"TranscriptionModel"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints; Endpoint remains the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"Endpoint"`  // host:port
	Endpoints map[string]string `mapstructure:"Endpoints"` // ISO-639-1 language code -> host:port
	Voices    map[string]string `mapstructure:"Voices"`    // ISO-639-1 language code -> voice model name
}

// WhisperConfig holds settings for a self-hosted Whisper server.
type WhisperConfig struct {
	Endpoint  string `mapstructure:"Endpoint"`
	Type      string `mapstructure:"Type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	VADFilter bool   `mapstructure:"VADFilter"`
}

// PublishConfig configures upload of finished artifacts to S3-compatible storage.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"Enabled"`
	Endpoint  string `mapstructure:"Endpoint"` // host[:port], no scheme
	AccessKey string `mapstructure:"AccessKey"`
	SecretKey string `mapstructure:"SecretKey"`
	Bucket    string `mapstructure:"Bucket"`
	Region    string `mapstructure:"Region"`
	Secure    bool   `mapstructure:"Secure"`
	Prefix    string `mapstructure:"Prefix"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"Level"`  // debug, info, warn, error
	Format string `mapstructure:"Format"` // auto, json, text
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SubscriptionKey", "")
	v.SetDefault("Region", "")

	v.SetDefault("TextToSpeech.Backend", "azure")
	v.SetDefault("TextToSpeech.PageSize", 25)
	v.SetDefault("TextToSpeech.StartPage", 0)
	v.SetDefault("TextToSpeech.KeepPages", true)
	v.SetDefault("TextToSpeech.Transcode", true)
	v.SetDefault("TextToSpeech.FFmpegPath", "ffmpeg")
	v.SetDefault("TextToSpeech.MP3Quality", 2)
	v.SetDefault("TextToSpeech.Language", "")
	v.SetDefault("TextToSpeech.Voice", "")

	v.SetDefault("SpeechToText.Backend", "azure")
	v.SetDefault("SpeechToText.Language", "en-US")
	v.SetDefault("SpeechToText.TargetSegment", "15s")
	v.SetDefault("SpeechToText.MaxSegment", "55s")
	v.SetDefault("SpeechToText.MinSilence", "500ms")
	v.SetDefault("SpeechToText.SilenceThresholdDB", -40.0)

	v.SetDefault("Azure.Voice", "en-US-JennyMultilingualNeural")
	v.SetDefault("Azure.OutputFormat", "riff-24khz-16bit-mono-pcm")
	v.SetDefault("Azure.TTSEndpoint", "")
	v.SetDefault("Azure.STTEndpoint", "")

	v.SetDefault("Google.CredentialsFile", "")
	v.SetDefault("Google.Region", "")
	v.SetDefault("Google.Voice", "")

	v.SetDefault("OpenAI.APIKey", "")
	v.SetDefault("OpenAI.BaseURL", "")
	v.SetDefault("OpenAI.TTSModel", "tts-1")
	v.SetDefault("OpenAI.Voice", "alloy")
	v.SetDefault("OpenAI.TranscriptionModel", "whisper-1")

	v.SetDefault("Piper.Endpoint", "localhost:10200")

	v.SetDefault("Whisper.Endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("Whisper.Type", "openai")
	v.SetDefault("Whisper.VADFilter", false)

	v.SetDefault("Publish.Enabled", false)
	v.SetDefault("Publish.Endpoint", "")
	v.SetDefault("Publish.AccessKey", "")
	v.SetDefault("Publish.SecretKey", "")
	v.SetDefault("Publish.Bucket", "")
	v.SetDefault("Publish.Region", "")
	v.SetDefault("Publish.Secure", true)
	v.SetDefault("Publish.Prefix", "")

	v.SetDefault("Logging.Level", "info")
	v.SetDefault("Logging.Format", "auto")
}

// Load reads the configuration from the settings files in dir, the optional
// extraFile, environment variables and defaults. The settings files in dir
// are optional; extraFile, when given, must exist.
func Load(dir, extraFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables: SPEECHKIT_SUBSCRIPTIONKEY, SPEECHKIT_TEXTTOSPEECH_PAGESIZE, etc.
	v.SetEnvPrefix("SPEECHKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range []string{SettingsFile, LocalSettingsFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("settings file not found", "path", path)
			continue
		}
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
	}
	if extraFile != "" {
		if err := mergeFile(v, extraFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${SPEECH_KEY}")
	cfg.SubscriptionKey = resolveEnvRef(cfg.SubscriptionKey)
	cfg.OpenAI.APIKey = resolveEnvRef(cfg.OpenAI.APIKey)
	cfg.Publish.AccessKey = resolveEnvRef(cfg.Publish.AccessKey)
	cfg.Publish.SecretKey = resolveEnvRef(cfg.Publish.SecretKey)

	return &cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	slog.Info("loaded config file", "path", path)
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}
