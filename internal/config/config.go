// Package config handles loading and validating the mediai configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for mediai.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Transports   TransportsConfig   `mapstructure:"transports"`
	Completion   CompletionConfig   `mapstructure:"completion"`
	STT          STTConfig          `mapstructure:"stt"`
	TTS          TTSConfig          `mapstructure:"tts"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Console      ConsoleConfig      `mapstructure:"console"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each presentation transport.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport and browser UI.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CompletionConfig selects and configures the chat-completion backend.
type CompletionConfig struct {
	Backend     string          `mapstructure:"backend"` // "groq", "openai", "anthropic" or "gemini"
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Groq        GroqConfig      `mapstructure:"groq"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
	Gemini      GeminiConfig    `mapstructure:"gemini"`
}

// GroqConfig holds settings for the OpenAI-compatible HTTP backend.
type GroqConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings. BaseURL may point at any
// OpenAI-compatible server.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Backend  string        `mapstructure:"backend"`  // "whisper", "openai" or "none"
	Language string        `mapstructure:"language"` // ISO-639-1 hint, empty for auto-detect
	Timeout  time.Duration `mapstructure:"timeout"`
	Whisper  WhisperConfig `mapstructure:"whisper"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
}

// WhisperConfig holds self-hosted Whisper settings.
type WhisperConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	Model     string `mapstructure:"model"`
	VADFilter bool   `mapstructure:"vad_filter"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend  string          `mapstructure:"backend"` // "gtts", "piper" or "openai"
	Language string          `mapstructure:"language"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	GTTS     GTTSConfig      `mapstructure:"gtts"`
	Piper    PiperConfig     `mapstructure:"piper"`
	OpenAI   OpenAITTSConfig `mapstructure:"openai"`
}

// GTTSConfig holds settings for the Google Translate speech endpoint.
type GTTSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Slow     bool   `mapstructure:"slow"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. Endpoints takes precedence and Endpoint
// is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
}

// OpenAITTSConfig holds OpenAI speech synthesis settings.
type OpenAITTSConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

// ConversationConfig tunes the turn protocol.
type ConversationConfig struct {
	// Window is the number of most recent turns sent with each request.
	Window int `mapstructure:"window"`

	// PromptPreset names a built-in instruction: "sequential", "assistant" or "medical".
	PromptPreset string `mapstructure:"prompt_preset"`

	// Instruction overrides the preset when non-empty.
	Instruction string `mapstructure:"instruction"`

	// Greeting overrides the seeded assistant turn when non-empty.
	Greeting string `mapstructure:"greeting"`
}

// ConsoleConfig configures the terminal chat.
type ConsoleConfig struct {
	// Player is a command that receives answer audio on stdin
	// (e.g., "ffplay -nodisp -autoexit -loglevel quiet -"). Empty disables playback.
	Player string `mapstructure:"player"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text, pretty
}

// Load reads the configuration from .env, file, environment variables, and
// defaults. If configFile is non-empty it is used directly; otherwise the
// search order is ./mediai.yaml, ./configs/mediai.yaml, /etc/mediai/mediai.yaml.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mediai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mediai")
	}

	// Environment variables: MEDIAI_COMPLETION_BACKEND, MEDIAI_TTS_LANGUAGE, etc.
	v.SetEnvPrefix("MEDIAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.resolveSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every scalar key, empty ones included.
// AutomaticEnv only overrides keys viper already knows.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.allowed_origins", []string{"*"})
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)

	v.SetDefault("completion.backend", "groq")
	v.SetDefault("completion.temperature", 0.5)
	v.SetDefault("completion.max_tokens", 350)
	v.SetDefault("completion.timeout", 15*time.Second)
	v.SetDefault("completion.groq.endpoint", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("completion.groq.api_key", "${GROQ_API_KEY}")
	v.SetDefault("completion.groq.model", "llama3-70b-8192")
	v.SetDefault("completion.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("completion.openai.base_url", "")
	v.SetDefault("completion.openai.model", "gpt-4o-mini")
	v.SetDefault("completion.anthropic.api_key", "${ANTHROPIC_API_KEY}")
	v.SetDefault("completion.anthropic.base_url", "")
	v.SetDefault("completion.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("completion.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("completion.gemini.base_url", "")
	v.SetDefault("completion.gemini.model", "gemini-2.0-flash")

	v.SetDefault("stt.backend", "whisper")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.timeout", 30*time.Second)
	v.SetDefault("stt.whisper.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("stt.whisper.type", "openai")
	v.SetDefault("stt.whisper.model", "")
	v.SetDefault("stt.whisper.vad_filter", false)
	v.SetDefault("stt.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("stt.openai.base_url", "")
	v.SetDefault("stt.openai.model", "whisper-1")

	v.SetDefault("tts.backend", "gtts")
	v.SetDefault("tts.language", "en")
	v.SetDefault("tts.timeout", 30*time.Second)
	v.SetDefault("tts.gtts.endpoint", "https://translate.google.com/translate_tts")
	v.SetDefault("tts.gtts.slow", false)
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("tts.openai.base_url", "")
	v.SetDefault("tts.openai.model", "tts-1")
	v.SetDefault("tts.openai.voice", "alloy")

	v.SetDefault("conversation.window", 3)
	v.SetDefault("conversation.prompt_preset", "sequential")
	v.SetDefault("conversation.instruction", "")
	v.SetDefault("conversation.greeting", "")

	v.SetDefault("console.player", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// resolveSecrets expands "${VAR}" references in credential fields.
func (c *Config) resolveSecrets() {
	c.Completion.Groq.APIKey = resolveEnvRef(c.Completion.Groq.APIKey)
	c.Completion.OpenAI.APIKey = resolveEnvRef(c.Completion.OpenAI.APIKey)
	c.Completion.Anthropic.APIKey = resolveEnvRef(c.Completion.Anthropic.APIKey)
	c.Completion.Gemini.APIKey = resolveEnvRef(c.Completion.Gemini.APIKey)
	c.STT.OpenAI.APIKey = resolveEnvRef(c.STT.OpenAI.APIKey)
	c.TTS.OpenAI.APIKey = resolveEnvRef(c.TTS.OpenAI.APIKey)
}

// resolveEnvRef replaces a "${VAR_NAME}" value with the corresponding env
// var. An unset variable resolves to the empty string so a placeholder is
// never sent as a credential.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// Validate checks that backend names and numeric limits are usable.
func (c *Config) Validate() error {
	switch c.Completion.Backend {
	case "groq", "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unknown completion backend %q", c.Completion.Backend)
	}
	switch c.STT.Backend {
	case "whisper", "openai", "none":
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}
	switch c.TTS.Backend {
	case "gtts", "piper", "openai":
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion.timeout must be > 0")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("completion.max_tokens must be > 0")
	}
	if c.Conversation.Window <= 0 {
		return fmt.Errorf("conversation.window must be > 0")
	}
	if !c.Transports.HTTP.Enabled && !c.Transports.GRPC.Enabled {
		return fmt.Errorf("no transports enabled")
	}
	return nil
}

// CompletionAPIKey returns the credential of the selected completion backend.
func (c *Config) CompletionAPIKey() string {
	switch c.Completion.Backend {
	case "openai":
		return c.Completion.OpenAI.APIKey
	case "anthropic":
		return c.Completion.Anthropic.APIKey
	case "gemini":
		return c.Completion.Gemini.APIKey
	default:
		return c.Completion.Groq.APIKey
	}
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(NewLogger(cfg, os.Stdout))
}

// NewLogger builds a slog logger writing to w. The "pretty" format renders
// through charmbracelet/log for interactive terminals.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "pretty":
		pretty := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Prefix:          "mediai",
		})
		pretty.SetLevel(charmlog.Level(level))
		handler = pretty
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
