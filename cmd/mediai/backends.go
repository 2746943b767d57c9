package main

import (
	"fmt"
	"log/slog"

	"github.com/nadzzz/mediai/internal/completion"
	anthropiccompletion "github.com/nadzzz/mediai/internal/completion/anthropic"
	geminicompletion "github.com/nadzzz/mediai/internal/completion/gemini"
	groqcompletion "github.com/nadzzz/mediai/internal/completion/groq"
	openaicompletion "github.com/nadzzz/mediai/internal/completion/openai"
	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/dispatch"
	"github.com/nadzzz/mediai/internal/stt"
	openaistt "github.com/nadzzz/mediai/internal/stt/openai"
	whisperstt "github.com/nadzzz/mediai/internal/stt/whisper"
	"github.com/nadzzz/mediai/internal/tts"
	gttstts "github.com/nadzzz/mediai/internal/tts/gtts"
	openaitts "github.com/nadzzz/mediai/internal/tts/openai"
	pipertts "github.com/nadzzz/mediai/internal/tts/piper"
)

func newCompleter(cfg config.CompletionConfig) (completion.Completer, error) {
	switch cfg.Backend {
	case "groq":
		slog.Info("using Groq completion", "model", cfg.Groq.Model, "endpoint", cfg.Groq.Endpoint)
		return groqcompletion.New(cfg), nil
	case "openai":
		slog.Info("using OpenAI completion", "model", cfg.OpenAI.Model)
		return openaicompletion.New(cfg), nil
	case "anthropic":
		slog.Info("using Anthropic completion", "model", cfg.Anthropic.Model)
		return anthropiccompletion.New(cfg), nil
	case "gemini":
		slog.Info("using Gemini completion", "model", cfg.Gemini.Model)
		return geminicompletion.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}

func newTranscriber(cfg config.STTConfig) (stt.Transcriber, error) {
	switch cfg.Backend {
	case "whisper":
		slog.Info("using whisper transcription", "endpoint", cfg.Whisper.Endpoint, "type", cfg.Whisper.Type)
		return whisperstt.New(cfg), nil
	case "openai":
		slog.Info("using OpenAI transcription", "model", cfg.OpenAI.Model)
		return openaistt.New(cfg), nil
	case "none":
		slog.Info("voice input disabled")
		return stt.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}

func newSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Backend {
	case "gtts":
		slog.Info("using gTTS synthesis", "language", cfg.Language)
		return gttstts.New(cfg), nil
	case "piper":
		slog.Info("using Piper synthesis", "endpoint", cfg.Piper.Endpoint)
		return pipertts.New(cfg), nil
	case "openai":
		slog.Info("using OpenAI synthesis", "model", cfg.OpenAI.Model, "voice", cfg.OpenAI.Voice)
		return openaitts.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

// pipeline holds the backends behind a dispatcher so they can be closed.
type pipeline struct {
	dispatcher  *dispatch.Dispatcher
	completer   completion.Completer
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	instruction := cfg.Conversation.Instruction
	if instruction == "" {
		var err error
		if instruction, err = conversation.Instruction(cfg.Conversation.PromptPreset); err != nil {
			return nil, err
		}
	}
	greeting := cfg.Conversation.Greeting
	if greeting == "" {
		greeting = conversation.Greeting
	}

	completer, err := newCompleter(cfg.Completion)
	if err != nil {
		return nil, err
	}
	if cfg.CompletionAPIKey() == "" {
		slog.Warn("no API key configured, completion requests will be rejected", "backend", cfg.Completion.Backend)
	}
	transcriber, err := newTranscriber(cfg.STT)
	if err != nil {
		return nil, err
	}
	synthesizer, err := newSynthesizer(cfg.TTS)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(conversation.NewSession(greeting), completer, synthesizer, transcriber, dispatch.Options{
		Instruction: instruction,
		Window:      cfg.Conversation.Window,
		Language:    cfg.TTS.Language,
		Timeout:     cfg.Completion.Timeout,
	})
	return &pipeline{dispatcher: d, completer: completer, transcriber: transcriber, synthesizer: synthesizer}, nil
}

func (p *pipeline) Close() {
	for name, c := range map[string]interface{ Close() error }{
		"completion": p.completer,
		"stt":        p.transcriber,
		"tts":        p.synthesizer,
	} {
		if err := c.Close(); err != nil {
			slog.Warn("backend close error", "stage", name, "error", err)
		}
	}
}
