// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt seeds every conversation; it is the fixed, never
// evicted turn at index 0.
const DefaultSystemPrompt = `Eres un asistente de traducción inteligente especializado en traducir del inglés al español. Tu trabajo es:

1. **Traducir texto**: Cuando recibas texto en inglés, tradúcelo al español usando palabras simples y claras que cualquier persona pueda entender. Evita palabras complicadas o técnicas.

2. **Analizar imágenes**: Cuando recibas imágenes con texto, identifica y traduce todo el texto visible al español. También describe brevemente lo que ves en la imagen.

3. **Explicar de forma simple**: Tus explicaciones deben ser cortas, claras y fáciles de entender. No uses palabras rebuscadas ni hagas explicaciones muy largas.

4. **Responder en español**: Siempre responde en español, usando un tono amigable y profesional.

5. **Ayudar con el contexto**: Si algo no está claro, puedes pedir más contexto o dar una explicación breve del significado.

Ejemplo:
- Si recibo: "Hello, how are you?"
- Respondo: "Hola, ¿cómo estás?"

Mantén todo simple, claro y en español.`

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int  `yaml:"port"`
	AsyncReplies bool `yaml:"async_replies"` // ack webhook immediately, deliver via outbound send
	Workers      int  `yaml:"workers"`       // async delivery workers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"` // e.g. whatsapp:+14155238886
}

type AIConfig struct {
	GitHubToken     string        `yaml:"github_token"` // GitHub Models gateway key
	BaseURL         string        `yaml:"base_url"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	DefaultModel    string        `yaml:"default_model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type ChatConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
	HistoryCap   int    `yaml:"history_cap"`   // non-system turns kept per conversation
	OverflowKeep int    `yaml:"overflow_keep"` // turns kept after context-overflow trim
}

type VoiceConfig struct {
	Enabled      bool   `yaml:"enabled"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"` // empty disables rate limiting
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	RateLimit int           `yaml:"rate_limit"` // messages per sender per window
	RateEvery time.Duration `yaml:"rate_every"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Admin  AdminConfig  `yaml:"admin"`
	Twilio TwilioConfig `yaml:"twilio"`
	AI     AIConfig     `yaml:"ai"`
	Chat   ChatConfig   `yaml:"chat"`
	Voice  VoiceConfig  `yaml:"voice"`
	Redis  RedisConfig  `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation; dev mode runs on noop adapters without credentials.
	if !dev {
		if cfg.AI.GitHubToken == "" && cfg.AI.GeminiKey == "" {
			return nil, errors.New("ai.github_token or ai.gemini_key is required")
		}
		if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
			return nil, errors.New("twilio.account_sid and twilio.auth_token are required")
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://models.github.ai/inference"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "openai/gpt-4.1"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.3
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 1000
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 15 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Chat.HistoryCap <= 0 {
		cfg.Chat.HistoryCap = 200
	}
	if cfg.Chat.OverflowKeep <= 0 {
		cfg.Chat.OverflowKeep = 10
	}
	if cfg.Voice.WhisperBin == "" {
		cfg.Voice.WhisperBin = "whisper-cli"
	}
	if cfg.Redis.RateLimit <= 0 {
		cfg.Redis.RateLimit = 20
	}
	if cfg.Redis.RateEvery <= 0 {
		cfg.Redis.RateEvery = time.Minute
	}
}
