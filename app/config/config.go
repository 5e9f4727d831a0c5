package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
	Index  Index  `yaml:"index"`
	Ollama Ollama `yaml:"ollama"`
	LLM    LLM    `yaml:"llm"`
	Chat   Chat   `yaml:"chat"`
}

type Server struct {
	// Address the API server listens on
	Addr string `yaml:"addr" example:":3001"`
	// Allowed CORS origins, comma-separated
	CorsOrigins string `yaml:"cors_origins" example:"http://localhost:5173"`
}

type Index struct {
	// Path to the embedded document snapshot
	SnapshotPath string `yaml:"snapshot_path" example:"data/vectorstore.json"`
	// Directory with source .txt documents (indexer only)
	DocsDir string `yaml:"docs_dir" example:"docs"`
}

type Ollama struct {
	// Ollama server base url
	BaseURL string `yaml:"base_url" example:"http://localhost:11434"`
	// Embedding model name
	EmbedModel string `yaml:"embed_model" example:"mxbai-embed-large" validate:"required"`
}

type LLM struct {
	// OpenAI-compatible base url (Ollama exposes one under /v1)
	BaseURL string `yaml:"base_url" example:"http://localhost:11434/v1"`
	// API token, ignored by local Ollama
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno"`
	// Model name
	Model string `yaml:"model" example:"mistral" validate:"required"`
}

type Chat struct {
	// Documents retrieved for a natural answer
	AnswerTopK int `yaml:"answer_top_k" example:"3"`
	// Documents retrieved for a digest
	DigestTopK int `yaml:"digest_top_k" example:"5"`
	// Idle session lifetime in minutes
	SessionTTLMinutes int `yaml:"session_ttl_minutes" example:"30"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyDefaults(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
	if c.Index.SnapshotPath == "" {
		c.Index.SnapshotPath = "data/vectorstore.json"
	}
	if c.Index.DocsDir == "" {
		c.Index.DocsDir = "docs"
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.EmbedModel == "" {
		c.Ollama.EmbedModel = "mxbai-embed-large"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:11434/v1"
	}
	if c.LLM.Token == "" {
		c.LLM.Token = "ollama"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "mistral"
	}
	if c.Chat.AnswerTopK == 0 {
		c.Chat.AnswerTopK = 3
	}
	if c.Chat.DigestTopK == 0 {
		c.Chat.DigestTopK = 5
	}
	if c.Chat.SessionTTLMinutes == 0 {
		c.Chat.SessionTTLMinutes = 30
	}
}
