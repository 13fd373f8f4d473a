package gemini

import (
	"context"
	"fmt"
	"strings"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	APIKey      string  `envconfig:"API_KEY" split_words:"true"`
	BaseURL     string  `envconfig:"BASE_URL" split_words:"true"`
	Model       string  `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" split_words:"true" default:"500"`
	Temperature float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
}

// NewClient creates a Gemini API client shared by every chat model.
func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// NewChatModel builds a tool-calling chat model on an existing client.
func NewChatModel(ctx context.Context, client *genai.Client, cfg Config) (model.ToolCallingChatModel, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini: client is nil")
	}

	conf := &geminimodel.Config{
		Client: client,
		Model:  strings.TrimSpace(cfg.Model),
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		conf.MaxTokens = &maxTokens
	}
	if cfg.Temperature >= 0 {
		temp := cfg.Temperature
		conf.Temperature = &temp
	}

	m, err := geminimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model %s: %w", cfg.Model, err)
	}
	return m, nil
}
