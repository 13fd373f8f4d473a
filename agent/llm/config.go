package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	geminix "github.com/tanpawarit/Chative-Shop-Assistant/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// unset marks a per-role number that falls back to the shared default.
const unset = -1

type Config struct {
	Provider    string        `split_words:"true" default:"openrouter"`
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" split_words:"true" default:"500"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" split_words:"true"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" split_words:"true"`

	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	EmbeddingsEnabled bool   `envconfig:"EMBEDDINGS_ENABLED" split_words:"true" default:"true"`

	RouterModel          string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	RouterTemperature    float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0.1"`
	RouterMaxTokens      int     `envconfig:"ROUTER_MAX_TOKENS" split_words:"true" default:"300"`
	SentimentModel       string  `envconfig:"SENTIMENT_MODEL" split_words:"true"`
	SentimentTemperature float32 `envconfig:"SENTIMENT_TEMPERATURE" split_words:"true" default:"0"`
	SentimentMaxTokens   int     `envconfig:"SENTIMENT_MAX_TOKENS" split_words:"true" default:"100"`

	FAQModel            string  `envconfig:"FAQ_MODEL" split_words:"true"`
	FAQTemperature      float32 `envconfig:"FAQ_TEMPERATURE" split_words:"true" default:"-1"`
	OrderModel          string  `envconfig:"ORDER_MODEL" split_words:"true"`
	OrderTemperature    float32 `envconfig:"ORDER_TEMPERATURE" split_words:"true" default:"-1"`
	ProductModel        string  `envconfig:"PRODUCT_MODEL" split_words:"true"`
	ProductTemperature  float32 `envconfig:"PRODUCT_TEMPERATURE" split_words:"true" default:"-1"`
	HandoverModel       string  `envconfig:"HANDOVER_MODEL" split_words:"true"`
	HandoverTemperature float32 `envconfig:"HANDOVER_TEMPERATURE" split_words:"true" default:"-1"`
	RedirectModel       string  `envconfig:"REDIRECT_MODEL" split_words:"true"`
	RedirectTemperature float32 `envconfig:"REDIRECT_TEMPERATURE" split_words:"true" default:"-1"`

	MaxToolCalls int `envconfig:"MAX_TOOL_CALLS" split_words:"true" default:"10"`
}

// RoleSettings is the resolved model choice for one role.
type RoleSettings struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: gemini api key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

// Settings resolves the model, temperature and token limit for role, which is
// either an agent type or one of contract.RoleRouter / contract.RoleSentiment.
func (c Config) Settings(role string) RoleSettings {
	out := RoleSettings{
		Model:       strings.TrimSpace(c.Model),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}

	override := func(model string, temp float32, maxTokens int) {
		if v := strings.TrimSpace(model); v != "" {
			out.Model = v
		}
		if temp >= 0 {
			out.Temperature = temp
		}
		if maxTokens > 0 {
			out.MaxTokens = maxTokens
		}
	}

	switch role {
	case contractx.RoleRouter:
		override(c.RouterModel, c.RouterTemperature, c.RouterMaxTokens)
	case contractx.RoleSentiment:
		override(c.SentimentModel, c.SentimentTemperature, c.SentimentMaxTokens)
	case string(contractx.AgentTypeFAQ):
		override(c.FAQModel, c.FAQTemperature, unset)
	case string(contractx.AgentTypeOrder):
		override(c.OrderModel, c.OrderTemperature, unset)
	case string(contractx.AgentTypeProduct):
		override(c.ProductModel, c.ProductTemperature, unset)
	case string(contractx.AgentTypeHandover):
		override(c.HandoverModel, c.HandoverTemperature, unset)
	case string(contractx.AgentTypeRedirect):
		override(c.RedirectModel, c.RedirectTemperature, unset)
	}
	return out
}

func (c Config) OpenRouterFor(role string) openrouterx.Config {
	s := c.Settings(role)
	return openrouterx.Config{
		BaseURL:     strings.TrimSpace(c.BaseURL),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		Timeout:     c.Timeout,
		SiteURL:     strings.TrimSpace(c.SiteURL),
		SiteName:    strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(role string) geminix.Config {
	s := c.Settings(role)
	return geminix.Config{
		APIKey:      strings.TrimSpace(c.GeminiAPIKey),
		BaseURL:     strings.TrimSpace(c.GeminiBaseURL),
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	}
}
