package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

func baseConfig() Config {
	return Config{
		Provider:             ProviderOpenRouter,
		APIKey:               "key",
		Model:                "gpt-4o-mini",
		MaxTokens:            500,
		Temperature:          0,
		RouterTemperature:    0.1,
		RouterMaxTokens:      300,
		SentimentTemperature: 0,
		SentimentMaxTokens:   100,
		FAQTemperature:       -1,
		OrderTemperature:     -1,
		ProductTemperature:   -1,
		HandoverTemperature:  -1,
		RedirectTemperature:  -1,
	}
}

func TestSettingsPerRole(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.ProductModel = "openai/gpt-4.1"
	cfg.ProductTemperature = 0.3

	router := cfg.Settings(contractx.RoleRouter)
	if router.Model != "gpt-4o-mini" || router.Temperature != 0.1 || router.MaxTokens != 300 {
		t.Fatalf("unexpected router settings: %+v", router)
	}

	sentiment := cfg.Settings(contractx.RoleSentiment)
	if sentiment.MaxTokens != 100 || sentiment.Temperature != 0 {
		t.Fatalf("unexpected sentiment settings: %+v", sentiment)
	}

	product := cfg.Settings(string(contractx.AgentTypeProduct))
	if product.Model != "openai/gpt-4.1" || product.Temperature != 0.3 || product.MaxTokens != 500 {
		t.Fatalf("unexpected product settings: %+v", product)
	}

	faq := cfg.Settings(string(contractx.AgentTypeFAQ))
	if faq.Model != "gpt-4o-mini" || faq.Temperature != 0 {
		t.Fatalf("unexpected faq settings: %+v", faq)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	noKey := baseConfig()
	noKey.APIKey = " "
	if err := noKey.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	gemini := baseConfig()
	gemini.Provider = ProviderGemini
	if err := gemini.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without gemini key, got %v", err)
	}
	gemini.GeminiAPIKey = "g"
	if err := gemini.Validate(); err != nil {
		t.Fatalf("Validate() gemini error = %v", err)
	}

	unknown := baseConfig()
	unknown.Provider = "bedrock"
	if err := unknown.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown provider, got %v", err)
	}
}

func TestOpenRouterFor(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.BaseURL = " https://openrouter.ai/api/v1 "
	out := cfg.OpenRouterFor(contractx.RoleRouter)
	if out.BaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("BaseURL = %q", out.BaseURL)
	}
	if out.MaxTokens != 300 || out.Temperature != 0.1 {
		t.Fatalf("unexpected router config: %+v", out)
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	text := "sure!\n```json\n{\"a\": {\"b\": 1}}\n``` trailing {\"c\":2}"
	greedy, ok := ExtractJSONObject(text, true)
	if !ok || greedy != "{\"a\": {\"b\": 1}}\n``` trailing {\"c\":2}" {
		t.Fatalf("greedy = %q", greedy)
	}
	lazy, ok := ExtractJSONObject(text, false)
	if !ok || lazy != "{\"a\": {\"b\": 1}" {
		t.Fatalf("lazy = %q", lazy)
	}
	if _, ok := ExtractJSONObject("no json here", true); ok {
		t.Fatal("expected no match")
	}
}
