package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"google.golang.org/genai"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	geminix "github.com/tanpawarit/Chative-Shop-Assistant/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/openrouter"
)

// ModelFactory hands out chat models per role.
type ModelFactory interface {
	ChatModel(ctx context.Context, role string) (einomodel.ToolCallingChatModel, error)
}

// Factory builds chat models for the configured provider.
type Factory struct {
	cfg    Config
	gemini *genai.Client
}

var _ ModelFactory = (*Factory)(nil)

func NewFactory(ctx context.Context, cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Factory{cfg: cfg}
	if cfg.provider() == ProviderGemini {
		client, err := geminix.NewClient(ctx, cfg.GeminiFor(""))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		f.gemini = client
	}
	return f, nil
}

func (f *Factory) ChatModel(ctx context.Context, role string) (einomodel.ToolCallingChatModel, error) {
	switch f.cfg.provider() {
	case ProviderGemini:
		m, err := geminix.NewChatModel(ctx, f.gemini, f.cfg.GeminiFor(role))
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		return m, nil
	default:
		orCfg := f.cfg.OpenRouterFor(role)
		m, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		return m, nil
	}
}

// EmbeddingClient returns the OpenAI-compatible client used for embeddings,
// or nil when embeddings are disabled or the provider has no such endpoint.
func (f *Factory) EmbeddingClient() *openaisdk.Client {
	if !f.cfg.EmbeddingsEnabled || f.cfg.provider() != ProviderOpenRouter {
		return nil
	}
	return openrouterx.NewClient(f.cfg.OpenRouterFor(""))
}

func (f *Factory) Config() Config {
	return f.cfg
}
