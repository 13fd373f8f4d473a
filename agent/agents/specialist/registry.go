package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Shop-Assistant/agent/llm"
	promptx "github.com/tanpawarit/Chative-Shop-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Shop-Assistant/agent/tool"
)

type Deps struct {
	Models       llmx.ModelFactory
	Prompts      promptx.PromptSet
	Tools        toolx.Deps
	Checkpointer statex.Checkpointer
	MaxToolCalls int
}

type registryImpl struct {
	agents map[contractx.AgentType]contractx.Agent
}

func (r *registryImpl) Agent(agentType contractx.AgentType) (contractx.Agent, bool) {
	a, ok := r.agents[agentType]
	return a, ok
}

// NewRegistry builds every agent with its own model settings, prompt and
// tool set.
func NewRegistry(ctx context.Context, deps Deps) (contractx.Registry, error) {
	if deps.Models == nil {
		return nil, fmt.Errorf("%w: model factory is nil", contractx.ErrValidation)
	}

	agents := make(map[contractx.AgentType]contractx.Agent, len(contractx.AllAgentTypes()))
	for _, agentType := range contractx.AllAgentTypes() {
		chatModel, err := deps.Models.ChatModel(ctx, agentType.String())
		if err != nil {
			return nil, err
		}
		template, err := deps.Prompts.ForAgent(agentType)
		if err != nil {
			return nil, err
		}
		tools, err := toolx.BuildForAgent(ctx, agentType, deps.Tools)
		if err != nil {
			return nil, err
		}

		agent, err := New(ctx, Config{
			AgentType:      agentType,
			Model:          chatModel,
			Tools:          tools,
			PromptTemplate: template,
			Checkpointer:   deps.Checkpointer,
			MaxToolCalls:   deps.MaxToolCalls,
		})
		if err != nil {
			return nil, err
		}
		agents[agentType] = agent
	}
	return &registryImpl{agents: agents}, nil
}
