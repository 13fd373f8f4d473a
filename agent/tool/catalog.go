package tool

import (
	"context"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/knowledge"
)

// Deps are the shared resources tools are built from.
type Deps struct {
	Catalog   *knowledge.Catalog
	Sentiment contractx.SentimentAnalyzer
	Tickets   TicketSink
	Rules     *Rules
}

func (d Deps) rules() Rules {
	if d.Rules != nil {
		return *d.Rules
	}
	return DefaultRules()
}

func (d Deps) tickets() TicketSink {
	if d.Tickets != nil {
		return d.Tickets
	}
	return LogTicketSink{}
}

// BuildForAgent assembles the tool set of one agent.
func BuildForAgent(ctx context.Context, agentType contractx.AgentType, deps Deps) (*Manager, error) {
	var tools []einotool.InvokableTool

	switch agentType {
	case contractx.AgentTypeFAQ:
		if deps.Catalog == nil {
			return nil, fmt.Errorf("build tools for agent=%s: catalog is nil", agentType)
		}
		tools = append(tools,
			newProductSearchTool(deps.Catalog.Products),
			newKnowledgeSearchTool(deps.Catalog.KnowledgeIndex),
		)
	case contractx.AgentTypeOrder:
		if deps.Catalog == nil {
			return nil, fmt.Errorf("build tools for agent=%s: catalog is nil", agentType)
		}
		tools = append(tools,
			newCheckOrderMissingTool(),
			newOrderSearchTool(deps.Catalog),
		)
	case contractx.AgentTypeProduct:
		if deps.Catalog == nil {
			return nil, fmt.Errorf("build tools for agent=%s: catalog is nil", agentType)
		}
		tools = append(tools,
			newCheckMissingTool(deps.rules()),
			newProductSemanticSearchTool(deps.Catalog.ProductIndex),
		)
	case contractx.AgentTypeHandover:
		if deps.Sentiment == nil {
			return nil, fmt.Errorf("build tools for agent=%s: sentiment analyzer is nil", agentType)
		}
		tools = append(tools,
			newDetectSentimentTool(deps.Sentiment, deps.rules().NegativeThreshold),
			newHandoffHumanTool(deps.tickets()),
		)
	case contractx.AgentTypeRedirect:
		rules := deps.rules()
		tools = append(tools,
			newCheckTopicTool(rules),
			newRedirectTopicTool(rules),
		)
	default:
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, agentType)
	}

	manager := NewManager(agentType)
	for _, t := range tools {
		if err := manager.Register(ctx, t); err != nil {
			return nil, fmt.Errorf("build tools for agent=%s: %w", agentType, err)
		}
	}
	return manager, nil
}
