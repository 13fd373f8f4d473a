package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	conversationnode "github.com/tanpawarit/Chative-Shop-Assistant/agent/nodes/conversation"
	toolx "github.com/tanpawarit/Chative-Shop-Assistant/agent/tool"
)

// compileConversationGraph wires
// extract_user_info -> agent -> (tools -> agent)* -> finalize.
func compileConversationGraph(
	ctx context.Context,
	graphName string,
	chatModel einomodel.ToolCallingChatModel,
	tools *toolx.Manager,
	systemPrompt conversationnode.SystemPromptFunc,
	maxToolCalls int,
) (compose.Runnable[conversationnode.TurnInput, conversationnode.TurnOutput], error) {
	infos, err := tools.Infos(ctx)
	if err != nil {
		return nil, err
	}
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               tools.Tools(),
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			log.Ctx(ctx).Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("unknown tool call, returning fallback result")
			msg, _ := tools.Execute(ctx, name, input)
			raw, _ := json.Marshal(map[string]string{"error": msg})
			return string(raw), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeArguments(arguments), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create tools node: %w", err)
	}

	graph := compose.NewGraph[conversationnode.TurnInput, conversationnode.TurnOutput](
		compose.WithGenLocalState(func(ctx context.Context) *conversationnode.TurnState {
			return &conversationnode.TurnState{}
		}),
	)

	if err := graph.AddLambdaNode(conversationnode.NodeExtractUserInfo,
		conversationnode.NewExtractUserInfoNode(),
		compose.WithStatePreHandler(conversationnode.NewExtractUserInfoPreHandler()),
	); err != nil {
		return nil, fmt.Errorf("add extract_user_info node: %w", err)
	}
	if err := graph.AddChatModelNode(conversationnode.NodeAgent, toolModel,
		compose.WithStatePreHandler(conversationnode.NewAgentPreHandler(systemPrompt, maxToolCalls)),
		compose.WithStatePostHandler(conversationnode.NewAgentPostHandler()),
	); err != nil {
		return nil, fmt.Errorf("add agent node: %w", err)
	}
	if err := graph.AddToolsNode(conversationnode.NodeTools, toolsNode,
		compose.WithStatePreHandler(conversationnode.NewToolsPreHandler(maxToolCalls)),
	); err != nil {
		return nil, fmt.Errorf("add tools node: %w", err)
	}
	if err := graph.AddLambdaNode(conversationnode.NodeFinalize, conversationnode.NewFinalizeNode()); err != nil {
		return nil, fmt.Errorf("add finalize node: %w", err)
	}

	edges := [][2]string{
		{compose.START, conversationnode.NodeExtractUserInfo},
		{conversationnode.NodeExtractUserInfo, conversationnode.NodeAgent},
		{conversationnode.NodeTools, conversationnode.NodeAgent},
		{conversationnode.NodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	shouldContinue := compose.NewGraphBranch(
		conversationnode.NewShouldContinueCondition(),
		map[string]bool{
			conversationnode.NodeTools:    true,
			conversationnode.NodeFinalize: true,
		},
	)
	if err := graph.AddBranch(conversationnode.NodeAgent, shouldContinue); err != nil {
		return nil, fmt.Errorf("add should_continue branch: %w", err)
	}

	maxSteps := max(20, 10+2*maxToolCalls)
	runner, err := graph.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

// sanitizeArguments trims string arguments; non-JSON input passes through.
func sanitizeArguments(arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			m[k] = strings.TrimSpace(s)
		}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(raw)
}
