package llm

import (
	"context"
	"fmt"
	"regexp"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// CompilePromptGraph wires prompt -> model. userTemplate is an FString
// template rendered from the invoke variables into a single user message.
func CompilePromptGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	userTemplate string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("compile %s: chat model is nil", graphName)
	}

	template := einoprompt.FromMessages(
		schema.FString,
		schema.UserMessage(userTemplate),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add %s prompt node: %w", graphName, err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add %s model node: %w", graphName, err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add %s edge %s->%s: %w", graphName, edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

var (
	greedyObject = regexp.MustCompile(`(?s)\{.*\}`)
	lazyObject   = regexp.MustCompile(`(?s)\{.*?\}`)
)

// ExtractJSONObject pulls the first {...} span out of free model text.
// Greedy matching spans to the last closing brace, which tolerates nested objects.
func ExtractJSONObject(content string, greedy bool) (string, bool) {
	re := lazyObject
	if greedy {
		re = greedyObject
	}
	match := re.FindString(content)
	return match, match != ""
}
