package tool

import (
	"context"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	NameCheckMissing  = "check_missing"
	NameCheckTopic    = "check_topic"
	NameRedirectTopic = "redirect_topic"
)

type TopicOutput struct {
	RelatedToShopping bool `json:"related_to_shopping"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

var queryParam = map[string]*schema.ParameterInfo{
	"query": {
		Type:     schema.String,
		Desc:     "The user's request in their own words",
		Required: true,
	},
}

func newCheckMissingTool(rules Rules) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        NameCheckMissing,
			Desc:        "Check if we miss some crucial information from users before recommending a product",
			ParamsOneOf: schema.NewParamsOneOfByParams(queryParam),
		},
		func(ctx context.Context, in *QueryInput) (*MissingOutput, error) {
			return &MissingOutput{Missing: rules.MissingFields(in.Query)}, nil
		},
	)
}

func newCheckTopicTool(rules Rules) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        NameCheckTopic,
			Desc:        "Check if the user query is related to BenQ shopping, orders, or products",
			ParamsOneOf: schema.NewParamsOneOfByParams(queryParam),
		},
		func(ctx context.Context, in *QueryInput) (*TopicOutput, error) {
			return &TopicOutput{RelatedToShopping: rules.RelatedToShopping(in.Query)}, nil
		},
	)
}

func newRedirectTopicTool(rules Rules) einotool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: NameRedirectTopic,
			Desc: "When the user asks about topics unrelated to BenQ shopping or products, " +
				"politely redirect them to the topics we can help with: FAQ, products, orders, human agent",
			ParamsOneOf: schema.NewParamsOneOfByParams(queryParam),
		},
		func(ctx context.Context, in *QueryInput) (*MessageOutput, error) {
			if rules.RelatedToShopping(in.Query) {
				return &MessageOutput{Message: rules.Redirect.Related}, nil
			}
			return &MessageOutput{Message: rules.Redirect.Unrelated}, nil
		},
	)
}
