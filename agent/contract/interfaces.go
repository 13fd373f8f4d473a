package contract

import "context"

// Router picks the agent for a message. It always returns a usable decision.
type Router interface {
	Route(ctx context.Context, message string, userInfo UserInfo) RoutingResult
}

type Agent interface {
	Type() AgentType
	Run(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Registry interface {
	Agent(agentType AgentType) (Agent, bool)
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, message string) (SentimentResult, error)
}
