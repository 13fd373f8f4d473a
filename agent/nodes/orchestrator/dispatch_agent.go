package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

// HandoverFallbackReply answers when the handover agent itself fails.
const HandoverFallbackReply = "我們已記錄您的問題，客服將盡快與您聯繫。"

// DispatchAgent runs the routed agent. Agent failures are recorded on the
// state instead of failing the graph.
func DispatchAgent(ctx context.Context, in *GraphState, agents contractx.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	agentType := in.Route.AgentType
	if agentType == contractx.AgentTypeHandover {
		in.Notice = comfortNotice(in.Route)
	}

	agent, ok := agents.Agent(agentType)
	if !ok {
		in.AgentErr = fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, agentType)
		return in, nil
	}

	resp, err := agent.Run(ctx, contractx.AgentRequest{
		SessionID: in.SessionID,
		Message:   in.Message,
		UserInfo:  in.UserInfo,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("agent_type", agentType.String()).Msg("agent failed")
		if agentType == contractx.AgentTypeHandover {
			in.Reply = HandoverFallbackReply
			return in, nil
		}
		in.AgentErr = err
		return in, nil
	}

	in.Reply = strings.TrimSpace(resp.Message)
	in.UserInfo = in.UserInfo.Merge(resp.UserInfo)
	return in, nil
}

// comfortNotice is shown before a sentiment-driven handover.
func comfortNotice(route contractx.RoutingResult) string {
	if !route.ShouldHandover || route.SentimentScore == nil {
		return ""
	}
	return fmt.Sprintf("我理解您現在可能感到不滿，非常抱歉造成您的困擾\n情緒分析: %.2f / 1.0\n%s\n\n讓我來幫助您解決這個問題",
		*route.SentimentScore, route.Reason)
}
