package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Shop-Assistant/agent/metrics"
	conversationnode "github.com/tanpawarit/Chative-Shop-Assistant/agent/nodes/conversation"
	promptx "github.com/tanpawarit/Chative-Shop-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Shop-Assistant/agent/tool"
)

const defaultMaxHistory = 40

type Config struct {
	AgentType      contractx.AgentType
	Model          einomodel.ToolCallingChatModel
	Tools          *toolx.Manager
	PromptTemplate string
	Checkpointer   statex.Checkpointer
	MaxToolCalls   int
	// MaxHistory bounds the stored thread; older turns are dropped whole.
	MaxHistory int
}

// Agent answers one domain with its own tools and checkpointed thread.
type Agent struct {
	agentType    contractx.AgentType
	checkpointer statex.Checkpointer
	maxHistory   int
	runner       compose.Runnable[conversationnode.TurnInput, conversationnode.TurnOutput]
}

var _ contractx.Agent = (*Agent)(nil)

func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("%w: agent=%s model is nil", contractx.ErrValidation, cfg.AgentType)
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("%w: agent=%s tools are nil", contractx.ErrValidation, cfg.AgentType)
	}
	if cfg.Checkpointer == nil {
		return nil, fmt.Errorf("%w: agent=%s checkpointer is nil", contractx.ErrValidation, cfg.AgentType)
	}
	if strings.TrimSpace(cfg.PromptTemplate) == "" {
		return nil, fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, cfg.AgentType)
	}

	template := einoprompt.FromMessages(schema.FString, schema.SystemMessage(cfg.PromptTemplate))
	toolDescriptions := cfg.Tools.Descriptions(ctx)
	systemPrompt := func(ctx context.Context, info contractx.UserInfo) (*schema.Message, error) {
		msgs, err := template.Format(ctx, map[string]any{
			"user_context":      promptx.UserContext(info),
			"tool_descriptions": toolDescriptions,
		})
		if err != nil {
			return nil, err
		}
		if len(msgs) != 1 {
			return nil, fmt.Errorf("system prompt rendered %d messages", len(msgs))
		}
		return msgs[0], nil
	}

	runner, err := compileConversationGraph(ctx, "agent."+cfg.AgentType.String(), cfg.Model, cfg.Tools, systemPrompt, cfg.MaxToolCalls)
	if err != nil {
		return nil, fmt.Errorf("%w: agent=%s: %v", contractx.ErrModelInvoke, cfg.AgentType, err)
	}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	return &Agent{
		agentType:    cfg.AgentType,
		checkpointer: cfg.Checkpointer,
		maxHistory:   maxHistory,
		runner:       runner,
	}, nil
}

func (a *Agent) Type() contractx.AgentType { return a.agentType }

// Run continues the session's thread for this agent with one message and
// persists the result.
func (a *Agent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	start := time.Now()
	logger := log.Ctx(ctx).With().
		Str("agent_type", a.agentType.String()).
		Str("session_id", req.SessionID).
		Logger()
	ctx = logger.WithContext(ctx)

	threadID := statex.ThreadID(req.SessionID, a.agentType)
	cp, err := a.checkpointer.Load(ctx, threadID)
	switch {
	case errors.Is(err, statex.ErrCheckpointNotFound):
		cp = statex.NewCheckpoint(threadID, start)
	case err != nil:
		metricsx.AgentTurnFailures.WithLabelValues(a.agentType.String()).Inc()
		return contractx.AgentResponse{}, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	out, err := a.runner.Invoke(ctx, conversationnode.TurnInput{
		Message:  req.Message,
		History:  cp.Messages,
		UserInfo: cp.UserInfo.Merge(req.UserInfo),
	})
	metricsx.AgentTurnDuration.WithLabelValues(a.agentType.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metricsx.AgentTurnFailures.WithLabelValues(a.agentType.String()).Inc()
		return contractx.AgentResponse{}, fmt.Errorf("%w: agent=%s: %v", contractx.ErrModelInvoke, a.agentType, err)
	}
	if out.Reply == "" {
		metricsx.AgentTurnFailures.WithLabelValues(a.agentType.String()).Inc()
		return contractx.AgentResponse{}, fmt.Errorf("%w: agent=%s returned an empty reply", contractx.ErrSchemaViolation, a.agentType)
	}

	cp.Messages = trimHistory(out.History, a.maxHistory)
	cp.UserInfo = out.UserInfo
	if err := a.checkpointer.Save(ctx, cp); err != nil {
		logger.Error().Err(err).Str("thread_id", threadID).Msg("failed to save thread")
	}

	logger.Debug().
		Int("tool_calls", out.ToolCalls).
		Int("history", len(cp.Messages)).
		Dur("elapsed", time.Since(start)).
		Msg("agent turn completed")

	return contractx.AgentResponse{
		Message:   out.Reply,
		UserInfo:  out.UserInfo,
		ToolCalls: out.ToolCalls,
	}, nil
}

// trimHistory keeps at most limit messages, starting at a user message so
// tool results are never separated from their call.
func trimHistory(msgs []*schema.Message, limit int) []*schema.Message {
	if len(msgs) <= limit {
		return msgs
	}
	start := len(msgs) - limit
	for start < len(msgs) && msgs[start].Role != schema.User {
		start++
	}
	return msgs[start:]
}
