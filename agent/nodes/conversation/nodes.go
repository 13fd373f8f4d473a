package conversationnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
)

// SystemPromptFunc renders the agent's system message for the current
// user profile.
type SystemPromptFunc func(ctx context.Context, info contractx.UserInfo) (*schema.Message, error)

// NewExtractUserInfoPreHandler seeds the turn state from the loaded thread.
func NewExtractUserInfoPreHandler() func(context.Context, TurnInput, *TurnState) (TurnInput, error) {
	return func(ctx context.Context, in TurnInput, state *TurnState) (TurnInput, error) {
		state.History = statex.CloneMessages(in.History)
		state.UserInfo = in.UserInfo.Clone()
		state.ToolCallCount = 0
		state.ToolCallLimitReached = false
		state.ToolCallIDSeq = 0
		return in, nil
	}
}

// NewExtractUserInfoNode merges profile facts found in every human message
// of the thread, including the new one, and emits the new user message.
func NewExtractUserInfoNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in TurnInput) ([]*schema.Message, error) {
		message := strings.TrimSpace(in.Message)
		if message == "" {
			return nil, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
		}

		err := compose.ProcessState(ctx, func(_ context.Context, state *TurnState) error {
			human := make([]string, 0, len(state.History)+1)
			for _, m := range state.History {
				if m != nil && m.Role == schema.User {
					human = append(human, m.Content)
				}
			}
			human = append(human, message)

			extracted := ExtractUserInfo(human)
			state.UserInfo = state.UserInfo.Merge(extracted)
			if len(extracted) > 0 {
				log.Ctx(ctx).Debug().Strs("keys", extracted.Keys()).Msg("user info updated")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("access turn state: %w", err)
		}

		return []*schema.Message{schema.UserMessage(message)}, nil
	})
}

// NewAgentPreHandler appends the incoming messages to the thread and
// returns the model input: system prompt, thread, and a wrap-up notice
// once the tool-call limit is hit.
func NewAgentPreHandler(systemPrompt SystemPromptFunc, maxToolCalls int) func(context.Context, []*schema.Message, *TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *TurnState) ([]*schema.Message, error) {
		// Some providers drop tool_call_id on tool results.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := strings.TrimSpace(msg.ToolCalls[0].ID); id != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		sys, err := systemPrompt(ctx, state.UserInfo)
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}

		out := make([]*schema.Message, 0, len(state.History)+2)
		out = append(out, sys)
		out = append(out, state.History...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			out = append(out, schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
					"Please synthesize a helpful response using the information you've already gathered. "+
					"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
				normalizeMaxToolCalls(maxToolCalls),
			)))
		}
		return out, nil
	}
}

func NewAgentPostHandler() func(context.Context, *schema.Message, *TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *TurnState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
		}
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}
		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			log.Ctx(ctx).Debug().Int("tool_count", len(out.ToolCalls)).Msg("calling tools")
		}
		return out, nil
	}
}

// NewShouldContinueCondition routes to the tools node while the model asks
// for tools and the limit has not been reached.
func NewShouldContinueCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, in *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *TurnState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached || in == nil || len(in.ToolCalls) == 0 {
			return NodeFinalize, nil
		}
		return NodeTools, nil
	}
}

func NewToolsPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *TurnState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *TurnState) (*schema.Message, error) {
		if incrementToolCallAndCheck(state, maxToolCalls) {
			log.Ctx(ctx).Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Msg("tool call limit exceeded")
		}
		return in, nil
	}
}

// NewFinalizeNode emits the turn result. Unanswered tool calls are stripped
// from the stored thread so the next turn starts from a valid transcript.
func NewFinalizeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (TurnOutput, error) {
		var out TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, state *TurnState) error {
			history := statex.CloneMessages(state.History)
			if n := len(history); n > 0 && len(history[n-1].ToolCalls) > 0 {
				history[n-1].ToolCalls = nil
			}
			out = TurnOutput{
				History:   history,
				UserInfo:  state.UserInfo.Clone(),
				ToolCalls: state.ToolCallCount,
			}
			return nil
		})
		if err != nil {
			return TurnOutput{}, fmt.Errorf("access turn state: %w", err)
		}

		if in != nil {
			out.Reply = strings.TrimSpace(in.Content)
		}
		return out, nil
	})
}
