package conversationnode

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

const (
	NodeExtractUserInfo = "extract_user_info"
	NodeAgent           = "agent"
	NodeTools           = "tools"
	NodeFinalize        = "finalize"

	DefaultMaxToolCalls = 10
)

// TurnInput is one user message plus the thread it continues.
type TurnInput struct {
	Message  string
	History  []*schema.Message
	UserInfo contractx.UserInfo
}

type TurnOutput struct {
	Reply     string
	History   []*schema.Message
	UserInfo  contractx.UserInfo
	ToolCalls int
}

// TurnState is the graph-local state of one turn.
type TurnState struct {
	History  []*schema.Message
	UserInfo contractx.UserInfo

	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int
}

func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit marks the state once the count reaches the limit.
// Returns true only on the call that marks it.
func checkAndMarkToolLimit(state *TurnState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

func incrementToolCallAndCheck(state *TurnState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}
