package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

const errorReason = "系統錯誤"

func FinalizeReply(in *GraphState) (contractx.Response, error) {
	if in == nil {
		return contractx.Response{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.AgentErr != nil {
		return ErrorResponse(in.AgentErr), nil
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return ErrorResponse(fmt.Errorf("%w: agent returned empty message", contractx.ErrSchemaViolation)), nil
	}

	return contractx.Response{
		Message:        reply,
		AgentType:      in.Route.AgentType,
		Confidence:     in.Route.Confidence,
		Reason:         in.Route.Reason,
		SentimentScore: in.Route.SentimentScore,
		ShouldHandover: in.Route.ShouldHandover,
		Notice:         in.Notice,
	}, nil
}

// ErrorResponse is the reply for a turn that failed after validation.
func ErrorResponse(err error) contractx.Response {
	return contractx.Response{
		Message:    fmt.Sprintf("抱歉, 處理您的請求時發生錯誤: %v", err),
		AgentType:  contractx.AgentTypeError,
		Confidence: 0,
		Reason:     errorReason,
	}
}
