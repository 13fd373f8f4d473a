package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Message   string
	UserInfo  contractx.UserInfo
}

type GraphState struct {
	SessionID string
	Message   string
	Now       time.Time

	Profile  *statex.Checkpoint
	UserInfo contractx.UserInfo
	Route    contractx.RoutingResult

	Reply  string
	Notice string
	// AgentErr is set when the dispatched agent failed; the reply is then
	// the error response.
	AgentErr error
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Message:   message,
		Now:       nowFn().UTC(),
		UserInfo:  in.UserInfo.Clone(),
	}, nil
}
