package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Shop-Assistant/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Orchestrator struct {
	router   contractx.Router
	agents   contractx.Registry
	profiles statex.Checkpointer

	graphRunner compose.Runnable[nodex.GraphInput, contractx.Response]

	now func() time.Time
}

func New(
	router contractx.Router,
	agents contractx.Registry,
	profiles statex.Checkpointer,
) (*Orchestrator, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if profiles == nil {
		profiles = statex.NewMemoryCheckpointer()
	}

	o := &Orchestrator{
		router:   router,
		agents:   agents,
		profiles: profiles,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage routes one user message and returns the agent's answer.
// Only invalid input is returned as an error; failures after validation
// produce the error response.
func (o *Orchestrator) HandleMessage(
	ctx context.Context,
	sessionID string,
	message string,
	userInfo contractx.UserInfo,
) (contractx.Response, error) {
	in := nodex.GraphInput{
		SessionID: sessionID,
		Message:   message,
		UserInfo:  userInfo,
	}
	if _, err := nodex.ValidateRequest(in, o.now); err != nil {
		return contractx.Response{}, err
	}

	ctx = log.Ctx(ctx).With().Str("session_id", sessionID).Logger().WithContext(ctx)
	out, err := o.graphRunner.Invoke(ctx, in)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("handle message failed")
		return nodex.ErrorResponse(err), nil
	}
	return out, nil
}
