package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

func RouteMessage(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Route = router.Route(ctx, in.Message, in.UserInfo)
	return in, nil
}
