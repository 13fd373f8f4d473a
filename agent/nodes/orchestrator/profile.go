package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Shop-Assistant/agent/state"
)

// LoadProfile reads the session profile and overlays the caller's user info.
func LoadProfile(ctx context.Context, in *GraphState, store statex.Checkpointer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	threadID := statex.ProfileThreadID(in.SessionID)
	profile, err := store.Load(ctx, threadID)
	switch {
	case errors.Is(err, statex.ErrCheckpointNotFound):
		profile = statex.NewCheckpoint(threadID, in.Now)
	case err != nil:
		return nil, fmt.Errorf("load profile %s: %w", threadID, err)
	}

	in.Profile = profile
	in.UserInfo = profile.UserInfo.Merge(in.UserInfo)
	return in, nil
}

// SaveProfile persists the merged user info. A failed save does not fail
// the turn; the reply has already been produced.
func SaveProfile(ctx context.Context, in *GraphState, store statex.Checkpointer) (*GraphState, error) {
	if in == nil || in.Profile == nil {
		return nil, fmt.Errorf("%w: graph profile is nil", contractx.ErrValidation)
	}

	in.Profile.UserInfo = in.UserInfo.Clone()
	if err := store.Save(ctx, in.Profile); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("session_id", in.SessionID).Msg("failed to save profile")
	}
	return in, nil
}
