package state

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrNilCheckpoint      = errors.New("checkpoint is nil")
	ErrInvalidThread      = errors.New("thread id is empty")
)

// Checkpoint is the persisted conversation of one thread: every message
// the agent graph has seen plus the user profile it accumulated.
type Checkpoint struct {
	ThreadID  string             `json:"thread_id"`
	Messages  []*schema.Message  `json:"messages,omitempty"`
	UserInfo  contractx.UserInfo `json:"user_info,omitempty"`
	Version   int64              `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Checkpointer is the persistence contract shared by agents and the
// orchestrator. Load of an unknown thread returns ErrCheckpointNotFound.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Delete(ctx context.Context, threadID string) error
}

func NewCheckpoint(threadID string, now time.Time) *Checkpoint {
	return &Checkpoint{
		ThreadID:  threadID,
		UserInfo:  contractx.UserInfo{},
		UpdatedAt: now.UTC(),
	}
}

// ThreadID scopes an agent's conversation to a session.
func ThreadID(sessionID string, agentType contractx.AgentType) string {
	return sessionID + ":" + agentType.String()
}

// ProfileThreadID is the thread holding the session-wide user profile.
func ProfileThreadID(sessionID string) string {
	return sessionID + ":profile"
}

func (c *Checkpoint) Validate() error {
	if c == nil {
		return ErrNilCheckpoint
	}
	if strings.TrimSpace(c.ThreadID) == "" {
		return ErrInvalidThread
	}
	return nil
}

// Clone deep-copies messages and user info so callers never share
// mutable state with a store.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.UserInfo = c.UserInfo.Clone()
	out.Messages = CloneMessages(c.Messages)
	return &out
}

func CloneMessages(msgs []*schema.Message) []*schema.Message {
	if msgs == nil {
		return nil
	}
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		cp := *m
		if len(m.ToolCalls) > 0 {
			cp.ToolCalls = append([]schema.ToolCall(nil), m.ToolCalls...)
		}
		out = append(out, &cp)
	}
	return out
}

// prepare stamps a checkpoint before it is written.
func (c *Checkpoint) prepare(now time.Time) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Version++
	c.UpdatedAt = now.UTC()
	if c.UserInfo == nil {
		c.UserInfo = contractx.UserInfo{}
	}
	return nil
}
