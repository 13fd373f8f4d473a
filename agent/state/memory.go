package state

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCheckpointer keeps checkpoints in process memory.
type MemoryCheckpointer struct {
	mu      sync.RWMutex
	threads map[string]*Checkpoint
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{threads: map[string]*Checkpoint{}}
}

func (m *MemoryCheckpointer) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidThread
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.threads[threadID]
	if !ok {
		return nil, ErrCheckpointNotFound
	}
	return cp.Clone(), nil
}

func (m *MemoryCheckpointer) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.prepare(time.Now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[cp.ThreadID] = cp.Clone()
	return nil
}

func (m *MemoryCheckpointer) Delete(ctx context.Context, threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return ErrInvalidThread
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
	return nil
}
