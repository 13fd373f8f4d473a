package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type checkpointModel struct {
	bun.BaseModel `bun:"table:conversation_checkpoints"`

	ThreadID  string          `bun:"thread_id,pk"`
	Payload   json.RawMessage `bun:"payload,type:jsonb,notnull"`
	Version   int64           `bun:"version,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

// PostgresCheckpointer keeps one row per thread, upserted on save.
type PostgresCheckpointer struct {
	db bun.IDB
}

func NewPostgresCheckpointer(db bun.IDB) *PostgresCheckpointer {
	return &PostgresCheckpointer{db: db}
}

func (s *PostgresCheckpointer) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*checkpointModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *PostgresCheckpointer) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidThread
	}

	row := new(checkpointModel)
	err := s.db.NewSelect().
		Model(row).
		Where("thread_id = ?", threadID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint %s: %w", threadID, err)
	}
	return decodeCheckpoint(row.Payload)
}

func (s *PostgresCheckpointer) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.prepare(time.Now()); err != nil {
		return err
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	row := &checkpointModel{
		ThreadID:  cp.ThreadID,
		Payload:   payload,
		Version:   cp.Version,
		UpdatedAt: cp.UpdatedAt,
	}

	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (thread_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert checkpoint %s: %w", cp.ThreadID, err)
	}
	return nil
}

func (s *PostgresCheckpointer) Delete(ctx context.Context, threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return ErrInvalidThread
	}
	_, err := s.db.NewDelete().
		Model((*checkpointModel)(nil)).
		Where("thread_id = ?", threadID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", threadID, err)
	}
	return nil
}
