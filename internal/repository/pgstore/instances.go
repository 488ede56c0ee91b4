package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
)

// SaveInstance writes a new draft instance.
func (s *Store) SaveInstance(ctx context.Context, inst dominst.Instance) error {
	answers, err := json.Marshal(inst.Answers())
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	missing, err := json.Marshal(nonNil(inst.Missing()))
	if err != nil {
		return fmt.Errorf("marshal missing: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO instances (id, template_id, user_query, answers, draft, missing, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		inst.ID(), inst.TemplateID(), inst.UserQuery(), string(answers), inst.Draft(), string(missing), inst.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert instance %s: %w", inst.ID(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetInstance returns a draft instance by ID.
func (s *Store) GetInstance(ctx context.Context, id string) (dominst.Instance, error) {
	if !looksLikeUUID(id) {
		return dominst.Instance{}, domain.ErrInstanceNotFound
	}

	var p dominst.Params
	var answers, missing []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id::text, template_id::text, user_query, answers, draft, missing, created_at
		FROM instances WHERE id = $1`, id,
	).Scan(&p.ID, &p.TemplateID, &p.UserQuery, &answers, &p.Draft, &missing, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dominst.Instance{}, domain.ErrInstanceNotFound
		}
		return dominst.Instance{}, fmt.Errorf("select instance %s: %w", id, err)
	}

	if err := json.Unmarshal(answers, &p.Answers); err != nil {
		return dominst.Instance{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(missing, &p.Missing); err != nil {
		return dominst.Instance{}, fmt.Errorf("unmarshal missing: %w", err)
	}
	return dominst.Reconstruct(p), nil
}

// Instances adapts the store to the Save/Get instance contract.
func (s *Store) Instances() *InstanceStore {
	return &InstanceStore{s: s}
}

// InstanceStore exposes instance persistence under the names the draft service expects.
type InstanceStore struct {
	s *Store
}

// Save writes a new draft instance.
func (i *InstanceStore) Save(ctx context.Context, inst dominst.Instance) error {
	return i.s.SaveInstance(ctx, inst)
}

// Get returns a draft instance by ID.
func (i *InstanceStore) Get(ctx context.Context, id string) (dominst.Instance, error) {
	return i.s.GetInstance(ctx, id)
}
