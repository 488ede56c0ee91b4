package instance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
)

const (
	fieldID         = "id"
	fieldTemplateID = "template_id"
	fieldUserQuery  = "user_query"
	fieldAnswers    = "answers"
	fieldDraft      = "draft"
	fieldMissing    = "missing"
	fieldCreatedAt  = "created_at"
)

// store is the consumer interface for instances (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo stores draft instances as Redis hashes.
type Repo struct {
	store  store
	prefix string
}

// New creates an instance repository. keyPrefix is the storage prefix, e.g. "draftdex:".
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "instance:"}
}

// Save writes a new instance.
func (r *Repo) Save(ctx context.Context, inst dominst.Instance) error {
	key := r.prefix + inst.ID()

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	fields, err := buildHashFields(&inst)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns an instance by ID.
func (r *Repo) Get(ctx context.Context, id string) (dominst.Instance, error) {
	key := r.prefix + id
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dominst.Instance{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return dominst.Instance{}, domain.ErrInstanceNotFound
	}
	return parseHashFields(id, m)
}

func buildHashFields(inst *dominst.Instance) (map[string]string, error) {
	answers, err := json.Marshal(inst.Answers())
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	missing := inst.Missing()
	if missing == nil {
		missing = []string{}
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return nil, fmt.Errorf("marshal missing: %w", err)
	}
	return map[string]string{
		fieldID:         inst.ID(),
		fieldTemplateID: inst.TemplateID(),
		fieldUserQuery:  inst.UserQuery(),
		fieldAnswers:    string(answers),
		fieldDraft:      inst.Draft(),
		fieldMissing:    string(missingJSON),
		fieldCreatedAt:  strconv.FormatInt(inst.CreatedAt(), 10),
	}, nil
}

func parseHashFields(id string, m map[string]string) (dominst.Instance, error) {
	var answers map[string]any
	if s := m[fieldAnswers]; s != "" {
		if err := json.Unmarshal([]byte(s), &answers); err != nil {
			return dominst.Instance{}, fmt.Errorf("unmarshal answers of %s: %w", id, err)
		}
	}
	var missing []string
	if s := m[fieldMissing]; s != "" {
		if err := json.Unmarshal([]byte(s), &missing); err != nil {
			return dominst.Instance{}, fmt.Errorf("unmarshal missing of %s: %w", id, err)
		}
	}
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)

	return dominst.Reconstruct(dominst.Params{
		ID:         id,
		TemplateID: m[fieldTemplateID],
		UserQuery:  m[fieldUserQuery],
		Answers:    answers,
		Draft:      m[fieldDraft],
		Missing:    missing,
		CreatedAt:  createdAt,
	}), nil
}
