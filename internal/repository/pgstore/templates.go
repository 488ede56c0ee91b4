package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/vectormath"
)

const templateColumns = `id::text, title, description, doc_type, jurisdiction, tags, body, source_url, embedding, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Insert writes a template and its variables in one transaction.
func (s *Store) Insert(ctx context.Context, t domtpl.Template) error {
	if t.HasEmbedding() && len(t.Embedding()) != s.dims {
		return fmt.Errorf("insert %s: %w", t.ID(), domain.ErrVectorDimMismatch)
	}
	tags, err := json.Marshal(nonNil(t.Tags()))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO templates (id, title, description, doc_type, jurisdiction, tags, body, source_url, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		t.ID(), t.Title(), t.Description(), t.DocType(), t.Jurisdiction(), string(tags),
		t.Body(), t.SourceURL(), embeddingArg(t.Embedding()), t.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert template %s: %w", t.ID(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAlreadyExists
	}

	for i, v := range t.Variables() {
		spec := v.Spec()
		allowed, err := json.Marshal(nonNil(spec.AllowedValues))
		if err != nil {
			return fmt.Errorf("marshal allowed values: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO template_variables
				(template_id, key, position, label, description, example, required, data_type, validation_pattern, allowed_values, question)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID(), spec.Key, i, spec.Label, spec.Description, spec.Example, spec.Required,
			spec.DataType, spec.Pattern, string(allowed), spec.Question,
		)
		if err != nil {
			return fmt.Errorf("insert variable %s: %w", spec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns a template with its variables.
func (s *Store) Get(ctx context.Context, id string) (domtpl.Template, error) {
	if !looksLikeUUID(id) {
		return domtpl.Template{}, domain.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	p, err := scanTemplate(row, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domtpl.Template{}, domain.ErrNotFound
		}
		return domtpl.Template{}, fmt.Errorf("select template %s: %w", id, err)
	}

	vars, err := s.variables(ctx, []string{id})
	if err != nil {
		return domtpl.Template{}, err
	}
	p.Variables = vars[id]
	return domtpl.Reconstruct(p), nil
}

// Delete removes a template; variables cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !looksLikeUUID(id) {
		return domain.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Nearest returns up to k embedded templates by descending similarity.
func (s *Store) Nearest(ctx context.Context, vec []float32, k int) ([]match.Candidate, error) {
	return s.NearestFiltered(ctx, vec, k, domtpl.Filter{})
}

// NearestFiltered is Nearest restricted by f. Ordering uses the pgvector cosine operator <=>.
func (s *Store) NearestFiltered(
	ctx context.Context, vec []float32, k int, f domtpl.Filter,
) ([]match.Candidate, error) {
	if len(vec) != s.dims {
		return nil, fmt.Errorf("nearest: %w", domain.ErrVectorDimMismatch)
	}
	if k < 1 {
		return nil, domain.NewValidationError("k", "must be at least 1")
	}

	query, args := nearestQuery(pgvector.NewVector(vec), k, f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	var params []domtpl.Params
	var distances []float64
	for rows.Next() {
		var d float64
		p, err := scanTemplate(rows, &d)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		params = append(params, p)
		distances = append(distances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	vars, err := s.variables(ctx, paramIDs(params))
	if err != nil {
		return nil, err
	}

	out := make([]match.Candidate, 0, len(params))
	for i, p := range params {
		p.Variables = vars[p.ID]
		out = append(out, match.Candidate{
			Template:   domtpl.Reconstruct(p),
			Similarity: vectormath.FromCosineDistance(distances[i]),
		})
	}
	return out, nil
}

// List returns templates newest first.
func (s *Store) List(ctx context.Context, skip, limit int) ([]domtpl.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var params []domtpl.Params
	for rows.Next() {
		p, err := scanTemplate(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	vars, err := s.variables(ctx, paramIDs(params))
	if err != nil {
		return nil, err
	}
	out := make([]domtpl.Template, 0, len(params))
	for _, p := range params {
		p.Variables = vars[p.ID]
		out = append(out, domtpl.Reconstruct(p))
	}
	return out, nil
}

// Count returns the number of stored templates.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return n, nil
}

// variables loads variables for the given templates, keyed by template ID, in stored order.
func (s *Store) variables(ctx context.Context, ids []string) (map[string][]domtpl.Variable, error) {
	out := make(map[string][]domtpl.Variable, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT template_id::text, key, label, description, example, required, data_type,
		       validation_pattern, allowed_values, question
		FROM template_variables
		WHERE template_id::text = ANY($1)
		ORDER BY template_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("select variables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var templateID string
		var spec domtpl.VariableSpec
		var allowed []byte
		if err := rows.Scan(&templateID, &spec.Key, &spec.Label, &spec.Description, &spec.Example,
			&spec.Required, &spec.DataType, &spec.Pattern, &allowed, &spec.Question); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		if len(allowed) > 0 {
			if err := json.Unmarshal(allowed, &spec.AllowedValues); err != nil {
				return nil, fmt.Errorf("unmarshal allowed values: %w", err)
			}
		}
		out[templateID] = append(out[templateID], domtpl.ReconstructVariable(spec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return out, nil
}

// nearestQuery builds the KNN statement. Filters compare case-insensitively like the Redis TAG index.
func nearestQuery(vec pgvector.Vector, k int, f domtpl.Filter) (string, []any) {
	args := []any{vec}
	where := []string{"embedding IS NOT NULL"}
	if v := strings.TrimSpace(f.DocType); v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("lower(doc_type) = lower($%d)", len(args)))
	}
	if v := strings.TrimSpace(f.Jurisdiction); v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("lower(jurisdiction) = lower($%d)", len(args)))
	}
	args = append(args, k)

	query := fmt.Sprintf(`SELECT %s, embedding <=> $1 AS distance
		FROM templates
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d`, templateColumns, strings.Join(where, " AND "), len(args))
	return query, args
}

// scanTemplate reads templateColumns and, when distance is non-nil, a trailing distance column.
func scanTemplate(row rowScanner, distance *float64) (domtpl.Params, error) {
	var p domtpl.Params
	var tags []byte
	var emb sql.Null[pgvector.Vector]

	dest := []any{&p.ID, &p.Title, &p.Description, &p.DocType, &p.Jurisdiction, &tags,
		&p.Body, &p.SourceURL, &emb, &p.CreatedAt}
	if distance != nil {
		dest = append(dest, distance)
	}
	if err := row.Scan(dest...); err != nil {
		return domtpl.Params{}, err //nolint:wrapcheck // callers wrap and check sql.ErrNoRows
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return domtpl.Params{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if emb.Valid {
		p.Embedding = emb.V.Slice()
	}
	return p, nil
}

func embeddingArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func paramIDs(params []domtpl.Params) []string {
	ids := make([]string, len(params))
	for i, p := range params {
		ids[i] = p.ID
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// looksLikeUUID guards UUID columns from malformed input, which PostgreSQL rejects with an error.
func looksLikeUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
