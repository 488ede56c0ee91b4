package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/draftdex/internal/db"
)

// JSONSetNX stores a whole document only when key does not exist.
// JSON.SET ... NX replies nil when the key is already present.
func (s *Store) JSONSetNX(ctx context.Context, key string, data []byte) error {
	cmd := s.b().JsonSet().Key(key).Path("$").Value(string(data)).Nx().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return db.ErrKeyExists
		}
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return nil
}

// JSONGet retrieves a JSON document by key and optional paths.
func (s *Store) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	cmd := s.b().JsonGet().Key(key).Path(paths...).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}
