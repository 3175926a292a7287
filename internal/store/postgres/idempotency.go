package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newdim001/biz-pro/internal/platform/db"
	"github.com/newdim001/biz-pro/internal/shared"
)

// ClaimIdempotencyKey inserts key, failing when it was processed before.
func (t *txStore) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("postgres: idempotency key required: %w", shared.ErrValidation)
	}
	module, _, _ := strings.Cut(key, ":")
	_, err := t.q.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, t.now())
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateSubmission, key)
	}
	return wrap("claim idempotency key", err)
}

// PurgeIdempotencyKeys removes entries claimed before olderThan.
func (s *Store) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, wrap("purge idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
