package shared

import (
	"fmt"
	"strings"
)

// ErrDuplicateSubmission indicates an idempotency key was already processed.
var ErrDuplicateSubmission = fmt.Errorf("request already processed: %w", ErrConflict)

// IdempotencyKey namespaces a client supplied key per module. Empty keys stay empty.
func IdempotencyKey(module, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return module + ":" + key
}
