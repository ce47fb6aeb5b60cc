package ports

import (
	"context"
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// PasswordHasher hides the hashing algorithm from the services.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, digest string) bool
}

// RevocationStore remembers revoked token ids until they would expire anyway.
type RevocationStore interface {
	// Revoke blocks tokenID for ttl; a zero ttl blocks it permanently.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Locker provides short-lived mutual exclusion across API replicas.
type Locker interface {
	// TryLock returns ok=false without error when the key is already held.
	TryLock(ctx context.Context, key string) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// EventPublisher emits domain events. Implementations must not block the caller
// on broker I/O.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
