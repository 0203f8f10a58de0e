// Package reconcile keeps an in-memory task collection consistent with the
// task store by merging a bulk load with a live change feed.
package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// Stream is an open change subscription for one profile.
type Stream interface {
	// Events delivers changes in publication order. It is closed when the
	// stream ends for any reason.
	Events() <-chan domain.ChangeEvent
	// Err reports why Events was closed. It is nil after Close.
	Err() error
	Close() error
}

// Feed opens change subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, profileID uuid.UUID) (Stream, error)
}

// Cipher encrypts text fields before they are stored and opens them on read.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) string
}
