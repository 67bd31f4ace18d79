package cache

import (
	"context"
	"time"
)

// Key-value store holding the cache entry, lock entry and hand-off lists
//
// Every mutation must be a single atomic operation on the store side. Values returned
// as absent are reported through the bool, not through the error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Pop the oldest element of source and prepend it to destination, blocking up to
	// timeout while source is empty
	BlockingTransfer(ctx context.Context, source, destination string, timeout time.Duration) ([]byte, bool, error)
	PopFront(ctx context.Context, key string) ([]byte, bool, error)
	// Append value to the list at key and set the expiry of the whole list to ttl
	Push(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}

type GenerateFunc func(ctx context.Context, subjectID string) ([]byte, error)
