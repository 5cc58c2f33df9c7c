// Package cache stores encoded analysis responses by request key.
package cache

import (
	"context"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
// A miss is (nil, false, nil); err is reserved for backend failures.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) GetBytes(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) SetBytes(context.Context, string, []byte, time.Duration) error { return nil }
