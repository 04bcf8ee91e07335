package testutil

import (
	"context"
	"time"

	"certledger/pkg/requestcontext"
)

// WithFrozenTime pins the request time so issue timestamps are deterministic.
func WithFrozenTime(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}
