package repository

import (
	"context"
	"time"
)

// EffectStore is the dedup ledger behind the side-effect coordinator.
// Keys identify one effect of one committed transition; a key that is
// already done makes a retried dispatch a no-op.
type EffectStore interface {
	// Done reports whether the effect was already performed and, for
	// effects with an output (channel publish), the recorded result.
	Done(ctx context.Context, key string) (result string, done bool, err error)
	// MarkDone records the effect as performed, keeping result for
	// replays. Entries may expire after ttl.
	MarkDone(ctx context.Context, key, result string, ttl time.Duration) error
}
