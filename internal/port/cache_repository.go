package port

import "context"

type CacheRepository interface {
	// DecrementQuantity atomically decreases the cached quantity for a
	// (site, item) key. ok is false when the cached value cannot cover the
	// amount; known is false when the key is not cached at all, in which
	// case the caller must consult the durable store instead.
	DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (ok, known bool, err error)

	// IncrementQuantity restores cached quantity (for rollback on failure).
	IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error

	// SetQuantity overwrites the cached quantity for a (site, item) key.
	SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a previously set idempotency key so the
	// same request id can be claimed again.
	ReleaseIdempotency(ctx context.Context, key string) error
}
