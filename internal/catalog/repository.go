package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("catalog: entry not found")
	ErrAlreadyExists   = errors.New("catalog: entry already exists")
	ErrAlreadyResolved = errors.New("catalog: entry already resolved")
)

// DefaultDiscountsLimit is used by Discounts when the caller gives no
// positive limit.
const DefaultDiscountsLimit = 50

// Repository is the persisted catalog. Every method touches at most one row
// except the read queries, and every mutation is a single statement so a
// row is never left half written.
type Repository interface {
	FindByID(ctx context.Context, sourceId int64) (Entry, error)
	// FindAll returns every entry ordered by source id.
	FindAll(ctx context.Context) ([]Entry, error)
	// Insert adds a new entry, ErrAlreadyExists if the source id is taken.
	Insert(ctx context.Context, entry Entry) error
	// Delete removes an entry, ErrNotFound if there was nothing to remove.
	Delete(ctx context.Context, sourceId int64) error

	// PendingResolution returns entries without a resolved id whose cooldown
	// (if any) has elapsed at `now`.
	PendingResolution(ctx context.Context, now time.Time) ([]Entry, error)
	// Resolved returns entries with a resolved id, least recently updated first.
	Resolved(ctx context.Context) ([]Entry, error)

	// SetResolvedID records the storefront id and clears any cooldown. It
	// returns ErrAlreadyResolved when an id was already recorded.
	SetResolvedID(ctx context.Context, sourceId int64, resolvedId string, at time.Time) error
	// SetCooldown suppresses resolution of the entry until `until`.
	SetCooldown(ctx context.Context, sourceId int64, until, at time.Time) error
	// SetPricing writes both prices and the derived discount rate together.
	SetPricing(ctx context.Context, sourceId int64, pricing Pricing, at time.Time) error

	// Discounts returns fully priced entries ordered by discount rate desc,
	// current price desc, title asc.
	Discounts(ctx context.Context, limit int) ([]Entry, error)
}
