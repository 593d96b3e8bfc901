package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

// GuardKey identifies a (site, item) ledger entry whose cached quantity
// needs to be re-synced from the durable store.
type GuardKey struct {
	SiteID int64
	ItemID int64
}

// LedgerService owns the (site, item) to quantity mapping and its mutation
// protocol. When a cache guard is wired, decrements are checked against it
// first so concurrent callers cannot drive a quantity negative; the durable
// store re-checks with a conditional update either way.
type LedgerService struct {
	sites   port.SiteStore
	items   port.ItemStore
	avail   port.AvailabilityStore
	cache   port.CacheRepository
	metrics Metrics
	resync  chan GuardKey
}

func NewLedgerService(sites port.SiteStore, items port.ItemStore, avail port.AvailabilityStore, cache port.CacheRepository, metrics Metrics, queueSize int) *LedgerService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &LedgerService{
		sites:   sites,
		items:   items,
		avail:   avail,
		cache:   cache,
		metrics: metrics,
		resync:  make(chan GuardKey, queueSize),
	}
}

// Create inserts a new ledger entry. The pair must not already exist;
// upsert is not the contract.
func (s *LedgerService) Create(ctx context.Context, siteID, itemID int64, quantity int) (*domain.Availability, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity %d must be non-negative", ErrInvalidAmount, quantity)
	}
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("check site: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("%w: site %d", ErrNotFound, siteID)
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("check item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	existing, err := s.avail.GetAvailability(ctx, siteID, itemID)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: site %d item %d", ErrDuplicateEntry, siteID, itemID)
	}

	av := domain.Availability{SiteID: siteID, ItemID: itemID, Quantity: quantity}
	start := time.Now()
	err = s.avail.CreateAvailability(ctx, av)
	s.metrics.ObserveStore("availability_create", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}
	s.syncGuard(ctx, siteID, itemID, quantity)
	return &av, nil
}

// Adjust applies one SET, INCREMENT or DECREMENT mutation and returns the
// stored quantity after the write. A decrement that would cross zero is
// rejected and leaves the stored value untouched.
func (s *LedgerService) Adjust(ctx context.Context, siteID, itemID int64, op domain.AdjustOp, amount int) (int, error) {
	switch op {
	case domain.OpSet:
		if amount < 0 {
			return 0, fmt.Errorf("%w: SET amount %d must be non-negative", ErrInvalidAmount, amount)
		}
	case domain.OpIncrement, domain.OpDecrement:
		if amount <= 0 {
			return 0, fmt.Errorf("%w: %s amount %d must be positive", ErrInvalidAmount, op, amount)
		}
	default:
		return 0, fmt.Errorf("%w: unknown operation %q", ErrValidation, op)
	}

	entry, err := s.avail.GetAvailability(ctx, siteID, itemID)
	if err != nil {
		s.metrics.LedgerAdjustment(string(op), OutcomeError)
		return 0, fmt.Errorf("read availability: %w", err)
	}
	if entry == nil {
		s.metrics.LedgerAdjustment(string(op), OutcomeError)
		return 0, fmt.Errorf("%w: availability for site %d item %d", ErrNotFound, siteID, itemID)
	}

	switch op {
	case domain.OpSet:
		start := time.Now()
		err = s.avail.SetQuantity(ctx, siteID, itemID, amount)
		s.metrics.ObserveStore("quantity_set", time.Since(start))
	case domain.OpIncrement:
		start := time.Now()
		err = s.avail.IncrementQuantity(ctx, siteID, itemID, amount)
		s.metrics.ObserveStore("quantity_increment", time.Since(start))
	case domain.OpDecrement:
		if err := s.decrement(ctx, siteID, itemID, amount); err != nil {
			s.metrics.LedgerAdjustment(string(op), outcomeFor(err))
			return 0, err
		}
	}
	if err != nil {
		s.metrics.LedgerAdjustment(string(op), OutcomeError)
		return 0, fmt.Errorf("apply %s: %w", op, err)
	}

	// Fetch after write: report the store's view rather than a locally
	// computed result.
	after, err := s.avail.GetAvailability(ctx, siteID, itemID)
	if err != nil {
		s.metrics.LedgerAdjustment(string(op), OutcomeError)
		return 0, fmt.Errorf("re-read availability: %w", err)
	}
	if after == nil {
		s.metrics.LedgerAdjustment(string(op), OutcomeError)
		return 0, fmt.Errorf("%w: availability for site %d item %d", ErrNotFound, siteID, itemID)
	}
	if op != domain.OpDecrement {
		s.syncGuard(ctx, siteID, itemID, after.Quantity)
	}
	s.metrics.LedgerAdjustment(string(op), OutcomeOK)
	return after.Quantity, nil
}

// decrement runs the guard-then-store protocol: an atomic check against the
// cache guard rejects most over-draws without touching the store, and the
// store's conditional update holds the never-negative invariant even when
// the guard is cold or stale.
func (s *LedgerService) decrement(ctx context.Context, siteID, itemID int64, amount int) error {
	guarded := false
	if s.cache != nil {
		ok, known, err := s.cache.DecrementQuantity(ctx, siteID, itemID, amount)
		switch {
		case err != nil:
			log.Printf("ledger: guard decrement site %d item %d: %v", siteID, itemID, err)
		case known && !ok:
			return fmt.Errorf("%w: site %d item %d cannot cover %d", ErrInsufficientQuantity, siteID, itemID, amount)
		case known && ok:
			guarded = true
		}
	}

	start := time.Now()
	applied, err := s.avail.DecrementQuantity(ctx, siteID, itemID, amount)
	s.metrics.ObserveStore("quantity_decrement", time.Since(start))
	if err != nil || !applied {
		if guarded {
			if rollbackErr := s.cache.IncrementQuantity(ctx, siteID, itemID, amount); rollbackErr != nil {
				log.Printf("ledger: CRITICAL guard rollback failed for site %d item %d: %v", siteID, itemID, rollbackErr)
			}
		}
		if err != nil {
			return fmt.Errorf("decrement quantity: %w", err)
		}
		return fmt.Errorf("%w: site %d item %d cannot cover %d", ErrInsufficientQuantity, siteID, itemID, amount)
	}
	if s.cache != nil && !guarded {
		s.enqueueResync(siteID, itemID)
	}
	return nil
}

// ListBySite returns the joined ledger entries for one site, ordered by
// item id ascending.
func (s *LedgerService) ListBySite(ctx context.Context, siteID int64) ([]domain.AvailabilityEntry, error) {
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("check site: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("%w: site %d", ErrNotFound, siteID)
	}
	entries, err := s.avail.ListBySite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("list by site: %w", err)
	}
	return entries, nil
}

func (s *LedgerService) ListAll(ctx context.Context) ([]domain.AvailabilityEntry, error) {
	return s.avail.ListAll(ctx)
}

func (s *LedgerService) Get(ctx context.Context, siteID, itemID int64) (*domain.Availability, error) {
	av, err := s.avail.GetAvailability(ctx, siteID, itemID)
	if err != nil {
		return nil, fmt.Errorf("read availability: %w", err)
	}
	if av == nil {
		return nil, fmt.Errorf("%w: availability for site %d item %d", ErrNotFound, siteID, itemID)
	}
	return av, nil
}

// SitesByItem returns the sites holding a ledger entry for one item.
func (s *LedgerService) SitesByItem(ctx context.Context, itemID int64) ([]domain.Site, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("check item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	return s.avail.SitesByItem(ctx, itemID)
}

// ResyncQueue exposes pending guard re-syncs for the worker pool.
func (s *LedgerService) ResyncQueue() <-chan GuardKey {
	return s.resync
}

// ResyncGuard reloads one guard key from the durable store.
func (s *LedgerService) ResyncGuard(ctx context.Context, key GuardKey) error {
	if s.cache == nil {
		return nil
	}
	av, err := s.avail.GetAvailability(ctx, key.SiteID, key.ItemID)
	if err != nil {
		return fmt.Errorf("read availability: %w", err)
	}
	if av == nil {
		return nil
	}
	return s.cache.SetQuantity(ctx, key.SiteID, key.ItemID, av.Quantity)
}

func (s *LedgerService) Close() {
	close(s.resync)
}

// syncGuard writes the quantity through to the guard inline, falling back
// to the resync queue when the cache is unreachable.
func (s *LedgerService) syncGuard(ctx context.Context, siteID, itemID int64, quantity int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetQuantity(ctx, siteID, itemID, quantity); err != nil {
		log.Printf("ledger: guard sync site %d item %d: %v", siteID, itemID, err)
		s.enqueueResync(siteID, itemID)
	}
}

func (s *LedgerService) enqueueResync(siteID, itemID int64) {
	select {
	case s.resync <- GuardKey{SiteID: siteID, ItemID: itemID}:
	default:
		log.Printf("ledger: resync queue full, dropping site %d item %d", siteID, itemID)
	}
}

func outcomeFor(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if isInsufficient(err) {
		return OutcomeInsufficient
	}
	return OutcomeError
}
