package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/storage"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

// Mock ShipmentStore wrapping the memory adapter with failure injection.
type flakyShipmentStore struct {
	port.ShipmentStore

	headerErr    error
	lineErr      error
	lineErrFrom  int // fail CreateLine calls from this 0-based index on
	lineErrCount int // fail at most this many calls; 0 means every call from lineErrFrom
	deleteErr    error

	lineCalls   int
	deleteCalls int
}

func (f *flakyShipmentStore) CreateShipment(ctx context.Context, sh domain.Shipment) (*domain.Shipment, error) {
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	return f.ShipmentStore.CreateShipment(ctx, sh)
}

func (f *flakyShipmentStore) CreateLine(ctx context.Context, line domain.ShipmentLine) error {
	call := f.lineCalls
	f.lineCalls++
	if f.lineErr != nil && call >= f.lineErrFrom {
		if f.lineErrCount == 0 || call < f.lineErrFrom+f.lineErrCount {
			return f.lineErr
		}
	}
	return f.ShipmentStore.CreateLine(ctx, line)
}

func (f *flakyShipmentStore) DeleteShipment(ctx context.Context, shipmentID int64) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ShipmentStore.DeleteShipment(ctx, shipmentID)
}

type shipmentFixture struct {
	svc    *ShipmentService
	ledger *LedgerService
	store  *storage.MemoryAdapter
	flaky  *flakyShipmentStore
	src    domain.Site
	dst    domain.Site
	item   domain.Item
}

func newShipmentFixture(t *testing.T, cache *mockCache, metrics *mockMetrics) *shipmentFixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryAdapter()

	src, err := store.CreateSite(ctx, domain.Site{Name: "Depot A", Location: "43 -89", Status: domain.SiteOpen})
	if err != nil {
		t.Fatalf("create source site: %v", err)
	}
	dst, err := store.CreateSite(ctx, domain.Site{Name: "Depot B", Location: "41 -87", Status: domain.SiteOpen})
	if err != nil {
		t.Fatalf("create destination site: %v", err)
	}
	item, err := store.CreateItem(ctx, domain.Item{Name: "Hand Truck"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	var cacheRepo port.CacheRepository
	if cache != nil {
		cacheRepo = cache
	}
	var m Metrics
	if metrics != nil {
		m = metrics
	}

	flaky := &flakyShipmentStore{ShipmentStore: store}
	ledger := NewLedgerService(store, store, store, cacheRepo, m, 100)
	svc := NewShipmentService(flaky, store, store, ledger, cacheRepo, m)
	return &shipmentFixture{svc: svc, ledger: ledger, store: store, flaky: flaky, src: *src, dst: *dst, item: *item}
}

func pendingShipment(f *shipmentFixture, lines ...NewLine) NewShipment {
	return NewShipment{
		Source:      f.src.ID,
		Destination: f.dst.ID,
		Status:      domain.ShipmentPending,
		Lines:       lines,
	}
}

func TestShipmentCreate_Success(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()

	shipment, lines, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.ID == 0 {
		t.Error("expected an assigned shipment id")
	}
	if len(lines) != 1 || lines[0].ShipmentID != shipment.ID {
		t.Errorf("expected one line bound to the header, got %+v", lines)
	}

	// The header's current location defaults to the source site's
	if shipment.CurrentLocation != f.src.Location {
		t.Errorf("expected current location %q, got %q", f.src.Location, shipment.CurrentLocation)
	}

	stored, _ := f.store.LinesByShipment(ctx, shipment.ID)
	if len(stored) != 1 {
		t.Errorf("expected one persisted line, got %d", len(stored))
	}
}

func TestShipmentCreate_ValidationBeforeAnyWrite(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  NewShipment
	}{
		{"same site", NewShipment{Source: f.src.ID, Destination: f.src.ID, Status: domain.ShipmentPending, Lines: []NewLine{{ItemID: f.item.ID, Quantity: 1}}}},
		{"no lines", NewShipment{Source: f.src.ID, Destination: f.dst.ID, Status: domain.ShipmentPending}},
		{"zero quantity", pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 0})},
		{"negative quantity", pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: -2})},
		{"bad status", NewShipment{Source: f.src.ID, Destination: f.dst.ID, Status: "Lost", Lines: []NewLine{{ItemID: f.item.ID, Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Create(ctx, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	// No header ever reached the store
	shipments, _ := f.store.ListShipments(ctx)
	if len(shipments) != 0 {
		t.Errorf("expected no persisted shipments, got %d", len(shipments))
	}
}

func TestShipmentCreate_CompensatesFailedLine(t *testing.T) {
	metrics := newMockMetrics()
	f := newShipmentFixture(t, nil, metrics)
	ctx := context.Background()

	f.flaky.lineErr = errors.New("write timeout")
	f.flaky.lineErrFrom = 1

	_, _, err := f.svc.Create(ctx, pendingShipment(f,
		NewLine{ItemID: f.item.ID, Quantity: 1},
		NewLine{ItemID: f.item.ID, Quantity: 2},
	))
	if !errors.Is(err, ErrShipmentCreateFailed) {
		t.Fatalf("expected ErrShipmentCreateFailed, got %v", err)
	}

	// The failing line was retried before the saga gave up
	if want := 1 + lineWriteAttempts; f.flaky.lineCalls != want {
		t.Errorf("expected %d line calls, got %d", want, f.flaky.lineCalls)
	}
	// The header was deleted by the compensating write
	if f.flaky.deleteCalls != 1 {
		t.Errorf("expected one compensating delete, got %d", f.flaky.deleteCalls)
	}
	shipments, _ := f.store.ListShipments(ctx)
	if len(shipments) != 0 {
		t.Errorf("expected no persisted shipments after compensation, got %d", len(shipments))
	}
	if metrics.sagas[SagaCompensated] != 1 {
		t.Errorf("expected one compensated saga recorded, got %d", metrics.sagas[SagaCompensated])
	}
}

func TestShipmentCreate_RetriesTransientLineFailure(t *testing.T) {
	metrics := newMockMetrics()
	f := newShipmentFixture(t, nil, metrics)
	ctx := context.Background()

	// The first line write fails once, then the store recovers
	f.flaky.lineErr = errors.New("write timeout")
	f.flaky.lineErrCount = 1

	shipment, lines, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.flaky.lineCalls != 2 {
		t.Errorf("expected the line write to be retried once, got %d calls", f.flaky.lineCalls)
	}
	if f.flaky.deleteCalls != 0 {
		t.Errorf("expected no compensating delete, got %d", f.flaky.deleteCalls)
	}
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	stored, _ := f.store.LinesByShipment(ctx, shipment.ID)
	if len(stored) != 1 {
		t.Errorf("expected one persisted line, got %d", len(stored))
	}
	if metrics.sagas[SagaCommitted] != 1 {
		t.Errorf("expected one committed saga recorded, got %d", metrics.sagas[SagaCommitted])
	}
}

func TestShipmentCreate_OrphanWhenCompensationFails(t *testing.T) {
	metrics := newMockMetrics()
	f := newShipmentFixture(t, nil, metrics)
	ctx := context.Background()

	f.flaky.lineErr = errors.New("write timeout")
	f.flaky.deleteErr = errors.New("store unreachable")

	_, _, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1}))
	if !errors.Is(err, ErrPartialShipment) {
		t.Fatalf("expected ErrPartialShipment, got %v", err)
	}

	// The orphaned header stays behind for manual reconciliation
	shipments, _ := f.store.ListShipments(ctx)
	if len(shipments) != 1 {
		t.Errorf("expected the orphaned header to persist, got %d shipments", len(shipments))
	}
	if metrics.sagas[SagaOrphaned] != 1 {
		t.Errorf("expected one orphaned saga recorded, got %d", metrics.sagas[SagaOrphaned])
	}
}

func TestShipmentCreate_DuplicateRequest(t *testing.T) {
	cache := newMockCache()
	f := newShipmentFixture(t, cache, nil)
	ctx := context.Background()

	req := pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1})
	req.RequestID = "retry-123"

	if _, _, err := f.svc.Create(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := f.svc.Create(ctx, req)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}

	shipments, _ := f.store.ListShipments(ctx)
	if len(shipments) != 1 {
		t.Errorf("expected a single shipment, got %d", len(shipments))
	}
}

func TestShipmentCreate_FailedSagaIsRetryable(t *testing.T) {
	cache := newMockCache()
	f := newShipmentFixture(t, cache, nil)
	ctx := context.Background()

	f.flaky.lineErr = errors.New("write timeout")

	req := pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1})
	req.RequestID = "user-action-7"

	_, _, err := f.svc.Create(ctx, req)
	if !errors.Is(err, ErrShipmentCreateFailed) {
		t.Fatalf("expected ErrShipmentCreateFailed, got %v", err)
	}

	// The compensated saga left nothing behind, so the same request id
	// must be accepted once the store recovers.
	f.flaky.lineErr = nil
	shipment, _, err := f.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("retry of a compensated request: %v", err)
	}
	if shipment == nil || shipment.ID == 0 {
		t.Fatal("expected the retry to create the shipment")
	}

	// After the commit the request id is spent again
	_, _, err = f.svc.Create(ctx, req)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest after commit, got %v", err)
	}
}

func TestShipmentCreate_OrphanKeepsRequestID(t *testing.T) {
	cache := newMockCache()
	f := newShipmentFixture(t, cache, nil)
	ctx := context.Background()

	f.flaky.lineErr = errors.New("write timeout")
	f.flaky.deleteErr = errors.New("store unreachable")

	req := pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1})
	req.RequestID = "user-action-8"

	_, _, err := f.svc.Create(ctx, req)
	if !errors.Is(err, ErrPartialShipment) {
		t.Fatalf("expected ErrPartialShipment, got %v", err)
	}

	// The orphaned header persisted, so a blind retry stays blocked until
	// the orphan is reconciled.
	_, _, err = f.svc.Create(ctx, req)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest while orphaned, got %v", err)
	}
}

func TestRecordLine_MovesStock(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()
	f.ledger.Create(ctx, f.src.ID, f.item.ID, 10)

	shipment, _, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	line, err := f.svc.RecordLine(ctx, shipment.ID, f.item.ID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Quantity != 4 {
		t.Errorf("expected line quantity 4, got %d", line.Quantity)
	}

	srcAv, _ := f.store.GetAvailability(ctx, f.src.ID, f.item.ID)
	if srcAv.Quantity != 6 {
		t.Errorf("expected source quantity 6, got %d", srcAv.Quantity)
	}
	// The destination entry is created on first movement
	dstAv, _ := f.store.GetAvailability(ctx, f.dst.ID, f.item.ID)
	if dstAv == nil || dstAv.Quantity != 4 {
		t.Errorf("expected destination quantity 4, got %+v", dstAv)
	}
}

func TestRecordLine_InsufficientSource(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()
	f.ledger.Create(ctx, f.src.ID, f.item.ID, 2)

	shipment, _, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	_, err = f.svc.RecordLine(ctx, shipment.ID, f.item.ID, 3)
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("expected ErrInsufficientQuantity, got %v", err)
	}

	// Nothing moved
	srcAv, _ := f.store.GetAvailability(ctx, f.src.ID, f.item.ID)
	if srcAv.Quantity != 2 {
		t.Errorf("expected source quantity 2, got %d", srcAv.Quantity)
	}
	dstAv, _ := f.store.GetAvailability(ctx, f.dst.ID, f.item.ID)
	if dstAv != nil {
		t.Errorf("expected no destination entry, got %+v", dstAv)
	}
}

func TestRecordLine_UnstockedSource(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()

	shipment, _ := f.store.CreateShipment(ctx, domain.Shipment{Source: f.src.ID, Destination: f.dst.ID, Status: domain.ShipmentPending})

	_, err := f.svc.RecordLine(ctx, shipment.ID, f.item.ID, 1)
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Errorf("expected ErrInsufficientQuantity for unstocked source, got %v", err)
	}
}

func TestRecordLine_RollsBackOnLineWriteFailure(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()
	f.ledger.Create(ctx, f.src.ID, f.item.ID, 10)
	f.ledger.Create(ctx, f.dst.ID, f.item.ID, 1)

	shipment, _ := f.store.CreateShipment(ctx, domain.Shipment{Source: f.src.ID, Destination: f.dst.ID, Status: domain.ShipmentPending})

	f.flaky.lineErr = errors.New("write timeout")

	_, err := f.svc.RecordLine(ctx, shipment.ID, f.item.ID, 4)
	if err == nil {
		t.Fatal("expected an error")
	}

	// The ledger movement was reversed
	srcAv, _ := f.store.GetAvailability(ctx, f.src.ID, f.item.ID)
	if srcAv.Quantity != 10 {
		t.Errorf("expected source quantity restored to 10, got %d", srcAv.Quantity)
	}
	dstAv, _ := f.store.GetAvailability(ctx, f.dst.ID, f.item.ID)
	if dstAv.Quantity != 1 {
		t.Errorf("expected destination quantity restored to 1, got %d", dstAv.Quantity)
	}
}

func TestAdvance(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()

	shipment, _, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	departed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	updated, err := f.svc.Advance(ctx, shipment.ID, domain.ShipmentInTransit, departed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.ShipmentInTransit {
		t.Errorf("expected status InTransit, got %s", updated.Status)
	}
	if updated.DepartureTime == nil || !updated.DepartureTime.Equal(departed) {
		t.Errorf("expected departure time stamped at %v, got %v", departed, updated.DepartureTime)
	}

	arrived := departed.Add(48 * time.Hour)
	updated, err = f.svc.Advance(ctx, shipment.ID, domain.ShipmentDelivered, arrived)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ActualArrivalTime == nil || !updated.ActualArrivalTime.Equal(arrived) {
		t.Errorf("expected arrival time stamped at %v, got %v", arrived, updated.ActualArrivalTime)
	}

	// Moving backward is rejected
	_, err = f.svc.Advance(ctx, shipment.ID, domain.ShipmentPending, arrived)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestShipmentDelete(t *testing.T) {
	f := newShipmentFixture(t, nil, nil)
	ctx := context.Background()

	shipment, _, err := f.svc.Create(ctx, pendingShipment(f, NewLine{ItemID: f.item.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if err := f.svc.Delete(ctx, shipment.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Delete(ctx, shipment.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
