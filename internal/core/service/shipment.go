package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

// NewShipment is the composite create request: one header plus its lines,
// presented to callers as a single operation.
type NewShipment struct {
	Source               int64
	Destination          int64
	CurrentLocation      string
	DepartureTime        *time.Time
	EstimatedArrivalTime *time.Time
	ActualArrivalTime    *time.Time
	Status               domain.ShipmentStatus
	Lines                []NewLine

	// RequestID deduplicates caller retries of the whole saga. Assigned
	// when empty.
	RequestID string
}

type NewLine struct {
	ItemID   int64
	Quantity int
}

// ShipmentService composes a shipment header and its line items into one
// user-visible operation over a store that only offers independent
// single-entity writes. A failed line write is compensated by deleting the
// header, restoring the pre-operation state.
type ShipmentService struct {
	shipments port.ShipmentStore
	sites     port.SiteStore
	items     port.ItemStore
	ledger    *LedgerService
	cache     port.CacheRepository
	metrics   Metrics
}

func NewShipmentService(shipments port.ShipmentStore, sites port.SiteStore, items port.ItemStore, ledger *LedgerService, cache port.CacheRepository, metrics Metrics) *ShipmentService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ShipmentService{
		shipments: shipments,
		sites:     sites,
		items:     items,
		ledger:    ledger,
		cache:     cache,
		metrics:   metrics,
	}
}

// Create validates the composite request, writes the header, then writes
// each line against the assigned shipment id. No store call happens before
// validation passes. A failed line write is retried a bounded number of
// times; when it still fails the header is deleted, the request id is
// released for a caller retry, and the caller sees ErrShipmentCreateFailed.
// Only when that compensating delete itself fails does the orphaned header
// surface as ErrPartialShipment, and the request id stays claimed.
func (s *ShipmentService) Create(ctx context.Context, req NewShipment) (*domain.Shipment, []domain.ShipmentLine, error) {
	if err := s.validate(req); err != nil {
		return nil, nil, err
	}

	var idemKey string
	if s.cache != nil {
		requestID := req.RequestID
		if requestID == "" {
			requestID = uuid.NewString()
		}
		idemKey = "shipment:" + requestID
		ok, err := s.cache.SetIdempotency(ctx, idemKey)
		if err != nil {
			return nil, nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, nil, ErrDuplicateRequest
		}
	}

	header := domain.Shipment{
		Source:               req.Source,
		Destination:          req.Destination,
		CurrentLocation:      req.CurrentLocation,
		DepartureTime:        req.DepartureTime,
		EstimatedArrivalTime: req.EstimatedArrivalTime,
		ActualArrivalTime:    req.ActualArrivalTime,
		Status:               req.Status,
	}
	if header.CurrentLocation == "" {
		if src, err := s.sites.GetSite(ctx, req.Source); err == nil && src != nil {
			header.CurrentLocation = src.Location
		}
	}

	start := time.Now()
	created, err := s.shipments.CreateShipment(ctx, header)
	s.metrics.ObserveStore("shipment_create", time.Since(start))
	if err != nil {
		s.releaseRequest(ctx, idemKey)
		s.metrics.SagaOutcome(SagaCompensated)
		return nil, nil, fmt.Errorf("%w: header write: %v", ErrShipmentCreateFailed, err)
	}

	lines := make([]domain.ShipmentLine, 0, len(req.Lines))
	for _, nl := range req.Lines {
		line := domain.ShipmentLine{ShipmentID: created.ID, ItemID: nl.ItemID, Quantity: nl.Quantity}
		if err := s.writeLine(ctx, line); err != nil {
			cerr := s.compensate(ctx, created.ID, err)
			if errors.Is(cerr, ErrShipmentCreateFailed) {
				// Fully compensated: nothing persisted, so the same
				// request id may be retried.
				s.releaseRequest(ctx, idemKey)
			}
			return nil, nil, cerr
		}
		lines = append(lines, line)
	}

	s.metrics.SagaOutcome(SagaCommitted)
	return created, lines, nil
}

// lineWriteAttempts bounds the retries of a single line write before the
// saga gives up and compensates.
const lineWriteAttempts = 3

func (s *ShipmentService) writeLine(ctx context.Context, line domain.ShipmentLine) error {
	var err error
	for attempt := 1; attempt <= lineWriteAttempts; attempt++ {
		start := time.Now()
		err = s.shipments.CreateLine(ctx, line)
		s.metrics.ObserveStore("line_create", time.Since(start))
		if err == nil {
			return nil
		}
		log.Printf("shipment: line write for shipment %d item %d failed (attempt %d/%d): %v",
			line.ShipmentID, line.ItemID, attempt, lineWriteAttempts, err)
	}
	return err
}

func (s *ShipmentService) releaseRequest(ctx context.Context, idemKey string) {
	if s.cache == nil || idemKey == "" {
		return
	}
	if err := s.cache.ReleaseIdempotency(ctx, idemKey); err != nil {
		log.Printf("shipment: releasing request key %s failed: %v", idemKey, err)
	}
}

func (s *ShipmentService) validate(req NewShipment) error {
	if req.Source == req.Destination {
		return fmt.Errorf("%w: source and destination are the same site", ErrValidation)
	}
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: a shipment needs at least one line", ErrValidation)
	}
	for _, nl := range req.Lines {
		if nl.Quantity <= 0 {
			return fmt.Errorf("%w: line quantity %d for item %d must be positive", ErrValidation, nl.Quantity, nl.ItemID)
		}
	}
	if _, ok := map[domain.ShipmentStatus]bool{
		domain.ShipmentPending:   true,
		domain.ShipmentInTransit: true,
		domain.ShipmentDelivered: true,
	}[req.Status]; !ok {
		return fmt.Errorf("%w: unknown shipment status %q", ErrValidation, req.Status)
	}
	return nil
}

// compensate deletes the header after a failed line write.
func (s *ShipmentService) compensate(ctx context.Context, shipmentID int64, cause error) error {
	if delErr := s.shipments.DeleteShipment(ctx, shipmentID); delErr != nil {
		log.Printf("shipment: CRITICAL compensating delete of header %d failed: %v", shipmentID, delErr)
		s.metrics.SagaOutcome(SagaOrphaned)
		return fmt.Errorf("%w: header %d kept after line write failure: %v", ErrPartialShipment, shipmentID, cause)
	}
	log.Printf("shipment: compensated header %d after line write failure", shipmentID)
	s.metrics.SagaOutcome(SagaCompensated)
	return fmt.Errorf("%w: line write: %v", ErrShipmentCreateFailed, cause)
}

// RecordLine appends one line to an existing shipment and moves the stock it
// represents: the source site's ledger entry is decremented first, then the
// destination entry is incremented, created if absent. A source that cannot
// cover the quantity aborts before anything is written.
func (s *ShipmentService) RecordLine(ctx context.Context, shipmentID, itemID int64, quantity int) (*domain.ShipmentLine, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d must be positive", ErrValidation, quantity)
	}
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("read shipment: %w", err)
	}
	if shipment == nil {
		return nil, fmt.Errorf("%w: shipment %d", ErrNotFound, shipmentID)
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("read item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}

	if _, err := s.ledger.Adjust(ctx, shipment.Source, itemID, domain.OpDecrement, quantity); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: item %d is not stocked at source site %d", ErrInsufficientQuantity, itemID, shipment.Source)
		}
		return nil, err
	}

	if err := s.addAtDestination(ctx, shipment.Destination, itemID, quantity); err != nil {
		s.reverseSource(ctx, shipment.Source, itemID, quantity)
		return nil, err
	}

	line := domain.ShipmentLine{ShipmentID: shipmentID, ItemID: itemID, Quantity: quantity}
	if err := s.shipments.CreateLine(ctx, line); err != nil {
		// Undo the movement so the ledger matches the absent line.
		s.reverseSource(ctx, shipment.Source, itemID, quantity)
		if _, revErr := s.ledger.Adjust(ctx, shipment.Destination, itemID, domain.OpDecrement, quantity); revErr != nil {
			log.Printf("shipment: CRITICAL destination rollback failed for shipment %d item %d: %v", shipmentID, itemID, revErr)
		}
		return nil, fmt.Errorf("persist line: %w", err)
	}
	return &line, nil
}

func (s *ShipmentService) addAtDestination(ctx context.Context, siteID, itemID int64, quantity int) error {
	_, err := s.ledger.Adjust(ctx, siteID, itemID, domain.OpIncrement, quantity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = s.ledger.Create(ctx, siteID, itemID, quantity)
	return err
}

func (s *ShipmentService) reverseSource(ctx context.Context, siteID, itemID int64, quantity int) {
	if _, err := s.ledger.Adjust(ctx, siteID, itemID, domain.OpIncrement, quantity); err != nil {
		log.Printf("shipment: CRITICAL source rollback failed for site %d item %d: %v", siteID, itemID, err)
	}
}

// Advance moves a shipment forward from Pending through InTransit to Delivered
// and stamps the matching timestamp when it is still unset.
func (s *ShipmentService) Advance(ctx context.Context, shipmentID int64, next domain.ShipmentStatus, at time.Time) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("read shipment: %w", err)
	}
	if shipment == nil {
		return nil, fmt.Errorf("%w: shipment %d", ErrNotFound, shipmentID)
	}
	if !shipment.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, shipment.Status, next)
	}

	shipment.Status = next
	switch next {
	case domain.ShipmentInTransit:
		if shipment.DepartureTime == nil {
			shipment.DepartureTime = &at
		}
	case domain.ShipmentDelivered:
		if shipment.ActualArrivalTime == nil {
			shipment.ActualArrivalTime = &at
		}
	}
	if err := s.shipments.UpdateShipment(ctx, *shipment); err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	return shipment, nil
}

func (s *ShipmentService) List(ctx context.Context) ([]domain.Shipment, error) {
	return s.shipments.ListShipments(ctx)
}

func (s *ShipmentService) Get(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("read shipment: %w", err)
	}
	if shipment == nil {
		return nil, fmt.Errorf("%w: shipment %d", ErrNotFound, shipmentID)
	}
	return shipment, nil
}

func (s *ShipmentService) Lines(ctx context.Context, shipmentID int64) ([]domain.ShipmentLine, error) {
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("read shipment: %w", err)
	}
	if shipment == nil {
		return nil, fmt.Errorf("%w: shipment %d", ErrNotFound, shipmentID)
	}
	return s.shipments.LinesByShipment(ctx, shipmentID)
}

// Delete removes a shipment header. Used by operators to clear orphaned
// headers reported as ErrPartialShipment.
func (s *ShipmentService) Delete(ctx context.Context, shipmentID int64) error {
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("read shipment: %w", err)
	}
	if shipment == nil {
		return fmt.Errorf("%w: shipment %d", ErrNotFound, shipmentID)
	}
	return s.shipments.DeleteShipment(ctx, shipmentID)
}
