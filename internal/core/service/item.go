package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

type ItemService struct {
	items port.ItemStore
	avail port.AvailabilityStore
}

func NewItemService(items port.ItemStore, avail port.AvailabilityStore) *ItemService {
	return &ItemService{items: items, avail: avail}
}

func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	return s.items.ListItems(ctx)
}

func (s *ItemService) Add(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.Name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if item.Price.IsNegative() {
		return nil, fmt.Errorf("%w: item price %s must be non-negative", ErrValidation, item.Price)
	}
	created, err := s.items.CreateItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return created, nil
}

func (s *ItemService) Get(ctx context.Context, itemID int64) (*domain.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("read item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	return item, nil
}

func (s *ItemService) Update(ctx context.Context, itemID int64, name *string, price *decimal.Decimal) (*domain.Item, error) {
	if name == nil && price == nil {
		return nil, fmt.Errorf("%w: no value for this update is specified", ErrValidation)
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("read item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	if name != nil {
		item.Name = *name
	}
	if price != nil {
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: item price %s must be non-negative", ErrValidation, price)
		}
		item.Price = *price
	}
	if err := s.items.UpdateItem(ctx, *item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// Delete rejects items still present in the ledger.
func (s *ItemService) Delete(ctx context.Context, itemID int64) error {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("read item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	sites, err := s.avail.SitesByItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	if len(sites) > 0 {
		return fmt.Errorf("%w: item %d is stocked at %d sites", ErrReferenced, itemID, len(sites))
	}
	return s.items.DeleteItem(ctx, itemID)
}
