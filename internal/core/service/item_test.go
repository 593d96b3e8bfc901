package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/storage"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

func newItemFixture(t *testing.T) (*ItemService, *storage.MemoryAdapter) {
	t.Helper()
	store := storage.NewMemoryAdapter()
	return NewItemService(store, store), store
}

func TestItemAdd(t *testing.T) {
	svc, _ := newItemFixture(t)
	ctx := context.Background()

	item, err := svc.Add(ctx, domain.Item{Name: "Pallet Jack", Price: decimal.NewFromFloat(299.99)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID == 0 {
		t.Error("expected an assigned item id")
	}

	if _, err := svc.Add(ctx, domain.Item{Price: decimal.NewFromInt(1)}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing name, got %v", err)
	}
	if _, err := svc.Add(ctx, domain.Item{Name: "Bad", Price: decimal.NewFromInt(-5)}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative price, got %v", err)
	}
}

func TestItemUpdate(t *testing.T) {
	svc, _ := newItemFixture(t)
	ctx := context.Background()
	created, _ := svc.Add(ctx, domain.Item{Name: "Pallet Jack", Price: decimal.NewFromInt(10)})

	price := decimal.NewFromFloat(12.50)
	updated, err := svc.Update(ctx, created.ID, nil, &price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Price.Equal(price) {
		t.Errorf("expected price %s, got %s", price, updated.Price)
	}
	if updated.Name != "Pallet Jack" {
		t.Errorf("expected name untouched, got %q", updated.Name)
	}

	negative := decimal.NewFromInt(-1)
	if _, err := svc.Update(ctx, created.ID, nil, &negative); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative price, got %v", err)
	}
	if _, err := svc.Update(ctx, created.ID, nil, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation with no fields, got %v", err)
	}
}

func TestItemDelete_RejectsStocked(t *testing.T) {
	svc, store := newItemFixture(t)
	ctx := context.Background()
	created, _ := svc.Add(ctx, domain.Item{Name: "Pallet Jack"})
	site, _ := store.CreateSite(ctx, domain.Site{Name: "Depot A", Location: "43 -89", Status: domain.SiteOpen})
	store.CreateAvailability(ctx, domain.Availability{SiteID: site.ID, ItemID: created.ID, Quantity: 3})

	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced, got %v", err)
	}

	// Once the ledger entry drains away the delete still blocks: presence
	// counts, not quantity
	store.SetQuantity(ctx, site.ID, created.ID, 0)
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrReferenced) {
		t.Errorf("expected ErrReferenced for zero-quantity row, got %v", err)
	}
}

func TestItemDelete_Unreferenced(t *testing.T) {
	svc, store := newItemFixture(t)
	ctx := context.Background()
	created, _ := svc.Add(ctx, domain.Item{Name: "Pallet Jack"})

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, _ := store.GetItem(ctx, created.ID)
	if item != nil {
		t.Errorf("expected item removed, got %+v", item)
	}
}
