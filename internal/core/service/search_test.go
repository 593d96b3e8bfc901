package service

import (
	"context"
	"testing"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/storage"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

func newSearchFixture(t *testing.T) (*SearchService, *storage.MemoryAdapter, []domain.Site, []domain.Item) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryAdapter()

	var sites []domain.Site
	for _, name := range []string{"Depot A", "Depot B", "Depot C"} {
		site, err := store.CreateSite(ctx, domain.Site{Name: name, Location: "43 -89", Status: domain.SiteOpen})
		if err != nil {
			t.Fatalf("create site: %v", err)
		}
		sites = append(sites, *site)
	}
	var items []domain.Item
	for _, name := range []string{"Pallet Jack", "Hand Truck"} {
		item, err := store.CreateItem(ctx, domain.Item{Name: name})
		if err != nil {
			t.Fatalf("create item: %v", err)
		}
		items = append(items, *item)
	}

	// Item 0 is stocked everywhere, item 1 only at the first two sites.
	for i, site := range sites {
		store.CreateAvailability(ctx, domain.Availability{SiteID: site.ID, ItemID: items[0].ID, Quantity: 5})
		if i < 2 {
			store.CreateAvailability(ctx, domain.Availability{SiteID: site.ID, ItemID: items[1].ID, Quantity: 5})
		}
	}

	return NewSearchService(store, store), store, sites, items
}

func siteIDs(sites []domain.Site) []int64 {
	ids := make([]int64, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return ids
}

func TestSitesByItems_Intersection(t *testing.T) {
	svc, _, sites, items := newSearchFixture(t)

	got, err := svc.SitesByItems(context.Background(), []int64{items[0].ID, items[1].ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{sites[0].ID, sites[1].ID}
	ids := siteIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("expected sites %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected sites %v, got %v", want, ids)
		}
	}
}

func TestSitesByItems_SingleItem(t *testing.T) {
	svc, _, sites, items := newSearchFixture(t)

	got, err := svc.SitesByItems(context.Background(), []int64{items[0].ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(sites) {
		t.Errorf("expected all %d sites, got %d", len(sites), len(got))
	}
}

func TestSitesByItems_EmptySetReturnsAllSites(t *testing.T) {
	svc, _, sites, _ := newSearchFixture(t)

	got, err := svc.SitesByItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(sites) {
		t.Errorf("expected all %d sites, got %d", len(sites), len(got))
	}
}

func TestSitesByItems_UnstockedItemEmptiesResult(t *testing.T) {
	svc, store, _, items := newSearchFixture(t)
	ctx := context.Background()

	ghost, _ := store.CreateItem(ctx, domain.Item{Name: "Ghost"})

	got, err := svc.SitesByItems(ctx, []int64{items[0].ID, ghost.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no sites, got %d", len(got))
	}
}

func TestSitesByItems_DuplicateIDsCollapse(t *testing.T) {
	svc, _, sites, items := newSearchFixture(t)

	got, err := svc.SitesByItems(context.Background(), []int64{items[0].ID, items[0].ID, items[0].ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(sites) {
		t.Errorf("expected all %d sites, got %d", len(sites), len(got))
	}
}

// pushdownStore records whether the single-round-trip intersection was used.
type pushdownStore struct {
	port.AvailabilityStore
	called bool
	result []domain.Site
}

func (p *pushdownStore) SitesByItems(ctx context.Context, itemIDs []int64) ([]domain.Site, error) {
	p.called = true
	return p.result, nil
}

func TestSitesByItems_DelegatesToPushdown(t *testing.T) {
	store := storage.NewMemoryAdapter()
	pushdown := &pushdownStore{
		AvailabilityStore: store,
		result:            []domain.Site{{ID: 7, Name: "Depot G"}, {ID: 5, Name: "Depot E"}},
	}
	svc := NewSearchService(store, pushdown)

	got, err := svc.SitesByItems(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pushdown.called {
		t.Fatal("expected the intersection pushdown to be used")
	}
	// Results come back ordered by site id regardless of store order
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 7 {
		t.Errorf("expected sites [5 7], got %v", siteIDs(got))
	}
}
