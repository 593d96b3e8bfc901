package port

import (
	"context"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

// Store adapters return (nil, nil) from single-entity getters when the row
// does not exist; services translate that into their not-found error.

type SiteStore interface {
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSite(ctx context.Context, siteID int64) (*domain.Site, error)
	GetSiteByName(ctx context.Context, name string) (*domain.Site, error)
	CreateSite(ctx context.Context, site domain.Site) (*domain.Site, error)
	UpdateSite(ctx context.Context, site domain.Site) error
	DeleteSite(ctx context.Context, siteID int64) error
}

type ItemStore interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, itemID int64) error
}

type AvailabilityStore interface {
	// ListBySite returns joined rows ordered by item id ascending.
	ListBySite(ctx context.Context, siteID int64) ([]domain.AvailabilityEntry, error)
	ListAll(ctx context.Context) ([]domain.AvailabilityEntry, error)
	GetAvailability(ctx context.Context, siteID, itemID int64) (*domain.Availability, error)
	CreateAvailability(ctx context.Context, av domain.Availability) error

	// SetQuantity replaces the stored quantity unconditionally.
	SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error

	// IncrementQuantity adds amount to the stored quantity.
	IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error

	// DecrementQuantity subtracts amount only when the stored quantity
	// covers it, returning false otherwise. The stored value is untouched
	// on a false return.
	DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (bool, error)

	// SitesByItem returns the sites holding a ledger row for the item.
	SitesByItem(ctx context.Context, itemID int64) ([]domain.Site, error)
}

// IntersectionSearcher is an optional upgrade for availability stores that
// can answer a multi-item site intersection in a single round trip. The
// search service falls back to per-item queries when it is absent.
type IntersectionSearcher interface {
	SitesByItems(ctx context.Context, itemIDs []int64) ([]domain.Site, error)
}

type ShipmentStore interface {
	ListShipments(ctx context.Context) ([]domain.Shipment, error)
	GetShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error)
	CreateShipment(ctx context.Context, sh domain.Shipment) (*domain.Shipment, error)
	UpdateShipment(ctx context.Context, sh domain.Shipment) error
	DeleteShipment(ctx context.Context, shipmentID int64) error

	CreateLine(ctx context.Context, line domain.ShipmentLine) error
	LinesByShipment(ctx context.Context, shipmentID int64) ([]domain.ShipmentLine, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByName(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
	DeleteUser(ctx context.Context, userID int64) error
}

// Store bundles every entity store; both the MySQL and the remote adapter
// satisfy it so cmd/server can swap them by configuration.
type Store interface {
	SiteStore
	ItemStore
	AvailabilityStore
	ShipmentStore
	UserStore
}
