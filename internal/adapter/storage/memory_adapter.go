package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

type availKey struct {
	siteID int64
	itemID int64
}

// MemoryAdapter keeps the whole store in process memory behind one mutex.
// It backs tests and the demo store mode; it deliberately does not
// implement the intersection pushdown so the per-item fallback path stays
// exercised.
type MemoryAdapter struct {
	mu sync.Mutex

	nextSiteID     int64
	nextItemID     int64
	nextShipmentID int64
	nextUserID     int64

	sites     map[int64]domain.Site
	items     map[int64]domain.Item
	avail     map[availKey]int
	shipments map[int64]domain.Shipment
	lines     map[int64][]domain.ShipmentLine
	users     map[int64]domain.User
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		sites:     make(map[int64]domain.Site),
		items:     make(map[int64]domain.Item),
		avail:     make(map[availKey]int),
		shipments: make(map[int64]domain.Shipment),
		lines:     make(map[int64][]domain.ShipmentLine),
		users:     make(map[int64]domain.User),
	}
}

func (m *MemoryAdapter) ListSites(ctx context.Context) ([]domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sites := make([]domain.Site, 0, len(m.sites))
	for _, s := range m.sites {
		sites = append(sites, s)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

func (m *MemoryAdapter) GetSite(ctx context.Context, siteID int64) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sites[siteID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MemoryAdapter) GetSiteByName(ctx context.Context, name string) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sites {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) CreateSite(ctx context.Context, site domain.Site) (*domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSiteID++
	site.ID = m.nextSiteID
	m.sites[site.ID] = site
	return &site, nil
}

func (m *MemoryAdapter) UpdateSite(ctx context.Context, site domain.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[site.ID] = site
	return nil
}

func (m *MemoryAdapter) DeleteSite(ctx context.Context, siteID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sites, siteID)
	return nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[itemID]; ok {
		return &it, nil
	}
	return nil, nil
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItemID++
	item.ID = m.nextItemID
	m.items[item.ID] = item
	return &item, nil
}

func (m *MemoryAdapter) UpdateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *MemoryAdapter) DeleteItem(ctx context.Context, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemID)
	return nil
}

func (m *MemoryAdapter) ListBySite(ctx context.Context, siteID int64) ([]domain.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.AvailabilityEntry
	for key, qty := range m.avail {
		if key.siteID != siteID {
			continue
		}
		entries = append(entries, domain.AvailabilityEntry{
			Site:     m.sites[key.siteID],
			Item:     m.items[key.itemID],
			Quantity: qty,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Item.ID < entries[j].Item.ID })
	return entries, nil
}

func (m *MemoryAdapter) ListAll(ctx context.Context) ([]domain.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.AvailabilityEntry
	for key, qty := range m.avail {
		entries = append(entries, domain.AvailabilityEntry{
			Site:     m.sites[key.siteID],
			Item:     m.items[key.itemID],
			Quantity: qty,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Site.ID != entries[j].Site.ID {
			return entries[i].Site.ID < entries[j].Site.ID
		}
		return entries[i].Item.ID < entries[j].Item.ID
	})
	return entries, nil
}

func (m *MemoryAdapter) GetAvailability(ctx context.Context, siteID, itemID int64) (*domain.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty, ok := m.avail[availKey{siteID, itemID}]; ok {
		return &domain.Availability{SiteID: siteID, ItemID: itemID, Quantity: qty}, nil
	}
	return nil, nil
}

func (m *MemoryAdapter) CreateAvailability(ctx context.Context, av domain.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avail[availKey{av.SiteID, av.ItemID}] = av.Quantity
	return nil
}

func (m *MemoryAdapter) SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avail[availKey{siteID, itemID}] = quantity
	return nil
}

func (m *MemoryAdapter) IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avail[availKey{siteID, itemID}] += amount
	return nil
}

func (m *MemoryAdapter) DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.avail[availKey{siteID, itemID}]
	if !ok || qty < amount {
		return false, nil
	}
	m.avail[availKey{siteID, itemID}] = qty - amount
	return true, nil
}

func (m *MemoryAdapter) SitesByItem(ctx context.Context, itemID int64) ([]domain.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sites []domain.Site
	for key := range m.avail {
		if key.itemID == itemID {
			sites = append(sites, m.sites[key.siteID])
		}
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

func (m *MemoryAdapter) ListShipments(ctx context.Context) ([]domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shipments := make([]domain.Shipment, 0, len(m.shipments))
	for _, sh := range m.shipments {
		shipments = append(shipments, sh)
	}
	sort.Slice(shipments, func(i, j int) bool { return shipments[i].ID < shipments[j].ID })
	return shipments, nil
}

func (m *MemoryAdapter) GetShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sh, ok := m.shipments[shipmentID]; ok {
		return &sh, nil
	}
	return nil, nil
}

func (m *MemoryAdapter) CreateShipment(ctx context.Context, sh domain.Shipment) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextShipmentID++
	sh.ID = m.nextShipmentID
	m.shipments[sh.ID] = sh
	return &sh, nil
}

func (m *MemoryAdapter) UpdateShipment(ctx context.Context, sh domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipments[sh.ID] = sh
	return nil
}

func (m *MemoryAdapter) DeleteShipment(ctx context.Context, shipmentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shipments, shipmentID)
	delete(m.lines, shipmentID)
	return nil
}

func (m *MemoryAdapter) CreateLine(ctx context.Context, line domain.ShipmentLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[line.ShipmentID] = append(m.lines[line.ShipmentID], line)
	return nil
}

func (m *MemoryAdapter) LinesByShipment(ctx context.Context, shipmentID int64) ([]domain.ShipmentLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]domain.ShipmentLine, len(m.lines[shipmentID]))
	copy(lines, m.lines[shipmentID])
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
	return lines, nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *MemoryAdapter) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	u.ID = m.nextUserID
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryAdapter) UpdateUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *MemoryAdapter) DeleteUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	return nil
}
