package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

// MySQLAdapter is the durable store. Quantity decrements run as conditional
// updates (`quantity >= ?`) so the never-negative invariant holds without
// row locks, and the multi-item site search is answered by one relational
// query instead of N round trips.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// --- sites ---

const siteColumns = "site_id, site_name, site_location, site_status, cease_date, internal_site"

func scanSite(row interface{ Scan(...any) error }) (*domain.Site, error) {
	var (
		site   domain.Site
		status string
		cease  sql.NullTime
	)
	err := row.Scan(&site.ID, &site.Name, &site.Location, &status, &cease, &site.Internal)
	if err != nil {
		return nil, err
	}
	site.Status = domain.SiteStatus(status)
	if cease.Valid {
		t := cease.Time
		site.CeaseDate = &t
	}
	return &site, nil
}

func (m *MySQLAdapter) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+siteColumns+` FROM sites ORDER BY site_id`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()
	return collectSites(rows)
}

func (m *MySQLAdapter) GetSite(ctx context.Context, siteID int64) (*domain.Site, error) {
	site, err := scanSite(m.db.QueryRowContext(ctx, `
		SELECT `+siteColumns+` FROM sites WHERE site_id = ?`, siteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query site: %w", err)
	}
	return site, nil
}

func (m *MySQLAdapter) GetSiteByName(ctx context.Context, name string) (*domain.Site, error) {
	site, err := scanSite(m.db.QueryRowContext(ctx, `
		SELECT `+siteColumns+` FROM sites WHERE site_name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query site: %w", err)
	}
	return site, nil
}

func (m *MySQLAdapter) CreateSite(ctx context.Context, site domain.Site) (*domain.Site, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO sites (site_name, site_location, site_status, cease_date, internal_site)
		VALUES (?, ?, ?, ?, ?)`,
		site.Name, site.Location, string(site.Status), toNullTime(site.CeaseDate), site.Internal,
	)
	if err != nil {
		return nil, fmt.Errorf("insert site: %w", err)
	}
	site.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("site id: %w", err)
	}
	return &site, nil
}

func (m *MySQLAdapter) UpdateSite(ctx context.Context, site domain.Site) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE sites
		SET site_name = ?, site_location = ?, site_status = ?, cease_date = ?, internal_site = ?
		WHERE site_id = ?`,
		site.Name, site.Location, string(site.Status), toNullTime(site.CeaseDate), site.Internal, site.ID,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteSite(ctx context.Context, siteID int64) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM sites WHERE site_id = ?`, siteID)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return nil
}

// --- items ---

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	var (
		item  domain.Item
		price string
	)
	if err := row.Scan(&item.ID, &item.Name, &price); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	item.Price = parsed
	return &item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, item_name, item_price FROM items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	item, err := scanItem(m.db.QueryRowContext(ctx, `
		SELECT item_id, item_name, item_price FROM items WHERE item_id = ?`, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO items (item_name, item_price) VALUES (?, ?)`,
		item.Name, item.Price.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	item.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) UpdateItem(ctx context.Context, item domain.Item) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE items SET item_name = ?, item_price = ? WHERE item_id = ?`,
		item.Name, item.Price.String(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// --- availability ledger ---

const entryJoin = `
	SELECT s.site_id, s.site_name, s.site_location, s.site_status, s.cease_date, s.internal_site,
	       i.item_id, i.item_name, i.item_price,
	       a.quantity
	FROM availabilities a
	JOIN sites s ON s.site_id = a.site_id
	JOIN items i ON i.item_id = a.item_id`

func scanEntries(rows *sql.Rows) ([]domain.AvailabilityEntry, error) {
	var entries []domain.AvailabilityEntry
	for rows.Next() {
		var (
			e      domain.AvailabilityEntry
			status string
			cease  sql.NullTime
			price  string
		)
		err := rows.Scan(
			&e.Site.ID, &e.Site.Name, &e.Site.Location, &status, &cease, &e.Site.Internal,
			&e.Item.ID, &e.Item.Name, &price,
			&e.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		e.Site.Status = domain.SiteStatus(status)
		if cease.Valid {
			t := cease.Time
			e.Site.CeaseDate = &t
		}
		parsed, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		e.Item.Price = parsed
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (m *MySQLAdapter) ListBySite(ctx context.Context, siteID int64) ([]domain.AvailabilityEntry, error) {
	rows, err := m.db.QueryContext(ctx, entryJoin+`
		WHERE a.site_id = ? ORDER BY a.item_id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("query availabilities: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (m *MySQLAdapter) ListAll(ctx context.Context) ([]domain.AvailabilityEntry, error) {
	rows, err := m.db.QueryContext(ctx, entryJoin+`
		ORDER BY a.site_id, a.item_id`)
	if err != nil {
		return nil, fmt.Errorf("query availabilities: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (m *MySQLAdapter) GetAvailability(ctx context.Context, siteID, itemID int64) (*domain.Availability, error) {
	var av domain.Availability
	err := m.db.QueryRowContext(ctx, `
		SELECT site_id, item_id, quantity
		FROM availabilities WHERE site_id = ? AND item_id = ?`, siteID, itemID,
	).Scan(&av.SiteID, &av.ItemID, &av.Quantity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	return &av, nil
}

func (m *MySQLAdapter) CreateAvailability(ctx context.Context, av domain.Availability) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO availabilities (site_id, item_id, quantity) VALUES (?, ?, ?)`,
		av.SiteID, av.ItemID, av.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE availabilities SET quantity = ? WHERE site_id = ? AND item_id = ?`,
		quantity, siteID, itemID,
	)
	if err != nil {
		return fmt.Errorf("set quantity: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE availabilities SET quantity = quantity + ?
		WHERE site_id = ? AND item_id = ?`,
		amount, siteID, itemID,
	)
	if err != nil {
		return fmt.Errorf("increment quantity: %w", err)
	}
	return nil
}

// DecrementQuantity applies the decrement only when the stored quantity
// covers it. Zero rows affected means the row was missing or short.
func (m *MySQLAdapter) DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE availabilities SET quantity = quantity - ?
		WHERE site_id = ? AND item_id = ? AND quantity >= ?`,
		amount, siteID, itemID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("decrement quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

const prefixedSiteColumns = "s.site_id, s.site_name, s.site_location, s.site_status, s.cease_date, s.internal_site"

func (m *MySQLAdapter) SitesByItem(ctx context.Context, itemID int64) ([]domain.Site, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+prefixedSiteColumns+`
		FROM sites s JOIN availabilities a ON a.site_id = s.site_id
		WHERE a.item_id = ?
		ORDER BY s.site_id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query sites by item: %w", err)
	}
	defer rows.Close()
	return collectSites(rows)
}

// SitesByItems pushes the intersection to the database: a site qualifies
// when it holds a row for every distinct requested item.
func (m *MySQLAdapter) SitesByItems(ctx context.Context, itemIDs []int64) ([]domain.Site, error) {
	if len(itemIDs) == 0 {
		return m.ListSites(ctx)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, 0, len(itemIDs)+1)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	args = append(args, len(itemIDs))

	rows, err := m.db.QueryContext(ctx, `
		SELECT `+prefixedSiteColumns+`
		FROM sites s JOIN availabilities a ON a.site_id = s.site_id
		WHERE a.item_id IN (`+placeholders+`)
		GROUP BY s.site_id
		HAVING COUNT(DISTINCT a.item_id) = ?
		ORDER BY s.site_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("intersection query: %w", err)
	}
	defer rows.Close()
	return collectSites(rows)
}

func collectSites(rows *sql.Rows) ([]domain.Site, error) {
	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// --- shipments ---

func scanShipment(row interface{ Scan(...any) error }) (*domain.Shipment, error) {
	var (
		sh                  domain.Shipment
		status              string
		departure, eta, ata sql.NullTime
	)
	err := row.Scan(&sh.ID, &sh.Source, &sh.Destination, &sh.CurrentLocation,
		&departure, &eta, &ata, &status)
	if err != nil {
		return nil, err
	}
	sh.Status = domain.ShipmentStatus(status)
	sh.DepartureTime = nullableTime(departure)
	sh.EstimatedArrivalTime = nullableTime(eta)
	sh.ActualArrivalTime = nullableTime(ata)
	return &sh, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (m *MySQLAdapter) ListShipments(ctx context.Context) ([]domain.Shipment, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT shipment_id, source, destination, current_location,
		       departure_time, estimated_arrival_time, actual_arrival_time, shipment_status
		FROM shipments ORDER BY shipment_id`)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, *sh)
	}
	return shipments, rows.Err()
}

func (m *MySQLAdapter) GetShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	sh, err := scanShipment(m.db.QueryRowContext(ctx, `
		SELECT shipment_id, source, destination, current_location,
		       departure_time, estimated_arrival_time, actual_arrival_time, shipment_status
		FROM shipments WHERE shipment_id = ?`, shipmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shipment: %w", err)
	}
	return sh, nil
}

func (m *MySQLAdapter) CreateShipment(ctx context.Context, sh domain.Shipment) (*domain.Shipment, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO shipments
			(source, destination, current_location, departure_time,
			 estimated_arrival_time, actual_arrival_time, shipment_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sh.Source, sh.Destination, sh.CurrentLocation,
		toNullTime(sh.DepartureTime), toNullTime(sh.EstimatedArrivalTime),
		toNullTime(sh.ActualArrivalTime), string(sh.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("insert shipment: %w", err)
	}
	sh.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("shipment id: %w", err)
	}
	return &sh, nil
}

func (m *MySQLAdapter) UpdateShipment(ctx context.Context, sh domain.Shipment) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE shipments
		SET source = ?, destination = ?, current_location = ?, departure_time = ?,
		    estimated_arrival_time = ?, actual_arrival_time = ?, shipment_status = ?
		WHERE shipment_id = ?`,
		sh.Source, sh.Destination, sh.CurrentLocation,
		toNullTime(sh.DepartureTime), toNullTime(sh.EstimatedArrivalTime),
		toNullTime(sh.ActualArrivalTime), string(sh.Status), sh.ID,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteShipment(ctx context.Context, shipmentID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ships WHERE shipment_id = ?`, shipmentID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shipments WHERE shipment_id = ?`, shipmentID); err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	return tx.Commit()
}

func (m *MySQLAdapter) CreateLine(ctx context.Context, line domain.ShipmentLine) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO ships (shipment_id, item_id, quantity) VALUES (?, ?, ?)`,
		line.ShipmentID, line.ItemID, line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) LinesByShipment(ctx context.Context, shipmentID int64) ([]domain.ShipmentLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT shipment_id, item_id, quantity
		FROM ships WHERE shipment_id = ? ORDER BY item_id`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.ShipmentLine
	for rows.Next() {
		var line domain.ShipmentLine
		if err := rows.Scan(&line.ShipmentID, &line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// --- users ---

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u        domain.User
		position string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &position); err != nil {
		return nil, err
	}
	u.Position = domain.Position(position)
	return &u, nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := scanUser(m.db.QueryRowContext(ctx, `
		SELECT user_id, username, password, position FROM users WHERE user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (m *MySQLAdapter) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(m.db.QueryRowContext(ctx, `
		SELECT user_id, username, password, position FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, password, position) VALUES (?, ?, ?)`,
		u.Username, u.Password, string(u.Position),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &u, nil
}

func (m *MySQLAdapter) UpdateUser(ctx context.Context, u domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE users SET username = ?, password = ?, position = ? WHERE user_id = ?`,
		u.Username, u.Password, string(u.Position), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteUser(ctx context.Context, userID int64) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
