package storage

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ensureSchema(t, db)
	return db
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			site_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site_name VARCHAR(255) NOT NULL,
			site_location VARCHAR(255) NOT NULL,
			site_status VARCHAR(16) NOT NULL,
			cease_date DATETIME NULL,
			internal_site BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			item_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			item_name VARCHAR(255) NOT NULL,
			item_price DECIMAL(13,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS availabilities (
			site_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (site_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS shipments (
			shipment_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			source BIGINT NOT NULL,
			destination BIGINT NOT NULL,
			current_location VARCHAR(255) NOT NULL DEFAULT '',
			departure_time DATETIME NULL,
			estimated_arrival_time DATETIME NULL,
			actual_arrival_time DATETIME NULL,
			shipment_status VARCHAR(16) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ships (
			shipment_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			quantity INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			position VARCHAR(16) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup: %v", err)
		}
	}
}

func seedPair(t *testing.T, adapter *MySQLAdapter, qty int) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	site, err := adapter.CreateSite(ctx, domain.Site{Name: "test-site", Location: "43 -89", Status: domain.SiteOpen})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	item, err := adapter.CreateItem(ctx, domain.Item{Name: "test-item", Price: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := adapter.CreateAvailability(ctx, domain.Availability{SiteID: site.ID, ItemID: item.ID, Quantity: qty}); err != nil {
		t.Fatalf("create availability: %v", err)
	}
	t.Cleanup(func() {
		adapter.db.ExecContext(ctx, `DELETE FROM availabilities WHERE site_id = ? AND item_id = ?`, site.ID, item.ID)
		adapter.DeleteItem(ctx, item.ID)
		adapter.DeleteSite(ctx, site.ID)
	})
	return site.ID, item.ID
}

func TestMySQLDecrementQuantity_Conditional(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	siteID, itemID := seedPair(t, adapter, 5)

	ok, err := adapter.DecrementQuantity(ctx, siteID, itemID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected decrement to apply")
	}

	// Over-draw is rejected and leaves the row untouched
	ok, err = adapter.DecrementQuantity(ctx, siteID, itemID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected short decrement to be rejected")
	}
	av, _ := adapter.GetAvailability(ctx, siteID, itemID)
	if av.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", av.Quantity)
	}
}

func TestMySQLDecrementQuantity_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	siteID, itemID := seedPair(t, adapter, 20)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.DecrementQuantity(ctx, siteID, itemID, 1)
			if err == nil && ok {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 20 {
		t.Errorf("expected exactly 20 applied decrements, got %d", successCount.Load())
	}
	av, _ := adapter.GetAvailability(ctx, siteID, itemID)
	if av.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", av.Quantity)
	}
}

func TestMySQLSitesByItems_Pushdown(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	siteA, _ := adapter.CreateSite(ctx, domain.Site{Name: "push-a", Location: "43 -89", Status: domain.SiteOpen})
	siteB, _ := adapter.CreateSite(ctx, domain.Site{Name: "push-b", Location: "41 -87", Status: domain.SiteOpen})
	item1, _ := adapter.CreateItem(ctx, domain.Item{Name: "push-1", Price: decimal.NewFromInt(1)})
	item2, _ := adapter.CreateItem(ctx, domain.Item{Name: "push-2", Price: decimal.NewFromInt(2)})
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM availabilities WHERE site_id IN (?, ?)`, siteA.ID, siteB.ID)
		adapter.DeleteItem(ctx, item1.ID)
		adapter.DeleteItem(ctx, item2.ID)
		adapter.DeleteSite(ctx, siteA.ID)
		adapter.DeleteSite(ctx, siteB.ID)
	})

	adapter.CreateAvailability(ctx, domain.Availability{SiteID: siteA.ID, ItemID: item1.ID, Quantity: 1})
	adapter.CreateAvailability(ctx, domain.Availability{SiteID: siteA.ID, ItemID: item2.ID, Quantity: 1})
	adapter.CreateAvailability(ctx, domain.Availability{SiteID: siteB.ID, ItemID: item1.ID, Quantity: 1})

	sites, err := adapter.SitesByItems(ctx, []int64{item1.ID, item2.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, s := range sites {
		if s.ID == siteB.ID {
			t.Errorf("site %d stocks only one item, should not qualify", siteB.ID)
		}
		if s.ID == siteA.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected site %d in the intersection, got %+v", siteA.ID, sites)
	}
}

func TestMySQLShipmentRoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	created, err := adapter.CreateShipment(ctx, domain.Shipment{
		Source: 1, Destination: 2, CurrentLocation: "43 -89", Status: domain.ShipmentPending,
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	t.Cleanup(func() { adapter.DeleteShipment(ctx, created.ID) })

	if err := adapter.CreateLine(ctx, domain.ShipmentLine{ShipmentID: created.ID, ItemID: 1, Quantity: 3}); err != nil {
		t.Fatalf("create line: %v", err)
	}

	fetched, err := adapter.GetShipment(ctx, created.ID)
	if err != nil || fetched == nil {
		t.Fatalf("get shipment: %v", err)
	}
	if fetched.Status != domain.ShipmentPending || fetched.DepartureTime != nil {
		t.Errorf("unexpected shipment %+v", fetched)
	}

	lines, err := adapter.LinesByShipment(ctx, created.ID)
	if err != nil || len(lines) != 1 {
		t.Fatalf("expected one line, got %v (%v)", lines, err)
	}

	// Deleting the header removes its lines in the same transaction
	if err := adapter.DeleteShipment(ctx, created.ID); err != nil {
		t.Fatalf("delete shipment: %v", err)
	}
	lines, _ = adapter.LinesByShipment(ctx, created.ID)
	if len(lines) != 0 {
		t.Errorf("expected lines removed with the header, got %d", len(lines))
	}
}
