// Command seed populates a running server with demo data over its JSON
// interface and then hammers one ledger entry with concurrent decrements
// to verify the never-negative guarantee end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/remote"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

const (
	initialQuantity = 20
	totalRequests   = 50
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the inventory server")
	flag.Parse()

	ctx := context.Background()
	store := remote.NewClient(*baseURL)

	// Seed sites
	siteSpecs := []domain.Site{
		{Name: "Depot Madison", Location: "43.07 -89.40", Status: domain.SiteOpen, Internal: true},
		{Name: "Depot Chicago", Location: "41.88 -87.63", Status: domain.SiteOpen, Internal: false},
		{Name: "Depot Minneapolis", Location: "44.98 -93.27", Status: domain.SiteOpen, Internal: false},
	}
	sites := make([]domain.Site, 0, len(siteSpecs))
	for _, spec := range siteSpecs {
		site, err := store.CreateSite(ctx, spec)
		if err != nil {
			log.Fatalf("failed to seed site %q: %v", spec.Name, err)
		}
		sites = append(sites, *site)
		log.Printf("seeded site %d %s", site.ID, site.Name)
	}

	// Seed items
	itemSpecs := []domain.Item{
		{Name: "Pallet Jack", Price: decimal.NewFromFloat(299.99)},
		{Name: "Hand Truck", Price: decimal.NewFromFloat(89.50)},
		{Name: "Shrink Wrap Roll", Price: decimal.NewFromFloat(12.25)},
	}
	items := make([]domain.Item, 0, len(itemSpecs))
	for _, spec := range itemSpecs {
		item, err := store.CreateItem(ctx, spec)
		if err != nil {
			log.Fatalf("failed to seed item %q: %v", spec.Name, err)
		}
		items = append(items, *item)
		log.Printf("seeded item %d %s", item.ID, item.Name)
	}

	// Seed ledger entries: every site stocks item 0, only the first two
	// stock item 1, only the first stocks item 2.
	for i, site := range sites {
		for j, item := range items {
			if j > 0 && i >= len(sites)-j {
				continue
			}
			qty := initialQuantity
			if err := store.CreateAvailability(ctx, domain.Availability{
				SiteID:   site.ID,
				ItemID:   item.ID,
				Quantity: qty,
			}); err != nil {
				log.Fatalf("failed to seed availability site %d item %d: %v", site.ID, item.ID, err)
			}
		}
	}
	log.Println("seeded ledger entries")

	// Concurrent decrement stress against the first (site, item) pair
	target := sites[0]
	targetItem := items[0]

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := store.DecrementQuantity(ctx, target.ID, targetItem.ID, 1)
			if err != nil {
				log.Printf("decrement error: %v", err)
				failCount.Add(1)
				return
			}
			if ok {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== SEED STRESS RESULTS ==========")
	fmt.Printf("Initial Quantity: %d\n", initialQuantity)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=========================================")

	if success == int32(initialQuantity) && fail == int32(totalRequests-initialQuantity) {
		fmt.Printf("PASS: exactly %d decrements succeeded\n", initialQuantity)
	} else {
		fmt.Printf("FAIL: expected %d success/%d rejected, got %d/%d\n",
			initialQuantity, totalRequests-initialQuantity, success, fail)
	}

	av, err := store.GetAvailability(ctx, target.ID, targetItem.ID)
	if err != nil || av == nil {
		log.Fatalf("failed to read final quantity: %v", err)
	}
	fmt.Printf("Final Quantity:   %d\n", av.Quantity)

	if av.Quantity == 0 {
		fmt.Println("PASS: quantity depleted to 0")
	} else {
		fmt.Printf("FAIL: expected quantity 0, got %d\n", av.Quantity)
	}
}
