package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

// SearchService answers "which sites stock all of these items". An empty
// item set applies no filter and returns every site.
type SearchService struct {
	sites port.SiteStore
	avail port.AvailabilityStore
}

func NewSearchService(sites port.SiteStore, avail port.AvailabilityStore) *SearchService {
	return &SearchService{sites: sites, avail: avail}
}

// SitesByItems intersects the per-item site sets. A site qualifies when it
// holds a ledger entry for every requested item. When the availability store
// can answer the intersection itself it is asked once; otherwise one query
// per item is issued and the sets are intersected here.
func (s *SearchService) SitesByItems(ctx context.Context, itemIDs []int64) ([]domain.Site, error) {
	itemIDs = dedupeIDs(itemIDs)
	if len(itemIDs) == 0 {
		sites, err := s.sites.ListSites(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sites: %w", err)
		}
		return sortSites(sites), nil
	}

	if searcher, ok := s.avail.(port.IntersectionSearcher); ok {
		sites, err := searcher.SitesByItems(ctx, itemIDs)
		if err != nil {
			return nil, fmt.Errorf("intersection search: %w", err)
		}
		return sortSites(dedupeSites(sites)), nil
	}

	result, err := s.avail.SitesByItem(ctx, itemIDs[0])
	if err != nil {
		return nil, fmt.Errorf("sites for item %d: %w", itemIDs[0], err)
	}
	candidates := dedupeSites(result)
	for _, itemID := range itemIDs[1:] {
		if len(candidates) == 0 {
			break
		}
		next, err := s.avail.SitesByItem(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("sites for item %d: %w", itemID, err)
		}
		candidates = intersect(candidates, next)
	}
	return sortSites(candidates), nil
}

func intersect(candidates, other []domain.Site) []domain.Site {
	present := make(map[int64]bool, len(other))
	for _, site := range other {
		present[site.ID] = true
	}
	kept := candidates[:0]
	for _, site := range candidates {
		if present[site.ID] {
			kept = append(kept, site)
		}
	}
	return kept
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func dedupeSites(sites []domain.Site) []domain.Site {
	seen := make(map[int64]bool, len(sites))
	out := make([]domain.Site, 0, len(sites))
	for _, site := range sites {
		if !seen[site.ID] {
			seen[site.ID] = true
			out = append(out, site)
		}
	}
	return out
}

func sortSites(sites []domain.Site) []domain.Site {
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites
}
