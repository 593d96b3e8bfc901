package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

type SiteService struct {
	sites     port.SiteStore
	avail     port.AvailabilityStore
	shipments port.ShipmentStore
}

func NewSiteService(sites port.SiteStore, avail port.AvailabilityStore, shipments port.ShipmentStore) *SiteService {
	return &SiteService{sites: sites, avail: avail, shipments: shipments}
}

func (s *SiteService) List(ctx context.Context) ([]domain.Site, error) {
	return s.sites.ListSites(ctx)
}

// Add validates the site before any store call: the name must be set, the
// status must parse, and the location must be a valid "<lat> <lon>" pair.
func (s *SiteService) Add(ctx context.Context, site domain.Site) (*domain.Site, error) {
	if site.Name == "" {
		return nil, fmt.Errorf("%w: site name is required", ErrValidation)
	}
	if _, err := domain.ParseSiteStatus(string(site.Status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, _, err := domain.ParseLocation(site.Location); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	created, err := s.sites.CreateSite(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	return created, nil
}

// Get looks a site up by id or, when id is zero, by name.
func (s *SiteService) Get(ctx context.Context, siteID int64, name string) (*domain.Site, error) {
	if siteID == 0 && name == "" {
		return nil, fmt.Errorf("%w: either siteId or siteName must be provided", ErrValidation)
	}
	var (
		site *domain.Site
		err  error
	)
	if siteID != 0 {
		site, err = s.sites.GetSite(ctx, siteID)
	} else {
		site, err = s.sites.GetSiteByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("%w: site", ErrNotFound)
	}
	return site, nil
}

// Update applies the non-nil fields. At least one must be provided.
func (s *SiteService) Update(ctx context.Context, siteID int64, name, status *string, ceaseDate *time.Time) (*domain.Site, error) {
	if name == nil && status == nil && ceaseDate == nil {
		return nil, fmt.Errorf("%w: no value for this update is specified", ErrValidation)
	}
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("%w: site %d", ErrNotFound, siteID)
	}
	if name != nil {
		site.Name = *name
	}
	if status != nil {
		parsed, err := domain.ParseSiteStatus(*status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		site.Status = parsed
	}
	if ceaseDate != nil {
		site.CeaseDate = ceaseDate
	}
	if err := s.sites.UpdateSite(ctx, *site); err != nil {
		return nil, fmt.Errorf("update site: %w", err)
	}
	return site, nil
}

// Delete removes a site, or closes it when a cease date is given. Sites
// still referenced by ledger entries or shipments are rejected.
func (s *SiteService) Delete(ctx context.Context, siteID int64, ceaseDate *time.Time) error {
	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil {
		return fmt.Errorf("read site: %w", err)
	}
	if site == nil {
		return fmt.Errorf("%w: site %d", ErrNotFound, siteID)
	}
	entries, err := s.avail.ListBySite(ctx, siteID)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: site %d holds %d availability entries", ErrReferenced, siteID, len(entries))
	}
	shipments, err := s.shipments.ListShipments(ctx)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	for _, sh := range shipments {
		if sh.Source == siteID || sh.Destination == siteID {
			return fmt.Errorf("%w: site %d is referenced by shipment %d", ErrReferenced, siteID, sh.ID)
		}
	}
	if ceaseDate != nil {
		site.CeaseDate = ceaseDate
		site.Status = domain.SiteClosed
		if err := s.sites.UpdateSite(ctx, *site); err != nil {
			return fmt.Errorf("close site: %w", err)
		}
		return nil
	}
	return s.sites.DeleteSite(ctx, siteID)
}
