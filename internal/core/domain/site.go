package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

type SiteStatus string

const (
	SiteOpen   SiteStatus = "open"
	SiteClosed SiteStatus = "closed"
)

func ParseSiteStatus(s string) (SiteStatus, error) {
	switch SiteStatus(s) {
	case SiteOpen, SiteClosed:
		return SiteStatus(s), nil
	}
	return "", fmt.Errorf("unknown site status %q", s)
}

type Site struct {
	ID        int64      `json:"siteId"`
	Name      string     `json:"siteName"`
	Location  string     `json:"siteLocation"`
	Status    SiteStatus `json:"siteStatus"`
	CeaseDate *time.Time `json:"ceaseDate,omitempty"`
	Internal  bool       `json:"internalSite"`
}

// locationPattern accepts "<lat> <lon>" with a single space separator.
var locationPattern = regexp.MustCompile(`^([-+]?\d{1,2}(\.\d+)?) ([-+]?\d{1,3}(\.\d+)?)$`)

// ParseLocation splits a "<lat> <lon>" string into coordinates and
// validates the ranges lat in [-90,90], lon in [-180,180].
func ParseLocation(s string) (lat, lon float64, err error) {
	m := locationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("location %q is not in \"<lat> <lon>\" form", s)
	}
	lat, _ = strconv.ParseFloat(m[1], 64)
	lon, _ = strconv.ParseFloat(m[3], 64)
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude %v out of range", lon)
	}
	return lat, lon, nil
}
