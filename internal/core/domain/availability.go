package domain

import "fmt"

// Availability is one ledger record: the quantity of an item held at a site.
// Quantity never persists below zero.
type Availability struct {
	SiteID   int64 `json:"siteId"`
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

// AvailabilityEntry is an availability row joined with its site and item,
// the shape the per-site listing returns.
type AvailabilityEntry struct {
	Site     Site  `json:"site"`
	Item     Item  `json:"item"`
	Quantity int   `json:"quantity"`
}

// AdjustOp selects the quantity mutation on the wire: SET replaces, "+"
// increments, "-" decrements.
type AdjustOp string

const (
	OpSet       AdjustOp = "SET"
	OpIncrement AdjustOp = "+"
	OpDecrement AdjustOp = "-"
)

func ParseAdjustOp(s string) (AdjustOp, error) {
	switch AdjustOp(s) {
	case OpSet, OpIncrement, OpDecrement:
		return AdjustOp(s), nil
	}
	return "", fmt.Errorf("unknown quantity operation %q", s)
}
