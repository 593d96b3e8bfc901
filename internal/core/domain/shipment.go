package domain

import (
	"fmt"
	"time"
)

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "Pending"
	ShipmentInTransit ShipmentStatus = "InTransit"
	ShipmentDelivered ShipmentStatus = "Delivered"
)

var statusRank = map[ShipmentStatus]int{
	ShipmentPending:   0,
	ShipmentInTransit: 1,
	ShipmentDelivered: 2,
}

func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	if _, ok := statusRank[ShipmentStatus(s)]; !ok {
		return "", fmt.Errorf("unknown shipment status %q", s)
	}
	return ShipmentStatus(s), nil
}

// CanTransition reports whether moving to next keeps the lifecycle
// Pending, InTransit, Delivered ordering monotonic. Skipping ahead is allowed,
// moving backward is not.
func (s ShipmentStatus) CanTransition(next ShipmentStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type Shipment struct {
	ID                   int64          `json:"shipmentId"`
	Source               int64          `json:"source"`
	Destination          int64          `json:"destination"`
	CurrentLocation      string         `json:"currentLocation"`
	DepartureTime        *time.Time     `json:"departureTime,omitempty"`
	EstimatedArrivalTime *time.Time     `json:"estimatedArrivalTime,omitempty"`
	ActualArrivalTime    *time.Time     `json:"actualArrivalTime,omitempty"`
	Status               ShipmentStatus `json:"shipmentStatus"`
}

// ShipmentLine is one item movement within a shipment. Quantity is
// strictly positive.
type ShipmentLine struct {
	ShipmentID int64 `json:"shipmentId"`
	ItemID     int64 `json:"itemId"`
	Quantity   int   `json:"quantity"`
}
