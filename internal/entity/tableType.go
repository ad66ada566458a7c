package entity

import "time"

const (
	LocationIndoor  = "indoor"
	LocationOutdoor = "outdoor"

	RoofCovered   = "covered"
	RoofUncovered = "uncovered"
)

// TableType is a group of identical physical tables of one shop.
// Quantity is never changed by bookings, consumption lives in BookedTable rows.
type TableType struct {
	ID           int64     `json:"id" db:"id"`
	ShopID       int64     `json:"shop_id" db:"shop_id"`
	Name         string    `json:"name" db:"name"`
	Capacity     int       `json:"capacity" db:"capacity"`
	Quantity     int       `json:"quantity" db:"quantity"`
	LocationType string    `json:"location_type" db:"location_type"`
	Floor        int       `json:"floor" db:"floor"`
	RoofType     string    `json:"roof_type" db:"roof_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TableFilter narrows the catalog, empty fields match everything.
type TableFilter struct {
	LocationType string `json:"location_type,omitempty" form:"location_type"`
	Floor        *int   `json:"floor,omitempty" form:"floor"`
	RoofType     string `json:"roof_type,omitempty" form:"roof_type"`
}

func (f TableFilter) Match(t *TableType) bool {
	if f.LocationType != "" && f.LocationType != t.LocationType {
		return false
	}
	if f.Floor != nil && *f.Floor != t.Floor {
		return false
	}
	if f.RoofType != "" && f.RoofType != t.RoofType {
		return false
	}
	return true
}
