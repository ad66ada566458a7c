package entity

import (
	"time"
)

type Shop struct {
	ID                 int64     `json:"id" db:"id"`
	MerchantID         int64     `json:"merchant_id" db:"merchant_id"`
	Name               string    `json:"name" db:"name"`
	Address            string    `json:"address" db:"address"`
	City               string    `json:"city" db:"city"`
	Capacity           int       `json:"capacity" db:"capacity"`
	OpensAt            string    `json:"opens_at" db:"opens_at"`   // "HH:MM"
	ClosesAt           string    `json:"closes_at" db:"closes_at"` // "HH:MM"
	AverageStayMinutes int       `json:"average_stay_minutes" db:"average_stay_minutes"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// AvailableSlot is one bookable window of a shop's day.
type AvailableSlot struct {
	ID        int64  `json:"id" db:"id"`
	ShopID    int64  `json:"shop_id" db:"shop_id"`
	StartTime string `json:"start_time" db:"start_time"`
	EndTime   string `json:"end_time" db:"end_time"`
	Capacity  int    `json:"capacity" db:"capacity"`
}

type ShopWithSlots struct {
	Shop
	Slots []*AvailableSlot `json:"slots"`
}
