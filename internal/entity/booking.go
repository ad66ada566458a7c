package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// LiveStatuses are the statuses that consume seats and tables.
var LiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

func (s BookingStatus) IsLive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return BookingStatus(s), nil
	default:
		return "", ErrInvalidBookingStatus
	}
}

type Booking struct {
	ID            int64          `json:"id" db:"id"`
	ShopID        int64          `json:"shop_id" db:"shop_id"`
	SlotID        int64          `json:"slot_id" db:"slot_id"`
	Date          Date           `json:"date" db:"date"`
	Guests        int            `json:"guests" db:"guests"`
	Status        BookingStatus  `json:"status" db:"status"`
	BookingCode   string         `json:"booking_code" db:"booking_code"`
	CustomerName  string         `json:"customer_name" db:"customer_name"`
	CustomerEmail string         `json:"customer_email" db:"customer_email"`
	CustomerPhone string         `json:"customer_phone" db:"customer_phone"`
	Note          string         `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	Tables        []*BookedTable `json:"tables,omitempty"`
}

// BookedTable records how many tables of one type a booking holds.
type BookedTable struct {
	ID           int64 `json:"id" db:"id"`
	BookingID    int64 `json:"booking_id" db:"booking_id"`
	TableTypeID  int64 `json:"table_type_id" db:"table_type_id"`
	TablesBooked int   `json:"tables_booked" db:"tables_booked"`
	Guests       int   `json:"guests" db:"guests"`
}

// SeatsCovered sums the guest coverage of the booking's table rows.
func (b *Booking) SeatsCovered() int {
	total := 0
	for _, t := range b.Tables {
		total += t.Guests
	}
	return total
}
