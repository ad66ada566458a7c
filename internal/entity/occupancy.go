package entity

import (
	"fmt"
)

// SlotOccupancy содержит статистику занятости одного слота на дату
type SlotOccupancy struct {
	ShopID          int64 `json:"shop_id"`
	SlotID          int64 `json:"slot_id"`
	Date            Date  `json:"date"`
	Capacity        int   `json:"capacity"`
	TotalBookings   int   `json:"total_bookings"`
	PendingGuests   int   `json:"pending_guests"`
	ConfirmedGuests int   `json:"confirmed_guests"`
	CancelledGuests int   `json:"cancelled_guests"`
	// TablesByType is keyed by table type id and counts live bookings only.
	TablesByType map[int64]int `json:"tables_by_type"`
}

// NewSlotOccupancy собирает статистику по списку бронирований слота
func NewSlotOccupancy(shopID, slotID int64, date Date, capacity int, bookings []*Booking) *SlotOccupancy {
	o := &SlotOccupancy{
		ShopID:       shopID,
		SlotID:       slotID,
		Date:         date,
		Capacity:     capacity,
		TablesByType: make(map[int64]int),
	}

	for _, b := range bookings {
		o.TotalBookings++
		switch b.Status {
		case BookingStatusPending:
			o.PendingGuests += b.Guests
		case BookingStatusConfirmed:
			o.ConfirmedGuests += b.Guests
		case BookingStatusCancelled:
			o.CancelledGuests += b.Guests
			continue
		}
		for _, t := range b.Tables {
			o.TablesByType[t.TableTypeID] += t.TablesBooked
		}
	}

	return o
}

// LiveGuests возвращает гостей, которые занимают места
func (o *SlotOccupancy) LiveGuests() int {
	return o.PendingGuests + o.ConfirmedGuests
}

// AvailableSeats вычисляет доступные места
func (o *SlotOccupancy) AvailableSeats() int {
	return o.Capacity - o.LiveGuests()
}

// UtilizationRate вычисляет коэффициент утилизации (0.0 до 1.0)
func (o *SlotOccupancy) UtilizationRate() float64 {
	if o.Capacity == 0 {
		return 0.0
	}
	return float64(o.LiveGuests()) / float64(o.Capacity)
}

// ConversionRate вычисляет долю подтвержденных гостей среди всех
func (o *SlotOccupancy) ConversionRate() float64 {
	total := o.PendingGuests + o.ConfirmedGuests + o.CancelledGuests
	if total == 0 {
		return 0.0
	}
	return float64(o.ConfirmedGuests) / float64(total)
}

func (o *SlotOccupancy) String() string {
	return fmt.Sprintf(
		"Shop: %d, Slot: %d, Date: %s, Utilization: %.1f%%, Available: %d/%d",
		o.ShopID,
		o.SlotID,
		o.Date,
		o.UtilizationRate()*100,
		o.AvailableSeats(),
		o.Capacity,
	)
}
