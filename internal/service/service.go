package service

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/allocator"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/ds124wfegd/tablebooker/pkg/events"
)

// ShopService управляет заведениями, слотами и каталогом столов
type ShopService interface {
	CreateShop(ctx context.Context, req *CreateShopRequest) (*entity.ShopWithSlots, error)
	GetShop(ctx context.Context, id int64) (*entity.ShopWithSlots, error)
	UpdateShopHours(ctx context.Context, id int64, req *UpdateHoursRequest) (*entity.ShopWithSlots, error)
	ListSlots(ctx context.Context, shopID int64) ([]*entity.AvailableSlot, error)

	CreateTableType(ctx context.Context, shopID int64, req *CreateTableTypeRequest) (*entity.TableType, error)
	ListTableTypes(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error)
}

// ReservationService подбирает столы и создает бронирования
type ReservationService interface {
	Reserve(ctx context.Context, shopID int64, req *ReserveRequest) (*entity.Booking, error)
	// Quote runs the same allocation without writing anything
	Quote(ctx context.Context, shopID int64, req *QuoteRequest) (*allocator.Plan, error)
}

// BookingService определяет интерфейс для операций с бронированиями
type BookingService interface {
	GetBooking(ctx context.Context, id int64) (*entity.Booking, error)
	GetBookingByCode(ctx context.Context, code string) (*entity.Booking, error)
	ListSlotBookings(ctx context.Context, shopID, slotID int64, date string) (*SlotBookings, error)

	ConfirmBooking(ctx context.Context, id int64) (*entity.Booking, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*entity.Booking, error)

	// Операции истечения срока
	CancelExpiredBookings(ctx context.Context) (int, error)
}

// SlotLocker serialises allocations for one (shop, date, slot) key.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func slotLockKey(shopID int64, date entity.Date, slotID int64) string {
	return fmt.Sprintf("%d:%s:%d", shopID, date, slotID)
}

type Service struct {
	Shops        ShopService
	Reservations ReservationService
	Bookings     BookingService
}

func NewService(repo *repository.Repository, locker SlotLocker, publisher events.Publisher, cfg *config.Config) *Service {
	return &Service{
		Shops:        NewShopService(repo.Shops, repo.TableTypes),
		Reservations: NewReservationService(repo.Allocation, locker, publisher, cfg.Allocation),
		Bookings:     NewBookingService(repo.Shops, repo.Bookings, publisher, cfg.Booking),
	}
}
