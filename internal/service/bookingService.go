package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/allocator"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/ds124wfegd/tablebooker/pkg/events"
	"github.com/sirupsen/logrus"
)

const reasonExpired = "pending booking expired"

// SlotBookings представляет бронирования слота вместе со статистикой
type SlotBookings struct {
	Occupancy      *entity.SlotOccupancy `json:"occupancy"`
	AvailableSeats int                   `json:"available_seats"`
	Utilization    float64               `json:"utilization"`
	Bookings       []*entity.Booking     `json:"bookings"`
}

type bookingService struct {
	shopRepo    repository.ShopRepository
	bookingRepo repository.BookingRepository
	publisher   events.Publisher
	pendingTTL  time.Duration
	now         func() time.Time
	log         *logrus.Entry
}

// NewBookingService создает новый экземпляр BookingService
func NewBookingService(
	shopRepo repository.ShopRepository,
	bookingRepo repository.BookingRepository,
	publisher events.Publisher,
	cfg config.BookingConfig,
) BookingService {
	return &bookingService{
		shopRepo:    shopRepo,
		bookingRepo: bookingRepo,
		publisher:   publisher,
		pendingTTL:  cfg.PendingTTL,
		now:         time.Now,
		log:         logrus.WithField("component", "booking_service"),
	}
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) GetBookingByCode(ctx context.Context, code string) (*entity.Booking, error) {
	code = allocator.NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty booking code", entity.ErrInvalidInput)
	}
	return s.bookingRepo.GetByCode(ctx, code)
}

func (s *bookingService) ListSlotBookings(ctx context.Context, shopID, slotID int64, date string) (*SlotBookings, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	slot, err := s.shopRepo.GetSlot(ctx, shopID, slotID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookingRepo.GetForSlot(ctx, shopID, day, slotID)
	if err != nil {
		return nil, err
	}

	occupancy := entity.NewSlotOccupancy(shopID, slotID, day, slot.Capacity, bookings)
	return &SlotBookings{
		Occupancy:      occupancy,
		AvailableSeats: occupancy.AvailableSeats(),
		Utilization:    occupancy.UtilizationRate(),
		Bookings:       bookings,
	}, nil
}

// ConfirmBooking подтверждает ожидающее бронирование
func (s *bookingService) ConfirmBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	booking, err := s.bookingRepo.Transition(ctx, id,
		[]entity.BookingStatus{entity.BookingStatusPending}, entity.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
	}).Info("Booking confirmed")

	s.publishStatus(ctx, booking, "")
	return booking, nil
}

// CancelBooking отменяет бронирование и освобождает столы
func (s *bookingService) CancelBooking(ctx context.Context, id int64, reason string) (*entity.Booking, error) {
	booking, err := s.bookingRepo.Transition(ctx, id, entity.LiveStatuses, entity.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"reason":       reason,
	}).Info("Booking cancelled")

	s.publishStatus(ctx, booking, reason)
	return booking, nil
}

// CancelExpiredBookings отменяет ожидающие бронирования старше pendingTTL
func (s *bookingService) CancelExpiredBookings(ctx context.Context) (int, error) {
	if s.pendingTTL <= 0 {
		return 0, nil
	}

	expired, err := s.bookingRepo.ExpirePending(ctx, s.now().Add(-s.pendingTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending bookings: %w", err)
	}

	for _, booking := range expired {
		s.publishStatus(ctx, booking, reasonExpired)
	}
	return len(expired), nil
}

func (s *bookingService) publishStatus(ctx context.Context, booking *entity.Booking, reason string) {
	event := events.NewEvent(events.TypeBookingStatusChanged, booking)
	event.Reason = reason

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("booking_id", booking.ID).Error("Failed to publish booking event")
	}
}
