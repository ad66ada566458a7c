package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/allocator"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/ds124wfegd/tablebooker/pkg/events"
	"github.com/ds124wfegd/tablebooker/pkg/retry"
	"github.com/sirupsen/logrus"
)

// QuoteRequest описывает запрос на подбор столов
type QuoteRequest struct {
	SlotID       int64  `json:"slot_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Guests       int    `json:"guests" binding:"required,min=1"`
	LocationType string `json:"location_type" binding:"omitempty,oneof=indoor outdoor"`
	Floor        *int   `json:"floor"`
	RoofType     string `json:"roof_type" binding:"omitempty,oneof=covered uncovered"`
}

// ReserveRequest представляет данные для бронирования столов
type ReserveRequest struct {
	QuoteRequest
	CustomerName  string `json:"customer_name" binding:"required,max=255"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" binding:"max=50"`
	Note          string `json:"note" binding:"max=1000"`
}

func (r *QuoteRequest) allocation(shopID int64) (allocator.Request, error) {
	date, err := entity.ParseDate(r.Date)
	if err != nil {
		return allocator.Request{}, err
	}
	if r.Guests <= 0 {
		return allocator.Request{}, fmt.Errorf("%w: guests must be positive", entity.ErrInvalidInput)
	}

	return allocator.Request{
		ShopID: shopID,
		SlotID: r.SlotID,
		Date:   date,
		Guests: r.Guests,
		Filter: entity.TableFilter{
			LocationType: r.LocationType,
			Floor:        r.Floor,
			RoofType:     r.RoofType,
		},
	}, nil
}

type reservationService struct {
	store     repository.AllocationStore
	locker    SlotLocker
	publisher events.Publisher
	engine    *allocator.Engine
	codes     *allocator.CodeAllocator
	backoff   *retry.Backoff
	log       *logrus.Entry
}

func NewReservationService(
	store repository.AllocationStore,
	locker SlotLocker,
	publisher events.Publisher,
	cfg config.AllocationConfig,
) ReservationService {
	return &reservationService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		engine:    allocator.NewEngine(cfg.MaxBruteForceTables),
		codes:     allocator.NewCodeAllocator(cfg.CodeLength, cfg.CodeMaxAttempts),
		backoff:   retry.NewBackoff(cfg.MaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		log:       logrus.WithField("component", "reservation_service"),
	}
}

func isConflict(err error) bool {
	return errors.Is(err, entity.ErrConcurrentConflict)
}

// Reserve allocates tables and a booking code and commits them together.
// A conflicting writer restarts the whole pass on a fresh snapshot.
func (s *reservationService) Reserve(ctx context.Context, shopID int64, req *ReserveRequest) (*entity.Booking, error) {
	allocReq, err := req.allocation(shopID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"shop_id": shopID,
		"slot_id": allocReq.SlotID,
		"date":    allocReq.Date.String(),
		"guests":  allocReq.Guests,
	})

	unlock, err := s.locker.Lock(ctx, slotLockKey(shopID, allocReq.Date, allocReq.SlotID))
	if err != nil {
		log.WithError(err).Warn("Could not lock slot")
		return nil, err
	}
	defer unlock()

	var booking *entity.Booking
	err = s.backoff.Do(ctx, isConflict, func(attempt int) error {
		booking = nil
		err := s.store.InSlotTx(ctx, shopID, allocReq.Date, allocReq.SlotID, func(ctx context.Context, tx repository.AllocationTx) error {
			plan, err := s.engine.Plan(ctx, tx, allocReq)
			if err != nil {
				return err
			}

			code, err := s.codes.Allocate(ctx, tx)
			if err != nil {
				return err
			}

			candidate := &entity.Booking{
				ShopID:        shopID,
				SlotID:        allocReq.SlotID,
				Date:          allocReq.Date,
				Guests:        allocReq.Guests,
				Status:        entity.BookingStatusPending,
				BookingCode:   code,
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
				CustomerPhone: req.CustomerPhone,
				Note:          req.Note,
				Tables:        plan.Tables,
			}
			if err := tx.Insert(ctx, candidate); err != nil {
				return err
			}
			booking = candidate
			return nil
		})
		if isConflict(err) {
			log.WithField("attempt", attempt).Warn("Allocation conflict, retrying")
		}
		return err
	})
	if err != nil {
		if entity.IsAllocationFailure(err) {
			log.WithError(err).Info("Reservation rejected")
		} else {
			log.WithError(err).Error("Reservation failed")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"tables":       len(booking.Tables),
	}).Info("Reservation created")

	if err := s.publisher.Publish(ctx, events.NewEvent(events.TypeBookingCreated, booking)); err != nil {
		log.WithError(err).Error("Failed to publish booking event")
	}

	return booking, nil
}

// Quote reads a snapshot without locks, so it never queues behind Reserve
func (s *reservationService) Quote(ctx context.Context, shopID int64, req *QuoteRequest) (*allocator.Plan, error) {
	allocReq, err := req.allocation(shopID)
	if err != nil {
		return nil, err
	}

	var plan *allocator.Plan
	err = s.backoff.Do(ctx, isConflict, func(int) error {
		return s.store.ReadSlot(ctx, shopID, allocReq.Date, allocReq.SlotID, func(ctx context.Context, src allocator.Source) error {
			var err error
			plan, err = s.engine.Plan(ctx, src, allocReq)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}
