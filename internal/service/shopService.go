package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/sirupsen/logrus"
)

const clockLayout = "15:04"

// CreateShopRequest представляет данные для создания заведения
type CreateShopRequest struct {
	MerchantID         int64  `json:"merchant_id"`
	Name               string `json:"name" binding:"required,max=255"`
	Address            string `json:"address" binding:"max=255"`
	City               string `json:"city" binding:"max=100"`
	Capacity           int    `json:"capacity" binding:"required,min=1,max=100000"`
	OpensAt            string `json:"opens_at" binding:"required"`
	ClosesAt           string `json:"closes_at" binding:"required"`
	AverageStayMinutes int    `json:"average_stay_minutes" binding:"required,min=1"`
}

// UpdateHoursRequest заменяет часы работы и вместимость
type UpdateHoursRequest struct {
	Capacity           int    `json:"capacity" binding:"required,min=1,max=100000"`
	OpensAt            string `json:"opens_at" binding:"required"`
	ClosesAt           string `json:"closes_at" binding:"required"`
	AverageStayMinutes int    `json:"average_stay_minutes" binding:"required,min=1"`
}

type CreateTableTypeRequest struct {
	Name         string `json:"name" binding:"max=100"`
	Capacity     int    `json:"capacity" binding:"required,min=1,max=1000"`
	Quantity     int    `json:"quantity" binding:"required,min=1,max=10000"`
	LocationType string `json:"location_type" binding:"omitempty,oneof=indoor outdoor"`
	Floor        int    `json:"floor"`
	RoofType     string `json:"roof_type" binding:"omitempty,oneof=covered uncovered"`
}

type shopService struct {
	shopRepo      repository.ShopRepository
	tableTypeRepo repository.TableTypeRepository
	log           *logrus.Entry
}

func NewShopService(shopRepo repository.ShopRepository, tableTypeRepo repository.TableTypeRepository) ShopService {
	return &shopService{
		shopRepo:      shopRepo,
		tableTypeRepo: tableTypeRepo,
		log:           logrus.WithField("component", "shop_service"),
	}
}

// GenerateSlots slices [opensAt, closesAt) into windows of stayMinutes.
// A trailing window shorter than stayMinutes is dropped.
func GenerateSlots(opensAt, closesAt string, stayMinutes, capacity int) ([]*entity.AvailableSlot, error) {
	if stayMinutes <= 0 {
		return nil, fmt.Errorf("%w: average stay must be positive", entity.ErrInvalidInput)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", entity.ErrInvalidInput)
	}

	opens, err := time.Parse(clockLayout, opensAt)
	if err != nil {
		return nil, fmt.Errorf("%w: opens_at must be HH:MM", entity.ErrInvalidInput)
	}
	closes, err := time.Parse(clockLayout, closesAt)
	if err != nil {
		return nil, fmt.Errorf("%w: closes_at must be HH:MM", entity.ErrInvalidInput)
	}
	if !closes.After(opens) {
		return nil, fmt.Errorf("%w: closes_at must be after opens_at", entity.ErrInvalidInput)
	}

	stay := time.Duration(stayMinutes) * time.Minute
	var slots []*entity.AvailableSlot
	for start := opens; !start.Add(stay).After(closes); start = start.Add(stay) {
		slots = append(slots, &entity.AvailableSlot{
			StartTime: start.Format(clockLayout),
			EndTime:   start.Add(stay).Format(clockLayout),
			Capacity:  capacity,
		})
	}

	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: opening hours shorter than one stay", entity.ErrInvalidInput)
	}
	return slots, nil
}

func (s *shopService) CreateShop(ctx context.Context, req *CreateShopRequest) (*entity.ShopWithSlots, error) {
	slots, err := GenerateSlots(req.OpensAt, req.ClosesAt, req.AverageStayMinutes, req.Capacity)
	if err != nil {
		return nil, err
	}

	shop := &entity.Shop{
		MerchantID:         req.MerchantID,
		Name:               req.Name,
		Address:            req.Address,
		City:               req.City,
		Capacity:           req.Capacity,
		OpensAt:            req.OpensAt,
		ClosesAt:           req.ClosesAt,
		AverageStayMinutes: req.AverageStayMinutes,
	}

	if err := s.shopRepo.CreateWithSlots(ctx, shop, slots); err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"shop_id": shop.ID,
		"slots":   len(slots),
	}).Info("Shop created")

	return &entity.ShopWithSlots{Shop: *shop, Slots: slots}, nil
}

func (s *shopService) GetShop(ctx context.Context, id int64) (*entity.ShopWithSlots, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slots, err := s.shopRepo.GetSlots(ctx, id)
	if err != nil {
		return nil, err
	}

	return &entity.ShopWithSlots{Shop: *shop, Slots: slots}, nil
}

func (s *shopService) UpdateShopHours(ctx context.Context, id int64, req *UpdateHoursRequest) (*entity.ShopWithSlots, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slots, err := GenerateSlots(req.OpensAt, req.ClosesAt, req.AverageStayMinutes, req.Capacity)
	if err != nil {
		return nil, err
	}

	shop.Capacity = req.Capacity
	shop.OpensAt = req.OpensAt
	shop.ClosesAt = req.ClosesAt
	shop.AverageStayMinutes = req.AverageStayMinutes

	if err := s.shopRepo.ReplaceHours(ctx, shop, slots); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shop_id": shop.ID,
		"slots":   len(slots),
	}).Info("Shop hours replaced")

	return &entity.ShopWithSlots{Shop: *shop, Slots: slots}, nil
}

func (s *shopService) ListSlots(ctx context.Context, shopID int64) ([]*entity.AvailableSlot, error) {
	if _, err := s.shopRepo.GetByID(ctx, shopID); err != nil {
		return nil, err
	}
	return s.shopRepo.GetSlots(ctx, shopID)
}

// совпадают с CHECK в таблице table_types
const (
	maxTableCapacity = 1000
	maxTableQuantity = 10000
)

func (s *shopService) CreateTableType(ctx context.Context, shopID int64, req *CreateTableTypeRequest) (*entity.TableType, error) {
	if req.Capacity <= 0 || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: capacity and quantity must be positive", entity.ErrInvalidInput)
	}
	if req.Capacity > maxTableCapacity || req.Quantity > maxTableQuantity {
		return nil, fmt.Errorf("%w: at most %d seats per table and %d tables per type",
			entity.ErrInvalidInput, maxTableCapacity, maxTableQuantity)
	}
	if _, err := s.shopRepo.GetByID(ctx, shopID); err != nil {
		return nil, err
	}

	tableType := &entity.TableType{
		ShopID:       shopID,
		Name:         req.Name,
		Capacity:     req.Capacity,
		Quantity:     req.Quantity,
		LocationType: req.LocationType,
		Floor:        req.Floor,
		RoofType:     req.RoofType,
	}
	if tableType.LocationType == "" {
		tableType.LocationType = entity.LocationIndoor
	}
	if tableType.RoofType == "" {
		tableType.RoofType = entity.RoofCovered
	}

	if err := s.tableTypeRepo.Create(ctx, tableType); err != nil {
		return nil, fmt.Errorf("failed to create table type: %w", err)
	}
	return tableType, nil
}

func (s *shopService) ListTableTypes(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	if _, err := s.shopRepo.GetByID(ctx, shopID); err != nil {
		return nil, err
	}
	return s.tableTypeRepo.GetByShop(ctx, shopID, filter)
}
