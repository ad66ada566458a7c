package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type shopRepository struct {
	s *Store
}

func (r *shopRepository) CreateWithSlots(_ context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	shop.ID = r.s.nextID()
	shop.CreatedAt = now
	shop.UpdatedAt = now
	r.s.shops[shop.ID] = cloneShop(shop)

	r.s.insertSlots(shop.ID, slots)
	return nil
}

func (s *Store) insertSlots(shopID int64, slots []*entity.AvailableSlot) {
	for _, slot := range slots {
		slot.ID = s.nextID()
		slot.ShopID = shopID
		c := *slot
		s.slots[slot.ID] = &c
	}
}

func (r *shopRepository) GetByID(_ context.Context, id int64) (*entity.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shop, ok := r.s.shops[id]
	if !ok {
		return nil, entity.ErrShopNotFound
	}
	return cloneShop(shop), nil
}

func (r *shopRepository) ReplaceHours(_ context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.shops[shop.ID]
	if !ok {
		return entity.ErrShopNotFound
	}

	live := 0
	for _, b := range r.s.bookings {
		if b.ShopID == shop.ID && b.Status.IsLive() {
			live++
		}
	}
	if live > 0 {
		return fmt.Errorf("%w: %d live bookings", entity.ErrShopHasBookings, live)
	}

	stored.Capacity = shop.Capacity
	stored.OpensAt = shop.OpensAt
	stored.ClosesAt = shop.ClosesAt
	stored.AverageStayMinutes = shop.AverageStayMinutes
	stored.UpdatedAt = time.Now().UTC()
	shop.UpdatedAt = stored.UpdatedAt

	for id, slot := range r.s.slots {
		if slot.ShopID == shop.ID {
			delete(r.s.slots, id)
		}
	}
	r.s.insertSlots(shop.ID, slots)
	r.s.shopVersions[shop.ID]++
	return nil
}

func (r *shopRepository) GetSlots(_ context.Context, shopID int64) ([]*entity.AvailableSlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var slots []*entity.AvailableSlot
	for _, slot := range r.s.slots {
		if slot.ShopID == shopID {
			c := *slot
			slots = append(slots, &c)
		}
	}
	slices.SortFunc(slots, func(a, b *entity.AvailableSlot) int {
		return strings.Compare(a.StartTime, b.StartTime)
	})
	return slots, nil
}

func (r *shopRepository) GetSlot(_ context.Context, shopID, slotID int64) (*entity.AvailableSlot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	slot, ok := r.s.slots[slotID]
	if !ok || slot.ShopID != shopID {
		return nil, entity.ErrSlotNotFound
	}
	c := *slot
	return &c, nil
}

type tableTypeRepository struct {
	s *Store
}

func (r *tableTypeRepository) Create(_ context.Context, tableType *entity.TableType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.requireShop(tableType.ShopID); err != nil {
		return err
	}

	tableType.ID = r.s.nextID()
	tableType.CreatedAt = time.Now().UTC()
	c := *tableType
	r.s.tableTypes[c.ID] = &c
	r.s.shopVersions[tableType.ShopID]++
	return nil
}

func (r *tableTypeRepository) GetByShop(_ context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.tableTypesFor(shopID, filter), nil
}

// tableTypesFor returns copies ordered by id; mu must be held
func (s *Store) tableTypesFor(shopID int64, filter entity.TableFilter) []*entity.TableType {
	var types []*entity.TableType
	for _, t := range s.tableTypes {
		if t.ShopID == shopID && filter.Match(t) {
			c := *t
			types = append(types, &c)
		}
	}
	slices.SortFunc(types, func(a, b *entity.TableType) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return types
}
