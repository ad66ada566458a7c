// Package memory keeps shops, tables and bookings in process. Allocation
// transactions are optimistic: each (shop, date, slot) carries a version and
// a commit succeeds only if nothing it read has moved since.
package memory

import (
	"fmt"
	"sync"

	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type slotKey struct {
	shopID int64
	date   string
	slotID int64
}

func keyOf(b *entity.Booking) slotKey {
	return slotKey{shopID: b.ShopID, date: b.Date.String(), slotID: b.SlotID}
}

type Store struct {
	mu sync.RWMutex

	shops      map[int64]*entity.Shop
	slots      map[int64]*entity.AvailableSlot
	tableTypes map[int64]*entity.TableType
	bookings   map[int64]*entity.Booking

	// versions change on every write that can alter a slot's availability
	slotVersions map[slotKey]uint64
	shopVersions map[int64]uint64

	lastID int64
}

func NewStore() *Store {
	return &Store{
		shops:        make(map[int64]*entity.Shop),
		slots:        make(map[int64]*entity.AvailableSlot),
		tableTypes:   make(map[int64]*entity.TableType),
		bookings:     make(map[int64]*entity.Booking),
		slotVersions: make(map[slotKey]uint64),
		shopVersions: make(map[int64]uint64),
	}
}

// Repository exposes the store through the same contracts as Postgres.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		Shops:      &shopRepository{s: s},
		TableTypes: &tableTypeRepository{s: s},
		Bookings:   &bookingRepository{s: s},
		Allocation: &allocationStore{s: s},
	}
}

// nextID must be called with mu held for writing
func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func cloneShop(shop *entity.Shop) *entity.Shop {
	c := *shop
	return &c
}

func cloneBooking(b *entity.Booking) *entity.Booking {
	c := *b
	c.Tables = make([]*entity.BookedTable, len(b.Tables))
	for i, t := range b.Tables {
		row := *t
		c.Tables[i] = &row
	}
	return &c
}

func (s *Store) requireShop(shopID int64) error {
	if _, ok := s.shops[shopID]; !ok {
		return fmt.Errorf("%w: id %d", entity.ErrShopNotFound, shopID)
	}
	return nil
}
