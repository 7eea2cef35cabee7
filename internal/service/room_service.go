package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/pricing"
	"github.com/Leganyst/hotel-reservations/internal/repository"
)

// RoomSearchCriteria filters room types and their free rooms. Nil means "any".
type RoomSearchCriteria struct {
	CheckIn  *time.Time
	CheckOut *time.Time

	GuestCount  int
	MinBeds     int
	MinBedrooms int
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal

	Accessible  *bool
	PetFriendly *bool
	NonSmoking  *bool
}

// RoomTypeAvailability is one search hit: a room type with the rooms of
// that type that are free for the requested stay.
type RoomTypeAvailability struct {
	RoomType model.RoomType
	Rooms    []model.Room
	// Total is the price of the whole stay, zero when no dates were given.
	Total decimal.Decimal
}

type RoomService struct {
	repos repository.Set
}

func NewRoomService(repos repository.Set) *RoomService {
	return &RoomService{repos: repos}
}

func (s *RoomService) Search(ctx context.Context, c RoomSearchCriteria, page, pageSize int) (calendar.Page[RoomTypeAvailability], error) {
	var empty calendar.Page[RoomTypeAvailability]

	var stay *calendar.DateRange
	if c.CheckIn != nil || c.CheckOut != nil {
		if c.CheckIn == nil || c.CheckOut == nil {
			return empty, fmt.Errorf("%w: check-in and check-out must be given together", ErrInvalidInput)
		}
		r, err := calendar.NewDateRange(*c.CheckIn, *c.CheckOut)
		if err != nil {
			return empty, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		stay = &r
	}

	types, err := s.repos.RoomTypes.List(ctx)
	if err != nil {
		return empty, fmt.Errorf("list room types: %w", err)
	}

	byType := make(map[uuid.UUID]*RoomTypeAvailability)
	typeIDs := []uuid.UUID{}
	for _, t := range types {
		if !matchesType(t, c) {
			continue
		}
		hit := &RoomTypeAvailability{RoomType: t}
		if stay != nil {
			hit.Total = pricing.Total(t.PricePerNight, stay.Start, stay.End)
		}
		byType[t.ID] = hit
		typeIDs = append(typeIDs, t.ID)
	}

	rooms, err := s.repos.Rooms.List(ctx, repository.RoomFilter{
		RoomTypeIDs: typeIDs,
		Accessible:  c.Accessible,
		PetFriendly: c.PetFriendly,
		NonSmoking:  c.NonSmoking,
	})
	if err != nil {
		return empty, fmt.Errorf("list rooms: %w", err)
	}

	booked := map[uuid.UUID]struct{}{}
	if stay != nil {
		ids, err := s.repos.Calendar.BookedRoomIDs(ctx, *stay)
		if err != nil {
			return empty, fmt.Errorf("list booked rooms: %w", err)
		}
		for _, id := range ids {
			booked[id] = struct{}{}
		}
	}

	for _, room := range rooms {
		if _, taken := booked[room.ID]; taken {
			continue
		}
		if hit, ok := byType[room.RoomTypeID]; ok {
			hit.Rooms = append(hit.Rooms, room)
		}
	}

	hits := make([]RoomTypeAvailability, 0, len(byType))
	for _, id := range typeIDs {
		if hit := byType[id]; len(hit.Rooms) > 0 {
			hits = append(hits, *hit)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].RoomType.PricePerNight.LessThan(hits[j].RoomType.PricePerNight)
	})

	return calendar.Paginate(hits, page, pageSize), nil
}

func matchesType(t model.RoomType, c RoomSearchCriteria) bool {
	if c.GuestCount > 0 && t.Capacity < c.GuestCount {
		return false
	}
	if c.MinBeds > 0 && t.NumBeds < c.MinBeds {
		return false
	}
	if c.MinBedrooms > 0 && t.NumBedrooms < c.MinBedrooms {
		return false
	}
	if c.MinPrice != nil && t.PricePerNight.LessThan(*c.MinPrice) {
		return false
	}
	if c.MaxPrice != nil && t.PricePerNight.GreaterThan(*c.MaxPrice) {
		return false
	}
	return true
}
