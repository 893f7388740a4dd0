package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/allocator"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// ClassAvailability describes one table size of a slot.
type ClassAvailability struct {
	Seats     int `json:"seats"`
	Capacity  int `json:"capacity"`
	Booked    int `json:"booked"`
	Available int `json:"available"`
}

// Availability is the public view of a slot's remaining capacity.  It is
// read without locks and may be stale by the time a booking arrives.
type Availability struct {
	SlotID      uint64              `json:"slot_id"`
	ZoneID      uint64              `json:"zone_id"`
	ZoneName    string              `json:"zone_name"`
	EventName   string              `json:"event_name"`
	SlotDate    string              `json:"slot_date"`
	StartTime   string              `json:"start_time"`
	StartsAt    time.Time           `json:"starts_at"`
	Bookable    bool                `json:"bookable"`
	Tables      []ClassAvailability `json:"tables"`
	Couverts    int                 `json:"couverts"`
	MaxCouverts *int                `json:"max_couverts,omitempty"`
}

// Availability reports what is left of the slot.  Bookable is false once
// the slot has started or every table is taken.
func (e *BookingEngine) Availability(ctx context.Context, slotID uint64) (*Availability, error) {
	const op = "service.BookingEngine.Availability"

	slot, err := e.slots.GetWithZone(ctx, slotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return nil, fmt.Errorf("%s: slot %d: %w", op, slotID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	start, err := utils.CivilToInstant(slot.SlotDate, slot.StartTime, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: slot %d: %w", op, slot.ID, err)
	}

	a := &Availability{
		SlotID:      slot.ID,
		ZoneID:      slot.ZoneID,
		ZoneName:    slot.Zone.Name,
		EventName:   slot.EventName,
		SlotDate:    slot.SlotDate,
		StartTime:   slot.StartTime,
		StartsAt:    start,
		Couverts:    slot.CurrentCouverts,
		MaxCouverts: slot.Zone.MaxCouverts,
	}
	free := 0
	for _, seats := range []int{allocator.Seats2, allocator.Seats4, allocator.Seats6} {
		c := ClassAvailability{
			Seats:     seats,
			Capacity:  slot.Zone.CapacityFor(seats),
			Booked:    slot.BookedFor(seats),
			Available: slot.Available(seats),
		}
		free += c.Available
		a.Tables = append(a.Tables, c)
	}
	full := slot.Zone.MaxCouverts != nil && slot.CurrentCouverts >= *slot.Zone.MaxCouverts
	a.Bookable = start.After(e.now()) && free > 0 && !full
	return a, nil
}
