package model

import "time"

// Slot is a bookable start time within an event, tied to exactly one
// zone.  Besides its schedule it carries the cached capacity counters
// the booking engine maintains: how many tables of each size are taken
// and how many guests are seated in total.  The counters are a cache of
// the booking ledger and are reconciled against it on demand.
//
// Fields:
//
//	ID              – primary key identifier.
//	RestaurantID    – tenant the slot belongs to.
//	ZoneID          – zone whose tables the slot hands out.
//	EventName       – label of the event the slot belongs to.
//	SlotDate        – civil date in the venue's timezone ("2006-01-02").
//	StartTime       – civil wall clock start ("15:04").
//	Booked2         – 2-tops taken.
//	Booked4         – 4-tops taken.
//	Booked6         – 6-tops taken.
//	CurrentCouverts – guests seated across all confirmed bookings.
//	CreatedAt       – creation timestamp.
type Slot struct {
	ID              uint64    // slots.id
	RestaurantID    uint64    // slots.restaurant_id
	ZoneID          uint64    // slots.zone_id
	EventName       string    // slots.event_name
	SlotDate        string    // slots.slot_date
	StartTime       string    // slots.start_time
	Booked2         int       // slots.booked_2
	Booked4         int       // slots.booked_4
	Booked6         int       // slots.booked_6
	CurrentCouverts int       // slots.current_couverts
	CreatedAt       time.Time // slots.created_at
}

// BookedFor returns the cached counter for the given table size.
func (s Slot) BookedFor(seats int) int {
	switch seats {
	case 2:
		return s.Booked2
	case 4:
		return s.Booked4
	case 6:
		return s.Booked6
	}
	return 0
}

// SlotWithZone is a slot joined with the capacity of its zone, which is
// what every capacity decision needs.
type SlotWithZone struct {
	Slot
	Zone Zone
}

// Available returns how many tables of the given size are still free,
// never negative even when capacity was reduced below the counter.
func (s SlotWithZone) Available(seats int) int {
	n := s.Zone.CapacityFor(seats) - s.BookedFor(seats)
	if n < 0 {
		return 0
	}
	return n
}

// Usage is a per-slot tally of tables taken by size class plus seated
// guests.  It is the unit in which counters are incremented, decremented,
// repaired and compared.
type Usage struct {
	Tables2  int `json:"2"`
	Tables4  int `json:"4"`
	Tables6  int `json:"6"`
	Couverts int `json:"couverts"`
}

// For returns the table count of the given size.
func (u Usage) For(seats int) int {
	switch seats {
	case 2:
		return u.Tables2
	case 4:
		return u.Tables4
	case 6:
		return u.Tables6
	}
	return 0
}

// AddBooking folds one confirmed booking into the tally.
func (u *Usage) AddBooking(b Booking) {
	for _, t := range b.TableUsage() {
		switch t.Seats {
		case 2:
			u.Tables2 += t.Count
		case 4:
			u.Tables4 += t.Count
		case 6:
			u.Tables6 += t.Count
		}
	}
	u.Couverts += b.GuestCount
}

// Usage returns the slot's cached counters.
func (s Slot) Usage() Usage {
	return Usage{
		Tables2:  s.Booked2,
		Tables4:  s.Booked4,
		Tables6:  s.Booked6,
		Couverts: s.CurrentCouverts,
	}
}
