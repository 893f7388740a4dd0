package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-reservation/internal/allocator"
)

func TestSlotWithZone_AvailableNeverNegative(t *testing.T) {
	s := SlotWithZone{
		Slot: Slot{Booked2: 1, Booked4: 3, Booked6: 0},
		Zone: Zone{Tables2: 4, Tables4: 2, Tables6: 1},
	}
	assert.Equal(t, 3, s.Available(2))
	assert.Equal(t, 0, s.Available(4))
	assert.Equal(t, 1, s.Available(6))
	assert.Equal(t, 0, s.Available(8))
}

func TestUsage_AddBooking(t *testing.T) {
	four := 4
	var u Usage
	u.AddBooking(Booking{GuestCount: 3, TableType: &four})
	u.AddBooking(Booking{GuestCount: 11, Allocation: allocator.Allocation{{Seats: 6, Count: 1}, {Seats: 4, Count: 1}, {Seats: 2, Count: 1}}})

	assert.Equal(t, Usage{Tables2: 1, Tables4: 2, Tables6: 1, Couverts: 14}, u)
	assert.Equal(t, 2, u.For(4))
}

func TestIsLargeGroup(t *testing.T) {
	assert.False(t, IsLargeGroup(6))
	assert.True(t, IsLargeGroup(7))
}
