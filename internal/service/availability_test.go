package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	slot := f.seedSlot(t, model.Zone{Tables2: 2, Tables4: 1, Tables6: 1, MaxCouverts: intp(20)}, futureDate)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, smallRequest(slot.ID, 4, 4))
	require.NoError(t, err)

	a, err := f.engine.Availability(ctx, slot.ID)
	require.NoError(t, err)

	assert.Equal(t, "Serre", a.ZoneName)
	assert.True(t, a.Bookable)
	assert.Equal(t, 4, a.Couverts)
	require.NotNil(t, a.MaxCouverts)
	assert.Equal(t, 20, *a.MaxCouverts)
	// 19:00 CEST
	assert.True(t, time.Date(2030, 6, 15, 17, 0, 0, 0, time.UTC).Equal(a.StartsAt))
	assert.Equal(t, []ClassAvailability{
		{Seats: 2, Capacity: 2, Booked: 0, Available: 2},
		{Seats: 4, Capacity: 1, Booked: 1, Available: 0},
		{Seats: 6, Capacity: 1, Booked: 0, Available: 1},
	}, a.Tables)
}

func TestAvailability_NotBookable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.seedSlot(t, model.Zone{Tables2: 2}, pastDate)
	a, err := f.engine.Availability(ctx, past.ID)
	require.NoError(t, err)
	assert.False(t, a.Bookable)

	full := f.seedSlot(t, model.Zone{Tables2: 1}, futureDate)
	_, err = f.engine.Create(ctx, smallRequest(full.ID, 2, 2))
	require.NoError(t, err)
	a, err = f.engine.Availability(ctx, full.ID)
	require.NoError(t, err)
	assert.False(t, a.Bookable)
}

func TestAvailability_UnknownSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Availability(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
