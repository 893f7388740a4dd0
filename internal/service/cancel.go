package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/table-reservation/internal/allocator"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Cancel moves a confirmed booking of the restaurant to cancelled and
// gives its tables and guests back to the slot.  A booking of another
// restaurant is reported as ErrNotFound; a second cancel returns
// ErrAlreadyCancelled and changes nothing.  Counters already at zero are
// left at zero with a warning.
func (e *BookingEngine) Cancel(ctx context.Context, restaurantID, bookingID uint64) (*model.Booking, error) {
	const op = "service.BookingEngine.Cancel"
	log := e.log.With(slog.String("op", op), slog.Uint64("booking_id", bookingID))

	if e.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.txTimeout)
		defer cancel()
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := e.bookings.LockForRestaurantTx(ctx, tx, restaurantID, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, fmt.Errorf("%s: booking %d: %w", op, bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if b.Status == model.BookingCancelled {
		return nil, fmt.Errorf("%s: booking %d: %w", op, bookingID, ErrAlreadyCancelled)
	}

	slot, err := e.slots.LockWithZoneTx(ctx, tx, b.SlotID)
	if err != nil {
		return nil, fmt.Errorf("%s: slot %d: %w", op, b.SlotID, err)
	}

	var delta model.Usage
	delta.AddBooking(*b)
	for _, seats := range allocator.SizeClasses {
		if n := delta.For(seats); n > 0 && slot.BookedFor(seats) < n {
			log.Warn("table counter lower than booking usage, flooring at zero",
				slog.Uint64("slot_id", slot.ID),
				slog.Int("seats", seats),
				slog.Int("cached", slot.BookedFor(seats)),
				slog.Int("releasing", n),
			)
		}
	}
	if slot.CurrentCouverts < delta.Couverts {
		log.Warn("couverts counter lower than booking guests, flooring at zero",
			slog.Uint64("slot_id", slot.ID),
			slog.Int("cached", slot.CurrentCouverts),
			slog.Int("releasing", delta.Couverts),
		)
	}

	now := e.now().UTC()
	if err := e.bookings.MarkCancelledTx(ctx, tx, b.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: booking %d: %w", op, bookingID, ErrAlreadyCancelled)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.slots.DecrementTx(ctx, tx, slot.ID, delta); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	committed = true

	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	e.notify(queue.QueueBookingCancelled, b, &slot.Slot)
	return b, nil
}
