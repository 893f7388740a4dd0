// Package service implements the booking engine: creating bookings
// against slot capacity, cancelling them and reconciling the cached slot
// counters with the booking ledger.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/table-reservation/internal/allocator"
	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// IdempotencyCache is an advisory token→booking map consulted before the
// ledger.  Implementations may lose entries or fail; the engine treats
// every error as a miss.
type IdempotencyCache interface {
	Get(ctx context.Context, restaurantID uint64, token string) (uint64, bool, error)
	Put(ctx context.Context, restaurantID uint64, token string, bookingID uint64) error
}

// Notifier receives booking events after commit.  Dispatch must not block.
type Notifier interface {
	Dispatch(ev queue.BookingEvent) bool
}

// BookingEngine is the only writer of slot counters.
type BookingEngine struct {
	db        *sql.DB
	slots     *repository.SlotRepo
	bookings  *repository.BookingRepo
	idem      IdempotencyCache
	notifier  Notifier
	loc       *time.Location
	now       func() time.Time
	txTimeout time.Duration
	log       *slog.Logger
}

// Option customises a BookingEngine.
type Option func(*BookingEngine)

// WithIdempotencyCache installs an advisory token cache.
func WithIdempotencyCache(c IdempotencyCache) Option {
	return func(e *BookingEngine) { e.idem = c }
}

// WithNotifier installs the sink for booking events.
func WithNotifier(n Notifier) Option {
	return func(e *BookingEngine) { e.notifier = n }
}

// WithLocation sets the zone slot dates and times are entered in.
func WithLocation(loc *time.Location) Option {
	return func(e *BookingEngine) { e.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *BookingEngine) { e.now = now }
}

// WithTxTimeout bounds how long one booking or cancellation transaction
// may hold the slot lock.
func WithTxTimeout(d time.Duration) Option {
	return func(e *BookingEngine) { e.txTimeout = d }
}

// NewBookingEngine wires the engine to the ledger.  Without options it
// uses Europe/Amsterdam, no cache, no notifications and no transaction
// timeout beyond the caller's context.
func NewBookingEngine(db *sql.DB, slots *repository.SlotRepo, bookings *repository.BookingRepo, log *slog.Logger, opts ...Option) (*BookingEngine, error) {
	e := &BookingEngine{
		db:       db,
		slots:    slots,
		bookings: bookings,
		now:      time.Now,
		log:      log,
	}
	for _, o := range opts {
		o(e)
	}
	if e.loc == nil {
		loc, err := utils.LoadLocation(utils.DefaultTimezone)
		if err != nil {
			return nil, err
		}
		e.loc = loc
	}
	return e, nil
}

// BookingResult is the outcome of Create.  Replayed is true when the
// idempotency key already belonged to a booking; Booking is then the
// stored row, not the retried request.
type BookingResult struct {
	BookingID uint64
	Replayed  bool
	Booking   *model.Booking
}

// Create validates req and books it against the slot's capacity in one
// transaction.  See the package errors for the failure classes.
func (e *BookingEngine) Create(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	const op = "service.BookingEngine.Create"

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slot, err := e.slots.GetWithZone(ctx, req.SlotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return nil, fmt.Errorf("%s: slot %d: %w", op, req.SlotID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start, err := utils.CivilToInstant(slot.SlotDate, slot.StartTime, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: slot %d: %w", op, slot.ID, err)
	}
	if !start.After(e.now()) {
		return nil, &ValidationError{Field: "slot_id", Message: "slot has already started", Err: ErrSlotInPast}
	}

	restaurantID := slot.RestaurantID
	if req.IdempotencyKey != nil {
		if res, err := e.replay(ctx, restaurantID, *req.IdempotencyKey); res != nil || err != nil {
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return res, nil
		}
	}

	b, err := e.book(ctx, req)
	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		// a concurrent request with the same key committed first
		winner, lerr := e.bookings.GetByIdempotencyKey(ctx, restaurantID, *req.IdempotencyKey)
		if lerr != nil {
			return nil, fmt.Errorf("%s: load winning booking: %w", op, lerr)
		}
		e.remember(ctx, restaurantID, *req.IdempotencyKey, winner.ID)
		return &BookingResult{BookingID: winner.ID, Replayed: true, Booking: winner}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.IdempotencyKey != nil {
		e.remember(ctx, restaurantID, *req.IdempotencyKey, b.ID)
	}
	e.notify(queue.QueueBookingConfirmed, b, &slot.Slot)
	return &BookingResult{BookingID: b.ID, Booking: b}, nil
}

// replay answers a retried request.  A nil result with a nil error means
// the token is unknown.
func (e *BookingEngine) replay(ctx context.Context, restaurantID uint64, token string) (*BookingResult, error) {
	if e.idem != nil {
		id, ok, err := e.idem.Get(ctx, restaurantID, token)
		if err != nil {
			e.log.Warn("idempotency cache lookup failed", slog.Uint64("restaurant_id", restaurantID), sl.Err(err))
		} else if ok {
			b, err := e.bookings.GetByIDForRestaurant(ctx, restaurantID, id)
			if err == nil {
				return &BookingResult{BookingID: b.ID, Replayed: true, Booking: b}, nil
			}
			// stale or unreadable entry: the ledger below decides
			e.log.Warn("idempotency cache entry not loadable",
				slog.Uint64("restaurant_id", restaurantID), slog.Uint64("booking_id", id), sl.Err(err))
		}
	}
	b, err := e.bookings.GetByIdempotencyKey(ctx, restaurantID, token)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.remember(ctx, restaurantID, token, b.ID)
	return &BookingResult{BookingID: b.ID, Replayed: true, Booking: b}, nil
}

// book runs steps lock → capacity → increment → insert → commit.
func (e *BookingEngine) book(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	if e.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.txTimeout)
		defer cancel()
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := e.slots.LockWithZoneTx(ctx, tx, req.SlotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		RestaurantID:   slot.RestaurantID,
		SlotID:         slot.ID,
		GuestCount:     req.GuestCount,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Remarks:        req.Remarks,
		IdempotencyKey: req.IdempotencyKey,
	}
	if model.IsLargeGroup(req.GuestCount) {
		alloc, ok := allocator.Allocate(req.GuestCount,
			slot.Available(allocator.Seats2), slot.Available(allocator.Seats4), slot.Available(allocator.Seats6))
		if !ok {
			return nil, ErrCapacityExceeded
		}
		b.Allocation = alloc
	} else {
		if slot.Available(*req.TableType) < 1 {
			return nil, ErrCapacityExceeded
		}
		tt := *req.TableType
		b.TableType = &tt
	}

	var delta model.Usage
	delta.AddBooking(*b)

	if ceiling := slot.Zone.MaxCouverts; ceiling != nil && slot.CurrentCouverts+req.GuestCount > *ceiling {
		return nil, ErrCapacityExceeded
	}

	if err := e.slots.IncrementTx(ctx, tx, slot.ID, delta, slot.Zone); err != nil {
		if errors.Is(err, repository.ErrCapacityGuard) {
			return nil, ErrCapacityExceeded
		}
		return nil, err
	}

	if err := e.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

func (e *BookingEngine) remember(ctx context.Context, restaurantID uint64, token string, bookingID uint64) {
	if e.idem == nil {
		return
	}
	if err := e.idem.Put(ctx, restaurantID, token, bookingID); err != nil {
		e.log.Warn("idempotency cache store failed", slog.Uint64("booking_id", bookingID), sl.Err(err))
	}
}

func (e *BookingEngine) notify(kind string, b *model.Booking, slot *model.Slot) {
	if e.notifier == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:         kind,
		BookingID:    b.ID,
		RestaurantID: b.RestaurantID,
		SlotID:       b.SlotID,
		EventName:    slot.EventName,
		SlotDate:     slot.SlotDate,
		StartTime:    slot.StartTime,
		GuestCount:   b.GuestCount,
		Tables:       b.TableUsage(),
		CustomerName: b.CustomerName,
		OccurredAt:   e.now().UTC().Format(time.RFC3339),
	}
	if b.CustomerEmail != nil {
		ev.CustomerEmail = *b.CustomerEmail
	}
	e.notifier.Dispatch(ev)
}

// Booking loads one booking of the restaurant.  A booking that belongs to
// another restaurant is reported as ErrNotFound.
func (e *BookingEngine) Booking(ctx context.Context, restaurantID, bookingID uint64) (*model.Booking, error) {
	const op = "service.BookingEngine.Booking"

	b, err := e.bookings.GetByIDForRestaurant(ctx, restaurantID, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, fmt.Errorf("%s: booking %d: %w", op, bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
