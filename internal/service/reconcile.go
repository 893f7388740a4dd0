package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Reconciliation statuses.
const (
	StatusOK       = "ok"
	StatusDrift    = "drift"
	StatusRepaired = "repaired"
)

// Mismatch is one counter whose cached value disagrees with the ledger.
// Class is "2", "4", "6" or "couverts".
type Mismatch struct {
	SlotID uint64 `json:"slot_id"`
	Class  string `json:"class"`
	Cached int    `json:"cached"`
	Actual int    `json:"actual"`
}

// Report is the outcome of a reconciliation run.  Repaired counts the
// slots whose counters were overwritten.
type Report struct {
	Status     string     `json:"status"`
	Mismatches []Mismatch `json:"mismatches"`
	Repaired   int        `json:"repaired"`
}

// Reconciler compares slot counters with the booking ledger.  It takes no
// slot locks and is meant to run out of band.
type Reconciler struct {
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	log      *slog.Logger
}

// NewReconciler returns a Reconciler over the given repositories.
func NewReconciler(slots *repository.SlotRepo, bookings *repository.BookingRepo, log *slog.Logger) *Reconciler {
	return &Reconciler{slots: slots, bookings: bookings, log: log}
}

// Reconcile recomputes every slot of the restaurant from its confirmed
// bookings.  With repair set, drifting slots get their counters
// overwritten one statement per slot; a failed slot is logged and
// skipped, leaving its mismatches in the report.
func (r *Reconciler) Reconcile(ctx context.Context, restaurantID uint64, repair bool) (*Report, error) {
	const op = "service.Reconciler.Reconcile"
	log := r.log.With(slog.String("op", op), slog.Uint64("restaurant_id", restaurantID))

	slots, err := r.slots.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s: list slots: %w", op, err)
	}
	actual, err := r.bookings.ConfirmedUsageBySlot(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s: ledger usage: %w", op, err)
	}

	rep := &Report{Status: StatusOK, Mismatches: []Mismatch{}}
	for _, s := range slots {
		want := actual[s.ID]
		diff := compare(s.ID, s.Usage(), want)
		if len(diff) == 0 {
			continue
		}
		rep.Mismatches = append(rep.Mismatches, diff...)
		if !repair {
			continue
		}
		if err := r.slots.SetCounters(ctx, s.ID, want); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			log.Error("repair failed", slog.Uint64("slot_id", s.ID), sl.Err(err))
			continue
		}
		rep.Repaired++
		log.Info("slot counters repaired", slog.Uint64("slot_id", s.ID))
	}

	switch {
	case len(rep.Mismatches) == 0:
		rep.Status = StatusOK
	case repair && rep.Repaired > 0:
		rep.Status = StatusRepaired
	default:
		rep.Status = StatusDrift
	}
	return rep, nil
}

func compare(slotID uint64, cached, actual model.Usage) []Mismatch {
	var out []Mismatch
	for _, c := range []struct {
		class          string
		cached, actual int
	}{
		{"2", cached.Tables2, actual.Tables2},
		{"4", cached.Tables4, actual.Tables4},
		{"6", cached.Tables6, actual.Tables6},
		{"couverts", cached.Couverts, actual.Couverts},
	} {
		if c.cached != c.actual {
			out = append(out, Mismatch{SlotID: slotID, Class: c.class, Cached: c.cached, Actual: c.actual})
		}
	}
	return out
}
