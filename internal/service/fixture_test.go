package service

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/lib/logger/slogdiscard"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// fixedNow is early June 2030; futureDate is two weeks later.
var fixedNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	futureDate = "2030-06-15"
	pastDate   = "2030-05-01"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (n *recordingNotifier) Dispatch(ev queue.BookingEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return true
}

func (n *recordingNotifier) all() []queue.BookingEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.BookingEvent(nil), n.events...)
}

type fixture struct {
	db       *sql.DB
	zones    *repository.ZoneRepo
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	engine   *BookingEngine
	rec      *Reconciler
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newLoggedFixture(t, slogdiscard.NewDiscardLogger(), opts...)
}

func newLoggedFixture(t *testing.T, log *slog.Logger, opts ...Option) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	f := &fixture{
		db:       db,
		zones:    repository.NewZoneRepo(db),
		slots:    repository.NewSlotRepo(db, database.SQLite),
		bookings: repository.NewBookingRepo(db, database.SQLite),
		notifier: &recordingNotifier{},
	}
	all := append([]Option{WithClock(func() time.Time { return fixedNow }), WithNotifier(f.notifier)}, opts...)
	f.engine, err = NewBookingEngine(db, f.slots, f.bookings, log, all...)
	require.NoError(t, err)
	f.rec = NewReconciler(f.slots, f.bookings, log)
	return f
}

// seedSlot creates a zone with the given inventory for restaurant 1 and
// one slot in it.
func (f *fixture) seedSlot(t *testing.T, z model.Zone, date string) model.Slot {
	t.Helper()
	ctx := context.Background()
	if z.RestaurantID == 0 {
		z.RestaurantID = 1
	}
	if z.Name == "" {
		z.Name = "Serre"
	}
	require.NoError(t, f.zones.Create(ctx, &z))
	s := model.Slot{RestaurantID: z.RestaurantID, ZoneID: z.ID, EventName: "Zomeravond", SlotDate: date, StartTime: "19:00"}
	require.NoError(t, f.slots.Create(ctx, &s))
	return s
}

func (f *fixture) usage(t *testing.T, slotID uint64) model.Usage {
	t.Helper()
	s, err := f.slots.GetWithZone(context.Background(), slotID)
	require.NoError(t, err)
	return s.Usage()
}

func (f *fixture) bookingCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&n))
	return n
}

// captureHandler keeps every record logged through it.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

// atLevel returns the attributes of every record at level, keyed by name.
func (h *captureHandler) atLevel(level slog.Level) []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, r := range h.records {
		if r.Level != level {
			continue
		}
		attrs := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
		r.Attrs(func(a slog.Attr) bool {
			attrs[a.Key] = a.Value
			return true
		})
		out = append(out, attrs)
	}
	return out
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func smallRequest(slotID uint64, guests, tableType int) BookingRequest {
	return BookingRequest{SlotID: slotID, GuestCount: guests, TableType: intp(tableType), CustomerName: "Jansen"}
}
