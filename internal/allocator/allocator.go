// Package allocator decides which tables a large party sits at.  It is a
// pure package: no I/O, no clock, no shared state.  The booking engine
// feeds it the tables still free in a slot and applies the result inside
// its own transaction.
package allocator

// Size classes known to the engine, largest first.  Every counter, zone
// capacity column and allocation entry is keyed by one of these values.
const (
	Seats6 = 6
	Seats4 = 4
	Seats2 = 2
)

// SizeClasses lists the table sizes in the order the allocator consumes
// them.
var SizeClasses = []int{Seats6, Seats4, Seats2}

// TableUsage is one line of an allocation: Count tables of Seats seats.
// The JSON shape is what gets persisted on a large-group booking.
type TableUsage struct {
	Seats int `json:"seats"`
	Count int `json:"count"`
}

// Allocation is the set of tables assigned to one party.  Entries are
// ordered largest class first and never carry a zero count.
type Allocation []TableUsage

// CountFor returns how many tables of the given size the allocation uses.
func (a Allocation) CountFor(seats int) int {
	n := 0
	for _, u := range a {
		if u.Seats == seats {
			n += u.Count
		}
	}
	return n
}

// Tables returns the total number of tables in the allocation.
func (a Allocation) Tables() int {
	n := 0
	for _, u := range a {
		n += u.Count
	}
	return n
}

// Seats returns the total seating capacity of the allocation.
func (a Allocation) Seats() int {
	n := 0
	for _, u := range a {
		n += u.Seats * u.Count
	}
	return n
}

// Allocate assigns tables to a party of guestCount guests given how many
// 2-, 4- and 6-tops are still free.  The second return value is false
// when the party cannot be seated; in that case the allocation is nil and
// nothing must be applied.
//
// The first pass seats whole multiples, largest class first.  When a
// remainder is left the second pass takes ceil(remainder/size) tables of
// the largest class that still has tables, under-filling the last one,
// and only cascades to a smaller class when the larger one runs out.
func Allocate(guestCount, available2, available4, available6 int) (Allocation, bool) {
	if guestCount <= 0 {
		return nil, false
	}
	avail := map[int]int{
		Seats2: nonNegative(available2),
		Seats4: nonNegative(available4),
		Seats6: nonNegative(available6),
	}
	taken := map[int]int{}
	remaining := guestCount

	// exact multiples
	for _, size := range SizeClasses {
		n := min(remaining/size, avail[size])
		taken[size] += n
		remaining -= n * size
	}

	// overflow: allow one under-filled table per tier
	for _, size := range SizeClasses {
		if remaining <= 0 {
			break
		}
		left := avail[size] - taken[size]
		if left <= 0 {
			continue
		}
		need := (remaining + size - 1) / size
		if need <= left {
			taken[size] += need
			remaining = 0
			break
		}
		taken[size] += left
		remaining -= left * size
	}

	if remaining > 0 {
		return nil, false
	}

	out := make(Allocation, 0, len(SizeClasses))
	for _, size := range SizeClasses {
		if taken[size] > 0 {
			out = append(out, TableUsage{Seats: size, Count: taken[size]})
		}
	}
	if out.Seats() < guestCount {
		return nil, false
	}
	return out, true
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
