package model

import "time"

// Zone represents a seating area of a restaurant (terrace, serre, main
// room).  A zone owns the physical table inventory per size class and an
// optional ceiling on the total number of guests seated per slot.  Zones
// are edited by the admin tooling; the booking engine only reads them.
//
// Fields:
//
//	ID           – primary key identifier.
//	RestaurantID – tenant the zone belongs to.
//	Name         – display name of the zone.
//	Tables2      – number of 2-tops.
//	Tables4      – number of 4-tops.
//	Tables6      – number of 6-tops.
//	MaxCouverts  – optional guest ceiling per slot (nil when unlimited).
//	CreatedAt    – creation timestamp.
type Zone struct {
	ID           uint64    // zones.id
	RestaurantID uint64    // zones.restaurant_id
	Name         string    // zones.name
	Tables2      int       // zones.tables_2
	Tables4      int       // zones.tables_4
	Tables6      int       // zones.tables_6
	MaxCouverts  *int      // zones.max_couverts (nullable)
	CreatedAt    time.Time // zones.created_at
}

// CapacityFor returns the number of tables of the given size in the zone.
// Unknown sizes have no capacity.
func (z Zone) CapacityFor(seats int) int {
	switch seats {
	case 2:
		return z.Tables2
	case 4:
		return z.Tables4
	case 6:
		return z.Tables6
	}
	return 0
}
