// Package queue defines the booking messages exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import "github.com/iliyamo/table-reservation/internal/allocator"

// Queue names double as routing keys on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is committed or cancelled.
// It carries enough for the mailer to compose a message without reading
// the ledger.
type BookingEvent struct {
	Type          string               `json:"type"`
	BookingID     uint64               `json:"booking_id"`
	RestaurantID  uint64               `json:"restaurant_id"`
	SlotID        uint64               `json:"slot_id"`
	EventName     string               `json:"event_name"`
	SlotDate      string               `json:"slot_date"`
	StartTime     string               `json:"start_time"`
	GuestCount    int                  `json:"guest_count"`
	Tables        allocator.Allocation `json:"tables"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email,omitempty"`
	OccurredAt    string               `json:"occurred_at"`
}

// Queue returns the queue the event is routed to.
func (e BookingEvent) Queue() string {
	if e.Type == QueueBookingCancelled {
		return QueueBookingCancelled
	}
	return QueueBookingConfirmed
}
