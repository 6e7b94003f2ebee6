// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into a human-readable feed.
package queue

// Event kinds carried in ReservationEvent.Kind.
const (
	KindLogin  = "login"
	KindAction = "action"
	KindError  = "error"
)

// ReservationSnapshot is the record state attached to an event.  Empty
// strings and zero values mean the field was not known.
type ReservationSnapshot struct {
	ID           string `json:"id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	PartySize    int    `json:"party_size,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	TableNumber  int    `json:"table_number,omitempty"` // 1-based
}

// ReservationEvent is published after an audit entry has been written.  It
// contains enough information for downstream consumers (host-stand
// displays, notification senders, analytics) to act without reading the
// reservation files.
type ReservationEvent struct {
	EventID    string               `json:"event_id"`
	Kind       string               `json:"kind"`
	Role       string               `json:"role"`
	Username   string               `json:"username"`
	Action     string               `json:"action,omitempty"`
	Detail     string               `json:"detail,omitempty"`
	Snapshot   *ReservationSnapshot `json:"snapshot,omitempty"`
	OccurredAt string               `json:"occurred_at"`
}
