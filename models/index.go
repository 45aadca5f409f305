package models

import "time"

// AuditEvent is one terminal lifecycle event, published on the event bus
// and appended to the audit collection. The live attraction document never
// keeps history; this is the only record of redeemed or canceled entries.
type AuditEvent struct {
	Event        string    `bson:"event" json:"event"`
	AttractionID string    `bson:"attractionId" json:"attractionId"`
	UserID       string    `bson:"userId" json:"userId"`
	TicketID     string    `bson:"ticketId,omitempty" json:"ticketId,omitempty"`
	ResID        string    `bson:"resId,omitempty" json:"resId,omitempty"`
	Time         string    `bson:"time,omitempty" json:"time,omitempty"`
	Count        int       `bson:"count,omitempty" json:"count,omitempty"`
	Actor        string    `bson:"actor,omitempty" json:"actor,omitempty"`
	At           time.Time `bson:"at" json:"at"`
}
