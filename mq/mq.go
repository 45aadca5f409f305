package mq

import (
	"context"
	"encoding/json"
	"log"

	"matsuri/db"
	"matsuri/models"
	"matsuri/rdx"
)

const auditChannel = "audit-events"

// EmitAudit publishes a terminal lifecycle event to Redis pub/sub. The
// live attraction document keeps no history; the audit worker is the only
// consumer that persists these.
func EmitAudit(event models.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EmitAudit] marshal: %v", err)
		return
	}
	if err := rdx.Conn.Publish(context.Background(), auditChannel, data).Err(); err != nil {
		log.Printf("[EmitAudit] publish: %v", err)
	}
}

// StartAuditWorker appends published events to the audit collection.
// A dropped event loses a history row, never operational state.
func StartAuditWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, auditChannel)
	ch := sub.Channel()

	log.Println("[AuditWorker] listening for audit events")

	for msg := range ch {
		var event models.AuditEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[AuditWorker] bad payload: %v", err)
			continue
		}
		if _, err := db.AuditCollection.InsertOne(ctx, event); err != nil {
			log.Printf("[AuditWorker] insert: %v", err)
		}
	}
}
