package hub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"matsuri/db"
	"matsuri/models"
	"matsuri/rdx"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Snapshot is what subscribers receive: the event type and the full
// document, mirroring the store's own change notification shape.
type Snapshot struct {
	Event      string             `json:"event"`
	ID         string             `json:"id"`
	Attraction *models.Attraction `json:"attraction,omitempty"`
}

// WatchAttractions tails the attractions change stream and fans fresh
// snapshots out to the directory room and the document's own room. Every
// subscriber, the writer included, sees the same pushed state.
func WatchAttractions(ctx context.Context, h *Hub) {
	for {
		if err := watchOnce(ctx, h); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("change stream: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func watchOnce(ctx context.Context, h *Hub) error {
	stream, err := db.AttractionsCollection.Watch(ctx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		var change struct {
			OperationType string             `bson:"operationType"`
			FullDocument  *models.Attraction `bson:"fullDocument"`
			DocumentKey   struct {
				ID string `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := stream.Decode(&change); err != nil {
			log.Printf("change decode: %v", err)
			continue
		}
		if change.FullDocument != nil {
			change.FullDocument.Normalize()
		}

		snap := Snapshot{
			Event:      change.OperationType,
			ID:         change.DocumentKey.ID,
			Attraction: change.FullDocument,
		}
		data, err := json.Marshal(snap)
		if err != nil {
			log.Printf("snapshot marshal: %v", err)
			continue
		}

		h.Broadcast(DirectoryRoom, data)
		if snap.ID != "" {
			h.Broadcast(snap.ID, data)
		}

		// the cached directory is stale the moment anything changes
		rdx.RdxDel(rdx.DirectoryCacheKey)
	}
	return stream.Err()
}
