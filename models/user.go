package models

import "time"

// User is the document backing one visitor identity. The userId is a
// client-held 6-character token; nothing binds it to a session.
type User struct {
	UserID    string    `bson:"_id" json:"userId"`
	Nickname  string    `bson:"nickname,omitempty" json:"nickname,omitempty"`
	Memo      string    `bson:"memo,omitempty" json:"memo,omitempty"`
	IsPinned  bool      `bson:"isPinned" json:"isPinned"`
	IsBanned  bool      `bson:"isBanned" json:"isBanned"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
