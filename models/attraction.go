package models

import "time"

// Operating modes for an attraction.
const (
	ModeTimeSlot = "timeslot"
	ModeQueue    = "queue"
)

// Reservation statuses (time-slot mode).
const (
	StatusReserved = "reserved"
	StatusUsed     = "used"
)

// Ticket statuses (queue mode). Completed and canceled tickets are removed
// from the live queue; absence is the terminal state.
const (
	StatusWaiting = "waiting"
	StatusReady   = "ready"
)

// Reservation is one booked group at a time slot, embedded in the
// attraction document. ResID is the stable key used for conditional
// array updates.
type Reservation struct {
	ResID     string `bson:"resId" json:"resId"`
	UserID    string `bson:"userId" json:"userId"`
	Time      string `bson:"time" json:"time"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
	Status    string `bson:"status" json:"status"`
	Count     int    `bson:"count" json:"count"`
}

// Ticket is one numbered group in the waiting queue, embedded in the
// attraction document.
type Ticket struct {
	TicketID  string    `bson:"ticketId" json:"ticketId"`
	UserID    string    `bson:"userId" json:"userId"`
	Count     int       `bson:"count" json:"count"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Attraction is the single shared document per venue. Reservations, the
// queue and the slot counters all live inside it; there are no separate
// collections or foreign keys.
//
// SlotCapacity is the maximum number of groups per time slot and
// MaxGroupSize the maximum people per group. The two were a single
// overloaded field pair in an earlier revision of this system.
type Attraction struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Department  string `bson:"department,omitempty" json:"department,omitempty"`
	ImageURL    string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Password    string `bson:"password" json:"-"`

	Mode     string `bson:"mode" json:"mode"`
	IsPaused bool   `bson:"isPaused" json:"isPaused"`

	OpenTime  string `bson:"openTime" json:"openTime"`
	CloseTime string `bson:"closeTime" json:"closeTime"`
	Duration  int    `bson:"duration" json:"duration"`

	SlotCapacity int `bson:"slotCapacity" json:"slotCapacity"`
	MaxGroupSize int `bson:"maxGroupSize" json:"maxGroupSize"`

	Slots        map[string]int `bson:"slots,omitempty" json:"slots,omitempty"`
	Reservations []Reservation  `bson:"reservations,omitempty" json:"reservations,omitempty"`
	Queue        []Ticket       `bson:"queue,omitempty" json:"queue,omitempty"`

	// NextTicket is the serialized ticket-number counter. Numbers are
	// never reused; gaps left by removed tickets are permanent.
	NextTicket int `bson:"nextTicket" json:"-"`

	// Guest audience restriction lists.
	IsRestricted bool     `bson:"isRestricted" json:"isRestricted"`
	AllowedUsers []string `bson:"allowedUsers,omitempty" json:"-"`
	BannedUsers  []string `bson:"bannedUsers,omitempty" json:"-"`

	// Operating-staff restriction lists, independent of the guest lists.
	IsAdminRestricted bool     `bson:"isAdminRestricted" json:"isAdminRestricted"`
	AdminAllowedUsers []string `bson:"adminAllowedUsers,omitempty" json:"-"`
	AdminBannedUsers  []string `bson:"adminBannedUsers,omitempty" json:"-"`
}

// Normalize fills the ad-hoc defaults older documents relied on, so every
// read site sees a fully populated record.
func (a *Attraction) Normalize() {
	if a.Mode == "" {
		a.Mode = ModeTimeSlot
	}
	if a.MaxGroupSize <= 0 {
		a.MaxGroupSize = 10
	}
	if a.Slots == nil {
		a.Slots = map[string]int{}
	}
	for i := range a.Reservations {
		if a.Reservations[i].Count <= 0 {
			a.Reservations[i].Count = 1
		}
	}
	for i := range a.Queue {
		if a.Queue[i].Count <= 0 {
			a.Queue[i].Count = 1
		}
	}
}
