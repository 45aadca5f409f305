package engine

import (
	"testing"
	"time"

	"matsuri/models"
)

func festival() []models.Attraction {
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return []models.Attraction{
		{
			ID: "X1", Name: "Planetarium", Department: "2-A", Mode: models.ModeTimeSlot,
			Reservations: []models.Reservation{
				{ResID: "r1", UserID: "U1", Time: "10:00", Timestamp: base.UnixMilli(), Status: models.StatusReserved, Count: 2},
				{ResID: "r2", UserID: "U2", Time: "10:30", Timestamp: base.Add(time.Minute).UnixMilli(), Status: models.StatusReserved, Count: 1},
			},
		},
		{
			ID: "Y1", Name: "Haunted House", Department: "3-B", Mode: models.ModeQueue,
			Queue: []models.Ticket{
				{TicketID: "000001", UserID: "U3", Count: 3, Status: models.StatusWaiting, CreatedAt: base.Add(2 * time.Minute)},
				{TicketID: "000002", UserID: "U1", Count: 1, Status: models.StatusWaiting, CreatedAt: base.Add(3 * time.Minute)},
			},
		},
	}
}

func TestProjectUserTickets(t *testing.T) {
	views := ProjectUserTickets(festival(), "U1")
	if len(views) != 2 {
		t.Fatalf("expected 2 entries for U1, got %d", len(views))
	}
	// no ready entries, so newest first
	if !views[0].IsQueue || views[0].TicketID != "000002" {
		t.Fatalf("expected the queue ticket first (newest), got %+v", views[0])
	}
	if views[0].GroupsAhead != 1 {
		t.Fatalf("U1 queues behind one waiting group, got %d", views[0].GroupsAhead)
	}
	if views[1].UniqueKey != "slot_X1_10:00" {
		t.Fatalf("unexpected reservation key %s", views[1].UniqueKey)
	}
}

func TestProjectUserTicketsReadyFirst(t *testing.T) {
	all := festival()
	all[1].Queue[1].Status = models.StatusReady // U1's ticket is called

	views := ProjectUserTickets(all, "U1")
	if views[0].Status != models.StatusReady {
		t.Fatalf("ready entries sort first, got %s", views[0].Status)
	}
	if views[0].GroupsAhead != 0 {
		t.Fatalf("a called ticket reports no groups ahead, got %d", views[0].GroupsAhead)
	}
}

func TestActiveUserTicketsDropsUsed(t *testing.T) {
	all := festival()
	all[0].Reservations[0].Status = models.StatusUsed

	active := ActiveUserTickets(all, "U1")
	if len(active) != 1 {
		t.Fatalf("used reservation is not active; expected 1 entry, got %d", len(active))
	}
	if !active[0].IsQueue {
		t.Fatal("the surviving entry should be the queue ticket")
	}
}

func TestProjectDirectory(t *testing.T) {
	dir := ProjectDirectory(festival())
	if len(dir) != 2 {
		t.Fatalf("expected 2 shops, got %d", len(dir))
	}
	if dir[0].ID != "X1" || dir[1].ID != "Y1" {
		t.Fatalf("directory sorts by ID, got %s, %s", dir[0].ID, dir[1].ID)
	}
	if dir[1].WaitingGroups != 2 {
		t.Fatalf("expected 2 waiting groups at Y1, got %d", dir[1].WaitingGroups)
	}
	if dir[0].Reservations != 2 {
		t.Fatalf("expected 2 reservations at X1, got %d", dir[0].Reservations)
	}
}
