package engine

import (
	"fmt"
	"sort"

	"matsuri/models"
)

// Pure view projection shared by every consumer of the attraction
// snapshot. No side effects; screens re-derive from pushed snapshots.

// TicketView is one entry in a user's own ticket list, with the computed
// queue position attached.
type TicketView struct {
	UniqueKey   string `json:"uniqueKey"`
	ShopID      string `json:"shopId"`
	ShopName    string `json:"shopName"`
	Department  string `json:"department,omitempty"`
	Time        string `json:"time,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status"`
	Count       int    `json:"count"`
	IsQueue     bool   `json:"isQueue"`
	TicketID    string `json:"ticketId,omitempty"`
	GroupsAhead int    `json:"groupsAhead"`
}

// Active reports whether the view is a live entry (used entries are kept
// in the list for time-slot mode but are not active).
func (v TicketView) Active() bool {
	switch v.Status {
	case models.StatusReserved, models.StatusWaiting, models.StatusReady:
		return true
	}
	return false
}

// ProjectUserTickets derives the user's ticket list from the full
// attraction set: ready tickets first, the rest newest first.
func ProjectUserTickets(all []models.Attraction, userID string) []TicketView {
	var views []TicketView

	for i := range all {
		a := &all[i]
		for _, r := range a.Reservations {
			if r.UserID != userID {
				continue
			}
			views = append(views, TicketView{
				UniqueKey:  fmt.Sprintf("slot_%s_%s", a.ID, r.Time),
				ShopID:     a.ID,
				ShopName:   a.Name,
				Department: a.Department,
				Time:       r.Time,
				Timestamp:  r.Timestamp,
				Status:     r.Status,
				Count:      r.Count,
			})
		}
		for _, t := range a.Queue {
			if t.UserID != userID {
				continue
			}
			ahead, called, _ := PositionOf(a, userID)
			status := t.Status
			if called {
				ahead = 0
			}
			views = append(views, TicketView{
				UniqueKey:   fmt.Sprintf("queue_%s_%s", a.ID, t.TicketID),
				ShopID:      a.ID,
				ShopName:    a.Name,
				Department:  a.Department,
				Timestamp:   t.CreatedAt.UnixMilli(),
				Status:      status,
				Count:       t.Count,
				IsQueue:     true,
				TicketID:    t.TicketID,
				GroupsAhead: ahead,
			})
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		iReady := views[i].Status == models.StatusReady
		jReady := views[j].Status == models.StatusReady
		if iReady != jReady {
			return iReady
		}
		return views[i].Timestamp > views[j].Timestamp
	})
	return views
}

// ActiveUserTickets filters the projection down to live entries.
func ActiveUserTickets(all []models.Attraction, userID string) []TicketView {
	var active []TicketView
	for _, v := range ProjectUserTickets(all, userID) {
		if v.Active() {
			active = append(active, v)
		}
	}
	return active
}

// ShopSummary is the per-attraction aggregate the directory screen shows.
type ShopSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Department    string `json:"department,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	Description   string `json:"description,omitempty"`
	Mode          string `json:"mode"`
	IsPaused      bool   `json:"isPaused"`
	WaitingGroups int    `json:"waitingGroups"`
	Reservations  int    `json:"reservations"`
}

// ProjectDirectory derives the attraction directory with aggregate counts.
func ProjectDirectory(all []models.Attraction) []ShopSummary {
	out := make([]ShopSummary, 0, len(all))
	for i := range all {
		a := &all[i]
		out = append(out, ShopSummary{
			ID:            a.ID,
			Name:          a.Name,
			Department:    a.Department,
			ImageURL:      a.ImageURL,
			Description:   a.Description,
			Mode:          a.Mode,
			IsPaused:      a.IsPaused,
			WaitingGroups: WaitingGroups(a),
			Reservations:  len(a.Reservations),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
