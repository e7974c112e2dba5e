package domain

import "time"

// AS ticket statuses.
const (
	TicketScheduled = "scheduled"
	TicketDone      = "done"
)

// Ticket represents an after-service (AS) visit: a scheduled or completed
// customer callback tied to a site. Deleting the site removes its tickets.
type Ticket struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"siteId"`
	Issue         string    `json:"issue"`
	Status        string    `json:"status"` // scheduled, done
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	AssignedTo    string    `json:"assignedTo"` // optional User reference
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	Note          string    `json:"note"`
	CreatedAt     time.Time `json:"createdAt"`
}
