package domain

import "time"

// Site statuses.
const (
	SiteOngoing   = "ongoing"
	SiteCompleted = "completed"
)

// Material statuses. The flip between them is freely reversible.
const (
	MaterialPending = "pending"
	MaterialOrdered = "ordered"
)

// Site represents a renovation project being tracked.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Status    string    `json:"status"` // ongoing, completed
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	ManagerID string    `json:"managerId"` // optional User reference, may be empty or dangling
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"createdAt"`
}

// SiteLog is a daily work log entry attached to a site. Entries are kept
// newest-first; Checks is a set of user names and Comments are oldest-first.
type SiteLog struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Author        string       `json:"author"`
	CreatedAt     time.Time    `json:"createdAt"`
	HasAttachment bool         `json:"hasAttachment"`
	Checks        []string     `json:"checks"`
	Comments      []LogComment `json:"comments"`
}

// LogComment is a single comment on a site log.
type LogComment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// SiteWorker is a crew assignment record scoped to one site. It is not a
// User account.
type SiteWorker struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SiteMaterial is a material line item scoped to one site.
type SiteMaterial struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Name     string `json:"name"`
	Status   string `json:"status"` // pending, ordered
}
