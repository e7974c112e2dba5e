package domain

import "context"

// Snapshot is the aggregate root: the complete application state at one
// point in time. All entities are reachable only through it. The three
// per-site maps are keyed by Site ID; every key must correspond to an
// existing Site (new sites are seeded with empty slices, cascade delete
// removes the entries).
type Snapshot struct {
	Users         []User                    `json:"users"`
	Sites         []Site                    `json:"sites"`
	Tickets       []Ticket                  `json:"asTickets"`
	SiteLogs      map[string][]SiteLog      `json:"siteLogsBySite"`
	SiteWorkers   map[string][]SiteWorker   `json:"siteWorkersBySite"`
	SiteMaterials map[string][]SiteMaterial `json:"siteMaterialsBySite"`
}

// SnapshotRepository defines durable storage for the snapshot. Load returns
// (nil, nil) when no usable snapshot exists; Save replaces the whole slot.
type SnapshotRepository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// NewSnapshot returns an empty snapshot with all collections initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:         []User{},
		Sites:         []Site{},
		Tickets:       []Ticket{},
		SiteLogs:      map[string][]SiteLog{},
		SiteWorkers:   map[string][]SiteWorker{},
		SiteMaterials: map[string][]SiteMaterial{},
	}
}

// Normalize fills in any nil collections. Snapshots decoded from older or
// partially written documents may be missing fields; callers must never see
// nil maps.
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Sites == nil {
		s.Sites = []Site{}
	}
	if s.Tickets == nil {
		s.Tickets = []Ticket{}
	}
	if s.SiteLogs == nil {
		s.SiteLogs = map[string][]SiteLog{}
	}
	if s.SiteWorkers == nil {
		s.SiteWorkers = map[string][]SiteWorker{}
	}
	if s.SiteMaterials == nil {
		s.SiteMaterials = map[string][]SiteMaterial{}
	}
}

// Clone returns a deep copy. Mutations operate on a clone and swap it in,
// so readers always observe either the old or the new snapshot, never a
// partially updated one.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Users:         make([]User, len(s.Users)),
		Sites:         make([]Site, len(s.Sites)),
		Tickets:       make([]Ticket, len(s.Tickets)),
		SiteLogs:      make(map[string][]SiteLog, len(s.SiteLogs)),
		SiteWorkers:   make(map[string][]SiteWorker, len(s.SiteWorkers)),
		SiteMaterials: make(map[string][]SiteMaterial, len(s.SiteMaterials)),
	}
	copy(c.Users, s.Users)
	copy(c.Sites, s.Sites)
	copy(c.Tickets, s.Tickets)
	for siteID, logs := range s.SiteLogs {
		cloned := make([]SiteLog, len(logs))
		for i, l := range logs {
			cloned[i] = l
			cloned[i].Checks = append([]string(nil), l.Checks...)
			cloned[i].Comments = append([]LogComment(nil), l.Comments...)
		}
		c.SiteLogs[siteID] = cloned
	}
	for siteID, workers := range s.SiteWorkers {
		c.SiteWorkers[siteID] = append([]SiteWorker(nil), workers...)
	}
	for siteID, materials := range s.SiteMaterials {
		c.SiteMaterials[siteID] = append([]SiteMaterial(nil), materials...)
	}
	return c
}

// Redacted returns a copy safe to hand to API consumers: password hashes
// are stripped. The durable slot keeps the full snapshot.
func (s *Snapshot) Redacted() *Snapshot {
	c := s.Clone()
	for i := range c.Users {
		c.Users[i].PasswordHash = ""
	}
	return c
}

// FindUser returns the user with the given ID, or nil.
func (s *Snapshot) FindUser(id string) *User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// FindSite returns the site with the given ID, or nil.
func (s *Snapshot) FindSite(id string) *Site {
	for i := range s.Sites {
		if s.Sites[i].ID == id {
			return &s.Sites[i]
		}
	}
	return nil
}

// FindTicket returns the AS ticket with the given ID, or nil.
func (s *Snapshot) FindTicket(id string) *Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].ID == id {
			return &s.Tickets[i]
		}
	}
	return nil
}

// UserName resolves an optional user reference to a display name. Dangling
// or empty references resolve to "unassigned" rather than failing.
func (s *Snapshot) UserName(id string) string {
	if id == "" {
		return "unassigned"
	}
	if u := s.FindUser(id); u != nil {
		return u.Name
	}
	return "unassigned"
}
