package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/observability/metrics"
)

// Options tune store behavior.
type Options struct {
	// ReopenTickets allows flipping an AS ticket from done back to
	// scheduled. Completion is one-way unless FLAG_TICKET_REOPEN is
	// enabled.
	ReopenTickets bool
}

// Store holds the authoritative in-memory snapshot and applies every
// mutation as: validate, build the next snapshot from the current one, swap
// it in, persist, notify subscribers. Readers always observe either the old
// or the new snapshot, never a partially updated one.
//
// A failed durable write does not fail the mutation: the in-memory state
// has already advanced and the session continues with durability lag. The
// failure is logged, counted, and kept visible via LastSaveErr.
type Store struct {
	mu          sync.RWMutex
	snapshot    *domain.Snapshot
	lastSaveErr error

	repo   domain.SnapshotRepository
	logger *slog.Logger
	opts   Options

	subMu sync.Mutex
	subs  map[chan *domain.Snapshot]struct{}
}

// New creates a store around an already-initialized snapshot.
func New(snapshot *domain.Snapshot, repo domain.SnapshotRepository, logger *slog.Logger, opts Options) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	snapshot.Normalize()
	return &Store{
		snapshot: snapshot,
		repo:     repo,
		logger:   logger,
		opts:     opts,
		subs:     map[chan *domain.Snapshot]struct{}{},
	}
}

// Snapshot returns the current snapshot. Callers must treat it as
// immutable.
func (s *Store) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// LastSaveErr reports the error of the most recent durable write, or nil.
// Non-nil means the in-memory state is ahead of the durable slot.
func (s *Store) LastSaveErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSaveErr
}

// Flush re-persists the current snapshot. Used by the flush worker to
// recover from durability lag after a failed save.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.repo.Save(ctx, s.snapshot)
	s.lastSaveErr = err
	return err
}

// Subscribe registers a channel that receives the full updated snapshot
// after every mutation. Slow subscribers may miss intermediate snapshots;
// each delivery is complete, so the next one supersedes anything missed.
func (s *Store) Subscribe() chan *domain.Snapshot {
	ch := make(chan *domain.Snapshot, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	n := len(s.subs)
	s.subMu.Unlock()
	metrics.SetSnapshotSubscribers(n)
	return ch
}

// Unsubscribe removes a subscriber channel.
func (s *Store) Unsubscribe(ch chan *domain.Snapshot) {
	s.subMu.Lock()
	delete(s.subs, ch)
	n := len(s.subs)
	s.subMu.Unlock()
	metrics.SetSnapshotSubscribers(n)
}

func (s *Store) notify(snapshot *domain.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			// Subscriber is behind; it will get the next full snapshot.
		}
	}
}

// mutate runs one mutation to completion: clone, apply, swap, persist,
// notify. fn operates on the clone and must leave it consistent or return
// an error, in which case the current snapshot stays untouched.
func (s *Store) mutate(ctx context.Context, op string, fn func(next *domain.Snapshot) error) error {
	s.mu.Lock()
	next := s.snapshot.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		metrics.ObserveMutation(op, mutationResult(err))
		return err
	}
	s.snapshot = next
	saveErr := s.repo.Save(ctx, next)
	s.lastSaveErr = saveErr
	s.mu.Unlock()

	if saveErr != nil {
		s.logger.Warn("snapshot save failed, in-memory state is ahead of durable storage",
			slog.String("operation", op),
			slog.String("error", saveErr.Error()),
		)
	}
	metrics.ObserveMutation(op, "ok")
	metrics.SetOngoingSites(countOngoing(next))
	s.notify(next)
	return nil
}

func mutationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func countOngoing(snapshot *domain.Snapshot) int {
	n := 0
	for _, site := range snapshot.Sites {
		if site.Status == domain.SiteOngoing {
			n++
		}
	}
	return n
}

// UpsertUser inserts or replaces a staff account. Inserts are prepended;
// replacing keeps the user's position. The EmployeeID must not collide with
// a different existing user, active or not.
func (s *Store) UpsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.EmployeeID = strings.TrimSpace(user.EmployeeID)
	user.Name = strings.TrimSpace(user.Name)

	err := s.mutate(ctx, "upsert_user", func(next *domain.Snapshot) error {
		if user.EmployeeID == "" || user.Name == "" {
			return fmt.Errorf("%w: employee id and name are required", domain.ErrValidation)
		}
		if !domain.ValidRole(user.Role) {
			return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, user.Role)
		}
		for _, existing := range next.Users {
			if existing.EmployeeID == user.EmployeeID && existing.ID != user.ID {
				return fmt.Errorf("%w: employee id %q already in use", domain.ErrValidation, user.EmployeeID)
			}
		}

		if user.ID == "" {
			user.ID = domain.NewID("u")
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now()
		}

		for i, existing := range next.Users {
			if existing.ID == user.ID {
				if user.PasswordHash == "" {
					user.PasswordHash = existing.PasswordHash
				}
				next.Users[i] = user
				return nil
			}
		}
		if user.PasswordHash == "" {
			return fmt.Errorf("%w: new accounts need an initial password", domain.ErrValidation)
		}
		next.Users = append([]domain.User{user}, next.Users...)
		return nil
	})
	return user, err
}

// ResetPassword replaces only the password hash of the matching user.
func (s *Store) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	return s.mutate(ctx, "reset_password", func(next *domain.Snapshot) error {
		if passwordHash == "" {
			return fmt.Errorf("%w: password hash is required", domain.ErrValidation)
		}
		for i := range next.Users {
			if next.Users[i].ID == userID {
				next.Users[i].PasswordHash = passwordHash
				return nil
			}
		}
		return fmt.Errorf("%w: user %s", domain.ErrUserNotFound, userID)
	})
}

// UpsertSite inserts or replaces a site. On insert, empty per-site
// collections are seeded for the new site id so the snapshot invariant
// (every per-site key references an existing site) holds from creation.
func (s *Store) UpsertSite(ctx context.Context, site domain.Site) (domain.Site, error) {
	site.Name = strings.TrimSpace(site.Name)
	site.Address = strings.TrimSpace(site.Address)
	site.Memo = strings.TrimSpace(site.Memo)

	err := s.mutate(ctx, "upsert_site", func(next *domain.Snapshot) error {
		if site.Name == "" || site.Address == "" || site.StartDate == "" || site.EndDate == "" {
			return fmt.Errorf("%w: name, address and date range are required", domain.ErrValidation)
		}
		if site.Status == "" {
			site.Status = domain.SiteOngoing
		}
		if site.Status != domain.SiteOngoing && site.Status != domain.SiteCompleted {
			return fmt.Errorf("%w: unknown site status %q", domain.ErrValidation, site.Status)
		}

		if site.ID == "" {
			site.ID = domain.NewID("s")
		}
		if site.CreatedAt.IsZero() {
			site.CreatedAt = time.Now()
		}

		for i, existing := range next.Sites {
			if existing.ID == site.ID {
				next.Sites[i] = site
				return nil
			}
		}
		next.Sites = append([]domain.Site{site}, next.Sites...)
		next.SiteLogs[site.ID] = []domain.SiteLog{}
		next.SiteWorkers[site.ID] = []domain.SiteWorker{}
		next.SiteMaterials[site.ID] = []domain.SiteMaterial{}
		return nil
	})
	return site, err
}

// DeleteSite removes a site, every AS ticket referencing it, and its
// per-site collections, all within one mutation: there is no observable
// state where the site is gone but its tickets remain.
func (s *Store) DeleteSite(ctx context.Context, siteID string) error {
	return s.mutate(ctx, "delete_site", func(next *domain.Snapshot) error {
		found := false
		sites := next.Sites[:0]
		for _, site := range next.Sites {
			if site.ID == siteID {
				found = true
				continue
			}
			sites = append(sites, site)
		}
		if !found {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		next.Sites = sites

		tickets := next.Tickets[:0]
		for _, ticket := range next.Tickets {
			if ticket.SiteID == siteID {
				continue
			}
			tickets = append(tickets, ticket)
		}
		next.Tickets = tickets

		delete(next.SiteLogs, siteID)
		delete(next.SiteWorkers, siteID)
		delete(next.SiteMaterials, siteID)
		return nil
	})
}

// UpsertTicket inserts or replaces an AS ticket. A dangling SiteID is
// tolerated (it renders as unassigned) but logged; flipping done back to
// scheduled is rejected unless the store was configured to allow it.
func (s *Store) UpsertTicket(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	ticket.Issue = strings.TrimSpace(ticket.Issue)
	ticket.CustomerName = strings.TrimSpace(ticket.CustomerName)
	ticket.CustomerPhone = strings.TrimSpace(ticket.CustomerPhone)
	ticket.Note = strings.TrimSpace(ticket.Note)

	err := s.mutate(ctx, "upsert_ticket", func(next *domain.Snapshot) error {
		if ticket.SiteID == "" || ticket.Issue == "" || ticket.Date == "" || ticket.Time == "" ||
			ticket.CustomerName == "" || ticket.CustomerPhone == "" {
			return fmt.Errorf("%w: site, issue, schedule and customer contact are required", domain.ErrValidation)
		}
		if ticket.Status == "" {
			ticket.Status = domain.TicketScheduled
		}
		if ticket.Status != domain.TicketScheduled && ticket.Status != domain.TicketDone {
			return fmt.Errorf("%w: unknown ticket status %q", domain.ErrValidation, ticket.Status)
		}
		if next.FindSite(ticket.SiteID) == nil {
			s.logger.Warn("ticket references missing site",
				slog.String("ticket_id", ticket.ID),
				slog.String("site_id", ticket.SiteID),
			)
		}

		if ticket.ID == "" {
			ticket.ID = domain.NewID("a")
		}
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = time.Now()
		}

		for i, existing := range next.Tickets {
			if existing.ID == ticket.ID {
				if !s.opts.ReopenTickets && existing.Status == domain.TicketDone && ticket.Status == domain.TicketScheduled {
					return fmt.Errorf("%w: completed tickets cannot be reopened", domain.ErrValidation)
				}
				next.Tickets[i] = ticket
				return nil
			}
		}
		next.Tickets = append([]domain.Ticket{ticket}, next.Tickets...)
		return nil
	})
	return ticket, err
}

// DeleteTicket removes the matching AS ticket. No cascade.
func (s *Store) DeleteTicket(ctx context.Context, ticketID string) error {
	return s.mutate(ctx, "delete_ticket", func(next *domain.Snapshot) error {
		for i, ticket := range next.Tickets {
			if ticket.ID == ticketID {
				next.Tickets = append(next.Tickets[:i], next.Tickets[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: ticket %s", domain.ErrNotFound, ticketID)
	})
}

// AppendSiteLog prepends a work log entry to a site's log sequence
// (newest-first). Checks and comments start empty.
func (s *Store) AppendSiteLog(ctx context.Context, siteID string, log domain.SiteLog) (domain.SiteLog, error) {
	log.Text = strings.TrimSpace(log.Text)
	log.Author = strings.TrimSpace(log.Author)

	err := s.mutate(ctx, "append_site_log", func(next *domain.Snapshot) error {
		if log.Text == "" || log.Author == "" {
			return fmt.Errorf("%w: log text and author are required", domain.ErrValidation)
		}
		if next.FindSite(siteID) == nil {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}

		if log.ID == "" {
			log.ID = domain.NewID("l")
		}
		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now()
		}
		log.Checks = []string{}
		log.Comments = []domain.LogComment{}

		next.SiteLogs[siteID] = append([]domain.SiteLog{log}, next.SiteLogs[siteID]...)
		return nil
	})
	return log, err
}

// ToggleLogCheck flips membership of userName in the log's check set:
// added if absent, removed if present. Toggling twice restores the
// original set.
func (s *Store) ToggleLogCheck(ctx context.Context, siteID, logID, userName string) error {
	return s.mutate(ctx, "toggle_log_check", func(next *domain.Snapshot) error {
		userName = strings.TrimSpace(userName)
		if userName == "" {
			return fmt.Errorf("%w: user name is required", domain.ErrValidation)
		}
		logs, ok := next.SiteLogs[siteID]
		if !ok {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		for i := range logs {
			if logs[i].ID != logID {
				continue
			}
			for j, name := range logs[i].Checks {
				if name == userName {
					logs[i].Checks = append(logs[i].Checks[:j], logs[i].Checks[j+1:]...)
					return nil
				}
			}
			logs[i].Checks = append(logs[i].Checks, userName)
			return nil
		}
		return fmt.Errorf("%w: log %s", domain.ErrNotFound, logID)
	})
}

// AppendLogComment appends a comment (oldest-first) to a site log.
func (s *Store) AppendLogComment(ctx context.Context, siteID, logID string, comment domain.LogComment) (domain.LogComment, error) {
	comment.Text = strings.TrimSpace(comment.Text)
	comment.Author = strings.TrimSpace(comment.Author)

	err := s.mutate(ctx, "append_log_comment", func(next *domain.Snapshot) error {
		if comment.Text == "" || comment.Author == "" {
			return fmt.Errorf("%w: comment text and author are required", domain.ErrValidation)
		}
		logs, ok := next.SiteLogs[siteID]
		if !ok {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		for i := range logs {
			if logs[i].ID != logID {
				continue
			}
			if comment.ID == "" {
				comment.ID = domain.NewID("c")
			}
			if comment.CreatedAt.IsZero() {
				comment.CreatedAt = time.Now()
			}
			logs[i].Comments = append(logs[i].Comments, comment)
			return nil
		}
		return fmt.Errorf("%w: log %s", domain.ErrNotFound, logID)
	})
	return comment, err
}

// UpsertSiteWorker inserts or replaces a crew assignment within one site.
func (s *Store) UpsertSiteWorker(ctx context.Context, siteID string, worker domain.SiteWorker) (domain.SiteWorker, error) {
	worker.Name = strings.TrimSpace(worker.Name)

	err := s.mutate(ctx, "upsert_site_worker", func(next *domain.Snapshot) error {
		if worker.Name == "" {
			return fmt.Errorf("%w: worker name is required", domain.ErrValidation)
		}
		workers, ok := next.SiteWorkers[siteID]
		if !ok {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		if worker.ID == "" {
			worker.ID = domain.NewID("w")
		}
		for i, existing := range workers {
			if existing.ID == worker.ID {
				workers[i] = worker
				return nil
			}
		}
		next.SiteWorkers[siteID] = append([]domain.SiteWorker{worker}, workers...)
		return nil
	})
	return worker, err
}

// UpsertSiteMaterial inserts or replaces a material line within one site.
func (s *Store) UpsertSiteMaterial(ctx context.Context, siteID string, material domain.SiteMaterial) (domain.SiteMaterial, error) {
	material.Name = strings.TrimSpace(material.Name)
	material.Location = strings.TrimSpace(material.Location)

	err := s.mutate(ctx, "upsert_site_material", func(next *domain.Snapshot) error {
		if material.Name == "" {
			return fmt.Errorf("%w: material name is required", domain.ErrValidation)
		}
		if material.Status == "" {
			material.Status = domain.MaterialPending
		}
		if material.Status != domain.MaterialPending && material.Status != domain.MaterialOrdered {
			return fmt.Errorf("%w: unknown material status %q", domain.ErrValidation, material.Status)
		}
		materials, ok := next.SiteMaterials[siteID]
		if !ok {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		if material.ID == "" {
			material.ID = domain.NewID("m")
		}
		for i, existing := range materials {
			if existing.ID == material.ID {
				materials[i] = material
				return nil
			}
		}
		next.SiteMaterials[siteID] = append([]domain.SiteMaterial{material}, materials...)
		return nil
	})
	return material, err
}

// ToggleMaterialStatus flips a material between pending and ordered. The
// flip is freely reversible.
func (s *Store) ToggleMaterialStatus(ctx context.Context, siteID, materialID string) error {
	return s.mutate(ctx, "toggle_material_status", func(next *domain.Snapshot) error {
		materials, ok := next.SiteMaterials[siteID]
		if !ok {
			return fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
		}
		for i := range materials {
			if materials[i].ID != materialID {
				continue
			}
			if materials[i].Status == domain.MaterialPending {
				materials[i].Status = domain.MaterialOrdered
			} else {
				materials[i].Status = domain.MaterialPending
			}
			return nil
		}
		return fmt.Errorf("%w: material %s", domain.ErrNotFound, materialID)
	})
}
