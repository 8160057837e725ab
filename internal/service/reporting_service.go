package service

import (
	"slices"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/repository"
)

// GlobalStats summarizes every ticket in the store.
type GlobalStats struct {
	Total             int `json:"total"`
	Submitted         int `json:"submitted"`
	Delegated         int `json:"delegated"`
	Active            int `json:"active"`
	Completed         int `json:"completed"`
	Answered          int `json:"answered"`
	Unanswered        int `json:"unanswered"`
	Pending           int `json:"pending"`
	OpenConversations int `json:"open_conversations"`
}

// AdminStats summarizes the tickets assigned to one secondary admin.
type AdminStats struct {
	AdminID   domain.Identity `json:"admin_id"`
	Name      string          `json:"name"`
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Active    int             `json:"active"`
	Answered  int             `json:"answered"`
	Pending   int             `json:"pending"`
}

// ReportingService computes read-only projections over store snapshots.
type ReportingService struct {
	store     *repository.TicketStore
	directory *directory.Directory
}

// NewReportingService constructs the service.
func NewReportingService(store *repository.TicketStore, dir *directory.Directory) *ReportingService {
	return &ReportingService{store: store, directory: dir}
}

// Global returns counts across every ticket.
func (s *ReportingService) Global() GlobalStats {
	var stats GlobalStats
	for _, t := range s.store.All() {
		stats.Total++
		switch t.Status {
		case domain.TicketStatusSubmitted:
			stats.Submitted++
		case domain.TicketStatusDelegated:
			stats.Delegated++
		case domain.TicketStatusActive:
			stats.Active++
		case domain.TicketStatusCompleted:
			stats.Completed++
		}
		if t.Answered() {
			stats.Answered++
		} else {
			stats.Unanswered++
		}
		if t.ConversationActive {
			stats.OpenConversations++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

// PerAdmin returns stats for every configured secondary admin, followed by
// any other identity that holds assignments.
func (s *ReportingService) PerAdmin() []AdminStats {
	tickets := s.store.All()
	admins := s.directory.SecondaryAdmins()
	for _, t := range tickets {
		if t.AssignedAdminID != "" && !slices.Contains(admins, t.AssignedAdminID) {
			admins = append(admins, t.AssignedAdminID)
		}
	}

	result := make([]AdminStats, 0, len(admins))
	for _, admin := range admins {
		result = append(result, s.adminStats(admin, tickets))
	}
	return result
}

// ForAdmin returns stats for one admin.
func (s *ReportingService) ForAdmin(admin domain.Identity) AdminStats {
	return s.adminStats(admin, s.store.All())
}

func (s *ReportingService) adminStats(admin domain.Identity, tickets []domain.Ticket) AdminStats {
	stats := AdminStats{AdminID: admin, Name: s.directory.DisplayName(admin)}
	for _, t := range tickets {
		if t.AssignedAdminID != admin {
			continue
		}
		stats.Total++
		if t.Completed() {
			stats.Completed++
		}
		if t.Status == domain.TicketStatusActive {
			stats.Active++
		}
		if t.Answered() {
			stats.Answered++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

// Pending returns every ticket that has not been completed, oldest first.
func (s *ReportingService) Pending() []domain.Ticket {
	return s.store.Find(func(t *domain.Ticket) bool {
		return !t.Completed()
	})
}

// Assignments returns the admin's non-completed tickets, oldest first.
func (s *ReportingService) Assignments(admin domain.Identity) []domain.Ticket {
	return s.store.Find(func(t *domain.Ticket) bool {
		return t.AssignedAdminID == admin && !t.Completed()
	})
}

// Ticket returns a snapshot of one ticket.
func (s *ReportingService) Ticket(id string) (*domain.Ticket, error) {
	return s.store.Get(id)
}
