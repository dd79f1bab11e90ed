package repository

import (
	"context"
	"time"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	LeadInScope(ctx context.Context, leadID uuid.UUID, scope access.Scope) (bool, error)
}

// LeadWriter creates leads and applies locked lead mutations.
type LeadWriter interface {
	CreateLead(ctx context.Context, lead domain.Lead, m LeadMutation, hooks ...TxHook) error
	MutateLead(ctx context.Context, leadID uuid.UUID, fn func(lead *domain.Lead, existingDeals int) (LeadMutation, error)) (domain.Lead, error)
}

// DealStore reads deals and applies locked deal mutations.
type DealStore interface {
	GetDeal(ctx context.Context, id uuid.UUID) (domain.Deal, error)
	DealInScope(ctx context.Context, dealID uuid.UUID, scope access.Scope) (bool, error)
	ListDealsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error)
	MutateDeal(ctx context.Context, dealID uuid.UUID, fn func(lead *domain.Lead, deal *domain.Deal) (DealMutation, error)) (domain.Deal, domain.Lead, error)
}

// NoteStore manages lead notes and the history trail.
type NoteStore interface {
	AddNote(ctx context.Context, n domain.Note, h domain.HistoryEntry) error
	ListNotes(ctx context.Context, leadID uuid.UUID) ([]domain.Note, error)
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]domain.HistoryEntry, error)
}

// ListStore runs scoped list queries.
type ListStore interface {
	ListLeads(ctx context.Context, q ListQuery) ([]LeadRow, int, error)
	ListDeals(ctx context.Context, q ListQuery) ([]DealRow, int, error)
	FilterOptions(ctx context.Context, q ListQuery, deals bool) (FilterOptions, error)
	CountDistinctAdvisors(ctx context.Context, q ListQuery) (int, error)
}

// BatchStore feeds the out-of-band jobs.
type BatchStore interface {
	DueCallbackIDs(ctx context.Context, today time.Time) ([]uuid.UUID, error)
	MeetingFlagCandidates(ctx context.Context) ([]MeetingFlagCandidate, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	DealStore
	NoteStore
	ListStore
	BatchStore
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
