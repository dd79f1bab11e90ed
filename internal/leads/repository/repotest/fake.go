// Package repotest provides an in-memory leads repository for service tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"

	"github.com/google/uuid"
)

// Fake keeps leads, deals, notes and history in maps. Mutations run under a
// single mutex, which stands in for the row locks of the real repository.
type Fake struct {
	mu sync.Mutex

	Leads   map[uuid.UUID]domain.Lead
	Deals   map[uuid.UUID]domain.Deal
	Notes   []domain.Note
	History []domain.HistoryEntry

	// OutOfScope lists leads and deals the scope checks report as invisible.
	OutOfScope map[uuid.UUID]bool

	Options          repository.FilterOptions
	DistinctAdvisors int
	LastQuery        repository.ListQuery
	LastOptionsQuery repository.ListQuery
	HooksRun         int
}

var _ repository.LeadsRepository = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Leads:      make(map[uuid.UUID]domain.Lead),
		Deals:      make(map[uuid.UUID]domain.Deal),
		OutOfScope: make(map[uuid.UUID]bool),
	}
}

// AddLead stores a lead, filling the id and timestamps when empty.
func (f *Fake) AddLead(l domain.Lead) domain.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = domain.StatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
		l.UpdatedAt = l.CreatedAt
	}
	f.Leads[l.ID] = l
	return l
}

func (f *Fake) AddDeal(d domain.Deal) domain.Deal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.Deals[d.ID] = d
	return d
}

// HistoryFor returns the lead's entries in insertion order.
func (f *Fake) HistoryFor(leadID uuid.UUID) []domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HistoryEntry
	for _, h := range f.History {
		if h.LeadID == leadID {
			out = append(out, h)
		}
	}
	return out
}

func (f *Fake) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.Leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return l, nil
}

func (f *Fake) LeadInScope(_ context.Context, leadID uuid.UUID, _ access.Scope) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Leads[leadID]
	return ok && !f.OutOfScope[leadID], nil
}

func (f *Fake) DealInScope(_ context.Context, dealID uuid.UUID, _ access.Scope) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Deals[dealID]
	return ok && !f.OutOfScope[dealID] && !f.OutOfScope[d.LeadID], nil
}

func (f *Fake) dealCount(leadID uuid.UUID) int {
	n := 0
	for _, d := range f.Deals {
		if d.LeadID == leadID {
			n++
		}
	}
	return n
}

func (f *Fake) syncClient(leadID uuid.UUID, c domain.ClientData, except *uuid.UUID) {
	for id, d := range f.Deals {
		if d.LeadID == leadID && (except == nil || *except != id) {
			d.Client = c
			f.Deals[id] = d
		}
	}
}

func (f *Fake) apply(leadID uuid.UUID, m repository.LeadMutation, client domain.ClientData) {
	f.Notes = append(f.Notes, m.Notes...)
	if m.NewDeal != nil {
		f.Deals[m.NewDeal.ID] = *m.NewDeal
	}
	if m.SyncClient {
		f.syncClient(leadID, client, nil)
	}
	f.History = append(f.History, m.History...)
}

func (f *Fake) CreateLead(ctx context.Context, lead domain.Lead, m repository.LeadMutation, hooks ...repository.TxHook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, hook := range hooks {
		if err := hook(ctx, nil); err != nil {
			return err
		}
		f.HooksRun++
	}
	f.Leads[lead.ID] = lead
	f.apply(lead.ID, m, lead.Client)
	return nil
}

func (f *Fake) MutateLead(_ context.Context, leadID uuid.UUID, fn func(lead *domain.Lead, existingDeals int) (repository.LeadMutation, error)) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.Leads[leadID]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	m, err := fn(&lead, f.dealCount(leadID))
	if err != nil {
		return domain.Lead{}, err
	}
	lead.UpdatedAt = time.Now()
	f.Leads[leadID] = lead
	f.apply(leadID, m, lead.Client)
	return lead, nil
}

func (f *Fake) GetDeal(_ context.Context, id uuid.UUID) (domain.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Deals[id]
	if !ok {
		return domain.Deal{}, repository.ErrDealNotFound
	}
	return d, nil
}

func (f *Fake) ListDealsForLead(_ context.Context, leadID uuid.UUID) ([]domain.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Deal, 0)
	for _, d := range f.Deals {
		if d.LeadID == leadID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) MutateDeal(_ context.Context, dealID uuid.UUID, fn func(lead *domain.Lead, deal *domain.Deal) (repository.DealMutation, error)) (domain.Deal, domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deal, ok := f.Deals[dealID]
	if !ok {
		return domain.Deal{}, domain.Lead{}, repository.ErrDealNotFound
	}
	lead, ok := f.Leads[deal.LeadID]
	if !ok {
		return domain.Deal{}, domain.Lead{}, repository.ErrNotFound
	}

	m, err := fn(&lead, &deal)
	if err != nil {
		return domain.Deal{}, domain.Lead{}, err
	}
	now := time.Now()
	deal.UpdatedAt = now
	f.Deals[deal.ID] = deal
	if m.SyncClient {
		lead.Client = deal.Client
		m.LeadChanged = true
		f.syncClient(lead.ID, deal.Client, &deal.ID)
	}
	if m.LeadChanged {
		lead.UpdatedAt = now
		f.Leads[lead.ID] = lead
	}
	f.Notes = append(f.Notes, m.Notes...)
	f.History = append(f.History, m.History...)
	return deal, lead, nil
}

func (f *Fake) AddNote(_ context.Context, n domain.Note, h domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Leads[n.LeadID]; !ok {
		return repository.ErrNotFound
	}
	f.Notes = append(f.Notes, n)
	f.History = append(f.History, h)
	return nil
}

func (f *Fake) ListNotes(_ context.Context, leadID uuid.UUID) ([]domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Note, 0)
	for _, n := range f.Notes {
		if n.LeadID == leadID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *Fake) ListHistory(_ context.Context, leadID uuid.UUID) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notes := make(map[uuid.UUID]domain.Note)
	for _, n := range f.Notes {
		notes[n.ID] = n
	}
	out := make([]domain.HistoryEntry, 0)
	for _, h := range f.History {
		if h.LeadID != leadID {
			continue
		}
		if h.NoteID != nil {
			n := notes[*h.NoteID]
			h.NotePrivate, h.NoteAuthorID = n.IsPrivate, n.AuthorID
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *Fake) ListLeads(_ context.Context, q repository.ListQuery) ([]repository.LeadRow, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastQuery = q
	rows := make([]repository.LeadRow, 0, len(f.Leads))
	for _, l := range f.Leads {
		if f.OutOfScope[l.ID] {
			continue
		}
		rows = append(rows, repository.LeadRow{Lead: l, Referrer: repository.Ref{ID: l.ReferrerID}, DealCount: f.dealCount(l.ID)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Lead.CreatedAt.After(rows[j].Lead.CreatedAt) })
	return rows, len(rows), nil
}

func (f *Fake) ListDeals(_ context.Context, q repository.ListQuery) ([]repository.DealRow, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastQuery = q
	rows := make([]repository.DealRow, 0, len(f.Deals))
	for _, d := range f.Deals {
		l := f.Leads[d.LeadID]
		if f.OutOfScope[l.ID] {
			continue
		}
		rows = append(rows, repository.DealRow{
			Deal:              d,
			LeadStatus:        l.Status,
			IsPersonalContact: l.IsPersonalContact,
			Referrer:          repository.Ref{ID: l.ReferrerID},
		})
	}
	return rows, len(rows), nil
}

func (f *Fake) FilterOptions(_ context.Context, q repository.ListQuery, _ bool) (repository.FilterOptions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastOptionsQuery = q
	return f.Options, nil
}

func (f *Fake) CountDistinctAdvisors(_ context.Context, _ repository.ListQuery) (int, error) {
	return f.DistinctAdvisors, nil
}

func (f *Fake) DueCallbackIDs(_ context.Context, today time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, l := range f.Leads {
		if l.CallbackDue(today) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fake) MeetingFlagCandidates(_ context.Context) ([]repository.MeetingFlagCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.MeetingFlagCandidate, 0)
	for _, l := range f.Leads {
		deals := f.dealCount(l.ID)
		if deals == 0 && !l.MeetingDone {
			continue
		}
		if l.MeetingScheduled && l.MeetingDone && l.MeetingDoneAt != nil {
			continue
		}
		out = append(out, repository.MeetingFlagCandidate{
			LeadID:           l.ID,
			ClientName:       l.Client.FullName(),
			DealCount:        deals,
			MeetingScheduled: l.MeetingScheduled,
			MeetingDone:      l.MeetingDone,
			MeetingDoneAt:    l.MeetingDoneAt,
		})
	}
	return out, nil
}
