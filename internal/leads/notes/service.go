// Package notes handles lead note operations.
// This is a vertically sliced feature package containing service logic
// for creating and listing notes and the history trail of a lead.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"leadbridge/internal/access"
	"leadbridge/internal/events"
	"leadbridge/internal/history"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"
	"leadbridge/platform/apperr"

	"github.com/google/uuid"
)

const maxBodyLength = 2000

// Repository defines the data access interface needed by the notes service.
// This is a consumer-driven interface - only what notes needs.
type Repository interface {
	repository.NoteStore
}

// Scope answers whether a viewer may see a lead.
type Scope interface {
	CanViewLead(ctx context.Context, v access.Viewer, leadID uuid.UUID) (bool, error)
}

// Service handles lead note operations.
type Service struct {
	repo     Repository
	scope    Scope
	eventBus events.Bus
	now      func() time.Time
}

// New creates a new notes service.
func New(repo Repository, scope Scope, eventBus events.Bus) *Service {
	return &Service{repo: repo, scope: scope, eventBus: eventBus, now: time.Now}
}

func (s *Service) ensureVisible(ctx context.Context, v access.Viewer, leadID uuid.UUID) error {
	ok, err := s.scope.CanViewLead(ctx, v, leadID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// Add stores a note. Anyone who can see the lead can comment on it; private
// notes stay visible to their author and admins only.
func (s *Service) Add(ctx context.Context, v access.Viewer, leadID uuid.UUID, body string, private bool) (domain.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLength {
		return domain.Note{}, apperr.Validation("note body must be between 1 and 2000 characters")
	}
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return domain.Note{}, err
	}

	rec := history.NewRecorder(leadID, &v.ID, s.now())
	note := rec.Note(body, private, history.NoteAdded(private, ""))
	if err := s.repo.AddNote(ctx, note, rec.Entries[0]); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Note{}, apperr.NotFound("lead not found")
		}
		return domain.Note{}, err
	}

	s.eventBus.Publish(ctx, events.NoteAdded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		NoteID:    note.ID,
		ActorID:   &v.ID,
		IsPrivate: private,
		Body:      body,
	})
	return note, nil
}

// List returns the notes v may read, newest first.
func (s *Service) List(ctx context.Context, v access.Viewer, leadID uuid.UUID) ([]domain.Note, error) {
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return history.VisibleNotes(notes, v.ID, v.IsAdmin()), nil
}

// History returns the lead's audit trail without entries announcing private
// notes v cannot read.
func (s *Service) History(ctx context.Context, v access.Viewer, leadID uuid.UUID) ([]domain.HistoryEntry, error) {
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return history.VisibleEntries(entries, v.ID, v.IsAdmin()), nil
}
