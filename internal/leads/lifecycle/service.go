// Package lifecycle handles the meeting and callback flows of a lead and the
// batch jobs that keep lead state consistent.
// This is a vertically sliced feature package: every mutator locks the lead,
// applies the domain transition, writes history in the same transaction and
// publishes an event after commit.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/events"
	"leadbridge/internal/history"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the lifecycle service.
// This is a consumer-driven interface - only what lifecycle needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.BatchStore
}

// Scope answers whether a viewer may see a lead.
type Scope interface {
	CanViewLead(ctx context.Context, v access.Viewer, leadID uuid.UUID) (bool, error)
}

// HierarchyProvider resolves the referrer chain of a lead.
type HierarchyProvider interface {
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error)
}

type Service struct {
	repo      Repository
	scope     Scope
	hierarchy HierarchyProvider
	eventBus  events.Bus
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func New(repo Repository, scope Scope, hierarchy HierarchyProvider, eventBus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		scope:     scope,
		hierarchy: hierarchy,
		eventBus:  eventBus,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	}
	return err
}

// ensureVisible turns a scope miss into NotFound.
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

func requireManualState(lead *domain.Lead) error {
	if lead.Status.IsAutomatic() {
		return apperr.Validation("lead in status " + string(lead.Status) + " no longer takes meetings or callbacks")
	}
	return nil
}

func (s *Service) committed(action string, lead domain.Lead, t domain.Transition) {
	s.log.LeadTransition(lead.ID.String(), action, string(t.From), string(t.To))
	s.metrics.LeadTransition(action)
}

// ScheduleMeeting moves the lead to MEETING. A non-empty note is also kept as a lead note.
func (s *Service) ScheduleMeeting(ctx context.Context, v access.Viewer, leadID uuid.UUID, at time.Time, note string) (domain.Lead, error) {
	if !access.CanScheduleMeeting(v) {
		return domain.Lead{}, apperr.Forbidden("only advisors and admins can schedule meetings")
	}
	if at.IsZero() {
		return domain.Lead{}, apperr.Validation("meeting time is required")
	}
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return domain.Lead{}, err
	}

	note = strings.TrimSpace(note)
	var t domain.Transition
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
		if err := requireManualState(lead); err != nil {
			return repository.LeadMutation{}, err
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		t = lead.ScheduleMeeting(at, note)
		rec.Entry(domain.HistoryMeetingScheduled, history.MeetingScheduled(at))
		if note != "" {
			rec.Note(history.MeetingNote(note), false, history.MeetingNoteAdded)
		}
		return repository.LeadMutation{Notes: rec.Notes, History: rec.Entries}, nil
	})
	if err != nil {
		return domain.Lead{}, mapErr(err)
	}

	s.committed("schedule_meeting", lead, t)
	s.eventBus.Publish(ctx, events.MeetingScheduled{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ActorID:   &v.ID,
		MeetingAt: at,
		Note:      note,
	})
	return lead, nil
}

// CompleteMeeting closes the meeting with the advisor's next action.
func (s *Service) CompleteMeeting(ctx context.Context, v access.Viewer, leadID uuid.UUID, action domain.NextAction, note string) (domain.Lead, error) {
	if !access.CanScheduleMeeting(v) {
		return domain.Lead{}, apperr.Forbidden("only advisors and admins can complete meetings")
	}
	if !action.Valid() {
		return domain.Lead{}, apperr.Validation("unknown next action")
	}
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return domain.Lead{}, err
	}

	note = strings.TrimSpace(note)
	var t domain.Transition
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
		if err := requireManualState(lead); err != nil {
			return repository.LeadMutation{}, err
		}
		if !lead.MeetingScheduled {
			return repository.LeadMutation{}, apperr.Validation("lead has no scheduled meeting")
		}
		now := s.now()
		rec := history.NewRecorder(lead.ID, &v.ID, now)
		if note != "" {
			rec.Note(history.ResultNote(note), false, history.ResultNoteAdded)
		}
		var err error
		if t, err = lead.CompleteMeeting(action, now); err != nil {
			return repository.LeadMutation{}, apperr.Validation(err.Error())
		}
		rec.Entry(domain.HistoryStatusChanged, history.MeetingCompleted(action))
		return repository.LeadMutation{Notes: rec.Notes, History: rec.Entries}, nil
	})
	if err != nil {
		return domain.Lead{}, mapErr(err)
	}

	s.committed("complete_meeting", lead, t)
	s.eventBus.Publish(ctx, events.MeetingCompleted{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		ActorID:    &v.ID,
		NextAction: string(action),
		StatusTo:   string(lead.Status),
	})
	return lead, nil
}

// CancelMeeting fails the lead. Nobody is notified.
func (s *Service) CancelMeeting(ctx context.Context, v access.Viewer, leadID uuid.UUID, note string) (domain.Lead, error) {
	if !access.CanScheduleMeeting(v) {
		return domain.Lead{}, apperr.Forbidden("only advisors and admins can cancel meetings")
	}
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return domain.Lead{}, err
	}

	note = strings.TrimSpace(note)
	var t domain.Transition
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
		if err := requireManualState(lead); err != nil {
			return repository.LeadMutation{}, err
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		if note != "" {
			rec.Note(history.CancelNote(note), false, history.CancelNoteAdded)
		}
		t = lead.CancelMeeting()
		rec.Entry(domain.HistoryStatusChanged, history.MeetingCancelled)
		return repository.LeadMutation{Notes: rec.Notes, History: rec.Entries}, nil
	})
	if err != nil {
		return domain.Lead{}, mapErr(err)
	}

	s.committed("cancel_meeting", lead, t)
	s.eventBus.Publish(ctx, events.MeetingCancelled{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, ActorID: &v.ID})
	return lead, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScheduleCallback parks the lead until date. The callback always leaves a note.
func (s *Service) ScheduleCallback(ctx context.Context, v access.Viewer, leadID uuid.UUID, date time.Time, note string) (domain.Lead, error) {
	if date.IsZero() {
		return domain.Lead{}, apperr.Validation("callback date is required")
	}
	if truncateDay(date).Before(truncateDay(s.now())) {
		return domain.Lead{}, apperr.Validation("callback date cannot be in the past")
	}
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return domain.Lead{}, err
	}

	current, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, mapErr(err)
	}
	h, err := s.hierarchy.Hierarchy(ctx, current.ReferrerID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !access.CanScheduleCallback(v, current, h) {
		return domain.Lead{}, apperr.Forbidden("you cannot schedule a callback for this lead")
	}

	note = strings.TrimSpace(note)
	var t domain.Transition
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
		if err := requireManualState(lead); err != nil {
			return repository.LeadMutation{}, err
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		rec.Note(history.CallbackNote(date, note), false, history.CallbackNoteAdded)
		t = lead.ScheduleCallback(date, note)
		rec.Entry(domain.HistoryStatusChanged, history.CallbackScheduled(date))
		return repository.LeadMutation{Notes: rec.Notes, History: rec.Entries}, nil
	})
	if err != nil {
		return domain.Lead{}, mapErr(err)
	}

	s.committed("schedule_callback", lead, t)
	s.eventBus.Publish(ctx, events.CallbackScheduled{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ActorID:   &v.ID,
		Date:      *lead.CallbackScheduledDate,
		Note:      note,
	})
	return lead, nil
}

// ProcessDueCallbacks returns every lead whose callback date has arrived to
// NEW and notifies its advisor. Failures on one lead do not stop the sweep;
// they are joined into the returned error.
func (s *Service) ProcessDueCallbacks(ctx context.Context, today time.Time) (int, error) {
	ids, err := s.repo.DueCallbackIDs(ctx, today)
	if err != nil {
		return 0, err
	}

	var (
		processed int
		errs      []error
	)
	for _, id := range ids {
		var (
			date time.Time
			note string
			t    domain.Transition
		)
		lead, err := s.repo.MutateLead(ctx, id, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
			if !lead.CallbackDue(today) {
				return repository.LeadMutation{}, repository.ErrUnchanged
			}
			date, note = *lead.CallbackScheduledDate, lead.CallbackNote
			rec := history.NewRecorder(lead.ID, nil, s.now())
			t = lead.ReturnFromCallback()
			rec.Entry(domain.HistoryStatusChanged, history.CallbackReturned(date))
			return repository.LeadMutation{History: rec.Entries}, nil
		})
		if errors.Is(err, repository.ErrUnchanged) {
			continue
		}
		if err != nil {
			s.log.Error("callback sweep failed for lead", "error", err, "leadId", id)
			errs = append(errs, err)
			continue
		}

		processed++
		s.committed("callback_due", lead, t)
		s.eventBus.Publish(ctx, events.CallbackDue{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Date: date, Note: note})
	}

	s.metrics.CallbacksProcessed(processed)
	s.log.Info("callback sweep finished", "due", len(ids), "processed", processed)
	return processed, errors.Join(errs...)
}

// RepairReport summarises a meeting-flags repair run.
type RepairReport struct {
	Candidates []repository.MeetingFlagCandidate
	Repaired   int
	Failed     int
}

// RepairMeetingFlags enforces meeting_done ⇒ meeting_scheduled and "a deal
// implies a done meeting" on historical rows. Without apply it only lists
// the candidates. Running it again after an apply is a no-op.
func (s *Service) RepairMeetingFlags(ctx context.Context, apply bool) (RepairReport, error) {
	candidates, err := s.repo.MeetingFlagCandidates(ctx)
	if err != nil {
		return RepairReport{}, err
	}
	report := RepairReport{Candidates: candidates}
	if !apply {
		return report, nil
	}

	for _, c := range candidates {
		_, err := s.repo.MutateLead(ctx, c.LeadID, func(lead *domain.Lead, deals int) (repository.LeadMutation, error) {
			if !lead.RepairMeetingFlags(deals > 0) {
				return repository.LeadMutation{}, repository.ErrUnchanged
			}
			return repository.LeadMutation{}, nil
		})
		switch {
		case err == nil:
			report.Repaired++
		case errors.Is(err, repository.ErrUnchanged):
		default:
			report.Failed++
			s.log.Error("meeting flag repair failed", "error", err, "leadId", c.LeadID)
		}
	}
	return report, nil
}
