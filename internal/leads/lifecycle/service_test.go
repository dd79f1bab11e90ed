package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/events"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository/repotest"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

type fakeHierarchy struct {
	byReferrer map[uuid.UUID]accounts.Hierarchy
}

func (f fakeHierarchy) Hierarchy(_ context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error) {
	if h, ok := f.byReferrer[referrerID]; ok {
		return h, nil
	}
	return accounts.Hierarchy{Referrer: accounts.UserRef{ID: referrerID, Role: accounts.RoleReferrer}}, nil
}

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.EventName())
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func newTestService(now time.Time) (*Service, *repotest.Fake, *events.InMemoryBus, *recorder) {
	log := logger.New("development")
	repo := repotest.New()
	bus := events.NewInMemoryBus(log)
	rec := &recorder{}
	bus.Subscribe(events.Wildcard, events.HandlerFunc(rec.handle))

	svc := New(repo, access.New(repo), fakeHierarchy{}, bus, nil, log)
	svc.now = func() time.Time { return now }
	return svc, repo, bus, rec
}

func advisor() access.Viewer {
	return access.Viewer{ID: uuid.New(), Role: accounts.RoleAdvisor}
}

func TestScheduleMeetingRecordsEntriesAndPublishes(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, repo, bus, rec := newTestService(now)
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID})

	at := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	got, err := svc.ScheduleMeeting(context.Background(), v, lead.ID, at, " v kanceláři ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus.Wait()

	if got.Status != domain.StatusMeeting || !got.MeetingScheduled || got.MeetingNote != "v kanceláři" {
		t.Fatalf("unexpected lead %+v", got)
	}
	entries := repo.HistoryFor(lead.ID)
	if len(entries) != 2 || entries[0].EventType != domain.HistoryMeetingScheduled || entries[1].EventType != domain.HistoryNoteAdded {
		t.Fatalf("expected MEETING_SCHEDULED then NOTE_ADDED, got %+v", entries)
	}
	if len(repo.Notes) != 1 || repo.Notes[0].Body != "Schůzka: v kanceláři" {
		t.Fatalf("unexpected notes %+v", repo.Notes)
	}
	if names := rec.seen(); len(names) != 1 || names[0] != "leads.meeting.scheduled" {
		t.Fatalf("expected one meeting event, got %v", names)
	}
}

func TestScheduleMeetingWithoutNoteWritesNoNote(t *testing.T) {
	svc, repo, _, _ := newTestService(time.Now())
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID})

	if _, err := svc.ScheduleMeeting(context.Background(), v, lead.ID, time.Now().Add(time.Hour), "  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.Notes) != 0 || len(repo.HistoryFor(lead.ID)) != 1 {
		t.Fatalf("blank notes must not be stored")
	}
}

func TestScheduleMeetingPermissions(t *testing.T) {
	svc, repo, _, _ := newTestService(time.Now())
	referrer := access.Viewer{ID: uuid.New(), Role: accounts.RoleReferrer}
	lead := repo.AddLead(domain.Lead{ReferrerID: referrer.ID})

	_, err := svc.ScheduleMeeting(context.Background(), referrer, lead.ID, time.Now(), "")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("referrers cannot schedule meetings, got %v", err)
	}

	v := advisor()
	repo.OutOfScope[lead.ID] = true
	_, err = svc.ScheduleMeeting(context.Background(), v, lead.ID, time.Now(), "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("scope miss must look like a missing lead, got %v", err)
	}
}

func TestScheduleMeetingRejectsAutomaticStatus(t *testing.T) {
	svc, repo, _, _ := newTestService(time.Now())
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID, Status: domain.StatusDealCreated})

	_, err := svc.ScheduleMeeting(context.Background(), v, lead.ID, time.Now(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.HistoryFor(lead.ID)) != 0 {
		t.Fatalf("rejected mutation must not write history")
	}
}

func TestCompleteMeeting(t *testing.T) {
	cases := []struct {
		action domain.NextAction
		want   domain.CommunicationStatus
	}{
		{domain.NextSearchingProperty, domain.StatusSearchingProperty},
		{domain.NextWaitingForClient, domain.StatusWaitingForClient},
		{domain.NextFailed, domain.StatusFailed},
		{domain.NextCreateDeal, domain.StatusMeeting},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			now := time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC)
			svc, repo, _, _ := newTestService(now)
			v := advisor()
			lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID, Status: domain.StatusMeeting, MeetingScheduled: true})

			got, err := svc.CompleteMeeting(context.Background(), v, lead.ID, tc.action, "klient má zájem")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.want || !got.MeetingDone || got.MeetingDoneAt == nil || !got.MeetingDoneAt.Equal(now) {
				t.Fatalf("unexpected lead %+v", got)
			}
			entries := repo.HistoryFor(lead.ID)
			if len(entries) != 2 || entries[0].EventType != domain.HistoryNoteAdded || entries[1].EventType != domain.HistoryStatusChanged {
				t.Fatalf("expected note then status entry, got %+v", entries)
			}
		})
	}
}

func TestCompleteMeetingRequiresScheduledMeeting(t *testing.T) {
	svc, repo, _, _ := newTestService(time.Now())
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID})

	_, err := svc.CompleteMeeting(context.Background(), v, lead.ID, domain.NextFailed, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = svc.CompleteMeeting(context.Background(), v, lead.ID, "LATER", "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown action must be rejected, got %v", err)
	}
}

func TestCancelMeeting(t *testing.T) {
	svc, repo, bus, rec := newTestService(time.Now())
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID, Status: domain.StatusMeeting, MeetingScheduled: true})

	got, err := svc.CancelMeeting(context.Background(), v, lead.ID, "klient nepřišel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus.Wait()
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if repo.Notes[0].Body != "Schůzka zrušena: klient nepřišel" {
		t.Fatalf("unexpected note %q", repo.Notes[0].Body)
	}
	if names := rec.seen(); len(names) != 1 || names[0] != "leads.meeting.cancelled" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestScheduleCallbackPermissions(t *testing.T) {
	today := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	date := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	referrerID, assigned := uuid.New(), uuid.New()

	cases := []struct {
		name   string
		viewer access.Viewer
		ok     bool
	}{
		{"referrer", access.Viewer{ID: referrerID, Role: accounts.RoleReferrer}, true},
		{"assigned advisor", access.Viewer{ID: assigned, Role: accounts.RoleAdvisor}, true},
		{"other advisor", access.Viewer{ID: uuid.New(), Role: accounts.RoleAdvisor}, false},
		{"admin", access.Viewer{ID: uuid.New(), Role: accounts.RoleAdmin}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _, _ := newTestService(today)
			lead := repo.AddLead(domain.Lead{ReferrerID: referrerID, AdvisorID: &assigned})

			got, err := svc.ScheduleCallback(context.Background(), tc.viewer, lead.ID, date, "")
			if !tc.ok {
				if !apperr.Is(err, apperr.KindForbidden) {
					t.Fatalf("expected forbidden, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != domain.StatusWaitingForClient || !got.CallbackScheduledDate.Equal(date) {
				t.Fatalf("unexpected lead %+v", got)
			}
			if len(repo.Notes) != 1 || repo.Notes[0].Body != "Zavolat klientovi dne 20.04.2026" {
				t.Fatalf("callback must always leave a note, got %+v", repo.Notes)
			}
		})
	}
}

func TestScheduleCallbackRejectsPastDate(t *testing.T) {
	today := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	svc, repo, _, _ := newTestService(today)
	v := advisor()
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), AdvisorID: &v.ID})

	_, err := svc.ScheduleCallback(context.Background(), v, lead.ID, today.AddDate(0, 0, -1), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ScheduleCallback(context.Background(), v, lead.ID, today, ""); err != nil {
		t.Fatalf("today is a valid callback date: %v", err)
	}
}

func TestProcessDueCallbacks(t *testing.T) {
	today := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	svc, repo, bus, rec := newTestService(today)

	due := today.AddDate(0, 0, -2)
	later := today.AddDate(0, 0, 3)
	dueLead := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), Status: domain.StatusWaitingForClient, CallbackScheduledDate: &due, CallbackNote: "volat ráno"})
	repo.AddLead(domain.Lead{ReferrerID: uuid.New(), Status: domain.StatusWaitingForClient, CallbackScheduledDate: &later})

	n, err := svc.ProcessDueCallbacks(context.Background(), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus.Wait()
	if n != 1 {
		t.Fatalf("expected 1 processed lead, got %d", n)
	}

	got := repo.Leads[dueLead.ID]
	if got.Status != domain.StatusNew || got.CallbackScheduledDate != nil || got.CallbackNote != "" {
		t.Fatalf("due lead must return to NEW with the callback cleared, got %+v", got)
	}
	entries := repo.HistoryFor(dueLead.ID)
	if len(entries) != 1 || entries[0].UserID != nil {
		t.Fatalf("sweep writes one system entry, got %+v", entries)
	}
	if names := rec.seen(); len(names) != 1 || names[0] != "leads.callback.due" {
		t.Fatalf("unexpected events %v", names)
	}

	if n, _ := svc.ProcessDueCallbacks(context.Background(), today); n != 0 {
		t.Fatalf("second sweep must be a no-op, processed %d", n)
	}
}

func TestRepairMeetingFlags(t *testing.T) {
	svc, repo, _, _ := newTestService(time.Now())
	withDeal := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), Status: domain.StatusDealCreated})
	repo.AddDeal(domain.Deal{LeadID: withDeal.ID})
	doneOnly := repo.AddLead(domain.Lead{ReferrerID: uuid.New(), MeetingDone: true})
	repo.AddLead(domain.Lead{ReferrerID: uuid.New()})

	report, err := svc.RepairMeetingFlags(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Candidates) != 2 || report.Repaired != 0 {
		t.Fatalf("dry run must list 2 candidates and change nothing, got %+v", report)
	}
	if repo.Leads[withDeal.ID].MeetingDone {
		t.Fatalf("dry run must not write")
	}

	report, err = svc.RepairMeetingFlags(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Repaired != 2 || report.Failed != 0 {
		t.Fatalf("expected 2 repairs, got %+v", report)
	}
	for _, id := range []uuid.UUID{withDeal.ID, doneOnly.ID} {
		l := repo.Leads[id]
		if !l.MeetingScheduled || !l.MeetingDone || l.MeetingDoneAt == nil {
			t.Fatalf("lead %s not repaired: %+v", id, l)
		}
	}

	report, _ = svc.RepairMeetingFlags(context.Background(), true)
	if len(report.Candidates) != 0 || report.Repaired != 0 {
		t.Fatalf("second run must be a no-op, got %+v", report)
	}
}
