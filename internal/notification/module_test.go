package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/events"
	leads "leadbridge/internal/leads/domain"
	"leadbridge/internal/notification/outbox"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://crm.example.cz/" }

type sent struct {
	to, subject, body string
}

type testSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *testSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{to, subject, body})
	return s.err
}

type testLeads map[uuid.UUID]leads.Lead

func (l testLeads) GetLead(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	lead, ok := l[id]
	if !ok {
		return leads.Lead{}, errors.New("lead not found")
	}
	return lead, nil
}

type testDirectory struct {
	users       map[uuid.UUID]accounts.User
	hierarchies map[uuid.UUID]accounts.Hierarchy
}

func (d testDirectory) GetUser(_ context.Context, id uuid.UUID) (accounts.User, error) {
	u, ok := d.users[id]
	if !ok {
		return accounts.User{}, errors.New("user not found")
	}
	return u, nil
}

func (d testDirectory) Hierarchy(_ context.Context, id uuid.UUID) (accounts.Hierarchy, error) {
	h, ok := d.hierarchies[id]
	if !ok {
		return accounts.Hierarchy{}, errors.New("hierarchy not found")
	}
	return h, nil
}

type testOutbox struct {
	inserted  []outbox.InsertParams
	records   map[uuid.UUID]outbox.Record
	succeeded []uuid.UUID
	failed    []uuid.UUID
	retries   []time.Time
}

func newTestOutbox() *testOutbox {
	return &testOutbox{records: make(map[uuid.UUID]outbox.Record)}
}

func (o *testOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	o.inserted = append(o.inserted, p)
	return uuid.New(), nil
}

func (o *testOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := o.records[id]
	if !ok {
		return outbox.Record{}, outbox.ErrNotFound
	}
	return rec, nil
}

func (o *testOutbox) MarkProcessing(context.Context, uuid.UUID) error { return nil }

func (o *testOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	o.succeeded = append(o.succeeded, id)
	return nil
}

func (o *testOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	o.failed = append(o.failed, id)
	return nil
}

func (o *testOutbox) ScheduleRetry(_ context.Context, _ uuid.UUID, runAt time.Time, _ string) error {
	o.retries = append(o.retries, runAt)
	return nil
}

type fixture struct {
	module   *Module
	sender   *testSender
	lead     leads.Lead
	referrer accounts.User
	advisor  accounts.User
	manager  accounts.User
	owner    accounts.User
}

func newFixture() fixture {
	f := fixture{
		sender:   &testSender{},
		referrer: accounts.User{ID: uuid.New(), Role: accounts.RoleReferrer, FirstName: "Rita", LastName: "Referentová", Email: "rita@example.cz"},
		advisor:  accounts.User{ID: uuid.New(), Role: accounts.RoleAdvisor, FirstName: "Adam", LastName: "Poradce", Email: "adam@example.cz"},
		manager:  accounts.User{ID: uuid.New(), Role: accounts.RoleReferrerManager, FirstName: "Marek", Email: "marek@example.cz"},
		owner:    accounts.User{ID: uuid.New(), Role: accounts.RoleOffice, FirstName: "Olga", Email: "olga@example.cz"},
	}
	advisorID := f.advisor.ID
	f.lead = leads.Lead{
		ID:         uuid.New(),
		Client:     leads.ClientData{FirstName: "Karel", LastName: "Klient"},
		ReferrerID: f.referrer.ID,
		AdvisorID:  &advisorID,
	}
	managerRef := f.manager.Ref()
	ownerRef := f.owner.Ref()
	dir := testDirectory{
		users: map[uuid.UUID]accounts.User{
			f.referrer.ID: f.referrer, f.advisor.ID: f.advisor, f.manager.ID: f.manager, f.owner.ID: f.owner,
		},
		hierarchies: map[uuid.UUID]accounts.Hierarchy{
			f.referrer.ID: {
				Referrer: f.referrer.Ref(),
				Manager:  &managerRef,
				Office:   &accounts.OfficeRef{ID: uuid.New(), Name: "Praha", Owner: &ownerRef},
			},
		},
	}
	f.module = New(testLeads{f.lead.ID: f.lead}, dir, f.sender, testNotificationConfig{}, nil, logger.New("development"))
	return f
}

func (f fixture) recipients() []string {
	out := make([]string, 0, len(f.sender.sent))
	for _, s := range f.sender.sent {
		out = append(out, s.to)
	}
	return out
}

func TestLeadCreatedNotifiesAdvisorNotCreator(t *testing.T) {
	f := newFixture()
	actor := f.referrer.ID
	err := f.module.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(), LeadID: f.lead.ID, ReferrerID: f.referrer.ID, ActorID: &actor,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := f.recipients(); len(got) != 1 || got[0] != f.advisor.Email {
		t.Fatalf("expected only the advisor, got %v", got)
	}
	msg := f.sender.sent[0]
	if msg.subject != "Nový lead: Karel Klient" {
		t.Fatalf("unexpected subject %q", msg.subject)
	}
	if !strings.Contains(msg.body, "Rita Referentová založil(a) nový lead.") {
		t.Fatalf("body must name the actor")
	}
	if !strings.Contains(msg.body, "https://crm.example.cz/leads/"+f.lead.ID.String()) {
		t.Fatalf("body must link the lead")
	}
}

func TestPrivateNoteNotifiesNobody(t *testing.T) {
	f := newFixture()
	actor := f.advisor.ID
	_ = f.module.Handle(context.Background(), events.NoteAdded{LeadID: f.lead.ID, ActorID: &actor, IsPrivate: true, Body: "interní"})
	if len(f.sender.sent) != 0 {
		t.Fatalf("private notes must not notify, got %v", f.recipients())
	}
}

func TestCommissionPaidReachesStructure(t *testing.T) {
	f := newFixture()
	_ = f.module.Handle(context.Background(), events.CommissionPaid{
		LeadID: f.lead.ID, Part: string(leads.PartManager), Amount: 1400,
	})
	want := []string{f.referrer.Email, f.advisor.Email, f.manager.Email, f.owner.Email}
	got := f.recipients()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if f.sender.sent[0].subject != "Provize vyplacena manažerovi: Karel Klient" {
		t.Fatalf("unexpected subject %q", f.sender.sent[0].subject)
	}
	if !strings.Contains(f.sender.sent[0].body, "1 400 Kč") {
		t.Fatalf("body must carry the amount")
	}
}

func TestCallbackDueNotifiesAdvisorOnly(t *testing.T) {
	f := newFixture()
	_ = f.module.Handle(context.Background(), events.CallbackDue{
		LeadID: f.lead.ID, Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Note: "zavolat po obědě",
	})
	if got := f.recipients(); len(got) != 1 || got[0] != f.advisor.Email {
		t.Fatalf("expected only the advisor, got %v", got)
	}
	if !strings.Contains(f.sender.sent[0].body, "04.03.2025") {
		t.Fatalf("body must carry the callback date")
	}
}

func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	f.sender.err = errors.New("smtp down")
	err := f.module.Handle(context.Background(), events.DealCreated{LeadID: f.lead.ID, LoanAmount: 3500000, Bank: "KB"})
	if err != nil {
		t.Fatalf("delivery errors must not propagate, got %v", err)
	}
	if len(f.sender.sent) != 2 {
		t.Fatalf("every recipient is still attempted, got %d", len(f.sender.sent))
	}

	if err := f.module.Handle(context.Background(), events.LeadUpdated{LeadID: uuid.New()}); err != nil {
		t.Fatalf("lookup errors must not propagate, got %v", err)
	}
}

func TestOutboxDefersDelivery(t *testing.T) {
	f := newFixture()
	box := newTestOutbox()
	f.module.WithOutbox(box)

	_ = f.module.Handle(context.Background(), events.MeetingScheduled{
		LeadID: f.lead.ID, MeetingAt: time.Date(2025, 5, 6, 8, 30, 0, 0, time.UTC), Note: "pobočka",
	})
	if len(f.sender.sent) != 0 {
		t.Fatalf("outbox mode must not send directly")
	}
	if len(box.inserted) != 2 {
		t.Fatalf("expected two outbox rows, got %d", len(box.inserted))
	}
	row := box.inserted[0]
	if row.Kind != string(KindMeetingScheduled) || row.LeadID == nil || *row.LeadID != f.lead.ID || row.RecipientEmail != f.referrer.Email {
		t.Fatalf("unexpected outbox row %+v", row)
	}
	if !strings.Contains(row.BodyHTML, "06.05.2025 10:30") {
		t.Fatalf("meeting time must be shown in Prague time")
	}
}

func TestOutboxDueDeliversAndSettles(t *testing.T) {
	f := newFixture()
	box := newTestOutbox()
	f.module.WithOutbox(box)

	id := uuid.New()
	box.records[id] = outbox.Record{ID: id, Kind: "lead_created", RecipientEmail: "x@example.cz", Subject: "s", BodyHTML: "b", Status: outbox.StatusEnqueued}
	if err := f.module.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.sender.sent) != 1 || len(box.succeeded) != 1 {
		t.Fatalf("expected one delivery marked succeeded")
	}

	box.records[id] = outbox.Record{ID: id, Status: outbox.StatusSucceeded}
	_ = f.module.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id})
	if len(f.sender.sent) != 1 {
		t.Fatalf("settled rows must not be resent")
	}

	if err := f.module.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: uuid.New()}); err != nil {
		t.Fatalf("a missing row is not an error, got %v", err)
	}
}

func TestOutboxDueRetriesThenFails(t *testing.T) {
	f := newFixture()
	box := newTestOutbox()
	f.module.WithOutbox(box)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f.module.now = func() time.Time { return now }
	f.sender.err = errors.New("rejected")

	id := uuid.New()
	box.records[id] = outbox.Record{ID: id, Kind: "deal_created", RecipientEmail: "x@example.cz", Status: outbox.StatusEnqueued, Attempts: 1}
	_ = f.module.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id})
	if len(box.retries) != 1 || !box.retries[0].Equal(now.Add(2*time.Minute)) {
		t.Fatalf("expected a retry in two minutes, got %v", box.retries)
	}

	box.records[id] = outbox.Record{ID: id, Kind: "deal_created", RecipientEmail: "x@example.cz", Status: outbox.StatusEnqueued, Attempts: maxOutboxRetryAttempts - 1}
	_ = f.module.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id})
	if len(box.failed) != 1 {
		t.Fatalf("exhausted rows must be marked failed")
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := map[int]time.Duration{0: time.Minute, 1: time.Minute, 3: 4 * time.Minute, 10: outboxRetryMaxDelay}
	for attempt, want := range cases {
		if got := computeOutboxRetryDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}
