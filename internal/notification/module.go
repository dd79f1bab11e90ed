// Package notification turns committed lead and deal events into emails for
// the people in the lead's structure. Domain modules publish events and never
// see email providers or templates.
package notification

import (
	"context"
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/email"
	"leadbridge/internal/events"
	leads "leadbridge/internal/leads/domain"
	"leadbridge/internal/notification/outbox"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/google/uuid"
)

const (
	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute
	systemActorName        = "Systém"
)

type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// Directory resolves users and the structure above a referrer.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (accounts.User, error)
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error)
}

// OutboxStore is the slice of the outbox repository the module uses.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	leads   LeadReader
	users   Directory
	sender  email.Sender
	outbox  OutboxStore
	cfg     config.NotificationConfig
	metrics *metrics.Metrics
	log     *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

// New builds a module that sends directly through sender. Attach an outbox
// with WithOutbox to defer delivery to the scheduler worker.
func New(leadReader LeadReader, users Directory, sender email.Sender, cfg config.NotificationConfig, m *metrics.Metrics, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		loc = time.UTC
	}
	return &Module{
		leads:   leadReader,
		users:   users,
		sender:  sender,
		cfg:     cfg,
		metrics: m,
		log:     log,
		loc:     loc,
		now:     time.Now,
	}
}

func (m *Module) WithOutbox(store OutboxStore) *Module {
	m.outbox = store
	return m
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadUpdated{}.EventName(), m)
	bus.Subscribe(events.NoteAdded{}.EventName(), m)
	bus.Subscribe(events.MeetingScheduled{}.EventName(), m)
	bus.Subscribe(events.MeetingCompleted{}.EventName(), m)
	bus.Subscribe(events.CallbackDue{}.EventName(), m)

	bus.Subscribe(events.DealCreated{}.EventName(), m)
	bus.Subscribe(events.DealUpdated{}.EventName(), m)
	bus.Subscribe(events.CommissionReady{}.EventName(), m)
	bus.Subscribe(events.CommissionPaid{}.EventName(), m)

	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to delivery. Notification failures are logged and
// never returned, so they cannot affect the change that triggered them.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	if e, ok := event.(events.NotificationOutboxDue); ok {
		return m.handleNotificationOutboxDue(ctx, e)
	}
	msg, ok := messageFor(event, m.loc)
	if !ok {
		return nil
	}
	if err := m.notify(ctx, msg); err != nil {
		m.log.Error("notification failed", "kind", msg.kind, "leadId", msg.leadID, "error", err)
	}
	return nil
}

func (m *Module) notify(ctx context.Context, msg message) error {
	lead, err := m.leads.GetLead(ctx, msg.leadID)
	if err != nil {
		return err
	}
	h, err := m.users.Hierarchy(ctx, lead.ReferrerID)
	if err != nil {
		return err
	}
	advisor := m.advisorRef(ctx, lead.AdvisorID, h)

	recipients := Recipients(msg.kind, h, advisor, msg.actor)
	if len(recipients) == 0 {
		m.log.Debug("notification has no recipients", "kind", msg.kind, "leadId", msg.leadID)
		return nil
	}

	clientName := lead.Client.FullName()
	subject := msg.subject(clientName)
	intro := msg.intro(m.actorName(ctx, msg.actor))
	for _, r := range recipients {
		body, err := email.RenderLeadNotification(email.LeadNotification{
			RecipientName: r.FullName(),
			Heading:       msg.heading,
			Intro:         intro,
			ClientName:    clientName,
			Details:       msg.details,
			LeadURL:       m.leadURL(lead.ID),
		})
		if err != nil {
			return err
		}
		m.deliver(ctx, msg.kind, r.Email, subject, body, &lead.ID)
	}
	return nil
}

// advisorRef reuses the hierarchy's referrer for personal contacts, where the
// advisor referred the lead themself.
func (m *Module) advisorRef(ctx context.Context, advisorID *uuid.UUID, h accounts.Hierarchy) *accounts.UserRef {
	if advisorID == nil {
		return nil
	}
	if *advisorID == h.Referrer.ID {
		ref := h.Referrer
		return &ref
	}
	u, err := m.users.GetUser(ctx, *advisorID)
	if err != nil {
		m.log.Warn("notification advisor lookup failed", "advisorId", *advisorID, "error", err)
		return nil
	}
	ref := u.Ref()
	return &ref
}

func (m *Module) actorName(ctx context.Context, actor *uuid.UUID) string {
	if actor == nil {
		return systemActorName
	}
	u, err := m.users.GetUser(ctx, *actor)
	if err != nil {
		return systemActorName
	}
	return u.FullName()
}

func (m *Module) leadURL(id uuid.UUID) string {
	if m.cfg == nil {
		return ""
	}
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/leads/" + id.String()
}

// deliver enqueues into the outbox when one is attached and sends directly otherwise.
func (m *Module) deliver(ctx context.Context, kind Kind, to, subject, body string, leadID *uuid.UUID) {
	if m.outbox != nil {
		_, err := m.outbox.Insert(ctx, outbox.InsertParams{
			Kind:           string(kind),
			RecipientEmail: to,
			Subject:        subject,
			BodyHTML:       body,
			LeadID:         leadID,
			RunAt:          m.now().UTC(),
		})
		if err != nil {
			m.metrics.Notification(string(kind), err)
			m.log.Error("notification enqueue failed", "kind", kind, "email", to, "error", err)
			return
		}
		m.log.Debug("notification enqueued", "kind", kind, "email", to)
		return
	}

	err := m.sender.Send(ctx, to, subject, body)
	m.metrics.Notification(string(kind), err)
	if err != nil {
		m.log.Error("notification send failed", "kind", kind, "email", to, "error", err)
		return
	}
	m.log.Info("notification sent", "kind", kind, "email", to)
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}
	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if errors.Is(err, outbox.ErrNotFound) {
		m.log.Warn("outbox record vanished", "outboxId", e.OutboxID)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already settled; skipping", "outboxId", rec.ID, "status", rec.Status)
		return nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	sendErr := m.sender.Send(ctx, rec.RecipientEmail, rec.Subject, rec.BodyHTML)
	m.metrics.Notification(rec.Kind, sendErr)
	if sendErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, sendErr)
		return nil
	}
	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		m.log.Error("outbox mark succeeded failed", "outboxId", rec.ID, "error", err)
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID, "kind", rec.Kind)
	return nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID,
			"kind", rec.Kind,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID,
			"attempt", attempt,
			"error", err,
		)
		return
	}
	m.log.Warn("notification outbox delivery failed; retry scheduled", "outboxId", rec.ID, "attempt", attempt, "retryAt", retryAt, "error", deliveryErr)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

var _ events.Handler = (*Module)(nil)
