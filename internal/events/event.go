// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadbridge/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

type UserLoggedIn struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

func (e UserLoggedIn) EventName() string { return "auth.user.logged_in" }

type UserLoggedOut struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

func (e UserLoggedOut) EventName() string { return "auth.user.logged_out" }

// UserSaved is published when an administrator creates or edits a user.
type UserSaved struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	ActorID uuid.UUID `json:"actorId"`
	Created bool      `json:"created"`
	Email   string    `json:"email"`
}

func (e UserSaved) EventName() string { return "accounts.user.saved" }

// =============================================================================
// Lead Domain Events
// =============================================================================

// Actor is who triggered a lead event. Nil means the system.
type Actor = *uuid.UUID

type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	ReferrerID uuid.UUID  `json:"referrerId"`
	AdvisorID  *uuid.UUID `json:"advisorId,omitempty"`
	ActorID    Actor      `json:"actorId,omitempty"`
	ClientName string     `json:"clientName"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

type LeadUpdated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	ActorID       Actor     `json:"actorId,omitempty"`
	Fields        []string  `json:"fields"`
	StatusFrom    string    `json:"statusFrom"`
	StatusTo      string    `json:"statusTo"`
	ClientChanged bool      `json:"clientChanged"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

type NoteAdded struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	NoteID    uuid.UUID `json:"noteId"`
	ActorID   Actor     `json:"actorId,omitempty"`
	IsPrivate bool      `json:"isPrivate"`
	Body      string    `json:"body"`
}

func (e NoteAdded) EventName() string { return "leads.note.added" }

type MeetingScheduled struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	ActorID   Actor     `json:"actorId,omitempty"`
	MeetingAt time.Time `json:"meetingAt"`
	Note      string    `json:"note"`
}

func (e MeetingScheduled) EventName() string { return "leads.meeting.scheduled" }

type MeetingCompleted struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	ActorID    Actor     `json:"actorId,omitempty"`
	NextAction string    `json:"nextAction"`
	StatusTo   string    `json:"statusTo"`
}

func (e MeetingCompleted) EventName() string { return "leads.meeting.completed" }

type MeetingCancelled struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	ActorID Actor     `json:"actorId,omitempty"`
}

func (e MeetingCancelled) EventName() string { return "leads.meeting.cancelled" }

type CallbackScheduled struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	ActorID Actor     `json:"actorId,omitempty"`
	Date    time.Time `json:"date"`
	Note    string    `json:"note"`
}

func (e CallbackScheduled) EventName() string { return "leads.callback.scheduled" }

// CallbackDue is published by the callback sweep for each lead it returns to NEW.
type CallbackDue struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
}

func (e CallbackDue) EventName() string { return "leads.callback.due" }

// =============================================================================
// Deal Domain Events
// =============================================================================

type DealCreated struct {
	BaseEvent
	DealID     uuid.UUID `json:"dealId"`
	LeadID     uuid.UUID `json:"leadId"`
	ActorID    Actor     `json:"actorId,omitempty"`
	LoanAmount int64     `json:"loanAmount"`
	Bank       string    `json:"bank"`
}

func (e DealCreated) EventName() string { return "deals.deal.created" }

type DealUpdated struct {
	BaseEvent
	DealID     uuid.UUID `json:"dealId"`
	LeadID     uuid.UUID `json:"leadId"`
	ActorID    Actor     `json:"actorId,omitempty"`
	Fields     []string  `json:"fields"`
	StatusFrom string    `json:"statusFrom"`
	StatusTo   string    `json:"statusTo"`
}

func (e DealUpdated) EventName() string { return "deals.deal.updated" }

type CommissionReady struct {
	BaseEvent
	DealID  uuid.UUID `json:"dealId"`
	LeadID  uuid.UUID `json:"leadId"`
	ActorID Actor     `json:"actorId,omitempty"`
}

func (e CommissionReady) EventName() string { return "deals.commission.ready" }

type CommissionPaid struct {
	BaseEvent
	DealID      uuid.UUID `json:"dealId"`
	LeadID      uuid.UUID `json:"leadId"`
	ActorID     Actor     `json:"actorId,omitempty"`
	Part        string    `json:"part"`
	Amount      int64     `json:"amount"`
	AllPaid     bool      `json:"allPaid"`
	LeadPaidOut bool      `json:"leadPaidOut"`
}

func (e CommissionPaid) EventName() string { return "deals.commission.paid" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox row is due.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
