// Package domain provides the lead and deal lifecycle rules of the leads bounded context.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CommunicationStatus string

const (
	StatusNew               CommunicationStatus = "NEW"
	StatusMeeting           CommunicationStatus = "MEETING"
	StatusSearchingProperty CommunicationStatus = "SEARCHING_PROPERTY"
	StatusWaitingForClient  CommunicationStatus = "WAITING_FOR_CLIENT"
	StatusFailed            CommunicationStatus = "FAILED"
	StatusDealCreated       CommunicationStatus = "DEAL_CREATED"
	StatusCommissionPaid    CommunicationStatus = "COMMISSION_PAID"
)

// ManualStatuses can be chosen by an advisor on the lead form.
var ManualStatuses = []CommunicationStatus{
	StatusNew, StatusMeeting, StatusSearchingProperty, StatusWaitingForClient, StatusFailed,
}

// AllStatuses in display order.
var AllStatuses = append(append([]CommunicationStatus{}, ManualStatuses...), StatusDealCreated, StatusCommissionPaid)

var statusLabels = map[CommunicationStatus]string{
	StatusNew:               "Nový",
	StatusMeeting:           "Schůzka",
	StatusSearchingProperty: "Hledá nemovitost",
	StatusWaitingForClient:  "Čeká na klienta",
	StatusFailed:            "Neúspěšný",
	StatusDealCreated:       "Obchod vytvořen",
	StatusCommissionPaid:    "Provize vyplacena",
}

func (s CommunicationStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s CommunicationStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsAutomatic is true for statuses only the system sets.
func (s CommunicationStatus) IsAutomatic() bool {
	return s == StatusDealCreated || s == StatusCommissionPaid
}

// EditableStatuses is what the lead form offers an advisor: the manual set,
// plus the current automatic status so it can be kept.
func EditableStatuses(current CommunicationStatus) []CommunicationStatus {
	out := append([]CommunicationStatus{}, ManualStatuses...)
	if current.IsAutomatic() {
		out = append(out, current)
	}
	return out
}

// ValidateStatusEdit returns a non-empty reason when a form edit from current
// to next is not allowed.
func ValidateStatusEdit(current, next CommunicationStatus) string {
	if next == current {
		return ""
	}
	if !next.Valid() {
		return "unknown communication status"
	}
	if next.IsAutomatic() {
		return "status " + string(next) + " is set automatically"
	}
	return ""
}

// ClientData is the client identity copied between a lead and its deals.
type ClientData struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (c ClientData) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Lead struct {
	ID                    uuid.UUID
	Client                ClientData
	ReferrerID            uuid.UUID
	AdvisorID             *uuid.UUID
	Description           string
	IsPersonalContact     bool
	Status                CommunicationStatus
	MeetingAt             *time.Time
	MeetingNote           string
	MeetingScheduled      bool
	MeetingDone           bool
	MeetingDoneAt         *time.Time
	CallbackScheduledDate *time.Time
	CallbackNote          string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsAdvisorOwnContact is the statistics exclusion: a personal contact the advisor referred to themself.
func (l Lead) IsAdvisorOwnContact() bool {
	return l.IsPersonalContact && l.AdvisorID != nil && *l.AdvisorID == l.ReferrerID
}

// HasMeetingInconsistency is true when meeting_done is set without meeting_scheduled.
func (l Lead) HasMeetingInconsistency() bool {
	return l.MeetingDone && !l.MeetingScheduled
}
