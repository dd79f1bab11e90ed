package domain

import (
	"fmt"
	"time"
)

// NextAction is the advisor's choice when closing a meeting.
type NextAction string

const (
	NextSearchingProperty NextAction = "SEARCHING_PROPERTY"
	NextWaitingForClient  NextAction = "WAITING_FOR_CLIENT"
	NextFailed            NextAction = "FAILED"
	NextCreateDeal        NextAction = "CREATE_DEAL"
)

var nextActionLabels = map[NextAction]string{
	NextSearchingProperty: "hledá nemovitost",
	NextWaitingForClient:  "čeká na klienta",
	NextFailed:            "neúspěch",
	NextCreateDeal:        "založit obchod",
}

func (a NextAction) Valid() bool {
	_, ok := nextActionLabels[a]
	return ok
}

func (a NextAction) Label() string {
	if label, ok := nextActionLabels[a]; ok {
		return label
	}
	return string(a)
}

// Transition describes a committed status move for history and logging.
type Transition struct {
	From CommunicationStatus
	To   CommunicationStatus
}

func (t Transition) Changed() bool { return t.From != t.To }

const dateTimeLayout = "02.01.2006 15:04"
const dateLayout = "02.01.2006"

func FormatDateTime(t time.Time) string { return t.Format(dateTimeLayout) }
func FormatDate(t time.Time) string     { return t.Format(dateLayout) }

// ScheduleMeeting moves the lead to MEETING and records the meeting.
func (l *Lead) ScheduleMeeting(at time.Time, note string) Transition {
	t := Transition{From: l.Status, To: StatusMeeting}
	l.Status = StatusMeeting
	l.MeetingScheduled = true
	l.MeetingAt = &at
	l.MeetingNote = note
	return t
}

// CompleteMeeting marks the meeting done. CREATE_DEAL keeps MEETING until the deal is submitted.
func (l *Lead) CompleteMeeting(action NextAction, now time.Time) (Transition, error) {
	if !action.Valid() {
		return Transition{}, fmt.Errorf("unknown next action %q", action)
	}
	t := Transition{From: l.Status}
	l.MeetingScheduled = true
	l.MeetingDone = true
	l.MeetingDoneAt = &now
	if action != NextCreateDeal {
		l.Status = CommunicationStatus(action)
	}
	t.To = l.Status
	return t, nil
}

func (l *Lead) CancelMeeting() Transition {
	t := Transition{From: l.Status, To: StatusFailed}
	l.Status = StatusFailed
	return t
}

// ScheduleCallback parks the lead in WAITING_FOR_CLIENT until date.
func (l *Lead) ScheduleCallback(date time.Time, note string) Transition {
	t := Transition{From: l.Status, To: StatusWaitingForClient}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	l.Status = StatusWaitingForClient
	l.CallbackScheduledDate = &day
	l.CallbackNote = note
	return t
}

// CallbackDue reports whether the callback sweep should return the lead to NEW.
func (l Lead) CallbackDue(today time.Time) bool {
	if l.Status != StatusWaitingForClient || l.CallbackScheduledDate == nil {
		return false
	}
	d := l.CallbackScheduledDate
	y, m, day := today.Date()
	return !time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).
		After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

// ReturnFromCallback is applied by the callback sweep.
func (l *Lead) ReturnFromCallback() Transition {
	t := Transition{From: l.Status, To: StatusNew}
	l.Status = StatusNew
	l.CallbackScheduledDate = nil
	l.CallbackNote = ""
	return t
}

// MarkDealCreated flips the lead to DEAL_CREATED and forces the meeting flags:
// a deal implies the meeting happened. A lead already in an automatic status
// keeps it, so a repeat deal never pulls COMMISSION_PAID back.
func (l *Lead) MarkDealCreated(now time.Time) Transition {
	t := Transition{From: l.Status, To: l.Status}
	if !l.Status.IsAutomatic() {
		t.To = StatusDealCreated
		l.Status = StatusDealCreated
	}
	l.MeetingScheduled = true
	if !l.MeetingDone {
		l.MeetingDone = true
		if l.MeetingDoneAt == nil {
			l.MeetingDoneAt = &now
		}
	}
	return t
}

func (l *Lead) MarkCommissionPaid() Transition {
	t := Transition{From: l.Status, To: StatusCommissionPaid}
	l.Status = StatusCommissionPaid
	return t
}

// RepairMeetingFlags applies the meeting invariant to a lead that has deals
// or a done meeting. It reports whether anything changed.
func (l *Lead) RepairMeetingFlags(hasDeals bool) bool {
	if !hasDeals && !l.MeetingDone {
		return false
	}
	changed := false
	if !l.MeetingScheduled {
		l.MeetingScheduled = true
		changed = true
	}
	if hasDeals && !l.MeetingDone {
		l.MeetingDone = true
		changed = true
	}
	if l.MeetingDone && l.MeetingDoneAt == nil {
		at := l.UpdatedAt
		l.MeetingDoneAt = &at
		changed = true
	}
	return changed
}
