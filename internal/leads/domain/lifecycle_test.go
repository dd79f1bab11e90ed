package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLifecycleMeetingToDeal(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	lead := Lead{Status: StatusNew}

	if tr := lead.ScheduleMeeting(now.Add(48*time.Hour), "v kanceláři"); tr.To != StatusMeeting || !lead.MeetingScheduled {
		t.Fatalf("expected MEETING with meeting_scheduled, got %+v", lead)
	}

	tr, err := lead.CompleteMeeting(NextCreateDeal, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Changed() || lead.Status != StatusMeeting || !lead.MeetingDone {
		t.Fatalf("CREATE_DEAL must keep MEETING and mark meeting done, got %+v", lead)
	}

	lead.MarkDealCreated(now)
	if lead.Status != StatusDealCreated || !lead.MeetingScheduled || !lead.MeetingDone {
		t.Fatalf("deal creation must force DEAL_CREATED and both meeting flags, got %+v", lead)
	}
}

func TestDealCreationBackfillsMeetingFlags(t *testing.T) {
	now := time.Now()
	lead := Lead{Status: StatusNew}

	lead.MarkDealCreated(now)
	if !lead.MeetingScheduled || !lead.MeetingDone || lead.MeetingDoneAt == nil {
		t.Fatalf("expected backfilled meeting flags, got %+v", lead)
	}
}

func TestRepeatDealKeepsAutomaticStatus(t *testing.T) {
	now := time.Now()
	cases := []struct {
		from        CommunicationStatus
		want        CommunicationStatus
		wantChanged bool
	}{
		{StatusMeeting, StatusDealCreated, true},
		{StatusSearchingProperty, StatusDealCreated, true},
		{StatusDealCreated, StatusDealCreated, false},
		{StatusCommissionPaid, StatusCommissionPaid, false},
	}
	for _, tc := range cases {
		lead := Lead{Status: tc.from, MeetingScheduled: true, MeetingDone: true, MeetingDoneAt: &now}
		tr := lead.MarkDealCreated(now)
		if lead.Status != tc.want || tr.Changed() != tc.wantChanged {
			t.Fatalf("%s: expected %s (changed %v), got %s (%+v)", tc.from, tc.want, tc.wantChanged, lead.Status, tr)
		}
	}
}

func TestCompleteMeetingNextActions(t *testing.T) {
	cases := []struct {
		action NextAction
		want   CommunicationStatus
	}{
		{NextSearchingProperty, StatusSearchingProperty},
		{NextWaitingForClient, StatusWaitingForClient},
		{NextFailed, StatusFailed},
		{NextCreateDeal, StatusMeeting},
	}
	for _, tc := range cases {
		lead := Lead{Status: StatusMeeting, MeetingScheduled: true}
		if _, err := lead.CompleteMeeting(tc.action, time.Now()); err != nil {
			t.Fatalf("%s: %v", tc.action, err)
		}
		if lead.Status != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.action, tc.want, lead.Status)
		}
	}

	lead := Lead{Status: StatusMeeting}
	if _, err := lead.CompleteMeeting("LUNCH", time.Now()); err == nil {
		t.Fatalf("expected unknown next action to fail")
	}
}

func TestCancelMeetingFails(t *testing.T) {
	lead := Lead{Status: StatusMeeting}
	lead.CancelMeeting()
	if lead.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", lead.Status)
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	lead := Lead{Status: StatusSearchingProperty}
	lead.ScheduleCallback(time.Date(2026, 5, 4, 15, 30, 0, 0, time.Local), "po dovolené")

	if lead.Status != StatusWaitingForClient || lead.CallbackScheduledDate == nil {
		t.Fatalf("expected WAITING_FOR_CLIENT with callback date, got %+v", lead)
	}
	if lead.CallbackDue(time.Date(2026, 5, 3, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("callback is not due the day before")
	}
	if !lead.CallbackDue(time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("callback is due on the day")
	}

	lead.ReturnFromCallback()
	if lead.Status != StatusNew || lead.CallbackScheduledDate != nil || lead.CallbackNote != "" {
		t.Fatalf("expected NEW with cleared callback, got %+v", lead)
	}
}

func TestCallbackNotDueOutsideWaiting(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lead := Lead{Status: StatusNew, CallbackScheduledDate: &day}
	if lead.CallbackDue(day.AddDate(0, 1, 0)) {
		t.Fatalf("only WAITING_FOR_CLIENT leads are swept")
	}
}

func TestValidateStatusEdit(t *testing.T) {
	cases := []struct {
		current, next CommunicationStatus
		ok            bool
	}{
		{StatusNew, StatusMeeting, true},
		{StatusMeeting, StatusDealCreated, false},
		{StatusDealCreated, StatusDealCreated, true},
		{StatusDealCreated, StatusFailed, true},
		{StatusNew, StatusCommissionPaid, false},
		{StatusNew, "ARCHIVED", false},
	}
	for _, tc := range cases {
		reason := ValidateStatusEdit(tc.current, tc.next)
		if (reason == "") != tc.ok {
			t.Fatalf("%s -> %s: expected ok=%v, got reason %q", tc.current, tc.next, tc.ok, reason)
		}
	}
}

func TestEditableStatuses(t *testing.T) {
	if got := EditableStatuses(StatusNew); len(got) != len(ManualStatuses) {
		t.Fatalf("manual current status should offer only the manual set, got %v", got)
	}
	got := EditableStatuses(StatusCommissionPaid)
	if got[len(got)-1] != StatusCommissionPaid {
		t.Fatalf("automatic current status should be kept as an option, got %v", got)
	}
}

func TestRepairMeetingFlagsIsIdempotent(t *testing.T) {
	updated := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	lead := Lead{MeetingDone: true, UpdatedAt: updated}

	if !lead.RepairMeetingFlags(false) {
		t.Fatalf("expected first repair to change the lead")
	}
	if !lead.MeetingScheduled || lead.MeetingDoneAt == nil || !lead.MeetingDoneAt.Equal(updated) {
		t.Fatalf("expected meeting_scheduled and meeting_done_at from updated_at, got %+v", lead)
	}
	if lead.RepairMeetingFlags(false) {
		t.Fatalf("second repair must be a no-op")
	}

	withDeal := Lead{UpdatedAt: updated}
	withDeal.RepairMeetingFlags(true)
	if !withDeal.MeetingScheduled || !withDeal.MeetingDone {
		t.Fatalf("lead with deals must have both flags, got %+v", withDeal)
	}

	untouched := Lead{}
	if untouched.RepairMeetingFlags(false) {
		t.Fatalf("lead without deals or meeting needs no repair")
	}
}

func TestIsAdvisorOwnContact(t *testing.T) {
	advisor := uuid.New()
	own := Lead{IsPersonalContact: true, ReferrerID: advisor, AdvisorID: &advisor}
	if !own.IsAdvisorOwnContact() {
		t.Fatalf("expected own contact")
	}
	other := Lead{IsPersonalContact: true, ReferrerID: uuid.New(), AdvisorID: &advisor}
	if other.IsAdvisorOwnContact() {
		t.Fatalf("personal contact referred by someone else is not the advisor's own")
	}
}
