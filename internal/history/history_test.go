package history

import (
	"testing"
	"time"

	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

func TestRecorderLinksNoteToEntry(t *testing.T) {
	leadID, actor := uuid.New(), uuid.New()
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(leadID, &actor, now)

	note := rec.Note("Schůzka: v kanceláři", true, MeetingNoteAdded)
	rec.Entry(domain.HistoryMeetingScheduled, MeetingScheduled(now))

	if len(rec.Notes) != 1 || len(rec.Entries) != 2 {
		t.Fatalf("expected 1 note and 2 entries, got %d/%d", len(rec.Notes), len(rec.Entries))
	}
	added := rec.Entries[0]
	if added.EventType != domain.HistoryNoteAdded || added.NoteID == nil || *added.NoteID != note.ID {
		t.Fatalf("NOTE_ADDED must reference the note, got %+v", added)
	}
	if !added.NotePrivate || *added.NoteAuthorID != actor {
		t.Fatalf("entry must carry the note's privacy, got %+v", added)
	}
	if rec.Entries[1].Description != "Schůzka naplánována na 03.02.2026 10:00" {
		t.Fatalf("unexpected description %q", rec.Entries[1].Description)
	}
}

func TestSystemEntriesHaveNoUser(t *testing.T) {
	rec := NewRecorder(uuid.New(), nil, time.Now())
	rec.Entry(domain.HistoryStatusChanged, CallbackReturned(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	if rec.Entries[0].UserID != nil {
		t.Fatalf("sweep entries are written without a user")
	}
	if rec.Entries[0].Description != "Plánovaný hovor (01.04.2026) - lead vrácen do stavu NEW" {
		t.Fatalf("unexpected description %q", rec.Entries[0].Description)
	}
}

func TestCallbackNote(t *testing.T) {
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := CallbackNote(day, ""); got != "Zavolat klientovi dne 15.06.2026" {
		t.Fatalf("unexpected note %q", got)
	}
	if got := CallbackNote(day, "po obědě"); got != "Zavolat klientovi dne 15.06.2026\nPoznámka: po obědě" {
		t.Fatalf("unexpected note %q", got)
	}
}

func TestVisibleEntriesHidesOthersPrivateNotes(t *testing.T) {
	author, reader := uuid.New(), uuid.New()
	rec := NewRecorder(uuid.New(), &author, time.Now())
	rec.Note("soukromé", true, NoteAdded(true, ""))
	rec.Note("veřejné", false, NoteAdded(false, ""))
	rec.Entry(domain.HistoryUpdated, "Upraveno: popis")

	if got := VisibleEntries(rec.Entries, reader, false); len(got) != 2 {
		t.Fatalf("reader should see 2 entries, got %d", len(got))
	}
	if got := VisibleEntries(rec.Entries, author, false); len(got) != 3 {
		t.Fatalf("author should see all entries, got %d", len(got))
	}
	if got := VisibleNotes(rec.Notes, reader, true); len(got) != 2 {
		t.Fatalf("admins see private notes, got %d", len(got))
	}
	if got := VisibleNotes(rec.Notes, reader, false); len(got) != 1 {
		t.Fatalf("reader sees only the public note, got %d", len(got))
	}
}

func TestPartLabels(t *testing.T) {
	if CommissionPaid(domain.PartManager) != "Vyplacena provize manažerovi." {
		t.Fatalf("unexpected label %q", CommissionPaid(domain.PartManager))
	}
}
