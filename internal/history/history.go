// Package history builds the audit-trail entries and notes a lead mutation
// writes, and filters them for a reader.
package history

import (
	"strings"
	"time"

	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

// Recorder collects the notes and history entries of one mutation in the
// order they must be inserted.
type Recorder struct {
	leadID  uuid.UUID
	actor   *uuid.UUID
	now     time.Time
	Notes   []domain.Note
	Entries []domain.HistoryEntry
}

// NewRecorder starts a batch for leadID. A nil actor records a system change.
func NewRecorder(leadID uuid.UUID, actor *uuid.UUID, now time.Time) *Recorder {
	return &Recorder{leadID: leadID, actor: actor, now: now}
}

func (r *Recorder) Entry(eventType domain.HistoryEventType, description string) {
	r.Entries = append(r.Entries, domain.HistoryEntry{
		ID:          uuid.New(),
		LeadID:      r.leadID,
		EventType:   eventType,
		Description: description,
		UserID:      r.actor,
		CreatedAt:   r.now,
	})
}

// Note stores body as a lead note and announces it with a NOTE_ADDED entry.
func (r *Recorder) Note(body string, private bool, description string) domain.Note {
	n := domain.Note{
		ID:        uuid.New(),
		LeadID:    r.leadID,
		AuthorID:  r.actor,
		Body:      body,
		IsPrivate: private,
		CreatedAt: r.now,
	}
	r.Notes = append(r.Notes, n)

	noteID := n.ID
	r.Entries = append(r.Entries, domain.HistoryEntry{
		ID:           uuid.New(),
		LeadID:       r.leadID,
		EventType:    domain.HistoryNoteAdded,
		Description:  description,
		UserID:       r.actor,
		NoteID:       &noteID,
		CreatedAt:    r.now,
		NotePrivate:  private,
		NoteAuthorID: r.actor,
	})
	return n
}

// Descriptions.

const (
	LeadCreated        = "Lead založen."
	MeetingNoteAdded   = "Přidána poznámka ke schůzce."
	ResultNoteAdded    = "Přidána poznámka k výsledku schůzky."
	CancelNoteAdded    = "Přidána poznámka ke zrušení schůzky."
	CallbackNoteAdded  = "Přidána poznámka k odložení hovoru."
	DealNoteAdded      = "Přidána poznámka ke změně obchodu."
	MeetingCancelled   = "Schůzka zrušena, lead označen jako neúspěšný."
	DealCreated        = "Založen obchod."
	CommissionReady    = "Provize nastavena na: připravená k vyplacení."
	LeadToDealCreated  = "Změněn stav leadu: → Obchod vytvořen"
	LeadCommissionPaid = "Změněn stav leadu: → Provize vyplacena"
)

// NoteAdded describes a note added from context, e.g. " z detailu obchodu".
func NoteAdded(private bool, context string) string {
	if private {
		return "Přidána soukromá poznámka" + context + "."
	}
	return "Přidána poznámka" + context + "."
}

func MeetingScheduled(at time.Time) string {
	return "Schůzka naplánována na " + domain.FormatDateTime(at)
}

func MeetingNote(note string) string { return "Schůzka: " + note }

func ResultNote(note string) string { return "Výsledek schůzky: " + note }

func CancelNote(note string) string { return "Schůzka zrušena: " + note }

func MeetingCompleted(action domain.NextAction) string {
	return "Schůzka proběhla. Další krok: " + action.Label()
}

// CallbackNote is the note every scheduled callback leaves on the lead.
func CallbackNote(date time.Time, note string) string {
	body := "Zavolat klientovi dne " + domain.FormatDate(date)
	if strings.TrimSpace(note) != "" {
		body += "\nPoznámka: " + note
	}
	return body
}

func CallbackScheduled(date time.Time) string {
	return "Hovor odložen na " + domain.FormatDate(date) + ". Stav změněn na '" + domain.StatusWaitingForClient.Label() + "'."
}

// CallbackReturned is written by the callback sweep.
func CallbackReturned(date time.Time) string {
	return "Plánovaný hovor (" + domain.FormatDate(date) + ") - lead vrácen do stavu NEW"
}

func DealUpdated(fields []string) string {
	return "Obchod upraven: " + strings.Join(fields, ", ")
}

var partNames = map[domain.CommissionPart]string{
	domain.PartReferrer: "makléři",
	domain.PartManager:  "manažerovi",
	domain.PartOffice:   "kanceláři",
}

// PartLabel names the recipient of a commission part in the dative.
func PartLabel(part domain.CommissionPart) string {
	if name, ok := partNames[part]; ok {
		return name
	}
	return string(part)
}

func CommissionPaid(part domain.CommissionPart) string {
	return "Vyplacena provize " + PartLabel(part) + "."
}

// VisibleEntries drops entries announcing private notes the reader cannot see.
func VisibleEntries(entries []domain.HistoryEntry, viewerID uuid.UUID, isAdmin bool) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.VisibleTo(viewerID, isAdmin) {
			out = append(out, e)
		}
	}
	return out
}

func VisibleNotes(notes []domain.Note, viewerID uuid.UUID, isAdmin bool) []domain.Note {
	out := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.VisibleTo(viewerID, isAdmin) {
			out = append(out, n)
		}
	}
	return out
}
