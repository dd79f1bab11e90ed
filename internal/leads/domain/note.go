package domain

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	AuthorID  *uuid.UUID
	Body      string
	IsPrivate bool
	CreatedAt time.Time
}

// VisibleTo reports whether viewerID may read the note. Private notes are
// visible to their author and to admins.
func (n Note) VisibleTo(viewerID uuid.UUID, isAdmin bool) bool {
	if !n.IsPrivate || isAdmin {
		return true
	}
	return n.AuthorID != nil && *n.AuthorID == viewerID
}

type HistoryEventType string

const (
	HistoryCreated          HistoryEventType = "CREATED"
	HistoryNoteAdded        HistoryEventType = "NOTE_ADDED"
	HistoryUpdated          HistoryEventType = "UPDATED"
	HistoryMeetingScheduled HistoryEventType = "MEETING_SCHEDULED"
	HistoryDealCreated      HistoryEventType = "DEAL_CREATED"
	HistoryStatusChanged    HistoryEventType = "STATUS_CHANGED"
)

// HistoryEntry is one append-only row of a lead's audit trail.
type HistoryEntry struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	EventType   HistoryEventType
	Description string
	UserID      *uuid.UUID
	NoteID      *uuid.UUID
	CreatedAt   time.Time

	// NotePrivate and NoteAuthorID come from the linked note, when there is one.
	NotePrivate  bool
	NoteAuthorID *uuid.UUID
}

// VisibleTo hides entries that announce a private note the viewer cannot read.
func (h HistoryEntry) VisibleTo(viewerID uuid.UUID, isAdmin bool) bool {
	if h.NoteID == nil || !h.NotePrivate || isAdmin {
		return true
	}
	return h.NoteAuthorID != nil && *h.NoteAuthorID == viewerID
}
