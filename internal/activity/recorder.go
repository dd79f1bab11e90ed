package activity

import (
	"context"
	"strings"

	"leadbridge/internal/events"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f ListFilter) ([]EntryRow, int, error)
}

// Recorder writes sign-ins, sign-outs and administrative changes to the
// activity log. Write failures are logged only.
type Recorder struct {
	store Store
	log   *logger.Logger
}

func NewRecorder(store Store, log *logger.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

func (r *Recorder) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.UserLoggedIn{}.EventName(), r)
	bus.Subscribe(events.UserLoggedOut{}.EventName(), r)
	bus.Subscribe(events.UserSaved{}.EventName(), r)
	bus.Subscribe(events.LeadCreated{}.EventName(), r)
	bus.Subscribe(events.LeadUpdated{}.EventName(), r)
	bus.Subscribe(events.DealCreated{}.EventName(), r)
	bus.Subscribe(events.DealUpdated{}.EventName(), r)
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func entryFor(event events.Event) (Entry, bool) {
	switch e := event.(type) {
	case events.UserLoggedIn:
		return Entry{
			UserID:      idPtr(e.UserID),
			Action:      ActionLogin,
			ObjectType:  "user",
			ObjectID:    idPtr(e.UserID),
			Description: "Přihlášení",
			IPAddress:   e.IP,
			UserAgent:   e.UserAgent,
		}, true
	case events.UserLoggedOut:
		return Entry{
			UserID:      idPtr(e.UserID),
			Action:      ActionLogout,
			ObjectType:  "user",
			ObjectID:    idPtr(e.UserID),
			Description: "Odhlášení",
			IPAddress:   e.IP,
			UserAgent:   e.UserAgent,
		}, true
	case events.UserSaved:
		if e.Created {
			return objectEntry(idPtr(e.ActorID), ActionCreate, "user", e.UserID, "Vytvořen uživatel "+e.Email), true
		}
		return objectEntry(idPtr(e.ActorID), ActionUpdate, "user", e.UserID, "Upraven uživatel "+e.Email), true
	case events.LeadCreated:
		return objectEntry(e.ActorID, ActionCreate, "lead", e.LeadID, "Založen lead "+e.ClientName), true
	case events.LeadUpdated:
		return objectEntry(e.ActorID, ActionUpdate, "lead", e.LeadID, "Upraven lead: "+strings.Join(e.Fields, ", ")), true
	case events.DealCreated:
		return objectEntry(e.ActorID, ActionCreate, "deal", e.DealID, "Založen obchod"), true
	case events.DealUpdated:
		return objectEntry(e.ActorID, ActionUpdate, "deal", e.DealID, "Upraven obchod: "+strings.Join(e.Fields, ", ")), true
	}
	return Entry{}, false
}

func objectEntry(actor *uuid.UUID, action Action, objectType string, objectID uuid.UUID, description string) Entry {
	return Entry{UserID: actor, Action: action, ObjectType: objectType, ObjectID: idPtr(objectID), Description: description}
}

func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	entry, ok := entryFor(event)
	if !ok {
		return nil
	}
	entry.CreatedAt = event.OccurredAt()
	if err := r.store.Insert(ctx, entry); err != nil {
		r.log.Error("activity log write failed", "event", event.EventName(), "error", err)
	}
	return nil
}

var _ events.Handler = (*Recorder)(nil)
