package activity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadbridge/internal/events"
	"leadbridge/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeStore struct {
	inserted []Entry
	filters  []ListFilter
	rows     []EntryRow
	total    int
	err      error
}

func (f *fakeStore) Insert(_ context.Context, e Entry) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, e)
	return nil
}

func (f *fakeStore) List(_ context.Context, lf ListFilter) ([]EntryRow, int, error) {
	f.filters = append(f.filters, lf)
	return f.rows, f.total, f.err
}

func TestRecorderMapsEvents(t *testing.T) {
	actor := uuid.New()
	user := uuid.New()
	lead := uuid.New()
	at := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		event      events.Event
		wantAction Action
		wantType   string
		wantObject uuid.UUID
		wantDesc   string
	}{
		{"login", events.UserLoggedIn{BaseEvent: events.BaseEvent{Timestamp: at}, UserID: user, IP: "10.0.0.1"}, ActionLogin, "user", user, "Přihlášení"},
		{"logout", events.UserLoggedOut{BaseEvent: events.BaseEvent{Timestamp: at}, UserID: user}, ActionLogout, "user", user, "Odhlášení"},
		{"user created", events.UserSaved{BaseEvent: events.BaseEvent{Timestamp: at}, UserID: user, ActorID: actor, Created: true, Email: "a@b.cz"}, ActionCreate, "user", user, "Vytvořen uživatel a@b.cz"},
		{"user updated", events.UserSaved{BaseEvent: events.BaseEvent{Timestamp: at}, UserID: user, ActorID: actor, Email: "a@b.cz"}, ActionUpdate, "user", user, "Upraven uživatel a@b.cz"},
		{"lead created", events.LeadCreated{BaseEvent: events.BaseEvent{Timestamp: at}, LeadID: lead, ActorID: &actor, ClientName: "Karel Klient"}, ActionCreate, "lead", lead, "Založen lead Karel Klient"},
		{"lead updated", events.LeadUpdated{BaseEvent: events.BaseEvent{Timestamp: at}, LeadID: lead, ActorID: &actor, Fields: []string{"phone", "note"}}, ActionUpdate, "lead", lead, "Upraven lead: phone, note"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			r := NewRecorder(store, logger.New("development"))
			if err := r.Handle(context.Background(), tc.event); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(store.inserted) != 1 {
				t.Fatalf("expected one entry, got %d", len(store.inserted))
			}
			e := store.inserted[0]
			if e.Action != tc.wantAction || e.ObjectType != tc.wantType || e.Description != tc.wantDesc {
				t.Fatalf("unexpected entry %+v", e)
			}
			if e.ObjectID == nil || *e.ObjectID != tc.wantObject {
				t.Fatalf("unexpected object id %v", e.ObjectID)
			}
			if !e.CreatedAt.Equal(at) {
				t.Fatalf("entry must carry the event time, got %v", e.CreatedAt)
			}
		})
	}
}

func TestRecorderSystemActorAndIgnoredEvents(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store, logger.New("development"))

	if err := r.Handle(context.Background(), events.DealCreated{DealID: uuid.New()}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if store.inserted[0].UserID != nil {
		t.Fatalf("system changes have no user")
	}
	if err := r.Handle(context.Background(), events.NoteAdded{LeadID: uuid.New()}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("notes are not audited")
	}
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	r := NewRecorder(&fakeStore{err: errors.New("db down")}, logger.New("development"))
	if err := r.Handle(context.Background(), events.UserLoggedIn{UserID: uuid.New()}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestListFilterSQL(t *testing.T) {
	id := uuid.New()
	query, args := ListFilter{UserID: &id, Action: ActionLogin, Page: 3, PageSize: 20}.listSQL()
	for _, fragment := range []string{
		"LEFT JOIN users u ON u.id = a.user_id",
		"WHERE a.user_id = $1 AND a.action = $2",
		"ORDER BY a.created_at DESC",
		"LIMIT $3 OFFSET $4",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in query:\n%s", fragment, query)
		}
	}
	if len(args) != 4 || args[2] != 20 || args[3] != 40 {
		t.Fatalf("unexpected args %v", args)
	}

	query, args = ListFilter{Page: 1, PageSize: 50}.listSQL()
	if strings.Contains(query, "WHERE") || !strings.Contains(query, "LIMIT $1 OFFSET $2") || len(args) != 2 {
		t.Fatalf("unfiltered query must not have a where clause:\n%s", query)
	}
}

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/admin"))
	return r
}

func TestListHandler(t *testing.T) {
	user := uuid.New()
	store := &fakeStore{
		rows:  []EntryRow{{Entry: Entry{ID: uuid.New(), UserID: &user, Action: ActionLogin}, UserName: "Jana Nová"}},
		total: 101,
	}
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/activity?action=login&pageSize=500&userId="+user.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	f := store.filters[0]
	if f.Action != ActionLogin || f.PageSize != maxPageSize || f.Page != 1 || f.UserID == nil || *f.UserID != user {
		t.Fatalf("unexpected filter %+v", f)
	}
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 101 || resp.TotalPages != 1 || len(resp.Items) != 1 || resp.Items[0].UserName != "Jana Nová" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestListHandlerRejectsBadInput(t *testing.T) {
	r := newTestRouter(&fakeStore{})
	for _, path := range []string{
		"/admin/activity?action=DELETE",
		"/admin/activity?userId=nope",
		"/admin/activity?page=-1",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
}
