package notes

import (
	"context"
	"strings"
	"testing"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/events"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository/repotest"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

func setup() (*Service, *repotest.Fake, domain.Lead) {
	repo := repotest.New()
	bus := events.NewInMemoryBus(logger.New("development"))
	lead := repo.AddLead(domain.Lead{ReferrerID: uuid.New()})
	return New(repo, access.New(repo), bus), repo, lead
}

func TestAddValidatesBody(t *testing.T) {
	svc, _, lead := setup()
	v := access.Viewer{ID: lead.ReferrerID, Role: accounts.RoleReferrer}

	for _, body := range []string{"", "   ", strings.Repeat("ř", maxBodyLength+1)} {
		if _, err := svc.Add(context.Background(), v, lead.ID, body, false); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for body of %d runes, got %v", len(body), err)
		}
	}
	if _, err := svc.Add(context.Background(), v, lead.ID, strings.Repeat("ř", maxBodyLength), false); err != nil {
		t.Fatalf("limit counts characters, not bytes: %v", err)
	}
}

func TestPrivateNotesAndTheirHistory(t *testing.T) {
	svc, repo, lead := setup()
	author := access.Viewer{ID: uuid.New(), Role: accounts.RoleAdvisor}
	reader := access.Viewer{ID: lead.ReferrerID, Role: accounts.RoleReferrer}
	admin := access.Viewer{ID: uuid.New(), Role: accounts.RoleAdmin}
	ctx := context.Background()

	if _, err := svc.Add(ctx, author, lead.ID, "interní poznámka", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(ctx, reader, lead.ID, "klient volal", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.HistoryFor(lead.ID)) != 2 {
		t.Fatalf("each note writes a NOTE_ADDED entry")
	}

	cases := []struct {
		name    string
		viewer  access.Viewer
		notes   int
		entries int
	}{
		{"author", author, 2, 2},
		{"other reader", reader, 1, 1},
		{"admin", admin, 2, 2},
	}
	for _, tc := range cases {
		notes, err := svc.List(ctx, tc.viewer, lead.ID)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		entries, err := svc.History(ctx, tc.viewer, lead.ID)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if len(notes) != tc.notes || len(entries) != tc.entries {
			t.Fatalf("%s: expected %d notes and %d entries, got %d/%d", tc.name, tc.notes, tc.entries, len(notes), len(entries))
		}
	}
}

func TestNotesRequireVisibleLead(t *testing.T) {
	svc, repo, lead := setup()
	repo.OutOfScope[lead.ID] = true
	v := access.Viewer{ID: uuid.New(), Role: accounts.RoleAdvisor}

	if _, err := svc.Add(context.Background(), v, lead.ID, "ahoj", false); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.History(context.Background(), v, lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
