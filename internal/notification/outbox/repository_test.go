package outbox

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestInsertParamsValidate(t *testing.T) {
	ok := InsertParams{Kind: "lead_created", RecipientEmail: "a@b.cz", Subject: "Nový lead: Petr"}
	if err := ok.validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	cases := map[string]InsertParams{
		"kind":      {RecipientEmail: "a@b.cz", Subject: "s"},
		"recipient": {Kind: "k", RecipientEmail: "  ", Subject: "s"},
		"subject":   {Kind: "k", RecipientEmail: "a@b.cz"},
	}
	for field, p := range cases {
		err := p.validate()
		if err == nil || !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s error, got %v", field, err)
		}
	}
}

func TestClaimPendingOnlyTakesDueRows(t *testing.T) {
	for _, fragment := range []string{"status = 'pending' AND run_at <= now()", "FOR UPDATE SKIP LOCKED", "SET status = 'enqueued'"} {
		if !strings.Contains(claimPendingQuery, fragment) {
			t.Fatalf("claim query lacks %q", fragment)
		}
	}
}

func TestNilRepositoryIsNotConfigured(t *testing.T) {
	var r *Repository
	if _, err := r.Insert(context.Background(), InsertParams{}); err == nil {
		t.Fatalf("expected error from an unconfigured repository")
	}
	if err := r.MarkSucceeded(context.Background(), uuid.Nil); err == nil {
		t.Fatalf("expected error from an unconfigured repository")
	}
}
