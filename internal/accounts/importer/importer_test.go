package importer

import (
	"context"
	"strings"
	"testing"

	"leadbridge/internal/accounts/domain"
	"leadbridge/internal/accounts/repository"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	users    map[string]domain.User
	profiles map[uuid.UUID]domain.ReferrerProfile
	writes   int
}

func newFakeStore(existing ...domain.User) *fakeStore {
	s := &fakeStore{users: make(map[string]domain.User), profiles: make(map[uuid.UUID]domain.ReferrerProfile)}
	for _, u := range existing {
		s.users[u.Email] = u
	}
	return s
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.writes++
	u.ID = uuid.New()
	s.users[u.Email] = u
	return u, nil
}

func (s *fakeStore) UpdateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.writes++
	if u.PasswordHash == "" {
		u.PasswordHash = s.users[u.Email].PasswordHash
	}
	s.users[u.Email] = u
	return u, nil
}

func (s *fakeStore) ListUsers(_ context.Context, f repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range s.users {
		for _, r := range f.Roles {
			if u.Role == r {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetReferrerProfile(_ context.Context, userID uuid.UUID) (domain.ReferrerProfile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return domain.ReferrerProfile{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) UpsertReferrerProfile(_ context.Context, p domain.ReferrerProfile) (domain.ReferrerProfile, error) {
	s.writes++
	s.profiles[p.UserID] = p
	return p, nil
}

func row(line int, values ...string) Row {
	r := Row{Line: line, Values: make(map[string]string)}
	for i, column := range requiredColumns {
		if i < len(values) {
			r.Values[column] = values[i]
		}
	}
	return r
}

func sampleRows() []Row {
	return []Row{
		row(2, "Jana", "Nová", "777 123 456", "", "Makléř", "Petr Malý", "50", "30", "20"),
		row(3, "Petr", "Malý", "", "petr@example.cz", "Manažer", "", "", "", ""),
		row(4, "", "Bezjména", "", "", "makler"),
		row(5, "Eva", "Divná", "", "", "ředitel"),
		row(6, "Karel", "Kancl", "", "", "kancelář", "Neznámý Člověk", "x", "1", "1"),
	}
}

func newImporter(store Store, dryRun bool) *Importer {
	return New(store, Options{
		UsernameDomain:  "example.cz",
		DefaultPassword: "Heslo12345",
		DryRun:          dryRun,
	}, logger.New("development"))
}

func TestRunCreatesUsersAndLinksManagers(t *testing.T) {
	store := newFakeStore()
	summary, err := newImporter(store, false).Run(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Read != 3 || summary.Created != 3 || summary.Updated != 0 || summary.Skipped != 2 || summary.Errors != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	jana, ok := store.users["jananova@example.cz"]
	if !ok {
		t.Fatalf("expected generated login, have %v", store.users)
	}
	if jana.Role != domain.RoleReferrer || jana.Rates.TotalPerMillion != domain.DefaultCommissionTotalPerMillion || jana.PasswordHash == "" {
		t.Fatalf("unexpected user %+v", jana)
	}
	if jana.Rates.ReferrerPct.String() != "50" {
		t.Fatalf("unexpected rates %+v", jana.Rates)
	}

	petr := store.users["petr@example.cz"]
	if p := store.profiles[jana.ID]; p.ManagerID == nil || *p.ManagerID != petr.ID {
		t.Fatalf("expected Jana to be linked to Petr, got %+v", p)
	}
	karel := store.users["karelkancl@example.cz"]
	if karel.Rates.ReferrerPct.Sign() != 0 || karel.Rates.ManagerPct.Sign() != 0 {
		t.Fatalf("bad percentages must reset every share, got %+v", karel.Rates)
	}
	if p, ok := store.profiles[karel.ID]; !ok || p.ManagerID != nil {
		t.Fatalf("unknown manager leaves the profile unlinked, got %+v", p)
	}

	joined := strings.Join(summary.Warnings, "\n")
	for _, want := range []string{"řádek 4", "neznámá role \"ředitel\"", "neplatné hodnoty provizí", "\"Neznámý Člověk\" nenalezen"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected warning %q in:\n%s", want, joined)
		}
	}
}

func TestRunUpdatesWithoutTouchingPasswordOrTotal(t *testing.T) {
	existing := domain.User{
		ID:           uuid.New(),
		Email:        "petr@example.cz",
		PasswordHash: "old-hash",
		Role:         domain.RoleReferrer,
		IsActive:     true,
		Rates:        domain.CommissionRates{TotalPerMillion: 9000},
	}
	store := newFakeStore(existing)
	store.profiles[existing.ID] = domain.ReferrerProfile{UserID: existing.ID, AdvisorIDs: []uuid.UUID{uuid.New()}}

	summary, err := newImporter(store, false).Run(context.Background(), []Row{
		row(2, "Petr", "Malý", "", "Petr@Example.cz", "Manažer"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Updated != 1 || summary.Created != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	u := store.users["petr@example.cz"]
	if u.PasswordHash != "old-hash" || u.Rates.TotalPerMillion != 9000 || u.Role != domain.RoleReferrerManager {
		t.Fatalf("unexpected update %+v", u)
	}
	if len(store.profiles[existing.ID].AdvisorIDs) != 1 {
		t.Fatalf("the advisor pool must survive a re-import")
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	store := newFakeStore()
	im := New(store, Options{UsernameDomain: "example.cz", DryRun: true}, logger.New("development"))
	summary, err := im.Run(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.writes != 0 || len(store.users) != 0 {
		t.Fatalf("dry run wrote %d times", store.writes)
	}
	if summary.Created != 3 || summary.Profiles != 3 {
		t.Fatalf("dry run must still report planned work, got %+v", summary)
	}
	if strings.Contains(strings.Join(summary.Warnings, "\n"), "Petr Malý") {
		t.Fatalf("managers from the same file must resolve in a dry run: %v", summary.Warnings)
	}
}

func TestRunRequiresDefaultPassword(t *testing.T) {
	im := New(newFakeStore(), Options{UsernameDomain: "example.cz", DefaultPassword: "short"}, logger.New("development"))
	if _, err := im.Run(context.Background(), sampleRows()); err == nil {
		t.Fatalf("expected an error for a short default password")
	}
}

func TestMatchManagerAmbiguous(t *testing.T) {
	candidates := []candidate{
		{id: uuid.New(), first: "petr", last: "maly"},
		{id: uuid.New(), first: "petr", last: "maly"},
	}
	if _, err := matchManager(candidates, "Petr Malý"); err == nil || !strings.Contains(err.Error(), "více manažerů") {
		t.Fatalf("expected ambiguity, got %v", err)
	}
	id, err := matchManager(candidates[:1], "PETR MALÝ")
	if err != nil || *id != candidates[0].id {
		t.Fatalf("expected a case and diacritic insensitive match, got %v", err)
	}
}
