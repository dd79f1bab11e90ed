package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/stats/repository"
	"leadbridge/platform/apperr"

	"github.com/google/uuid"
)

type key struct {
	scope   repository.Scope
	subject uuid.UUID
}

type fakeRepo struct {
	leads   map[key]repository.LeadCounts
	deals   map[key]repository.DealCounts
	teams   map[key]int
	failOn  repository.Scope
	ranges  []repository.DateRange
	advisor []repository.AdvisorRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:  make(map[key]repository.LeadCounts),
		deals:  make(map[key]repository.DealCounts),
		teams:  make(map[key]int),
		failOn: -1,
	}
}

var errBoom = errors.New("boom")

func (f *fakeRepo) LeadCounts(_ context.Context, s repository.Scope, subject uuid.UUID, dr repository.DateRange) (repository.LeadCounts, error) {
	if s == f.failOn {
		return repository.LeadCounts{}, errBoom
	}
	return f.leads[key{s, subject}], nil
}

func (f *fakeRepo) DealCounts(_ context.Context, s repository.Scope, subject uuid.UUID, _ repository.DateRange) (repository.DealCounts, error) {
	return f.deals[key{s, subject}], nil
}

func (f *fakeRepo) TeamSize(_ context.Context, s repository.Scope, subject uuid.UUID) (int, error) {
	return f.teams[key{s, subject}], nil
}

func (f *fakeRepo) AdvisorsBulk(_ context.Context, dr repository.DateRange) ([]repository.AdvisorRow, error) {
	f.ranges = append(f.ranges, dr)
	return f.advisor, nil
}

func (f *fakeRepo) ReferrersBulk(context.Context, repository.DateRange) ([]repository.ReferrerRow, error) {
	return nil, nil
}

type fakeUsers struct {
	users       map[uuid.UUID]accounts.User
	hierarchies map[uuid.UUID]accounts.Hierarchy
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (accounts.User, error) {
	u, ok := f.users[id]
	if !ok {
		return accounts.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeUsers) Hierarchy(_ context.Context, id uuid.UUID) (accounts.Hierarchy, error) {
	h, ok := f.hierarchies[id]
	if !ok {
		return accounts.Hierarchy{}, apperr.NotFound("referrer not found")
	}
	return h, nil
}

type world struct {
	svc      *Service
	repo     *fakeRepo
	admin    accounts.User
	advisor  accounts.User
	referrer accounts.User
	manager  accounts.User
	owner    accounts.User
}

func newWorld() world {
	w := world{
		repo:     newFakeRepo(),
		admin:    accounts.User{ID: uuid.New(), Role: accounts.RoleAdmin},
		advisor:  accounts.User{ID: uuid.New(), Role: accounts.RoleAdvisor, LastName: "Adámek"},
		referrer: accounts.User{ID: uuid.New(), Role: accounts.RoleReferrer, LastName: "Novák"},
		manager:  accounts.User{ID: uuid.New(), Role: accounts.RoleReferrerManager, LastName: "Malá"},
		owner:    accounts.User{ID: uuid.New(), Role: accounts.RoleOffice, LastName: "Veselý"},
	}
	managerRef := w.manager.Ref()
	ownerRef := w.owner.Ref()
	users := &fakeUsers{
		users: map[uuid.UUID]accounts.User{
			w.admin.ID: w.admin, w.advisor.ID: w.advisor, w.referrer.ID: w.referrer,
			w.manager.ID: w.manager, w.owner.ID: w.owner,
		},
		hierarchies: map[uuid.UUID]accounts.Hierarchy{
			w.referrer.ID: {
				Referrer: w.referrer.Ref(),
				Manager:  &managerRef,
				Office:   &accounts.OfficeRef{ID: uuid.New(), Name: "Praha", Owner: &ownerRef},
			},
		},
	}
	w.svc = New(w.repo, users)
	return w
}

func TestAdvisorDetailedSeparatesPersonalDeals(t *testing.T) {
	w := newWorld()
	id := w.advisor.ID
	w.repo.leads[key{repository.ScopeAdvisor, id}] = repository.LeadCounts{Leads: 10, MeetingsPlanned: 6, MeetingsDone: 4}
	w.repo.deals[key{repository.ScopeAdvisor, id}] = repository.DealCounts{Created: 3, Completed: 1}
	w.repo.deals[key{repository.ScopeAdvisorPersonal, id}] = repository.DealCounts{Created: 2, Completed: 2}

	st, err := w.svc.AdvisorDetailed(context.Background(), id, repository.DateRange{})
	if err != nil {
		t.Fatalf("AdvisorDetailed: %v", err)
	}
	want := AdvisorStats{
		Summary:                Summary{Leads: 10, MeetingsPlanned: 6, MeetingsDone: 4, DealsCreated: 3, DealsCompleted: 1},
		DealsCreatedPersonal:   2,
		DealsCompletedPersonal: 2,
	}
	if st != want {
		t.Fatalf("expected %+v, got %+v", want, st)
	}
}

func TestSubAggregateFailureFailsTheDashboard(t *testing.T) {
	w := newWorld()
	w.repo.failOn = repository.ScopeAdvisor

	_, err := w.svc.Me(context.Background(), access.ViewerFromUser(w.advisor), DateFilter{Preset: PresetAll})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the repository error, got %v", err)
	}
}

func TestManagerSplit(t *testing.T) {
	w := newWorld()
	id := w.manager.ID
	w.repo.leads[key{repository.ScopeReferrer, id}] = repository.LeadCounts{Leads: 1}
	w.repo.leads[key{repository.ScopeManagerTeam, id}] = repository.LeadCounts{Leads: 7}
	w.repo.deals[key{repository.ScopeManagerTeam, id}] = repository.DealCounts{Created: 2, Completed: 1}

	split, err := w.svc.ManagerSplit(context.Background(), w.manager, repository.DateRange{})
	if err != nil {
		t.Fatalf("ManagerSplit: %v", err)
	}
	if split.PersonalReferrer.Leads != 1 || split.Team != nil {
		t.Fatalf("a manager without referrers has no team: %+v", split)
	}

	w.repo.teams[key{repository.ScopeManagerTeam, id}] = 3
	split, err = w.svc.ManagerSplit(context.Background(), w.manager, repository.DateRange{})
	if err != nil {
		t.Fatalf("ManagerSplit: %v", err)
	}
	if split.Team == nil || split.Team.Members != 3 || split.Team.Leads != 7 || split.Team.DealsCompleted != 1 {
		t.Fatalf("unexpected team %+v", split.Team)
	}
}

func TestOfficeOwnerUsesOfficeTeam(t *testing.T) {
	w := newWorld()
	w.repo.teams[key{repository.ScopeOfficeTeam, w.owner.ID}] = 5
	w.repo.leads[key{repository.ScopeOfficeTeam, w.owner.ID}] = repository.LeadCounts{Leads: 12}

	d, err := w.svc.Me(context.Background(), access.ViewerFromUser(w.owner), DateFilter{Preset: PresetAll})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if d.Split == nil || d.Split.Team == nil || d.Split.Team.Leads != 12 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.Advisor != nil || d.Referrer != nil || d.Overview != nil {
		t.Fatalf("only the split view must be set")
	}
}

func TestDashboardVisibility(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	f := DateFilter{Preset: PresetAll}

	cases := []struct {
		name   string
		viewer accounts.User
		call   func(access.Viewer) (Dashboard, error)
		want   apperr.Kind
	}{
		{"admin sees advisor", w.admin, func(v access.Viewer) (Dashboard, error) { return w.svc.ForAdvisor(ctx, v, w.advisor.ID, f) }, apperr.KindUnknown},
		{"manager sees own referrer", w.manager, func(v access.Viewer) (Dashboard, error) { return w.svc.ForReferrer(ctx, v, w.referrer.ID, f) }, apperr.KindUnknown},
		{"office owner sees referrer", w.owner, func(v access.Viewer) (Dashboard, error) { return w.svc.ForReferrer(ctx, v, w.referrer.ID, f) }, apperr.KindUnknown},
		{"advisor cannot see referrer", w.advisor, func(v access.Viewer) (Dashboard, error) { return w.svc.ForReferrer(ctx, v, w.referrer.ID, f) }, apperr.KindNotFound},
		{"referrer cannot see advisor", w.referrer, func(v access.Viewer) (Dashboard, error) { return w.svc.ForAdvisor(ctx, v, w.advisor.ID, f) }, apperr.KindNotFound},
		{"advisor is not a referrer", w.admin, func(v access.Viewer) (Dashboard, error) { return w.svc.ForReferrer(ctx, v, w.advisor.ID, f) }, apperr.KindNotFound},
		{"manager without profile", w.referrer, func(v access.Viewer) (Dashboard, error) { return w.svc.ForReferrer(ctx, v, w.manager.ID, f) }, apperr.KindNotFound},
		{"unknown user", w.admin, func(v access.Viewer) (Dashboard, error) { return w.svc.ForAdvisor(ctx, v, uuid.New(), f) }, apperr.KindNotFound},
	}
	for _, tc := range cases {
		_, err := tc.call(access.ViewerFromUser(tc.viewer))
		if tc.want == apperr.KindUnknown && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != apperr.KindUnknown && !apperr.Is(err, tc.want) {
			t.Fatalf("%s: expected kind %d, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAdminDashboardIsOverview(t *testing.T) {
	w := newWorld()
	w.repo.leads[key{repository.ScopeAll, uuid.Nil}] = repository.LeadCounts{Leads: 40}

	d, err := w.svc.Me(context.Background(), access.ViewerFromUser(w.admin), DateFilter{Preset: PresetAll})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if d.Overview == nil || d.Overview.Leads != 40 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestBulkIsAdminOnly(t *testing.T) {
	w := newWorld()
	w.repo.advisor = []repository.AdvisorRow{{
		User:     w.advisor.Ref(),
		Leads:    repository.LeadCounts{Leads: 4},
		Personal: repository.DealCounts{Created: 1},
	}}
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := DateFilter{Preset: PresetYear, Range: repository.DateRange{From: &from}}

	if _, err := w.svc.AdvisorsBulk(context.Background(), access.ViewerFromUser(w.manager), f); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	lines, err := w.svc.AdvisorsBulk(context.Background(), access.ViewerFromUser(w.admin), f)
	if err != nil {
		t.Fatalf("AdvisorsBulk: %v", err)
	}
	if len(lines) != 1 || lines[0].Leads != 4 || lines[0].DealsCreatedPersonal != 1 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if len(w.repo.ranges) != 1 || !w.repo.ranges[0].From.Equal(from) {
		t.Fatalf("the filter range must reach the repository")
	}
}
