// Package service computes the per-role lead and deal statistics.
package service

import (
	"context"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/stats/repository"
	"leadbridge/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Repository interface {
	LeadCounts(ctx context.Context, s repository.Scope, subject uuid.UUID, dr repository.DateRange) (repository.LeadCounts, error)
	DealCounts(ctx context.Context, s repository.Scope, subject uuid.UUID, dr repository.DateRange) (repository.DealCounts, error)
	TeamSize(ctx context.Context, s repository.Scope, subject uuid.UUID) (int, error)
	AdvisorsBulk(ctx context.Context, dr repository.DateRange) ([]repository.AdvisorRow, error)
	ReferrersBulk(ctx context.Context, dr repository.DateRange) ([]repository.ReferrerRow, error)
}

type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (accounts.User, error)
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error)
}

// Summary is the common funnel: leads, meetings, then leads that reached a deal.
type Summary struct {
	Leads           int
	MeetingsPlanned int
	MeetingsDone    int
	DealsCreated    int
	DealsCompleted  int
}

func newSummary(l repository.LeadCounts, d repository.DealCounts) Summary {
	return Summary{
		Leads:           l.Leads,
		MeetingsPlanned: l.MeetingsPlanned,
		MeetingsDone:    l.MeetingsDone,
		DealsCreated:    d.Created,
		DealsCompleted:  d.Completed,
	}
}

// AdvisorStats separates the advisor's own business from referred business.
type AdvisorStats struct {
	Summary
	DealsCreatedPersonal   int
	DealsCompletedPersonal int
}

func newAdvisorStats(l repository.LeadCounts, d, personal repository.DealCounts) AdvisorStats {
	return AdvisorStats{
		Summary:                newSummary(l, d),
		DealsCreatedPersonal:   personal.Created,
		DealsCompletedPersonal: personal.Completed,
	}
}

type TeamStats struct {
	Members int
	Summary
}

// Split is the two-part view of a manager or office owner. Team is nil when
// nobody reports to them.
type Split struct {
	PersonalReferrer Summary
	Team             *TeamStats
}

// Dashboard holds exactly one of the role views.
type Dashboard struct {
	User     accounts.UserRef
	Filter   DateFilter
	Advisor  *AdvisorStats
	Referrer *Summary
	Split    *Split
	Overview *Summary
}

type AdvisorLine struct {
	User accounts.UserRef
	AdvisorStats
}

type ReferrerLine struct {
	User accounts.UserRef
	Summary
}

type Service struct {
	repo  Repository
	users Users
}

func New(repo Repository, users Users) *Service {
	return &Service{repo: repo, users: users}
}

func (s *Service) summary(ctx context.Context, scope repository.Scope, subject uuid.UUID, dr repository.DateRange) (Summary, error) {
	var (
		leads repository.LeadCounts
		deals repository.DealCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.repo.LeadCounts(gctx, scope, subject, dr)
		return err
	})
	g.Go(func() (err error) {
		deals, err = s.repo.DealCounts(gctx, scope, subject, dr)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return newSummary(leads, deals), nil
}

func (s *Service) AdvisorDetailed(ctx context.Context, advisorID uuid.UUID, dr repository.DateRange) (AdvisorStats, error) {
	var (
		leads           repository.LeadCounts
		deals, personal repository.DealCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.repo.LeadCounts(gctx, repository.ScopeAdvisor, advisorID, dr)
		return err
	})
	g.Go(func() (err error) {
		deals, err = s.repo.DealCounts(gctx, repository.ScopeAdvisor, advisorID, dr)
		return err
	})
	g.Go(func() (err error) {
		personal, err = s.repo.DealCounts(gctx, repository.ScopeAdvisorPersonal, advisorID, dr)
		return err
	})
	if err := g.Wait(); err != nil {
		return AdvisorStats{}, err
	}
	return newAdvisorStats(leads, deals, personal), nil
}

// ReferrerDetailed never counts personal contacts or personal deals.
func (s *Service) ReferrerDetailed(ctx context.Context, referrerID uuid.UUID, dr repository.DateRange) (Summary, error) {
	return s.summary(ctx, repository.ScopeReferrer, referrerID, dr)
}

func (s *Service) team(ctx context.Context, scope repository.Scope, subject uuid.UUID, dr repository.DateRange) (*TeamStats, error) {
	members, err := s.repo.TeamSize(ctx, scope, subject)
	if err != nil {
		return nil, err
	}
	if members == 0 {
		return nil, nil
	}
	sum, err := s.summary(ctx, scope, subject, dr)
	if err != nil {
		return nil, err
	}
	return &TeamStats{Members: members, Summary: sum}, nil
}

// TeamStats covers the referrers managed by managerID; nil without a team.
func (s *Service) TeamStats(ctx context.Context, managerID uuid.UUID, dr repository.DateRange) (*TeamStats, error) {
	return s.team(ctx, repository.ScopeManagerTeam, managerID, dr)
}

// OfficeStats covers every referrer whose manager sits in an office owned by ownerID.
func (s *Service) OfficeStats(ctx context.Context, ownerID uuid.UUID, dr repository.DateRange) (*TeamStats, error) {
	return s.team(ctx, repository.ScopeOfficeTeam, ownerID, dr)
}

func (s *Service) ManagerSplit(ctx context.Context, u accounts.User, dr repository.DateRange) (Split, error) {
	scope := repository.ScopeManagerTeam
	if u.Role == accounts.RoleOffice {
		scope = repository.ScopeOfficeTeam
	}

	var split Split
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		split.PersonalReferrer, err = s.ReferrerDetailed(gctx, u.ID, dr)
		return err
	})
	g.Go(func() (err error) {
		split.Team, err = s.team(gctx, scope, u.ID, dr)
		return err
	})
	if err := g.Wait(); err != nil {
		return Split{}, err
	}
	return split, nil
}

func (s *Service) dashboard(ctx context.Context, u accounts.User, f DateFilter) (Dashboard, error) {
	d := Dashboard{User: u.Ref(), Filter: f}
	switch {
	case u.IsAdmin():
		sum, err := s.summary(ctx, repository.ScopeAll, uuid.Nil, f.Range)
		if err != nil {
			return Dashboard{}, err
		}
		d.Overview = &sum
	case u.Role == accounts.RoleAdvisor:
		st, err := s.AdvisorDetailed(ctx, u.ID, f.Range)
		if err != nil {
			return Dashboard{}, err
		}
		d.Advisor = &st
	case u.Role == accounts.RoleReferrer:
		sum, err := s.ReferrerDetailed(ctx, u.ID, f.Range)
		if err != nil {
			return Dashboard{}, err
		}
		d.Referrer = &sum
	case u.Role == accounts.RoleReferrerManager || u.Role == accounts.RoleOffice:
		split, err := s.ManagerSplit(ctx, u, f.Range)
		if err != nil {
			return Dashboard{}, err
		}
		d.Split = &split
	}
	return d, nil
}

// ForUser returns the dashboard of userID as seen by v. Users outside the
// viewer's reach are reported as not found.
func (s *Service) ForUser(ctx context.Context, v access.Viewer, userID uuid.UUID, f DateFilter) (Dashboard, error) {
	target, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	if err := s.authorize(ctx, v, target); err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, target, f)
}

func (s *Service) authorize(ctx context.Context, v access.Viewer, target accounts.User) error {
	var h *accounts.Hierarchy
	if !v.IsAdmin() && v.ID != target.ID && target.Role.IsStructure() {
		hier, err := s.users.Hierarchy(ctx, target.ID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if err == nil {
			h = &hier
		}
	}
	if !access.CanViewUserStats(v, target, h) {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (s *Service) Me(ctx context.Context, v access.Viewer, f DateFilter) (Dashboard, error) {
	return s.ForUser(ctx, v, v.ID, f)
}

// ForAdvisor is ForUser restricted to advisors.
func (s *Service) ForAdvisor(ctx context.Context, v access.Viewer, id uuid.UUID, f DateFilter) (Dashboard, error) {
	return s.forRole(ctx, v, id, f, func(r accounts.Role) bool { return r == accounts.RoleAdvisor })
}

// ForReferrer is ForUser restricted to REFERRER, REFERRER_MANAGER and OFFICE users.
func (s *Service) ForReferrer(ctx context.Context, v access.Viewer, id uuid.UUID, f DateFilter) (Dashboard, error) {
	return s.forRole(ctx, v, id, f, accounts.Role.IsStructure)
}

func (s *Service) forRole(ctx context.Context, v access.Viewer, id uuid.UUID, f DateFilter, ok func(accounts.Role) bool) (Dashboard, error) {
	target, err := s.users.GetUser(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	if !ok(target.Role) {
		return Dashboard{}, apperr.NotFound("user not found")
	}
	if err := s.authorize(ctx, v, target); err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, target, f)
}

func (s *Service) AdvisorsBulk(ctx context.Context, v access.Viewer, f DateFilter) ([]AdvisorLine, error) {
	if !access.CanViewStatsLists(v) {
		return nil, apperr.Forbidden("statistics lists are available to administrators")
	}
	rows, err := s.repo.AdvisorsBulk(ctx, f.Range)
	if err != nil {
		return nil, err
	}
	out := make([]AdvisorLine, 0, len(rows))
	for _, r := range rows {
		out = append(out, AdvisorLine{User: r.User, AdvisorStats: newAdvisorStats(r.Leads, r.Deals, r.Personal)})
	}
	return out, nil
}

func (s *Service) ReferrersBulk(ctx context.Context, v access.Viewer, f DateFilter) ([]ReferrerLine, error) {
	if !access.CanViewStatsLists(v) {
		return nil, apperr.Forbidden("statistics lists are available to administrators")
	}
	rows, err := s.repo.ReferrersBulk(ctx, f.Range)
	if err != nil {
		return nil, err
	}
	out := make([]ReferrerLine, 0, len(rows))
	for _, r := range rows {
		out = append(out, ReferrerLine{User: r.User, Summary: newSummary(r.Leads, r.Deals)})
	}
	return out, nil
}
