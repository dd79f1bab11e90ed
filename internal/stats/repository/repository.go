package repository

import (
	"context"
	"fmt"

	accounts "leadbridge/internal/accounts/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LeadCounts counts leads, not meetings: a lead with a rescheduled meeting counts once.
type LeadCounts struct {
	Leads           int
	MeetingsPlanned int
	MeetingsDone    int
}

// DealCounts counts distinct leads having at least one qualifying deal.
type DealCounts struct {
	Created   int
	Completed int
}

// AdvisorRow is one line of the advisors rollup.
type AdvisorRow struct {
	User     accounts.UserRef
	Leads    LeadCounts
	Deals    DealCounts
	Personal DealCounts
}

// ReferrerRow is one line of the referrers rollup.
type ReferrerRow struct {
	User  accounts.UserRef
	Leads LeadCounts
	Deals DealCounts
}

func subjectArg(s Scope, subject uuid.UUID, a *args) string {
	if !s.hasSubject() {
		return ""
	}
	return a.add(subject)
}

func (r *Repository) LeadCounts(ctx context.Context, s Scope, subject uuid.UUID, dr DateRange) (LeadCounts, error) {
	a := &args{}
	query := leadCountSQL(s, subjectArg(s, subject, a), dr, a)

	var c LeadCounts
	if err := r.pool.QueryRow(ctx, query, a.values...).Scan(&c.Leads, &c.MeetingsPlanned, &c.MeetingsDone); err != nil {
		return LeadCounts{}, fmt.Errorf("%s lead counts: %w", s, err)
	}
	return c, nil
}

func (r *Repository) DealCounts(ctx context.Context, s Scope, subject uuid.UUID, dr DateRange) (DealCounts, error) {
	a := &args{}
	query := dealCountSQL(s, subjectArg(s, subject, a), dr, a)

	var c DealCounts
	if err := r.pool.QueryRow(ctx, query, a.values...).Scan(&c.Created, &c.Completed); err != nil {
		return DealCounts{}, fmt.Errorf("%s deal counts: %w", s, err)
	}
	return c, nil
}

// TeamSize counts the referrers of a manager or office team, the subject excluded.
func (r *Repository) TeamSize(ctx context.Context, s Scope, subject uuid.UUID) (int, error) {
	members := teamMembers(s, "$1")
	if members == "" {
		return 0, fmt.Errorf("%s has no team", s)
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM (`+members+`) t WHERE t.user_id <> $1`, subject).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s team size: %w", s, err)
	}
	return n, nil
}

func advisorsBulkSQL(dr DateRange) (string, []any) {
	a := &args{}
	leads := leadCountSQL(ScopeAdvisor, "u.id", dr, a)
	deals := dealCountSQL(ScopeAdvisor, "u.id", dr, a)
	personal := dealCountSQL(ScopeAdvisorPersonal, "u.id", dr, a)

	query := `SELECT u.id, u.role, u.first_name, u.last_name, u.email,
		lc.leads, lc.meetings_planned, lc.meetings_done,
		dc.deals_created, dc.deals_completed,
		pc.deals_created, pc.deals_completed
	FROM users u
	CROSS JOIN LATERAL (` + leads + `) lc
	CROSS JOIN LATERAL (` + deals + `) dc
	CROSS JOIN LATERAL (` + personal + `) pc
	WHERE u.role = 'ADVISOR'
	ORDER BY u.last_name, u.first_name`
	return query, a.values
}

func referrersBulkSQL(dr DateRange) (string, []any) {
	a := &args{}
	leads := leadCountSQL(ScopeReferrer, "u.id", dr, a)
	deals := dealCountSQL(ScopeReferrer, "u.id", dr, a)

	query := `SELECT u.id, u.role, u.first_name, u.last_name, u.email,
		lc.leads, lc.meetings_planned, lc.meetings_done,
		dc.deals_created, dc.deals_completed
	FROM users u
	CROSS JOIN LATERAL (` + leads + `) lc
	CROSS JOIN LATERAL (` + deals + `) dc
	WHERE u.role = 'REFERRER'
	ORDER BY u.last_name, u.first_name`
	return query, a.values
}

func scanUserRef(ref *accounts.UserRef) []any {
	return []any{&ref.ID, &ref.Role, &ref.FirstName, &ref.LastName, &ref.Email}
}

// AdvisorsBulk computes the advisor numbers for every advisor in one query.
func (r *Repository) AdvisorsBulk(ctx context.Context, dr DateRange) ([]AdvisorRow, error) {
	query, values := advisorsBulkSQL(dr)
	rows, err := r.pool.Query(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("advisors rollup: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdvisorRow, error) {
		var out AdvisorRow
		targets := append(scanUserRef(&out.User),
			&out.Leads.Leads, &out.Leads.MeetingsPlanned, &out.Leads.MeetingsDone,
			&out.Deals.Created, &out.Deals.Completed,
			&out.Personal.Created, &out.Personal.Completed,
		)
		err := row.Scan(targets...)
		return out, err
	})
}

// ReferrersBulk computes the referrer numbers for every REFERRER in one query.
func (r *Repository) ReferrersBulk(ctx context.Context, dr DateRange) ([]ReferrerRow, error) {
	query, values := referrersBulkSQL(dr)
	rows, err := r.pool.Query(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("referrers rollup: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReferrerRow, error) {
		var out ReferrerRow
		targets := append(scanUserRef(&out.User),
			&out.Leads.Leads, &out.Leads.MeetingsPlanned, &out.Leads.MeetingsDone,
			&out.Deals.Created, &out.Deals.Completed,
		)
		err := row.Scan(targets...)
		return out, err
	})
}
