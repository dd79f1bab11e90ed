package repository

import (
	"context"
	"fmt"
	"strings"

	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

// List queries share these aliases: l (leads), d (deals), ru (referrer),
// au (advisor), rp (referrer profile), mu (manager), mp (manager profile),
// o (office). Filter and scope predicates are written against them.
const hierarchyJoins = `
	JOIN users ru ON ru.id = l.referrer_id
	LEFT JOIN users au ON au.id = l.advisor_id
	LEFT JOIN referrer_profiles rp ON rp.user_id = l.referrer_id
	LEFT JOIN users mu ON mu.id = rp.manager_id
	LEFT JOIN manager_profiles mp ON mp.user_id = rp.manager_id
	LEFT JOIN offices o ON o.id = mp.office_id`

const leadListFrom = `FROM leads l` + hierarchyJoins + `
	LEFT JOIN LATERAL (
		SELECT COUNT(*) AS deal_count,
			COALESCE(SUM(x.commission_total), 0) AS commission_total,
			MAX(CASE x.commission_status WHEN 'PAID' THEN 3 WHEN 'READY' THEN 2 WHEN 'PENDING' THEN 1 END) AS comm_rank
		FROM deals x WHERE x.lead_id = l.id
	) dd ON TRUE`

const dealListFrom = `FROM deals d JOIN leads l ON l.id = d.lead_id` + hierarchyJoins

const (
	referrerName = `TRIM(ru.first_name || ' ' || ru.last_name)`
	advisorName  = `TRIM(au.first_name || ' ' || au.last_name)`
	managerName  = `TRIM(mu.first_name || ' ' || mu.last_name)`
)

// ListQuery is a filtered, sorted page. Where clauses are ANDed and use
// placeholders $1..$len(Args).
type ListQuery struct {
	Where   []string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

func (q ListQuery) whereSQL() string {
	if len(q.Where) == 0 {
		return "TRUE"
	}
	return strings.Join(q.Where, " AND ")
}

func (q ListQuery) pageSQL() (string, []any) {
	args := append(append([]any{}, q.Args...), q.Limit, q.Offset)
	n := len(q.Args)
	order := q.OrderBy
	if order == "" {
		order = "l.created_at DESC"
	}
	return fmt.Sprintf("ORDER BY %s LIMIT $%d OFFSET $%d", order, n+1, n+2), args
}

// Ref is an optional related entity shown in lists.
type Ref struct {
	ID   uuid.UUID
	Name string
}

func optionalRef(id *uuid.UUID, name *string) *Ref {
	if id == nil {
		return nil
	}
	ref := &Ref{ID: *id}
	if name != nil {
		ref.Name = *name
	}
	return ref
}

type LeadRow struct {
	Lead            domain.Lead
	Referrer        Ref
	Advisor         *Ref
	Manager         *Ref
	Office          *Ref
	DealCount       int
	CommissionTotal int64
	// CommissionStatus is the most advanced commission status among the lead's deals.
	CommissionStatus domain.CommissionStatus
}

func commissionFromRank(rank *int) domain.CommissionStatus {
	if rank == nil {
		return ""
	}
	switch *rank {
	case 3:
		return domain.CommissionPaid
	case 2:
		return domain.CommissionReady
	default:
		return domain.CommissionPending
	}
}

func (r *Repository) ListLeads(ctx context.Context, q ListQuery) ([]LeadRow, int, error) {
	where := q.whereSQL()

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l %s WHERE %s", hierarchyJoins, where)
	if err := r.pool.QueryRow(ctx, countQuery, q.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := q.pageSQL()
	query := fmt.Sprintf(`
		SELECT %s, %s, au.id, %s, mu.id, %s, o.id, o.name, dd.deal_count, dd.commission_total, dd.comm_rank
		%s
		WHERE %s
		%s
	`, leadColumns, referrerName, advisorName, managerName, leadListFrom, where, page)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]LeadRow, 0)
	for rows.Next() {
		var (
			row                          LeadRow
			advisorID, managerID, offID  *uuid.UUID
			advName, mgrName, officeName *string
			rank                         *int
		)
		targets := append(leadScanTargets(&row.Lead),
			&row.Referrer.Name, &advisorID, &advName, &managerID, &mgrName, &offID, &officeName,
			&row.DealCount, &row.CommissionTotal, &rank,
		)
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, err
		}
		row.Referrer.ID = row.Lead.ReferrerID
		row.Advisor = optionalRef(advisorID, advName)
		row.Manager = optionalRef(managerID, mgrName)
		row.Office = optionalRef(offID, officeName)
		row.CommissionStatus = commissionFromRank(rank)
		items = append(items, row)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// DealRow carries the parent lead's hierarchy so commission views need no extra lookups.
type DealRow struct {
	Deal              domain.Deal
	LeadStatus        domain.CommunicationStatus
	IsPersonalContact bool
	Referrer          Ref
	ReferrerRole      accounts.Role
	Advisor           *Ref
	Manager           *Ref
	Office            *Ref
	OfficeOwnerID     *uuid.UUID
}

// Hierarchy rebuilds the referrer chain from the joined columns.
func (d DealRow) Hierarchy() accounts.Hierarchy {
	h := accounts.Hierarchy{Referrer: accounts.UserRef{ID: d.Referrer.ID, Role: d.ReferrerRole}}
	if d.Manager != nil {
		h.Manager = &accounts.UserRef{ID: d.Manager.ID}
	}
	if d.Office != nil {
		h.Office = &accounts.OfficeRef{ID: d.Office.ID, Name: d.Office.Name}
		if d.OfficeOwnerID != nil {
			h.Office.Owner = &accounts.UserRef{ID: *d.OfficeOwnerID}
		}
	}
	return h
}

func (r *Repository) ListDeals(ctx context.Context, q ListQuery) ([]DealRow, int, error) {
	where := q.whereSQL()

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", dealListFrom, where)
	if err := r.pool.QueryRow(ctx, countQuery, q.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := q.pageSQL()
	query := fmt.Sprintf(`
		SELECT %s, l.communication_status, l.is_personal_contact, l.referrer_id, %s, ru.role,
			au.id, %s, mu.id, %s, o.id, o.name, o.owner_id
		%s
		WHERE %s
		%s
	`, dealColumns, referrerName, advisorName, managerName, dealListFrom, where, page)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]DealRow, 0)
	for rows.Next() {
		var (
			row                          DealRow
			advisorID, managerID, offID  *uuid.UUID
			advName, mgrName, officeName *string
		)
		targets := append(dealScanTargets(&row.Deal),
			&row.LeadStatus, &row.IsPersonalContact, &row.Referrer.ID, &row.Referrer.Name, &row.ReferrerRole,
			&advisorID, &advName, &managerID, &mgrName, &offID, &officeName, &row.OfficeOwnerID,
		)
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, err
		}
		row.Advisor = optionalRef(advisorID, advName)
		row.Manager = optionalRef(managerID, mgrName)
		row.Office = optionalRef(offID, officeName)
		items = append(items, row)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// FilterOptions are the related entities present in a scoped list.
type FilterOptions struct {
	Referrers []Ref
	Advisors  []Ref
	Managers  []Ref
	Offices   []Ref
}

func (r *Repository) distinctRefs(ctx context.Context, from, where, idCol, nameCol string, args []any) ([]Ref, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s, %s
		%s
		WHERE %s AND %s IS NOT NULL
		ORDER BY 2
	`, idCol, nameCol, from, where, idCol)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]Ref, 0)
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// FilterOptions collects the choices for the hierarchy filters within q's
// scope. Only q.Where and q.Args are used.
func (r *Repository) FilterOptions(ctx context.Context, q ListQuery, deals bool) (FilterOptions, error) {
	from := "FROM leads l" + hierarchyJoins
	if deals {
		from = dealListFrom
	}
	where := q.whereSQL()

	var (
		opts FilterOptions
		err  error
	)
	if opts.Referrers, err = r.distinctRefs(ctx, from, where, "ru.id", referrerName, q.Args); err != nil {
		return FilterOptions{}, err
	}
	if opts.Advisors, err = r.distinctRefs(ctx, from, where, "au.id", advisorName, q.Args); err != nil {
		return FilterOptions{}, err
	}
	if opts.Managers, err = r.distinctRefs(ctx, from, where, "mu.id", managerName, q.Args); err != nil {
		return FilterOptions{}, err
	}
	if opts.Offices, err = r.distinctRefs(ctx, from, where, "o.id", "o.name", q.Args); err != nil {
		return FilterOptions{}, err
	}
	return opts, nil
}

// CountDistinctAdvisors counts the advisors assigned to leads matching q.
func (r *Repository) CountDistinctAdvisors(ctx context.Context, q ListQuery) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(DISTINCT l.advisor_id) FROM leads l WHERE %s", q.whereSQL())
	err := r.pool.QueryRow(ctx, query, q.Args...).Scan(&n)
	return n, err
}
