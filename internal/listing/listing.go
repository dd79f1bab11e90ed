// Package listing turns list query parameters into scoped, filtered and
// sorted repository queries for the lead and deal lists.
package listing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"

	"github.com/google/uuid"
)

// None selects rows without a manager or office in the referrer chain.
const None = "__none__"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Commission filter values.
const (
	CommissionPending  = "pending"
	CommissionReady    = "ready"
	CommissionPaid     = "paid"
	CommissionPaidMe   = "paid_me"
	CommissionUnpaidMe = "unpaid_me"
)

var commissionStatuses = map[string]domain.CommissionStatus{
	CommissionPending: domain.CommissionPending,
	CommissionReady:   domain.CommissionReady,
	CommissionPaid:    domain.CommissionPaid,
}

// CommissionChoices in display order.
var CommissionChoices = []string{CommissionPending, CommissionReady, CommissionPaid, CommissionPaidMe, CommissionUnpaidMe}

// Params are the parsed list parameters. Filters holds only allowed, non-empty keys.
type Params struct {
	Context  access.ListContext
	Filters  map[string]string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

func (p Params) TotalPages(total int) int {
	return (total + p.PageSize - 1) / p.PageSize
}

// Without returns a copy of p without the filter key.
func (p Params) Without(key string) Params {
	filters := make(map[string]string, len(p.Filters))
	for k, v := range p.Filters {
		if k != key {
			filters[k] = v
		}
	}
	p.Filters = filters
	return p
}

// Parse reads the list parameters v may use in ctx. Filters outside
// access.AllowedFilters are ignored; invalid sort, order and paging values
// fall back to their defaults.
func Parse(values url.Values, v access.Viewer, ctx access.ListContext) Params {
	p := Params{
		Context:  ctx,
		Filters:  make(map[string]string),
		Sort:     "created_at",
		Order:    "desc",
		Page:     1,
		PageSize: DefaultPageSize,
	}
	for _, key := range access.AllowedFilters(v, ctx) {
		if value := strings.TrimSpace(values.Get(key)); value != "" {
			p.Filters[key] = value
		}
	}

	if sort := values.Get("sort"); sort != "" {
		if _, ok := sortColumns(ctx)[sort]; ok {
			p.Sort = sort
		}
	}
	if order := strings.ToLower(values.Get("order")); order == "asc" || order == "desc" {
		p.Order = order
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		p.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil && size > 0 {
		p.PageSize = min(size, MaxPageSize)
	}
	return p
}

// KeepQuery encodes the active filters and the sort for pagination links.
func KeepQuery(p Params) string {
	values := url.Values{}
	for k, v := range p.Filters {
		values.Set(k, v)
	}
	if p.Sort != "created_at" || p.Order != "desc" {
		values.Set("sort", p.Sort)
		values.Set("order", p.Order)
	}
	return values.Encode()
}

// DropsAdvisorFilter reports whether the advisor filter depends on how many
// advisors the viewer's leads have: a referrer with a single advisor gets no
// advisor filter.
func DropsAdvisorFilter(v access.Viewer, ctx access.ListContext) bool {
	return ctx == access.ContextLeads && !v.IsAdmin() && v.Role == accounts.RoleReferrer
}

type builder struct {
	where []string
	args  []any
}

func newBuilder(scope access.Scope) *builder {
	return &builder{where: []string{"(" + scope.Clause + ")"}, args: append([]any{}, scope.Args...)}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) add(clause string) {
	b.where = append(b.where, clause)
}

// idFilter adds col = value for a uuid value, col IS NULL for None when
// nullable, and ignores anything else.
func (b *builder) idFilter(col, value string, nullable bool) {
	if value == None {
		if nullable {
			b.add(col + " IS NULL")
		}
		return
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return
	}
	b.add(col + " = " + b.arg(id))
}

func (b *builder) hierarchyFilters(filters map[string]string) {
	if v, ok := filters[access.FilterReferrer]; ok {
		b.idFilter("l.referrer_id", v, false)
	}
	if v, ok := filters[access.FilterAdvisor]; ok {
		b.idFilter("l.advisor_id", v, true)
	}
	if v, ok := filters[access.FilterManager]; ok {
		b.idFilter("rp.manager_id", v, true)
	}
	if v, ok := filters[access.FilterOffice]; ok {
		b.idFilter("mp.office_id", v, true)
	}
}

func (b *builder) query(p Params, order string) repository.ListQuery {
	return repository.ListQuery{
		Where:   b.where,
		Args:    b.args,
		OrderBy: order,
		Limit:   p.PageSize,
		Offset:  p.Offset(),
	}
}

// ScopeQuery is the bare scope, used for filter options and counts.
func ScopeQuery(scope access.Scope) repository.ListQuery {
	b := newBuilder(scope)
	return repository.ListQuery{Where: b.where, Args: b.args}
}

// LeadQuery builds the leads list query. scope must be rendered for alias l
// starting at $1.
func LeadQuery(scope access.Scope, p Params) repository.ListQuery {
	b := newBuilder(scope)
	if v, ok := p.Filters[access.FilterStatus]; ok && domain.CommunicationStatus(v).Valid() {
		b.add("l.communication_status = " + b.arg(v))
	}
	b.hierarchyFilters(p.Filters)
	return b.query(p, orderBy(access.ContextLeads, p.Sort, p.Order))
}

// DealQuery builds the deals list query. scope must be rendered for aliases
// l and d starting at $1.
func DealQuery(v access.Viewer, scope access.Scope, p Params) repository.ListQuery {
	b := newBuilder(scope)
	if value, ok := p.Filters[access.FilterStatus]; ok && domain.DealStatus(value).Valid() {
		b.add("d.status = " + b.arg(value))
	}
	b.hierarchyFilters(p.Filters)
	if value, ok := p.Filters[access.FilterCommission]; ok {
		switch value {
		case CommissionPaidMe:
			b.add(paidForViewer(v))
		case CommissionUnpaidMe:
			b.add("NOT (" + paidForViewer(v) + ")")
		default:
			if status, ok := commissionStatuses[value]; ok {
				b.add("d.commission_status = " + b.arg(string(status)))
			}
		}
	}
	return b.query(p, statusPriority+", "+orderBy(access.ContextDeals, p.Sort, p.Order))
}

// paidForViewer is "my commission was paid out" for the viewer's role.
func paidForViewer(v access.Viewer) string {
	const (
		referrerPaid = "d.paid_referrer"
		managerPaid  = "(rp.manager_id IS NULL OR d.paid_manager)"
		officePaid   = "(o.id IS NULL OR d.paid_office)"
	)
	if !v.IsAdmin() {
		switch v.Role {
		case accounts.RoleReferrer:
			return referrerPaid
		case accounts.RoleReferrerManager:
			return "(" + referrerPaid + " AND " + managerPaid + ")"
		}
	}
	return "(" + referrerPaid + " AND " + managerPaid + " AND " + officePaid + ")"
}

func quoted(statuses []domain.DealStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = "'" + string(s) + "'"
	}
	return strings.Join(parts, ", ")
}

func openDealStatuses() []domain.DealStatus {
	out := make([]domain.DealStatus, 0, len(domain.AllDealStatuses))
	for _, s := range domain.AllDealStatuses {
		if s.Priority() == 1 {
			out = append(out, s)
		}
	}
	return out
}

// statusPriority mirrors domain.DealStatus.Priority.
var statusPriority = fmt.Sprintf(
	"CASE WHEN d.status IN (%s) THEN 1 WHEN d.status IN (%s) THEN 2 WHEN d.status = '%s' THEN 3 ELSE 4 END",
	quoted(openDealStatuses()), quoted(domain.CompletedDealStatuses), domain.DealFailed,
)

// Sort columns use %[1]s for the direction.
var leadSorts = map[string]string{
	"client":      "l.client_last_name %[1]s, l.client_first_name %[1]s",
	"referrer":    "ru.last_name %[1]s, ru.first_name %[1]s",
	"advisor":     "au.last_name %[1]s NULLS LAST, au.first_name %[1]s",
	"manager":     "mu.last_name %[1]s NULLS LAST, mu.first_name %[1]s",
	"office":      "o.name %[1]s NULLS LAST",
	"comm_status": "dd.comm_rank %[1]s NULLS LAST",
	"commission":  "dd.commission_total %[1]s",
	"created_at":  "l.created_at %[1]s",
}

var dealSorts = map[string]string{
	"client":      "d.client_last_name %[1]s, d.client_first_name %[1]s",
	"referrer":    "ru.last_name %[1]s, ru.first_name %[1]s",
	"advisor":     "au.last_name %[1]s NULLS LAST, au.first_name %[1]s",
	"manager":     "mu.last_name %[1]s NULLS LAST, mu.first_name %[1]s",
	"office":      "o.name %[1]s NULLS LAST",
	"status":      "d.status %[1]s",
	"commission":  "d.commission_total %[1]s",
	"loan_amount": "d.loan_amount %[1]s",
	"created_at":  "d.created_at %[1]s",
}

func sortColumns(ctx access.ListContext) map[string]string {
	if ctx == access.ContextDeals {
		return dealSorts
	}
	return leadSorts
}

func orderBy(ctx access.ListContext, sort, order string) string {
	columns := sortColumns(ctx)
	expr, ok := columns[sort]
	if !ok {
		expr = columns["created_at"]
	}
	dir := "DESC"
	if order == "asc" {
		dir = "ASC"
	}
	tie := "l.id"
	if ctx == access.ContextDeals {
		tie = "d.id"
	}
	return fmt.Sprintf(expr, dir) + ", " + tie
}
