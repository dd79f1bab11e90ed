package listing

import (
	"net/url"
	"strings"
	"testing"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"

	"github.com/google/uuid"
)

func scope() access.Scope {
	return access.Scope{Clause: "l.referrer_id = $1", Args: []any{uuid.New()}}
}

func TestParseKeepsOnlyAllowedFilters(t *testing.T) {
	referrer := access.Viewer{ID: uuid.New(), Role: accounts.RoleReferrer}
	values := url.Values{
		"status":   {"NEW"},
		"advisor":  {uuid.NewString()},
		"referrer": {uuid.NewString()},
		"office":   {"  "},
	}

	p := Parse(values, referrer, access.ContextLeads)
	if len(p.Filters) != 2 || p.Filters["status"] != "NEW" {
		t.Fatalf("expected status and advisor only, got %v", p.Filters)
	}
	if _, ok := p.Filters["referrer"]; ok {
		t.Fatalf("referrers cannot filter by referrer")
	}
}

func TestParseFallsBackOnInvalidValues(t *testing.T) {
	admin := access.Viewer{ID: uuid.New(), Role: accounts.RoleAdmin}
	p := Parse(url.Values{"sort": {"password"}, "order": {"sideways"}, "page": {"-2"}, "page_size": {"5000"}}, admin, access.ContextLeads)

	if p.Sort != "created_at" || p.Order != "desc" || p.Page != 1 || p.PageSize != MaxPageSize {
		t.Fatalf("unexpected params %+v", p)
	}
	if p := Parse(url.Values{"sort": {"loan_amount"}}, admin, access.ContextLeads); p.Sort != "created_at" {
		t.Fatalf("loan_amount is a deals-only sort, got %q", p.Sort)
	}
	if p := Parse(url.Values{"sort": {"loan_amount"}, "order": {"ASC"}}, admin, access.ContextDeals); p.Sort != "loan_amount" || p.Order != "asc" {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestLeadQueryFilters(t *testing.T) {
	managerID := uuid.New()
	p := Params{
		Filters: map[string]string{
			access.FilterStatus:  "MEETING",
			access.FilterManager: managerID.String(),
			access.FilterOffice:  None,
		},
		Sort: "client", Order: "asc", Page: 3, PageSize: 10,
	}

	q := LeadQuery(scope(), p)
	where := strings.Join(q.Where, " AND ")
	for _, fragment := range []string{"(l.referrer_id = $1)", "l.communication_status = $2", "rp.manager_id = $3", "mp.office_id IS NULL"} {
		if !strings.Contains(where, fragment) {
			t.Fatalf("expected %q in %q", fragment, where)
		}
	}
	if len(q.Args) != 3 || q.Args[2] != managerID {
		t.Fatalf("unexpected args %v", q.Args)
	}
	if q.OrderBy != "l.client_last_name ASC, l.client_first_name ASC, l.id" {
		t.Fatalf("unexpected order %q", q.OrderBy)
	}
	if q.Limit != 10 || q.Offset != 20 {
		t.Fatalf("unexpected page %d/%d", q.Limit, q.Offset)
	}
}

func TestLeadQueryIgnoresMalformedValues(t *testing.T) {
	p := Params{
		Filters:  map[string]string{access.FilterStatus: "DEAL", access.FilterReferrer: "not-a-uuid", access.FilterReferrer + "x": "1"},
		Page:     1,
		PageSize: 20,
	}
	q := LeadQuery(scope(), p)
	if len(q.Where) != 1 || len(q.Args) != 1 {
		t.Fatalf("malformed filters must be ignored, got %v", q.Where)
	}
}

func TestDealQueryCommissionFilters(t *testing.T) {
	cases := []struct {
		role  accounts.Role
		value string
		want  string
	}{
		{accounts.RoleReferrer, CommissionPaidMe, "d.paid_referrer"},
		{accounts.RoleReferrerManager, CommissionPaidMe, "(d.paid_referrer AND (rp.manager_id IS NULL OR d.paid_manager))"},
		{accounts.RoleOffice, CommissionPaidMe, "(o.id IS NULL OR d.paid_office)"},
		{accounts.RoleReferrer, CommissionUnpaidMe, "NOT (d.paid_referrer)"},
		{accounts.RoleAdvisor, CommissionReady, "d.commission_status = $2"},
	}
	for _, tc := range cases {
		v := access.Viewer{ID: uuid.New(), Role: tc.role}
		p := Params{Filters: map[string]string{access.FilterCommission: tc.value}, Page: 1, PageSize: 20}
		q := DealQuery(v, scope(), p)
		if where := strings.Join(q.Where, " AND "); !strings.Contains(where, tc.want) {
			t.Fatalf("%s/%s: expected %q in %q", tc.role, tc.value, tc.want, where)
		}
	}
}

func TestDealQueryOrdersByStatusPriorityFirst(t *testing.T) {
	v := access.Viewer{ID: uuid.New(), Role: accounts.RoleAdmin}
	q := DealQuery(v, access.Scope{Clause: "TRUE"}, Params{Sort: "loan_amount", Order: "desc", Page: 1, PageSize: 20})

	if !strings.HasPrefix(q.OrderBy, "CASE WHEN d.status IN ('REQUEST_IN_BANK'") {
		t.Fatalf("deals must be ordered by status priority first, got %q", q.OrderBy)
	}
	if !strings.Contains(q.OrderBy, "THEN 2 WHEN d.status = 'FAILED' THEN 3 ELSE 4 END, d.loan_amount DESC, d.id") {
		t.Fatalf("unexpected order %q", q.OrderBy)
	}
}

func TestKeepQuery(t *testing.T) {
	p := Params{Filters: map[string]string{"status": "NEW"}, Sort: "created_at", Order: "desc"}
	if got := KeepQuery(p); got != "status=NEW" {
		t.Fatalf("unexpected query %q", got)
	}
	p.Sort, p.Order = "client", "asc"
	if got := KeepQuery(p); got != "order=asc&sort=client&status=NEW" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestPaging(t *testing.T) {
	p := Params{Page: 2, PageSize: 20}
	if p.Offset() != 20 || p.TotalPages(41) != 3 || p.TotalPages(0) != 0 {
		t.Fatalf("unexpected paging")
	}
	if !DropsAdvisorFilter(access.Viewer{Role: accounts.RoleReferrer}, access.ContextLeads) {
		t.Fatalf("referrers drop the advisor filter in the leads list")
	}
	if DropsAdvisorFilter(access.Viewer{Role: accounts.RoleReferrer}, access.ContextDeals) {
		t.Fatalf("the deals list keeps it")
	}
}
