package repository

import (
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
	return &t
}

func TestDateRangeBoundsIncludeWholeLastDay(t *testing.T) {
	from, until := DateRange{From: day(2025, 3, 1), To: day(2025, 3, 31)}.Bounds()
	if !from.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", from)
	}
	if !until.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected until %v", until)
	}
	if f, u := (DateRange{}).Bounds(); f != nil || u != nil {
		t.Fatalf("unbounded range must not produce bounds")
	}
}

func TestLeadCountSQLPlaceholders(t *testing.T) {
	a := &args{}
	subject := a.add("advisor")
	query := leadCountSQL(ScopeAdvisor, subject, DateRange{From: day(2025, 1, 1), To: day(2025, 1, 31)}, a)

	for _, fragment := range []string{
		"l.advisor_id = $1 AND NOT (l.is_personal_contact AND l.referrer_id = $1)",
		"l.created_at >= $2",
		"l.created_at < $3",
		"COUNT(*) FILTER (WHERE l.meeting_done)",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in %s", fragment, query)
		}
	}
	if len(a.values) != 3 {
		t.Fatalf("expected 3 args, got %d", len(a.values))
	}
}

func TestDealCountsAreDistinctLeads(t *testing.T) {
	query := dealCountSQL(ScopeAdvisor, "$1", DateRange{}, &args{})
	if !strings.Contains(query, "COUNT(DISTINCT d.lead_id) AS deals_created") {
		t.Fatalf("deal counts must count leads: %s", query)
	}
	if !strings.Contains(query, "d.status IN ('SIGNED', 'SIGNED_NO_PROPERTY', 'DRAWN')") {
		t.Fatalf("unexpected completed set: %s", query)
	}
}

func TestDealDateRangePerScope(t *testing.T) {
	dr := DateRange{From: day(2025, 1, 1)}

	advisor := dealCountSQL(ScopeAdvisor, "$1", dr, &args{values: []any{"x"}})
	if strings.Contains(advisor, "l.created_at") || !strings.Contains(advisor, "d.created_at >= $2") {
		t.Fatalf("advisor deals are dated by the deal only: %s", advisor)
	}

	referrer := dealCountSQL(ScopeReferrer, "$1", dr, &args{values: []any{"x"}})
	if !strings.Contains(referrer, "l.created_at >= $2") || !strings.Contains(referrer, "d.created_at >= $3") {
		t.Fatalf("referrer deals are dated by lead and deal: %s", referrer)
	}
}

func TestPersonalExclusions(t *testing.T) {
	cases := []struct {
		name     string
		got      string
		contains []string
	}{
		{"referrer leads", leadPredicate(ScopeReferrer, "$1"), []string{"NOT l.is_personal_contact"}},
		{"referrer deals", dealPredicate(ScopeReferrer, "$1"), []string{"NOT l.is_personal_contact", "NOT d.is_personal_deal"}},
		{"advisor deals", dealPredicate(ScopeAdvisor, "$1"), []string{"NOT ((l.is_personal_contact AND l.referrer_id = $1) OR d.is_personal_deal)"}},
		{"advisor personal", dealPredicate(ScopeAdvisorPersonal, "$1"), []string{"AND ((l.is_personal_contact AND l.referrer_id = $1) OR d.is_personal_deal)"}},
		{"manager team", leadPredicate(ScopeManagerTeam, "$1"), []string{"rp.manager_id = $1", "l.referrer_id <> $1", "NOT l.is_personal_contact"}},
		{"office team", dealPredicate(ScopeOfficeTeam, "$1"), []string{"o.owner_id = $1", "NOT d.is_personal_deal"}},
		{"all", leadPredicate(ScopeAll, ""), []string{"TRUE"}},
	}
	for _, tc := range cases {
		for _, fragment := range tc.contains {
			if !strings.Contains(tc.got, fragment) {
				t.Fatalf("%s: expected %q in %q", tc.name, fragment, tc.got)
			}
		}
	}
}

// The rollups must embed exactly the predicates the detailed queries use.
func TestBulkQueriesShareDetailedPredicates(t *testing.T) {
	dr := DateRange{From: day(2025, 1, 1), To: day(2025, 12, 31)}

	advisors, advisorArgs := advisorsBulkSQL(dr)
	for _, fragment := range []string{
		leadPredicate(ScopeAdvisor, "u.id"),
		dealPredicate(ScopeAdvisor, "u.id"),
		dealPredicate(ScopeAdvisorPersonal, "u.id"),
		"u.role = 'ADVISOR'",
	} {
		if !strings.Contains(advisors, fragment) {
			t.Fatalf("advisors rollup is missing %q", fragment)
		}
	}
	// leads: 2, deals: 2, personal deals: 2
	if len(advisorArgs) != 6 {
		t.Fatalf("expected 6 args, got %d", len(advisorArgs))
	}

	referrers, referrerArgs := referrersBulkSQL(dr)
	for _, fragment := range []string{
		leadPredicate(ScopeReferrer, "u.id"),
		dealPredicate(ScopeReferrer, "u.id"),
		"NOT d.is_personal_deal",
	} {
		if !strings.Contains(referrers, fragment) {
			t.Fatalf("referrers rollup is missing %q", fragment)
		}
	}
	// leads: 2, deals: lead dates 2 + deal dates 2
	if len(referrerArgs) != 6 {
		t.Fatalf("expected 6 args, got %d", len(referrerArgs))
	}
}

func TestScopeString(t *testing.T) {
	if ScopeOfficeTeam.String() != "office_team" || Scope(42).String() != "scope(42)" {
		t.Fatalf("unexpected scope names")
	}
}
