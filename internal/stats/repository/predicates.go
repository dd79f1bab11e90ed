package repository

import (
	"fmt"
	"strings"
	"time"

	"leadbridge/internal/leads/domain"
)

// Scope names a population of leads and deals counted for one subject user.
// Detailed and bulk queries render the same scope through the functions in
// this file, so the numbers they produce agree by construction.
type Scope int

const (
	// ScopeAll counts every lead and deal and takes no subject.
	ScopeAll Scope = iota
	// ScopeAdvisor is the advisor's leads minus personal contacts they referred themselves.
	ScopeAdvisor
	// ScopeAdvisorPersonal is the advisor's personal business: deals on their own
	// personal contacts plus deals flagged personal.
	ScopeAdvisorPersonal
	// ScopeReferrer is the referrer's non-personal leads.
	ScopeReferrer
	// ScopeManagerTeam is the leads of referrers whose manager is the subject.
	ScopeManagerTeam
	// ScopeOfficeTeam is the leads of referrers whose manager belongs to an
	// office owned by the subject.
	ScopeOfficeTeam
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeAdvisor:
		return "advisor"
	case ScopeAdvisorPersonal:
		return "advisor_personal"
	case ScopeReferrer:
		return "referrer"
	case ScopeManagerTeam:
		return "manager_team"
	case ScopeOfficeTeam:
		return "office_team"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

func (s Scope) hasSubject() bool { return s != ScopeAll }

// referrerSide scopes require the lead itself to fall into the date range
// when counting deals.
func (s Scope) referrerSide() bool {
	return s == ScopeReferrer || s == ScopeManagerTeam || s == ScopeOfficeTeam
}

// Every fragment below is written against l (leads) and d (deals). subject is
// an SQL expression naming the user: a placeholder in detailed queries, u.id
// in bulk queries.

func ownPersonalContact(subject string) string {
	return "(l.is_personal_contact AND l.referrer_id = " + subject + ")"
}

// teamMembers selects the referrer ids belonging to the subject's team.
func teamMembers(s Scope, subject string) string {
	switch s {
	case ScopeManagerTeam:
		return "SELECT rp.user_id FROM referrer_profiles rp WHERE rp.manager_id = " + subject
	case ScopeOfficeTeam:
		return `SELECT rp.user_id FROM referrer_profiles rp
			JOIN manager_profiles mp ON mp.user_id = rp.manager_id
			JOIN offices o ON o.id = mp.office_id
			WHERE o.owner_id = ` + subject
	}
	return ""
}

func leadPredicate(s Scope, subject string) string {
	switch s {
	case ScopeAdvisor:
		return "l.advisor_id = " + subject + " AND NOT " + ownPersonalContact(subject)
	case ScopeAdvisorPersonal:
		return "l.advisor_id = " + subject
	case ScopeReferrer:
		return "l.referrer_id = " + subject + " AND NOT l.is_personal_contact"
	case ScopeManagerTeam, ScopeOfficeTeam:
		return "l.referrer_id IN (" + teamMembers(s, subject) + ") AND l.referrer_id <> " + subject +
			" AND NOT l.is_personal_contact"
	}
	return "TRUE"
}

func dealPredicate(s Scope, subject string) string {
	switch s {
	case ScopeAdvisor:
		return "l.advisor_id = " + subject + " AND NOT (" + ownPersonalContact(subject) + " OR d.is_personal_deal)"
	case ScopeAdvisorPersonal:
		return "l.advisor_id = " + subject + " AND (" + ownPersonalContact(subject) + " OR d.is_personal_deal)"
	case ScopeReferrer, ScopeManagerTeam, ScopeOfficeTeam:
		return leadPredicate(s, subject) + " AND NOT d.is_personal_deal"
	}
	return "TRUE"
}

// DateRange bounds counts by created_at. Both ends are calendar dates and
// inclusive; nil means unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports an unbounded range.
func (r DateRange) IsZero() bool { return r.From == nil && r.To == nil }

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Bounds returns the half-open [from, until) interval the SQL compares against.
func (r DateRange) Bounds() (from, until *time.Time) {
	if r.From != nil {
		f := truncateDay(*r.From)
		from = &f
	}
	if r.To != nil {
		u := truncateDay(*r.To).AddDate(0, 0, 1)
		until = &u
	}
	return from, until
}

type args struct {
	values []any
}

func (a *args) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func rangeConditions(column string, r DateRange, a *args) []string {
	from, until := r.Bounds()
	var out []string
	if from != nil {
		out = append(out, column+" >= "+a.add(*from))
	}
	if until != nil {
		out = append(out, column+" < "+a.add(*until))
	}
	return out
}

const leadAggregates = `COUNT(*) AS leads,
	COUNT(*) FILTER (WHERE l.meeting_scheduled) AS meetings_planned,
	COUNT(*) FILTER (WHERE l.meeting_done) AS meetings_done`

func dealAggregates() string {
	statuses := make([]string, 0, len(domain.CompletedDealStatuses))
	for _, st := range domain.CompletedDealStatuses {
		statuses = append(statuses, "'"+string(st)+"'")
	}
	return `COUNT(DISTINCT d.lead_id) AS deals_created,
	COUNT(DISTINCT d.lead_id) FILTER (WHERE d.status IN (` + strings.Join(statuses, ", ") + `)) AS deals_completed`
}

func leadCountSQL(s Scope, subject string, r DateRange, a *args) string {
	where := append([]string{leadPredicate(s, subject)}, rangeConditions("l.created_at", r, a)...)
	return "SELECT " + leadAggregates + " FROM leads l WHERE " + strings.Join(where, " AND ")
}

func dealCountSQL(s Scope, subject string, r DateRange, a *args) string {
	where := []string{dealPredicate(s, subject)}
	if s.referrerSide() {
		where = append(where, rangeConditions("l.created_at", r, a)...)
	}
	where = append(where, rangeConditions("d.created_at", r, a)...)
	return "SELECT " + dealAggregates() + " FROM deals d JOIN leads l ON l.id = d.lead_id WHERE " +
		strings.Join(where, " AND ")
}
