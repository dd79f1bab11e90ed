package access

import (
	"fmt"
	"strings"

	accounts "leadbridge/internal/accounts/domain"

	"github.com/google/uuid"
)

type condition int

const (
	condAdvisorIs condition = iota + 1
	condReferrerIs
	// the referrer's profile lists the viewer in its advisor pool
	condReferrerPoolHasViewer
	// personal contact whose advisor's own profile lists the viewer
	condPersonalAdvisorPoolHasViewer
	condReferrerManagerIs
	condReferrerOfficeOwnerIs
)

// Rule is a role's visibility: a disjunction of conditions on the lead, plus
// exclusions. It is rendered to SQL for queries and evaluated in memory for
// already-loaded objects, so both paths share one definition.
type Rule struct {
	all                    bool
	anyOf                  []condition
	excludePersonalContact bool
	excludePersonalDeal    bool
}

// RuleFor returns the visibility rule of v.
func RuleFor(v Viewer) Rule {
	if v.IsAdmin() {
		return Rule{all: true}
	}
	switch v.Role {
	case accounts.RoleAdvisor:
		if v.HasAdminAccess {
			return Rule{anyOf: []condition{condAdvisorIs, condReferrerPoolHasViewer, condPersonalAdvisorPoolHasViewer}}
		}
		return Rule{anyOf: []condition{condAdvisorIs}}
	case accounts.RoleReferrer:
		return Rule{anyOf: []condition{condReferrerIs}, excludePersonalDeal: true}
	case accounts.RoleReferrerManager:
		return Rule{
			anyOf:                  []condition{condReferrerManagerIs, condReferrerIs},
			excludePersonalContact: true,
			excludePersonalDeal:    true,
		}
	case accounts.RoleOffice:
		return Rule{
			anyOf:                  []condition{condReferrerOfficeOwnerIs, condReferrerIs},
			excludePersonalContact: true,
			excludePersonalDeal:    true,
		}
	}
	return Rule{}
}

// All is true when the rule admits every row.
func (r Rule) All() bool { return r.all }

// None is true when the rule admits nothing.
func (r Rule) None() bool { return !r.all && len(r.anyOf) == 0 }

// Scope is a rendered SQL predicate with its positional arguments.
type Scope struct {
	Clause string
	Args   []any
}

// NextArg is the placeholder index following the scope's own arguments.
func (s Scope) NextArg(start int) int { return start + len(s.Args) }

func (r Rule) conditionSQL(c condition, lead, arg string) string {
	switch c {
	case condAdvisorIs:
		return fmt.Sprintf("%s.advisor_id = %s", lead, arg)
	case condReferrerIs:
		return fmt.Sprintf("%s.referrer_id = %s", lead, arg)
	case condReferrerPoolHasViewer:
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM referrer_profiles acc_rp
			JOIN referrer_profile_advisors acc_rpa ON acc_rpa.profile_id = acc_rp.id
			WHERE acc_rp.user_id = %s.referrer_id AND acc_rpa.advisor_id = %s)`, lead, arg)
	case condPersonalAdvisorPoolHasViewer:
		return fmt.Sprintf(`(%s.is_personal_contact AND EXISTS (SELECT 1 FROM referrer_profiles acc_ap
			JOIN referrer_profile_advisors acc_apa ON acc_apa.profile_id = acc_ap.id
			WHERE acc_ap.user_id = %s.advisor_id AND acc_apa.advisor_id = %s))`, lead, lead, arg)
	case condReferrerManagerIs:
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM referrer_profiles acc_mp
			WHERE acc_mp.user_id = %s.referrer_id AND acc_mp.manager_id = %s)`, lead, arg)
	case condReferrerOfficeOwnerIs:
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM referrer_profiles acc_op
			JOIN manager_profiles acc_mgr ON acc_mgr.user_id = acc_op.manager_id
			JOIN offices acc_off ON acc_off.id = acc_mgr.office_id
			WHERE acc_op.user_id = %s.referrer_id AND acc_off.owner_id = %s)`, lead, arg)
	}
	return "FALSE"
}

func (r Rule) render(viewerID uuid.UUID, lead, deal string, argIdx int) Scope {
	if r.all {
		return Scope{Clause: "TRUE"}
	}
	if r.None() {
		return Scope{Clause: "FALSE"}
	}

	arg := fmt.Sprintf("$%d", argIdx)
	ors := make([]string, 0, len(r.anyOf))
	for _, c := range r.anyOf {
		ors = append(ors, r.conditionSQL(c, lead, arg))
	}

	clauses := []string{"(" + strings.Join(ors, " OR ") + ")"}
	if r.excludePersonalContact {
		clauses = append(clauses, fmt.Sprintf("NOT %s.is_personal_contact", lead))
	}
	if deal != "" && r.excludePersonalDeal {
		clauses = append(clauses, fmt.Sprintf("NOT %s.is_personal_deal", deal))
	}
	return Scope{Clause: strings.Join(clauses, " AND "), Args: []any{viewerID}}
}

// LeadSQL renders the rule against the leads table aliased as lead, using
// $argIdx for the viewer id.
func (r Rule) LeadSQL(viewerID uuid.UUID, lead string, argIdx int) Scope {
	return r.render(viewerID, lead, "", argIdx)
}

// DealSQL renders the rule for deals joined to their lead.
func (r Rule) DealSQL(viewerID uuid.UUID, lead, deal string, argIdx int) Scope {
	return r.render(viewerID, lead, deal, argIdx)
}

// LeadFacts is what the in-memory evaluation needs to know about a lead.
type LeadFacts struct {
	ReferrerID            uuid.UUID
	AdvisorID             *uuid.UUID
	IsPersonalContact     bool
	ReferrerManagerID     *uuid.UUID
	ReferrerOfficeOwnerID *uuid.UUID
	ReferrerAdvisorPool   []uuid.UUID
	// AdvisorAdvisorPool is the pool on the assigned advisor's own referrer profile.
	AdvisorAdvisorPool []uuid.UUID
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func eq(p *uuid.UUID, id uuid.UUID) bool {
	return p != nil && *p == id
}

func (r Rule) conditionHolds(c condition, f LeadFacts, viewerID uuid.UUID) bool {
	switch c {
	case condAdvisorIs:
		return eq(f.AdvisorID, viewerID)
	case condReferrerIs:
		return f.ReferrerID == viewerID
	case condReferrerPoolHasViewer:
		return contains(f.ReferrerAdvisorPool, viewerID)
	case condPersonalAdvisorPoolHasViewer:
		return f.IsPersonalContact && f.AdvisorID != nil && contains(f.AdvisorAdvisorPool, viewerID)
	case condReferrerManagerIs:
		return eq(f.ReferrerManagerID, viewerID)
	case condReferrerOfficeOwnerIs:
		return eq(f.ReferrerOfficeOwnerID, viewerID)
	}
	return false
}

// MatchLead evaluates the rule for one lead.
func (r Rule) MatchLead(viewerID uuid.UUID, f LeadFacts) bool {
	if r.all {
		return true
	}
	if r.excludePersonalContact && f.IsPersonalContact {
		return false
	}
	for _, c := range r.anyOf {
		if r.conditionHolds(c, f, viewerID) {
			return true
		}
	}
	return false
}

// MatchDeal evaluates the rule for one deal of a lead.
func (r Rule) MatchDeal(viewerID uuid.UUID, f LeadFacts, isPersonalDeal bool) bool {
	if !r.all && r.excludePersonalDeal && isPersonalDeal {
		return false
	}
	return r.MatchLead(viewerID, f)
}

// HidesPersonalDeals is true for the structure roles, which never see a
// personal deal even on a lead they can see.
func (r Rule) HidesPersonalDeals() bool { return !r.all && r.excludePersonalDeal }
