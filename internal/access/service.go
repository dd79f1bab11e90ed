package access

import (
	"context"

	accounts "leadbridge/internal/accounts/domain"
	leads "leadbridge/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadChecker runs an existence query for one lead under a scope.
// The scope's placeholders start at $2; $1 is the lead id.
type LeadChecker interface {
	LeadInScope(ctx context.Context, leadID uuid.UUID, scope Scope) (bool, error)
}

// DealChecker is LeadChecker for one deal; the scope is rendered for the
// aliases l (lead) and d (deal).
type DealChecker interface {
	DealInScope(ctx context.Context, dealID uuid.UUID, scope Scope) (bool, error)
}

type Checker interface {
	LeadChecker
	DealChecker
}

// Service wraps the rules with the existence checks that need the database.
type Service struct {
	checker Checker
}

func New(checker Checker) *Service {
	return &Service{checker: checker}
}

// LeadScope is the visible-leads predicate for the leads table aliased as alias.
func (s *Service) LeadScope(v Viewer, alias string, argIdx int) Scope {
	return RuleFor(v).LeadSQL(v.ID, alias, argIdx)
}

// DealScope is the visible-deals predicate for deals joined to their lead.
func (s *Service) DealScope(v Viewer, leadAlias, dealAlias string, argIdx int) Scope {
	return RuleFor(v).DealSQL(v.ID, leadAlias, dealAlias, argIdx)
}

// CanViewLead is true iff the lead is in the viewer's lead scope.
func (s *Service) CanViewLead(ctx context.Context, v Viewer, leadID uuid.UUID) (bool, error) {
	rule := RuleFor(v)
	if rule.None() {
		return false, nil
	}
	return s.checker.LeadInScope(ctx, leadID, rule.LeadSQL(v.ID, "l", 2))
}

// CanViewDeal is true iff the deal is in the viewer's deal scope. Personal
// deals drop out of the structure's scope even when the lead is visible.
func (s *Service) CanViewDeal(ctx context.Context, v Viewer, dealID uuid.UUID) (bool, error) {
	rule := RuleFor(v)
	if rule.None() {
		return false, nil
	}
	return s.checker.DealInScope(ctx, dealID, rule.DealSQL(v.ID, "l", "d", 2))
}

// CanEditLead is the same check as CanViewLead: whoever can see a lead can edit it.
func (s *Service) CanEditLead(ctx context.Context, v Viewer, leadID uuid.UUID) (bool, error) {
	return s.CanViewLead(ctx, v, leadID)
}

// FactsFor assembles in-memory facts for a loaded lead.
func FactsFor(lead leads.Lead, h accounts.Hierarchy, referrerPool, advisorPool []uuid.UUID) LeadFacts {
	return LeadFacts{
		ReferrerID:            lead.ReferrerID,
		AdvisorID:             lead.AdvisorID,
		IsPersonalContact:     lead.IsPersonalContact,
		ReferrerManagerID:     h.ManagerID(),
		ReferrerOfficeOwnerID: h.OfficeOwnerID(),
		ReferrerAdvisorPool:   referrerPool,
		AdvisorAdvisorPool:    advisorPool,
	}
}
