// Package commission computes the referrer/manager/office split and the
// advisor's own commission of a deal. It performs no I/O.
package commission

import (
	accounts "leadbridge/internal/accounts/domain"
	leads "leadbridge/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	perMillion = decimal.NewFromInt(1_000_000)
	// Percentage shares are divided by 100 on top of the per-million scale.
	perMillionPct = decimal.NewFromInt(100_000_000)
)

// Input is everything the engine reads from a deal and its lead.
type Input struct {
	LoanAmount int64
	// Personal is true when the lead is a personal contact or the deal is a
	// personal deal; the structure then receives nothing.
	Personal bool
	// Referrer rates travel with the referrer, never with the recipients.
	Referrer *accounts.CommissionRates
	Advisor  *accounts.AdvisorTerms
}

// NewInput builds an Input from persisted entities. rates or terms may be nil
// when the lead has no referrer or advisor.
func NewInput(lead leads.Lead, deal leads.Deal, rates *accounts.CommissionRates, terms *accounts.AdvisorTerms) Input {
	return Input{
		LoanAmount: deal.LoanAmount,
		Personal:   lead.IsPersonalContact || deal.IsPersonalDeal,
		Referrer:   rates,
		Advisor:    terms,
	}
}

// Parts is the structure split in whole currency units.
type Parts struct {
	Referrer int64 `json:"referrer"`
	Manager  int64 `json:"manager"`
	Office   int64 `json:"office"`
	Total    int64 `json:"total"`
}

// Base is total_per_million * loan / 1e6, unrounded.
func Base(in Input) decimal.Decimal {
	if in.Referrer == nil || in.LoanAmount <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(in.Referrer.TotalPerMillion).
		Mul(decimal.NewFromInt(in.LoanAmount)).
		Div(perMillion)
}

// CalculateParts truncates each share independently; Total is their sum.
func CalculateParts(in Input) Parts {
	if in.Referrer == nil || in.LoanAmount <= 0 || in.Personal {
		return Parts{}
	}
	pool := decimal.NewFromInt(in.Referrer.TotalPerMillion).Mul(decimal.NewFromInt(in.LoanAmount))
	share := func(pct decimal.Decimal) int64 {
		// pool*pct has at most two decimals, so dividing by 1e8 is exact.
		return pool.Mul(pct).Div(perMillionPct).Floor().IntPart()
	}

	p := Parts{
		Referrer: share(in.Referrer.ReferrerPct),
		Manager:  share(in.Referrer.ManagerPct),
		Office:   share(in.Referrer.OfficePct),
	}
	p.Total = p.Referrer + p.Manager + p.Office
	return p
}

func floorPerMillion(rate, loan int64) int64 {
	return decimal.NewFromInt(rate).Mul(decimal.NewFromInt(loan)).Div(perMillion).Floor().IntPart()
}

// AdvisorCommission is the advisor's own take. Under FULL_MINUS_STRUCTURE the
// structure total is deducted for non-personal deals and the result may be
// negative when rates are misconfigured.
func AdvisorCommission(in Input) int64 {
	if in.Advisor == nil || in.LoanAmount <= 0 {
		return 0
	}
	switch in.Advisor.Type {
	case accounts.NetWithStructure:
		rate := in.Advisor.StructureDeals
		if in.Personal {
			rate = in.Advisor.OwnDeals
		}
		return floorPerMillion(rate, in.LoanAmount)
	default:
		total := floorPerMillion(in.Advisor.PerMillion, in.LoanAmount)
		if in.Personal {
			return total
		}
		return total - CalculateParts(in).Total
	}
}

// OwnCommission is what userID personally receives from the structure split.
// Unmatched users get 0.
func OwnCommission(in Input, h accounts.Hierarchy, userID uuid.UUID) int64 {
	return OwnFromParts(CalculateParts(in), h, userID)
}

// OwnFromParts is OwnCommission over an already computed split, such as the
// snapshot stored on a deal. Tiers are matched in order referrer, manager,
// office owner and the first match wins, so a user holding two tiers of the
// same chain is paid for the lower one only.
func OwnFromParts(parts Parts, h accounts.Hierarchy, userID uuid.UUID) int64 {
	ownerID := h.OfficeOwnerID()
	isOwner := ownerID != nil && userID == *ownerID

	switch h.Referrer.Role {
	case accounts.RoleReferrer:
		switch {
		case userID == h.Referrer.ID:
			return parts.Referrer
		case h.Manager != nil && userID == h.Manager.ID:
			return parts.Manager
		case isOwner:
			return parts.Office
		}
	case accounts.RoleReferrerManager:
		switch {
		case userID == h.Referrer.ID:
			return parts.Referrer + parts.Manager
		case isOwner:
			return parts.Office
		}
	case accounts.RoleOffice:
		if userID == h.Referrer.ID {
			return parts.Total
		}
	}
	return 0
}

// AllCommissionsPaid treats a tier missing from the hierarchy as paid.
func AllCommissionsPaid(paid leads.PaidFlags, h accounts.Hierarchy) bool {
	return paid.Referrer &&
		(paid.Manager || !h.HasManager()) &&
		(paid.Office || !h.HasOffice())
}

// Breakdown is every derived commission value of one deal.
type Breakdown struct {
	Parts   Parts `json:"parts"`
	Advisor int64 `json:"advisor"`
	AllPaid bool  `json:"allPaid"`
}

func Calculate(in Input, paid leads.PaidFlags, h accounts.Hierarchy) Breakdown {
	return Breakdown{
		Parts:   CalculateParts(in),
		Advisor: AdvisorCommission(in),
		AllPaid: AllCommissionsPaid(paid, h),
	}
}

// FromStored rebuilds the breakdown of a deal from its persisted snapshot.
func FromStored(c leads.StoredCommission, paid leads.PaidFlags, h accounts.Hierarchy) Breakdown {
	return Breakdown{
		Parts:   Parts{Referrer: c.Referrer, Manager: c.Manager, Office: c.Office, Total: c.Total},
		Advisor: c.Advisor,
		AllPaid: AllCommissionsPaid(paid, h),
	}
}

// Stored converts a breakdown to the snapshot persisted on the deal row.
func (b Breakdown) Stored() leads.StoredCommission {
	return leads.StoredCommission{
		Referrer: b.Parts.Referrer,
		Manager:  b.Parts.Manager,
		Office:   b.Parts.Office,
		Total:    b.Parts.Total,
		Advisor:  b.Advisor,
	}
}
