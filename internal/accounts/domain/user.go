// Package domain holds the user, structure and commission-rate rules of the accounts context.
package domain

import (
	"strings"
	"time"

	"leadbridge/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleAdvisor         Role = "ADVISOR"
	RoleReferrer        Role = "REFERRER"
	RoleReferrerManager Role = "REFERRER_MANAGER"
	RoleOffice          Role = "OFFICE"
)

var allRoles = []Role{RoleAdmin, RoleAdvisor, RoleReferrer, RoleReferrerManager, RoleOffice}

func ParseRole(value string) (Role, bool) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(value)))
	for _, r := range allRoles {
		if r == candidate {
			return r, true
		}
	}
	return "", false
}

// IsStructure is true for roles that submit leads and share in the structure split.
func (r Role) IsStructure() bool {
	return r == RoleReferrer || r == RoleReferrerManager || r == RoleOffice
}

// CanManageReferrers is true for roles a ReferrerProfile may name as its manager.
func (r Role) CanManageReferrers() bool {
	return r == RoleReferrerManager || r == RoleOffice
}

type AdvisorCommissionType string

const (
	FullMinusStructure AdvisorCommissionType = "FULL_MINUS_STRUCTURE"
	NetWithStructure   AdvisorCommissionType = "NET_WITH_STRUCTURE"
)

func (t AdvisorCommissionType) Valid() bool {
	return t == FullMinusStructure || t == NetWithStructure
}

// DefaultCommissionTotalPerMillion is the structure pool per million of loan for new users.
const DefaultCommissionTotalPerMillion int64 = 7000

var hundred = decimal.NewFromInt(100)

// CommissionRates are the referrer-side rates. Shares are percentages of the pool.
type CommissionRates struct {
	TotalPerMillion int64
	ReferrerPct     decimal.Decimal
	ManagerPct      decimal.Decimal
	OfficePct       decimal.Decimal
}

// Validate enforces 0 <= pct <= 100 per share and a share sum of at most 100.
func (r CommissionRates) Validate() error {
	if r.TotalPerMillion < 0 {
		return apperr.Validation("commission total per million cannot be negative")
	}
	fields := map[string]decimal.Decimal{
		"commissionReferrerPct": r.ReferrerPct,
		"commissionManagerPct":  r.ManagerPct,
		"commissionOfficePct":   r.OfficePct,
	}
	for name, pct := range fields {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return apperr.Validationf("%s must be between 0 and 100", name).
				WithDetails(map[string]string{name: pct.String()})
		}
	}
	sum := r.ReferrerPct.Add(r.ManagerPct).Add(r.OfficePct)
	if sum.GreaterThan(hundred) {
		return apperr.Validationf("commission percentages sum to %s%%, which exceeds 100%%", sum.String()).
			WithDetails(map[string]string{"sum": sum.String()})
	}
	return nil
}

// AdvisorTerms are the advisor's own commission settings.
type AdvisorTerms struct {
	Type           AdvisorCommissionType
	PerMillion     int64
	OwnDeals       int64
	StructureDeals int64
}

type User struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	Role           Role
	IsSuperuser    bool
	IsActive       bool
	HasAdminAccess bool
	Rates          CommissionRates
	Advisor        AdvisorTerms
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsAdmin is true for superusers and the ADMIN role.
func (u User) IsAdmin() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// Validate checks the fields the database does not constrain.
func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return apperr.Validation("email is required")
	}
	if _, ok := ParseRole(string(u.Role)); !ok {
		return apperr.Validationf("unknown role %q", u.Role)
	}
	if u.Advisor.Type != "" && !u.Advisor.Type.Valid() {
		return apperr.Validationf("unknown advisor commission type %q", u.Advisor.Type)
	}
	if u.Advisor.PerMillion < 0 || u.Advisor.OwnDeals < 0 || u.Advisor.StructureDeals < 0 {
		return apperr.Validation("advisor commission rates cannot be negative")
	}
	return u.Rates.Validate()
}
