package transport

import (
	"time"

	"leadbridge/internal/accounts/domain"

	"github.com/shopspring/decimal"
)

type UserRequest struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	Password       *string `json:"password" validate:"omitempty,min=8"`
	FirstName      *string `json:"firstName" validate:"omitempty,max=150"`
	LastName       *string `json:"lastName" validate:"omitempty,max=150"`
	Phone          *string `json:"phone" validate:"omitempty,phone"`
	Role           *string `json:"role" validate:"omitempty,oneof=ADMIN ADVISOR REFERRER REFERRER_MANAGER OFFICE"`
	IsActive       *bool   `json:"isActive"`
	IsSuperuser    *bool   `json:"isSuperuser"`
	HasAdminAccess *bool   `json:"hasAdminAccess"`

	CommissionTotalPerMillion *int64           `json:"commissionTotalPerMillion" validate:"omitempty,min=0"`
	CommissionReferrerPct     *decimal.Decimal `json:"commissionReferrerPct" validate:"omitempty,min=0,max=100"`
	CommissionManagerPct      *decimal.Decimal `json:"commissionManagerPct" validate:"omitempty,min=0,max=100"`
	CommissionOfficePct       *decimal.Decimal `json:"commissionOfficePct" validate:"omitempty,min=0,max=100"`

	AdvisorCommissionType           *string `json:"advisorCommissionType" validate:"omitempty,oneof=FULL_MINUS_STRUCTURE NET_WITH_STRUCTURE"`
	AdvisorCommissionPerMillion     *int64  `json:"advisorCommissionPerMillion" validate:"omitempty,min=0"`
	AdvisorCommissionOwnDeals       *int64  `json:"advisorCommissionOwnDeals" validate:"omitempty,min=0"`
	AdvisorCommissionStructureDeals *int64  `json:"advisorCommissionStructureDeals" validate:"omitempty,min=0"`
}

type UserResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	Role           string     `json:"role"`
	IsActive       bool       `json:"isActive"`
	IsSuperuser    bool       `json:"isSuperuser"`
	HasAdminAccess bool       `json:"hasAdminAccess"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`

	CommissionTotalPerMillion int64           `json:"commissionTotalPerMillion"`
	CommissionReferrerPct     decimal.Decimal `json:"commissionReferrerPct"`
	CommissionManagerPct      decimal.Decimal `json:"commissionManagerPct"`
	CommissionOfficePct       decimal.Decimal `json:"commissionOfficePct"`

	AdvisorCommissionType           string `json:"advisorCommissionType"`
	AdvisorCommissionPerMillion     int64  `json:"advisorCommissionPerMillion"`
	AdvisorCommissionOwnDeals       int64  `json:"advisorCommissionOwnDeals"`
	AdvisorCommissionStructureDeals int64  `json:"advisorCommissionStructureDeals"`
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:                              u.ID.String(),
		Email:                           u.Email,
		FirstName:                       u.FirstName,
		LastName:                        u.LastName,
		Phone:                           u.Phone,
		Role:                            string(u.Role),
		IsActive:                        u.IsActive,
		IsSuperuser:                     u.IsSuperuser,
		HasAdminAccess:                  u.HasAdminAccess,
		LastLoginAt:                     u.LastLoginAt,
		CreatedAt:                       u.CreatedAt,
		CommissionTotalPerMillion:       u.Rates.TotalPerMillion,
		CommissionReferrerPct:           u.Rates.ReferrerPct,
		CommissionManagerPct:            u.Rates.ManagerPct,
		CommissionOfficePct:             u.Rates.OfficePct,
		AdvisorCommissionType:           string(u.Advisor.Type),
		AdvisorCommissionPerMillion:     u.Advisor.PerMillion,
		AdvisorCommissionOwnDeals:       u.Advisor.OwnDeals,
		AdvisorCommissionStructureDeals: u.Advisor.StructureDeals,
	}
}

type ReferrerProfileRequest struct {
	ManagerID  *string  `json:"managerId" validate:"omitempty,uuid"`
	AdvisorIDs []string `json:"advisorIds" validate:"dive,uuid"`
}

type ReferrerProfileResponse struct {
	UserID              string   `json:"userId"`
	ManagerID           *string  `json:"managerId"`
	AdvisorIDs          []string `json:"advisorIds"`
	LastChosenAdvisorID *string  `json:"lastChosenAdvisorId"`
}

type ManagerProfileRequest struct {
	OfficeID *string `json:"officeId" validate:"omitempty,uuid"`
}

type ManagerProfileResponse struct {
	UserID   string  `json:"userId"`
	OfficeID *string `json:"officeId"`
}

type OfficeRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	OwnerID *string `json:"ownerId" validate:"omitempty,uuid"`
}

type OfficeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   *string   `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRefResponse struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func NewUserRef(r domain.UserRef) UserRefResponse {
	return UserRefResponse{ID: r.ID.String(), Role: string(r.Role), FullName: r.FullName(), Email: r.Email}
}
