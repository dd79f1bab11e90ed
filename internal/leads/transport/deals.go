package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateDealRequest struct {
	LoanAmount     int64  `json:"loanAmount" validate:"required,gt=0"`
	Bank           string `json:"bank" validate:"required,oneof=CS CSOB KB MONETA RB UCB HB MBANK OBERBANK OTHER"`
	PropertyType   string `json:"propertyType" validate:"required,oneof=OWN COOPERATIVE OTHER"`
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=REQUEST_IN_BANK WAITING_FOR_APPRAISAL PREP_APPROVAL APPROVAL SIGN_PLANNING SIGNED SIGNED_NO_PROPERTY DRAWN FAILED"`
	IsPersonalDeal *bool  `json:"isPersonalDeal,omitempty"`
	Note           string `json:"note,omitempty" validate:"max=2000"`
}

type UpdateDealRequest struct {
	Client         *ClientRequest `json:"client,omitempty"`
	LoanAmount     *int64         `json:"loanAmount,omitempty" validate:"omitempty,gt=0"`
	Bank           *string        `json:"bank,omitempty" validate:"omitempty,oneof=CS CSOB KB MONETA RB UCB HB MBANK OBERBANK OTHER"`
	PropertyType   *string        `json:"propertyType,omitempty" validate:"omitempty,oneof=OWN COOPERATIVE OTHER"`
	Status         *string        `json:"status,omitempty" validate:"omitempty,oneof=REQUEST_IN_BANK WAITING_FOR_APPRAISAL PREP_APPROVAL APPROVAL SIGN_PLANNING SIGNED SIGNED_NO_PROPERTY DRAWN FAILED"`
	IsPersonalDeal *bool          `json:"isPersonalDeal,omitempty"`
	Note           string         `json:"note,omitempty" validate:"max=2000"`
}

type CommissionPaidRequest struct {
	Part string `json:"part" validate:"required,oneof=referrer manager office"`
}

type PaidResponse struct {
	Referrer bool `json:"referrer"`
	Manager  bool `json:"manager"`
	Office   bool `json:"office"`
}

type DealResponse struct {
	ID               uuid.UUID      `json:"id"`
	LeadID           uuid.UUID      `json:"leadId"`
	Client           ClientResponse `json:"client"`
	LoanAmount       int64          `json:"loanAmount"`
	Bank             string         `json:"bank"`
	PropertyType     string         `json:"propertyType"`
	Status           string         `json:"status"`
	StatusLabel      string         `json:"statusLabel"`
	CommissionStatus string         `json:"commissionStatus"`
	Paid             PaidResponse   `json:"paid"`
	IsPersonalDeal   bool           `json:"isPersonalDeal"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// CommissionResponse is the deal's split as the viewer may see it. Advisor is
// omitted for the structure.
type CommissionResponse struct {
	Referrer int64  `json:"referrer"`
	Manager  int64  `json:"manager"`
	Office   int64  `json:"office"`
	Total    int64  `json:"total"`
	Advisor  *int64 `json:"advisor,omitempty"`
	Own      int64  `json:"own"`
	AllPaid  bool   `json:"allPaid"`
}

type DealPermissions struct {
	CanEdit              bool `json:"canEdit"`
	CanManageCommission  bool `json:"canManageCommission"`
	PersonalDealEditable bool `json:"personalDealEditable"`
}

type DealDetailResponse struct {
	Deal        DealResponse       `json:"deal"`
	Lead        LeadResponse       `json:"lead"`
	Referrer    RefResponse        `json:"referrer"`
	Manager     *RefResponse       `json:"manager,omitempty"`
	Office      *RefResponse       `json:"office,omitempty"`
	Commission  CommissionResponse `json:"commission"`
	Permissions DealPermissions    `json:"permissions"`
}

type DealListItem struct {
	Deal              DealResponse `json:"deal"`
	LeadStatus        string       `json:"leadStatus"`
	IsPersonalContact bool         `json:"isPersonalContact"`
	Referrer          *RefResponse `json:"referrer,omitempty"`
	Advisor           *RefResponse `json:"advisor,omitempty"`
	Manager           *RefResponse `json:"manager,omitempty"`
	Office            *RefResponse `json:"office,omitempty"`
	Own               int64        `json:"own"`
	AllPaid           bool         `json:"allPaid"`
}

type DealListResponse struct {
	Items []DealListItem `json:"items"`
	ListMeta
}
