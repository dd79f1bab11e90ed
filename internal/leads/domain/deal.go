package domain

import (
	"time"

	"github.com/google/uuid"
)

type DealStatus string

const (
	DealRequestInBank       DealStatus = "REQUEST_IN_BANK"
	DealWaitingForAppraisal DealStatus = "WAITING_FOR_APPRAISAL"
	DealPrepApproval        DealStatus = "PREP_APPROVAL"
	DealApproval            DealStatus = "APPROVAL"
	DealSignPlanning        DealStatus = "SIGN_PLANNING"
	DealSigned              DealStatus = "SIGNED"
	DealSignedNoProperty    DealStatus = "SIGNED_NO_PROPERTY"
	DealDrawn               DealStatus = "DRAWN"
	DealFailed              DealStatus = "FAILED"
)

// dealStage orders the pipeline. SIGNED and SIGNED_NO_PROPERTY share a stage.
var dealStage = map[DealStatus]int{
	DealRequestInBank:       1,
	DealWaitingForAppraisal: 2,
	DealPrepApproval:        3,
	DealApproval:            4,
	DealSignPlanning:        5,
	DealSigned:              6,
	DealSignedNoProperty:    6,
	DealDrawn:               7,
}

var dealStatusLabels = map[DealStatus]string{
	DealRequestInBank:       "Žádost v bance",
	DealWaitingForAppraisal: "Čeká na odhad",
	DealPrepApproval:        "Příprava schválení",
	DealApproval:            "Schvalování",
	DealSignPlanning:        "Plánování podpisu",
	DealSigned:              "Podepsáno",
	DealSignedNoProperty:    "Podepsáno bez nemovitosti",
	DealDrawn:               "Načerpáno",
	DealFailed:              "Neúspěšný",
}

// AllDealStatuses in pipeline order.
var AllDealStatuses = []DealStatus{
	DealRequestInBank, DealWaitingForAppraisal, DealPrepApproval, DealApproval, DealSignPlanning,
	DealSigned, DealSignedNoProperty, DealDrawn, DealFailed,
}

// CompletedDealStatuses count as a closed deal in statistics.
var CompletedDealStatuses = []DealStatus{DealSigned, DealSignedNoProperty, DealDrawn}

func (s DealStatus) Valid() bool {
	_, ok := dealStatusLabels[s]
	return ok
}

func (s DealStatus) Label() string {
	if label, ok := dealStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s DealStatus) IsCompleted() bool {
	return s == DealSigned || s == DealSignedNoProperty || s == DealDrawn
}

func (s DealStatus) IsTerminal() bool {
	return s == DealDrawn || s == DealFailed
}

// Priority orders deal lists: open deals first, then completed, then failed.
func (s DealStatus) Priority() int {
	switch {
	case s == DealFailed:
		return 3
	case s.IsCompleted():
		return 2
	case s.Valid():
		return 1
	default:
		return 4
	}
}

// ValidateDealStatusTransition returns a non-empty reason when from -> to is
// not a forward move along the pipeline or a move to FAILED.
func ValidateDealStatusTransition(from, to DealStatus) string {
	if from == to {
		return ""
	}
	if !to.Valid() {
		return "unknown deal status"
	}
	if from.IsTerminal() {
		return "deal in status " + string(from) + " cannot change"
	}
	if to == DealFailed {
		return ""
	}
	if dealStage[to] <= dealStage[from] {
		return "deal status cannot move back from " + string(from) + " to " + string(to)
	}
	return ""
}

type Bank string

const (
	BankCS       Bank = "CS"
	BankCSOB     Bank = "CSOB"
	BankKB       Bank = "KB"
	BankMoneta   Bank = "MONETA"
	BankRB       Bank = "RB"
	BankUCB      Bank = "UCB"
	BankHB       Bank = "HB"
	BankMBank    Bank = "MBANK"
	BankOberbank Bank = "OBERBANK"
	BankOther    Bank = "OTHER"
)

var AllBanks = []Bank{BankCS, BankCSOB, BankKB, BankMoneta, BankRB, BankUCB, BankHB, BankMBank, BankOberbank, BankOther}

func (b Bank) Valid() bool {
	for _, known := range AllBanks {
		if b == known {
			return true
		}
	}
	return false
}

type PropertyType string

const (
	PropertyOwn         PropertyType = "OWN"
	PropertyCooperative PropertyType = "COOPERATIVE"
	PropertyOther       PropertyType = "OTHER"
)

func (p PropertyType) Valid() bool {
	return p == PropertyOwn || p == PropertyCooperative || p == PropertyOther
}

type CommissionStatus string

const (
	CommissionPending CommissionStatus = "PENDING"
	CommissionReady   CommissionStatus = "READY"
	CommissionPaid    CommissionStatus = "PAID"
)

func (s CommissionStatus) Valid() bool {
	return s == CommissionPending || s == CommissionReady || s == CommissionPaid
}

// CommissionPart names a structure tier that gets paid separately.
type CommissionPart string

const (
	PartReferrer CommissionPart = "referrer"
	PartManager  CommissionPart = "manager"
	PartOffice   CommissionPart = "office"
)

func (p CommissionPart) Valid() bool {
	return p == PartReferrer || p == PartManager || p == PartOffice
}

// PaidFlags are the per-tier payout markers of a deal.
type PaidFlags struct {
	Referrer bool
	Manager  bool
	Office   bool
}

// StoredCommission is the commission snapshot persisted with the deal.
type StoredCommission struct {
	Referrer int64
	Manager  int64
	Office   int64
	Total    int64
	Advisor  int64
}

type Deal struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	Client           ClientData
	LoanAmount       int64
	Bank             Bank
	PropertyType     PropertyType
	Status           DealStatus
	CommissionStatus CommissionStatus
	Commission       StoredCommission
	Paid             PaidFlags
	IsPersonalDeal   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MarkCommissionReady is allowed only from PENDING.
func (d *Deal) MarkCommissionReady() string {
	if d.CommissionStatus != CommissionPending {
		return "commission is already " + string(d.CommissionStatus)
	}
	d.CommissionStatus = CommissionReady
	return ""
}

// MarkPartPaid sets the tier flag and moves the commission to PAID: PAID means
// at least one tier was paid out.
func (d *Deal) MarkPartPaid(part CommissionPart) string {
	switch part {
	case PartReferrer:
		d.Paid.Referrer = true
	case PartManager:
		d.Paid.Manager = true
	case PartOffice:
		d.Paid.Office = true
	default:
		return "unknown commission part"
	}
	d.CommissionStatus = CommissionPaid
	return ""
}

// PersonalDealDefault decides is_personal_deal for a new deal and whether the
// advisor may override it. Personal leads always produce personal deals and a
// lead's first deal is never personal; repeat deals default to personal.
func PersonalDealDefault(leadIsPersonal bool, existingDeals int) (value bool, editable bool) {
	switch {
	case leadIsPersonal:
		return true, false
	case existingDeals == 0:
		return false, false
	default:
		return true, true
	}
}
