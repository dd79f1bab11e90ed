package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReferrerProfile links a structure user to their manager and advisor pool.
type ReferrerProfile struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	ManagerID           *uuid.UUID
	AdvisorIDs          []uuid.UUID
	LastChosenAdvisorID *uuid.UUID
}

// HasAdvisor reports whether advisorID is in the pool.
func (p ReferrerProfile) HasAdvisor(advisorID uuid.UUID) bool {
	for _, id := range p.AdvisorIDs {
		if id == advisorID {
			return true
		}
	}
	return false
}

// DefaultAdvisor is the advisor preselected on the lead form: the only pool
// member when the pool has one, otherwise the last chosen advisor if still allowed.
func (p ReferrerProfile) DefaultAdvisor() *uuid.UUID {
	if len(p.AdvisorIDs) == 1 {
		id := p.AdvisorIDs[0]
		return &id
	}
	if p.LastChosenAdvisorID == nil {
		return nil
	}
	if len(p.AdvisorIDs) == 0 || p.HasAdvisor(*p.LastChosenAdvisorID) {
		id := *p.LastChosenAdvisorID
		return &id
	}
	return nil
}

type ManagerProfile struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	OfficeID *uuid.UUID
}

type Office struct {
	ID        uuid.UUID
	Name      string
	OwnerID   *uuid.UUID
	CreatedAt time.Time
}

// UserRef is the slice of a user needed for routing, display and notifications.
type UserRef struct {
	ID        uuid.UUID
	Role      Role
	FirstName string
	LastName  string
	Email     string
}

func (r UserRef) FullName() string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return r.Email
	}
	return name
}

type OfficeRef struct {
	ID    uuid.UUID
	Name  string
	Owner *UserRef
}

// Hierarchy is the resolved referrer -> manager -> office -> owner chain of one lead.
// Absent links are nil.
type Hierarchy struct {
	Referrer      UserRef
	ReferrerRates CommissionRates
	Manager       *UserRef
	Office        *OfficeRef
}

func (h Hierarchy) HasManager() bool { return h.Manager != nil }

// HasOffice is true only when an office is reached through the manager.
func (h Hierarchy) HasOffice() bool { return h.Office != nil }

func (h Hierarchy) ManagerID() *uuid.UUID {
	if h.Manager == nil {
		return nil
	}
	id := h.Manager.ID
	return &id
}

func (h Hierarchy) OfficeOwner() *UserRef {
	if h.Office == nil {
		return nil
	}
	return h.Office.Owner
}

func (h Hierarchy) OfficeOwnerID() *uuid.UUID {
	owner := h.OfficeOwner()
	if owner == nil {
		return nil
	}
	id := owner.ID
	return &id
}
