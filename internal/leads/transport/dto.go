package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type ClientRequest struct {
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Phone     string `json:"phone" validate:"required,phone"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

type CreateLeadRequest struct {
	Client            ClientRequest `json:"client" validate:"required"`
	ReferrerID        *uuid.UUID    `json:"referrerId,omitempty"`
	AdvisorID         *uuid.UUID    `json:"advisorId,omitempty"`
	Description       string        `json:"description,omitempty" validate:"max=5000"`
	IsPersonalContact bool          `json:"isPersonalContact"`
	Note              string        `json:"note,omitempty" validate:"max=2000"`
}

type UpdateLeadRequest struct {
	Client      *ClientRequest `json:"client,omitempty"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *string        `json:"communicationStatus,omitempty" validate:"omitempty,oneof=NEW MEETING SEARCHING_PROPERTY WAITING_FOR_CLIENT FAILED DEAL_CREATED COMMISSION_PAID"`
	AdvisorID   OptionalUUID   `json:"advisorId,omitempty" validate:"-"`
}

type ScheduleMeetingRequest struct {
	MeetingAt time.Time `json:"meetingAt" validate:"required"`
	Note      string    `json:"note,omitempty" validate:"max=2000"`
}

type CompleteMeetingRequest struct {
	NextAction string `json:"nextAction" validate:"required,oneof=SEARCHING_PROPERTY WAITING_FOR_CLIENT FAILED CREATE_DEAL"`
	Note       string `json:"note,omitempty" validate:"max=2000"`
}

type CancelMeetingRequest struct {
	Note string `json:"note,omitempty" validate:"max=2000"`
}

type ScheduleCallbackRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Note string `json:"note,omitempty" validate:"max=2000"`
}

type CreateNoteRequest struct {
	Body      string `json:"body" validate:"required,max=2000"`
	IsPrivate bool   `json:"isPrivate"`
}

// Response DTOs
type ClientResponse struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

type RefResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role,omitempty"`
}

type LeadResponse struct {
	ID                    uuid.UUID      `json:"id"`
	Client                ClientResponse `json:"client"`
	ReferrerID            uuid.UUID      `json:"referrerId"`
	AdvisorID             *uuid.UUID     `json:"advisorId,omitempty"`
	Description           string         `json:"description"`
	IsPersonalContact     bool           `json:"isPersonalContact"`
	Status                string         `json:"communicationStatus"`
	StatusLabel           string         `json:"communicationStatusLabel"`
	MeetingAt             *time.Time     `json:"meetingAt,omitempty"`
	MeetingNote           string         `json:"meetingNote,omitempty"`
	MeetingScheduled      bool           `json:"meetingScheduled"`
	MeetingDone           bool           `json:"meetingDone"`
	MeetingDoneAt         *time.Time     `json:"meetingDoneAt,omitempty"`
	CallbackScheduledDate *string        `json:"callbackScheduledDate,omitempty"`
	CallbackNote          string         `json:"callbackNote,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

type LeadPermissions struct {
	CanEditStatus       bool `json:"canEditStatus"`
	CanReassignAdvisor  bool `json:"canReassignAdvisor"`
	CanScheduleMeeting  bool `json:"canScheduleMeeting"`
	CanScheduleCallback bool `json:"canScheduleCallback"`
	CanCreateDeal       bool `json:"canCreateDeal"`
}

type LeadDetailResponse struct {
	Lead             LeadResponse    `json:"lead"`
	Referrer         RefResponse     `json:"referrer"`
	Advisor          *RefResponse    `json:"advisor,omitempty"`
	Manager          *RefResponse    `json:"manager,omitempty"`
	Office           *RefResponse    `json:"office,omitempty"`
	Deals            []DealResponse  `json:"deals"`
	EditableStatuses []StatusOption  `json:"editableStatuses,omitempty"`
	Permissions      LeadPermissions `json:"permissions"`
}

type StatusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type LeadListItem struct {
	ID                uuid.UUID      `json:"id"`
	Client            ClientResponse `json:"client"`
	Status            string         `json:"communicationStatus"`
	StatusLabel       string         `json:"communicationStatusLabel"`
	IsPersonalContact bool           `json:"isPersonalContact"`
	MeetingAt         *time.Time     `json:"meetingAt,omitempty"`
	Referrer          *RefResponse   `json:"referrer,omitempty"`
	Advisor           *RefResponse   `json:"advisor,omitempty"`
	Manager           *RefResponse   `json:"manager,omitempty"`
	Office            *RefResponse   `json:"office,omitempty"`
	DealCount         int            `json:"dealCount"`
	CommissionTotal   int64          `json:"commissionTotal"`
	CommissionStatus  string         `json:"commissionStatus,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// ListMeta echoes the applied filter state so the client can rebuild links.
type ListMeta struct {
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	Filters    map[string]string `json:"filters"`
	Sort       string            `json:"sort"`
	Order      string            `json:"order"`
	KeepQuery  string            `json:"keepQuery"`
	Columns    any               `json:"columns"`
}

type LeadListResponse struct {
	Items []LeadListItem `json:"items"`
	ListMeta
}

type FormOptionsResponse struct {
	Advisors              []RefResponse  `json:"advisors"`
	DefaultAdvisorID      *uuid.UUID     `json:"defaultAdvisorId,omitempty"`
	Referrers             []RefResponse  `json:"referrers"`
	CanChooseReferrer     bool           `json:"canChooseReferrer"`
	CanSetPersonalContact bool           `json:"canSetPersonalContact"`
	Statuses              []StatusOption `json:"statuses"`
}

type NoteResponse struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"leadId"`
	AuthorID  *uuid.UUID `json:"authorId,omitempty"`
	Body      string     `json:"body"`
	IsPrivate bool       `json:"isPrivate"`
	CreatedAt time.Time  `json:"createdAt"`
}

type HistoryEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventType   string     `json:"eventType"`
	Description string     `json:"description"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	NoteID      *uuid.UUID `json:"noteId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
