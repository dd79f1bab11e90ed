package transport

import "github.com/google/uuid"

type StatsQuery struct {
	Preset   string `form:"date_preset"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

type FilterResponse struct {
	Preset   string  `json:"preset"`
	DateFrom *string `json:"dateFrom,omitempty"`
	DateTo   *string `json:"dateTo,omitempty"`
}

type UserResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type AdvisorStatsResponse struct {
	LeadsReceived          int `json:"leadsReceived"`
	MeetingsPlanned        int `json:"meetingsPlanned"`
	MeetingsDone           int `json:"meetingsDone"`
	DealsCreated           int `json:"dealsCreated"`
	DealsCompleted         int `json:"dealsCompleted"`
	DealsCreatedPersonal   int `json:"dealsCreatedPersonal"`
	DealsCompletedPersonal int `json:"dealsCompletedPersonal"`
}

type ReferrerStatsResponse struct {
	LeadsSent       int `json:"leadsSent"`
	MeetingsPlanned int `json:"meetingsPlanned"`
	MeetingsDone    int `json:"meetingsDone"`
	DealsCreated    int `json:"dealsCreated"`
	DealsDone       int `json:"dealsDone"`
}

type TeamStatsResponse struct {
	Members int `json:"members"`
	ReferrerStatsResponse
}

type SplitResponse struct {
	PersonalReferrer ReferrerStatsResponse `json:"personalReferrer"`
	Team             *TeamStatsResponse    `json:"team"`
}

type DashboardResponse struct {
	User     UserResponse           `json:"user"`
	Filter   FilterResponse         `json:"filter"`
	Advisor  *AdvisorStatsResponse  `json:"advisor,omitempty"`
	Referrer *ReferrerStatsResponse `json:"referrer,omitempty"`
	Split    *SplitResponse         `json:"split,omitempty"`
	Overview *ReferrerStatsResponse `json:"overview,omitempty"`
}

type AdvisorLineResponse struct {
	User UserResponse `json:"user"`
	AdvisorStatsResponse
}

type ReferrerLineResponse struct {
	User UserResponse `json:"user"`
	ReferrerStatsResponse
}

type AdvisorListResponse struct {
	Items  []AdvisorLineResponse `json:"items"`
	Filter FilterResponse        `json:"filter"`
}

type ReferrerListResponse struct {
	Items  []ReferrerLineResponse `json:"items"`
	Filter FilterResponse         `json:"filter"`
}
