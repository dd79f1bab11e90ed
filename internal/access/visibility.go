package access

import (
	"sort"

	accounts "leadbridge/internal/accounts/domain"
)

// ListContext selects the list a filter or column set applies to.
type ListContext string

const (
	ContextLeads ListContext = "leads"
	ContextDeals ListContext = "deals"
)

const (
	FilterStatus     = "status"
	FilterReferrer   = "referrer"
	FilterAdvisor    = "advisor"
	FilterManager    = "manager"
	FilterOffice     = "office"
	FilterCommission = "commission"
)

var roleFilters = map[accounts.Role][]string{
	accounts.RoleReferrer:        {FilterStatus, FilterAdvisor},
	accounts.RoleReferrerManager: {FilterStatus, FilterReferrer, FilterAdvisor},
	accounts.RoleOffice:          {FilterStatus, FilterReferrer, FilterManager, FilterAdvisor},
	accounts.RoleAdvisor:         {FilterStatus, FilterReferrer, FilterManager, FilterOffice},
}

var adminFilters = []string{FilterStatus, FilterReferrer, FilterAdvisor, FilterManager, FilterOffice}

// AllowedFilters lists the filter keys offered to v, sorted. The deals list
// always offers the commission filter.
func AllowedFilters(v Viewer, ctx ListContext) []string {
	var base []string
	if v.IsAdmin() {
		base = adminFilters
	} else {
		base = roleFilters[v.Role]
	}
	out := append([]string{}, base...)
	if ctx == ContextDeals {
		out = append(out, FilterCommission)
	}
	sort.Strings(out)
	return out
}

// Columns is which hierarchy columns a list shows.
type Columns struct {
	ShowReferrer bool `json:"showReferrer"`
	ShowAdvisor  bool `json:"showAdvisor"`
	ShowManager  bool `json:"showManager"`
	ShowOffice   bool `json:"showOffice"`
}

func ColumnVisibility(v Viewer) Columns {
	if v.IsAdmin() {
		return Columns{ShowReferrer: true, ShowAdvisor: true, ShowManager: true, ShowOffice: true}
	}
	r := v.Role
	return Columns{
		ShowReferrer: r == accounts.RoleReferrerManager || r == accounts.RoleOffice || r == accounts.RoleAdvisor,
		ShowAdvisor:  r == accounts.RoleReferrer || r == accounts.RoleReferrerManager || r == accounts.RoleOffice,
		ShowManager:  r == accounts.RoleOffice || r == accounts.RoleAdvisor,
		ShowOffice:   r == accounts.RoleAdvisor,
	}
}
