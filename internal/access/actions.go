package access

import (
	accounts "leadbridge/internal/accounts/domain"
	leads "leadbridge/internal/leads/domain"
)

func isStaff(v Viewer) bool {
	return v.IsAdmin() || v.Role == accounts.RoleAdvisor
}

// CanScheduleMeeting, CanCreateDeal and CanManageCommission are role gates;
// object visibility is checked separately through the lead scope.
func CanScheduleMeeting(v Viewer) bool  { return isStaff(v) }
func CanCreateDeal(v Viewer) bool       { return isStaff(v) }
func CanManageCommission(v Viewer) bool { return isStaff(v) }

// CanEditLeadStatus gates the communication status field of the lead form.
func CanEditLeadStatus(v Viewer) bool { return isStaff(v) }

// CanScheduleCallback lets the people directly responsible for a lead park it.
func CanScheduleCallback(v Viewer, lead leads.Lead, h accounts.Hierarchy) bool {
	if v.IsAdmin() {
		return true
	}
	switch v.Role {
	case accounts.RoleAdvisor:
		return eq(lead.AdvisorID, v.ID)
	case accounts.RoleReferrer:
		return lead.ReferrerID == v.ID
	case accounts.RoleReferrerManager:
		return lead.ReferrerID == v.ID || eq(h.ManagerID(), v.ID)
	case accounts.RoleOffice:
		return lead.ReferrerID == v.ID || eq(h.OfficeOwnerID(), v.ID)
	}
	return false
}

// CanCreateLead is true for roles that submit or handle leads.
func CanCreateLead(v Viewer) bool {
	return v.IsAdmin() || v.Role == accounts.RoleAdvisor || v.Role.IsStructure()
}

// CanViewActivityLog is reserved for superusers.
func CanViewActivityLog(v Viewer) bool {
	return v.IsSuperuser
}

// CanViewStatsLists gates the per-advisor and per-referrer rollups.
func CanViewStatsLists(v Viewer) bool { return v.IsAdmin() }

// CanViewUserStats lets a user see their own numbers and the numbers of the
// referrers below them. h is the target's hierarchy and may be nil for
// users without a referrer profile.
func CanViewUserStats(v Viewer, target accounts.User, h *accounts.Hierarchy) bool {
	if v.IsAdmin() || v.ID == target.ID {
		return true
	}
	if h == nil || !target.Role.IsStructure() {
		return false
	}
	switch v.Role {
	case accounts.RoleReferrerManager:
		return eq(h.ManagerID(), v.ID)
	case accounts.RoleOffice:
		return eq(h.ManagerID(), v.ID) || eq(h.OfficeOwnerID(), v.ID)
	}
	return false
}
