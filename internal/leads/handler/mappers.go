package handler

import (
	"time"

	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/leads/deals"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/management"
	"leadbridge/internal/leads/repository"
	"leadbridge/internal/leads/transport"
	"leadbridge/internal/listing"
)

func toClientData(req transport.ClientRequest) domain.ClientData {
	return domain.ClientData{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone, Email: req.Email}
}

func clientResponse(c domain.ClientData) transport.ClientResponse {
	return transport.ClientResponse{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  c.FullName(),
		Phone:     c.Phone,
		Email:     c.Email,
	}
}

func leadResponse(l domain.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:                l.ID,
		Client:            clientResponse(l.Client),
		ReferrerID:        l.ReferrerID,
		AdvisorID:         l.AdvisorID,
		Description:       l.Description,
		IsPersonalContact: l.IsPersonalContact,
		Status:            string(l.Status),
		StatusLabel:       l.Status.Label(),
		MeetingAt:         l.MeetingAt,
		MeetingNote:       l.MeetingNote,
		MeetingScheduled:  l.MeetingScheduled,
		MeetingDone:       l.MeetingDone,
		MeetingDoneAt:     l.MeetingDoneAt,
		CallbackNote:      l.CallbackNote,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.CallbackScheduledDate != nil {
		date := l.CallbackScheduledDate.Format(time.DateOnly)
		resp.CallbackScheduledDate = &date
	}
	return resp
}

func userRef(r accounts.UserRef) transport.RefResponse {
	return transport.RefResponse{ID: r.ID, Name: r.FullName(), Role: string(r.Role)}
}

func optionalUserRef(r *accounts.UserRef) *transport.RefResponse {
	if r == nil {
		return nil
	}
	ref := userRef(*r)
	return &ref
}

func officeRef(o *accounts.OfficeRef) *transport.RefResponse {
	if o == nil {
		return nil
	}
	return &transport.RefResponse{ID: o.ID, Name: o.Name}
}

func rowRef(r *repository.Ref, show bool) *transport.RefResponse {
	if r == nil || !show {
		return nil
	}
	return &transport.RefResponse{ID: r.ID, Name: r.Name}
}

func userRefs(refs []accounts.UserRef) []transport.RefResponse {
	out := make([]transport.RefResponse, 0, len(refs))
	for _, r := range refs {
		out = append(out, userRef(r))
	}
	return out
}

func statusOptions(statuses []domain.CommunicationStatus) []transport.StatusOption {
	if statuses == nil {
		return nil
	}
	out := make([]transport.StatusOption, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, transport.StatusOption{Value: string(s), Label: s.Label()})
	}
	return out
}

func leadDetailResponse(d management.Detail) transport.LeadDetailResponse {
	dealsOut := make([]transport.DealResponse, 0, len(d.Deals))
	for _, deal := range d.Deals {
		dealsOut = append(dealsOut, dealResponse(deal))
	}
	return transport.LeadDetailResponse{
		Lead:             leadResponse(d.Lead),
		Referrer:         userRef(d.Hierarchy.Referrer),
		Advisor:          optionalUserRef(d.Advisor),
		Manager:          optionalUserRef(d.Hierarchy.Manager),
		Office:           officeRef(d.Hierarchy.Office),
		Deals:            dealsOut,
		EditableStatuses: statusOptions(d.EditableStatuses),
		Permissions: transport.LeadPermissions{
			CanEditStatus:       d.Permissions.CanEditStatus,
			CanReassignAdvisor:  d.Permissions.CanReassignAdvisor,
			CanScheduleMeeting:  d.Permissions.CanScheduleMeeting,
			CanScheduleCallback: d.Permissions.CanScheduleCallback,
			CanCreateDeal:       d.Permissions.CanCreateDeal,
		},
	}
}

func listMeta(p listing.Params, total, totalPages int, keep string, columns any) transport.ListMeta {
	return transport.ListMeta{
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
		Filters:    p.Filters,
		Sort:       p.Sort,
		Order:      p.Order,
		KeepQuery:  keep,
		Columns:    columns,
	}
}

func leadListResponse(res management.ListResult) transport.LeadListResponse {
	cols := res.Columns
	items := make([]transport.LeadListItem, 0, len(res.Items))
	for _, row := range res.Items {
		referrer := row.Referrer
		items = append(items, transport.LeadListItem{
			ID:                row.Lead.ID,
			Client:            clientResponse(row.Lead.Client),
			Status:            string(row.Lead.Status),
			StatusLabel:       row.Lead.Status.Label(),
			IsPersonalContact: row.Lead.IsPersonalContact,
			MeetingAt:         row.Lead.MeetingAt,
			Referrer:          rowRef(&referrer, cols.ShowReferrer),
			Advisor:           rowRef(row.Advisor, cols.ShowAdvisor),
			Manager:           rowRef(row.Manager, cols.ShowManager),
			Office:            rowRef(row.Office, cols.ShowOffice),
			DealCount:         row.DealCount,
			CommissionTotal:   row.CommissionTotal,
			CommissionStatus:  string(row.CommissionStatus),
			CreatedAt:         row.Lead.CreatedAt,
		})
	}
	return transport.LeadListResponse{
		Items:    items,
		ListMeta: listMeta(res.Params, res.Total, res.TotalPages, res.KeepQuery, res.Columns),
	}
}

func formOptionsResponse(o management.FormOptions) transport.FormOptionsResponse {
	return transport.FormOptionsResponse{
		Advisors:              userRefs(o.Advisors),
		DefaultAdvisorID:      o.DefaultAdvisorID,
		Referrers:             userRefs(o.Referrers),
		CanChooseReferrer:     o.CanChooseReferrer,
		CanSetPersonalContact: o.CanSetPersonalContact,
		Statuses:              statusOptions(o.Statuses),
	}
}

func dealResponse(d domain.Deal) transport.DealResponse {
	return transport.DealResponse{
		ID:               d.ID,
		LeadID:           d.LeadID,
		Client:           clientResponse(d.Client),
		LoanAmount:       d.LoanAmount,
		Bank:             string(d.Bank),
		PropertyType:     string(d.PropertyType),
		Status:           string(d.Status),
		StatusLabel:      d.Status.Label(),
		CommissionStatus: string(d.CommissionStatus),
		Paid:             transport.PaidResponse{Referrer: d.Paid.Referrer, Manager: d.Paid.Manager, Office: d.Paid.Office},
		IsPersonalDeal:   d.IsPersonalDeal,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func dealDetailResponse(d deals.Detail) transport.DealDetailResponse {
	c := transport.CommissionResponse{
		Referrer: d.Commission.Parts.Referrer,
		Manager:  d.Commission.Parts.Manager,
		Office:   d.Commission.Parts.Office,
		Total:    d.Commission.Parts.Total,
		Own:      d.Own,
		AllPaid:  d.Commission.AllPaid,
	}
	if d.ShowAdvisorCommission {
		advisor := d.Commission.Advisor
		c.Advisor = &advisor
	}
	return transport.DealDetailResponse{
		Deal:       dealResponse(d.Deal),
		Lead:       leadResponse(d.Lead),
		Referrer:   userRef(d.Hierarchy.Referrer),
		Manager:    optionalUserRef(d.Hierarchy.Manager),
		Office:     officeRef(d.Hierarchy.Office),
		Commission: c,
		Permissions: transport.DealPermissions{
			CanEdit:              d.CanManageCommission,
			CanManageCommission:  d.CanManageCommission,
			PersonalDealEditable: d.PersonalDealEditable,
		},
	}
}

func dealListResponse(res deals.ListResult) transport.DealListResponse {
	cols := res.Columns
	items := make([]transport.DealListItem, 0, len(res.Items))
	for _, item := range res.Items {
		row := item.Row
		referrer := row.Referrer
		items = append(items, transport.DealListItem{
			Deal:              dealResponse(row.Deal),
			LeadStatus:        string(row.LeadStatus),
			IsPersonalContact: row.IsPersonalContact,
			Referrer:          rowRef(&referrer, cols.ShowReferrer),
			Advisor:           rowRef(row.Advisor, cols.ShowAdvisor),
			Manager:           rowRef(row.Manager, cols.ShowManager),
			Office:            rowRef(row.Office, cols.ShowOffice),
			Own:               item.Own,
			AllPaid:           item.AllPaid,
		})
	}
	return transport.DealListResponse{
		Items:    items,
		ListMeta: listMeta(res.Params, res.Total, res.TotalPages, res.KeepQuery, res.Columns),
	}
}

func noteResponse(n domain.Note) transport.NoteResponse {
	return transport.NoteResponse{
		ID:        n.ID,
		LeadID:    n.LeadID,
		AuthorID:  n.AuthorID,
		Body:      n.Body,
		IsPrivate: n.IsPrivate,
		CreatedAt: n.CreatedAt,
	}
}

func historyResponse(h domain.HistoryEntry) transport.HistoryEntryResponse {
	return transport.HistoryEntryResponse{
		ID:          h.ID,
		EventType:   string(h.EventType),
		Description: h.Description,
		UserID:      h.UserID,
		NoteID:      h.NoteID,
		CreatedAt:   h.CreatedAt,
	}
}
