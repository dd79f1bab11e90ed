package handler

import (
	"net/http"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/stats/service"
	"leadbridge/internal/stats/transport"
	"leadbridge/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"
)

type Handler struct {
	svc     *service.Service
	viewers access.ViewerResolver
	now     func() time.Time
}

func New(svc *service.Service, viewers access.ViewerResolver) *Handler {
	return &Handler{svc: svc, viewers: viewers, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.GET("/advisors", h.Advisors)
	rg.GET("/advisors/:id", h.Advisor)
	rg.GET("/referrers", h.Referrers)
	rg.GET("/referrers/:id", h.Referrer)
}

func (h *Handler) filter(c *gin.Context) (service.DateFilter, bool) {
	var q transport.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return service.DateFilter{}, false
	}
	return service.ParseDateFilter(q.Preset, q.DateFrom, q.DateTo, h.now()), true
}

func (h *Handler) Me(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	d, err := h.svc.Me(c.Request.Context(), v, f)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dashboardResponse(d))
}

type dashboardFunc func(c *gin.Context, v access.Viewer, id uuid.UUID, f service.DateFilter) (service.Dashboard, error)

func (h *Handler) userDashboard(c *gin.Context, load dashboardFunc) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	d, err := load(c, v, id, f)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dashboardResponse(d))
}

func (h *Handler) Advisor(c *gin.Context) {
	h.userDashboard(c, func(c *gin.Context, v access.Viewer, id uuid.UUID, f service.DateFilter) (service.Dashboard, error) {
		return h.svc.ForAdvisor(c.Request.Context(), v, id, f)
	})
}

func (h *Handler) Referrer(c *gin.Context) {
	h.userDashboard(c, func(c *gin.Context, v access.Viewer, id uuid.UUID, f service.DateFilter) (service.Dashboard, error) {
		return h.svc.ForReferrer(c.Request.Context(), v, id, f)
	})
}

func (h *Handler) Advisors(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	lines, err := h.svc.AdvisorsBulk(c.Request.Context(), v, f)
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]transport.AdvisorLineResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, transport.AdvisorLineResponse{User: userResponse(l.User), AdvisorStatsResponse: advisorResponse(l.AdvisorStats)})
	}
	httpkit.OK(c, transport.AdvisorListResponse{Items: items, Filter: filterResponse(f)})
}

func (h *Handler) Referrers(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	lines, err := h.svc.ReferrersBulk(c.Request.Context(), v, f)
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]transport.ReferrerLineResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, transport.ReferrerLineResponse{User: userResponse(l.User), ReferrerStatsResponse: referrerResponse(l.Summary)})
	}
	httpkit.OK(c, transport.ReferrerListResponse{Items: items, Filter: filterResponse(f)})
}

func userResponse(u accounts.UserRef) transport.UserResponse {
	return transport.UserResponse{ID: u.ID, Name: u.FullName(), Role: string(u.Role)}
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func filterResponse(f service.DateFilter) transport.FilterResponse {
	return transport.FilterResponse{Preset: f.Preset, DateFrom: dateString(f.Range.From), DateTo: dateString(f.Range.To)}
}

func referrerResponse(s service.Summary) transport.ReferrerStatsResponse {
	return transport.ReferrerStatsResponse{
		LeadsSent:       s.Leads,
		MeetingsPlanned: s.MeetingsPlanned,
		MeetingsDone:    s.MeetingsDone,
		DealsCreated:    s.DealsCreated,
		DealsDone:       s.DealsCompleted,
	}
}

func advisorResponse(s service.AdvisorStats) transport.AdvisorStatsResponse {
	return transport.AdvisorStatsResponse{
		LeadsReceived:          s.Leads,
		MeetingsPlanned:        s.MeetingsPlanned,
		MeetingsDone:           s.MeetingsDone,
		DealsCreated:           s.DealsCreated,
		DealsCompleted:         s.DealsCompleted,
		DealsCreatedPersonal:   s.DealsCreatedPersonal,
		DealsCompletedPersonal: s.DealsCompletedPersonal,
	}
}

func dashboardResponse(d service.Dashboard) transport.DashboardResponse {
	resp := transport.DashboardResponse{User: userResponse(d.User), Filter: filterResponse(d.Filter)}
	if d.Advisor != nil {
		a := advisorResponse(*d.Advisor)
		resp.Advisor = &a
	}
	if d.Referrer != nil {
		r := referrerResponse(*d.Referrer)
		resp.Referrer = &r
	}
	if d.Overview != nil {
		o := referrerResponse(*d.Overview)
		resp.Overview = &o
	}
	if d.Split != nil {
		split := &transport.SplitResponse{PersonalReferrer: referrerResponse(d.Split.PersonalReferrer)}
		if team := d.Split.Team; team != nil {
			split.Team = &transport.TeamStatsResponse{Members: team.Members, ReferrerStatsResponse: referrerResponse(team.Summary)}
		}
		resp.Split = split
	}
	return resp
}
