package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/lifecycle"
	"leadbridge/internal/leads/management"
	"leadbridge/internal/leads/transport"
	"leadbridge/platform/httpkit"
	"leadbridge/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler serves the lead endpoints: CRUD, lists and the meeting and callback flows.
type Handler struct {
	mgmt      *management.Service
	lifecycle *lifecycle.Service
	notes     *NotesHandler
	deals     *DealsHandler
	viewers   access.ViewerResolver
	val       *validator.Validator
}

func New(mgmt *management.Service, lc *lifecycle.Service, notes *NotesHandler, deals *DealsHandler, viewers access.ViewerResolver, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, lifecycle: lc, notes: notes, deals: deals, viewers: viewers, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/form-options", h.FormOptions)
	rg.GET("/filter-options", h.FilterOptions)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/meeting", h.ScheduleMeeting)
	rg.POST("/:id/meeting/complete", h.CompleteMeeting)
	rg.POST("/:id/meeting/cancel", h.CancelMeeting)
	rg.POST("/:id/callback", h.ScheduleCallback)
	rg.GET("/:id/notes", h.notes.ListNotes)
	rg.POST("/:id/notes", h.notes.AddNote)
	rg.GET("/:id/history", h.notes.ListHistory)
	rg.POST("/:id/deals", h.deals.Create)
}

func bind(c *gin.Context, val *validator.Validator, req any) bool {
	// An empty body binds to the zero request.
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// request resolves the viewer and the :id path parameter.
func request(c *gin.Context, viewers access.ViewerResolver) (access.Viewer, uuid.UUID, bool) {
	v, ok := access.ResolveViewer(c, viewers)
	if !ok {
		return access.Viewer{}, uuid.Nil, false
	}
	id, ok := pathID(c)
	return v, id, ok
}

func (h *Handler) List(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	res, err := h.mgmt.List(c.Request.Context(), v, c.Request.URL.Query())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leadListResponse(res))
}

func (h *Handler) FilterOptions(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	opts, err := h.mgmt.FilterOptions(c.Request.Context(), v)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, opts)
}

func (h *Handler) FormOptions(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	opts, err := h.mgmt.FormOptions(c.Request.Context(), v)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, formOptionsResponse(opts))
}

func (h *Handler) Create(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !bind(c, h.val, &req) {
		return
	}

	d, err := h.mgmt.Create(c.Request.Context(), v, management.CreateInput{
		Client:            toClientData(req.Client),
		ReferrerID:        req.ReferrerID,
		AdvisorID:         req.AdvisorID,
		Description:       req.Description,
		IsPersonalContact: req.IsPersonalContact,
		Note:              req.Note,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, leadDetailResponse(d))
}

func (h *Handler) GetByID(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	h.respondDetail(c, v, id)
}

func (h *Handler) respondDetail(c *gin.Context, v access.Viewer, id uuid.UUID) {
	d, err := h.mgmt.Get(c.Request.Context(), v, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leadDetailResponse(d))
}

func (h *Handler) Update(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !bind(c, h.val, &req) {
		return
	}

	in := management.UpdateInput{Description: req.Description}
	if req.Client != nil {
		client := toClientData(*req.Client)
		in.Client = &client
	}
	if req.Status != nil {
		status := domain.CommunicationStatus(*req.Status)
		in.Status = &status
	}
	if req.AdvisorID.Set {
		if req.AdvisorID.Value == nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"advisorId": "cannot be cleared"})
			return
		}
		in.AdvisorID = req.AdvisorID.Value
	}

	d, err := h.mgmt.Update(c.Request.Context(), v, id, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leadDetailResponse(d))
}

func (h *Handler) ScheduleMeeting(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.ScheduleMeetingRequest
	if !bind(c, h.val, &req) {
		return
	}
	if _, err := h.lifecycle.ScheduleMeeting(c.Request.Context(), v, id, req.MeetingAt, req.Note); httpkit.HandleError(c, err) {
		return
	}
	h.respondDetail(c, v, id)
}

func (h *Handler) CompleteMeeting(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CompleteMeetingRequest
	if !bind(c, h.val, &req) {
		return
	}
	action := domain.NextAction(req.NextAction)
	if _, err := h.lifecycle.CompleteMeeting(c.Request.Context(), v, id, action, req.Note); httpkit.HandleError(c, err) {
		return
	}
	h.respondDetail(c, v, id)
}

func (h *Handler) CancelMeeting(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CancelMeetingRequest
	if !bind(c, h.val, &req) {
		return
	}
	if _, err := h.lifecycle.CancelMeeting(c.Request.Context(), v, id, req.Note); httpkit.HandleError(c, err) {
		return
	}
	h.respondDetail(c, v, id)
}

func (h *Handler) ScheduleCallback(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.ScheduleCallbackRequest
	if !bind(c, h.val, &req) {
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, req.Date, time.Local)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"date": "datetime"})
		return
	}
	if _, err := h.lifecycle.ScheduleCallback(c.Request.Context(), v, id, date, req.Note); httpkit.HandleError(c, err) {
		return
	}
	h.respondDetail(c, v, id)
}
