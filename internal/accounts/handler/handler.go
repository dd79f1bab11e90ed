package handler

import (
	"net/http"

	"leadbridge/internal/access"
	"leadbridge/internal/accounts/domain"
	"leadbridge/internal/accounts/repository"
	"leadbridge/internal/accounts/service"
	"leadbridge/internal/accounts/transport"
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

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the administration endpoints on an admin-only group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.POST("/users", h.CreateUser)
	rg.GET("/users/:id", h.GetUser)
	rg.PATCH("/users/:id", h.UpdateUser)
	rg.GET("/users/:id/referrer-profile", h.GetReferrerProfile)
	rg.PUT("/users/:id/referrer-profile", h.SetReferrerProfile)
	rg.PUT("/users/:id/manager-profile", h.SetManagerProfile)
	rg.GET("/offices", h.ListOffices)
	rg.POST("/offices", h.CreateOffice)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
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

func parseOptionalID(raw *string) *uuid.UUID {
	if raw == nil || *raw == "" {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	return &id
}

func optionalString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toInput(req transport.UserRequest) service.UserInput {
	in := service.UserInput{
		Email:                           req.Email,
		Password:                        req.Password,
		FirstName:                       req.FirstName,
		LastName:                        req.LastName,
		Phone:                           req.Phone,
		IsActive:                        req.IsActive,
		IsSuperuser:                     req.IsSuperuser,
		HasAdminAccess:                  req.HasAdminAccess,
		CommissionTotalPerMillion:       req.CommissionTotalPerMillion,
		CommissionReferrerPct:           req.CommissionReferrerPct,
		CommissionManagerPct:            req.CommissionManagerPct,
		CommissionOfficePct:             req.CommissionOfficePct,
		AdvisorCommissionPerMillion:     req.AdvisorCommissionPerMillion,
		AdvisorCommissionOwnDeals:       req.AdvisorCommissionOwnDeals,
		AdvisorCommissionStructureDeals: req.AdvisorCommissionStructureDeals,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}
	if req.AdvisorCommissionType != nil {
		t := domain.AdvisorCommissionType(*req.AdvisorCommissionType)
		in.AdvisorCommissionType = &t
	}
	return in
}

func (h *Handler) ListUsers(c *gin.Context) {
	filter := repository.UserFilter{Search: c.Query("q"), ActiveOnly: c.Query("active") == "true"}
	if raw := c.Query("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "unknown role", nil)
			return
		}
		filter.Roles = []domain.Role{role}
	}

	users, err := h.svc.ListUsers(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, transport.NewUserResponse(u))
	}
	httpkit.OK(c, gin.H{"items": out})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.svc.GetUser(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewUserResponse(u))
}

func (h *Handler) CreateUser(c *gin.Context) {
	actor, ok := access.ResolveViewer(c, h.svc)
	if !ok {
		return
	}
	var req transport.UserRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Email == nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"email": "required"})
		return
	}

	u, err := h.svc.CreateUser(c.Request.Context(), actor, toInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewUserResponse(u))
}

func (h *Handler) UpdateUser(c *gin.Context) {
	actor, ok := access.ResolveViewer(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UserRequest
	if !h.bind(c, &req) {
		return
	}

	u, err := h.svc.UpdateUser(c.Request.Context(), actor, id, toInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewUserResponse(u))
}

func profileResponse(p domain.ReferrerProfile) transport.ReferrerProfileResponse {
	ids := make([]string, 0, len(p.AdvisorIDs))
	for _, id := range p.AdvisorIDs {
		ids = append(ids, id.String())
	}
	return transport.ReferrerProfileResponse{
		UserID:              p.UserID.String(),
		ManagerID:           optionalString(p.ManagerID),
		AdvisorIDs:          ids,
		LastChosenAdvisorID: optionalString(p.LastChosenAdvisorID),
	}
}

func (h *Handler) GetReferrerProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.svc.GetReferrerProfile(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profileResponse(p))
}

func (h *Handler) SetReferrerProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.ReferrerProfileRequest
	if !h.bind(c, &req) {
		return
	}
	advisors := make([]uuid.UUID, 0, len(req.AdvisorIDs))
	for _, raw := range req.AdvisorIDs {
		advisors = append(advisors, uuid.MustParse(raw))
	}

	p, err := h.svc.SetReferrerProfile(c.Request.Context(), id, parseOptionalID(req.ManagerID), advisors)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profileResponse(p))
}

func (h *Handler) SetManagerProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.ManagerProfileRequest
	if !h.bind(c, &req) {
		return
	}

	p, err := h.svc.SetManagerProfile(c.Request.Context(), id, parseOptionalID(req.OfficeID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ManagerProfileResponse{UserID: p.UserID.String(), OfficeID: optionalString(p.OfficeID)})
}

func officeResponse(o domain.Office) transport.OfficeResponse {
	return transport.OfficeResponse{ID: o.ID.String(), Name: o.Name, OwnerID: optionalString(o.OwnerID), CreatedAt: o.CreatedAt}
}

func (h *Handler) ListOffices(c *gin.Context) {
	offices, err := h.svc.ListOffices(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.OfficeResponse, 0, len(offices))
	for _, o := range offices {
		out = append(out, officeResponse(o))
	}
	httpkit.OK(c, gin.H{"items": out})
}

func (h *Handler) CreateOffice(c *gin.Context) {
	var req transport.OfficeRequest
	if !h.bind(c, &req) {
		return
	}
	o, err := h.svc.CreateOffice(c.Request.Context(), req.Name, parseOptionalID(req.OwnerID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, officeResponse(o))
}
