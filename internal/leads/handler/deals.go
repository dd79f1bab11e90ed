package handler

import (
	"net/http"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/deals"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/transport"
	"leadbridge/platform/httpkit"
	"leadbridge/platform/validator"

	"github.com/gin-gonic/gin"
)

// DealsHandler serves /deals and the deal creation endpoint of a lead.
type DealsHandler struct {
	svc     *deals.Service
	viewers access.ViewerResolver
	val     *validator.Validator
}

func NewDealsHandler(svc *deals.Service, viewers access.ViewerResolver, val *validator.Validator) *DealsHandler {
	return &DealsHandler{svc: svc, viewers: viewers, val: val}
}

func (h *DealsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/filter-options", h.FilterOptions)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/commission/ready", h.MarkCommissionReady)
	rg.POST("/:id/commission/paid", h.MarkCommissionPaid)
}

func (h *DealsHandler) List(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	res, err := h.svc.List(c.Request.Context(), v, c.Request.URL.Query())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealListResponse(res))
}

func (h *DealsHandler) FilterOptions(c *gin.Context) {
	v, ok := access.ResolveViewer(c, h.viewers)
	if !ok {
		return
	}
	opts, err := h.svc.FilterOptions(c.Request.Context(), v)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, opts)
}

// Create opens a deal on the lead in the path.
func (h *DealsHandler) Create(c *gin.Context) {
	v, leadID, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CreateDealRequest
	if !bind(c, h.val, &req) {
		return
	}

	d, err := h.svc.CreateDeal(c.Request.Context(), v, leadID, deals.Input{
		LoanAmount:     req.LoanAmount,
		Bank:           domain.Bank(req.Bank),
		PropertyType:   domain.PropertyType(req.PropertyType),
		Status:         domain.DealStatus(req.Status),
		IsPersonalDeal: req.IsPersonalDeal,
		Note:           req.Note,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, dealDetailResponse(d))
}

func (h *DealsHandler) GetByID(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	d, err := h.svc.GetDeal(c.Request.Context(), v, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealDetailResponse(d))
}

func (h *DealsHandler) Update(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.UpdateDealRequest
	if !bind(c, h.val, &req) {
		return
	}

	patch := deals.Patch{LoanAmount: req.LoanAmount, IsPersonalDeal: req.IsPersonalDeal, Note: req.Note}
	if req.Client != nil {
		client := toClientData(*req.Client)
		patch.Client = &client
	}
	if req.Bank != nil {
		bank := domain.Bank(*req.Bank)
		patch.Bank = &bank
	}
	if req.PropertyType != nil {
		pt := domain.PropertyType(*req.PropertyType)
		patch.PropertyType = &pt
	}
	if req.Status != nil {
		status := domain.DealStatus(*req.Status)
		patch.Status = &status
	}

	d, err := h.svc.UpdateDeal(c.Request.Context(), v, id, patch)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealDetailResponse(d))
}

func (h *DealsHandler) MarkCommissionReady(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	d, err := h.svc.MarkCommissionReady(c.Request.Context(), v, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealDetailResponse(d))
}

func (h *DealsHandler) MarkCommissionPaid(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CommissionPaidRequest
	if !bind(c, h.val, &req) {
		return
	}
	d, err := h.svc.MarkCommissionPaid(c.Request.Context(), v, id, domain.CommissionPart(req.Part))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealDetailResponse(d))
}
