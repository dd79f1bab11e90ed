package activity

import (
	"net/http"
	"strings"
	"time"

	"leadbridge/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	msgInvalidRequest = "invalid request"
	msgInvalidAction  = "unknown action"
)

type listQuery struct {
	UserID   string `form:"userId"`
	Action   string `form:"action"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1"`
}

type entryResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	UserName    string     `json:"userName"`
	UserEmail   string     `json:"userEmail"`
	Action      string     `json:"action"`
	ObjectType  string     `json:"objectType"`
	ObjectID    *uuid.UUID `json:"objectId,omitempty"`
	Description string     `json:"description"`
	IPAddress   string     `json:"ipAddress"`
	UserAgent   string     `json:"userAgent"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type listResponse struct {
	Items      []entryResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activity", h.List)
}

func (q listQuery) filter() (ListFilter, string) {
	f := ListFilter{Page: q.Page, PageSize: q.PageSize, Action: Action(strings.ToUpper(strings.TrimSpace(q.Action)))}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.Action != "" && !f.Action.Valid() {
		return f, msgInvalidAction
	}
	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			return f, msgInvalidRequest
		}
		f.UserID = &id
	}
	return f, ""
}

// List serves the activity log to superusers, newest first.
func (h *Handler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	f, problem := q.filter()
	if problem != "" {
		httpkit.Error(c, http.StatusBadRequest, problem, nil)
		return
	}

	rows, total, err := h.store.List(c.Request.Context(), f)
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]entryResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, entryResponse{
			ID:          r.ID,
			UserID:      r.UserID,
			UserName:    r.UserName,
			UserEmail:   r.UserEmail,
			Action:      string(r.Action),
			ObjectType:  r.ObjectType,
			ObjectID:    r.ObjectID,
			Description: r.Description,
			IPAddress:   r.IPAddress,
			UserAgent:   r.UserAgent,
			CreatedAt:   r.CreatedAt,
		})
	}
	httpkit.OK(c, listResponse{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	})
}
