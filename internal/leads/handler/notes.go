package handler

import (
	"net/http"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/notes"
	"leadbridge/internal/leads/transport"
	"leadbridge/platform/httpkit"
	"leadbridge/platform/validator"

	"github.com/gin-gonic/gin"
)

// NotesHandler handles HTTP requests for lead notes and history.
// This is separate from the main Handler to allow independent wiring.
type NotesHandler struct {
	svc     *notes.Service
	viewers access.ViewerResolver
	val     *validator.Validator
}

// NewNotesHandler creates a new notes handler.
func NewNotesHandler(svc *notes.Service, viewers access.ViewerResolver, val *validator.Validator) *NotesHandler {
	return &NotesHandler{svc: svc, viewers: viewers, val: val}
}

func (h *NotesHandler) ListNotes(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), v, id)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.NoteResponse, 0, len(list))
	for _, n := range list {
		out = append(out, noteResponse(n))
	}
	httpkit.OK(c, gin.H{"items": out})
}

func (h *NotesHandler) AddNote(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	var req transport.CreateNoteRequest
	if !bind(c, h.val, &req) {
		return
	}

	created, err := h.svc.Add(c.Request.Context(), v, id, req.Body, req.IsPrivate)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, noteResponse(created))
}

func (h *NotesHandler) ListHistory(c *gin.Context) {
	v, id, ok := request(c, h.viewers)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), v, id)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse(e))
	}
	httpkit.OK(c, gin.H{"items": out})
}
