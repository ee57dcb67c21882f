package handler

import (
	"net/http"
	"strconv"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/service"

	"github.com/gin-gonic/gin"
)

type AssignmentsHandler struct{ svc service.AssignmentService }

func NewAssignmentsHandler(svc service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{svc: svc}
}

// Create derives an assignment (and, if missing, the tender's work order)
// from an accepted award letter.
func (h *AssignmentsHandler) Create(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *AssignmentsHandler) List(c *gin.Context) {
	var filter dto.AssignmentFilter
	if !bindQuery(c, &filter) {
		return
	}
	items, page, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page)
}

func (h *AssignmentsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *AssignmentsHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignmentStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), id, model.AssignmentStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *AssignmentsHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seq, err := strconv.Atoi(c.Param("index"))
	if err != nil || seq < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid index"))
		return
	}
	resp, err := h.svc.MarkInstallmentPaid(c.Request.Context(), id, seq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}
