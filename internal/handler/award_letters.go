package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"nakl/internal/dto"
	"nakl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AwardLettersHandler struct{ svc service.AwardService }

func NewAwardLettersHandler(svc service.AwardService) *AwardLettersHandler {
	return &AwardLettersHandler{svc: svc}
}

func (h *AwardLettersHandler) Create(c *gin.Context) {
	var req dto.IssueAwardLetterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateAwardLetter(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

// List filters by ?status=; EXPIRED matches letters whose validity has
// lapsed even though their stored status is still ISSUED.
func (h *AwardLettersHandler) List(c *gin.Context) {
	var filter dto.AwardLetterFilter
	if !bindQuery(c, &filter) {
		return
	}
	items, page, err := h.svc.ListAwardLetters(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page)
}

func (h *AwardLettersHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetAwardLetter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *AwardLettersHandler) Issue(c *gin.Context) {
	h.move(c, h.svc.IssueAwardLetter)
}

func (h *AwardLettersHandler) Accept(c *gin.Context) {
	h.move(c, h.svc.AcceptAwardLetter)
}

func (h *AwardLettersHandler) Reject(c *gin.Context) {
	h.move(c, h.svc.RejectAwardLetter)
}

func (h *AwardLettersHandler) move(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*dto.AwardLetterResponse, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// PDF streams the award letter document, generating it on first request.
func (h *AwardLettersHandler) PDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.AwardLetterPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	c.File(path)
}
