package handler

import (
	"net/http"

	"nakl/internal/dto"
	"nakl/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportsHandler serves the read-only /tenders/reports/* routes and the
// per-tender report bundle.
type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

func (h *ReportsHandler) Summary(c *gin.Context) {
	var f dto.ReportFilter
	if !bindQuery(c, &f) {
		return
	}
	out, err := h.svc.Summary(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *ReportsHandler) BidAnalysis(c *gin.Context) {
	var f dto.ReportFilter
	if !bindQuery(c, &f) {
		return
	}
	out, err := h.svc.BidAnalysis(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *ReportsHandler) VendorPerformance(c *gin.Context) {
	var f dto.ReportFilter
	if !bindQuery(c, &f) {
		return
	}
	out, err := h.svc.VendorPerformance(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *ReportsHandler) MilestoneProgress(c *gin.Context) {
	var f dto.ReportFilter
	if !bindQuery(c, &f) {
		return
	}
	out, err := h.svc.MilestoneProgress(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *ReportsHandler) FinancialSummary(c *gin.Context) {
	var f dto.ReportFilter
	if !bindQuery(c, &f) {
		return
	}
	out, err := h.svc.FinancialSummary(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func (h *ReportsHandler) TenderReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.TenderReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}
