package handler

import (
	"net/http"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TendersHandler serves /api/tenders: the state machine plus the nested
// purchase, bid, award and work order endpoints.
type TendersHandler struct {
	tenders   service.TenderService
	documents service.DocumentService
	bids      service.BidService
	awards    service.AwardService
}

func NewTendersHandler(tenders service.TenderService, documents service.DocumentService, bids service.BidService, awards service.AwardService) *TendersHandler {
	return &TendersHandler{tenders: tenders, documents: documents, bids: bids, awards: awards}
}

// ─── Tender CRUD ──────────────────────────────────────────────────────────────

func (h *TendersHandler) List(c *gin.Context) {
	var filter dto.TenderFilter
	if !bindQuery(c, &filter) {
		return
	}
	items, page, err := h.tenders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page)
}

// Create godoc
// @Summary      Create a tender
// @Description  Creates a DRAFT tender with optional items and milestones and allocates its TND number.
// @Tags         tenders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateTenderRequest true "Tender"
// @Success      201  {object} dto.DataResponse{data=dto.TenderResponse}
// @Failure      422  {object} apierror.ValidationError
// @Router       /api/tenders [post]
func (h *TendersHandler) Create(c *gin.Context) {
	var req dto.CreateTenderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *TendersHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.tenders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *TendersHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTenderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *TendersHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tenders.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TendersHandler) Stats(c *gin.Context) {
	resp, err := h.tenders.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// Transition moves the tender along its lifecycle. AWARDED and
// WORK_IN_PROGRESS are refused here; /award and /create-work-order own them.
func (h *TendersHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.Transition(c.Request.Context(), id, model.TenderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// ─── Items / milestones / evaluations ─────────────────────────────────────────

func (h *TendersHandler) AddItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.AddItems(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *TendersHandler) AddMilestones(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddMilestonesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.AddMilestones(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *TendersHandler) UpdateMilestone(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "milestoneId")
	if !ok {
		return
	}
	var req dto.UpdateMilestoneRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.UpdateMilestone(c.Request.Context(), id, milestoneID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *TendersHandler) Evaluate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.EvaluateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.tenders.Evaluate(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

// ─── Document access ──────────────────────────────────────────────────────────

// PurchaseDocuments godoc
// @Summary      Record a tender document purchase
// @Description  The amount must equal the tender's current document price; it is captured on the purchase.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Tender ID"
// @Param        body body dto.PurchaseDocumentsRequest true "Purchase"
// @Success      201  {object} dto.DataResponse{data=dto.PurchaseResponse}
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /api/tenders/{id}/purchase-documents [post]
func (h *TendersHandler) PurchaseDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PurchaseDocumentsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.documents.RecordPurchase(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *TendersHandler) VoidPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	purchaseID, ok := pathID(c, "purchaseId")
	if !ok {
		return
	}
	var req dto.VoidPurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.documents.VoidPurchase(c.Request.Context(), id, purchaseID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// Access reports whether ?vendor_id= may bid on the tender.
func (h *TendersHandler) Access(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	vendorID, err := uuid.Parse(c.Query("vendor_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{"vendor_id": "uuid"}))
		return
	}
	has, err := h.documents.HasAccess(c.Request.Context(), id, vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, dto.AccessResponse{
		TenderID:  id.String(),
		VendorID:  vendorID.String(),
		HasAccess: has,
	})
}

// ─── Bids ─────────────────────────────────────────────────────────────────────

// SubmitBid godoc
// @Summary      Submit a bid
// @Description  Only vendors holding a PAID document purchase may bid, and only while submissions are open.
// @Tags         bids
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Tender ID"
// @Param        body body dto.SubmitBidRequest true "Bid"
// @Success      201  {object} dto.DataResponse{data=dto.BidResponse}
// @Failure      403  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /api/tenders/{id}/submit-bid [post]
func (h *TendersHandler) SubmitBid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitBidRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.bids.SubmitBid(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

func (h *TendersHandler) ScoreBid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bidID, ok := pathID(c, "bidId")
	if !ok {
		return
	}
	var req dto.ScoreBidRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.bids.ScoreBid(c.Request.Context(), id, bidID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *TendersHandler) RejectBid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bidID, ok := pathID(c, "bidId")
	if !ok {
		return
	}
	resp, err := h.bids.RejectBid(c.Request.Context(), id, bidID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// ─── Award / work order ───────────────────────────────────────────────────────

// Award godoc
// @Summary      Award a tender to one bid
// @Tags         awards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Tender ID"
// @Param        body body dto.AwardTenderRequest true "Winning bid"
// @Success      200  {object} dto.DataResponse{data=dto.AwardResponse}
// @Failure      409  {object} apierror.APIError
// @Router       /api/tenders/{id}/award [post]
func (h *TendersHandler) Award(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AwardTenderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.awards.AwardTender(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

func (h *TendersHandler) CreateWorkOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateWorkOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.awards.CreateWorkOrder(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}
