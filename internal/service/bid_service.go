package service

import (
	"context"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	defaultTechnicalWeight = decimal.NewFromInt(70)
	defaultFinancialWeight = decimal.NewFromInt(30)
	hundred                = decimal.NewFromInt(100)
)

type BidService interface {
	SubmitBid(ctx context.Context, tenderID uuid.UUID, req dto.SubmitBidRequest) (*dto.BidResponse, error)
	ScoreBid(ctx context.Context, tenderID, bidID uuid.UUID, req dto.ScoreBidRequest) (*dto.BidResponse, error)
	RejectBid(ctx context.Context, tenderID, bidID uuid.UUID) (*dto.BidResponse, error)
}

type bidService struct {
	tenders   repository.TenderRepository
	purchases repository.PurchaseRepository
	bids      repository.BidRepository
	alloc     *Allocator
	events    EventPublisher
}

func NewBidService(
	tenders repository.TenderRepository,
	purchases repository.PurchaseRepository,
	bids repository.BidRepository,
	alloc *Allocator,
	events EventPublisher,
) BidService {
	return &bidService{tenders: tenders, purchases: purchases, bids: bids, alloc: alloc, events: publisherOrNop(events)}
}

// SubmitBid checks, inside one transaction: the tender accepts bids, the
// vendor holds a PAID document purchase, and the amount is positive. The bid
// and its items are written together.
func (s *bidService) SubmitBid(ctx context.Context, tenderID uuid.UUID, req dto.SubmitBidRequest) (*dto.BidResponse, error) {
	vendorID, err := parseID(req.VendorID, "vendor_id")
	if err != nil {
		return nil, err
	}
	if !req.TotalAmount.IsPositive() {
		return nil, apierror.Errorf(apierror.KindInvalidAmount, "total_amount must be greater than zero")
	}
	items, err := buildBidItems(req.Items)
	if err != nil {
		return nil, err
	}

	var bid model.Bid
	err = s.alloc.Retry(ctx, "submit bid", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesBid)
		if err != nil {
			return err
		}
		return runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
			t, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
			if err != nil {
				return notFound(err, "tender")
			}
			if !t.Status.AcceptsBids() {
				return apierror.Errorf(apierror.KindTenderNotOpen, "tender %s is %s and not accepting bids", t.TenderNumber, t.Status)
			}
			paid, err := s.purchases.HasPaid(ctx, tx, tenderID, vendorID)
			if err != nil {
				return err
			}
			if !paid {
				return apierror.Errorf(apierror.KindDocumentsNotPurchased, "vendor has not purchased the documents for tender %s", t.TenderNumber)
			}

			bid = model.Bid{
				BidNumber:     number,
				TenderID:      t.ID,
				VendorID:      vendorID,
				TotalAmount:   req.TotalAmount,
				Currency:      t.Currency,
				Status:        model.BidSubmitted,
				SubmittedDate: utcNow(),
				Notes:         req.Notes,
				Items:         cloneBidItems(items),
			}
			return s.bids.Create(ctx, tx, &bid)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("bid", bid.BidNumber).
		Str("tender_id", tenderID.String()).
		Str("vendor_id", vendorID.String()).
		Str("amount", bid.TotalAmount.StringFixed(2)).
		Msg("bid submitted")
	s.events.Publish(ctx, EventBidSubmitted, map[string]any{
		"tender_id": tenderID, "bid_id": bid.ID, "bid_number": bid.BidNumber, "vendor_id": vendorID,
	})
	resp := toBidResponse(&bid)
	return &resp, nil
}

func buildBidItems(reqs []dto.BidItemRequest) ([]model.BidItem, error) {
	items := make([]model.BidItem, 0, len(reqs))
	for _, r := range reqs {
		item := model.BidItem{
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			TotalPrice:  r.Quantity.Mul(r.UnitPrice).Round(2),
		}
		if r.TenderItemID != nil && *r.TenderItemID != "" {
			id, err := parseID(*r.TenderItemID, "tender_item_id")
			if err != nil {
				return nil, err
			}
			item.TenderItemID = &id
		}
		items = append(items, item)
	}
	return items, nil
}

// cloneBidItems gives each attempt fresh rows so a retried insert does not
// reuse ids assigned by a rolled-back one.
func cloneBidItems(items []model.BidItem) []model.BidItem {
	out := make([]model.BidItem, len(items))
	copy(out, items)
	return out
}

// ScoreBid records the evaluation panel's scores. Total is the weighted sum
// with weights in percent (default 70/30).
func (s *bidService) ScoreBid(ctx context.Context, tenderID, bidID uuid.UUID, req dto.ScoreBidRequest) (*dto.BidResponse, error) {
	tw, fw := defaultTechnicalWeight, defaultFinancialWeight
	if req.TechnicalWeight != nil || req.FinancialWeight != nil {
		if req.TechnicalWeight == nil || req.FinancialWeight == nil {
			return nil, apierror.Errorf(apierror.KindValidation, "technical_weight and financial_weight go together")
		}
		tw, fw = *req.TechnicalWeight, *req.FinancialWeight
		if tw.IsNegative() || fw.IsNegative() || !tw.Add(fw).Equal(hundred) {
			return nil, apierror.Errorf(apierror.KindValidation, "weights must be non-negative and sum to 100")
		}
	}
	total := req.TechnicalScore.Mul(tw).Add(req.FinancialScore.Mul(fw)).Div(hundred).Round(2)

	var bid *model.Bid
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		t, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
		if err != nil {
			return notFound(err, "tender")
		}
		if t.Status != model.TenderUnderEvaluation {
			return apierror.Errorf(apierror.KindInvalidTransition, "bids are scored while the tender is UNDER_EVALUATION, tender %s is %s", t.TenderNumber, t.Status)
		}
		bid, err = s.findTenderBid(ctx, tx, tenderID, bidID)
		if err != nil {
			return err
		}
		if bid.Status != model.BidSubmitted {
			return apierror.Errorf(apierror.KindBidNotEligible, "bid %s is %s", bid.BidNumber, bid.Status)
		}
		tech, fin := req.TechnicalScore, req.FinancialScore
		bid.TechnicalScore, bid.FinancialScore, bid.TotalScore = &tech, &fin, &total
		return s.bids.SaveScores(ctx, tx, bid)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bid", bid.BidNumber).Str("total_score", total.String()).Msg("bid scored")
	resp := toBidResponse(bid)
	return &resp, nil
}

// RejectBid marks a SUBMITTED bid REJECTED once submissions are closed.
// Awarding never rejects competing bids on its own.
func (s *bidService) RejectBid(ctx context.Context, tenderID, bidID uuid.UUID) (*dto.BidResponse, error) {
	var bid *model.Bid
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		t, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
		if err != nil {
			return notFound(err, "tender")
		}
		switch t.Status {
		case model.TenderDraft, model.TenderPublished, model.TenderSubmissionOpen:
			return apierror.Errorf(apierror.KindInvalidTransition, "bids cannot be rejected while tender %s is %s", t.TenderNumber, t.Status)
		}
		bid, err = s.findTenderBid(ctx, tx, tenderID, bidID)
		if err != nil {
			return err
		}
		if bid.Status != model.BidSubmitted {
			return apierror.Errorf(apierror.KindBidNotEligible, "bid %s is %s", bid.BidNumber, bid.Status)
		}
		bid.Status = model.BidRejected
		return s.bids.UpdateStatus(ctx, tx, bid.ID, model.BidRejected)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bid", bid.BidNumber).Msg("bid rejected")
	resp := toBidResponse(bid)
	return &resp, nil
}

// findTenderBid loads a bid and hides bids of other tenders as not found.
func (s *bidService) findTenderBid(ctx context.Context, tx *gorm.DB, tenderID, bidID uuid.UUID) (*model.Bid, error) {
	b, err := s.bids.FindByID(ctx, tx, bidID)
	if err != nil {
		return nil, notFound(err, "bid")
	}
	if b.TenderID != tenderID {
		return nil, apierror.NotFound("bid")
	}
	return b, nil
}
