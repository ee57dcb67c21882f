package service

import (
	"context"
	"fmt"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/repository"
	"nakl/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DocumentService is the access gate: vendors bid only after a PAID
// document purchase for the same tender.
type DocumentService interface {
	RecordPurchase(ctx context.Context, tenderID uuid.UUID, req dto.PurchaseDocumentsRequest) (*dto.PurchaseResponse, error)
	HasAccess(ctx context.Context, tenderID, vendorID uuid.UUID) (bool, error)
	VoidPurchase(ctx context.Context, tenderID, purchaseID uuid.UUID, reason string) (*dto.PurchaseResponse, error)
}

type documentService struct {
	tenders    repository.TenderRepository
	purchases  repository.PurchaseRepository
	postings   repository.LedgerPostingRepository
	alloc      *Allocator
	dispatcher *worker.Dispatcher
	events     EventPublisher
}

func NewDocumentService(
	tenders repository.TenderRepository,
	purchases repository.PurchaseRepository,
	postings repository.LedgerPostingRepository,
	alloc *Allocator,
	dispatcher *worker.Dispatcher,
	events EventPublisher,
) DocumentService {
	return &documentService{
		tenders:    tenders,
		purchases:  purchases,
		postings:   postings,
		alloc:      alloc,
		dispatcher: dispatcher,
		events:     publisherOrNop(events),
	}
}

// RecordPurchase stores a PAID purchase whose amount must equal the tender's
// current document price. The amount is snapshotted on the purchase and a
// revenue posting for the ledger is written in the same transaction.
func (s *documentService) RecordPurchase(ctx context.Context, tenderID uuid.UUID, req dto.PurchaseDocumentsRequest) (*dto.PurchaseResponse, error) {
	vendorID, err := parseID(req.VendorID, "vendor_id")
	if err != nil {
		return nil, err
	}

	var purchase model.DocumentPurchase
	var posting *model.LedgerPosting
	var tenderNumber string
	err = s.alloc.Retry(ctx, "record document purchase", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesDocumentPurchase)
		if err != nil {
			return err
		}
		return runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
			t, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
			if err != nil {
				return notFound(err, "tender")
			}
			if !t.Status.SellsDocuments() {
				return apierror.Errorf(apierror.KindTenderNotOpen,
					"tender %s is %s; documents are sold while PUBLISHED or SUBMISSION_OPEN", t.TenderNumber, t.Status)
			}
			if !req.Amount.Equal(t.DocumentPrice) {
				return apierror.Errorf(apierror.KindPriceMismatch,
					"amount %s does not match the document price %s", req.Amount.StringFixed(2), t.DocumentPrice.StringFixed(2))
			}

			purchase = model.DocumentPurchase{
				PurchaseNumber: number,
				TenderID:       t.ID,
				VendorID:       vendorID,
				Amount:         t.DocumentPrice,
				PaymentMethod:  req.PaymentMethod,
				PaymentRef:     req.PaymentRef,
				Status:         model.PurchasePaid,
				PurchaseDate:   utcNow(),
			}
			if err := s.purchases.Create(ctx, tx, &purchase); err != nil {
				return err
			}
			tenderNumber = t.TenderNumber

			posting = nil
			if purchase.Amount.IsPositive() {
				posting = newLedgerPosting(model.PostingDocumentRevenue, purchase.ID, purchase.PurchaseNumber,
					t.ID, purchase.Amount, t.Currency,
					fmt.Sprintf("Tender documents %s for %s", purchase.PurchaseNumber, t.TenderNumber))
				return s.postings.Create(ctx, tx, posting)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("purchase", purchase.PurchaseNumber).
		Str("tender", tenderNumber).
		Str("vendor_id", vendorID.String()).
		Str("amount", purchase.Amount.StringFixed(2)).
		Msg("document purchase recorded")

	if posting != nil {
		if err := s.dispatcher.EnqueueLedger(ctx, posting.ID); err != nil {
			log.Warn().Err(err).Str("purchase", purchase.PurchaseNumber).Msg("failed to enqueue ledger posting; retry cron will pick it up")
		}
	}
	s.events.Publish(ctx, EventDocumentsPurchased, map[string]any{
		"tender_id": tenderID, "vendor_id": vendorID, "purchase_number": purchase.PurchaseNumber,
	})
	resp := toPurchaseResponse(&purchase)
	return &resp, nil
}

func (s *documentService) HasAccess(ctx context.Context, tenderID, vendorID uuid.UUID) (bool, error) {
	if _, err := s.tenders.FindByID(ctx, nil, tenderID); err != nil {
		return false, notFound(err, "tender")
	}
	return s.purchases.HasPaid(ctx, nil, tenderID, vendorID)
}

// VoidPurchase withdraws a purchase; the vendor loses bidding access unless
// another PAID purchase exists. Bids already submitted are kept.
func (s *documentService) VoidPurchase(ctx context.Context, tenderID, purchaseID uuid.UUID, reason string) (*dto.PurchaseResponse, error) {
	var p *model.DocumentPurchase
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		// Lock the tender so a concurrent bid sees either the purchase or its voiding.
		if _, err := s.tenders.FindForUpdate(ctx, tx, tenderID); err != nil {
			return notFound(err, "tender")
		}
		var err error
		p, err = s.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return notFound(err, "document purchase")
		}
		if p.TenderID != tenderID {
			return apierror.NotFound("document purchase")
		}
		if p.Status == model.PurchaseVoided {
			return apierror.Errorf(apierror.KindInvalidTransition, "purchase %s is already voided", p.PurchaseNumber)
		}
		now := utcNow()
		p.Status = model.PurchaseVoided
		p.VoidedAt = &now
		p.VoidReason = &reason
		return s.purchases.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("purchase", p.PurchaseNumber).Str("reason", reason).Msg("document purchase voided")
	resp := toPurchaseResponse(p)
	return &resp, nil
}
