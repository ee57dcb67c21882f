package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/infra"
	"nakl/internal/model"
	"nakl/internal/repository"
	"nakl/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AwardService picks the winner and derives the documents that follow it:
// award letter, work order (and, via AssignmentService, the assignment).
type AwardService interface {
	AwardTender(ctx context.Context, tenderID uuid.UUID, req dto.AwardTenderRequest) (*dto.AwardResponse, error)
	CreateWorkOrder(ctx context.Context, actorID, tenderID uuid.UUID, req dto.CreateWorkOrderRequest) (*dto.WorkOrderResponse, error)

	CreateAwardLetter(ctx context.Context, actorID uuid.UUID, req dto.IssueAwardLetterRequest) (*dto.AwardLetterResponse, error)
	IssueAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error)
	AcceptAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error)
	RejectAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error)
	GetAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error)
	ListAwardLetters(ctx context.Context, filter dto.AwardLetterFilter) ([]dto.AwardLetterResponse, dto.Pagination, error)
	AwardLetterPDF(ctx context.Context, letterID uuid.UUID) (string, error)
}

type awardService struct {
	tenders        repository.TenderRepository
	bids           repository.BidRepository
	letters        repository.AwardLetterRepository
	alloc          *Allocator
	dispatcher     *worker.Dispatcher
	events         EventPublisher
	derive         *workOrderDeriver
	pdfStoragePath string
	now            func() time.Time
}

func NewAwardService(
	tenders repository.TenderRepository,
	bids repository.BidRepository,
	letters repository.AwardLetterRepository,
	workOrders repository.WorkOrderRepository,
	postings repository.LedgerPostingRepository,
	alloc *Allocator,
	dispatcher *worker.Dispatcher,
	events EventPublisher,
	pdfStoragePath string,
) AwardService {
	events = publisherOrNop(events)
	return &awardService{
		tenders:    tenders,
		bids:       bids,
		letters:    letters,
		alloc:      alloc,
		dispatcher: dispatcher,
		events:     events,
		derive: &workOrderDeriver{
			tenders:    tenders,
			bids:       bids,
			workOrders: workOrders,
			postings:   postings,
			dispatcher: dispatcher,
			events:     events,
		},
		pdfStoragePath: pdfStoragePath,
		now:            utcNow,
	}
}

// ── AwardTender ───────────────────────────────────────────────────────────────
// Runs under the tender row lock:
//   1. Tender must be SUBMISSION_OPEN or UNDER_EVALUATION
//   2. Bid must belong to the tender and still be SUBMITTED
//   3. Re-check that no WINNER exists (idx_bids_one_winner backs this up)
//   4. Bid -> WINNER, tender -> AWARDED
// Competing bids stay SUBMITTED.

func (s *awardService) AwardTender(ctx context.Context, tenderID uuid.UUID, req dto.AwardTenderRequest) (*dto.AwardResponse, error) {
	bidID, err := parseID(req.BidID, "bid_id")
	if err != nil {
		return nil, err
	}

	var tender *model.Tender
	var bid *model.Bid
	err = runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		var err error
		tender, err = s.tenders.FindForUpdate(ctx, tx, tenderID)
		if err != nil {
			return notFound(err, "tender")
		}
		switch {
		case tender.Status.HasWinner():
			return apierror.Errorf(apierror.KindBidNotEligible, "tender %s has already been awarded", tender.TenderNumber)
		case !tender.Status.Awardable():
			return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s and cannot be awarded", tender.TenderNumber, tender.Status)
		}

		bid, err = s.bids.FindByID(ctx, tx, bidID)
		if err != nil {
			return notFound(err, "bid")
		}
		if bid.TenderID != tender.ID {
			return apierror.Errorf(apierror.KindBidNotEligible, "bid %s belongs to another tender", bid.BidNumber)
		}
		if bid.Status != model.BidSubmitted {
			return apierror.Errorf(apierror.KindBidNotEligible, "bid %s is %s", bid.BidNumber, bid.Status)
		}

		winners, err := s.bids.CountWinners(ctx, tx, tender.ID)
		if err != nil {
			return err
		}
		if winners > 0 {
			return apierror.Errorf(apierror.KindBidNotEligible, "tender %s already has a winning bid", tender.TenderNumber)
		}
		if err := s.bids.UpdateStatus(ctx, tx, bid.ID, model.BidWinner); err != nil {
			if repository.IsConflict(err) {
				return apierror.Wrap(apierror.KindBidNotEligible, err, "tender already has a winning bid")
			}
			return err
		}
		bid.Status = model.BidWinner

		awardDate := s.now()
		if req.AwardDate != nil {
			awardDate = req.AwardDate.UTC()
		}
		tender.Status = model.TenderAwarded
		tender.AwardDate = &awardDate
		if req.WorkStartDate != nil {
			tender.WorkStartDate = req.WorkStartDate
		}
		if req.WorkEndDate != nil {
			tender.WorkEndDate = req.WorkEndDate
		}
		return s.tenders.Save(ctx, tx, tender)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tender", tender.TenderNumber).
		Str("bid", bid.BidNumber).
		Str("vendor_id", bid.VendorID.String()).
		Msg("tender awarded")
	s.events.Publish(ctx, EventTenderAwarded, map[string]any{
		"tender_id": tender.ID, "tender_number": tender.TenderNumber,
		"bid_id": bid.ID, "vendor_id": bid.VendorID, "amount": bid.TotalAmount,
	})
	return &dto.AwardResponse{Tender: toTenderResponse(tender), Bid: toBidResponse(bid)}, nil
}

// ── Work order ────────────────────────────────────────────────────────────────

type workOrderParams struct {
	CustomerID    uuid.UUID
	VendorID      *uuid.UUID
	Description   *string
	DescriptionAr *string
	StartDate     *time.Time
	EndDate       *time.Time
	// Amount overrides the winning bid amount (assignment contract amount)
	Amount *decimal.Decimal
}

func (s *awardService) CreateWorkOrder(ctx context.Context, actorID, tenderID uuid.UUID, req dto.CreateWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	customerID, err := parseID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	params := workOrderParams{
		CustomerID:    customerID,
		Description:   req.Description,
		DescriptionAr: req.DescriptionAr,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}
	if req.VendorID != nil && *req.VendorID != "" {
		vid, err := parseID(*req.VendorID, "vendor_id")
		if err != nil {
			return nil, err
		}
		params.VendorID = &vid
	}

	var wo *model.WorkOrder
	var posting *model.LedgerPosting
	err = s.alloc.Retry(ctx, "create work order", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesWorkOrder)
		if err != nil {
			return err
		}
		return runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
			tender, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
			if err != nil {
				return notFound(err, "tender")
			}
			wo, posting, err = s.derive.create(ctx, tx, actorID, tender, number, params)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.derive.after(ctx, wo, posting)
	resp := toWorkOrderResponse(wo)
	return &resp, nil
}

// workOrderDeriver creates work orders for AwardService.CreateWorkOrder and
// for assignments, which derive their work order in the same transaction.
type workOrderDeriver struct {
	tenders    repository.TenderRepository
	bids       repository.BidRepository
	workOrders repository.WorkOrderRepository
	postings   repository.LedgerPostingRepository
	dispatcher *worker.Dispatcher
	events     EventPublisher
}

// create requires a locked AWARDED tender with exactly one WINNER
// bid. It writes the order and its commitment posting and moves the tender
// to WORK_IN_PROGRESS.
func (d *workOrderDeriver) create(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, tender *model.Tender, number string, p workOrderParams) (*model.WorkOrder, *model.LedgerPosting, error) {
	switch tender.Status {
	case model.TenderAwarded:
	case model.TenderWorkInProgress, model.TenderCompleted:
		return nil, nil, apierror.Errorf(apierror.KindInvalidTransition, "tender %s already has a work order", tender.TenderNumber)
	default:
		return nil, nil, apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s; a work order needs an AWARDED tender", tender.TenderNumber, tender.Status)
	}

	winners, err := d.bids.CountWinners(ctx, tx, tender.ID)
	if err != nil {
		return nil, nil, err
	}
	if winners != 1 {
		return nil, nil, apierror.Errorf(apierror.KindInvalidTransition, "tender %s must have exactly one winning bid, has %d", tender.TenderNumber, winners)
	}
	winner, err := d.bids.FindWinner(ctx, tx, tender.ID)
	if err != nil {
		return nil, nil, err
	}
	if p.VendorID != nil && *p.VendorID != winner.VendorID {
		return nil, nil, apierror.Errorf(apierror.KindValidation, "vendor_id does not match the winning bid")
	}
	if _, err := d.workOrders.FindByTender(ctx, tx, tender.ID); err == nil {
		return nil, nil, apierror.Errorf(apierror.KindInvalidTransition, "tender %s already has a work order", tender.TenderNumber)
	} else if !repository.IsNotFound(err) {
		return nil, nil, err
	}

	amount := winner.TotalAmount
	if p.Amount != nil {
		amount = *p.Amount
	}
	desc := p.Description
	if desc == nil {
		title := tender.Title
		desc = &title
	}
	start := p.StartDate
	if start == nil {
		start = tender.WorkStartDate
	}
	end := p.EndDate
	if end == nil {
		end = tender.WorkEndDate
	}

	wo := &model.WorkOrder{
		OrderNumber:   number,
		TenderID:      tender.ID,
		BidID:         winner.ID,
		CustomerID:    p.CustomerID,
		VendorID:      winner.VendorID,
		Description:   desc,
		DescriptionAr: p.DescriptionAr,
		StartDate:     start,
		EndDate:       end,
		TotalAmount:   amount,
		Currency:      winner.Currency,
		Status:        model.WorkOrderAssigned,
		CreatedByID:   actorID,
	}
	if err := d.workOrders.Create(ctx, tx, wo); err != nil {
		return nil, nil, err
	}

	tender.Status = model.TenderWorkInProgress
	if tender.WorkStartDate == nil {
		tender.WorkStartDate = start
	}
	if tender.WorkEndDate == nil {
		tender.WorkEndDate = end
	}
	if err := d.tenders.Save(ctx, tx, tender); err != nil {
		return nil, nil, err
	}

	posting := newLedgerPosting(model.PostingWorkOrderCommitment, wo.ID, wo.OrderNumber, tender.ID,
		wo.TotalAmount, wo.Currency, fmt.Sprintf("Work order %s for tender %s", wo.OrderNumber, tender.TenderNumber))
	if err := d.postings.Create(ctx, tx, posting); err != nil {
		return nil, nil, err
	}
	return wo, posting, nil
}

// after runs the post-commit side effects of a new work order.
func (d *workOrderDeriver) after(ctx context.Context, wo *model.WorkOrder, posting *model.LedgerPosting) {
	log.Info().
		Str("work_order", wo.OrderNumber).
		Str("tender_id", wo.TenderID.String()).
		Str("amount", wo.TotalAmount.StringFixed(2)).
		Msg("work order created")
	if posting != nil {
		if err := d.dispatcher.EnqueueLedger(ctx, posting.ID); err != nil {
			log.Warn().Err(err).Str("work_order", wo.OrderNumber).Msg("failed to enqueue ledger posting; retry cron will pick it up")
		}
	}
	d.events.Publish(ctx, EventWorkOrderCreated, map[string]any{
		"tender_id": wo.TenderID, "work_order_id": wo.ID, "order_number": wo.OrderNumber,
	})
}

// ── Award letters ─────────────────────────────────────────────────────────────

// CreateAwardLetter drafts the single letter of an award. The awarded amount
// defaults to the bid amount and may only be negotiated down.
func (s *awardService) CreateAwardLetter(ctx context.Context, actorID uuid.UUID, req dto.IssueAwardLetterRequest) (*dto.AwardLetterResponse, error) {
	tenderID, err := parseID(req.TenderID, "tender_id")
	if err != nil {
		return nil, err
	}
	bidID, err := parseID(req.BidID, "bid_id")
	if err != nil {
		return nil, err
	}
	if req.ValidityDays < 1 {
		return nil, apierror.Errorf(apierror.KindValidation, "validity_days must be at least 1")
	}

	var letter model.AwardLetter
	err = s.alloc.Retry(ctx, "create award letter", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesAwardLetter)
		if err != nil {
			return err
		}
		return runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
			tender, err := s.tenders.FindForUpdate(ctx, tx, tenderID)
			if err != nil {
				return notFound(err, "tender")
			}
			if !tender.Status.HasWinner() {
				return apierror.Errorf(apierror.KindInvalidTransition, "tender %s has not been awarded", tender.TenderNumber)
			}
			bid, err := s.bids.FindByID(ctx, tx, bidID)
			if err != nil {
				return notFound(err, "bid")
			}
			if bid.TenderID != tender.ID || bid.Status != model.BidWinner {
				return apierror.Errorf(apierror.KindBidNotEligible, "bid %s is not the winning bid of tender %s", bid.BidNumber, tender.TenderNumber)
			}
			if _, err := s.letters.FindByTender(ctx, tx, tender.ID); err == nil {
				return apierror.Errorf(apierror.KindInvalidTransition, "tender %s already has an award letter", tender.TenderNumber)
			} else if !repository.IsNotFound(err) {
				return err
			}

			awarded := bid.TotalAmount
			if req.AwardedAmount != nil {
				awarded = *req.AwardedAmount
			}
			if !awarded.IsPositive() {
				return apierror.Errorf(apierror.KindInvalidAmount, "awarded_amount must be greater than zero")
			}
			if awarded.GreaterThan(bid.TotalAmount) {
				return apierror.Errorf(apierror.KindInvalidAmount, "awarded_amount %s exceeds the bid amount %s",
					awarded.StringFixed(2), bid.TotalAmount.StringFixed(2))
			}

			issueDate := s.now()
			if req.IssueDate != nil {
				issueDate = req.IssueDate.UTC()
			}
			letter = model.AwardLetter{
				LetterNumber:           number,
				TenderID:               tender.ID,
				BidID:                  bid.ID,
				VendorID:               bid.VendorID,
				AwardedAmount:          awarded,
				OriginalBidAmount:      bid.TotalAmount,
				Discount:               bid.TotalAmount.Sub(awarded),
				Currency:               bid.Currency,
				ScopeOfWork:            req.ScopeOfWork,
				IssueDate:              issueDate,
				ValidityDays:           req.ValidityDays,
				ExpiryDate:             issueDate.AddDate(0, 0, req.ValidityDays),
				Status:                 model.LetterDraft,
				ContractNumber:         req.ContractNumber,
				ContractDate:           req.ContractDate,
				ContractDurationMonths: req.ContractDurationMonths,
				ContractTerms:          req.ContractTerms,
				Notes:                  req.Notes,
				NotifyEmail:            req.NotifyEmail,
				IssuedByID:             actorID,
			}
			return s.letters.Create(ctx, tx, &letter)
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("letter", letter.LetterNumber).Str("tender_id", tenderID.String()).Msg("award letter drafted")
	resp := toAwardLetterResponse(&letter, s.now())
	return &resp, nil
}

// IssueAwardLetter moves a DRAFT letter to ISSUED and queues the vendor email.
func (s *awardService) IssueAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error) {
	letter, err := s.moveLetter(ctx, letterID, model.LetterIssued)
	if err != nil {
		return nil, err
	}
	if letter.NotifyEmail != nil && *letter.NotifyEmail != "" {
		job := worker.EmailJobPayload{AwardLetterID: letter.ID.String(), To: *letter.NotifyEmail}
		if err := s.dispatcher.EnqueueEmail(ctx, job); err != nil {
			log.Warn().Err(err).Str("letter", letter.LetterNumber).Msg("failed to enqueue award letter email")
		}
	}
	resp := toAwardLetterResponse(letter, s.now())
	return &resp, nil
}

func (s *awardService) AcceptAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error) {
	letter, err := s.moveLetter(ctx, letterID, model.LetterAccepted)
	if err != nil {
		return nil, err
	}
	resp := toAwardLetterResponse(letter, s.now())
	return &resp, nil
}

func (s *awardService) RejectAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error) {
	letter, err := s.moveLetter(ctx, letterID, model.LetterRejected)
	if err != nil {
		return nil, err
	}
	resp := toAwardLetterResponse(letter, s.now())
	return &resp, nil
}

// moveLetter applies a letter transition. Expired letters accept none.
func (s *awardService) moveLetter(ctx context.Context, letterID uuid.UUID, target model.AwardLetterStatus) (*model.AwardLetter, error) {
	var letter *model.AwardLetter
	var from model.AwardLetterStatus
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		var err error
		letter, err = s.letters.FindByID(ctx, tx, letterID)
		if err != nil {
			return notFound(err, "award letter")
		}
		now := s.now()
		from = letter.EffectiveStatus(now)
		if from == model.LetterExpired {
			return apierror.Errorf(apierror.KindInvalidTransition, "award letter %s expired on %s", letter.LetterNumber, letter.ExpiryDate.Format("2006-01-02"))
		}
		if !letter.Status.CanTransitionTo(target) {
			return apierror.Errorf(apierror.KindInvalidTransition, "cannot move award letter from %s to %s", letter.Status, target)
		}
		letter.Status = target
		if target == model.LetterIssued {
			letter.IssuedAt = &now
			// a draft sent out after its window restarts the window today
			if now.After(letter.ExpiryDate) {
				letter.IssueDate = now
				letter.ExpiryDate = now.AddDate(0, 0, letter.ValidityDays)
				letter.PDFPath = nil
			}
		} else {
			letter.RespondedAt = &now
		}
		return s.letters.Save(ctx, tx, letter)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("letter", letter.LetterNumber).Str("from", string(from)).Str("to", string(target)).Msg("award letter status changed")
	s.events.Publish(ctx, EventAwardLetterChanged, map[string]any{
		"award_letter_id": letter.ID, "letter_number": letter.LetterNumber, "tender_id": letter.TenderID, "status": target,
	})
	return letter, nil
}

func (s *awardService) GetAwardLetter(ctx context.Context, letterID uuid.UUID) (*dto.AwardLetterResponse, error) {
	letter, err := s.letters.FindByID(ctx, nil, letterID)
	if err != nil {
		return nil, notFound(err, "award letter")
	}
	resp := toAwardLetterResponse(letter, s.now())
	return &resp, nil
}

func (s *awardService) ListAwardLetters(ctx context.Context, filter dto.AwardLetterFilter) ([]dto.AwardLetterResponse, dto.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	now := s.now()
	letters, total, err := s.letters.List(ctx, filter, now)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	out := make([]dto.AwardLetterResponse, 0, len(letters))
	for i := range letters {
		out = append(out, toAwardLetterResponse(&letters[i], now))
	}
	return out, dto.NewPagination(filter.Page, filter.Limit, total), nil
}

// AwardLetterPDF returns the path of the rendered letter, rendering it on
// first use or when the stored file has gone missing.
func (s *awardService) AwardLetterPDF(ctx context.Context, letterID uuid.UUID) (string, error) {
	letter, err := s.letters.FindByID(ctx, nil, letterID)
	if err != nil {
		return "", notFound(err, "award letter")
	}
	if letter.PDFPath != nil && *letter.PDFPath != "" {
		if _, err := os.Stat(*letter.PDFPath); err == nil {
			return *letter.PDFPath, nil
		}
	}
	path, err := infra.GenerateAwardLetterPDF(letter, s.pdfStoragePath)
	if err != nil {
		return "", err
	}
	letter.PDFPath = &path
	if err := s.letters.Save(ctx, nil, letter); err != nil {
		log.Warn().Err(err).Str("letter", letter.LetterNumber).Msg("failed to store pdf path")
	}
	return path, nil
}
