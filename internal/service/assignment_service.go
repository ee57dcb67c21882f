package service

import (
	"context"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/repository"
	"nakl/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultProjectDurationDays = 180

type AssignmentService interface {
	Create(ctx context.Context, actorID uuid.UUID, req dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.AssignmentResponse, error)
	List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, dto.Pagination, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target model.AssignmentStatus) (*dto.AssignmentResponse, error)
	MarkInstallmentPaid(ctx context.Context, id uuid.UUID, sequence int) (*dto.AssignmentResponse, error)
}

type assignmentService struct {
	tenders     repository.TenderRepository
	letters     repository.AwardLetterRepository
	assignments repository.AssignmentRepository
	alloc       *Allocator
	derive      *workOrderDeriver
	events      EventPublisher
	now         func() time.Time
}

func NewAssignmentService(
	tenders repository.TenderRepository,
	bids repository.BidRepository,
	letters repository.AwardLetterRepository,
	workOrders repository.WorkOrderRepository,
	postings repository.LedgerPostingRepository,
	assignments repository.AssignmentRepository,
	alloc *Allocator,
	dispatcher *worker.Dispatcher,
	events EventPublisher,
) AssignmentService {
	events = publisherOrNop(events)
	return &assignmentService{
		tenders:     tenders,
		letters:     letters,
		assignments: assignments,
		alloc:       alloc,
		derive: &workOrderDeriver{
			tenders:    tenders,
			bids:       bids,
			workOrders: workOrders,
			postings:   postings,
			dispatcher: dispatcher,
			events:     events,
		},
		events: events,
		now:    utcNow,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────
// One transaction:
//   1. Letter must be ACCEPTED (and not expired) with no assignment yet
//   2. Contract amount = awarded amount, end date = start + duration
//   3. Payment schedule must sum to the contract amount
//   4. Work order derived on the tender (tender -> WORK_IN_PROGRESS)
//   5. Assignment + schedule written in DRAFT

func (s *assignmentService) Create(ctx context.Context, actorID uuid.UUID, req dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	letterID, err := parseID(req.AwardLetterID, "award_letter_id")
	if err != nil {
		return nil, err
	}
	customerID, err := parseID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	duration := req.ProjectDurationDays
	if duration <= 0 {
		duration = defaultProjectDurationDays
	}
	start := req.StartDate.UTC()
	expectedEnd := start.AddDate(0, 0, duration)

	var asg model.Assignment
	var wo *model.WorkOrder
	var posting *model.LedgerPosting
	err = s.alloc.Retry(ctx, "create assignment", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesAssignment)
		if err != nil {
			return err
		}
		woNumber, err := s.workOrderNumber(ctx, letterID)
		if err != nil {
			return err
		}
		wo, posting = nil, nil

		return runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
			letter, err := s.letters.FindByID(ctx, tx, letterID)
			if err != nil {
				return notFound(err, "award letter")
			}
			if st := letter.EffectiveStatus(s.now()); st != model.LetterAccepted {
				return apierror.Errorf(apierror.KindInvalidTransition, "award letter %s is %s; assignments need an ACCEPTED letter", letter.LetterNumber, st)
			}
			exists, err := s.assignments.ExistsForLetter(ctx, tx, letter.ID)
			if err != nil {
				return err
			}
			if exists {
				return apierror.Errorf(apierror.KindInvalidTransition, "award letter %s already has an assignment", letter.LetterNumber)
			}

			contract := letter.AwardedAmount
			schedule, err := buildSchedule(req.PaymentSchedule, contract, expectedEnd)
			if err != nil {
				return err
			}

			tender, err := s.tenders.FindForUpdate(ctx, tx, letter.TenderID)
			if err != nil {
				return notFound(err, "tender")
			}
			var woID uuid.UUID
			if tender.Status == model.TenderWorkInProgress {
				// A work order was created directly after the award; link it.
				existing, err := s.derive.workOrders.FindByTender(ctx, tx, tender.ID)
				if err != nil {
					return notFound(err, "work order")
				}
				woID = existing.ID
			} else {
				if woNumber == "" && tender.Status == model.TenderAwarded {
					// tender was awarded after the pre-read; start over
					return apierror.Errorf(apierror.KindAllocationConflict, "tender %s changed while creating the assignment", tender.TenderNumber)
				}
				wo, posting, err = s.derive.create(ctx, tx, actorID, tender, woNumber, workOrderParams{
					CustomerID:  customerID,
					VendorID:    &letter.VendorID,
					Description: req.WorkDetails,
					StartDate:   &start,
					EndDate:     &expectedEnd,
					Amount:      &contract,
				})
				if err != nil {
					return err
				}
				woID = wo.ID
			}

			asg = model.Assignment{
				AssignmentNumber:    number,
				AwardLetterID:       letter.ID,
				TenderID:            letter.TenderID,
				BidID:               letter.BidID,
				VendorID:            letter.VendorID,
				CustomerID:          customerID,
				WorkOrderID:         &woID,
				ContractAmount:      contract,
				Currency:            letter.Currency,
				ProjectDurationDays: duration,
				StartDate:           start,
				ExpectedEndDate:     expectedEnd,
				Status:              model.AssignmentDraft,
				PaymentTerms:        req.PaymentTerms,
				WorkDetails:         req.WorkDetails,
				SpecialConditions:   req.SpecialConditions,
				ProjectManager:      req.ProjectManager,
				SiteLocation:        req.SiteLocation,
				RequiredVehicles:    req.RequiredResources.Vehicles,
				RequiredDrivers:     req.RequiredResources.Drivers,
				RequiredEquipment:   datatypes.JSONSlice[string](req.RequiredResources.Equipment),
				Notes:               req.Notes,
				CreatedByID:         actorID,
				PaymentSchedule:     schedule,
			}
			return s.assignments.Create(ctx, tx, &asg)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment", asg.AssignmentNumber).
		Str("contract_amount", asg.ContractAmount.StringFixed(2)).
		Msg("assignment created")
	if wo != nil {
		s.derive.after(ctx, wo, posting)
	}
	s.events.Publish(ctx, EventAssignmentCreated, map[string]any{
		"assignment_id": asg.ID, "assignment_number": asg.AssignmentNumber, "tender_id": asg.TenderID,
	})
	resp := toAssignmentResponse(&asg)
	return &resp, nil
}

// workOrderNumber allocates a WO number only when the letter's tender will
// get a new work order. An existing order is linked without consuming one.
// Lookup failures are left for the transaction to report.
func (s *assignmentService) workOrderNumber(ctx context.Context, letterID uuid.UUID) (string, error) {
	letter, err := s.letters.FindByID(ctx, nil, letterID)
	if err != nil {
		return "", nil
	}
	tender, err := s.tenders.FindByID(ctx, nil, letter.TenderID)
	if err != nil || tender.Status != model.TenderAwarded {
		return "", nil
	}
	return s.alloc.Next(ctx, model.SeriesWorkOrder)
}

// buildSchedule converts the requested installments into rows whose amounts
// sum exactly to contract. Amounts left out are derived from percentages;
// when every amount is derived and percentages total 100, the last entry
// takes the rounding remainder. An empty request yields one 100% entry due
// at the expected end date.
func buildSchedule(reqs []dto.InstallmentRequest, contract decimal.Decimal, due time.Time) ([]model.PaymentInstallment, error) {
	if len(reqs) == 0 {
		d := due
		return []model.PaymentInstallment{{
			Sequence:   1,
			Milestone:  "Contract completion",
			Percentage: hundred,
			Amount:     contract,
			DueDate:    &d,
			Status:     model.InstallmentPending,
		}}, nil
	}

	out := make([]model.PaymentInstallment, 0, len(reqs))
	sum, pctSum := decimal.Zero, decimal.Zero
	allDerived := true
	for i, r := range reqs {
		amount := contract.Mul(r.Percentage).Div(hundred).Round(2)
		if r.Amount != nil {
			amount = *r.Amount
			allDerived = false
		}
		if amount.IsNegative() {
			return nil, apierror.Errorf(apierror.KindValidation, "payment schedule entry %d has a negative amount", i+1)
		}
		sum = sum.Add(amount)
		pctSum = pctSum.Add(r.Percentage)
		out = append(out, model.PaymentInstallment{
			Sequence:   i + 1,
			Milestone:  r.Milestone,
			Percentage: r.Percentage,
			Amount:     amount,
			DueDate:    r.DueDate,
			Status:     model.InstallmentPending,
		})
	}
	if allDerived && pctSum.Equal(hundred) && !sum.Equal(contract) {
		last := &out[len(out)-1]
		last.Amount = last.Amount.Add(contract.Sub(sum))
		sum = contract
	}
	if !sum.Equal(contract) {
		return nil, apierror.Errorf(apierror.KindValidation,
			"payment schedule totals %s but the contract amount is %s", sum.StringFixed(2), contract.StringFixed(2))
	}
	return out, nil
}

// ── Read ──────────────────────────────────────────────────────────────────────

func (s *assignmentService) Get(ctx context.Context, id uuid.UUID) (*dto.AssignmentResponse, error) {
	a, err := s.assignments.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFound(err, "assignment")
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

func (s *assignmentService) List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, dto.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	as, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	out := make([]dto.AssignmentResponse, 0, len(as))
	for i := range as {
		out = append(out, toAssignmentResponse(&as[i]))
	}
	return out, dto.NewPagination(filter.Page, filter.Limit, total), nil
}

// ── Status / payments ─────────────────────────────────────────────────────────

func (s *assignmentService) UpdateStatus(ctx context.Context, id uuid.UUID, target model.AssignmentStatus) (*dto.AssignmentResponse, error) {
	if !target.Valid() {
		return nil, apierror.Errorf(apierror.KindValidation, "unknown assignment status %q", target)
	}
	var a *model.Assignment
	var from model.AssignmentStatus
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		var err error
		a, err = s.assignments.FindByID(ctx, tx, id)
		if err != nil {
			return notFound(err, "assignment")
		}
		from = a.Status
		if !a.Status.CanTransitionTo(target) {
			return apierror.Errorf(apierror.KindInvalidTransition, "cannot move assignment from %s to %s", a.Status, target)
		}
		a.Status = target
		if target == model.AssignmentCompleted {
			now := s.now()
			a.ActualEndDate = &now
		}
		return s.assignments.Save(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("assignment", a.AssignmentNumber).Str("from", string(from)).Str("to", string(target)).Msg("assignment status changed")
	resp := toAssignmentResponse(a)
	return &resp, nil
}

// MarkInstallmentPaid settles one schedule entry of a live assignment.
func (s *assignmentService) MarkInstallmentPaid(ctx context.Context, id uuid.UUID, sequence int) (*dto.AssignmentResponse, error) {
	var a *model.Assignment
	err := runTx(ctx, s.tenders.DB(), func(tx *gorm.DB) error {
		var err error
		a, err = s.assignments.FindByID(ctx, tx, id)
		if err != nil {
			return notFound(err, "assignment")
		}
		switch a.Status {
		case model.AssignmentDraft, model.AssignmentCancelled:
			return apierror.Errorf(apierror.KindInvalidTransition, "assignment %s is %s; payments are not accepted", a.AssignmentNumber, a.Status)
		}
		var inst *model.PaymentInstallment
		for i := range a.PaymentSchedule {
			if a.PaymentSchedule[i].Sequence == sequence {
				inst = &a.PaymentSchedule[i]
				break
			}
		}
		if inst == nil {
			return apierror.NotFound("payment installment")
		}
		if inst.Status == model.InstallmentPaid {
			return apierror.Errorf(apierror.KindInvalidTransition, "installment %d is already paid", sequence)
		}
		now := s.now()
		inst.Status = model.InstallmentPaid
		inst.PaidAt = &now
		return s.assignments.SaveInstallment(ctx, tx, inst)
	})
	if err != nil {
		return nil, err
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}
