package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TenderService owns tender CRUD and the lifecycle state machine.
// AWARDED and WORK_IN_PROGRESS are only reachable through AwardService.
type TenderService interface {
	Create(ctx context.Context, actorID uuid.UUID, req dto.CreateTenderRequest) (*dto.TenderResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.TenderResponse, error)
	List(ctx context.Context, filter dto.TenderFilter) ([]dto.TenderListItem, dto.Pagination, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateTenderRequest) (*dto.TenderResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Transition(ctx context.Context, id uuid.UUID, target model.TenderStatus) (*dto.TenderResponse, error)
	AddItems(ctx context.Context, id uuid.UUID, req dto.AddItemsRequest) ([]dto.TenderItemResponse, error)
	AddMilestones(ctx context.Context, id uuid.UUID, req dto.AddMilestonesRequest) ([]dto.MilestoneResponse, error)
	UpdateMilestone(ctx context.Context, tenderID, milestoneID uuid.UUID, req dto.UpdateMilestoneRequest) (*dto.MilestoneResponse, error)
	Evaluate(ctx context.Context, actorID, id uuid.UUID, req dto.EvaluateRequest) (*dto.EvaluationResponse, error)
	Stats(ctx context.Context) (*dto.TenderStats, error)
}

type tenderService struct {
	repo            repository.TenderRepository
	alloc           *Allocator
	events          EventPublisher
	defaultCurrency string
}

func NewTenderService(repo repository.TenderRepository, alloc *Allocator, events EventPublisher, defaultCurrency string) TenderService {
	if defaultCurrency == "" {
		defaultCurrency = "SAR"
	}
	return &tenderService{repo: repo, alloc: alloc, events: publisherOrNop(events), defaultCurrency: defaultCurrency}
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *tenderService) Create(ctx context.Context, actorID uuid.UUID, req dto.CreateTenderRequest) (*dto.TenderResponse, error) {
	if err := checkMilestoneNumbers(req.Milestones, nil); err != nil {
		return nil, err
	}
	tenderType := model.TenderType(req.Type)
	if tenderType == "" {
		tenderType = model.TenderTypePublic
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	var tender model.Tender
	err := s.alloc.Retry(ctx, "create tender", func() error {
		number, err := s.alloc.Next(ctx, model.SeriesTender)
		if err != nil {
			return err
		}
		tender = model.Tender{
			TenderNumber:       number,
			Title:              req.Title,
			TitleAr:            req.TitleAr,
			Description:        req.Description,
			DescriptionAr:      req.DescriptionAr,
			Type:               tenderType,
			Status:             model.TenderDraft,
			EstimatedValue:     req.EstimatedValue,
			Currency:           currency,
			DocumentPrice:      req.DocumentPrice,
			PublishDate:        req.PublishDate,
			DocumentSaleStart:  req.DocumentSaleStart,
			DocumentSaleEnd:    req.DocumentSaleEnd,
			SubmissionDeadline: req.SubmissionDeadline,
			OpeningDate:        req.OpeningDate,
			CreatedByID:        actorID,
			Items:              buildItems(uuid.Nil, req.Items),
			Milestones:         buildMilestones(uuid.Nil, req.Milestones),
		}
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.Create(ctx, tx, &tender)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tender", tender.TenderNumber).Str("created_by", actorID.String()).Msg("tender created")
	s.events.Publish(ctx, EventTenderCreated, map[string]any{
		"tender_id": tender.ID, "tender_number": tender.TenderNumber,
	})
	return s.Get(ctx, tender.ID)
}

func buildItems(tenderID uuid.UUID, reqs []dto.TenderItemRequest) []model.TenderItem {
	items := make([]model.TenderItem, 0, len(reqs))
	for _, r := range reqs {
		unit := r.Unit
		if unit == "" {
			unit = "unit"
		}
		items = append(items, model.TenderItem{
			TenderID:           tenderID,
			ItemNumber:         r.ItemNumber,
			Description:        r.Description,
			DescriptionAr:      r.DescriptionAr,
			Unit:               unit,
			Quantity:           r.Quantity,
			EstimatedUnitPrice: r.EstimatedUnitPrice,
		})
	}
	return items
}

func buildMilestones(tenderID uuid.UUID, reqs []dto.MilestoneRequest) []model.Milestone {
	ms := make([]model.Milestone, 0, len(reqs))
	for _, r := range reqs {
		ms = append(ms, model.Milestone{
			TenderID:        tenderID,
			MilestoneNumber: r.MilestoneNumber,
			Title:           r.Title,
			TitleAr:         r.TitleAr,
			Percentage:      r.Percentage,
			Amount:          r.Amount,
			Status:          model.MilestonePending,
			DueDate:         r.DueDate,
		})
	}
	return ms
}

// checkMilestoneNumbers rejects duplicates within reqs and against existing.
func checkMilestoneNumbers(reqs []dto.MilestoneRequest, existing []model.Milestone) error {
	seen := make(map[int]bool, len(reqs)+len(existing))
	for _, m := range existing {
		seen[m.MilestoneNumber] = true
	}
	for _, r := range reqs {
		if seen[r.MilestoneNumber] {
			return apierror.Errorf(apierror.KindValidation, "milestone number %d already exists", r.MilestoneNumber)
		}
		seen[r.MilestoneNumber] = true
	}
	return nil
}

// ── Read ──────────────────────────────────────────────────────────────────────

func (s *tenderService) Get(ctx context.Context, id uuid.UUID) (*dto.TenderResponse, error) {
	t, err := s.repo.FindDetailed(ctx, id)
	if err != nil {
		return nil, notFound(err, "tender")
	}
	resp := toTenderResponse(t)
	return &resp, nil
}

func (s *tenderService) List(ctx context.Context, filter dto.TenderFilter) ([]dto.TenderListItem, dto.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	tenders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	items := make([]dto.TenderListItem, 0, len(tenders))
	for i := range tenders {
		items = append(items, toTenderListItem(&tenders[i]))
	}
	return items, dto.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *tenderService) Stats(ctx context.Context) (*dto.TenderStats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ── Update / Delete ───────────────────────────────────────────────────────────

func (s *tenderService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateTenderRequest) (*dto.TenderResponse, error) {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		if t.Status.IsTerminal() {
			return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s and can no longer be edited", t.TenderNumber, t.Status)
		}
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.TitleAr != nil {
			t.TitleAr = req.TitleAr
		}
		if req.Description != nil {
			t.Description = req.Description
		}
		if req.DescriptionAr != nil {
			t.DescriptionAr = req.DescriptionAr
		}
		if req.EstimatedValue != nil {
			if req.EstimatedValue.IsNegative() {
				return apierror.Errorf(apierror.KindValidation, "estimated_value must not be negative")
			}
			t.EstimatedValue = *req.EstimatedValue
		}
		if req.DocumentPrice != nil {
			// Earlier purchases keep the amount they were charged.
			if req.DocumentPrice.IsNegative() {
				return apierror.Errorf(apierror.KindValidation, "document_price must not be negative")
			}
			t.DocumentPrice = *req.DocumentPrice
		}
		if req.DocumentSaleStart != nil {
			t.DocumentSaleStart = req.DocumentSaleStart
		}
		if req.DocumentSaleEnd != nil {
			t.DocumentSaleEnd = req.DocumentSaleEnd
		}
		if req.SubmissionDeadline != nil {
			t.SubmissionDeadline = req.SubmissionDeadline
		}
		if req.OpeningDate != nil {
			t.OpeningDate = req.OpeningDate
		}
		return s.repo.Save(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a tender nothing references yet. Tenders with bids or
// document purchases are cancelled instead.
func (s *tenderService) Delete(ctx context.Context, id uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		refs, err := s.repo.CountReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierror.Errorf(apierror.KindInvalidTransition,
				"tender %s has bids or document purchases; cancel it instead", t.TenderNumber)
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// ── State machine ─────────────────────────────────────────────────────────────

func (s *tenderService) Transition(ctx context.Context, id uuid.UUID, target model.TenderStatus) (*dto.TenderResponse, error) {
	if !target.Valid() {
		return nil, apierror.Errorf(apierror.KindValidation, "unknown tender status %q", target)
	}
	var from model.TenderStatus
	var number string
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		from, number = t.Status, t.TenderNumber
		if err := checkTransition(t, target); err != nil {
			return err
		}
		t.Status = target
		if target == model.TenderPublished && t.PublishDate == nil {
			now := utcNow()
			t.PublishDate = &now
		}
		return s.repo.Save(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tender", number).Str("from", string(from)).Str("to", string(target)).Msg("tender status changed")
	s.events.Publish(ctx, EventTenderStatusChanged, map[string]any{
		"tender_id": id, "tender_number": number, "from": from, "to": target,
	})
	return s.Get(ctx, id)
}

// checkTransition validates a generic status move. Award and work-order
// creation have their own operations with extra preconditions.
func checkTransition(t *model.Tender, target model.TenderStatus) error {
	if t.Status.IsTerminal() {
		return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is already %s", t.TenderNumber, t.Status)
	}
	switch target {
	case model.TenderAwarded:
		return apierror.Errorf(apierror.KindInvalidTransition, "tenders are awarded through the award operation")
	case model.TenderWorkInProgress:
		return apierror.Errorf(apierror.KindInvalidTransition, "work starts when a work order is created")
	}
	if !t.Status.CanTransitionTo(target) {
		return apierror.Errorf(apierror.KindInvalidTransition, "cannot move tender from %s to %s", t.Status, target)
	}
	return nil
}

// ── Items / milestones / evaluations ──────────────────────────────────────────

func (s *tenderService) AddItems(ctx context.Context, id uuid.UUID, req dto.AddItemsRequest) ([]dto.TenderItemResponse, error) {
	items := buildItems(id, req.Items)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		if t.Status.IsTerminal() {
			return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s", t.TenderNumber, t.Status)
		}
		return s.repo.AddItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.TenderItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemResponse(&items[i]))
	}
	return out, nil
}

func (s *tenderService) AddMilestones(ctx context.Context, id uuid.UUID, req dto.AddMilestonesRequest) ([]dto.MilestoneResponse, error) {
	existing, err := s.repo.ListMilestones(ctx, &id)
	if err != nil {
		return nil, err
	}
	if err := checkMilestoneNumbers(req.Milestones, existing); err != nil {
		return nil, err
	}

	ms := buildMilestones(id, req.Milestones)
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		if t.Status.IsTerminal() {
			return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s", t.TenderNumber, t.Status)
		}
		if err := s.repo.AddMilestones(ctx, tx, ms); err != nil {
			if repository.IsConflict(err) {
				return apierror.Wrap(apierror.KindValidation, err, "milestone number already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MilestoneResponse, 0, len(ms))
	for i := range ms {
		out = append(out, toMilestoneResponse(&ms[i]))
	}
	return out, nil
}

func (s *tenderService) UpdateMilestone(ctx context.Context, tenderID, milestoneID uuid.UUID, req dto.UpdateMilestoneRequest) (*dto.MilestoneResponse, error) {
	status := model.MilestoneStatus(req.Status)
	if !status.Valid() {
		return nil, apierror.Errorf(apierror.KindValidation, "unknown milestone status %q", req.Status)
	}
	var m *model.Milestone
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		m, err = s.repo.FindMilestone(ctx, tx, tenderID, milestoneID)
		if err != nil {
			return notFound(err, "milestone")
		}
		m.Status = status
		if status == model.MilestoneCompleted {
			now := utcNow()
			m.CompletedDate = &now
		} else {
			m.CompletedDate = nil
		}
		return s.repo.SaveMilestone(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	resp := toMilestoneResponse(m)
	return &resp, nil
}

// evaluable lists the states in which panels may record evaluations.
func evaluable(s model.TenderStatus) bool {
	return s == model.TenderSubmissionOpen || s == model.TenderUnderEvaluation || s == model.TenderAwarded
}

// Evaluate appends an evaluation record; existing records are never edited.
func (s *tenderService) Evaluate(ctx context.Context, actorID, id uuid.UUID, req dto.EvaluateRequest) (*dto.EvaluationResponse, error) {
	criteria, err := marshalDoc(req.Criteria)
	if err != nil {
		return nil, err
	}
	weights, err := marshalDoc(req.Weights)
	if err != nil {
		return nil, err
	}

	ev := model.Evaluation{
		TenderID:       id,
		EvaluationType: req.EvaluationType,
		Criteria:       criteria,
		Weights:        weights,
		Report:         req.Report,
		ReportAr:       req.ReportAr,
		Recommendation: req.Recommendation,
		EvaluatedByID:  actorID,
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return notFound(err, "tender")
		}
		if !evaluable(t.Status) {
			return apierror.Errorf(apierror.KindInvalidTransition, "tender %s is %s and cannot be evaluated", t.TenderNumber, t.Status)
		}
		return s.repo.CreateEvaluation(ctx, tx, &ev)
	})
	if err != nil {
		return nil, err
	}
	resp := toEvaluationResponse(&ev)
	return &resp, nil
}

func marshalDoc(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("evaluation: encode document: %w", err)
	}
	return datatypes.JSON(raw), nil
}
