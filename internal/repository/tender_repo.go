package repository

import (
	"context"
	"strings"
	"time"

	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TenderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *model.Tender) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Tender, error)
	// FindForUpdate locks the tender row until tx ends (no-op lock on sqlite).
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Tender, error)
	FindDetailed(ctx context.Context, id uuid.UUID) (*model.Tender, error)
	List(ctx context.Context, filter dto.TenderFilter) ([]model.Tender, int64, error)
	ListForReport(ctx context.Context, filter dto.ReportFilter) ([]model.Tender, error)
	Save(ctx context.Context, tx *gorm.DB, t *model.Tender) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// CountReferences counts bids and document purchases pointing at the tender.
	CountReferences(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
	AddItems(ctx context.Context, tx *gorm.DB, items []model.TenderItem) error
	AddMilestones(ctx context.Context, tx *gorm.DB, ms []model.Milestone) error
	FindMilestone(ctx context.Context, tx *gorm.DB, tenderID, milestoneID uuid.UUID) (*model.Milestone, error)
	SaveMilestone(ctx context.Context, tx *gorm.DB, m *model.Milestone) error
	ListMilestones(ctx context.Context, tenderID *uuid.UUID) ([]model.Milestone, error)
	CreateEvaluation(ctx context.Context, tx *gorm.DB, e *model.Evaluation) error
	Stats(ctx context.Context) (dto.TenderStats, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type tenderRepo struct{ db *gorm.DB }

func NewTenderRepository(db *gorm.DB) TenderRepository { return &tenderRepo{db: db} }

func (r *tenderRepo) DB() *gorm.DB { return r.db }

func (r *tenderRepo) Create(ctx context.Context, tx *gorm.DB, t *model.Tender) error {
	return pick(r.db, tx).WithContext(ctx).Create(t).Error
}

func (r *tenderRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Tender, error) {
	var t model.Tender
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&t).Error
	return &t, err
}

func (r *tenderRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Tender, error) {
	var t model.Tender
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	return &t, err
}

func (r *tenderRepo) FindDetailed(ctx context.Context, id uuid.UUID) (*model.Tender, error) {
	var t model.Tender
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_number ASC") }).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("milestone_number ASC") }).
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("submitted_date ASC") }).
		Preload("Bids.Items").
		Preload("DocumentPurchases", func(db *gorm.DB) *gorm.DB { return db.Order("purchase_date ASC") }).
		Preload("Evaluations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("WorkOrder").
		Where("id = ?", id).
		First(&t).Error
	return &t, err
}

var tenderSortColumns = map[string]string{
	"created_at":          "created_at",
	"estimated_value":     "estimated_value",
	"submission_deadline": "submission_deadline",
	"tender_number":       "tender_number",
}

func (r *tenderRepo) List(ctx context.Context, filter dto.TenderFilter) ([]model.Tender, int64, error) {
	var tenders []model.Tender
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Tender{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(tender_number) LIKE ? OR LOWER(title) LIKE ? OR LOWER(COALESCE(title_ar, '')) LIKE ?", like, like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := tenderSortColumns[filter.SortBy]
	if !ok {
		col = "created_at"
	}
	desc := !strings.EqualFold(filter.SortOrder, "asc")

	err := q.Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Select("id", "tender_id", "status") }).
		Preload("DocumentPurchases", func(db *gorm.DB) *gorm.DB { return db.Select("id", "tender_id", "status") }).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Offset(offset).Limit(filter.Limit).
		Find(&tenders).Error
	return tenders, total, err
}

// ListForReport loads tenders with everything the reporting engine reads.
func (r *tenderRepo) ListForReport(ctx context.Context, filter dto.ReportFilter) ([]model.Tender, error) {
	var tenders []model.Tender
	q := r.db.WithContext(ctx).Model(&model.Tender{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.TenderID != "" {
		q = q.Where("id = ?", filter.TenderID)
	}
	if filter.StartDate != "" {
		if d, err := time.Parse("2006-01-02", filter.StartDate); err == nil {
			q = q.Where("publish_date >= ?", d)
		}
	}
	if filter.EndDate != "" {
		if d, err := time.Parse("2006-01-02", filter.EndDate); err == nil {
			q = q.Where("publish_date < ?", d.AddDate(0, 0, 1))
		}
	}
	err := q.Preload("Items").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("milestone_number ASC") }).
		Preload("Bids").
		Preload("DocumentPurchases").
		Order("created_at ASC").
		Find(&tenders).Error
	return tenders, err
}

func (r *tenderRepo) Save(ctx context.Context, tx *gorm.DB, t *model.Tender) error {
	return pick(r.db, tx).WithContext(ctx).Omit(clause.Associations).Save(t).Error
}

func (r *tenderRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	db := pick(r.db, tx).WithContext(ctx)
	if err := db.Where("tender_id = ?", id).Delete(&model.TenderItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("tender_id = ?", id).Delete(&model.Milestone{}).Error; err != nil {
		return err
	}
	if err := db.Where("tender_id = ?", id).Delete(&model.Evaluation{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Tender{}).Error
}

func (r *tenderRepo) CountReferences(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	db := pick(r.db, tx).WithContext(ctx)
	var bids, purchases int64
	if err := db.Model(&model.Bid{}).Where("tender_id = ?", id).Count(&bids).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.DocumentPurchase{}).Where("tender_id = ?", id).Count(&purchases).Error; err != nil {
		return 0, err
	}
	return bids + purchases, nil
}

func (r *tenderRepo) AddItems(ctx context.Context, tx *gorm.DB, items []model.TenderItem) error {
	if len(items) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).Create(&items).Error
}

func (r *tenderRepo) AddMilestones(ctx context.Context, tx *gorm.DB, ms []model.Milestone) error {
	if len(ms) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).Create(&ms).Error
}

func (r *tenderRepo) FindMilestone(ctx context.Context, tx *gorm.DB, tenderID, milestoneID uuid.UUID) (*model.Milestone, error) {
	var m model.Milestone
	err := pick(r.db, tx).WithContext(ctx).
		Where("id = ? AND tender_id = ?", milestoneID, tenderID).
		First(&m).Error
	return &m, err
}

func (r *tenderRepo) SaveMilestone(ctx context.Context, tx *gorm.DB, m *model.Milestone) error {
	return pick(r.db, tx).WithContext(ctx).Save(m).Error
}

func (r *tenderRepo) ListMilestones(ctx context.Context, tenderID *uuid.UUID) ([]model.Milestone, error) {
	var ms []model.Milestone
	q := r.db.WithContext(ctx).Model(&model.Milestone{})
	if tenderID != nil {
		q = q.Where("tender_id = ?", *tenderID)
	}
	err := q.Order("tender_id ASC, milestone_number ASC").Find(&ms).Error
	return ms, err
}

func (r *tenderRepo) CreateEvaluation(ctx context.Context, tx *gorm.DB, e *model.Evaluation) error {
	return pick(r.db, tx).WithContext(ctx).Create(e).Error
}

func (r *tenderRepo) Stats(ctx context.Context) (dto.TenderStats, error) {
	var s dto.TenderStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Tender{}).Count(&s.TotalTenders).Error; err != nil {
		return s, err
	}
	active := []model.TenderStatus{model.TenderPublished, model.TenderSubmissionOpen, model.TenderUnderEvaluation}
	if err := db.Model(&model.Tender{}).Where("status IN ?", active).Count(&s.ActiveTenders).Error; err != nil {
		return s, err
	}
	if err := db.Model(&model.Tender{}).Where("status = ?", model.TenderCompleted).Count(&s.CompletedTenders).Error; err != nil {
		return s, err
	}
	if err := db.Model(&model.Bid{}).Count(&s.TotalBids).Error; err != nil {
		return s, err
	}

	// Summed in Go so the decimal never goes through a float column type.
	var values []model.Tender
	if err := db.Model(&model.Tender{}).Select("estimated_value").Find(&values).Error; err != nil {
		return s, err
	}
	for _, t := range values {
		s.TotalValue = s.TotalValue.Add(t.EstimatedValue)
	}
	return s, nil
}
