package repository

import (
	"context"
	"time"

	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AwardLetterRepository interface {
	Create(ctx context.Context, tx *gorm.DB, l *model.AwardLetter) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.AwardLetter, error)
	FindByTender(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.AwardLetter, error)
	// List filters on the effective status: EXPIRED matches unanswered
	// letters past their expiry, DRAFT/ISSUED only those still valid at now.
	List(ctx context.Context, filter dto.AwardLetterFilter, now time.Time) ([]model.AwardLetter, int64, error)
	Save(ctx context.Context, tx *gorm.DB, l *model.AwardLetter) error
}

type awardLetterRepo struct{ db *gorm.DB }

func NewAwardLetterRepository(db *gorm.DB) AwardLetterRepository { return &awardLetterRepo{db: db} }

func (r *awardLetterRepo) Create(ctx context.Context, tx *gorm.DB, l *model.AwardLetter) error {
	return pick(r.db, tx).WithContext(ctx).Omit("Tender").Create(l).Error
}

func (r *awardLetterRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.AwardLetter, error) {
	var l model.AwardLetter
	err := pick(r.db, tx).WithContext(ctx).Preload("Tender").Where("id = ?", id).First(&l).Error
	return &l, err
}

func (r *awardLetterRepo) FindByTender(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.AwardLetter, error) {
	var l model.AwardLetter
	err := pick(r.db, tx).WithContext(ctx).Where("tender_id = ?", tenderID).First(&l).Error
	return &l, err
}

func (r *awardLetterRepo) List(ctx context.Context, filter dto.AwardLetterFilter, now time.Time) ([]model.AwardLetter, int64, error) {
	var letters []model.AwardLetter
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.AwardLetter{})
	if filter.TenderID != "" {
		q = q.Where("tender_id = ?", filter.TenderID)
	}
	switch model.AwardLetterStatus(filter.Status) {
	case "":
	case model.LetterExpired:
		q = q.Where("status = ? AND expiry_date < ?", model.LetterIssued, now)
	case model.LetterIssued:
		q = q.Where("status = ? AND expiry_date >= ?", model.LetterIssued, now)
	default:
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&letters).Error
	return letters, total, err
}

func (r *awardLetterRepo) Save(ctx context.Context, tx *gorm.DB, l *model.AwardLetter) error {
	return pick(r.db, tx).WithContext(ctx).Omit("Tender").Save(l).Error
}
