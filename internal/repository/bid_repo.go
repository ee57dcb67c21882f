package repository

import (
	"context"

	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidRepository interface {
	// Create inserts the bid together with its items.
	Create(ctx context.Context, tx *gorm.DB, b *model.Bid) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Bid, error)
	ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.Bid, error)
	// FindWinner returns gorm.ErrRecordNotFound when the tender has no winner.
	FindWinner(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.Bid, error)
	CountWinners(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.BidStatus) error
	SaveScores(ctx context.Context, tx *gorm.DB, b *model.Bid) error
	ListForReport(ctx context.Context, filter dto.ReportFilter) ([]model.Bid, error)
}

type bidRepo struct{ db *gorm.DB }

func NewBidRepository(db *gorm.DB) BidRepository { return &bidRepo{db: db} }

func (r *bidRepo) Create(ctx context.Context, tx *gorm.DB, b *model.Bid) error {
	return pick(r.db, tx).WithContext(ctx).Omit("Tender").Create(b).Error
}

func (r *bidRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Bid, error) {
	var b model.Bid
	err := pick(r.db, tx).WithContext(ctx).Preload("Items").Where("id = ?", id).First(&b).Error
	return &b, err
}

func (r *bidRepo) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).Preload("Items").
		Where("tender_id = ?", tenderID).
		Order("submitted_date ASC").
		Find(&bids).Error
	return bids, err
}

func (r *bidRepo) FindWinner(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.Bid, error) {
	var b model.Bid
	err := pick(r.db, tx).WithContext(ctx).
		Where("tender_id = ? AND status = ?", tenderID, model.BidWinner).
		First(&b).Error
	return &b, err
}

func (r *bidRepo) CountWinners(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.Bid{}).
		Where("tender_id = ? AND status = ?", tenderID, model.BidWinner).
		Count(&n).Error
	return n, err
}

func (r *bidRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.BidStatus) error {
	return pick(r.db, tx).WithContext(ctx).Model(&model.Bid{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bidRepo) SaveScores(ctx context.Context, tx *gorm.DB, b *model.Bid) error {
	return pick(r.db, tx).WithContext(ctx).Model(&model.Bid{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"technical_score": b.TechnicalScore,
			"financial_score": b.FinancialScore,
			"total_score":     b.TotalScore,
		}).Error
}

// ListForReport returns bids with their tender preloaded, newest tender first.
func (r *bidRepo) ListForReport(ctx context.Context, filter dto.ReportFilter) ([]model.Bid, error) {
	var bids []model.Bid
	q := r.db.WithContext(ctx).Model(&model.Bid{})
	if filter.TenderID != "" {
		q = q.Where("tender_id = ?", filter.TenderID)
	}
	if filter.VendorID != "" {
		q = q.Where("vendor_id = ?", filter.VendorID)
	}
	err := q.Preload("Tender").Order("tender_id ASC, submitted_date ASC").Find(&bids).Error
	return bids, err
}
