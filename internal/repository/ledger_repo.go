package repository

import (
	"context"
	"time"

	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerPostingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.LedgerPosting) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerPosting, error)
	Update(ctx context.Context, p *model.LedgerPosting) error
	// FindDue returns pending postings whose retry time has come, oldest first.
	// New postings get a grace period so the queue worker handles them first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.LedgerPosting, error)
}

type ledgerPostingRepo struct{ db *gorm.DB }

func NewLedgerPostingRepository(db *gorm.DB) LedgerPostingRepository {
	return &ledgerPostingRepo{db: db}
}

func (r *ledgerPostingRepo) Create(ctx context.Context, tx *gorm.DB, p *model.LedgerPosting) error {
	return pick(r.db, tx).WithContext(ctx).Create(p).Error
}

func (r *ledgerPostingRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerPosting, error) {
	var p model.LedgerPosting
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *ledgerPostingRepo) Update(ctx context.Context, p *model.LedgerPosting) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ledgerPostingRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.LedgerPosting, error) {
	var ps []model.LedgerPosting
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", model.PostingPending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&ps).Error
	return ps, err
}
