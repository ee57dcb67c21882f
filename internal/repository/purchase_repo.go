package repository

import (
	"context"

	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.DocumentPurchase) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.DocumentPurchase, error)
	// HasPaid is the access predicate: a PAID purchase exists for the pair.
	HasPaid(ctx context.Context, tx *gorm.DB, tenderID, vendorID uuid.UUID) (bool, error)
	ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.DocumentPurchase, error)
	Save(ctx context.Context, tx *gorm.DB, p *model.DocumentPurchase) error
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) Create(ctx context.Context, tx *gorm.DB, p *model.DocumentPurchase) error {
	return pick(r.db, tx).WithContext(ctx).Create(p).Error
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.DocumentPurchase, error) {
	var p model.DocumentPurchase
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *purchaseRepo) HasPaid(ctx context.Context, tx *gorm.DB, tenderID, vendorID uuid.UUID) (bool, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.DocumentPurchase{}).
		Where("tender_id = ? AND vendor_id = ? AND status = ?", tenderID, vendorID, model.PurchasePaid).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *purchaseRepo) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.DocumentPurchase, error) {
	var ps []model.DocumentPurchase
	err := r.db.WithContext(ctx).
		Where("tender_id = ?", tenderID).
		Order("purchase_date ASC").
		Find(&ps).Error
	return ps, err
}

func (r *purchaseRepo) Save(ctx context.Context, tx *gorm.DB, p *model.DocumentPurchase) error {
	return pick(r.db, tx).WithContext(ctx).Save(p).Error
}
