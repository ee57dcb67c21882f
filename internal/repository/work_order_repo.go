package repository

import (
	"context"

	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, w *model.WorkOrder) error
	FindByTender(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.WorkOrder, error)
}

type workOrderRepo struct{ db *gorm.DB }

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository { return &workOrderRepo{db: db} }

func (r *workOrderRepo) Create(ctx context.Context, tx *gorm.DB, w *model.WorkOrder) error {
	return pick(r.db, tx).WithContext(ctx).Create(w).Error
}

func (r *workOrderRepo) FindByTender(ctx context.Context, tx *gorm.DB, tenderID uuid.UUID) (*model.WorkOrder, error) {
	var w model.WorkOrder
	err := pick(r.db, tx).WithContext(ctx).Where("tender_id = ?", tenderID).First(&w).Error
	return &w, err
}
