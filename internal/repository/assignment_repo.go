package repository

import (
	"context"

	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	// Create inserts the assignment with its payment schedule.
	Create(ctx context.Context, tx *gorm.DB, a *model.Assignment) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Assignment, error)
	ExistsForLetter(ctx context.Context, tx *gorm.DB, letterID uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.AssignmentFilter) ([]model.Assignment, int64, error)
	Save(ctx context.Context, tx *gorm.DB, a *model.Assignment) error
	SaveInstallment(ctx context.Context, tx *gorm.DB, p *model.PaymentInstallment) error
}

type assignmentRepo struct{ db *gorm.DB }

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository { return &assignmentRepo{db: db} }

func scheduleOrder(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }

func (r *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, a *model.Assignment) error {
	return pick(r.db, tx).WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Assignment, error) {
	var a model.Assignment
	err := pick(r.db, tx).WithContext(ctx).
		Preload("PaymentSchedule", scheduleOrder).
		Where("id = ?", id).
		First(&a).Error
	return &a, err
}

func (r *assignmentRepo) ExistsForLetter(ctx context.Context, tx *gorm.DB, letterID uuid.UUID) (bool, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.Assignment{}).
		Where("award_letter_id = ?", letterID).
		Count(&n).Error
	return n > 0, err
}

func (r *assignmentRepo) List(ctx context.Context, filter dto.AssignmentFilter) ([]model.Assignment, int64, error) {
	var as []model.Assignment
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Assignment{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.VendorID != "" {
		q = q.Where("vendor_id = ?", filter.VendorID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("PaymentSchedule", scheduleOrder).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&as).Error
	return as, total, err
}

func (r *assignmentRepo) Save(ctx context.Context, tx *gorm.DB, a *model.Assignment) error {
	return pick(r.db, tx).WithContext(ctx).Omit("PaymentSchedule").Save(a).Error
}

func (r *assignmentRepo) SaveInstallment(ctx context.Context, tx *gorm.DB, p *model.PaymentInstallment) error {
	return pick(r.db, tx).WithContext(ctx).Save(p).Error
}
