package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WorkOrderAssigned is the only status this service writes; execution states
// are owned by the work-orders module downstream.
const WorkOrderAssigned = "ASSIGNED"

// WorkOrder binds a tender to its winning vendor for execution.
// A tender has at most one work order.
type WorkOrder struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderNumber   string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	TenderID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BidID         uuid.UUID `gorm:"type:uuid;not null"`
	CustomerID    uuid.UUID `gorm:"type:uuid;not null"`
	VendorID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Description   *string
	DescriptionAr *string
	StartDate     *time.Time
	EndDate       *time.Time
	// TotalAmount is a snapshot of the winning bid (or contract) amount
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	Status      string          `gorm:"type:varchar(20);not null;default:'ASSIGNED'"`
	CreatedByID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (w *WorkOrder) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
