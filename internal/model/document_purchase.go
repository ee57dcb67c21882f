package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseStatus: PAID | VOIDED. Only PAID purchases grant bidding access.
type PurchaseStatus string

const (
	PurchasePaid   PurchaseStatus = "PAID"
	PurchaseVoided PurchaseStatus = "VOIDED"
)

// DocumentPurchase records a vendor buying the tender documents.
// Amount is the price captured at purchase time and never changes afterwards.
type DocumentPurchase struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseNumber string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	TenderID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_purchase_tender_vendor"`
	VendorID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_purchase_tender_vendor"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod  string          `gorm:"type:varchar(30);not null"`
	PaymentRef     *string
	Status         PurchaseStatus `gorm:"type:varchar(20);not null;default:'PAID'"`
	PurchaseDate   time.Time      `gorm:"not null"`
	VoidedAt       *time.Time
	VoidReason     *string
	CreatedAt      time.Time
}

func (p *DocumentPurchase) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
