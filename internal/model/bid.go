package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BidStatus: SUBMITTED -> WINNER | REJECTED
type BidStatus string

const (
	BidSubmitted BidStatus = "SUBMITTED"
	BidWinner    BidStatus = "WINNER"
	BidRejected  BidStatus = "REJECTED"
)

// Bid is a vendor's priced offer. At most one bid per tender is WINNER;
// the idx_bids_one_winner partial index enforces it in the database.
type Bid struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BidNumber   string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	TenderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	VendorID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	Status      BidStatus       `gorm:"type:varchar(20);not null;default:'SUBMITTED'"`
	// SubmittedDate is set by the server, never by the client
	SubmittedDate  time.Time        `gorm:"not null"`
	TechnicalScore *decimal.Decimal `gorm:"type:decimal(5,2)"`
	FinancialScore *decimal.Decimal `gorm:"type:decimal(5,2)"`
	TotalScore     *decimal.Decimal `gorm:"type:decimal(5,2)"`
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items  []BidItem `gorm:"foreignKey:BidID;constraint:OnDelete:CASCADE"`
	Tender *Tender   `gorm:"foreignKey:TenderID"`
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

type BidItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BidID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenderItemID *uuid.UUID      `gorm:"type:uuid"`
	Description  string          `gorm:"not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (i *BidItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
