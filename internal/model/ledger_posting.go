package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerPosting is an outbox row for the external ledger.
// Kind: "DOCUMENT_REVENUE" | "WORK_ORDER_COMMITMENT"
// Status: "pending" | "posted" | "failed"
type LedgerPosting struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Kind            string          `gorm:"type:varchar(30);not null"`
	ReferenceID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_posting_ref"`
	ReferenceNumber string          `gorm:"type:varchar(20);not null"`
	TenderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Description     string          `gorm:"not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	// ExternalEntryID is the id returned by the ledger service
	ExternalEntryID *string
	// Retry fields, used by retry_cron to re-drive postings the ledger rejected
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	PostedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *LedgerPosting) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

const (
	PostingDocumentRevenue     = "DOCUMENT_REVENUE"
	PostingWorkOrderCommitment = "WORK_ORDER_COMMITMENT"

	PostingPending = "pending"
	PostingPosted  = "posted"
	PostingFailed  = "failed"
)
