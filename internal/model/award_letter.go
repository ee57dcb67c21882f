package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AwardLetterStatus: DRAFT -> ISSUED -> ACCEPTED | REJECTED.
// EXPIRED is never stored; it is derived from ExpiryDate at read time.
type AwardLetterStatus string

const (
	LetterDraft    AwardLetterStatus = "DRAFT"
	LetterIssued   AwardLetterStatus = "ISSUED"
	LetterAccepted AwardLetterStatus = "ACCEPTED"
	LetterRejected AwardLetterStatus = "REJECTED"
	LetterExpired  AwardLetterStatus = "EXPIRED"
)

var letterTransitions = map[AwardLetterStatus][]AwardLetterStatus{
	LetterDraft:    {LetterIssued},
	LetterIssued:   {LetterAccepted, LetterRejected},
	LetterAccepted: {},
	LetterRejected: {},
}

func (s AwardLetterStatus) CanTransitionTo(target AwardLetterStatus) bool {
	for _, t := range letterTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AwardLetter formally notifies the winning vendor. One letter per award.
type AwardLetter struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LetterNumber      string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	TenderID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	BidID             uuid.UUID       `gorm:"type:uuid;not null"`
	VendorID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	AwardedAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	OriginalBidAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	// Discount = OriginalBidAmount - AwardedAmount, never negative
	Discount               decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Currency               string          `gorm:"type:varchar(3);not null"`
	ScopeOfWork            *string
	IssueDate              time.Time         `gorm:"not null"`
	ValidityDays           int               `gorm:"not null"`
	ExpiryDate             time.Time         `gorm:"not null"`
	Status                 AwardLetterStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	ContractNumber         *string
	ContractDate           *time.Time
	ContractDurationMonths *int
	ContractTerms          *string
	Notes                  *string
	// NotifyEmail receives the PDF when the letter is issued
	NotifyEmail *string
	PDFPath     *string   `gorm:"column:pdf_path"`
	IssuedByID  uuid.UUID `gorm:"type:uuid;not null"`
	IssuedAt    *time.Time
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tender *Tender `gorm:"foreignKey:TenderID"`
}

func (l *AwardLetter) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// EffectiveStatus reports EXPIRED for an ISSUED letter whose validity window
// has passed. Drafts and answered letters keep their stored status.
func (l *AwardLetter) EffectiveStatus(now time.Time) AwardLetterStatus {
	if l.Status == LetterIssued && now.After(l.ExpiryDate) {
		return LetterExpired
	}
	return l.Status
}
