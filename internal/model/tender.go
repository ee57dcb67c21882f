package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TenderStatus is the lifecycle state of a tender.
type TenderStatus string

const (
	TenderDraft           TenderStatus = "DRAFT"
	TenderPublished       TenderStatus = "PUBLISHED"
	TenderSubmissionOpen  TenderStatus = "SUBMISSION_OPEN"
	TenderUnderEvaluation TenderStatus = "UNDER_EVALUATION"
	TenderAwarded         TenderStatus = "AWARDED"
	TenderWorkInProgress  TenderStatus = "WORK_IN_PROGRESS"
	TenderCompleted       TenderStatus = "COMPLETED"
	TenderCancelled       TenderStatus = "CANCELLED"
)

var tenderTransitions = map[TenderStatus][]TenderStatus{
	TenderDraft:           {TenderPublished, TenderCancelled},
	TenderPublished:       {TenderSubmissionOpen, TenderCancelled},
	TenderSubmissionOpen:  {TenderUnderEvaluation, TenderAwarded, TenderCancelled},
	TenderUnderEvaluation: {TenderAwarded, TenderCancelled},
	TenderAwarded:         {TenderWorkInProgress, TenderCancelled},
	TenderWorkInProgress:  {TenderCompleted, TenderCancelled},
	TenderCompleted:       {},
	TenderCancelled:       {},
}

func (s TenderStatus) Valid() bool {
	_, ok := tenderTransitions[s]
	return ok
}

func (s TenderStatus) IsTerminal() bool {
	return s == TenderCompleted || s == TenderCancelled
}

func (s TenderStatus) CanTransitionTo(target TenderStatus) bool {
	for _, t := range tenderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AcceptsBids is true only while submissions are open.
func (s TenderStatus) AcceptsBids() bool { return s == TenderSubmissionOpen }

// SellsDocuments is true while vendors may buy the tender documents.
func (s TenderStatus) SellsDocuments() bool {
	return s == TenderPublished || s == TenderSubmissionOpen
}

// Awardable is true in the states from which a winner may be chosen.
func (s TenderStatus) Awardable() bool {
	return s == TenderSubmissionOpen || s == TenderUnderEvaluation
}

// HasWinner is true for states that imply a WINNER bid exists.
func (s TenderStatus) HasWinner() bool {
	return s == TenderAwarded || s == TenderWorkInProgress || s == TenderCompleted
}

// TenderType: PUBLIC | LIMITED | DIRECT | FRAMEWORK
type TenderType string

const (
	TenderTypePublic    TenderType = "PUBLIC"
	TenderTypeLimited   TenderType = "LIMITED"
	TenderTypeDirect    TenderType = "DIRECT"
	TenderTypeFramework TenderType = "FRAMEWORK"
)

// Tender is a procurement solicitation. Bids, purchases, evaluations,
// milestones and the work order all hang off it.
type Tender struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenderNumber   string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Title          string    `gorm:"not null"`
	TitleAr        *string
	Description    *string
	DescriptionAr  *string
	Type           TenderType      `gorm:"type:varchar(20);not null;default:'PUBLIC'"`
	Status         TenderStatus    `gorm:"type:varchar(30);not null;default:'DRAFT';index"`
	EstimatedValue decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	// DocumentPrice is the current price; purchases keep their own snapshot
	DocumentPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PublishDate        *time.Time
	DocumentSaleStart  *time.Time
	DocumentSaleEnd    *time.Time
	SubmissionDeadline *time.Time
	OpeningDate        *time.Time
	AwardDate          *time.Time
	WorkStartDate      *time.Time
	WorkEndDate        *time.Time
	CreatedByID        uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Items             []TenderItem       `gorm:"foreignKey:TenderID;constraint:OnDelete:CASCADE"`
	Milestones        []Milestone        `gorm:"foreignKey:TenderID;constraint:OnDelete:CASCADE"`
	Bids              []Bid              `gorm:"foreignKey:TenderID"`
	DocumentPurchases []DocumentPurchase `gorm:"foreignKey:TenderID"`
	Evaluations       []Evaluation       `gorm:"foreignKey:TenderID"`
	WorkOrder         *WorkOrder         `gorm:"foreignKey:TenderID"`
}

func (t *Tender) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// TenderItem is a line of the bill of quantities.
type TenderItem struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenderID           uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemNumber         int       `gorm:"not null"`
	Description        string    `gorm:"not null"`
	DescriptionAr      *string
	Unit               string          `gorm:"type:varchar(20);not null;default:'unit'"`
	Quantity           decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	EstimatedUnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt          time.Time
}

func (i *TenderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
