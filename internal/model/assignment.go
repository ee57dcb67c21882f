package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssignmentStatus follows DRAFT -> ISSUED -> IN_PROGRESS -> COMPLETED,
// with ON_HOLD as a pause of IN_PROGRESS and CANCELLED from any live state.
type AssignmentStatus string

const (
	AssignmentDraft      AssignmentStatus = "DRAFT"
	AssignmentIssued     AssignmentStatus = "ISSUED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentOnHold     AssignmentStatus = "ON_HOLD"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentCancelled  AssignmentStatus = "CANCELLED"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentDraft:      {AssignmentIssued, AssignmentCancelled},
	AssignmentIssued:     {AssignmentInProgress, AssignmentCancelled},
	AssignmentInProgress: {AssignmentCompleted, AssignmentOnHold, AssignmentCancelled},
	AssignmentOnHold:     {AssignmentInProgress, AssignmentCancelled},
	AssignmentCompleted:  {},
	AssignmentCancelled:  {},
}

func (s AssignmentStatus) Valid() bool {
	_, ok := assignmentTransitions[s]
	return ok
}

func (s AssignmentStatus) CanTransitionTo(target AssignmentStatus) bool {
	for _, t := range assignmentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Assignment turns an accepted award letter into an executable contract.
type Assignment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AssignmentNumber string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	AwardLetterID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	TenderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BidID            uuid.UUID       `gorm:"type:uuid;not null"`
	VendorID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null"`
	WorkOrderID      *uuid.UUID      `gorm:"type:uuid"`
	ContractAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	// ProjectDurationDays drives ExpectedEndDate = StartDate + duration
	ProjectDurationDays int       `gorm:"not null"`
	StartDate           time.Time `gorm:"not null"`
	ExpectedEndDate     time.Time `gorm:"not null"`
	ActualEndDate       *time.Time
	Status              AssignmentStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	PaymentTerms        *string
	WorkDetails         *string
	SpecialConditions   *string
	ProjectManager      *string
	SiteLocation        *string
	RequiredVehicles    int `gorm:"not null;default:0"`
	RequiredDrivers     int `gorm:"not null;default:0"`
	RequiredEquipment   datatypes.JSONSlice[string]
	Notes               *string
	CreatedByID         uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	PaymentSchedule []PaymentInstallment `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

func (a *Assignment) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// InstallmentStatus: PENDING | PAID
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
)

// PaymentInstallment is one entry of an assignment's payment schedule.
// Amounts across a schedule sum to the assignment's contract amount.
type PaymentInstallment struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AssignmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_installment_seq"`
	Sequence     int             `gorm:"not null;uniqueIndex:idx_installment_seq"`
	Milestone    string          `gorm:"not null"`
	Percentage   decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	DueDate      *time.Time
	Status       InstallmentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaidAt       *time.Time
}

func (p *PaymentInstallment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
