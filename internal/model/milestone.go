package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MilestoneStatus: PENDING | IN_PROGRESS | COMPLETED | DELAYED
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "PENDING"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneCompleted  MilestoneStatus = "COMPLETED"
	MilestoneDelayed    MilestoneStatus = "DELAYED"
)

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneDelayed:
		return true
	}
	return false
}

// Milestone is a numbered stage of the tender's execution plan.
// MilestoneNumber is unique within a tender.
type Milestone struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenderID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_milestone_tender_number"`
	MilestoneNumber int       `gorm:"not null;uniqueIndex:idx_milestone_tender_number"`
	Title           string    `gorm:"not null"`
	TitleAr         *string
	Percentage      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Status          MilestoneStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	DueDate         *time.Time
	CompletedDate   *time.Time
	CreatedAt       time.Time
}

func (m *Milestone) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
