package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evaluation is an append-only assessment record. Criteria and weights are
// free-form JSON documents supplied by the evaluation panel.
// EvaluationType: "TECHNICAL" | "FINANCIAL" | "COMBINED"
type Evaluation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	EvaluationType string    `gorm:"type:varchar(20);not null"`
	Criteria       datatypes.JSON
	Weights        datatypes.JSON
	Report         *string
	ReportAr       *string
	Recommendation *string
	EvaluatedByID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt      time.Time
}

func (e *Evaluation) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
