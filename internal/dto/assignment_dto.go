package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentFilter struct {
	Status   string `form:"status"    validate:"omitempty,oneof=DRAFT ISSUED IN_PROGRESS ON_HOLD COMPLETED CANCELLED"`
	VendorID string `form:"vendor_id" validate:"omitempty,uuid"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// InstallmentRequest: when amount is omitted it is derived from percentage.
type InstallmentRequest struct {
	Milestone  string           `json:"milestone"  validate:"required"`
	Percentage decimal.Decimal  `json:"percentage" validate:"min=0,max=100"`
	Amount     *decimal.Decimal `json:"amount"`
	DueDate    *time.Time       `json:"due_date"`
}

type RequiredResources struct {
	Vehicles  int      `json:"vehicles"  validate:"min=0"`
	Drivers   int      `json:"drivers"   validate:"min=0"`
	Equipment []string `json:"equipment"`
}

type CreateAssignmentRequest struct {
	AwardLetterID       string               `json:"award_letter_id"       validate:"required,uuid"`
	CustomerID          string               `json:"customer_id"           validate:"required,uuid"`
	StartDate           time.Time            `json:"start_date"            validate:"required"`
	ProjectDurationDays int                  `json:"project_duration_days" validate:"omitempty,min=1"`
	PaymentTerms        *string              `json:"payment_terms"`
	PaymentSchedule     []InstallmentRequest `json:"payment_schedule"      validate:"omitempty,dive"`
	WorkDetails         *string              `json:"work_details"`
	SpecialConditions   *string              `json:"special_conditions"`
	ProjectManager      *string              `json:"project_manager"`
	SiteLocation        *string              `json:"site_location"`
	RequiredResources   RequiredResources    `json:"required_resources"`
	Notes               *string              `json:"notes"`
}

type AssignmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ISSUED IN_PROGRESS ON_HOLD COMPLETED CANCELLED"`
}

type InstallmentResponse struct {
	Sequence   int             `json:"sequence"`
	Milestone  string          `json:"milestone"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	Status     string          `json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

type AssignmentResponse struct {
	ID                  string                `json:"id"`
	AssignmentNumber    string                `json:"assignment_number"`
	AwardLetterID       string                `json:"award_letter_id"`
	TenderID            string                `json:"tender_id"`
	BidID               string                `json:"bid_id"`
	VendorID            string                `json:"vendor_id"`
	CustomerID          string                `json:"customer_id"`
	WorkOrderID         *string               `json:"work_order_id,omitempty"`
	ContractAmount      decimal.Decimal       `json:"contract_amount"`
	Currency            string                `json:"currency"`
	ProjectDurationDays int                   `json:"project_duration_days"`
	StartDate           time.Time             `json:"start_date"`
	ExpectedEndDate     time.Time             `json:"expected_end_date"`
	ActualEndDate       *time.Time            `json:"actual_end_date,omitempty"`
	Status              string                `json:"status"`
	PaymentTerms        *string               `json:"payment_terms,omitempty"`
	PaymentSchedule     []InstallmentResponse `json:"payment_schedule"`
	WorkDetails         *string               `json:"work_details,omitempty"`
	SpecialConditions   *string               `json:"special_conditions,omitempty"`
	ProjectManager      *string               `json:"project_manager,omitempty"`
	SiteLocation        *string               `json:"site_location,omitempty"`
	RequiredResources   RequiredResources     `json:"required_resources"`
	Notes               *string               `json:"notes,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
}
