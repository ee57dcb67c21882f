package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Award / Work order ──────────────────────────────────────────────────────

type AwardTenderRequest struct {
	BidID         string     `json:"bid_id"          validate:"required,uuid"`
	AwardDate     *time.Time `json:"award_date"`
	WorkStartDate *time.Time `json:"work_start_date"`
	WorkEndDate   *time.Time `json:"work_end_date"`
}

type AwardResponse struct {
	Tender TenderResponse `json:"tender"`
	Bid    BidResponse    `json:"bid"`
}

type CreateWorkOrderRequest struct {
	CustomerID    string     `json:"customer_id"    validate:"required,uuid"`
	VendorID      *string    `json:"vendor_id"      validate:"omitempty,uuid"`
	Description   *string    `json:"description"`
	DescriptionAr *string    `json:"description_ar"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

type WorkOrderResponse struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	TenderID      string          `json:"tender_id"`
	BidID         string          `json:"bid_id"`
	CustomerID    string          `json:"customer_id"`
	VendorID      string          `json:"vendor_id"`
	Description   *string         `json:"description,omitempty"`
	DescriptionAr *string         `json:"description_ar,omitempty"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ─── Award letters ───────────────────────────────────────────────────────────

type AwardLetterFilter struct {
	Status   string `form:"status"   validate:"omitempty,oneof=DRAFT ISSUED ACCEPTED REJECTED EXPIRED"`
	TenderID string `form:"tender_id" validate:"omitempty,uuid"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// IssueAwardLetterRequest: awarded_amount defaults to the winning bid amount.
type IssueAwardLetterRequest struct {
	TenderID               string           `json:"tender_id"                validate:"required,uuid"`
	BidID                  string           `json:"bid_id"                   validate:"required,uuid"`
	AwardedAmount          *decimal.Decimal `json:"awarded_amount"`
	ValidityDays           int              `json:"validity_days"            validate:"required,min=1,max=365"`
	IssueDate              *time.Time       `json:"issue_date"`
	ScopeOfWork            *string          `json:"scope_of_work"`
	ContractNumber         *string          `json:"contract_number"`
	ContractDate           *time.Time       `json:"contract_date"`
	ContractDurationMonths *int             `json:"contract_duration_months" validate:"omitempty,min=1"`
	ContractTerms          *string          `json:"contract_terms"`
	Notes                  *string          `json:"notes"`
	NotifyEmail            *string          `json:"notify_email"             validate:"omitempty,email"`
}

type AwardLetterResponse struct {
	ID                     string          `json:"id"`
	LetterNumber           string          `json:"letter_number"`
	TenderID               string          `json:"tender_id"`
	BidID                  string          `json:"bid_id"`
	VendorID               string          `json:"vendor_id"`
	AwardedAmount          decimal.Decimal `json:"awarded_amount"`
	OriginalBidAmount      decimal.Decimal `json:"original_bid_amount"`
	Discount               decimal.Decimal `json:"discount"`
	Currency               string          `json:"currency"`
	ScopeOfWork            *string         `json:"scope_of_work,omitempty"`
	IssueDate              time.Time       `json:"issue_date"`
	ValidityDays           int             `json:"validity_days"`
	ExpiryDate             time.Time       `json:"expiry_date"`
	Status                 string          `json:"status"`
	ContractNumber         *string         `json:"contract_number,omitempty"`
	ContractDate           *time.Time      `json:"contract_date,omitempty"`
	ContractDurationMonths *int            `json:"contract_duration_months,omitempty"`
	ContractTerms          *string         `json:"contract_terms,omitempty"`
	Notes                  *string         `json:"notes,omitempty"`
	IssuedAt               *time.Time      `json:"issued_at,omitempty"`
	RespondedAt            *time.Time      `json:"responded_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}
