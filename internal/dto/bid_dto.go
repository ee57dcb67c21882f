package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type BidItemRequest struct {
	TenderItemID *string         `json:"tender_item_id" validate:"omitempty,uuid"`
	Description  string          `json:"description"    validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"       validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"     validate:"min=0"`
}

// SubmitBidRequest: total_amount is checked by the bid ledger (InvalidAmount),
// not by the validator, so a zero or negative total maps to its own error kind.
type SubmitBidRequest struct {
	VendorID    string           `json:"vendor_id"    validate:"required,uuid"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Notes       *string          `json:"notes"`
	Items       []BidItemRequest `json:"items"        validate:"omitempty,dive"`
}

// ScoreBidRequest: weights default to 70/30 (technical/financial).
type ScoreBidRequest struct {
	TechnicalScore  decimal.Decimal  `json:"technical_score"  validate:"min=0,max=100"`
	FinancialScore  decimal.Decimal  `json:"financial_score"  validate:"min=0,max=100"`
	TechnicalWeight *decimal.Decimal `json:"technical_weight"`
	FinancialWeight *decimal.Decimal `json:"financial_weight"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BidItemResponse struct {
	ID           string          `json:"id"`
	TenderItemID *string         `json:"tender_item_id,omitempty"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type BidResponse struct {
	ID             string            `json:"id"`
	BidNumber      string            `json:"bid_number"`
	TenderID       string            `json:"tender_id"`
	VendorID       string            `json:"vendor_id"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	SubmittedDate  time.Time         `json:"submitted_date"`
	TechnicalScore *decimal.Decimal  `json:"technical_score,omitempty"`
	FinancialScore *decimal.Decimal  `json:"financial_score,omitempty"`
	TotalScore     *decimal.Decimal  `json:"total_score,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	Items          []BidItemResponse `json:"items"`
}
