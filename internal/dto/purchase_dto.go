package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseDocumentsRequest struct {
	VendorID      string          `json:"vendor_id"      validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"         validate:"min=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=CASH BANK_TRANSFER CARD CHEQUE"`
	PaymentRef    *string         `json:"payment_ref"`
}

type VoidPurchaseRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type PurchaseResponse struct {
	ID             string          `json:"id"`
	PurchaseNumber string          `json:"purchase_number"`
	TenderID       string          `json:"tender_id"`
	VendorID       string          `json:"vendor_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentRef     *string         `json:"payment_ref,omitempty"`
	Status         string          `json:"status"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	VoidReason     *string         `json:"void_reason,omitempty"`
}

type AccessResponse struct {
	TenderID  string `json:"tender_id"`
	VendorID  string `json:"vendor_id"`
	HasAccess bool   `json:"has_access"`
}
