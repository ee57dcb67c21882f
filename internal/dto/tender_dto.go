package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// TenderFilter is bound from the query string of GET /api/tenders.
type TenderFilter struct {
	Status    string `form:"status"     validate:"omitempty,oneof=DRAFT PUBLISHED SUBMISSION_OPEN UNDER_EVALUATION AWARDED WORK_IN_PROGRESS COMPLETED CANCELLED"`
	Type      string `form:"type"       validate:"omitempty,oneof=PUBLIC LIMITED DIRECT FRAMEWORK"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"  validate:"oneof=created_at estimated_value submission_deadline tender_number"`
	SortOrder string `form:"sort_order,default=desc"     validate:"oneof=asc desc"`
	Page      int    `form:"page,default=1"              validate:"min=1"`
	Limit     int    `form:"limit,default=10"            validate:"min=1,max=100"`
}

type TenderListItem struct {
	ID                 string          `json:"id"`
	TenderNumber       string          `json:"tender_number"`
	Title              string          `json:"title"`
	TitleAr            *string         `json:"title_ar,omitempty"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	EstimatedValue     decimal.Decimal `json:"estimated_value"`
	Currency           string          `json:"currency"`
	DocumentPrice      decimal.Decimal `json:"document_price"`
	SubmissionDeadline *time.Time      `json:"submission_deadline,omitempty"`
	BidCount           int             `json:"bid_count"`
	PurchaseCount      int             `json:"purchase_count"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TenderStats backs GET /api/tenders/stats.
type TenderStats struct {
	TotalTenders     int64           `json:"total_tenders"`
	ActiveTenders    int64           `json:"active_tenders"`
	CompletedTenders int64           `json:"completed_tenders"`
	TotalBids        int64           `json:"total_bids"`
	TotalValue       decimal.Decimal `json:"total_value"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type TenderItemRequest struct {
	ItemNumber         int             `json:"item_number"          validate:"required,min=1"`
	Description        string          `json:"description"          validate:"required"`
	DescriptionAr      *string         `json:"description_ar"`
	Unit               string          `json:"unit"`
	Quantity           decimal.Decimal `json:"quantity"             validate:"gt=0"`
	EstimatedUnitPrice decimal.Decimal `json:"estimated_unit_price" validate:"min=0"`
}

type MilestoneRequest struct {
	MilestoneNumber int             `json:"milestone_number" validate:"required,min=1"`
	Title           string          `json:"title"            validate:"required"`
	TitleAr         *string         `json:"title_ar"`
	Percentage      decimal.Decimal `json:"percentage"       validate:"min=0,max=100"`
	Amount          decimal.Decimal `json:"amount"           validate:"min=0"`
	DueDate         *time.Time      `json:"due_date"`
}

type CreateTenderRequest struct {
	Title              string              `json:"title"               validate:"required,min=3"`
	TitleAr            *string             `json:"title_ar"`
	Description        *string             `json:"description"`
	DescriptionAr      *string             `json:"description_ar"`
	Type               string              `json:"type"                validate:"omitempty,oneof=PUBLIC LIMITED DIRECT FRAMEWORK"`
	EstimatedValue     decimal.Decimal     `json:"estimated_value"     validate:"min=0"`
	Currency           string              `json:"currency"            validate:"omitempty,len=3"`
	DocumentPrice      decimal.Decimal     `json:"document_price"      validate:"min=0"`
	PublishDate        *time.Time          `json:"publish_date"`
	DocumentSaleStart  *time.Time          `json:"document_sale_start"`
	DocumentSaleEnd    *time.Time          `json:"document_sale_end"`
	SubmissionDeadline *time.Time          `json:"submission_deadline"`
	OpeningDate        *time.Time          `json:"opening_date"`
	Items              []TenderItemRequest `json:"items"               validate:"omitempty,dive"`
	Milestones         []MilestoneRequest  `json:"milestones"          validate:"omitempty,dive"`
}

// UpdateTenderRequest patches descriptive fields. Status moves go through
// POST /tenders/:id/transition.
type UpdateTenderRequest struct {
	Title              *string          `json:"title"          validate:"omitempty,min=3"`
	TitleAr            *string          `json:"title_ar"`
	Description        *string          `json:"description"`
	DescriptionAr      *string          `json:"description_ar"`
	EstimatedValue     *decimal.Decimal `json:"estimated_value"`
	DocumentPrice      *decimal.Decimal `json:"document_price"`
	DocumentSaleStart  *time.Time       `json:"document_sale_start"`
	DocumentSaleEnd    *time.Time       `json:"document_sale_end"`
	SubmissionDeadline *time.Time       `json:"submission_deadline"`
	OpeningDate        *time.Time       `json:"opening_date"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT PUBLISHED SUBMISSION_OPEN UNDER_EVALUATION AWARDED WORK_IN_PROGRESS COMPLETED CANCELLED"`
}

type AddItemsRequest struct {
	Items []TenderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type AddMilestonesRequest struct {
	Milestones []MilestoneRequest `json:"milestones" validate:"required,min=1,dive"`
}

type UpdateMilestoneRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED DELAYED"`
}

type EvaluateRequest struct {
	EvaluationType string         `json:"evaluation_type" validate:"required,oneof=TECHNICAL FINANCIAL COMBINED"`
	Criteria       map[string]any `json:"criteria"`
	Weights        map[string]any `json:"weights"`
	Report         *string        `json:"report"`
	ReportAr       *string        `json:"report_ar"`
	Recommendation *string        `json:"recommendation"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TenderItemResponse struct {
	ID                 string          `json:"id"`
	ItemNumber         int             `json:"item_number"`
	Description        string          `json:"description"`
	DescriptionAr      *string         `json:"description_ar,omitempty"`
	Unit               string          `json:"unit"`
	Quantity           decimal.Decimal `json:"quantity"`
	EstimatedUnitPrice decimal.Decimal `json:"estimated_unit_price"`
}

type MilestoneResponse struct {
	ID              string          `json:"id"`
	MilestoneNumber int             `json:"milestone_number"`
	Title           string          `json:"title"`
	TitleAr         *string         `json:"title_ar,omitempty"`
	Percentage      decimal.Decimal `json:"percentage"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	CompletedDate   *time.Time      `json:"completed_date,omitempty"`
}

type EvaluationResponse struct {
	ID             string         `json:"id"`
	EvaluationType string         `json:"evaluation_type"`
	Criteria       map[string]any `json:"criteria,omitempty"`
	Weights        map[string]any `json:"weights,omitempty"`
	Report         *string        `json:"report,omitempty"`
	ReportAr       *string        `json:"report_ar,omitempty"`
	Recommendation *string        `json:"recommendation,omitempty"`
	EvaluatedByID  string         `json:"evaluated_by_id"`
	CreatedAt      time.Time      `json:"created_at"`
}

type TenderResponse struct {
	ID                 string          `json:"id"`
	TenderNumber       string          `json:"tender_number"`
	Title              string          `json:"title"`
	TitleAr            *string         `json:"title_ar,omitempty"`
	Description        *string         `json:"description,omitempty"`
	DescriptionAr      *string         `json:"description_ar,omitempty"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	EstimatedValue     decimal.Decimal `json:"estimated_value"`
	Currency           string          `json:"currency"`
	DocumentPrice      decimal.Decimal `json:"document_price"`
	PublishDate        *time.Time      `json:"publish_date,omitempty"`
	DocumentSaleStart  *time.Time      `json:"document_sale_start,omitempty"`
	DocumentSaleEnd    *time.Time      `json:"document_sale_end,omitempty"`
	SubmissionDeadline *time.Time      `json:"submission_deadline,omitempty"`
	OpeningDate        *time.Time      `json:"opening_date,omitempty"`
	AwardDate          *time.Time      `json:"award_date,omitempty"`
	WorkStartDate      *time.Time      `json:"work_start_date,omitempty"`
	WorkEndDate        *time.Time      `json:"work_end_date,omitempty"`
	CreatedByID        string          `json:"created_by_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Items       []TenderItemResponse `json:"items"`
	Milestones  []MilestoneResponse  `json:"milestones"`
	Bids        []BidResponse        `json:"bids,omitempty"`
	Purchases   []PurchaseResponse   `json:"document_purchases,omitempty"`
	Evaluations []EvaluationResponse `json:"evaluations,omitempty"`
	WorkOrder   *WorkOrderResponse   `json:"work_order,omitempty"`
}
