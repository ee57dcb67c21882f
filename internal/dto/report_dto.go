package dto

// ReportFilter is bound from the query string of the /tenders/reports/* routes.
// Dates are YYYY-MM-DD and bound the tender publish date (inclusive).
type ReportFilter struct {
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   validate:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status"     validate:"omitempty,oneof=DRAFT PUBLISHED SUBMISSION_OPEN UNDER_EVALUATION AWARDED WORK_IN_PROGRESS COMPLETED CANCELLED"`
	Type      string `form:"type"       validate:"omitempty,oneof=PUBLIC LIMITED DIRECT FRAMEWORK"`
	TenderID  string `form:"tender_id"  validate:"omitempty,uuid"`
	VendorID  string `form:"vendor_id"  validate:"omitempty,uuid"`
}
