package report

import (
	"time"

	"nakl/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Milestone progress ──────────────────────────────────────────────────────

type MilestoneLine struct {
	MilestoneNumber int             `json:"milestone_number"`
	Title           string          `json:"title"`
	TitleAr         *string         `json:"title_ar,omitempty"`
	Percentage      decimal.Decimal `json:"percentage"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	CompletedDate   *time.Time      `json:"completed_date,omitempty"`
}

type TenderProgress struct {
	TenderID        string          `json:"tender_id"`
	TenderNumber    string          `json:"tender_number"`
	Title           string          `json:"title"`
	Status          string          `json:"status"`
	Milestones      []MilestoneLine `json:"milestones"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`
	OverallProgress decimal.Decimal `json:"overall_progress"`
	CompletedCount  int             `json:"completed_count"`
	TotalCount      int             `json:"total_count"`
}

// MilestoneProgress reports tenders that have milestones (preloaded,
// ordered by number). Tenders without milestones are left out.
func MilestoneProgress(tenders []model.Tender) []TenderProgress {
	out := make([]TenderProgress, 0, len(tenders))
	for _, t := range tenders {
		if len(t.Milestones) == 0 {
			continue
		}
		p := TenderProgress{
			TenderID:        t.ID.String(),
			TenderNumber:    t.TenderNumber,
			Title:           t.Title,
			Status:          string(t.Status),
			TotalAmount:     decimal.Zero,
			CompletedAmount: decimal.Zero,
		}
		for _, m := range t.Milestones {
			p.Milestones = append(p.Milestones, MilestoneLine{
				MilestoneNumber: m.MilestoneNumber,
				Title:           m.Title,
				TitleAr:         m.TitleAr,
				Percentage:      m.Percentage,
				Amount:          m.Amount,
				Status:          string(m.Status),
				DueDate:         m.DueDate,
				CompletedDate:   m.CompletedDate,
			})
			p.TotalAmount = p.TotalAmount.Add(m.Amount)
			p.TotalCount++
			if m.Status == model.MilestoneCompleted {
				p.CompletedAmount = p.CompletedAmount.Add(m.Amount)
				p.CompletedCount++
			}
		}
		p.OverallProgress = Percent(p.CompletedAmount, p.TotalAmount)
		out = append(out, p)
	}
	return out
}

// ─── Per-tender bundle ───────────────────────────────────────────────────────

type TenderStats struct {
	TotalBids              int             `json:"total_bids"`
	TotalDocumentPurchases int             `json:"total_document_purchases"`
	TotalItems             int             `json:"total_items"`
	TotalMilestones        int             `json:"total_milestones"`
	CompletedMilestones    int             `json:"completed_milestones"`
	AverageBidAmount       decimal.Decimal `json:"average_bid_amount"`
	LowestBid              decimal.Decimal `json:"lowest_bid"`
	HighestBid             decimal.Decimal `json:"highest_bid"`
	DocumentRevenue        decimal.Decimal `json:"document_revenue"`
}

type Timeline struct {
	PublishDate        *time.Time `json:"publish_date"`
	DocumentSaleStart  *time.Time `json:"document_sale_start"`
	DocumentSaleEnd    *time.Time `json:"document_sale_end"`
	SubmissionDeadline *time.Time `json:"submission_deadline"`
	OpeningDate        *time.Time `json:"opening_date"`
	AwardDate          *time.Time `json:"award_date"`
	WorkStartDate      *time.Time `json:"work_start_date"`
	WorkEndDate        *time.Time `json:"work_end_date"`
	// DaysUntilDeadline is negative once the deadline has passed
	DaysUntilDeadline *int `json:"days_until_deadline"`
	TotalDurationDays *int `json:"total_duration_days"`
}

type TenderBundle struct {
	Stats          TenderStats `json:"stats"`
	Timeline       Timeline    `json:"timeline"`
	VendorAnalysis []BidRow    `json:"vendor_analysis"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

// TenderReport builds the bundle for one fully loaded tender.
func TenderReport(t *model.Tender, now time.Time) TenderBundle {
	stats := TenderStats{
		TotalBids:        len(t.Bids),
		TotalItems:       len(t.Items),
		TotalMilestones:  len(t.Milestones),
		AverageBidAmount: decimal.Zero,
		LowestBid:        decimal.Zero,
		HighestBid:       decimal.Zero,
	}
	for _, m := range t.Milestones {
		if m.Status == model.MilestoneCompleted {
			stats.CompletedMilestones++
		}
	}
	stats.DocumentRevenue, stats.TotalDocumentPurchases = paidRevenue(t.DocumentPurchases)

	if len(t.Bids) > 0 {
		sum := decimal.Zero
		stats.LowestBid = t.Bids[0].TotalAmount
		stats.HighestBid = t.Bids[0].TotalAmount
		for _, b := range t.Bids {
			sum = sum.Add(b.TotalAmount)
			stats.LowestBid = decimal.Min(stats.LowestBid, b.TotalAmount)
			stats.HighestBid = decimal.Max(stats.HighestBid, b.TotalAmount)
		}
		stats.AverageBidAmount = Ratio(sum, decimal.NewFromInt(int64(len(t.Bids)))).Round(2)
	}

	tl := Timeline{
		PublishDate:        t.PublishDate,
		DocumentSaleStart:  t.DocumentSaleStart,
		DocumentSaleEnd:    t.DocumentSaleEnd,
		SubmissionDeadline: t.SubmissionDeadline,
		OpeningDate:        t.OpeningDate,
		AwardDate:          t.AwardDate,
		WorkStartDate:      t.WorkStartDate,
		WorkEndDate:        t.WorkEndDate,
	}
	if t.SubmissionDeadline != nil {
		d := ceilDays(now, *t.SubmissionDeadline)
		tl.DaysUntilDeadline = &d
	}
	if t.WorkStartDate != nil && t.WorkEndDate != nil {
		d := ceilDays(*t.WorkStartDate, *t.WorkEndDate)
		tl.TotalDurationDays = &d
	}

	rows := make([]BidRow, 0, len(t.Bids))
	for _, b := range t.Bids {
		rows = append(rows, AnalyzeBid(b, t))
	}

	return TenderBundle{Stats: stats, Timeline: tl, VendorAnalysis: rows, GeneratedAt: now}
}
