// Package report computes the procurement reports. Every function is pure:
// it reads already-loaded models and never touches the store. Any ratio
// whose denominator is zero yields 0, so reports never carry NaN or Inf.
package report

import (
	"math"
	"sort"
	"time"

	"nakl/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Band is the competitiveness label of a bid relative to the tender estimate.
type Band string

const (
	BandHighlyCompetitive Band = "Highly Competitive"
	BandCompetitive       Band = "Competitive"
	BandFair              Band = "Fair"
	BandHigh              Band = "High"
)

// Ratio returns num/den, or zero when den is zero.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// Percent returns num/den*100 rounded to two places, or zero when den is zero.
func Percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Mul(hundred).Div(den).Round(2)
}

// Deviation is how far a bid lies from the estimate; negative means cheaper.
func Deviation(amount, estimate decimal.Decimal) decimal.Decimal {
	return amount.Sub(estimate)
}

// DeviationPct is the deviation as a percentage of the estimate, rounded
// for display. Classify the unrounded value from exactDeviationPct.
func DeviationPct(amount, estimate decimal.Decimal) decimal.Decimal {
	return exactDeviationPct(amount, estimate).Round(2)
}

func exactDeviationPct(amount, estimate decimal.Decimal) decimal.Decimal {
	if estimate.IsZero() {
		return decimal.Zero
	}
	return Deviation(amount, estimate).Mul(hundred).Div(estimate)
}

// BandFor classifies a bid amount against the estimate.
func BandFor(amount, estimate decimal.Decimal) Band {
	return Classify(exactDeviationPct(amount, estimate))
}

// Classify maps a deviation percentage to its band:
//
//	pct < -10        Highly Competitive
//	-10 <= pct < 0   Competitive
//	0 <= pct < 10    Fair
//	pct >= 10        High
func Classify(pct decimal.Decimal) Band {
	switch {
	case pct.LessThan(decimal.NewFromInt(-10)):
		return BandHighlyCompetitive
	case pct.IsNegative():
		return BandCompetitive
	case pct.LessThan(decimal.NewFromInt(10)):
		return BandFair
	default:
		return BandHigh
	}
}

// BidRow is one line of the bid analysis.
type BidRow struct {
	BidID           string           `json:"bid_id"`
	BidNumber       string           `json:"bid_number"`
	TenderID        string           `json:"tender_id"`
	TenderNumber    string           `json:"tender_number,omitempty"`
	TenderTitle     string           `json:"tender_title,omitempty"`
	VendorID        string           `json:"vendor_id"`
	Status          string           `json:"status"`
	SubmittedDate   time.Time        `json:"submitted_date"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	EstimatedValue  decimal.Decimal  `json:"estimated_value"`
	Deviation       decimal.Decimal  `json:"deviation"`
	DeviationPct    decimal.Decimal  `json:"deviation_pct"`
	Competitiveness Band             `json:"competitiveness"`
	TechnicalScore  *decimal.Decimal `json:"technical_score"`
	FinancialScore  *decimal.Decimal `json:"financial_score"`
	TotalScore      *decimal.Decimal `json:"total_score"`
	ItemCount       int              `json:"item_count"`
}

// AnalyzeBid computes the comparison metrics of one bid against its tender.
func AnalyzeBid(b model.Bid, t *model.Tender) BidRow {
	row := BidRow{
		BidID:          b.ID.String(),
		BidNumber:      b.BidNumber,
		TenderID:       b.TenderID.String(),
		VendorID:       b.VendorID.String(),
		Status:         string(b.Status),
		SubmittedDate:  b.SubmittedDate,
		TotalAmount:    b.TotalAmount,
		TechnicalScore: b.TechnicalScore,
		FinancialScore: b.FinancialScore,
		TotalScore:     b.TotalScore,
		ItemCount:      len(b.Items),
	}
	if t != nil {
		row.TenderNumber = t.TenderNumber
		row.TenderTitle = t.Title
		row.EstimatedValue = t.EstimatedValue
	}
	row.Deviation = Deviation(b.TotalAmount, row.EstimatedValue)
	row.DeviationPct = DeviationPct(b.TotalAmount, row.EstimatedValue)
	row.Competitiveness = BandFor(b.TotalAmount, row.EstimatedValue)
	return row
}

// BidAnalysis analyses bids whose Tender is preloaded and ranks them.
func BidAnalysis(bids []model.Bid) []BidRow {
	rows := make([]BidRow, 0, len(bids))
	for _, b := range bids {
		rows = append(rows, AnalyzeBid(b, b.Tender))
	}
	Rank(rows)
	return rows
}

// Rank orders rows by total score descending; unscored rows go last and keep
// their submission order.
func Rank(rows []BidRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].TotalScore, rows[j].TotalScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.GreaterThan(*b)
		}
	})
}

// ceilDays returns the whole days from a to b, rounded up.
func ceilDays(a, b time.Time) int {
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}
