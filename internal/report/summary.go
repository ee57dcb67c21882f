package report

import (
	"sort"

	"nakl/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Tender summary ──────────────────────────────────────────────────────────

type Summary struct {
	TotalTenders           int             `json:"total_tenders"`
	TotalEstimatedValue    decimal.Decimal `json:"total_estimated_value"`
	AverageEstimatedValue  decimal.Decimal `json:"average_estimated_value"`
	TotalBids              int             `json:"total_bids"`
	AverageBidsPerTender   decimal.Decimal `json:"average_bids_per_tender"`
	TotalDocumentPurchases int             `json:"total_document_purchases"`
	DocumentRevenue        decimal.Decimal `json:"document_revenue"`
	StatusBreakdown        map[string]int  `json:"status_breakdown"`
	TypeBreakdown          map[string]int  `json:"type_breakdown"`
}

// paidRevenue sums the amounts captured on PAID purchases. The captured
// amount, not the tender's current price, is what the vendor actually paid.
func paidRevenue(ps []model.DocumentPurchase) (decimal.Decimal, int) {
	total := decimal.Zero
	n := 0
	for _, p := range ps {
		if p.Status == model.PurchasePaid {
			total = total.Add(p.Amount)
			n++
		}
	}
	return total, n
}

// TenderSummary expects Bids and DocumentPurchases preloaded.
func TenderSummary(tenders []model.Tender) Summary {
	s := Summary{
		TotalTenders:        len(tenders),
		TotalEstimatedValue: decimal.Zero,
		DocumentRevenue:     decimal.Zero,
		StatusBreakdown:     map[string]int{},
		TypeBreakdown:       map[string]int{},
	}
	for _, t := range tenders {
		s.TotalEstimatedValue = s.TotalEstimatedValue.Add(t.EstimatedValue)
		s.TotalBids += len(t.Bids)
		rev, n := paidRevenue(t.DocumentPurchases)
		s.DocumentRevenue = s.DocumentRevenue.Add(rev)
		s.TotalDocumentPurchases += n
		s.StatusBreakdown[string(t.Status)]++
		s.TypeBreakdown[string(t.Type)]++
	}
	count := decimal.NewFromInt(int64(len(tenders)))
	s.AverageEstimatedValue = Ratio(s.TotalEstimatedValue, count).Round(2)
	s.AverageBidsPerTender = Ratio(decimal.NewFromInt(int64(s.TotalBids)), count).Round(2)
	return s
}

// ─── Vendor performance ──────────────────────────────────────────────────────

type VendorStats struct {
	VendorID         string          `json:"vendor_id"`
	TotalBids        int             `json:"total_bids"`
	WonBids          int             `json:"won_bids"`
	TotalBidAmount   decimal.Decimal `json:"total_bid_amount"`
	AverageBidAmount decimal.Decimal `json:"average_bid_amount"`
	WinRate          decimal.Decimal `json:"win_rate"`
	// AverageScore covers scored bids only; null when none were scored
	AverageScore *decimal.Decimal `json:"average_score"`
	ScoredBids   int              `json:"scored_bids"`
}

// VendorPerformance groups bids by vendor, best win rate first.
func VendorPerformance(bids []model.Bid) []VendorStats {
	byVendor := map[string]*VendorStats{}
	scoreSum := map[string]decimal.Decimal{}
	var order []string

	for _, b := range bids {
		id := b.VendorID.String()
		vs, ok := byVendor[id]
		if !ok {
			vs = &VendorStats{VendorID: id, TotalBidAmount: decimal.Zero}
			byVendor[id] = vs
			order = append(order, id)
		}
		vs.TotalBids++
		vs.TotalBidAmount = vs.TotalBidAmount.Add(b.TotalAmount)
		if b.Status == model.BidWinner {
			vs.WonBids++
		}
		if b.TotalScore != nil {
			vs.ScoredBids++
			scoreSum[id] = scoreSum[id].Add(*b.TotalScore)
		}
	}

	out := make([]VendorStats, 0, len(order))
	for _, id := range order {
		vs := byVendor[id]
		total := decimal.NewFromInt(int64(vs.TotalBids))
		vs.AverageBidAmount = Ratio(vs.TotalBidAmount, total).Round(2)
		vs.WinRate = Percent(decimal.NewFromInt(int64(vs.WonBids)), total)
		if vs.ScoredBids > 0 {
			avg := Ratio(scoreSum[id], decimal.NewFromInt(int64(vs.ScoredBids))).Round(2)
			vs.AverageScore = &avg
		}
		out = append(out, *vs)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WinRate.GreaterThan(out[j].WinRate) })
	return out
}

// ─── Financial summary ───────────────────────────────────────────────────────

type Financial struct {
	TotalEstimatedValue     decimal.Decimal `json:"total_estimated_value"`
	TotalAwardedValue       decimal.Decimal `json:"total_awarded_value"`
	Savings                 decimal.Decimal `json:"savings"`
	SavingsPercentage       decimal.Decimal `json:"savings_percentage"`
	DocumentRevenue         decimal.Decimal `json:"document_revenue"`
	TendersAwarded          int             `json:"tenders_awarded"`
	AverageSavingsPerTender decimal.Decimal `json:"average_savings_per_tender"`
}

// FinancialSummary expects Bids and DocumentPurchases preloaded. Tenders
// without a winner add their estimate but nothing to the awarded value.
func FinancialSummary(tenders []model.Tender) Financial {
	f := Financial{
		TotalEstimatedValue: decimal.Zero,
		TotalAwardedValue:   decimal.Zero,
		DocumentRevenue:     decimal.Zero,
	}
	for _, t := range tenders {
		f.TotalEstimatedValue = f.TotalEstimatedValue.Add(t.EstimatedValue)
		for _, b := range t.Bids {
			if b.Status == model.BidWinner {
				f.TotalAwardedValue = f.TotalAwardedValue.Add(b.TotalAmount)
				break
			}
		}
		rev, _ := paidRevenue(t.DocumentPurchases)
		f.DocumentRevenue = f.DocumentRevenue.Add(rev)
		if t.Status.HasWinner() {
			f.TendersAwarded++
		}
	}
	f.Savings = f.TotalEstimatedValue.Sub(f.TotalAwardedValue)
	f.SavingsPercentage = Percent(f.Savings, f.TotalEstimatedValue)
	f.AverageSavingsPerTender = Ratio(f.Savings, decimal.NewFromInt(int64(f.TendersAwarded))).Round(2)
	return f
}
