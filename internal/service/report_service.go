package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/report"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ReportService loads pipeline data with plain reads and runs the report
// package over it. Results are cached in Redis for a short TTL; a report a
// few seconds stale is acceptable.
type ReportService interface {
	Summary(ctx context.Context, filter dto.ReportFilter) (*report.Summary, error)
	BidAnalysis(ctx context.Context, filter dto.ReportFilter) ([]report.BidRow, error)
	VendorPerformance(ctx context.Context, filter dto.ReportFilter) ([]report.VendorStats, error)
	MilestoneProgress(ctx context.Context, filter dto.ReportFilter) ([]report.TenderProgress, error)
	FinancialSummary(ctx context.Context, filter dto.ReportFilter) (*report.Financial, error)
	TenderReport(ctx context.Context, tenderID uuid.UUID) (*report.TenderBundle, error)
}

type reportService struct {
	tenders repository.TenderRepository
	bids    repository.BidRepository
	rdb     *redis.Client
	ttl     time.Duration
	now     func() time.Time
}

func NewReportService(tenders repository.TenderRepository, bids repository.BidRepository, rdb *redis.Client, ttl time.Duration) ReportService {
	return &reportService{tenders: tenders, bids: bids, rdb: rdb, ttl: ttl, now: utcNow}
}

func (s *reportService) Summary(ctx context.Context, filter dto.ReportFilter) (*report.Summary, error) {
	var out report.Summary
	err := s.cached(ctx, "summary", filter, &out, func() (any, error) {
		tenders, err := s.tenders.ListForReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		return report.TenderSummary(tenders), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *reportService) BidAnalysis(ctx context.Context, filter dto.ReportFilter) ([]report.BidRow, error) {
	var out []report.BidRow
	err := s.cached(ctx, "bid-analysis", filter, &out, func() (any, error) {
		bids, err := s.reportBids(ctx, filter)
		if err != nil {
			return nil, err
		}
		return report.BidAnalysis(bids), nil
	})
	return out, err
}

func (s *reportService) VendorPerformance(ctx context.Context, filter dto.ReportFilter) ([]report.VendorStats, error) {
	var out []report.VendorStats
	err := s.cached(ctx, "vendor-performance", filter, &out, func() (any, error) {
		bids, err := s.reportBids(ctx, filter)
		if err != nil {
			return nil, err
		}
		return report.VendorPerformance(bids), nil
	})
	return out, err
}

func (s *reportService) MilestoneProgress(ctx context.Context, filter dto.ReportFilter) ([]report.TenderProgress, error) {
	var out []report.TenderProgress
	err := s.cached(ctx, "milestone-progress", filter, &out, func() (any, error) {
		tenders, err := s.tenders.ListForReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		return report.MilestoneProgress(tenders), nil
	})
	return out, err
}

func (s *reportService) FinancialSummary(ctx context.Context, filter dto.ReportFilter) (*report.Financial, error) {
	var out report.Financial
	err := s.cached(ctx, "financial-summary", filter, &out, func() (any, error) {
		tenders, err := s.tenders.ListForReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		return report.FinancialSummary(tenders), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TenderReport is never cached: it is requested for one tender at a time.
func (s *reportService) TenderReport(ctx context.Context, tenderID uuid.UUID) (*report.TenderBundle, error) {
	t, err := s.tenders.FindDetailed(ctx, tenderID)
	if err != nil {
		return nil, notFound(err, "tender")
	}
	bundle := report.TenderReport(t, s.now())
	return &bundle, nil
}

// reportBids applies the tender-side filters (status, type, publish date)
// to bids; the repository filters by tender and vendor.
func (s *reportService) reportBids(ctx context.Context, filter dto.ReportFilter) ([]model.Bid, error) {
	bids, err := s.bids.ListForReport(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := bids[:0]
	for _, b := range bids {
		if matchesTender(b.Tender, filter) {
			out = append(out, b)
		}
	}
	return out, nil
}

func matchesTender(t *model.Tender, f dto.ReportFilter) bool {
	if t == nil {
		return f.Status == "" && f.Type == "" && f.StartDate == "" && f.EndDate == ""
	}
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Type != "" && string(t.Type) != f.Type {
		return false
	}
	if f.StartDate != "" || f.EndDate != "" {
		if t.PublishDate == nil {
			return false
		}
		day := t.PublishDate.UTC().Format("2006-01-02")
		if f.StartDate != "" && day < f.StartDate {
			return false
		}
		if f.EndDate != "" && day > f.EndDate {
			return false
		}
	}
	return true
}

// cached decodes a cached report into dst, or computes, stores and decodes
// it. Cache failures are logged and fall through to computing.
func (s *reportService) cached(ctx context.Context, name string, filter dto.ReportFilter, dst any, compute func() (any, error)) error {
	key := reportCacheKey(name, filter)
	if s.rdb != nil && s.ttl > 0 {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			if err := json.Unmarshal(raw, dst); err == nil {
				return nil
			}
		} else if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		}
	}

	v, err := compute()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.rdb != nil && s.ttl > 0 {
		if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}
	return json.Unmarshal(raw, dst)
}

func reportCacheKey(name string, filter dto.ReportFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha1.Sum(raw)
	return "report:" + name + ":" + hex.EncodeToString(sum[:8])
}
