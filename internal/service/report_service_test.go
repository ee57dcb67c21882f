package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports_EmptyDatabaseIsZeroNotError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sum, err := env.reports.Summary(ctx, dto.ReportFilter{})
	require.NoError(t, err)
	assert.Zero(t, sum.TotalTenders)
	assert.True(t, sum.AverageBidsPerTender.IsZero())

	fin, err := env.reports.FinancialSummary(ctx, dto.ReportFilter{})
	require.NoError(t, err)
	assert.True(t, fin.SavingsPercentage.IsZero())

	rows, err := env.reports.BidAnalysis(ctx, dto.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReports_OverPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tenderID, winner, _ := awardedTender(t, env)
	env.createTender(t) // a DRAFT tender with no activity

	sum, err := env.reports.Summary(ctx, dto.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalTenders)
	assert.Equal(t, 2, sum.TotalBids)
	assert.True(t, sum.DocumentRevenue.Equal(dec("1000")), sum.DocumentRevenue.String())
	assert.Equal(t, 1, sum.StatusBreakdown[string(model.TenderAwarded)])

	fin, err := env.reports.FinancialSummary(ctx, dto.ReportFilter{Status: string(model.TenderAwarded)})
	require.NoError(t, err)
	assert.Equal(t, 1, fin.TendersAwarded)
	assert.True(t, fin.TotalAwardedValue.Equal(dec("90000")))
	assert.True(t, fin.Savings.Equal(dec("10000")))

	rows, err := env.reports.BidAnalysis(ctx, dto.ReportFilter{TenderID: tenderID.String()})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	deviation := rows[0].Deviation.Add(rows[1].Deviation)
	assert.True(t, deviation.Equal(dec("90000").Add(dec("97000")).Sub(dec("200000"))))

	// status filter reaches bids through their tender
	rows, err = env.reports.BidAnalysis(ctx, dto.ReportFilter{Status: string(model.TenderDraft)})
	require.NoError(t, err)
	assert.Empty(t, rows)

	vendors, err := env.reports.VendorPerformance(ctx, dto.ReportFilter{VendorID: winner.VendorID})
	require.NoError(t, err)
	require.Len(t, vendors, 1)

	bundle, err := env.reports.TenderReport(ctx, tenderID)
	require.NoError(t, err)
	assert.Equal(t, 2, bundle.Stats.TotalBids)
	assert.Len(t, bundle.VendorAnalysis, 2)

	_, err = env.reports.TenderReport(ctx, uuid.New())
	requireKind(t, err, apierror.KindNotFound)
}

func TestMatchesTender(t *testing.T) {
	published := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	tender := &model.Tender{Status: model.TenderAwarded, Type: model.TenderTypePublic, PublishDate: &published}

	assert.True(t, matchesTender(tender, dto.ReportFilter{}))
	assert.True(t, matchesTender(tender, dto.ReportFilter{Status: "AWARDED", Type: "PUBLIC"}))
	assert.False(t, matchesTender(tender, dto.ReportFilter{Type: "LIMITED"}))
	assert.True(t, matchesTender(tender, dto.ReportFilter{StartDate: "2026-02-15", EndDate: "2026-02-15"}))
	assert.False(t, matchesTender(tender, dto.ReportFilter{StartDate: "2026-02-16"}))
	assert.False(t, matchesTender(&model.Tender{}, dto.ReportFilter{EndDate: "2026-12-31"}))
	assert.False(t, matchesTender(nil, dto.ReportFilter{Status: "AWARDED"}))
}

func TestReportCacheKey(t *testing.T) {
	a := reportCacheKey("summary", dto.ReportFilter{Status: "AWARDED"})
	b := reportCacheKey("summary", dto.ReportFilter{Status: "AWARDED"})
	c := reportCacheKey("summary", dto.ReportFilter{Status: "DRAFT"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "report:summary:"))
}
