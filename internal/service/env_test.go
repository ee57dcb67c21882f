package service

import (
	"context"
	"testing"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"
	"nakl/internal/repository"
	"nakl/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires every service over one sqlite database, with no redis,
// no dispatcher and no event bus.
type testEnv struct {
	db          *gorm.DB
	seq         repository.SequenceRepository
	tenders     TenderService
	documents   DocumentService
	bids        BidService
	awards      *awardService
	assignments *assignmentService
	reports     *reportService
	postings    repository.LedgerPostingRepository
	actor       uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)

	seq := repository.NewSequenceRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	bidRepo := repository.NewBidRepository(db)
	letterRepo := repository.NewAwardLetterRepository(db)
	woRepo := repository.NewWorkOrderRepository(db)
	asgRepo := repository.NewAssignmentRepository(db)
	postingRepo := repository.NewLedgerPostingRepository(db)
	alloc := NewAllocator(seq, 3)

	return &testEnv{
		db:          db,
		seq:         seq,
		tenders:     NewTenderService(tenderRepo, alloc, nil, "SAR"),
		documents:   NewDocumentService(tenderRepo, purchaseRepo, postingRepo, alloc, nil, nil),
		bids:        NewBidService(tenderRepo, purchaseRepo, bidRepo, alloc, nil),
		awards:      NewAwardService(tenderRepo, bidRepo, letterRepo, woRepo, postingRepo, alloc, nil, nil, t.TempDir()).(*awardService),
		assignments: NewAssignmentService(tenderRepo, bidRepo, letterRepo, woRepo, postingRepo, asgRepo, alloc, nil, nil).(*assignmentService),
		reports:     NewReportService(tenderRepo, bidRepo, nil, 0).(*reportService),
		postings:    postingRepo,
		actor:       uuid.New(),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func requireKind(t *testing.T, err error, kind apierror.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := apierror.KindOf(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	require.Equal(t, kind, got, err.Error())
}

// createTender creates a DRAFT tender with estimate 100000 and document price 500.
func (e *testEnv) createTender(t *testing.T) *dto.TenderResponse {
	t.Helper()
	deadline := time.Now().UTC().Add(14 * 24 * time.Hour)
	resp, err := e.tenders.Create(context.Background(), e.actor, dto.CreateTenderRequest{
		Title:              "Road resurfacing, district 4",
		Type:               "PUBLIC",
		EstimatedValue:     dec("100000"),
		DocumentPrice:      dec("500"),
		SubmissionDeadline: &deadline,
		Items: []dto.TenderItemRequest{
			{ItemNumber: 1, Description: "Asphalt", Unit: "ton", Quantity: dec("200"), EstimatedUnitPrice: dec("400")},
			{ItemNumber: 2, Description: "Labour", Unit: "day", Quantity: dec("100"), EstimatedUnitPrice: dec("200")},
		},
		Milestones: []dto.MilestoneRequest{
			{MilestoneNumber: 1, Title: "Mobilisation", Percentage: dec("20"), Amount: dec("20000")},
			{MilestoneNumber: 2, Title: "Handover", Percentage: dec("80"), Amount: dec("80000")},
		},
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) move(t *testing.T, tenderID uuid.UUID, targets ...model.TenderStatus) {
	t.Helper()
	for _, target := range targets {
		_, err := e.tenders.Transition(context.Background(), tenderID, target)
		require.NoError(t, err, "transition to %s", target)
	}
}

// openTender returns a tender in SUBMISSION_OPEN.
func (e *testEnv) openTender(t *testing.T) uuid.UUID {
	t.Helper()
	id := mustID(t, e.createTender(t).ID)
	e.move(t, id, model.TenderPublished, model.TenderSubmissionOpen)
	return id
}

func (e *testEnv) purchase(t *testing.T, tenderID, vendorID uuid.UUID) *dto.PurchaseResponse {
	t.Helper()
	p, err := e.documents.RecordPurchase(context.Background(), tenderID, dto.PurchaseDocumentsRequest{
		VendorID:      vendorID.String(),
		Amount:        dec("500"),
		PaymentMethod: "BANK_TRANSFER",
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) submitBid(t *testing.T, tenderID, vendorID uuid.UUID, amount string) *dto.BidResponse {
	t.Helper()
	b, err := e.bids.SubmitBid(context.Background(), tenderID, dto.SubmitBidRequest{
		VendorID:    vendorID.String(),
		TotalAmount: dec(amount),
	})
	require.NoError(t, err)
	return b
}

// biddingVendor buys documents and bids in one step.
func (e *testEnv) biddingVendor(t *testing.T, tenderID uuid.UUID, amount string) (uuid.UUID, *dto.BidResponse) {
	t.Helper()
	vendor := uuid.New()
	e.purchase(t, tenderID, vendor)
	return vendor, e.submitBid(t, tenderID, vendor, amount)
}

func (e *testEnv) bidStatus(t *testing.T, bidID string) model.BidStatus {
	t.Helper()
	var b model.Bid
	require.NoError(t, e.db.First(&b, "id = ?", bidID).Error)
	return b.Status
}

func (e *testEnv) tenderStatus(t *testing.T, id uuid.UUID) model.TenderStatus {
	t.Helper()
	resp, err := e.tenders.Get(context.Background(), id)
	require.NoError(t, err)
	return model.TenderStatus(resp.Status)
}
