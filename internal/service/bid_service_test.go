package service

import (
	"context"
	"testing"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countBids(t *testing.T, env *testEnv, tenderID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&model.Bid{}).Where("tender_id = ?", tenderID).Count(&n).Error)
	return n
}

func TestRecordPurchase_SnapshotsAmountAndWritesPosting(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)

	p := env.purchase(t, id, uuid.New())
	assert.Equal(t, "DOC-000001", p.PurchaseNumber)
	assert.Equal(t, string(model.PurchasePaid), p.Status)
	assert.True(t, p.Amount.Equal(dec("500")))

	// a later price change does not rewrite the captured amount
	price := dec("800")
	_, err := env.tenders.Update(context.Background(), id, dto.UpdateTenderRequest{DocumentPrice: &price})
	require.NoError(t, err)
	var stored model.DocumentPurchase
	require.NoError(t, env.db.First(&stored, "id = ?", p.ID).Error)
	assert.True(t, stored.Amount.Equal(dec("500")))

	var postings []model.LedgerPosting
	require.NoError(t, env.db.Find(&postings).Error)
	require.Len(t, postings, 1)
	assert.Equal(t, model.PostingDocumentRevenue, postings[0].Kind)
	assert.Equal(t, model.PostingPending, postings[0].Status)
	assert.True(t, postings[0].Amount.Equal(dec("500")))
}

func TestRecordPurchase_PriceMismatch(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)

	_, err := env.documents.RecordPurchase(context.Background(), id, dto.PurchaseDocumentsRequest{
		VendorID: uuid.NewString(), Amount: dec("499.99"), PaymentMethod: "CASH",
	})
	requireKind(t, err, apierror.KindPriceMismatch)
}

func TestRecordPurchase_TenderNotOpen(t *testing.T) {
	env := newTestEnv(t)
	draft := mustID(t, env.createTender(t).ID)

	_, err := env.documents.RecordPurchase(context.Background(), draft, dto.PurchaseDocumentsRequest{
		VendorID: uuid.NewString(), Amount: dec("500"), PaymentMethod: "CASH",
	})
	requireKind(t, err, apierror.KindTenderNotOpen)
}

func TestSubmitBid_RequiresPaidDocuments(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	vendor := uuid.New()

	_, err := env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
		VendorID: vendor.String(), TotalAmount: dec("90000"),
	})
	requireKind(t, err, apierror.KindDocumentsNotPurchased)
	assert.Zero(t, countBids(t, env, id))

	// access bought for another tender does not count
	other := env.openTender(t)
	env.purchase(t, other, vendor)
	_, err = env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
		VendorID: vendor.String(), TotalAmount: dec("90000"),
	})
	requireKind(t, err, apierror.KindDocumentsNotPurchased)
}

func TestSubmitBid_VoidedPurchaseGrantsNoAccess(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	vendor := uuid.New()
	p := env.purchase(t, id, vendor)

	voided, err := env.documents.VoidPurchase(context.Background(), id, mustID(t, p.ID), "payment reversed")
	require.NoError(t, err)
	assert.Equal(t, string(model.PurchaseVoided), voided.Status)

	has, err := env.documents.HasAccess(context.Background(), id, vendor)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
		VendorID: vendor.String(), TotalAmount: dec("90000"),
	})
	requireKind(t, err, apierror.KindDocumentsNotPurchased)
	assert.Zero(t, countBids(t, env, id))

	_, err = env.documents.VoidPurchase(context.Background(), id, mustID(t, p.ID), "again")
	requireKind(t, err, apierror.KindInvalidTransition)
}

func TestSubmitBid_TenderNotOpen(t *testing.T) {
	env := newTestEnv(t)
	id := mustID(t, env.createTender(t).ID)
	env.move(t, id, model.TenderPublished)
	vendor := uuid.New()
	env.purchase(t, id, vendor) // documents sell while PUBLISHED

	_, err := env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
		VendorID: vendor.String(), TotalAmount: dec("90000"),
	})
	requireKind(t, err, apierror.KindTenderNotOpen)
}

func TestSubmitBid_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	vendor := uuid.New()
	env.purchase(t, id, vendor)

	for _, amount := range []string{"0", "-10"} {
		_, err := env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
			VendorID: vendor.String(), TotalAmount: dec(amount),
		})
		requireKind(t, err, apierror.KindInvalidAmount)
	}
	assert.Zero(t, countBids(t, env, id))
}

func TestSubmitBid_StoresItemsAndInheritsCurrency(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	vendor := uuid.New()
	env.purchase(t, id, vendor)

	bid, err := env.bids.SubmitBid(context.Background(), id, dto.SubmitBidRequest{
		VendorID:    vendor.String(),
		TotalAmount: dec("90000"),
		Items: []dto.BidItemRequest{
			{Description: "Asphalt", Quantity: dec("200"), UnitPrice: dec("350")},
			{Description: "Labour", Quantity: dec("100"), UnitPrice: dec("200")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "BID-000001", bid.BidNumber)
	assert.Equal(t, string(model.BidSubmitted), bid.Status)
	assert.Equal(t, "SAR", bid.Currency)
	require.Len(t, bid.Items, 2)
	assert.True(t, bid.Items[0].TotalPrice.Equal(dec("70000")))
}

func TestScoreBid_WeightedTotal(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	_, bid := env.biddingVendor(t, id, "90000")
	bidID := mustID(t, bid.ID)

	_, err := env.bids.ScoreBid(context.Background(), id, bidID, dto.ScoreBidRequest{
		TechnicalScore: dec("80"), FinancialScore: dec("90"),
	})
	requireKind(t, err, apierror.KindInvalidTransition) // still SUBMISSION_OPEN

	env.move(t, id, model.TenderUnderEvaluation)
	scored, err := env.bids.ScoreBid(context.Background(), id, bidID, dto.ScoreBidRequest{
		TechnicalScore: dec("80"), FinancialScore: dec("90"),
	})
	require.NoError(t, err)
	require.NotNil(t, scored.TotalScore)
	assert.True(t, scored.TotalScore.Equal(dec("83")), scored.TotalScore.String()) // 80*0.7 + 90*0.3

	tw, fw := dec("50"), dec("40")
	_, err = env.bids.ScoreBid(context.Background(), id, bidID, dto.ScoreBidRequest{
		TechnicalScore:  dec("80"),
		FinancialScore:  dec("90"),
		TechnicalWeight: &tw,
		FinancialWeight: &fw,
	})
	requireKind(t, err, apierror.KindValidation)
}

func TestRejectBid_AfterEvaluationStarts(t *testing.T) {
	env := newTestEnv(t)
	id := env.openTender(t)
	_, bid := env.biddingVendor(t, id, "95000")
	bidID := mustID(t, bid.ID)

	_, err := env.bids.RejectBid(context.Background(), id, bidID)
	requireKind(t, err, apierror.KindInvalidTransition)

	env.move(t, id, model.TenderUnderEvaluation)
	rejected, err := env.bids.RejectBid(context.Background(), id, bidID)
	require.NoError(t, err)
	assert.Equal(t, string(model.BidRejected), rejected.Status)

	_, err = env.bids.RejectBid(context.Background(), id, bidID)
	requireKind(t, err, apierror.KindBidNotEligible)
}
