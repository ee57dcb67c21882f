package service

import (
	"context"
	"testing"
	"time"

	"nakl/internal/apierror"
	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule(t *testing.T) {
	due := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	amount := func(s string) *decimal.Decimal { d := dec(s); return &d }

	t.Run("empty request is one full installment", func(t *testing.T) {
		out, err := buildSchedule(nil, dec("90000"), due)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0].Amount.Equal(dec("90000")))
		assert.True(t, out[0].Percentage.Equal(dec("100")))
		assert.Equal(t, due, *out[0].DueDate)
	})

	t.Run("percentages become amounts", func(t *testing.T) {
		out, err := buildSchedule([]dto.InstallmentRequest{
			{Milestone: "Advance", Percentage: dec("30")},
			{Milestone: "Completion", Percentage: dec("70")},
		}, dec("90000"), due)
		require.NoError(t, err)
		assert.True(t, out[0].Amount.Equal(dec("27000")))
		assert.True(t, out[1].Amount.Equal(dec("63000")))
		assert.Equal(t, 2, out[1].Sequence)
	})

	t.Run("last installment absorbs rounding", func(t *testing.T) {
		out, err := buildSchedule([]dto.InstallmentRequest{
			{Milestone: "A", Percentage: dec("33.33")},
			{Milestone: "B", Percentage: dec("33.33")},
			{Milestone: "C", Percentage: dec("33.34")},
		}, dec("100.01"), due)
		require.NoError(t, err)
		sum := decimal.Zero
		for _, in := range out {
			sum = sum.Add(in.Amount)
		}
		assert.True(t, sum.Equal(dec("100.01")), sum.String())
	})

	t.Run("explicit amounts must sum to contract", func(t *testing.T) {
		_, err := buildSchedule([]dto.InstallmentRequest{
			{Milestone: "A", Percentage: dec("50"), Amount: amount("40000")},
			{Milestone: "B", Percentage: dec("50"), Amount: amount("40000")},
		}, dec("90000"), due)
		requireKind(t, err, apierror.KindValidation)
	})

	t.Run("percentages short of 100", func(t *testing.T) {
		_, err := buildSchedule([]dto.InstallmentRequest{
			{Milestone: "A", Percentage: dec("50")},
			{Milestone: "B", Percentage: dec("40")},
		}, dec("90000"), due)
		requireKind(t, err, apierror.KindValidation)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := buildSchedule([]dto.InstallmentRequest{
			{Milestone: "A", Amount: amount("-1")},
		}, dec("90000"), due)
		requireKind(t, err, apierror.KindValidation)
	})
}

// newAssignment runs the pipeline up to a DRAFT assignment with a 30/70 schedule.
func newAssignment(t *testing.T, env *testEnv) *dto.AssignmentResponse {
	t.Helper()
	tenderID, winner, _ := awardedTender(t, env)
	letter := env.acceptedLetter(t, tenderID, winner.ID)
	asg, err := env.assignments.Create(context.Background(), env.actor, dto.CreateAssignmentRequest{
		AwardLetterID:       letter.ID,
		CustomerID:          uuid.NewString(),
		StartDate:           time.Now().UTC(),
		ProjectDurationDays: 120,
		PaymentSchedule: []dto.InstallmentRequest{
			{Milestone: "Advance", Percentage: dec("30")},
			{Milestone: "Completion", Percentage: dec("70")},
		},
		RequiredResources: dto.RequiredResources{Vehicles: 3, Drivers: 4, Equipment: []string{"paver", "roller"}},
	})
	require.NoError(t, err)
	return asg
}

func TestAssignmentCreate_OnePerLetter(t *testing.T) {
	env := newTestEnv(t)
	asg := newAssignment(t, env)
	assert.Equal(t, "ASG-000001", asg.AssignmentNumber)
	assert.Equal(t, []string{"paver", "roller"}, asg.RequiredResources.Equipment)
	require.Len(t, asg.PaymentSchedule, 2)

	_, err := env.assignments.Create(context.Background(), env.actor, dto.CreateAssignmentRequest{
		AwardLetterID: asg.AwardLetterID, CustomerID: uuid.NewString(), StartDate: time.Now().UTC(),
	})
	requireKind(t, err, apierror.KindInvalidTransition)

	var counter model.SequenceCounter
	require.NoError(t, env.db.First(&counter, "series = ?", model.SeriesWorkOrder).Error)
	assert.EqualValues(t, 1, counter.Value)
}

func TestAssignmentCreate_ScheduleMismatchRollsBack(t *testing.T) {
	env := newTestEnv(t)
	tenderID, winner, _ := awardedTender(t, env)
	letter := env.acceptedLetter(t, tenderID, winner.ID)

	bad := dec("1000")
	_, err := env.assignments.Create(context.Background(), env.actor, dto.CreateAssignmentRequest{
		AwardLetterID:   letter.ID,
		CustomerID:      uuid.NewString(),
		StartDate:       time.Now().UTC(),
		PaymentSchedule: []dto.InstallmentRequest{{Milestone: "All", Amount: &bad}},
	})
	requireKind(t, err, apierror.KindValidation)

	assert.Equal(t, model.TenderAwarded, env.tenderStatus(t, tenderID))
	var orders int64
	require.NoError(t, env.db.Model(&model.WorkOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestAssignmentStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := mustID(t, newAssignment(t, env).ID)

	_, err := env.assignments.UpdateStatus(ctx, id, model.AssignmentInProgress)
	requireKind(t, err, apierror.KindInvalidTransition)

	for _, target := range []model.AssignmentStatus{
		model.AssignmentIssued, model.AssignmentInProgress, model.AssignmentOnHold,
		model.AssignmentInProgress, model.AssignmentCompleted,
	} {
		resp, err := env.assignments.UpdateStatus(ctx, id, target)
		require.NoError(t, err, "to %s", target)
		assert.Equal(t, string(target), resp.Status)
	}

	got, err := env.assignments.Get(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got.ActualEndDate)

	_, err = env.assignments.UpdateStatus(ctx, id, model.AssignmentCancelled)
	requireKind(t, err, apierror.KindInvalidTransition)
}

func TestAssignmentPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := mustID(t, newAssignment(t, env).ID)

	_, err := env.assignments.MarkInstallmentPaid(ctx, id, 1)
	requireKind(t, err, apierror.KindInvalidTransition) // still DRAFT

	_, err = env.assignments.UpdateStatus(ctx, id, model.AssignmentIssued)
	require.NoError(t, err)

	resp, err := env.assignments.MarkInstallmentPaid(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, string(model.InstallmentPaid), resp.PaymentSchedule[0].Status)
	assert.NotNil(t, resp.PaymentSchedule[0].PaidAt)
	assert.Equal(t, string(model.InstallmentPending), resp.PaymentSchedule[1].Status)

	_, err = env.assignments.MarkInstallmentPaid(ctx, id, 1)
	requireKind(t, err, apierror.KindInvalidTransition)
	_, err = env.assignments.MarkInstallmentPaid(ctx, id, 9)
	requireKind(t, err, apierror.KindNotFound)
}

func TestAssignmentList_Filters(t *testing.T) {
	env := newTestEnv(t)
	asg := newAssignment(t, env)

	items, page, err := env.assignments.List(context.Background(), dto.AssignmentFilter{VendorID: asg.VendorID, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, items, 1)

	items, _, err = env.assignments.List(context.Background(), dto.AssignmentFilter{Status: "COMPLETED", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, items)
}
