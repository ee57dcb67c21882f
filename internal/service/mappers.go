package service

import (
	"encoding/json"
	"time"

	"nakl/internal/dto"
	"nakl/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func toTenderListItem(t *model.Tender) dto.TenderListItem {
	paid := 0
	for _, p := range t.DocumentPurchases {
		if p.Status == model.PurchasePaid {
			paid++
		}
	}
	return dto.TenderListItem{
		ID:                 t.ID.String(),
		TenderNumber:       t.TenderNumber,
		Title:              t.Title,
		TitleAr:            t.TitleAr,
		Type:               string(t.Type),
		Status:             string(t.Status),
		EstimatedValue:     t.EstimatedValue,
		Currency:           t.Currency,
		DocumentPrice:      t.DocumentPrice,
		SubmissionDeadline: t.SubmissionDeadline,
		BidCount:           len(t.Bids),
		PurchaseCount:      paid,
		CreatedAt:          t.CreatedAt,
	}
}

func toTenderResponse(t *model.Tender) dto.TenderResponse {
	resp := dto.TenderResponse{
		ID:                 t.ID.String(),
		TenderNumber:       t.TenderNumber,
		Title:              t.Title,
		TitleAr:            t.TitleAr,
		Description:        t.Description,
		DescriptionAr:      t.DescriptionAr,
		Type:               string(t.Type),
		Status:             string(t.Status),
		EstimatedValue:     t.EstimatedValue,
		Currency:           t.Currency,
		DocumentPrice:      t.DocumentPrice,
		PublishDate:        t.PublishDate,
		DocumentSaleStart:  t.DocumentSaleStart,
		DocumentSaleEnd:    t.DocumentSaleEnd,
		SubmissionDeadline: t.SubmissionDeadline,
		OpeningDate:        t.OpeningDate,
		AwardDate:          t.AwardDate,
		WorkStartDate:      t.WorkStartDate,
		WorkEndDate:        t.WorkEndDate,
		CreatedByID:        t.CreatedByID.String(),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		Items:              make([]dto.TenderItemResponse, 0, len(t.Items)),
		Milestones:         make([]dto.MilestoneResponse, 0, len(t.Milestones)),
	}
	for i := range t.Items {
		resp.Items = append(resp.Items, toItemResponse(&t.Items[i]))
	}
	for i := range t.Milestones {
		resp.Milestones = append(resp.Milestones, toMilestoneResponse(&t.Milestones[i]))
	}
	for i := range t.Bids {
		resp.Bids = append(resp.Bids, toBidResponse(&t.Bids[i]))
	}
	for i := range t.DocumentPurchases {
		resp.Purchases = append(resp.Purchases, toPurchaseResponse(&t.DocumentPurchases[i]))
	}
	for i := range t.Evaluations {
		resp.Evaluations = append(resp.Evaluations, toEvaluationResponse(&t.Evaluations[i]))
	}
	if t.WorkOrder != nil && t.WorkOrder.ID != uuid.Nil {
		wo := toWorkOrderResponse(t.WorkOrder)
		resp.WorkOrder = &wo
	}
	return resp
}

func toItemResponse(i *model.TenderItem) dto.TenderItemResponse {
	return dto.TenderItemResponse{
		ID:                 i.ID.String(),
		ItemNumber:         i.ItemNumber,
		Description:        i.Description,
		DescriptionAr:      i.DescriptionAr,
		Unit:               i.Unit,
		Quantity:           i.Quantity,
		EstimatedUnitPrice: i.EstimatedUnitPrice,
	}
}

func toMilestoneResponse(m *model.Milestone) dto.MilestoneResponse {
	return dto.MilestoneResponse{
		ID:              m.ID.String(),
		MilestoneNumber: m.MilestoneNumber,
		Title:           m.Title,
		TitleAr:         m.TitleAr,
		Percentage:      m.Percentage,
		Amount:          m.Amount,
		Status:          string(m.Status),
		DueDate:         m.DueDate,
		CompletedDate:   m.CompletedDate,
	}
}

func jsonMap(doc datatypes.JSON) map[string]any {
	if len(doc) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil
	}
	return m
}

func toEvaluationResponse(e *model.Evaluation) dto.EvaluationResponse {
	return dto.EvaluationResponse{
		ID:             e.ID.String(),
		EvaluationType: e.EvaluationType,
		Criteria:       jsonMap(e.Criteria),
		Weights:        jsonMap(e.Weights),
		Report:         e.Report,
		ReportAr:       e.ReportAr,
		Recommendation: e.Recommendation,
		EvaluatedByID:  e.EvaluatedByID.String(),
		CreatedAt:      e.CreatedAt,
	}
}

func toBidResponse(b *model.Bid) dto.BidResponse {
	resp := dto.BidResponse{
		ID:             b.ID.String(),
		BidNumber:      b.BidNumber,
		TenderID:       b.TenderID.String(),
		VendorID:       b.VendorID.String(),
		TotalAmount:    b.TotalAmount,
		Currency:       b.Currency,
		Status:         string(b.Status),
		SubmittedDate:  b.SubmittedDate,
		TechnicalScore: b.TechnicalScore,
		FinancialScore: b.FinancialScore,
		TotalScore:     b.TotalScore,
		Notes:          b.Notes,
		Items:          make([]dto.BidItemResponse, 0, len(b.Items)),
	}
	for _, it := range b.Items {
		item := dto.BidItemResponse{
			ID:          it.ID.String(),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
		if it.TenderItemID != nil {
			s := it.TenderItemID.String()
			item.TenderItemID = &s
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

func toPurchaseResponse(p *model.DocumentPurchase) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:             p.ID.String(),
		PurchaseNumber: p.PurchaseNumber,
		TenderID:       p.TenderID.String(),
		VendorID:       p.VendorID.String(),
		Amount:         p.Amount,
		PaymentMethod:  p.PaymentMethod,
		PaymentRef:     p.PaymentRef,
		Status:         string(p.Status),
		PurchaseDate:   p.PurchaseDate,
		VoidedAt:       p.VoidedAt,
		VoidReason:     p.VoidReason,
	}
}

func toWorkOrderResponse(w *model.WorkOrder) dto.WorkOrderResponse {
	return dto.WorkOrderResponse{
		ID:            w.ID.String(),
		OrderNumber:   w.OrderNumber,
		TenderID:      w.TenderID.String(),
		BidID:         w.BidID.String(),
		CustomerID:    w.CustomerID.String(),
		VendorID:      w.VendorID.String(),
		Description:   w.Description,
		DescriptionAr: w.DescriptionAr,
		StartDate:     w.StartDate,
		EndDate:       w.EndDate,
		TotalAmount:   w.TotalAmount,
		Currency:      w.Currency,
		Status:        w.Status,
		CreatedAt:     w.CreatedAt,
	}
}

// toAwardLetterResponse reports the effective status as of now.
func toAwardLetterResponse(l *model.AwardLetter, now time.Time) dto.AwardLetterResponse {
	return dto.AwardLetterResponse{
		ID:                     l.ID.String(),
		LetterNumber:           l.LetterNumber,
		TenderID:               l.TenderID.String(),
		BidID:                  l.BidID.String(),
		VendorID:               l.VendorID.String(),
		AwardedAmount:          l.AwardedAmount,
		OriginalBidAmount:      l.OriginalBidAmount,
		Discount:               l.Discount,
		Currency:               l.Currency,
		ScopeOfWork:            l.ScopeOfWork,
		IssueDate:              l.IssueDate,
		ValidityDays:           l.ValidityDays,
		ExpiryDate:             l.ExpiryDate,
		Status:                 string(l.EffectiveStatus(now)),
		ContractNumber:         l.ContractNumber,
		ContractDate:           l.ContractDate,
		ContractDurationMonths: l.ContractDurationMonths,
		ContractTerms:          l.ContractTerms,
		Notes:                  l.Notes,
		IssuedAt:               l.IssuedAt,
		RespondedAt:            l.RespondedAt,
		CreatedAt:              l.CreatedAt,
	}
}

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:                  a.ID.String(),
		AssignmentNumber:    a.AssignmentNumber,
		AwardLetterID:       a.AwardLetterID.String(),
		TenderID:            a.TenderID.String(),
		BidID:               a.BidID.String(),
		VendorID:            a.VendorID.String(),
		CustomerID:          a.CustomerID.String(),
		ContractAmount:      a.ContractAmount,
		Currency:            a.Currency,
		ProjectDurationDays: a.ProjectDurationDays,
		StartDate:           a.StartDate,
		ExpectedEndDate:     a.ExpectedEndDate,
		ActualEndDate:       a.ActualEndDate,
		Status:              string(a.Status),
		PaymentTerms:        a.PaymentTerms,
		PaymentSchedule:     make([]dto.InstallmentResponse, 0, len(a.PaymentSchedule)),
		WorkDetails:         a.WorkDetails,
		SpecialConditions:   a.SpecialConditions,
		ProjectManager:      a.ProjectManager,
		SiteLocation:        a.SiteLocation,
		RequiredResources: dto.RequiredResources{
			Vehicles:  a.RequiredVehicles,
			Drivers:   a.RequiredDrivers,
			Equipment: []string(a.RequiredEquipment),
		},
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
	if a.WorkOrderID != nil {
		s := a.WorkOrderID.String()
		resp.WorkOrderID = &s
	}
	for _, p := range a.PaymentSchedule {
		resp.PaymentSchedule = append(resp.PaymentSchedule, dto.InstallmentResponse{
			Sequence:   p.Sequence,
			Milestone:  p.Milestone,
			Percentage: p.Percentage,
			Amount:     p.Amount,
			DueDate:    p.DueDate,
			Status:     string(p.Status),
			PaidAt:     p.PaidAt,
		})
	}
	return resp
}
