package infra

// pdf.go renders award letters with go-pdf/fpdf. A4 portrait:
// letterhead, parties, award table, contract terms, validity and signature block.
// The file is saved to storagePath/award_letter_{letter number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"nakl/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateAwardLetterPDF writes the letter and returns the file path.
// letter.Tender must be loaded.
func GenerateAwardLetterPDF(letter *model.AwardLetter, storagePath string) (string, error) {
	if letter.Tender == nil {
		return "", fmt.Errorf("pdf: award letter %s has no tender loaded", letter.LetterNumber)
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("award_letter_%s.pdf", letter.LetterNumber))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 40

	// ── Letterhead ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "LETTER OF AWARD", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Nakl Logistics - Procurement Department", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.Ln(4)

	// ── Reference block ──────────────────────────────────────────────────────
	labelW := contentW * 0.35
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW-labelW, 6, value, "", 1, "L", false, 0, "")
	}
	row("Letter No.:", letter.LetterNumber)
	row("Issue date:", letter.IssueDate.Format("02 Jan 2006"))
	row("Tender No.:", letter.Tender.TenderNumber)
	row("Tender title:", letter.Tender.Title)
	row("Vendor ID:", letter.VendorID.String())
	pdf.Ln(4)

	// ── Award amounts ────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.6, 7, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 7, "Amount ("+letter.Currency+")", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW*0.6, 7, "Original bid amount", "1", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 7, letter.OriginalBidAmount.StringFixed(2), "1", 1, "R", false, 0, "")
	if letter.Discount.IsPositive() {
		pdf.CellFormat(contentW*0.6, 7, "Negotiated discount", "1", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 7, "-"+letter.Discount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.6, 7, "Awarded amount", "1", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 7, letter.AwardedAmount.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	// ── Scope and contract ───────────────────────────────────────────────────
	if letter.ScopeOfWork != nil && *letter.ScopeOfWork != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Scope of work", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, *letter.ScopeOfWork, "", "L", false)
		pdf.Ln(2)
	}
	if letter.ContractNumber != nil {
		row("Contract No.:", *letter.ContractNumber)
	}
	if letter.ContractDurationMonths != nil {
		row("Contract duration:", fmt.Sprintf("%d months", *letter.ContractDurationMonths))
	}
	if letter.ContractTerms != nil && *letter.ContractTerms != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Terms and conditions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, *letter.ContractTerms, "", "L", false)
	}
	pdf.Ln(4)

	// ── Validity ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(contentW, 5, fmt.Sprintf(
		"This award is valid for %d days and expires on %s. Please confirm acceptance in writing before the expiry date.",
		letter.ValidityDays, letter.ExpiryDate.Format("02 Jan 2006"),
	), "", "L", false)
	pdf.Ln(16)

	// ── Signature ────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, "______________________", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "______________________", "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Procurement Manager", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Vendor Acceptance", "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
