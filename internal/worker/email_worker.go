package worker

// email_worker.go
// Processes email jobs from QueueEmail: renders the award letter PDF
// (if not rendered yet) and mails it to the vendor contact.

import (
	"context"
	"encoding/json"
	"fmt"

	"nakl/internal/infra"
	"nakl/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	letters        repository.AwardLetterRepository
	mailer         *infra.Mailer
	pdfStoragePath string
}

func NewEmailWorker(letters repository.AwardLetterRepository, mailer *infra.Mailer, pdfStoragePath string) *EmailWorker {
	return &EmailWorker{letters: letters, mailer: mailer, pdfStoragePath: pdfStoragePath}
}

// Process sends the letter PDF as an attachment.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.To == "" {
		log.Warn().Str("award_letter_id", payload.AwardLetterID).Msg("email_worker: empty recipient, skipping")
		return nil
	}
	id, err := uuid.Parse(payload.AwardLetterID)
	if err != nil {
		return fmt.Errorf("email_worker: invalid award_letter_id %q", payload.AwardLetterID)
	}

	letter, err := w.letters.FindByID(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("email_worker: load letter %s: %w", id, err)
	}

	if letter.PDFPath == nil || *letter.PDFPath == "" {
		path, err := infra.GenerateAwardLetterPDF(letter, w.pdfStoragePath)
		if err != nil {
			return fmt.Errorf("email_worker: render letter %s: %w", letter.LetterNumber, err)
		}
		letter.PDFPath = &path
		if err := w.letters.Save(ctx, nil, letter); err != nil {
			log.Warn().Err(err).Str("letter", letter.LetterNumber).Msg("email_worker: failed to store pdf path")
		}
	}

	if !w.mailer.Enabled() {
		log.Info().Str("letter", letter.LetterNumber).Msg("email_worker: smtp not configured, pdf rendered only")
		return nil
	}

	subject := fmt.Sprintf("Letter of Award %s", letter.LetterNumber)
	body := fmt.Sprintf(
		"Please find attached Letter of Award %s for tender %s.\nAwarded amount: %s %s\nValid until: %s",
		letter.LetterNumber, letter.Tender.TenderNumber,
		letter.AwardedAmount.StringFixed(2), letter.Currency,
		letter.ExpiryDate.Format("02 Jan 2006"),
	)
	if err := w.mailer.SendAwardLetter(payload.To, subject, body, *letter.PDFPath); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.To, err)
	}
	log.Info().Str("to", payload.To).Str("letter", letter.LetterNumber).Msg("email_worker: award letter sent")
	return nil
}
