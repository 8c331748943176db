package worker

// Sends invoice PDFs to partners over SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

const emailAttempts = 3

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Enabled() bool
	Send(to, subject, body string, attachments ...infra.Attachment) error
}

type EmailWorker struct {
	mailer    MailSender
	invoices  repository.InvoiceRepository
	companies repository.CompanyRepository
}

func NewEmailWorker(mailer MailSender, invoices repository.InvoiceRepository, companies repository.CompanyRepository) *EmailWorker {
	return &EmailWorker{mailer: mailer, invoices: invoices, companies: companies}
}

// Process renders the invoice PDF and mails it, retrying SMTP failures.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.To == "" {
		log.Warn().Str("invoice_id", payload.InvoiceID).Msg("email_worker: empty recipient, skipping")
		return nil
	}
	if !w.mailer.Enabled() {
		return infra.ErrMailerDisabled
	}

	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("email_worker: invalid company_id: %w", err)
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: invalid invoice_id: %w", err)
	}

	company, err := w.companies.FindByID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("email_worker: load company: %w", err)
	}
	inv, err := w.invoices.FindByID(ctx, companyID, invoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: load invoice: %w", err)
	}
	pdf, err := infra.RenderInvoicePDF(inv, company)
	if err != nil {
		return err
	}

	attachment := infra.Attachment{
		Filename:    fmt.Sprintf("factura-%s%s.pdf", inv.Series, inv.Number),
		ContentType: "application/pdf",
		Data:        pdf,
	}
	err = withRetry(ctx, emailAttempts, func(attempt int) error {
		if err := w.mailer.Send(payload.To, payload.Subject, payload.Body, attachment); err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("to", payload.To).
				Msg("email_worker: send failed, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.To, err)
	}
	log.Info().Str("to", payload.To).Str("invoice", inv.Number).Msg("email_worker: invoice sent")
	return nil
}
