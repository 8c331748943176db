package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/efactura"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/tax"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

const (
	defaultCurrency      = "RON"
	defaultUnit          = "H87"
	defaultInvoiceType   = "standard"
	defaultPaymentMethod = "transfer"
)

type InvoiceService interface {
	Create(ctx context.Context, companyID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.InvoiceFilter) (dto.ListResponse[dto.InvoiceResponse], error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	Issue(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error)
	Pay(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error)
	// PDF returns the rendered document and a download filename.
	PDF(ctx context.Context, companyID, id uuid.UUID) ([]byte, string, error)
	Send(ctx context.Context, companyID, id uuid.UUID, req dto.SendInvoiceRequest) error
}

type invoiceService struct {
	repo      repository.InvoiceRepository
	partners  repository.PartnerRepository
	companies repository.CompanyRepository
	periods   PeriodService
	efactura  AutoSubmitter
	jobs      JobQueue
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	partners repository.PartnerRepository,
	companies repository.CompanyRepository,
	periods PeriodService,
	efactura AutoSubmitter,
	jobs JobQueue,
) InvoiceService {
	return &invoiceService{
		repo:      repo,
		partners:  partners,
		companies: companies,
		periods:   periods,
		efactura:  efactura,
		jobs:      jobs,
	}
}

func (s *invoiceService) Create(ctx context.Context, companyID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := checkDueDate(issueDate, dueDate); err != nil {
		return nil, err
	}
	partnerID, err := parseUUID("partner_id", req.PartnerID)
	if err != nil {
		return nil, err
	}
	if err := s.periods.EnsureOpen(ctx, companyID, issueDate); err != nil {
		return nil, err
	}

	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, notFound("company", err)
	}
	partner, err := s.activePartner(ctx, companyID, partnerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumber(ctx, companyID, req.Direction, req.Number, partnerID, uuid.Nil); err != nil {
		return nil, err
	}

	inv := &model.Invoice{
		CompanyID:     companyID,
		PartnerID:     &partnerID,
		Number:        strings.TrimSpace(req.Number),
		Series:        req.Series,
		Direction:     req.Direction,
		Type:          orDefault(req.Type, defaultInvoiceType),
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Currency:      strings.ToUpper(orDefault(req.Currency, defaultCurrency)),
		Status:        model.InvoiceDraft,
		PaymentMethod: orDefault(req.PaymentMethod, defaultPaymentMethod),
		Notes:         req.Notes,
	}
	if err := priceLines(inv, req.Lines, company, partner); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, duplicate("invoice number", err)
	}
	inv.Partner = partner

	log.Info().Str("invoice_id", inv.ID.String()).Str("number", inv.Number).Str("total", inv.Total.String()).
		Msg("invoice created")
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

func (s *invoiceService) List(ctx context.Context, companyID uuid.UUID, filter dto.InvoiceFilter) (dto.ListResponse[dto.InvoiceResponse], error) {
	invoices, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return dto.ListResponse[dto.InvoiceResponse]{}, err
	}
	out := make([]dto.InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = toInvoiceResponse(&invoices[i], false)
	}
	return dto.NewListResponse(out, total, filter.Pagination), nil
}

func (s *invoiceService) Get(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("invoice", err)
	}
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

func (s *invoiceService) Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("invoice", err)
	}
	if inv.Status != model.InvoiceDraft {
		return nil, fmt.Errorf("only draft invoices can be updated: %w", apierror.ErrConflict)
	}
	if err := s.periods.EnsureOpen(ctx, companyID, inv.IssueDate); err != nil {
		return nil, err
	}

	pricedOn := inv.IssueDate
	if req.IssueDate != nil {
		if inv.IssueDate, err = parseDate(*req.IssueDate); err != nil {
			return nil, err
		}
		if err := s.periods.EnsureOpen(ctx, companyID, inv.IssueDate); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if inv.DueDate, err = parseOptionalDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if err := checkDueDate(inv.IssueDate, inv.DueDate); err != nil {
		return nil, err
	}
	partnerChanged := false
	if req.PartnerID != nil {
		pid, err := parseUUID("partner_id", *req.PartnerID)
		if err != nil {
			return nil, err
		}
		if inv.PartnerID == nil || *inv.PartnerID != pid {
			partnerChanged = true
		}
		inv.PartnerID = &pid
	}
	numberChanged := req.Number != nil && strings.TrimSpace(*req.Number) != inv.Number
	if req.Number != nil {
		inv.Number = strings.TrimSpace(*req.Number)
	}
	setIf(&inv.Series, req.Series)
	setIf(&inv.Type, req.Type)
	setIf(&inv.PaymentMethod, req.PaymentMethod)
	setIf(&inv.Notes, req.Notes)
	if req.Currency != nil {
		inv.Currency = strings.ToUpper(*req.Currency)
	}

	var partner *model.Partner
	if inv.PartnerID != nil {
		if partnerChanged {
			partner, err = s.activePartner(ctx, companyID, *inv.PartnerID)
		} else {
			partner, err = s.partners.FindByID(ctx, companyID, *inv.PartnerID)
			err = notFound("partner", err)
		}
		if err != nil {
			return nil, err
		}
	}
	if numberChanged || partnerChanged {
		pid := uuid.Nil
		if inv.PartnerID != nil {
			pid = *inv.PartnerID
		}
		if err := s.checkNumber(ctx, companyID, inv.Direction, inv.Number, pid, inv.ID); err != nil {
			return nil, err
		}
	}

	replaceLines := req.Lines != nil
	if replaceLines || partnerChanged || req.IssueDate != nil {
		company, err := s.companies.FindByID(ctx, companyID)
		if err != nil {
			return nil, notFound("company", err)
		}
		lines := req.Lines
		if !replaceLines {
			lines = linesToRequests(inv.Lines, pricedOn, inv.IssueDate)
			replaceLines = true
		}
		if err := priceLines(inv, lines, company, partner); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, inv, replaceLines); err != nil {
		return nil, duplicate("invoice number", err)
	}
	inv.Partner = partner
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

func (s *invoiceService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return notFound("invoice", err)
	}
	if inv.Status != model.InvoiceDraft {
		return fmt.Errorf("only draft invoices can be deleted: %w", apierror.ErrConflict)
	}
	if err := s.periods.EnsureOpen(ctx, companyID, inv.IssueDate); err != nil {
		return err
	}
	return notFound("invoice", s.repo.Delete(ctx, companyID, id))
}

func (s *invoiceService) Issue(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, companyID, id, model.InvoiceDraft, model.InvoiceIssued, true)
	if err != nil {
		return nil, err
	}
	if inv.Direction == model.DirectionIssued && s.efactura != nil {
		s.efactura.AutoSubmit(ctx, companyID, inv.ID)
	}
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

func (s *invoiceService) Cancel(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, companyID, id, model.InvoiceIssued, model.InvoiceCancelled, true)
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

func (s *invoiceService) Pay(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, companyID, id, model.InvoiceIssued, model.InvoicePaid, false)
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(inv, true)
	return &resp, nil
}

// transition moves an invoice from one status to the next. guardPeriod
// refuses the change when the invoice date is in a closed period.
func (s *invoiceService) transition(ctx context.Context, companyID, id uuid.UUID, from, to string, guardPeriod bool) (*model.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("invoice", err)
	}
	if inv.Status != from {
		return nil, fmt.Errorf("invoice is %s, expected %s: %w", inv.Status, from, apierror.ErrConflict)
	}
	if guardPeriod {
		if err := s.periods.EnsureOpen(ctx, companyID, inv.IssueDate); err != nil {
			return nil, err
		}
	}

	var paidAt *time.Time
	if to == model.InvoicePaid {
		now := time.Now().UTC()
		paidAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, inv.ID, from, to, paidAt); err != nil {
		return nil, stale("invoice", err)
	}
	inv.Status = to
	inv.PaidAt = paidAt
	log.Info().Str("invoice_id", inv.ID.String()).Str("from", from).Str("to", to).Msg("invoice status changed")
	return inv, nil
}

func (s *invoiceService) PDF(ctx context.Context, companyID, id uuid.UUID) ([]byte, string, error) {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, "", notFound("invoice", err)
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, "", notFound("company", err)
	}
	data, err := infra.RenderInvoicePDF(inv, company)
	if err != nil {
		return nil, "", err
	}
	return data, pdfFilename(inv), nil
}

func (s *invoiceService) Send(ctx context.Context, companyID, id uuid.UUID, req dto.SendInvoiceRequest) error {
	inv, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return notFound("invoice", err)
	}
	if inv.Status == model.InvoiceDraft || inv.Status == model.InvoiceCancelled {
		return fmt.Errorf("cannot send a %s invoice: %w", inv.Status, apierror.ErrConflict)
	}
	to := req.To
	if to == "" && inv.Partner != nil {
		to = inv.Partner.Email
	}
	if to == "" {
		return fmt.Errorf("partner has no email address, provide a recipient: %w", apierror.ErrUnprocessable)
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return notFound("company", err)
	}

	body := req.Message
	if body == "" {
		body = fmt.Sprintf("Buna ziua,\n\nAtasat gasiti factura %s%s in valoare de %s %s.\n\n%s",
			inv.Series, inv.Number, inv.Total.StringFixed(2), inv.Currency, company.Name)
	}
	payload := worker.EmailPayload{
		CompanyID: companyID.String(),
		InvoiceID: inv.ID.String(),
		To:        to,
		Subject:   fmt.Sprintf("Factura %s%s - %s", inv.Series, inv.Number, company.Name),
		Body:      body,
	}
	if err := s.jobs.EnqueueEmail(ctx, payload); err != nil {
		return fmt.Errorf("enqueue email: %v: %w", err, apierror.ErrUnavailable)
	}
	log.Info().Str("invoice_id", inv.ID.String()).Str("to", to).Msg("invoice email enqueued")
	return nil
}

func (s *invoiceService) activePartner(ctx context.Context, companyID, id uuid.UUID) (*model.Partner, error) {
	p, err := s.partners.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("partner", err)
	}
	if !p.Active {
		return nil, fmt.Errorf("partner %s is inactive: %w", p.Name, apierror.ErrUnprocessable)
	}
	return p, nil
}

// checkNumber enforces number uniqueness per company and direction. Received
// invoices are numbered by their suppliers, so the check is narrowed to the
// partner.
func (s *invoiceService) checkNumber(ctx context.Context, companyID uuid.UUID, direction, number string, partnerID, excludeID uuid.UUID) error {
	if direction != model.DirectionReceived {
		partnerID = uuid.Nil
	}
	exists, err := s.repo.NumberExists(ctx, companyID, direction, strings.TrimSpace(number), partnerID, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("invoice number %s already used: %w", number, apierror.ErrConflict)
	}
	return nil
}

func checkDueDate(issue time.Time, due *time.Time) error {
	if due != nil && due.Before(issue) {
		return fmt.Errorf("due_date is before issue_date: %w", apierror.ErrUnprocessable)
	}
	return nil
}

// companyVATID returns the VAT identifier used for reverse-charge decisions.
func companyVATID(c *model.Company) string {
	if !c.VATPayer {
		return ""
	}
	return "RO" + c.CUI
}

// priceLines replaces inv.Lines with priced lines and recomputes the totals.
func priceLines(inv *model.Invoice, reqs []dto.InvoiceLineRequest, company *model.Company, partner *model.Partner) error {
	reverse := false
	partnerCountry := "RO"
	if partner != nil {
		partnerCountry = partner.Country
		reverse = tax.IsReverseCharge(company.Country, partnerCountry, companyVATID(company), partner.CUI)
	}
	domestic := strings.EqualFold(partnerCountry, "RO") && strings.EqualFold(orDefault(company.Country, "RO"), "RO")
	standard := tax.RomanianRates(inv.IssueDate).Standard

	lines := make([]model.InvoiceLine, 0, len(reqs))
	doc := efactura.Document{Lines: make([]efactura.Line, 0, len(reqs))}
	for i, r := range reqs {
		if r.Quantity.IsZero() {
			return fmt.Errorf("line %d: quantity must not be zero: %w", i+1, apierror.ErrUnprocessable)
		}
		if r.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: unit_price must not be negative: %w", i+1, apierror.ErrUnprocessable)
		}

		category := orDefault(r.VATCategory, string(tax.CategoryStandard))
		var rate decimal.Decimal
		switch {
		case reverse:
			category, rate = string(tax.CategoryReverseCharge), decimal.Zero
		case category != string(tax.CategoryStandard):
			rate = decimal.Zero
			if r.VATRate != nil && !r.VATRate.IsZero() {
				return fmt.Errorf("line %d: category %s carries no VAT: %w", i+1, category, apierror.ErrUnprocessable)
			}
		case r.VATRate != nil:
			rate = *r.VATRate
			if domestic && !tax.IsValidRomanianRate(rate, inv.IssueDate) {
				return fmt.Errorf("line %d: %s%% is not a Romanian VAT rate on %s: %w",
					i+1, rate, inv.IssueDate.Format(time.DateOnly), apierror.ErrUnprocessable)
			}
		default:
			rate = standard
		}

		net := r.Quantity.Mul(r.UnitPrice).Round(2)
		vat, gross := tax.Calculate(net, rate)
		lines = append(lines, model.InvoiceLine{
			Position:    i + 1,
			Description: r.Description,
			Quantity:    r.Quantity,
			Unit:        orDefault(r.Unit, defaultUnit),
			UnitPrice:   r.UnitPrice,
			VATRate:     rate,
			VATCategory: category,
			Net:         net,
			VAT:         vat,
			Gross:       gross,
		})
		doc.Lines = append(doc.Lines, efactura.Line{
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			VATRate:     rate,
			VATCategory: category,
		})
	}

	// VAT is rounded once per (category, rate) group, the way the e-Factura
	// document states it. The rounding difference goes to the largest line of
	// the group so stored line VAT still adds up.
	totals := efactura.ComputeTotals(doc)
	for _, g := range totals.Subtotals {
		sum, largest := decimal.Zero, -1
		for i := range lines {
			if lines[i].VATCategory != g.Category || lines[i].VATRate.StringFixed(2) != g.Rate.StringFixed(2) {
				continue
			}
			sum = sum.Add(lines[i].VAT)
			if largest < 0 || lines[i].Net.Abs().GreaterThan(lines[largest].Net.Abs()) {
				largest = i
			}
		}
		if diff := g.Tax.Sub(sum); largest >= 0 && !diff.IsZero() {
			lines[largest].VAT = lines[largest].VAT.Add(diff)
			lines[largest].Gross = lines[largest].Net.Add(lines[largest].VAT)
		}
	}

	inv.Lines = lines
	inv.Subtotal = totals.LineExtension
	inv.VATAmount = totals.TaxAmount
	inv.Total = totals.TaxInclusive
	return nil
}

// linesToRequests turns stored lines back into requests so they can be
// repriced for an issue date moved from pricedOn to issued. Reverse-charge
// lines are re-evaluated against the partner; standard-rate lines take the
// default rate again and reduced rates follow their slot.
func linesToRequests(lines []model.InvoiceLine, pricedOn, issued time.Time) []dto.InvoiceLineRequest {
	standard := tax.RomanianRates(pricedOn).Standard
	out := make([]dto.InvoiceLineRequest, len(lines))
	for i, l := range lines {
		out[i] = dto.InvoiceLineRequest{
			Description: l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitPrice:   l.UnitPrice,
		}
		switch l.VATCategory {
		case string(tax.CategoryReverseCharge):
		case string(tax.CategoryStandard):
			out[i].VATCategory = l.VATCategory
			if !l.VATRate.Equal(standard) {
				rate := tax.CarryRomanianRate(l.VATRate, pricedOn, issued)
				out[i].VATRate = &rate
			}
		default:
			out[i].VATCategory = l.VATCategory
		}
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func pdfFilename(inv *model.Invoice) string {
	return fmt.Sprintf("factura-%s%s.pdf", inv.Series, inv.Number)
}

func toInvoiceResponse(inv *model.Invoice, withLines bool) dto.InvoiceResponse {
	r := dto.InvoiceResponse{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		Series:        inv.Series,
		Direction:     inv.Direction,
		Type:          inv.Type,
		PartnerID:     idString(inv.PartnerID),
		IssueDate:     inv.IssueDate.Format(time.DateOnly),
		DueDate:       formatDate(inv.DueDate),
		Currency:      inv.Currency,
		Status:        inv.Status,
		PaymentMethod: inv.PaymentMethod,
		Notes:         inv.Notes,
		Subtotal:      inv.Subtotal,
		VATAmount:     inv.VATAmount,
		Total:         inv.Total,
		PaidAt:        inv.PaidAt,
		CreatedAt:     inv.CreatedAt,
	}
	if inv.Partner != nil {
		r.PartnerName = inv.Partner.Name
	}
	if withLines {
		r.Lines = make([]dto.InvoiceLineResponse, len(inv.Lines))
		for i, l := range inv.Lines {
			r.Lines[i] = dto.InvoiceLineResponse{
				ID:          l.ID.String(),
				Position:    l.Position,
				Description: l.Description,
				Quantity:    l.Quantity,
				Unit:        l.Unit,
				UnitPrice:   l.UnitPrice,
				VATRate:     l.VATRate,
				VATCategory: l.VATCategory,
				Net:         l.Net,
				VAT:         l.VAT,
				Gross:       l.Gross,
			}
		}
	}
	return r
}
