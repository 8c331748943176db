package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/efactura"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

type EFacturaService interface {
	GetConfig(ctx context.Context, companyID uuid.UUID) (*dto.EFacturaConfigResponse, error)
	UpdateConfig(ctx context.Context, companyID uuid.UUID, req dto.EFacturaConfigRequest) (*dto.EFacturaConfigResponse, error)
	Validate(ctx context.Context, companyID, invoiceID uuid.UUID) (*efactura.ValidationResult, error)
	// XML renders the UBL document and returns it with a download filename.
	XML(ctx context.Context, companyID, invoiceID uuid.UUID) ([]byte, string, error)
	Submit(ctx context.Context, companyID, invoiceID uuid.UUID) (*dto.SubmissionResponse, error)
	Status(ctx context.Context, companyID, invoiceID uuid.UUID) (*dto.SubmissionResponse, error)
	Submissions(ctx context.Context, companyID uuid.UUID, status string, p dto.Pagination) (dto.ListResponse[dto.SubmissionResponse], error)
	Logs(ctx context.Context, companyID uuid.UUID, filter dto.LogFilter) (dto.ListResponse[dto.EFacturaLogResponse], error)
	AutoSubmit(ctx context.Context, companyID, invoiceID uuid.UUID)
}

type efacturaService struct {
	repo      repository.EFacturaRepository
	invoices  repository.InvoiceRepository
	companies repository.CompanyRepository
	storage   infra.Storage
	jobs      JobQueue
}

func NewEFacturaService(
	repo repository.EFacturaRepository,
	invoices repository.InvoiceRepository,
	companies repository.CompanyRepository,
	storage infra.Storage,
	jobs JobQueue,
) EFacturaService {
	return &efacturaService{repo: repo, invoices: invoices, companies: companies, storage: storage, jobs: jobs}
}

func (s *efacturaService) GetConfig(ctx context.Context, companyID uuid.UUID) (*dto.EFacturaConfigResponse, error) {
	cfg, err := s.config(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toConfigResponse(cfg), nil
}

func (s *efacturaService) UpdateConfig(ctx context.Context, companyID uuid.UUID, req dto.EFacturaConfigRequest) (*dto.EFacturaConfigResponse, error) {
	cfg, err := s.config(ctx, companyID)
	if err != nil {
		return nil, err
	}
	setIf(&cfg.Enabled, req.Enabled)
	setIf(&cfg.AutoSubmit, req.AutoSubmit)
	setIf(&cfg.UseTestEnvironment, req.UseTestEnvironment)
	setIf(&cfg.ClientID, req.ClientID)
	setIf(&cfg.ClientSecret, req.ClientSecret)
	setIf(&cfg.AccessToken, req.AccessToken)
	setIf(&cfg.RefreshToken, req.RefreshToken)
	setIf(&cfg.NotificationEmail, req.NotificationEmail)
	if req.TokenExpiresAt != nil {
		t := req.TokenExpiresAt.UTC()
		cfg.TokenExpiresAt = &t
	}
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	log.Info().Str("company_id", companyID.String()).Bool("enabled", cfg.Enabled).Msg("efactura config updated")
	return toConfigResponse(cfg), nil
}

// config returns the stored settings, or disabled defaults when none exist.
func (s *efacturaService) config(ctx context.Context, companyID uuid.UUID) (*model.EFacturaConfig, error) {
	cfg, err := s.repo.GetConfig(ctx, companyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.EFacturaConfig{CompanyID: companyID, UseTestEnvironment: true}, nil
	}
	return cfg, err
}

func (s *efacturaService) Validate(ctx context.Context, companyID, invoiceID uuid.UUID) (*efactura.ValidationResult, error) {
	doc, _, err := s.document(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	res := efactura.Validate(doc)
	return &res, nil
}

func (s *efacturaService) XML(ctx context.Context, companyID, invoiceID uuid.UUID) ([]byte, string, error) {
	doc, inv, err := s.document(ctx, companyID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	data, err := efactura.Build(doc)
	if err != nil {
		return nil, "", err
	}
	return data, "efactura-" + safeNumber(inv) + ".xml", nil
}

func (s *efacturaService) Submit(ctx context.Context, companyID, invoiceID uuid.UUID) (*dto.SubmissionResponse, error) {
	cfg, err := s.config(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("e-Factura is not enabled for this company: %w", apierror.ErrConflict)
	}

	doc, inv, err := s.document(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceDraft || inv.Status == model.InvoiceCancelled {
		return nil, fmt.Errorf("a %s invoice cannot be submitted: %w", inv.Status, apierror.ErrConflict)
	}
	if err := s.checkNoOpenSubmission(ctx, companyID, invoiceID); err != nil {
		return nil, err
	}

	if res := efactura.Validate(doc); !res.Valid {
		return nil, fmt.Errorf("%s: %w", strings.Join(res.Errors, "; "), apierror.ErrUnprocessable)
	}
	data, err := efactura.Build(doc)
	if err != nil {
		return nil, err
	}

	sub := &model.EFacturaSubmission{
		ID:        uuid.New(),
		CompanyID: companyID,
		InvoiceID: invoiceID,
		Status:    model.SubmissionPending,
		TestMode:  cfg.UseTestEnvironment,
	}
	sub.XMLKey = fmt.Sprintf("%s/%s/%s-%s.xml", companyID, inv.IssueDate.Format("2006/01"), safeNumber(inv), sub.ID)
	sum := sha256.Sum256(data)
	sub.XMLHash = hex.EncodeToString(sum[:])

	if err := s.storage.Put(ctx, sub.XMLKey, data, "application/xml"); err != nil {
		return nil, fmt.Errorf("store e-Factura xml: %w", err)
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	worker.RecordLog(ctx, s.repo, sub, "submit", "xml stored, sha256 "+sub.XMLHash)

	// the poller picks up error rows, so a failed enqueue is not lost
	if err := s.jobs.EnqueueEFactura(ctx, worker.EFacturaPayload{SubmissionID: sub.ID.String()}); err != nil {
		msg := "enqueue failed: " + err.Error()
		sub.Status = model.SubmissionError
		sub.LastError = &msg
		if err := s.repo.UpdateSubmission(ctx, sub); err != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("efactura: enqueue failed, left for the poller")
	}

	log.Info().Str("submission_id", sub.ID.String()).Str("invoice_id", invoiceID.String()).
		Bool("test_mode", sub.TestMode).Msg("efactura submission created")
	return toSubmissionResponse(sub), nil
}

// checkNoOpenSubmission allows a new submission only when the previous one
// was rejected or ran out of retries.
func (s *efacturaService) checkNoOpenSubmission(ctx context.Context, companyID, invoiceID uuid.UUID) error {
	last, err := s.repo.LatestForInvoice(ctx, companyID, invoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case last.Status == model.SubmissionAccepted:
		return fmt.Errorf("invoice was already accepted by ANAF: %w", apierror.ErrConflict)
	case last.Status == model.SubmissionRejected:
		return nil
	case last.Status == model.SubmissionError && last.Attempts >= worker.MaxSubmissionAttempts:
		return nil
	default:
		return fmt.Errorf("invoice has a %s submission in progress: %w", last.Status, apierror.ErrConflict)
	}
}

func (s *efacturaService) Status(ctx context.Context, companyID, invoiceID uuid.UUID) (*dto.SubmissionResponse, error) {
	sub, err := s.repo.LatestForInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, notFound("submission", err)
	}
	return toSubmissionResponse(sub), nil
}

func (s *efacturaService) Submissions(ctx context.Context, companyID uuid.UUID, status string, p dto.Pagination) (dto.ListResponse[dto.SubmissionResponse], error) {
	subs, total, err := s.repo.ListSubmissions(ctx, companyID, status, p)
	if err != nil {
		return dto.ListResponse[dto.SubmissionResponse]{}, err
	}
	data := make([]dto.SubmissionResponse, 0, len(subs))
	for i := range subs {
		data = append(data, *toSubmissionResponse(&subs[i]))
	}
	return dto.NewListResponse(data, total, p), nil
}

func (s *efacturaService) Logs(ctx context.Context, companyID uuid.UUID, filter dto.LogFilter) (dto.ListResponse[dto.EFacturaLogResponse], error) {
	logs, total, err := s.repo.ListLogs(ctx, companyID, filter)
	if err != nil {
		return dto.ListResponse[dto.EFacturaLogResponse]{}, err
	}
	data := make([]dto.EFacturaLogResponse, 0, len(logs))
	for _, l := range logs {
		data = append(data, dto.EFacturaLogResponse{
			ID:           l.ID.String(),
			SubmissionID: idString(l.SubmissionID),
			Action:       l.Action,
			Status:       l.Status,
			Message:      l.Message,
			CreatedAt:    l.CreatedAt,
		})
	}
	return dto.NewListResponse(data, total, filter.Pagination), nil
}

// AutoSubmit is called after an invoice is issued. Failures never block the
// issue itself; they are logged.
func (s *efacturaService) AutoSubmit(ctx context.Context, companyID, invoiceID uuid.UUID) {
	cfg, err := s.repo.GetConfig(ctx, companyID)
	if err != nil || !cfg.Enabled || !cfg.AutoSubmit {
		return
	}
	if _, err := s.Submit(ctx, companyID, invoiceID); err != nil {
		log.Warn().Err(err).Str("invoice_id", invoiceID.String()).Msg("efactura: auto-submit failed")
	}
}

// document maps an issued invoice onto the UBL model. Received invoices are
// the supplier's to report and are refused.
func (s *efacturaService) document(ctx context.Context, companyID, invoiceID uuid.UUID) (efactura.Document, *model.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, companyID, invoiceID)
	if err != nil {
		return efactura.Document{}, nil, notFound("invoice", err)
	}
	if inv.Direction != model.DirectionIssued {
		return efactura.Document{}, nil, fmt.Errorf("only issued invoices are reported to e-Factura: %w", apierror.ErrUnprocessable)
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return efactura.Document{}, nil, notFound("company", err)
	}

	doc := efactura.Document{
		Number:        inv.Series + inv.Number,
		Type:          inv.Type,
		IssueDate:     inv.IssueDate,
		Currency:      inv.Currency,
		Note:          inv.Notes,
		PaymentMethod: inv.PaymentMethod,
		IBAN:          company.IBAN,
		BankName:      company.BankName,
		Seller: efactura.Party{
			Name:       company.Name,
			CUI:        company.CUI,
			RegCom:     company.RegCom,
			Street:     company.Address,
			City:       company.City,
			County:     company.County,
			PostalCode: company.PostalCode,
			Country:    company.Country,
			Email:      company.Email,
			Phone:      company.Phone,
			VATPayer:   company.VATPayer,
		},
		Lines: make([]efactura.Line, 0, len(inv.Lines)),
	}
	if inv.DueDate != nil {
		doc.DueDate = *inv.DueDate
	}
	if p := inv.Partner; p != nil {
		doc.Buyer = efactura.Party{
			Name:       p.Name,
			CUI:        p.CUI,
			RegCom:     p.RegCom,
			Street:     p.Address,
			City:       p.City,
			County:     p.County,
			PostalCode: p.PostalCode,
			Country:    p.Country,
			Email:      p.Email,
			Phone:      p.Phone,
			VATPayer:   p.IsVATPayer,
		}
	}
	if inv.Status == model.InvoicePaid {
		doc.Prepaid = inv.Total
	}
	for _, l := range inv.Lines {
		doc.Lines = append(doc.Lines, efactura.Line{
			Name:        l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitPrice:   l.UnitPrice,
			VATRate:     l.VATRate,
			VATCategory: l.VATCategory,
		})
	}
	return doc, inv, nil
}

// safeNumber is the series and number usable as a file name.
func safeNumber(inv *model.Invoice) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "").Replace(inv.Series + inv.Number)
}

func toConfigResponse(c *model.EFacturaConfig) *dto.EFacturaConfigResponse {
	return &dto.EFacturaConfigResponse{
		Enabled:            c.Enabled,
		AutoSubmit:         c.AutoSubmit,
		UseTestEnvironment: c.UseTestEnvironment,
		ClientID:           c.ClientID,
		HasClientSecret:    c.ClientSecret != "",
		HasAccessToken:     c.AccessToken != "",
		TokenExpiresAt:     c.TokenExpiresAt,
		NotificationEmail:  c.NotificationEmail,
	}
}

func toSubmissionResponse(s *model.EFacturaSubmission) *dto.SubmissionResponse {
	return &dto.SubmissionResponse{
		ID:            s.ID.String(),
		InvoiceID:     s.InvoiceID.String(),
		Status:        s.Status,
		UploadIndex:   s.UploadIndex,
		DownloadID:    s.DownloadID,
		XMLHash:       s.XMLHash,
		TestMode:      s.TestMode,
		Attempts:      s.Attempts,
		LastError:     s.LastError,
		SubmittedAt:   s.SubmittedAt,
		LastCheckedAt: s.LastCheckedAt,
		CreatedAt:     s.CreatedAt,
	}
}
