package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

type EFacturaRepository interface {
	GetConfig(ctx context.Context, companyID uuid.UUID) (*model.EFacturaConfig, error)
	SaveConfig(ctx context.Context, cfg *model.EFacturaConfig) error

	CreateSubmission(ctx context.Context, s *model.EFacturaSubmission) error
	FindSubmission(ctx context.Context, id uuid.UUID) (*model.EFacturaSubmission, error)
	// LatestForInvoice returns the most recent submission of an invoice.
	LatestForInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*model.EFacturaSubmission, error)
	UpdateSubmission(ctx context.Context, s *model.EFacturaSubmission) error
	ListSubmissions(ctx context.Context, companyID uuid.UUID, status string, p dto.Pagination) ([]model.EFacturaSubmission, int64, error)
	// ListPollable returns submissions waiting on ANAF plus failed ones that
	// still have attempts left, oldest first.
	ListPollable(ctx context.Context, limit, maxAttempts int) ([]model.EFacturaSubmission, error)

	CreateLog(ctx context.Context, l *model.EFacturaLog) error
	ListLogs(ctx context.Context, companyID uuid.UUID, filter dto.LogFilter) ([]model.EFacturaLog, int64, error)
}

type efacturaRepo struct{ db *gorm.DB }

func NewEFacturaRepository(db *gorm.DB) EFacturaRepository { return &efacturaRepo{db: db} }

func (r *efacturaRepo) GetConfig(ctx context.Context, companyID uuid.UUID) (*model.EFacturaConfig, error) {
	var cfg model.EFacturaConfig
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&cfg).Error
	return &cfg, err
}

// SaveConfig inserts or updates by primary key.
func (r *efacturaRepo) SaveConfig(ctx context.Context, cfg *model.EFacturaConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *efacturaRepo) CreateSubmission(ctx context.Context, s *model.EFacturaSubmission) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *efacturaRepo) FindSubmission(ctx context.Context, id uuid.UUID) (*model.EFacturaSubmission, error) {
	var s model.EFacturaSubmission
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *efacturaRepo) LatestForInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*model.EFacturaSubmission, error) {
	var s model.EFacturaSubmission
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		Order("created_at DESC").
		First(&s).Error
	return &s, err
}

func (r *efacturaRepo) UpdateSubmission(ctx context.Context, s *model.EFacturaSubmission) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *efacturaRepo) ListSubmissions(ctx context.Context, companyID uuid.UUID, status string, p dto.Pagination) ([]model.EFacturaSubmission, int64, error) {
	var subs []model.EFacturaSubmission
	var total int64

	q := r.db.WithContext(ctx).Model(&model.EFacturaSubmission{}).Where("company_id = ?", companyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset()).Find(&subs).Error
	return subs, total, err
}

func (r *efacturaRepo) ListPollable(ctx context.Context, limit, maxAttempts int) ([]model.EFacturaSubmission, error) {
	var subs []model.EFacturaSubmission
	err := r.db.WithContext(ctx).
		Where("status IN ? OR (status = ? AND attempts < ?)",
			[]string{model.SubmissionUploaded, model.SubmissionProcessing},
			model.SubmissionError, maxAttempts).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *efacturaRepo) CreateLog(ctx context.Context, l *model.EFacturaLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *efacturaRepo) ListLogs(ctx context.Context, companyID uuid.UUID, filter dto.LogFilter) ([]model.EFacturaLog, int64, error) {
	var logs []model.EFacturaLog
	var total int64

	q := r.db.WithContext(ctx).Model(&model.EFacturaLog{}).Where("company_id = ?", companyID)
	if id, err := uuid.Parse(filter.SubmissionID); err == nil {
		q = q.Where("submission_id = ?", id)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset()).Find(&logs).Error
	return logs, total, err
}
