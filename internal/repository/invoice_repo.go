package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

// ErrStale is returned by conditional updates whose row no longer matches
// the state the caller read.
var ErrStale = errors.New("row changed since it was read")

type InvoiceRepository interface {
	// Create inserts the invoice together with its lines.
	Create(ctx context.Context, inv *model.Invoice) error
	// FindByID loads lines (ordered by position) and partner.
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	// Update saves the header; with replaceLines the stored lines are
	// swapped for inv.Lines in the same transaction.
	Update(ctx context.Context, inv *model.Invoice, replaceLines bool) error
	// UpdateStatus moves the invoice from one status to another. It returns
	// ErrStale when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, paidAt *time.Time) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	// NumberExists checks number uniqueness; a non-nil partnerID narrows the
	// check to one supplier's invoices.
	NumberExists(ctx context.Context, companyID uuid.UUID, direction, number string, partnerID, excludeID uuid.UUID) (bool, error)
	// ListInRange returns non-draft invoices issued between from and to
	// (inclusive), lines and partner loaded, ordered by date and number.
	ListInRange(ctx context.Context, companyID uuid.UUID, direction string, from, to time.Time) ([]model.Invoice, error)
	// ListOutstanding returns issued invoices not yet paid.
	ListOutstanding(ctx context.Context, companyID uuid.UUID) ([]model.Invoice, error)
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func orderedLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Preload("Partner").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) List(ctx context.Context, companyID uuid.UUID, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("company_id = ?", companyID)
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != "" {
		q = q.Where("partner_id = ?", filter.PartnerID)
	}
	if t, err := time.Parse(time.DateOnly, filter.From); err == nil {
		q = q.Where("issue_date >= ?", t)
	}
	if t, err := time.Parse(time.DateOnly, filter.To); err == nil {
		q = q.Where("issue_date <= ?", t)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("LOWER(number) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Partner").
		Order("issue_date DESC").Order("number DESC").
		Limit(filter.Limit).Offset(filter.Offset()).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepo) Update(ctx context.Context, inv *model.Invoice, replaceLines bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines", "Partner").Save(inv).Error; err != nil {
			return err
		}
		if !replaceLines {
			return nil
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&model.InvoiceLine{}).Error; err != nil {
			return err
		}
		for i := range inv.Lines {
			inv.Lines[i].ID = uuid.Nil
			inv.Lines[i].InvoiceID = inv.ID
		}
		if len(inv.Lines) == 0 {
			return nil
		}
		return tx.Create(&inv.Lines).Error
	})
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, paidAt *time.Time) error {
	return updateStatus(r.db.WithContext(ctx), id, from, to, paidAt)
}

func updateStatus(tx *gorm.DB, id uuid.UUID, from, to string, paidAt *time.Time) error {
	res := tx.Model(&model.Invoice{}).Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "paid_at": paidAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&model.InvoiceLine{}).Error; err != nil {
			return err
		}
		res := tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&model.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *invoiceRepo) NumberExists(ctx context.Context, companyID uuid.UUID, direction, number string, partnerID, excludeID uuid.UUID) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("company_id = ? AND direction = ? AND number = ? AND id <> ?", companyID, direction, number, excludeID)
	if partnerID != uuid.Nil {
		q = q.Where("partner_id = ?", partnerID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *invoiceRepo) ListInRange(ctx context.Context, companyID uuid.UUID, direction string, from, to time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	q := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Preload("Partner").
		Where("company_id = ? AND status <> ? AND issue_date >= ? AND issue_date <= ?",
			companyID, model.InvoiceDraft, from, to)
	if direction != "" {
		q = q.Where("direction = ?", direction)
	}
	err := q.Order("issue_date ASC").Order("number ASC").Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) ListOutstanding(ctx context.Context, companyID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND direction = ? AND status = ?", companyID, model.DirectionIssued, model.InvoiceIssued).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}
