package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

// AccountTotals aggregates the transactions of one account.
type AccountTotals struct {
	Sum   decimal.Decimal
	Count int64
}

type BankRepository interface {
	CreateAccount(ctx context.Context, a *model.BankAccount) error
	FindAccount(ctx context.Context, companyID, id uuid.UUID) (*model.BankAccount, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]model.BankAccount, error)
	UpdateAccount(ctx context.Context, a *model.BankAccount) error

	// InsertTransactions stores the lines and skips those whose reference
	// already exists for the account. It returns the number inserted.
	InsertTransactions(ctx context.Context, txs []model.BankTransaction) (int, error)
	FindTransaction(ctx context.Context, companyID, id uuid.UUID) (*model.BankTransaction, error)
	ListTransactions(ctx context.Context, companyID uuid.UUID, filter dto.TransactionFilter) ([]model.BankTransaction, int64, error)
	// Match links an unmatched transaction to an invoice. A non-nil paidAt
	// also moves the invoice from issued to paid in the same transaction.
	// Either change failing its condition rolls both back with ErrStale.
	Match(ctx context.Context, id, invoiceID uuid.UUID, paidAt *time.Time) error
	SumTransactions(ctx context.Context, accountID uuid.UUID) (AccountTotals, error)
	ListTransactionsInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]model.BankTransaction, error)
}

type bankRepo struct{ db *gorm.DB }

func NewBankRepository(db *gorm.DB) BankRepository { return &bankRepo{db: db} }

func (r *bankRepo) CreateAccount(ctx context.Context, a *model.BankAccount) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *bankRepo) FindAccount(ctx context.Context, companyID, id uuid.UUID) (*model.BankAccount, error) {
	var a model.BankAccount
	err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&a).Error
	return &a, err
}

func (r *bankRepo) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]model.BankAccount, error) {
	var accounts []model.BankAccount
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name ASC").Find(&accounts).Error
	return accounts, err
}

func (r *bankRepo) UpdateAccount(ctx context.Context, a *model.BankAccount) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *bankRepo) InsertTransactions(ctx context.Context, txs []model.BankTransaction) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range txs {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "reference"}},
				DoNothing: true,
			}).Create(&txs[i])
			if res.Error != nil {
				return res.Error
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *bankRepo) FindTransaction(ctx context.Context, companyID, id uuid.UUID) (*model.BankTransaction, error) {
	var t model.BankTransaction
	err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&t).Error
	return &t, err
}

func (r *bankRepo) ListTransactions(ctx context.Context, companyID uuid.UUID, filter dto.TransactionFilter) ([]model.BankTransaction, int64, error) {
	var txs []model.BankTransaction
	var total int64

	q := r.db.WithContext(ctx).Model(&model.BankTransaction{}).Where("company_id = ?", companyID)
	if id, err := uuid.Parse(filter.AccountID); err == nil {
		q = q.Where("account_id = ?", id)
	}
	if t, err := time.Parse(time.DateOnly, filter.From); err == nil {
		q = q.Where("booking_date >= ?", t)
	}
	if t, err := time.Parse(time.DateOnly, filter.To); err == nil {
		q = q.Where("booking_date <= ?", t)
	}
	switch filter.Matched {
	case "true":
		q = q.Where("matched_invoice_id IS NOT NULL")
	case "false":
		q = q.Where("matched_invoice_id IS NULL")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("booking_date DESC").Order("created_at DESC").
		Limit(filter.Limit).Offset(filter.Offset()).
		Find(&txs).Error
	return txs, total, err
}

func (r *bankRepo) Match(ctx context.Context, id, invoiceID uuid.UUID, paidAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.BankTransaction{}).
			Where("id = ? AND matched_invoice_id IS NULL", id).
			Update("matched_invoice_id", invoiceID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}
		if paidAt == nil {
			return nil
		}
		return updateStatus(tx, invoiceID, model.InvoiceIssued, model.InvoicePaid, paidAt)
	})
}

func (r *bankRepo) SumTransactions(ctx context.Context, accountID uuid.UUID) (AccountTotals, error) {
	var row struct {
		Sum   decimal.NullDecimal
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.BankTransaction{}).
		Select("SUM(amount) AS sum, COUNT(*) AS count").
		Where("account_id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		return AccountTotals{}, err
	}
	return AccountTotals{Sum: row.Sum.Decimal, Count: row.Count}, nil
}

func (r *bankRepo) ListTransactionsInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]model.BankTransaction, error) {
	var txs []model.BankTransaction
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND booking_date >= ? AND booking_date <= ?", companyID, from, to).
		Order("booking_date ASC").
		Find(&txs).Error
	return txs, err
}
