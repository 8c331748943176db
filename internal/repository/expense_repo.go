package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

type ExpenseRepository interface {
	Create(ctx context.Context, e *model.Expense) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.ExpenseFilter) ([]model.Expense, int64, error)
	Update(ctx context.Context, e *model.Expense) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	// ListInRange returns expenses dated between from and to (inclusive)
	// with one of the given statuses; no statuses means all.
	ListInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time, statuses ...string) ([]model.Expense, error)
	CountByStatus(ctx context.Context, companyID uuid.UUID, status string) (int64, error)
}

type expenseRepo struct{ db *gorm.DB }

func NewExpenseRepository(db *gorm.DB) ExpenseRepository { return &expenseRepo{db: db} }

func (r *expenseRepo) Create(ctx context.Context, e *model.Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *expenseRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Expense, error) {
	var e model.Expense
	err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&e).Error
	return &e, err
}

func (r *expenseRepo) List(ctx context.Context, companyID uuid.UUID, filter dto.ExpenseFilter) ([]model.Expense, int64, error) {
	var expenses []model.Expense
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Expense{}).Where("company_id = ?", companyID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if t, err := time.Parse(time.DateOnly, filter.From); err == nil {
		q = q.Where("expense_date >= ?", t)
	}
	if t, err := time.Parse(time.DateOnly, filter.To); err == nil {
		q = q.Where("expense_date <= ?", t)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("expense_date DESC").Order("created_at DESC").
		Limit(filter.Limit).Offset(filter.Offset()).
		Find(&expenses).Error
	return expenses, total, err
}

func (r *expenseRepo) Update(ctx context.Context, e *model.Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *expenseRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).Delete(&model.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepo) ListInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time, statuses ...string) ([]model.Expense, error) {
	var expenses []model.Expense
	q := r.db.WithContext(ctx).
		Where("company_id = ? AND expense_date >= ? AND expense_date <= ?", companyID, from, to)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("expense_date ASC").Find(&expenses).Error
	return expenses, err
}

func (r *expenseRepo) CountByStatus(ctx context.Context, companyID uuid.UUID, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Where("company_id = ? AND status = ?", companyID, status).
		Count(&n).Error
	return n, err
}
