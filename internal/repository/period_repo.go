package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

type PeriodRepository interface {
	Find(ctx context.Context, companyID uuid.UUID, period string) (*model.AccountingPeriod, error)
	List(ctx context.Context, companyID uuid.UUID) ([]model.AccountingPeriod, error)
	// Upsert writes the period state, creating the row on first close.
	Upsert(ctx context.Context, p *model.AccountingPeriod) error
}

type periodRepo struct{ db *gorm.DB }

func NewPeriodRepository(db *gorm.DB) PeriodRepository { return &periodRepo{db: db} }

func (r *periodRepo) Find(ctx context.Context, companyID uuid.UUID, period string) (*model.AccountingPeriod, error) {
	var p model.AccountingPeriod
	err := r.db.WithContext(ctx).Where("company_id = ? AND period = ?", companyID, period).First(&p).Error
	return &p, err
}

func (r *periodRepo) List(ctx context.Context, companyID uuid.UUID) ([]model.AccountingPeriod, error) {
	var periods []model.AccountingPeriod
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("period DESC").Find(&periods).Error
	return periods, err
}

func (r *periodRepo) Upsert(ctx context.Context, p *model.AccountingPeriod) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "closed_at", "closed_by", "updated_at"}),
	}).Create(p).Error
}
