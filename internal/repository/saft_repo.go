package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

type SAFTRepository interface {
	Create(ctx context.Context, e *model.SAFTExport) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.SAFTExport, error)
	List(ctx context.Context, companyID uuid.UUID, p dto.Pagination) ([]model.SAFTExport, int64, error)
}

type saftRepo struct{ db *gorm.DB }

func NewSAFTRepository(db *gorm.DB) SAFTRepository { return &saftRepo{db: db} }

func (r *saftRepo) Create(ctx context.Context, e *model.SAFTExport) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *saftRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.SAFTExport, error) {
	var e model.SAFTExport
	err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&e).Error
	return &e, err
}

func (r *saftRepo) List(ctx context.Context, companyID uuid.UUID, p dto.Pagination) ([]model.SAFTExport, int64, error) {
	var exports []model.SAFTExport
	var total int64

	q := r.db.WithContext(ctx).Model(&model.SAFTExport{}).Where("company_id = ?", companyID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset()).Find(&exports).Error
	return exports, total, err
}
