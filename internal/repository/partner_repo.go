package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

type PartnerRepository interface {
	Create(ctx context.Context, p *model.Partner) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Partner, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.PartnerFilter) ([]model.Partner, int64, error)
	Update(ctx context.Context, p *model.Partner) error
	SoftDelete(ctx context.Context, companyID, id uuid.UUID) error
}

type partnerRepo struct{ db *gorm.DB }

func NewPartnerRepository(db *gorm.DB) PartnerRepository { return &partnerRepo{db: db} }

func (r *partnerRepo) Create(ctx context.Context, p *model.Partner) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *partnerRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Partner, error) {
	var p model.Partner
	err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&p).Error
	return &p, err
}

func (r *partnerRepo) List(ctx context.Context, companyID uuid.UUID, filter dto.PartnerFilter) ([]model.Partner, int64, error) {
	var partners []model.Partner
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Partner{}).Where("company_id = ?", companyID)

	switch filter.Active {
	case "false":
		q = q.Where("active = ?", false)
	case "all":
	default:
		q = q.Where("active = ?", true)
	}
	switch filter.Type {
	case "client":
		q = q.Where("type IN ?", []string{"client", "both"})
	case "supplier":
		q = q.Where("type IN ?", []string{"supplier", "both"})
	case "both":
		q = q.Where("type = ?", "both")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR cui LIKE ?)", like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name ASC").Limit(filter.Limit).Offset(filter.Offset()).Find(&partners).Error
	return partners, total, err
}

func (r *partnerRepo) Update(ctx context.Context, p *model.Partner) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *partnerRepo) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Partner{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
