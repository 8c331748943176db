package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

// CompanyWithRole is a company as seen by one member.
type CompanyWithRole struct {
	model.Company
	Role string
}

type CompanyRepository interface {
	// Create inserts the company and its first owner in one transaction.
	Create(ctx context.Context, c *model.Company, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	FindByCUI(ctx context.Context, cui string) (*model.Company, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]CompanyWithRole, error)
	Update(ctx context.Context, c *model.Company) error

	FindMember(ctx context.Context, companyID, userID uuid.UUID) (*model.CompanyMember, error)
	AddMember(ctx context.Context, m *model.CompanyMember) error
	UpdateMemberRole(ctx context.Context, companyID, userID uuid.UUID, role string) error
	ListMembers(ctx context.Context, companyID uuid.UUID) ([]model.CompanyMember, error)
}

type companyRepo struct{ db *gorm.DB }

func NewCompanyRepository(db *gorm.DB) CompanyRepository { return &companyRepo{db: db} }

func (r *companyRepo) Create(ctx context.Context, c *model.Company, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(&model.CompanyMember{CompanyID: c.ID, UserID: ownerID, Role: model.MemberOwner}).Error
	})
}

func (r *companyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	return &c, err
}

func (r *companyRepo) FindByCUI(ctx context.Context, cui string) (*model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).Where("cui = ?", cui).First(&c).Error
	return &c, err
}

func (r *companyRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]CompanyWithRole, error) {
	var members []model.CompanyMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []CompanyWithRole{}, nil
	}
	roles := make(map[uuid.UUID]string, len(members))
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		roles[m.CompanyID] = m.Role
		ids = append(ids, m.CompanyID)
	}

	var companies []model.Company
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, err
	}
	out := make([]CompanyWithRole, 0, len(companies))
	for _, c := range companies {
		out = append(out, CompanyWithRole{Company: c, Role: roles[c.ID]})
	}
	return out, nil
}

func (r *companyRepo) Update(ctx context.Context, c *model.Company) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *companyRepo) FindMember(ctx context.Context, companyID, userID uuid.UUID) (*model.CompanyMember, error) {
	var m model.CompanyMember
	err := r.db.WithContext(ctx).Where("company_id = ? AND user_id = ?", companyID, userID).First(&m).Error
	return &m, err
}

func (r *companyRepo) AddMember(ctx context.Context, m *model.CompanyMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *companyRepo) UpdateMemberRole(ctx context.Context, companyID, userID uuid.UUID, role string) error {
	return r.db.WithContext(ctx).Model(&model.CompanyMember{}).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Update("role", role).Error
}

func (r *companyRepo) ListMembers(ctx context.Context, companyID uuid.UUID) ([]model.CompanyMember, error) {
	var members []model.CompanyMember
	err := r.db.WithContext(ctx).Preload("User").Where("company_id = ?", companyID).
		Order("created_at ASC").Find(&members).Error
	return members, err
}
