package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

// MembershipTTL bounds how long a cached membership role is trusted.
const MembershipTTL = 5 * time.Minute

type CompanyService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]dto.CompanyResponse, error)
	Get(ctx context.Context, companyID uuid.UUID) (*dto.CompanyResponse, error)
	Update(ctx context.Context, companyID uuid.UUID, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	AddMember(ctx context.Context, companyID uuid.UUID, req dto.AddMemberRequest) (*dto.MemberResponse, error)
	ListMembers(ctx context.Context, companyID uuid.UUID) ([]dto.MemberResponse, error)
	// MemberRole resolves the caller's role in a company. Non-members get
	// apierror.ErrForbidden.
	MemberRole(ctx context.Context, companyID, userID uuid.UUID) (string, error)
}

type companyService struct {
	repo  repository.CompanyRepository
	users repository.UserRepository
	rdb   *redis.Client
}

func NewCompanyService(repo repository.CompanyRepository, users repository.UserRepository, rdb *redis.Client) CompanyService {
	return &companyService{repo: repo, users: users, rdb: rdb}
}

func memberKey(companyID, userID uuid.UUID) string {
	return "member:" + companyID.String() + ":" + userID.String()
}

func (s *companyService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := cui.Validate(req.CUI); err != nil {
		return nil, fmt.Errorf("cui %q: %v: %w", req.CUI, err, apierror.ErrUnprocessable)
	}
	code := cui.Clean(req.CUI)
	if _, err := s.repo.FindByCUI(ctx, code); err == nil {
		return nil, fmt.Errorf("company with cui %s already registered: %w", code, apierror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	country := req.Country
	if country == "" {
		country = "RO"
	}
	c := &model.Company{
		Name:       req.Name,
		CUI:        code,
		RegCom:     req.RegCom,
		Address:    req.Address,
		City:       req.City,
		County:     req.County,
		PostalCode: req.PostalCode,
		Country:    country,
		Email:      req.Email,
		Phone:      req.Phone,
		IBAN:       req.IBAN,
		BankName:   req.BankName,
		VATPayer:   req.VATPayer || cui.HasROPrefix(req.CUI),
	}
	if err := s.repo.Create(ctx, c, userID); err != nil {
		return nil, duplicate("company", err)
	}
	s.invalidate(ctx, c.ID, userID)

	resp := toCompanyResponse(c, model.MemberOwner)
	return &resp, nil
}

func (s *companyService) List(ctx context.Context, userID uuid.UUID) ([]dto.CompanyResponse, error) {
	companies, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CompanyResponse, len(companies))
	for i := range companies {
		out[i] = toCompanyResponse(&companies[i].Company, companies[i].Role)
	}
	return out, nil
}

func (s *companyService) Get(ctx context.Context, companyID uuid.UUID) (*dto.CompanyResponse, error) {
	c, err := s.repo.FindByID(ctx, companyID)
	if err != nil {
		return nil, notFound("company", err)
	}
	resp := toCompanyResponse(c, "")
	return &resp, nil
}

func (s *companyService) Update(ctx context.Context, companyID uuid.UUID, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	c, err := s.repo.FindByID(ctx, companyID)
	if err != nil {
		return nil, notFound("company", err)
	}
	setIf(&c.Name, req.Name)
	setIf(&c.RegCom, req.RegCom)
	setIf(&c.Address, req.Address)
	setIf(&c.City, req.City)
	setIf(&c.County, req.County)
	setIf(&c.PostalCode, req.PostalCode)
	setIf(&c.Email, req.Email)
	setIf(&c.Phone, req.Phone)
	setIf(&c.IBAN, req.IBAN)
	setIf(&c.BankName, req.BankName)
	setIf(&c.VATPayer, req.VATPayer)

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	resp := toCompanyResponse(c, "")
	return &resp, nil
}

func (s *companyService) AddMember(ctx context.Context, companyID uuid.UUID, req dto.AddMemberRequest) (*dto.MemberResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, notFound("user "+req.Email, err)
	}
	if _, err := s.repo.FindMember(ctx, companyID, user.ID); err == nil {
		return nil, fmt.Errorf("%s is already a member: %w", user.Email, apierror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := &model.CompanyMember{CompanyID: companyID, UserID: user.ID, Role: req.Role}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return nil, duplicate("member", err)
	}
	s.invalidate(ctx, companyID, user.ID)
	return &dto.MemberResponse{UserID: user.ID.String(), Email: user.Email, Name: user.Name, Role: m.Role}, nil
}

func (s *companyService) ListMembers(ctx context.Context, companyID uuid.UUID) ([]dto.MemberResponse, error) {
	members, err := s.repo.ListMembers(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		r := dto.MemberResponse{UserID: m.UserID.String(), Role: m.Role}
		if m.User != nil {
			r.Email, r.Name = m.User.Email, m.User.Name
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *companyService) MemberRole(ctx context.Context, companyID, userID uuid.UUID) (string, error) {
	key := memberKey(companyID, userID)
	if role, err := s.rdb.Get(ctx, key).Result(); err == nil {
		return role, nil
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("membership cache read failed")
	}

	m, err := s.repo.FindMember(ctx, companyID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("no access to company: %w", apierror.ErrForbidden)
	}
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, key, m.Role, MembershipTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("membership cache write failed")
	}
	return m.Role, nil
}

func (s *companyService) invalidate(ctx context.Context, companyID, userID uuid.UUID) {
	if err := s.rdb.Del(ctx, memberKey(companyID, userID)).Err(); err != nil {
		log.Warn().Err(err).Msg("membership cache invalidation failed")
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func toCompanyResponse(c *model.Company, role string) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		CUI:        c.CUI,
		RegCom:     c.RegCom,
		Address:    c.Address,
		City:       c.City,
		County:     c.County,
		PostalCode: c.PostalCode,
		Country:    c.Country,
		Email:      c.Email,
		Phone:      c.Phone,
		IBAN:       c.IBAN,
		BankName:   c.BankName,
		VATPayer:   c.VATPayer,
		Role:       role,
		CreatedAt:  c.CreatedAt,
	}
}
