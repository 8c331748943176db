package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

type PartnerService interface {
	Create(ctx context.Context, companyID uuid.UUID, req dto.CreatePartnerRequest) (*dto.PartnerResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.PartnerFilter) (dto.ListResponse[dto.PartnerResponse], error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*dto.PartnerResponse, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdatePartnerRequest) (*dto.PartnerResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

type partnerService struct {
	repo repository.PartnerRepository
}

func NewPartnerService(repo repository.PartnerRepository) PartnerService {
	return &partnerService{repo: repo}
}

// normalizePartnerCUI checksums Romanian codes and returns foreign VAT ids
// unchanged. Individuals may have no code at all.
func normalizePartnerCUI(raw, country string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	upper := strings.ToUpper(raw)
	foreignPrefix := len(upper) > 2 && upper[0] >= 'A' && upper[0] <= 'Z' && upper[1] >= 'A' && upper[1] <= 'Z' &&
		!strings.HasPrefix(upper, "RO")
	if foreignPrefix || (country != "" && !strings.EqualFold(country, "RO")) {
		return upper, nil
	}
	if err := cui.Validate(raw); err != nil {
		return "", fmt.Errorf("cui %q: %v: %w", raw, err, apierror.ErrUnprocessable)
	}
	if cui.HasROPrefix(raw) {
		return "RO" + cui.Clean(raw), nil
	}
	return cui.Clean(raw), nil
}

func (s *partnerService) Create(ctx context.Context, companyID uuid.UUID, req dto.CreatePartnerRequest) (*dto.PartnerResponse, error) {
	country := strings.ToUpper(req.Country)
	if country == "" {
		country = "RO"
	}
	code, err := normalizePartnerCUI(req.CUI, country)
	if err != nil {
		return nil, err
	}
	p := &model.Partner{
		CompanyID:  companyID,
		Type:       req.Type,
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
		IsVATPayer: req.IsVATPayer,
		Active:     true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := toPartnerResponse(p)
	return &resp, nil
}

func (s *partnerService) List(ctx context.Context, companyID uuid.UUID, filter dto.PartnerFilter) (dto.ListResponse[dto.PartnerResponse], error) {
	partners, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return dto.ListResponse[dto.PartnerResponse]{}, err
	}
	out := make([]dto.PartnerResponse, len(partners))
	for i := range partners {
		out[i] = toPartnerResponse(&partners[i])
	}
	return dto.NewListResponse(out, total, filter.Pagination), nil
}

func (s *partnerService) Get(ctx context.Context, companyID, id uuid.UUID) (*dto.PartnerResponse, error) {
	p, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("partner", err)
	}
	resp := toPartnerResponse(p)
	return &resp, nil
}

func (s *partnerService) Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdatePartnerRequest) (*dto.PartnerResponse, error) {
	p, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("partner", err)
	}
	setIf(&p.Type, req.Type)
	setIf(&p.Name, req.Name)
	setIf(&p.RegCom, req.RegCom)
	setIf(&p.Address, req.Address)
	setIf(&p.City, req.City)
	setIf(&p.County, req.County)
	setIf(&p.PostalCode, req.PostalCode)
	setIf(&p.Email, req.Email)
	setIf(&p.Phone, req.Phone)
	setIf(&p.IBAN, req.IBAN)
	setIf(&p.IsVATPayer, req.IsVATPayer)
	setIf(&p.Active, req.Active)
	if req.Country != nil {
		p.Country = strings.ToUpper(*req.Country)
	}
	if req.CUI != nil || req.Country != nil {
		raw := p.CUI
		if req.CUI != nil {
			raw = *req.CUI
		}
		if p.CUI, err = normalizePartnerCUI(raw, p.Country); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	resp := toPartnerResponse(p)
	return &resp, nil
}

func (s *partnerService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return notFound("partner", s.repo.SoftDelete(ctx, companyID, id))
}

func toPartnerResponse(p *model.Partner) dto.PartnerResponse {
	return dto.PartnerResponse{
		ID:         p.ID.String(),
		Type:       p.Type,
		Name:       p.Name,
		CUI:        p.CUI,
		RegCom:     p.RegCom,
		Address:    p.Address,
		City:       p.City,
		County:     p.County,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Email:      p.Email,
		Phone:      p.Phone,
		IBAN:       p.IBAN,
		IsVATPayer: p.IsVATPayer,
		Active:     p.Active,
	}
}
