package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

// PeriodLayout is the YYYY-MM form of an accounting period.
const PeriodLayout = "2006-01"

type PeriodService interface {
	List(ctx context.Context, companyID uuid.UUID) ([]dto.PeriodResponse, error)
	Close(ctx context.Context, companyID uuid.UUID, period string, userID uuid.UUID) (*dto.PeriodResponse, error)
	Reopen(ctx context.Context, companyID uuid.UUID, period string) (*dto.PeriodResponse, error)
	// EnsureOpen fails with apierror.ErrConflict when date falls inside a
	// closed period.
	EnsureOpen(ctx context.Context, companyID uuid.UUID, date time.Time) error
}

type periodService struct {
	repo repository.PeriodRepository
}

func NewPeriodService(repo repository.PeriodRepository) PeriodService {
	return &periodService{repo: repo}
}

func checkPeriod(period string) error {
	if _, err := time.Parse(PeriodLayout, period); err != nil {
		return fmt.Errorf("period must be YYYY-MM: %w", apierror.ErrInvalid)
	}
	return nil
}

func (s *periodService) List(ctx context.Context, companyID uuid.UUID) ([]dto.PeriodResponse, error) {
	periods, err := s.repo.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PeriodResponse, len(periods))
	for i := range periods {
		out[i] = toPeriodResponse(&periods[i])
	}
	return out, nil
}

func (s *periodService) Close(ctx context.Context, companyID uuid.UUID, period string, userID uuid.UUID) (*dto.PeriodResponse, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &model.AccountingPeriod{
		CompanyID: companyID,
		Period:    period,
		Status:    model.PeriodClosed,
		ClosedAt:  &now,
		ClosedBy:  &userID,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	resp := toPeriodResponse(p)
	return &resp, nil
}

func (s *periodService) Reopen(ctx context.Context, companyID uuid.UUID, period string) (*dto.PeriodResponse, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	p := &model.AccountingPeriod{CompanyID: companyID, Period: period, Status: model.PeriodOpen}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	resp := toPeriodResponse(p)
	return &resp, nil
}

func (s *periodService) EnsureOpen(ctx context.Context, companyID uuid.UUID, date time.Time) error {
	period := date.Format(PeriodLayout)
	p, err := s.repo.Find(ctx, companyID, period)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.Status == model.PeriodClosed {
		return fmt.Errorf("accounting period %s is closed: %w", period, apierror.ErrConflict)
	}
	return nil
}

func toPeriodResponse(p *model.AccountingPeriod) dto.PeriodResponse {
	return dto.PeriodResponse{
		Period:   p.Period,
		Status:   p.Status,
		ClosedAt: p.ClosedAt,
		ClosedBy: idString(p.ClosedBy),
	}
}
