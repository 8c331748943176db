package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/tax"
)

// TaxRatesTTL is how long a resolved country rate set stays cached. Tables
// change by law, not by request, so a day is safe.
const TaxRatesTTL = 24 * time.Hour

type TaxService interface {
	ListRates(ctx context.Context, date time.Time) []dto.CountryRatesResponse
	CountryRates(ctx context.Context, country string, date time.Time) (*dto.CountryRatesResponse, error)
	Calculate(ctx context.Context, req dto.CalculateTaxRequest) (*dto.CalculateTaxResponse, error)
	Treatment(ctx context.Context, req dto.TreatmentRequest) (*tax.Treatment, error)
}

type taxService struct {
	rdb *redis.Client
}

// NewTaxService accepts a nil client; lookups then skip the cache.
func NewTaxService(rdb *redis.Client) TaxService {
	return &taxService{rdb: rdb}
}

func (s *taxService) ListRates(_ context.Context, date time.Time) []dto.CountryRatesResponse {
	countries := tax.Countries()
	out := make([]dto.CountryRatesResponse, len(countries))
	for i, c := range countries {
		out[i] = toCountryRates(c, date)
	}
	return out
}

func (s *taxService) CountryRates(ctx context.Context, country string, date time.Time) (*dto.CountryRatesResponse, error) {
	key := "tax:rates:" + country + ":" + date.Format(time.DateOnly)
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var cached dto.CountryRatesResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("tax cache read failed")
		}
	}

	c, err := tax.Lookup(country)
	if err != nil {
		return nil, fmt.Errorf("country %s: %w", country, apierror.ErrNotFound)
	}
	resp := toCountryRates(c, date)

	if s.rdb != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, key, raw, TaxRatesTTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("tax cache write failed")
			}
		}
	}
	return &resp, nil
}

func (s *taxService) Calculate(_ context.Context, req dto.CalculateTaxRequest) (*dto.CalculateTaxResponse, error) {
	date := today()
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}

	var rate decimal.Decimal
	switch {
	case req.Rate != nil:
		rate = *req.Rate
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("rate must be between 0 and 100: %w", apierror.ErrUnprocessable)
		}
	default:
		country := req.Country
		if country == "" {
			country = "RO"
		}
		r, err := tax.Rate(country, tax.RateKind(req.Kind), date)
		if errors.Is(err, tax.ErrUnknownCountry) {
			return nil, fmt.Errorf("country %s: %w", country, apierror.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("%s has no %s rate: %w", country, req.Kind, apierror.ErrUnprocessable)
		}
		rate = r
	}

	if req.Inclusive {
		net, vat := tax.ExtractVAT(req.Amount, rate)
		return &dto.CalculateTaxResponse{Net: net, VAT: vat, Gross: req.Amount.Round(2), Rate: rate}, nil
	}
	vat, gross := tax.Calculate(req.Amount, rate)
	return &dto.CalculateTaxResponse{Net: req.Amount.Round(2), VAT: vat, Gross: gross, Rate: rate}, nil
}

func (s *taxService) Treatment(_ context.Context, req dto.TreatmentRequest) (*tax.Treatment, error) {
	date := today()
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}
	supply := tax.SupplyType(req.SupplyType)
	if supply == "" {
		supply = tax.SupplyGoods
	}
	t, err := tax.DetermineTreatment(tax.TreatmentInput{
		SupplierCountry: req.SupplierCountry,
		CustomerCountry: req.CustomerCountry,
		SupplierVATID:   req.SupplierVATID,
		CustomerVATID:   req.CustomerVATID,
		SupplyType:      supply,
		OSSRegistered:   req.OSSRegistered,
		Date:            date,
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apierror.ErrUnprocessable)
	}
	return &t, nil
}

func toCountryRates(c tax.Country, date time.Time) dto.CountryRatesResponse {
	p := c.At(date)
	reduced := p.Reduced
	if reduced == nil {
		reduced = []decimal.Decimal{}
	}
	return dto.CountryRatesResponse{
		Code:         c.Code,
		Name:         c.Name,
		Currency:     c.Currency,
		EffectiveOn:  date.Format(time.DateOnly),
		Standard:     p.Standard,
		Reduced:      reduced,
		SuperReduced: p.SuperReduced,
		Parking:      p.Parking,
	}
}
