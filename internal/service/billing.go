package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/logger"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/pdf"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// BillingService fetches what the billing core needs from the database, calls
// the core, and validates every write before it reaches the database.
type BillingService struct {
	db         database.DB
	cfg        *config.Config
	log        zerolog.Logger
	rasterizer pdf.Rasterizer
	now        func() time.Time
}

func NewBillingService(db database.DB, cfg *config.Config) *BillingService {
	return &BillingService{
		db:         db,
		cfg:        cfg,
		log:        logger.WithComponent("service"),
		rasterizer: pdf.NewChromeRasterizer(cfg.ChromiumPath, cfg.PDFTimeout),
		now:        time.Now,
	}
}

// WithClock replaces the service's notion of today. Used by tests and by
// commands that report as of a given date.
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	return s
}

func (s *BillingService) WithRasterizer(r pdf.Rasterizer) *BillingService {
	s.rasterizer = r
	return s
}

// Today is the current calendar date as seen by the service.
func (s *BillingService) Today() time.Time {
	return models.DateOnly(s.now())
}

type ClientInput struct {
	Name            string
	Email           *string
	Type            models.ClientType
	HourlyRateCents int64
	DiscountPercent decimal.Decimal
}

// ClientUpdate changes only the fields that are set.
type ClientUpdate struct {
	Email           *string
	Type            *models.ClientType
	HourlyRateCents *int64
	DiscountPercent *decimal.Decimal
	CompanyName     *string
	ContactName     *string
	Phone           *string
	AddressLine1    *string
	AddressLine2    *string
	City            *string
	State           *string
	PostalCode      *string
	Country         *string
	TaxNumber       *string
}

func validateRateAndDiscount(rate int64, discount decimal.Decimal) error {
	if rate < 0 {
		return &models.ValidationError{Field: "hourly_rate", Msg: "must not be negative"}
	}
	if !money.ValidPercent(discount) {
		return &models.ValidationError{Field: "discount_percent", Msg: "must be between 0 and 100"}
	}
	return nil
}

func (s *BillingService) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Msg: "is required"}
	}
	if in.Type == "" {
		in.Type = models.ClientTypeCompany
	}
	if !in.Type.Valid() {
		return nil, &models.ValidationError{Field: "type", Msg: fmt.Sprintf("unknown client type %q (want company or individual)", in.Type)}
	}
	if err := validateRateAndDiscount(in.HourlyRateCents, in.DiscountPercent); err != nil {
		return nil, err
	}

	client, err := s.db.CreateClient(ctx, &models.Client{
		Name:            name,
		Email:           utils.ToPtrNil(utils.FromPtr(in.Email)),
		Type:            in.Type,
		HourlyRateCents: in.HourlyRateCents,
		DiscountPercent: in.DiscountPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.log.Info().Str("client", client.Name).Int64("rate_cents", client.HourlyRateCents).Msg("client created")
	return client, nil
}

// GetClient resolves a client by name, falling back to id.
func (s *BillingService) GetClient(ctx context.Context, nameOrID string) (*models.Client, error) {
	client, err := s.db.GetClientByName(ctx, nameOrID)
	if errors.Is(err, models.ErrNotFound) {
		client, err = s.db.GetClientByID(ctx, nameOrID)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownClient, nameOrID)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

func (s *BillingService) ListClients(ctx context.Context) ([]*models.Client, error) {
	return s.db.ListClients(ctx)
}

func (s *BillingService) UpdateClient(ctx context.Context, nameOrID string, u ClientUpdate) (*models.Client, error) {
	c, err := s.GetClient(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	if u.Type != nil {
		if !u.Type.Valid() {
			return nil, &models.ValidationError{Field: "type", Msg: fmt.Sprintf("unknown client type %q", *u.Type)}
		}
		c.Type = *u.Type
	}
	if u.HourlyRateCents != nil {
		c.HourlyRateCents = *u.HourlyRateCents
	}
	if u.DiscountPercent != nil {
		c.DiscountPercent = *u.DiscountPercent
	}
	if err := validateRateAndDiscount(c.HourlyRateCents, c.DiscountPercent); err != nil {
		return nil, err
	}

	set := func(dst **string, v *string) {
		if v != nil {
			*dst = utils.ToPtrNil(*v)
		}
	}
	set(&c.Email, u.Email)
	set(&c.CompanyName, u.CompanyName)
	set(&c.ContactName, u.ContactName)
	set(&c.Phone, u.Phone)
	set(&c.AddressLine1, u.AddressLine1)
	set(&c.AddressLine2, u.AddressLine2)
	set(&c.City, u.City)
	set(&c.State, u.State)
	set(&c.PostalCode, u.PostalCode)
	set(&c.Country, u.Country)
	set(&c.TaxNumber, u.TaxNumber)

	updated, err := s.db.UpdateClient(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return updated, nil
}

var workTypeCodePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeWorkTypeCode lowercases a code and turns inner spaces into hyphens.
func NormalizeWorkTypeCode(code string) (string, error) {
	code = strings.Join(strings.Fields(strings.ToLower(code)), "-")
	if !workTypeCodePattern.MatchString(code) {
		return "", &models.ValidationError{Field: "code", Msg: fmt.Sprintf("%q must match [a-z0-9_-]+", code)}
	}
	return code, nil
}

func (s *BillingService) CreateWorkType(ctx context.Context, code string, description *string) (*models.WorkType, error) {
	normalized, err := NormalizeWorkTypeCode(code)
	if err != nil {
		return nil, err
	}
	wt, err := s.db.CreateWorkType(ctx, normalized, utils.ToPtrNil(utils.FromPtr(description)))
	if err != nil {
		return nil, fmt.Errorf("failed to create work type: %w", err)
	}
	return wt, nil
}

func (s *BillingService) ListWorkTypes(ctx context.Context) ([]*models.WorkType, error) {
	return s.db.ListWorkTypes(ctx)
}

func (s *BillingService) getWorkType(ctx context.Context, code string) (*models.WorkType, error) {
	normalized, err := NormalizeWorkTypeCode(code)
	if err != nil {
		return nil, err
	}
	wt, err := s.db.GetWorkTypeByCode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get work type: %w", err)
	}
	return wt, nil
}
