package alertconfig

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"

	dbpkg "github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

const (
	activeDaysIndex = "ux_alert_tier_configs_active_days"
	// sqlite reports the indexed column instead of the index name
	activeDaysColumn = "alert_tier_configs.days_before_expiry"
)

type tiersRepository interface {
	ListActive(ctx context.Context) ([]models.AlertTierConfig, error)
	List(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AlertTierConfig, error)
	MaxSortOrder(ctx context.Context) (int, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, tier *models.AlertTierConfig) error
	Save(ctx context.Context, tier *models.AlertTierConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountAlerts(ctx context.Context, id uuid.UUID) (int64, error)
}

// Service is the alert configuration registry.
type Service interface {
	ListActive(ctx context.Context) ([]models.AlertTierConfig, error)
	List(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AlertTierConfig, error)
	Create(ctx context.Context, input TierInput) (*models.AlertTierConfig, error)
	Update(ctx context.Context, id uuid.UUID, input TierInput) (*models.AlertTierConfig, error)
	ToggleActive(ctx context.Context, id uuid.UUID, active bool) (*models.AlertTierConfig, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SeedDefaults(ctx context.Context, path string) (int, error)
}

// TierInput carries the writable fields of a tier. A nil SortOrder on create
// places the tier after every existing one; a nil Active defaults to true.
type TierInput struct {
	TierName         string   `json:"tier_name" validate:"required,max=100"`
	DaysBeforeExpiry int      `json:"days_before_expiry" validate:"min=1,max=365"`
	Severity         string   `json:"severity" validate:"required"`
	NotifyRoles      []string `json:"notify_roles" validate:"dive,required"`
	ColorCode        string   `json:"color_code" validate:"required,len=7,hexcolor"`
	SortOrder        *int     `json:"sort_order" validate:"omitempty,min=0"`
	Active           *bool    `json:"active"`
}

type normalizedTier struct {
	severity enums.TierSeverity
	roles    []enums.Role
}

type service struct {
	repo     tiersRepository
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService builds the registry backed by the provided repository.
func NewService(repo tiersRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tier repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, validate: validator.New()}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.AlertTierConfig, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active tiers")
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tiers")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.AlertTierConfig, error) {
	tier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier")
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tier not found")
	}
	return tier, nil
}

func (s *service) Create(ctx context.Context, input TierInput) (*models.AlertTierConfig, error) {
	norm, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	tier := &models.AlertTierConfig{
		ID:               uuid.New(),
		TierName:         strings.TrimSpace(input.TierName),
		DaysBeforeExpiry: input.DaysBeforeExpiry,
		Severity:         norm.severity,
		NotifyRoles:      roleArray(norm.roles),
		ColorCode:        strings.ToUpper(input.ColorCode),
		Active:           input.Active == nil || *input.Active,
	}
	if input.SortOrder != nil {
		tier.SortOrder = *input.SortOrder
	} else {
		max, err := s.repo.MaxSortOrder(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load max sort order")
		}
		tier.SortOrder = max + 1
	}

	if tier.Active {
		if err := s.checkActiveSet(ctx, tier); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, tier); err != nil {
		if isDuplicateDays(err) {
			return nil, duplicateTier(tier.DaysBeforeExpiry)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tier")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"tier_id":            tier.ID.String(),
		"days_before_expiry": tier.DaysBeforeExpiry,
		"severity":           tier.Severity,
	}), "alert tier created")
	return tier, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input TierInput) (*models.AlertTierConfig, error) {
	norm, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	tier, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tier.TierName = strings.TrimSpace(input.TierName)
	tier.DaysBeforeExpiry = input.DaysBeforeExpiry
	tier.Severity = norm.severity
	tier.NotifyRoles = roleArray(norm.roles)
	tier.ColorCode = strings.ToUpper(input.ColorCode)
	if input.SortOrder != nil {
		tier.SortOrder = *input.SortOrder
	}
	if input.Active != nil {
		tier.Active = *input.Active
	}

	return s.persist(ctx, tier)
}

func (s *service) ToggleActive(ctx context.Context, id uuid.UUID, active bool) (*models.AlertTierConfig, error) {
	tier, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tier.Active == active {
		return tier, nil
	}
	tier.Active = active
	return s.persist(ctx, tier)
}

func (s *service) persist(ctx context.Context, tier *models.AlertTierConfig) (*models.AlertTierConfig, error) {
	if tier.Active {
		if err := s.checkActiveSet(ctx, tier); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, tier); err != nil {
		if isDuplicateDays(err) {
			return nil, duplicateTier(tier.DaysBeforeExpiry)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tier")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"tier_id": tier.ID.String(),
		"active":  tier.Active,
	}), "alert tier updated")
	return tier, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountAlerts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tier alerts")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "tier is referenced by alerts").
			WithDetails(map[string]any{"tier_id": id.String(), "alert_count": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete tier")
	}
	s.logg.Info(s.logg.WithField(ctx, "tier_id", id.String()), "alert tier deleted")
	return nil
}

// checkActiveSet rejects a candidate that would collide with, or break the
// ordering of, the other active tiers.
func (s *service) checkActiveSet(ctx context.Context, candidate *models.AlertTierConfig) error {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active tiers")
	}

	set := make([]models.AlertTierConfig, 0, len(active)+1)
	for _, tier := range active {
		if tier.ID == candidate.ID {
			continue
		}
		if tier.DaysBeforeExpiry == candidate.DaysBeforeExpiry {
			return duplicateTier(candidate.DaysBeforeExpiry)
		}
		set = append(set, tier)
	}
	set = append(set, *candidate)
	return ValidateOrdering(set)
}

// ValidateOrdering checks that days strictly increase when tiers are walked by sort order.
func ValidateOrdering(tiers []models.AlertTierConfig) error {
	ordered := append([]models.AlertTierConfig(nil), tiers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].DaysBeforeExpiry < ordered[j].DaysBeforeExpiry
	})
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.DaysBeforeExpiry <= prev.DaysBeforeExpiry {
			return pkgerrors.New(pkgerrors.CodeValidation, "days_before_expiry must increase with sort_order").
				WithDetails(map[string]any{
					"tier":                  cur.TierName,
					"sort_order":            cur.SortOrder,
					"days_before_expiry":    cur.DaysBeforeExpiry,
					"previous_tier":         prev.TierName,
					"previous_days_setting": prev.DaysBeforeExpiry,
				})
		}
	}
	return nil
}

func (s *service) validateInput(input TierInput) (normalizedTier, error) {
	details := map[string]string{}
	if err := s.validate.Struct(input); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fieldName(fe)] = fieldMessage(fe)
			}
		} else {
			return normalizedTier{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier")
		}
	}

	severity, err := enums.ParseTierSeverity(strings.ToUpper(strings.TrimSpace(input.Severity)))
	if err != nil && input.Severity != "" {
		details["severity"] = "must be one of INFO, WARNING, CRITICAL"
	}

	roles := make([]enums.Role, 0, len(input.NotifyRoles))
	seen := map[enums.Role]struct{}{}
	for _, raw := range input.NotifyRoles {
		role, err := enums.ParseRole(strings.ToUpper(strings.TrimSpace(raw)))
		if err != nil {
			details["notify_roles"] = fmt.Sprintf("unknown role %q", raw)
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}

	if len(details) > 0 {
		return normalizedTier{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier").WithDetails(details)
	}
	return normalizedTier{severity: severity, roles: roles}, nil
}

func fieldName(fe validator.FieldError) string {
	switch fe.StructField() {
	case "TierName":
		return "tier_name"
	case "DaysBeforeExpiry":
		return "days_before_expiry"
	case "ColorCode":
		return "color_code"
	case "SortOrder":
		return "sort_order"
	case "NotifyRoles":
		return "notify_roles"
	case "Severity":
		return "severity"
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "hexcolor", "len":
		return "must be a #RRGGBB color"
	}
	return "is invalid"
}

func isDuplicateDays(err error) bool {
	return dbpkg.IsUniqueViolation(err, activeDaysIndex) || dbpkg.IsUniqueViolation(err, activeDaysColumn)
}

func duplicateTier(days int) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateTier, "an active tier already uses this days_before_expiry").
		WithDetails(map[string]any{"days_before_expiry": days})
}

func roleArray(roles []enums.Role) pq.StringArray {
	out := make(pq.StringArray, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
