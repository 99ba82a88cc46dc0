package expiry

import (
	"net/http"

	"github.com/angelmondragon/pharmacore-backend/api/responses"
	"github.com/angelmondragon/pharmacore-backend/api/validators"
	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

// tierRequest is validated by the alertconfig service so that field errors
// and ordering errors share one shape.
type tierRequest struct {
	TierName         string   `json:"tier_name"`
	DaysBeforeExpiry int      `json:"days_before_expiry"`
	Severity         string   `json:"severity"`
	NotifyRoles      []string `json:"notify_roles"`
	ColorCode        string   `json:"color_code"`
	SortOrder        *int     `json:"sort_order"`
	Active           *bool    `json:"active"`
}

func (r tierRequest) toInput() alertconfig.TierInput {
	return alertconfig.TierInput{
		TierName:         r.TierName,
		DaysBeforeExpiry: r.DaysBeforeExpiry,
		Severity:         r.Severity,
		NotifyRoles:      r.NotifyRoles,
		ColorCode:        r.ColorCode,
		SortOrder:        r.SortOrder,
		Active:           r.Active,
	}
}

type toggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ListTiers returns active tiers in evaluation order, or every tier when
// include_inactive=true.
func ListTiers(svc alertconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var tiers []models.AlertTierConfig
		if includeInactive {
			tiers, err = svc.List(r.Context(), true)
		} else {
			tiers, err = svc.ListActive(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]tierResponse, 0, len(tiers))
		for i := range tiers {
			out = append(out, tierResponseFromModel(&tiers[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func CreateTier(svc alertconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		var payload tierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tierResponseFromModel(created))
	}
}

func UpdateTier(svc alertconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		tierID, err := validators.ParseUUIDParam(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload tierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), tierID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tierResponseFromModel(updated))
	}
}

func ToggleTier(svc alertconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		tierID, err := validators.ParseUUIDParam(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload toggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.ToggleActive(r.Context(), tierID, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tierResponseFromModel(updated))
	}
}

func DeleteTier(svc alertconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		tierID, err := validators.ParseUUIDParam(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), tierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": tierID, "deleted": true})
	}
}
