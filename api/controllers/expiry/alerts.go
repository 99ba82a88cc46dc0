package expiry

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/api/controllers/staffcontext"
	"github.com/angelmondragon/pharmacore-backend/api/responses"
	"github.com/angelmondragon/pharmacore-backend/api/validators"
	"github.com/angelmondragon/pharmacore-backend/internal/alerts"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

const maxNotesLength = 2000

type alertActionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ListAlerts returns alerts nearest to expiry first.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		filter, err := parseAlertFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]alertResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, alertResponseFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, pageResponse[alertResponse]{
			Items:      items,
			Page:       page.Page,
			Size:       page.Size,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		})
	}
}

func GetAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		alertID, err := validators.ParseUUIDParam(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alert, err := svc.Get(r.Context(), alertID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alertResponseFromModel(alert))
	}
}

func AcknowledgeAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return alertAction(svc, logg, func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
		return svc.Acknowledge(ctx, id, by, notes)
	})
}

func ResolveAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return alertAction(svc, logg, func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
		return svc.Resolve(ctx, id, by, notes)
	})
}

type alertTransition func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error)

func alertAction(svc alerts.Service, logg *logger.Logger, apply alertTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}
		actor, err := staffcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alertID, err := validators.ParseUUIDParam(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload alertActionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := apply(r.Context(), alertID, actor.ID, validators.SanitizeString(payload.Notes, maxNotesLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alertResponseFromModel(updated))
	}
}

func parseAlertFilter(r *http.Request) (alerts.ListFilter, error) {
	var filter alerts.ListFilter
	query := r.URL.Query()
	if raw := strings.ToUpper(strings.TrimSpace(query.Get("status"))); raw != "" {
		status, err := enums.ParseAlertStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = status
	}
	if raw := strings.ToUpper(strings.TrimSpace(query.Get("severity"))); raw != "" {
		severity, err := enums.ParseTierSeverity(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity filter")
		}
		filter.Severity = severity
	}
	itemID, err := validators.ParseQueryUUID(r, "item_id")
	if err != nil {
		return filter, err
	}
	filter.ItemID = itemID
	runID, err := validators.ParseQueryUUID(r, "run_id")
	if err != nil {
		return filter, err
	}
	filter.RunID = runID
	return filter, nil
}
