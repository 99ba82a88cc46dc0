package expiry

import (
	"net/http"

	"github.com/angelmondragon/pharmacore-backend/api/controllers/staffcontext"
	"github.com/angelmondragon/pharmacore-backend/api/responses"
	"github.com/angelmondragon/pharmacore-backend/api/validators"
	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

// RunCheck triggers a MANUAL expiry check for the calling staff member.
func RunCheck(svc checkruns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "check run service unavailable"))
			return
		}
		actor, err := staffcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RunExpiryCheck(r.Context(), enums.CheckTriggerManual, actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListChecks returns check runs newest first.
func ListChecks(svc checkruns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "check run service unavailable"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListRuns(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]runResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, runResponseFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, pageResponse[runResponse]{
			Items:      items,
			Page:       page.Page,
			Size:       page.Size,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		})
	}
}

func GetCheck(svc checkruns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "check run service unavailable"))
			return
		}
		runID, err := validators.ParseUUIDParam(r, "runId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		run, err := svc.GetRun(r.Context(), runID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, runResponseFromModel(run))
	}
}
