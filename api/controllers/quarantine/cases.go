package quarantine

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/api/controllers/staffcontext"
	"github.com/angelmondragon/pharmacore-backend/api/responses"
	"github.com/angelmondragon/pharmacore-backend/api/validators"
	quarantinesvc "github.com/angelmondragon/pharmacore-backend/internal/quarantine"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

// CreateCase quarantines a batch on behalf of the calling staff member.
func CreateCase(svc quarantinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quarantine service unavailable"))
			return
		}
		actor, err := staffcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createCaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := uuid.Parse(payload.BatchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch_id"))
			return
		}

		created, err := svc.CreateCase(r.Context(), quarantinesvc.CreateCaseInput{
			BatchID:     batchID,
			Reason:      validators.SanitizeString(payload.Reason, 500),
			PerformedBy: actor.ID,
			ActorRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, caseResponseFromModel(created))
	}
}

// ProcessAction applies one workflow action to a case.
func ProcessAction(svc quarantinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quarantine service unavailable"))
			return
		}
		actor, err := staffcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		caseID, err := validators.ParseUUIDParam(r, "caseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload actionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ProcessAction(r.Context(), quarantinesvc.ActionInput{
			CaseID:              caseID,
			Action:              enums.QuarantineAction(strings.ToUpper(strings.TrimSpace(payload.Action))),
			PerformedBy:         actor.ID,
			ActorRole:           actor.Role,
			Comments:            validators.SanitizeString(payload.Comments, 2000),
			DisposalMethod:      validators.SanitizeString(payload.DisposalMethod, 200),
			DisposalCertificate: validators.SanitizeString(payload.DisposalCertificate, 200),
			ReturnReference:     validators.SanitizeString(payload.ReturnReference, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, caseResponseFromModel(updated))
	}
}

func ListCases(svc quarantinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quarantine service unavailable"))
			return
		}
		var filter quarantinesvc.ListFilter
		if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))); raw != "" {
			status, err := enums.ParseQuarantineStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = status
		}
		batchID, err := validators.ParseQueryUUID(r, "batch_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.BatchID = batchID
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListCases(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]caseResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, caseResponseFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, pageResponse[caseResponse]{
			Items:      items,
			Page:       page.Page,
			Size:       page.Size,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		})
	}
}

func GetCase(svc quarantinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quarantine service unavailable"))
			return
		}
		caseID, err := validators.ParseUUIDParam(r, "caseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.GetCase(r.Context(), caseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, caseResponseFromModel(c))
	}
}

// GetCaseHistory returns the audit trail oldest first.
func GetCaseHistory(svc quarantinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quarantine service unavailable"))
			return
		}
		caseID, err := validators.ParseUUIDParam(r, "caseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logs, err := svc.GetCaseHistory(r.Context(), caseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]historyEntry, 0, len(logs))
		for i := range logs {
			out = append(out, historyEntryFromModel(&logs[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
