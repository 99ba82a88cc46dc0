package staffcontext

import (
	"net/http"

	"github.com/angelmondragon/pharmacore-backend/api/middleware"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
)

// Actor identifies the staff member behind a request. ID is the token
// subject and is what audit rows record as performed_by.
type Actor struct {
	ID   string
	Name string
	Role enums.Role
}

// ResolveActor extracts the authenticated staff member from the request.
func ResolveActor(r *http.Request) (Actor, error) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context required")
	}
	role := enums.Role(middleware.RoleFromContext(ctx))
	if !role.IsValid() {
		return Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	return Actor{ID: userID, Name: middleware.UserNameFromContext(ctx), Role: role}, nil
}
