package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pharmacore-backend/api/responses"
	pkgAuth "github.com/angelmondragon/pharmacore-backend/pkg/auth"
	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

// Auth requires a staff bearer token and stores the caller in the context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			staff := Staff{
				UserID: claims.UserID.String(),
				Name:   claims.Name,
				Role:   string(claims.Role),
			}
			ctx := WithStaff(r.Context(), staff)
			if logg != nil {
				ctx = logg.WithUserID(ctx, staff.UserID)
				ctx = logg.WithActorRole(ctx, staff.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" in any letter case.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pharmacore"`)
	responses.WriteError(r.Context(), logg, w, err)
}
