package controllers

import (
	"net/http"

	"github.com/angelmondragon/pharmacore-backend/api/middleware"
	"github.com/angelmondragon/pharmacore-backend/api/responses"
)

type pingResponse struct {
	Status string `json:"status"`
	Scope  string `json:"scope"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{Status: "ok", Scope: "public"})
	}
}

// PrivatePing lets staff clients confirm which identity their token resolves to.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, _ := middleware.StaffFromContext(r.Context())
		responses.WriteSuccess(w, pingResponse{
			Status: "ok",
			Scope:  "private",
			UserID: staff.UserID,
			Name:   staff.Name,
			Role:   staff.Role,
		})
	}
}
