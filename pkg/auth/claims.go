package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// AccessTokenPayload is what the identity provider knows about a staff member at login.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims are carried by every staff bearer token. The subject
// always mirrors user_id so audit rows can be attributed from either.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Name   string     `json:"name,omitempty"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt/v5 picks it up via ClaimsValidator.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token missing user_id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries unknown role %q", c.Role)
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user_id")
	}
	return nil
}
