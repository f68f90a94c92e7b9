package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.MemberRole
	JTI       string
}

// AccessTokenClaims represents the access token issued by the auth service.
// The registered ID (jti) identifies the storefront session.
type AccessTokenClaims struct {
	AccountID uuid.UUID        `json:"account_id"`
	Role      enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// SessionID returns the jti that keys the session's cart.
func (c *AccessTokenClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
