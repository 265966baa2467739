package auth

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the decoded principal issued by the user-management service.
type UserClaims struct {
	UID      string `json:"user_id,omitempty"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID falls back to the subject claim for tokens without user_id.
func (c *UserClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}
