package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims represents the typed JWT minted by the identity
// provider. Subject carries the provider's stable user identifier.
type AccessTokenClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ExternalID returns the identity provider subject.
func (c *AccessTokenClaims) ExternalID() string {
	return c.Subject
}
