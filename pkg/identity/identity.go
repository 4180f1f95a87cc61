// Package identity verifies opaque platform credentials against the
// identity provider's token-introspection endpoint.
package identity

import (
	"errors"
	"strings"
)

// DefaultValidateURL is Twitch's token validation endpoint.
const DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"

var (
	// ErrMissingCredential is returned when no token was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned when the provider rejects the token.
	ErrInvalidCredential = errors.New("invalid or expired credential")
	// ErrClientMismatch is returned when the token was issued to another application.
	ErrClientMismatch = errors.New("credential issued to a different client")
)

// Identity is a verified platform identity.
type Identity struct {
	DisplayName string   `json:"login"`
	StableID    string   `json:"user_id"`
	ClientID    string   `json:"client_id"`
	Scopes      []string `json:"scopes"`
	ExpiresIn   int64    `json:"expires_in"`
}

// Label returns the display name, or "viewer" when the provider gave none.
func (i Identity) Label() string {
	if i.DisplayName == "" {
		return "viewer"
	}
	return i.DisplayName
}

// ParseAuthorization extracts the token from an Authorization header value.
// Both the provider's "OAuth <token>" form and "Bearer <token>" are accepted.
func ParseAuthorization(header string) string {
	header = strings.TrimSpace(header)
	for _, prefix := range []string{"OAuth ", "Bearer "} {
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
	}
	return ""
}

// AuthorizationHeader formats token for the Authorization header.
func AuthorizationHeader(token string) string {
	return "OAuth " + token
}
