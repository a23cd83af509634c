// Package identitysvc verifies the bearer tokens presented to the API.
package identitysvc

import (
	"context"
	"fmt"

	"github.com/dgrijalva/jwt-go"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/user"
)

// Claims represents the authorization claims of a locally issued JWT.
// They mirror the claims of a Firebase ID token.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin,omitempty"` // custom claim set by the admin tooling
}

func (c Claims) identity() user.Identity {
	return user.Identity{
		UID:   c.Subject,
		Email: core.CleanString(c.Email, true /* lower */),
		Admin: c.Admin,
	}
}

// replaced in tests
var newFirebase = NewFirebase

// New returns the verifier of the configured provider.
// It returns nil when no provider is configured (open mode).
func New(conf *core.Config, logger core.Logger) user.TokenVerifier {
	switch conf.Auth.Provider {
	case core.AuthFirebase:
		fb, err := newFirebase(context.Background(), conf.Auth)
		if err != nil {
			logger.Error(fmt.Sprintf("firebase unavailable, rejecting every token: %v", err), err)
			return rejectAll{cause: err}
		}
		return fb
	case core.AuthLocal:
		return NewLocal(conf)
	default:
		logger.Warn("no identity provider configured: running in open mode")
		return nil
	}
}
