package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/user"
)

const contextIdentityKey = "identity"

// devIdentity is the caller of student routes when no identity provider is configured.
var devIdentity = user.Identity{UID: "dev-user"}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// contextIdentity returns the caller set by the auth middleware; guests have an empty Identity.
func contextIdentity(ctx echo.Context) user.Identity {
	id, _ := ctx.Get(contextIdentityKey).(user.Identity)
	return id
}

// optionalAuth identifies the caller when a valid token is presented and
// lets everybody else through as a guest.
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if s.Verifier == nil {
			ctx.Set(contextIdentityKey, devIdentity)
			return next(ctx)
		}

		token := bearerToken(ctx)
		if token == "" {
			return next(ctx)
		}
		id, err := s.Verifier.Verify(ctx.Request().Context(), token)
		if err != nil {
			s.Logger.Debug(fmt.Sprintf("continuing as guest: %v", err))
			return next(ctx)
		}
		ctx.Set(contextIdentityKey, id)
		s.touch(ctx, id)
		return next(ctx)
	}
}

// adminAuth requires a valid token carrying the admin claim.
func (s *Server) adminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if s.Verifier == nil {
			return next(ctx)
		}

		token := bearerToken(ctx)
		if token == "" {
			return errMissingToken
		}
		id, err := s.Verifier.Verify(ctx.Request().Context(), token)
		if err != nil {
			return errors.Wrap(err, "verifying token")
		}
		ctx.Set(contextIdentityKey, id)
		if !id.Admin {
			return errForbidden
		}
		s.touch(ctx, id)
		return next(ctx)
	}
}

// touch records the caller's activity. Failing to do so never fails the request.
func (s *Server) touch(ctx echo.Context, id user.Identity) {
	if s.UserSvc == nil {
		return
	}
	if err := s.UserSvc.Touch(ctx.Request().Context(), id); err != nil && !core.IsUnavailable(err) {
		s.Logger.Warn(fmt.Sprintf("recording activity: %v", err), err, id)
	}
}
