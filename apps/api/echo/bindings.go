package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
)

var binder = new(echo.DefaultBinder)

// bindQuery binds the query string to dst. Malformed values are validation errors.
func bindQuery(ctx echo.Context, dst interface{}) error {
	if err := binder.BindQueryParams(ctx, dst); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters: " + bindMessage(err)))
	}
	return nil
}

// bindBody binds the JSON body to dst. An empty body leaves dst untouched.
func bindBody(ctx echo.Context, dst interface{}) error {
	if err := binder.BindBody(ctx, dst); err != nil {
		return core.NewValidationError(errors.New("invalid request body: " + bindMessage(err)))
	}
	return nil
}

func bindMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if msg := echoMessage(he); msg != "" {
			return msg
		}
	}
	return err.Error()
}
