package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/tutor"
	"github.com/homeworkhelper/api/core/user"
)

var (
	errMissingToken = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: No token provided")
	errForbidden    = echo.NewHTTPError(http.StatusForbidden, "Forbidden: Not an admin")
)

// Error codes
const (
	codeUnauthenticated   = "UNAUTHENTICATED"
	codeForbidden         = "FORBIDDEN"
	codeNotFound          = "NOT_FOUND"
	codeUnavailable       = "SERVICE_UNAVAILABLE"
	codeValidation        = "VALIDATION_ERROR"
	codeQuotaExceeded     = "QUOTA_EXCEEDED"
	codeRateLimited       = "RATE_LIMIT_EXCEEDED"
	codeModelAccessDenied = "MODEL_ACCESS_DENIED"
	codeInvalidAPIKey     = "INVALID_API_KEY"
	codeAINotConfigured   = "AI_NOT_CONFIGURED"
	codeAIServiceError    = "AI_SERVICE_ERROR"
	codeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error          string            `json:"error"`
	Code           string            `json:"code"`
	Message        string            `json:"message,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	RetryAfter     int               `json:"retryAfter,omitempty"`
	AttemptedModel string            `json:"attemptedModel,omitempty"`
}

func upstreamResponse(upErr *tutor.UpstreamError) (int, ErrorResponse) {
	resp := ErrorResponse{Message: upErr.Message}
	var status int
	switch upErr.Kind {
	case tutor.QuotaExceeded:
		status, resp.Error, resp.Code = http.StatusTooManyRequests, "OpenAI quota exceeded", codeQuotaExceeded
	case tutor.RateLimited:
		status, resp.Error, resp.Code = http.StatusTooManyRequests, "OpenAI rate limit exceeded", codeRateLimited
		resp.RetryAfter = upErr.RetryAfter
		if resp.RetryAfter <= 0 {
			resp.RetryAfter = tutor.DefaultRetryAfter
		}
	case tutor.AccessDenied:
		status, resp.Error, resp.Code = http.StatusForbidden, "OpenAI model access denied", codeModelAccessDenied
		resp.AttemptedModel = upErr.Model
	case tutor.InvalidCredentials:
		status, resp.Error, resp.Code = http.StatusInternalServerError, "OpenAI API key invalid", codeInvalidAPIKey
	case tutor.NotConfigured:
		status, resp.Error, resp.Code = http.StatusInternalServerError, "OpenAI API key not configured", codeAINotConfigured
	default:
		status, resp.Error, resp.Code = http.StatusInternalServerError, "AI service error", codeAIServiceError
		if resp.Message == "" {
			resp.Message = "Failed to generate AI response. Please try again later."
		}
	}
	return status, resp
}

// statusCode turns an HTTP status into an error code, eg. 405 -> METHOD_NOT_ALLOWED.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_" + strconv.Itoa(status)
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var code int
		var resp ErrorResponse
		var upErr *tutor.UpstreamError

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp = ErrorResponse{Error: http.StatusText(code), Code: statusCode(code), Message: echoMessage(origErr)}
			switch origErr {
			case errMissingToken:
				resp.Error, resp.Code = "Unauthorized", codeUnauthenticated
			case errForbidden:
				resp.Error, resp.Code = "Forbidden", codeForbidden
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			resp = ErrorResponse{Error: "Validation failed", Code: codeValidation, Fields: fldErrs}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp = ErrorResponse{Error: "Validation failed", Code: codeValidation}
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				resp.Fields = fldErrs
			} else {
				resp.Message = origErr.Error()
			}
		default:
			switch {
			case origErr == core.ErrUnauthenticated:
				code = http.StatusUnauthorized
				resp = ErrorResponse{Error: "Unauthorized", Code: codeUnauthenticated, Message: "You must be logged in"}
			case origErr == user.ErrInvalidToken:
				code = http.StatusUnauthorized
				resp = ErrorResponse{Error: "Unauthorized", Code: codeUnauthenticated, Message: "Unauthorized: Invalid token"}
			case origErr == question.ErrNotFound:
				code = http.StatusNotFound
				resp = ErrorResponse{Error: "Question not found", Code: codeNotFound,
					Message: "The question you are trying to vote on does not exist"}
			case origErr == core.ErrUnavailable:
				code = http.StatusServiceUnavailable
				resp = ErrorResponse{Error: "Service unavailable", Code: codeUnavailable,
					Message: "Database not connected. Please try again later."}
			case errors.As(err, &upErr):
				code, resp = upstreamResponse(upErr)
				if upErr.Kind == tutor.RateLimited {
					ctx.Response().Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
				}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				resp = ErrorResponse{Error: msg, Code: codeInternal}
				logger.Error(msg, errors.Wrap(err, msg), contextIdentity(ctx))

				if ctx.Echo().Debug {
					resp.Message = err.Error()
				}
				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, resp)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func echoMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return ""
}
