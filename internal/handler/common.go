// Package handler exposes the gateway's terminal API.  Every handler
// answers errors as {"error": "<message>"} and successful mutations carry a
// "message" for the terminal's transient notification.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/billing"
	"github.com/iliyamo/pos-gateway/internal/logger"
	"github.com/iliyamo/pos-gateway/internal/repository"
	"github.com/iliyamo/pos-gateway/internal/session"
	"github.com/iliyamo/pos-gateway/internal/stateview"
)

var validate = newValidator()

// newValidator reports fields by their json names and adds "notblank",
// which rejects whitespace-only strings.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// bind decodes the body into dst and validates it.  The returned error is
// already a user-facing message.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, name+" is required")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", name, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", name, fe.Param()))
		default:
			msgs = append(msgs, name+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter; absent or
// malformed values read as 0.
func queryID(c echo.Context, name string) int64 {
	id, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// writeError maps err to a status and message.  Backend rejections keep
// their status and detail; transport failures and backend 5xx become 502
// with fallback as the message unless the backend sent a detail.
func writeError(c echo.Context, err error, fallback string) error {
	status, msg := http.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, stateview.ErrConfirmationRequired),
		errors.Is(err, session.ErrConfirmationRequired):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, billing.ErrPaymentInFlight),
		errors.Is(err, billing.ErrOrderNotActive),
		errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, billing.ErrInvalidPayment):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, stateview.ErrClosed):
		status = http.StatusServiceUnavailable
	default:
		if re, ok := apiclient.AsRequestError(err); ok {
			status = http.StatusBadGateway
			if !re.Temporary() {
				status = re.Status
			}
			if re.Status != 0 && re.Detail != "" {
				msg = re.Detail
			}
		}
	}
	if status >= 500 {
		logger.From(c).WithError(err).WithField("status", status).Error(fallback)
	}
	return c.JSON(status, echo.Map{"error": msg})
}
