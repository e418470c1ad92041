package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/billing"
	"github.com/iliyamo/pos-gateway/internal/logger"
	"github.com/iliyamo/pos-gateway/internal/repository"
	"github.com/iliyamo/pos-gateway/internal/session"
	"github.com/iliyamo/pos-gateway/internal/stateview"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m["error"]
}

func TestWriteErrorLogsServerFailuresThroughRequestLogger(t *testing.T) {
	log, hook := logtest.NewNullLogger()

	c, rec := newContext(http.MethodGet, "/", "")
	logger.Attach(c, log)
	require.NoError(t, writeError(c, &apiclient.RequestError{Status: 503}, "Failed to load orders"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Failed to load orders", entry.Message)
	assert.Equal(t, http.StatusBadGateway, entry.Data["status"])
	assert.NotNil(t, entry.Data[logrus.ErrorKey])

	hook.Reset()
	c, _ = newContext(http.MethodGet, "/", "")
	logger.Attach(c, log)
	require.NoError(t, writeError(c, billing.ErrInvalidPayment, "Payment failed"))
	assert.Empty(t, hook.AllEntries())
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"confirm order", stateview.ErrConfirmationRequired, http.StatusConflict, stateview.ErrConfirmationRequired.Error()},
		{"confirm session", session.ErrConfirmationRequired, http.StatusConflict, session.ErrConfirmationRequired.Error()},
		{"in flight", billing.ErrPaymentInFlight, http.StatusConflict, billing.ErrPaymentInFlight.Error()},
		{"settled", billing.ErrOrderNotActive, http.StatusConflict, billing.ErrOrderNotActive.Error()},
		{"journal conflict", repository.ErrConflict, http.StatusConflict, repository.ErrConflict.Error()},
		{"invalid payment", billing.ErrInvalidPayment, http.StatusBadRequest, billing.ErrInvalidPayment.Error()},
		{"no session", fmt.Errorf("resume: %w", session.ErrNoActiveSession), http.StatusNotFound, "resume: no active session"},
		{"closed", stateview.ErrClosed, http.StatusServiceUnavailable, "Failed to load orders"},
		{"upstream 400", &apiclient.RequestError{Status: 400, Detail: "Order already paid"}, http.StatusBadRequest, "Order already paid"},
		{"upstream 404", &apiclient.RequestError{Status: 404, Detail: "Not Found"}, http.StatusNotFound, "Not Found"},
		{"upstream 500", &apiclient.RequestError{Status: 500, Detail: "db down"}, http.StatusBadGateway, "db down"},
		{"upstream 500 bare", &apiclient.RequestError{Status: 503}, http.StatusBadGateway, "Failed to load orders"},
		{"unreachable", &apiclient.RequestError{Detail: "upstream unreachable: refused"}, http.StatusBadGateway, "Failed to load orders"},
		{"wrapped upstream", fmt.Errorf("list orders: %w", &apiclient.RequestError{Status: 422, Detail: "bad filter"}), http.StatusUnprocessableEntity, "bad filter"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Failed to load orders"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			require.NoError(t, writeError(c, tc.err, "Failed to load orders"))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, errorBody(t, rec))
		})
	}
}

func TestBindValidation(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", `{"payment_type":"   ","paid_amount":-1}`)
	var pay payRequest
	err := bind(c, &pay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment_type is required")
	assert.Contains(t, err.Error(), "paid_amount must be at least 0")

	c, _ = newContext(http.MethodPut, "/", `{"status":"Cooking"}`)
	var kot kotStatusRequest
	err = bind(c, &kot)
	require.Error(t, err)
	assert.Equal(t, "status must be one of [Pending Served]", err.Error())

	c, _ = newContext(http.MethodPost, "/", `{"payment_type":`)
	err = bind(c, &pay)
	require.Error(t, err)
	assert.Equal(t, "invalid request body", err.Error())

	c, _ = newContext(http.MethodPost, "/", `{"payment_type":"Cash","paid_amount":500}`)
	pay = payRequest{}
	require.NoError(t, bind(c, &pay))
	assert.Equal(t, "Cash", pay.PaymentType)
	assert.Equal(t, 500.0, pay.PaidAmount)
}

func TestPathAndQueryIDs(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?floor_id=3", "")
	c.SetParamNames("id")
	c.SetParamValues("12")
	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 12, id)
	assert.EqualValues(t, 3, queryID(c, "floor_id"))
	assert.EqualValues(t, 0, queryID(c, "missing"))

	for _, bad := range []string{"0", "-4", "abc", ""} {
		c.SetParamValues(bad)
		_, err := pathID(c, "id")
		assert.EqualError(t, err, "invalid id", bad)
	}

	c, _ = newContext(http.MethodGet, "/?floor_id=-2", "")
	assert.EqualValues(t, 0, queryID(c, "floor_id"))
}

func TestHealth(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/healthz", "")
	require.NoError(t, Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeWithoutPrincipal(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/v1/me", "")
	require.NoError(t, Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewPOSHandlerRejectsNilView(t *testing.T) {
	assert.Panics(t, func() { NewPOSHandler(nil) })
}
