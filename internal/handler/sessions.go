package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/middleware"
	"github.com/iliyamo/pos-gateway/internal/session"
)

// SessionHandler serves the signed-in user's shift.
type SessionHandler struct {
	Registry *session.Registry
}

func NewSessionHandler(r *session.Registry) *SessionHandler {
	if r == nil {
		panic("nil session registry passed to NewSessionHandler")
	}
	return &SessionHandler{Registry: r}
}

type startSessionRequest struct {
	OpeningBalance float64 `json:"opening_balance" validate:"gte=0"`
	Notes          *string `json:"notes"`
}

// Start handles POST /v1/sessions.
func (h *SessionHandler) Start(c echo.Context) error {
	var body startSessionRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	st, err := h.Registry.Start(c.Request().Context(), p.UserID, body.OpeningBalance, body.Notes)
	if err != nil {
		return writeError(c, err, "Failed to start session")
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Session started", "state": st})
}

// Current handles GET /v1/sessions/current.  A user without a local
// tracker is looked up on the backend, so a shift opened elsewhere or
// before a restart is picked up.
func (h *SessionHandler) Current(c echo.Context) error {
	p, _ := middleware.PrincipalFrom(c)
	st := h.Registry.Current(p.UserID)
	if st.Session != nil {
		return c.JSON(http.StatusOK, st)
	}
	st, err := h.Registry.Resume(c.Request().Context(), p.UserID)
	if err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		return writeError(c, err, "Failed to load sessions")
	}
	return c.JSON(http.StatusOK, st)
}

type endSessionRequest struct {
	ClosingBalance float64 `json:"closing_balance" validate:"gte=0"`
	Confirm        bool    `json:"confirm"`
}

// End handles POST /v1/sessions/current/end.  The body must carry
// "confirm": true.
func (h *SessionHandler) End(c echo.Context) error {
	var body endSessionRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	s, err := h.Registry.End(c.Request().Context(), p.UserID, body.ClosingBalance, body.Confirm)
	if err != nil {
		return writeError(c, err, "Failed to end session")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Session ended", "session": s})
}

// Report handles GET /v1/sessions/report.
func (h *SessionHandler) Report(c echo.Context) error {
	r, err := h.Registry.Report(c.Request().Context())
	if err != nil {
		return writeError(c, err, "Failed to load sessions")
	}
	return c.JSON(http.StatusOK, r)
}
