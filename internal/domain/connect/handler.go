package connect

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.POST("/discover", h.Discover)
	fhirGroup.POST("/authorize", h.Authorize)
	fhirGroup.POST("/callback", h.Callback)
	fhirGroup.GET("/connections", h.ListConnections)
	fhirGroup.DELETE("/connections/:connectionId", h.DeleteConnection)
	fhirGroup.POST("/sync", h.Sync)
}

type discoverRequest struct {
	FHIRBaseURL string `json:"fhirBaseUrl"`
}

func (h *Handler) Discover(c echo.Context) error {
	var req discoverRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", err.Error()))
	}

	ep, err := h.svc.Discover(c.Request().Context(), req.FHIRBaseURL)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, ep)
}

func (h *Handler) Authorize(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", err.Error()))
	}

	resp, err := h.svc.BeginAuthorization(c.Request().Context(), &req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Callback(c echo.Context) error {
	var req CallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", err.Error()))
	}

	resp, err := h.svc.HandleCallback(c.Request().Context(), &req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListConnections(c echo.Context) error {
	patientID := c.QueryParam("patientId")

	conns, err := h.svc.ListConnections(c.Request().Context(), patientID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"connections": conns})
}

type deleteRequest struct {
	PatientID string `json:"patientId"`
}

func (h *Handler) DeleteConnection(c echo.Context) error {
	connectionID := c.Param("connectionId")

	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", err.Error()))
	}

	deleted, err := h.svc.DeleteConnection(c.Request().Context(), req.PatientID, connectionID)
	if err != nil {
		return h.writeError(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, errBody("not_found", "no connection matches that patient and id"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type syncRequest struct {
	ConnectionID string `json:"connectionId"`
	PatientID    string `json:"patientId"`
}

func (h *Handler) Sync(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", err.Error()))
	}

	count, err := h.svc.SyncConnection(c.Request().Context(), req.PatientID, req.ConnectionID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "recordCount": count})
}

// writeError maps the domain error taxonomy onto the HTTP surface. Upstream
// OAuth errors keep their original error code and description.
func (h *Handler) writeError(c echo.Context, err error) error {
	var (
		discoveryErr *DiscoveryError
		validErr     *ValidationError
		deniedErr    *AuthorizationDeniedError
		exchangeErr  *TokenExchangeError
		protocolErr  *CallbackProtocolError
	)

	switch {
	case errors.As(err, &discoveryErr):
		return c.JSON(http.StatusNotFound, errBody("discovery_failed", discoveryErr.Error()))
	case errors.As(err, &validErr):
		return c.JSON(http.StatusBadRequest, errBody("invalid_request", validErr.Error()))
	case errors.As(err, &deniedErr):
		return c.JSON(http.StatusBadRequest, errBody("access_denied", deniedErr.Error()))
	case errors.As(err, &exchangeErr):
		return c.JSON(http.StatusBadRequest, errBody(exchangeErr.OAuthError, exchangeErr.Description))
	case errors.As(err, &protocolErr):
		return c.JSON(http.StatusBadRequest, errBody("invalid_callback", protocolErr.Error()))
	case errors.Is(err, ErrPersistence):
		return c.JSON(http.StatusInternalServerError, errBody("storage_error", "failed to read or write connection records"))
	default:
		return c.JSON(http.StatusInternalServerError, errBody("internal_error", err.Error()))
	}
}

func errBody(code, message string) map[string]string {
	return map[string]string{"error": code, "message": message}
}
