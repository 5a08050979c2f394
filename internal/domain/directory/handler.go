package directory

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/pkg/pagination"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.GET("/organizations", h.SearchOrganizations)
	fhirGroup.GET("/organizations/:id", h.GetOrganization)
}

func (h *Handler) SearchOrganizations(c echo.Context) error {
	orgs := h.catalog.Search(c.QueryParam("q"))
	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"organizations": pagination.Window(orgs, p),
		"total":         len(orgs),
	})
}

func (h *Handler) GetOrganization(c echo.Context) error {
	org := h.catalog.Get(c.Param("id"))
	if org == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error":   "not_found",
			"message": "unknown organization",
		})
	}
	return c.JSON(http.StatusOK, org)
}
