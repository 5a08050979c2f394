package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestRouter() *echo.Echo {
	e := echo.New()
	NewHandler(NewCatalog(nil)).RegisterRoutes(e.Group("/fhir"))
	return e
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchOrganizations(t *testing.T) {
	e := newTestRouter()

	rec := get(t, e, "/fhir/organizations?q=epic")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Organizations []*Organization `json:"organizations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Organizations) != 1 || body.Organizations[0].ID != "epic-sandbox" {
		t.Errorf("unexpected results: %+v", body.Organizations)
	}
}

func TestSearchOrganizations_NoMatchesReturnsEmptyArray(t *testing.T) {
	e := newTestRouter()

	rec := get(t, e, "/fhir/organizations?q=zzz-nothing")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"organizations":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSearchOrganizations_Paginated(t *testing.T) {
	e := newTestRouter()

	rec := get(t, e, "/fhir/organizations?limit=2&offset=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Organizations []*Organization `json:"organizations"`
		Total         int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Organizations) != 2 {
		t.Errorf("expected page of 2, got %d", len(body.Organizations))
	}
	if body.Total != 4 {
		t.Errorf("total = %d", body.Total)
	}
}

func TestGetOrganization(t *testing.T) {
	e := newTestRouter()

	rec := get(t, e, "/fhir/organizations/smart-sandbox")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var org Organization
	if err := json.Unmarshal(rec.Body.Bytes(), &org); err != nil {
		t.Fatal(err)
	}
	if org.Provider != "smart" {
		t.Errorf("provider = %s", org.Provider)
	}

	rec = get(t, e, "/fhir/organizations/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
