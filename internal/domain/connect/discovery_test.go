package connect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestResolver() *Resolver {
	return NewResolver(2*time.Second, zerolog.Nop())
}

const capabilityWithOAuth = `{
	"resourceType": "CapabilityStatement",
	"rest": [{
		"mode": "server",
		"security": {
			"extension": [{
				"url": "http://fhir-registry.smarthealthit.org/StructureDefinition/oauth-uris",
				"extension": [
					{"url": "authorize", "valueUri": "https://idp.example/authorize"},
					{"url": "token", "valueUri": "https://idp.example/token"}
				]
			}]
		}
	}]
}`

func TestResolve_WellKnown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/smart-configuration" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"authorization_endpoint":"https://idp.example/authorize","token_endpoint":"https://idp.example/token"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ep, err := newTestResolver().Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.AuthorizeURL != "https://idp.example/authorize" {
		t.Errorf("unexpected authorize url: %s", ep.AuthorizeURL)
	}
	if ep.TokenURL != "https://idp.example/token" {
		t.Errorf("unexpected token url: %s", ep.TokenURL)
	}
	if ep.Source != SourceWellKnown {
		t.Errorf("expected source well-known, got %s", ep.Source)
	}
}

func TestResolve_MetadataFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/smart-configuration":
			http.NotFound(w, r)
		case "/metadata":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(capabilityWithOAuth))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ep, err := newTestResolver().Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.Source != SourceMetadata {
		t.Errorf("expected source metadata, got %s", ep.Source)
	}
	if ep.AuthorizeURL != "https://idp.example/authorize" || ep.TokenURL != "https://idp.example/token" {
		t.Errorf("unexpected endpoints: %+v", ep)
	}
}

func TestResolve_MalformedWellKnownFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/smart-configuration":
			// 200 but not JSON: must not escalate, must fall through.
			w.Write([]byte("<html>not json</html>"))
		case "/metadata":
			w.Write([]byte(capabilityWithOAuth))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ep, err := newTestResolver().Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.Source != SourceMetadata {
		t.Errorf("expected metadata fallback, got %s", ep.Source)
	}
}

func TestResolve_BothProbesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestResolver().Resolve(context.Background(), srv.URL)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
}

func TestResolve_MetadataMissingTokenExtension(t *testing.T) {
	// Only the authorize sub-extension present: both must resolve or the
	// probe fails.
	partial := `{
		"rest": [{
			"security": {
				"extension": [{
					"url": "http://fhir-registry.smarthealthit.org/StructureDefinition/oauth-uris",
					"extension": [{"url": "authorize", "valueUri": "https://idp.example/authorize"}]
				}]
			}
		}]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metadata" {
			w.Write([]byte(partial))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestResolver().Resolve(context.Background(), srv.URL)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
}

func TestResolve_UnreachableServer(t *testing.T) {
	_, err := newTestResolver().Resolve(context.Background(), "http://127.0.0.1:1")
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
}

func TestExtractOAuthURIs_ShapeMismatches(t *testing.T) {
	cases := []struct {
		name       string
		capability map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"rest not a slice", map[string]interface{}{"rest": "nope"}},
		{"rest empty", map[string]interface{}{"rest": []interface{}{}}},
		{"security missing", map[string]interface{}{"rest": []interface{}{map[string]interface{}{}}}},
		{"extension wrong type", map[string]interface{}{
			"rest": []interface{}{map[string]interface{}{
				"security": map[string]interface{}{"extension": 42},
			}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authorize, token := extractOAuthURIs(tc.capability)
			if authorize != "" || token != "" {
				t.Errorf("expected empty results, got %q %q", authorize, token)
			}
		})
	}
}
