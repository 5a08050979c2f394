package connect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxDiscoveryBody caps how much of a third-party response we are willing to
// read. CapabilityStatements can be large but not unbounded.
const maxDiscoveryBody = 4 << 20

func readBounded(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxDiscoveryBody))
}

// oauthURIsExtension marks the CapabilityStatement security extension that
// carries SMART OAuth endpoint URIs.
const oauthURIsExtension = "http://fhir-registry.smarthealthit.org/StructureDefinition/oauth-uris"

// Resolver discovers the OAuth authorize/token endpoints of a FHIR server.
// Resolution is a pure read: no retries, no side effects, each probe isolated
// so a malformed response falls through to the next step.
type Resolver struct {
	client *http.Client
	logger zerolog.Logger
}

func NewResolver(timeout time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Resolve probes {base}/.well-known/smart-configuration first, then falls
// back to the CapabilityStatement at {base}/metadata. When neither yields
// both endpoints it returns a DiscoveryError.
func (r *Resolver) Resolve(ctx context.Context, fhirBaseURL string) (*DiscoveredEndpoints, error) {
	base := strings.TrimRight(fhirBaseURL, "/")

	if ep := r.probeWellKnown(ctx, base); ep != nil {
		return ep, nil
	}
	if ep := r.probeMetadata(ctx, base); ep != nil {
		return ep, nil
	}
	return nil, &DiscoveryError{FHIRBaseURL: fhirBaseURL}
}

type smartConfiguration struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

func (r *Resolver) probeWellKnown(ctx context.Context, base string) *DiscoveredEndpoints {
	body, ok := r.getJSON(ctx, base+"/.well-known/smart-configuration")
	if !ok {
		return nil
	}

	var cfg smartConfiguration
	if err := json.Unmarshal(body, &cfg); err != nil {
		r.logger.Debug().Str("base", base).Err(err).Msg("well-known document is not valid JSON")
		return nil
	}
	if cfg.AuthorizationEndpoint == "" {
		return nil
	}

	return &DiscoveredEndpoints{
		AuthorizeURL: cfg.AuthorizationEndpoint,
		TokenURL:     cfg.TokenEndpoint,
		Source:       SourceWellKnown,
	}
}

func (r *Resolver) probeMetadata(ctx context.Context, base string) *DiscoveredEndpoints {
	body, ok := r.getJSON(ctx, base+"/metadata")
	if !ok {
		return nil
	}

	var capability map[string]interface{}
	if err := json.Unmarshal(body, &capability); err != nil {
		r.logger.Debug().Str("base", base).Err(err).Msg("capability statement is not valid JSON")
		return nil
	}

	authorize, token := extractOAuthURIs(capability)
	if authorize == "" || token == "" {
		return nil
	}

	return &DiscoveredEndpoints{
		AuthorizeURL: authorize,
		TokenURL:     token,
		Source:       SourceMetadata,
	}
}

func (r *Resolver) getJSON(ctx context.Context, url string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Str("url", url).Err(err).Msg("discovery probe failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("discovery probe non-200")
		return nil, false
	}

	body, err := readBounded(resp.Body)
	if err != nil {
		return nil, false
	}
	return body, true
}

// extractOAuthURIs walks rest[0].security.extension of a CapabilityStatement
// looking for the oauth-uris extension and its authorize/token
// sub-extensions. Every traversal step checks presence and shape explicitly;
// any missing link yields empty results instead of a panic.
func extractOAuthURIs(capability map[string]interface{}) (authorize, token string) {
	rest, ok := asSlice(capability["rest"])
	if !ok || len(rest) == 0 {
		return "", ""
	}
	first, ok := asMap(rest[0])
	if !ok {
		return "", ""
	}
	security, ok := asMap(first["security"])
	if !ok {
		return "", ""
	}
	extensions, ok := asSlice(security["extension"])
	if !ok {
		return "", ""
	}

	for _, raw := range extensions {
		ext, ok := asMap(raw)
		if !ok {
			continue
		}
		if urlString(ext["url"]) != oauthURIsExtension {
			continue
		}
		nested, ok := asSlice(ext["extension"])
		if !ok {
			continue
		}
		for _, rawSub := range nested {
			sub, ok := asMap(rawSub)
			if !ok {
				continue
			}
			switch urlString(sub["url"]) {
			case "authorize":
				authorize = urlString(sub["valueUri"])
			case "token":
				token = urlString(sub["valueUri"])
			}
		}
	}
	return authorize, token
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}

func urlString(v interface{}) string {
	s, _ := v.(string)
	return s
}
