package connect

import (
	"time"
)

// Connection statuses. There is no automatic path back to active: an expired
// or errored connection is replaced by running a new authorization flow.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusError   = "error"
)

// Connection is the durable record of an authorized link between one patient
// and one external FHIR-enabled health system. It is created only by a
// successful token exchange and mutated only by sync or explicit delete.
type Connection struct {
	ConnectionID  string     `db:"connection_id" json:"connectionId"`
	PatientID     string     `db:"patient_id" json:"patientId"`
	Provider      string     `db:"provider" json:"provider"`
	ProviderName  string     `db:"provider_name" json:"providerName"`
	OrgID         string     `db:"org_id" json:"orgId"`
	FHIRBaseURL   string     `db:"fhir_base_url" json:"fhirBaseUrl"`
	TokenURL      string     `db:"token_url" json:"tokenUrl"`
	AccessToken   string     `db:"access_token" json:"-"`
	RefreshToken  string     `db:"refresh_token" json:"-"`
	ExpiresIn     int        `db:"expires_in" json:"expiresIn"`
	Scope         string     `db:"scope" json:"scope"`
	PatientFHIRID string     `db:"patient_fhir_id" json:"patientFhirId"`
	Status        string     `db:"status" json:"status"`
	LastSynced    *time.Time `db:"last_synced" json:"lastSynced,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	RecordCount   int        `db:"record_count" json:"recordCount"`
	FacilityName  string     `db:"facility_name" json:"facilityName"`
}

// DiscoveredEndpoints is the ephemeral, per-call result of endpoint
// discovery. It is never persisted.
type DiscoveredEndpoints struct {
	AuthorizeURL string `json:"authorizeUrl"`
	TokenURL     string `json:"tokenUrl"`
	Source       string `json:"source"` // "well-known" or "metadata"
}

// Discovery sources.
const (
	SourceWellKnown = "well-known"
	SourceMetadata  = "metadata"
)

// PKCEChallenge is the verifier/challenge pair for one authorization
// attempt. The verifier never leaves this process except inside the token
// exchange request; only the challenge is sent to the authorization
// endpoint.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
}

// AuthorizationState is the opaque continuity payload round-tripped through
// the external identity provider's redirect. It is a carrier across a page
// boundary the application does not control, not a security boundary, so the
// PKCE verifier must never appear in it.
type AuthorizationState struct {
	PatientID   string `json:"patientId"`
	Provider    string `json:"provider"`
	OrgID       string `json:"orgId,omitempty"`
	OrgName     string `json:"orgName,omitempty"`
	FHIRBaseURL string `json:"fhirBaseUrl,omitempty"`
	TokenURL    string `json:"tokenUrl,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// AuthorizeRequest begins an authorization attempt for a patient against an
// organization's FHIR server.
type AuthorizeRequest struct {
	PatientID   string `json:"patientId"`
	Provider    string `json:"provider"`
	OrgID       string `json:"orgId"`
	OrgName     string `json:"orgName"`
	FHIRBaseURL string `json:"fhirBaseUrl"`
	// Optional pre-resolved endpoints; when empty the service runs discovery.
	AuthorizeURL string `json:"authorizeUrl,omitempty"`
	TokenURL     string `json:"tokenUrl,omitempty"`
}

// AuthorizeResponse carries the fully built authorization URL the browser
// navigates to, plus the encoded state for clients that build their own URL.
type AuthorizeResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
	State        string `json:"state"`
}

// CallbackRequest is the redirect-return payload posted by the browser after
// the external identity provider hands control back.
type CallbackRequest struct {
	Code             string `json:"code"`
	State            string `json:"state"`
	RedirectURI      string `json:"redirectUri"`
	PatientID        string `json:"patientId"`
	CodeVerifier     string `json:"codeVerifier,omitempty"`
	TokenURL         string `json:"tokenUrl,omitempty"`
	FHIRBaseURL      string `json:"fhirBaseUrl,omitempty"`
	// The error fields mirror the OAuth redirect parameters verbatim so the
	// browser can forward them untouched.
	ErrorParam       string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// CallbackResponse reports a successful exchange.
type CallbackResponse struct {
	Success       bool   `json:"success"`
	ConnectionID  string `json:"connectionId"`
	PatientFHIRID string `json:"patientFhirId,omitempty"`
	OrgName       string `json:"orgName,omitempty"`
}

// tokenResponse is the OAuth2 token endpoint response from the clinical
// identity provider.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// SMART context: the remote system's identifier for the patient.
	Patient string `json:"patient,omitempty"`
}
