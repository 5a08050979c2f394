package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options carries the fixed OAuth client registration and outbound timeouts.
type Options struct {
	ClientID     string
	RedirectURI  string
	Scopes       string
	TokenTimeout time.Duration
}

// Service orchestrates the authorization flow: discovery, attempt tracking,
// token exchange, and connection CRUD. The backend side is stateless per
// request; the attempt store and the connection repository are the only
// shared state.
type Service struct {
	opts     Options
	resolver *Resolver
	attempts *AttemptStore
	repo     ConnectionRepository
	syncer   Syncer
	client   *http.Client
	logger   zerolog.Logger
}

func NewService(opts Options, resolver *Resolver, attempts *AttemptStore, repo ConnectionRepository, syncer Syncer, logger zerolog.Logger) *Service {
	return &Service{
		opts:     opts,
		resolver: resolver,
		attempts: attempts,
		repo:     repo,
		syncer:   syncer,
		client:   &http.Client{Timeout: opts.TokenTimeout},
		logger:   logger,
	}
}

// Discover resolves the OAuth endpoints of a FHIR server.
func (s *Service) Discover(ctx context.Context, fhirBaseURL string) (*DiscoveredEndpoints, error) {
	if fhirBaseURL == "" {
		return nil, &ValidationError{Field: "fhirBaseUrl"}
	}
	return s.resolver.Resolve(ctx, fhirBaseURL)
}

// BeginAuthorization prepares everything the browser needs to hand control
// to the external identity provider: discovered endpoints, a PKCE pair, the
// encoded state, and the final authorization URL. The verifier and endpoints
// are stored in the patient's single in-flight attempt slot before the URL
// is returned, because nothing held only in page memory survives the
// redirect.
func (s *Service) BeginAuthorization(ctx context.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	if req.PatientID == "" {
		return nil, &ValidationError{Field: "patientId"}
	}
	if req.FHIRBaseURL == "" {
		return nil, &ValidationError{Field: "fhirBaseUrl"}
	}

	authorizeURL, tokenURL := req.AuthorizeURL, req.TokenURL
	if authorizeURL == "" {
		ep, err := s.resolver.Resolve(ctx, req.FHIRBaseURL)
		if err != nil {
			return nil, err
		}
		authorizeURL, tokenURL = ep.AuthorizeURL, ep.TokenURL
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}

	state, err := EncodeState(&AuthorizationState{
		PatientID:   req.PatientID,
		Provider:    req.Provider,
		OrgID:       req.OrgID,
		OrgName:     req.OrgName,
		FHIRBaseURL: req.FHIRBaseURL,
		TokenURL:    tokenURL,
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	// Persist the continuation before handing out the URL; a new Begin for
	// the same patient invalidates any earlier verifier.
	s.attempts.Begin(&Attempt{
		PatientID:    req.PatientID,
		Verifier:     pkce.Verifier,
		AuthorizeURL: authorizeURL,
		TokenURL:     tokenURL,
		FHIRBaseURL:  req.FHIRBaseURL,
	})

	u, err := BuildAuthorizeURL(authorizeURL, s.opts.ClientID, s.opts.RedirectURI, s.opts.Scopes, state, req.FHIRBaseURL, pkce.Challenge)
	if err != nil {
		return nil, fmt.Errorf("building authorization url: %w", err)
	}

	s.logger.Info().
		Str("patient_id", req.PatientID).
		Str("org_id", req.OrgID).
		Str("authorize_url", authorizeURL).
		Msg("authorization attempt started")

	return &AuthorizeResponse{AuthorizeURL: u, State: state}, nil
}

// HandleCallback finishes the flow after the identity provider redirects
// back: it validates the return, recovers the continuation, exchanges the
// single-use code for tokens, and persists the resulting Connection. The
// authorization code is consumed upstream, so callers must never replay a
// failed callback.
func (s *Service) HandleCallback(ctx context.Context, req *CallbackRequest) (*CallbackResponse, error) {
	if req.ErrorParam != "" {
		return nil, &AuthorizationDeniedError{Code: req.ErrorParam, Description: req.ErrorDescription}
	}
	if req.Code == "" || req.State == "" {
		return nil, &CallbackProtocolError{Reason: "code or state missing from callback"}
	}
	if req.RedirectURI == "" {
		return nil, &ValidationError{Field: "redirectUri"}
	}

	state, err := DecodeState(req.State)
	if err != nil {
		return nil, err
	}

	patientID := req.PatientID
	if patientID == "" {
		patientID = state.PatientID
	}
	if patientID == "" {
		return nil, &ValidationError{Field: "patientId"}
	}

	// The attempt slot is consumed here regardless of outcome: the verifier
	// is single-use, and a failed exchange cannot be retried with the same
	// code anyway.
	attempt := s.attempts.Take(patientID)

	// The token URL may arrive three ways. The state-carried value wins over
	// the cached attempt because storage may have been cleared between
	// redirect and return, while the state provably round-tripped.
	tokenURL := req.TokenURL
	if tokenURL == "" {
		tokenURL = state.TokenURL
	}
	if tokenURL == "" && attempt != nil {
		tokenURL = attempt.TokenURL
	}
	if tokenURL == "" {
		return nil, &ValidationError{Field: "tokenUrl"}
	}

	verifier := req.CodeVerifier
	if verifier == "" && attempt != nil {
		verifier = attempt.Verifier
	}

	token, err := s.exchangeCode(ctx, tokenURL, req.Code, req.RedirectURI, verifier)
	if err != nil {
		return nil, err
	}

	fhirBaseURL := req.FHIRBaseURL
	if fhirBaseURL == "" {
		fhirBaseURL = state.FHIRBaseURL
	}

	now := time.Now().UTC()
	conn := &Connection{
		ConnectionID:  uuid.New().String(),
		PatientID:     patientID,
		Provider:      state.Provider,
		ProviderName:  state.OrgName,
		OrgID:         state.OrgID,
		FHIRBaseURL:   fhirBaseURL,
		TokenURL:      tokenURL,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		ExpiresIn:     token.ExpiresIn,
		Scope:         token.Scope,
		PatientFHIRID: token.Patient,
		Status:        StatusActive,
		LastSynced:    &now,
		CreatedAt:     now,
		RecordCount:   0,
		FacilityName:  state.OrgName,
	}

	if err := s.repo.Create(ctx, conn); err != nil {
		s.logger.Error().Err(err).Str("patient_id", patientID).Msg("failed to persist connection")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("connection_id", conn.ConnectionID).
		Str("org_id", conn.OrgID).
		Msg("connection created")

	return &CallbackResponse{
		Success:       true,
		ConnectionID:  conn.ConnectionID,
		PatientFHIRID: conn.PatientFHIRID,
		OrgName:       state.OrgName,
	}, nil
}

// exchangeCode performs the authorization_code grant against the clinical
// identity provider's token endpoint.
func (s *Service) exchangeCode(ctx context.Context, tokenURL, code, redirectURI, verifier string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", s.opts.ClientID)
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &TokenExchangeError{OAuthError: "server_error", Description: err.Error()}
	}
	defer resp.Body.Close()

	body, err := readBounded(resp.Body)
	if err != nil {
		return nil, &TokenExchangeError{OAuthError: "server_error", Description: "reading token response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		// Pass the provider's own error text through verbatim: OAuth
		// failures are miserable to debug through paraphrased messages.
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error != "" {
			return nil, &TokenExchangeError{StatusCode: resp.StatusCode, OAuthError: oauthErr.Error, Description: oauthErr.ErrorDescription}
		}
		return nil, &TokenExchangeError{
			StatusCode:  resp.StatusCode,
			OAuthError:  "invalid_grant",
			Description: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &TokenExchangeError{OAuthError: "server_error", Description: "token response is not valid JSON"}
	}
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{OAuthError: "invalid_grant", Description: "token response missing access_token"}
	}

	return &token, nil
}

// ListConnections returns the patient's connections, never another
// patient's.
func (s *Service) ListConnections(ctx context.Context, patientID string) ([]*Connection, error) {
	if patientID == "" {
		return nil, &ValidationError{Field: "patientId"}
	}
	conns, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conns == nil {
		conns = []*Connection{}
	}
	return conns, nil
}

// DeleteConnection removes a connection when, and only when, the caller's
// patient ID owns it. Deletion is hard and terminal.
func (s *Service) DeleteConnection(ctx context.Context, patientID, connectionID string) (bool, error) {
	if patientID == "" {
		return false, &ValidationError{Field: "patientId"}
	}
	if connectionID == "" {
		return false, &ValidationError{Field: "connectionId"}
	}
	deleted, err := s.repo.Delete(ctx, patientID, connectionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return deleted, nil
}

// SyncConnection delegates to the configured Syncer.
func (s *Service) SyncConnection(ctx context.Context, patientID, connectionID string) (int, error) {
	if patientID == "" {
		return 0, &ValidationError{Field: "patientId"}
	}
	if connectionID == "" {
		return 0, &ValidationError{Field: "connectionId"}
	}
	return s.syncer.Sync(ctx, patientID, connectionID)
}
