package connect

import (
	"net/url"
)

// BuildAuthorizeURL assembles the SMART App Launch authorization request.
// The redirect URI must exactly match the value registered with the identity
// provider, and `aud` binds the authorization to the FHIR server the tokens
// will be used against.
func BuildAuthorizeURL(authorizeEndpoint, clientID, redirectURI, scope, state, fhirBaseURL, codeChallenge string) (string, error) {
	u, err := url.Parse(authorizeEndpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)
	q.Set("state", state)
	q.Set("aud", fhirBaseURL)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
