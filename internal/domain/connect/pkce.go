package connect

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierBytes is the entropy of a PKCE verifier. RFC 7636 requires a
// minimum of 32 octets before encoding for S256.
const verifierBytes = 32

// GeneratePKCE produces a fresh verifier/challenge pair for one
// authorization attempt. The verifier is the client-held secret; the
// challenge is its URL-safe base64 SHA-256 digest and is the only PKCE
// artifact that travels to the authorization endpoint.
func GeneratePKCE() (*PKCEChallenge, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating PKCE verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: ChallengeFrom(verifier),
	}, nil
}

// ChallengeFrom recomputes the S256 challenge for a verifier. It is
// deterministic: a verifier read back from storage after the redirect
// reproduces the challenge originally sent.
func ChallengeFrom(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
