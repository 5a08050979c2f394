package connect

import (
	"encoding/base64"
	"encoding/json"
)

// EncodeState serializes the continuity payload for the `state` query
// parameter: JSON, then base64. The identity provider echoes it back
// unmodified.
func EncodeState(s *AuthorizationState) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeState reverses EncodeState. Malformed base64 or JSON yields a
// CallbackProtocolError rather than an unhandled fault, since the value
// crossed an uncontrolled third party.
func DecodeState(opaque string) (*AuthorizationState, error) {
	raw, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return nil, &CallbackProtocolError{Reason: "state is not valid base64"}
	}
	var s AuthorizationState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &CallbackProtocolError{Reason: "state payload is not valid JSON"}
	}
	return &s, nil
}
