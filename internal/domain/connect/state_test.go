package connect

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestState_RoundTrip(t *testing.T) {
	original := &AuthorizationState{
		PatientID:   "p1",
		Provider:    "epic",
		OrgID:       "epic-sandbox",
		OrgName:     "Example Clinic",
		FHIRBaseURL: "https://fhir.example",
		TokenURL:    "https://idp.example/token",
		Timestamp:   time.Now().UnixMilli(),
	}

	opaque, err := EncodeState(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeState(opaque)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *decoded != *original {
		t.Errorf("round trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestDecodeState_NotBase64(t *testing.T) {
	_, err := DecodeState("!!!not-base64!!!")
	var protoErr *CallbackProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected CallbackProtocolError, got %v", err)
	}
}

func TestDecodeState_NotJSON(t *testing.T) {
	opaque := base64.StdEncoding.EncodeToString([]byte("plain text"))
	_, err := DecodeState(opaque)
	var protoErr *CallbackProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected CallbackProtocolError, got %v", err)
	}
}

func TestDecodeState_EmptyFieldsAllowed(t *testing.T) {
	opaque, err := EncodeState(&AuthorizationState{PatientID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeState(opaque)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.PatientID != "p1" || decoded.TokenURL != "" {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}
