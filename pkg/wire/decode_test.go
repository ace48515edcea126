package wire

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMoveRequestNormalises(t *testing.T) {
	req, err := DecodeMoveRequest(json.RawMessage(`{"from":" E7 ","to":"e8","promotion":"Q"}`))
	if err != nil {
		t.Fatalf("DecodeMoveRequest: %v", err)
	}
	if req.From != "e7" || req.To != "e8" || req.Promotion != "q" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeMoveRequestRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"not object":    `[1,2]`,
		"missing from":  `{"to":"e4"}`,
		"off board":     `{"from":"i2","to":"e4"}`,
		"rank zero":     `{"from":"e0","to":"e4"}`,
		"bad promotion": `{"from":"e7","to":"e8","promotion":"k"}`,
	}
	for name, raw := range cases {
		if _, err := DecodeMoveRequest(json.RawMessage(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestDecodeSquareQueryForms(t *testing.T) {
	for _, raw := range []string{`{"square":"e2"}`, `"e2"`, `"E2"`} {
		sq, err := DecodeSquareQuery(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if sq != "e2" {
			t.Fatalf("%s: got %q", raw, sq)
		}
	}
	if _, err := DecodeSquareQuery(json.RawMessage(`{"square":"z9"}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for z9, got %v", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"submit-move","payload":{"from":"e2","to":"e4"}}`))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Type != EventSubmitMove {
		t.Fatalf("type = %q", f.Type)
	}
	if _, err := DecodeFrame([]byte(`{not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeFrame([]byte(`{"payload":1}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing type, got %v", err)
	}
}

func TestEnvelopeOmitsEmptyPayload(t *testing.T) {
	raw, err := json.Marshal(Envelope{Type: EventRoleAssigned, Payload: RoleObserver})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"type":"role-assigned","payload":"observer"}` {
		t.Fatalf("unexpected json %s", raw)
	}
}
