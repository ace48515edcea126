package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidSquare reports whether s names a board square such as "e4".
func ValidSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func validPromotion(s string) bool {
	switch s {
	case "", "q", "r", "b", "n":
		return true
	}
	return false
}

// DecodeFrame parses one inbound text message.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, malformed("bad_json", fmt.Sprintf("invalid json: %v", err))
	}
	f.Type = strings.TrimSpace(f.Type)
	if f.Type == "" {
		return Frame{}, malformed("missing_type", "frame type is required")
	}
	return f, nil
}

// DecodeMoveRequest validates a submit-move payload. Squares and promotion
// letters are normalised to lower case.
func DecodeMoveRequest(raw json.RawMessage) (MoveRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return MoveRequest{}, malformed("missing_payload", "submit-move requires a payload")
	}
	var req MoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return MoveRequest{}, malformed("bad_payload", fmt.Sprintf("invalid move payload: %v", err))
	}
	req.From = strings.ToLower(strings.TrimSpace(req.From))
	req.To = strings.ToLower(strings.TrimSpace(req.To))
	req.Promotion = strings.ToLower(strings.TrimSpace(req.Promotion))
	if !ValidSquare(req.From) {
		return MoveRequest{}, malformed("bad_square", fmt.Sprintf("invalid from square %q", req.From))
	}
	if !ValidSquare(req.To) {
		return MoveRequest{}, malformed("bad_square", fmt.Sprintf("invalid to square %q", req.To))
	}
	if !validPromotion(req.Promotion) {
		return MoveRequest{}, malformed("bad_promotion", fmt.Sprintf("invalid promotion %q", req.Promotion))
	}
	return req, nil
}

// DecodeSquareQuery accepts either {"square":"e2"} or a bare "e2".
func DecodeSquareQuery(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", malformed("missing_payload", "query-legal-moves requires a square")
	}
	var sq string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &sq); err != nil {
			return "", malformed("bad_payload", fmt.Sprintf("invalid square: %v", err))
		}
	} else {
		var q SquareQuery
		if err := json.Unmarshal(raw, &q); err != nil {
			return "", malformed("bad_payload", fmt.Sprintf("invalid square query: %v", err))
		}
		sq = q.Square
	}
	sq = strings.ToLower(strings.TrimSpace(sq))
	if !ValidSquare(sq) {
		return "", malformed("bad_square", fmt.Sprintf("invalid square %q", sq))
	}
	return sq, nil
}
