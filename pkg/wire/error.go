package wire

import "errors"

// ErrMalformed matches every MalformedError through errors.Is.
var ErrMalformed = errors.New("malformed request")

// MalformedError reports a frame that failed boundary validation.
type MalformedError struct {
	Code    string
	Message string
}

func (e MalformedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return ErrMalformed.Error()
}

func (e MalformedError) Is(target error) bool { return target == ErrMalformed }

func malformed(code, msg string) error {
	return MalformedError{Code: code, Message: msg}
}
