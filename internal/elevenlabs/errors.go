package elevenlabs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies client errors
type Kind int

const (
	KindAuth Kind = iota + 1
	KindValidation
	KindTransport
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against *Error
var (
	ErrAuth       = errors.New("api key rejected")
	ErrValidation = errors.New("invalid request")
	ErrTransport  = errors.New("service unreachable")
	ErrService    = errors.New("service error")
)

// Error is returned by every Client operation
type Error struct {
	Kind    Kind
	Op      string
	Status  int // HTTP status, 0 when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrService:
		return e.Kind == KindService
	}
	return false
}

func validationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "could not reach ElevenLabs", Err: err}
}

// statusError builds the error for a non-2xx response
func statusError(op string, status int, body []byte, fallback string) *Error {
	kind := KindService
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindAuth
	}
	msg := detailMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: kind, Op: op, Status: status, Message: msg}
}

// apiErrorBody is the error payload returned by the API. detail is either a
// string, an object with a message, or a list of validation errors.
type apiErrorBody struct {
	Detail interface{} `json:"detail"`
}

func detailMessage(body []byte) string {
	var e apiErrorBody
	if json.Unmarshal(body, &e) != nil || e.Detail == nil {
		return ""
	}

	switch detail := e.Detail.(type) {
	case string:
		return detail
	case map[string]interface{}:
		if msg, ok := detail["message"].(string); ok {
			return msg
		}
	case []interface{}:
		if len(detail) > 0 {
			if first, ok := detail[0].(map[string]interface{}); ok {
				if msg, ok := first["msg"].(string); ok {
					return msg
				}
			}
		}
	}
	return ""
}
