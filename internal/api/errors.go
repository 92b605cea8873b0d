package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind int

const (
	KindNetwork    Kind = iota + 1 // No usable response: transport failure or timeout.
	KindAuth                       // 401 or 403; credentials were cleared.
	KindValidation                 // Other 4xx; Message comes from the server.
	KindServer                     // 5xx or an unreadable success body.
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against an *Error's Kind.
var (
	ErrNetwork    = errors.New("api: network error")
	ErrAuth       = errors.New("api: not authenticated")
	ErrValidation = errors.New("api: request rejected")
	ErrServer     = errors.New("api: server error")
)

// Error is returned by Client.Do for every failed request.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for network errors.
	Message string // Server-provided message, if any.
	Method  string
	Path    string
	Err     error // Underlying transport or decode error.
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("api: %s %s: %s", e.Method, e.Path, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// Retryable reports whether the query cache may retry the request.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// kindFor maps an HTTP status to an error kind. Success statuses return 0.
func kindFor(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return 0
	}
}

// Message returns text fit to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindAuth:
		return "please log in again"
	case KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "the request was rejected"
	case KindServer:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "the server had a problem, try again later"
	default:
		return "cannot reach the server, check your connection"
	}
}
