// Package fault classifies failures so callers can decide between retry,
// re-authentication and permanent errors.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindPermission
	KindNotFound
	KindTransient
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error carries a failure kind, the operation that produced it and the
// underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of err, or KindUnknown for errors produced
// outside this package.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// FromRPC maps a backend failure to a classified error, understanding
// both gRPC status errors (document store) and googleapi HTTP errors
// (object store). A nil err passes through so call sites can wrap
// returns unconditionally.
func FromRPC(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return E(httpKind(gerr.Code), op, err)
	}
	s, ok := status.FromError(err)
	if !ok {
		return E(KindUnknown, op, err)
	}
	switch s.Code() {
	case codes.NotFound:
		return E(KindNotFound, op, err)
	case codes.PermissionDenied:
		return E(KindPermission, op, err)
	case codes.Unauthenticated:
		return E(KindAuth, op, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return E(KindTransient, op, err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return E(KindInvalid, op, err)
	default:
		return E(KindUnknown, op, err)
	}
}

func httpKind(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	case http.StatusBadRequest, http.StatusPreconditionFailed:
		return KindInvalid
	default:
		return KindUnknown
	}
}

// FromIdentityToolkit maps an Identity Toolkit REST error message
// (e.g. "EMAIL_NOT_FOUND", "TOO_MANY_ATTEMPTS_TRY_LATER : ...") to a
// classified error.
func FromIdentityToolkit(op, message string) *Error {
	code, _, _ := strings.Cut(message, " ")
	code = strings.TrimSpace(code)
	kind := KindAuth
	switch code {
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "QUOTA_EXCEEDED":
		kind = KindTransient
	case "EMAIL_EXISTS", "INVALID_EMAIL", "WEAK_PASSWORD", "MISSING_PASSWORD":
		kind = KindInvalid
	case "INSUFFICIENT_PERMISSION", "OPERATION_NOT_ALLOWED", "ADMIN_ONLY_OPERATION":
		kind = KindPermission
	case "USER_NOT_FOUND":
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Err: errors.New(message)}
}
