package auth

import (
	"errors"
	"net/http"
)

// Kind is the closed set of business failure conditions the auth core can
// produce. Callers branch on Kind, never on message text.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindRateLimited            Kind = "rate_limited"
	KindInvalidCode            Kind = "invalid_code"
	KindAlreadyRegistered      Kind = "already_registered"
	KindPhoneNotVerified       Kind = "phone_not_verified"
	KindUserNotFound           Kind = "user_not_found"
	KindPhoneNotFoundUpstream  Kind = "phone_not_found_upstream"
	KindIncompleteRegistration Kind = "incomplete_registration"
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindAccessDenied           Kind = "access_denied"
	KindMismatch               Kind = "mismatch"
	KindInvalidToken           Kind = "invalid_token"
	KindSessionInvalid         Kind = "session_invalid"
	KindTokenBlacklisted       Kind = "token_blacklisted"
	KindRefreshRotated         Kind = "refresh_rotated"
	KindNoActiveSession        Kind = "no_active_session"
	KindResetSessionInvalid    Kind = "reset_session_invalid"
	KindUpstreamUnavailable    Kind = "upstream_unavailable"
)

// Error is a business-rule failure with a stable kind and a location tag that
// points at the rule that rejected the request. RetryAfter is populated only
// for rate-limit rejections.
type Error struct {
	Kind       Kind
	Location   string
	Message    string
	RetryAfter int
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func newError(kind Kind, location, message string) *Error {
	return &Error{Kind: kind, Location: location, Message: message}
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a failure kind to its transport status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidCode, KindPhoneNotVerified, KindMismatch:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAlreadyRegistered:
		return http.StatusConflict
	case KindUserNotFound, KindPhoneNotFoundUpstream:
		return http.StatusNotFound
	case KindInvalidCredentials, KindInvalidToken, KindSessionInvalid,
		KindTokenBlacklisted, KindRefreshRotated, KindNoActiveSession:
		return http.StatusUnauthorized
	case KindIncompleteRegistration, KindAccessDenied, KindResetSessionInvalid:
		return http.StatusForbidden
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
