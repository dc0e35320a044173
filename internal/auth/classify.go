package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/desertthunder/rize/internal/services"
	"github.com/desertthunder/rize/internal/shared"
)

// Kind is the user-facing category of a provider failure.
type Kind int

const (
	Unknown Kind = iota
	InvalidCredentials
	ServiceBlocked
	NetworkUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid-credentials"
	case ServiceBlocked:
		return "service-blocked"
	case NetworkUnavailable:
		return "network-unavailable"
	default:
		return "unknown"
	}
}

// blockedMarker triggers the service-blocked rule. The provider reports abuse protection only in
// free text, so the match is on the message rather than the code.
const blockedMarker = "blocked"

// credentialCodes are provider codes meaning the credentials or the session they produced are no good.
var credentialCodes = map[string]bool{
	"INVALID_PASSWORD":          true,
	"EMAIL_NOT_FOUND":           true,
	"INVALID_LOGIN_CREDENTIALS": true,
	"INVALID_EMAIL":             true,
	"USER_DISABLED":             true,
	"TOKEN_EXPIRED":             true,
	"USER_NOT_FOUND":            true,
	"INVALID_ID_TOKEN":          true,
	"INVALID_REFRESH_TOKEN":     true,
	"INVALID_IDP_RESPONSE":      true,
}

// AuthError is a classified provider failure.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UserMessage is the single short message shown for the error's kind.
func (e *AuthError) UserMessage() string {
	switch e.Kind {
	case InvalidCredentials:
		return "Invalid email or password."
	case ServiceBlocked:
		return "Rize app is currently blocked. Please contact the developer."
	case NetworkUnavailable:
		return "Network unavailable. Check your connection and try again."
	default:
		return e.Message
	}
}

// Classify maps err into the closed [Kind] taxonomy. It returns nil for nil and never panics.
//
// Rules apply in order:
//  1. blocked-message rule: the message contains "blocked"
//  2. a known credential code
//  3. a transport failure
//  4. anything else is [Unknown] carrying the raw message
func Classify(err error) *AuthError {
	if err == nil {
		return nil
	}

	var already *AuthError
	if errors.As(err, &already) {
		return already
	}

	message := err.Error()
	var perr *services.ProviderError
	if errors.As(err, &perr) {
		message = perr.Error()
	}

	if isBlocked(message) {
		return &AuthError{Kind: ServiceBlocked, Message: message, Err: err}
	}

	if perr != nil && credentialCodes[perr.Code] {
		return &AuthError{Kind: InvalidCredentials, Message: message, Err: err}
	}

	if isTransport(err) {
		return &AuthError{Kind: NetworkUnavailable, Message: message, Err: err}
	}

	return &AuthError{Kind: Unknown, Message: message, Err: err}
}

func isBlocked(message string) bool {
	return strings.Contains(message, blockedMarker)
}

func isTransport(err error) bool {
	if errors.Is(err, shared.ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// UserMessage returns the text shown to the user for any error produced by the core.
func UserMessage(err error) string {
	var verr *ValidationError
	var aerr *AuthError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.UserMessage()
	case errors.Is(err, shared.ErrSessionExpired):
		return "Unexpected error. Please log in again."
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "Please sign in first."
	case errors.Is(err, shared.ErrFederatedCanceled):
		return "Google sign-in was canceled."
	case errors.Is(err, shared.ErrEmptyInput):
		return "Please enter some text."
	case errors.Is(err, shared.ErrStorageIO):
		return "Could not access local storage. Try again."
	case errors.As(err, &aerr):
		return aerr.UserMessage()
	default:
		return err.Error()
	}
}
