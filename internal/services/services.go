package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/rize/internal/models"
)

// Provider is the remote identity authority consulted by the auth session manager.
//
// Implementations keep their own session (tokens) and never touch the device session cache.
type Provider interface {
	// SignInWithPassword verifies credentials and starts a provider session.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error)

	// CreateAccount registers a new password identity and starts a provider session.
	CreateAccount(ctx context.Context, email, password string) (*models.Identity, error)

	// ReloadIdentity fetches the latest account state (notably EmailVerified) for identity.
	ReloadIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error)

	// SendVerificationEmail asks the provider to mail a verification link to identity.
	SendVerificationEmail(ctx context.Context, identity *models.Identity) error

	// SendPasswordReset asks the provider to mail a password reset link to email.
	SendPasswordReset(ctx context.Context, email string) error

	// ExchangeFederatedToken trades a third-party id token for a provider identity.
	ExchangeFederatedToken(ctx context.Context, token string) (*models.Identity, error)

	// CurrentIdentity returns the provider session restored from disk, or nil when there is none.
	CurrentIdentity(ctx context.Context) (*models.Identity, error)

	// SignOut ends the provider session. Calling it without a session is not an error.
	SignOut(ctx context.Context) error
}

// ProviderError is a failure reported by the identity provider itself (as opposed to transport).
//
// Code is the provider's machine-readable reason (e.g. INVALID_PASSWORD) and Message the full text.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

// NewProviderError splits a provider message of the form "CODE : detail" into its parts.
func NewProviderError(status int, message string) *ProviderError {
	code, _, _ := strings.Cut(message, ":")
	code = strings.TrimSpace(code)
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", status)
	}
	return &ProviderError{Status: status, Code: code, Message: message}
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
