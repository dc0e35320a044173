package main

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionStatus is the JSON shape printed by `auth status` and `auth profile`.
type sessionStatus struct {
	State      string    `json:"state"`
	Cached     bool      `json:"cached"`
	Email      string    `json:"email,omitempty"`
	UID        string    `json:"uid,omitempty"`
	Verified   bool      `json:"verified"`
	ProviderID string    `json:"provider_id,omitempty"`
	InstallID  string    `json:"install_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

func (r *Runner) credentials(cmd *cli.Command) (string, string, error) {
	email := cmd.String("email")
	if email == "" {
		var err error
		if email, err = r.prompt("Email"); err != nil {
			return "", "", err
		}
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.prompt("Password"); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

// AuthSignIn signs in with email and password and reports whether verification is pending.
func (r *Runner) AuthSignIn(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	result, err := manager.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return r.writeResult(result)
}

// AuthSignUp creates an account. The user must verify before signing in.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	result, err := manager.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	return r.writeResult(result)
}

// AuthGoogle runs the browser consent flow and completes a federated sign-in.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	r.writePlain("Waiting for Google sign-in in your browser...\n")
	result, err := manager.CompleteFederatedSignIn(ctx, r.googleFlow().Run(ctx))
	if err != nil {
		return err
	}
	return r.writeResult(result)
}

// AuthVerify restores the provider session and checks the email verification flag.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	if _, err := manager.Restore(ctx); err != nil {
		return err
	}

	result, err := manager.EnsureVerified(ctx)
	if err != nil {
		return err
	}
	return r.writeResult(result)
}

// AuthStatus reconciles the session with the provider and prints it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	hint := manager.CurrentRouteHint()
	result, err := manager.Reconcile(ctx)
	if err != nil && !errors.Is(err, shared.ErrSessionExpired) {
		return err
	}

	snap := r.cache.Snapshot()
	status := sessionStatus{
		State:     result.State.String(),
		Cached:    snap.IsAuthenticated,
		InstallID: snap.InstallID,
		UpdatedAt: snap.UpdatedAt,
	}
	if id := result.Identity; id != nil {
		status.Email = id.Email
		status.UID = id.UID
		status.Verified = id.Trusted()
		status.ProviderID = id.ProviderID
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("State:  %s\n", status.State)
	if status.Email != "" {
		r.writePlain("Email:  %s (verified: %t)\n", status.Email, status.Verified)
	}
	if hint != manager.CurrentRouteHint() {
		r.writePlain("Cached session was out of date and has been cleared.\n")
	}
	return nil
}

// AuthReset sends a password reset email.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	email := cmd.String("email")
	if email == "" {
		if email, err = r.prompt("Email"); err != nil {
			return err
		}
	}

	result, err := manager.RequestPasswordReset(ctx, email)
	if err != nil {
		return err
	}
	return r.writeResult(result)
}

// AuthSignOut clears the session. Signing out twice is not an error.
func (r *Runner) AuthSignOut(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	result, err := manager.SignOut(ctx)
	if err != nil {
		r.logger.Warn("sign out incomplete", "error", err)
	}
	return r.writeResult(result)
}

// AuthProfile prints the reconciled identity.
func (r *Runner) AuthProfile(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	identity, err := manager.Profile(ctx)
	if err != nil {
		return err
	}

	status := sessionStatus{
		State:      manager.State().String(),
		Cached:     true,
		Email:      identity.Email,
		UID:        identity.UID,
		Verified:   identity.Trusted(),
		ProviderID: identity.ProviderID,
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("Email:    %s\n", status.Email)
	r.writePlain("Verified: %t\n", status.Verified)
	r.writePlain("Provider: %s\n", status.ProviderID)
	r.writePlain("User ID:  %s\n", status.UID)
	return nil
}

// writeResult prints the line matching a manager signal.
func (r *Runner) writeResult(result auth.Result) error {
	email := ""
	if result.Identity != nil {
		email = result.Identity.Email
	}

	switch result.Signal {
	case auth.ReadyForHome:
		return r.writePlain("✓ Signed in as %s\n", email)
	case auth.AwaitingVerification:
		if result.VerificationSent {
			return r.writePlain("Verification email sent to %s. Verify, then run 'rize auth verify'.\n", email)
		}
		return r.writePlain("%s is not verified yet. Verify, then run 'rize auth verify'.\n", email)
	case auth.RegisteredPendingVerification:
		if result.VerificationSent {
			return r.writePlain("✓ Account created. Verification email sent to %s.\n", email)
		}
		return r.writePlain("✓ Account created for %s. Verification email could not be sent; run 'rize auth verify' to retry.\n", email)
	case auth.SignedOut:
		return r.writePlain("✓ Signed out\n")
	case auth.PasswordResetSent:
		return r.writePlain("✓ Password reset email sent\n")
	default:
		return r.writePlain("State: %s\n", result.State)
	}
}
