package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/services"
	"github.com/desertthunder/rize/internal/session"
	"github.com/desertthunder/rize/internal/shared"
)

// Signal tells the caller what happened so it can route the user.
type Signal int

const (
	NoSignal Signal = iota
	ReadyForHome
	AwaitingVerification
	RegisteredPendingVerification
	FederatedSignInFailed
	SignedOut
	PasswordResetSent
)

func (s Signal) String() string {
	switch s {
	case ReadyForHome:
		return "ready-for-home"
	case AwaitingVerification:
		return "awaiting-verification"
	case RegisteredPendingVerification:
		return "registered-pending-verification"
	case FederatedSignInFailed:
		return "federated-sign-in-failed"
	case SignedOut:
		return "signed-out"
	case PasswordResetSent:
		return "password-reset-sent"
	default:
		return "none"
	}
}

// Result is the outcome of a manager operation.
//
// VerificationSent is set when the operation asked the provider for a verification email and the
// request succeeded.
type Result struct {
	Signal           Signal
	State            models.State
	Identity         *models.Identity
	VerificationSent bool
}

// Cache is the durable session flag written by the [Manager].
type Cache interface {
	Authenticated() bool
	Snapshot() session.Snapshot
	SetAuthenticated(identity *models.Identity) error
	Reset() error
}

// FederatedResult is what a third-party sign-in flow produced: a token, a cancellation, or an error.
type FederatedResult struct {
	Token    string
	Canceled bool
	Err      error
}

// Manager runs the authentication state machine.
//
// It is the only caller of the [services.Provider] and the only writer of the [Cache].
// Every sign-out increments an epoch; provider results obtained under an older epoch are dropped.
type Manager struct {
	provider services.Provider
	cache    Cache
	logger   *log.Logger

	mu       sync.Mutex
	state    models.State
	identity *models.Identity
	epoch    uint64
}

// NewManager creates a manager in the [models.Anonymous] state.
func NewManager(provider services.Provider, cache Cache, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		provider: provider,
		cache:    cache,
		logger:   logger,
		state:    models.Anonymous,
	}
}

// State returns the in-memory session state.
func (m *Manager) State() models.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the in-memory identity, or nil.
func (m *Manager) Identity() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyIdentity(m.identity)
}

// CurrentRouteHint reads the cached flag for cold-start routing only. It performs no I/O and
// must not be used to admit the user to protected screens.
func (m *Manager) CurrentRouteHint() models.State {
	if m.cache.Authenticated() {
		return models.Authenticated
	}
	return models.Anonymous
}

// SignIn validates credentials locally, signs in with the provider, then runs [Manager.EnsureVerified].
//
// A provider failure is returned as an [*AuthError] and leaves the state as it was.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Result, error) {
	email = normalizeEmail(email)
	if err := validateSignIn(email, password); err != nil {
		return m.result(NoSignal), err
	}

	prev, epoch := m.begin()
	identity, err := m.provider.SignInWithPassword(ctx, email, password)
	if errors.Is(err, shared.ErrReconciliationDiscarded) {
		m.logger.Debug("discarding sign-in that raced a sign out", "email", email)
		return m.result(NoSignal), err
	}
	if err != nil {
		m.abort(prev, epoch)
		classified := Classify(err)
		m.logger.Warn("sign in failed", "email", email, "kind", classified.Kind)
		return m.result(NoSignal), classified
	}

	if err := m.adopt(epoch, identity, models.PendingVerification); err != nil {
		m.abort(prev, epoch)
		return m.result(NoSignal), err
	}

	m.logger.Info("signed in", "email", email)
	return m.EnsureVerified(ctx)
}

// EnsureVerified reloads the identity and branches on its verification flag.
//
// Verified (or federated) identities set the cache and signal [ReadyForHome]. Unverified ones get a
// best-effort verification email and signal [AwaitingVerification]. If a sign-out happens while the
// reload is in flight, the result is discarded with [shared.ErrReconciliationDiscarded].
func (m *Manager) EnsureVerified(ctx context.Context) (Result, error) {
	identity, epoch := m.snapshot()
	if identity == nil {
		return m.result(NoSignal), shared.ErrNotAuthenticated
	}

	reloaded, err := m.provider.ReloadIdentity(ctx, identity)
	if err != nil {
		return m.result(NoSignal), Classify(err)
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debug("discarding stale reconciliation", "uid", reloaded.UID)
		return m.result(NoSignal), shared.ErrReconciliationDiscarded
	}

	if reloaded.Trusted() {
		if err := m.cache.SetAuthenticated(reloaded); err != nil {
			m.mu.Unlock()
			return m.result(NoSignal), fmt.Errorf("failed to persist session: %w", err)
		}
		m.identity = reloaded
		m.state = models.Authenticated
		m.mu.Unlock()

		m.logger.Info("session authenticated", "email", reloaded.Email)
		return Result{Signal: ReadyForHome, State: models.Authenticated, Identity: copyIdentity(reloaded)}, nil
	}

	if m.cache.Authenticated() {
		if err := m.cache.Reset(); err != nil {
			m.mu.Unlock()
			return m.result(NoSignal), fmt.Errorf("failed to clear session: %w", err)
		}
	}
	m.identity = reloaded
	m.state = models.AwaitingVerification
	m.mu.Unlock()

	sent := m.sendVerification(ctx, reloaded)
	return Result{
		Signal:           AwaitingVerification,
		State:            models.AwaitingVerification,
		Identity:         copyIdentity(reloaded),
		VerificationSent: sent,
	}, nil
}

// SignUp validates input locally and creates an account.
//
// On success a verification email is requested (best-effort) and [RegisteredPendingVerification]
// is signaled. The cache is not set: the user must verify and sign in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (Result, error) {
	email = normalizeEmail(email)
	if err := validateSignUp(email, password); err != nil {
		return m.result(NoSignal), err
	}

	prev, epoch := m.begin()
	identity, err := m.provider.CreateAccount(ctx, email, password)
	if errors.Is(err, shared.ErrReconciliationDiscarded) {
		m.logger.Debug("discarding sign-in that raced a sign out", "email", email)
		return m.result(NoSignal), err
	}
	if err != nil {
		m.abort(prev, epoch)
		classified := Classify(err)
		m.logger.Warn("sign up failed", "email", email, "kind", classified.Kind)
		return m.result(NoSignal), classified
	}

	if err := m.adopt(epoch, identity, models.PendingVerification); err != nil {
		m.abort(prev, epoch)
		return m.result(NoSignal), err
	}

	m.logger.Info("account created", "email", email)
	sent := m.sendVerification(ctx, identity)
	return Result{
		Signal:           RegisteredPendingVerification,
		State:            models.PendingVerification,
		Identity:         copyIdentity(identity),
		VerificationSent: sent,
	}, nil
}

// CompleteFederatedSignIn finishes a third-party sign-in.
//
// A token is exchanged with the provider and the resulting identity is trusted without an email
// check. Cancellation or any failure signals [FederatedSignInFailed] and changes nothing.
func (m *Manager) CompleteFederatedSignIn(ctx context.Context, fr FederatedResult) (Result, error) {
	if fr.Canceled || fr.Err != nil || fr.Token == "" {
		err := fr.Err
		if err == nil {
			err = shared.ErrFederatedCanceled
		}
		m.logger.Info("federated sign-in not completed", "err", err)
		return m.result(FederatedSignInFailed), err
	}

	prev, epoch := m.begin()
	identity, err := m.provider.ExchangeFederatedToken(ctx, fr.Token)
	if errors.Is(err, shared.ErrReconciliationDiscarded) {
		m.logger.Debug("discarding federated sign-in that raced a sign out")
		return m.result(FederatedSignInFailed), err
	}
	if err != nil {
		m.abort(prev, epoch)
		classified := Classify(err)
		m.logger.Warn("federated exchange failed", "kind", classified.Kind)
		return m.result(FederatedSignInFailed), classified
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return m.result(FederatedSignInFailed), shared.ErrReconciliationDiscarded
	}

	if err := m.cache.SetAuthenticated(identity); err != nil {
		m.state = prev
		m.mu.Unlock()
		return m.result(FederatedSignInFailed), fmt.Errorf("failed to persist session: %w", err)
	}
	m.identity = identity
	m.state = models.Authenticated
	m.mu.Unlock()

	m.logger.Info("federated sign-in complete", "email", identity.Email, "provider", identity.ProviderID)
	return Result{Signal: ReadyForHome, State: models.Authenticated, Identity: copyIdentity(identity)}, nil
}

// SignOut clears the identity and the cache and invalidates in-flight reconciliation. Idempotent.
//
// The cache is cleared even if the provider sign-out fails; that failure is returned.
func (m *Manager) SignOut(ctx context.Context) (Result, error) {
	m.mu.Lock()
	m.epoch++
	m.identity = nil
	m.state = models.Anonymous
	cacheErr := m.cache.Reset()
	m.mu.Unlock()

	providerErr := m.provider.SignOut(ctx)
	if providerErr != nil {
		m.logger.Warn("provider sign out failed", "err", providerErr)
	}

	if cacheErr != nil {
		return Result{Signal: SignedOut, State: models.Anonymous}, fmt.Errorf("failed to clear session: %w", cacheErr)
	}

	m.logger.Info("signed out")
	return Result{Signal: SignedOut, State: models.Anonymous}, providerErr
}

// Restore loads the provider's persisted session into memory at process start.
//
// It does not consult or change the cache. Call [Manager.Reconcile] before trusting it.
func (m *Manager) Restore(ctx context.Context) (Result, error) {
	_, epoch := m.snapshot()

	identity, err := m.provider.CurrentIdentity(ctx)
	if err != nil {
		return m.result(NoSignal), Classify(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch || identity == nil {
		return Result{State: m.state}, nil
	}

	m.identity = identity
	if m.state == models.Anonymous {
		m.state = models.PendingVerification
	}
	return Result{State: m.state, Identity: copyIdentity(identity)}, nil
}

// Reconcile re-checks the remote identity before a sensitive read.
//
// No identity or a rejected identity while the cache is set resets the session. Network failures
// are returned without touching the cache. An unverified identity moves to
// [models.AwaitingVerification] without resending the email.
func (m *Manager) Reconcile(ctx context.Context) (Result, error) {
	if _, err := m.Restore(ctx); err != nil {
		return m.reconcileFailure(ctx, err)
	}

	identity, epoch := m.snapshot()
	if identity == nil {
		if m.cache.Authenticated() {
			m.logger.Warn("cached session has no identity; resetting")
			return m.reset(ctx, epoch, shared.ErrSessionExpired)
		}
		return m.result(NoSignal), nil
	}

	reloaded, err := m.provider.ReloadIdentity(ctx, identity)
	if err != nil {
		return m.reconcileFailure(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return Result{State: m.state}, shared.ErrReconciliationDiscarded
	}

	m.identity = reloaded
	if reloaded.Trusted() {
		if err := m.cache.SetAuthenticated(reloaded); err != nil {
			return Result{State: m.state}, fmt.Errorf("failed to persist session: %w", err)
		}
		m.state = models.Authenticated
		return Result{Signal: ReadyForHome, State: m.state, Identity: copyIdentity(reloaded)}, nil
	}

	if m.cache.Authenticated() {
		if err := m.cache.Reset(); err != nil {
			return Result{State: m.state}, fmt.Errorf("failed to clear session: %w", err)
		}
	}
	m.state = models.AwaitingVerification
	return Result{Signal: AwaitingVerification, State: m.state, Identity: copyIdentity(reloaded)}, nil
}

// RequestPasswordReset asks the provider to mail a password reset link.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (Result, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return m.result(NoSignal), err
	}

	if err := m.provider.SendPasswordReset(ctx, email); err != nil {
		return m.result(NoSignal), Classify(err)
	}

	m.logger.Info("password reset requested", "email", email)
	return m.result(PasswordResetSent), nil
}

// Profile reconciles and returns the signed-in identity.
//
// A cached session without a provider identity is reset and reported as [shared.ErrSessionExpired].
func (m *Manager) Profile(ctx context.Context) (*models.Identity, error) {
	result, err := m.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	if result.State != models.Authenticated || result.Identity == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return result.Identity, nil
}

// reconcileFailure resets the session when the provider rejected the identity, and otherwise
// returns the classified error with the cache untouched.
func (m *Manager) reconcileFailure(ctx context.Context, err error) (Result, error) {
	classified := Classify(err)
	if classified.Kind != InvalidCredentials {
		return m.result(NoSignal), classified
	}

	_, epoch := m.snapshot()
	m.logger.Warn("provider rejected session; resetting", "reason", classified.Message)
	result, resetErr := m.reset(ctx, epoch, shared.ErrSessionExpired)
	if resetErr != nil && !errors.Is(resetErr, shared.ErrSessionExpired) {
		return result, resetErr
	}
	return result, errors.Join(shared.ErrSessionExpired, classified)
}

// reset signs out on behalf of reconciliation and returns cause unless a newer sign-out won.
func (m *Manager) reset(ctx context.Context, epoch uint64, cause error) (Result, error) {
	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()

	if stale {
		return m.result(NoSignal), shared.ErrReconciliationDiscarded
	}

	result, err := m.SignOut(ctx)
	if err != nil {
		return result, err
	}
	return result, cause
}

// begin enters Authenticating and returns the prior state and the current epoch.
func (m *Manager) begin() (models.State, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	m.state = models.Authenticating
	return prev, m.epoch
}

// abort restores prev unless a sign-out happened meanwhile.
func (m *Manager) abort(prev models.State, epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch == epoch && m.state == models.Authenticating {
		m.state = prev
	}
}

// adopt installs an identity that is not yet trusted unless a sign-out happened meanwhile.
// A cached flag left by an earlier user is cleared, since the new identity has not earned it.
func (m *Manager) adopt(epoch uint64, identity *models.Identity, state models.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return shared.ErrReconciliationDiscarded
	}
	if m.cache.Authenticated() {
		if err := m.cache.Reset(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	m.identity = identity
	m.state = state
	return nil
}

func (m *Manager) snapshot() (*models.Identity, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyIdentity(m.identity), m.epoch
}

func (m *Manager) result(signal Signal) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Result{Signal: signal, State: m.state, Identity: copyIdentity(m.identity)}
}

func (m *Manager) sendVerification(ctx context.Context, identity *models.Identity) bool {
	if err := m.provider.SendVerificationEmail(ctx, identity); err != nil {
		m.logger.Warn("failed to send verification email", "email", identity.Email, "err", err)
		return false
	}
	m.logger.Info("verification email sent", "email", identity.Email)
	return true
}

func copyIdentity(identity *models.Identity) *models.Identity {
	if identity == nil {
		return nil
	}
	c := *identity
	return &c
}
