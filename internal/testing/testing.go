// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/rize/internal/models"
)

// MockProvider is a test double for [services.Provider].
//
// Each method delegates to its func field when set and otherwise succeeds with a plausible value.
// Calls are counted per method name.
type MockProvider struct {
	SignInFunc            func(ctx context.Context, email, password string) (*models.Identity, error)
	CreateAccountFunc     func(ctx context.Context, email, password string) (*models.Identity, error)
	ReloadFunc            func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	SendVerificationFunc  func(ctx context.Context, identity *models.Identity) error
	SendPasswordResetFunc func(ctx context.Context, email string) error
	ExchangeFunc          func(ctx context.Context, token string) (*models.Identity, error)
	CurrentFunc           func(ctx context.Context) (*models.Identity, error)
	SignOutFunc           func(ctx context.Context) error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProvider) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockProvider) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of calls across all methods.
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	m.record("SignInWithPassword")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return NewIdentity(email, false), nil
}

func (m *MockProvider) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	m.record("CreateAccount")
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, email, password)
	}
	return NewIdentity(email, false), nil
}

func (m *MockProvider) ReloadIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	m.record("ReloadIdentity")
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx, identity)
	}
	c := *identity
	return &c, nil
}

func (m *MockProvider) SendVerificationEmail(ctx context.Context, identity *models.Identity) error {
	m.record("SendVerificationEmail")
	if m.SendVerificationFunc != nil {
		return m.SendVerificationFunc(ctx, identity)
	}
	return nil
}

func (m *MockProvider) SendPasswordReset(ctx context.Context, email string) error {
	m.record("SendPasswordReset")
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockProvider) ExchangeFederatedToken(ctx context.Context, token string) (*models.Identity, error) {
	m.record("ExchangeFederatedToken")
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, token)
	}
	identity := NewIdentity("federated@example.com", true)
	identity.ProviderID = "google.com"
	return identity, nil
}

func (m *MockProvider) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	m.record("CurrentIdentity")
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx)
	}
	return nil, nil
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	m.record("SignOut")
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

// NewIdentity builds a password identity with a token valid for an hour.
func NewIdentity(email string, verified bool) *models.Identity {
	return &models.Identity{
		UID:           "uid-" + email,
		Email:         email,
		EmailVerified: verified,
		ProviderID:    models.PasswordProviderID,
		IDToken:       "id-token",
		RefreshToken:  "refresh-token",
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
