// Identity Toolkit REST implementation of [Provider]
//
// Request and response shapes follow https://cloud.google.com/identity-platform/docs/use-rest-api
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultIdentityBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL  = "https://securetoken.googleapis.com/v1"

	// GoogleProviderID is the provider id of identities created through Google sign-in.
	GoogleProviderID = "google.com"

	defaultTokenLifetime = time.Hour
	federatedRequestURI  = "http://localhost"
)

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	ProviderID    string `json:"providerId"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type providerUserInfo struct {
	ProviderID string `json:"providerId"`
}

type lookupUser struct {
	LocalID          string             `json:"localId"`
	Email            string             `json:"email"`
	EmailVerified    bool               `json:"emailVerified"`
	ProviderUserInfo []providerUserInfo `json:"providerUserInfo"`
}

type lookupResponse struct {
	Users []lookupUser `json:"users"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	IDToken     string `json:"idToken,omitempty"`
	Email       string `json:"email,omitempty"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityToolkitService implements [Provider] against the Identity Toolkit REST API.
//
// Outbound requests share one [rate.Limiter]. The provider session (tokens) is mirrored to a
// JSON file so it survives restarts; that file is independent of the device session cache.
type IdentityToolkitService struct {
	apiKey         string
	baseURL        string
	secureTokenURL string
	httpClient     *http.Client
	limiter        *rate.Limiter
	session        sessionFile
	logger         *log.Logger
	now            func() time.Time

	mu       sync.Mutex
	current  *models.Identity
	signOuts uint64
}

// NewIdentityToolkitService creates a provider client from config.
//
// sessionPath may be empty to keep the provider session in memory only. A nil client gets one
// with the configured timeout.
func NewIdentityToolkitService(config shared.IdentityConfig, sessionPath string, client *http.Client, logger *log.Logger) *IdentityToolkitService {
	if client == nil {
		client = &http.Client{Timeout: config.Timeout()}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultIdentityBaseURL
	}

	secureTokenURL := strings.TrimSuffix(config.SecureTokenURL, "/")
	if secureTokenURL == "" {
		secureTokenURL = defaultSecureTokenURL
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := max(config.Burst, 1)

	return &IdentityToolkitService{
		apiKey:         config.APIKey,
		baseURL:        baseURL,
		secureTokenURL: secureTokenURL,
		httpClient:     client,
		limiter:        rate.NewLimiter(limit, burst),
		session:        sessionFile{path: sessionPath},
		logger:         logger,
		now:            time.Now,
	}
}

// SignInWithPassword calls accounts:signInWithPassword. The returned identity does not carry
// the verification flag; callers reload it to learn EmailVerified.
func (s *IdentityToolkitService) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	gen := s.generation()
	var resp tokenResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := s.post(ctx, s.accountsURL("signInWithPassword"), req, &resp); err != nil {
		return nil, err
	}

	identity := s.identityFromToken(resp, models.PasswordProviderID)
	if err := s.setCurrent(gen, identity); err != nil {
		return nil, err
	}

	s.logger.Debug("signed in with password", "uid", identity.UID)
	return clone(identity), nil
}

// CreateAccount calls accounts:signUp.
func (s *IdentityToolkitService) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	gen := s.generation()
	var resp tokenResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := s.post(ctx, s.accountsURL("signUp"), req, &resp); err != nil {
		return nil, err
	}

	identity := s.identityFromToken(resp, models.PasswordProviderID)
	if err := s.setCurrent(gen, identity); err != nil {
		return nil, err
	}

	s.logger.Debug("account created", "uid", identity.UID)
	return clone(identity), nil
}

// ReloadIdentity calls accounts:lookup, refreshing the id token first when it has expired.
//
// The provider session is only updated if it still belongs to the same user, so a sign-out that
// raced with the reload is not undone.
func (s *IdentityToolkitService) ReloadIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if identity == nil {
		return nil, shared.ErrNotAuthenticated
	}

	fresh, err := s.freshToken(ctx, identity)
	if err != nil {
		return nil, err
	}

	var resp lookupResponse
	if err := s.post(ctx, s.accountsURL("lookup"), lookupRequest{IDToken: fresh.IDToken}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Users) == 0 {
		return nil, NewProviderError(http.StatusBadRequest, "USER_NOT_FOUND")
	}

	user := resp.Users[0]
	fresh.Email = user.Email
	fresh.EmailVerified = user.EmailVerified
	if fresh.ProviderID == "" {
		fresh.ProviderID = models.PasswordProviderID
		for _, info := range user.ProviderUserInfo {
			if info.ProviderID != "" {
				fresh.ProviderID = info.ProviderID
				break
			}
		}
	}

	if err := s.replaceCurrent(fresh); err != nil {
		return nil, err
	}

	return clone(fresh), nil
}

// SendVerificationEmail calls accounts:sendOobCode with VERIFY_EMAIL.
func (s *IdentityToolkitService) SendVerificationEmail(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return shared.ErrNotAuthenticated
	}

	fresh, err := s.freshToken(ctx, identity)
	if err != nil {
		return err
	}

	req := oobRequest{RequestType: "VERIFY_EMAIL", IDToken: fresh.IDToken}
	if err := s.post(ctx, s.accountsURL("sendOobCode"), req, nil); err != nil {
		return err
	}

	s.logger.Debug("verification email requested", "uid", identity.UID)
	return nil
}

// SendPasswordReset calls accounts:sendOobCode with PASSWORD_RESET.
func (s *IdentityToolkitService) SendPasswordReset(ctx context.Context, email string) error {
	req := oobRequest{RequestType: "PASSWORD_RESET", Email: email}
	return s.post(ctx, s.accountsURL("sendOobCode"), req, nil)
}

// ExchangeFederatedToken calls accounts:signInWithIdp with a Google id token.
func (s *IdentityToolkitService) ExchangeFederatedToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: federated token is empty", shared.ErrInvalidInput)
	}

	postBody := url.Values{"id_token": {token}, "providerId": {GoogleProviderID}}
	req := idpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          federatedRequestURI,
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}

	gen := s.generation()
	var resp tokenResponse
	if err := s.post(ctx, s.accountsURL("signInWithIdp"), req, &resp); err != nil {
		return nil, err
	}

	identity := s.identityFromToken(resp, GoogleProviderID)
	if err := s.setCurrent(gen, identity); err != nil {
		return nil, err
	}

	s.logger.Debug("federated sign-in exchanged", "uid", identity.UID, "provider", identity.ProviderID)
	return clone(identity), nil
}

// CurrentIdentity returns the in-memory session, loading it from disk on first use.
// An expired id token is refreshed before returning.
func (s *IdentityToolkitService) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	s.mu.Lock()
	if s.current == nil {
		loaded, err := s.session.Load()
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.current = loaded
	}
	current := clone(s.current)
	s.mu.Unlock()

	if current == nil {
		return nil, nil
	}

	return s.freshToken(ctx, current)
}

// SignOut forgets the provider session in memory and on disk.
func (s *IdentityToolkitService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signOuts++
	s.current = nil
	if err := s.session.Remove(); err != nil {
		return fmt.Errorf("failed to remove provider session: %w", err)
	}
	return nil
}

func (s *IdentityToolkitService) accountsURL(method string) string {
	return fmt.Sprintf("%s/accounts:%s?key=%s", s.baseURL, method, url.QueryEscape(s.apiKey))
}

func (s *IdentityToolkitService) identityFromToken(resp tokenResponse, fallbackProvider string) *models.Identity {
	providerID := resp.ProviderID
	if providerID == "" {
		providerID = fallbackProvider
	}

	return &models.Identity{
		UID:           resp.LocalID,
		Email:         resp.Email,
		EmailVerified: resp.EmailVerified,
		ProviderID:    providerID,
		IDToken:       resp.IDToken,
		RefreshToken:  resp.RefreshToken,
		ExpiresAt:     s.now().Add(parseLifetime(resp.ExpiresIn)),
	}
}

// freshToken returns identity unchanged while its id token is valid, refreshing it otherwise.
func (s *IdentityToolkitService) freshToken(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	fresh := clone(identity)
	if !fresh.Expired(s.now()) {
		return fresh, nil
	}

	if fresh.RefreshToken == "" {
		return nil, NewProviderError(http.StatusUnauthorized, "TOKEN_EXPIRED")
	}

	if err := s.apiKeyPresent(); err != nil {
		return nil, err
	}

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {fresh.RefreshToken}}
	endpoint := fmt.Sprintf("%s/token?key=%s", s.secureTokenURL, url.QueryEscape(s.apiKey))

	var resp refreshResponse
	if err := s.do(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp); err != nil {
		return nil, err
	}

	fresh.IDToken = resp.IDToken
	if resp.RefreshToken != "" {
		fresh.RefreshToken = resp.RefreshToken
	}
	fresh.ExpiresAt = s.now().Add(parseLifetime(resp.ExpiresIn))

	if err := s.replaceCurrent(fresh); err != nil {
		return nil, err
	}

	s.logger.Debug("id token refreshed", "uid", fresh.UID)
	return fresh, nil
}

// generation identifies the sign-out epoch a sign-in request started in.
func (s *IdentityToolkitService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOuts
}

// setCurrent installs identity as the provider session unless a sign-out happened after gen
// was taken. A sign-in that raced a sign-out is dropped rather than written back to disk.
func (s *IdentityToolkitService) setCurrent(gen uint64, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signOuts != gen {
		s.logger.Debug("dropping sign-in that finished after sign out", "uid", identity.UID)
		return fmt.Errorf("%w: signed out while signing in", shared.ErrReconciliationDiscarded)
	}

	s.current = clone(identity)
	return s.session.Save(s.current)
}

// replaceCurrent updates the provider session only when it still belongs to identity's user.
func (s *IdentityToolkitService) replaceCurrent(identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.UID != identity.UID {
		return nil
	}

	s.current = clone(identity)
	return s.session.Save(s.current)
}

func (s *IdentityToolkitService) apiKeyPresent() error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: identity.api_key is not set", shared.ErrMissingCredentials)
	}
	return nil
}

// post sends body as JSON and decodes a successful response into out (which may be nil).
func (s *IdentityToolkitService) post(ctx context.Context, endpoint string, body any, out any) error {
	if err := s.apiKeyPresent(); err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return s.do(ctx, endpoint, "application/json", bytes.NewReader(data), out)
}

func (s *IdentityToolkitService) do(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrTransport, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error.Message == "" {
		return NewProviderError(status, http.StatusText(status))
	}
	return NewProviderError(status, resp.Error.Message)
}

// parseLifetime reads an expiresIn value (seconds, as a string).
func parseLifetime(s string) time.Duration {
	seconds, err := strconv.Atoi(s)
	if err != nil || seconds <= 0 {
		return defaultTokenLifetime
	}
	return time.Duration(seconds) * time.Second
}

func clone(identity *models.Identity) *models.Identity {
	if identity == nil {
		return nil
	}
	c := *identity
	return &c
}
