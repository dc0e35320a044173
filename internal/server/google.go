package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	defaultFlowTimeout = 2 * time.Minute
)

// GoogleFlow runs the Google authorization code flow with a loopback callback server.
type GoogleFlow struct {
	config  *oauth2.Config
	addr    string
	timeout time.Duration
	logger  *log.Logger

	// Open presents the consent URL to the user. Defaults to [shared.OpenBrowser].
	Open func(url string) error
	// OnAuthURL is called with the consent URL when Open fails, so it can be shown instead.
	OnAuthURL func(url string)
}

// NewGoogleFlow creates a flow from the [google] config section.
func NewGoogleFlow(config shared.GoogleConfig, logger *log.Logger) *GoogleFlow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &GoogleFlow{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
		addr:    config.CallbackAddr,
		timeout: defaultFlowTimeout,
		logger:  logger,
		Open:    shared.OpenBrowser,
	}
}

// WithEndpoint overrides the authorization server endpoints.
func (f *GoogleFlow) WithEndpoint(endpoint oauth2.Endpoint) *GoogleFlow {
	f.config.Endpoint = endpoint
	return f
}

// WithTimeout overrides how long Run waits for the callback.
func (f *GoogleFlow) WithTimeout(d time.Duration) *GoogleFlow {
	f.timeout = d
	return f
}

// AuthURL returns the consent page URL for state.
func (f *GoogleFlow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Run opens the consent page and waits for the callback.
//
// The outcome is always expressed as an [auth.FederatedResult]: an id token, a cancellation
// (user declined or ctx ended), or an error.
func (f *GoogleFlow) Run(ctx context.Context) auth.FederatedResult {
	if f.config.ClientID == "" {
		return auth.FederatedResult{Err: fmt.Errorf("%w: google.client_id is not set", shared.ErrMissingCredentials)}
	}

	state := shared.GenerateID()
	handler := NewOAuthHandler(f.config, state)
	router := NewBasicRouter()
	router.Use(RequestLogger(f.logger))
	router.Handler(handler)

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return auth.FederatedResult{Err: fmt.Errorf("failed to listen on %s: %w", f.addr, err)}
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		f.logger.Info("starting OAuth callback server", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			f.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := f.AuthURL(state)
	if err := f.Open(authURL); err != nil {
		f.logger.Warn("failed to open browser automatically", "error", err)
		if f.OnAuthURL != nil {
			f.OnAuthURL(authURL)
		}
	}

	timeout := time.NewTimer(f.timeout)
	defer timeout.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return auth.FederatedResult{Err: fmt.Errorf("server error: %w", err)}
	case <-timeout.C:
		return auth.FederatedResult{Err: fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, f.timeout)}
	case <-ctx.Done():
		return auth.FederatedResult{Canceled: true, Err: ctx.Err()}
	}

	switch {
	case result.Canceled:
		return auth.FederatedResult{Canceled: true}
	case result.Error() != nil:
		return auth.FederatedResult{Err: result.Error()}
	default:
		return auth.FederatedResult{Token: result.IDToken}
	}
}
