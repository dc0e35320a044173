package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

const defaultCallbackPath = "/callback"

// OAuthResult contains the result of an OAuth authorization flow.
//
// Canceled is set when the user declined consent.
type OAuthResult struct {
	Token    *oauth2.Token
	IDToken  string
	Canceled bool
	err      error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the OAuth2 authorization code callback.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler with the given OAuth2 config and state token.
// The state token should be random per flow for CSRF protection.
//
// The callback path is taken from config.RedirectURL.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	path := defaultCallbackPath
	if u, err := url.Parse(config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}

	return &OAuthHandler{
		config:     config,
		state:      state,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state, treats access_denied as a cancellation, exchanges the code for tokens, and sends
// the result through the result channel. Only the first callback is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		errParam := query.Get("error")
		if errParam == "access_denied" {
			h.Send(OAuthResult{Canceled: true})
			writePage(w, http.StatusOK, "Sign-in canceled", "You can close this window and return to the terminal.")
			return
		}

		err := fmt.Errorf("authorization failed: %s - %s", errParam, query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		h.Send(OAuthResult{Token: token, err: fmt.Errorf("token response has no id_token")})
		http.Error(w, "Missing id_token", http.StatusBadGateway)
		return
	}

	h.Send(OAuthResult{Token: token, IDToken: idToken})
	writePage(w, http.StatusOK, "✓ Signed in to Rize", "You can close this window and return to the terminal.")
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; display: grid; place-items: center; height: 100vh; margin: 0; background: #faf7ff; }
main { text-align: center; }
h1 { color: #7c3aed; }
</style>
</head>
<body><main><h1>{{.Title}}</h1><p>{{.Message}}</p></main></body>
</html>
`))

func writePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, struct{ Title, Message string }{title, message})
}
