package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/shared"
	"golang.org/x/oauth2"
)

// newTokenServer fakes the OAuth token endpoint.
func newTokenServer(t *testing.T, idToken string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") != "auth-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		body := `{"access_token":"access","token_type":"Bearer","expires_in":3600`
		if idToken != "" {
			body += `,"id_token":"` + idToken + `"`
		}
		w.Write([]byte(body + "}"))
	}))
	t.Cleanup(server.Close)
	return server
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes uses redirect path", func(t *testing.T) {
		config := testOAuthConfig("")
		config.RedirectURL = "http://127.0.0.1:3000/oauth/google"

		if routes := NewOAuthHandler(config, "s").Routes(); len(routes) != 1 || routes[0] != "/oauth/google" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("success returns id token", func(t *testing.T) {
		tokenServer := newTokenServer(t, "google-id-token")
		handler := NewOAuthHandler(testOAuthConfig(tokenServer.URL), "state-1")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=auth-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error %v", result.Error())
		}
		if result.IDToken != "google-id-token" {
			t.Errorf("expected id token, got %q", result.IDToken)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		handler := NewOAuthHandler(testOAuthConfig(""), "expected")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=auth-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-handler.Result(); result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("access denied is a cancellation", func(t *testing.T) {
		handler := NewOAuthHandler(testOAuthConfig(""), "s")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		result := <-handler.Result()
		if !result.Canceled || result.Error() != nil {
			t.Errorf("expected cancellation, got %+v", result)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		handler := NewOAuthHandler(testOAuthConfig(""), "s")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=server_error", nil))

		if result := <-handler.Result(); result.Error() == nil || result.Canceled {
			t.Errorf("expected error result, got %+v", result)
		}
	})

	t.Run("missing id token", func(t *testing.T) {
		tokenServer := newTokenServer(t, "")
		handler := NewOAuthHandler(testOAuthConfig(tokenServer.URL), "s")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=auth-code", nil))

		if result := <-handler.Result(); result.Error() == nil {
			t.Error("expected error when id_token is absent")
		}
	})

	t.Run("only first callback is processed", func(t *testing.T) {
		handler := NewOAuthHandler(testOAuthConfig(""), "s")

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=auth-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Allow"), http.MethodGet) {
			t.Errorf("expected Allow header, got %q", rec.Header().Get("Allow"))
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("request logger omits query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(RequestLogger(logger))
		router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret-code", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret-code") {
			t.Error("authorization code leaked into logs")
		}
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestGoogleFlow(t *testing.T) {
	newFlow := func(t *testing.T, tokenURL string) *GoogleFlow {
		addr := freeAddr(t)
		flow := NewGoogleFlow(shared.GoogleConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURI:  "http://" + addr + "/callback",
			CallbackAddr: addr,
		}, nil)
		flow.WithEndpoint(oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL})
		return flow
	}

	// callback simulates the browser following the consent redirect.
	callback := func(t *testing.T, flow *GoogleFlow, params string) func(string) error {
		return func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			state := u.Query().Get("state")
			go func() {
				resp, err := http.Get(flow.config.RedirectURL + "?state=" + state + "&" + params)
				if err != nil {
					t.Errorf("callback request failed: %v", err)
					return
				}
				resp.Body.Close()
			}()
			return nil
		}
	}

	t.Run("returns id token", func(t *testing.T) {
		tokenServer := newTokenServer(t, "google-id-token")
		flow := newFlow(t, tokenServer.URL)
		flow.Open = callback(t, flow, "code=auth-code")

		result := flow.Run(context.Background())
		if result.Err != nil || result.Canceled {
			t.Fatalf("unexpected result %+v", result)
		}
		if result.Token != "google-id-token" {
			t.Errorf("expected id token, got %q", result.Token)
		}
	})

	t.Run("declined consent", func(t *testing.T) {
		flow := newFlow(t, "")
		flow.Open = callback(t, flow, "error=access_denied")

		if result := flow.Run(context.Background()); !result.Canceled {
			t.Errorf("expected cancellation, got %+v", result)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		flow := newFlow(t, "")
		ctx, cancel := context.WithCancel(context.Background())
		flow.Open = func(string) error {
			cancel()
			return nil
		}

		if result := flow.Run(ctx); !result.Canceled {
			t.Errorf("expected cancellation, got %+v", result)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		flow := newFlow(t, "").WithTimeout(50 * time.Millisecond)
		flow.Open = func(string) error { return nil }

		if result := flow.Run(context.Background()); !errors.Is(result.Err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %+v", result)
		}
	})

	t.Run("browser failure shows url", func(t *testing.T) {
		flow := newFlow(t, "").WithTimeout(50 * time.Millisecond)
		flow.Open = func(string) error { return errors.New("no browser") }

		var shown string
		flow.OnAuthURL = func(u string) { shown = u }

		flow.Run(context.Background())
		if !strings.HasPrefix(shown, "https://accounts.example.com/auth") {
			t.Errorf("expected consent url to be shown, got %q", shown)
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		flow := NewGoogleFlow(shared.GoogleConfig{}, nil)

		if result := flow.Run(context.Background()); !errors.Is(result.Err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %+v", result)
		}
	})

	t.Run("freshly written config has no client id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := shared.CreateConfigFile(path); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		flow := NewGoogleFlow(config.Google, nil)
		opened := false
		flow.Open = func(string) error {
			opened = true
			return nil
		}

		if result := flow.Run(context.Background()); !errors.Is(result.Err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %+v", result)
		}
		if opened {
			t.Error("consent page should not open without a client id")
		}
	})
}
