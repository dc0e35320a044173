package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/navigation"
	"github.com/desertthunder/rize/internal/repositories"
	"github.com/desertthunder/rize/internal/session"
	"github.com/desertthunder/rize/internal/shared"
	tu "github.com/desertthunder/rize/internal/testing"
)

type fixture struct {
	model    *Model
	provider *tu.MockProvider
	cache    *session.FileCache
	store    *repositories.ListStore
}

func setupModel(t *testing.T, google FederatedFlow) *fixture {
	t.Helper()

	store, err := repositories.OpenListStore(shared.DatabaseConfig{
		NotesPath: shared.MemoryDatabase,
		TasksPath: shared.MemoryDatabase,
	}, nil)
	if err != nil {
		t.Fatalf("failed to open list store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	provider := &tu.MockProvider{}
	cache := session.NewMemoryCache()
	manager := auth.NewManager(provider, cache, nil)

	return &fixture{
		model:    NewModel(context.Background(), manager, store, google),
		provider: provider,
		cache:    cache,
		store:    store,
	}
}

// run executes cmd and feeds resulting messages back until the model settles.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 10 {
		if cmd == nil {
			return
		}
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
	t.Fatal("model did not settle")
}

func press(t *testing.T, m *Model, k tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(k)
	run(t, m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	ctrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
	ctrlF = tea.KeyMsg{Type: tea.KeyCtrlF}
	ctrlG = tea.KeyMsg{Type: tea.KeyCtrlG}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

func fillForm(m *Model, values ...string) {
	for i, v := range values {
		m.form[i].SetValue(v)
	}
}

// signedIn drives a verified password sign-in through the UI.
func signedIn(t *testing.T, f *fixture) {
	t.Helper()

	f.provider.SignInFunc = func(_ context.Context, email, _ string) (*models.Identity, error) {
		return tu.NewIdentity(email, true), nil
	}

	run(t, f.model, f.model.Init())
	press(t, f.model, runes("s"))
	fillForm(f.model, "user@example.com", "secret1")
	press(t, f.model, enter)

	if f.model.Screen() != navigation.Home {
		t.Fatalf("expected Home after sign in, got %v (err %q)", f.model.Screen(), f.model.err)
	}
}

func TestColdStart(t *testing.T) {
	t.Run("anonymous starts on guest", func(t *testing.T) {
		f := setupModel(t, nil)

		if cmd := f.model.Init(); cmd != nil {
			t.Error("expected no command for an anonymous cold start")
		}
		if f.model.Screen() != navigation.Guest {
			t.Errorf("expected Guest, got %v", f.model.Screen())
		}
		if f.provider.TotalCalls() != 0 {
			t.Error("expected no provider calls")
		}
	})

	t.Run("cached session is reconciled before home", func(t *testing.T) {
		f := setupModel(t, nil)
		identity := tu.NewIdentity("user@example.com", true)
		if err := f.cache.SetAuthenticated(identity); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}
		f.provider.CurrentFunc = func(context.Context) (*models.Identity, error) { return identity, nil }

		cmd := f.model.Init()
		if f.model.Screen() != navigation.Splash {
			t.Fatalf("expected Splash while reconciling, got %v", f.model.Screen())
		}
		run(t, f.model, cmd)

		if f.model.Screen() != navigation.Home {
			t.Errorf("expected Home, got %v", f.model.Screen())
		}
		if f.provider.Calls("ReloadIdentity") != 1 {
			t.Errorf("expected one reload, got %d", f.provider.Calls("ReloadIdentity"))
		}
	})

	t.Run("stale cache goes to sign in", func(t *testing.T) {
		f := setupModel(t, nil)
		if err := f.cache.SetAuthenticated(tu.NewIdentity("user@example.com", true)); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		run(t, f.model, f.model.Init())

		if f.model.Screen() != navigation.SignIn {
			t.Errorf("expected SignIn, got %v", f.model.Screen())
		}
		if f.model.err != "Unexpected error. Please log in again." {
			t.Errorf("unexpected error message %q", f.model.err)
		}
		if f.cache.Authenticated() {
			t.Error("expected cache to be reset")
		}
	})
}

func TestSignInScreen(t *testing.T) {
	t.Run("empty fields never reach the provider", func(t *testing.T) {
		f := setupModel(t, nil)
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		press(t, f.model, enter)

		if f.model.err != "Please enter email and password" {
			t.Errorf("unexpected error %q", f.model.err)
		}
		if f.provider.TotalCalls() != 0 {
			t.Error("expected no provider calls")
		}
	})

	t.Run("unverified then verified", func(t *testing.T) {
		f := setupModel(t, nil)
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		fillForm(f.model, "user@example.com", "secret1")
		press(t, f.model, enter)

		if f.model.Screen() != navigation.SignIn {
			t.Fatalf("expected to stay on SignIn, got %v", f.model.Screen())
		}
		if !strings.Contains(f.model.status, "Verification email sent to user@example.com") {
			t.Errorf("unexpected status %q", f.model.status)
		}

		f.provider.ReloadFunc = func(_ context.Context, identity *models.Identity) (*models.Identity, error) {
			c := *identity
			c.EmailVerified = true
			return &c, nil
		}
		press(t, f.model, ctrlR)

		if f.model.Screen() != navigation.Home {
			t.Errorf("expected Home, got %v", f.model.Screen())
		}
		if !f.cache.Authenticated() {
			t.Error("expected cache to be set")
		}
	})

	t.Run("provider rejection", func(t *testing.T) {
		f := setupModel(t, nil)
		f.provider.SignInFunc = func(context.Context, string, string) (*models.Identity, error) {
			return nil, errors.New("INVALID_LOGIN_CREDENTIALS")
		}
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		fillForm(f.model, "user@example.com", "wrong")
		press(t, f.model, enter)

		if f.model.Screen() != navigation.SignIn || f.model.err == "" {
			t.Errorf("expected an error on SignIn, got %v %q", f.model.Screen(), f.model.err)
		}
	})

	t.Run("tab moves focus", func(t *testing.T) {
		f := setupModel(t, nil)
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		press(t, f.model, tab)

		if f.model.focus != 1 || !f.model.form[1].Focused() || f.model.form[0].Focused() {
			t.Errorf("expected password field focused, got %d", f.model.focus)
		}
	})

	t.Run("forgot password", func(t *testing.T) {
		f := setupModel(t, nil)
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		fillForm(f.model, "user@example.com")
		press(t, f.model, ctrlF)

		if f.model.Screen() != navigation.ForgotPassword {
			t.Fatalf("expected ForgotPassword, got %v", f.model.Screen())
		}
		if f.model.formValue(0) != "user@example.com" {
			t.Errorf("expected email to carry over, got %q", f.model.formValue(0))
		}

		press(t, f.model, enter)
		if f.model.Screen() != navigation.SignIn || f.model.status != "Password reset email sent." {
			t.Errorf("expected SignIn with reset status, got %v %q", f.model.Screen(), f.model.status)
		}
		if f.provider.Calls("SendPasswordReset") != 1 {
			t.Error("expected one password reset request")
		}
	})
}

func TestSignUpScreen(t *testing.T) {
	f := setupModel(t, nil)
	run(t, f.model, f.model.Init())
	press(t, f.model, runes("u"))

	fillForm(f.model, "bad", "123")
	press(t, f.model, enter)
	if f.model.err != "Invalid email format" {
		t.Errorf("expected headline email error, got %q", f.model.err)
	}

	fillForm(f.model, "new@example.com", "secret1")
	press(t, f.model, enter)

	if f.model.Screen() != navigation.SignIn {
		t.Errorf("expected SignIn after registering, got %v", f.model.Screen())
	}
	if !strings.HasPrefix(f.model.status, "Account created.") {
		t.Errorf("unexpected status %q", f.model.status)
	}
	if f.cache.Authenticated() {
		t.Error("sign up must not set the cache")
	}
}

func TestGoogleSignIn(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := setupModel(t, nil)
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("g"))

		if f.model.err != "Google sign-in is not configured." {
			t.Errorf("unexpected error %q", f.model.err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		f := setupModel(t, func(context.Context) auth.FederatedResult {
			return auth.FederatedResult{Canceled: true}
		})
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("s"))
		press(t, f.model, ctrlG)

		if f.model.Screen() != navigation.SignIn {
			t.Errorf("expected to stay on SignIn, got %v", f.model.Screen())
		}
		if f.model.err != "Google sign-in was canceled." {
			t.Errorf("unexpected error %q", f.model.err)
		}
		if f.provider.Calls("ExchangeFederatedToken") != 0 {
			t.Error("expected no token exchange")
		}
	})

	t.Run("success", func(t *testing.T) {
		f := setupModel(t, func(context.Context) auth.FederatedResult {
			return auth.FederatedResult{Token: "google-id-token"}
		})
		run(t, f.model, f.model.Init())
		press(t, f.model, runes("g"))

		if f.model.Screen() != navigation.Home {
			t.Errorf("expected Home, got %v", f.model.Screen())
		}
		if !strings.Contains(f.model.status, "federated@example.com") {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})
}

func TestListScreens(t *testing.T) {
	t.Run("notes newest first", func(t *testing.T) {
		f := setupModel(t, nil)
		signedIn(t, f)
		press(t, f.model, runes("n"))

		if f.model.Screen() != navigation.Notes {
			t.Fatalf("expected Notes, got %v", f.model.Screen())
		}

		for _, text := range []string{"first", "second"} {
			f.model.composer.SetValue(text)
			press(t, f.model, enter)
		}

		items := f.model.records.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].(recordItem).record.Text != "second" {
			t.Errorf("expected newest note first, got %q", items[0].(recordItem).record.Text)
		}
		if f.model.composer.Value() != "" {
			t.Error("expected composer to be cleared")
		}
	})

	t.Run("tasks in insertion order", func(t *testing.T) {
		f := setupModel(t, nil)
		signedIn(t, f)
		press(t, f.model, runes("t"))

		for _, text := range []string{"first", "second"} {
			f.model.composer.SetValue(text)
			press(t, f.model, enter)
		}

		items := f.model.records.Items()
		if len(items) != 2 || items[0].(recordItem).record.Text != "first" {
			t.Errorf("expected tasks in insertion order, got %v", items)
		}
	})

	t.Run("blank entry", func(t *testing.T) {
		f := setupModel(t, nil)
		signedIn(t, f)
		press(t, f.model, runes("n"))
		f.model.composer.SetValue("   ")
		press(t, f.model, enter)

		if f.model.err != "Please enter some text." {
			t.Errorf("unexpected error %q", f.model.err)
		}
		if n, _ := f.store.Count(context.Background(), models.Note); n != 0 {
			t.Errorf("expected no records, got %d", n)
		}
	})

	t.Run("esc returns home", func(t *testing.T) {
		f := setupModel(t, nil)
		signedIn(t, f)
		press(t, f.model, runes("t"))
		press(t, f.model, esc)

		if f.model.Screen() != navigation.Home {
			t.Errorf("expected Home, got %v", f.model.Screen())
		}
	})
}

func TestNavigationGuard(t *testing.T) {
	f := setupModel(t, nil)
	run(t, f.model, f.model.Init())

	for _, dest := range []navigation.Destination{navigation.Notes, navigation.Tasks, navigation.Profile, navigation.Home} {
		run(t, f.model, f.model.navigate(dest))
		if f.model.Screen() != navigation.SignIn {
			t.Errorf("expected %v to redirect to SignIn, got %v", dest, f.model.Screen())
		}
	}
}

func TestProfileAndSignOut(t *testing.T) {
	f := setupModel(t, nil)
	signedIn(t, f)

	press(t, f.model, runes("p"))
	if f.model.Screen() != navigation.Profile {
		t.Fatalf("expected Profile, got %v", f.model.Screen())
	}
	if f.model.identity == nil || f.model.identity.Email != "user@example.com" {
		t.Fatalf("expected profile identity, got %+v", f.model.identity)
	}
	if !strings.Contains(f.model.View(), "user@example.com") {
		t.Error("expected email in profile view")
	}

	press(t, f.model, runes("o"))
	if f.model.Screen() != navigation.Guest {
		t.Errorf("expected Guest after sign out, got %v", f.model.Screen())
	}
	if f.cache.Authenticated() {
		t.Error("expected cache to be cleared")
	}
}

func TestBusyIgnoresKeys(t *testing.T) {
	f := setupModel(t, nil)
	run(t, f.model, f.model.Init())
	press(t, f.model, runes("s"))
	fillForm(f.model, "user@example.com", "secret1")

	_, cmd := f.model.Update(enter)
	if cmd == nil || !f.model.busy {
		t.Fatal("expected a pending sign-in")
	}

	if _, extra := f.model.Update(esc); extra != nil || f.model.Screen() != navigation.SignIn {
		t.Error("expected keys to be ignored while busy")
	}

	if _, quit := f.model.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); quit == nil {
		t.Error("expected ctrl+c to quit while busy")
	}
}
