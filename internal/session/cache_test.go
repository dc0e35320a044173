package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

func TestFileCache(t *testing.T) {
	t.Run("Open creates file with install id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "com.hytek.rize_preferences.toml")

		cache, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		if cache.Authenticated() {
			t.Error("new cache should not be authenticated")
		}

		if cache.Snapshot().InstallID == "" {
			t.Error("expected install id to be generated")
		}

		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected cache file to exist: %v", err)
		}
	})

	t.Run("SetAuthenticated survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")

		cache, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		installID := cache.Snapshot().InstallID

		identity := &models.Identity{UID: "uid-1", Email: "a@b.co", EmailVerified: true}
		if err := cache.SetAuthenticated(identity); err != nil {
			t.Fatalf("SetAuthenticated() error = %v", err)
		}

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}

		snap := reopened.Snapshot()
		if !snap.IsAuthenticated || snap.Email != "a@b.co" || snap.UID != "uid-1" {
			t.Errorf("unexpected snapshot after reopen: %+v", snap)
		}

		if snap.InstallID != installID {
			t.Errorf("install id changed across reopen: %s != %s", snap.InstallID, installID)
		}

		if snap.UpdatedAt.IsZero() {
			t.Error("expected updated_at to be recorded")
		}
	})

	t.Run("Reset keeps install and onboarding data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")

		cache, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		if err := cache.MarkOnboardingSeen(); err != nil {
			t.Fatalf("MarkOnboardingSeen() error = %v", err)
		}
		if err := cache.SetAuthenticated(&models.Identity{UID: "u", Email: "a@b.co"}); err != nil {
			t.Fatalf("SetAuthenticated() error = %v", err)
		}
		if err := cache.Reset(); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}

		snap := reopened.Snapshot()
		if snap.IsAuthenticated || snap.Email != "" || snap.UID != "" {
			t.Errorf("expected cleared session, got %+v", snap)
		}
		if !snap.HasSeenOnboarding {
			t.Error("onboarding flag should survive reset")
		}
	})

	t.Run("file uses documented keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")

		cache, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if err := cache.SetAuthenticated(&models.Identity{UID: "u", Email: "a@b.co"}); err != nil {
			t.Fatalf("SetAuthenticated() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read cache file: %v", err)
		}

		for _, key := range []string{"is_authenticated = true", "email = ", "install_id = ", "updated_at = "} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected %q in cache file:\n%s", key, data)
			}
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")
		if err := os.WriteFile(path, []byte("is_authenticated = [[["), 0600); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}

		if _, err := Open(path); !errors.Is(err, shared.ErrStorageIO) {
			t.Errorf("expected ErrStorageIO, got %v", err)
		}
	})

	t.Run("failed write leaves memory unchanged", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "prefs.toml")

		cache, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		cache.path = filepath.Join(path, "not-a-dir", "prefs.toml")

		if err := cache.SetAuthenticated(&models.Identity{UID: "u"}); !errors.Is(err, shared.ErrStorageIO) {
			t.Fatalf("expected ErrStorageIO, got %v", err)
		}

		if cache.Authenticated() {
			t.Error("in-memory flag must not change when the write fails")
		}
	})

	t.Run("memory cache", func(t *testing.T) {
		cache := NewMemoryCache()

		if err := cache.SetAuthenticated(&models.Identity{UID: "u"}); err != nil {
			t.Fatalf("SetAuthenticated() error = %v", err)
		}
		if !cache.Authenticated() {
			t.Error("expected authenticated")
		}
		if cache.Path() != "" {
			t.Error("memory cache should have no path")
		}
	})
}
