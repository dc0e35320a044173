package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

// Snapshot is the durable view of the device session.
type Snapshot struct {
	IsAuthenticated   bool      `toml:"is_authenticated" json:"is_authenticated"`
	Email             string    `toml:"email" json:"email,omitempty"`
	UID               string    `toml:"uid" json:"uid,omitempty"`
	UpdatedAt         time.Time `toml:"updated_at" json:"updated_at"`
	InstallID         string    `toml:"install_id" json:"install_id"`
	HasSeenOnboarding bool      `toml:"has_seen_onboarding" json:"has_seen_onboarding"`
}

// FileCache is a TOML-backed session cache.
//
// Reads are served from memory. Every write reaches disk (atomically) before the in-memory
// value changes, so a successful return means the change survives a restart.
type FileCache struct {
	path string
	now  func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// Open loads the cache at path, creating it with a fresh install id when missing.
func Open(path string) (*FileCache, error) {
	c := &FileCache{path: path, now: time.Now}

	snap, err := c.read()
	if err != nil {
		return nil, err
	}

	if snap.InstallID == "" {
		snap.InstallID = shared.GenerateID()
		if err := c.write(snap); err != nil {
			return nil, err
		}
	}

	c.snap = snap
	return c, nil
}

// NewMemoryCache returns a cache that is never written to disk.
func NewMemoryCache() *FileCache {
	return &FileCache{now: time.Now, snap: Snapshot{InstallID: shared.GenerateID()}}
}

// Path returns the backing file, or "" for a memory cache.
func (c *FileCache) Path() string { return c.path }

// Authenticated reports the cached authentication flag.
func (c *FileCache) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.IsAuthenticated
}

// Snapshot returns a copy of the cached values.
func (c *FileCache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// SetAuthenticated records identity as the signed-in user.
func (c *FileCache) SetAuthenticated(identity *models.Identity) error {
	return c.update(func(s *Snapshot) {
		s.IsAuthenticated = true
		if identity != nil {
			s.Email = identity.Email
			s.UID = identity.UID
		}
	})
}

// Reset clears the authentication flag and user metadata. Install and onboarding data are kept.
func (c *FileCache) Reset() error {
	return c.update(func(s *Snapshot) {
		s.IsAuthenticated = false
		s.Email = ""
		s.UID = ""
	})
}

// MarkOnboardingSeen records that the guest screen has been shown once.
func (c *FileCache) MarkOnboardingSeen() error {
	return c.update(func(s *Snapshot) {
		s.HasSeenOnboarding = true
	})
}

func (c *FileCache) update(fn func(*Snapshot)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.snap
	fn(&next)
	next.UpdatedAt = c.now().UTC()

	if err := c.write(next); err != nil {
		return err
	}

	c.snap = next
	return nil
}

func (c *FileCache) read() (Snapshot, error) {
	var snap Snapshot
	if c.path == "" {
		return snap, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("%w: failed to read session cache: %v", shared.ErrStorageIO, err)
	}

	if _, err := toml.Decode(string(data), &snap); err != nil {
		return snap, fmt.Errorf("%w: failed to parse session cache %s: %v", shared.ErrStorageIO, c.path, err)
	}
	return snap, nil
}

func (c *FileCache) write(snap Snapshot) error {
	if c.path == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("%w: failed to encode session cache: %v", shared.ErrStorageIO, err)
	}

	if err := shared.WriteFileAtomic(c.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageIO, err)
	}
	return nil
}
