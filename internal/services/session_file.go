package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

// sessionFile persists the provider session as JSON with owner-only permissions.
// An empty path disables persistence.
type sessionFile struct {
	path string
}

func (f sessionFile) Load() (*models.Identity, error) {
	if f.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read provider session: %w", err)
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse provider session: %w", err)
	}

	if identity.UID == "" {
		return nil, nil
	}
	return &identity, nil
}

func (f sessionFile) Save(identity *models.Identity) error {
	if f.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode provider session: %w", err)
	}

	return shared.WriteFileAtomic(f.path, data, 0600)
}

func (f sessionFile) Remove() error {
	if f.path == "" {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
