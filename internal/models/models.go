package models

import (
	"fmt"
	"strings"
	"time"
)

// PasswordProviderID identifies identities created with email and password.
const PasswordProviderID = "password"

// Identity is the remote identity handle returned by the identity provider.
//
// Tokens are opaque to everything except the provider implementation.
type Identity struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	ProviderID    string    `json:"provider_id"`
	IDToken       string    `json:"id_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Federated reports whether the identity came from a third-party sign-in.
func (i *Identity) Federated() bool {
	return i != nil && i.ProviderID != "" && i.ProviderID != PasswordProviderID
}

// Trusted reports whether the identity may unlock the authenticated state.
// Federated identities are pre-verified by their provider.
func (i *Identity) Trusted() bool {
	return i != nil && (i.EmailVerified || i.Federated())
}

// Expired reports whether the id token must be refreshed before use.
func (i *Identity) Expired(now time.Time) bool {
	return i.ExpiresAt.IsZero() || !now.Before(i.ExpiresAt)
}

// State is the position of the device session in the authentication state machine.
type State int

const (
	Anonymous State = iota
	Authenticating
	PendingVerification
	AwaitingVerification
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case PendingVerification:
		return "pending-verification"
	case AwaitingVerification:
		return "awaiting-verification"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CollectionKind selects which physical list store and ordering rule applies.
type CollectionKind string

const (
	Note CollectionKind = "NOTE"
	Task CollectionKind = "TASK"
)

// CollectionKinds lists every supported kind.
var CollectionKinds = []CollectionKind{Note, Task}

// ParseCollectionKind accepts "note", "notes", "TASK", etc.
func ParseCollectionKind(s string) (CollectionKind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "note":
		return Note, nil
	case "task":
		return Task, nil
	default:
		return "", fmt.Errorf("unknown collection kind %q", s)
	}
}

// Table returns the table (and migration set) backing the kind.
func (k CollectionKind) Table() string {
	switch k {
	case Note:
		return "notes"
	case Task:
		return "tasks"
	default:
		return ""
	}
}

// NewestFirst reports whether the kind lists by descending id.
func (k CollectionKind) NewestFirst() bool {
	return k == Note
}

// Valid reports whether k is a known kind.
func (k CollectionKind) Valid() bool {
	return k.Table() != ""
}

func (k CollectionKind) String() string { return string(k) }

// ListRecord is a single user-authored entry in a collection.
type ListRecord struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	Kind      CollectionKind `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the record can be persisted.
func (r *ListRecord) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown collection kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
