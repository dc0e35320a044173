package models

import (
	"testing"
	"time"
)

func TestParseCollectionKind(t *testing.T) {
	tc := []struct {
		input   string
		want    CollectionKind
		wantErr bool
	}{
		{input: "note", want: Note},
		{input: "NOTES", want: Note},
		{input: " task ", want: Task},
		{input: "tasks", want: Task},
		{input: "bookmark", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCollectionKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCollectionKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCollectionKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollectionKindOrdering(t *testing.T) {
	if !Note.NewestFirst() {
		t.Error("notes should list newest first")
	}
	if Task.NewestFirst() {
		t.Error("tasks should list in insertion order")
	}
	if Note.Table() == Task.Table() {
		t.Error("kinds must use separate tables")
	}
	if CollectionKind("X").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestIdentity(t *testing.T) {
	t.Run("password identity needs verification", func(t *testing.T) {
		id := &Identity{UID: "u1", ProviderID: PasswordProviderID}
		if id.Trusted() {
			t.Error("unverified password identity should not be trusted")
		}
		id.EmailVerified = true
		if !id.Trusted() {
			t.Error("verified password identity should be trusted")
		}
	})

	t.Run("federated identity is pre-verified", func(t *testing.T) {
		id := &Identity{UID: "u2", ProviderID: "google.com"}
		if !id.Federated() || !id.Trusted() {
			t.Error("federated identity should be trusted without email verification")
		}
	})

	t.Run("nil identity", func(t *testing.T) {
		var id *Identity
		if id.Trusted() || id.Federated() {
			t.Error("nil identity should never be trusted")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		id := &Identity{ExpiresAt: now.Add(time.Minute)}
		if id.Expired(now) {
			t.Error("token should still be valid")
		}
		if !id.Expired(now.Add(2 * time.Minute)) {
			t.Error("token should be expired")
		}
	})
}

func TestListRecordValidate(t *testing.T) {
	if err := (&ListRecord{Kind: Note, Text: "hi"}).Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}
	if err := (&ListRecord{Kind: Task, Text: "  "}).Validate(); err == nil {
		t.Error("expected error for blank text")
	}
	if err := (&ListRecord{Kind: "X", Text: "hi"}).Validate(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStateString(t *testing.T) {
	if Authenticated.String() != "authenticated" || Anonymous.String() != "anonymous" {
		t.Error("unexpected state names")
	}
}
