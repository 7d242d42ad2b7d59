// Package profilestore persists export profiles: the saved destinations a
// user can deliver transcripts to.
package profilestore

import (
	"context"
	"errors"

	"github.com/yapvoice/yap/internal/export"
)

// ErrNotFound is returned by Get, Update and Remove when no profile with the
// requested ID exists.
var ErrNotFound = errors.New("profile not found")

// ErrDuplicateID is returned by Add when a profile with the same ID already
// exists.
var ErrDuplicateID = errors.New("profile with that ID already exists")

// Store manages export profile definitions.
//
// Implementations validate profiles on write so that a stored profile is
// always dispatchable without re-validation. All implementations must be safe
// for concurrent use.
type Store interface {
	// Add creates a new profile. Returns the profile with a generated ID if
	// the provided profile's ID is empty.
	// Returns [ErrDuplicateID] if a profile with the same non-empty ID exists.
	Add(ctx context.Context, profile export.Profile) (export.Profile, error)

	// Get retrieves a profile by ID.
	// Returns [ErrNotFound] when no profile with that ID exists.
	Get(ctx context.Context, id string) (export.Profile, error)

	// List returns all profiles, optionally filtered by kind.
	// An empty [ListOptions] returns all profiles ordered by name.
	List(ctx context.Context, opts ListOptions) ([]export.Profile, error)

	// Update replaces an existing profile. The profile's ID must be non-empty.
	// Returns [ErrNotFound] when no profile with that ID exists.
	Update(ctx context.Context, profile export.Profile) error

	// Remove deletes a profile by ID.
	// Returns [ErrNotFound] when no profile with that ID exists.
	Remove(ctx context.Context, id string) error
}

// ListOptions narrows the result set of [Store.List].
type ListOptions struct {
	// Kind restricts results to profiles of this kind.
	// An empty value matches all kinds.
	Kind export.Kind
}
