package namespace

import (
	"context"
	"time"
)

// VersionInfo describes one persisted rule version.
type VersionInfo struct {
	Version   string    `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// VersionStore persists compiled rule versions: the one active pointer plus
// history retained for rollback and audit. Implemented by sgorm.
type VersionStore interface {
	// SaveVersion persists a new version and, if activate is set, makes it
	// the single active one atomically.
	SaveVersion(ctx context.Context, version, source string, activate bool) error

	// ActivateVersion makes a previously saved version active and returns
	// its source.
	ActivateVersion(ctx context.Context, version string) (string, error)

	// ActiveVersion returns the active version id and source, or ok=false
	// when no version has ever been loaded.
	ActiveVersion(ctx context.Context) (version, source string, ok bool, err error)

	// ListVersions returns all persisted versions, newest first.
	ListVersions(ctx context.Context) ([]VersionInfo, error)
}
