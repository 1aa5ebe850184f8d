package seal

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getseal/seal/core/access"
	"github.com/getseal/seal/core/check"
	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
	"github.com/getseal/seal/sgorm"
)

// Default types for convenience
type ID = uuid.UUID
type Tuple = relationtuple.Tuple

// NewDefaultEngine creates a check engine backed by GORM tuple storage and
// a fresh rule registry.
func NewDefaultEngine(db *gorm.DB) (*check.Engine, *namespace.Registry) {
	registry := namespace.NewRegistry()
	store := sgorm.NewTupleRepository(db)
	return check.NewEngine(store, registry), registry
}

// NewDefaultManager creates an access manager with GORM-backed tuple,
// version and audit storage.
func NewDefaultManager(db *gorm.DB) *access.Manager {
	registry := namespace.NewRegistry()
	store := sgorm.NewTupleRepository(db)
	engine := check.NewEngine(store, registry)
	return access.NewManager(store, registry, engine,
		access.WithVersionStore(sgorm.NewVersionRepository(db)),
		access.WithAuditStore(sgorm.NewAuditRepository(db)),
	)
}

// NewMemoryManager creates an access manager with in-memory storage,
// useful for tests and embedding without a database.
func NewMemoryManager() *access.Manager {
	registry := namespace.NewRegistry()
	store := relationtuple.NewMemoryStore()
	engine := check.NewEngine(store, registry)
	return access.NewManager(store, registry, engine)
}
