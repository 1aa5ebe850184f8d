// Package persistence opens GORM databases for Seal's repositories through
// a named provider registry, so deployments select sqlite, postgres, or
// mysql purely by configuration.
package persistence

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// DialectorOpener is an alias for a function that returns a gorm.Dialector for a given DSN.
type DialectorOpener = func(string) gorm.Dialector

var (
	registryMu sync.RWMutex
	providers  = make(map[string]DialectorOpener)
)

// Register adds a new database provider to the registry.
func Register(name string, opener DialectorOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = opener
}

// Open connects to the database registered under name. A nil config gets
// the GORM defaults.
func Open(name, dsn string, config *gorm.Config) (*gorm.DB, error) {
	registryMu.RLock()
	opener, ok := providers[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("persistence: unknown database provider %q", name)
	}

	if config == nil {
		config = &gorm.Config{}
	}
	db, err := gorm.Open(opener(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s database: %w", name, err)
	}
	return db, nil
}
