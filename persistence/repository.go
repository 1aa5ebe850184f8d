package persistence

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/getseal/seal/sgorm"
)

func init() {
	Register("sqlite", sqlite.Open)
	Register("postgres", postgres.Open)
	Register("mysql", mysql.Open)
}

// Storage bundles Seal's repositories over one database connection.
type Storage struct {
	db       *gorm.DB
	Tuples   *sgorm.TupleRepository
	Versions *sgorm.VersionRepository
	Audits   *sgorm.AuditRepository
}

// NewStorage opens the configured database and constructs the repositories,
// running migrations unless skipMigrate is set.
func NewStorage(dbType, dsn string, skipMigrate bool) (*Storage, error) {
	db, err := Open(dbType, dsn, nil)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		db:       db,
		Tuples:   sgorm.NewTupleRepository(db),
		Versions: sgorm.NewVersionRepository(db),
		Audits:   sgorm.NewAuditRepository(db),
	}
	if !skipMigrate {
		for _, migrate := range []func() error{
			s.Tuples.AutoMigrate,
			s.Versions.AutoMigrate,
			s.Audits.AutoMigrate,
		} {
			if err := migrate(); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// DB exposes the underlying connection, e.g. for health checks.
func (s *Storage) DB() *gorm.DB {
	return s.db
}
