package app

import (
	"fmt"

	identityDomain "github.com/felixgeelhaar/lakron/internal/identity/domain"
	identityPersistence "github.com/felixgeelhaar/lakron/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	schedulePersistence "github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/persistence"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// TaskRepository creates the plain task store for the configured driver.
func (f *RepositoryFactory) TaskRepository() (domain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return schedulePersistence.NewPostgresTaskRepository(f.conn), nil
	case database.DriverSQLite:
		return schedulePersistence.NewSQLiteTaskRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// ProfileRepository creates a profile repository for the configured driver.
func (f *RepositoryFactory) ProfileRepository() (identityDomain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return identityPersistence.NewPostgresProfileRepository(f.conn), nil
	case database.DriverSQLite:
		return identityPersistence.NewSQLiteProfileRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// Driver returns the factory's database driver.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}
