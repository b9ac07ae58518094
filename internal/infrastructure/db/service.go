package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	badgerdb "github.com/ark-network/giveaway/internal/infrastructure/db/badger"
	sqlitedb "github.com/ark-network/giveaway/internal/infrastructure/db/sqlite"
	watermilldb "github.com/ark-network/giveaway/internal/infrastructure/db/watermill"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.EventRepository, error){
		"watermill": watermilldb.NewEventRepository,
	}
	roundStoreTypes = map[string]func(...interface{}) (domain.RoundRepository, error){
		"badger": badgerdb.NewRoundRepository,
		"sqlite": sqlitedb.NewRoundRepository,
	}
	tokenStoreTypes = map[string]func(...interface{}) (domain.AllowedTokenRepository, error){
		"badger": badgerdb.NewAllowedTokenRepository,
		"sqlite": sqlitedb.NewAllowedTokenRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore domain.EventRepository
	roundStore domain.RoundRepository
	tokenStore domain.AllowedTokenRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid event store type: %s", config.EventStoreType)
	}

	roundStoreFactory, ok := roundStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	tokenStoreFactory, ok := tokenStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	dataStoreConfig := config.DataStoreConfig
	if config.DataStoreType == "sqlite" {
		db, err := openSqlite(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		if err := migrateSqlite(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		dataStoreConfig = []interface{}{db}
	}

	eventStore, err := eventStoreFactory(config.EventStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}

	roundStore, err := roundStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create round store: %w", err)
	}

	tokenStore, err := tokenStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create allowed token store: %w", err)
	}

	return &service{
		eventStore: eventStore,
		roundStore: roundStore,
		tokenStore: tokenStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Rounds() domain.RoundRepository {
	return s.roundStore
}

func (s *service) Tokens() domain.AllowedTokenRepository {
	return s.tokenStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.roundStore.Close()
	s.tokenStore.Close()
}

func openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, errors.New("invalid config")
	}

	dbDir, ok := config[0].(string)
	if !ok {
		return nil, errors.New("invalid config")
	}

	db, err := sqlitedb.OpenDb(filepath.Join(dbDir, sqliteDbFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	return db, nil
}

func migrateSqlite(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(sqlitedb.Migrations, "migration")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}

	return nil
}
