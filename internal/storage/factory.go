package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/moonward/lander/internal/config"
	"github.com/moonward/lander/internal/database"
	gormstore "github.com/moonward/lander/internal/storage/gorm"
	"github.com/moonward/lander/internal/storage/memory"
	"github.com/moonward/lander/internal/storage/relay"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		db, err := database.OpenSqlite(cfg.Sqlite.Path)
		if err != nil {
			return nil, err
		}
		return gormstore.New(db, log), nil
	case "postgres":
		db, err := database.OpenPostgres(cfg.Postgres)
		if err != nil {
			log.Error().Err(err).Msg("Postgres unreachable, falling back to local SQLite")
			db, err = database.OpenSqlite(cfg.Sqlite.Path)
			if err != nil {
				return nil, err
			}
		}
		return gormstore.New(db, log), nil
	case "relay":
		return relay.New(cfg.Relay, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
