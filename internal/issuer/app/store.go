package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store/drivers/memory"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store/drivers/redis"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store/drivers/sqlite"
)

// OpenStore opens the configured backend and applies its migrations.
func OpenStore(cfg Config, logger *slog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Store {
	case StoreMemory:
		st = memory.NewStore()
		logger.Warn("using in-memory store, offers do not survive a restart")

	case StoreRedis:
		st, err = redis.NewStore(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		logger.Info("using redis store", "prefix", cfg.RedisPrefix)

	case StoreSQLite, "":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.DatabaseFile)
		st, err = sqlite.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("using sqlite store", "file", cfg.DatabaseFile)

	default:
		return nil, fmt.Errorf("app: unknown store %q (want memory, sqlite or redis)", cfg.Store)
	}

	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to apply store migrations: %w", err)
	}

	return st, nil
}
