package bootstrap

import (
	"fmt"
	"log"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/events"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var seedGroups = seed.Groups

// Runtime is the set of external connections a process needs.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Events events.Publisher
}

// InitRuntime connects to the database, Redis and the event broker, and seeds
// the built-in groups when cfg.SeedGroups is set. Redis and NATS are optional:
// a nil client and a no-op publisher are returned when they are not configured
// or unreachable.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	publisher, err := events.Connect(cfg.NATSURL)
	if err != nil {
		log.Printf("WARNING: event broker unavailable, events will be dropped: %v", err)
		publisher = events.Noop{}
	}

	rt := &Runtime{DB: db, Redis: cache.GetClient(), Events: publisher}

	if cfg.SeedGroups {
		groups, err := seedGroups(db, seed.DefaultGroups())
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to seed built-in groups: %w", err)
		}
		log.Printf("Built-in groups ensured (%d)", len(groups))
	}

	return rt, nil
}

// Close releases every connection held by the runtime.
func (r *Runtime) Close() {
	if r.Events != nil {
		r.Events.Close()
	}
	if err := cache.Close(); err != nil {
		log.Printf("error closing redis: %v", err)
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}
}
