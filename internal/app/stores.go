// Package app wires configuration into the concrete stores and publishers
// shared by the API server and the admin bootstrap command.
package app

import (
	"context"
	"fmt"

	"github.com/diagnosis/estate-listings/internal/repo"
	"github.com/diagnosis/estate-listings/internal/repo/memory"
	mongorepo "github.com/diagnosis/estate-listings/internal/repo/mongo"
	"github.com/diagnosis/estate-listings/internal/repo/postgres"
	"github.com/diagnosis/estate-listings/pkg/config"
	"github.com/diagnosis/estate-listings/pkg/database"
	"github.com/diagnosis/estate-listings/pkg/events"
	"github.com/diagnosis/estate-listings/pkg/logger"
)

type Stores struct {
	Users      repo.UserRepository
	Properties repo.PropertyRepository
	close      func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects the driver named by STORE_DRIVER and prepares its
// schema or indexes.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("Connected to MongoDB", "database", cfg.Mongo.Database)
		return &Stores{
			Users:      mongorepo.NewUsersRepo(db),
			Properties: mongorepo.NewPropertiesRepo(db),
			close:      func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return &Stores{
			Users:      postgres.NewUsersRepo(pool),
			Properties: postgres.NewPropertiesRepo(pool),
			close:      pool.Close,
		}, nil

	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.New()
		return &Stores{Users: store.Users(), Properties: store.Properties()}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenPublisher connects to NATS when NATS_URL is set and otherwise
// returns a publisher that drops events.
func OpenPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		return events.NopPublisher{}, nil
	}
	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to NATS")
	return bus, nil
}

// StartEventLog mirrors published events into the debug log when the
// publisher can also subscribe.
func StartEventLog(p events.Publisher) error {
	sub, ok := p.(events.Subscriber)
	if !ok {
		return nil
	}
	return events.LogEvents(sub, events.AuditSubjects...)
}
