package main

import (
	"context"
	"fmt"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/cache"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/config"
	grpchealth "github.com/Mohamed-Hasan-MB/ecommerce-app/internal/grpc"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/lock"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	outbox   repository.OutboxRepository
	users    repository.UserRepository

	cache  cache.CartCache
	locker lock.Locker

	checks  map[string]grpchealth.Pinger
	closers []func(context.Context) error
}

func (s *stores) close(ctx context.Context, log *logger.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]grpchealth.Pinger)}

	switch cfg.Storage {
	case config.StoragePersistent:
		if err := s.openPersistent(ctx, cfg, log); err != nil {
			s.close(ctx, log)
			return nil, err
		}
	default:
		orders := repository.NewMemoryOrderStore()
		s.products = repository.NewMemoryProductStore()
		s.carts = repository.NewMemoryCartStore()
		s.orders = orders
		s.outbox = orders
		s.users = repository.NewMemoryUserStore()
		s.checks["memory"] = orders
		log.Warn("using in-memory storage, data is lost on restart")
	}

	if err := s.openRedis(ctx, cfg, log); err != nil {
		s.close(ctx, log)
		return nil, err
	}
	return s, nil
}

func (s *stores) openPersistent(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func(ctx context.Context) error { return mongoDB.Client().Disconnect(ctx) })
	log.Info("connected to MongoDB", "database", cfg.MongoDBName)

	products := repository.NewMongoProductRepository(mongoDB)
	carts := repository.NewMongoCartRepository(mongoDB)
	users := repository.NewMongoUserRepository(mongoDB)
	for name, ix := range map[string]interface{ CreateIndexes(context.Context) error }{
		"products": products, "carts": carts, "users": users,
	} {
		if err := ix.CreateIndexes(ctx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}

	db, err := repository.ConnectPostgres(ctx, &repository.Credentials{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
	})
	if err != nil {
		return err
	}
	orders := repository.NewPostgresOrderRepository(db)
	s.closers = append(s.closers, func(context.Context) error { return orders.Close() })
	if err := repository.RunMigrations(db); err != nil {
		return err
	}
	log.Info("connected to Postgres, migrations applied", "host", cfg.DB.Host, "database", cfg.DB.Name)

	s.products = products
	s.carts = carts
	s.users = users
	s.orders = orders
	s.outbox = orders
	s.checks["mongo"] = products
	s.checks["postgres"] = orders
	return nil
}

// openRedis wires the cart cache and the checkout lock. Without REDIS_ADDR the
// cache is disabled and the lock only covers this process.
func (s *stores) openRedis(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.RedisAddr == "" {
		s.cache = cache.NopCache{}
		s.locker = lock.NewMemoryLocker()
		if cfg.Storage == config.StoragePersistent {
			log.Warn("REDIS_ADDR not set: checkout lock is per process, run a single instance")
		}
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	s.cache = cache.NewRedisCache(client)
	s.locker = lock.NewRedisLocker(client)
	s.checks["redis"] = grpchealth.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	return nil
}
