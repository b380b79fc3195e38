// File: cmd/server/providers.go
package main

import (
	"context"
	"fmt"
	"log"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/authstate"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/firebase"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/platform/database"
	"fitcoach_backend/internal/platform/elasticsearch"
	"fitcoach_backend/internal/platform/logger"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/platform/pubsub"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/progress"
	"fitcoach_backend/internal/web"
	"fitcoach_backend/internal/workout"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// models lists every table owned by this service.
func models() []interface{} {
	return []interface{}{
		&auth.Credential{},
		&auth.SessionRecord{},
		&profile.Profile{},
		&workout.Workout{},
		&progress.Progress{},
		&progress.BodyMeasurement{},
		&notification.Notification{},
		&notification.DeviceToken{},
	}
}

// provideDatabase opens the connection and, when DB_AUTO_MIGRATE is set, migrates the schema.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db, models()...); err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		logger.Info("Database schema migrated")
	}
	return db, func() { database.CloseGORMDB(db) }, nil
}

func provideBroker(cfg *config.Config, db *gorm.DB, rec metrics.Recorder, logger *zap.Logger) (pubsub.Broker, func(), error) {
	dropHook := pubsub.WithDropHook(rec.RecordEventDropped)
	if cfg.EventsBackend != config.EventsBackendPostgres {
		b := pubsub.NewMemoryBroker(dropHook)
		return b, func() { _ = b.Close() }, nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql.DB for event broker: %w", err)
	}
	b, err := pubsub.NewPostgresBroker(cfg.DSN(), sqlDB, logger, dropHook)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}

// providePushSender falls back to NopSender when Firebase is not configured.
func providePushSender(cfg *config.Config, logger *zap.Logger) (notification.PushSender, error) {
	if cfg.FirebaseCredentialsFile == "" {
		logger.Info("FIREBASE_CREDENTIALS_FILE not set, push notifications disabled")
		return notification.NopSender{}, nil
	}
	return firebase.NewMessenger(context.Background(), cfg, logger)
}

// provideWorkoutIndex falls back to NopIndex when Elasticsearch is not configured. A reachable
// cluster gets the workouts index created on startup.
func provideWorkoutIndex(cfg *config.Config, logger *zap.Logger) (workout.Index, error) {
	if cfg.ElasticsearchURL == "" {
		logger.Info("ELASTICSEARCH_URL not set, workout search uses the database")
		return workout.NopIndex{}, nil
	}
	client, err := elasticsearch.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := elasticsearch.CreateIndexIfNotExists(context.Background(), client, workout.IndexName, workout.Mapping(), logger); err != nil {
		return nil, err
	}
	return workout.NewESIndex(client, logger), nil
}

func provideMetrics(reg *prometheus.Registry) *metrics.Collector {
	return metrics.NewCollector(reg)
}

func provideLocalProvider(repo auth.Repository, broker pubsub.Broker, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger) *auth.LocalProvider {
	return auth.NewLocalProvider(repo, auth.NewTokenSigner(cfg), broker, cfg, rec, logger)
}

// provideGuard resolves browser clients through their auth state and API callers through the
// bearer token.
func provideGuard(registry *authstate.Registry, provider *auth.LocalProvider, profiles *profile.ServiceImplementation, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger) *guard.Guard {
	sessions := authstate.NewStoreResolver(registry, cfg.GuardWait)
	tokens := guard.NewTokenResolver(provider, profiles, cfg.ProfileFetchTimeout, logger)
	return guard.New(sessions, tokens, rec, logger)
}

func provideRegistry(provider *auth.LocalProvider, profiles *profile.ServiceImplementation, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger) *authstate.Registry {
	return authstate.NewRegistry(provider, profiles, cfg, rec, logger)
}

// provideLogger syncs the logger on cleanup.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

func provideWebHandler(actions web.SessionActions, registry *authstate.Registry, g *guard.Guard, cfg *config.Config, logger *zap.Logger) *web.Handler {
	return web.NewHandler(actions, registry, g, cfg.GuardWait, logger)
}
