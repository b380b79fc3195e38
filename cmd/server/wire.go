// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"fitcoach_backend/internal/app"
	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/filestorage"
	"fitcoach_backend/internal/jobs"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/progress"
	"fitcoach_backend/internal/web"
	"fitcoach_backend/internal/workout"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDatabase,
		metrics.NewRegistry,
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		provideMetrics,
		wire.Bind(new(metrics.Recorder), new(*metrics.Collector)),
		provideBroker,

		// Auth
		auth.NewGORMRepository,
		provideLocalProvider,
		wire.Bind(new(auth.Provider), new(*auth.LocalProvider)),
		wire.Bind(new(web.SessionActions), new(*auth.LocalProvider)),
		wire.Bind(new(jobs.SessionExpirer), new(*auth.LocalProvider)),
		wire.Bind(new(profile.AccountCreator), new(*auth.LocalProvider)),
		wire.Bind(new(profile.ChangeNotifier), new(*auth.LocalProvider)),

		// Profiles and avatars
		filestorage.NewFileStorageService,
		wire.Bind(new(profile.AvatarStore), new(*filestorage.FileStorageService)),
		profile.NewGORMRepository,
		profile.NewService,
		wire.Bind(new(profile.Service), new(*profile.ServiceImplementation)),
		wire.Bind(new(auth.ProfileProvisioner), new(*profile.ServiceImplementation)),
		wire.Bind(new(workout.Roster), new(*profile.ServiceImplementation)),
		wire.Bind(new(progress.Roster), new(*profile.ServiceImplementation)),
		wire.Bind(new(notification.Roster), new(*profile.ServiceImplementation)),

		// Auth state and route guard
		provideRegistry,
		provideGuard,

		// Notifications
		providePushSender,
		notification.NewGORMRepository,
		notification.NewService,
		wire.Bind(new(workout.Notifier), new(notification.Service)),
		wire.Bind(new(progress.Notifier), new(notification.Service)),

		// Workouts and progress
		provideWorkoutIndex,
		workout.NewGORMRepository,
		workout.NewService,
		wire.Bind(new(workout.Service), new(*workout.ServiceImplementation)),
		wire.Bind(new(progress.WorkoutReader), new(*workout.ServiceImplementation)),
		progress.NewGORMRepository,
		progress.NewService,

		// Handlers
		provideWebHandler,
		auth.NewHandler,
		profile.NewHandler,
		workout.NewHandler,
		progress.NewHandler,
		notification.NewHandler,
		wire.Struct(new(app.Handlers), "*"),

		// Jobs
		jobs.NewSessionExpiryJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
