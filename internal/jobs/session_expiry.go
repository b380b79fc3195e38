// File: internal/jobs/session_expiry.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"fitcoach_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionExpirer deletes sessions past their expiry and announces the sign-out to their clients.
type SessionExpirer interface {
	ExpireSessions(ctx context.Context, now time.Time) (int, error)
}

// SessionExpiryJob holds dependencies for the session expiry job.
type SessionExpiryJob struct {
	expirer       SessionExpirer
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
	now           func() time.Time
}

// NewSessionExpiryJob creates a new SessionExpiryJob.
func NewSessionExpiryJob(expirer SessionExpirer, logger *zap.Logger, cfg *config.Config) *SessionExpiryJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)
	return &SessionExpiryJob{
		expirer:       expirer,
		logger:        logger.Named("SessionExpiryJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *SessionExpiryJob) SetupAndStart() error {
	jobSpec := j.cfg.SessionExpiryJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Session expiry job schedule not defined (SESSION_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule session expiry job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Session expiry job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *SessionExpiryJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := j.expirer.ExpireSessions(ctx, j.now())
	if err != nil {
		j.logger.Error("Session expiry job run failed", zap.Error(err), zap.Int("sessions_expired", expired))
		return
	}
	if expired > 0 {
		j.logger.Info("Session expiry job run completed", zap.Int("sessions_expired", expired))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *SessionExpiryJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Session expiry job scheduler stopped.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Session expiry job scheduler stop timed out.")
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron at debug level; cron reports every wake-up.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
