package scheduler

import (
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

// Job is a named unit of scheduled work.
type Job interface {
    Run() error
    Name() string
}

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
    cron *cron.Cron
    log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
    return &Scheduler{
        cron: cron.New(cron.WithSeconds()),
        log:  log.With().Str("component", "scheduler").Logger(),
    }
}

func (s *Scheduler) Start() {
    s.cron.Start()
    s.log.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
    ctx := s.cron.Stop()
    <-ctx.Done()
    s.log.Info().Msg("scheduler stopped")
}

// AddJob registers a job with a cron schedule (seconds field included,
// e.g. "0 0 18 * * *" for daily at 18:00, or "@every 6h").
func (s *Scheduler) AddJob(schedule string, job Job) error {
    _, err := s.cron.AddFunc(schedule, func() {
        if err := job.Run(); err != nil {
            s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
            return
        }
        s.log.Debug().Str("job", job.Name()).Msg("job completed")
    })
    if err != nil { return err }
    s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
    return nil
}
