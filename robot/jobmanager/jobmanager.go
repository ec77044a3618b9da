// Package jobmanager runs the robot's recurring background jobs, such as polling the field for
// the current mode, on a gocron scheduler.
package jobmanager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rhsrobot/logging"
)

// JobConfig describes one recurring job.
type JobConfig struct {
	Name string
	// Schedule is either a Go duration such as "20ms" or a cron expression.
	Schedule string
	Run      func(ctx context.Context) error
}

// Jobmanager owns a scheduler and the jobs added to it. A job never overlaps itself: a run
// that is still going when the next is due reschedules the next.
type Jobmanager struct {
	scheduler gocron.Scheduler
	logger    logging.Logger

	cancelCtx  context.Context
	cancelFunc func()

	mu           sync.Mutex
	namesToUUIDs map[string]uuid.UUID
}

// New returns a stopped Jobmanager.
func New(logger logging.Logger) (*Jobmanager, error) {
	jobLogger := logger.Sublogger("job_manager")
	jm := &Jobmanager{
		logger:       jobLogger,
		namesToUUIDs: make(map[string]uuid.UUID),
	}
	scheduler, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, name string, err error) {
				jobLogger.Warnw("job failed", "job", name, "error", err)
			}),
		)),
	)
	if err != nil {
		return nil, err
	}
	jm.scheduler = scheduler
	jm.cancelCtx, jm.cancelFunc = context.WithCancel(context.Background())
	return jm, nil
}

// Add schedules jc. Names must be unique.
func (jm *Jobmanager) Add(jc JobConfig) error {
	if jc.Name == "" {
		return errors.New("job name is required")
	}
	if jc.Run == nil {
		return errors.Errorf("job %q has nothing to run", jc.Name)
	}
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if _, ok := jm.namesToUUIDs[jc.Name]; ok {
		return errors.Errorf("job %q already exists", jc.Name)
	}

	var jobType gocron.JobDefinition
	if d, err := time.ParseDuration(jc.Schedule); err == nil {
		jobType = gocron.DurationJob(d)
	} else {
		jobType = gocron.CronJob(jc.Schedule, false)
	}
	ctx := jm.cancelCtx
	j, err := jm.scheduler.NewJob(
		jobType,
		gocron.NewTask(func() error { return jc.Run(ctx) }),
		gocron.WithName(jc.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrapf(err, "cannot schedule job %q", jc.Name)
	}
	jm.logger.Debugw("created a job", "job", jc.Name, "schedule", jc.Schedule, "uuid", j.ID())
	jm.namesToUUIDs[jc.Name] = j.ID()
	return nil
}

// Remove unschedules the named job.
func (jm *Jobmanager) Remove(name string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	id, ok := jm.namesToUUIDs[name]
	if !ok {
		return errors.Errorf("no job named %q", name)
	}
	delete(jm.namesToUUIDs, name)
	return jm.scheduler.RemoveJob(id)
}

// Names lists the scheduled jobs in order.
func (jm *Jobmanager) Names() []string {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	names := lo.Keys(jm.namesToUUIDs)
	sort.Strings(names)
	return names
}

// Start begins running jobs.
func (jm *Jobmanager) Start() {
	jm.scheduler.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (jm *Jobmanager) Shutdown() error {
	jm.logger.Debug("shutting down")
	jm.cancelFunc()
	return jm.scheduler.Shutdown()
}
