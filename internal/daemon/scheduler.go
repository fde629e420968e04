package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/user/nocview/internal/util"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	// State
	lastRun    time.Time
	nextRun    time.Time
	lastError  error
	errorCount int
	runs       int
	running    bool
	mu         sync.RWMutex
}

// JobStatus represents the status of a job.
type JobStatus struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	LastError  string        `json:"last_error,omitempty"`
	ErrorCount int           `json:"error_count"`
	Runs       int           `json:"runs"`
	Running    bool          `json:"running"`
}

// Scheduler runs jobs on their intervals. A failing job is retried after
// half its interval; a job never overlaps with itself.
type Scheduler struct {
	ctx  context.Context
	tick time.Duration
	jobs []*Job
	wg   sync.WaitGroup
	mu   sync.RWMutex
}

// NewScheduler creates a scheduler that stops when ctx is done.
func NewScheduler(ctx context.Context) *Scheduler {
	return &Scheduler{
		ctx:  ctx,
		tick: time.Second,
	}
}

// AddJob adds a job whose first run is delay from now.
func (s *Scheduler) AddJob(job *Job, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.nextRun = time.Now().Add(delay)
	s.jobs = append(s.jobs, job)
}

// Run blocks until the context is done and every running job returned.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	util.Info("Scheduler started with %d jobs", len(s.Jobs()))
	s.checkJobs(time.Now())

	for {
		select {
		case <-s.ctx.Done():
			util.Info("Scheduler stopping")
			s.wg.Wait()
			return
		case now := <-ticker.C:
			s.checkJobs(now)
		}
	}
}

func (s *Scheduler) checkJobs(now time.Time) {
	for _, job := range s.Jobs() {
		job.mu.RLock()
		shouldRun := !job.running && !now.Before(job.nextRun)
		job.mu.RUnlock()

		if shouldRun {
			s.wg.Add(1)
			go func(j *Job) {
				defer s.wg.Done()
				s.runJob(j)
			}(job)
		}
	}
}

func (s *Scheduler) runJob(job *Job) {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		return
	}
	job.running = true
	job.lastRun = time.Now()
	job.mu.Unlock()

	util.Debug("Running job: %s", job.Name)

	ctx, cancel := context.WithTimeout(s.ctx, job.Interval)
	defer cancel()

	err := job.Run(ctx)

	job.mu.Lock()
	defer job.mu.Unlock()
	job.running = false
	job.runs++
	if err != nil {
		job.lastError = err
		job.errorCount++
		util.Warn("Job %s failed: %v", job.Name, err)
		job.nextRun = time.Now().Add(job.Interval / 2)
		return
	}
	job.lastError = nil
	job.nextRun = time.Now().Add(job.Interval)
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Job(nil), s.jobs...)
}

// JobStatuses returns the status of all jobs.
func (s *Scheduler) JobStatuses() []JobStatus {
	jobs := s.Jobs()
	statuses := make([]JobStatus, len(jobs))
	for i, job := range jobs {
		job.mu.RLock()
		status := JobStatus{
			Name:       job.Name,
			Interval:   job.Interval,
			LastRun:    job.lastRun,
			NextRun:    job.nextRun,
			ErrorCount: job.errorCount,
			Runs:       job.runs,
			Running:    job.running,
		}
		if job.lastError != nil {
			status.LastError = job.lastError.Error()
		}
		job.mu.RUnlock()
		statuses[i] = status
	}
	return statuses
}

// Trigger makes a job due on the next tick.
func (s *Scheduler) Trigger(name string) bool {
	for _, job := range s.Jobs() {
		if job.Name != name {
			continue
		}
		job.mu.Lock()
		job.nextRun = time.Now()
		job.mu.Unlock()
		return true
	}
	return false
}
