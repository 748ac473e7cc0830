// Package schedule runs the daemon's recurring jobs: periodic merge scans
// and the midnight cost-meter rollover. It is a thin wrapper over robfig
// cron with per-job status tracking for the stats command.
package schedule

import (
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// JobStatus is the last observed outcome of a scheduled job.
type JobStatus struct {
	Name      string
	Spec      string
	LastRun   time.Time
	LastError string // empty when the last run succeeded
	Runs      int
}

// Scheduler owns a cron runner and the status of its jobs.
type Scheduler struct {
	cron *rcron.Cron

	mu     sync.Mutex
	status map[string]*JobStatus
}

// New creates a stopped scheduler using the standard five-field cron
// format.
func New() *Scheduler {
	return &Scheduler{
		cron:   rcron.New(),
		status: make(map[string]*JobStatus),
	}
}

// AddJob registers fn under the cron spec. Job panics are recovered and
// recorded as errors; one bad scan must not take the daemon down.
func (s *Scheduler) AddJob(name, spec string, fn func() error) error {
	s.mu.Lock()
	if _, exists := s.status[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("schedule: job %q already registered", name)
	}
	st := &JobStatus{Name: name, Spec: spec}
	s.status[name] = st
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, fn)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.status, name)
		s.mu.Unlock()
		return fmt.Errorf("schedule: register job %q (%s): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) run(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("schedule: job %s panicked: %v", name, r)
			s.record(name, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Printf("schedule: running job %s", name)
	err := fn()
	if err != nil {
		log.Printf("schedule: job %s failed: %v", name, err)
	}
	s.record(name, err)
}

func (s *Scheduler) record(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	if !ok {
		return
	}
	st.LastRun = time.Now()
	st.Runs++
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Status returns a snapshot of every registered job's status.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	return out
}
