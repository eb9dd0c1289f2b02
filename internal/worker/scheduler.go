package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/log"
)

// Scheduler runs named background tasks on cron schedules
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   map[string]*Task
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Task represents a scheduled task
type Task struct {
	ID      string
	Name    string
	Spec    string
	LastRun *time.Time
	LastErr error
	Status  string // "pending", "running", "completed", "failed"
	Handler TaskHandler

	entry cron.EntryID
}

// TaskHandler is the function executed by a task
type TaskHandler func(ctx context.Context, taskID string) error

// ValidateSpec checks a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 10m".
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errs.Invalidf("schedule %q: %v", spec, err)
	}
	return nil
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterTask adds a task that runs on spec. Registering an existing id
// replaces it.
func (s *Scheduler) RegisterTask(id, name, spec string, handler TaskHandler) error {
	if err := ValidateSpec(spec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[id]; ok {
		s.cron.Remove(old.entry)
	}
	task := &Task{ID: id, Name: name, Spec: spec, Status: "pending", Handler: handler}
	entry, err := s.cron.AddFunc(spec, func() { s.trigger(id) })
	if err != nil {
		return errs.Invalidf("schedule %q: %v", spec, err)
	}
	task.entry = entry
	s.tasks[id] = task
	log.Info("Task registered", "task_id", id, "schedule", spec)
	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	log.Info("Starting background scheduler", "tasks", len(s.tasks))
	s.cron.Start()
}

// Stop halts the cron loop and waits for running tasks
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunNow executes a task immediately and returns its error.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return errs.NotFoundf("task %q", id)
	}
	if task.Status == "running" {
		s.mu.Unlock()
		return errs.Invariantf("task %s is already running", id)
	}
	s.begin(task)
	s.mu.Unlock()

	return s.execute(task)
}

// trigger is the cron callback; a task still running from its previous
// slot is skipped.
func (s *Scheduler) trigger(id string) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok || task.Status == "running" {
		s.mu.Unlock()
		return
	}
	s.begin(task)
	s.mu.Unlock()

	_ = s.execute(task)
}

func (s *Scheduler) begin(task *Task) {
	task.Status = "running"
	now := time.Now()
	task.LastRun = &now
	s.wg.Add(1)
}

func (s *Scheduler) execute(task *Task) error {
	defer s.wg.Done()
	log.Info("Running task", "task_id", task.ID, "name", task.Name)

	err := task.Handler(s.ctx, task.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	task.LastErr = err
	if err != nil {
		task.Status = "failed"
		log.Error("Task failed", "task_id", task.ID, "error", err)
	} else {
		task.Status = "completed"
		log.Info("Task completed", "task_id", task.ID)
	}
	return err
}

// Tasks returns a copy of every registered task ordered by id.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
