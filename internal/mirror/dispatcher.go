package mirror

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/martinsuchenak/netcanvas/internal/worker"
)

// Dispatcher is a topology.Mirror that writes changes to a Sink in the
// background. Changes to the same entity reach the sink in the order
// they were made.
type Dispatcher struct {
	sink Sink
	pool *worker.WorkerPool

	mu      sync.Mutex
	pending int
	idle    chan struct{}

	applied atomic.Int64
	failed  atomic.Int64

	errMu   sync.Mutex
	lastErr error
}

var _ topology.Mirror = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with the given number of workers and
// per-worker queue size. Call Start before attaching it to a store.
func NewDispatcher(sink Sink, workers, queue int) *Dispatcher {
	idle := make(chan struct{})
	close(idle)
	return &Dispatcher{
		sink: sink,
		pool: worker.NewWorkerPool(workers, queue),
		idle: idle,
	}
}

// Start starts the workers
func (d *Dispatcher) Start() {
	d.pool.Start()
}

// Stop delivers everything queued and stops the workers.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Run starts the dispatcher and blocks until ctx is done, then drains.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Stop()
	return nil
}

// ObjectCreated implements topology.Mirror
func (d *Dispatcher) ObjectCreated(ref topology.Ref, state any) {
	d.enqueue(topology.OpCreated, ref, "", state)
}

// PropertyChanged implements topology.Mirror
func (d *Dispatcher) PropertyChanged(ref topology.Ref, attr topology.Attribute, state any) {
	d.enqueue(topology.OpChanged, ref, attr, state)
}

// ObjectRemoved implements topology.Mirror
func (d *Dispatcher) ObjectRemoved(ref topology.Ref) {
	d.enqueue(topology.OpRemoved, ref, "", nil)
}

func (d *Dispatcher) enqueue(op topology.Op, ref topology.Ref, attr topology.Attribute, state any) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	c := Change{
		ID:        id.String(),
		Op:        op,
		Kind:      ref.Kind,
		Name:      ref.Name,
		Attribute: attr,
		CreatedAt: time.Now(),
	}
	if state != nil {
		raw, err := json.Marshal(state)
		if err != nil {
			d.fail(c, err)
			return
		}
		c.State = raw
	}

	d.begin()
	err = d.pool.Submit(worker.Job{
		ID:  c.ID,
		Key: string(c.Kind) + "/" + c.Name,
		Handler: func(ctx context.Context) error {
			defer d.done()
			if err := d.sink.Apply(ctx, c); err != nil {
				d.fail(c, err)
				return err
			}
			d.applied.Add(1)
			return nil
		},
	})
	if err != nil {
		d.done()
		d.fail(c, err)
	}
}

func (d *Dispatcher) fail(c Change, err error) {
	d.failed.Add(1)
	d.errMu.Lock()
	d.lastErr = err
	d.errMu.Unlock()
	log.Warn("Mirror write failed", "op", c.Op, "kind", c.Kind, "name", c.Name, "error", err)
}

func (d *Dispatcher) begin() {
	d.mu.Lock()
	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.mu.Unlock()
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
	}
	d.mu.Unlock()
}

// Flush waits until every change handed to the dispatcher so far has been
// written or has failed.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports delivery counters.
type Stats struct {
	Applied int64  `json:"applied"`
	Failed  int64  `json:"failed"`
	LastErr string `json:"last_error,omitempty"`
}

// Stats returns delivery counters
func (d *Dispatcher) Stats() Stats {
	st := Stats{Applied: d.applied.Load(), Failed: d.failed.Load()}
	d.errMu.Lock()
	if d.lastErr != nil {
		st.LastErr = d.lastErr.Error()
	}
	d.errMu.Unlock()
	return st
}
