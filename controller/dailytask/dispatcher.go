/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dailytask

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/utils/clock"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	"openebs.io/dailytask/hooks"
	"openebs.io/dailytask/metrics"
)

const (
	defaultWorkerCount  = 5
	defaultWriteTimeout = 10 * time.Second
)

// Dispatcher reconciles DailyTask snapshots i.e. computes their
// status & writes it.
//
// Snapshots handed over via Enqueue are reconciled by a fixed pool
// of workers. The queue holds at most one key per resource & only
// the latest snapshot of a resource is kept while its key waits. A
// burst of events for one resource hence results in one write with
// the latest snapshot & the number of pending reconciliations is
// bounded by the number of resources.
type Dispatcher struct {
	// Namespace is used for snapshots without a namespace
	Namespace string

	StatusFn hooks.StatusFunc
	Writer   *StatusWriter
	Clock    clock.PassiveClock

	// Number of workers that drain the queue
	Workers int

	// Time allowed for a write that is in flight when the
	// dispatcher shuts down
	WriteTimeout time.Duration

	queue workqueue.TypedInterface[string]

	mutex   sync.Mutex
	pending map[string]*v1.DailyTask
}

// DispatcherOption is a typed function that helps in building up
// the Dispatcher instance
//
// NOTE:
//	This follows "functional options" pattern
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of workers
func WithWorkers(count int) DispatcherOption {
	return func(d *Dispatcher) {
		d.Workers = count
	}
}

// WithWriteTimeout sets the time allowed for in flight writes on
// shutdown
func WithWriteTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.WriteTimeout = timeout
	}
}

// WithClock sets the clock used to stamp the status
func WithClock(c clock.PassiveClock) DispatcherOption {
	return func(d *Dispatcher) {
		d.Clock = c
	}
}

// WithNamespace sets the namespace of snapshots without one
func WithNamespace(namespace string) DispatcherOption {
	return func(d *Dispatcher) {
		d.Namespace = namespace
	}
}

// NewDispatcher returns a new instance of Dispatcher
func NewDispatcher(
	statusFn hooks.StatusFunc, writer *StatusWriter, opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		StatusFn:     statusFn,
		Writer:       writer,
		Clock:        clock.RealClock{},
		Workers:      defaultWorkerCount,
		WriteTimeout: defaultWriteTimeout,
		pending:      make(map[string]*v1.DailyTask),
	}
	for _, o := range opts {
		o(d)
	}
	if d.StatusFn == nil {
		d.StatusFn = hooks.DefaultStatus
	}
	if d.Workers <= 0 {
		// set a reasonable worker count value
		d.Workers = defaultWorkerCount
	}
	if d.WriteTimeout <= 0 {
		d.WriteTimeout = defaultWriteTimeout
	}
	d.queue = workqueue.NewTypedWithConfig(workqueue.TypedQueueConfig[string]{
		Name: "DailyTaskDispatcher",
	})
	return d
}

// Reconcile computes the status of the given snapshot & writes it.
// Errors are logged & swallowed; one failed resource never affects
// any other.
func (d *Dispatcher) Reconcile(ctx context.Context, task *v1.DailyTask) {
	defer utilruntime.HandleCrash()

	start := d.Clock.Now()
	namespace := d.namespaceOf(task)
	status := d.StatusFn(task, start)
	glog.Infof(
		"Updating status of %s %s/%s: Day %s Time %s Rating %s",
		v1.Kind, namespace, task.Name, status.Today.Day, status.Today.Time, status.Today.Rating,
	)

	outcome, err := d.Writer.Write(ctx, namespace, task.Name, status)
	took := d.Clock.Since(start)
	if err == nil {
		if outcome == OutcomeFallbackPatched {
			metrics.RecordStatusWrite(metrics.OutcomeFallback, took)
			glog.Infof("Regular patch successful for %s/%s: Took %s", namespace, task.Name, took)
			return
		}
		metrics.RecordStatusWrite(metrics.OutcomeStatus, took)
		glog.Infof("Status update successful for %s/%s: Took %s", namespace, task.Name, took)
		return
	}

	var aborted *WriteAbortedError
	if errors.As(err, &aborted) {
		metrics.RecordStatusWrite(metrics.OutcomeAborted, took)
		glog.Warningf("Skipping %s/%s: %v", namespace, task.Name, err)
		return
	}
	metrics.RecordStatusWrite(metrics.OutcomeFailed, took)
	glog.Errorf("Skipping %s/%s: %v", namespace, task.Name, err)
}

// Enqueue hands over the given snapshot to the workers. It never
// blocks.
func (d *Dispatcher) Enqueue(task *v1.DailyTask) {
	key := d.namespaceOf(task) + "/" + task.Name

	d.mutex.Lock()
	d.pending[key] = task
	d.mutex.Unlock()

	d.queue.Add(key)
}

// Run starts the workers & blocks till the given context is done.
// Writes in flight are allowed to finish within WriteTimeout while
// snapshots that were not picked up yet are abandoned.
func (d *Dispatcher) Run(ctx context.Context) {
	glog.Infof("Starting %d dispatcher workers", d.Workers)
	defer glog.Infof("Dispatcher workers stopped")

	var wg sync.WaitGroup
	for i := 0; i < d.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d.processNextWorkItem(ctx) {
			}
		}()
	}

	<-ctx.Done()
	d.queue.ShutDown()
	wg.Wait()
}

// Len returns the number of resources waiting to be reconciled
func (d *Dispatcher) Len() int {
	return d.queue.Len()
}

// processNextWorkItem reconciles the next queued resource. It
// returns false only when the queue has been shut down & drained.
func (d *Dispatcher) processNextWorkItem(ctx context.Context) bool {
	key, quit := d.queue.Get()
	if quit {
		return false
	}
	defer d.queue.Done(key)

	task := d.pop(key)
	if task == nil {
		return true
	}
	if ctx.Err() != nil {
		glog.Infof("Abandoning reconcile of %s %s: Shutting down", v1.Kind, key)
		return true
	}

	// the write is not cancelled by shutdown but bounded in time
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.WriteTimeout)
	defer cancel()
	d.Reconcile(wctx, task)
	return true
}

func (d *Dispatcher) pop(key string) *v1.DailyTask {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	task := d.pending[key]
	delete(d.pending, key)
	return task
}

func (d *Dispatcher) namespaceOf(task *v1.DailyTask) string {
	if task.Namespace != "" {
		return task.Namespace
	}
	return d.Namespace
}
