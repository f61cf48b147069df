package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/ingestadmin"
	"motherstream/internal/clients/notify"
	"motherstream/internal/clients/recording"
	"motherstream/internal/core/compositor"
)

// Metrics is the narrow set of callbacks the worker reports through;
// kept as an interface so internal/svc/metrics can implement it without
// the worker importing the Prometheus client directly.
type Metrics interface {
	JobProcessed(jobType string, duration time.Duration)
}

// Worker is the single consumer that serializes every compositor RPC.
// It is the only goroutine allowed to call compositor control
// operations (§4.4) — the health monitor only ever issues read RPCs,
// directly against the compositor client, bypassing the worker.
type Worker struct {
	queue       *unboundedQueue
	compositor  *compositor.Client
	notifier    *notify.Sink
	recorder    *recording.Controller
	ingestAdmin *ingestadmin.Client
	timing      *TimingWriter
	metrics     Metrics
	log         *logrus.Entry

	obsJobDelay       time.Duration
	lastCompositorJob time.Time

	running atomic.Bool
}

// New builds a Worker. timing may be nil to disable the timing CSV.
func New(comp *compositor.Client, notifier *notify.Sink, recorder *recording.Controller, ingestAdmin *ingestadmin.Client, obsJobDelay time.Duration, timing *TimingWriter, metrics Metrics, log *logrus.Entry) *Worker {
	return &Worker{
		queue:       newUnboundedQueue(),
		compositor:  comp,
		notifier:    notifier,
		recorder:    recorder,
		ingestAdmin: ingestAdmin,
		timing:      timing,
		metrics:     metrics,
		obsJobDelay: obsJobDelay,
		log:         log,
	}
}

// Enqueue adds job to the tail of the queue. Never blocks.
func (w *Worker) Enqueue(job Job) {
	w.queue.Push(job)
}

// QueueDepth returns the number of jobs waiting to be processed.
func (w *Worker) QueueDepth() int {
	return w.queue.Len()
}

// Start runs the consumer loop until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.running.Store(true)
	defer w.running.Store(false)

	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.queue.Close()
		case <-stopWatch:
		}
	}()
	defer close(stopWatch)

	for {
		job, ok := w.queue.Pop()
		if !ok {
			return nil
		}

		if IsCompositorClass(job.Type) {
			w.spaceCompositorJob()
		}

		wait := time.Since(job.EnqueuedAt)
		start := time.Now()
		err := w.dispatchRecovered(ctx, job)
		exec := time.Since(start)
		if IsCompositorClass(job.Type) {
			// Spacing runs from the end of one compositor job to the start
			// of the next.
			w.lastCompositorJob = time.Now()
		}

		entry := w.log.WithField("job_id", job.ID).WithField("job_type", string(job.Type))
		if err != nil {
			entry.WithError(err).Error("job failed")
		} else {
			entry.Debug("job completed")
		}

		if w.timing != nil {
			w.timing.Record(job, wait, exec)
		}
		if w.metrics != nil {
			w.metrics.JobProcessed(string(job.Type), exec)
		}
	}
}

// Stop closes the queue, unblocking the consumer at its next wakeup.
func (w *Worker) Stop() error {
	w.queue.Close()
	return nil
}

// IsRunning reports whether the consumer loop is currently executing.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

func (w *Worker) spaceCompositorJob() {
	if !w.lastCompositorJob.IsZero() {
		if elapsed := time.Since(w.lastCompositorJob); elapsed < w.obsJobDelay {
			time.Sleep(w.obsJobDelay - elapsed)
		}
	}
	w.lastCompositorJob = time.Now()
}

// dispatchRecovered wraps dispatch with a recover so a single bad job
// can never take down the worker loop (§7, Panic / unhandled).
func (w *Worker) dispatchRecovered(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("job_id", job.ID).WithField("panic", r).Error("job handler panicked")
			err = errJobPanicked
		}
	}()
	return w.dispatch(ctx, job)
}
