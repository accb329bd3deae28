package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"push-service/internal/observability"
	"push-service/internal/transport"

	"go.uber.org/zap"
)

// Options bundles the dependencies and knobs of the delivery engine.
type Options struct {
	Store       TaskStore
	Queue       Scheduler
	Drivers     transport.Registry
	DeadLetter  DeadLetter // optional
	Metrics     *observability.Metrics
	Workers     int // 0 is coerced to 1
	Buffer      int // per-worker channel capacity
	MaxAttempts int // 0 retries forever
	Logger      *zap.Logger
}

// Pusher drains the delay queue and fans due task ids out to a pool of
// workers, strict round-robin. It is the single reader of the queue; running
// more than one Pusher against the same sorted set is unsupported.
type Pusher struct {
	opts    Options
	running atomic.Bool
	senders []chan int64
	next    int
	wg      sync.WaitGroup
	done    chan struct{}
}

func NewPusher(opts Options) *Pusher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	return &Pusher{opts: opts}
}

// Start spawns the workers and the polling loop. Calling Start on a running
// Pusher is an error.
func (p *Pusher) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("already running")
	}

	p.senders = make([]chan int64, p.opts.Workers)
	p.next = 0
	p.done = make(chan struct{})

	histogram := newDeliveryHistogram()
	for i := range p.senders {
		p.senders[i] = make(chan int64, p.opts.Buffer)

		w := &worker{
			id:          i,
			store:       p.opts.Store,
			queue:       p.opts.Queue,
			drivers:     p.opts.Drivers,
			dlq:         p.opts.DeadLetter,
			maxAttempts: p.opts.MaxAttempts,
			metrics:     p.opts.Metrics,
			duration:    histogram,
			logger:      p.opts.Logger,
		}
		p.wg.Add(1)
		go w.run(ctx, p.senders[i], &p.wg)
	}

	go p.poll(ctx)
	return nil
}

func (p *Pusher) poll(ctx context.Context) {
	defer close(p.done)

	p.opts.Logger.Info("pusher started polling", zap.Int("workers", p.opts.Workers))

	for p.running.Load() && ctx.Err() == nil {
		now := time.Now().Unix()

		taskIDs, err := p.opts.Queue.PopDue(ctx, now)
		if err != nil {
			p.opts.Logger.Error("delay queue read failed", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if len(taskIDs) == 0 {
			p.sleep(ctx)
			continue
		}

		p.assign(taskIDs)
	}

	// Closing the channels is the workers' termination signal.
	for _, sender := range p.senders {
		close(sender)
	}

	p.opts.Logger.Info("pusher stopped polling")
}

// assign distributes ids across the worker channels, strict round-robin.
func (p *Pusher) assign(taskIDs []int64) {
	for _, taskID := range taskIDs {
		p.senders[p.next] <- taskID
		p.next = (p.next + 1) % len(p.senders)
	}
}

func (p *Pusher) sleep(ctx context.Context) {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
}

// Stop clears the running flag and waits for in-flight deliveries to finish.
func (p *Pusher) Stop(ctx context.Context) error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
