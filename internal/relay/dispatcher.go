package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/rules"
	"github.com/park285/chess-relay/internal/session"
)

// MoveEvent is handed to listeners after a move is accepted.
type MoveEvent struct {
	SessionID string
	Ply       int
	Record    rules.MoveRecord
	At        time.Time
}

// Listener receives side effects of the session. Calls happen on the
// dispatcher goroutine in acceptance order, never on the hub loop.
type Listener interface {
	MoveAccepted(ctx context.Context, ev MoveEvent, snap session.Snapshot) error
	GameFinished(ctx context.Context, snap session.Snapshot) error
}

type job struct {
	name string
	run  func(ctx context.Context, l Listener) error
}

// Dispatcher runs listener calls on a single worker so slow I/O never stalls
// the hub. When its queue is full new jobs are dropped and logged.
type Dispatcher struct {
	log       *zap.Logger
	listeners []Listener
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

func NewDispatcher(log *zap.Logger, queue int, timeout time.Duration, listeners ...Listener) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if queue <= 0 {
		queue = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		log:       log,
		listeners: listeners,
		timeout:   timeout,
		jobs:      make(chan job, queue),
		done:      make(chan struct{}),
	}
}

// Run consumes jobs until Close is called and the queue is drained.
func (d *Dispatcher) Run() {
	defer close(d.done)
	for j := range d.jobs {
		// 리스너마다 개별 타임아웃
		for _, l := range d.listeners {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err := j.run(ctx, l)
			cancel()
			if err != nil {
				d.log.Warn("relay_listener_error", zap.String("job", j.name), zap.Error(err))
			}
		}
	}
}

// Close stops intake and waits for queued jobs to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(j job) {
	if d == nil || len(d.listeners) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	// 큐가 가득 차면 버린다. 허브 루프를 막지 않음
	select {
	case d.jobs <- j:
	default:
		d.log.Warn("relay_listener_queue_full", zap.String("job", j.name))
	}
}

func (d *Dispatcher) moveAccepted(ev MoveEvent, snap session.Snapshot) {
	d.enqueue(job{name: "move_accepted", run: func(ctx context.Context, l Listener) error {
		return l.MoveAccepted(ctx, ev, snap)
	}})
}

func (d *Dispatcher) gameFinished(snap session.Snapshot) {
	d.enqueue(job{name: "game_finished", run: func(ctx context.Context, l Listener) error {
		return l.GameFinished(ctx, snap)
	}})
}
