// Package dispatcher runs every operation that touches storage or shared
// world state on a single goroutine, in submission order.
package dispatcher

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/core/client"
	coredebug "github.com/dcrodman/otgate/internal/core/debug"
)

const defaultQueueSize = 1024

var ErrStopped = errors.New("dispatcher is not running")

// Output delivers a task's results to the session that submitted it. Once
// the session has disconnected, sends are silently dropped.
type Output interface {
	Send(msg *bytes.Writer) error
	Close() error
	// Connected reports whether the originating session is still registered.
	Connected() bool
}

// Task is a continuation bound to the session it was created for. SessionID 0
// means the task has no destination and all of its output is dropped.
type Task struct {
	SessionID uint64
	Fn        func(ctx context.Context, out Output)
}

// Registry looks up live sessions by id.
type Registry interface {
	Get(id uint64) (*client.Client, bool)
}

type Dispatcher struct {
	Logger   *logrus.Logger
	Sessions Registry

	tasks   chan Task
	stopped chan struct{}
}

func New(logger *logrus.Logger, sessions Registry) *Dispatcher {
	return &Dispatcher{
		Logger:   logger,
		Sessions: sessions,
		tasks:    make(chan Task, defaultQueueSize),
		stopped:  make(chan struct{}),
	}
}

// Submit queues t behind every previously submitted task. It blocks while the
// queue is full.
func (d *Dispatcher) Submit(ctx context.Context, t Task) error {
	select {
	case <-d.stopped:
		return ErrStopped
	default:
	}

	select {
	case d.tasks <- t:
		coredebug.DispatcherQueueDepth.Set(float64(len(d.tasks)))
		return nil
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks one at a time until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stopped)

	for {
		select {
		case <-ctx.Done():
			d.Logger.Infof("[DISPATCHER] shutting down with %d queued tasks", len(d.tasks))
			return
		case t := <-d.tasks:
			coredebug.DispatcherQueueDepth.Set(float64(len(d.tasks)))
			d.execute(ctx, t)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, t Task) {
	defer func() {
		if err := recover(); err != nil {
			d.Logger.Errorf("[DISPATCHER] task for session %d panicked: error=%s, trace: %s",
				t.SessionID, err, debug.Stack())
		}
	}()

	t.Fn(ctx, &sessionOutput{sessions: d.Sessions, id: t.SessionID})
}

type sessionOutput struct {
	sessions Registry
	id       uint64
}

func (o *sessionOutput) client() *client.Client {
	if o.id == 0 || o.sessions == nil {
		return nil
	}
	c, ok := o.sessions.Get(o.id)
	if !ok {
		return nil
	}
	return c
}

func (o *sessionOutput) Connected() bool {
	return o.client() != nil
}

func (o *sessionOutput) Send(msg *bytes.Writer) error {
	c := o.client()
	if c == nil {
		return nil
	}
	return c.Send(msg)
}

func (o *sessionOutput) Close() error {
	c := o.client()
	if c == nil {
		return nil
	}
	return c.Close()
}
