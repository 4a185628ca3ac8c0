package plugin

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

const queueSize = 8

type job struct {
	plugin *Plugin
	req    *Request
}

// Dispatcher runs the plugins bound to each confirmed gesture. It implements
// gesture.Listener; runs happen on one worker goroutine in arrival order and
// are dropped when the queue is full.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	log      *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher starts a dispatcher for the plugins known to manager.
func NewDispatcher(manager *Manager, executor *Executor, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		log:      log,
		queue:    make(chan job, queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go d.run()
	return d
}

// GestureConfirmed implements gesture.Listener.
func (d *Dispatcher) GestureConfirmed(ev gesture.Event) {
	for _, p := range d.manager.List() {
		action, ok := p.Manifest.Action(ev.Name)
		if !ok {
			continue
		}
		d.enqueue(job{plugin: p, req: &Request{
			Action:  action,
			Gesture: ev.Name,
			Score:   ev.Score,
			Builtin: ev.Builtin,
			Hand:    string(ev.Hand),
			Time:    ev.Time,
			Config:  p.Manifest.Config,
		}})
	}
}

func (d *Dispatcher) LearningProgress(string, int) {}

func (d *Dispatcher) LearningFinished(gesture.LearnResult, error) {}

// Close stops the worker after the running plugin finishes; queued runs
// are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.cancel()
	<-d.done
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- j:
	default:
		d.log.Warnw("plugin queue full, dropping run", "plugin", j.plugin.Manifest.Name, "gesture", j.req.Gesture)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		if d.ctx.Err() != nil {
			continue
		}
		name := j.plugin.Manifest.Name
		resp, err := d.executor.Execute(d.ctx, j.plugin, j.req)
		switch {
		case err != nil:
			d.log.Warnw("plugin failed", "plugin", name, "action", j.req.Action, "error", err)
		case !resp.Success:
			d.log.Warnw("plugin reported failure", "plugin", name, "action", j.req.Action, "error", resp.Error)
		default:
			d.log.Debugw("plugin ran", "plugin", name, "action", j.req.Action, "gesture", j.req.Gesture)
		}
	}
}
