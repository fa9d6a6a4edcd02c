package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/infra/metrics"
)

// TickFunc runs one poll tick. Returning true tears the loop down; the tick
// that observes a terminal state is the last one that runs.
type TickFunc func(ctx context.Context) (done bool)

// Runner owns a set of repeating timers keyed by an opaque id (job id or
// batch id). At most one live timer exists per id: Start is idempotent, and
// stopping by any path (terminal tick, explicit Stop, StopAll on teardown)
// converges to "no live timer, no further callbacks".
type Runner struct {
	mu    sync.Mutex
	loops map[string]*loop
	log   *zerolog.Logger
}

type loop struct {
	id       string
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRunner(log *zerolog.Logger) *Runner {
	return &Runner{loops: make(map[string]*loop), log: log}
}

// Start begins a repeating tick for id. It reports false without side effects
// when a timer for the same id is already live.
func (r *Runner) Start(ctx context.Context, id string, every time.Duration, tick TickFunc) bool {
	if every <= 0 {
		every = time.Second
	}
	r.mu.Lock()
	if _, exists := r.loops[id]; exists {
		r.mu.Unlock()
		r.log.Debug().Str("loop_id", id).Msg("poll loop already live, start ignored")
		return false
	}
	l := &loop{id: id, stop: make(chan struct{})}
	r.loops[id] = l
	metrics.SetPollLoopsLive(len(r.loops))
	r.mu.Unlock()

	go r.run(ctx, l, every, tick)
	return true
}

func (r *Runner) run(ctx context.Context, l *loop, every time.Duration, tick TickFunc) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.remove(l)
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if !r.live(l.id) {
				return
			}
			metrics.IncPollTick()
			if tick(ctx) {
				r.remove(l)
				return
			}
		}
	}
}

func (r *Runner) live(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loops[id]
	return ok
}

func (r *Runner) remove(l *loop) {
	r.mu.Lock()
	if cur, ok := r.loops[l.id]; ok && cur == l {
		delete(r.loops, l.id)
	}
	metrics.SetPollLoopsLive(len(r.loops))
	r.mu.Unlock()
	l.stopOnce.Do(func() { close(l.stop) })
}

// Stop tears down the timer for id. Late backend responses after a stop are
// discarded, not buffered.
func (r *Runner) Stop(id string) {
	r.mu.Lock()
	l, ok := r.loops[id]
	if ok {
		delete(r.loops, id)
	}
	metrics.SetPollLoopsLive(len(r.loops))
	r.mu.Unlock()
	if ok {
		l.stopOnce.Do(func() { close(l.stop) })
	}
}

// StopAll tears down every live timer. Used on owner teardown.
func (r *Runner) StopAll() {
	r.mu.Lock()
	ls := make([]*loop, 0, len(r.loops))
	for _, l := range r.loops {
		ls = append(ls, l)
	}
	r.loops = make(map[string]*loop)
	metrics.SetPollLoopsLive(0)
	r.mu.Unlock()
	for _, l := range ls {
		l.stopOnce.Do(func() { close(l.stop) })
	}
}

// Live reports whether a timer for id is currently registered.
func (r *Runner) Live(id string) bool { return r.live(id) }

func (r *Runner) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}
