// Package feed produces the synthetic temperature stream and publishes one
// immutable Snapshot per tick.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"climate-tracker/internal/modules/climate/trend"
	"climate-tracker/internal/modules/climate/types"
)

const (
	// Capacity is the number of readings kept in the rolling window.
	Capacity = 15
	// Period is the interval between readings.
	Period = 3 * time.Second
	// HandlerTimeout bounds a single handler call so a slow sink cannot
	// hold on to a snapshot for longer than a period.
	HandlerTimeout = 2 * time.Second
)

// Snapshot is everything the dashboard renders for one tick. It is never
// mutated after it has been published.
type Snapshot struct {
	Seq     uint64          `json:"seq"`
	Latest  *types.Reading  `json:"latest"`
	Window  []types.Reading `json:"-"`
	Table   []types.Row     `json:"table"`
	Fit     types.Fit       `json:"trend"`
	TakenAt time.Time       `json:"taken_at"`
}

// Empty reports whether no reading has been produced yet.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Window) == 0
}

// Handler runs after each tick with the snapshot that tick published.
type Handler func(ctx context.Context, snap *Snapshot) error

type Option func(*Feed)

func WithSource(src Source) Option {
	return func(f *Feed) { f.source = src }
}

// WithClock overrides the wall clock used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) { f.logger = logger }
}

type Feed struct {
	// mu serializes ticks and guards window, seq, sinks and running.
	mu      sync.Mutex
	window  *Window
	seq     uint64
	sinks   []*sink
	running context.Context
	workers sync.WaitGroup

	source         Source
	now            func() time.Time
	period         time.Duration
	handlerTimeout time.Duration
	logger         *slog.Logger

	current atomic.Pointer[Snapshot]
}

func New(opts ...Option) *Feed {
	f := &Feed{
		window: NewWindow(Capacity),
		source: NewUniformSource(),
		now:    time.Now,
		period: Period,
		logger: slog.Default(),

		handlerTimeout: HandlerTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.current.Store(&Snapshot{})
	return f
}

// Subscribe registers h to receive every published snapshot. While Run is
// active each handler has its own worker, so handlers never delay a tick or
// each other.
func (f *Feed) Subscribe(h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := newSink(len(f.sinks), h)
	f.sinks = append(f.sinks, s)
	if f.running != nil {
		f.startWorker(f.running, s)
	}
}

// Snapshot returns the most recently published snapshot. Never nil.
func (f *Feed) Snapshot() *Snapshot {
	return f.current.Load()
}

// LastTick returns when the latest reading was taken.
func (f *Feed) LastTick() (time.Time, bool) {
	s := f.Snapshot()
	if s.Empty() {
		return time.Time{}, false
	}
	return s.TakenAt, true
}

// Tick takes one reading and publishes the resulting snapshot. While Run is
// active the snapshot is queued to every handler's worker; otherwise Tick
// runs the handlers inline, in registration order, before returning.
// Handler errors are logged; they never undo the tick.
func (f *Feed) Tick(ctx context.Context) *Snapshot {
	snap, sinks, running := f.advance()
	for _, s := range sinks {
		if running {
			if s.offer(snap) {
				f.logger.Warn("feed handler behind, dropped snapshot", "handler", s.id, "seq", snap.Seq)
			}
			continue
		}
		f.deliver(ctx, s, snap)
	}
	return snap
}

func (f *Feed) advance() (*Snapshot, []*sink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	reading := types.Reading{
		TemperatureC: f.source.Next(),
		Timestamp:    now.Format(types.TimestampLayout),
		Time:         now.Truncate(time.Second),
	}
	evicted, didEvict := f.window.Push(reading)

	items := f.window.Items()
	rows, fit := trend.Table(items)
	latest := items[len(items)-1]
	f.seq++

	snap := &Snapshot{
		Seq:     f.seq,
		Latest:  &latest,
		Window:  items,
		Table:   rows,
		Fit:     fit,
		TakenAt: now,
	}
	f.current.Store(snap)

	attrs := []any{
		"seq", snap.Seq,
		"temperature_c", reading.TemperatureC,
		"timestamp", reading.Timestamp,
		"window", f.window.Len(),
	}
	if didEvict {
		attrs = append(attrs, "evicted", evicted.Timestamp)
	}
	f.logger.Debug("feed tick", attrs...)

	return snap, append([]*sink(nil), f.sinks...), f.running != nil
}

func (f *Feed) deliver(ctx context.Context, s *sink, snap *Snapshot) {
	hctx, cancel := context.WithTimeout(ctx, f.handlerTimeout)
	defer cancel()
	if err := s.handle(hctx, snap); err != nil {
		f.logger.Warn("feed handler failed", "handler", s.id, "seq", snap.Seq, "error", err)
	}
}

// startWorker must be called with f.mu held.
func (f *Feed) startWorker(ctx context.Context, s *sink) {
	f.workers.Add(1)
	go func() {
		defer f.workers.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-s.queue:
				f.deliver(ctx, s, snap)
			}
		}
	}()
}

// Run takes a reading immediately and then once per period until ctx is done.
// It returns after every handler worker has exited.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running != nil {
		f.mu.Unlock()
		return errors.New("feed already running")
	}
	f.running = ctx
	for _, s := range f.sinks {
		f.startWorker(ctx, s)
	}
	handlers := len(f.sinks)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = nil
		f.mu.Unlock()
		f.workers.Wait()
	}()

	f.logger.Info("feed started", "period", f.period, "capacity", f.window.Cap(), "handlers", handlers)
	f.Tick(ctx)

	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed stopped", "seq", f.Snapshot().Seq)
			return ctx.Err()
		case <-ticker.C:
			f.Tick(ctx)
		}
	}
}
