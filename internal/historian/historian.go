// internal/historian/historian.go is an asynchronous historian service that pops match
// actions from a Redis queue and persists them to PostgreSQL.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/cache"
	"github.com/jason-s-yu/oldskool/internal/database"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source yields batches of queued records. cache.ActionLog implements it.
type Source interface {
	PopBatch(ctx context.Context, max int, timeout time.Duration) ([]cache.MatchActionRecord, int, error)
}

// Sink persists records and closes out idle matches.
type Sink interface {
	InsertMatchActions(ctx context.Context, batch []cache.MatchActionRecord) error
	MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error)
}

// PostgresSink writes through the shared database pool.
type PostgresSink struct{}

func (PostgresSink) InsertMatchActions(ctx context.Context, batch []cache.MatchActionRecord) error {
	return database.InsertMatchActions(ctx, batch)
}

func (PostgresSink) MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error) {
	return database.MarkMatchAbandoned(ctx, matchID)
}

// Options tune batching and the abandonment sweep.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a match may go without actions before it is marked abandoned.
	Inactivity time.Duration
	// SweepEvery is how often idle matches are checked; defaults to one minute.
	SweepEvery time.Duration
}

// Service drains the action queue into the database.
type Service struct {
	src  Source
	sink Sink
	opts Options
	log  *logrus.Entry

	batchMu   sync.Mutex
	batch     []cache.MatchActionRecord
	lastFlush time.Time

	// lastActivity is matchID -> time of the newest action seen for a running match.
	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	now func() time.Time
}

// NewService constructs a Service. Zero options fall back to the defaults.
func NewService(src Source, sink Sink, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		src:          src,
		sink:         sink,
		opts:         opts,
		log:          logger.WithField("component", "historian"),
		batch:        make([]cache.MatchActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}
}

// Run starts the queue reader and the inactivity sweep and blocks until ctx is cancelled.
// Whatever is buffered is flushed on the way out.
func (hs *Service) Run(ctx context.Context) error {
	hs.log.Info("historian service started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hs.readLoop(gctx) })
	g.Go(func() error { return hs.inactivityLoop(gctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := hs.flush(flushCtx); ferr != nil {
		hs.log.WithError(ferr).Error("final flush failed")
	}
	hs.log.Info("historian shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (hs *Service) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, bad, err := hs.src.PopBatch(ctx, hs.opts.BatchSize, hs.opts.FlushDelay)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			hs.log.WithError(err).Error("pop batch")
			time.Sleep(hs.opts.FlushDelay)
			continue
		}
		if bad > 0 {
			hs.log.WithField("count", bad).Warn("dropped malformed action records")
		}
		hs.ingest(records)
		if hs.shouldFlush() {
			if err := hs.flush(ctx); err != nil {
				hs.log.WithError(err).Error("flush batch")
			}
		}
	}
}

// ingest buffers records and tracks per-match activity.
func (hs *Service) ingest(records []cache.MatchActionRecord) {
	if len(records) == 0 {
		return
	}
	now := hs.now()
	hs.activityMu.Lock()
	for _, rec := range records {
		if rec.ActionType == cache.ActionMatchEnd {
			delete(hs.lastActivity, rec.MatchID)
			continue
		}
		hs.lastActivity[rec.MatchID] = now
	}
	hs.activityMu.Unlock()

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, records...)
	hs.batchMu.Unlock()
}

func (hs *Service) shouldFlush() bool {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	if len(hs.batch) == 0 {
		return false
	}
	return len(hs.batch) >= hs.opts.BatchSize || hs.now().Sub(hs.lastFlush) >= hs.opts.FlushDelay
}

// flush writes the buffered batch in one transaction. On failure the batch is kept for the
// next attempt; inserts ignore rows that already landed.
func (hs *Service) flush(ctx context.Context) error {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.lastFlush = hs.now()
	if len(hs.batch) == 0 {
		return nil
	}
	if err := hs.sink.InsertMatchActions(ctx, hs.batch); err != nil {
		return err
	}
	hs.log.WithField("count", len(hs.batch)).Debug("flushed actions to db")
	hs.batch = hs.batch[:0]
	return nil
}

func (hs *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(hs.opts.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			hs.sweepInactive(ctx)
		}
	}
}

// sweepInactive marks every match idle for longer than Inactivity as abandoned.
func (hs *Service) sweepInactive(ctx context.Context) {
	now := hs.now()
	var idle []uuid.UUID
	hs.activityMu.Lock()
	for id, last := range hs.lastActivity {
		if now.Sub(last) > hs.opts.Inactivity {
			idle = append(idle, id)
			delete(hs.lastActivity, id)
		}
	}
	hs.activityMu.Unlock()

	for _, id := range idle {
		changed, err := hs.sink.MarkMatchAbandoned(ctx, id)
		if err != nil {
			hs.log.WithError(err).WithField("match", id).Error("failed to mark match abandoned")
			continue
		}
		if changed {
			hs.log.WithField("match", id).Info("marked match abandoned due to inactivity")
		}
	}
}
