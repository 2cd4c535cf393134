// internal/application/usecase/snapshot_debouncer.go
package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
)

// DefaultDebounceDelay is the quiet period after the last cart mutation
// before the account snapshot is written.
const DefaultDebounceDelay = 1500 * time.Millisecond

const debouncedWriteTimeout = 10 * time.Second

// SnapshotDebouncer keeps at most one pending snapshot write.
// Schedule supersedes the pending write; Cancel drops it. Only the most
// recent cart within the window is ever written. After Seal nothing new is
// scheduled.
type SnapshotDebouncer struct {
	store cartdom.SnapshotStore
	sched Scheduler
	delay time.Duration
	rec   Recorder
	log   *zap.Logger

	mu       sync.Mutex
	gen      uint64
	timer    Timer
	pending  *PendingWrite
	failed   *PendingWrite
	sealed   bool
	inflight sync.WaitGroup // timer writes past the generation check
}

func NewSnapshotDebouncer(store cartdom.SnapshotStore, sched Scheduler, delay time.Duration, rec Recorder, logger *zap.Logger) *SnapshotDebouncer {
	if sched == nil {
		sched = systemScheduler{}
	}
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotDebouncer{
		store: store,
		sched: sched,
		delay: delay,
		rec:   rec,
		log:   logger.Named("snapshot_debouncer"),
	}
}

// Schedule replaces any pending write with (key, c) and restarts the timer.
func (d *SnapshotDebouncer) Schedule(key string, c cartdom.Cart) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sealed {
		d.log.Debug("schedule after seal ignored", zap.String("key", key))
		return
	}
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = &PendingWrite{Key: key, Cart: c.Clone()}
	d.failed = nil
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending write and any failed write awaiting retry.
func (d *SnapshotDebouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	d.pending = nil
	d.failed = nil
}

// RetryFailed reschedules the last failed write when nothing else is pending.
func (d *SnapshotDebouncer) RetryFailed() bool {
	d.mu.Lock()
	f := d.failed
	busy := d.pending != nil
	d.mu.Unlock()

	if f == nil || busy {
		return false
	}
	d.Schedule(f.Key, f.Cart)
	return true
}

// Pending reports the key of the scheduled write.
func (d *SnapshotDebouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return "", false
	}
	return d.pending.Key, true
}

// Seal stops the timer and stops accepting writes. It returns the write that
// was still owed (pending, else the last failed one) for Drain.
func (d *SnapshotDebouncer) Seal() *PendingWrite {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sealed = true
	d.stopLocked()
	d.gen++
	p := d.pending
	if p == nil {
		p = d.failed
	}
	d.pending = nil
	d.failed = nil
	return p
}

func (d *SnapshotDebouncer) Sealed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sealed
}

// Drain writes p (from Seal) and waits for timer writes already in flight.
func (d *SnapshotDebouncer) Drain(ctx context.Context, p *PendingWrite) error {
	var err error
	if p != nil {
		d.mu.Lock()
		gen := d.gen
		d.mu.Unlock()
		err = d.write(ctx, gen, *p)
	}
	d.inflight.Wait()
	return err
}

func (d *SnapshotDebouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		// superseded or cancelled
		d.mu.Unlock()
		return
	}
	p := *d.pending
	d.pending = nil
	d.timer = nil
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), debouncedWriteTimeout)
	defer cancel()
	_ = d.write(ctx, gen, p)
}

// write keeps a failed write for RetryFailed unless it went stale meanwhile.
func (d *SnapshotDebouncer) write(ctx context.Context, gen uint64, p PendingWrite) error {
	if d.store == nil {
		return nil
	}
	if err := d.store.Write(ctx, p.Key, p.Cart); err != nil {
		d.rec.DebouncedWrite(false)
		d.rec.StorageError("snapshot_write")
		d.log.Warn("debounced snapshot write failed; will retry", zap.String("key", p.Key), zap.Error(err))

		d.mu.Lock()
		if d.gen == gen && d.pending == nil && !d.sealed {
			d.failed = &p
		}
		d.mu.Unlock()
		return err
	}
	d.rec.DebouncedWrite(true)
	d.log.Debug("debounced snapshot written", zap.String("key", p.Key), zap.Int("lines", p.Cart.LineCount()))
	return nil
}

func (d *SnapshotDebouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
