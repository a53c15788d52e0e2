package resource

import (
	"container/heap"

	"github.com/arcana-engine/sierra/internal/utils"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// Handle identifies one registered resource. The zero value is invalid.
type Handle struct {
	kind Kind
	id   uint64
}

// Kind returns the resource class the handle was registered under.
func (h Handle) Kind() Kind { return h.kind }

// IsZero reports whether the handle does not name a resource.
func (h Handle) IsZero() bool { return h.id == 0 }

type entry struct {
	refs     int
	lastUsed Epoch
	state    State
	destroy  func()
}

type registryShard struct {
	mutex   utils.OptionalMutex
	entries *swiss.Map[uint64, *entry]
	nextID  uint64
}

// Registry tracks resource lifecycle states and defers destructor execution
// until the epochs that used each resource have completed. It is sharded by
// resource kind; the pending reclamation queue is shared across shards so
// destructors run in ascending epoch order regardless of kind.
type Registry struct {
	logger   *slog.Logger
	useMutex bool

	shards [kindCount]registryShard

	pendingMutex   utils.OptionalMutex
	pending        pendingQueue
	pendingSeq     uint64
	completedEpoch Epoch

	// reclaimMutex serializes destructor runs so they stay in ascending epoch
	// order even when several goroutines drive completion at once
	reclaimMutex utils.OptionalMutex
}

// NewRegistry creates an empty registry. With useMutex false the caller takes
// over synchronization of every method.
func NewRegistry(logger *slog.Logger, useMutex bool) *Registry {
	registry := &Registry{
		logger:   logger,
		useMutex: useMutex,
		pendingMutex: utils.OptionalMutex{
			UseMutex: useMutex,
		},
		reclaimMutex: utils.OptionalMutex{
			UseMutex: useMutex,
		},
	}
	for i := 0; i < kindCount; i++ {
		registry.shards[i] = registryShard{
			mutex:   utils.OptionalMutex{UseMutex: useMutex},
			entries: swiss.NewMap[uint64, *entry](42),
		}
	}
	return registry
}

// Register adds a resource with one strong reference, associating it with the
// epoch current at creation time. The destructor is the closure that returns
// the resource's storage to its allocator; it runs at most once, from
// whichever goroutine drives epoch completion.
func (r *Registry) Register(kind Kind, epoch Epoch, destroy func()) Handle {
	if destroy == nil {
		panic("attempted to register a resource with a nil destructor")
	}

	shard := &r.shards[kind]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	shard.nextID++
	shard.entries.Put(shard.nextID, &entry{
		refs:     1,
		lastUsed: epoch,
		state:    StateLive,
		destroy:  destroy,
	})

	return Handle{kind: kind, id: shard.nextID}
}

// Retain adds a strong reference to a live resource.
func (r *Registry) Retain(h Handle) {
	shard := &r.shards[h.kind]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	e, ok := shard.entries.Get(h.id)
	if !ok || e.state != StateLive {
		r.invalidUse("Retain", h)
		return
	}

	e.refs++
}

// MarkUsed raises the resource's last-used epoch. The value only moves
// forward; marking with an older epoch is a no-op.
func (r *Registry) MarkUsed(h Handle, epoch Epoch) {
	shard := &r.shards[h.kind]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	e, ok := shard.entries.Get(h.id)
	if !ok || e.state != StateLive {
		r.invalidUse("MarkUsed", h)
		return
	}

	if epoch > e.lastUsed {
		e.lastUsed = epoch
	}
}

// Release drops one strong reference. When the count reaches zero the
// resource moves to PendingFree and joins the reclamation queue keyed by its
// last-used epoch; if that epoch has already completed it is reclaimed before
// Release returns.
func (r *Registry) Release(h Handle) {
	shard := &r.shards[h.kind]

	shard.mutex.Lock()

	e, ok := shard.entries.Get(h.id)
	if !ok || e.state != StateLive {
		shard.mutex.Unlock()
		r.invalidUse("Release", h)
		return
	}

	e.refs--
	if e.refs > 0 {
		shard.mutex.Unlock()
		return
	}

	e.state = StatePendingFree
	pendingEpoch := e.lastUsed
	destroy := e.destroy
	shard.mutex.Unlock()

	r.pendingMutex.Lock()
	r.pendingSeq++
	heap.Push(&r.pending, pendingItem{
		epoch:   pendingEpoch,
		seq:     r.pendingSeq,
		handle:  h,
		destroy: destroy,
	})
	completed := r.completedEpoch
	r.pendingMutex.Unlock()

	if pendingEpoch <= completed {
		r.reclaimUpTo(completed)
	}
}

// OnEpochComplete reports that the device has finished all work up to and
// including the given epoch. Pending resources whose last-used epoch is
// covered run their destructors, in ascending epoch order.
func (r *Registry) OnEpochComplete(epoch Epoch) {
	r.pendingMutex.Lock()
	if epoch > r.completedEpoch {
		r.completedEpoch = epoch
	}
	epoch = r.completedEpoch
	r.pendingMutex.Unlock()

	r.reclaimUpTo(epoch)
}

func (r *Registry) reclaimUpTo(epoch Epoch) {
	r.reclaimMutex.Lock()
	defer r.reclaimMutex.Unlock()

	for {
		r.pendingMutex.Lock()
		if len(r.pending) == 0 || r.pending[0].epoch > epoch {
			r.pendingMutex.Unlock()
			return
		}
		item := heap.Pop(&r.pending).(pendingItem)
		r.pendingMutex.Unlock()

		r.finalize(item)
	}
}

// finalize runs one resource's destructor and moves it to Freed.
func (r *Registry) finalize(item pendingItem) {
	item.destroy()

	shard := &r.shards[item.handle.kind]

	shard.mutex.Lock()
	e, ok := shard.entries.Get(item.handle.id)
	if ok {
		e.state = StateFreed
		e.destroy = nil
		shard.entries.Delete(item.handle.id)
	}
	shard.mutex.Unlock()
}

// ForceReclaimAll drains the reclamation queue unconditionally, running every
// pending destructor in ascending epoch order. The caller must have issued a
// device-idle barrier first; this is the shutdown path.
func (r *Registry) ForceReclaimAll() {
	r.reclaimMutex.Lock()
	defer r.reclaimMutex.Unlock()

	for {
		r.pendingMutex.Lock()
		if len(r.pending) == 0 {
			r.pendingMutex.Unlock()
			return
		}
		item := heap.Pop(&r.pending).(pendingItem)
		r.pendingMutex.Unlock()

		r.finalize(item)
	}
}

// LiveCount returns the number of resources of the kind still holding
// references or waiting on the reclamation queue.
func (r *Registry) LiveCount(kind Kind) int {
	shard := &r.shards[kind]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	return shard.entries.Count()
}

// State reports the lifecycle state of a handle. Handles whose entries have
// been removed report StateFreed.
func (r *Registry) State(h Handle) State {
	shard := &r.shards[h.kind]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()

	e, ok := shard.entries.Get(h.id)
	if !ok {
		return StateFreed
	}
	return e.state
}
