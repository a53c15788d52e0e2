package descriptor

import (
	"context"
	"fmt"

	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/internal/utils"
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// SetHandle identifies one live descriptor set allocation. The zero value is
// invalid. Handles are minted by Allocator.AllocateSet and consumed by
// Allocator.FreeSet; the layer above translates them to native set objects
// within the pool they name.
type SetHandle struct {
	list *signaturePools
	pool *descriptorPool
	id   uint64
}

// Pool returns the opaque native handle of the pool this set was carved from.
func (h SetHandle) Pool() driver.DescriptorPoolHandle {
	if h.pool == nil {
		panic("attempting to inspect a zero descriptor set handle")
	}
	return h.pool.handle
}

// IsZero reports whether the handle does not name a set.
func (h SetHandle) IsZero() bool {
	return h.list == nil
}

// signaturePools owns every pool created for one layout signature. Each group
// carries its own mutex so that sets of unrelated signatures do not serialize
// each other.
type signaturePools struct {
	mutex utils.OptionalRWMutex
	sig   LayoutSignature

	pools      []*descriptorPool
	nextPoolID int

	liveSets  *swiss.Map[uint64, *descriptorPool]
	nextSetID uint64

	// lastMaxSets is the set capacity of the most recently created pool, fed
	// into the growth factor for the next one
	lastMaxSets int

	currentPass uint64
}

// Allocator manages pools of descriptor storage and hands out and recycles
// descriptor set allocations. Pools are grouped by layout signature; a new
// pool is created only when no existing pool of the signature has room.
type Allocator struct {
	useMutex bool
	logger   *slog.Logger
	device   driver.Device

	maxSetsPerPool int
	growthFactor   float64
	graceEpochs    uint64

	indexMutex utils.OptionalRWMutex
	index      *swiss.Map[LayoutSignature, *signaturePools]
	lists      []*signaturePools
}

// AllocateSet obtains a descriptor set allocation matching the signature's
// per-type capacity profile. Existing pools of the signature are scanned
// first; when none has room a new pool is created, sized by the configured
// growth factor. A device refusal surfaces as ErrPoolExhausted.
//
// This call is synchronous and may block on the underlying device call when a
// new pool is needed.
func (a *Allocator) AllocateSet(sig LayoutSignature) (SetHandle, error) {
	if sig.IsZero() {
		return SetHandle{}, errors.New("attempted to allocate a descriptor set with an empty layout signature")
	}

	list := a.listForSignature(sig)

	list.mutex.Lock()
	defer list.mutex.Unlock()

	for _, pool := range list.pools {
		if pool.hasRoom(sig) {
			return a.takeFromPool(list, pool, sig), nil
		}
	}

	pool, err := a.createPool(list)
	if err != nil {
		return SetHandle{}, err
	}

	return a.takeFromPool(list, pool, sig), nil
}

func (a *Allocator) takeFromPool(list *signaturePools, pool *descriptorPool, sig LayoutSignature) SetHandle {
	pool.take(sig)

	list.nextSetID++
	list.liveSets.Put(list.nextSetID, pool)

	return SetHandle{
		list: list,
		pool: pool,
		id:   list.nextSetID,
	}
}

// createPool creates a new descriptor pool for the list's signature, sized by
// the growth factor over the previous pool's set capacity.
func (a *Allocator) createPool(list *signaturePools) (*descriptorPool, error) {
	maxSets := a.maxSetsPerPool
	if list.lastMaxSets > 0 {
		maxSets = int(float64(list.lastMaxSets) * a.growthFactor)
		if maxSets <= list.lastMaxSets {
			maxSets = list.lastMaxSets + 1
		}
	}

	fixedCapacity := list.sig.FixedCapacities().ScaleCapacities(uint32(maxSets))
	variableCapacity := list.sig.variableCapacities().ScaleCapacities(uint32(maxSets))
	deviceCapacity := list.sig.totalCapacities().ScaleCapacities(uint32(maxSets))

	handle, err := a.device.CreateDescriptorPool(deviceCapacity, maxSets)
	if err != nil {
		return nil, cerrors.Wrapf(ErrPoolExhausted, "device refused a pool of %d sets for signature %s: %v", maxSets, list.sig.String(), err)
	}

	pool := &descriptorPool{
		id:                list.nextPoolID,
		handle:            handle,
		maxSets:           maxSets,
		freeSets:          maxSets,
		fixedRemaining:    fixedCapacity,
		variableRemaining: variableCapacity,
		emptySincePass:    list.currentPass,
	}
	list.nextPoolID++
	list.lastMaxSets = maxSets
	list.pools = append(list.pools, pool)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Created descriptor pool",
		slog.Int("pool.id", pool.id),
		slog.Int("maxSets", maxSets),
		slog.String("signature", list.sig.String()))

	return pool, nil
}

// FreeSet returns a set's capacity to its owning pool, restoring the pool's
// free capacity to exactly what it was before the matching AllocateSet call.
// The pool itself is released to the device only after it has sat fully empty
// for the retirement grace period.
func (a *Allocator) FreeSet(handle SetHandle) error {
	if handle.IsZero() {
		return errors.New("attempted to free a zero descriptor set handle")
	}

	list := handle.list

	list.mutex.Lock()
	defer list.mutex.Unlock()

	pool, ok := list.liveSets.Get(handle.id)
	if !ok {
		return errors.Errorf("descriptor set handle %d does not name a live set", handle.id)
	}
	if pool != handle.pool {
		panic("descriptor set handle names a pool it was not carved from")
	}
	list.liveSets.Delete(handle.id)

	pool.give(list.sig, list.currentPass)
	return nil
}

// listForSignature finds or creates the pool group for a signature.
func (a *Allocator) listForSignature(sig LayoutSignature) *signaturePools {
	a.indexMutex.RLock()
	list, ok := a.index.Get(sig)
	a.indexMutex.RUnlock()
	if ok {
		return list
	}

	a.indexMutex.Lock()
	defer a.indexMutex.Unlock()

	// Another goroutine may have raced the insert
	list, ok = a.index.Get(sig)
	if ok {
		return list
	}

	list = &signaturePools{
		mutex:    utils.OptionalRWMutex{UseMutex: a.useMutex},
		sig:      sig,
		liveSets: swiss.NewMap[uint64, *descriptorPool](42),
	}
	a.index.Put(sig, list)
	a.lists = append(a.lists, list)
	return list
}

// AdvanceReclamationPass moves the pool retirement clock forward one pass.
// Pools that have been fully empty for the grace period are reset and
// destroyed, bounding storage overhead under bursty allocate/free patterns
// without pool churn.
func (a *Allocator) AdvanceReclamationPass() {
	a.indexMutex.RLock()
	lists := a.lists
	a.indexMutex.RUnlock()

	for _, list := range lists {
		a.advanceList(list)
	}
}

func (a *Allocator) advanceList(list *signaturePools) {
	var retired []*descriptorPool

	list.mutex.Lock()
	list.currentPass++

	for poolIndex := len(list.pools) - 1; poolIndex >= 0; poolIndex-- {
		pool := list.pools[poolIndex]
		if !pool.isEmpty() {
			continue
		}
		if list.currentPass-pool.emptySincePass < a.graceEpochs {
			continue
		}

		retired = append(retired, pool)
		list.pools = append(list.pools[:poolIndex], list.pools[poolIndex+1:]...)
	}
	list.mutex.Unlock()

	for _, pool := range retired {
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Retired empty descriptor pool",
			slog.Int("pool.id", pool.id))

		err := a.device.ResetDescriptorPool(pool.handle)
		if err != nil {
			panic(fmt.Sprintf("unexpected failure when resetting an empty descriptor pool: %+v", err))
		}
		err = a.device.DestroyDescriptorPool(pool.handle)
		if err != nil {
			panic(fmt.Sprintf("unexpected failure when destroying an empty descriptor pool: %+v", err))
		}
	}
}

// Statistics describes the pool and set totals of one Allocator.
type Statistics struct {
	PoolCount      int
	LiveSetCount   int
	FreeSetCount   int
	SignatureCount int
}

// CalculateStatistics sums pool and set totals across all signatures.
func (a *Allocator) CalculateStatistics(stats *Statistics) {
	*stats = Statistics{}

	a.indexMutex.RLock()
	lists := a.lists
	a.indexMutex.RUnlock()

	for _, list := range lists {
		list.mutex.RLock()
		stats.SignatureCount++
		for _, pool := range list.pools {
			stats.PoolCount++
			stats.LiveSetCount += pool.maxSets - pool.freeSets
			stats.FreeSetCount += pool.freeSets
		}
		list.mutex.RUnlock()
	}
}

// BuildStatsString writes a JSON dump of allocator state, optionally including
// a pool-by-pool capacity map per signature.
func (a *Allocator) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	var stats Statistics
	a.CalculateStatistics(&stats)

	totalObj := rootObj.Name("Total").Object()
	totalObj.Name("SignatureCount").Int(stats.SignatureCount)
	totalObj.Name("PoolCount").Int(stats.PoolCount)
	totalObj.Name("LiveSetCount").Int(stats.LiveSetCount)
	totalObj.Name("FreeSetCount").Int(stats.FreeSetCount)
	totalObj.End()

	if detailed {
		a.indexMutex.RLock()
		lists := a.lists
		a.indexMutex.RUnlock()

		sigsArr := rootObj.Name("Signatures").Array()
		for _, list := range lists {
			list.mutex.RLock()

			sigObj := sigsArr.Object()
			sigObj.Name("Signature").String(list.sig.String())

			poolsArr := sigObj.Name("Pools").Array()
			for _, pool := range list.pools {
				poolObj := poolsArr.Object()
				poolObj.Name("Id").Int(pool.id)
				poolObj.Name("MaxSets").Int(pool.maxSets)
				poolObj.Name("FreeSets").Int(pool.freeSets)
				poolObj.End()
			}
			poolsArr.End()
			sigObj.End()

			list.mutex.RUnlock()
		}
		sigsArr.End()
	}

	rootObj.End()
	return string(writer.Bytes())
}

// Destroy tears the allocator down, destroying every pool. Any live set is
// logged and turns the teardown into an error; callers must drain the
// reclamation queue behind a device-idle barrier first.
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")

	a.indexMutex.Lock()
	defer a.indexMutex.Unlock()

	for _, list := range a.lists {
		list.mutex.Lock()

		liveSets := list.liveSets.Count()
		if liveSets > 0 {
			a.logger.LogAttrs(context.Background(), slog.LevelError,
				"[UNRELEASED STORAGE] descriptor sets were not freed before the destruction of this allocator",
				slog.Int("liveSets", liveSets),
				slog.String("signature", list.sig.String()))
			list.mutex.Unlock()
			return errors.New("some descriptor sets were not freed before the destruction of this allocator!")
		}

		for _, pool := range list.pools {
			err := a.device.DestroyDescriptorPool(pool.handle)
			if err != nil {
				list.mutex.Unlock()
				return err
			}
		}
		list.pools = nil
		list.mutex.Unlock()
	}

	a.lists = nil
	return nil
}
