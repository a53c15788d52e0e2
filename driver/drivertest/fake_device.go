// Package drivertest provides an in-memory device implementation for tests.
// It hands out fake memory and pool handles, keeps counts of everything it has
// been asked to create and destroy, and lets tests flip completion tokens by
// hand to play out submission timelines.
package drivertest

import (
	"sync"

	"github.com/arcana-engine/sierra/driver"
	"github.com/pkg/errors"
)

// FakeMemory is the memory handle type the fake device hands out.
type FakeMemory struct {
	Size      int
	KindIndex int
}

// FakePool is the descriptor pool handle type the fake device hands out.
type FakePool struct {
	Capacities driver.TypeCapacities
	MaxSets    int
}

// FakeToken is a completion token tests signal by hand.
type FakeToken struct {
	mutex sync.Mutex
	done  bool
	err   error
}

// Signal marks the token's work as complete.
func (t *FakeToken) Signal() {
	t.mutex.Lock()
	t.done = true
	t.mutex.Unlock()
}

// Fail makes queries on the token return the error. A nil error clears a
// prior fault.
func (t *FakeToken) Fail(err error) {
	t.mutex.Lock()
	t.err = err
	t.mutex.Unlock()
}

func (t *FakeToken) status() (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.done, t.err
}

// FakeDevice implements the device capability interface in memory.
type FakeDevice struct {
	Kinds []driver.MemoryKindProperties
	Page  uint

	// AllocationError, when set, makes AllocateMemory fail.
	AllocationError error
	// PoolError, when set, makes CreateDescriptorPool fail.
	PoolError error

	mutex           sync.Mutex
	liveMemory      map[*FakeMemory]struct{}
	livePools       map[*FakePool]struct{}
	AllocationCount int
	FreeCount       int
	PoolsCreated    int
	PoolsReset      int
	PoolsDestroyed  int
	WaitIdleCalls   int
}

var _ driver.Device = &FakeDevice{}

// NewFakeDevice creates a fake with a single device-local, host-visible memory
// kind backed by a 1Gb heap and a page alignment of 256.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Kinds: []driver.MemoryKindProperties{
			{
				Flags:    driver.MemoryKindDeviceLocal | driver.MemoryKindHostVisible | driver.MemoryKindHostCoherent,
				HeapSize: 1024 * 1024 * 1024,
			},
		},
		Page:       256,
		liveMemory: map[*FakeMemory]struct{}{},
		livePools:  map[*FakePool]struct{}{},
	}
}

func (d *FakeDevice) MemoryKindCount() int {
	return len(d.Kinds)
}

func (d *FakeDevice) MemoryKindProperties(kindIndex int) driver.MemoryKindProperties {
	return d.Kinds[kindIndex]
}

func (d *FakeDevice) PageAlignment() uint {
	return d.Page
}

func (d *FakeDevice) AllocateMemory(size, kindIndex int) (driver.MemoryHandle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.AllocationError != nil {
		return nil, d.AllocationError
	}

	memory := &FakeMemory{Size: size, KindIndex: kindIndex}
	d.liveMemory[memory] = struct{}{}
	d.AllocationCount++
	return memory, nil
}

func (d *FakeDevice) FreeMemory(handle driver.MemoryHandle) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	memory, ok := handle.(*FakeMemory)
	if !ok {
		return errors.New("memory handle was not produced by this fake")
	}
	_, live := d.liveMemory[memory]
	if !live {
		return errors.New("memory handle was already freed")
	}

	delete(d.liveMemory, memory)
	d.FreeCount++
	return nil
}

func (d *FakeDevice) CreateDescriptorPool(capacities driver.TypeCapacities, maxSets int) (driver.DescriptorPoolHandle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.PoolError != nil {
		return nil, d.PoolError
	}

	pool := &FakePool{Capacities: capacities, MaxSets: maxSets}
	d.livePools[pool] = struct{}{}
	d.PoolsCreated++
	return pool, nil
}

func (d *FakeDevice) ResetDescriptorPool(handle driver.DescriptorPoolHandle) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	pool, ok := handle.(*FakePool)
	if !ok {
		return errors.New("pool handle was not produced by this fake")
	}
	_, live := d.livePools[pool]
	if !live {
		return errors.New("pool handle was already destroyed")
	}

	d.PoolsReset++
	return nil
}

func (d *FakeDevice) DestroyDescriptorPool(handle driver.DescriptorPoolHandle) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	pool, ok := handle.(*FakePool)
	if !ok {
		return errors.New("pool handle was not produced by this fake")
	}
	_, live := d.livePools[pool]
	if !live {
		return errors.New("pool handle was already destroyed")
	}

	delete(d.livePools, pool)
	d.PoolsDestroyed++
	return nil
}

func (d *FakeDevice) QueryCompletion(token driver.CompletionToken) (bool, error) {
	fakeToken, ok := token.(*FakeToken)
	if !ok {
		return false, errors.New("completion token was not produced by this fake")
	}
	return fakeToken.status()
}

func (d *FakeDevice) WaitIdle() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.WaitIdleCalls++
	return nil
}

// LiveMemoryCount returns the number of device memory blocks not yet freed.
func (d *FakeDevice) LiveMemoryCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.liveMemory)
}

// LivePoolCount returns the number of descriptor pools not yet destroyed.
func (d *FakeDevice) LivePoolCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.livePools)
}
