package descriptor

import (
	"github.com/arcana-engine/sierra/driver"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator and all
	// objects created from it will not be synchronized internally. The consumer
	// must guarantee they are used from only one thread at a time or are
	// synchronized by some other mechanism, but performance may improve because
	// internal mutexes are not used.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
)

const (
	// defaultMaxSetsPerPool is the set capacity of the first pool created for a
	// signature when none is configured
	defaultMaxSetsPerPool int = 64

	// defaultPoolGrowthFactor is the multiplier applied to the previous pool's
	// set capacity when a signature needs another pool
	defaultPoolGrowthFactor float64 = 2.0

	// defaultRetirementGraceEpochs is the number of reclamation passes an empty
	// pool survives before being released back to the device
	defaultRetirementGraceEpochs uint64 = 8
)

// CreateOptions contains optional settings when creating an Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// MaxSetsPerPool is the set capacity of the first pool created for each
	// layout signature. Leaving it 0 applies the default of 64.
	MaxSetsPerPool int

	// PoolGrowthFactor is the multiplier applied to the previous pool's set
	// capacity whenever a signature's pools are all full and another pool must
	// be created. Leaving it 0 applies the default of 2.0; values below 1 are
	// rejected.
	PoolGrowthFactor float64

	// RetirementGraceEpochs is the number of reclamation passes a fully empty
	// pool is retained before being released back to the device. Leaving it 0
	// applies the default of 8.
	RetirementGraceEpochs uint64
}

// New creates a new Allocator serving the provided device.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, device driver.Device, options CreateOptions) (*Allocator, error) {
	if device == nil {
		return nil, errors.New("attempted to create a descriptor allocator with a nil device")
	}

	maxSets := options.MaxSetsPerPool
	if maxSets == 0 {
		maxSets = defaultMaxSetsPerPool
	}
	if maxSets < 1 {
		return nil, errors.Newf("MaxSetsPerPool must be positive: %d", maxSets)
	}

	growthFactor := options.PoolGrowthFactor
	if growthFactor == 0 {
		growthFactor = defaultPoolGrowthFactor
	}
	if growthFactor < 1 {
		return nil, errors.Newf("PoolGrowthFactor must be at least 1: %f", growthFactor)
	}

	graceEpochs := options.RetirementGraceEpochs
	if graceEpochs == 0 {
		graceEpochs = defaultRetirementGraceEpochs
	}

	return &Allocator{
		useMutex:       options.Flags&AllocatorCreateExternallySynchronized == 0,
		logger:         logger,
		device:         device,
		maxSetsPerPool: maxSets,
		growthFactor:   growthFactor,
		graceEpochs:    graceEpochs,
		index:          swiss.NewMap[LayoutSignature, *signaturePools](42),
	}, nil
}
