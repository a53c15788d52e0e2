package descriptor

import (
	"github.com/arcana-engine/sierra/driver"
)

// neverEmpty marks a pool that currently has live sets.
const neverEmpty uint64 = ^uint64(0)

// descriptorPool is one block of descriptor storage created for a single
// layout signature. The pool tracks remaining capacity in two dimensions:
// fixed bindings and variable-length bindings.
type descriptorPool struct {
	id     int
	handle driver.DescriptorPoolHandle

	maxSets  int
	freeSets int

	fixedRemaining    driver.TypeCapacities
	variableRemaining driver.TypeCapacities

	// emptySincePass is the reclamation pass on which the pool last became
	// fully empty, or neverEmpty while it has live sets
	emptySincePass uint64
}

// hasRoom reports whether one more set of the given signature fits.
func (p *descriptorPool) hasRoom(sig LayoutSignature) bool {
	if p.freeSets < 1 {
		return false
	}
	if !p.fixedRemaining.Contains(sig.FixedCapacities()) {
		return false
	}
	return p.variableRemaining.Contains(sig.variableCapacities())
}

// take consumes capacity for one set of the given signature.
func (p *descriptorPool) take(sig LayoutSignature) {
	if !p.hasRoom(sig) {
		panic("attempted to take descriptor capacity from a pool without room")
	}

	p.freeSets--
	p.fixedRemaining.SubtractCapacities(sig.FixedCapacities())
	p.variableRemaining.SubtractCapacities(sig.variableCapacities())
	p.emptySincePass = neverEmpty
}

// give returns capacity for one set of the given signature, exactly restoring
// the pre-allocation free capacity.
func (p *descriptorPool) give(sig LayoutSignature, currentPass uint64) {
	p.freeSets++
	if p.freeSets > p.maxSets {
		panic("descriptor pool free set count exceeds its capacity")
	}

	p.fixedRemaining.AddCapacities(sig.FixedCapacities())
	p.variableRemaining.AddCapacities(sig.variableCapacities())

	if p.freeSets == p.maxSets {
		p.emptySincePass = currentPass
	}
}

func (p *descriptorPool) isEmpty() bool {
	return p.freeSets == p.maxSets
}
