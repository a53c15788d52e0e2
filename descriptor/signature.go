package descriptor

import (
	"fmt"
	"strings"

	"github.com/arcana-engine/sierra/driver"
)

// LayoutSignature is the per-descriptor-type capacity profile required to
// satisfy one descriptor set allocation. Two sets with equal signatures can be
// carved from the same pool. Signatures are produced by the layout generation
// layer above this core, typically through SignatureBuilder.
//
// A variable-length descriptor array, bounded by its declared maximum count,
// is tracked as a distinct capacity dimension from the fixed bindings.
type LayoutSignature struct {
	fixed driver.TypeCapacities

	variableType     driver.DescriptorType
	variableMaxCount uint32
	hasVariable      bool
}

// FixedCapacities returns the per-type counts of the signature's fixed
// bindings.
func (s LayoutSignature) FixedCapacities() driver.TypeCapacities { return s.fixed }

// VariableBinding returns the descriptor type and declared maximum count of
// the signature's variable-length binding, if it has one.
func (s LayoutSignature) VariableBinding() (driver.DescriptorType, uint32, bool) {
	return s.variableType, s.variableMaxCount, s.hasVariable
}

// variableCapacities returns the variable dimension as a capacity multiset.
func (s LayoutSignature) variableCapacities() driver.TypeCapacities {
	var out driver.TypeCapacities
	if s.hasVariable {
		out.Add(s.variableType, s.variableMaxCount)
	}
	return out
}

// totalCapacities returns the worst-case storage one set of this signature
// consumes.
func (s LayoutSignature) totalCapacities() driver.TypeCapacities {
	out := s.fixed
	out.AddCapacities(s.variableCapacities())
	return out
}

// IsZero reports whether the signature requests no descriptors at all.
func (s LayoutSignature) IsZero() bool {
	return s.fixed.IsZero() && !s.hasVariable
}

func (s LayoutSignature) String() string {
	var sb strings.Builder
	sb.WriteString("LayoutSignature{")
	first := true
	for i := 0; i < driver.DescriptorTypeCount; i++ {
		if s.fixed[i] == 0 {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(fmt.Sprintf("%s: %d", driver.DescriptorType(i).String(), s.fixed[i]))
	}
	if s.hasVariable {
		if !first {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: variable up to %d", s.variableType.String(), s.variableMaxCount))
	}
	sb.WriteString("}")
	return sb.String()
}

// SignatureBuilder assembles a LayoutSignature binding by binding. The zero
// value is ready to use.
type SignatureBuilder struct {
	sig LayoutSignature
}

// AddBinding adds one fixed binding of the given type and descriptor count.
func (b *SignatureBuilder) AddBinding(t driver.DescriptorType, count uint32) *SignatureBuilder {
	b.sig.fixed.Add(t, count)
	return b
}

// SetVariableBinding declares the signature's variable-length binding. A
// signature can carry at most one; calling this twice panics, since layouts
// with multiple variable bindings cannot be expressed.
func (b *SignatureBuilder) SetVariableBinding(t driver.DescriptorType, maxCount uint32) *SignatureBuilder {
	if b.sig.hasVariable {
		panic("a layout signature can carry at most one variable-length binding")
	}
	if maxCount < 1 {
		panic("a variable-length binding must declare a positive maximum count")
	}

	b.sig.variableType = t
	b.sig.variableMaxCount = maxCount
	b.sig.hasVariable = true
	return b
}

// Build returns the assembled signature.
func (b *SignatureBuilder) Build() LayoutSignature {
	return b.sig
}
