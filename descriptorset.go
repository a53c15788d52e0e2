package sierra

import (
	"github.com/arcana-engine/sierra/descriptor"
	"github.com/arcana-engine/sierra/resource"
)

// DescriptorSet is a registered descriptor set allocation. Its storage
// returns to the pool only after every epoch that used the set has completed.
type DescriptorSet struct {
	sig    descriptor.LayoutSignature
	handle resource.Handle
	set    descriptor.SetHandle
}

// Signature returns the layout signature the set was allocated for.
func (s *DescriptorSet) Signature() descriptor.LayoutSignature { return s.sig }

// Handle returns the set's registry handle, used to record usage and to
// release the creation reference.
func (s *DescriptorSet) Handle() resource.Handle { return s.handle }

// Set exposes the underlying descriptor storage allocation.
func (s *DescriptorSet) Set() descriptor.SetHandle { return s.set }
