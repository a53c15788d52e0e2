package driver

// DescriptorType identifies one kind of descriptor binding.
type DescriptorType uint32

const (
	DescriptorSampler DescriptorType = iota
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformTexelBuffer
	DescriptorStorageTexelBuffer
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorUniformBufferDynamic
	DescriptorStorageBufferDynamic
	DescriptorInputAttachment
	DescriptorAccelerationStructure

	// DescriptorTypeCount is the number of distinct descriptor types
	DescriptorTypeCount = int(DescriptorAccelerationStructure) + 1
)

var descriptorTypeNames = map[DescriptorType]string{
	DescriptorSampler:               "DescriptorSampler",
	DescriptorCombinedImageSampler:  "DescriptorCombinedImageSampler",
	DescriptorSampledImage:          "DescriptorSampledImage",
	DescriptorStorageImage:          "DescriptorStorageImage",
	DescriptorUniformTexelBuffer:    "DescriptorUniformTexelBuffer",
	DescriptorStorageTexelBuffer:    "DescriptorStorageTexelBuffer",
	DescriptorUniformBuffer:         "DescriptorUniformBuffer",
	DescriptorStorageBuffer:         "DescriptorStorageBuffer",
	DescriptorUniformBufferDynamic:  "DescriptorUniformBufferDynamic",
	DescriptorStorageBufferDynamic:  "DescriptorStorageBufferDynamic",
	DescriptorInputAttachment:       "DescriptorInputAttachment",
	DescriptorAccelerationStructure: "DescriptorAccelerationStructure",
}

func (t DescriptorType) String() string {
	str, ok := descriptorTypeNames[t]
	if !ok {
		return "unknown DescriptorType"
	}
	return str
}

// TypeCapacities is a per-descriptor-type count multiset. It is used both for
// layout signatures (counts required by one set) and descriptor pool sizing
// (counts available in one pool).
type TypeCapacities [DescriptorTypeCount]uint32

func (c *TypeCapacities) Add(t DescriptorType, count uint32) {
	c[t] += count
}

func (c TypeCapacities) IsZero() bool {
	for i := 0; i < DescriptorTypeCount; i++ {
		if c[i] != 0 {
			return false
		}
	}
	return true
}

// Contains reports whether every per-type count in other fits within c.
func (c TypeCapacities) Contains(other TypeCapacities) bool {
	for i := 0; i < DescriptorTypeCount; i++ {
		if other[i] > c[i] {
			return false
		}
	}
	return true
}

// AddCapacities sums other into c per type.
func (c *TypeCapacities) AddCapacities(other TypeCapacities) {
	for i := 0; i < DescriptorTypeCount; i++ {
		c[i] += other[i]
	}
}

// SubtractCapacities removes other from c per type. Panics if any count would
// go negative, since that indicates corrupt pool bookkeeping.
func (c *TypeCapacities) SubtractCapacities(other TypeCapacities) {
	for i := 0; i < DescriptorTypeCount; i++ {
		if other[i] > c[i] {
			panic("descriptor capacity underflow")
		}
		c[i] -= other[i]
	}
}

// ScaleCapacities returns c with every count multiplied by factor.
func (c TypeCapacities) ScaleCapacities(factor uint32) TypeCapacities {
	var out TypeCapacities
	for i := 0; i < DescriptorTypeCount; i++ {
		out[i] = c[i] * factor
	}
	return out
}
