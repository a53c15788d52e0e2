//go:build cgo

// Package vkdriver adapts a Vulkan device to the capability interface the
// allocation core consumes. Memory kinds map to Vulkan memory types,
// descriptor pools to VkDescriptorPool, completion tokens to fences polled
// through their status.
package vkdriver

import (
	"github.com/arcana-engine/sierra/driver"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	coredriver "github.com/vkngwrapper/core/v2/driver"
)

// Device implements the allocation core's device interface on a Vulkan
// logical device.
type Device struct {
	device              core1_0.Device
	allocationCallbacks *coredriver.AllocationCallbacks

	memoryProperties core1_0.PhysicalDeviceMemoryProperties
	pageAlignment    uint
}

var _ driver.Device = &Device{}

// New wraps a Vulkan logical device and the physical device it was created
// from. The allocation callbacks may be nil.
func New(device core1_0.Device, physicalDevice core1_0.PhysicalDevice, allocationCallbacks *coredriver.AllocationCallbacks) (*Device, error) {
	if device == nil {
		return nil, errors.New("attempted to create a device adapter with a nil device")
	}
	if physicalDevice == nil {
		return nil, errors.New("attempted to create a device adapter with a nil physical device")
	}

	properties, err := physicalDevice.Properties()
	if err != nil {
		return nil, err
	}

	return &Device{
		device:              device,
		allocationCallbacks: allocationCallbacks,

		memoryProperties: *physicalDevice.MemoryProperties(),
		pageAlignment:    uint(properties.Limits.BufferImageGranularity),
	}, nil
}

func (d *Device) MemoryKindCount() int {
	return len(d.memoryProperties.MemoryTypes)
}

func (d *Device) MemoryKindProperties(kindIndex int) driver.MemoryKindProperties {
	memoryType := d.memoryProperties.MemoryTypes[kindIndex]
	heap := d.memoryProperties.MemoryHeaps[memoryType.HeapIndex]

	var flags driver.MemoryKindFlags
	if memoryType.PropertyFlags&core1_0.MemoryPropertyDeviceLocal != 0 {
		flags |= driver.MemoryKindDeviceLocal
	}
	if memoryType.PropertyFlags&core1_0.MemoryPropertyHostVisible != 0 {
		flags |= driver.MemoryKindHostVisible
	}
	if memoryType.PropertyFlags&core1_0.MemoryPropertyHostCoherent != 0 {
		flags |= driver.MemoryKindHostCoherent
	}
	if memoryType.PropertyFlags&core1_0.MemoryPropertyHostCached != 0 {
		flags |= driver.MemoryKindHostCached
	}
	if memoryType.PropertyFlags&core1_0.MemoryPropertyLazilyAllocated != 0 {
		flags |= driver.MemoryKindLazilyAllocated
	}

	return driver.MemoryKindProperties{
		Flags:    flags,
		HeapSize: heap.Size,
	}
}

func (d *Device) PageAlignment() uint {
	return d.pageAlignment
}

func (d *Device) AllocateMemory(size, kindIndex int) (driver.MemoryHandle, error) {
	memory, _, err := d.device.AllocateMemory(d.allocationCallbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: kindIndex,
	})
	if err != nil {
		return nil, err
	}
	return memory, nil
}

func (d *Device) FreeMemory(handle driver.MemoryHandle) error {
	memory, ok := handle.(core1_0.DeviceMemory)
	if !ok {
		return errors.New("memory handle was not produced by this device adapter")
	}

	memory.Free(d.allocationCallbacks)
	return nil
}

var descriptorTypeMap = map[driver.DescriptorType]core1_0.DescriptorType{
	driver.DescriptorSampler:              core1_0.DescriptorTypeSampler,
	driver.DescriptorCombinedImageSampler: core1_0.DescriptorTypeCombinedImageSampler,
	driver.DescriptorSampledImage:         core1_0.DescriptorTypeSampledImage,
	driver.DescriptorStorageImage:         core1_0.DescriptorTypeStorageImage,
	driver.DescriptorUniformTexelBuffer:   core1_0.DescriptorTypeUniformTexelBuffer,
	driver.DescriptorStorageTexelBuffer:   core1_0.DescriptorTypeStorageTexelBuffer,
	driver.DescriptorUniformBuffer:        core1_0.DescriptorTypeUniformBuffer,
	driver.DescriptorStorageBuffer:        core1_0.DescriptorTypeStorageBuffer,
	driver.DescriptorUniformBufferDynamic: core1_0.DescriptorTypeUniformBufferDynamic,
	driver.DescriptorStorageBufferDynamic: core1_0.DescriptorTypeStorageBufferDynamic,
	driver.DescriptorInputAttachment:      core1_0.DescriptorTypeInputAttachment,
}

func (d *Device) CreateDescriptorPool(capacities driver.TypeCapacities, maxSets int) (driver.DescriptorPoolHandle, error) {
	var poolSizes []core1_0.DescriptorPoolSize
	for i := 0; i < driver.DescriptorTypeCount; i++ {
		if capacities[i] == 0 {
			continue
		}

		vkType, ok := descriptorTypeMap[driver.DescriptorType(i)]
		if !ok {
			return nil, errors.Errorf("descriptor type %s requires a device extension this adapter does not carry", driver.DescriptorType(i).String())
		}

		poolSizes = append(poolSizes, core1_0.DescriptorPoolSize{
			Type:            vkType,
			DescriptorCount: int(capacities[i]),
		})
	}

	pool, _, err := d.device.CreateDescriptorPool(d.allocationCallbacks, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   maxSets,
		PoolSizes: poolSizes,
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (d *Device) ResetDescriptorPool(handle driver.DescriptorPoolHandle) error {
	pool, ok := handle.(core1_0.DescriptorPool)
	if !ok {
		return errors.New("descriptor pool handle was not produced by this device adapter")
	}

	_, err := pool.Reset(0)
	return err
}

func (d *Device) DestroyDescriptorPool(handle driver.DescriptorPoolHandle) error {
	pool, ok := handle.(core1_0.DescriptorPool)
	if !ok {
		return errors.New("descriptor pool handle was not produced by this device adapter")
	}

	pool.Destroy(d.allocationCallbacks)
	return nil
}

// CreateCompletionToken creates an unsignaled fence for the submitting layer
// to attach to a queue submission.
func (d *Device) CreateCompletionToken() (driver.CompletionToken, error) {
	fence, _, err := d.device.CreateFence(d.allocationCallbacks, core1_0.FenceCreateInfo{})
	if err != nil {
		return nil, err
	}
	return fence, nil
}

func (d *Device) QueryCompletion(token driver.CompletionToken) (bool, error) {
	fence, ok := token.(core1_0.Fence)
	if !ok {
		return false, errors.New("completion token was not produced by this device adapter")
	}

	status, err := fence.Status()
	if err != nil {
		return false, err
	}
	return status == core1_0.VKSuccess, nil
}

func (d *Device) WaitIdle() error {
	_, err := d.device.WaitIdle()
	return err
}
