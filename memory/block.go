package memory

import (
	"context"

	"github.com/arcana-engine/sierra/driver"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// neverEmpty marks a block that currently has live allocations.
const neverEmpty uint64 = ^uint64(0)

// memoryBlock is one contiguous device memory allocation that suballocations
// are carved out of. A block never shrinks once created; it is retired
// wholesale once fully empty past the retirement grace period.
type memoryBlock struct {
	id        int
	memory    driver.MemoryHandle
	kindIndex int
	logger    *slog.Logger

	metadata blockMetadata

	// emptySincePass is the reclamation pass on which the block last became
	// fully empty, or neverEmpty while it has live allocations
	emptySincePass uint64
}

func (b *memoryBlock) Init(
	logger *slog.Logger,
	kindIndex int,
	memory driver.MemoryHandle,
	size int,
	id int,
	currentPass uint64,
) {
	if b.memory != nil {
		panic("attempting to initialize a memory block that is already in use")
	}

	b.id = id
	b.kindIndex = kindIndex
	b.memory = memory
	b.logger = logger
	b.emptySincePass = currentPass
	b.metadata.Init(size)
}

func (b *memoryBlock) Destroy(device driver.Device) error {
	if !b.metadata.IsEmpty() {
		// Log all remaining allocations
		err := b.metadata.VisitAllRegions(func(handle rangeHandle, offset int, size int, userData any, free bool) error {
			if free {
				return nil
			}

			b.logUnreleasedMemory(offset, size, userData)
			return nil
		})
		if err != nil {
			b.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED MEMORY] error while iterating unreleased memory",
				slog.Any("error", err))
		}

		return errors.New("some allocations were not freed before the destruction of this memory block!")
	}

	if b.memory == nil {
		panic("attempting to destroy a memory block, but it did not have a backing device memory handle")
	}

	err := device.FreeMemory(b.memory)
	if err != nil {
		return err
	}

	b.memory = nil
	return nil
}

func (b *memoryBlock) logUnreleasedMemory(offset, size int, userData any) {
	allocation, isAllocation := userData.(*Allocation)
	name := ""
	if isAllocation {
		name = allocation.Name()
		userData = allocation.UserData()
	}
	if name == "" {
		name = "empty"
	}

	b.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
		slog.Int("offset", offset),
		slog.Int("size", size),
		slog.Any("userData", userData),
		slog.String("name", name),
	)
}

func (b *memoryBlock) Validate() error {
	if b.memory == nil {
		return errors.New("no valid memory for this memory block")
	}
	if b.metadata.Size() < 1 {
		return errors.New("this memory block's metadata has an invalid size")
	}

	err := b.metadata.VisitAllRegions(func(handle rangeHandle, offset, size int, userData any, free bool) error {
		allocation, isAllocation := userData.(*Allocation)
		if free && isAllocation {
			return errors.Errorf("a region at offset %d is marked as free but contains an allocation object", offset)
		} else if !free && (!isAllocation || allocation == nil) {
			return errors.Errorf("a region at offset %d is marked as allocated but has no allocation object", offset)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return b.metadata.Validate()
}
