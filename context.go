// Package sierra is a resource-lifetime and allocation core for GPU devices.
// The Context composes a device memory allocator, a descriptor storage
// allocator, a resource registry and a submission tracker behind one
// explicit owner: resources are created through it, recorded sequences are
// submitted through it, and freed storage is reclaimed only after the device
// confirms completion of every epoch that used it.
package sierra

import (
	"context"

	"github.com/arcana-engine/sierra/descriptor"
	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/memory"
	"github.com/arcana-engine/sierra/memutils"
	"github.com/arcana-engine/sierra/record"
	"github.com/arcana-engine/sierra/resource"
	"github.com/arcana-engine/sierra/track"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific context behaviors to activate or deactivate
type CreateFlags int32

const (
	// ContextCreateExternallySynchronized ensures that this context and all
	// objects created from it will not be synchronized internally. The
	// consumer must guarantee they are used from only one thread at a time or
	// are synchronized by some other mechanism.
	ContextCreateExternallySynchronized CreateFlags = 1 << iota
)

// ContextOptions contains optional settings when creating a Context
type ContextOptions struct {
	// Flags indicates specific context behaviors to activate or deactivate
	Flags CreateFlags

	// Memory configures the device memory allocator
	Memory memory.CreateOptions

	// Descriptors configures the descriptor storage allocator
	Descriptors descriptor.CreateOptions
}

// Context owns the device handle and every allocator and tracker serving it.
// All core operations go through the Context; nothing is freed behind its
// back.
type Context struct {
	logger *slog.Logger
	device driver.Device

	memory      *memory.Allocator
	descriptors *descriptor.Allocator
	registry    *resource.Registry
	tracker     *track.Tracker

	destroyed bool
}

// New creates a Context serving the provided device.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, device driver.Device, options ContextOptions) (*Context, error) {
	if device == nil {
		return nil, errors.New("attempted to create a context with a nil device")
	}
	if logger == nil {
		logger = slog.Default()
	}

	useMutex := options.Flags&ContextCreateExternallySynchronized == 0
	if !useMutex {
		options.Memory.Flags |= memory.AllocatorCreateExternallySynchronized
		options.Descriptors.Flags |= descriptor.AllocatorCreateExternallySynchronized
	}

	memAllocator, err := memory.New(logger, device, options.Memory)
	if err != nil {
		return nil, err
	}

	descAllocator, err := descriptor.New(logger, device, options.Descriptors)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		logger:      logger,
		device:      device,
		memory:      memAllocator,
		descriptors: descAllocator,
		registry:    resource.NewRegistry(logger, useMutex),
	}
	ctx.tracker = track.NewTracker(logger, device, ctx.registry, ctx, useMutex)

	return ctx, nil
}

// OnEpochComplete forwards a completed epoch to the registry and moves the
// allocators' reclamation clocks forward, letting storage freed behind the
// epoch retire on schedule.
func (c *Context) OnEpochComplete(epoch resource.Epoch) {
	c.registry.OnEpochComplete(epoch)
	c.memory.AdvanceReclamationPass()
	c.descriptors.AdvanceReclamationPass()
}

// CreateBuffer allocates memory for a buffer described by info and registers
// it with one strong reference. The buffer's memory returns to the allocator
// only after Release drops the last reference and the buffer's last-used
// epoch completes.
func (c *Context) CreateBuffer(info BufferInfo) (*Buffer, error) {
	if info.Size < 1 {
		return nil, errors.Errorf("attempted to create a buffer of non-positive size %d", info.Size)
	}
	align := info.Align
	if align == 0 {
		align = 1
	}
	err := memutils.CheckPow2(align, "BufferInfo.Align")
	if err != nil {
		return nil, err
	}

	usage := info.Memory
	if usage == 0 {
		usage = memory.UsageFastDeviceAccess
	}

	alloc, err := c.memory.Allocate(memory.Request{
		Size:      info.Size,
		Alignment: align,
		Usage:     usage,
	})
	if err != nil {
		return nil, err
	}

	buffer := &Buffer{
		info:  info,
		alloc: alloc,
	}
	buffer.handle = c.registry.Register(resource.KindBuffer, c.trackerEpoch(), func() {
		c.memory.Free(alloc)
	})

	return buffer, nil
}

// imageMemoryAlignment is the placement alignment used for image storage.
const imageMemoryAlignment uint = 256

// CreateImage allocates memory for an image described by info and registers
// it with one strong reference.
func (c *Context) CreateImage(info ImageInfo) (*Image, error) {
	if info.Extent.Width < 1 {
		return nil, errors.New("attempted to create an image with no width")
	}
	if info.Format == FormatUndefined {
		return nil, errors.New("attempted to create an image with FormatUndefined")
	}
	if info.Samples != 0 {
		err := memutils.CheckPow2(info.Samples, "ImageInfo.Samples")
		if err != nil {
			return nil, err
		}
	}

	usage := info.Memory
	if usage == 0 {
		usage = memory.UsageFastDeviceAccess
	}
	if info.Usage&ImageUsageDepthStencilAttachment != 0 && !info.Format.IsDepth() {
		return nil, errors.Errorf("format %d carries no depth component for a depth-stencil attachment", info.Format)
	}

	alloc, err := c.memory.Allocate(memory.Request{
		Size:      info.storageSize(),
		Alignment: imageMemoryAlignment,
		Usage:     usage,
	})
	if err != nil {
		return nil, err
	}

	image := &Image{
		info:  info,
		alloc: alloc,
	}
	image.handle = c.registry.Register(resource.KindImage, c.trackerEpoch(), func() {
		c.memory.Free(alloc)
	})

	return image, nil
}

// AllocateDescriptorSet obtains descriptor storage for the signature and
// registers the set with one strong reference.
func (c *Context) AllocateDescriptorSet(sig descriptor.LayoutSignature) (*DescriptorSet, error) {
	setHandle, err := c.descriptors.AllocateSet(sig)
	if err != nil {
		return nil, err
	}

	set := &DescriptorSet{
		sig: sig,
		set: setHandle,
	}
	set.handle = c.registry.Register(resource.KindDescriptorSet, c.trackerEpoch(), func() {
		freeErr := c.descriptors.FreeSet(setHandle)
		if freeErr != nil {
			c.logger.LogAttrs(context.Background(), slog.LevelError, "failed to return a descriptor set to its pool",
				slog.String("error", freeErr.Error()))
		}
	})

	return set, nil
}

// trackerEpoch is the creation epoch stamped on new resources. Resources
// created before any recording carry epoch 0, which every queue has
// trivially completed.
func (c *Context) trackerEpoch() resource.Epoch {
	return 0
}

// BeginRecording opens a new epoch on the queue and returns a recorder bound
// to it.
func (c *Context) BeginRecording(queue track.QueueID) *record.Recorder {
	epoch := c.tracker.BeginEpoch(queue)
	return record.Begin(c.registry, epoch, queue)
}

// Submit hands a finished sequence to the device queue it was recorded for.
// The token is whatever the submitting layer received from the device to
// confirm completion; the tracker polls it and releases the sequence's
// references when the epoch completes.
func (c *Context) Submit(seq *record.Sequence, token driver.CompletionToken) error {
	refs := seq.TakeRefs()

	err := c.tracker.Submit(seq.Epoch(), seq.Queue(), token, refs)
	if err != nil {
		for _, ref := range refs {
			c.registry.Release(ref)
		}
		return err
	}
	return nil
}

// Poll advances completion state on every queue. Completed epochs release
// their sequences' references and reclaim pending resources.
func (c *Context) Poll() error {
	return c.tracker.Poll()
}

// Release drops the creation reference of a resource. The resource's storage
// is reclaimed once every recorded use of it has completed on the device.
func (c *Context) Release(h resource.Handle) {
	c.registry.Release(h)
}

// Retain adds a strong reference to a resource.
func (c *Context) Retain(h resource.Handle) {
	c.registry.Retain(h)
}

// Memory exposes the device memory allocator for stats and direct
// allocations that bypass resource registration.
func (c *Context) Memory() *memory.Allocator { return c.memory }

// Descriptors exposes the descriptor storage allocator.
func (c *Context) Descriptors() *descriptor.Allocator { return c.descriptors }

// Registry exposes the resource registry.
func (c *Context) Registry() *resource.Registry { return c.registry }

// Destroy tears the context down: it waits for the device to idle, treats
// every in-flight epoch as complete, force-drains the reclamation queue and
// destroys the allocators. Resources still holding references are logged and
// leak. Terminal; the context cannot be used afterwards.
func (c *Context) Destroy() error {
	if c.destroyed {
		return errors.New("attempted to destroy a context twice")
	}
	c.destroyed = true

	err := c.device.WaitIdle()
	if err != nil {
		return err
	}

	c.tracker.Drain()
	c.registry.ForceReclaimAll()

	for _, kind := range []resource.Kind{resource.KindBuffer, resource.KindImage, resource.KindDescriptorSet} {
		live := c.registry.LiveCount(kind)
		if live > 0 {
			c.logger.LogAttrs(context.Background(), slog.LevelWarn,
				"[UNRELEASED STORAGE] resources still hold references at context destruction",
				slog.String("kind", kind.String()),
				slog.Int("count", live))
		}
	}

	err = c.descriptors.Destroy()
	if err != nil {
		return err
	}

	return c.memory.Destroy()
}
