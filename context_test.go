package sierra_test

import (
	"io"
	"testing"

	sierra "github.com/arcana-engine/sierra"
	"github.com/arcana-engine/sierra/descriptor"
	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/driver/drivertest"
	"github.com/arcana-engine/sierra/memory"
	"github.com/arcana-engine/sierra/memutils"
	"github.com/arcana-engine/sierra/resource"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newContext(t *testing.T) (*drivertest.FakeDevice, *sierra.Context) {
	t.Helper()

	device := drivertest.NewFakeDevice()
	ctx, err := sierra.New(testLogger(), device, sierra.ContextOptions{
		Memory: memory.CreateOptions{
			GrowthChunkSize:       4096,
			RetirementGraceEpochs: 1,
		},
		Descriptors: descriptor.CreateOptions{
			RetirementGraceEpochs: 1,
		},
	})
	require.NoError(t, err)
	return device, ctx
}

func TestBufferLifetimeAcrossSubmission(t *testing.T) {
	device, ctx := newContext(t)

	buffer, err := ctx.CreateBuffer(sierra.BufferInfo{
		Size:  1024,
		Usage: sierra.BufferUsageVertex,
	})
	require.NoError(t, err)
	require.Equal(t, 1024, buffer.Allocation().Size())

	recorder := ctx.BeginRecording(0)
	recorder.MarkUsed(buffer.Handle())
	seq := recorder.Finish()

	token := &drivertest.FakeToken{}
	require.NoError(t, ctx.Submit(seq, token))

	// The creation reference is dropped while the device still works with the
	// buffer; its memory must stay put
	ctx.Release(buffer.Handle())
	require.NoError(t, ctx.Poll())
	require.Equal(t, resource.StateLive, ctx.Registry().State(buffer.Handle()))

	var stats memutils.Statistics
	ctx.Memory().CalculateStatistics(&stats)
	require.Equal(t, 1, stats.AllocationCount)

	token.Signal()
	require.NoError(t, ctx.Poll())
	require.Equal(t, resource.StateFreed, ctx.Registry().State(buffer.Handle()))

	ctx.Memory().CalculateStatistics(&stats)
	require.Equal(t, 0, stats.AllocationCount)

	require.NoError(t, ctx.Destroy())
	require.Equal(t, 0, device.LiveMemoryCount())
}

func TestResourceNeverUsedReclaimsOnRelease(t *testing.T) {
	_, ctx := newContext(t)

	buffer, err := ctx.CreateBuffer(sierra.BufferInfo{Size: 256})
	require.NoError(t, err)

	// Never recorded into any epoch; the release reclaims without waiting for
	// device work
	ctx.Release(buffer.Handle())
	require.Equal(t, resource.StateFreed, ctx.Registry().State(buffer.Handle()))

	require.NoError(t, ctx.Destroy())
}

func TestImageCreationComputesMipChainSize(t *testing.T) {
	_, ctx := newContext(t)

	image, err := ctx.CreateImage(sierra.ImageInfo{
		Extent: sierra.Extent2D(16, 16),
		Format: sierra.FormatRGBA8Unorm,
		Levels: 3,
	})
	require.NoError(t, err)

	// 16x16 + 8x8 + 4x4 texels at 4 bytes each
	require.Equal(t, (256+64+16)*4, image.Allocation().Size())

	ctx.Release(image.Handle())
	require.NoError(t, ctx.Destroy())
}

func TestImageValidation(t *testing.T) {
	_, ctx := newContext(t)

	_, err := ctx.CreateImage(sierra.ImageInfo{
		Extent: sierra.Extent2D(16, 16),
	})
	require.Error(t, err)

	_, err = ctx.CreateImage(sierra.ImageInfo{
		Extent: sierra.Extent2D(16, 16),
		Format: sierra.FormatRGBA8Unorm,
		Usage:  sierra.ImageUsageDepthStencilAttachment,
	})
	require.Error(t, err)

	require.NoError(t, ctx.Destroy())
}

func TestDescriptorSetLifetime(t *testing.T) {
	device, ctx := newContext(t)

	var builder descriptor.SignatureBuilder
	builder.AddBinding(driver.DescriptorUniformBuffer, 2)
	sig := builder.Build()

	set, err := ctx.AllocateDescriptorSet(sig)
	require.NoError(t, err)

	recorder := ctx.BeginRecording(0)
	recorder.MarkUsed(set.Handle())
	seq := recorder.Finish()

	token := &drivertest.FakeToken{}
	require.NoError(t, ctx.Submit(seq, token))
	ctx.Release(set.Handle())

	token.Signal()
	require.NoError(t, ctx.Poll())
	require.Equal(t, resource.StateFreed, ctx.Registry().State(set.Handle()))

	// One more completed epoch moves the reclamation clock past the grace
	// period, retiring the now-empty pool
	recorder = ctx.BeginRecording(0)
	seq = recorder.Finish()
	token = &drivertest.FakeToken{}
	require.NoError(t, ctx.Submit(seq, token))
	token.Signal()
	require.NoError(t, ctx.Poll())
	require.Equal(t, 0, device.LivePoolCount())

	require.NoError(t, ctx.Destroy())
}

func TestAbandonedRecordingReleasesImmediately(t *testing.T) {
	_, ctx := newContext(t)

	buffer, err := ctx.CreateBuffer(sierra.BufferInfo{Size: 128})
	require.NoError(t, err)

	recorder := ctx.BeginRecording(0)
	recorder.MarkUsed(buffer.Handle())

	ctx.Release(buffer.Handle())
	recorder.Abandon()

	// The buffer was marked used under the abandoned epoch, which will never
	// be submitted; the next completed epoch on the queue covers it
	recorder = ctx.BeginRecording(0)
	seq := recorder.Finish()
	token := &drivertest.FakeToken{}
	require.NoError(t, ctx.Submit(seq, token))
	token.Signal()
	require.NoError(t, ctx.Poll())
	require.Equal(t, resource.StateFreed, ctx.Registry().State(buffer.Handle()))

	require.NoError(t, ctx.Destroy())
}

func TestDestroyWaitsAndDrains(t *testing.T) {
	device, ctx := newContext(t)

	buffer, err := ctx.CreateBuffer(sierra.BufferInfo{Size: 512})
	require.NoError(t, err)

	recorder := ctx.BeginRecording(0)
	recorder.MarkUsed(buffer.Handle())
	seq := recorder.Finish()
	require.NoError(t, ctx.Submit(seq, &drivertest.FakeToken{}))

	ctx.Release(buffer.Handle())

	// The token never signals; Destroy's idle barrier stands in for completion
	require.NoError(t, ctx.Destroy())
	require.Equal(t, 1, device.WaitIdleCalls)
	require.Equal(t, 0, device.LiveMemoryCount())
	require.Equal(t, 0, device.LivePoolCount())
}

func TestUploadBufferSelectsHostVisibleMemory(t *testing.T) {
	device := drivertest.NewFakeDevice()
	device.Kinds = []driver.MemoryKindProperties{
		{
			Flags:    driver.MemoryKindDeviceLocal,
			HeapSize: 1024 * 1024 * 1024,
		},
		{
			Flags:    driver.MemoryKindHostVisible | driver.MemoryKindHostCoherent,
			HeapSize: 256 * 1024 * 1024,
		},
	}
	ctx, err := sierra.New(testLogger(), device, sierra.ContextOptions{})
	require.NoError(t, err)

	staging, err := ctx.CreateBuffer(sierra.BufferInfo{
		Size:   4096,
		Usage:  sierra.BufferUsageTransferSrc,
		Memory: memory.UsageUploadToDevice,
	})
	require.NoError(t, err)
	require.Equal(t, 1, staging.Allocation().MemoryKindIndex())

	ctx.Release(staging.Handle())
	require.NoError(t, ctx.Destroy())
}
