package sierra

import (
	"github.com/arcana-engine/sierra/memory"
	"github.com/arcana-engine/sierra/resource"
)

// ImageUsage flags declare how an image may be used by recorded commands.
type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
	ImageUsageInputAttachment
)

// ImageExtent is the dimensionality and size of an image. Unused dimensions
// are 0.
type ImageExtent struct {
	Width  int
	Height int
	Depth  int
}

// Extent1D describes a one-dimensional image of the given width.
func Extent1D(width int) ImageExtent {
	return ImageExtent{Width: width}
}

// Extent2D describes a two-dimensional image.
func Extent2D(width, height int) ImageExtent {
	return ImageExtent{Width: width, Height: height}
}

// Extent3D describes a three-dimensional image.
func Extent3D(width, height, depth int) ImageExtent {
	return ImageExtent{Width: width, Height: height, Depth: depth}
}

// texelCount returns the number of texels in one layer at mip level 0.
func (e ImageExtent) texelCount() int {
	count := e.Width
	if e.Height > 0 {
		count *= e.Height
	}
	if e.Depth > 0 {
		count *= e.Depth
	}
	return count
}

// mipped returns the extent of the given mip level.
func (e ImageExtent) mipped(level int) ImageExtent {
	out := e
	for i := 0; i < level; i++ {
		if out.Width > 1 {
			out.Width >>= 1
		}
		if out.Height > 1 {
			out.Height >>= 1
		}
		if out.Depth > 1 {
			out.Depth >>= 1
		}
	}
	return out
}

// ImageInfo describes an image to create.
type ImageInfo struct {
	// Extent is the dimensionality and size of those dimensions.
	Extent ImageExtent

	// Format for image texels.
	Format Format

	// Levels is the number of MIP levels. 0 means 1.
	Levels int

	// Layers is the number of array layers. 0 means 1.
	Layers int

	// Samples is the number of samples per texel. 0 means 1; must be a power
	// of two.
	Samples int

	// Usage types supported by the image.
	Usage ImageUsage

	// Memory selects how the backing memory is accessed. The zero value
	// requests fast device access only.
	Memory memory.UsageFlags
}

// storageSize returns the bytes the image's full mip chain occupies across
// all layers and samples.
func (info ImageInfo) storageSize() int {
	levels := info.Levels
	if levels < 1 {
		levels = 1
	}
	layers := info.Layers
	if layers < 1 {
		layers = 1
	}
	samples := info.Samples
	if samples < 1 {
		samples = 1
	}

	texelBytes := info.Format.BytesPerTexel()

	size := 0
	for level := 0; level < levels; level++ {
		size += info.Extent.mipped(level).texelCount() * texelBytes
	}
	return size * layers * samples
}

// Image is a registered device image. Its backing memory returns to the
// allocator only after every epoch that used the image has completed.
type Image struct {
	info   ImageInfo
	handle resource.Handle
	alloc  *memory.Allocation
}

// Info returns the description the image was created from.
func (i *Image) Info() ImageInfo { return i.info }

// Handle returns the image's registry handle, used to record usage and to
// release the creation reference.
func (i *Image) Handle() resource.Handle { return i.handle }

// Allocation exposes the image's backing memory placement.
func (i *Image) Allocation() *memory.Allocation { return i.alloc }
