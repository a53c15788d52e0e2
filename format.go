package sierra

// Format describes the texel layout of an image.
type Format uint32

const (
	FormatUndefined Format = iota

	FormatR8Unorm
	FormatR8Snorm
	FormatR8Uint
	FormatR8Sint
	FormatR8Srgb

	FormatRG8Unorm
	FormatRG8Snorm
	FormatRG8Uint
	FormatRG8Sint
	FormatRG8Srgb

	FormatRGBA8Unorm
	FormatRGBA8Snorm
	FormatRGBA8Uint
	FormatRGBA8Sint
	FormatRGBA8Srgb
	FormatBGRA8Unorm
	FormatBGRA8Srgb

	FormatR16Unorm
	FormatR16Uint
	FormatR16Sint
	FormatR16Sfloat

	FormatRG16Unorm
	FormatRG16Uint
	FormatRG16Sint
	FormatRG16Sfloat

	FormatRGBA16Unorm
	FormatRGBA16Uint
	FormatRGBA16Sint
	FormatRGBA16Sfloat

	FormatR32Uint
	FormatR32Sint
	FormatR32Sfloat

	FormatRG32Uint
	FormatRG32Sint
	FormatRG32Sfloat

	FormatRGB32Sfloat
	FormatRGBA32Uint
	FormatRGBA32Sint
	FormatRGBA32Sfloat

	FormatD16Unorm
	FormatD32Sfloat
	FormatD24UnormS8Uint
	FormatD32SfloatS8Uint
)

var formatTexelBytes = map[Format]int{
	FormatR8Unorm: 1, FormatR8Snorm: 1, FormatR8Uint: 1, FormatR8Sint: 1, FormatR8Srgb: 1,
	FormatRG8Unorm: 2, FormatRG8Snorm: 2, FormatRG8Uint: 2, FormatRG8Sint: 2, FormatRG8Srgb: 2,
	FormatRGBA8Unorm: 4, FormatRGBA8Snorm: 4, FormatRGBA8Uint: 4, FormatRGBA8Sint: 4, FormatRGBA8Srgb: 4,
	FormatBGRA8Unorm: 4, FormatBGRA8Srgb: 4,
	FormatR16Unorm: 2, FormatR16Uint: 2, FormatR16Sint: 2, FormatR16Sfloat: 2,
	FormatRG16Unorm: 4, FormatRG16Uint: 4, FormatRG16Sint: 4, FormatRG16Sfloat: 4,
	FormatRGBA16Unorm: 8, FormatRGBA16Uint: 8, FormatRGBA16Sint: 8, FormatRGBA16Sfloat: 8,
	FormatR32Uint: 4, FormatR32Sint: 4, FormatR32Sfloat: 4,
	FormatRG32Uint: 8, FormatRG32Sint: 8, FormatRG32Sfloat: 8,
	FormatRGB32Sfloat: 12, FormatRGBA32Uint: 16, FormatRGBA32Sint: 16, FormatRGBA32Sfloat: 16,
	FormatD16Unorm: 2, FormatD32Sfloat: 4, FormatD24UnormS8Uint: 4, FormatD32SfloatS8Uint: 5,
}

// BytesPerTexel returns the storage one texel of the format occupies, or 0 for
// FormatUndefined.
func (f Format) BytesPerTexel() int {
	return formatTexelBytes[f]
}

// IsDepth reports whether the format carries a depth component.
func (f Format) IsDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD32Sfloat, FormatD24UnormS8Uint, FormatD32SfloatS8Uint:
		return true
	}
	return false
}
