package metadata

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/math"
)

type TextureType int

const (
	TextureType2D TextureType = iota
	TextureType2DArray
	TextureType3D
	TextureTypeCube
)

type TextureFormat int

const (
	TextureFormatInvalid TextureFormat = iota
	TextureFormatRGBA8UNorm
	TextureFormatBGRA8UNorm
	TextureFormatRGBA16Float
	TextureFormatRGBA32Float
	TextureFormatR8UNorm
	TextureFormatRG8UNorm
	TextureFormatZ24UNormS8UInt
	TextureFormatZ32Float
)

// IsDepthOrStencil reports whether the format carries depth or stencil data.
func (f TextureFormat) IsDepthOrStencil() bool {
	return f == TextureFormatZ24UNormS8UInt || f == TextureFormatZ32Float
}

type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageAttachment
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

// TextureDesc is the plain configuration object consumed by Device.CreateTexture.
type TextureDesc struct {
	Type       TextureType
	Format     TextureFormat
	Width      uint32
	Height     uint32
	Depth      uint32
	NumLayers  uint32
	NumSamples uint32
	NumMips    uint32
	Usage      TextureUsage
	// GenerateMipmaps asks the upload path to build the full mip chain from
	// level zero data.
	GenerateMipmaps bool
	DebugName       string
}

// NumFaces returns the number of cube faces addressed by this texture.
func (d *TextureDesc) NumFaces() uint32 {
	if d.Type == TextureTypeCube {
		return 6
	}
	return 1
}

// TextureRangeDesc describes a sub-region of a texture for upload, copy and
// readback operations.
type TextureRangeDesc struct {
	X      uint32
	Y      uint32
	Z      uint32
	Width  uint32
	Height uint32
	Depth  uint32

	Layer     uint32
	NumLayers uint32

	MipLevel     uint32
	NumMipLevels uint32

	Face     uint32
	NumFaces uint32
}

// NewRange2D builds a single-layer, single-mip 2D range.
func NewRange2D(x, y, width, height uint32) TextureRangeDesc {
	return TextureRangeDesc{
		X: x, Y: y,
		Width: width, Height: height, Depth: 1,
		NumLayers: 1, NumMipLevels: 1, NumFaces: 1,
	}
}

// NewRange3D builds a single-layer, single-mip 3D range.
func NewRange3D(x, y, z, width, height, depth uint32) TextureRangeDesc {
	r := NewRange2D(x, y, width, height)
	r.Z = z
	r.Depth = depth
	return r
}

// Validate checks the range for internal consistency, independent of any
// texture it may later be applied to.
func (r TextureRangeDesc) Validate() core.Result {
	if r.Width == 0 || r.Height == 0 || r.Depth == 0 {
		return core.NewResult(core.ArgumentOutOfRange, "range has a zero dimension (%dx%dx%d)", r.Width, r.Height, r.Depth)
	}
	if r.NumLayers == 0 || r.NumMipLevels == 0 || r.NumFaces == 0 {
		return core.NewResult(core.ArgumentOutOfRange, "range has zero layers, mips or faces")
	}
	return core.ResultOk()
}

// ValidateRange checks the range against the actual texture dimensions.
// A rejected range never reaches a native call.
func (d *TextureDesc) ValidateRange(r TextureRangeDesc) core.Result {
	if result := r.Validate(); !result.IsOk() {
		return result
	}

	levelWidth := math.MipDimension(d.Width, r.MipLevel)
	levelHeight := math.MipDimension(d.Height, r.MipLevel)
	levelDepth := math.MipDimension(d.Depth, r.MipLevel)

	if r.Width > levelWidth || r.Height > levelHeight || r.Depth > levelDepth ||
		r.NumLayers > d.NumLayers || r.NumMipLevels > d.NumMips || r.NumFaces > d.NumFaces() {
		return core.NewResult(core.ArgumentOutOfRange, "range dimensions exceed texture dimensions")
	}
	if r.X > levelWidth-r.Width || r.Y > levelHeight-r.Height || r.Z > levelDepth-r.Depth ||
		r.Layer > d.NumLayers-r.NumLayers ||
		r.MipLevel > d.NumMips-r.NumMipLevels ||
		r.Face > d.NumFaces()-r.NumFaces {
		return core.NewResult(core.ArgumentOutOfRange, "range offset exceeds texture dimensions")
	}
	return core.ResultOk()
}
