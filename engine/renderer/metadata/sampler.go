package metadata

type SamplerFilter int

const (
	SamplerFilterNearest SamplerFilter = iota
	SamplerFilterLinear
)

type SamplerAddressMode int

const (
	SamplerAddressModeRepeat SamplerAddressMode = iota
	SamplerAddressModeClamp
	SamplerAddressModeMirror
)

// SamplerStateDesc is the plain configuration object consumed by
// Device.CreateSamplerState.
type SamplerStateDesc struct {
	MinFilter     SamplerFilter
	MagFilter     SamplerFilter
	MipFilter     SamplerFilter
	AddressModeU  SamplerAddressMode
	AddressModeV  SamplerAddressMode
	AddressModeW  SamplerAddressMode
	MaxAnisotropy uint32
	DebugName     string
}
