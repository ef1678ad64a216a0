package metadata

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageCompute
)

// ShaderModuleDesc carries pre-compiled shader code for one stage. Shading
// language compilation is outside this layer; callers hand over SPIR-V or
// DXIL produced by their own toolchain.
type ShaderModuleDesc struct {
	Stage      ShaderStage
	Code       []byte
	EntryPoint string
	DebugName  string
}

type VertexAttributeFormat int

const (
	VertexAttributeFloat1 VertexAttributeFormat = iota
	VertexAttributeFloat2
	VertexAttributeFloat3
	VertexAttributeFloat4
)

type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexAttributeFormat
}

type VertexInputDesc struct {
	Stride     uint32
	Attributes []VertexAttribute
}

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// RenderPipelineDesc is the plain configuration object consumed by
// Device.CreateRenderPipeline.
type RenderPipelineDesc struct {
	VertexShader   ShaderModuleDesc
	FragmentShader ShaderModuleDesc
	VertexInput    VertexInputDesc
	Primitive      PrimitiveType
	CullMode       CullMode
	// ColorFormats lists the formats of the color attachments the pipeline
	// renders into, in attachment index order.
	ColorFormats []TextureFormat
	DepthFormat  TextureFormat
	SampleCount  uint32
	DebugName    string
}

// ComputePipelineDesc is the plain configuration object consumed by
// Device.CreateComputePipeline.
type ComputePipelineDesc struct {
	ComputeShader ShaderModuleDesc
	DebugName     string
}

// CommandQueueType selects which hardware queue a command queue drains into.
type CommandQueueType int

const (
	CommandQueueTypeGraphics CommandQueueType = iota
	CommandQueueTypeCompute
	CommandQueueTypeTransfer
)

// CommandQueueDesc is the plain configuration object consumed by
// Device.CreateCommandQueue.
type CommandQueueDesc struct {
	Type CommandQueueType
}
