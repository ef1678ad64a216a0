package metadata

// LoadAction selects what happens to an attachment at render pass begin.
type LoadAction int

const (
	LoadActionDontCare LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

// StoreAction selects what happens to an attachment at render pass end.
type StoreAction int

const (
	StoreActionDontCare StoreAction = iota
	StoreActionStore
	StoreActionMsaaResolve
)

type Color struct {
	R, G, B, A float32
}

// ColorAttachmentDesc configures one color attachment of a render pass.
type ColorAttachmentDesc struct {
	LoadAction  LoadAction
	StoreAction StoreAction
	ClearColor  Color
}

// DepthAttachmentDesc configures the optional depth/stencil attachment.
type DepthAttachmentDesc struct {
	LoadAction   LoadAction
	StoreAction  StoreAction
	ClearDepth   float32
	ClearStencil uint32
}

// RenderPassDesc is the ordered list of attachments for one render pass.
type RenderPassDesc struct {
	ColorAttachments []ColorAttachmentDesc
	DepthAttachment  *DepthAttachmentDesc
}

type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type ScissorRect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

type PrimitiveType int

const (
	PrimitiveTypePoint PrimitiveType = iota
	PrimitiveTypeLine
	PrimitiveTypeLineStrip
	PrimitiveTypeTriangle
	PrimitiveTypeTriangleStrip
)

type IndexFormat int

const (
	IndexFormatUInt16 IndexFormat = iota
	IndexFormatUInt32
)
