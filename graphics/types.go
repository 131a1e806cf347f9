package graphics

// Object handles. Zero is never a live object; binding zero unbinds.
type (
	Shader       uint32
	Program      uint32
	Texture      uint32
	Buffer       uint32
	VertexArray  uint32
	Framebuffer  uint32
	Renderbuffer uint32
)

// Screen is the default framebuffer.
const Screen Framebuffer = 0

// The enum types below carry their OpenGL values so a GL-backed Device can
// pass them straight through.

type ShaderStage uint32

const (
	StageVertex   ShaderStage = 0x8B31
	StageFragment ShaderStage = 0x8B30
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

type TextureTarget uint32

const (
	Texture2D      TextureTarget = 0x0DE1
	Texture3D      TextureTarget = 0x806F
	TextureCubeMap TextureTarget = 0x8513
)

// TextureTargets lists the targets the state cache mirrors per unit.
var TextureTargets = []TextureTarget{Texture2D, Texture3D, TextureCubeMap}

type Capability uint32

const (
	Blend     Capability = 0x0BE2
	DepthTest Capability = 0x0B71
	CullFace  Capability = 0x0B44
)

type BlendFactor uint32

const (
	Zero             BlendFactor = 0
	One              BlendFactor = 1
	SrcColor         BlendFactor = 0x0300
	OneMinusSrcColor BlendFactor = 0x0301
	SrcAlpha         BlendFactor = 0x0302
	OneMinusSrcAlpha BlendFactor = 0x0303
	DstAlpha         BlendFactor = 0x0304
	OneMinusDstAlpha BlendFactor = 0x0305
	DstColor         BlendFactor = 0x0306
	OneMinusDstColor BlendFactor = 0x0307
)

type CompareFunc uint32

const (
	Never    CompareFunc = 0x0200
	Less     CompareFunc = 0x0201
	Equal    CompareFunc = 0x0202
	LEqual   CompareFunc = 0x0203
	Greater  CompareFunc = 0x0204
	NotEqual CompareFunc = 0x0205
	GEqual   CompareFunc = 0x0206
	Always   CompareFunc = 0x0207
)

type Face uint32

const (
	Front        Face = 0x0404
	Back         Face = 0x0405
	FrontAndBack Face = 0x0408
)

type BufferTarget uint32

const (
	ArrayBuffer        BufferTarget = 0x8892
	ElementArrayBuffer BufferTarget = 0x8893
)

type BufferUsage uint32

const (
	StreamDraw  BufferUsage = 0x88E0
	StaticDraw  BufferUsage = 0x88E4
	DynamicDraw BufferUsage = 0x88E8
)

type Attachment uint32

const (
	ColorAttachment0       Attachment = 0x8CE0
	DepthAttachment        Attachment = 0x8D00
	StencilAttachment      Attachment = 0x8D20
	DepthStencilAttachment Attachment = 0x821A
)

// FramebufferStatus is the raw completeness code reported by the device.
type FramebufferStatus uint32

const (
	FramebufferComplete                    FramebufferStatus = 0x8CD5
	FramebufferIncompleteAttachment        FramebufferStatus = 0x8CD6
	FramebufferIncompleteMissingAttachment FramebufferStatus = 0x8CD7
	FramebufferUnsupported                 FramebufferStatus = 0x8CDD
)

func (s FramebufferStatus) String() string {
	switch s {
	case FramebufferComplete:
		return "complete"
	case FramebufferIncompleteAttachment:
		return "incomplete attachment"
	case FramebufferIncompleteMissingAttachment:
		return "missing attachment"
	case FramebufferUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

type Primitive uint32

const (
	Triangles     Primitive = 0x0004
	TriangleStrip Primitive = 0x0005
)

type IndexType uint32

const (
	UnsignedShort IndexType = 0x1403
	UnsignedInt   IndexType = 0x1405
)

type ClearMask uint32

const (
	ColorBufferBit   ClearMask = 0x4000
	DepthBufferBit   ClearMask = 0x0100
	StencilBufferBit ClearMask = 0x0400
)

type Filter uint32

const (
	Nearest Filter = 0x2600
	Linear  Filter = 0x2601
)

type Wrap uint32

const (
	ClampToEdge Wrap = 0x812F
	Repeat      Wrap = 0x2901
)

// Param names a queryable piece of device state.
type Param uint32

const (
	ParamCurrentProgram         Param = 0x8B8D
	ParamVertexArrayBinding     Param = 0x85B5
	ParamFramebufferBinding     Param = 0x8CA6
	ParamActiveTexture          Param = 0x84E0
	ParamTextureBinding2D       Param = 0x8069
	ParamTextureBinding3D       Param = 0x806A
	ParamTextureBindingCubeMap  Param = 0x8514
	ParamBlendSrc               Param = 0x80C9
	ParamBlendDst               Param = 0x80C8
	ParamDepthFunc              Param = 0x0B74
	ParamCullFaceMode           Param = 0x0B45
	ParamViewport               Param = 0x0BA2
	ParamMaxCombinedTextureUnit Param = 0x8B4D
)

// BindingParam returns the query parameter for the texture bound to target.
func BindingParam(target TextureTarget) Param {
	switch target {
	case Texture3D:
		return ParamTextureBinding3D
	case TextureCubeMap:
		return ParamTextureBindingCubeMap
	default:
		return ParamTextureBinding2D
	}
}

// PixelFormat is a sized internal format.
type PixelFormat uint32

const (
	R8              PixelFormat = 0x8229
	RG8             PixelFormat = 0x822B
	RGB8            PixelFormat = 0x8051
	RGBA8           PixelFormat = 0x8058
	SRGB8Alpha8     PixelFormat = 0x8C43
	R16UI           PixelFormat = 0x8234
	R32F            PixelFormat = 0x822E
	RGBA16F         PixelFormat = 0x881A
	RGBA32F         PixelFormat = 0x8814
	Depth24         PixelFormat = 0x81A6
	Depth24Stencil8 PixelFormat = 0x88F0
	StencilIndex8   PixelFormat = 0x8D48
)

// BytesPerPixel reports the storage footprint of one texel in format.
// Unknown formats are assumed to be 4 bytes wide.
func BytesPerPixel(format PixelFormat) int {
	switch format {
	case R8, StencilIndex8:
		return 1
	case RG8, R16UI:
		return 2
	case RGB8:
		return 3
	case RGBA8, SRGB8Alpha8, R32F, Depth24, Depth24Stencil8:
		return 4
	case RGBA16F:
		return 8
	case RGBA32F:
		return 16
	default:
		return 4
	}
}

// Rect is an axis-aligned rectangle in pixels or texture coordinates.
type Rect struct {
	X, Y, W, H float32
}

// FullUV covers a whole texture.
var FullUV = Rect{X: 0, Y: 0, W: 1, H: 1}
