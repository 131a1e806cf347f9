package graphics

// Device is the graphics context the pipeline drives. Every method is a
// synchronous command submission issued on the thread that owns the context.
//
// Components that mirror bindings (see package state) assume they are the
// only callers of the binding methods; anything else that mutates bindings
// must be followed by a state cache Invalidate.
type Device interface {
	// CompileShader returns the shader handle, the info log and whether
	// compilation succeeded. A failed shader has already been deleted.
	CompileShader(stage ShaderStage, source string) (Shader, string, bool)
	// LinkProgram links vs and fs. A failed program has already been deleted.
	LinkProgram(vs, fs Shader) (Program, string, bool)
	DeleteShader(s Shader)
	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformLocation(p Program, name string) int32
	AttribLocation(p Program, name string) int32
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	Uniform4f(loc int32, x, y, z, w float32)
	UniformMatrix4fv(loc int32, m [16]float32)

	CreateTexture() Texture
	DeleteTexture(t Texture)
	// ActiveTexture selects texture unit index unit (not TEXTURE0+unit).
	ActiveTexture(unit int)
	BindTexture(target TextureTarget, t Texture)
	// TexImage2D (re)allocates storage for the texture bound to target.
	// data may be nil.
	TexImage2D(target TextureTarget, format PixelFormat, width, height int, data []byte)
	TexSubImage2D(target TextureTarget, x, y, width, height int, format PixelFormat, data []byte)
	TexParameters(target TextureTarget, filter Filter, wrap Wrap)

	CreateBuffer() Buffer
	DeleteBuffer(b Buffer)
	BindBuffer(target BufferTarget, b Buffer)
	BufferData(target BufferTarget, size int, data []byte, usage BufferUsage)
	BufferSubData(target BufferTarget, offset int, data []byte)

	CreateVertexArray() VertexArray
	DeleteVertexArray(a VertexArray)
	BindVertexArray(a VertexArray)
	EnableVertexAttribArray(index uint32)
	// VertexAttribPointer describes float attributes in the bound array buffer.
	VertexAttribPointer(index uint32, size, stride int32, offset int)

	CreateFramebuffer() Framebuffer
	DeleteFramebuffer(f Framebuffer)
	BindFramebuffer(f Framebuffer)
	FramebufferTexture2D(attachment Attachment, t Texture)
	FramebufferRenderbuffer(attachment Attachment, r Renderbuffer)
	CheckFramebufferStatus() FramebufferStatus
	CreateRenderbuffer() Renderbuffer
	DeleteRenderbuffer(r Renderbuffer)
	BindRenderbuffer(r Renderbuffer)
	RenderbufferStorage(format PixelFormat, width, height int)

	Enable(c Capability)
	Disable(c Capability)
	BlendFunc(src, dst BlendFactor)
	DepthFunc(fn CompareFunc)
	CullFace(face Face)
	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)

	DrawArrays(mode Primitive, first, count int)
	DrawElements(mode Primitive, count int, indexType IndexType, offset int)

	IsEnabled(c Capability) bool
	// GetInteger queries a single integer. ParamActiveTexture reports the
	// unit index.
	GetInteger(p Param) int32
	// GetIntegerv queries a vector parameter such as ParamViewport.
	GetIntegerv(p Param, dst []int32)
	// ReadPixels reads RGBA8 pixels from the bound framebuffer.
	ReadPixels(x, y, width, height int, dst []byte)
}
