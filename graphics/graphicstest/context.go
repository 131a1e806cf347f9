package graphicstest

// Context is a graphics.Context that closes after a fixed number of frames
// and advances time by a fixed step per frame.
type Context struct {
	Width, Height int
	Frames        int
	Step          float64

	Presented int
	ShutDown  bool
	now       float64
}

func (c *Context) MakeCurrent() {}

func (c *Context) Shutdown() { c.ShutDown = true }

func (c *Context) ShouldClose() bool { return c.Presented >= c.Frames }

func (c *Context) EndFrame() {
	c.Presented++
	c.now += c.Step
}

func (c *Context) GetFramebufferSize() (int, int) { return c.Width, c.Height }

func (c *Context) Time() float64 { return c.now }
