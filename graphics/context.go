package graphics

// Context is the host window or surface that owns the graphics context and
// drives the frame schedule.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the frame and pumps host events.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
}

// FrameInfo describes one tick of the frame schedule.
type FrameInfo struct {
	Frame  int64
	Time   float64
	Delta  float64
	Width  int
	Height int
}

// RunLoop calls tick once per frame on the calling thread until the context
// asks to close or tick returns an error. Stopping the loop is the only form
// of cancellation.
func RunLoop(ctx Context, tick func(FrameInfo) error) error {
	start := ctx.Time()
	last := start
	var frame int64
	for !ctx.ShouldClose() {
		now := ctx.Time()
		w, h := ctx.GetFramebufferSize()
		info := FrameInfo{
			Frame:  frame,
			Time:   now - start,
			Delta:  now - last,
			Width:  w,
			Height: h,
		}
		if err := tick(info); err != nil {
			return err
		}
		ctx.EndFrame()
		last = now
		frame++
	}
	return nil
}
