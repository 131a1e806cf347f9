//go:build !linux

package headless

import (
	"errors"

	"github.com/richinsley/gocompositor/graphics"
)

// Context is unavailable off Linux; New always fails.
type Context struct{}

var _ graphics.Context = (*Context)(nil)

func New(width, height int) (*Context, error) {
	return nil, errors.New("egl headless rendering is only supported on linux")
}

func (*Context) MakeCurrent()                   {}
func (*Context) Shutdown()                      {}
func (*Context) ShouldClose() bool              { return true }
func (*Context) RequestClose()                  {}
func (*Context) EndFrame()                      {}
func (*Context) GetFramebufferSize() (int, int) { return 0, 0 }
func (*Context) Time() float64                  { return 0 }
