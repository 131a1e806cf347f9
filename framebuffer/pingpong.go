package framebuffer

import (
	"fmt"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/state"
)

// PingPong is a pair of identical framebuffers for passes that read the
// previous result while writing the next one.
type PingPong struct {
	fbs   [2]*Framebuffer
	read  int
	write int
}

// NewPingPong allocates both targets with the same options.
func NewPingPong(st *state.Cache, opts Options) (*PingPong, error) {
	p := &PingPong{read: 0, write: 1}
	for i := range p.fbs {
		fb, err := New(st, opts)
		if err != nil {
			p.Dispose()
			return nil, fmt.Errorf("ping-pong target %d: %w", i, err)
		}
		p.fbs[i] = fb
	}
	return p, nil
}

// Read is the target holding the last completed result.
func (p *PingPong) Read() *Framebuffer { return p.fbs[p.read] }

// Write is the target the next pass renders into.
func (p *PingPong) Write() *Framebuffer { return p.fbs[p.write] }

// Swap exchanges the read and write targets.
func (p *PingPong) Swap() {
	p.read, p.write = p.write, p.read
}

// TextureID resolves to the read target's color attachment, so a PingPong
// can be used directly as a pass input.
func (p *PingPong) TextureID() (graphics.Texture, error) {
	return p.Read().TextureID()
}

// Resize resizes both targets.
func (p *PingPong) Resize(width, height int) error {
	for _, fb := range p.fbs {
		if err := fb.Resize(width, height); err != nil {
			return err
		}
	}
	return nil
}

func (p *PingPong) Width() int  { return p.fbs[0].Width() }
func (p *PingPong) Height() int { return p.fbs[0].Height() }

// Dispose releases both targets.
func (p *PingPong) Dispose() {
	for _, fb := range p.fbs {
		if fb != nil {
			fb.Dispose()
		}
	}
}
