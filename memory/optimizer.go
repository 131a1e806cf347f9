// Package memory keeps a registry of GPU textures and accounted buffer bytes
// and enforces a soft memory budget by evicting the least recently used
// textures.
//
// Registration has a side effect callers must plan for: registering a
// texture or buffer runs the pressure check, which may destroy OTHER
// registered textures. A texture is never evicted by its own registration,
// but any TextureResource the caller holds may report graphics.ErrDisposed
// after any Register call. Call TouchTexture on every frame a texture is
// sampled or the eviction order will not reflect actual use.
//
// An Optimizer is single-owner and not safe for concurrent use.
package memory

import (
	"errors"
	"fmt"
	"math"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/state"
)

var (
	ErrUnknownTexture    = errors.New("texture is not registered")
	ErrDuplicateTexture  = errors.New("texture id already registered")
	ErrBudgetUnreachable = errors.New("eviction could not reach the memory target")
)

// LowWaterMark is the fraction of the limit automatic eviction frees down
// to. It sits below the threshold so usage hovering at the threshold does
// not evict on every registration.
const LowWaterMark = 0.6

const DefaultEvictionThreshold = 0.8

// Config sets the budget. A zero Limit disables automatic eviction.
type Config struct {
	Limit             int64
	EvictionThreshold float64
}

// DefaultConfig returns a 512 MiB budget with the default threshold.
func DefaultConfig() Config {
	return Config{
		Limit:             512 << 20,
		EvictionThreshold: DefaultEvictionThreshold,
	}
}

// Stats is a point-in-time view of the budget.
type Stats struct {
	TextureCount  int
	TextureMemory int64
	BufferMemory  int64
	TotalMemory   int64
	Limit         int64
	// UsagePercent is TotalMemory/Limit as a fraction; it may exceed 1.0
	// until the next pressure check.
	UsagePercent float64
	PeakMemory   int64
	// Evictions counts eviction runs, EvictedTextures the textures they
	// destroyed.
	Evictions       int64
	EvictedTextures int64
	// BudgetMisses counts automatic runs that stopped above the low-water
	// mark because nothing else was evictable.
	BudgetMisses int64
}

// TextureStat describes one registered texture.
type TextureStat struct {
	ID       string
	Width    int
	Height   int
	Format   graphics.PixelFormat
	Size     int64
	LastUsed uint64
}

// DetailedStats adds per-texture rows, least recently used first.
type DetailedStats struct {
	Stats
	Textures []TextureStat
}

// Optimizer is the texture registry and budget enforcer.
type Optimizer struct {
	st  *state.Cache
	cfg Config

	textures map[string]*TextureResource
	lru      lruList
	clock    uint64

	textureMem int64
	bufferMem  int64
	peak       int64

	evictions    int64
	evicted      int64
	budgetMisses int64

	onEvict func(*TextureResource)
}

// New returns an empty optimizer that destroys evicted textures through st.
func New(st *state.Cache, cfg Config) *Optimizer {
	if cfg.EvictionThreshold <= 0 || cfg.EvictionThreshold > 1 {
		cfg.EvictionThreshold = DefaultEvictionThreshold
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	return &Optimizer{
		st:       st,
		cfg:      cfg,
		textures: make(map[string]*TextureResource),
	}
}

// OnEvict registers fn to run after each automatic or forced eviction. The
// handle is already destroyed when fn runs.
func (o *Optimizer) OnEvict(fn func(*TextureResource)) {
	o.onEvict = fn
}

func (o *Optimizer) total() int64 { return o.textureMem + o.bufferMem }

func (o *Optimizer) trackPeak() {
	if t := o.total(); t > o.peak {
		o.peak = t
	}
}

func (o *Optimizer) tick() uint64 {
	o.clock++
	return o.clock
}

// RegisterTexture takes ownership of handle and accounts
// width×height×BytesPerPixel(format) bytes for it.
//
// Registration runs the pressure check and may evict other textures.
func (o *Optimizer) RegisterTexture(id string, handle graphics.Texture, width, height int, format graphics.PixelFormat) (*TextureResource, error) {
	if _, ok := o.textures[id]; ok {
		return nil, fmt.Errorf("register %q: %w", id, ErrDuplicateTexture)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("register %q: invalid size %dx%d", id, width, height)
	}
	bpp, size := footprint(width, height, format)
	t := &TextureResource{
		ID:            id,
		Handle:        handle,
		Width:         width,
		Height:        height,
		Format:        format,
		BytesPerPixel: bpp,
		Size:          size,
		LastUsed:      o.tick(),
	}
	o.textures[id] = t
	o.lru.PushFront(t)
	o.textureMem += size
	o.trackPeak()
	o.checkPressure(t)
	return t, nil
}

// CreateTexture allocates a 2D texture on the device, uploads data (which
// may be nil) and registers it.
//
// Like RegisterTexture it may evict other textures.
func (o *Optimizer) CreateTexture(id string, width, height int, format graphics.PixelFormat, data []byte) (*TextureResource, error) {
	if _, ok := o.textures[id]; ok {
		return nil, fmt.Errorf("create %q: %w", id, ErrDuplicateTexture)
	}
	dev := o.st.Device()
	h := dev.CreateTexture()
	o.st.BindTexture(graphics.Texture2D, h)
	dev.TexParameters(graphics.Texture2D, graphics.Linear, graphics.ClampToEdge)
	dev.TexImage2D(graphics.Texture2D, format, width, height, data)
	t, err := o.RegisterTexture(id, h, width, height, format)
	if err != nil {
		o.st.DeleteTexture(h)
		return nil, err
	}
	return t, nil
}

// UpdateTexture replaces the pixels of a registered texture and marks it
// used.
func (o *Optimizer) UpdateTexture(id string, data []byte) error {
	t, ok := o.textures[id]
	if !ok {
		return fmt.Errorf("update %q: %w", id, ErrUnknownTexture)
	}
	if want := int(t.Size); len(data) < want {
		return fmt.Errorf("update %q: have %d bytes, need %d", id, len(data), want)
	}
	o.st.BindTexture(graphics.Texture2D, t.Handle)
	o.st.Device().TexSubImage2D(graphics.Texture2D, 0, 0, t.Width, t.Height, t.Format, data)
	o.touch(t)
	return nil
}

// Texture looks up a registered texture.
func (o *Optimizer) Texture(id string) (*TextureResource, bool) {
	t, ok := o.textures[id]
	return t, ok
}

// TouchTexture marks id as used now.
func (o *Optimizer) TouchTexture(id string) error {
	t, ok := o.textures[id]
	if !ok {
		return fmt.Errorf("touch %q: %w", id, ErrUnknownTexture)
	}
	o.touch(t)
	return nil
}

func (o *Optimizer) touch(t *TextureResource) {
	t.LastUsed = o.tick()
	o.lru.MoveToFront(t)
}

// RemoveTexture destroys a registered texture outside of eviction.
func (o *Optimizer) RemoveTexture(id string) error {
	t, ok := o.textures[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrUnknownTexture)
	}
	o.destroy(t)
	return nil
}

// RegisterBuffer accounts bytes of buffer memory the caller owns. It runs
// the pressure check and may evict textures.
func (o *Optimizer) RegisterBuffer(bytes int64) {
	if bytes <= 0 {
		return
	}
	o.bufferMem += bytes
	o.trackPeak()
	o.checkPressure(nil)
}

// UnregisterBuffer releases accounted buffer bytes. The total never goes
// below zero. Releasing memory never evicts.
func (o *Optimizer) UnregisterBuffer(bytes int64) {
	o.bufferMem -= bytes
	if o.bufferMem < 0 {
		o.bufferMem = 0
	}
}

func (o *Optimizer) destroy(t *TextureResource) {
	o.lru.Remove(t)
	delete(o.textures, t.ID)
	o.st.DeleteTexture(t.Handle)
	o.textureMem -= t.Size
	t.evicted = true
}

// evictTo destroys textures oldest first until the total is at most target,
// skipping exempt. It returns the number destroyed.
func (o *Optimizer) evictTo(target int64, exempt *TextureResource) int {
	n := 0
	for t := o.lru.Oldest(); t != nil && o.total() > target; {
		prev := t.prev
		if t != exempt {
			o.destroy(t)
			o.evicted++
			n++
			graphics.Logger().Debug("texture evicted", "id", t.ID, "bytes", t.Size)
			if o.onEvict != nil {
				o.onEvict(t)
			}
		}
		t = prev
	}
	return n
}

func (o *Optimizer) bytesAt(fraction float64) int64 {
	return int64(math.Round(float64(o.cfg.Limit) * fraction))
}

func (o *Optimizer) checkPressure(exempt *TextureResource) {
	if o.cfg.Limit == 0 || o.total() <= o.bytesAt(o.cfg.EvictionThreshold) {
		return
	}
	low := LowWaterMark
	if o.cfg.EvictionThreshold < low {
		low = o.cfg.EvictionThreshold
	}
	target := o.bytesAt(low)
	before := o.total()
	o.evictions++
	n := o.evictTo(target, exempt)
	graphics.Logger().Info("memory pressure eviction",
		"evicted", n, "freed", before-o.total(), "total", o.total(), "limit", o.cfg.Limit)
	if o.total() > target {
		o.budgetMisses++
		graphics.Logger().Warn("memory budget unreachable",
			"total", o.total(), "target", target, "limit", o.cfg.Limit)
	}
}

// ForceEviction evicts least recently used textures until the total is at
// most targetFraction of the limit. It returns how many were evicted, and
// ErrBudgetUnreachable if the target could not be met. Every call counts as
// an eviction run.
func (o *Optimizer) ForceEviction(targetFraction float64) (int, error) {
	o.evictions++
	if targetFraction < 0 {
		targetFraction = 0
	}
	target := o.bytesAt(targetFraction)
	n := o.evictTo(target, nil)
	graphics.Logger().Info("forced eviction", "evicted", n, "total", o.total(), "target", target)
	if o.total() > target {
		return n, fmt.Errorf("%w: %d bytes in use, target %d", ErrBudgetUnreachable, o.total(), target)
	}
	return n, nil
}

// SetLimit changes the budget, resets the peak to current usage and runs
// the pressure check against the new limit.
func (o *Optimizer) SetLimit(bytes int64) {
	if bytes < 0 {
		bytes = 0
	}
	o.cfg.Limit = bytes
	o.peak = o.total()
	o.checkPressure(nil)
}

// Stats reports the current accounting.
func (o *Optimizer) Stats() Stats {
	s := Stats{
		TextureCount:    len(o.textures),
		TextureMemory:   o.textureMem,
		BufferMemory:    o.bufferMem,
		TotalMemory:     o.total(),
		Limit:           o.cfg.Limit,
		PeakMemory:      o.peak,
		Evictions:       o.evictions,
		EvictedTextures: o.evicted,
		BudgetMisses:    o.budgetMisses,
	}
	if o.cfg.Limit > 0 {
		s.UsagePercent = float64(s.TotalMemory) / float64(o.cfg.Limit)
	}
	return s
}

// DetailedStats reports Stats plus every texture in eviction order.
func (o *Optimizer) DetailedStats() DetailedStats {
	d := DetailedStats{Stats: o.Stats()}
	d.Textures = make([]TextureStat, 0, o.lru.Len())
	o.lru.Each(func(t *TextureResource) {
		d.Textures = append(d.Textures, TextureStat{
			ID:       t.ID,
			Width:    t.Width,
			Height:   t.Height,
			Format:   t.Format,
			Size:     t.Size,
			LastUsed: t.LastUsed,
		})
	})
	return d
}

// Dispose destroys every registered texture and forgets buffer accounting.
func (o *Optimizer) Dispose() {
	for t := o.lru.Oldest(); t != nil; {
		prev := t.prev
		o.destroy(t)
		t = prev
	}
	o.lru.Clear()
	o.bufferMem = 0
}
