package profiler

import (
	"sort"
	"time"

	"github.com/richinsley/gocompositor/batch"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/memory"
	"github.com/richinsley/gocompositor/state"
)

// MemorySource is satisfied by *memory.Optimizer.
type MemorySource interface {
	Stats() memory.Stats
}

// BatchSource is satisfied by *batch.Renderer.
type BatchSource interface {
	Stats() batch.Stats
}

// FrameStats is everything measured between one BeginFrame and EndFrame.
type FrameStats struct {
	Frame    int64
	Duration time.Duration
	Counters
	StateChanges    int64
	StateSaved      int64
	StateEfficiency float64
	Memory          memory.Stats
	Batch           batch.Stats
	Sections        map[string]time.Duration
}

// SectionStats aggregates one named section over every profiled frame.
type SectionStats struct {
	Name  string
	Calls int64
	Total time.Duration
	Avg   time.Duration
	Max   time.Duration
}

// Report summarises all frames since New or Reset.
type Report struct {
	Frames   int64
	Total    time.Duration
	Avg      time.Duration
	Min      time.Duration
	Max      time.Duration
	FPS      float64
	Last     FrameStats
	Sections []SectionStats
}

type Option func(*Profiler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

func WithMemory(m MemorySource) Option {
	return func(p *Profiler) { p.mem = m }
}

func WithBatch(b BatchSource) Option {
	return func(p *Profiler) { p.batch = b }
}

// Profiler is driven from the render thread and is not safe for concurrent
// use.
type Profiler struct {
	dev   *Device
	st    *state.Cache
	mem   MemorySource
	batch BatchSource
	now   func() time.Time

	inFrame  bool
	start    time.Time
	sections map[string]time.Duration

	frames   int64
	total    time.Duration
	min, max time.Duration
	last     FrameStats
	agg      map[string]*SectionStats
}

// New profiles the draws that go through dev and the state changes recorded
// by st. st should wrap dev.
func New(dev *Device, st *state.Cache, opts ...Option) *Profiler {
	p := &Profiler{
		dev: dev,
		st:  st,
		now: time.Now,
		agg: make(map[string]*SectionStats),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// BeginFrame resets the per-frame counters and starts the frame timer.
func (p *Profiler) BeginFrame() {
	p.dev.ResetCounters()
	p.st.ResetStats()
	p.sections = make(map[string]time.Duration)
	p.start = p.now()
	p.inFrame = true
}

// EndFrame stops the timer and folds the frame into the running report.
// Calling it without BeginFrame returns the previous frame unchanged.
func (p *Profiler) EndFrame() FrameStats {
	if !p.inFrame {
		return p.last
	}
	p.inFrame = false
	d := p.now().Sub(p.start)
	ss := p.st.Stats()
	fs := FrameStats{
		Frame:           p.frames,
		Duration:        d,
		Counters:        p.dev.Counters(),
		StateChanges:    ss.Changes,
		StateSaved:      ss.Saved,
		StateEfficiency: ss.Efficiency,
		Sections:        p.sections,
	}
	if p.mem != nil {
		fs.Memory = p.mem.Stats()
	}
	if p.batch != nil {
		fs.Batch = p.batch.Stats()
	}

	if p.frames == 0 || d < p.min {
		p.min = d
	}
	if d > p.max {
		p.max = d
	}
	p.frames++
	p.total += d
	p.last = fs
	return fs
}

// Section starts timing name and returns the function that stops it.
// Sections entered more than once in a frame accumulate.
//
//	defer prof.Section("composite")()
func (p *Profiler) Section(name string) func() {
	start := p.now()
	return func() {
		d := p.now().Sub(start)
		if p.sections != nil {
			p.sections[name] += d
		}
		s, ok := p.agg[name]
		if !ok {
			s = &SectionStats{Name: name}
			p.agg[name] = s
		}
		s.Calls++
		s.Total += d
		if d > s.Max {
			s.Max = d
		}
	}
}

// Report returns the summary so far. Sections are sorted by total time,
// most expensive first.
func (p *Profiler) Report() Report {
	r := Report{
		Frames: p.frames,
		Total:  p.total,
		Min:    p.min,
		Max:    p.max,
		Last:   p.last,
	}
	if p.frames > 0 {
		r.Avg = p.total / time.Duration(p.frames)
	}
	if r.Avg > 0 {
		r.FPS = float64(time.Second) / float64(r.Avg)
	}
	for _, s := range p.agg {
		c := *s
		if c.Calls > 0 {
			c.Avg = c.Total / time.Duration(c.Calls)
		}
		r.Sections = append(r.Sections, c)
	}
	sort.Slice(r.Sections, func(i, j int) bool {
		if r.Sections[i].Total != r.Sections[j].Total {
			return r.Sections[i].Total > r.Sections[j].Total
		}
		return r.Sections[i].Name < r.Sections[j].Name
	})
	return r
}

// LogReport writes the current report at Info level.
func (p *Profiler) LogReport() {
	r := p.Report()
	log := graphics.Logger()
	log.Info("profile",
		"frames", r.Frames,
		"avg", r.Avg,
		"min", r.Min,
		"max", r.Max,
		"fps", r.FPS,
		"drawCalls", r.Last.DrawCalls,
		"primitives", r.Last.Primitives,
		"uploadBytes", r.Last.UploadBytes,
		"stateEfficiency", r.Last.StateEfficiency,
		"memoryUsage", r.Last.Memory.UsagePercent,
		"batchEfficiency", r.Last.Batch.BatchEfficiency,
	)
	for _, s := range r.Sections {
		log.Info("profile section", "name", s.Name, "calls", s.Calls, "avg", s.Avg, "max", s.Max)
	}
}

// Reset forgets every completed frame and section.
func (p *Profiler) Reset() {
	p.frames = 0
	p.total, p.min, p.max = 0, 0, 0
	p.last = FrameStats{}
	p.agg = make(map[string]*SectionStats)
}
