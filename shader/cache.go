package shader

import (
	"fmt"
	"strings"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/state"
)

// Translation is translated source plus any renamed identifiers.
type Translation struct {
	Code string
	// Names maps declared uniform names to the names in Code. Missing
	// entries were not renamed.
	Names map[string]string
}

// Translator rewrites shader source before compilation, e.g. from WebGL2
// GLSL to the dialect the device accepts.
type Translator interface {
	Translate(source string, stage graphics.ShaderStage) (Translation, error)
}

// Diagnostic holds the compiler output for one stage.
type Diagnostic struct {
	Stage string
	Lines []string
}

// CompileError reports every stage that failed to translate, compile or
// link.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("shader program build failed")
	for _, d := range e.Diagnostics {
		fmt.Fprintf(&b, "\n[%s]", d.Stage)
		for _, line := range d.Lines {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}
	return b.String()
}

func diagnostic(stage, log string) Diagnostic {
	d := Diagnostic{Stage: stage}
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), "\x00")
		if line != "" {
			d.Lines = append(d.Lines, line)
		}
	}
	if len(d.Lines) == 0 {
		d.Lines = []string{"no diagnostic output"}
	}
	return d
}

// hashSource is a 31-multiplier rolling hash. It is cheap, not collision
// resistant; the cache compares full sources on a hash match.
func hashSource(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

type key struct {
	vertex, fragment uint32
}

type entry struct {
	vertex, fragment string
	program          *Program
}

// CacheStats counts lookups.
type CacheStats struct {
	Hits     int64
	Misses   int64
	Programs int
}

// Cache compiles each distinct (vertex, fragment) source pair once.
// Programs are owned by the cache; Remove and Clear dispose them.
type Cache struct {
	st         *state.Cache
	translator Translator
	gles       bool
	entries    map[key][]*entry
	count      int
	hits       int64
	misses     int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTranslator runs every source through t before compiling.
func WithTranslator(t Translator) Option {
	return func(c *Cache) { c.translator = t }
}

// WithGLES marks the device as OpenGL ES 3.
func WithGLES() Option {
	return func(c *Cache) { c.gles = true }
}

// NewCache returns an empty cache compiling on st's device.
func NewCache(st *state.Cache, opts ...Option) *Cache {
	c := &Cache{
		st:      st,
		entries: make(map[key][]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) lookup(vs, fs string) (key, int) {
	k := key{hashSource(vs), hashSource(fs)}
	for i, e := range c.entries[k] {
		if e.vertex == vs && e.fragment == fs {
			return k, i
		}
	}
	return k, -1
}

// GetOrCreate returns the program for the source pair, compiling and
// linking it on a miss. Failures return a *CompileError and leave the cache
// unchanged.
func (c *Cache) GetOrCreate(vs, fs string) (*Program, error) {
	k, i := c.lookup(vs, fs)
	if i >= 0 {
		e := c.entries[k][i]
		if !e.program.Disposed() {
			c.hits++
			return e.program, nil
		}
		// Disposed behind the cache's back; rebuild in place.
		c.removeAt(k, i)
	}
	c.misses++

	p, err := c.build(vs, fs)
	if err != nil {
		graphics.Logger().Warn("shader build failed", "error", err)
		return nil, err
	}
	c.entries[k] = append(c.entries[k], &entry{vertex: vs, fragment: fs, program: p})
	c.count++
	graphics.Logger().Debug("shader program compiled", "program", p.handle, "programs", c.count)
	return p, nil
}

func (c *Cache) build(vs, fs string) (*Program, error) {
	dev := c.st.Device()

	var names map[string]string
	if c.translator != nil {
		var diags []Diagnostic
		tvs, err := c.translator.Translate(vs, graphics.StageVertex)
		if err != nil {
			diags = append(diags, diagnostic("vertex translation", err.Error()))
		}
		tfs, err := c.translator.Translate(fs, graphics.StageFragment)
		if err != nil {
			diags = append(diags, diagnostic("fragment translation", err.Error()))
		}
		if len(diags) > 0 {
			return nil, &CompileError{Diagnostics: diags}
		}
		vs, fs = tvs.Code, tfs.Code
		names = mergeNames(tvs.Names, tfs.Names)
	}

	var diags []Diagnostic
	vsh, vlog, vok := dev.CompileShader(graphics.StageVertex, vs)
	if !vok {
		diags = append(diags, diagnostic(graphics.StageVertex.String(), vlog))
	}
	fsh, flog, fok := dev.CompileShader(graphics.StageFragment, fs)
	if !fok {
		diags = append(diags, diagnostic(graphics.StageFragment.String(), flog))
	}
	if len(diags) > 0 {
		if vok {
			dev.DeleteShader(vsh)
		}
		if fok {
			dev.DeleteShader(fsh)
		}
		return nil, &CompileError{Diagnostics: diags}
	}

	handle, llog, lok := dev.LinkProgram(vsh, fsh)
	dev.DeleteShader(vsh)
	dev.DeleteShader(fsh)
	if !lok {
		return nil, &CompileError{Diagnostics: []Diagnostic{diagnostic("link", llog)}}
	}
	p := newProgram(c.st, handle)
	p.names = names
	return p, nil
}

func mergeNames(maps ...map[string]string) map[string]string {
	var out map[string]string
	for _, m := range maps {
		for k, v := range m {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}

func (c *Cache) removeAt(k key, i int) *entry {
	bucket := c.entries[k]
	e := bucket[i]
	bucket = append(bucket[:i], bucket[i+1:]...)
	if len(bucket) == 0 {
		delete(c.entries, k)
	} else {
		c.entries[k] = bucket
	}
	c.count--
	return e
}

// Remove disposes the program for the source pair. It reports whether an
// entry existed.
func (c *Cache) Remove(vs, fs string) bool {
	k, i := c.lookup(vs, fs)
	if i < 0 {
		return false
	}
	c.removeAt(k, i).program.Dispose()
	return true
}

// Clear disposes every cached program.
func (c *Cache) Clear() {
	for _, bucket := range c.entries {
		for _, e := range bucket {
			e.program.Dispose()
		}
	}
	c.entries = make(map[key][]*entry)
	c.count = 0
}

// ESSL reports whether sources handed to the cache should be written in the
// ES 3.0 dialect. That is the case on a GLES device and whenever a
// translator is installed, since the translator consumes WebGL2 GLSL.
func (c *Cache) ESSL() bool { return c.gles || c.translator != nil }

// Len returns the number of cached programs.
func (c *Cache) Len() int { return c.count }

func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits, Misses: c.misses, Programs: c.count}
}
