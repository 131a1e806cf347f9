package options

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/richinsley/gocompositor/graphics"
)

// FileConfig is the TOML config file. Keys left out of the file stay nil
// and do not override anything.
type FileConfig struct {
	Memory struct {
		LimitMB           *int     `toml:"limit_mb"`
		EvictionThreshold *float64 `toml:"eviction_threshold"`
	} `toml:"memory"`
	Batch struct {
		MaxBatchSize *int `toml:"max_batch_size"`
	} `toml:"batch"`
	Effects struct {
		BlurIterations    *int     `toml:"blur_iterations"`
		BlurRadius        *float64 `toml:"blur_radius"`
		Brightness        *float64 `toml:"brightness"`
		Contrast          *float64 `toml:"contrast"`
		VignetteIntensity *float64 `toml:"vignette_intensity"`
		VignetteSoftness  *float64 `toml:"vignette_softness"`
	} `toml:"effects"`
}

// LoadConfig reads path, expanding a leading ~. Unknown keys are logged
// and ignored.
func LoadConfig(path string) (*FileConfig, error) {
	full, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding config path %q: %w", path, err)
	}
	var fc FileConfig
	md, err := toml.DecodeFile(full, &fc)
	if err != nil {
		return nil, fmt.Errorf("couldn't read config file: %w", err)
	}
	for _, key := range md.Undecoded() {
		graphics.Logger().Warn("unknown config key", "file", full, "key", key.String())
	}
	return &fc, nil
}

func setInt(dst *int, src *int, name string, explicit map[string]bool) {
	if src != nil && !explicit[name] {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64, name string, explicit map[string]bool) {
	if src != nil && !explicit[name] {
		*dst = *src
	}
}

// Apply copies file values into o, except for flags named in explicit,
// which win over the file.
func (o *Options) Apply(fc *FileConfig, explicit map[string]bool) {
	setInt(o.MemoryLimitMB, fc.Memory.LimitMB, "memory-limit", explicit)
	setFloat(o.EvictionThreshold, fc.Memory.EvictionThreshold, "eviction-threshold", explicit)
	setInt(o.MaxBatchSize, fc.Batch.MaxBatchSize, "max-batch", explicit)
	o.Effects.Apply(fc, explicit)
}

// Apply copies the file's effect values into e, except for flags named in
// explicit.
func (e Effects) Apply(fc *FileConfig, explicit map[string]bool) {
	setInt(e.BlurIterations, fc.Effects.BlurIterations, "blur-iterations", explicit)
	setFloat(e.BlurRadius, fc.Effects.BlurRadius, "blur-radius", explicit)
	setFloat(e.Brightness, fc.Effects.Brightness, "brightness", explicit)
	setFloat(e.Contrast, fc.Effects.Contrast, "contrast", explicit)
	setFloat(e.VignetteIntensity, fc.Effects.VignetteIntensity, "vignette", explicit)
	setFloat(e.VignetteSoftness, fc.Effects.VignetteSoftness, "vignette-softness", explicit)
}

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and delivers the result on the
// returned channel until ctx is done. Reload failures are logged and
// skipped. The channel holds one pending config; a newer one replaces it.
func Watch(ctx context.Context, path string) (<-chan *FileConfig, error) {
	full, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := w.Add(filepath.Dir(full)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", full, err)
	}

	out := make(chan *FileConfig, 1)
	go func() {
		defer close(out)
		defer w.Close()
		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == filepath.Clean(full) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					timer = time.After(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				graphics.Logger().Warn("config watcher error", "err", err)
			case <-timer:
				timer = nil
				fc, err := LoadConfig(full)
				if err != nil {
					graphics.Logger().Warn("config reload failed", "err", err)
					continue
				}
				graphics.Logger().Info("config reloaded", "file", full)
				select {
				case <-out:
				default:
				}
				out <- fc
			}
		}
	}()
	return out, nil
}
