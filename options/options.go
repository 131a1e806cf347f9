package options

import (
	"flag"
)

// Options holds the command-line settings. Fields are pointers bound
// directly to flags.
type Options struct {
	Help       *bool
	Verbose    *bool
	ConfigFile *string

	Width    *int
	Height   *int
	Input    *string
	Overlay  *string
	Output   *string
	Duration *float64
	FPS      *int
	Codec    *string
	Bitrate  *string
	// FFMPEGPath overrides the ffmpeg binary on PATH.
	FFMPEGPath *string
	Translate  *bool
	Headless   *bool

	MemoryLimitMB     *int
	EvictionThreshold *float64
	MaxBatchSize      *int
	Tiles             *int
	ProfileEvery      *int

	Effects Effects
}

// Effects are the post-processing parameters. They can change while
// running when the config file is watched.
type Effects struct {
	BlurIterations    *int
	BlurRadius        *float64
	Brightness        *float64
	Contrast          *float64
	VignetteIntensity *float64
	VignetteSoftness  *float64
}

// Register binds every option to fs.
func Register(fs *flag.FlagSet) *Options {
	o := &Options{
		Help:       fs.Bool("help", false, "Show help message"),
		Verbose:    fs.Bool("v", false, "Enable debug logging"),
		ConfigFile: fs.String("config", "", "Optional TOML config file; watched for effect changes"),

		Width:      fs.Int("width", 1280, "Width of the output"),
		Height:     fs.Int("height", 720, "Height of the output"),
		Input:      fs.String("input", "", "Video file to composite (empty draws a test pattern)"),
		Overlay:    fs.String("overlay", "", "Image drawn over the top-left corner"),
		Output:     fs.String("output", "", "Encode to this file instead of opening a window"),
		Duration:   fs.Float64("duration", 10.0, "Duration to record in seconds"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		Codec:      fs.String("codec", "h264", "Encoder codec: h264 or hevc"),
		Bitrate:    fs.String("bitrate", "25M", "Encoder bitrate"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Translate:  fs.Bool("translate", false, "Compile shaders through the WebGL2 translator"),
		Headless:   fs.Bool("headless", false, "Export through an EGL pbuffer instead of a hidden window (linux)"),

		MemoryLimitMB:     fs.Int("memory-limit", 512, "GPU memory budget in MiB (0 disables eviction)"),
		EvictionThreshold: fs.Float64("eviction-threshold", 0.8, "Fraction of the budget that triggers eviction"),
		MaxBatchSize:      fs.Int("max-batch", 1000, "Maximum quads per batched draw call"),
		Tiles:             fs.Int("tiles", 16, "Thumbnail tiles drawn along the bottom edge"),
		ProfileEvery:      fs.Int("profile-every", 300, "Log a profiler report every N frames (0 disables)"),

		Effects: Effects{
			BlurIterations:    fs.Int("blur-iterations", 1, "Gaussian blur iterations (0 disables blur)"),
			BlurRadius:        fs.Float64("blur-radius", 1.0, "Gaussian blur radius in texels"),
			Brightness:        fs.Float64("brightness", 0, "Brightness offset"),
			Contrast:          fs.Float64("contrast", 0, "Contrast adjustment"),
			VignetteIntensity: fs.Float64("vignette", 0.3, "Vignette intensity"),
			VignetteSoftness:  fs.Float64("vignette-softness", 0.45, "Vignette softness"),
		},
	}
	return o
}

// Explicit returns the names of the flags set on the command line.
func Explicit(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
