// Package media moves video frames between ffmpeg and the pipeline: a
// Decoder streams RGBA frames from a file into textures, an Encoder pipes
// frames read back from a render target into a file.
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo is what the decoder needs to know about the first video stream.
type VideoInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
}

// FrameSize is the byte size of one RGBA frame.
func (v VideoInfo) FrameSize() int { return v.Width * v.Height * 4 }

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on path.
func Probe(path string) (VideoInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("probing %s: %w", path, err)
	}
	return ParseProbe(out)
}

// ParseProbe extracts VideoInfo from ffprobe's JSON output.
func ParseProbe(data string) (VideoInfo, error) {
	var p probeOutput
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return VideoInfo{}, fmt.Errorf("parsing probe output: %w", err)
	}
	for _, s := range p.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return VideoInfo{}, fmt.Errorf("video stream has invalid size %dx%d", s.Width, s.Height)
		}
		info := VideoInfo{Width: s.Width, Height: s.Height}
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(s.RFrameRate)
		}
		d := s.Duration
		if d == "" {
			d = p.Format.Duration
		}
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			info.Duration = time.Duration(secs * float64(time.Second))
		}
		return info, nil
	}
	return VideoInfo{}, errors.New("no video stream found")
}

// parseRate reads ffprobe's "num/den" rationals. "0/0" and garbage are 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
