package video

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ivlev/scrollloop/internal/raster"
	"github.com/ivlev/scrollloop/internal/system"
)

// FFmpegEncoder encodes the frame sequence with the system ffmpeg.
type FFmpegEncoder struct {
	Kind Kind
	Bin  string
}

func (e *FFmpegEncoder) Assemble(ctx context.Context, seq raster.Sequence, out string, p Params) error {
	bin := e.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	return system.RunTool(ctx, bin, e.buildFFmpegArgs(seq, out, p)...)
}

func (e *FFmpegEncoder) buildFFmpegArgs(seq raster.Sequence, out string, p Params) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-framerate", strconv.FormatFloat(p.FPS, 'f', -1, 64),
		"-start_number", "0",
		"-i", seq.Pattern(),
		"-frames:v", strconv.Itoa(seq.Count),
	}

	if e.Kind == KindWebM {
		// VP9 keeps the alpha channel; alt-ref frames are incompatible with it.
		quality := p.Quality
		if quality == 0 {
			quality = system.DefaultQuality("libvpx-vp9")
		}
		args = append(args,
			"-c:v", "libvpx-vp9",
			"-pix_fmt", "yuva420p",
			"-b:v", "0",
			"-crf", strconv.Itoa(quality),
			"-auto-alt-ref", "0",
		)
		return append(args, out)
	}

	encoder := p.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	quality := p.Quality
	if quality == 0 {
		quality = system.DefaultQuality(encoder)
	}

	// yuv420p needs even dimensions.
	args = append(args,
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", encoder,
		"-pix_fmt", "yuv420p",
	)

	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox does not take -q:v on every version, use a bitrate.
		args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(quality))
	default: // libx264
		args = append(args, "-crf", strconv.Itoa(quality), "-preset", "medium")
	}

	if e.Kind == KindMP4 || e.Kind == KindMOV {
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, out)
}
