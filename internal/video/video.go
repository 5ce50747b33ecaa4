// Package video turns an ordered frame sequence into the final artifacts.
package video

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ivlev/scrollloop/internal/raster"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

// Params carries the playback and codec settings of one artifact.
type Params struct {
	FPS     float64
	Encoder string // ffmpeg video encoder for H.264 outputs
	Quality int
	Workers int // frame decode parallelism for in-process encoders
}

// Assembler encodes the frames of seq, in index order, into out.
type Assembler interface {
	Assemble(ctx context.Context, seq raster.Sequence, out string, p Params) error
}

type Kind string

const (
	KindGIF  Kind = "gif"
	KindAPNG Kind = "apng"
	KindMP4  Kind = "mp4"
	KindMOV  Kind = "mov"
	KindMKV  Kind = "mkv"
	KindWebM Kind = "webm"
)

// KindOf infers the artifact kind from the output extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gif":
		return KindGIF, nil
	case ".apng", ".png":
		return KindAPNG, nil
	case ".mp4", ".m4v":
		return KindMP4, nil
	case ".mov":
		return KindMOV, nil
	case ".mkv":
		return KindMKV, nil
	case ".webm":
		return KindWebM, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ForPath returns the assembler responsible for the output at path.
func ForPath(path string) (Assembler, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindGIF:
		return &GIFEncoder{}, nil
	case KindAPNG:
		return &APNGEncoder{}, nil
	default:
		return &FFmpegEncoder{Kind: kind}, nil
	}
}
