package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/scrollloop/internal/raster"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"out.gif":   KindGIF,
		"OUT.GIF":   KindGIF,
		"a.apng":    KindAPNG,
		"a.png":     KindAPNG,
		"a.mp4":     KindMP4,
		"a.mov":     KindMOV,
		"a.mkv":     KindMKV,
		"a.webm":    KindWebM,
		"dir/a.m4v": KindMP4,
	}
	for path, want := range tests {
		got, err := KindOf(path)
		if err != nil || got != want {
			t.Errorf("KindOf(%s): expected %s, got %s (%v)", path, want, got, err)
		}
	}
	if _, err := KindOf("a.avi"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestForPath(t *testing.T) {
	if a, _ := ForPath("x.gif"); a == nil {
		t.Fatal("Expected GIF assembler")
	} else if _, ok := a.(*GIFEncoder); !ok {
		t.Errorf("Expected *GIFEncoder, got %T", a)
	}
	if a, _ := ForPath("x.webm"); a.(*FFmpegEncoder).Kind != KindWebM {
		t.Error("Expected webm ffmpeg encoder")
	}
	if _, err := ForPath("x.txt"); err == nil {
		t.Error("Expected error for .txt")
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	seq := raster.NewSequence("/tmp/frames", 110)

	tests := []struct {
		name    string
		kind    Kind
		params  Params
		expect  []string
		without []string
	}{
		{
			name:   "x264",
			kind:   KindMP4,
			params: Params{FPS: 30},
			expect: []string{"-framerate 30", "-i /tmp/frames/frame_%05d.png", "-frames:v 110", "-c:v libx264", "-crf 23", "-pix_fmt yuv420p", "+faststart", "pad=ceil(iw/2)*2:ceil(ih/2)*2"},
		},
		{
			name:   "videotoolbox",
			kind:   KindMOV,
			params: Params{FPS: 24, Encoder: "h264_videotoolbox"},
			expect: []string{"-c:v h264_videotoolbox", "-b:v 7500k"},
		},
		{
			name:    "nvenc mkv",
			kind:    KindMKV,
			params:  Params{FPS: 12.5, Encoder: "h264_nvenc", Quality: 30},
			expect:  []string{"-framerate 12.5", "-cq 30"},
			without: []string{"+faststart"},
		},
		{
			name:    "webm",
			kind:    KindWebM,
			params:  Params{FPS: 30, Encoder: "h264_nvenc"},
			expect:  []string{"-c:v libvpx-vp9", "-pix_fmt yuva420p", "-crf 32", "-auto-alt-ref 0"},
			without: []string{"h264_nvenc", "yuv420p "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &FFmpegEncoder{Kind: tt.kind}
			args := e.buildFFmpegArgs(seq, "out."+string(tt.kind), tt.params)
			line := strings.Join(args, " ")
			for _, s := range tt.expect {
				if !strings.Contains(line, s) {
					t.Errorf("Expected %q in %q", s, line)
				}
			}
			for _, s := range tt.without {
				if strings.Contains(line, s) {
					t.Errorf("Did not expect %q in %q", s, line)
				}
			}
			if args[len(args)-1] != "out."+string(tt.kind) {
				t.Errorf("Output must be last, got %q", args[len(args)-1])
			}
		})
	}
}

func TestGIFDelay(t *testing.T) {
	tests := []struct {
		fps  float64
		want int
	}{
		{30, 3},
		{25, 4},
		{10, 10},
		{100, 2},
		{240, 2},
		{0, 10},
	}
	for _, tt := range tests {
		if got := GIFDelay(tt.fps); got != tt.want {
			t.Errorf("GIFDelay(%v): expected %d, got %d", tt.fps, tt.want, got)
		}
	}
}

func TestAPNGDelay(t *testing.T) {
	if n, d := apngDelay(30); n != 1 || d != 30 {
		t.Errorf("Expected 1/30, got %d/%d", n, d)
	}
	if n, d := apngDelay(12.5); n != 80 || d != 1000 {
		t.Errorf("Expected 80/1000, got %d/%d", n, d)
	}
	if n, d := apngDelay(0); n != 1 || d != 10 {
		t.Errorf("Expected 1/10, got %d/%d", n, d)
	}
}

func writeFrames(t *testing.T, count int) raster.Sequence {
	t.Helper()
	seq := raster.NewSequence(t.TempDir(), count)
	for i := 0; i < count; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				if (x+i)%8 < 4 {
					img.SetNRGBA(x, y, color.NRGBA{R: 200, G: uint8(20 * y), B: 40, A: 255})
				}
			}
		}
		if err := raster.WritePNG(seq.Path(i), img); err != nil {
			t.Fatal(err)
		}
	}
	return seq
}

func TestGIFEncoder(t *testing.T) {
	seq := writeFrames(t, 8)
	out := filepath.Join(t.TempDir(), "loop.gif")

	err := (&GIFEncoder{}).Assemble(context.Background(), seq, out, Params{FPS: 25, Workers: 4})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(anim.Image) != 8 {
		t.Errorf("Expected 8 frames, got %d", len(anim.Image))
	}
	if anim.LoopCount != 0 {
		t.Errorf("Expected infinite loop, got %d", anim.LoopCount)
	}
	for i, d := range anim.Delay {
		if d != 4 {
			t.Errorf("Frame %d: expected delay 4, got %d", i, d)
		}
	}
	// Frame 0 is transparent on its right half.
	if _, _, _, a := anim.Image[0].At(6, 2).RGBA(); a != 0 {
		t.Errorf("Expected transparent pixel, alpha %d", a)
	}
}

func TestAPNGEncoder(t *testing.T) {
	seq := writeFrames(t, 5)
	out := filepath.Join(t.TempDir(), "loop.apng")

	if err := (&APNGEncoder{}).Assemble(context.Background(), seq, out, Params{FPS: 30, Workers: 1}); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("Expected PNG signature")
	}
	if !bytes.Contains(data, []byte("acTL")) || !bytes.Contains(data, []byte("fcTL")) {
		t.Error("Expected animation chunks")
	}
}

func TestEncoderReportsMissingFrames(t *testing.T) {
	seq := writeFrames(t, 4)
	os.Remove(seq.Path(2))
	out := filepath.Join(t.TempDir(), "loop.gif")

	err := (&GIFEncoder{}).Assemble(context.Background(), seq, out, Params{FPS: 10, Workers: 2})
	if err == nil || !strings.Contains(err.Error(), "frame_00002.png") {
		t.Fatalf("Expected error naming the missing frame, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("No artifact should be written when frames are missing")
	}
}
