package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scrollloop/internal/config"
	"github.com/ivlev/scrollloop/internal/geometry"
	"github.com/ivlev/scrollloop/internal/pool"
	"github.com/ivlev/scrollloop/internal/raster"
	"github.com/ivlev/scrollloop/internal/source"
	"github.com/ivlev/scrollloop/internal/system"
	"github.com/ivlev/scrollloop/internal/video"
)

// LoopProject runs one invocation: plan, tile, extract, flatten, assemble.
type LoopProject struct {
	Config  *config.Config
	Source  source.Source
	Backend raster.Backend
	Log     *log.Logger

	// Encoders picks the assembler for an output path.
	Encoders func(path string) (video.Assembler, error)

	tempDir string
}

func NewLoopProject(cfg *config.Config, src source.Source, backend raster.Backend, logger *log.Logger) *LoopProject {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LoopProject{
		Config:   cfg,
		Source:   src,
		Backend:  backend,
		Log:      logger,
		Encoders: video.ForPath,
	}
}

// Report describes a finished (or failed) run.
type Report struct {
	Plan    geometry.Plan
	Workers int
	FPS     float64
	Outputs []string

	Tiling   time.Duration
	Frames   time.Duration
	Flatten  time.Duration
	Assembly time.Duration
	Total    time.Duration
}

type output struct {
	path string
	enc  video.Assembler
}

func (p *LoopProject) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	report := &Report{}
	defer func() { report.Total = time.Since(startTime) }()

	dir, err := geometry.ParseDirection(p.Config.Direction)
	if err != nil {
		return report, err
	}
	bg, hasBG, err := config.ParseColor(p.Config.Background)
	if err != nil {
		return report, err
	}
	outputs, err := p.resolveOutputs()
	if err != nil {
		return report, err
	}

	img, err := p.Source.Image()
	if err != nil {
		return report, fmt.Errorf("load source: %w", err)
	}
	img = source.Fit(img, p.Config.MaxWidth, p.Config.MaxHeight)
	b := img.Bounds()

	plan, err := geometry.NewPlan(dir, b.Dx(), b.Dy(), p.Config.Gap, p.Config.FrameCap)
	if err != nil {
		return report, err
	}
	report.Plan = plan
	report.Workers = system.ResolveWorkers(p.Config.Workers)
	report.FPS = p.Config.FrameRate(plan.Frames)

	p.Log.Info("plan",
		"direction", plan.Direction,
		"size", fmt.Sprintf("%dx%d", plan.Width, plan.Height),
		"gap", plan.Layout.Gap,
		"layout", fmt.Sprintf("%dx%d", plan.Layout.Cols, plan.Layout.Rows),
		"frames", plan.Frames,
		"fps", report.FPS,
		"workers", report.Workers,
	)
	if plan.Capped {
		p.Log.Warn("diagonal period exceeds frame cap, loop will show a seam",
			"lcm", geometry.LCM(plan.StepW, plan.StepH), "cap", p.Config.FrameCap, "frames", plan.Frames)
	}

	p.tempDir, err = os.MkdirTemp("", "scrollloop_")
	if err != nil {
		return report, err
	}
	defer os.RemoveAll(p.tempDir)

	stageStart := time.Now()
	canvasPath, err := p.composeCanvas(img, plan)
	report.Tiling = time.Since(stageStart)
	if err != nil {
		return report, err
	}

	framesDir := filepath.Join(p.tempDir, "frames")
	if err := os.Mkdir(framesDir, 0755); err != nil {
		return report, err
	}
	seq := raster.NewSequence(framesDir, plan.Frames)

	stageStart = time.Now()
	err = p.extractFrames(plan, canvasPath, seq, report.Workers)
	report.Frames = time.Since(stageStart)
	if err != nil {
		return report, err
	}

	stageStart = time.Now()
	err = p.flattenFrames(seq, bg, hasBG, report.Workers)
	report.Flatten = time.Since(stageStart)
	if err != nil {
		return report, err
	}

	if p.Config.FramesDir != "" {
		if err := p.exportFrames(seq, report.Workers); err != nil {
			return report, err
		}
	}

	stageStart = time.Now()
	report.Outputs, err = p.assemble(ctx, seq, outputs, video.Params{
		FPS:     report.FPS,
		Encoder: p.Config.VideoEncoder,
		Quality: p.Config.Quality,
		Workers: report.Workers,
	})
	report.Assembly = time.Since(stageStart)
	return report, err
}

func (p *LoopProject) resolveOutputs() ([]output, error) {
	if len(p.Config.Outputs) == 0 {
		return nil, fmt.Errorf("no output requested")
	}
	outputs := make([]output, len(p.Config.Outputs))
	for i, path := range p.Config.Outputs {
		enc, err := p.Encoders(path)
		if err != nil {
			return nil, err
		}
		outputs[i] = output{path: path, enc: enc}
	}
	return outputs, nil
}

func (p *LoopProject) composeCanvas(img image.Image, plan geometry.Plan) (string, error) {
	srcPath := filepath.Join(p.tempDir, "source.png")
	canvasPath := filepath.Join(p.tempDir, "canvas.png")

	if err := raster.WritePNG(srcPath, img); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTilingFailed, err)
	}
	if err := p.Backend.Compose(srcPath, plan.Layout, canvasPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTilingFailed, err)
	}
	p.Log.Debug("canvas ready", "backend", p.Backend.Name(), "size", plan.CanvasSize())
	return canvasPath, nil
}

func (p *LoopProject) extractFrames(plan geometry.Plan, canvasPath string, seq raster.Sequence, workers int) error {
	out := pool.Run(seq.Count, workers, func(i int) error {
		return p.Backend.Extract(canvasPath, plan.Window(i), seq.Path(i))
	}, pool.WithProgress(p.progress("frames"), pool.DefaultUpdates))
	return checkStage(ErrFrameGenerationFailed, out, seq)
}

// flattenFrames is a no-op unless a background colour is set.
func (p *LoopProject) flattenFrames(seq raster.Sequence, bg color.Color, enabled bool, workers int) error {
	if !enabled {
		return nil
	}
	p.Log.Info("flattening", "background", raster.Hex(bg))
	out := pool.Run(seq.Count, workers, func(i int) error {
		return p.Backend.Flatten(seq.Path(i), bg)
	}, pool.WithProgress(p.progress("flatten"), pool.DefaultUpdates))
	return checkStage(ErrFlattenFailed, out, seq)
}

func (p *LoopProject) exportFrames(seq raster.Sequence, workers int) error {
	dst := p.Config.FramesDir
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	out := pool.Run(seq.Count, workers, func(i int) error {
		return copyFile(seq.Path(i), filepath.Join(dst, seq.Name(i)))
	})
	if first, failed := out.First(); failed {
		return fmt.Errorf("export frames to %s: %d failed, first: %v", dst, out.Failed(), first)
	}
	p.Log.Info("frames kept", "dir", dst, "count", seq.Count)
	return nil
}

// assemble attempts every requested output, even after one of them fails.
func (p *LoopProject) assemble(ctx context.Context, seq raster.Sequence, outputs []output, params video.Params) ([]string, error) {
	var g errgroup.Group
	errs := make([]error, len(outputs))

	for i, o := range outputs {
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
				errs[i] = &OutputError{Path: o.path, Err: err}
				return errs[i]
			}
			if err := o.enc.Assemble(ctx, seq, o.path, params); err != nil {
				errs[i] = &OutputError{Path: o.path, Err: err}
				return errs[i]
			}
			p.Log.Info("wrote", "output", o.path)
			return nil
		})
	}

	var written []string
	if g.Wait() == nil {
		for _, o := range outputs {
			written = append(written, o.path)
		}
		return written, nil
	}
	for i, o := range outputs {
		if errs[i] == nil {
			written = append(written, o.path)
		}
	}
	return written, errors.Join(errs...)
}

func (p *LoopProject) progress(stage string) pool.ProgressFunc {
	return func(done, total int) {
		p.Log.Info(stage, "done", done, "total", total)
	}
}

// checkStage judges a drained stage: any reported failure, or any frame file
// missing on disk, fails it.
func checkStage(kind error, out pool.Outcome, seq raster.Sequence) error {
	present, err := raster.ListFrames(seq.Dir)
	if err != nil {
		return fmt.Errorf("%w: %v", kind, err)
	}
	onDisk := make(map[string]bool, len(present))
	for _, path := range present {
		onDisk[path] = true
	}
	missing, firstMissing := 0, -1
	for i, path := range seq.Paths() {
		if !onDisk[path] {
			if firstMissing < 0 {
				firstMissing = i
			}
			missing++
		}
	}
	if out.OK() && missing == 0 {
		return nil
	}

	se := &StageError{Kind: kind, Total: seq.Count, Failed: out.Failed(), Missing: missing}
	if first, ok := out.First(); ok {
		se.First = &first
	} else if firstMissing >= 0 {
		se.First = &pool.Failure{Index: firstMissing, Err: errFrameMissing}
	}
	if se.First != nil {
		se.Name = seq.Name(se.First.Index)
	}
	return se
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
