package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ivlev/scrollloop/internal/config"
	"github.com/ivlev/scrollloop/internal/engine"
	"github.com/ivlev/scrollloop/internal/geometry"
	"github.com/ivlev/scrollloop/internal/raster"
	"github.com/ivlev/scrollloop/internal/source"
	"github.com/ivlev/scrollloop/internal/system"
	"github.com/ivlev/scrollloop/internal/video"
)

var version = "dev"

// listFlag collects a comma separated list, e.g. -output a.gif,a.mp4.
type listFlag struct{ dst *[]string }

func (l listFlag) String() string {
	if l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l listFlag) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l.dst = out
	return nil
}

func main() {
	cfg := config.Default()
	cfg.BuildVersion = version

	configPath := flag.String("config", "", "YAML file with settings; flags given on the command line win")
	writeConfig := flag.String("write-config", "", "Write the effective settings to this YAML file and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.StringVar(&cfg.InputPath, "input", "", "Image or PDF to loop (default: newest file in input/)")
	flag.IntVar(&cfg.Page, "page", 0, "PDF page, zero-based")
	flag.IntVar(&cfg.DPI, "dpi", cfg.DPI, "PDF render DPI")
	flag.StringVar(&cfg.QRText, "qr", "", "Loop a QR code of this text instead of a file")
	flag.IntVar(&cfg.MaxWidth, "max-width", 0, "Scale the source down to this width (0: keep)")
	flag.IntVar(&cfg.MaxHeight, "max-height", 0, "Scale the source down to this height (0: keep)")
	flag.Var(listFlag{&cfg.Outputs}, "output", "Up to two outputs: .gif .apng .png .mp4 .m4v .mov .mkv .webm (default: output/<name>_<direction>.gif)")
	flag.StringVar(&cfg.Direction, "direction", cfg.Direction, "Scroll direction, e.g. left-shift, ur, down-left-shift")
	flag.IntVar(&cfg.Gap, "gap", 0, "Transparent pixels between copies")
	flag.IntVar(&cfg.FrameCap, "frame-cap", cfg.FrameCap, "Upper bound on diagonal loop length (0: none)")
	flag.Float64Var(&cfg.FPS, "fps", cfg.FPS, "Playback rate")
	flag.Float64Var(&cfg.Duration, "duration", 0, "Loop length in seconds, overrides -fps")
	flag.IntVar(&cfg.Workers, "workers", 0, "Frame workers: 0 auto, -1 all cores, 1 sequential")
	flag.StringVar(&cfg.Background, "background", "", "Flatten frames onto this colour (name, #rgb or #rrggbb)")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "Raster backend: native or magick")
	flag.StringVar(&cfg.MagickPath, "magick", "", "ImageMagick binary for -backend magick")
	flag.StringVar(&cfg.VideoEncoder, "encoder", "", "ffmpeg H.264 encoder (default: detected)")
	flag.IntVar(&cfg.Quality, "quality", 0, "Video quality (0: auto; x264/VP9 CRF, VideoToolbox bitrate = Q*100 kbit/s)")
	flag.StringVar(&cfg.FramesDir, "frames-dir", "", "Keep the generated frames in this directory")
	flag.BoolVar(&cfg.ShowStats, "stats", false, "Print a timing report")
	flag.BoolVar(&cfg.Verbose, "v", false, "Debug logging")

	flag.Parse()

	if *showVersion {
		fmt.Println("scrollloop", version)
		return
	}

	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal("cannot load config", "err", err)
		}
		fileCfg.BuildVersion = version
		*cfg = *fileCfg
		// Flags were bound to cfg; parse again so they override the file.
		flag.CommandLine.Parse(os.Args[1:])
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "scrollloop",
	})
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	system.InitResourceLimits(logger)

	if cfg.InputPath == "" && cfg.QRText == "" {
		os.MkdirAll("input", 0755)
		latest, err := system.FindLatestSource("input")
		if err != nil {
			logger.Fatal("no input given and none found in input/", "err", err)
		}
		cfg.InputPath = latest
		logger.Info("picked input", "path", latest)
	}

	src, err := source.Open(source.Options{
		Path:   cfg.InputPath,
		Page:   cfg.Page,
		DPI:    cfg.DPI,
		QRText: cfg.QRText,
	})
	if err != nil {
		logger.Fatal("cannot open source", "err", err)
	}
	defer src.Close()

	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []string{defaultOutput(src.Name(), cfg.Direction)}
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid settings", "err", err)
	}

	if cfg.VideoEncoder == "" && needsH264(cfg.Outputs) {
		cfg.VideoEncoder = system.GetBestH264Encoder()
		if cfg.VideoEncoder != "libx264" {
			logger.Info("hardware encoder found", "encoder", cfg.VideoEncoder)
		}
	}

	if *writeConfig != "" {
		if err := config.Write(cfg, *writeConfig); err != nil {
			logger.Fatal("cannot write config", "err", err)
		}
		logger.Info("config written", "path", *writeConfig)
		return
	}

	backend, err := raster.New(cfg.Backend, cfg.MagickPath)
	if err != nil {
		logger.Fatal("bad backend", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project := engine.NewLoopProject(cfg, src, backend, logger)
	report, err := project.Run(ctx)
	if cfg.ShowStats && report != nil {
		printStats(logger, report)
	}
	if err != nil {
		stop()
		src.Close()
		logger.Fatal("run failed", "err", err)
	}

	logger.Info("done", "outputs", strings.Join(report.Outputs, ", "))
}

// defaultOutput names the artifact after the source and the direction.
func defaultOutput(name, direction string) string {
	dir := strings.ToLower(strings.TrimSpace(direction))
	if d, err := geometry.ParseDirection(direction); err == nil {
		dir = string(d)
	}
	name = strings.ReplaceAll(name, " ", "_")
	return filepath.Join("output", fmt.Sprintf("%s_%s.gif", name, dir))
}

func needsH264(outputs []string) bool {
	for _, o := range outputs {
		switch kind, _ := video.KindOf(o); kind {
		case video.KindMP4, video.KindMOV, video.KindMKV:
			return true
		}
	}
	return false
}

func printStats(logger *log.Logger, r *engine.Report) {
	logger.Info("stats",
		"frames", r.Plan.Frames,
		"workers", r.Workers,
		"fps", fmt.Sprintf("%.2f", r.FPS),
		"tiling", r.Tiling.Round(time.Millisecond),
		"frames_time", r.Frames.Round(time.Millisecond),
		"flatten", r.Flatten.Round(time.Millisecond),
		"assembly", r.Assembly.Round(time.Millisecond),
		"total", r.Total.Round(time.Millisecond),
	)
	if r.Frames > 0 && r.Plan.Frames > 0 {
		logger.Info("throughput", "frames_per_sec", fmt.Sprintf("%.1f", float64(r.Plan.Frames)/r.Frames.Seconds()))
	}
}
