package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/parallel-crop/internal/config"
	"github.com/menta2k/parallel-crop/internal/logger"
	"github.com/menta2k/parallel-crop/internal/utils"
	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/engine"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// tensorHeader describes a raw tensor file written next to it as JSON
type tensorHeader struct {
	Items    int      `json:"items"`
	Window   int      `json:"window"`
	Channels int      `json:"channels"`
	Backend  string   `json:"backend"`
	Paths    []string `json:"paths"`
}

func main() {
	var cfgPath, manifest, dir, raw, outDir, ext, saveCfg string
	var backend string
	var workers, window, channels, quality int
	var scale, x, y, maxCrop float64
	var tiles, lossless bool

	flag.StringVar(&cfgPath, "config", "", "JSON config file (default: "+config.GetConfigPath()+" if present)")
	flag.StringVar(&saveCfg, "save-config", "", "write the effective configuration to this path and exit")

	flag.StringVar(&manifest, "manifest", "", `JSON array of {"path","scale","x","y"} requests`)
	flag.StringVar(&dir, "dir", "", "crop every image under this directory with -scale/-x/-y")
	flag.Float64Var(&scale, "scale", 0.25, "crop scale for -dir mode (0..1)")
	flag.Float64Var(&x, "x", 0.5, "normalized left anchor for -dir mode (0..1)")
	flag.Float64Var(&y, "y", 0.5, "normalized top anchor for -dir mode (0..1)")

	flag.IntVar(&workers, "workers", 0, "worker goroutines, 0 = one per CPU")
	flag.StringVar(&backend, "backend", "imaging", "codec backend: imaging|vips")
	flag.IntVar(&window, "window", 32, "output window size in pixels")
	flag.IntVar(&channels, "channels", 3, "output channels: 1 (gray) or 3 (rgb)")
	flag.Float64Var(&maxCrop, "max-crop", 0.25, "maximum crop fraction of each dimension (0..1)")

	flag.StringVar(&raw, "raw", "", "write the packed uint8 tensor to this file (plus <file>.json)")
	flag.BoolVar(&tiles, "tiles", false, "write every block as an image into -out")
	flag.StringVar(&outDir, "out", "", "tile output directory")
	flag.StringVar(&ext, "ext", "", "tile format: png|jpg|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP tile quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP tile lossless mode")

	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Engine.Workers = workers
		case "backend":
			cfg.Engine.Backend = backend
		case "window":
			cfg.Crop.WindowSize = window
		case "channels":
			cfg.Crop.Channels = channels
		case "max-crop":
			cfg.Crop.MaxCropFraction = float32(maxCrop)
		case "out":
			cfg.Output.OutputDir = outDir
		case "ext":
			cfg.Output.TileFormat = ext
		case "quality":
			cfg.Output.Quality = quality
		case "lossless":
			cfg.Output.Lossless = lossless
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	if saveCfg != "" {
		if err := cfg.SaveToFile(saveCfg); err != nil {
			log.WithError(err).Fatal("save config")
		}
		log.WithField("path", saveCfg).Info("wrote configuration")
		return
	}

	paths, reqs, err := collect(manifest, dir, types.CropRequest{Scale: float32(scale), X: float32(x), Y: float32(y)})
	if err != nil {
		log.WithError(err).Fatal("collect requests")
	}
	if len(paths) == 0 {
		log.Fatalf("usage: %s -manifest batch.json | -dir images/ [-raw out.bin] [-tiles -out dir] [-window 32] [-channels 3]", filepath.Base(os.Args[0]))
	}

	ctx, err := engine.New(engine.Options{Workers: cfg.Engine.Workers, Backend: cfg.Backend(), Logger: log})
	if err != nil {
		log.WithError(err).Fatal("create execution context")
	}
	defer ctx.Close()

	crop := cfg.CropSettings()
	tensor, err := ctx.RunBlocks(reqs, paths, crop)
	if err != nil {
		reportFailure(log, err, paths)
		ctx.Close()
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"items":   len(paths),
		"bytes":   len(tensor),
		"workers": ctx.Workers(),
	}).Info("batch complete")

	if raw != "" {
		if err := writeTensor(raw, tensor, crop, ctx.Backend(), paths); err != nil {
			log.WithError(err).Fatal("write tensor")
		}
		log.WithField("path", raw).Info("wrote tensor")
	}

	if tiles {
		if err := writeTiles(cfg.Output, tensor, crop, paths); err != nil {
			log.WithError(err).Fatal("write tiles")
		}
		log.WithField("dir", cfg.Output.OutputDir).Info("wrote tiles")
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collect(manifest, dir string, req types.CropRequest) ([]string, []types.CropRequest, error) {
	switch {
	case manifest != "" && dir != "":
		return nil, nil, errors.New("use either -manifest or -dir, not both")
	case manifest != "":
		entries, err := utils.LoadManifest(manifest)
		if err != nil {
			return nil, nil, err
		}
		paths, reqs := utils.SplitManifest(entries)
		return paths, reqs, nil
	case dir != "":
		paths, err := utils.ListImageFiles(dir)
		if err != nil {
			return nil, nil, err
		}
		reqs := make([]types.CropRequest, len(paths))
		for i := range reqs {
			reqs[i] = req
		}
		return paths, reqs, nil
	}
	return nil, nil, nil
}

func reportFailure(log *logrus.Logger, err error, paths []string) {
	var be *types.BatchError
	if !errors.As(err, &be) {
		log.WithError(err).Error("batch failed")
		return
	}
	for _, item := range be.Items {
		log.WithFields(logrus.Fields{
			"index": item.Index,
			"path":  paths[item.Index],
			"kind":  item.Kind,
		}).WithError(item).Error("item failed")
	}
}

func writeTensor(path string, tensor []byte, crop types.CropConfig, backend string, paths []string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, tensor, 0o644); err != nil {
		return err
	}
	hdr := tensorHeader{
		Items:    len(paths),
		Window:   crop.WindowSize,
		Channels: int(crop.Channels),
		Backend:  backend,
		Paths:    paths,
	}
	js, err := json.MarshalIndent(hdr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path+".json", js, 0o644)
}

func writeTiles(out config.OutputConfig, tensor []byte, crop types.CropConfig, paths []string) error {
	if err := utils.EnsureDir(out.OutputDir); err != nil {
		return err
	}
	bs := crop.BlockSize()
	format := strings.ToLower(out.TileFormat)
	for i, p := range paths {
		img, err := codec.BlockImage(tensor[i*bs:(i+1)*bs], crop.WindowSize, crop.Channels)
		if err != nil {
			return err
		}
		name := utils.GenerateOutputFilename(p, out.OutputDir, out.Prefix, fmt.Sprintf("%s_%03d", out.Suffix, i), format)
		if err := codec.SaveImage(img, name, format, out.Quality, out.Lossless); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
