// mdlc compiles Wavefront OBJ models into engine-ready MDL meshes and CSN
// collision maps.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Faultbox/mdlc/internal/config"
	"github.com/Faultbox/mdlc/internal/converter"
	"github.com/Faultbox/mdlc/internal/logger"
	"github.com/Faultbox/mdlc/pkg/collision"
	"github.com/Faultbox/mdlc/pkg/mdl"
	"github.com/schollz/progressbar/v3"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert":
		cmdConvert(args)
	case "batch":
		cmdBatch(args)
	case "info":
		cmdInfo(args)
	case "init":
		cmdInit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mdlc - Wavefront model compiler

Usage:
  mdlc <command> [options]

Commands:
  convert <file.obj> [options]  Convert a single OBJ file
  batch [options]               Convert every OBJ file in a directory
  info <file.mdl|file.csn>      Show information about a compiled file
  init                          Write a default mdlc.yaml config file

Examples:
  mdlc convert assets/cube.obj -out build/models
  mdlc batch -src assets -out build/models -csn build/collisions
  mdlc info build/models/Cube.mdl`)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	outDir := fs.String("out", ".", "Output directory for .mdl files")
	csnDir := fs.String("csn", "", "Output directory for .csn files (enables collision maps)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mdlc convert <file.obj> [-out dir] [-csn dir]")
		os.Exit(1)
	}

	initLogger(nil, false)
	defer logger.Sync()

	withCollisions := *csnDir != ""
	collisionDir := *csnDir
	if collisionDir == "" {
		collisionDir = *outDir
	}

	written, err := converter.ConvertFile(fs.Arg(0), *outDir, collisionDir, withCollisions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, path := range written {
		fmt.Println(path)
	}
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	srcDir := fs.String("src", "", "Source directory with .obj files")
	outDir := fs.String("out", "", "Output directory for .mdl files")
	csnDir := fs.String("csn", "", "Output directory for .csn files (enables collision maps)")
	workers := fs.Int("workers", 0, "Parallel conversions (0 = auto)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override config
	if *srcDir != "" {
		cfg.Convert.SourceDir = *srcDir
	}
	if *outDir != "" {
		cfg.Convert.OutputDir = *outDir
	}
	if *csnDir != "" {
		cfg.Convert.CollisionDir = *csnDir
		cfg.Convert.Collisions = true
	}
	if *workers > 0 {
		cfg.Convert.Workers = *workers
	}

	initLogger(cfg, *debug)
	defer logger.Sync()

	files, err := converter.FindModelFiles(cfg.Convert.SourceDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No .obj files in %s\n", cfg.Convert.SourceDir)
		os.Exit(1)
	}

	bar := progressbar.Default(int64(len(files)), "compiling")

	result, err := converter.Batch(converter.BatchOptions{
		SourceDir:    cfg.Convert.SourceDir,
		OutputDir:    cfg.Convert.OutputDir,
		CollisionDir: cfg.Convert.CollisionDir,
		Collisions:   cfg.Convert.Collisions,
		Workers:      cfg.Convert.Workers,
		OnFile:       func(string) { bar.Add(1) },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d files, %d outputs written, %d failed\n", result.Files, result.Written, result.Failed)
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mdlc info <file.mdl|file.csn>")
		os.Exit(1)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch filepath.Ext(path) {
	case converter.ModelExt:
		model, err := mdl.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Model:     %s\n", path)
		fmt.Printf("Vertices:  %d\n", len(model.Vertices))
		fmt.Printf("Indices:   %d (%d triangles)\n", len(model.Indices), len(model.Indices)/3)
		fmt.Printf("Size:      %d bytes\n", len(data))
	case converter.CollisionExt:
		cmap, err := collision.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Collision: %s\n", path)
		fmt.Printf("Extents:   x [%g, %g]  y [%g, %g]  z [%g, %g]\n",
			cmap.ExtentX[0], cmap.ExtentX[1],
			cmap.ExtentY[0], cmap.ExtentY[1],
			cmap.ExtentZ[0], cmap.ExtentZ[1])
		fmt.Printf("Traction:  %d surfaces\n", len(cmap.Traction))
		fmt.Printf("Sliding:   %d surfaces\n", len(cmap.Sliding))
		fmt.Printf("Walls:     %d\n", len(cmap.Walls))
	default:
		fmt.Fprintf(os.Stderr, "Unknown file type: %s\n", path)
		os.Exit(1)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("o", "mdlc.yaml", "Where to write the config file")
	fs.Parse(args)

	if err := config.Default().SaveTo(*path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

func initLogger(cfg *config.Config, debug bool) {
	level, logFile := "info", ""
	if cfg != nil {
		level = cfg.Logging.Level
		logFile = cfg.Logging.LogFile
	}
	if debug {
		level = "debug"
	}
	if err := logger.Init(level, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}
