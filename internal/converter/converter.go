// Package converter turns Wavefront OBJ files into engine-ready MDL models
// and optional CSN collision maps. Conversion of a single byte slice is a
// pure function; file discovery, output writing, and batch parallelism live
// here so the codec packages stay free of I/O.
package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/mdlc/internal/logger"
	"github.com/Faultbox/mdlc/pkg/collision"
	"github.com/Faultbox/mdlc/pkg/math"
	"github.com/Faultbox/mdlc/pkg/mdl"
	"github.com/Faultbox/mdlc/pkg/wavefront"
	"go.uber.org/zap"
)

// Output file extensions.
const (
	SourceExt    = ".obj"
	ModelExt     = ".mdl"
	CollisionExt = ".csn"
)

// Output is one compiled object: an encoded model and, when requested, its
// encoded collision map.
type Output struct {
	Name      string
	Model     []byte
	Collision []byte
}

// Compile converts the text of one OBJ file into one output per object.
// Objects declared without an "o" statement are named after baseName.
// On error no outputs are returned, so a failed conversion can never leave
// partial artifacts behind.
func Compile(data []byte, baseName string, withCollisions bool) ([]Output, error) {
	doc, err := wavefront.Parse(data)
	if err != nil {
		return nil, err
	}

	var outputs []Output
	for i := range doc.Objects {
		obj := &doc.Objects[i]
		if len(obj.Faces) == 0 {
			continue
		}

		name := obj.Name
		if name == "" {
			name = baseName
		}

		model, err := mdl.Build(doc, obj)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", name, err)
		}
		encoded, err := model.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}

		out := Output{Name: name, Model: encoded}
		if withCollisions {
			cmap := buildCollisionMap(doc, obj, name)
			if out.Collision, err = cmap.Encode(); err != nil {
				return nil, fmt.Errorf("encoding collisions for %s: %w", name, err)
			}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// buildCollisionMap feeds each source polygon, pre-triangulation, into the
// collision classifier. Attribute indices were validated by mdl.Build.
func buildCollisionMap(doc *wavefront.Document, obj *wavefront.Object, name string) *collision.Map {
	cmap := collision.NewMap(name)
	corners := make([]collision.Corner, 0, 4)
	for _, face := range obj.Faces {
		corners = corners[:0]
		for _, c := range face.Corners {
			corner := collision.Corner{Position: doc.Positions[c.Position]}
			if c.Normal != wavefront.NoIndex {
				corner.Normal = doc.Normals[c.Normal]
			} else {
				corner.Normal = math.Vec3{}
			}
			corners = append(corners, corner)
		}
		cmap.AddPolygon(corners)
	}
	cmap.Finish()
	return cmap
}

// FindModelFiles lists the OBJ files directly inside dir, sorted by name.
func FindModelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), SourceExt) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// ConvertFile compiles one OBJ file and writes its outputs. Model files go
// to outDir, collision files to collisionDir (when withCollisions is set).
// Each output is fully built in memory and written with a single WriteFile.
// Returns the paths written.
func ConvertFile(path, outDir, collisionDir string, withCollisions bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputs, err := Compile(data, base, withCollisions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	if withCollisions && collisionDir != outDir {
		if err := os.MkdirAll(collisionDir, 0755); err != nil {
			return nil, err
		}
	}

	var written []string
	for _, out := range outputs {
		modelPath := filepath.Join(outDir, out.Name+ModelExt)
		if err := os.WriteFile(modelPath, out.Model, 0644); err != nil {
			return written, err
		}
		written = append(written, modelPath)

		if out.Collision != nil {
			csnPath := filepath.Join(collisionDir, out.Name+CollisionExt)
			if err := os.WriteFile(csnPath, out.Collision, 0644); err != nil {
				return written, err
			}
			written = append(written, csnPath)
		}
	}
	return written, nil
}

// BatchOptions configures a directory conversion.
type BatchOptions struct {
	SourceDir    string
	OutputDir    string
	CollisionDir string // defaults to OutputDir
	Collisions   bool
	Workers      int               // 0 = one per file, capped at 8
	OnFile       func(path string) // called as each file completes
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Files   int // source files found
	Written int // output files written
	Failed  int // source files that failed
}

// Batch converts every OBJ file in the source directory. Files are
// independent, so they are converted in parallel. A failing file is logged
// and skipped; the rest of the batch continues.
func Batch(opts BatchOptions) (*BatchResult, error) {
	files, err := FindModelFiles(opts.SourceDir)
	if err != nil {
		return nil, err
	}

	collisionDir := opts.CollisionDir
	if collisionDir == "" {
		collisionDir = opts.OutputDir
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = len(files)
		if workers > 8 {
			workers = 8
		}
	}
	if workers < 1 {
		workers = 1
	}

	type fileResult struct {
		path    string
		written []string
		err     error
	}

	jobs := make(chan string)
	results := make(chan fileResult)

	for w := 0; w < workers; w++ {
		go func() {
			for path := range jobs {
				written, err := ConvertFile(path, opts.OutputDir, collisionDir, opts.Collisions)
				results <- fileResult{path: path, written: written, err: err}
			}
		}()
	}

	go func() {
		for _, path := range files {
			jobs <- path
		}
		close(jobs)
	}()

	result := &BatchResult{Files: len(files)}
	for range files {
		r := <-results
		if r.err != nil {
			result.Failed++
			logger.Error("conversion failed", zap.String("file", r.path), zap.Error(r.err))
		} else {
			result.Written += len(r.written)
			logger.Debug("converted", zap.String("file", r.path), zap.Int("outputs", len(r.written)))
		}
		if opts.OnFile != nil {
			opts.OnFile(r.path)
		}
	}

	return result, nil
}
