package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/config"
	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/internal/logger"
	"github.com/Faultbox/uvatlas/internal/meshgen"
	"github.com/Faultbox/uvatlas/internal/preview"
	"github.com/Faultbox/uvatlas/pkg/atlas"
	"github.com/Faultbox/uvatlas/pkg/formats"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// input is a named source mesh.
type input struct {
	name string
	mesh *formats.Mesh
}

func loadInputs(paths []string) ([]*input, error) {
	inputs := make([]*input, 0, len(paths))
	for _, path := range paths {
		mesh, err := formats.ParseOBJFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		inputs = append(inputs, &input{name: name, mesh: mesh})
	}
	return inputs, nil
}

func demoInput(name string, detail int) (*input, error) {
	m, err := meshgen.ByName(name, detail)
	if err != nil {
		return nil, err
	}
	return &input{
		name: name,
		mesh: &formats.Mesh{
			Name:      name,
			Positions: m.Positions,
			Normals:   m.Normals,
			Indices:   m.Triangles,
		},
	}, nil
}

// uniqueNames appends the input index to names shared by several inputs.
func uniqueNames(inputs []*input) {
	count := make(map[string]int, len(inputs))
	for _, in := range inputs {
		count[in.name]++
	}
	taken := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		name := in.name
		if count[name] > 1 {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		for taken[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		taken[name] = true
		in.name = name
	}
}

// run generates one atlas for all inputs and writes the configured outputs.
func run(cfg *config.Config, inputs []*input) error {
	uniqueNames(inputs)
	a := atlas.New(atlas.WithLogger(logger.Log), atlas.WithWorkers(cfg.Workers))

	for _, in := range inputs {
		var normals, uvs *atlas.Float32Array
		if in.mesh.Normals != nil {
			n := atlas.Rows3(in.mesh.Normals)
			normals = &n
		}
		if cfg.Chart.UseInputMeshUVs && in.mesh.UVs != nil {
			t := atlas.Rows2(in.mesh.UVs)
			uvs = &t
		}
		id, err := a.AddMesh(atlas.Rows3(in.mesh.Positions), atlas.Triangles(in.mesh.Indices), normals, uvs)
		if err != nil {
			return fmt.Errorf("adding %s: %w", in.name, err)
		}
		logger.Debug("mesh added", zap.String("name", in.name), zap.Int("id", id))
	}

	chartOpts, packOpts := cfg.Options()
	if err := a.Generate(chartOpts, packOpts); err != nil {
		return fmt.Errorf("generating atlas: %w", err)
	}

	results := make([]*atlas.MeshResult, len(inputs))
	for i := range inputs {
		res, err := a.GetMesh(i)
		if err != nil {
			return err
		}
		results[i] = res
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for i, in := range inputs {
		out := outputMesh(in.name, in.mesh, results[i])
		if cfg.HasFormat(config.FormatOBJ) {
			path := filepath.Join(cfg.Output.Dir, in.name+"_atlas.obj")
			if err := formats.WriteOBJFile(path, out); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			logger.Info("wrote mesh", zap.String("path", path), zap.Int("vertices", out.VertexCount()))
		}
		if cfg.HasFormat(config.FormatGLB) && out.TriangleCount() > 0 {
			path := filepath.Join(cfg.Output.Dir, in.name+"_atlas.glb")
			if err := formats.WriteGLBFile(path, out); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			logger.Info("wrote mesh", zap.String("path", path), zap.Int("vertices", out.VertexCount()))
		}
	}

	if cfg.Output.Preview && a.AtlasCount() > 0 {
		prefix := "atlas"
		if len(inputs) == 1 {
			prefix = inputs[0].name
		}
		r := preview.NewRenderer(cfg.Output.Dir, prefix, cfg.Output.PreviewScale)
		files, err := r.WriteAll(a.AtlasCount(), a.Width(), a.Height(), results)
		if err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		logger.Info("wrote previews", zap.Strings("files", files))
	}

	logger.Info("atlas ready",
		zap.Int("charts", a.ChartCount()),
		zap.Int("atlases", a.AtlasCount()),
		zap.Int("width", a.Width()),
		zap.Int("height", a.Height()),
		zap.Float32("texels_per_unit", a.TexelsPerUnit()))
	return nil
}

// outputMesh rebuilds the source attributes for every output vertex of res.
func outputMesh(name string, src *formats.Mesh, res *atlas.MeshResult) *formats.Mesh {
	n := res.VertexCount()
	out := &formats.Mesh{
		Name:      name,
		Positions: make([][3]float32, n),
		UVs:       make([][2]float32, n),
		Indices:   make([][3]uint32, len(res.Indices)/3),
	}
	if src.Normals != nil {
		out.Normals = make([][3]float32, n)
	}
	for i, v := range res.VertexMapping {
		out.Positions[i] = src.Positions[v]
		if out.Normals != nil {
			out.Normals[i] = src.Normals[v]
		}
		out.UVs[i] = [2]float32{res.UVs[2*i], res.UVs[2*i+1]}
	}
	for t := range out.Indices {
		out.Indices[t] = [3]uint32{res.Indices[3*t], res.Indices[3*t+1], res.Indices[3*t+2]}
	}
	return out
}

func printInfo(w io.Writer, in *input) {
	positions := make([]math.Vec3, len(in.mesh.Positions))
	for i, p := range in.mesh.Positions {
		positions[i] = math.Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
	}
	indices := make([]uint32, 0, 3*len(in.mesh.Indices))
	for _, tri := range in.mesh.Indices {
		indices = append(indices, tri[0], tri[1], tri[2])
	}

	fmt.Fprintf(w, "Mesh:       %s\n", in.name)
	fmt.Fprintf(w, "Vertices:   %d\n", in.mesh.VertexCount())
	fmt.Fprintf(w, "Triangles:  %d\n", in.mesh.TriangleCount())
	fmt.Fprintf(w, "Normals:    %v\n", in.mesh.Normals != nil)
	fmt.Fprintf(w, "UVs:        %v\n", in.mesh.UVs != nil)

	mesh, err := geometry.NewMesh(positions, indices, nil, nil)
	if err != nil {
		fmt.Fprintf(w, "Invalid:    %v\n\n", err)
		return
	}
	degenerate := 0
	for f := 0; f < mesh.FaceCount(); f++ {
		if mesh.IsDegenerate(f) {
			degenerate++
		}
	}
	fmt.Fprintf(w, "Components: %d\n", mesh.ComponentCount())
	fmt.Fprintf(w, "Degenerate: %d\n", degenerate)
	fmt.Fprintf(w, "Area:       %.4f\n\n", mesh.SurfaceArea())
}
