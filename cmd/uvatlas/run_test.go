package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/uvatlas/internal/config"
	"github.com/Faultbox/uvatlas/pkg/atlas"
	"github.com/Faultbox/uvatlas/pkg/formats"
)

func TestRunDemo(t *testing.T) {
	in, err := demoInput("cube", 2)
	if err != nil {
		t.Fatalf("demoInput failed: %v", err)
	}

	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Output.Formats = []string{config.FormatOBJ, config.FormatGLB}
	cfg.Output.Preview = true
	cfg.Workers = 2

	if err := run(cfg, []*input{in}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"cube_atlas.obj", "cube_atlas.glb", "cube_atlas0.png"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}

	out, err := formats.ParseOBJFile(filepath.Join(cfg.Output.Dir, "cube_atlas.obj"))
	if err != nil {
		t.Fatalf("reading output failed: %v", err)
	}
	if out.TriangleCount() != in.mesh.TriangleCount() {
		t.Errorf("expected %d triangles, got %d", in.mesh.TriangleCount(), out.TriangleCount())
	}
	if out.UVs == nil {
		t.Fatal("expected uvs in the output")
	}
	for i, uv := range out.UVs {
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Fatalf("uv %d out of range: %v", i, uv)
		}
	}
}

func TestRunSharedNames(t *testing.T) {
	var inputs []*input
	for i := 0; i < 2; i++ {
		in, err := demoInput("cube", 1)
		if err != nil {
			t.Fatalf("demoInput failed: %v", err)
		}
		inputs = append(inputs, in)
	}
	plane, err := demoInput("plane", 1)
	if err != nil {
		t.Fatalf("demoInput failed: %v", err)
	}
	inputs = append(inputs, plane)

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()

	if err := run(cfg, inputs); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, name := range []string{"cube_0_atlas.obj", "cube_1_atlas.obj", "plane_atlas.obj"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestUniqueNames(t *testing.T) {
	inputs := []*input{{name: "a"}, {name: "a_1"}, {name: "a"}, {name: "b"}}
	uniqueNames(inputs)

	want := []string{"a_0", "a_1", "a_2", "b"}
	for i, in := range inputs {
		if in.name != want[i] {
			t.Errorf("input %d: expected %q, got %q", i, want[i], in.name)
		}
	}

	inputs = []*input{{name: "a_1"}, {name: "a"}, {name: "a"}}
	uniqueNames(inputs)
	seen := make(map[string]bool)
	for _, in := range inputs {
		if seen[in.name] {
			t.Errorf("duplicate name %q", in.name)
		}
		seen[in.name] = true
	}
}

func TestRunInputUVs(t *testing.T) {
	mesh := &formats.Mesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		UVs:       [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Indices:   [][3]uint32{{0, 1, 2}, {0, 2, 3}},
	}

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Chart.UseInputMeshUVs = true

	if err := run(cfg, []*input{{name: "quad", mesh: mesh}}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "quad_atlas.obj")); err != nil {
		t.Errorf("expected obj output: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "quad_atlas.glb")); !os.IsNotExist(err) {
		t.Errorf("expected no glb output, got %v", err)
	}
}

func TestRunRejectsBadMesh(t *testing.T) {
	mesh := &formats.Mesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   [][3]uint32{{0, 1, 5}},
	}
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()

	err := run(cfg, []*input{{name: "bad", mesh: mesh}})
	if err == nil {
		t.Fatal("expected error for out of range index")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected range error, got %v", err)
	}
}

func TestOutputMesh(t *testing.T) {
	src := &formats.Mesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 1, 0}, {1, 0, 0}},
		Indices:   [][3]uint32{{0, 1, 2}},
	}
	res := &atlas.MeshResult{
		VertexMapping: []uint32{2, 0, 1},
		Indices:       []uint32{1, 2, 0},
		UVs:           []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		AtlasIndex:    []uint32{0, 0, 0},
	}

	out := outputMesh("tri", src, res)
	if out.Name != "tri" || out.VertexCount() != 3 || out.TriangleCount() != 1 {
		t.Fatalf("unexpected mesh %+v", out)
	}
	if out.Positions[0] != src.Positions[2] || out.Normals[0] != src.Normals[2] {
		t.Errorf("vertex 0 should come from input vertex 2")
	}
	if out.UVs[1] != [2]float32{0.3, 0.4} {
		t.Errorf("unexpected uv %v", out.UVs[1])
	}
	if out.Indices[0] != [3]uint32{1, 2, 0} {
		t.Errorf("unexpected indices %v", out.Indices[0])
	}
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	inputs, err := loadInputs([]string{path})
	if err != nil {
		t.Fatalf("loadInputs failed: %v", err)
	}
	if len(inputs) != 1 || inputs[0].name != "tri" {
		t.Fatalf("unexpected inputs %+v", inputs)
	}

	var buf bytes.Buffer
	printInfo(&buf, inputs[0])
	for _, want := range []string{"Triangles:  1", "Components: 1", "Degenerate: 0"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in info output:\n%s", want, buf.String())
		}
	}

	if _, err := loadInputs([]string{filepath.Join(dir, "missing.obj")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDemoInput_Unknown(t *testing.T) {
	if _, err := demoInput("teapot", 8); err == nil {
		t.Error("expected error for unknown mesh")
	}
}
