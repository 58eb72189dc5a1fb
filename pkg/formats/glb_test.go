package formats

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
)

func testTriangle(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		UVs:       [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		Indices:   [][3]uint32{{0, 1, 2}},
	}
}

func TestBuildGLTF(t *testing.T) {
	withNormals := testTriangle("")
	withNormals.Normals = [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}

	doc, err := BuildGLTF(testTriangle("first"), &Mesh{}, withNormals)
	if err != nil {
		t.Fatalf("BuildGLTF failed: %v", err)
	}

	if doc.Asset.Generator != GLBGenerator {
		t.Errorf("expected generator %q, got %q", GLBGenerator, doc.Asset.Generator)
	}
	// the empty mesh is skipped
	if len(doc.Meshes) != 2 || len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 meshes and nodes, got %d/%d", len(doc.Meshes), len(doc.Nodes))
	}
	if len(doc.Scenes[0].Nodes) != 2 {
		t.Errorf("expected 2 scene nodes, got %d", len(doc.Scenes[0].Nodes))
	}
	if doc.Meshes[0].Name != "first" || doc.Meshes[1].Name != "mesh2" {
		t.Errorf("unexpected mesh names %q, %q", doc.Meshes[0].Name, doc.Meshes[1].Name)
	}

	first := doc.Meshes[0].Primitives[0]
	if _, ok := first.Attributes[gltf.NORMAL]; ok {
		t.Error("expected no normals on the first mesh")
	}
	uv, ok := first.Attributes[gltf.TEXCOORD_0]
	if !ok {
		t.Fatal("expected TEXCOORD_0 on the first mesh")
	}
	if acc := doc.Accessors[uv]; acc.Count != 3 || acc.Type != gltf.AccessorVec2 {
		t.Errorf("unexpected uv accessor %+v", acc)
	}
	if acc := doc.Accessors[*first.Indices]; acc.Count != 3 {
		t.Errorf("expected 3 indices, got %d", acc.Count)
	}

	if _, ok := doc.Meshes[1].Primitives[0].Attributes[gltf.NORMAL]; !ok {
		t.Error("expected normals on the second mesh")
	}
}

func TestBuildGLTF_Empty(t *testing.T) {
	if _, err := BuildGLTF(); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}
	if _, err := BuildGLTF(&Mesh{Name: "nothing"}); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}
}

func TestBuildGLTF_Invalid(t *testing.T) {
	m := testTriangle("bad")
	m.Indices = [][3]uint32{{0, 1, 7}}
	if _, err := BuildGLTF(m); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestWriteGLB(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGLB(&buf, testTriangle("tri")); err != nil {
		t.Fatalf("WriteGLB failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 12 || string(data[:4]) != "glTF" {
		t.Fatalf("expected GLB magic, got %q", data[:min(4, len(data))])
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		t.Fatalf("decoding GLB failed: %v", err)
	}
	if len(doc.Meshes) != 1 || doc.Meshes[0].Name != "tri" {
		t.Errorf("unexpected meshes after decode: %d", len(doc.Meshes))
	}
}

func TestWriteGLBFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.glb")
	if err := WriteGLBFile(path, testTriangle("tri")); err != nil {
		t.Fatalf("WriteGLBFile failed: %v", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("gltf.Open failed: %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Errorf("expected 1 mesh, got %d", len(doc.Meshes))
	}
}
