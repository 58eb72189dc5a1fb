package preview

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/uvatlas/pkg/atlas"
)

// leftHalf covers the left half of the atlas with one chart of two triangles.
func leftHalf() *atlas.MeshResult {
	return &atlas.MeshResult{
		VertexMapping: []uint32{0, 1, 2, 3},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
		UVs:           []float32{0, 0, 0.5, 0, 0.5, 1, 0, 1},
		AtlasIndex:    []uint32{0, 0, 0, 0},
		Charts:        []atlas.ChartInfo{{Atlas: 0, FirstVertex: 0, VertexCount: 4, Faces: []int{0, 1}}},
	}
}

func TestRender(t *testing.T) {
	r := NewRenderer("", "test", 2)
	img, err := r.Render(0, 32, 16, []*atlas.MeshResult{leftHalf()})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("expected 64x32 image, got %dx%d", b.Dx(), b.Dy())
	}

	// inside the chart
	cr, cg, cb, _ := img.At(16, 16).RGBA()
	if cr == 0 && cg == 0 && cb == 0 {
		t.Error("expected chart color inside the chart")
	}
	// outside the chart
	cr, cg, cb, _ = img.At(48, 16).RGBA()
	if cr != 0 || cg != 0 || cb != 0 {
		t.Errorf("expected black background, got %d,%d,%d", cr, cg, cb)
	}
}

func TestRender_OtherAtlasIsEmpty(t *testing.T) {
	r := NewRenderer("", "test", 1)
	img, err := r.Render(1, 16, 16, []*atlas.MeshResult{leftHalf()})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	cr, cg, cb, _ := img.At(4, 8).RGBA()
	if cr != 0 || cg != 0 || cb != 0 {
		t.Errorf("expected black background, got %d,%d,%d", cr, cg, cb)
	}
}

func TestRender_Empty(t *testing.T) {
	r := NewRenderer("", "test", 1)
	if _, err := r.Render(0, 0, 0, nil); !errors.Is(err, ErrEmptyAtlas) {
		t.Errorf("expected ErrEmptyAtlas, got %v", err)
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	r := NewRenderer(dir, "mesh", 1)

	files, err := r.WriteAll(2, 8, 8, []*atlas.MeshResult{leftHalf()})
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[1] != filepath.Join(dir, "mesh_atlas1.png") {
		t.Errorf("unexpected file name %s", files[1])
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("opening preview: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("expected 8x8 preview, got %v", img.Bounds())
	}
}

func TestChartColor(t *testing.T) {
	for i := 0; i < 64; i++ {
		r, g, b := chartColor(i)
		for _, c := range []float64{r, g, b} {
			if c < 0 || c > 1 {
				t.Fatalf("chart %d: color component %f out of range", i, c)
			}
		}
		if r+g+b == 0 {
			t.Fatalf("chart %d: color is black", i)
		}
	}
	r1, g1, b1 := chartColor(1)
	r2, g2, b2 := chartColor(2)
	if r1 == r2 && g1 == g2 && b1 == b2 {
		t.Error("expected neighbouring charts to differ")
	}
}
