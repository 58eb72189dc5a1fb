// Package preview draws the chart layout of generated atlases into PNG images.
package preview

import (
	"errors"
	"fmt"
	"image"
	stdmath "math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/Faultbox/uvatlas/pkg/atlas"
)

// ErrEmptyAtlas is returned when there is nothing to draw.
var ErrEmptyAtlas = errors.New("atlas has no area")

// Renderer renders chart layouts and writes them as PNG files.
type Renderer struct {
	outputDir string
	prefix    string
	scale     int
	lineWidth float64
}

// NewRenderer creates a renderer writing prefix_atlasN.png files into outputDir.
// Every atlas texel becomes scale x scale pixels.
func NewRenderer(outputDir, prefix string, scale int) *Renderer {
	if scale < 1 {
		scale = 1
	}
	return &Renderer{
		outputDir: outputDir,
		prefix:    prefix,
		scale:     scale,
		lineWidth: 1,
	}
}

// Render draws every chart of meshes that lives in atlas index into an image
// of width x height texels. V grows downward, matching the packed texel grid.
func (r *Renderer) Render(index, width, height int, meshes []*atlas.MeshResult) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyAtlas
	}

	w, h := float64(width*r.scale), float64(height*r.scale)
	c := gg.NewContext(width*r.scale, height*r.scale)
	c.SetRGB(0, 0, 0)
	c.DrawRectangle(0, 0, w, h)
	c.Fill()
	c.SetLineWidth(r.lineWidth)

	chart := 0
	for _, m := range meshes {
		for _, info := range m.Charts {
			chart++
			if info.Atlas != index {
				continue
			}
			for _, f := range info.Faces {
				for k := 0; k < 3; k++ {
					v := m.Indices[3*f+k]
					x, y := float64(m.UVs[2*v])*w, float64(m.UVs[2*v+1])*h
					if k == 0 {
						c.MoveTo(x, y)
					} else {
						c.LineTo(x, y)
					}
				}
				c.ClosePath()
			}
			cr, cg, cb := chartColor(chart)
			c.SetRGB(cr, cg, cb)
			c.FillPreserve()
			c.SetRGB(1, 1, 1)
			c.Stroke()
		}
	}
	return c.Image(), nil
}

// Save writes img as the preview of atlas index and returns the file name.
func (r *Renderer) Save(index int, img image.Image) (string, error) {
	// Create output directory if needed
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := r.Filename(index)
	if err := gg.SavePNG(filename, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}

// Filename returns the file a preview of atlas index is written to.
func (r *Renderer) Filename(index int) string {
	filename := fmt.Sprintf("%s_atlas%d.png", r.prefix, index)
	if r.outputDir != "" {
		filename = filepath.Join(r.outputDir, filename)
	}
	return filename
}

// WriteAll renders and saves one preview per atlas.
func (r *Renderer) WriteAll(atlasCount, width, height int, meshes []*atlas.MeshResult) ([]string, error) {
	files := make([]string, 0, atlasCount)
	for i := 0; i < atlasCount; i++ {
		img, err := r.Render(i, width, height, meshes)
		if err != nil {
			return files, fmt.Errorf("atlas %d: %w", i, err)
		}
		name, err := r.Save(i, img)
		if err != nil {
			return files, fmt.Errorf("atlas %d: %w", i, err)
		}
		files = append(files, name)
	}
	return files, nil
}

// chartColor spreads hues by the golden angle so neighbouring charts differ.
func chartColor(i int) (float64, float64, float64) {
	hue := stdmath.Mod(float64(i)*137.508, 360) / 60
	x := 1 - stdmath.Abs(stdmath.Mod(hue, 2)-1)
	const s, v = 0.6, 0.9
	c := s * v
	m := v - c
	var r, g, b float64
	switch int(hue) {
	case 0:
		r, g, b = c, c*x, 0
	case 1:
		r, g, b = c*x, c, 0
	case 2:
		r, g, b = 0, c, c*x
	case 3:
		r, g, b = 0, c*x, c
	case 4:
		r, g, b = c*x, 0, c
	default:
		r, g, b = c, 0, c*x
	}
	return r + m, g + m, b + m
}
