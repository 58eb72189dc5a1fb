package formats

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrEmptyScene is returned when no mesh has any triangles to export.
var ErrEmptyScene = errors.New("no triangles to export")

// GLBGenerator is written into the asset block of exported documents.
const GLBGenerator = "uvatlas"

// BuildGLTF builds a glTF document holding one node per mesh. Meshes without
// triangles are skipped.
func BuildGLTF(meshes ...*Mesh) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = GLBGenerator

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{1, 1, 1, 1},
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	doc.Materials = []*gltf.Material{{Name: "default", PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}

	for i, m := range meshes {
		if m == nil || len(m.Indices) == 0 {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}

		indices := make([]uint32, 0, 3*len(m.Indices))
		for _, tri := range m.Indices {
			indices = append(indices, tri[0], tri[1], tri[2])
		}

		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION: modeler.WritePosition(doc, m.Positions),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, indices)),
			Material: gltf.Index(0),
		}
		if m.Normals != nil {
			prim.Attributes[gltf.NORMAL] = modeler.WriteNormal(doc, m.Normals)
		}
		if m.UVs != nil {
			prim.Attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, m.UVs)
		}

		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}

	if len(doc.Meshes) == 0 {
		return nil, ErrEmptyScene
	}
	return doc, nil
}

// WriteGLB writes meshes as a binary glTF stream.
func WriteGLB(w io.Writer, meshes ...*Mesh) error {
	doc, err := BuildGLTF(meshes...)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding GLB: %w", err)
	}
	return nil
}

// WriteGLBFile writes meshes to a .glb file at path.
func WriteGLBFile(path string, meshes ...*Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating GLB file: %w", err)
	}
	if err := WriteGLB(f, meshes...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
