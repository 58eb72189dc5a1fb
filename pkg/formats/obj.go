package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrInvalidOBJ      = errors.New("invalid OBJ data")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// objCorner holds the position, texture and normal references of one face corner.
// Missing references are -1.
type objCorner [3]int

// ParseOBJ reads a Wavefront OBJ stream. Polygons are fan triangulated and
// every distinct position/texcoord/normal triple becomes one vertex. Texture
// coordinates and normals are kept only when every face corner references them.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	var (
		positions [][3]float32
		normals   [][3]float32
		texcoords [][2]float32
		faces     [][]objCorner
		name      string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		ident, val := fields[0], fields[1:]
		switch ident {
		case "v", "vn":
			v, err := parseFloats(val, 3)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			vec := [3]float32{v[0], v[1], v[2]}
			if ident == "v" {
				positions = append(positions, vec)
			} else {
				normals = append(normals, vec)
			}
		case "vt":
			v, err := parseFloats(val, 2)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			texcoords = append(texcoords, [2]float32{v[0], v[1]})
		case "f":
			if len(val) < 3 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 corners, got %d", ErrInvalidOBJ, lineNo, len(val))
			}
			face := make([]objCorner, len(val))
			for i, s := range val {
				c, err := parseCorner(s, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face[i] = c
			}
			faces = append(faces, face)
		case "o":
			if name == "" && len(val) > 0 {
				name = strings.Join(val, " ")
			}
		default:
			// groups, smoothing, materials and curves carry nothing we use
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return buildOBJMesh(name, positions, texcoords, normals, faces), nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f)
}

func buildOBJMesh(name string, positions [][3]float32, texcoords [][2]float32, normals [][3]float32, faces [][]objCorner) *Mesh {
	hasUV, hasNormal := len(texcoords) > 0, len(normals) > 0
	for _, face := range faces {
		for _, c := range face {
			hasUV = hasUV && c[1] >= 0
			hasNormal = hasNormal && c[2] >= 0
		}
	}

	mesh := &Mesh{Name: name}
	lookup := make(map[objCorner]uint32)
	vertex := func(c objCorner) uint32 {
		if !hasUV {
			c[1] = -1
		}
		if !hasNormal {
			c[2] = -1
		}
		if idx, ok := lookup[c]; ok {
			return idx
		}
		idx := uint32(len(mesh.Positions))
		lookup[c] = idx
		mesh.Positions = append(mesh.Positions, positions[c[0]])
		if hasUV {
			mesh.UVs = append(mesh.UVs, texcoords[c[1]])
		}
		if hasNormal {
			mesh.Normals = append(mesh.Normals, normals[c[2]])
		}
		return idx
	}

	for _, face := range faces {
		first := vertex(face[0])
		for i := 1; i+1 < len(face); i++ {
			mesh.Indices = append(mesh.Indices, [3]uint32{first, vertex(face[i]), vertex(face[i+1])})
		}
	}
	return mesh
}

func parseFloats(val []string, n int) ([]float32, error) {
	if len(val) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(val))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(val[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner decodes "p", "p/t", "p//n" or "p/t/n". Negative indices count
// back from the most recent element.
func parseCorner(s string, nPos, nTex, nNorm int) (objCorner, error) {
	c := objCorner{-1, -1, -1}
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return c, fmt.Errorf("%w: malformed face corner %q", ErrInvalidOBJ, s)
	}
	counts := [3]int{nPos, nTex, nNorm}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return c, fmt.Errorf("%w: face corner %q has no position", ErrInvalidOBJ, s)
			}
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return c, fmt.Errorf("%w: face corner %q: %v", ErrInvalidOBJ, s, err)
		}
		// compensate for indices from obj file starting at 1
		idx := v - 1
		if v < 0 {
			idx = counts[i] + v
		}
		if v == 0 || idx < 0 || idx >= counts[i] {
			return c, fmt.Errorf("%w: face corner %q references element %d of %d", ErrIndexOutOfRange, s, v, counts[i])
		}
		c[i] = idx
	}
	return c, nil
}

// WriteOBJ writes m as Wavefront OBJ. Every attribute shares the position index.
func WriteOBJ(w io.Writer, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}

	buf := make([]byte, 0, 64)
	writeVec := func(prefix string, v []float32) {
		buf = append(buf[:0], prefix...)
		for _, f := range v {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	for _, p := range m.Positions {
		writeVec("v", p[:])
	}
	for _, n := range m.Normals {
		writeVec("vn", n[:])
	}
	for _, uv := range m.UVs {
		writeVec("vt", uv[:])
	}

	formatCorner := func(idx uint32) string {
		s := strconv.FormatUint(uint64(idx)+1, 10)
		switch {
		case m.Normals != nil && m.UVs != nil:
			return s + "/" + s + "/" + s
		case m.Normals != nil:
			return s + "//" + s
		case m.UVs != nil:
			return s + "/" + s
		default:
			return s
		}
	}
	for _, tri := range m.Indices {
		fmt.Fprintf(bw, "f %s %s %s\n", formatCorner(tri[0]), formatCorner(tri[1]), formatCorner(tri[2]))
	}

	return bw.Flush()
}

// WriteOBJFile writes m to path, creating or truncating it.
func WriteOBJFile(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
