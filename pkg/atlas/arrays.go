package atlas

// Float32Array is a row-major view of a float32 matrix.
type Float32Array struct {
	Data  []float32
	Shape []int
}

// Uint32Array is a row-major view of a uint32 matrix.
type Uint32Array struct {
	Data  []uint32
	Shape []int
}

// NewFloat32Array wraps data with the given shape. The data is not copied.
func NewFloat32Array(data []float32, shape ...int) Float32Array {
	return Float32Array{Data: data, Shape: shape}
}

// NewUint32Array wraps data with the given shape. The data is not copied.
func NewUint32Array(data []uint32, shape ...int) Uint32Array {
	return Uint32Array{Data: data, Shape: shape}
}

// Rows3 flattens rows into an Nx3 array.
func Rows3(rows [][3]float32) Float32Array {
	data := make([]float32, 0, 3*len(rows))
	for _, r := range rows {
		data = append(data, r[0], r[1], r[2])
	}
	return NewFloat32Array(data, len(rows), 3)
}

// Rows2 flattens rows into an Nx2 array.
func Rows2(rows [][2]float32) Float32Array {
	data := make([]float32, 0, 2*len(rows))
	for _, r := range rows {
		data = append(data, r[0], r[1])
	}
	return NewFloat32Array(data, len(rows), 2)
}

// Triangles flattens triangles into an Mx3 index array.
func Triangles(rows [][3]uint32) Uint32Array {
	data := make([]uint32, 0, 3*len(rows))
	for _, r := range rows {
		data = append(data, r[0], r[1], r[2])
	}
	return NewUint32Array(data, len(rows), 3)
}

// Rows returns the size of the first dimension, or 0 for an array without dimensions.
func (a Float32Array) Rows() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// Rows returns the size of the first dimension, or 0 for an array without dimensions.
func (a Uint32Array) Rows() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// checkShape verifies an Nx<cols> matrix whose data length matches its shape.
// rows < 0 accepts any row count.
func checkShape(name string, shape []int, dataLen, cols, rows int) error {
	if len(shape) != 2 || shape[1] != cols || shape[0] < 0 || shape[0]*cols != dataLen {
		return validationf("%s array expected to be Nx%d.", name, cols)
	}
	if rows >= 0 && shape[0] != rows {
		return validationf("%s has invalid number of elements in the first dimension (expected %d, got %d)",
			name, rows, shape[0])
	}
	return nil
}
