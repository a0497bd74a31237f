package camera

import (
	"fmt"
	"strings"
)

// Matrix is a 4x4 float32 matrix in column-major order: element (row, col)
// lives at index col*4+row.
type Matrix [16]float32

func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Matrix) At(row, col int) float32 {
	return m[col*4+row]
}

// Column returns column col.
func (m Matrix) Column(col int) [4]float32 {
	return [4]float32{m[col*4], m[col*4+1], m[col*4+2], m[col*4+3]}
}

// Transform multiplies the homogeneous point (x, y, z, 1) by m.
func (m Matrix) Transform(x, y, z float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m.At(row, 0)*x + m.At(row, 1)*y + m.At(row, 2)*z + m.At(row, 3)
	}
	return out
}

func (m Matrix) String() string {
	var b strings.Builder
	for row := 0; row < 4; row++ {
		fmt.Fprintf(&b, "[% .4f % .4f % .4f % .4f]", m.At(row, 0), m.At(row, 1), m.At(row, 2), m.At(row, 3))
		if row < 3 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
