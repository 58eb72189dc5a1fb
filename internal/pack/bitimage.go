package pack

import "math/bits"

// bitImage is a row-major occupancy grid with one bit per texel.
type bitImage struct {
	width, height int
	stride        int // words per row
	words         []uint64
}

func newBitImage(width, height int) *bitImage {
	stride := (width + 63) / 64
	return &bitImage{
		width:  width,
		height: height,
		stride: stride,
		words:  make([]uint64, stride*height),
	}
}

func (b *bitImage) get(x, y int) bool {
	return b.words[y*b.stride+x/64]&(1<<uint(x%64)) != 0
}

func (b *bitImage) set(x, y int) {
	b.words[y*b.stride+x/64] |= 1 << uint(x%64)
}

// count returns the number of set texels.
func (b *bitImage) count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// resized returns a copy with new dimensions; texels outside the new size are dropped.
func (b *bitImage) resized(width, height int) *bitImage {
	out := newBitImage(width, height)
	rows := min(height, b.height)
	words := min(out.stride, b.stride)
	for y := 0; y < rows; y++ {
		copy(out.words[y*out.stride:y*out.stride+words], b.words[y*b.stride:y*b.stride+words])
	}
	if width < b.width && width%64 != 0 {
		keep := uint64(1)<<uint(width%64) - 1
		for y := 0; y < rows; y++ {
			out.words[y*out.stride+out.stride-1] &= keep
		}
	}
	return out
}

// dilated returns the image grown by r texels in every direction (square neighbourhood).
// The result has the same size; texels that would fall outside are dropped.
func (b *bitImage) dilated(r int) *bitImage {
	if r <= 0 {
		out := newBitImage(b.width, b.height)
		copy(out.words, b.words)
		return out
	}
	horizontal := newBitImage(b.width, b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if !b.get(x, y) {
				continue
			}
			for dx := max(0, x-r); dx <= min(b.width-1, x+r); dx++ {
				horizontal.set(dx, y)
			}
		}
	}
	out := newBitImage(b.width, b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if !horizontal.get(x, y) {
				continue
			}
			for dy := max(0, y-r); dy <= min(b.height-1, y+r); dy++ {
				out.set(x, dy)
			}
		}
	}
	return out
}

// overlaps reports whether mask placed with its top-left corner at (x, y) hits a set texel.
func (b *bitImage) overlaps(mask *bitImage, x, y int) bool {
	shift := uint(x % 64)
	base := x / 64
	for my := 0; my < mask.height; my++ {
		row := (y + my) * b.stride
		for mw := 0; mw < mask.stride; mw++ {
			m := mask.words[my*mask.stride+mw]
			if m == 0 {
				continue
			}
			j := base + mw
			if j < b.stride && b.words[row+j]&(m<<shift) != 0 {
				return true
			}
			if shift > 0 && j+1 < b.stride && b.words[row+j+1]&(m>>(64-shift)) != 0 {
				return true
			}
		}
	}
	return false
}

// blit ORs mask into the image with its top-left corner at (x, y).
func (b *bitImage) blit(mask *bitImage, x, y int) {
	shift := uint(x % 64)
	base := x / 64
	for my := 0; my < mask.height; my++ {
		row := (y + my) * b.stride
		for mw := 0; mw < mask.stride; mw++ {
			m := mask.words[my*mask.stride+mw]
			if m == 0 {
				continue
			}
			j := base + mw
			if j < b.stride {
				b.words[row+j] |= m << shift
			}
			if shift > 0 && j+1 < b.stride {
				b.words[row+j+1] |= m >> (64 - shift)
			}
		}
	}
}
