package codec

import (
	"encoding/binary"
)

func init() {
	Register(&BC1{BaseCodec{format: FormatBC1}})
	Register(&BC2{BaseCodec{format: FormatBC2}})
	Register(&BC3{BaseCodec{format: FormatBC3}})
}

// BC1 encodes opaque 4-color blocks. Alpha is discarded.
type BC1 struct{ BaseCodec }

// BC2 encodes explicit 4-bit alpha followed by a BC1 color block.
type BC2 struct{ BaseCodec }

// BC3 encodes an interpolated 8-value alpha block followed by a BC1 color block.
type BC3 struct{ BaseCodec }

func (c *BC1) CompressInto(dst, pix []byte, width, height int) error {
	if err := c.checkBuffers(dst, pix, width, height); err != nil {
		return err
	}
	forEachBlock(pix, width, height, 8, dst, func(out []byte, blk *block) {
		encodeColorBlock(out, blk)
	})
	return nil
}

func (c *BC2) CompressInto(dst, pix []byte, width, height int) error {
	if err := c.checkBuffers(dst, pix, width, height); err != nil {
		return err
	}
	forEachBlock(pix, width, height, 16, dst, func(out []byte, blk *block) {
		encodeExplicitAlpha(out[:8], blk)
		encodeColorBlock(out[8:], blk)
	})
	return nil
}

func (c *BC3) CompressInto(dst, pix []byte, width, height int) error {
	if err := c.checkBuffers(dst, pix, width, height); err != nil {
		return err
	}
	forEachBlock(pix, width, height, 16, dst, func(out []byte, blk *block) {
		encodeInterpolatedAlpha(out[:8], blk)
		encodeColorBlock(out[8:], blk)
	})
	return nil
}

// block holds 16 RGBA pixels in row-major order.
type block [16][4]uint8

// forEachBlock walks blocks in row-major order. Pixels past the image edge
// repeat the last row or column.
func forEachBlock(pix []byte, width, height, blockBytes int, dst []byte, encode func([]byte, *block)) {
	bw := (width + BlockEdge - 1) / BlockEdge
	bh := (height + BlockEdge - 1) / BlockEdge

	var blk block
	n := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			for py := 0; py < BlockEdge; py++ {
				y := min(by*BlockEdge+py, height-1)
				for px := 0; px < BlockEdge; px++ {
					x := min(bx*BlockEdge+px, width-1)
					i := (y*width + x) * 4
					copy(blk[py*BlockEdge+px][:], pix[i:i+4])
				}
			}
			encode(dst[n:n+blockBytes], &blk)
			n += blockBytes
		}
	}
}

// encodeColorBlock writes an 8-byte BC1 color block using bounding box
// endpoints, inset by 1/16 of the range. c0 > c1 always holds unless the
// block is uniform, so the four-color mode is used.
func encodeColorBlock(dst []byte, blk *block) {
	lo := [3]int{255, 255, 255}
	hi := [3]int{0, 0, 0}
	for _, p := range blk {
		for ch := 0; ch < 3; ch++ {
			v := int(p[ch])
			lo[ch] = min(lo[ch], v)
			hi[ch] = max(hi[ch], v)
		}
	}
	for ch := 0; ch < 3; ch++ {
		inset := (hi[ch] - lo[ch]) >> 4
		lo[ch] += inset
		hi[ch] -= inset
	}

	c0 := pack565(hi)
	c1 := pack565(lo)
	if c0 < c1 {
		c0, c1 = c1, c0
	}
	binary.LittleEndian.PutUint16(dst[0:], c0)
	binary.LittleEndian.PutUint16(dst[2:], c1)

	if c0 == c1 {
		binary.LittleEndian.PutUint32(dst[4:], 0)
		return
	}

	e0 := unpack565(c0)
	e1 := unpack565(c1)
	var palette [4][3]int
	palette[0] = e0
	palette[1] = e1
	for ch := 0; ch < 3; ch++ {
		palette[2][ch] = (2*e0[ch] + e1[ch]) / 3
		palette[3][ch] = (e0[ch] + 2*e1[ch]) / 3
	}

	var indices uint32
	for i, p := range blk {
		best, bestDist := 0, int(^uint(0)>>1)
		for j := range palette {
			d := 0
			for ch := 0; ch < 3; ch++ {
				diff := int(p[ch]) - palette[j][ch]
				d += diff * diff
			}
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		indices |= uint32(best) << (2 * i)
	}
	binary.LittleEndian.PutUint32(dst[4:], indices)
}

// encodeExplicitAlpha writes 16 4-bit alpha values, pixel 0 in the low nibble.
func encodeExplicitAlpha(dst []byte, blk *block) {
	var bits uint64
	for i, p := range blk {
		a4 := (uint64(p[3])*15 + 127) / 255
		bits |= a4 << (4 * i)
	}
	binary.LittleEndian.PutUint64(dst, bits)
}

// encodeInterpolatedAlpha writes a0=max, a1=min and 16 3-bit palette indices
// packed little-endian into the remaining 6 bytes.
func encodeInterpolatedAlpha(dst []byte, blk *block) {
	a0, a1 := 0, 255
	for _, p := range blk {
		a := int(p[3])
		a0 = max(a0, a)
		a1 = min(a1, a)
	}
	dst[0] = uint8(a0)
	dst[1] = uint8(a1)

	var bits uint64
	if a0 != a1 {
		palette := alphaPalette(a0, a1)
		for i, p := range blk {
			a := int(p[3])
			best, bestDist := 0, 256
			for j, v := range palette {
				d := a - v
				if d < 0 {
					d = -d
				}
				if d < bestDist {
					best, bestDist = j, d
				}
			}
			bits |= uint64(best) << (3 * i)
		}
	}
	for i := 0; i < 6; i++ {
		dst[2+i] = uint8(bits >> (8 * i))
	}
}

// alphaPalette expands the two endpoints of an 8-value alpha block (a0 > a1).
func alphaPalette(a0, a1 int) [8]int {
	p := [8]int{a0, a1}
	for i := 1; i <= 6; i++ {
		p[i+1] = ((7-i)*a0 + i*a1) / 7
	}
	return p
}

func pack565(c [3]int) uint16 {
	r := uint16((c[0]*31 + 127) / 255)
	g := uint16((c[1]*63 + 127) / 255)
	b := uint16((c[2]*31 + 127) / 255)
	return r<<11 | g<<5 | b
}

func unpack565(v uint16) [3]int {
	r := int(v>>11) & 0x1F
	g := int(v>>5) & 0x3F
	b := int(v) & 0x1F
	return [3]int{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2}
}
