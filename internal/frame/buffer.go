// Package frame holds captured pixel payloads and their geometry.
package frame

// BytesPerPixel is the size of one packed 32-bit BGRA pixel.
const BytesPerPixel = 4

// PixelFormat identifies the memory layout of a Buffer.
type PixelFormat string

// PixelFormatBGRA is 8-bit blue, green, red, alpha packed into 32 bits.
const PixelFormatBGRA PixelFormat = "BGRA"

// Buffer is one captured image. A populated buffer is owned by exactly one
// stage at a time; handing it to another goroutine means copying it.
type Buffer struct {
	data     []byte
	width    int
	height   int
	rowBytes int
}

// NewBuffer allocates a zeroed BGRA buffer with the given geometry.
// A rowBytes smaller than width*4 is rounded up to the packed stride.
func NewBuffer(width, height, rowBytes int) *Buffer {
	b := &Buffer{}
	b.Reset(width, height, rowBytes)
	return b
}

// Reset changes the geometry, reusing the existing allocation when it is
// large enough. Pixel contents are unspecified afterwards.
func (b *Buffer) Reset(width, height, rowBytes int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if rowBytes < width*BytesPerPixel {
		rowBytes = width * BytesPerPixel
	}

	size := rowBytes * height
	if cap(b.data) < size {
		b.data = make([]byte, size)
	} else {
		b.data = b.data[:size]
	}

	b.width = width
	b.height = height
	b.rowBytes = rowBytes
}

// CopyFrom makes b an independent copy of src.
func (b *Buffer) CopyFrom(src *Buffer) {
	b.Reset(src.width, src.height, src.rowBytes)
	copy(b.data, src.data)
}

// Fill populates b from raw pixel memory with the given geometry.
// Only min(len(pixels), rowBytes*height) bytes are copied.
func (b *Buffer) Fill(pixels []byte, width, height, rowBytes int) {
	b.Reset(width, height, rowBytes)
	copy(b.data, pixels)
}

// Data returns the pixel payload. The slice aliases the buffer.
func (b *Buffer) Data() []byte { return b.data }

// Width returns the visible width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Buffer) Height() int { return b.height }

// RowBytes returns the row stride in bytes.
func (b *Buffer) RowBytes() int { return b.rowBytes }

// Format always reports PixelFormatBGRA.
func (b *Buffer) Format() PixelFormat { return PixelFormatBGRA }

// Row returns the bytes of row y, including stride padding.
func (b *Buffer) Row(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.rowBytes
	return b.data[start : start+b.rowBytes]
}

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool {
	return len(b.data) == 0
}
