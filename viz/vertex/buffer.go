// Package vertex packs flat float arrays into render-ready vertex buffers.
package vertex

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Components is the number of floats per vertex (x, y, z).
const Components = 3

// ByteSize is the packed size of one vertex.
const ByteSize = Components * 4

var ErrInvalidGeometry = errors.New("invalid geometry")

// Buffer is an immutable packed array of 3-float vertices.
type Buffer struct {
	data []float32
}

// FromFlat copies values into a new Buffer. values must hold whole vertices.
func FromFlat(values []float32) (Buffer, error) {
	if _, err := Count(values); err != nil {
		return Buffer{}, err
	}
	data := make([]float32, len(values))
	copy(data, values)
	return Buffer{data: data}, nil
}

// Count returns the number of vertices in a flat array.
func Count(values []float32) (int, error) {
	if len(values)%Components != 0 {
		return 0, fmt.Errorf("%w: %d floats is not a multiple of %d", ErrInvalidGeometry, len(values), Components)
	}
	return len(values) / Components, nil
}

// Len returns the number of floats.
func (b Buffer) Len() int { return len(b.data) }

// Count returns the number of vertices.
func (b Buffer) Count() int { return len(b.data) / Components }

// At returns vertex i.
func (b Buffer) At(i int) mgl32.Vec3 {
	o := i * Components
	return mgl32.Vec3{b.data[o], b.data[o+1], b.data[o+2]}
}

// Floats returns a copy of the packed floats.
func (b Buffer) Floats() []float32 {
	out := make([]float32, len(b.data))
	copy(out, b.data)
	return out
}
