// Package clip provides homogeneous-coordinate polygon clipping for the
// software renderer's setup stage.
//
// Primitives are clipped before the screen-space divide, in clip space,
// against the view-volume planes indicated by a clip-flag mask. The flag
// mask is computed per vertex by the vertex stage; the setup stage ORs the
// vertex flags together and clips only against the planes some vertex is
// actually outside of.
package clip

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Clip-flag bits. One bit per view-volume plane, plus Finite, which is set
// when every position component is a finite number. A vertex strictly inside
// the view volume carries exactly Finite.
const (
	Right = 1 << iota
	Left
	Top
	Bottom
	Far
	Near

	// Finite is set when x, y, z and w are all finite.
	Finite = 1 << 7

	// Sides masks the four lateral planes, used when depth clipping is
	// disabled (depth-clamped pipelines).
	Sides = Right | Left | Top | Bottom

	// Frustum masks all six view-volume planes.
	Frustum = Sides | Far | Near
)

// MaxVertices is the capacity of a Polygon. Clipping against a plane adds at
// most one vertex, so a quadrilateral clipped against six planes stays well
// within this bound.
const MaxVertices = 16

// Polygon is a mutable, variable-vertex-count clip buffer. It is built from
// the corners of a primitive, clipped in place, and read back by the setup
// routine. A Polygon never outlives one setup invocation.
type Polygon struct {
	buf [2][MaxVertices]f32.Vec4
	cur int
	n   int
}

// NewPolygon builds a polygon from the given corners, in order.
// Passing more than MaxVertices corners is a programming error.
func NewPolygon(corners ...f32.Vec4) *Polygon {
	p := &Polygon{}
	p.Reset(corners...)
	return p
}

// Reset reinitializes the polygon with the given corners, in order.
func (p *Polygon) Reset(corners ...f32.Vec4) {
	if len(corners) > MaxVertices {
		panic("clip: too many polygon corners")
	}
	p.cur = 0
	p.n = copy(p.buf[0][:], corners)
}

// Count returns the number of vertices currently in the polygon.
func (p *Polygon) Count() int {
	return p.n
}

// Vertices returns the polygon's current vertices. The slice aliases the
// polygon's internal buffer and is invalidated by the next Clip or Reset.
func (p *Polygon) Vertices() []f32.Vec4 {
	return p.buf[p.cur][:p.n]
}

// ComputeClipFlags returns the clip-flag mask for a clip-space position.
// When negOneToOne is true the near plane is z = -w (OpenGL-style depth
// range), otherwise z = 0.
func ComputeClipFlags(p f32.Vec4, negOneToOne bool) int {
	flags := 0
	if p[0] > p[3] {
		flags |= Right
	}
	if p[0] < -p[3] {
		flags |= Left
	}
	if p[1] > p[3] {
		flags |= Top
	}
	if p[1] < -p[3] {
		flags |= Bottom
	}
	if p[2] > p[3] {
		flags |= Far
	}
	near := float32(0)
	if negOneToOne {
		near = -p[3]
	}
	if p[2] < near {
		flags |= Near
	}
	if finite(p[0]) && finite(p[1]) && finite(p[2]) && finite(p[3]) {
		flags |= Finite
	}
	return flags
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
