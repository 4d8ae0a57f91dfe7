package swr

import "golang.org/x/image/math/f32"

// Fixed limits of the rasterization core. Batch and cluster sizes follow the
// SIMD width of the shading routines: a batch is sized so that one batch of
// primitives, replicated per sample, fills the routine's vector lanes.
const (
	// MaxBatchSize is the SIMD batch width: the number of primitive slots a
	// batch provides at one sample per pixel.
	MaxBatchSize = 128

	// ClusterCount is the number of screen-space clusters. Pixel work is
	// partitioned and ordered per cluster.
	ClusterCount = 16

	// SubpixelPrecisionBits is the fixed-point precision of projected
	// screen coordinates.
	SubpixelPrecisionBits = 4

	// SubpixelPrecisionFactor converts floating-point screen coordinates to
	// fixed point.
	SubpixelPrecisionFactor = float32(int(1) << SubpixelPrecisionBits)

	// MaxPointSize is the largest supported point size in pixels.
	MaxPointSize = 1023

	// MaxColorBuffers is the number of color attachment slots.
	MaxColorBuffers = 8

	// MaxVertexStreams is the number of vertex input binding slots.
	MaxVertexStreams = 8

	// MaxInterpolants is the number of vec4 outputs a vertex routine may
	// pass to the pixel routine.
	MaxInterpolants = 8

	// MaxPushConstantBytes is the size of the push-constant block.
	MaxPushConstantBytes = 128
)

// ProvokingVertexMode selects which vertex of a primitive provides its flat
// (per-primitive) attributes.
type ProvokingVertexMode int

const (
	// ProvokingVertexFirst uses the first vertex of each primitive.
	ProvokingVertexFirst ProvokingVertexMode = iota

	// ProvokingVertexLast uses the last vertex of each primitive.
	ProvokingVertexLast
)

// LineRasterizationMode selects the geometry a line segment expands to.
type LineRasterizationMode int

const (
	// LineRasterizationRectangular expands each segment to an oriented
	// rectangle of lineWidth thickness centered on the segment.
	LineRasterizationRectangular LineRasterizationMode = iota

	// LineRasterizationBresenham expands each segment to a parallelogram
	// approximating hardware Bresenham rasterization. Shared endpoints of
	// connected segments are not shaded twice, at the cost of not perfectly
	// satisfying the ideal diamond-exit rule.
	LineRasterizationBresenham
)

// Vertex is the post-transform output of the vertex routine for one source
// vertex.
type Vertex struct {
	// Position is the clip-space position.
	Position f32.Vec4

	// PointSize is the shader-written point size, used only for point
	// topologies.
	PointSize float32

	// ClipFlags is the view-volume clip-flag mask for Position
	// (see the clip package).
	ClipFlags int

	// CullMask is the per-lane cull mask written by the vertex routine.
	// Zero means the vertex was fully culled upstream.
	CullMask int

	// Projected is the screen-space position in fixed point at
	// SubpixelPrecisionBits, valid only when the vertex is inside the view
	// volume.
	Projected [2]int32

	// Outputs carries the interpolants handed to the pixel routine.
	Outputs [MaxInterpolants]f32.Vec4
}

// Triangle packs the vertices of one assembled primitive. Lines use V0 and
// V1; points use only V0.
type Triangle struct {
	V0, V1, V2 Vertex
}

// PlaneEquation holds the coefficients of a screen-space interpolation plane
// A*x + B*y + C.
type PlaneEquation struct {
	A, B, C float32
}

// Primitive is the rasterizer-ready output of the setup stage for one
// visible primitive at one sample. The setup routine fills it from the
// clipped polygon; the pixel routine consumes it.
type Primitive struct {
	// XMin, XMax, YMin, YMax bound the primitive in whole pixels after
	// scissoring.
	XMin, XMax, YMin, YMax int32

	// Z and W are the depth and perspective interpolation planes.
	Z, W PlaneEquation

	// Interpolants are the attribute interpolation planes, one per
	// component group.
	Interpolants [MaxInterpolants]PlaneEquation

	// PointSizeInv is 1/pointSize for point primitives, used for fragment
	// coverage computation. Zero for other topologies.
	PointSizeInv float32
}

// BatchIndices is the per-batch output of primitive index assembly: up to
// three source-vertex indices per primitive, with one extra trailing slot so
// fixed-width vector reads past the logical end never read uninitialized
// data.
type BatchIndices [MaxBatchSize + 1][3]uint32
