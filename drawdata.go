package swr

// PushConstants is the fixed-size push-constant block captured at
// submission.
type PushConstants [MaxPushConstantBytes]byte

// DrawData is the per-draw uniform data block handed to every shading
// routine. It is populated once at submission and is immutable afterwards,
// with one exception: Occlusion, which pixel-stage continuations update,
// each confined to its own cluster index.
//
// The block is exclusively owned by its DrawCall and recycled with it.
type DrawData struct {
	RasterizerDiscard bool

	LineWidth float32

	// Indices is the bound index buffer, nil for non-indexed draws.
	Indices []byte

	Layer      int32
	InstanceID int32
	BaseVertex int32

	// Input are the vertex stream bindings captured from the pipeline.
	Input [MaxVertexStreams]VertexStream

	// DescriptorSets and DescriptorDynamicOffsets are the bound resources
	// as the routines address them.
	DescriptorSets           []DescriptorSet
	DescriptorDynamicOffsets []uint32

	// Viewport transform in fixed point. WxF and HxF are the half-extents
	// scaled by SubpixelPrecisionFactor; X0xF and Y0xF are the center,
	// biased by half a subpixel.
	WxF, HxF   float32
	X0xF, Y0xF float32

	// HalfPixelX and HalfPixelY are half-pixel extents in NDC units.
	HalfPixelX, HalfPixelY float32

	DepthRange float32
	DepthNear  float32

	ConstantDepthBias float32
	SlopeDepthBias    float32
	DepthBiasClamp    float32

	// MinimumResolvableDepthDifference is the depth-bias epsilon for
	// fixed-point depth formats. Zero for floating-point depth, where the
	// epsilon is derived per polygon.
	MinimumResolvableDepthDifference float32

	// Scissor rectangle clamped to the render area, in pixels.
	ScissorX0, ScissorX1 int32
	ScissorY0, ScissorY1 int32

	// Stencil holds front (0) and back (1) face stencil state.
	Stencil [2]StencilState

	BlendConstants [4]float32

	// A2C are the alpha-to-coverage thresholds, one per active sample.
	A2C [4]float32

	// Occlusion accumulates per-cluster sample counts when an occlusion
	// query is active. Each cluster index is written only by that cluster's
	// pixel continuation, so no locking is needed.
	Occlusion [ClusterCount]int64

	// Color, depth and stencil attachment storage with row/slice pitches.
	ColorBuffer [MaxColorBuffers][]byte
	ColorPitchB [MaxColorBuffers]int
	ColorSliceB [MaxColorBuffers]int

	DepthBuffer []byte
	DepthPitchB int
	DepthSliceB int

	StencilBuffer []byte
	StencilPitchB int
	StencilSliceB int

	PushConstants PushConstants
}

// reset clears the fields that must not leak between draws when a DrawData
// block is recycled through the pool. Plain value fields are overwritten at
// the next submission; reference fields are dropped so the GC can reclaim
// what they point to.
func (d *DrawData) reset() {
	d.Indices = nil
	for i := range d.Input {
		d.Input[i] = VertexStream{}
	}
	d.DescriptorSets = nil
	d.DescriptorDynamicOffsets = nil
	for i := range d.ColorBuffer {
		d.ColorBuffer[i] = nil
	}
	d.DepthBuffer = nil
	d.StencilBuffer = nil
	d.Occlusion = [ClusterCount]int64{}
}
