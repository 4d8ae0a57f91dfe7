package swr

import (
	"github.com/google/uuid"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/swr/clip"
)

// Device is the owning device of a renderer. The renderer only needs it to
// refresh the sampling routine snapshot cache on synchronization; shading
// routines receive it opaquely and may use the concrete type behind it.
type Device interface {
	// UpdateSamplingRoutineSnapshot refreshes the device's snapshot cache
	// of sampling routines. Called by Renderer.Synchronize once all prior
	// draws have retired.
	UpdateSamplingRoutineSnapshot()
}

// DescriptorSet is an opaque bound resource set. The renderer never looks
// inside; it only forwards the bound sets to the DescriptorBinder.
type DescriptorSet any

// PipelineLayout identifies a pipeline layout. The renderer uses the
// identity to avoid notifying the binder twice when the pre-rasterization
// and fragment stages share a layout.
type PipelineLayout struct {
	// ID is the layout's unique identity.
	ID uuid.UUID
}

// NewPipelineLayout creates a layout with a fresh identity.
func NewPipelineLayout() *PipelineLayout {
	return &PipelineLayout{ID: uuid.New()}
}

// DescriptorBinder is notified around resource access: PrepareForSampling
// before bound resources may be sampled by a draw, ContentsChanged after a
// stage wrote through bound images.
type DescriptorBinder interface {
	PrepareForSampling(sets []DescriptorSet, layout *PipelineLayout, dev Device)
	ContentsChanged(sets []DescriptorSet, layout *PipelineLayout, dev Device)
}

// Query collects occlusion results. Start is invoked at draw setup, Add once
// per cluster during teardown, Finish at the end of teardown.
type Query interface {
	Start()
	Add(count int64)
	Finish()
}

// AccessKind describes how an attachment's memory was written.
type AccessKind int

// AccessDirect marks a write performed directly through the attachment's
// mapped memory, bypassing any image-layout tracking.
const AccessDirect AccessKind = iota

// Attachment is one framebuffer attachment. The renderer captures the raw
// storage for the routines and notifies the attachment after its contents
// changed.
type Attachment interface {
	// Bytes returns the attachment's storage for the given layer.
	Bytes(layer int32) []byte

	// RowPitch returns the byte stride between rows.
	RowPitch() int

	// SlicePitch returns the byte stride between sample slices.
	SlicePitch() int

	// Format returns the attachment's format.
	Format() vk.Format

	// ContentsChanged is called after a draw wrote to the attachment.
	ContentsChanged(kind AccessKind)
}

// Attachments is the set of framebuffer attachments bound for a draw.
type Attachments struct {
	Color          [MaxColorBuffers]Attachment
	Depth, Stencil Attachment
}

// VertexRoutine transforms the source vertices addressed by a batch's
// assembled indices into the batch's triangle buffer. The routine reads
// task.Cache to skip vertices it already transformed for this draw.
type VertexRoutine func(dev Device, out []Triangle, indices *BatchIndices, task *VertexTask, data *DrawData)

// SetupRoutine converts one culled, clipped primitive into rasterizer-ready
// form, replicated once per active sample into prims (len(prims) equals the
// sample count). It returns false when the primitive covers no samples.
type SetupRoutine func(dev Device, prims []Primitive, tri *Triangle, poly *clip.Polygon, data *DrawData) bool

// PixelRoutine shades the visible primitives of a batch for one screen-space
// cluster. Writes are confined to the cluster's rows of the framebuffer and
// to data.Occlusion[cluster].
type PixelRoutine func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData)

// RoutineSource resolves compiled shading routines for a pipeline state.
// Implementations cache by state; resolution happens only when a draw is
// submitted with Update set.
type RoutineSource interface {
	ResolveVertex(state *GraphicsState) VertexRoutine
	ResolveSetup(state *GraphicsState) SetupRoutine
	ResolvePixel(state *GraphicsState, occlusionActive bool) PixelRoutine
}

// StencilState is the snapshot-relevant portion of one stencil face's state.
type StencilState struct {
	Reference   uint32
	CompareMask uint32
	WriteMask   uint32
}

// GraphicsState is the combined, fully resolved pipeline state for one draw.
// Dynamic state has already been folded in by the command-stream front end.
type GraphicsState struct {
	Topology            vk.PrimitiveTopology
	ProvokingVertexMode ProvokingVertexMode

	PolygonMode vk.PolygonMode
	CullMode    vk.CullModeFlags
	FrontFace   vk.FrontFace

	LineWidth             float32
	LineRasterizationMode LineRasterizationMode

	// RasterizerDiscard disables everything past the vertex stage.
	RasterizerDiscard bool

	// DepthClipEnable selects frustum clipping; when false only the four
	// side planes clip (depth clamp).
	DepthClipEnable bool

	// DepthClipNegativeOneToOne selects the z in [-w, w] depth convention
	// instead of [0, w].
	DepthClipNegativeOneToOne bool

	Viewport vk.Viewport
	Scissor  vk.Rect2D

	SampleCount     int
	AlphaToCoverage bool

	StencilActive bool
	FrontStencil  StencilState
	BackStencil   StencilState

	ConstantDepthBias float32
	SlopeDepthBias    float32
	DepthBiasClamp    float32

	BlendConstants [4]float32
}

// VertexStream is one vertex input binding.
type VertexStream struct {
	// Buffer is the bound vertex data. Nil when the slot is unused.
	Buffer []byte

	// Stride is the byte stride between vertices.
	Stride int

	// RobustnessSize bounds reads for out-of-range robustness behavior.
	RobustnessSize int
}

// Pipeline is a complete graphics pipeline as seen by the renderer: resolved
// state, bound inputs, attachments, layouts, and a source for the compiled
// shading routines. Pipeline compilation and caching live outside this
// package.
type Pipeline struct {
	State GraphicsState

	// Inputs are the bound vertex streams.
	Inputs [MaxVertexStreams]VertexStream

	// IndexType is the element width of the bound index buffer. Ignored for
	// non-indexed draws.
	IndexType vk.IndexType

	// DescriptorSets are the bound resource sets, forwarded to the binder.
	DescriptorSets []DescriptorSet

	// DescriptorDynamicOffsets are the dynamic buffer offsets for the bound
	// sets, captured into the draw's data block.
	DescriptorDynamicOffsets []uint32

	// PreRasterizationLayout and FragmentLayout are the pipeline layouts of
	// the two stage groups. FragmentLayout is nil when rasterizer discard
	// is enabled.
	PreRasterizationLayout *PipelineLayout
	FragmentLayout         *PipelineLayout

	// PreRasterizationContainsImageWrite and FragmentContainsImageWrite
	// mark stage groups whose shaders write through bound images, requiring
	// a ContentsChanged notification at teardown.
	PreRasterizationContainsImageWrite bool
	FragmentContainsImageWrite         bool

	Attachments Attachments

	// Routines resolves the compiled shading routines for State.
	Routines RoutineSource
}
