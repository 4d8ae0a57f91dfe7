package swr

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swr/internal/sched"
)

// Renderer is the draw-dispatch core: it splits submitted draws into
// ordered, parallel batch tasks and guarantees that draw calls appear to
// execute in submission order even though their work is spread across
// worker goroutines.
//
// Thread safety: Draw and Synchronize must be called from the command-stream
// thread; batch work runs on the internal worker pool.
type Renderer struct {
	device Device
	binder DescriptorBinder

	// drawTickets orders whole-draw completion; one queue per cluster
	// orders pixel-stage writes within that cluster.
	drawTickets   sched.Queue
	clusterQueues [ClusterCount]sched.Queue

	pool         *sched.WorkerPool
	drawCallPool *sched.Pool[DrawCall]
	batchPool    *sched.Pool[BatchData]

	nextDrawID atomic.Uint64

	occlusionQuery Query

	// Last-resolved shading routines. Draws submitted without Update reuse
	// these instead of resolving from the pipeline's routine source.
	vertexRoutine VertexRoutine
	setupRoutine  SetupRoutine
	pixelRoutine  PixelRoutine
}

// DrawCommand carries the parameters of one draw submission.
type DrawCommand struct {
	// Pipeline is the fully resolved pipeline state for the draw.
	Pipeline *Pipeline

	// Count is the number of primitives to draw. Non-positive counts are
	// a no-op.
	Count int

	BaseVertex int32
	InstanceID int32
	Layer      int32

	// Indices is the bound index buffer; nil for non-indexed draws.
	Indices []byte

	// RenderArea clamps the scissor rectangle.
	RenderArea vk.Rect2D

	PushConstants PushConstants

	// Events, when set, has its count raised at draw setup and released at
	// teardown.
	Events *sched.CountedEvent

	// Update re-resolves the shading routines from the pipeline's routine
	// source before drawing.
	Update bool
}

// NewRenderer creates a renderer owned by dev, notifying binder around
// resource access. A nil cfg selects defaults.
func NewRenderer(dev Device, binder DescriptorBinder, cfg *Config) *Renderer {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		c.applyDefaults()
		cfg = &c
	}

	r := &Renderer{
		device: dev,
		binder: binder,
		pool:   sched.NewWorkerPool(cfg.Workers),
	}
	r.drawCallPool = sched.NewPool(cfg.DrawCallPoolSize, func() *DrawCall {
		return &DrawCall{data: &DrawData{}}
	})
	r.batchPool = sched.NewPool(cfg.BatchPoolSize, func() *BatchData {
		return &BatchData{}
	})
	return r
}

// Close waits for every submitted draw to retire, then stops the worker
// pool. The renderer must not be used afterwards.
func (r *Renderer) Close() {
	ticket := r.drawTickets.Take()
	ticket.Wait()
	ticket.Done()
	r.pool.Close()
}

// Draw submits one draw. It builds the draw's immutable data snapshot,
// selects the primitive-assembly strategy for the pipeline's topology and
// polygon mode, reserves ordering tickets, and fans the work out to the
// worker pool. Draw returns once the work is scheduled; completion is
// observed through Synchronize or cmd.Events.
func (r *Renderer) Draw(cmd *DrawCommand) {
	if cmd.Count <= 0 {
		return
	}

	pipeline := cmd.Pipeline
	state := &pipeline.State

	id := r.nextDrawID.Add(1)
	Logger().Debug("draw submitted", "draw", id, "primitives", cmd.Count)

	draw := r.drawCallPool.Borrow()
	draw.id = id

	// A graphics pipeline is always complete before it is used for
	// drawing: it includes the fragment stages only when rasterizer
	// discard is off. With discard on, only the vertex stage and the
	// completion bookkeeping run; no setup, pixel, occlusion or
	// attachment state is populated.
	discard := state.RasterizerDiscard

	if cmd.Update {
		r.vertexRoutine = pipeline.Routines.ResolveVertex(state)
		if !discard {
			r.setupRoutine = pipeline.Routines.ResolveSetup(state)
			r.pixelRoutine = pipeline.Routines.ResolvePixel(state, r.occlusionQuery != nil)
		}
	}

	// The sample count affects the batch size even when rasterization is
	// disabled.
	ms := 1
	if !discard {
		ms = state.SampleCount
	}
	if ms <= 0 {
		unsupported("sample count: %d", ms)
	}

	numPrimitivesPerBatch := uint32(MaxBatchSize / ms)

	var setupPrimitives setupFunc
	if !discard {
		switch {
		case isDrawTriangle(state.Topology):
			switch state.PolygonMode {
			case vk.PolygonModeFill:
				setupPrimitives = setupSolidTriangles
			case vk.PolygonModeLine:
				// Each triangle becomes three lines.
				setupPrimitives = setupWireframeTriangles
				numPrimitivesPerBatch /= 3
			case vk.PolygonModePoint:
				// Each triangle becomes three points.
				setupPrimitives = setupPointTriangles
				numPrimitivesPerBatch /= 3
			default:
				unsupported("polygon mode: %d", int32(state.PolygonMode))
			}
		case isDrawLine(state.Topology):
			setupPrimitives = setupLines
		default:
			setupPrimitives = setupPoints
		}
	}

	data := draw.data
	count := uint32(cmd.Count)

	draw.occlusionQuery = r.occlusionQuery
	draw.numPrimitives = count
	draw.numPrimitivesPerBatch = numPrimitivesPerBatch
	draw.numBatches = (count + numPrimitivesPerBatch - 1) / numPrimitivesPerBatch
	draw.topology = state.Topology
	draw.provokingVertexMode = state.ProvokingVertexMode
	draw.lineRasterizationMode = state.LineRasterizationMode
	draw.frontFace = state.FrontFace
	draw.cullMode = state.CullMode
	draw.depthClipEnable = state.DepthClipEnable
	draw.depthClipNegativeOneToOne = state.DepthClipNegativeOneToOne
	draw.sampleCount = ms
	draw.descriptorSets = pipeline.DescriptorSets
	draw.preRasterizationLayout = pipeline.PreRasterizationLayout
	draw.preRasterizationContainsImageWrite = pipeline.PreRasterizationContainsImageWrite
	draw.fragmentContainsImageWrite = pipeline.FragmentContainsImageWrite

	data.LineWidth = state.LineWidth
	data.RasterizerDiscard = discard
	data.DescriptorSets = pipeline.DescriptorSets
	data.DescriptorDynamicOffsets = pipeline.DescriptorDynamicOffsets
	data.Input = pipeline.Inputs
	data.Indices = cmd.Indices
	data.Layer = cmd.Layer
	data.InstanceID = cmd.InstanceID
	data.BaseVertex = cmd.BaseVertex
	data.PushConstants = cmd.PushConstants

	if cmd.Indices != nil {
		draw.indexType = pipeline.IndexType
	} else {
		draw.indexType = vk.IndexTypeUint16
	}

	draw.vertexRoutine = r.vertexRoutine

	r.binder.PrepareForSampling(draw.descriptorSets, draw.preRasterizationLayout, r.device)

	r.snapshotViewport(state, data)
	r.snapshotScissor(state, cmd.RenderArea, data)

	if !discard {
		draw.setupRoutine = r.setupRoutine
		draw.pixelRoutine = r.pixelRoutine
		draw.setupPrimitives = setupPrimitives
		draw.fragmentLayout = pipeline.FragmentLayout

		if state.StencilActive {
			data.Stencil[0] = state.FrontStencil
			data.Stencil[1] = state.BackStencil
		}

		data.BlendConstants = state.BlendConstants

		if state.AlphaToCoverage {
			switch ms {
			case 4:
				data.A2C = [4]float32{0.2, 0.4, 0.6, 0.8}
			case 2:
				data.A2C = [4]float32{0.25, 0.75, 0, 0}
			case 1:
				data.A2C = [4]float32{0.5, 0, 0, 0}
			default:
				unsupported("alpha-to-coverage sample count: %d", ms)
			}
		}

		if draw.occlusionQuery != nil {
			data.Occlusion = [ClusterCount]int64{}
		}

		r.snapshotAttachments(&pipeline.Attachments, draw, data)

		if pipeline.FragmentLayout != nil &&
			(pipeline.PreRasterizationLayout == nil ||
				pipeline.FragmentLayout.ID != pipeline.PreRasterizationLayout.ID) {
			r.binder.PrepareForSampling(draw.descriptorSets, pipeline.FragmentLayout, r.device)
		}
	}

	draw.events = cmd.Events

	r.run(draw)
}

// isDrawTriangle reports whether the topology assembles triangles.
func isDrawTriangle(t vk.PrimitiveTopology) bool {
	switch t {
	case vk.PrimitiveTopologyTriangleList,
		vk.PrimitiveTopologyTriangleStrip,
		vk.PrimitiveTopologyTriangleFan:
		return true
	}
	return false
}

// isDrawLine reports whether the topology assembles lines.
func isDrawLine(t vk.PrimitiveTopology) bool {
	switch t {
	case vk.PrimitiveTopologyLineList, vk.PrimitiveTopologyLineStrip:
		return true
	}
	return false
}

// snapshotViewport converts the viewport into the fixed-point scale/offset
// constants the routines consume, adjusted for the depth convention.
func (r *Renderer) snapshotViewport(state *GraphicsState, data *DrawData) {
	viewport := state.Viewport

	w := 0.5 * viewport.Width
	h := 0.5 * viewport.Height
	x0 := viewport.X + w
	y0 := viewport.Y + h
	n := viewport.MinDepth
	f := viewport.MaxDepth

	data.WxF = w * SubpixelPrecisionFactor
	data.HxF = h * SubpixelPrecisionFactor
	data.X0xF = x0*SubpixelPrecisionFactor - SubpixelPrecisionFactor/2
	data.Y0xF = y0*SubpixelPrecisionFactor - SubpixelPrecisionFactor/2
	data.HalfPixelX = 0.5 / w
	data.HalfPixelY = 0.5 / h
	data.DepthRange = f - n
	data.DepthNear = n
	data.ConstantDepthBias = state.ConstantDepthBias
	data.SlopeDepthBias = state.SlopeDepthBias
	data.DepthBiasClamp = state.DepthBiasClamp

	// With the [-w, w] depth convention the viewport transform maps the
	// doubled range onto [minDepth, maxDepth].
	if state.DepthClipNegativeOneToOne {
		data.DepthRange = (f - n) * 0.5
		data.DepthNear = (f + n) * 0.5
	}
}

// snapshotScissor clamps the scissor rectangle to the render area.
func (r *Renderer) snapshotScissor(state *GraphicsState, renderArea vk.Rect2D, data *DrawData) {
	scissor := state.Scissor

	x0 := renderArea.Offset.X
	y0 := renderArea.Offset.Y
	x1 := x0 + int32(renderArea.Extent.Width)
	y1 := y0 + int32(renderArea.Extent.Height)

	data.ScissorX0 = clamp(scissor.Offset.X, x0, x1)
	data.ScissorX1 = clamp(scissor.Offset.X+int32(scissor.Extent.Width), x0, x1)
	data.ScissorY0 = clamp(scissor.Offset.Y, y0, y1)
	data.ScissorY1 = clamp(scissor.Offset.Y+int32(scissor.Extent.Height), y0, y1)
}

// snapshotAttachments captures the raw storage of the attachments the draw
// actually writes, plus the depth-bias epsilon for the bound depth format.
func (r *Renderer) snapshotAttachments(attachments *Attachments, draw *DrawCall, data *DrawData) {
	if attachments.Depth != nil {
		switch format := attachments.Depth.Format(); format {
		case vk.FormatD16Unorm:
			// Minimum is 1 unit, padded for floating-point rounding error.
			data.MinimumResolvableDepthDifference = 1.01 / 0xFFFF
		case vk.FormatD32Sfloat:
			// Resolvable difference is determined per polygon for float
			// depth; the constant stays unused.
		default:
			unsupported("depth format: %d", int32(format))
		}
	}

	for i, target := range attachments.Color {
		draw.colorBuffer[i] = target
		if target != nil {
			data.ColorBuffer[i] = target.Bytes(data.Layer)
			data.ColorPitchB[i] = target.RowPitch()
			data.ColorSliceB[i] = target.SlicePitch()
		}
	}

	draw.depthBuffer = attachments.Depth
	draw.stencilBuffer = attachments.Stencil

	if attachments.Depth != nil {
		data.DepthBuffer = attachments.Depth.Bytes(data.Layer)
		data.DepthPitchB = attachments.Depth.RowPitch()
		data.DepthSliceB = attachments.Depth.SlicePitch()
	}

	if attachments.Stencil != nil {
		data.StencilBuffer = attachments.Stencil.Bytes(data.Layer)
		data.StencilPitchB = attachments.Stencil.RowPitch()
		data.StencilSliceB = attachments.Stencil.SlicePitch()
	}
}

// Synchronize blocks until every draw submitted before the call has fully
// completed (vertex, setup, pixel and teardown), then refreshes the
// device's sampling routine snapshot cache.
func (r *Renderer) Synchronize() {
	ticket := r.drawTickets.Take()
	ticket.Wait()
	r.device.UpdateSamplingRoutineSnapshot()
	ticket.Done()
}

// AddQuery activates an occlusion query. Draws submitted while a query is
// active accumulate per-cluster sample counts and report them at teardown.
// Only one query may be active at a time.
func (r *Renderer) AddQuery(q Query) {
	if r.occlusionQuery != nil {
		unsupported("occlusion query already active")
	}
	r.occlusionQuery = q
}

// RemoveQuery deactivates the active occlusion query. The query must be the
// one previously added.
func (r *Renderer) RemoveQuery(q Query) {
	if r.occlusionQuery != q {
		unsupported("removing an occlusion query that is not active")
	}
	r.occlusionQuery = nil
}
