package swr

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swr/clip"
	"github.com/gogpu/swr/internal/sched"
)

// DrawCall is one submitted draw command instance. It is owned exclusively
// by the renderer for its lifetime: borrowed from the draw pool at
// submission, immutable once published to batch tasks (except the occlusion
// counters in its data block), and returned to the pool only after teardown
// has run and its completion ticket has been released.
type DrawCall struct {
	id uint64

	// data is the exclusively owned per-draw uniform block, allocated once
	// with the DrawCall and recycled with it.
	data *DrawData

	topology              vk.PrimitiveTopology
	provokingVertexMode   ProvokingVertexMode
	lineRasterizationMode LineRasterizationMode
	indexType             vk.IndexType

	frontFace vk.FrontFace
	cullMode  vk.CullModeFlags

	depthClipEnable           bool
	depthClipNegativeOneToOne bool

	sampleCount int

	numPrimitives         uint32
	numPrimitivesPerBatch uint32
	numBatches            uint32

	vertexRoutine   VertexRoutine
	setupRoutine    SetupRoutine
	pixelRoutine    PixelRoutine
	setupPrimitives setupFunc

	preRasterizationLayout *PipelineLayout
	fragmentLayout         *PipelineLayout
	descriptorSets         []DescriptorSet

	preRasterizationContainsImageWrite bool
	fragmentContainsImageWrite         bool

	colorBuffer   [MaxColorBuffers]Attachment
	depthBuffer   Attachment
	stencilBuffer Attachment

	occlusionQuery Query
	events         *sched.CountedEvent

	// refs counts the batches still holding the draw alive. The batch that
	// drops it to zero schedules teardown on the completion ticket.
	refs atomic.Int32

	completionTicket sched.Ticket
}

// clipPlanes returns the clip-plane mask for line and point expansion:
// the full frustum when depth clipping is enabled, only the side planes
// when depth values are clamped instead.
func (d *DrawCall) clipPlanes() int {
	if d.depthClipEnable {
		return clip.Frustum
	}
	return clip.Sides
}

// setup runs the draw's pre-flight side effects on the submitting thread:
// starting the occlusion query and raising the completion event count.
func (d *DrawCall) setup() {
	if d.occlusionQuery != nil {
		d.occlusionQuery.Start()
	}
	if d.events != nil {
		d.events.Add()
	}
}

// teardown performs the draw's side-effecting completion work: event
// signaling, occlusion result collection, and contents-changed
// notifications. It runs exactly once per draw, when the draw's completion
// ticket reaches the head of the global queue.
func (d *DrawCall) teardown(r *Renderer) {
	if d.events != nil {
		d.events.Done()
		d.events = nil
	}

	d.vertexRoutine = nil
	d.setupRoutine = nil
	d.pixelRoutine = nil
	d.setupPrimitives = nil

	if d.preRasterizationContainsImageWrite {
		r.binder.ContentsChanged(d.descriptorSets, d.preRasterizationLayout, r.device)
	}

	if !d.data.RasterizerDiscard {
		if d.occlusionQuery != nil {
			for cluster := 0; cluster < ClusterCount; cluster++ {
				d.occlusionQuery.Add(d.data.Occlusion[cluster])
			}
			d.occlusionQuery.Finish()
		}

		for _, target := range d.colorBuffer {
			if target != nil {
				target.ContentsChanged(AccessDirect)
			}
		}

		// If pre-rasterization and fragment use the same pipeline layout,
		// and pre-rasterization also contains image writes, don't notify
		// the descriptor sets twice.
		sameLayout := d.fragmentLayout == d.preRasterizationLayout ||
			(d.fragmentLayout != nil && d.preRasterizationLayout != nil &&
				d.fragmentLayout.ID == d.preRasterizationLayout.ID)
		alreadyNotified := d.preRasterizationContainsImageWrite && sameLayout
		if d.fragmentContainsImageWrite && !alreadyNotified {
			r.binder.ContentsChanged(d.descriptorSets, d.fragmentLayout, r.device)
		}
	}
}

// release drops one batch reference. The last release sequences teardown on
// the draw-completion queue so teardown side effects become visible in
// strict submission order, then recycles the draw.
func (d *DrawCall) release(r *Renderer) {
	if d.refs.Add(-1) != 0 {
		return
	}

	ticket := d.completionTicket
	ticket.OnReady(func() {
		Logger().Debug("draw retired", "draw", d.id)
		d.teardown(r)
		ticket.Done()

		d.data.reset()
		d.descriptorSets = nil
		d.occlusionQuery = nil
		for i := range d.colorBuffer {
			d.colorBuffer[i] = nil
		}
		d.depthBuffer = nil
		d.stencilBuffer = nil
		r.drawCallPool.Return(d)
	})
}

// BatchData is one partition of a draw's primitive range, sized for SIMD
// overrun: the triangle buffer has one slot beyond the batch capacity so
// fixed-width vector reads past the logical end stay in owned memory.
//
// A batch is borrowed from the batch pool when the draw fans out and
// returned once all of its cluster tickets have been released.
type BatchData struct {
	id uint32

	firstPrimitive uint32
	numPrimitives  uint32

	triangles  [MaxBatchSize + 1]Triangle
	primitives [MaxBatchSize]Primitive

	// numVisible is the count of primitives that survived culling and
	// clipping, written by the setup stage.
	numVisible int

	// clusterTickets order this batch's pixel work against every other
	// batch touching the same cluster. Taken in submission order before the
	// batch task is scheduled.
	clusterTickets [ClusterCount]sched.Ticket

	// pendingClusters counts cluster continuations still running; the last
	// one returns the batch to the pool.
	pendingClusters atomic.Int32

	vertexTask VertexTask
}

// run fans a populated draw out to the worker pool: one completion ticket
// for the whole draw, then one batch task per primitive partition, each
// holding one ticket per screen-space cluster. Reservation order here is
// what fixes the final write order; the tasks themselves may run and finish
// in any order.
func (r *Renderer) run(draw *DrawCall) {
	draw.setup()

	draw.completionTicket = r.drawTickets.Take()
	draw.refs.Store(int32(draw.numBatches))

	for batchID := uint32(0); batchID < draw.numBatches; batchID++ {
		batch := r.batchPool.Borrow()
		batch.id = batchID
		batch.firstPrimitive = batchID * draw.numPrimitivesPerBatch
		batch.numPrimitives = min(draw.numPrimitives-batch.firstPrimitive, draw.numPrimitivesPerBatch)
		batch.numVisible = 0

		for cluster := 0; cluster < ClusterCount; cluster++ {
			batch.clusterTickets[cluster] = r.clusterQueues[cluster].Take()
		}

		r.pool.Submit(func() {
			r.processBatch(draw, batch)
		})
	}
}

// processBatch is one scheduled unit of work: vertex stage, then primitive
// setup, then pixel dispatch. A batch with nothing visible releases its
// cluster tickets immediately so it never stalls the ordering queues later
// batches and draws are waiting on.
func (r *Renderer) processBatch(draw *DrawCall, batch *BatchData) {
	r.processVertices(draw, batch)

	if !draw.data.RasterizerDiscard {
		r.processPrimitives(draw, batch)

		if batch.numVisible > 0 {
			r.processPixels(draw, batch)
			return
		}
	}

	for cluster := 0; cluster < ClusterCount; cluster++ {
		batch.clusterTickets[cluster].Done()
	}
	r.batchPool.Return(batch)
	draw.release(r)
}

// processPrimitives runs the draw's primitive-assembly strategy over the
// batch's transformed triangles.
func (r *Renderer) processPrimitives(draw *DrawCall, batch *BatchData) {
	batch.numVisible = draw.setupPrimitives(
		r.device,
		batch.triangles[:batch.numPrimitives],
		batch.primitives[:],
		draw,
		int(batch.numPrimitives),
	)
}

// processPixels attaches the batch's pixel work to its cluster tickets. Each
// continuation runs exactly when its ticket reaches the head of the
// cluster's queue, guaranteeing that the pixel effects of earlier-submitted
// work on that cluster are fully applied first. Workers are never blocked:
// the continuation runs on whichever goroutine releases the preceding
// ticket.
func (r *Renderer) processPixels(draw *DrawCall, batch *BatchData) {
	batch.pendingClusters.Store(ClusterCount)

	for cluster := 0; cluster < ClusterCount; cluster++ {
		ticket := batch.clusterTickets[cluster]
		ticket.OnReady(func() {
			draw.pixelRoutine(r.device, batch.primitives[:], batch.numVisible, cluster, ClusterCount, draw.data)
			ticket.Done()

			if batch.pendingClusters.Add(-1) == 0 {
				r.batchPool.Return(batch)
				draw.release(r)
			}
		})
	}
}
