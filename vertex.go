package swr

import vk "github.com/goki/vulkan"

// VertexCacheSize is the number of post-transform vertices a batch's cache
// can hold. Power of two so the tag is a cheap mask.
const VertexCacheSize = 64

const vertexCacheTagMask = VertexCacheSize - 1

const emptyCacheTag = ^uint32(0)

// VertexCache is a small post-transform cache. Vertices shared between
// primitives of the same draw are transformed once and reused; the cache is
// invalidated whenever its recorded owner differs from the current draw.
//
// The cache belongs to a batch and is only touched by that batch's vertex
// stage, so no locking is involved.
type VertexCache struct {
	// drawCall is the identifier of the draw the cached vertices belong to.
	drawCall uint64

	tags     [VertexCacheSize]uint32
	vertices [VertexCacheSize]Vertex
}

// Clear invalidates every cache entry.
func (c *VertexCache) Clear() {
	for i := range c.tags {
		c.tags[i] = emptyCacheTag
	}
}

// Lookup returns the cached vertex for a source index, or nil on a miss.
func (c *VertexCache) Lookup(index uint32) *Vertex {
	slot := index & vertexCacheTagMask
	if c.tags[slot] != index {
		return nil
	}
	return &c.vertices[slot]
}

// Store records the transformed vertex for a source index.
func (c *VertexCache) Store(index uint32, v *Vertex) {
	slot := index & vertexCacheTagMask
	c.tags[slot] = index
	c.vertices[slot] = *v
}

// VertexTask is the vertex stage's view of one batch: how many vertices to
// transform, where the batch starts, and the batch's transform cache.
type VertexTask struct {
	// VertexCount is the number of index slots to transform. Point batches
	// are compacted to one vertex per primitive; everything else uses three
	// slots per primitive.
	VertexCount uint32

	// PrimitiveStart is the batch's first primitive within the draw.
	PrimitiveStart uint32

	// Cache is the batch's post-transform vertex cache.
	Cache VertexCache
}

// processVertices assembles the batch's index triples and invokes the draw's
// compiled vertex routine to transform the addressed source vertices into
// the batch's triangle buffer.
func (r *Renderer) processVertices(draw *DrawCall, batch *BatchData) {
	var indices BatchIndices
	assemblePrimitiveIndices(
		&indices,
		draw.data.Indices,
		draw.indexType,
		batch.firstPrimitive,
		batch.numPrimitives,
		draw.topology,
		draw.provokingVertexMode,
	)

	task := &batch.vertexTask
	task.PrimitiveStart = batch.firstPrimitive
	// Batch compaction applies to points only, not lines.
	if draw.topology == vk.PrimitiveTopologyPointList {
		task.VertexCount = batch.numPrimitives
	} else {
		task.VertexCount = batch.numPrimitives * 3
	}
	if task.Cache.drawCall != draw.id {
		task.Cache.Clear()
		task.Cache.drawCall = draw.id
	}

	draw.vertexRoutine(r.device, batch.triangles[:], &indices, task, draw.data)
}
