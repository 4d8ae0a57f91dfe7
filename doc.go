// Package swr is the draw-dispatch and rasterization core of a software
// Vulkan-class renderer.
//
// # Overview
//
// Given a fully resolved pipeline state and a primitive count, the renderer
// splits the work into parallel, order-respecting batches: vertex
// transformation, per-topology primitive assembly with culling and
// clipping, and pixel shading. Throughout, draw calls appear to execute in
// submission order even though batches run concurrently across CPU cores.
//
// # Quick Start
//
//	import "github.com/gogpu/swr"
//
//	r := swr.NewRenderer(device, binder, nil)
//	defer r.Close()
//
//	r.Draw(&swr.DrawCommand{
//	    Pipeline:   pipeline,
//	    Count:      triangleCount,
//	    RenderArea: renderArea,
//	    Update:     true,
//	})
//	r.Synchronize()
//
// # Ordering Model
//
// Two ticket queues carry the ordering guarantees. A global queue orders
// whole-draw completion: teardown side effects (occlusion results, event
// signaling, contents-changed notifications) become visible in strict
// submission order. One independent queue per screen-space cluster orders
// pixel-stage writes: within a cluster, writes land in the order the
// cluster tickets were reserved, which is submission order of draws and
// batch order within a draw, regardless of how vertex and setup work
// actually interleave.
//
// # Architecture
//
// The module is organized into:
//   - Public API: Renderer, DrawCommand, Pipeline, routine contracts
//   - clip: homogeneous-coordinate polygon clipping
//   - internal/sched: ticket queues, worker pool, bounded object pools
//
// Shading routines (vertex, setup, pixel) are compiled elsewhere and
// consumed here as opaque callables with a fixed calling contract; pipeline
// compilation, resource binding and image storage are external
// collaborators reached through small interfaces.
package swr
