package swr

// Shared test doubles for the renderer tests: a recording device, a
// recording descriptor binder, a counting occlusion query, and routine
// stubs that stand in for compiled shaders.

import (
	"sync"
	"sync/atomic"
	"time"

	vk "github.com/goki/vulkan"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/swr/clip"
)

type testDevice struct {
	snapshots atomic.Int32
}

func (d *testDevice) UpdateSamplingRoutineSnapshot() {
	d.snapshots.Add(1)
}

type testBinder struct {
	mu       sync.Mutex
	prepared []*PipelineLayout
	changed  []*PipelineLayout
}

func (b *testBinder) PrepareForSampling(sets []DescriptorSet, layout *PipelineLayout, dev Device) {
	b.mu.Lock()
	b.prepared = append(b.prepared, layout)
	b.mu.Unlock()
}

func (b *testBinder) ContentsChanged(sets []DescriptorSet, layout *PipelineLayout, dev Device) {
	b.mu.Lock()
	b.changed = append(b.changed, layout)
	b.mu.Unlock()
}

func (b *testBinder) changedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changed)
}

type testQuery struct {
	mu       sync.Mutex
	started  int
	finished int
	total    int64
}

func (q *testQuery) Start() {
	q.mu.Lock()
	q.started++
	q.mu.Unlock()
}

func (q *testQuery) Add(count int64) {
	q.mu.Lock()
	q.total += count
	q.mu.Unlock()
}

func (q *testQuery) Finish() {
	q.mu.Lock()
	q.finished++
	q.mu.Unlock()
}

// testAttachment is a recording Attachment over a flat byte slice.
type testAttachment struct {
	format  vk.Format
	storage []byte
	changed atomic.Int32
}

func (a *testAttachment) Bytes(layer int32) []byte       { return a.storage }
func (a *testAttachment) RowPitch() int                  { return 256 }
func (a *testAttachment) SlicePitch() int                { return 4096 }
func (a *testAttachment) Format() vk.Format              { return a.format }
func (a *testAttachment) ContentsChanged(kind AccessKind) { a.changed.Add(1) }

// routineSet is a RoutineSource returning fixed stub routines.
type routineSet struct {
	vertex VertexRoutine
	setup  SetupRoutine
	pixel  PixelRoutine
}

func (s routineSet) ResolveVertex(state *GraphicsState) VertexRoutine { return s.vertex }
func (s routineSet) ResolveSetup(state *GraphicsState) SetupRoutine  { return s.setup }
func (s routineSet) ResolvePixel(state *GraphicsState, occlusionActive bool) PixelRoutine {
	return s.pixel
}

// transformVertex applies the viewport transform the way a compiled vertex
// routine would: clip flags from the clip-space position, fixed-point screen
// coordinates for positions inside the volume.
func transformVertex(data *DrawData, pos f32.Vec4) Vertex {
	v := Vertex{Position: pos, PointSize: 1, CullMask: 0xF}
	v.ClipFlags = clip.ComputeClipFlags(pos, false)
	if v.ClipFlags&clip.Finite != 0 && pos[3] > 0 {
		v.Projected[0] = int32(data.WxF*(pos[0]/pos[3]) + data.X0xF)
		v.Projected[1] = int32(data.HxF*(pos[1]/pos[3]) + data.Y0xF)
	}
	return v
}

// insideTriangle is a triangle comfortably inside the view volume.
var insideTriangle = [3]f32.Vec4{
	{-0.5, -0.5, 0.5, 1},
	{0.5, -0.5, 0.5, 1},
	{0, 0.5, 0.5, 1},
}

// constantVertexRoutine fills every primitive slot with insideTriangle,
// optionally sleeping first to simulate a slow vertex stage, with the given
// cull mask on every vertex.
func constantVertexRoutine(delay time.Duration, cullMask int) VertexRoutine {
	return func(dev Device, out []Triangle, indices *BatchIndices, task *VertexTask, data *DrawData) {
		if delay > 0 {
			time.Sleep(delay)
		}
		for i := uint32(0); i < task.VertexCount; i++ {
			v := transformVertex(data, insideTriangle[i%3])
			v.CullMask = cullMask
			tri := &out[i/3]
			switch i % 3 {
			case 0:
				tri.V0 = v
			case 1:
				tri.V1 = v
			case 2:
				tri.V2 = v
			}
		}
	}
}

// passSetup accepts every primitive without filling rasterizer state.
func passSetup(dev Device, prims []Primitive, tri *Triangle, poly *clip.Polygon, data *DrawData) bool {
	return true
}

// clusterLog records, per cluster, the label of each pixel-stage invocation
// in the order it ran. Draw tests put the label in PushConstants[0].
type clusterLog struct {
	mu         sync.Mutex
	perCluster [ClusterCount][]byte
}

func (l *clusterLog) record(cluster int, label byte) {
	l.mu.Lock()
	l.perCluster[cluster] = append(l.perCluster[cluster], label)
	l.mu.Unlock()
}

func (l *clusterLog) cluster(i int) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.perCluster[i]...)
}

func recordingPixel(log *clusterLog) PixelRoutine {
	return func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
		log.record(cluster, data.PushConstants[0])
	}
}

// testPipeline builds a minimal solid-triangle pipeline over a 64x64 target.
func testPipeline(rs RoutineSource) *Pipeline {
	return &Pipeline{
		State: GraphicsState{
			Topology:        vk.PrimitiveTopologyTriangleList,
			PolygonMode:     vk.PolygonModeFill,
			FrontFace:       vk.FrontFaceCounterClockwise,
			LineWidth:       1,
			DepthClipEnable: true,
			Viewport:        vk.Viewport{Width: 64, Height: 64, MaxDepth: 1},
			Scissor:         vk.Rect2D{Extent: vk.Extent2D{Width: 64, Height: 64}},
			SampleCount:     1,
		},
		PreRasterizationLayout: NewPipelineLayout(),
		Routines:               rs,
	}
}

func testRenderArea() vk.Rect2D {
	return vk.Rect2D{Extent: vk.Extent2D{Width: 64, Height: 64}}
}

// setupDraw builds a bare DrawCall for direct setup-stage tests over a
// square viewport of the given pixel size.
func setupDraw(viewportSize float32) *DrawCall {
	state := &GraphicsState{
		Viewport: vk.Viewport{Width: viewportSize, Height: viewportSize, MaxDepth: 1},
	}
	d := &DrawCall{data: &DrawData{}}
	(&Renderer{}).snapshotViewport(state, d.data)
	d.data.LineWidth = 1
	d.depthClipEnable = true
	d.sampleCount = 1
	return d
}

// setupRecorder is a SetupRoutine stub that records each invocation's
// clipped polygon and primitive slice length.
type setupRecorder struct {
	calls    int
	polys    [][]f32.Vec4
	primLens []int
	reject   bool
}

func (s *setupRecorder) routine(dev Device, prims []Primitive, tri *Triangle, poly *clip.Polygon, data *DrawData) bool {
	s.calls++
	s.polys = append(s.polys, append([]f32.Vec4(nil), poly.Vertices()...))
	s.primLens = append(s.primLens, len(prims))
	return !s.reject
}

// labeledCommand builds a DrawCommand whose pixel invocations carry label.
func labeledCommand(p *Pipeline, count int, label byte) *DrawCommand {
	cmd := &DrawCommand{
		Pipeline:   p,
		Count:      count,
		RenderArea: testRenderArea(),
		Update:     true,
	}
	cmd.PushConstants[0] = label
	return cmd
}
