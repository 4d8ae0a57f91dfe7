package swr

import (
	"sync/atomic"
	"testing"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swr/internal/sched"
)

// =============================================================================
// Submission Tests
// =============================================================================

func TestRenderer_ZeroCountIsNoop(t *testing.T) {
	dev := &testDevice{}
	binder := &testBinder{}
	r := NewRenderer(dev, binder, nil)
	defer r.Close()

	var log clusterLog
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	r.Draw(labeledCommand(p, 0, 1))
	r.Synchronize()

	for c := 0; c < ClusterCount; c++ {
		if got := log.cluster(c); len(got) != 0 {
			t.Fatalf("cluster %d saw %v pixel invocations for a zero-count draw", c, got)
		}
	}
	if len(binder.prepared) != 0 {
		t.Error("binder was notified for a zero-count draw")
	}
}

func TestRenderer_NegativeCountIsNoop(t *testing.T) {
	dev := &testDevice{}
	binder := &testBinder{}
	r := NewRenderer(dev, binder, nil)
	defer r.Close()

	var log clusterLog
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	r.Draw(labeledCommand(p, -1, 1))
	r.Synchronize()

	for c := 0; c < ClusterCount; c++ {
		if got := log.cluster(c); len(got) != 0 {
			t.Fatalf("cluster %d saw %v pixel invocations for a negative-count draw", c, got)
		}
	}
	if len(binder.prepared) != 0 {
		t.Error("binder was notified for a negative-count draw")
	}
}

func TestRenderer_DrawReachesEveryCluster(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var log clusterLog
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	r.Draw(labeledCommand(p, 1, 7))
	r.Synchronize()

	for c := 0; c < ClusterCount; c++ {
		got := log.cluster(c)
		if len(got) != 1 || got[0] != 7 {
			t.Errorf("cluster %d = %v, want [7]", c, got)
		}
	}
}

// A slow earlier draw must still apply its pixel work to every cluster
// before a fast later draw, even though both run concurrently on the pool.
func TestRenderer_ClusterWritesInSubmissionOrder(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var log clusterLog
	slow := testPipeline(routineSet{
		vertex: constantVertexRoutine(50*time.Millisecond, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})
	fast := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	r.Draw(labeledCommand(slow, 1, 1))
	r.Draw(labeledCommand(fast, 1, 2))
	r.Synchronize()

	for c := 0; c < ClusterCount; c++ {
		got := log.cluster(c)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("cluster %d = %v, want [1 2]", c, got)
		}
	}
}

func TestRenderer_FullyCulledDrawDoesNotStall(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var log clusterLog
	culled := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0), // cull mask zero on every vertex
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})
	visible := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	r.Draw(labeledCommand(culled, 4, 1))
	r.Draw(labeledCommand(visible, 1, 2))
	r.Synchronize()

	for c := 0; c < ClusterCount; c++ {
		got := log.cluster(c)
		if len(got) != 1 || got[0] != 2 {
			t.Errorf("cluster %d = %v, want [2]", c, got)
		}
	}
}

func TestRenderer_MultipleBatches(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var pixelRuns atomic.Int32
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel: func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
			pixelRuns.Add(1)
		},
	})

	// One more primitive than fits in a batch forces a second batch.
	r.Draw(labeledCommand(p, MaxBatchSize+1, 1))
	r.Synchronize()

	want := int32(2 * ClusterCount)
	if got := pixelRuns.Load(); got != want {
		t.Errorf("pixel invocations = %d, want %d (two batches, every cluster)", got, want)
	}
}

// Wireframe polygon mode expands each triangle into three lines, which
// shrinks the batch capacity by the same factor.
func TestRenderer_WireframeSpansMultipleBatches(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var pixelRuns, visibleLines atomic.Int32
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel: func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
			pixelRuns.Add(1)
			if cluster == 0 {
				visibleLines.Add(int32(visible))
			}
		},
	})
	p.State.PolygonMode = vk.PolygonModeLine

	// One more triangle than fits in a wireframe batch forces a second
	// batch.
	perBatch := MaxBatchSize / 3
	r.Draw(labeledCommand(p, perBatch+1, 1))
	r.Synchronize()

	if want := int32(2 * ClusterCount); pixelRuns.Load() != want {
		t.Errorf("pixel invocations = %d, want %d (two batches, every cluster)", pixelRuns.Load(), want)
	}
	if want := int32(3 * (perBatch + 1)); visibleLines.Load() != want {
		t.Errorf("visible lines = %d, want %d (three edges per triangle)", visibleLines.Load(), want)
	}
}

func TestRenderer_RasterizerDiscardRunsVertexOnly(t *testing.T) {
	dev := &testDevice{}
	binder := &testBinder{}
	r := NewRenderer(dev, binder, nil)
	defer r.Close()

	var vertexRuns, pixelRuns atomic.Int32
	p := testPipeline(routineSet{
		vertex: func(dev Device, out []Triangle, indices *BatchIndices, task *VertexTask, data *DrawData) {
			vertexRuns.Add(1)
		},
		setup: passSetup,
		pixel: func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
			pixelRuns.Add(1)
		},
	})
	p.State.RasterizerDiscard = true

	r.Draw(labeledCommand(p, 8, 1))
	r.Synchronize()

	if vertexRuns.Load() != 1 {
		t.Errorf("vertex runs = %d, want 1", vertexRuns.Load())
	}
	if pixelRuns.Load() != 0 {
		t.Errorf("pixel runs = %d, want 0 with rasterizer discard", pixelRuns.Load())
	}
}

func TestRenderer_RoutinesReusedWithoutUpdate(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var first, second clusterLog
	p1 := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&first),
	})
	p2 := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&second),
	})

	r.Draw(labeledCommand(p1, 1, 1))

	// Without Update the previously resolved routines stay bound, so the
	// second draw's pixels land in the first recorder.
	cmd := labeledCommand(p2, 1, 2)
	cmd.Update = false
	r.Draw(cmd)
	r.Synchronize()

	got := first.cluster(0)
	if len(got) != 2 || got[1] != 2 {
		t.Errorf("first recorder cluster 0 = %v, want [1 2]", got)
	}
	if len(second.cluster(0)) != 0 {
		t.Errorf("second recorder saw %v, want nothing", second.cluster(0))
	}
}

// =============================================================================
// Completion Tests
// =============================================================================

func TestRenderer_EventsReleasedAtTeardown(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	var log clusterLog
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(10*time.Millisecond, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&log),
	})

	var events sched.CountedEvent
	cmd := labeledCommand(p, 1, 1)
	cmd.Events = &events
	r.Draw(cmd)

	events.Wait()

	// The event fires during teardown, after every cluster's pixel work.
	for c := 0; c < ClusterCount; c++ {
		if len(log.cluster(c)) != 1 {
			t.Errorf("cluster %d had no pixel work when the event fired", c)
		}
	}
}

func TestRenderer_SynchronizeRefreshesSnapshot(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	r.Synchronize()
	if dev.snapshots.Load() != 1 {
		t.Errorf("snapshot refreshes = %d, want 1", dev.snapshots.Load())
	}
}

func TestRenderer_DrawPoolRecycles(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, &Config{
		Workers:          2,
		DrawCallPoolSize: 2,
		BatchPoolSize:    2,
	})
	defer r.Close()

	var pixelRuns atomic.Int32
	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel: func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
			pixelRuns.Add(1)
		},
	})

	// Far more draws than the pool holds; submission applies back-pressure
	// and recycles retired draws.
	const draws = 16
	for i := 0; i < draws; i++ {
		r.Draw(labeledCommand(p, 1, byte(i)))
	}
	r.Synchronize()

	if got := pixelRuns.Load(); got != draws*ClusterCount {
		t.Errorf("pixel invocations = %d, want %d", got, draws*ClusterCount)
	}
}

// =============================================================================
// Descriptor Notification Tests
// =============================================================================

func TestRenderer_ImageWriteNotifications(t *testing.T) {
	tests := []struct {
		name         string
		sharedLayout bool
		nilLayouts   bool
		wantChanged  int
	}{
		// Same layout for both stage groups: one notification suffices.
		{"shared layout deduplicates", true, false, 1},
		// Distinct layouts: both stage groups notify.
		{"distinct layouts notify twice", false, false, 2},
		// No layout on either stage group still counts as shared.
		{"nil layouts deduplicate", false, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &testDevice{}
			binder := &testBinder{}
			r := NewRenderer(dev, binder, nil)
			defer r.Close()

			p := testPipeline(routineSet{
				vertex: constantVertexRoutine(0, 0xF),
				setup:  passSetup,
				pixel:  recordingPixel(&clusterLog{}),
			})
			p.PreRasterizationContainsImageWrite = true
			p.FragmentContainsImageWrite = true
			switch {
			case tt.nilLayouts:
				p.PreRasterizationLayout = nil
				p.FragmentLayout = nil
			case tt.sharedLayout:
				p.FragmentLayout = p.PreRasterizationLayout
			default:
				p.FragmentLayout = NewPipelineLayout()
			}

			r.Draw(labeledCommand(p, 1, 1))
			r.Synchronize()

			if got := binder.changedCount(); got != tt.wantChanged {
				t.Errorf("ContentsChanged calls = %d, want %d", got, tt.wantChanged)
			}
		})
	}
}

// =============================================================================
// State Snapshot Tests
// =============================================================================

func TestRenderer_AlphaToCoverageThresholds(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		want    [4]float32
	}{
		{"1 sample", 1, [4]float32{0.5, 0, 0, 0}},
		{"2 samples", 2, [4]float32{0.25, 0.75, 0, 0}},
		{"4 samples", 4, [4]float32{0.2, 0.4, 0.6, 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &testDevice{}
			r := NewRenderer(dev, &testBinder{}, nil)
			defer r.Close()

			var got [4]float32
			p := testPipeline(routineSet{
				vertex: func(dev Device, out []Triangle, indices *BatchIndices, task *VertexTask, data *DrawData) {
					got = data.A2C
				},
				setup: passSetup,
				pixel: recordingPixel(&clusterLog{}),
			})
			p.State.AlphaToCoverage = true
			p.State.SampleCount = tt.samples

			r.Draw(labeledCommand(p, 1, 1))
			r.Synchronize()

			if got != tt.want {
				t.Errorf("thresholds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderer_AlphaToCoverageUnsupportedSampleCountFaults(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&clusterLog{}),
	})
	p.State.AlphaToCoverage = true
	p.State.SampleCount = 8

	defer func() {
		if recover() == nil {
			t.Error("alpha-to-coverage with 8 samples should fault")
		}
	}()
	r.Draw(labeledCommand(p, 1, 1))
}

func TestRenderer_InvalidPolygonModeFaults(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel:  recordingPixel(&clusterLog{}),
	})
	p.State.PolygonMode = vk.PolygonMode(99)

	defer func() {
		if recover() == nil {
			t.Error("an invalid polygon mode should fault")
		}
	}()
	r.Draw(labeledCommand(p, 1, 1))
}

func TestRenderer_DepthFormatEpsilon(t *testing.T) {
	tests := []struct {
		name   string
		format vk.Format
		want   float32
	}{
		// Fixed-point depth resolves one unit, padded for rounding error.
		{"d16 unorm", vk.FormatD16Unorm, 1.01 / 0xFFFF},
		// Float depth resolves per polygon; no fixed epsilon.
		{"d32 sfloat", vk.FormatD32Sfloat, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth := &testAttachment{format: tt.format, storage: make([]byte, 4096)}
			d := &DrawCall{data: &DrawData{}}
			(&Renderer{}).snapshotAttachments(&Attachments{Depth: depth}, d, d.data)

			if got := d.data.MinimumResolvableDepthDifference; got != tt.want {
				t.Errorf("MinimumResolvableDepthDifference = %g, want %g", got, tt.want)
			}
			if d.data.DepthBuffer == nil || d.data.DepthPitchB != depth.RowPitch() {
				t.Errorf("depth storage not captured: buffer set = %v, pitch = %d",
					d.data.DepthBuffer != nil, d.data.DepthPitchB)
			}
		})
	}
}

func TestRenderer_UnsupportedDepthFormatFaults(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("packed depth-stencil format should fault")
		}
	}()
	depth := &testAttachment{format: vk.FormatD24UnormS8Uint, storage: make([]byte, 4096)}
	d := &DrawCall{data: &DrawData{}}
	(&Renderer{}).snapshotAttachments(&Attachments{Depth: depth}, d, d.data)
}

// =============================================================================
// Occlusion Query Tests
// =============================================================================

func TestRenderer_OcclusionQueryAccumulates(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	p := testPipeline(routineSet{
		vertex: constantVertexRoutine(0, 0xF),
		setup:  passSetup,
		pixel: func(dev Device, prims []Primitive, visible, cluster, clusterCount int, data *DrawData) {
			// One covered sample per cluster.
			data.Occlusion[cluster]++
		},
	})

	q := &testQuery{}
	r.AddQuery(q)
	r.Draw(labeledCommand(p, 1, 1))
	r.Draw(labeledCommand(p, 1, 2))
	r.Synchronize()
	r.RemoveQuery(q)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started != 2 || q.finished != 2 {
		t.Errorf("started/finished = %d/%d, want 2/2", q.started, q.finished)
	}
	if want := int64(2 * ClusterCount); q.total != want {
		t.Errorf("accumulated samples = %d, want %d", q.total, want)
	}
}

func TestRenderer_SecondQueryPanics(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	r.AddQuery(&testQuery{})
	defer func() {
		if recover() == nil {
			t.Error("adding a second query should panic")
		}
	}()
	r.AddQuery(&testQuery{})
}

func TestRenderer_RemoveWrongQueryPanics(t *testing.T) {
	dev := &testDevice{}
	r := NewRenderer(dev, &testBinder{}, nil)
	defer r.Close()

	r.AddQuery(&testQuery{})
	defer func() {
		if recover() == nil {
			t.Error("removing a query that is not active should panic")
		}
	}()
	r.RemoveQuery(&testQuery{})
}
