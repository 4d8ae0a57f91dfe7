package swr

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swr/clip"
)

// setupFunc is the primitive-assembly strategy of a draw, selected once at
// submission by topology and polygon mode. It consumes count assembled
// triangles and returns the number of primitives that survived culling and
// clipping, each replicated once per active sample in primitives.
type setupFunc func(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int

// setupSolidTriangles sets up filled triangles: skip fully culled or
// non-finite triangles, clip the ones that straddle the view volume, and
// hand the rest to the setup routine.
func setupSolidTriangles(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int {
	ms := draw.sampleCount
	data := draw.data
	visible := 0
	out := 0

	for i := 0; i < count; i++ {
		t := &triangles[i]
		v0, v1, v2 := &t.V0, &t.V1, &t.V2

		if v0.CullMask|v1.CullMask|v2.CullMask == 0 {
			continue
		}

		// The common flags must be exactly Finite: a missing Finite bit is
		// a degenerate position, a shared plane bit means fully outside.
		if v0.ClipFlags&v1.ClipFlags&v2.ClipFlags != clip.Finite {
			continue
		}

		polygon := clip.NewPolygon(v0.Position, v1.Position, v2.Position)

		clipFlagsOr := v0.ClipFlags | v1.ClipFlags | v2.ClipFlags
		if clipFlagsOr != clip.Finite {
			if !clip.Clip(polygon, clipFlagsOr, draw.depthClipNegativeOneToOne) {
				continue
			}
		}

		if draw.setupRoutine(dev, primitives[out:out+ms], t, polygon, data) {
			out += ms
			visible++
		}
	}

	return visible
}

// setupWireframeTriangles sets up triangles in line polygon mode: facing and
// cull tests run on the whole triangle, then each surviving triangle
// decomposes into its three edges through the line setup path.
func setupWireframeTriangles(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int {
	ms := draw.sampleCount
	visible := 0
	out := 0

	for i := 0; i < count; i++ {
		v0, v1, v2 := &triangles[i].V0, &triangles[i].V1, &triangles[i].V2

		// Shoelace formula over the fixed-point screen coordinates.
		a := (float32(v0.Projected[1])-float32(v2.Projected[1]))*float32(v1.Projected[0]) +
			(float32(v2.Projected[1])-float32(v1.Projected[1]))*float32(v0.Projected[0]) +
			(float32(v1.Projected[1])-float32(v0.Projected[1]))*float32(v2.Projected[0])

		// The XOR of the w sign bits flags a perspective sign flip without
		// any divides; an odd number of negative w negates the area.
		w0w1w2 := math.Float32bits(v0.Position[3]) ^
			math.Float32bits(v1.Position[3]) ^
			math.Float32bits(v2.Position[3])
		if int32(w0w1w2) < 0 {
			a = -a
		}

		var frontFacing bool
		if draw.frontFace == vk.FrontFaceCounterClockwise {
			frontFacing = a >= 0
		} else {
			frontFacing = a <= 0
		}

		if draw.cullMode&vk.CullModeFlags(vk.CullModeFrontBit) != 0 && frontFacing {
			continue
		}
		if draw.cullMode&vk.CullModeFlags(vk.CullModeBackBit) != 0 && !frontFacing {
			continue
		}

		var lines [3]Triangle
		lines[0].V0 = *v0
		lines[0].V1 = *v1
		lines[1].V0 = *v1
		lines[1].V1 = *v2
		lines[2].V0 = *v2
		lines[2].V1 = *v0

		for j := range lines {
			if setupLine(dev, primitives[out:out+ms], &lines[j], draw) {
				out += ms
				visible++
			}
		}
	}

	return visible
}

// setupPointTriangles sets up triangles in point polygon mode: facing and
// cull tests run on the whole triangle, then each vertex of a surviving
// triangle goes through the point setup path.
func setupPointTriangles(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int {
	ms := draw.sampleCount
	visible := 0
	out := 0

	for i := 0; i < count; i++ {
		v0, v1, v2 := &triangles[i].V0, &triangles[i].V1, &triangles[i].V2

		// Homogeneous determinant: same facing sign as the screen-space
		// area but without the perspective divide.
		d := (v0.Position[1]*v1.Position[0]-v0.Position[0]*v1.Position[1])*v2.Position[3] +
			(v0.Position[0]*v2.Position[1]-v0.Position[1]*v2.Position[0])*v1.Position[3] +
			(v2.Position[0]*v1.Position[1]-v1.Position[0]*v2.Position[1])*v0.Position[3]

		var frontFacing bool
		if draw.frontFace == vk.FrontFaceCounterClockwise {
			frontFacing = d > 0
		} else {
			frontFacing = d < 0
		}

		if draw.cullMode&vk.CullModeFlags(vk.CullModeFrontBit) != 0 && frontFacing {
			continue
		}
		if draw.cullMode&vk.CullModeFlags(vk.CullModeBackBit) != 0 && !frontFacing {
			continue
		}

		var points [3]Triangle
		points[0].V0 = *v0
		points[1].V0 = *v1
		points[2].V0 = *v2

		for j := range points {
			if setupPoint(dev, primitives[out:out+ms], &points[j], draw) {
				out += ms
				visible++
			}
		}
	}

	return visible
}

// setupLines dispatches each primitive directly to the line setup path.
// Lines have no winding, so there is no facing test.
func setupLines(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int {
	ms := draw.sampleCount
	visible := 0
	out := 0

	for i := 0; i < count; i++ {
		if setupLine(dev, primitives[out:out+ms], &triangles[i], draw) {
			out += ms
			visible++
		}
	}

	return visible
}

// setupPoints dispatches each primitive directly to the point setup path.
func setupPoints(dev Device, triangles []Triangle, primitives []Primitive, draw *DrawCall, count int) int {
	ms := draw.sampleCount
	visible := 0
	out := 0

	for i := 0; i < count; i++ {
		if setupPoint(dev, primitives[out:out+ms], &triangles[i], draw) {
			out += ms
			visible++
		}
	}

	return visible
}
