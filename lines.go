package swr

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/swr/clip"
)

// setupLine expands one line segment into a quadrilateral, clips it, and
// hands it to the setup routine. Returns false for segments that are fully
// culled, entirely behind the eye, or degenerate.
func setupLine(dev Device, prims []Primitive, line *Triangle, draw *DrawCall) bool {
	v0, v1 := &line.V0, &line.V1

	if v0.CullMask|v1.CullMask == 0 {
		return false
	}

	p0 := v0.Position
	p1 := v1.Position

	if p0[3] <= 0 && p1[3] <= 0 {
		return false
	}

	data := draw.data
	lineWidth := data.LineWidth
	clipFlags := draw.clipPlanes()

	w := data.WxF * (1.0 / SubpixelPrecisionFactor)
	h := data.HxF * (1.0 / SubpixelPrecisionFactor)

	// Screen-space direction of the segment.
	dx := w * (p1[0]/p1[3] - p0[0]/p0[3])
	dy := h * (p1[1]/p1[3] - p0[1]/p0[3])

	if dx == 0 && dy == 0 {
		return false
	}

	if draw.lineRasterizationMode != LineRasterizationBresenham {
		// Rectangle centered on the line segment. Each endpoint is offset
		// perpendicular to the segment direction, scaled back to clip space
		// by that endpoint's own w so the width is uniform after the
		// perspective divide.
		scale := lineWidth * 0.5 / float32(math.Sqrt(float64(dx*dx+dy*dy)))

		sdx := dx * scale
		sdy := dy * scale

		dx0h := sdx * p0[3] / h
		dy0w := sdy * p0[3] / w

		dx1h := sdx * p1[3] / h
		dy1w := sdy * p1[3] / w

		quad := [4]f32.Vec4{p0, p1, p1, p0}

		quad[0][0] -= dy0w
		quad[0][1] += dx0h

		quad[1][0] -= dy1w
		quad[1][1] += dx1h

		quad[2][0] += dy1w
		quad[2][1] -= dx1h

		quad[3][0] += dy0w
		quad[3][1] -= dx0h

		polygon := clip.NewPolygon(quad[:]...)

		if !clip.Clip(polygon, clipFlags, draw.depthClipNegativeOneToOne) {
			return false
		}

		return draw.setupRoutine(dev, prims, line, polygon, data)
	}

	// Parallelogram approximating a Bresenham line. This does not satisfy
	// the ideal diamond-exit rule, but avoids rasterizing the shared
	// endpoint of connected segments twice and satisfies the API's minimum
	// requirements for Bresenham segment rasterization.
	//
	// Build the four axis-aligned offsets of each endpoint's diamond, then
	// pick the parallelogram corners by the dominant axis and sign of the
	// direction vector.
	dx0 := lineWidth * 0.5 * p0[3] / w
	dy0 := lineWidth * 0.5 * p0[3] / h

	dx1 := lineWidth * 0.5 * p1[3] / w
	dy1 := lineWidth * 0.5 * p1[3] / h

	corners := [8]f32.Vec4{p0, p0, p0, p0, p1, p1, p1, p1}

	corners[0][0] -= dx0
	corners[1][1] += dy0
	corners[2][0] += dx0
	corners[3][1] -= dy0
	corners[4][0] -= dx1
	corners[5][1] += dy1
	corners[6][0] += dx1
	corners[7][1] -= dy1

	var quad [4]f32.Vec4

	if dx > -dy {
		if dx > dy { // Right
			quad[0] = corners[1]
			quad[1] = corners[5]
			quad[2] = corners[7]
			quad[3] = corners[3]
		} else { // Down
			quad[0] = corners[0]
			quad[1] = corners[4]
			quad[2] = corners[6]
			quad[3] = corners[2]
		}
	} else {
		if dx > dy { // Up
			quad[0] = corners[0]
			quad[1] = corners[2]
			quad[2] = corners[6]
			quad[3] = corners[4]
		} else { // Left
			quad[0] = corners[1]
			quad[1] = corners[3]
			quad[2] = corners[7]
			quad[3] = corners[5]
		}
	}

	polygon := clip.NewPolygon(quad[:]...)

	if !clip.Clip(polygon, clipFlags, draw.depthClipNegativeOneToOne) {
		return false
	}

	return draw.setupRoutine(dev, prims, line, polygon, data)
}
