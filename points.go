package swr

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/swr/clip"
)

// setupPoint expands one point into a screen-aligned quadrilateral scaled by
// the clamped point size, clips it, and hands it to the setup routine. The
// point's inverse size is recorded on the primitive for later fragment
// coverage computation.
func setupPoint(dev Device, prims []Primitive, point *Triangle, draw *DrawCall) bool {
	v := &point.V0

	if v.CullMask == 0 {
		return false
	}

	data := draw.data
	clipFlags := draw.clipPlanes()

	pSize := clamp(v.PointSize, 1.0, float32(MaxPointSize))
	x := pSize * v.Position[3] * data.HalfPixelX
	y := pSize * v.Position[3] * data.HalfPixelY

	var quad [4]f32.Vec4

	quad[0] = v.Position
	quad[0][0] -= x
	quad[0][1] += y

	quad[1] = v.Position
	quad[1][0] += x
	quad[1][1] += y

	quad[2] = v.Position
	quad[2][0] += x
	quad[2][1] -= y

	quad[3] = v.Position
	quad[3][0] -= x
	quad[3][1] -= y

	polygon := clip.NewPolygon(quad[:]...)

	if !clip.Clip(polygon, clipFlags, draw.depthClipNegativeOneToOne) {
		return false
	}

	prims[0].PointSizeInv = 1.0 / pSize

	return draw.setupRoutine(dev, prims, point, polygon, data)
}
