package clip

import "golang.org/x/image/math/f32"

// Clip clips the polygon in place against every view-volume plane whose bit
// is set in flags, using Sutherland-Hodgman clipping in homogeneous
// coordinates. When negOneToOne is true the near plane is z = -w, otherwise
// z = 0.
//
// It returns false when the result is degenerate or fully outside (fewer
// than three vertices remain). A polygon fully inside the flagged planes is
// left untouched.
func Clip(p *Polygon, flags int, negOneToOne bool) bool {
	if flags&Right != 0 {
		clipPlane(p, distRight)
	}
	if p.n >= 3 && flags&Left != 0 {
		clipPlane(p, distLeft)
	}
	if p.n >= 3 && flags&Top != 0 {
		clipPlane(p, distTop)
	}
	if p.n >= 3 && flags&Bottom != 0 {
		clipPlane(p, distBottom)
	}
	if p.n >= 3 && flags&Far != 0 {
		clipPlane(p, distFar)
	}
	if p.n >= 3 && flags&Near != 0 {
		if negOneToOne {
			clipPlane(p, distNearNegOne)
		} else {
			clipPlane(p, distNearZero)
		}
	}
	return p.n >= 3
}

// Signed distances to the view-volume planes. A vertex is inside a plane
// when its distance is non-negative.

func distRight(v f32.Vec4) float32   { return v[3] - v[0] }
func distLeft(v f32.Vec4) float32    { return v[3] + v[0] }
func distTop(v f32.Vec4) float32     { return v[3] - v[1] }
func distBottom(v f32.Vec4) float32  { return v[3] + v[1] }
func distFar(v f32.Vec4) float32     { return v[3] - v[2] }
func distNearZero(v f32.Vec4) float32   { return v[2] }
func distNearNegOne(v f32.Vec4) float32 { return v[3] + v[2] }

// clipPlane clips the polygon against a single plane given by its signed
// distance function. Vertices inside the plane are kept as-is; edges that
// cross the plane contribute the intersection point.
func clipPlane(p *Polygon, dist func(f32.Vec4) float32) {
	in := p.buf[p.cur][:p.n]

	// Fast path: leave the polygon untouched when no edge crosses the plane.
	outside := 0
	for _, v := range in {
		if dist(v) < 0 {
			outside++
		}
	}
	if outside == 0 {
		return
	}
	if outside == len(in) {
		p.n = 0
		return
	}

	next := p.cur ^ 1
	out := p.buf[next][:0]

	di := dist(in[len(in)-1])
	vi := in[len(in)-1]
	for _, vj := range in {
		dj := dist(vj)
		if di >= 0 {
			out = append(out, vi)
			if dj < 0 {
				out = append(out, intersect(vi, vj, di, dj))
			}
		} else if dj >= 0 {
			out = append(out, intersect(vi, vj, di, dj))
		}
		vi, di = vj, dj
	}

	p.cur = next
	p.n = len(out)
}

// intersect returns the point where the edge from a to b crosses the plane,
// given the endpoints' signed distances da and db (of opposite sign).
func intersect(a, b f32.Vec4, da, db float32) f32.Vec4 {
	t := da / (da - db)
	return f32.Vec4{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
		a[2] + t*(b[2]-a[2]),
		a[3] + t*(b[3]-a[3]),
	}
}
