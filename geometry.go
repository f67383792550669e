package segconv

// Polygon clipping, simplification and normalisation.

import (
	"math"
)

// MinPolygonPoints is the smallest vertex count of a polygon that is written out.
const MinPolygonPoints = 3

// DiscardReason explains why a shape, annotation or image produced no label output.
type DiscardReason int

// The discard reasons. DiscardNone marks kept output.
const (
	DiscardNone              DiscardReason = iota
	DiscardEmptySegmentation               // No polygons or mask, or a mask without contours.
	DiscardRLEUnavailable                  // RLE mask and no mask decoder.
	DiscardCrowdSkipped                    // Crowd RLE mask skipped on request.
	DiscardMalformed                       // Too few or an odd number of coordinates, or a bad mask.
	DiscardTooFewPoints                    // Fewer than the minimum vertices after simplification.
	DiscardUnknownCategory                 // Category id without a class index.
	DiscardUnknownSize                     // Image size neither in the document nor readable.
	DiscardEmptyImage                      // No label lines for the image.
)

func (r DiscardReason) String() string {
	switch r {
	case DiscardNone:
		return "kept"
	case DiscardEmptySegmentation:
		return "empty segmentation"
	case DiscardRLEUnavailable:
		return "RLE decoding unavailable"
	case DiscardCrowdSkipped:
		return "crowd skipped"
	case DiscardMalformed:
		return "malformed"
	case DiscardTooFewPoints:
		return "too few points"
	case DiscardUnknownCategory:
		return "unknown category"
	case DiscardUnknownSize:
		return "unknown image size"
	case DiscardEmptyImage:
		return "no labels"
	}
	return "unknown"
}

// Outcome is the result of normalising one polygon: either a kept polygon or a discard reason.
type Outcome struct {
	Polygon Polygon // The normalised polygon, nil unless kept.
	Reason  DiscardReason
}

// Kept reports whether the polygon survived.
func (o Outcome) Kept() bool {
	return o.Reason == DiscardNone
}

// NormalizeOptions control NormalizePolygon.
type NormalizeOptions struct {
	Epsilon   float64 // Douglas-Peucker tolerance in pixels; zero disables simplification.
	MinPoints int     // Minimum vertices to keep the polygon; raised to MinPolygonPoints.
}

// NormalizePolygon clips p to a width x height image, optionally simplifies it, drops it if too
// few vertices remain and finally scales the coordinates to [0, 1]. The input is not modified.
func NormalizePolygon(p Polygon, width, height int, opts NormalizeOptions) Outcome {
	if width <= 0 || height <= 0 {
		return Outcome{Reason: DiscardUnknownSize}
	}
	w, h := float64(width), float64(height)

	q := ClipPolygon(p, w, h)
	if opts.Epsilon > 0 {
		q = SimplifyPolygon(q, opts.Epsilon)
	}

	minPoints := opts.MinPoints
	if minPoints < MinPolygonPoints {
		minPoints = MinPolygonPoints
	}
	if len(q) < minPoints {
		return Outcome{Reason: DiscardTooFewPoints}
	}

	for i := range q {
		q[i].X /= w
		q[i].Y /= h
	}
	return Outcome{Polygon: q}
}

// ClipPolygon returns a copy of p with every vertex clamped to [0, maxX] x [0, maxY].
// The far edges are inclusive, so a vertex on the image border normalises to exactly 1.
func ClipPolygon(p Polygon, maxX, maxY float64) Polygon {
	q := make(Polygon, len(p))
	for i, v := range p {
		q[i] = Point{
			X: math.Min(math.Max(v.X, 0), maxX),
			Y: math.Min(math.Max(v.Y, 0), maxY),
		}
	}
	return q
}

// SimplifyPolygon reduces the vertices of the closed polygon p with the Douglas-Peucker
// algorithm, so that no removed vertex is further than epsilon from the simplified outline.
//
// The ring is split at vertex 0 and the vertex furthest from it, and both halves are simplified
// as open polylines. Polygons with fewer than 4 vertices, or whose simplification would leave
// fewer than 3, are returned unchanged.
func SimplifyPolygon(p Polygon, epsilon float64) Polygon {
	n := len(p)
	if epsilon <= 0 || n < 4 {
		return p
	}

	// Find the vertex furthest from the first one.
	far, farDist := 0, -1.0
	for i := 1; i < n; i++ {
		if d := distSq(p[0], p[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if farDist == 0 {
		// All vertices coincide.
		return p
	}

	keep := make([]bool, n)
	keep[0], keep[far] = true, true
	ring := append(append(Polygon(nil), p...), p[0])
	markDouglasPeucker(ring, 0, far, epsilon, keep)
	markDouglasPeucker(ring, far, n, epsilon, keep)

	q := make(Polygon, 0, n)
	for i, k := range keep {
		if k {
			q = append(q, p[i])
		}
	}
	if len(q) < MinPolygonPoints {
		return p
	}
	return q
}

// markDouglasPeucker marks the vertices of pts in (first, last) that must be kept. Index last
// may equal len(keep), denoting the closing vertex.
func markDouglasPeucker(pts Polygon, first, last int, epsilon float64, keep []bool) {
	if last-first < 2 {
		return
	}

	idx, maxDist := -1, 0.0
	for i := first + 1; i < last; i++ {
		if d := segmentDist(pts[i], pts[first], pts[last]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if idx < 0 || maxDist <= epsilon {
		return
	}

	keep[idx%len(keep)] = true
	markDouglasPeucker(pts, first, idx, epsilon, keep)
	markDouglasPeucker(pts, idx, last, epsilon, keep)
}

// segmentDist is the distance from p to the segment a-b.
func segmentDist(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Sqrt(distSq(p, a))
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Sqrt(distSq(p, Point{a.X + t*dx, a.Y + t*dy}))
}

func distSq(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
