package segconv

// The intermediate label representation shared by the converter, the TFRecord export and the
// preview renderer.

import (
	"math"
)

// Point is a 2D vertex. Pixel coordinates before normalisation, ratios of the image size after.
type Point struct {
	X, Y float64
}

// Polygon is an implicitly closed sequence of vertices. The first vertex is not repeated at the
// end.
type Polygon []Point

// PolygonFromFlat converts a flat x1, y1, x2, y2, ... list to a Polygon. A trailing odd value is
// ignored.
func PolygonFromFlat(coords []float64) Polygon {
	p := make(Polygon, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		p = append(p, Point{X: coords[i], Y: coords[i+1]})
	}
	return p
}

// Flat returns the vertices as a flat x1, y1, x2, y2, ... list.
func (p Polygon) Flat() []float64 {
	coords := make([]float64, 0, 2*len(p))
	for _, v := range p {
		coords = append(coords, v.X, v.Y)
	}
	return coords
}

// Bounds returns the min and max corners of the axis-aligned bounding box of p.
func (p Polygon) Bounds() (min, max Point) {
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, v := range p {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// LabelLine is one YOLO segmentation object: a dense class index and a normalised polygon.
type LabelLine struct {
	Class  int
	Coords []float64 // Normalised x1, y1, ..., xN, yN, each in [0, 1].
}

// Polygon returns the line's coordinates as a Polygon.
func (l LabelLine) Polygon() Polygon {
	return PolygonFromFlat(l.Coords)
}

// LabeledImage is the label metadata for a single image.
type LabeledImage struct {
	FilePath string      // The image file.
	Width    int         // Image width in pixels, zero if unknown.
	Height   int         // Image height in pixels, zero if unknown.
	Lines    []LabelLine // The objects, in annotation order.
}

// LabeledImages is the label metadata for a list of images.
type LabeledImages []LabeledImage

// NumLines returns the total number of label lines.
func (data LabeledImages) NumLines() int {
	n := 0
	for _, d := range data {
		n += len(d.Lines)
	}
	return n
}
