package segconv

import (
	"log"
)

// Shapes is the result of extracting the polygons of one annotation.
type Shapes struct {
	Polygons  []Polygon     // Raw pixel-space polygons.
	Reason    DiscardReason // Why the whole annotation was dropped, DiscardNone otherwise.
	Malformed int           // Polygons dropped from an otherwise kept annotation.
}

// ExtractShapes returns the pixel-space polygons of annotation a.
//
// Polygon segmentations are taken as-is, one polygon per inner list. Mask segmentations are
// decoded with dec into one polygon per external contour, unless a is a crowd annotation and
// skipCrowd is set, or dec is not available.
func ExtractShapes(a *COCOAnnotation, dec MaskDecoder, skipCrowd bool) Shapes {
	seg := a.Segmentation
	switch {
	case seg.Unknown || seg.IsEmpty():
		return Shapes{Reason: DiscardEmptySegmentation}

	case seg.RLE != nil:
		if bool(a.IsCrowd) && skipCrowd {
			return Shapes{Reason: DiscardCrowdSkipped}
		}
		if dec == nil || !dec.Available() {
			return Shapes{Reason: DiscardRLEUnavailable}
		}
		polygons, err := dec.Contours(seg.RLE)
		if err == ErrMaskDecodingUnavailable {
			return Shapes{Reason: DiscardRLEUnavailable}
		} else if err != nil {
			log.Printf("Failed to decode the mask of annotation %d: %v", a.ID, err)
			return Shapes{Reason: DiscardMalformed}
		}
		if len(polygons) == 0 {
			return Shapes{Reason: DiscardEmptySegmentation}
		}
		return Shapes{Polygons: polygons}
	}

	s := Shapes{Polygons: make([]Polygon, 0, len(seg.Polygons))}
	for _, coords := range seg.Polygons {
		if len(coords) < 2*MinPolygonPoints || len(coords)%2 != 0 {
			s.Malformed++
			continue
		}
		s.Polygons = append(s.Polygons, PolygonFromFlat(coords))
	}
	if len(s.Polygons) == 0 {
		return Shapes{Reason: DiscardMalformed}
	}
	return s
}
