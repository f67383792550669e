package segconv

// Mask decoding is an optional capability. Builds with the "gocv" tag extract contours with
// OpenCV, all other builds skip RLE segmentations.

import (
	"errors"
)

// ErrMaskDecodingUnavailable is returned by a MaskDecoder that cannot decode RLE masks.
var ErrMaskDecodingUnavailable = errors.New("RLE mask decoding is not available")

// MaskDecoder extracts polygons from run-length encoded masks.
type MaskDecoder interface {
	// Available reports whether Contours can decode masks at all.
	Available() bool
	// Contours returns the external contours of the mask, one polygon per connected region, in
	// pixel coordinates of the mask.
	Contours(rle *RLE) ([]Polygon, error)
}

// unavailableMaskDecoder rejects every mask.
type unavailableMaskDecoder struct{}

func (unavailableMaskDecoder) Available() bool { return false }

func (unavailableMaskDecoder) Contours(*RLE) ([]Polygon, error) {
	return nil, ErrMaskDecodingUnavailable
}

// UnavailableMaskDecoder returns a MaskDecoder that skips all masks, e.g. to force RLE
// segmentations to be ignored regardless of the build.
func UnavailableMaskDecoder() MaskDecoder {
	return unavailableMaskDecoder{}
}
