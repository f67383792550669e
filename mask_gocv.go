//go:build gocv

package segconv

import (
	"fmt"

	"gocv.io/x/gocv"
)

// NewMaskDecoder returns the mask decoder supported by this build.
func NewMaskDecoder() MaskDecoder {
	return gocvMaskDecoder{}
}

// gocvMaskDecoder finds external contours with OpenCV, simplified to their corner points.
type gocvMaskDecoder struct{}

func (gocvMaskDecoder) Available() bool { return true }

func (gocvMaskDecoder) Contours(rle *RLE) ([]Polygon, error) {
	if rle.Height == 0 || rle.Width == 0 || rle.Area() == 0 {
		return nil, nil
	}

	data, err := rle.Mask()
	if err != nil {
		return nil, err
	}
	m, err := gocv.NewMatFromBytes(rle.Height, rle.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create the mask matrix: %v", err)
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	polygons := make([]Polygon, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		points := contours.At(i).ToPoints()
		p := make(Polygon, len(points))
		for j, pt := range points {
			p[j] = Point{X: float64(pt.X), Y: float64(pt.Y)}
		}
		polygons = append(polygons, p)
	}
	return polygons, nil
}
