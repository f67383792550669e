//go:build !gocv

package segconv

// NewMaskDecoder returns the mask decoder supported by this build.
func NewMaskDecoder() MaskDecoder {
	return unavailableMaskDecoder{}
}
