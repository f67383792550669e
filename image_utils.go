package segconv

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// ImageSize returns the width and height of the image at path. Only the image header is read.
func ImageSize(path string) (width, height int, err error) {
	config, _, err := decodeImageConfig(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode the image metadata of %q: %v", path, err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid image size %dx%d of %q", config.Width, config.Height, path)
	}
	return config.Width, config.Height, nil
}

// loadImage reads and decodes the image at path, applying the EXIF orientation if present.
func loadImage(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}

// fitImage downsamples img so that its longer side is at most maxSide, keeping the aspect ratio.
// Smaller images and a maxSide <= 0 leave img unchanged.
func fitImage(img image.Image, maxSide int, filter imaging.ResampleFilter) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, filter)
}

// saveImage saves the image to path, encoding it according to the file extension of path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	return imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
}
