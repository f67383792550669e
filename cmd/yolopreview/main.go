// Draws YOLO segmentation labels onto their images, for checking a conversion by eye.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sensorable/segconv"
)

var (
	labelDirPath     string  // The YOLO label input directory.
	imageDirPath     string  // The image input directory.
	previewOutPath   string  // The output directory for rendered images.
	maxSide          int     // The maximum length of the longer output image side.
	fillPolygons     bool    // Fill polygons in addition to outlining them.
	lineWidth        float64 // The outline width in output pixels.
	imageJPEGQuality int     // The JPEG quality for JPEG outputs.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  -labels <dir> -images <dir> -out <dir>")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	flag.StringVar(&labelDirPath, "labels", labelDirPath,
		"The `path` to the YOLO label directory")
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the image directory")
	flag.StringVar(&previewOutPath, "out", previewOutPath,
		"The `path` to the output directory for the rendered images")
	flag.IntVar(&maxSide, "max-side", 1024,
		"The maximum `length` of the longer output image side (0 keeps the image size)")
	flag.BoolVar(&fillPolygons, "fill", fillPolygons, "Fill the polygons translucently")
	flag.Float64Var(&lineWidth, "line-width", 2, "The polygon outline `width` in pixels")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	flag.Parse()

	if labelDirPath == "" || imageDirPath == "" || previewOutPath == "" {
		printUsageAndExit("Missing -labels, -images or -out argument")
	}
	if maxSide < 0 {
		printUsageAndExit("Invalid -max-side: ", maxSide)
	}
	if imageJPEGQuality < 1 || imageJPEGQuality > 100 {
		imageJPEGQuality = 90
		log.Print("Invalid JPEG quality, setting it to ", imageJPEGQuality)
	}

	labelDirPath = filepath.Clean(labelDirPath)
	imageDirPath = filepath.Clean(imageDirPath)
	previewOutPath = filepath.Clean(previewOutPath)
	if previewOutPath == imageDirPath {
		printUsageAndExit("The image input and output paths cannot be identical")
	}
}

func main() {
	data, err := segconv.FromYOLO(labelDirPath, imageDirPath)
	if err != nil {
		log.Fatal("Failed to parse the input: ", err)
	}

	err = segconv.RenderPreviews(data, segconv.PreviewOptions{
		OutDir:      previewOutPath,
		MaxSide:     maxSide,
		Fill:        fillPolygons,
		LineWidth:   lineWidth,
		JPEGQuality: imageJPEGQuality,
	})
	if err != nil {
		log.Fatal("Rendering failed: ", err)
	}

	log.Printf("Rendered %d images with %d labels to %s", len(data),
		segconv.LabeledImages(data).NumLines(), previewOutPath)
}
